package autonomy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/stance-controller/internal/config"
	"github.com/danielpatrickdp/stance-controller/internal/drift"
	"github.com/danielpatrickdp/stance-controller/internal/engine"
	"github.com/danielpatrickdp/stance-controller/internal/events"
	"github.com/danielpatrickdp/stance-controller/internal/logging"
	"github.com/danielpatrickdp/stance-controller/internal/model"
	"github.com/danielpatrickdp/stance-controller/internal/operator"
	"github.com/danielpatrickdp/stance-controller/internal/stance"
	"github.com/danielpatrickdp/stance-controller/internal/store"
)

// #region store-interface

// Store is the persistence contract the scheduler requires.
type Store interface {
	LoadStance(sessionID string) (stance.Stance, error)
	CreateInitialStance(sessionID string) (stance.Stance, error)
	SaveStance(st stance.Stance) error
	SaveSessionRecord(rec store.SessionRecord) error
	LogDecision(entry logging.ProvenanceEntry) error
}

// #endregion store-interface

// #region config

// Config bundles the scheduler's tuning knobs.
type Config struct {
	Autonomy config.AutonomyConfig
	Mode     config.ModeConfig
}

// #endregion config

// #region scheduler

// Scheduler drives one autonomous session through its state machine. At
// most one non-terminal scheduler exists per session id; the Manager
// enforces that.
type Scheduler struct {
	cfg    Config
	engine *engine.Engine
	gen    model.Generator
	bus    *events.Bus
	store  Store
	logger *zap.SugaredLogger
	rng    *rand.Rand
	clock  func() time.Time

	mu            sync.Mutex
	session       Session
	st            stance.Stance
	paused        bool
	resumeCh      chan struct{}
	cancelRun     context.CancelFunc
	approvalTimer *time.Timer
	onTerminal    func(sessionID string)
	done          chan struct{}
	doneOnce      sync.Once
}

// newScheduler creates a scheduler in Preparing, builds the prompt plan,
// and moves to AwaitingApproval or starts immediately depending on the
// approval requirement.
func newScheduler(
	sessionID string,
	mode Mode,
	level Level,
	cfg Config,
	eng *engine.Engine,
	gen model.Generator,
	bus *events.Bus,
	st Store,
	logger *zap.SugaredLogger,
	rng *rand.Rand,
	history []string,
	onTerminal func(sessionID string),
) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	current, err := st.LoadStance(sessionID)
	if errors.Is(err, store.ErrNotFound) {
		current, err = st.CreateInitialStance(sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("initial stance: %w", err)
	}

	constraints := ConstraintsForLevel(level)
	constraints.HumanApprovalRequired = constraints.HumanApprovalRequired && cfg.Autonomy.HumanApprovalRequired

	s := &Scheduler{
		cfg:        cfg,
		engine:     eng,
		gen:        gen,
		bus:        bus,
		store:      st,
		logger:     logger.With("session", sessionID),
		rng:        rng,
		clock:      time.Now,
		onTerminal: onTerminal,
		done:       make(chan struct{}),
	}
	s.session = Session{
		ID:          sessionID,
		Mode:        mode,
		Level:       level,
		Status:      StatusPreparing,
		Constraints: constraints,
		CreatedAt:   s.clock().UTC(),
	}
	s.st = current
	s.session.Chunks = buildChunks(s.session, current, history)

	s.mu.Lock()
	defer s.mu.Unlock()
	if constraints.HumanApprovalRequired {
		s.session.Status = StatusAwaitingApproval
		s.publishLocked(events.Event{Type: events.TypePromptReady, Chunks: s.chunkPayloadLocked()})
		s.startApprovalTimerLocked()
	} else {
		s.startLocked()
	}
	s.saveSessionLocked()
	return s, nil
}

// #endregion scheduler

// #region state-accessors

// State returns the session's control-surface snapshot.
func (s *Scheduler) State() ExecutorState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ExecutorState{
		Status:        s.session.Status,
		CurrentTurn:   s.session.CurrentTurn,
		Discoveries:   append([]Discovery(nil), s.session.Discoveries...),
		Activities:    append([]Activity(nil), s.session.Activities...),
		LastHeartbeat: s.session.LastHeartbeat,
	}
}

// Status returns the current state machine position.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Status
}

// Chunks returns a copy of the prompt plan.
func (s *Scheduler) Chunks() []PromptChunk {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]PromptChunk(nil), s.session.Chunks...)
}

// Done is closed when the session reaches a terminal state.
func (s *Scheduler) Done() <-chan struct{} { return s.done }

// #endregion state-accessors

// #region approval

// UpdateChunk replaces an editable chunk's content while the session awaits
// approval. Returns false for unknown, non-editable, or post-approval chunks.
func (s *Scheduler) UpdateChunk(chunkID, content string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session.Status != StatusAwaitingApproval {
		return false
	}
	for i := range s.session.Chunks {
		c := &s.session.Chunks[i]
		if c.ID != chunkID {
			continue
		}
		if !c.Editable {
			return false
		}
		if c.Required && content == "" {
			return false
		}
		c.Content = content
		s.saveSessionLocked()
		return true
	}
	return false
}

// Approve moves an awaiting session to Active and starts the turn loop.
func (s *Scheduler) Approve() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session.Status != StatusAwaitingApproval {
		return fmt.Errorf("approve in %s: %w", s.session.Status, ErrInvalidState)
	}
	s.stopApprovalTimerLocked()
	s.startLocked()
	s.saveSessionLocked()
	return nil
}

// Reject cancels an awaiting session and releases its resources.
func (s *Scheduler) Reject() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session.Status != StatusAwaitingApproval {
		return fmt.Errorf("reject in %s: %w", s.session.Status, ErrInvalidState)
	}
	s.finishLocked(StatusCancelled, "")
	return nil
}

func (s *Scheduler) startApprovalTimerLocked() {
	timeout := s.cfg.Autonomy.ApprovalTimeout
	if timeout <= 0 {
		return
	}
	s.approvalTimer = time.AfterFunc(timeout, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.session.Status != StatusAwaitingApproval {
			return
		}
		s.logger.Infow("approval timed out, implicit reject", "timeout", timeout)
		s.finishLocked(StatusCancelled, "approval timed out")
	})
}

func (s *Scheduler) stopApprovalTimerLocked() {
	if s.approvalTimer != nil {
		s.approvalTimer.Stop()
		s.approvalTimer = nil
	}
}

// #endregion approval

// #region pause-resume-terminate

// Pause suspends the turn loop after the in-flight turn, if any.
func (s *Scheduler) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session.Status != StatusActive {
		return fmt.Errorf("pause in %s: %w", s.session.Status, ErrInvalidState)
	}
	s.paused = true
	s.resumeCh = make(chan struct{})
	s.setStatusLocked(StatusPaused)
	return nil
}

// Resume continues a paused turn loop.
func (s *Scheduler) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session.Status != StatusPaused {
		return fmt.Errorf("resume in %s: %w", s.session.Status, ErrInvalidState)
	}
	s.paused = false
	close(s.resumeCh)
	s.setStatusLocked(StatusActive)
	return nil
}

// Terminate ends the session from any state. Terminating an already
// terminal session is a no-op, not an error.
func (s *Scheduler) Terminate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session.Status.Terminal() {
		return nil
	}
	s.finishLocked(StatusTerminated, "")
	return nil
}

// #endregion pause-resume-terminate

// #region run-loop

// startLocked transitions to Active and spawns the turn and heartbeat loops.
func (s *Scheduler) startLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancelRun = cancel
	s.setStatusLocked(StatusActive)
	go s.run(ctx)
	go s.heartbeat(ctx)
}

// run is the bounded turn loop. It stops on budget exhaustion, natural
// completion, a safety breach, termination, or an unrecoverable failure.
func (s *Scheduler) run(ctx context.Context) {
	maxTurns := s.cfg.Autonomy.MaxTurnsPerSession
	for {
		if !s.waitWhileRunnable(ctx) {
			return
		}

		s.mu.Lock()
		if s.session.Status.Terminal() {
			s.mu.Unlock()
			return
		}
		turn := s.session.CurrentTurn + 1
		if turn > maxTurns {
			s.finishLocked(StatusCompleted, "")
			s.mu.Unlock()
			return
		}
		if coherence := drift.Coherence(s.st); coherence <= s.session.Constraints.CoherenceFloor {
			s.logger.Infow("coherence at floor before turn, stopping",
				"coherence", coherence, "floor", s.session.Constraints.CoherenceFloor)
			s.finishLocked(StatusCompleted, "")
			s.mu.Unlock()
			return
		}
		prompt, selected := s.buildTurnLocked(turn, maxTurns)
		if topic := forbiddenTopic(prompt, s.session.Constraints.ForbiddenTopics); topic != "" {
			s.safetyStopLocked(turn, fmt.Sprintf("forbidden topic %q in prompt", topic))
			s.mu.Unlock()
			return
		}
		modelName := s.cfg.Mode.Model
		s.mu.Unlock()

		resp, err := s.gen.Generate(ctx, model.Request{Model: modelName, Prompt: prompt})
		if err != nil {
			if ctx.Err() != nil {
				return // terminated mid-flight
			}
			s.mu.Lock()
			s.logger.Errorw("model collaborator failed", "turn", turn, "err", err)
			s.finishLocked(StatusError, err.Error())
			s.mu.Unlock()
			return
		}

		if done := s.completeTurn(turn, selected, resp.Text); done {
			return
		}
	}
}

// waitWhileRunnable blocks through pauses and the inter-turn delay.
// It returns false when the context is cancelled.
func (s *Scheduler) waitWhileRunnable(ctx context.Context) bool {
	for {
		s.mu.Lock()
		paused := s.paused
		resume := s.resumeCh
		s.mu.Unlock()
		if !paused {
			break
		}
		select {
		case <-ctx.Done():
			return false
		case <-resume:
		}
	}
	if interval := s.cfg.Autonomy.TurnInterval; interval > 0 {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(interval):
		}
	}
	return ctx.Err() == nil
}

// buildTurnLocked assembles the prompt and operator selection for a turn.
func (s *Scheduler) buildTurnLocked(turn, maxTurns int) (string, []string) {
	selected := OperatorsForMode(s.session.Mode, s.session.Constraints.AllowedOperators)
	ctx := operator.Context{
		Config: s.cfg.Mode,
		Rand:   s.rng,
	}
	injections := s.engine.PromptInjections(s.st, selected, ctx)
	return assemblePrompt(s.session.Chunks, injections, turn, maxTurns), selected
}

// completeTurn processes a model response: safety screen, discovery
// extraction, stance application, persistence, events. Returns true when
// the session reached a terminal state.
func (s *Scheduler) completeTurn(turn int, selected []string, response string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session.Status.Terminal() {
		return true
	}
	now := s.clock().UTC()

	if topic := forbiddenTopic(response, s.session.Constraints.ForbiddenTopics); topic != "" {
		s.safetyStopLocked(turn, fmt.Sprintf("forbidden topic %q in response", topic))
		return true
	}

	for _, found := range extractDiscoveries(response) {
		d := Discovery{Turn: turn, Content: found, Timestamp: now}
		s.session.Discoveries = append(s.session.Discoveries, d)
		s.publishLocked(events.Event{Type: events.TypeDiscovery, Turn: turn, Discovery: found})
	}

	opCtx := operator.Context{
		Message: response,
		Config:  s.cfg.Mode,
		Rand:    s.rng,
	}
	result := s.engine.ApplyTurn(s.st, selected, opCtx, s.cfg.Mode)
	s.st = result.Stance
	if err := s.store.SaveStance(s.st); err != nil {
		s.logger.Errorw("save stance", "err", err)
	}
	s.logProvenanceLocked(result)

	s.session.CurrentTurn = turn
	s.session.Activities = append(s.session.Activities, Activity{
		Turn: turn, Kind: "turn",
		Detail: fmt.Sprintf("applied=%d rejected=%d drift=%.2f coherence=%.2f",
			len(result.Applied), len(result.Rejected), result.DriftThisTurn, result.Coherence),
		Timestamp: now,
	})
	s.publishLocked(events.Event{Type: events.TypeTurnCompleted, Turn: turn, Response: response})
	s.saveSessionLocked()

	switch {
	case naturalCompletion(response):
		s.logger.Infow("session declared complete", "turn", turn)
		s.finishLocked(StatusCompleted, "")
		return true
	case result.Coherence <= s.session.Constraints.CoherenceFloor:
		// Hard stop, never retried.
		s.logger.Infow("coherence floor reached", "coherence", result.Coherence)
		s.finishLocked(StatusCompleted, "")
		return true
	case s.session.Constraints.MaxDriftPerSession > 0 && s.st.CumulativeDrift >= s.session.Constraints.MaxDriftPerSession:
		s.logger.Infow("session drift budget exhausted", "drift", s.st.CumulativeDrift)
		s.finishLocked(StatusCompleted, "")
		return true
	}
	return false
}

// safetyStopLocked ends the session on a safety breach. The breach is
// reported on the event stream, not returned to a caller.
func (s *Scheduler) safetyStopLocked(turn int, reason string) {
	s.logger.Warnw("safety breach", "turn", turn, "reason", reason)
	s.session.Activities = append(s.session.Activities, Activity{
		Turn: turn, Kind: "safety_stop", Detail: reason, Timestamp: s.clock().UTC(),
	})
	s.publishLocked(events.Event{Type: events.TypeError, Turn: turn, Error: reason})
	s.finishLocked(StatusTerminated, "")
}

// heartbeat emits liveness events independent of turn cadence.
func (s *Scheduler) heartbeat(ctx context.Context) {
	interval := s.cfg.Autonomy.HeartbeatInterval
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			if s.session.Status.Terminal() {
				s.mu.Unlock()
				return
			}
			s.session.LastHeartbeat = s.clock().UTC()
			s.publishLocked(events.Event{
				Type:   events.TypeHeartbeat,
				Status: string(s.session.Status),
				Turn:   s.session.CurrentTurn,
			})
			s.mu.Unlock()
		}
	}
}

// #endregion run-loop

// #region finish

// finishLocked performs the single transition into a terminal state,
// flushes partial results, and releases resources. Idempotent.
func (s *Scheduler) finishLocked(status Status, errMsg string) {
	if s.session.Status.Terminal() {
		return
	}
	s.stopApprovalTimerLocked()
	if s.cancelRun != nil {
		s.cancelRun()
	}
	if s.paused {
		s.paused = false
		close(s.resumeCh)
	}
	s.session.Status = status
	s.publishLocked(events.Event{Type: events.TypeStatusChange, Status: string(status)})
	if errMsg != "" {
		s.publishLocked(events.Event{Type: events.TypeError, Error: errMsg})
	}
	s.publishLocked(events.Event{Type: events.TypeSessionComplete, Status: string(status), Turn: s.session.CurrentTurn})
	s.saveSessionLocked()
	if s.onTerminal != nil {
		go s.onTerminal(s.session.ID)
	}
	s.doneOnce.Do(func() { close(s.done) })
}

func (s *Scheduler) setStatusLocked(status Status) {
	s.session.Status = status
	s.publishLocked(events.Event{Type: events.TypeStatusChange, Status: string(status)})
	s.saveSessionLocked()
}

// #endregion finish

// #region persistence

// saveSessionLocked flushes the session snapshot. Failures are logged;
// persistence must not wedge the state machine.
func (s *Scheduler) saveSessionLocked() {
	payload, err := json.Marshal(s.session)
	if err != nil {
		s.logger.Errorw("marshal session", "err", err)
		return
	}
	rec := store.SessionRecord{
		SessionID: s.session.ID,
		Status:    string(s.session.Status),
		Mode:      string(s.session.Mode),
		Payload:   string(payload),
		UpdatedAt: s.clock().UTC(),
	}
	if err := s.store.SaveSessionRecord(rec); err != nil {
		s.logger.Errorw("save session record", "err", err)
	}
}

func (s *Scheduler) logProvenanceLocked(result engine.TurnResult) {
	now := s.clock().UTC()
	for _, a := range result.Applied {
		err := s.store.LogDecision(logging.ProvenanceEntry{
			SessionID:   s.session.ID,
			Version:     s.st.Version,
			Operator:    a.Name,
			TriggerType: "autonomous_turn",
			Decision:    "commit",
			Reason:      a.Injection,
			Magnitude:   a.Magnitude,
			CreatedAt:   now,
		})
		if err != nil {
			s.logger.Errorw("log provenance", "err", err)
		}
	}
	for _, r := range result.Rejected {
		err := s.store.LogDecision(logging.ProvenanceEntry{
			SessionID:   s.session.ID,
			Version:     s.st.Version,
			Operator:    r.Name,
			TriggerType: "autonomous_turn",
			Decision:    "reject",
			Reason:      r.Reason,
			CreatedAt:   now,
		})
		if err != nil {
			s.logger.Errorw("log provenance", "err", err)
		}
	}
}

// #endregion persistence

// #region events

func (s *Scheduler) publishLocked(ev events.Event) {
	if s.bus == nil {
		return
	}
	ev.SessionID = s.session.ID
	ev.Timestamp = s.clock().UTC()
	s.bus.Publish(ev)
}

func (s *Scheduler) chunkPayloadLocked() []events.Chunk {
	out := make([]events.Chunk, len(s.session.Chunks))
	for i, c := range s.session.Chunks {
		out[i] = events.Chunk{
			ID: c.ID, Type: c.Type, Content: c.Content,
			Editable: c.Editable, Required: c.Required, Order: c.Order,
		}
	}
	return out
}

// #endregion events

// #region id-helper

// NewSessionID returns a fresh session identifier.
func NewSessionID() string {
	return uuid.New().String()
}

// #endregion id-helper
