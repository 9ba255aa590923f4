package autonomy

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/stance-controller/internal/engine"
	"github.com/danielpatrickdp/stance-controller/internal/events"
	"github.com/danielpatrickdp/stance-controller/internal/idle"
	"github.com/danielpatrickdp/stance-controller/internal/model"
)

// #region manager

// Manager owns the active-session table and the per-session idle
// detectors. It is the single entry point for the control surface; every
// create/lookup/remove on the table happens inside its lock so two callers
// can never race a duplicate scheduler for one session.
type Manager struct {
	cfg     Config
	idleCfg idle.Config
	engine  *engine.Engine
	gen     model.Generator
	bus     *events.Bus
	store   Store
	logger  *zap.SugaredLogger
	rng     *rand.Rand

	mu        sync.Mutex
	sessions  map[string]*Scheduler
	detectors map[string]*idle.Detector
}

// NewManager wires a manager. A nil logger is replaced with a no-op logger.
func NewManager(
	cfg Config,
	idleCfg idle.Config,
	eng *engine.Engine,
	gen model.Generator,
	bus *events.Bus,
	st Store,
	logger *zap.SugaredLogger,
) *Manager {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Manager{
		cfg:       cfg,
		idleCfg:   idleCfg,
		engine:    eng,
		gen:       gen,
		bus:       bus,
		store:     st,
		logger:    logger,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		sessions:  make(map[string]*Scheduler),
		detectors: make(map[string]*idle.Detector),
	}
}

// SetRand overrides the randomness source shared with operators. Tests use
// a seeded source for reproducible probabilistic behavior.
func (m *Manager) SetRand(rng *rand.Rand) {
	m.mu.Lock()
	m.rng = rng
	m.mu.Unlock()
}

// #endregion manager

// #region prepare

// PrepareSession creates (or returns) the scheduler for a session. A second
// prepare while one is non-terminal returns the existing instance's state
// instead of creating a duplicate.
func (m *Manager) PrepareSession(sessionID string, mode Mode, level Level) (Status, []PromptChunk, error) {
	if sessionID == "" {
		return "", nil, fmt.Errorf("empty session id: %w", ErrValidation)
	}
	if !ValidMode(mode) {
		return "", nil, fmt.Errorf("unknown mode %q: %w", mode, ErrValidation)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.sessions[sessionID]; ok {
		return existing.Status(), existing.Chunks(), nil
	}

	sched, err := newScheduler(
		sessionID, mode, level, m.cfg,
		m.engine, m.gen, m.bus, m.store, m.logger, m.rng,
		nil, m.removeWhenTerminal,
	)
	if err != nil {
		return "", nil, err
	}
	m.sessions[sessionID] = sched
	m.setAutonomousLocked(sessionID, true)
	m.logger.Infow("session prepared", "session", sessionID, "mode", mode, "level", level)
	return sched.Status(), sched.Chunks(), nil
}

// TriggerNow skips the idle wait and approval and starts a session
// immediately.
func (m *Manager) TriggerNow(sessionID string, mode Mode) (bool, string) {
	if sessionID == "" || !ValidMode(mode) {
		return false, "invalid session id or mode"
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.sessions[sessionID]; ok {
		return false, fmt.Sprintf("session already %s", existing.Status())
	}

	cfg := m.cfg
	cfg.Autonomy.HumanApprovalRequired = false
	sched, err := newScheduler(
		sessionID, mode, LevelFull, cfg,
		m.engine, m.gen, m.bus, m.store, m.logger, m.rng,
		nil, m.removeWhenTerminal,
	)
	if err != nil {
		return false, err.Error()
	}
	m.sessions[sessionID] = sched
	m.setAutonomousLocked(sessionID, true)
	m.logger.Infow("session triggered", "session", sessionID, "mode", mode)
	return true, "autonomous session started"
}

// #endregion prepare

// #region control-surface

// GetChunks returns the prompt plan for a prepared session.
func (m *Manager) GetChunks(sessionID string) (Status, []PromptChunk, error) {
	sched, err := m.lookup(sessionID)
	if err != nil {
		return "", nil, err
	}
	return sched.Status(), sched.Chunks(), nil
}

// UpdateChunk edits one editable chunk. False for unknown sessions, unknown
// chunks, and non-editable chunks.
func (m *Manager) UpdateChunk(sessionID, chunkID, content string) bool {
	sched, err := m.lookup(sessionID)
	if err != nil {
		return false
	}
	return sched.UpdateChunk(chunkID, content)
}

// Approve starts an awaiting session.
func (m *Manager) Approve(sessionID string) error {
	sched, err := m.lookup(sessionID)
	if err != nil {
		return err
	}
	return sched.Approve()
}

// Reject cancels an awaiting session.
func (m *Manager) Reject(sessionID string) error {
	sched, err := m.lookup(sessionID)
	if err != nil {
		return err
	}
	return sched.Reject()
}

// Pause suspends an active session's turn loop.
func (m *Manager) Pause(sessionID string) error {
	sched, err := m.lookup(sessionID)
	if err != nil {
		return err
	}
	return sched.Pause()
}

// Resume continues a paused session.
func (m *Manager) Resume(sessionID string) error {
	sched, err := m.lookup(sessionID)
	if err != nil {
		return err
	}
	return sched.Resume()
}

// Terminate ends a session from any state. Unknown sessions and already
// terminal sessions are both no-ops: terminate is idempotent.
func (m *Manager) Terminate(sessionID string) error {
	sched, err := m.lookup(sessionID)
	if err != nil {
		return nil
	}
	return sched.Terminate()
}

// ExecutorState reports a session's progress snapshot.
func (m *Manager) ExecutorState(sessionID string) (ExecutorState, error) {
	sched, err := m.lookup(sessionID)
	if err != nil {
		return ExecutorState{}, err
	}
	return sched.State(), nil
}

func (m *Manager) lookup(sessionID string) (*Scheduler, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sched, ok := m.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	return sched, nil
}

// removeWhenTerminal drops a finished scheduler from the active table. The
// terminal snapshot was already flushed by the scheduler itself.
func (m *Manager) removeWhenTerminal(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	m.setAutonomousLocked(sessionID, false)
	m.logger.Infow("session removed from active table", "session", sessionID)
}

// #endregion control-surface

// #region idle-wiring

// Detector returns (creating on first use) the idle detector for a session,
// wired so an idle edge prepares an exploration session.
func (m *Manager) Detector(sessionID string) *idle.Detector {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.detectorLocked(sessionID)
}

func (m *Manager) detectorLocked(sessionID string) *idle.Detector {
	if d, ok := m.detectors[sessionID]; ok {
		return d
	}
	d := idle.New(sessionID, m.idleCfg, m.bus, m.logger)
	d.OnIdleStart(func(id string, idleFor time.Duration) {
		m.logger.Infow("idle threshold crossed", "session", id, "inactiveFor", idleFor)
		if _, _, err := m.PrepareSession(id, ModeExploration, LevelStandard); err != nil {
			m.logger.Errorw("prepare on idle", "session", id, "err", err)
		}
	})
	m.detectors[sessionID] = d
	return d
}

// RecordActivity feeds the session's idle detector.
func (m *Manager) RecordActivity(sessionID, activityType, source string) {
	m.mu.Lock()
	d := m.detectorLocked(sessionID)
	m.mu.Unlock()
	d.RecordActivity(activityType, source)
}

// UpdateIdleThreshold reconfigures every detector at runtime.
func (m *Manager) UpdateIdleThreshold(minutes float32) {
	threshold := time.Duration(minutes * float32(time.Minute))
	m.mu.Lock()
	m.idleCfg.Threshold = threshold
	for _, d := range m.detectors {
		d.SetThreshold(threshold)
	}
	m.mu.Unlock()
}

func (m *Manager) setAutonomousLocked(sessionID string, on bool) {
	if d, ok := m.detectors[sessionID]; ok {
		d.SetAutonomous(on)
	}
}

// #endregion idle-wiring
