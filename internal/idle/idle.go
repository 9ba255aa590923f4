// Package idle aggregates activity signals into an idle/active state per
// session and emits edge-triggered start/end events. The detector is an
// explicitly constructed component owned by its session manager, never a
// process-global.
package idle

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/stance-controller/internal/events"
)

// #region config

// Config tunes one detector instance.
type Config struct {
	Threshold    time.Duration // inactivity needed before idle_start
	PollInterval time.Duration
}

// DefaultConfig returns the standard detection cadence.
func DefaultConfig() Config {
	return Config{
		Threshold:    5 * time.Minute,
		PollInterval: 3 * time.Second,
	}
}

// #endregion config

// #region detector

// EdgeHandler is invoked on idle edges. idleFor is zero on idle_end.
type EdgeHandler func(sessionID string, idleFor time.Duration)

// Detector tracks last-activity timestamps per source category for one
// session and detects threshold crossings. Edges are idempotent: repeated
// sweeps in the same idle period emit nothing new.
type Detector struct {
	sessionID string

	mu           sync.Mutex
	lastActivity map[string]time.Time
	latest       time.Time
	threshold    time.Duration
	idle         bool
	idleSince    time.Time
	autonomous   bool

	poll   time.Duration
	clock  func() time.Time
	bus    *events.Bus
	logger *zap.SugaredLogger

	onIdleStart EdgeHandler
	onIdleEnd   EdgeHandler
}

// New creates a detector for one session. bus may be nil when only the
// edge handlers are wanted; a nil logger is replaced with a no-op logger.
func New(sessionID string, cfg Config, bus *events.Bus, logger *zap.SugaredLogger) *Detector {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	d := &Detector{
		sessionID:    sessionID,
		lastActivity: make(map[string]time.Time),
		threshold:    cfg.Threshold,
		poll:         cfg.PollInterval,
		clock:        time.Now,
		bus:          bus,
		logger:       logger,
	}
	d.latest = d.clock()
	return d
}

// OnIdleStart registers the handler called when the session goes idle.
func (d *Detector) OnIdleStart(h EdgeHandler) { d.onIdleStart = h }

// OnIdleEnd registers the handler called when activity ends an idle period.
func (d *Detector) OnIdleEnd(h EdgeHandler) { d.onIdleEnd = h }

// SetClock overrides the time source. Intended for tests.
func (d *Detector) SetClock(clock func() time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clock = clock
}

// #endregion detector

// #region activity

// RecordActivity notes fresh activity from a source category. Arriving
// activity while idle ends the idle period immediately, without waiting
// for the next poll.
func (d *Detector) RecordActivity(activityType, source string) {
	d.mu.Lock()
	now := d.clock()
	key := source
	if key == "" {
		key = activityType
	}
	d.lastActivity[key] = now
	if now.After(d.latest) {
		d.latest = now
	}

	wasIdle := d.idle
	var idleFor time.Duration
	if wasIdle {
		idleFor = now.Sub(d.idleSince)
		d.idle = false
	}
	d.mu.Unlock()

	if wasIdle {
		d.logger.Infow("idle ended", "session", d.sessionID, "idleFor", idleFor, "source", key)
		d.publish(events.TypeIdleMode)
		if d.onIdleEnd != nil {
			d.onIdleEnd(d.sessionID, 0)
		}
	}
}

// SetThreshold changes the inactivity threshold at runtime.
func (d *Detector) SetThreshold(threshold time.Duration) {
	d.mu.Lock()
	d.threshold = threshold
	d.mu.Unlock()
}

// Threshold returns the current inactivity threshold.
func (d *Detector) Threshold() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.threshold
}

// SetAutonomous marks whether an autonomous session is running; it only
// affects the status reported in idle-mode payloads.
func (d *Detector) SetAutonomous(on bool) {
	d.mu.Lock()
	d.autonomous = on
	d.mu.Unlock()
}

// #endregion activity

// #region sweep

// Sweep performs one idle check against the detector's clock. It is called
// by the poll loop and exported so tests can drive edges deterministically.
func (d *Detector) Sweep() {
	d.mu.Lock()
	now := d.clock()
	crossed := !d.idle && d.threshold > 0 && now.Sub(d.latest) >= d.threshold
	var idleFor time.Duration
	if crossed {
		d.idle = true
		d.idleSince = now
		idleFor = now.Sub(d.latest)
	}
	d.mu.Unlock()

	if crossed {
		d.logger.Infow("idle started", "session", d.sessionID, "inactiveFor", idleFor)
		d.publish(events.TypeIdleMode)
		if d.onIdleStart != nil {
			d.onIdleStart(d.sessionID, idleFor)
		}
	}
}

// Run polls until the context is cancelled.
func (d *Detector) Run(ctx context.Context) {
	ticker := time.NewTicker(d.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Sweep()
		}
	}
}

// #endregion sweep

// #region snapshot

// Snapshot reports the detector's current state for the idle-mode channel.
func (d *Detector) Snapshot() events.IdleStatus {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.clock()

	status := "active"
	var idleDur time.Duration
	if d.idle {
		status = "idle"
		idleDur = now.Sub(d.idleSince)
	}
	if d.autonomous {
		status = "autonomous"
	}
	return events.IdleStatus{
		IsIdle:       d.idle,
		IdleDuration: idleDur,
		LastActivity: d.latest,
		Threshold:    d.threshold,
		Status:       status,
	}
}

func (d *Detector) publish(t events.Type) {
	if d.bus == nil {
		return
	}
	snap := d.Snapshot()
	d.bus.Publish(events.Event{
		Type:      t,
		SessionID: d.sessionID,
		Idle:      &snap,
	})
}

// #endregion snapshot
