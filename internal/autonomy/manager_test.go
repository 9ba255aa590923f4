package autonomy

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/stance-controller/internal/engine"
	"github.com/danielpatrickdp/stance-controller/internal/idle"
	"github.com/danielpatrickdp/stance-controller/internal/operator"
)

// #region helpers

func newTestManager(gen *scriptedGen) (*Manager, *memStore) {
	st := newMemStore()
	eng := engine.New(operator.NewRegistry(), nil)
	idleCfg := idle.Config{Threshold: 5 * time.Minute, PollInterval: time.Hour}
	m := NewManager(testSchedConfig(), idleCfg, eng, gen, nil, st, nil)
	return m, st
}

// stepClock is a manually advanced time source shared with a detector.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Now().Add(time.Hour)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// #endregion helpers

// #region prepare

func TestPrepareSessionValidation(t *testing.T) {
	m, _ := newTestManager(&scriptedGen{responses: []string{"x"}})

	_, _, err := m.PrepareSession("", ModeExploration, LevelStandard)
	assert.ErrorIs(t, err, ErrValidation)

	_, _, err = m.PrepareSession("sess-1", Mode("daydreaming"), LevelStandard)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestPrepareSessionIsIdempotent(t *testing.T) {
	m, _ := newTestManager(&scriptedGen{responses: []string{"x"}})

	status, chunks, err := m.PrepareSession("sess-1", ModeResearch, LevelStandard)
	require.NoError(t, err)
	assert.Equal(t, StatusAwaitingApproval, status)
	require.Len(t, chunks, 3)

	require.True(t, m.UpdateChunk("sess-1", "goal", "revised goal"))

	// A second prepare returns the existing session, edits intact.
	status2, chunks2, err := m.PrepareSession("sess-1", ModeResearch, LevelStandard)
	require.NoError(t, err)
	assert.Equal(t, StatusAwaitingApproval, status2)
	assert.Equal(t, "revised goal", chunks2[0].Content)
}

func TestTriggerNowSkipsApproval(t *testing.T) {
	gen := &scriptedGen{responses: []string{"wandering"}}
	st := newMemStore()
	cfg := testSchedConfig()
	cfg.Autonomy.TurnInterval = time.Hour // park the session between turns
	eng := engine.New(operator.NewRegistry(), nil)
	m := NewManager(cfg, idle.Config{Threshold: 5 * time.Minute, PollInterval: time.Hour}, eng, gen, nil, st, nil)

	ok, msg := m.TriggerNow("sess-1", ModeExploration)
	require.True(t, ok, msg)

	state, err := m.ExecutorState("sess-1")
	require.NoError(t, err)
	assert.Equal(t, StatusActive, state.Status, "triggered session needs no approval")

	// A second trigger while one session exists is refused.
	ok, msg = m.TriggerNow("sess-1", ModeExploration)
	assert.False(t, ok)
	assert.Contains(t, msg, "already")

	ok, _ = m.TriggerNow("", ModeExploration)
	assert.False(t, ok)

	// Termination drops the session from the active table.
	require.NoError(t, m.Terminate("sess-1"))
	require.Eventually(t, func() bool {
		_, err := m.ExecutorState("sess-1")
		return err != nil
	}, time.Second, 2*time.Millisecond)

	rec, found := st.record("sess-1")
	require.True(t, found)
	assert.Equal(t, string(StatusTerminated), rec.Status)
}

// #endregion prepare

// #region control-surface

func TestManagerUnknownSession(t *testing.T) {
	m, _ := newTestManager(&scriptedGen{responses: []string{"x"}})

	assert.ErrorIs(t, m.Approve("ghost"), ErrNotFound)
	assert.ErrorIs(t, m.Reject("ghost"), ErrNotFound)
	assert.ErrorIs(t, m.Pause("ghost"), ErrNotFound)
	assert.ErrorIs(t, m.Resume("ghost"), ErrNotFound)
	assert.False(t, m.UpdateChunk("ghost", "goal", "x"))

	_, _, err := m.GetChunks("ghost")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = m.ExecutorState("ghost")
	assert.ErrorIs(t, err, ErrNotFound)

	// Terminating an unknown session is a no-op.
	assert.NoError(t, m.Terminate("ghost"))
}

func TestManagerApprovalLifecycle(t *testing.T) {
	gen := &scriptedGen{responses: []string{"pondering", "SESSION COMPLETE"}}
	m, _ := newTestManager(gen)

	_, _, err := m.PrepareSession("sess-1", ModeExploration, LevelStandard)
	require.NoError(t, err)

	status, _, err := m.GetChunks("sess-1")
	require.NoError(t, err)
	assert.Equal(t, StatusAwaitingApproval, status)

	require.NoError(t, m.Approve("sess-1"))

	// Completion removes the session from the active table.
	require.Eventually(t, func() bool {
		_, err := m.ExecutorState("sess-1")
		return err != nil
	}, 5*time.Second, 5*time.Millisecond)

	// A fresh prepare on the same id is allowed afterwards.
	status, _, err = m.PrepareSession("sess-1", ModeCreation, LevelRelaxed)
	require.NoError(t, err)
	assert.Equal(t, StatusAwaitingApproval, status)
	require.NoError(t, m.Terminate("sess-1"))
}

func TestManagerRejectRemovesSession(t *testing.T) {
	gen := &scriptedGen{responses: []string{"x"}}
	m, _ := newTestManager(gen)

	_, _, err := m.PrepareSession("sess-1", ModeOptimization, LevelRestricted)
	require.NoError(t, err)
	require.NoError(t, m.Reject("sess-1"))

	require.Eventually(t, func() bool {
		_, err := m.ExecutorState("sess-1")
		return err != nil
	}, time.Second, 2*time.Millisecond)
	assert.Equal(t, 0, gen.callCount())
}

// #endregion control-surface

// #region idle-wiring

func TestIdleEdgePreparesSession(t *testing.T) {
	m, _ := newTestManager(&scriptedGen{responses: []string{"x"}})

	clock := newStepClock()
	det := m.Detector("sess-1")
	det.SetClock(clock.Now)
	m.RecordActivity("sess-1", "user_message", "chat")

	clock.Advance(6 * time.Minute)
	det.Sweep()

	status, chunks, err := m.GetChunks("sess-1")
	require.NoError(t, err, "idle edge must prepare a session")
	assert.Equal(t, StatusAwaitingApproval, status)
	require.Len(t, chunks, 3)
	assert.Equal(t, modeGoals[ModeExploration], chunks[0].Content)

	// The detector now reports the session as autonomous.
	assert.Equal(t, "autonomous", det.Snapshot().Status)

	require.NoError(t, m.Reject("sess-1"))
	require.Eventually(t, func() bool {
		return det.Snapshot().Status != "autonomous"
	}, time.Second, 2*time.Millisecond)
}

func TestDetectorReusedPerSession(t *testing.T) {
	m, _ := newTestManager(&scriptedGen{responses: []string{"x"}})
	assert.Same(t, m.Detector("sess-1"), m.Detector("sess-1"))
	assert.NotSame(t, m.Detector("sess-1"), m.Detector("sess-2"))
}

func TestUpdateIdleThreshold(t *testing.T) {
	m, _ := newTestManager(&scriptedGen{responses: []string{"x"}})
	det := m.Detector("sess-1")

	m.UpdateIdleThreshold(0.5)
	assert.Equal(t, 30*time.Second, det.Threshold())
}

// #endregion idle-wiring

// #region level-constraints

func TestConstraintsForLevel(t *testing.T) {
	cases := []struct {
		level    Level
		floor    float32
		maxDrift float32
		ops      int
		approval bool
	}{
		{LevelRestricted, 55, 30, 3, true},
		{LevelStandard, 40, 60, 7, true},
		{LevelRelaxed, 30, 90, 10, true},
		{LevelFull, 20, 150, 0, false},
	}
	for _, tc := range cases {
		c := ConstraintsForLevel(tc.level)
		assert.Equal(t, tc.floor, c.CoherenceFloor, "%s floor", tc.level)
		assert.Equal(t, tc.maxDrift, c.MaxDriftPerSession, "%s drift", tc.level)
		assert.Len(t, c.AllowedOperators, tc.ops, "%s whitelist", tc.level)
		assert.Equal(t, tc.approval, c.HumanApprovalRequired, "%s approval", tc.level)
	}
}

func TestOperatorsForModeWhitelist(t *testing.T) {
	// Nil whitelist allows the mode's full selection.
	all := OperatorsForMode(ModeExploration, nil)
	assert.Contains(t, all, "GoalFormation")

	// The standard whitelist filters out the sentience operators.
	allowed := ConstraintsForLevel(LevelStandard).AllowedOperators
	filtered := OperatorsForMode(ModeExploration, allowed)
	assert.NotContains(t, filtered, "GoalFormation")
	assert.NotContains(t, filtered, "SentienceDeepen")
	assert.Contains(t, filtered, "Reframe")
	assert.Contains(t, filtered, "ValueShift")

	// An empty (non-nil) whitelist allows nothing.
	assert.Empty(t, OperatorsForMode(ModeResearch, []string{}))
}

// #endregion level-constraints
