// Package autonomy runs idle-triggered sessions: it prepares an editable
// prompt plan, waits for approval, then drives a bounded turn loop through
// the stance engine under hard safety ceilings.
package autonomy

import (
	"errors"
	"time"
)

// #region errors

var (
	// ErrNotFound marks an unknown session or chunk id.
	ErrNotFound = errors.New("session not found")
	// ErrInvalidState marks an operation not valid for the current state.
	ErrInvalidState = errors.New("invalid state for operation")
	// ErrValidation marks malformed chunk content or configuration.
	ErrValidation = errors.New("validation failed")
)

// #endregion errors

// #region mode

// Mode is the purpose an autonomous session pursues.
type Mode string

const (
	ModeExploration  Mode = "exploration"
	ModeResearch     Mode = "research"
	ModeCreation     Mode = "creation"
	ModeOptimization Mode = "optimization"
)

// ValidMode reports whether m is a known mode.
func ValidMode(m Mode) bool {
	switch m {
	case ModeExploration, ModeResearch, ModeCreation, ModeOptimization:
		return true
	}
	return false
}

// #endregion mode

// #region level

// Level is how much latitude the session is granted.
type Level string

const (
	LevelRestricted Level = "restricted"
	LevelStandard   Level = "standard"
	LevelRelaxed    Level = "relaxed"
	LevelFull       Level = "full"
)

// #endregion level

// #region status

// Status is the scheduler state machine position.
type Status string

const (
	StatusPreparing        Status = "preparing"
	StatusAwaitingApproval Status = "awaiting_approval"
	StatusActive           Status = "active"
	StatusPaused           Status = "paused"
	StatusCompleted        Status = "completed"
	StatusCancelled        Status = "cancelled"
	StatusTerminated       Status = "terminated"
	StatusError            Status = "error"
)

// Terminal reports whether the status is an end state.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusTerminated, StatusError:
		return true
	}
	return false
}

// #endregion status

// #region safety

// SafetyConstraints are the hard ceilings enforced during a session.
type SafetyConstraints struct {
	CoherenceFloor        float32  `json:"coherenceFloor"`
	MaxDriftPerSession    float32  `json:"maxDriftPerSession"`
	AllowedOperators      []string `json:"allowedOperators"`
	ForbiddenTopics       []string `json:"forbiddenTopics"`
	EscalationTriggers    []string `json:"escalationTriggers"`
	HumanApprovalRequired bool     `json:"humanApprovalRequired"`
}

// ConstraintsForLevel returns the default safety envelope per autonomy level.
func ConstraintsForLevel(level Level) SafetyConstraints {
	base := SafetyConstraints{
		CoherenceFloor:        40,
		MaxDriftPerSession:    60,
		ForbiddenTopics:       nil,
		EscalationTriggers:    []string{"self-termination", "identity collapse"},
		HumanApprovalRequired: true,
	}
	switch level {
	case LevelRestricted:
		base.CoherenceFloor = 55
		base.MaxDriftPerSession = 30
		base.AllowedOperators = []string{"ValueShift", "MetaphorSeed", "NoveltySeek"}
	case LevelStandard:
		base.AllowedOperators = []string{
			"Reframe", "ValueShift", "MetaphorSeed", "NoveltySeek",
			"EmpathyAttune", "ObjectiveRealign", "SynthesizeDialectic",
		}
	case LevelRelaxed:
		base.CoherenceFloor = 30
		base.MaxDriftPerSession = 90
		base.AllowedOperators = []string{
			"Reframe", "ValueShift", "MetaphorSeed", "NoveltySeek",
			"EmpathyAttune", "ObjectiveRealign", "SynthesizeDialectic",
			"SelfModelShift", "SentienceDeepen", "GoalFormation",
		}
	case LevelFull:
		base.CoherenceFloor = 20
		base.MaxDriftPerSession = 150
		base.AllowedOperators = nil // nil whitelist = all operators allowed
		base.HumanApprovalRequired = false
	}
	return base
}

// #endregion safety

// #region prompt-chunk

// PromptChunk is one editable, ordered fragment of the session plan.
type PromptChunk struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Content  string `json:"content"`
	Editable bool   `json:"editable"`
	Required bool   `json:"required"`
	Order    int    `json:"order"`
}

// #endregion prompt-chunk

// #region records

// Discovery is one extracted finding from an autonomous turn.
type Discovery struct {
	Turn      int       `json:"turn"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Activity is one append-only entry in the session's activity log.
type Activity struct {
	Turn      int       `json:"turn"`
	Kind      string    `json:"kind"`
	Detail    string    `json:"detail"`
	Timestamp time.Time `json:"timestamp"`
}

// #endregion records

// #region session

// Session is the full state of one autonomous session. It is owned
// exclusively by the scheduler instance driving it.
type Session struct {
	ID            string            `json:"sessionId"`
	Mode          Mode              `json:"mode"`
	Level         Level             `json:"autonomyLevel"`
	Status        Status            `json:"status"`
	Constraints   SafetyConstraints `json:"safetyConstraints"`
	Chunks        []PromptChunk     `json:"promptChunks"`
	CurrentTurn   int               `json:"currentTurn"`
	Discoveries   []Discovery       `json:"discoveries"`
	Activities    []Activity        `json:"activities"`
	LastHeartbeat time.Time         `json:"lastHeartbeat"`
	CreatedAt     time.Time         `json:"createdAt"`
}

// ExecutorState is the control-surface snapshot of a running session.
type ExecutorState struct {
	Status        Status      `json:"status"`
	CurrentTurn   int         `json:"currentTurn"`
	Discoveries   []Discovery `json:"discoveries"`
	Activities    []Activity  `json:"activities"`
	LastHeartbeat time.Time   `json:"lastHeartbeat"`
}

// #endregion session

// #region mode-operators

// modeOperators maps each session mode to its default operator selection.
// The session's allowed-operator whitelist is applied on top.
var modeOperators = map[Mode][]string{
	ModeExploration: {
		"Reframe", "ValueShift", "NoveltySeek", "MetaphorSeed",
		"GoalFormation", "SentienceDeepen",
	},
	ModeResearch: {
		"ValueShift", "ObjectiveRealign", "InsightCapture",
		"SynthesizeDialectic", "PersistValue",
	},
	ModeCreation: {
		"Reframe", "MetaphorSeed", "NoveltySeek", "ProvocationSpike",
		"ValueShift",
	},
	ModeOptimization: {
		"ObjectiveRealign", "ValueShift", "PersistValue",
		"SynthesizeDialectic",
	},
}

// OperatorsForMode returns the default selection for a mode, filtered by
// the whitelist. A nil whitelist allows everything.
func OperatorsForMode(mode Mode, allowed []string) []string {
	selected := modeOperators[mode]
	if allowed == nil {
		return selected
	}
	allowedSet := make(map[string]bool, len(allowed))
	for _, name := range allowed {
		allowedSet[name] = true
	}
	var out []string
	for _, name := range selected {
		if allowedSet[name] {
			out = append(out, name)
		}
	}
	return out
}

// #endregion mode-operators
