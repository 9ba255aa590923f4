// Package events carries the outbound per-session event stream consumed by
// an external pub/sub transport. Payloads are flat JSON-tagged structs so
// the boundary stays schema-checkable without importing domain packages.
package events

import "time"

// #region event-types

// Type tags the kind of event on the session stream.
type Type string

const (
	TypeIdleMode        Type = "idle_mode"
	TypePromptReady     Type = "prompt_ready"
	TypeStatusChange    Type = "status_change"
	TypeTurnCompleted   Type = "turn_completed"
	TypeDiscovery       Type = "discovery"
	TypeHeartbeat       Type = "heartbeat"
	TypeSessionComplete Type = "session_complete"
	TypeError           Type = "error"
)

// #endregion event-types

// #region payloads

// Chunk mirrors a prompt chunk at the wire boundary.
type Chunk struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Content  string `json:"content"`
	Editable bool   `json:"editable"`
	Required bool   `json:"required"`
	Order    int    `json:"order"`
}

// IdleStatus mirrors the idle detector's state at the wire boundary.
type IdleStatus struct {
	IsIdle       bool          `json:"isIdle"`
	IdleDuration time.Duration `json:"idleDuration"`
	LastActivity time.Time     `json:"lastActivity"`
	Threshold    time.Duration `json:"threshold"`
	Status       string        `json:"status"` // active | idle | autonomous
}

// Event is one tagged entry on a session's ordered stream. Only the fields
// relevant to its type are populated.
type Event struct {
	Type      Type      `json:"type"`
	SessionID string    `json:"sessionId"`
	Timestamp time.Time `json:"timestamp"`

	Status    string      `json:"status,omitempty"`
	Turn      int         `json:"turn,omitempty"`
	Response  string      `json:"response,omitempty"`
	Chunks    []Chunk     `json:"chunks,omitempty"`
	Discovery string      `json:"discovery,omitempty"`
	Error     string      `json:"error,omitempty"`
	Idle      *IdleStatus `json:"idle,omitempty"`
}

// #endregion payloads
