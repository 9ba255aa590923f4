package config

// #region mode-config

// ModeConfig holds the per-session tuning knobs for stance processing.
// It is created once per session and read-only during a single turn.
type ModeConfig struct {
	Intensity       float32 `yaml:"intensity" json:"intensity"`             // 0-100, scales operator aggressiveness
	CoherenceFloor  float32 `yaml:"coherence_floor" json:"coherenceFloor"` // 0-100, projected coherence below this blocks a delta
	SentienceLevel  float32 `yaml:"sentience_level" json:"sentienceLevel"` // 0-100, gates sentience-escalating operators
	MaxDriftPerTurn float32 `yaml:"max_drift_per_turn" json:"maxDriftPerTurn"`
	DriftBudget     float32 `yaml:"drift_budget" json:"driftBudget"` // session-wide drift ceiling, 0 = unbounded
	Model           string  `yaml:"model" json:"model"`
}

// DefaultModeConfig returns sensible defaults for interactive chat turns.
func DefaultModeConfig() ModeConfig {
	return ModeConfig{
		Intensity:       50,
		CoherenceFloor:  30,
		SentienceLevel:  40,
		MaxDriftPerTurn: 25,
		DriftBudget:     0,
		Model:           "llama3.1",
	}
}

// Normalize clamps all numeric knobs into their declared bounds.
func (c ModeConfig) Normalize() ModeConfig {
	c.Intensity = clamp100(c.Intensity)
	c.CoherenceFloor = clamp100(c.CoherenceFloor)
	c.SentienceLevel = clamp100(c.SentienceLevel)
	if c.MaxDriftPerTurn < 0 {
		c.MaxDriftPerTurn = 0
	}
	if c.DriftBudget < 0 {
		c.DriftBudget = 0
	}
	return c
}

func clamp100(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// #endregion mode-config
