package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/danielpatrickdp/stance-controller/internal/config"
	"github.com/danielpatrickdp/stance-controller/internal/stance"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description     string                  `json:"description"`
	StartStance     stance.Stance           `json:"start_stance"`
	Config          FixtureConfig           `json:"config"`
	Interactions    []FixtureInteraction    `json:"interactions"`
	ExpectedResults []FixtureExpectedResult `json:"expected_results"`
}

// FixtureConfig mirrors replay.Config with JSON tags.
type FixtureConfig struct {
	Intensity       float32 `json:"intensity"`
	CoherenceFloor  float32 `json:"coherence_floor"`
	SentienceLevel  float32 `json:"sentience_level"`
	MaxDriftPerTurn float32 `json:"max_drift_per_turn"`
	DriftBudget     float32 `json:"drift_budget"`
	Seed            int64   `json:"seed"`
}

// FixtureInteraction mirrors replay.Interaction with JSON tags.
type FixtureInteraction struct {
	TurnID    string   `json:"turn_id"`
	Message   string   `json:"message"`
	Operators []string `json:"operators"`
	Triggers  []string `json:"triggers"`
}

// FixtureExpectedResult captures the expected action per turn.
type FixtureExpectedResult struct {
	TurnID string `json:"turn_id"`
	Action string `json:"action"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// ToConfig converts a FixtureConfig to a replay Config.
func (fc *FixtureConfig) ToConfig() Config {
	return Config{
		Mode: config.ModeConfig{
			Intensity:       fc.Intensity,
			CoherenceFloor:  fc.CoherenceFloor,
			SentienceLevel:  fc.SentienceLevel,
			MaxDriftPerTurn: fc.MaxDriftPerTurn,
			DriftBudget:     fc.DriftBudget,
		},
		Seed: fc.Seed,
	}
}

// ToInteraction converts a FixtureInteraction to a domain Interaction.
func (fi *FixtureInteraction) ToInteraction() Interaction {
	return Interaction{
		TurnID:    fi.TurnID,
		Message:   fi.Message,
		Operators: fi.Operators,
		Triggers:  fi.Triggers,
	}
}

// #endregion fixture-loader
