// Package replay re-runs recorded turns through the stance engine entirely
// in memory, for regression checks and offline tuning of drift budgets.
package replay

import (
	"math/rand"

	"github.com/danielpatrickdp/stance-controller/internal/config"
	"github.com/danielpatrickdp/stance-controller/internal/engine"
	"github.com/danielpatrickdp/stance-controller/internal/operator"
	"github.com/danielpatrickdp/stance-controller/internal/stance"
)

// #region types

// Interaction represents a single recorded turn for replay.
type Interaction struct {
	TurnID    string
	Message   string
	Operators []string
	Triggers  []string
}

// Config bundles the engine settings for a replay run. Seed feeds the
// injected random source so probabilistic operators replay identically.
type Config struct {
	Mode config.ModeConfig
	Seed int64
}

// DefaultConfig returns a replay configuration with standard mode settings.
func DefaultConfig() Config {
	return Config{Mode: config.DefaultModeConfig(), Seed: 1}
}

// Result captures the outcome of replaying one interaction.
type Result struct {
	TurnID    string
	Action    string // "commit" | "reject" | "no_op"
	Applied   []string
	Rejected  []string
	Version   int
	Frame     stance.Frame
	Drift     float32
	Coherence float32
}

// Summary provides aggregate stats from a replay run.
type Summary struct {
	TotalTurns int
	Commits    int
	Rejects    int
	NoOps      int
	FinalState stance.Stance
}

// #endregion types

// #region replay

// Replay iterates through interactions, applying each through the engine's
// merge-and-gate step, and returns per-turn results plus a summary.
func Replay(start stance.Stance, interactions []Interaction, cfg Config) ([]Result, Summary) {
	eng := engine.New(operator.NewRegistry(), nil)
	rng := rand.New(rand.NewSource(cfg.Seed))
	current := start

	results := make([]Result, 0, len(interactions))
	summary := Summary{TotalTurns: len(interactions)}

	for _, inter := range interactions {
		ctx := operator.Context{
			Message:  inter.Message,
			Triggers: inter.Triggers,
			Config:   cfg.Mode,
			Rand:     rng,
		}
		turn := eng.ApplyTurn(current, inter.Operators, ctx, cfg.Mode)
		current = turn.Stance

		res := Result{
			TurnID:    inter.TurnID,
			Version:   current.Version,
			Frame:     current.Frame,
			Drift:     current.CumulativeDrift,
			Coherence: turn.Coherence,
		}
		for _, a := range turn.Applied {
			res.Applied = append(res.Applied, a.Name)
		}
		for _, r := range turn.Rejected {
			res.Rejected = append(res.Rejected, r.Name)
		}
		switch {
		case len(turn.Applied) > 0:
			res.Action = "commit"
			summary.Commits++
		case len(turn.Rejected) > 0:
			res.Action = "reject"
			summary.Rejects++
		default:
			res.Action = "no_op"
			summary.NoOps++
		}
		results = append(results, res)
	}

	summary.FinalState = current
	return results, summary
}

// #endregion replay
