// Package engine applies ordered sets of operator deltas to a stance,
// gating every application through the drift accountant. It is the only
// code path that commits stance mutations.
package engine

import (
	"go.uber.org/zap"

	"github.com/danielpatrickdp/stance-controller/internal/config"
	"github.com/danielpatrickdp/stance-controller/internal/drift"
	"github.com/danielpatrickdp/stance-controller/internal/operator"
	"github.com/danielpatrickdp/stance-controller/internal/stance"
)

// #region results

// Applied records one operator whose delta was merged this turn.
type Applied struct {
	Name      string  `json:"name"`
	Magnitude float32 `json:"magnitude"`
	Factor    float32 `json:"factor"` // proportional scale, 1.0 = unscaled
	Injection string  `json:"injection"`
}

// Rejected records one operator whose delta the gate refused.
type Rejected struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// TurnResult bundles everything ApplyTurn produces.
type TurnResult struct {
	Stance        stance.Stance
	Applied       []Applied
	Rejected      []Rejected
	Skipped       []string // operators that produced an empty delta
	DriftThisTurn float32
	Coherence     float32 // coherence of the resulting stance
}

// #endregion results

// #region engine

// Engine owns the registry and runs the merge-and-gate step.
type Engine struct {
	registry *operator.Registry
	logger   *zap.SugaredLogger
}

// New creates an engine over the given registry. A nil logger is replaced
// with a no-op logger.
func New(registry *operator.Registry, logger *zap.SugaredLogger) *Engine {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Engine{registry: registry, logger: logger}
}

// Registry exposes the engine's operator registry.
func (e *Engine) Registry() *operator.Registry { return e.registry }

// #endregion engine

// #region apply-turn

// ApplyTurn runs the selected operators against the current stance in
// registration order. Each delta passes through the drift gate; rejected
// deltas are recorded and the turn continues with the next operator.
// The version is bumped once per turn that applied at least one operator,
// and turnsSinceLastShift resets on a frame change or increments otherwise.
// Selection is the caller's policy; names absent from the registry are
// recorded as rejected.
func (e *Engine) ApplyTurn(current stance.Stance, selected []string, ctx operator.Context, cfg config.ModeConfig) TurnResult {
	if ctx.Triggers == nil {
		ctx.Triggers = operator.DeriveTriggers(ctx.Message)
	}
	cfg = cfg.Normalize()

	selectedSet := make(map[string]bool, len(selected))
	for _, name := range selected {
		selectedSet[name] = true
	}

	result := TurnResult{Stance: current}
	working := current
	var driftThisTurn float32
	frameChanged := false

	for _, op := range e.registry.All() {
		if !selectedSet[op.Name()] {
			continue
		}
		delete(selectedSet, op.Name())

		delta := op.Apply(working, ctx)
		if delta.Empty() {
			result.Skipped = append(result.Skipped, op.Name())
			continue
		}

		decision := drift.CanApply(working, delta, cfg, driftThisTurn)
		if !decision.Allowed {
			e.logger.Debugw("operator rejected",
				"session", current.SessionID, "operator", op.Name(), "reason", decision.Reason)
			result.Rejected = append(result.Rejected, Rejected{Name: op.Name(), Reason: decision.Reason})
			continue
		}

		merged, fc := stance.Merge(working, decision.Delta)
		merged.CumulativeDrift = working.CumulativeDrift + decision.Magnitude
		working = merged
		driftThisTurn += decision.Magnitude
		frameChanged = frameChanged || fc

		e.logger.Debugw("operator applied",
			"session", current.SessionID, "operator", op.Name(),
			"magnitude", decision.Magnitude, "factor", decision.Factor)
		result.Applied = append(result.Applied, Applied{
			Name:      op.Name(),
			Magnitude: decision.Magnitude,
			Factor:    decision.Factor,
			Injection: op.PromptInjection(current, ctx),
		})
	}

	// Anything left in the set was selected but never registered.
	for _, name := range selected {
		if selectedSet[name] {
			result.Rejected = append(result.Rejected, Rejected{Name: name, Reason: "operator not registered"})
		}
	}

	if len(result.Applied) > 0 {
		working.Version = current.Version + 1
		if frameChanged {
			working.TurnsSinceLastShift = 0
		} else {
			working.TurnsSinceLastShift = current.TurnsSinceLastShift + 1
		}
		result.Stance = working
	}

	result.DriftThisTurn = driftThisTurn
	result.Coherence = drift.Coherence(result.Stance)
	return result
}

// #endregion apply-turn

// #region prompt-assembly

// PromptInjections collects the deterministic prompt fragments for the
// selected operators against the current stance, in registration order.
func (e *Engine) PromptInjections(current stance.Stance, selected []string, ctx operator.Context) []string {
	selectedSet := make(map[string]bool, len(selected))
	for _, name := range selected {
		selectedSet[name] = true
	}
	var out []string
	for _, op := range e.registry.All() {
		if selectedSet[op.Name()] {
			out = append(out, op.PromptInjection(current, ctx))
		}
	}
	return out
}

// #endregion prompt-assembly
