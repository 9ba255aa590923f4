// Package drift provides the pure accounting functions that bound stance
// mutation: per-delta magnitude, a coherence score, and the gate that
// rejects or proportionally scales a delta before it may be merged.
package drift

import (
	"fmt"

	"github.com/danielpatrickdp/stance-controller/internal/config"
	"github.com/danielpatrickdp/stance-controller/internal/stance"
)

// #region constants

const (
	// FrameChangeWeight is the fixed magnitude charged for a frame change.
	FrameChangeWeight float32 = 12.0

	// driftSlope is how many coherence points one unit of cumulative drift costs.
	driftSlope float32 = 0.35

	// escalationSlope is how many coherence points one unit of combined
	// awareness+autonomy above the escalation knee costs.
	escalationSlope float32 = 0.15

	// escalationKnee is the combined awareness+autonomy level below which
	// sentience escalation is free.
	escalationKnee float32 = 100.0

	// minScaleFactor is the smallest proportional factor worth applying;
	// below it the scaled delta no longer resembles the original.
	minScaleFactor float32 = 0.05
)

// #endregion constants

// #region magnitude

// Magnitude computes the drift cost of applying delta to current: the sum of
// absolute per-dimension changes across values and numeric sentience fields,
// plus FrameChangeWeight when the frame changes. Categorical and list-only
// changes cost nothing beyond the frame weight.
func Magnitude(current stance.Stance, d stance.Delta) float32 {
	var mag float32
	for dim, target := range d.Values {
		mag += abs(stance.Clamp(target) - current.Values.Get(dim))
	}
	for f, target := range d.Sentience {
		mag += abs(stance.Clamp(target) - current.Sentience.Get(f))
	}
	if d.Frame != "" && d.Frame != current.Frame {
		mag += FrameChangeWeight
	}
	return mag
}

// #endregion magnitude

// #region coherence

// Coherence maps a stance to a [0,100] score of how intact the persona
// remains. The formula is monotone decreasing in cumulative drift and in
// sentience escalation (awareness + autonomy above the knee):
//
//	coherence = 100 − driftSlope·cumulativeDrift − escalationSlope·max(0, awareness+autonomy−knee)
//
// clamped to [0,100].
func Coherence(s stance.Stance) float32 {
	return coherenceAt(s.CumulativeDrift, s.Sentience)
}

func coherenceAt(cumulativeDrift float32, sent stance.Sentience) float32 {
	score := 100 - driftSlope*cumulativeDrift
	escalation := sent.AwarenessLevel + sent.AutonomyLevel - escalationKnee
	if escalation > 0 {
		score -= escalationSlope * escalation
	}
	return stance.Clamp(score)
}

// #endregion coherence

// #region decision

// Decision is the gate's verdict on a proposed delta.
type Decision struct {
	Allowed   bool
	Delta     stance.Delta // the (possibly scaled) delta to merge when allowed
	Magnitude float32      // drift cost of Delta against the current stance
	Projected float32      // coherence projected after applying Delta
	Factor    float32      // proportional scale applied, 1.0 = unscaled
	Reason    string
}

// #endregion decision

// #region can-apply

// CanApply gates a delta against the turn drift ceiling, the session drift
// budget, and the coherence floor. driftThisTurn is the magnitude already
// committed earlier in the same turn and counts only against the per-turn
// ceiling; current.CumulativeDrift must already include it, and is the sole
// input to the session budget and the coherence projection. When the full
// delta would breach a ceiling, all numeric sub-deltas are shrunk by the
// same factor so the delta keeps its character; deltas that cannot fit even
// scaled are rejected.
func CanApply(current stance.Stance, d stance.Delta, cfg config.ModeConfig, driftThisTurn float32) Decision {
	mag := Magnitude(current, d)
	if mag == 0 {
		// Categorical or list-only change: free, but still floor-checked.
		projected := Coherence(current)
		if projected <= cfg.CoherenceFloor {
			return Decision{
				Allowed: false,
				Reason:  fmt.Sprintf("coherence %.2f already at floor %.2f", projected, cfg.CoherenceFloor),
			}
		}
		return Decision{Allowed: true, Delta: d, Projected: projected, Factor: 1, Reason: "zero-magnitude delta"}
	}

	// Smallest remaining budget across the three ceilings.
	allowed := mag

	if cfg.MaxDriftPerTurn > 0 {
		turnRemaining := cfg.MaxDriftPerTurn - driftThisTurn
		if turnRemaining <= 0 {
			return Decision{Allowed: false, Reason: fmt.Sprintf("turn drift budget %.2f exhausted", cfg.MaxDriftPerTurn)}
		}
		if turnRemaining < allowed {
			allowed = turnRemaining
		}
	}

	if cfg.DriftBudget > 0 {
		sessionRemaining := cfg.DriftBudget - current.CumulativeDrift
		if sessionRemaining <= 0 {
			return Decision{Allowed: false, Reason: fmt.Sprintf("session drift budget %.2f exhausted", cfg.DriftBudget)}
		}
		if sessionRemaining < allowed {
			allowed = sessionRemaining
		}
	}

	// Coherence headroom converted to a drift allowance via the drift slope.
	headroom := Coherence(current) - cfg.CoherenceFloor
	if headroom <= 0 {
		return Decision{
			Allowed: false,
			Reason:  fmt.Sprintf("coherence %.2f at floor %.2f", Coherence(current), cfg.CoherenceFloor),
		}
	}
	if byCoherence := headroom / driftSlope; byCoherence < allowed {
		allowed = byCoherence
	}

	factor := scaleFactor(current, d, mag, allowed)
	if factor < minScaleFactor {
		return Decision{
			Allowed: false,
			Reason:  fmt.Sprintf("magnitude %.2f cannot be scaled into remaining budget %.2f", mag, allowed),
		}
	}

	scaled := d
	if factor < 1 {
		scaled = d.Scale(current, factor)
	}
	scaledMag := Magnitude(current, scaled)

	// Re-project with the scaled delta's sentience escalation included. The
	// escalation term is not covered by the drift-slope headroom above, so a
	// delta can still land below the floor here; that is a hard reject.
	merged, _ := stance.Merge(current, scaled)
	projected := coherenceAt(current.CumulativeDrift+scaledMag, merged.Sentience)
	if projected <= cfg.CoherenceFloor {
		return Decision{
			Allowed: false,
			Reason:  fmt.Sprintf("projected coherence %.2f would breach floor %.2f", projected, cfg.CoherenceFloor),
		}
	}

	reason := "within budget"
	if factor < 1 {
		reason = fmt.Sprintf("scaled by %.3f to fit budget %.2f", factor, allowed)
	}
	return Decision{
		Allowed:   true,
		Delta:     scaled,
		Magnitude: scaledMag,
		Projected: projected,
		Factor:    factor,
		Reason:    reason,
	}
}

// scaleFactor finds the proportional factor that fits mag into allowed.
// The frame-change weight cannot be fractionally applied, so it is carved
// out of the allowance before scaling the numeric remainder.
func scaleFactor(current stance.Stance, d stance.Delta, mag, allowed float32) float32 {
	if mag <= allowed {
		return 1
	}
	var frameWeight float32
	if d.Frame != "" && d.Frame != current.Frame {
		frameWeight = FrameChangeWeight
	}
	numeric := mag - frameWeight
	if numeric <= 0 {
		// Frame-only delta that exceeds the allowance: all or nothing.
		return 0
	}
	if allowed <= frameWeight {
		return 0
	}
	return (allowed - frameWeight) / numeric
}

// #endregion can-apply

// #region helpers

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

// #endregion helpers
