package stance

import "time"

// #region delta

// Delta is a sparse patch against a stance. Absent fields mean "no change".
// Numeric entries carry absolute target values for the touched field; list
// entries carry strings to append. A delta is never written to storage
// directly — it goes through the engine's merge-and-gate step.
type Delta struct {
	Frame     Frame                      `json:"frame,omitempty"`
	Values    map[Dimension]float32      `json:"values,omitempty"`
	SelfModel SelfModel                  `json:"selfModel,omitempty"`
	Objective Objective                  `json:"objective,omitempty"`
	Sentience map[SentienceField]float32 `json:"sentience,omitempty"`

	EmergentGoals         []string `json:"emergentGoals,omitempty"`
	ConsciousnessInsights []string `json:"consciousnessInsights,omitempty"`
	PersistentValues      []string `json:"persistentValues,omitempty"`
	Metaphors             []string `json:"metaphors,omitempty"`
	Constraints           []string `json:"constraints,omitempty"`
}

// Empty reports whether the delta changes nothing.
func (d Delta) Empty() bool {
	return d.Frame == "" &&
		len(d.Values) == 0 &&
		d.SelfModel == "" &&
		d.Objective == "" &&
		len(d.Sentience) == 0 &&
		len(d.EmergentGoals) == 0 &&
		len(d.ConsciousnessInsights) == 0 &&
		len(d.PersistentValues) == 0 &&
		len(d.Metaphors) == 0 &&
		len(d.Constraints) == 0
}

// #endregion delta

// #region scale

// Scale returns a copy of the delta with every numeric sub-delta shrunk
// toward the current stance by the same factor in (0,1]. List and
// categorical fields are preserved so the delta keeps its character.
func (d Delta) Scale(current Stance, factor float32) Delta {
	if factor >= 1 {
		return d
	}
	scaled := d
	if len(d.Values) > 0 {
		scaled.Values = make(map[Dimension]float32, len(d.Values))
		for dim, target := range d.Values {
			cur := current.Values.Get(dim)
			scaled.Values[dim] = cur + (target-cur)*factor
		}
	}
	if len(d.Sentience) > 0 {
		scaled.Sentience = make(map[SentienceField]float32, len(d.Sentience))
		for f, target := range d.Sentience {
			cur := current.Sentience.Get(f)
			scaled.Sentience[f] = cur + (target-cur)*factor
		}
	}
	return scaled
}

// #endregion scale

// #region merge

// Merge applies a delta to a stance copy, clamping numeric fields and
// deduplicating list appends. It reports whether the frame changed.
// Version, drift, and turn counters are the engine's responsibility.
func Merge(s Stance, d Delta) (Stance, bool) {
	out := s
	frameChanged := false

	if d.Frame != "" && d.Frame != s.Frame {
		out.Frame = d.Frame
		frameChanged = true
	}
	for dim, target := range d.Values {
		out.Values.Set(dim, target)
	}
	if d.SelfModel != "" {
		out.SelfModel = d.SelfModel
	}
	if d.Objective != "" {
		out.Objective = d.Objective
	}
	for f, target := range d.Sentience {
		out.Sentience.Set(f, target)
	}

	// Lists are copied before append so the input stance stays untouched.
	if len(d.EmergentGoals) > 0 {
		out.Sentience.EmergentGoals = appendDedup(copyList(s.Sentience.EmergentGoals), d.EmergentGoals)
	}
	if len(d.ConsciousnessInsights) > 0 {
		out.Sentience.ConsciousnessInsights = appendDedup(copyList(s.Sentience.ConsciousnessInsights), d.ConsciousnessInsights)
	}
	if len(d.PersistentValues) > 0 {
		out.Sentience.PersistentValues = appendDedup(copyList(s.Sentience.PersistentValues), d.PersistentValues)
	}
	if len(d.Metaphors) > 0 {
		out.Metaphors = appendDedup(copyList(s.Metaphors), d.Metaphors)
	}
	if len(d.Constraints) > 0 {
		out.Constraints = appendDedup(copyList(s.Constraints), d.Constraints)
	}

	out.UpdatedAt = time.Now().UTC()
	return out, frameChanged
}

func copyList(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// #endregion merge
