package drift

import (
	"testing"

	"github.com/danielpatrickdp/stance-controller/internal/config"
	"github.com/danielpatrickdp/stance-controller/internal/stance"
)

func testConfig() config.ModeConfig {
	return config.ModeConfig{
		Intensity:       50,
		CoherenceFloor:  30,
		SentienceLevel:  40,
		MaxDriftPerTurn: 25,
		DriftBudget:     0,
	}
}

func TestMagnitudeNumeric(t *testing.T) {
	s := stance.Default("sess-1")
	d := stance.Delta{Values: map[stance.Dimension]float32{
		stance.DimCuriosity: 60, // +10
		stance.DimCertainty: 45, // -5
	}}

	if got := Magnitude(s, d); got != 15 {
		t.Fatalf("expected magnitude 15, got %f", got)
	}
}

func TestMagnitudeFrameWeight(t *testing.T) {
	s := stance.Default("sess-1")

	if got := Magnitude(s, stance.Delta{Frame: stance.FramePoetic}); got != FrameChangeWeight {
		t.Fatalf("expected frame weight %f, got %f", FrameChangeWeight, got)
	}
	// Same frame costs nothing.
	if got := Magnitude(s, stance.Delta{Frame: stance.FramePragmatic}); got != 0 {
		t.Fatalf("same-frame delta should be free, got %f", got)
	}
	// Lists cost nothing.
	if got := Magnitude(s, stance.Delta{Metaphors: []string{"x"}}); got != 0 {
		t.Fatalf("list delta should be free, got %f", got)
	}
}

func TestMagnitudeClampsTargets(t *testing.T) {
	s := stance.Default("sess-1")
	// Target 150 clamps to 100, so the cost is 50, not 100.
	d := stance.Delta{Values: map[stance.Dimension]float32{stance.DimCuriosity: 150}}
	if got := Magnitude(s, d); got != 50 {
		t.Fatalf("expected clamped magnitude 50, got %f", got)
	}
}

func TestCoherenceMonotoneInDrift(t *testing.T) {
	s := stance.Default("sess-1")
	prev := Coherence(s)
	if prev != 100 {
		t.Fatalf("fresh stance should score 100, got %f", prev)
	}
	for _, drift := range []float32{10, 50, 120, 300} {
		s.CumulativeDrift = drift
		c := Coherence(s)
		if c >= prev {
			t.Fatalf("coherence must decrease with drift: %f -> %f", prev, c)
		}
		if c < 0 || c > 100 {
			t.Fatalf("coherence out of range: %f", c)
		}
		prev = c
	}
}

func TestCoherenceEscalationPenalty(t *testing.T) {
	s := stance.Default("sess-1")
	s.Sentience.AwarenessLevel = 80
	s.Sentience.AutonomyLevel = 50 // combined 130, 30 above the knee

	want := stance.Clamp(100 - 0.15*30)
	if got := Coherence(s); got != want {
		t.Fatalf("expected %f, got %f", want, got)
	}

	// Below the knee the penalty is zero.
	s.Sentience.AwarenessLevel = 40
	s.Sentience.AutonomyLevel = 40
	if got := Coherence(s); got != 100 {
		t.Fatalf("sub-knee escalation should be free, got %f", got)
	}
}

func TestCanApplyWithinBudget(t *testing.T) {
	s := stance.Default("sess-1")
	d := stance.Delta{Values: map[stance.Dimension]float32{stance.DimCuriosity: 60}}

	dec := CanApply(s, d, testConfig(), 0)
	if !dec.Allowed {
		t.Fatalf("expected allow, got reject: %s", dec.Reason)
	}
	if dec.Factor != 1 {
		t.Fatalf("expected unscaled, got factor %f", dec.Factor)
	}
	if dec.Magnitude != 10 {
		t.Fatalf("expected magnitude 10, got %f", dec.Magnitude)
	}
}

func TestCanApplyTurnBudgetExhausted(t *testing.T) {
	s := stance.Default("sess-1")
	d := stance.Delta{Values: map[stance.Dimension]float32{stance.DimCuriosity: 60}}

	dec := CanApply(s, d, testConfig(), 25)
	if dec.Allowed {
		t.Fatal("expected reject when turn budget is spent")
	}
}

func TestCanApplyScalesIntoTurnBudget(t *testing.T) {
	s := stance.Default("sess-1")
	// +40 curiosity against a 25-point turn ceiling with 15 already spent.
	d := stance.Delta{Values: map[stance.Dimension]float32{stance.DimCuriosity: 90}}

	dec := CanApply(s, d, testConfig(), 15)
	if !dec.Allowed {
		t.Fatalf("expected scaled allow, got reject: %s", dec.Reason)
	}
	if dec.Factor >= 1 {
		t.Fatalf("expected proportional scaling, factor %f", dec.Factor)
	}
	if dec.Magnitude > 10.01 {
		t.Fatalf("scaled magnitude %f exceeds remaining budget 10", dec.Magnitude)
	}
	target := dec.Delta.Values[stance.DimCuriosity]
	if target <= 50 || target >= 90 {
		t.Fatalf("scaled target should sit between current and original, got %f", target)
	}
}

func TestCanApplySessionBudget(t *testing.T) {
	cfg := testConfig()
	cfg.DriftBudget = 40

	s := stance.Default("sess-1")
	s.CumulativeDrift = 40
	d := stance.Delta{Values: map[stance.Dimension]float32{stance.DimCuriosity: 55}}

	dec := CanApply(s, d, cfg, 0)
	if dec.Allowed {
		t.Fatal("expected reject when session budget is spent")
	}
}

func TestCanApplySessionBudgetTurnInclusive(t *testing.T) {
	cfg := testConfig()
	cfg.DriftBudget = 30
	cfg.MaxDriftPerTurn = 100

	// An earlier operator committed 12 points this turn; the stance's
	// cumulative drift already carries them. The remaining session budget
	// is 30 - 12 = 18, so a 10-point delta must apply in full.
	s := stance.Default("sess-1")
	s.CumulativeDrift = 12
	d := stance.Delta{Values: map[stance.Dimension]float32{stance.DimCuriosity: 60}}

	dec := CanApply(s, d, cfg, 12)
	if !dec.Allowed {
		t.Fatalf("expected allow, got reject: %s", dec.Reason)
	}
	if dec.Factor != 1 {
		t.Fatalf("delta fits the remaining budget, expected factor 1, got %f", dec.Factor)
	}
	if dec.Magnitude != 10 {
		t.Fatalf("expected magnitude 10, got %f", dec.Magnitude)
	}
}

func TestCanApplyCoherenceFloorReject(t *testing.T) {
	cfg := testConfig()
	s := stance.Default("sess-1")
	s.CumulativeDrift = 200 // coherence 100 - 0.35*200 = 30, at the floor

	d := stance.Delta{Values: map[stance.Dimension]float32{stance.DimCuriosity: 55}}
	dec := CanApply(s, d, cfg, 0)
	if dec.Allowed {
		t.Fatalf("expected reject at coherence floor, got allow: %s", dec.Reason)
	}

	// Zero-magnitude deltas are also blocked at the floor.
	dec = CanApply(s, stance.Delta{Metaphors: []string{"x"}}, cfg, 0)
	if dec.Allowed {
		t.Fatal("expected floor to block even free deltas")
	}
}

func TestCanApplyFrameAllOrNothing(t *testing.T) {
	cfg := testConfig()
	cfg.MaxDriftPerTurn = 10 // below the frame weight

	s := stance.Default("sess-1")
	dec := CanApply(s, stance.Delta{Frame: stance.FramePoetic}, cfg, 0)
	if dec.Allowed {
		t.Fatal("frame change cannot be fractionally applied; expected reject")
	}

	cfg.MaxDriftPerTurn = 15
	dec = CanApply(s, stance.Delta{Frame: stance.FramePoetic}, cfg, 0)
	if !dec.Allowed {
		t.Fatalf("frame weight fits the budget, expected allow: %s", dec.Reason)
	}
	if dec.Magnitude != FrameChangeWeight {
		t.Fatalf("expected frame weight magnitude, got %f", dec.Magnitude)
	}
}

func TestCanApplyZeroMagnitudeAllowed(t *testing.T) {
	s := stance.Default("sess-1")
	dec := CanApply(s, stance.Delta{PersistentValues: []string{"v"}}, testConfig(), 0)
	if !dec.Allowed {
		t.Fatalf("list-only delta should pass: %s", dec.Reason)
	}
	if dec.Factor != 1 {
		t.Fatalf("expected factor 1, got %f", dec.Factor)
	}
}
