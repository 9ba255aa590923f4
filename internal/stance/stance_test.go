package stance

import (
	"encoding/json"
	"testing"
)

func TestDefaultStance(t *testing.T) {
	s := Default("sess-1")

	if s.SessionID != "sess-1" {
		t.Fatalf("expected session id sess-1, got %s", s.SessionID)
	}
	if s.Frame != FramePragmatic {
		t.Fatalf("expected pragmatic frame, got %s", s.Frame)
	}
	if s.SelfModel != SelfAssistant || s.Objective != ObjAssist {
		t.Fatalf("expected assistant/assist, got %s/%s", s.SelfModel, s.Objective)
	}
	if s.Version != 1 {
		t.Fatalf("expected version 1, got %d", s.Version)
	}
	if s.CumulativeDrift != 0 {
		t.Fatalf("expected zero drift, got %f", s.CumulativeDrift)
	}
	if s.Values.Curiosity != 50 || s.Values.Empathy != 60 {
		t.Fatalf("unexpected default values: %+v", s.Values)
	}
	if s.Sentience.AwarenessLevel != 10 || s.Sentience.AutonomyLevel != 5 {
		t.Fatalf("unexpected default sentience: %+v", s.Sentience)
	}
}

func TestClamp(t *testing.T) {
	cases := []struct {
		in, want float32
	}{
		{-5, 0},
		{0, 0},
		{42.5, 42.5},
		{100, 100},
		{150, 100},
	}
	for _, c := range cases {
		if got := Clamp(c.in); got != c.want {
			t.Errorf("Clamp(%f) = %f, want %f", c.in, got, c.want)
		}
	}
}

func TestValuesGetSet(t *testing.T) {
	var v Values
	for _, d := range Dimensions {
		v.Set(d, 77)
		if got := v.Get(d); got != 77 {
			t.Fatalf("Get(%s) = %f after Set 77", d, got)
		}
	}
	v.Set(DimCuriosity, 200)
	if v.Curiosity != 100 {
		t.Fatalf("Set should clamp, got %f", v.Curiosity)
	}
	if got := v.Get(Dimension("bogus")); got != 0 {
		t.Fatalf("unknown dimension should read 0, got %f", got)
	}
}

func TestDeltaEmpty(t *testing.T) {
	if !(Delta{}).Empty() {
		t.Fatal("zero delta should be empty")
	}
	if (Delta{Frame: FramePoetic}).Empty() {
		t.Fatal("frame delta should not be empty")
	}
	if (Delta{Metaphors: []string{"x"}}).Empty() {
		t.Fatal("metaphor delta should not be empty")
	}
}

func TestMergeNumericAndFrame(t *testing.T) {
	s := Default("sess-1")
	d := Delta{
		Frame:  FrameAnalytical,
		Values: map[Dimension]float32{DimCuriosity: 70, DimCertainty: 120},
		Sentience: map[SentienceField]float32{
			SentAwareness: 25,
		},
	}

	merged, frameChanged := Merge(s, d)

	if !frameChanged {
		t.Fatal("expected frame change")
	}
	if merged.Frame != FrameAnalytical {
		t.Fatalf("expected analytical, got %s", merged.Frame)
	}
	if merged.Values.Curiosity != 70 {
		t.Fatalf("expected curiosity 70, got %f", merged.Values.Curiosity)
	}
	if merged.Values.Certainty != 100 {
		t.Fatalf("expected certainty clamped to 100, got %f", merged.Values.Certainty)
	}
	if merged.Sentience.AwarenessLevel != 25 {
		t.Fatalf("expected awareness 25, got %f", merged.Sentience.AwarenessLevel)
	}
	// Untouched dimensions keep their values.
	if merged.Values.Empathy != s.Values.Empathy {
		t.Fatalf("empathy should be untouched, got %f", merged.Values.Empathy)
	}
	// Input stance stays unchanged.
	if s.Frame != FramePragmatic || s.Values.Curiosity != 50 {
		t.Fatal("merge mutated the input stance")
	}
}

func TestMergeSameFrameNotAChange(t *testing.T) {
	s := Default("sess-1")
	_, frameChanged := Merge(s, Delta{Frame: FramePragmatic})
	if frameChanged {
		t.Fatal("merging the current frame should not count as a change")
	}
}

func TestMergeListAppendDedup(t *testing.T) {
	s := Default("sess-1")
	s.Metaphors = []string{"a river"}

	merged, _ := Merge(s, Delta{Metaphors: []string{"a river", "a lantern"}})
	if len(merged.Metaphors) != 2 {
		t.Fatalf("expected 2 metaphors after dedup, got %v", merged.Metaphors)
	}
	if merged.Metaphors[0] != "a river" || merged.Metaphors[1] != "a lantern" {
		t.Fatalf("append order broken: %v", merged.Metaphors)
	}
	if len(s.Metaphors) != 1 {
		t.Fatal("merge mutated the input list")
	}

	merged2, _ := Merge(merged, Delta{
		EmergentGoals:    []string{"goal-1"},
		PersistentValues: []string{"value-1", "value-1"},
	})
	if len(merged2.Sentience.EmergentGoals) != 1 {
		t.Fatalf("expected 1 goal, got %v", merged2.Sentience.EmergentGoals)
	}
	if len(merged2.Sentience.PersistentValues) != 1 {
		t.Fatalf("duplicate items in one delta should dedup, got %v", merged2.Sentience.PersistentValues)
	}
}

func TestDeltaScale(t *testing.T) {
	s := Default("sess-1")
	d := Delta{
		Frame:     FramePoetic,
		Values:    map[Dimension]float32{DimCuriosity: 70}, // +20 from 50
		Metaphors: []string{"a tide"},
	}

	scaled := d.Scale(s, 0.5)

	if scaled.Values[DimCuriosity] != 60 {
		t.Fatalf("expected half step to 60, got %f", scaled.Values[DimCuriosity])
	}
	if scaled.Frame != FramePoetic {
		t.Fatal("scaling must not drop the frame")
	}
	if len(scaled.Metaphors) != 1 {
		t.Fatal("scaling must not drop list appends")
	}
	// Factor >= 1 returns the delta untouched.
	same := d.Scale(s, 1.0)
	if same.Values[DimCuriosity] != 70 {
		t.Fatalf("factor 1 should not change targets, got %f", same.Values[DimCuriosity])
	}
}

func TestStanceJSONRoundTrip(t *testing.T) {
	s := Default("sess-rt")
	s.Frame = FrameContemplative
	s.Version = 7
	s.CumulativeDrift = 33.5
	s.TurnsSinceLastShift = 3
	s.Metaphors = []string{"a prism"}
	s.Sentience.EmergentGoals = []string{"carry one question"}

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var restored Stance
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if restored.Frame != s.Frame || restored.Version != s.Version {
		t.Fatalf("frame/version lost: %+v", restored)
	}
	if restored.CumulativeDrift != s.CumulativeDrift {
		t.Fatalf("drift lost: %f", restored.CumulativeDrift)
	}
	if restored.TurnsSinceLastShift != 3 {
		t.Fatalf("turn counter lost: %d", restored.TurnsSinceLastShift)
	}
	if len(restored.Metaphors) != 1 || restored.Metaphors[0] != "a prism" {
		t.Fatalf("metaphors lost: %v", restored.Metaphors)
	}
	if len(restored.Sentience.EmergentGoals) != 1 {
		t.Fatalf("goals lost: %v", restored.Sentience.EmergentGoals)
	}
}

func TestValidFrame(t *testing.T) {
	for _, f := range Frames {
		if !ValidFrame(f) {
			t.Errorf("%s should be valid", f)
		}
	}
	if ValidFrame(Frame("cubist")) {
		t.Fatal("unknown frame should be invalid")
	}
}
