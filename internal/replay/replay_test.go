package replay

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/danielpatrickdp/stance-controller/internal/config"
	"github.com/danielpatrickdp/stance-controller/internal/operator"
	"github.com/danielpatrickdp/stance-controller/internal/stance"
)

func testInteractions() []Interaction {
	return []Interaction{
		{TurnID: "t1", Message: "hello", Operators: []string{operator.NameValueShift}},
		{TurnID: "t2", Message: "neutral", Operators: []string{operator.NameEmpathyAttune}}, // no trigger: no-op
		{TurnID: "t3", Message: "tell me something new", Operators: []string{operator.NameReframe, operator.NameMetaphorSeed}},
	}
}

func TestReplayActions(t *testing.T) {
	start := stance.Default("sess-1")
	results, summary := Replay(start, testInteractions(), DefaultConfig())

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Action != "commit" {
		t.Fatalf("t1 should commit, got %s", results[0].Action)
	}
	if results[1].Action != "no_op" {
		t.Fatalf("t2 should be a no-op, got %s", results[1].Action)
	}
	if results[2].Action != "commit" {
		t.Fatalf("t3 should commit, got %s", results[2].Action)
	}

	if summary.TotalTurns != 3 || summary.Commits != 2 || summary.NoOps != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.FinalState.Version != start.Version+2 {
		t.Fatalf("two committed turns should land at v%d, got v%d",
			start.Version+2, summary.FinalState.Version)
	}
	if summary.FinalState.CumulativeDrift <= 0 {
		t.Fatal("drift should accumulate across the run")
	}
}

func TestReplayDeterministicForSeed(t *testing.T) {
	start := stance.Default("sess-1")
	cfg := DefaultConfig()
	cfg.Mode.SentienceLevel = 100
	cfg.Mode.Intensity = 100
	cfg.Seed = 42

	interactions := []Interaction{
		{TurnID: "t1", Operators: []string{operator.NameGoalFormation, operator.NameInsightCapture}},
		{TurnID: "t2", Operators: []string{operator.NameGoalFormation, operator.NameInsightCapture}},
		{TurnID: "t3", Operators: []string{operator.NameGoalFormation, operator.NameInsightCapture}},
	}

	a, sumA := Replay(start, interactions, cfg)
	b, sumB := Replay(start, interactions, cfg)

	for i := range a {
		if a[i].Action != b[i].Action || a[i].Drift != b[i].Drift {
			t.Fatalf("same seed must replay identically: %+v vs %+v", a[i], b[i])
		}
	}
	if len(sumA.FinalState.Sentience.EmergentGoals) != len(sumB.FinalState.Sentience.EmergentGoals) {
		t.Fatal("probabilistic outcomes diverged across identical runs")
	}
}

func TestReplayDriftBudgetRejects(t *testing.T) {
	start := stance.Default("sess-1")
	cfg := DefaultConfig()
	cfg.Mode.DriftBudget = 10

	interactions := []Interaction{
		{TurnID: "t1", Operators: []string{operator.NameValueShift}}, // ~9.5 drift
		{TurnID: "t2", Operators: []string{operator.NameValueShift}}, // budget nearly gone
		{TurnID: "t3", Operators: []string{operator.NameValueShift}},
	}

	results, summary := Replay(start, interactions, cfg)
	if results[0].Action != "commit" {
		t.Fatalf("first turn fits the budget, got %s", results[0].Action)
	}
	if summary.Rejects == 0 {
		t.Fatal("later turns should hit the session budget")
	}
	if summary.FinalState.CumulativeDrift > 10.01 {
		t.Fatalf("drift %f exceeded the budget", summary.FinalState.CumulativeDrift)
	}
}

func TestLoadFixture(t *testing.T) {
	f := Fixture{
		Description: "smoke",
		StartStance: stance.Default("sess-1"),
		Config: FixtureConfig{
			Intensity:       60,
			CoherenceFloor:  35,
			SentienceLevel:  20,
			MaxDriftPerTurn: 25,
			Seed:            7,
		},
		Interactions: []FixtureInteraction{
			{TurnID: "t1", Message: "hello", Operators: []string{operator.NameValueShift}},
		},
		ExpectedResults: []FixtureExpectedResult{{TurnID: "t1", Action: "commit"}},
	}
	data, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	path := filepath.Join(t.TempDir(), "fixture.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	loaded, err := LoadFixture(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Description != "smoke" || len(loaded.Interactions) != 1 {
		t.Fatalf("fixture fields lost: %+v", loaded)
	}

	cfg := loaded.Config.ToConfig()
	if cfg.Mode.Intensity != 60 || cfg.Seed != 7 {
		t.Fatalf("config conversion lost fields: %+v", cfg)
	}
	if cfg.Mode == (config.ModeConfig{}) {
		t.Fatal("mode config should carry values")
	}

	inter := loaded.Interactions[0].ToInteraction()
	if inter.TurnID != "t1" || inter.Message != "hello" {
		t.Fatalf("interaction conversion lost fields: %+v", inter)
	}

	if _, err := LoadFixture(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("missing fixture must error")
	}
}
