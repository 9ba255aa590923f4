package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/danielpatrickdp/stance-controller/internal/logging"
	"github.com/danielpatrickdp/stance-controller/internal/replay"
	"github.com/danielpatrickdp/stance-controller/internal/store"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to stance_controller.db (DB mode)")
	sessionID := flag.String("session", "", "session id to replay (DB mode)")
	fixturePath := flag.String("fixture", "", "path to fixture JSON (fixture mode)")
	flag.Parse()

	if (*dbPath == "" && *fixturePath == "") || (*dbPath != "" && *fixturePath != "") {
		fmt.Fprintln(os.Stderr, "usage: replay --db path/to/stance_controller.db --session <id>")
		fmt.Fprintln(os.Stderr, "       replay --fixture path/to/fixture.json")
		os.Exit(2)
	}

	var exitCode int
	if *fixturePath != "" {
		exitCode = runFixtureMode(*fixturePath)
	} else {
		exitCode = runDBMode(*dbPath, *sessionID)
	}
	os.Exit(exitCode)
}

// #endregion main

// #region db-extract

func runDBMode(dbPath, sessionID string) int {
	if sessionID == "" {
		fmt.Fprintln(os.Stderr, "--session is required in DB mode")
		return 2
	}

	st, err := store.NewStore(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		return 2
	}
	defer st.Close()

	start, err := st.LoadStanceVersion(sessionID, 1)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load initial stance: %v\n", err)
		return 2
	}

	entries, err := st.ListDecisions(sessionID, 10000)
	if err != nil {
		fmt.Fprintf(os.Stderr, "list decisions: %v\n", err)
		return 2
	}
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "no provenance entries found for session")
		return 2
	}
	// ListDecisions returns newest first.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}

	interactions, expected := groupByVersion(entries)
	if len(interactions) == 0 {
		fmt.Fprintln(os.Stderr, "no replayable turns found for session")
		return 2
	}

	results, summary := replay.Replay(start, interactions, replay.DefaultConfig())
	code := printComparison(results, expected)
	printSummary(summary)
	return code
}

// groupByVersion folds provenance rows into one interaction per recorded
// version. The selected operator set is every operator that reached the
// gate that turn; the expected action is "commit" when at least one was
// merged.
func groupByVersion(entries []logging.ProvenanceEntry) ([]replay.Interaction, []string) {
	var interactions []replay.Interaction
	var expected []string
	lastVersion := -1

	for _, e := range entries {
		if e.TriggerType == "replay" || e.Operator == "" {
			continue
		}
		if e.Version != lastVersion {
			interactions = append(interactions, replay.Interaction{
				TurnID:   fmt.Sprintf("v%d", e.Version),
				Triggers: splitTriggers(e.TriggerType),
			})
			expected = append(expected, "reject")
			lastVersion = e.Version
		}
		idx := len(interactions) - 1
		interactions[idx].Operators = append(interactions[idx].Operators, e.Operator)
		if e.Decision == "commit" {
			expected[idx] = "commit"
		}
	}
	return interactions, expected
}

// splitTriggers parses the comma-joined trigger tags stored in
// provenance_log, dropping the turn-kind tags that are not content triggers.
func splitTriggers(triggerType string) []string {
	var out []string
	for _, t := range strings.Split(triggerType, ",") {
		t = strings.TrimSpace(t)
		if t == "" || t == "user_turn" || t == "autonomous_turn" {
			continue
		}
		out = append(out, t)
	}
	return out
}

// #endregion db-extract

// #region fixture-mode

func runFixtureMode(path string) int {
	f, err := replay.LoadFixture(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		return 2
	}

	cfg := f.Config.ToConfig()
	interactions := make([]replay.Interaction, len(f.Interactions))
	for i := range f.Interactions {
		interactions[i] = f.Interactions[i].ToInteraction()
	}

	results, summary := replay.Replay(f.StartStance, interactions, cfg)

	expected := make([]string, len(f.ExpectedResults))
	for i, e := range f.ExpectedResults {
		expected[i] = e.Action
	}

	code := printComparison(results, expected)
	printSummary(summary)
	return code
}

// #endregion fixture-mode

// #region output

// printComparison outputs a comparison table and returns the exit code:
// 0 when every turn matches, 1 otherwise.
func printComparison(results []replay.Result, expected []string) int {
	fmt.Printf("%-12s| %-10s| %-10s| %-8s| %s\n", "Turn", "Expected", "Replayed", "Drift", "Match")
	fmt.Printf("%-12s+%-11s+%-11s+%-9s+%s\n",
		"------------", "-----------", "-----------", "---------", "------")

	matches := 0
	total := len(results)
	if len(expected) < total {
		total = len(expected)
	}

	for i := 0; i < total; i++ {
		match := "DIFF"
		if expected[i] == results[i].Action {
			match = "OK"
			matches++
		}
		fmt.Printf("%-12s| %-10s| %-10s| %-8.2f| %s\n",
			results[i].TurnID, expected[i], results[i].Action, results[i].Drift, match)
	}

	diverge := total - matches
	fmt.Printf("\nComparison: %d total, %d match, %d diverge\n", total, matches, diverge)
	if diverge > 0 {
		return 1
	}
	return 0
}

func printSummary(s replay.Summary) {
	fmt.Printf("Replay: %d turns, %d commits, %d rejects, %d no-ops\n",
		s.TotalTurns, s.Commits, s.Rejects, s.NoOps)
	fmt.Printf("Final stance: v%d frame=%s drift=%.2f\n",
		s.FinalState.Version, s.FinalState.Frame, s.FinalState.CumulativeDrift)
}

// #endregion output
