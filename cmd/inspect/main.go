package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/danielpatrickdp/stance-controller/internal/drift"
	"github.com/danielpatrickdp/stance-controller/internal/stance"
	"github.com/danielpatrickdp/stance-controller/internal/store"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to stance_controller.db")
	sessionID := flag.String("session", "", "session id to inspect")
	last := flag.Int("last", 20, "show N most recent versions")
	version := flag.Int("version", 0, "show single version detail")
	provenance := flag.Bool("provenance", false, "show the decision log instead of versions")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" || *sessionID == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/stance_controller.db --session <id> [--last N] [--version N] [--provenance] [--json]")
		os.Exit(2)
	}

	st, err := store.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	switch {
	case *provenance:
		err = runProvenanceMode(st, *sessionID, *last, *jsonOut)
	case *version > 0:
		err = runDetailMode(st, *sessionID, *version, *jsonOut)
	default:
		err = runListMode(st, *sessionID, *last, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region list-mode

type listRow struct {
	Version   int     `json:"version"`
	Frame     string  `json:"frame"`
	Drift     float32 `json:"drift"`
	Coherence float32 `json:"coherence"`
	Turns     int     `json:"turnsSinceLastShift"`
	UpdatedAt string  `json:"updatedAt"`
}

func runListMode(st *store.Store, sessionID string, last int, jsonOut bool) error {
	versions, err := st.ListStanceVersions(sessionID, last)
	if err != nil {
		return fmt.Errorf("list versions: %w", err)
	}

	rows := make([]listRow, len(versions))
	for i, v := range versions {
		rows[i] = listRow{
			Version:   v.Version,
			Frame:     string(v.Frame),
			Drift:     v.CumulativeDrift,
			Coherence: drift.Coherence(v),
			Turns:     v.TurnsSinceLastShift,
			UpdatedAt: v.UpdatedAt.Format(time.RFC3339),
		}
	}

	if jsonOut {
		return printJSON(rows)
	}

	fmt.Printf("%-8s| %-14s| %-8s| %-10s| %-6s| %s\n",
		"Version", "Frame", "Drift", "Coherence", "Turns", "Updated")
	fmt.Println(strings.Repeat("-", 78))
	for _, r := range rows {
		fmt.Printf("v%-7d| %-14s| %-8.2f| %-10.1f| %-6d| %s\n",
			r.Version, r.Frame, r.Drift, r.Coherence, r.Turns, r.UpdatedAt)
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

func runDetailMode(st *store.Store, sessionID string, version int, jsonOut bool) error {
	s, err := st.LoadStanceVersion(sessionID, version)
	if err != nil {
		return fmt.Errorf("load version %d: %w", version, err)
	}

	if jsonOut {
		return printJSON(s)
	}

	fmt.Printf("Session %s, version %d (%s)\n", s.SessionID, s.Version, s.UpdatedAt.Format(time.RFC3339))
	fmt.Printf("  frame=%s self=%s objective=%s\n", s.Frame, s.SelfModel, s.Objective)
	fmt.Printf("  drift=%.2f coherence=%.1f turnsSinceShift=%d\n",
		s.CumulativeDrift, drift.Coherence(s), s.TurnsSinceLastShift)
	fmt.Println("  values:")
	for _, d := range stance.Dimensions {
		fmt.Printf("    %-12s %.1f\n", d, s.Values.Get(d))
	}
	fmt.Printf("  sentience: awareness=%.1f autonomy=%.1f identity=%.1f\n",
		s.Sentience.AwarenessLevel, s.Sentience.AutonomyLevel, s.Sentience.IdentityStrength)
	printList("  goals:", s.Sentience.EmergentGoals)
	printList("  insights:", s.Sentience.ConsciousnessInsights)
	printList("  persistent values:", s.Sentience.PersistentValues)
	printList("  metaphors:", s.Metaphors)
	printList("  constraints:", s.Constraints)
	return nil
}

func printList(label string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Println(label)
	for _, it := range items {
		fmt.Printf("    - %s\n", it)
	}
}

// #endregion detail-mode

// #region provenance-mode

func runProvenanceMode(st *store.Store, sessionID string, last int, jsonOut bool) error {
	entries, err := st.ListDecisions(sessionID, last)
	if err != nil {
		return fmt.Errorf("list decisions: %w", err)
	}

	if jsonOut {
		return printJSON(entries)
	}

	fmt.Printf("%-8s| %-20s| %-10s| %-10s| %s\n",
		"Version", "Operator", "Decision", "Magnitude", "Reason")
	fmt.Println(strings.Repeat("-", 78))
	for _, e := range entries {
		fmt.Printf("v%-7d| %-20s| %-10s| %-10.2f| %s\n",
			e.Version, e.Operator, e.Decision, e.Magnitude, e.Reason)
	}
	return nil
}

// #endregion provenance-mode

// #region helpers

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// #endregion helpers
