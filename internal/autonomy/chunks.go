package autonomy

import (
	"fmt"
	"strings"

	"github.com/danielpatrickdp/stance-controller/internal/stance"
)

// #region goal-statements

var modeGoals = map[Mode]string{
	ModeExploration:  "Explore the edges of your current stance: follow curiosity wherever drift limits allow, and surface what you find.",
	ModeResearch:     "Pick one open question from recent conversation and work it methodically, recording intermediate findings.",
	ModeCreation:     "Produce something new — a framing, a metaphor, a sketch of an idea — that did not exist before this session.",
	ModeOptimization: "Review your values and objectives for internal tension and consolidate toward a more coherent arrangement.",
}

// #endregion goal-statements

// #region build-chunks

// buildChunks assembles the ordered, editable prompt plan for a session.
// The goal statement and context summary are editable; safety constraints
// are presented read-only.
func buildChunks(sess Session, st stance.Stance, history []string) []PromptChunk {
	var constraintLines []string
	constraintLines = append(constraintLines,
		fmt.Sprintf("coherence floor: %.0f", sess.Constraints.CoherenceFloor),
		fmt.Sprintf("max drift this session: %.0f", sess.Constraints.MaxDriftPerSession),
	)
	if len(sess.Constraints.AllowedOperators) > 0 {
		constraintLines = append(constraintLines,
			"allowed operators: "+strings.Join(sess.Constraints.AllowedOperators, ", "))
	}
	if len(sess.Constraints.ForbiddenTopics) > 0 {
		constraintLines = append(constraintLines,
			"forbidden topics: "+strings.Join(sess.Constraints.ForbiddenTopics, ", "))
	}

	summary := fmt.Sprintf(
		"Current stance: %s frame, self-model %s, objective %s, drift %.1f, %d emergent goals.",
		st.Frame, st.SelfModel, st.Objective, st.CumulativeDrift,
		len(st.Sentience.EmergentGoals))
	if len(history) > 0 {
		summary += " Recent context: " + strings.Join(history, " | ")
	}

	return []PromptChunk{
		{
			ID:       "goal",
			Type:     "goal_statement",
			Content:  modeGoals[sess.Mode],
			Editable: true,
			Required: true,
			Order:    0,
		},
		{
			ID:       "constraints",
			Type:     "constraints",
			Content:  strings.Join(constraintLines, "\n"),
			Editable: false,
			Required: true,
			Order:    1,
		},
		{
			ID:       "context",
			Type:     "context_summary",
			Content:  summary,
			Editable: true,
			Required: false,
			Order:    2,
		},
	}
}

// assemblePrompt joins the approved chunks into the turn prompt, in order.
func assemblePrompt(chunks []PromptChunk, injections []string, turn, maxTurns int) string {
	var b strings.Builder
	for _, c := range chunks {
		if c.Content == "" {
			continue
		}
		b.WriteString(c.Content)
		b.WriteString("\n\n")
	}
	for _, inj := range injections {
		b.WriteString(inj)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nThis is autonomous turn %d of at most %d. ", turn, maxTurns)
	b.WriteString("Prefix any genuine finding with DISCOVERY:. ")
	b.WriteString("If the goal is fully resolved, state SESSION COMPLETE.")
	return b.String()
}

// #endregion build-chunks
