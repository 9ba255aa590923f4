package logging

import (
	"database/sql"
	"fmt"
	"time"
)

// #region provenance-entry

// ProvenanceEntry links one stance decision to its context.
type ProvenanceEntry struct {
	SessionID   string
	Version     int
	Operator    string
	TriggerType string // "user_turn" | "autonomous_turn" | "replay"
	Decision    string // "commit" | "reject" | "no_op"
	Reason      string
	Magnitude   float32
	CreatedAt   time.Time
}

// #endregion provenance-entry

// #region log-decision

// LogDecision writes a provenance entry to the provenance_log table.
func LogDecision(db *sql.DB, entry ProvenanceEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO provenance_log (session_id, version, operator, trigger_type, decision, reason, magnitude, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.SessionID,
		entry.Version,
		nullIfEmpty(entry.Operator),
		entry.TriggerType,
		entry.Decision,
		nullIfEmpty(entry.Reason),
		entry.Magnitude,
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log decision: %w", err)
	}
	return nil
}

// #endregion log-decision

// #region list-decisions

// ListDecisions returns the most recent provenance entries for a session.
func ListDecisions(db *sql.DB, sessionID string, limit int) ([]ProvenanceEntry, error) {
	rows, err := db.Query(
		`SELECT session_id, version, operator, trigger_type, decision, reason, magnitude, created_at
		 FROM provenance_log WHERE session_id = ?
		 ORDER BY id DESC LIMIT ?`, sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	var out []ProvenanceEntry
	for rows.Next() {
		var e ProvenanceEntry
		var op, reason sql.NullString
		var createdStr string
		if err := rows.Scan(&e.SessionID, &e.Version, &op, &e.TriggerType, &e.Decision, &reason, &e.Magnitude, &createdStr); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		e.Operator = op.String
		e.Reason = reason.String
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		out = append(out, e)
	}
	return out, rows.Err()
}

// #endregion list-decisions

// #region helpers

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
