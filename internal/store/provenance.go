package store

import "github.com/danielpatrickdp/stance-controller/internal/logging"

// #region provenance

// LogDecision appends a provenance entry for a stance decision.
func (s *Store) LogDecision(entry logging.ProvenanceEntry) error {
	return logging.LogDecision(s.db, entry)
}

// ListDecisions returns the most recent provenance entries for a session.
func (s *Store) ListDecisions(sessionID string, limit int) ([]logging.ProvenanceEntry, error) {
	return logging.ListDecisions(s.db, sessionID, limit)
}

// #endregion provenance
