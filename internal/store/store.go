// Package store persists stance versions, autonomy session records, and
// provenance rows in SQLite. It is the load/save boundary the scheduler
// depends on; nothing above it touches SQL.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/stance-controller/internal/stance"
)

// #region errors

// ErrNotFound marks a missing stance or session record.
var ErrNotFound = errors.New("not found")

// #endregion errors

// #region schema

const schema = `
CREATE TABLE IF NOT EXISTS stance_versions (
	session_id       TEXT NOT NULL,
	version          INTEGER NOT NULL,
	frame            TEXT NOT NULL,
	cumulative_drift REAL NOT NULL,
	payload          TEXT NOT NULL,
	created_at       TEXT NOT NULL,
	PRIMARY KEY (session_id, version)
);

CREATE TABLE IF NOT EXISTS active_stance (
	session_id TEXT PRIMARY KEY,
	version    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS autonomy_sessions (
	session_id TEXT PRIMARY KEY,
	status     TEXT NOT NULL,
	mode       TEXT NOT NULL,
	payload    TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS provenance_log (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id  TEXT NOT NULL,
	version     INTEGER NOT NULL,
	operator    TEXT,
	trigger_type TEXT NOT NULL,
	decision    TEXT NOT NULL,
	reason      TEXT,
	magnitude   REAL NOT NULL DEFAULT 0,
	created_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_provenance_session
ON provenance_log(session_id, created_at);
`

// #endregion schema

// #region store-struct

// Store manages all persistent state in one SQLite database.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion store-struct

// #region stance-create

// CreateInitialStance writes the default stance for a new session and makes
// it the active version.
func (s *Store) CreateInitialStance(sessionID string) (stance.Stance, error) {
	st := stance.Default(sessionID)
	if err := s.SaveStance(st); err != nil {
		return stance.Stance{}, err
	}
	return st, nil
}

// #endregion stance-create

// #region stance-save

// SaveStance inserts a stance version and updates the active pointer
// atomically. Re-saving an existing version overwrites it.
func (s *Store) SaveStance(st stance.Stance) error {
	payload, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal stance: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT OR REPLACE INTO stance_versions (session_id, version, frame, cumulative_drift, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		st.SessionID, st.Version, string(st.Frame), st.CumulativeDrift,
		string(payload), st.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert stance version: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO active_stance (session_id, version) VALUES (?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET version = excluded.version`,
		st.SessionID, st.Version,
	)
	if err != nil {
		return fmt.Errorf("set active: %w", err)
	}

	return tx.Commit()
}

// #endregion stance-save

// #region stance-load

// LoadStance reads a session's active stance version.
func (s *Store) LoadStance(sessionID string) (stance.Stance, error) {
	var version int
	err := s.db.QueryRow(
		`SELECT version FROM active_stance WHERE session_id = ?`, sessionID,
	).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return stance.Stance{}, fmt.Errorf("stance for session %s: %w", sessionID, ErrNotFound)
	}
	if err != nil {
		return stance.Stance{}, fmt.Errorf("get active: %w", err)
	}
	return s.LoadStanceVersion(sessionID, version)
}

// LoadStanceVersion retrieves a specific stance version.
func (s *Store) LoadStanceVersion(sessionID string, version int) (stance.Stance, error) {
	var payload string
	err := s.db.QueryRow(
		`SELECT payload FROM stance_versions WHERE session_id = ? AND version = ?`,
		sessionID, version,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return stance.Stance{}, fmt.Errorf("stance %s v%d: %w", sessionID, version, ErrNotFound)
	}
	if err != nil {
		return stance.Stance{}, fmt.Errorf("get stance version: %w", err)
	}

	var st stance.Stance
	if err := json.Unmarshal([]byte(payload), &st); err != nil {
		return stance.Stance{}, fmt.Errorf("unmarshal stance: %w", err)
	}
	return st, nil
}

// ListStanceVersions returns the most recent versions for a session.
func (s *Store) ListStanceVersions(sessionID string, limit int) ([]stance.Stance, error) {
	rows, err := s.db.Query(
		`SELECT payload FROM stance_versions WHERE session_id = ?
		 ORDER BY version DESC LIMIT ?`, sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var out []stance.Stance
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		var st stance.Stance
		if err := json.Unmarshal([]byte(payload), &st); err != nil {
			return nil, fmt.Errorf("unmarshal stance: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// #endregion stance-load

// #region session-records

// SessionRecord is the persisted snapshot of an autonomy session. Payload
// is the scheduler's own JSON encoding of the full session.
type SessionRecord struct {
	SessionID string
	Status    string
	Mode      string
	Payload   string
	UpdatedAt time.Time
}

// SaveSessionRecord upserts an autonomy session snapshot.
func (s *Store) SaveSessionRecord(rec SessionRecord) error {
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO autonomy_sessions (session_id, status, mode, payload, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET
		   status = excluded.status, mode = excluded.mode,
		   payload = excluded.payload, updated_at = excluded.updated_at`,
		rec.SessionID, rec.Status, rec.Mode, rec.Payload,
		rec.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save session record: %w", err)
	}
	return nil
}

// LoadSessionRecord reads a persisted autonomy session snapshot.
func (s *Store) LoadSessionRecord(sessionID string) (SessionRecord, error) {
	var rec SessionRecord
	var updatedStr string
	err := s.db.QueryRow(
		`SELECT session_id, status, mode, payload, updated_at
		 FROM autonomy_sessions WHERE session_id = ?`, sessionID,
	).Scan(&rec.SessionID, &rec.Status, &rec.Mode, &rec.Payload, &updatedStr)
	if errors.Is(err, sql.ErrNoRows) {
		return SessionRecord{}, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	if err != nil {
		return SessionRecord{}, fmt.Errorf("load session record: %w", err)
	}
	rec.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedStr)
	return rec, nil
}

// #endregion session-records
