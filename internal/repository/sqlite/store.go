package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jaakkos/helmpanel/internal/app"
	"github.com/jaakkos/helmpanel/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS view_state (
	session_id TEXT NOT NULL,
	subsystem TEXT NOT NULL,
	locked INTEGER NOT NULL DEFAULT 1,
	manual_control INTEGER NOT NULL DEFAULT 0,
	live_update INTEGER NOT NULL DEFAULT 0,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (session_id, subsystem)
);
CREATE TABLE IF NOT EXISTS meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// fieldColumns maps ViewState field keys onto columns.
var fieldColumns = map[string]string{
	domain.FieldLocked:        "locked",
	domain.FieldManualControl: "manual_control",
	domain.FieldLiveUpdate:    "live_update",
}

// Store implements app.ViewStore using SQLite. Rows are scoped to one
// browsing session id so concurrent panels never share flags.
type Store struct {
	db        *sql.DB
	sessionID string
}

// New opens the SQLite database at path (creating parent dirs and schema) and
// returns a ViewStore for sessionID.
func New(path, sessionID string) (app.ViewStore, error) {
	if sessionID == "" {
		return nil, errors.New("sqlite: empty session id")
	}
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("sqlite mkdir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	_ = runMigrations(db)
	return &Store{db: db, sessionID: sessionID}, nil
}

// runMigrations applies schema changes for older databases. Errors are
// ignored because some may already be applied.
func runMigrations(db *sql.DB) error {
	_, _ = db.Exec("ALTER TABLE view_state ADD COLUMN live_update INTEGER NOT NULL DEFAULT 0")
	_, _ = db.Exec("INSERT OR IGNORE INTO meta (key, value) VALUES ('schema_version', '1')")
	return nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Get loads the stored view state for subsystem.
func (s *Store) Get(subsystem string) (domain.ViewState, bool, error) {
	var locked, manual, live int
	err := s.db.QueryRow(
		`SELECT locked, manual_control, live_update FROM view_state WHERE session_id = ? AND subsystem = ?`,
		s.sessionID, subsystem,
	).Scan(&locked, &manual, &live)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NewViewState(), false, nil
	}
	if err != nil {
		return domain.ViewState{}, false, fmt.Errorf("get view state %s: %w", subsystem, err)
	}
	return domain.ViewState{Locked: locked != 0, ManualControl: manual != 0, LiveUpdate: live != 0}, true, nil
}

// GetField loads one flag. A subsystem with nothing stored reports the
// initial view state's value.
func (s *Store) GetField(subsystem, key string) (bool, error) {
	col, ok := fieldColumns[key]
	if !ok {
		return false, fmt.Errorf("get view state field: unknown key %q", key)
	}
	var v int
	err := s.db.QueryRow(
		`SELECT `+col+` FROM view_state WHERE session_id = ? AND subsystem = ?`,
		s.sessionID, subsystem,
	).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		def, _ := domain.NewViewState().Field(key)
		return def, nil
	}
	if err != nil {
		return false, fmt.Errorf("get view state field %s.%s: %w", subsystem, key, err)
	}
	return v != 0, nil
}

// Put overwrites the stored view state for subsystem.
func (s *Store) Put(subsystem string, v domain.ViewState) error {
	_, err := s.db.Exec(
		`INSERT INTO view_state (session_id, subsystem, locked, manual_control, live_update, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(session_id, subsystem) DO UPDATE SET
			locked = excluded.locked,
			manual_control = excluded.manual_control,
			live_update = excluded.live_update,
			updated_at = excluded.updated_at`,
		s.sessionID, subsystem, boolToInt(v.Locked), boolToInt(v.ManualControl), boolToInt(v.LiveUpdate),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("put view state %s: %w", subsystem, err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
