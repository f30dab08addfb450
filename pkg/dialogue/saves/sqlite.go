package saves

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/funkusgames/dialogue/pkg/dialogue"
)

// SQLiteStore persists saves to SQLite.
// It is suitable for single-process production use.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore creates a new SQLite save store.
// The path should be a file path (e.g., "./saves.db") or ":memory:" for testing.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS saves (
			profile_id TEXT NOT NULL,
			slot TEXT NOT NULL,
			session_id TEXT NOT NULL,
			graph_name TEXT NOT NULL,
			state TEXT NOT NULL,
			saved_at TEXT NOT NULL,
			data BLOB NOT NULL,
			PRIMARY KEY (profile_id, slot)
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_saves_profile_id
		ON saves(profile_id)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Save implements Store.
func (s *SQLiteStore) Save(profileID, slot string, snap dialogue.Snapshot) error {
	data, err := dialogue.MarshalSnapshot(snap)
	if err != nil {
		return err
	}
	stateText, err := snap.State.MarshalText()
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO saves (profile_id, slot, session_id, graph_name, state, saved_at, data)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, profileID, slot, snap.SessionID, snap.GraphName, string(stateText),
		time.Now().UTC().Format(time.RFC3339Nano), data)

	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Load implements Store.
func (s *SQLiteStore) Load(profileID, slot string) (dialogue.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return dialogue.Snapshot{}, ErrStoreClosed
	}

	var data []byte
	err := s.db.QueryRow(`
		SELECT data FROM saves
		WHERE profile_id = ? AND slot = ?
	`, profileID, slot).Scan(&data)

	if err == sql.ErrNoRows {
		return dialogue.Snapshot{}, ErrNotFound
	}
	if err != nil {
		return dialogue.Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	return dialogue.UnmarshalSnapshot(data)
}

// List implements Store.
func (s *SQLiteStore) List(profileID string) ([]Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.Query(`
		SELECT slot, session_id, graph_name, state, saved_at, LENGTH(data)
		FROM saves
		WHERE profile_id = ?
		ORDER BY saved_at DESC, slot
	`, profileID)
	if err != nil {
		return nil, fmt.Errorf("list saves: %w", err)
	}
	defer rows.Close()

	var infos []Info
	for rows.Next() {
		var info Info
		var state, savedAt string
		if err := rows.Scan(&info.Slot, &info.SessionID, &info.GraphName, &state, &savedAt, &info.Size); err != nil {
			return nil, fmt.Errorf("scan save info: %w", err)
		}
		info.ProfileID = profileID
		if err := info.State.UnmarshalText([]byte(state)); err != nil {
			return nil, fmt.Errorf("decode state: %w", err)
		}
		info.SavedAt, _ = time.Parse(time.RFC3339Nano, savedAt)
		infos = append(infos, info)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate saves: %w", err)
	}

	return infos, nil
}

// Delete implements Store.
func (s *SQLiteStore) Delete(profileID, slot string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	_, err := s.db.Exec(`
		DELETE FROM saves
		WHERE profile_id = ? AND slot = ?
	`, profileID, slot)
	if err != nil {
		return fmt.Errorf("delete save: %w", err)
	}
	return nil
}

// DeleteProfile implements Store.
func (s *SQLiteStore) DeleteProfile(profileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	_, err := s.db.Exec(`
		DELETE FROM saves WHERE profile_id = ?
	`, profileID)
	if err != nil {
		return fmt.Errorf("delete profile saves: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	return s.db.Close()
}
