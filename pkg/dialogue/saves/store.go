// Package saves provides persistent storage for session snapshots,
// keyed by player profile and save slot.
package saves

import (
	"errors"
	"time"

	"github.com/funkusgames/dialogue/pkg/dialogue"
)

// Store persists session snapshots.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save stores a snapshot in a slot.
	// Overwrites if the (profileID, slot) pair already holds a save.
	Save(profileID, slot string, snap dialogue.Snapshot) error

	// Load retrieves a saved snapshot.
	// Returns ErrNotFound if the slot is empty.
	Load(profileID, slot string) (dialogue.Snapshot, error)

	// List returns all saves for a profile, most recent first.
	// Returns empty slice (not error) if the profile has no saves.
	List(profileID string) ([]Info, error)

	// Delete removes one save slot.
	// Returns nil if the slot is already empty.
	Delete(profileID, slot string) error

	// DeleteProfile removes all saves for a profile.
	// Returns nil if the profile has no saves.
	DeleteProfile(profileID string) error

	// Close releases any resources (connections, files).
	Close() error
}

// Info provides save metadata without decoding the full snapshot.
type Info struct {
	ProfileID string
	Slot      string
	SessionID string
	GraphName string
	State     dialogue.SessionState
	SavedAt   time.Time
	Size      int64
}

// Sentinel errors for save operations.
var (
	// ErrNotFound indicates a save slot is empty.
	ErrNotFound = errors.New("save not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("save store closed")
)
