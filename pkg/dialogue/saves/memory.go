package saves

import (
	"sort"
	"sync"
	"time"

	"github.com/funkusgames/dialogue/pkg/dialogue"
)

// MemoryStore is an in-memory save store for testing.
// Data is lost when the process exits.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string]map[string]storedSave // profileID -> slot -> save
	closed bool
}

// storedSave holds the encoded snapshot with metadata for List().
type storedSave struct {
	data    []byte
	info    Info
	savedAt time.Time
}

// NewMemoryStore creates a new in-memory save store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]map[string]storedSave),
	}
}

// Save implements Store.
func (m *MemoryStore) Save(profileID, slot string, snap dialogue.Snapshot) error {
	data, err := dialogue.MarshalSnapshot(snap)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	if m.data[profileID] == nil {
		m.data[profileID] = make(map[string]storedSave)
	}

	now := time.Now().UTC()
	m.data[profileID][slot] = storedSave{
		data: data,
		info: Info{
			ProfileID: profileID,
			Slot:      slot,
			SessionID: snap.SessionID,
			GraphName: snap.GraphName,
			State:     snap.State,
			SavedAt:   now,
			Size:      int64(len(data)),
		},
		savedAt: now,
	}

	return nil
}

// Load implements Store.
func (m *MemoryStore) Load(profileID, slot string) (dialogue.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return dialogue.Snapshot{}, ErrStoreClosed
	}

	profile, ok := m.data[profileID]
	if !ok {
		return dialogue.Snapshot{}, ErrNotFound
	}

	save, ok := profile[slot]
	if !ok {
		return dialogue.Snapshot{}, ErrNotFound
	}

	return dialogue.UnmarshalSnapshot(save.data)
}

// List implements Store.
func (m *MemoryStore) List(profileID string) ([]Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	profile, ok := m.data[profileID]
	if !ok {
		return nil, nil
	}

	infos := make([]Info, 0, len(profile))
	for _, save := range profile {
		infos = append(infos, save.info)
	}

	// Most recent first, slot name as tie-break
	sort.Slice(infos, func(i, j int) bool {
		if !infos[i].SavedAt.Equal(infos[j].SavedAt) {
			return infos[i].SavedAt.After(infos[j].SavedAt)
		}
		return infos[i].Slot < infos[j].Slot
	})

	return infos, nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(profileID, slot string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	if profile, ok := m.data[profileID]; ok {
		delete(profile, slot)
	}
	return nil
}

// DeleteProfile implements Store.
func (m *MemoryStore) DeleteProfile(profileID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	delete(m.data, profileID)
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.data = nil
	return nil
}

// Len returns the total number of saves across all profiles.
// Useful for testing.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, profile := range m.data {
		count += len(profile)
	}
	return count
}
