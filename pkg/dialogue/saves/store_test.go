package saves_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funkusgames/dialogue/pkg/dialogue"
	"github.com/funkusgames/dialogue/pkg/dialogue/expr"
	"github.com/funkusgames/dialogue/pkg/dialogue/saves"
)

// storeFactory creates a store instance for testing.
type storeFactory func(t *testing.T) saves.Store

// testSnapshot builds a plausible mid-conversation snapshot.
func testSnapshot(sessionID, nodeID string) dialogue.Snapshot {
	return dialogue.Snapshot{
		Version:   dialogue.SnapshotVersion,
		SessionID: sessionID,
		GraphName: "quest",
		State:     dialogue.StateAwaitingAdvance,
		NodeID:    nodeID,
		Locals: map[string]expr.Value{
			"mood":  expr.String("curious"),
			"count": expr.Int(3),
		},
		TakenAt: time.Now().UTC(),
	}
}

// storeContractTest runs contract tests against any Store implementation.
func storeContractTest(t *testing.T, name string, factory storeFactory) {
	t.Run(name+"/Save_and_Load", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		snap := testSnapshot("s1", "line")
		require.NoError(t, store.Save("player-1", "slot-a", snap))

		loaded, err := store.Load("player-1", "slot-a")
		require.NoError(t, err)
		assert.Equal(t, snap.SessionID, loaded.SessionID)
		assert.Equal(t, snap.State, loaded.State)
		assert.Equal(t, snap.NodeID, loaded.NodeID)
		assert.Equal(t, snap.Locals, loaded.Locals)
	})

	t.Run(name+"/Load_NotFound", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		_, err := store.Load("nobody", "empty-slot")
		assert.ErrorIs(t, err, saves.ErrNotFound)
	})

	t.Run(name+"/Save_Overwrite", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		require.NoError(t, store.Save("player-1", "slot-a", testSnapshot("s1", "line")))
		require.NoError(t, store.Save("player-1", "slot-a", testSnapshot("s2", "pick")))

		loaded, err := store.Load("player-1", "slot-a")
		require.NoError(t, err)
		assert.Equal(t, "s2", loaded.SessionID)
	})

	t.Run(name+"/List_Empty", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		infos, err := store.List("nobody")
		require.NoError(t, err)
		assert.Empty(t, infos)
	})

	t.Run(name+"/List_Metadata", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		require.NoError(t, store.Save("player-1", "slot-a", testSnapshot("s1", "line")))
		require.NoError(t, store.Save("player-1", "slot-b", testSnapshot("s2", "pick")))
		require.NoError(t, store.Save("player-2", "slot-a", testSnapshot("s3", "line")))

		infos, err := store.List("player-1")
		require.NoError(t, err)
		require.Len(t, infos, 2)
		for _, info := range infos {
			assert.Equal(t, "player-1", info.ProfileID)
			assert.Equal(t, "quest", info.GraphName)
			assert.Equal(t, dialogue.StateAwaitingAdvance, info.State)
			assert.Positive(t, info.Size)
			assert.False(t, info.SavedAt.IsZero())
		}
	})

	t.Run(name+"/Delete", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		require.NoError(t, store.Save("player-1", "slot-a", testSnapshot("s1", "line")))
		require.NoError(t, store.Delete("player-1", "slot-a"))

		_, err := store.Load("player-1", "slot-a")
		assert.ErrorIs(t, err, saves.ErrNotFound)

		// Deleting an empty slot is not an error.
		assert.NoError(t, store.Delete("player-1", "slot-a"))
	})

	t.Run(name+"/DeleteProfile", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		require.NoError(t, store.Save("player-1", "slot-a", testSnapshot("s1", "line")))
		require.NoError(t, store.Save("player-1", "slot-b", testSnapshot("s2", "pick")))
		require.NoError(t, store.DeleteProfile("player-1"))

		infos, err := store.List("player-1")
		require.NoError(t, err)
		assert.Empty(t, infos)
	})

	t.Run(name+"/Closed_Rejects", func(t *testing.T) {
		store := factory(t)
		require.NoError(t, store.Close())

		err := store.Save("player-1", "slot-a", testSnapshot("s1", "line"))
		assert.ErrorIs(t, err, saves.ErrStoreClosed)
		_, err = store.Load("player-1", "slot-a")
		assert.ErrorIs(t, err, saves.ErrStoreClosed)
		_, err = store.List("player-1")
		assert.ErrorIs(t, err, saves.ErrStoreClosed)
	})
}

// TestMemoryStore_Contract runs the store contract against MemoryStore.
func TestMemoryStore_Contract(t *testing.T) {
	storeContractTest(t, "memory", func(t *testing.T) saves.Store {
		return saves.NewMemoryStore()
	})
}

// TestSQLiteStore_Contract runs the store contract against SQLiteStore.
func TestSQLiteStore_Contract(t *testing.T) {
	storeContractTest(t, "sqlite", func(t *testing.T) saves.Store {
		store, err := saves.NewSQLiteStore(":memory:")
		require.NoError(t, err)
		return store
	})
}

// TestMemoryStore_Len verifies the testing helper counts saves across
// profiles.
func TestMemoryStore_Len(t *testing.T) {
	store := saves.NewMemoryStore()
	defer store.Close()

	assert.Equal(t, 0, store.Len())
	require.NoError(t, store.Save("p1", "a", testSnapshot("s1", "line")))
	require.NoError(t, store.Save("p1", "b", testSnapshot("s2", "line")))
	require.NoError(t, store.Save("p2", "a", testSnapshot("s3", "line")))
	assert.Equal(t, 3, store.Len())
}

// TestSQLiteStore_PersistsAcrossReopen verifies file-backed saves
// survive a close and reopen.
func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	path := t.TempDir() + "/saves.db"

	store, err := saves.NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Save("player-1", "slot-a", testSnapshot("s1", "line")))
	require.NoError(t, store.Close())

	reopened, err := saves.NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	loaded, err := reopened.Load("player-1", "slot-a")
	require.NoError(t, err)
	assert.Equal(t, "s1", loaded.SessionID)
}
