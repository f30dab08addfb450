package benchmarks

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/funkusgames/dialogue/pkg/dialogue"
	"github.com/funkusgames/dialogue/pkg/dialogue/saves"
)

// suspendedSession returns a session suspended mid-conversation.
func suspendedSession(b *testing.B, g *dialogue.Graph, report *dialogue.Report) *dialogue.Session {
	s, err := dialogue.NewSession(g, report, nil)
	if err != nil {
		b.Fatal(err)
	}
	if _, err := s.Start(context.Background()); err != nil {
		b.Fatal(err)
	}
	return s
}

// BenchmarkSnapshot measures taking a snapshot of a live session.
func BenchmarkSnapshot(b *testing.B) {
	g := buildLinearGraph(10)
	report := mustValidate(g)
	s := suspendedSession(b, g, report)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = s.Snapshot()
	}
}

// BenchmarkMarshalSnapshot measures snapshot serialization.
func BenchmarkMarshalSnapshot(b *testing.B) {
	g := buildLinearGraph(10)
	report := mustValidate(g)
	snap := suspendedSession(b, g, report).Snapshot()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = dialogue.MarshalSnapshot(snap)
	}
}

// BenchmarkRestoreSession measures resuming from a snapshot.
func BenchmarkRestoreSession(b *testing.B) {
	g := buildLinearGraph(10)
	report := mustValidate(g)
	snap := suspendedSession(b, g, report).Snapshot()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = dialogue.RestoreSession(g, report, nil, snap)
	}
}

// BenchmarkMemoryStore_Save measures in-memory save writes.
func BenchmarkMemoryStore_Save(b *testing.B) {
	g := buildLinearGraph(10)
	report := mustValidate(g)
	snap := suspendedSession(b, g, report).Snapshot()
	store := saves.NewMemoryStore()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = store.Save("player", "slot1", snap)
	}
}

// BenchmarkMemoryStore_Load measures in-memory save reads.
func BenchmarkMemoryStore_Load(b *testing.B) {
	g := buildLinearGraph(10)
	report := mustValidate(g)
	store := saves.NewMemoryStore()
	_ = store.Save("player", "slot1", suspendedSession(b, g, report).Snapshot())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = store.Load("player", "slot1")
	}
}

// BenchmarkSQLiteStore_Save measures SQLite save writes.
func BenchmarkSQLiteStore_Save(b *testing.B) {
	g := buildLinearGraph(10)
	report := mustValidate(g)
	snap := suspendedSession(b, g, report).Snapshot()
	store, err := saves.NewSQLiteStore(filepath.Join(b.TempDir(), "bench.db"))
	if err != nil {
		b.Fatal(err)
	}
	defer store.Close()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = store.Save("player", fmt.Sprintf("slot%d", i%100), snap)
	}
}

// BenchmarkSQLiteStore_Load measures SQLite save reads.
func BenchmarkSQLiteStore_Load(b *testing.B) {
	g := buildLinearGraph(10)
	report := mustValidate(g)
	store, err := saves.NewSQLiteStore(filepath.Join(b.TempDir(), "bench.db"))
	if err != nil {
		b.Fatal(err)
	}
	defer store.Close()
	_ = store.Save("player", "slot1", suspendedSession(b, g, report).Snapshot())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = store.Load("player", "slot1")
	}
}
