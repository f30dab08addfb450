package dialogue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funkusgames/dialogue/pkg/dialogue/expr"
	"github.com/funkusgames/dialogue/pkg/dialogue/observability"
)

// TestSnapshot_RoundTrip verifies a mid-conversation snapshot restores
// to the same position, state and locals.
func TestSnapshot_RoundTrip(t *testing.T) {
	g := mustBuild(t, NewBuilder().
		AddAction("remember", Assign(ScopeLocal, "mood", "'curious'")).
		AddText("line", "Guide", "Where were we?").
		AddChoice("pick").
		AddText("onward", "Guide", "Onward.").
		Connect("remember", "line").
		Connect("line", "pick").
		Connect("pick", "onward", WithLabel("Onward")).
		AddStart("remember"))
	report := mustValidate(t, g)

	s := newTestSession(t, g, WithSessionID("snap-test"))
	startSession(t, s)

	snap := s.Snapshot()
	assert.Equal(t, SnapshotVersion, snap.Version)
	assert.Equal(t, "snap-test", snap.SessionID)
	assert.Equal(t, StateAwaitingAdvance, snap.State)
	assert.Equal(t, "line", snap.NodeID)

	data, err := MarshalSnapshot(snap)
	require.NoError(t, err)
	decoded, err := UnmarshalSnapshot(data)
	require.NoError(t, err)

	restored, err := RestoreSession(g, report, nil, decoded)
	require.NoError(t, err)
	assert.Equal(t, "snap-test", restored.ID())
	assert.Equal(t, StateAwaitingAdvance, restored.State())
	id, ok := restored.CurrentNodeID()
	assert.True(t, ok)
	assert.Equal(t, NodeID("line"), id)

	// Local variables survive, int/float fidelity included.
	v, ok := restored.Var(ScopeLocal, "mood")
	assert.True(t, ok)
	assert.Equal(t, expr.String("curious"), v)

	// The restored session continues where the original would.
	events, err := restored.Advance(context.Background())
	require.NoError(t, err)
	offered := eventAt[ChoicesOffered](t, events, 0)
	assert.Equal(t, NodeID("pick"), offered.NodeID)
}

// TestSnapshot_RestoreRecomputesChoices verifies a session snapshotted at
// a choice node re-offers eligible options against current variables.
func TestSnapshot_RestoreRecomputesChoices(t *testing.T) {
	s := newTestSession(t, greetingGraph(t))
	ctx := context.Background()

	startSession(t, s)
	_, err := s.Advance(ctx)
	require.NoError(t, err)
	require.Equal(t, StateAwaitingChoice, s.State())

	snap := s.Snapshot()
	g := s.Graph()
	restored, err := RestoreSession(g, Validate(g), nil, snap)
	require.NoError(t, err)

	assert.Equal(t, StateAwaitingChoice, restored.State())
	require.Len(t, restored.Choices(), 2)

	_, err = restored.Select(ctx, restored.Choices()[0].EdgeID)
	assert.NoError(t, err)
}

// TestSnapshot_VersionMismatch verifies incompatible versions are
// rejected at both decode and restore.
func TestSnapshot_VersionMismatch(t *testing.T) {
	_, err := UnmarshalSnapshot([]byte(`{"version":99,"session_id":"x","state":"ended"}`))
	assert.ErrorIs(t, err, ErrSnapshotVersion)

	g := greetingGraph(t)
	_, err = RestoreSession(g, Validate(g), nil, Snapshot{Version: 99})
	assert.ErrorIs(t, err, ErrSnapshotVersion)
}

// TestSnapshot_NodeGone verifies restoring against a graph revision that
// dropped the node fails with ErrSnapshotNode.
func TestSnapshot_NodeGone(t *testing.T) {
	s := newTestSession(t, greetingGraph(t))
	startSession(t, s)
	snap := s.Snapshot()

	other := mustBuild(t, NewBuilder().
		AddText("different", "Guide", "All new.").
		AddStart("different"))

	_, err := RestoreSession(other, Validate(other), nil, snap)
	assert.ErrorIs(t, err, ErrSnapshotNode)
}

// TestSnapshot_KindMismatch verifies a snapshot whose state implies a
// text node cannot restore onto a node of another kind.
func TestSnapshot_KindMismatch(t *testing.T) {
	s := newTestSession(t, greetingGraph(t))
	startSession(t, s)
	snap := s.Snapshot()
	snap.NodeID = "pick" // choice node, but state says awaiting advance

	g := s.Graph()
	_, err := RestoreSession(g, Validate(g), nil, snap)
	assert.ErrorIs(t, err, ErrSnapshotNode)
}

// captureMetrics records RecordSnapshot calls for assertions.
type captureMetrics struct {
	observability.NoopMetrics
	snapshotSizes []int64
}

func (m *captureMetrics) RecordSnapshot(_ context.Context, sizeBytes int64) {
	m.snapshotSizes = append(m.snapshotSizes, sizeBytes)
}

// TestSnapshot_RecordsEncodedSize verifies taking a snapshot reports its
// marshaled size to the metrics recorder.
func TestSnapshot_RecordsEncodedSize(t *testing.T) {
	metrics := &captureMetrics{}
	s := newTestSession(t, greetingGraph(t), WithMetrics(metrics))
	startSession(t, s)

	snap := s.Snapshot()
	data, err := MarshalSnapshot(snap)
	require.NoError(t, err)

	require.Len(t, metrics.snapshotSizes, 1)
	assert.Equal(t, int64(len(data)), metrics.snapshotSizes[0])
}

// TestSnapshot_EndedAndFresh verify terminal and unstarted snapshots
// restore without a position.
func TestSnapshot_EndedAndFresh(t *testing.T) {
	s := newTestSession(t, greetingGraph(t))
	_, err := s.Stop(context.Background())
	require.NoError(t, err)

	snap := s.Snapshot()
	g := s.Graph()
	restored, err := RestoreSession(g, Validate(g), nil, snap)
	require.NoError(t, err)
	assert.Equal(t, StateEnded, restored.State())
	_, ok := restored.CurrentNodeID()
	assert.False(t, ok)
}
