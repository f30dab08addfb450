package dialogue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/funkusgames/dialogue/pkg/dialogue/expr"
	"github.com/funkusgames/dialogue/pkg/dialogue/observability"
)

// SnapshotVersion is the current snapshot schema version. Bump when the
// Snapshot layout changes incompatibly.
const SnapshotVersion = 1

// Snapshot is a serializable capture of a session between calls. It
// holds the position, state and local variables; the graph itself and
// the shared global store are persisted by the host. Offered choices
// are not stored, they are recomputed on restore.
type Snapshot struct {
	Version   int                   `json:"version" yaml:"version"`
	SessionID string                `json:"session_id" yaml:"session_id"`
	GraphName string                `json:"graph_name,omitempty" yaml:"graph_name,omitempty"`
	State     SessionState          `json:"state" yaml:"state"`
	NodeID    string                `json:"node_id,omitempty" yaml:"node_id,omitempty"`
	Locals    map[string]expr.Value `json:"locals,omitempty" yaml:"locals,omitempty"`
	TakenAt   time.Time             `json:"taken_at" yaml:"taken_at"`
}

// Snapshot captures the session's current position, state and local
// variables. Valid in any state; a snapshot taken mid-conversation
// restores to the same interactive node with the same locals.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		Version:   SnapshotVersion,
		SessionID: s.id,
		GraphName: s.graph.Name(),
		State:     s.state,
		NodeID:    string(s.current),
		Locals:    s.locals.Export(),
		TakenAt:   time.Now().UTC(),
	}
	size := snapshotSize(snap)
	s.cfg.metrics.RecordSnapshot(context.Background(), size)
	observability.LogSnapshot(s.logger, s.id, "take", int(size))
	return snap
}

// snapshotSize returns the snapshot's encoded size in bytes.
func snapshotSize(snap Snapshot) int64 {
	data, err := json.Marshal(snap)
	if err != nil {
		return 0
	}
	return int64(len(data))
}

// MarshalSnapshot encodes a snapshot as JSON.
func MarshalSnapshot(snap Snapshot) ([]byte, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return data, nil
}

// UnmarshalSnapshot decodes a snapshot and verifies its version.
func UnmarshalSnapshot(data []byte) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if snap.Version != SnapshotVersion {
		return Snapshot{}, fmt.Errorf("%w: got %d, want %d", ErrSnapshotVersion, snap.Version, SnapshotVersion)
	}
	return snap, nil
}

// RestoreSession rebuilds a session from a snapshot over the same graph
// (or a compatible revision of it). The report gate applies as in
// NewSession. The snapshot's position must name a node that still
// exists with the interactive kind the state implies; offered choices
// are recomputed against current variable values.
func RestoreSession(g *Graph, report *Report, globals *Store, snap Snapshot, opts ...SessionOption) (*Session, error) {
	if snap.Version != SnapshotVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrSnapshotVersion, snap.Version, SnapshotVersion)
	}

	all := make([]SessionOption, 0, len(opts)+1)
	all = append(all, WithSessionID(snap.SessionID))
	all = append(all, opts...)

	s, err := NewSession(g, report, globals, all...)
	if err != nil {
		return nil, err
	}
	s.locals.Import(snap.Locals)

	switch snap.State {
	case StateNotStarted, StateEnded:
		s.state = snap.State
		return s, nil

	case StateAwaitingAdvance, StateAwaitingChoice:
		id := NodeID(snap.NodeID)
		n, ok := g.Node(id)
		if !ok {
			return nil, fmt.Errorf("%w: node %s no longer exists", ErrSnapshotNode, id)
		}
		want := KindText
		if snap.State == StateAwaitingChoice {
			want = KindChoice
		}
		if n.Kind != want {
			return nil, fmt.Errorf("%w: node %s is %s, want %s", ErrSnapshotNode, id, n.Kind, want)
		}

		s.state = snap.State
		s.current = id
		if snap.State == StateAwaitingChoice {
			offered, err := s.eligibleChoices(n)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrSnapshotNode, err)
			}
			if len(offered) == 0 {
				return nil, fmt.Errorf("%w: no eligible choices at %s", ErrSnapshotNode, id)
			}
			s.offered = offered
		}
		observability.LogSnapshot(s.logger, s.id, "restore", int(snapshotSize(snap)))
		return s, nil

	default:
		return nil, fmt.Errorf("%w: unknown state %d", ErrSnapshotNode, snap.State)
	}
}
