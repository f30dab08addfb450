package dialogue

import "github.com/funkusgames/dialogue/pkg/dialogue/expr"

// Graph is an immutable dialogue graph produced by Builder.Build or
// Document.Build. It has no mutation API, so any number of concurrent
// sessions can share one Graph without locking.
type Graph struct {
	name     string
	nodes    map[NodeID]*Node
	order    []NodeID
	starts   []NodeID
	startSet map[NodeID]bool
	decls    map[string]expr.Kind
}

// Name returns the graph's display name, or "".
func (g *Graph) Name() string { return g.name }

// Node returns the node for the given id.
// The returned node is shared and must be treated as read-only.
func (g *Graph) Node(id NodeID) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Outgoing returns the node's outgoing edges in authored order.
// Returns nil for unknown nodes.
func (g *Graph) Outgoing(id NodeID) []Edge {
	n, ok := g.nodes[id]
	if !ok {
		return nil
	}
	return n.edges
}

// IsStart reports whether the node is a designated start node.
func (g *Graph) IsStart(id NodeID) bool { return g.startSet[id] }

// Starts returns the designated start nodes in authored order.
func (g *Graph) Starts() []NodeID {
	out := make([]NodeID, len(g.starts))
	copy(out, g.starts)
	return out
}

// NodeIDs returns all node ids in authored order.
func (g *Graph) NodeIDs() []NodeID {
	out := make([]NodeID, len(g.order))
	copy(out, g.order)
	return out
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int { return len(g.nodes) }

// Declarations returns the declared variable kinds used by the
// validator's static expression checks.
func (g *Graph) Declarations() map[string]expr.Kind {
	out := make(map[string]expr.Kind, len(g.decls))
	for name, kind := range g.decls {
		out[name] = kind
	}
	return out
}
