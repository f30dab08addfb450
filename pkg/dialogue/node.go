package dialogue

import "github.com/funkusgames/dialogue/pkg/dialogue/expr"

// NodeID is the stable, author-assigned identity of a node.
// IDs are immutable after authoring and double as serializable references.
type NodeID string

// NodeKind tags the variant of a Node. The set is closed; the engine
// switches over it and the document format maps each kind to a type name.
type NodeKind int

const (
	// KindText shows a line of dialogue, then follows its single
	// eligible edge on Advance.
	KindText NodeKind = iota + 1
	// KindChoice offers its eligible edges to the player and suspends
	// until Select.
	KindChoice
	// KindCondition evaluates an expression and routes by the result
	// without host interaction.
	KindCondition
	// KindAction applies an all-or-nothing effect batch, then follows
	// its single eligible edge.
	KindAction
	// KindJump transfers control to its target node without emitting
	// a line event.
	KindJump
)

// String returns the kind name used in documents and diagnostics.
func (k NodeKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindChoice:
		return "choice"
	case KindCondition:
		return "condition"
	case KindAction:
		return "action"
	case KindJump:
		return "jump"
	default:
		return "unknown"
	}
}

// Interactive reports whether a visit to this kind suspends for host input.
func (k NodeKind) Interactive() bool {
	return k == KindText || k == KindChoice
}

// Node is one dialogue beat or control unit. Exactly the payload fields
// for the node's Kind are populated; the rest stay zero.
//
// Nodes are owned by their Graph and must not be mutated after Build.
type Node struct {
	ID   NodeID
	Kind NodeKind

	// Text payload.
	Speaker     string
	Text        string
	Portrait    string
	AutoAdvance bool

	// Condition payload.
	Condition *expr.Compiled

	// Action payload.
	Effects []Effect

	// Jump payload.
	Target NodeID

	edges []Edge
}

// Edges returns the node's outgoing edges in authored order
// (ordinal first, insertion order as tie-break).
func (n *Node) Edges() []Edge { return n.edges }

// EffectKind tags the variant of an action effect.
type EffectKind int

const (
	// EffectAssign writes the result of an expression to a variable.
	EffectAssign EffectKind = iota + 1
	// EffectEmit raises a custom host event with a payload.
	EffectEmit
)

// Effect is one entry in an action node's ordered effect batch.
// Assignment expressions are given as source text and compiled at Build.
type Effect struct {
	Kind EffectKind

	// Assign payload.
	Scope Scope
	Name  string
	Src   string

	// Emit payload.
	Event   string
	Payload map[string]any

	compiled *expr.Compiled
}

// Assign returns an effect that evaluates src and writes the result to
// the named variable in the given scope.
func Assign(scope Scope, name, src string) Effect {
	return Effect{Kind: EffectAssign, Scope: scope, Name: name, Src: src}
}

// Emit returns an effect that raises a custom event to the host.
func Emit(event string, payload map[string]any) Effect {
	return Effect{Kind: EffectEmit, Event: event, Payload: payload}
}

// Edge is a directed transition between nodes. Identity within a node is
// positional: an edge's id is its index in the source node's ordered
// outgoing list, which is what ChoicesOffered and Select use.
type Edge struct {
	From NodeID
	To   NodeID

	// Guard gates eligibility; nil means always eligible.
	Guard *expr.Compiled

	// Label is the display text when the source is a choice node.
	Label string

	// Ordinal fixes authored ordering across serialization.
	Ordinal int

	// When tags a condition node's conventional true/false edges.
	// Nil on edges that route by guard or unconditionally.
	When *bool
}
