package dialogue

import (
	"fmt"
	"strings"

	"github.com/funkusgames/dialogue/pkg/dialogue/expr"
)

// Builder is a mutable builder for dialogue graphs. Chain AddText,
// AddChoice, AddCondition, AddAction, AddJump, Connect and AddStart
// calls, then Build() to produce the immutable Graph.
//
// Builder is NOT thread-safe and panics on programmer misuse (empty or
// duplicate ids, nil payloads). Data-level problems (unknown edge
// targets, unparsable expressions, missing starts) surface as errors
// from Build, so edges and starts may be added in any order.
//
// Example:
//
//	g, err := dialogue.NewBuilder().
//	    AddText("hello", "Guide", "Hello there!").
//	    AddChoice("pick").
//	    AddText("yes", "Guide", "Glad to hear it.").
//	    AddText("no", "Guide", "A shame.").
//	    Connect("hello", "pick").
//	    Connect("pick", "yes", dialogue.WithLabel("Yes")).
//	    Connect("pick", "no", dialogue.WithLabel("No")).
//	    AddStart("hello").
//	    Build()
type Builder struct {
	name   string
	nodes  map[NodeID]*Node
	order  []NodeID
	edges  []edgeSpec
	starts []NodeID
	decls  map[string]expr.Kind

	// Condition sources, compiled at Build.
	condSrc map[NodeID]string
}

// edgeSpec is an edge as authored, before guard compilation.
type edgeSpec struct {
	from, to NodeID
	guardSrc string
	label    string
	ordinal  int
	when     *bool
	seq      int
}

// NewBuilder creates an empty graph builder.
func NewBuilder() *Builder {
	return &Builder{
		nodes:   make(map[NodeID]*Node),
		decls:   make(map[string]expr.Kind),
		condSrc: make(map[NodeID]string),
	}
}

// Name sets the graph's display name.
// Returns the builder for method chaining.
func (b *Builder) Name(name string) *Builder {
	b.name = name
	return b
}

// addNode registers a node, enforcing id hygiene.
func (b *Builder) addNode(n *Node) {
	if n.ID == "" {
		panic("dialogue: node id cannot be empty")
	}
	if strings.ContainsAny(string(n.ID), " \t\n\r") {
		panic("dialogue: node id cannot contain whitespace")
	}
	if _, exists := b.nodes[n.ID]; exists {
		panic(fmt.Sprintf("dialogue: duplicate node id: %s", n.ID))
	}
	b.nodes[n.ID] = n
	b.order = append(b.order, n.ID)
}

// TextOption configures a text node.
type TextOption func(*Node)

// WithPortrait sets the portrait asset key shown with the line.
func WithPortrait(portrait string) TextOption {
	return func(n *Node) { n.Portrait = portrait }
}

// WithAutoAdvance marks the line as auto-advancing: the host should call
// Advance after its own delay instead of waiting for player input.
func WithAutoAdvance() TextOption {
	return func(n *Node) { n.AutoAdvance = true }
}

// AddText adds a text node that shows one line of dialogue.
// Returns the builder for method chaining.
func (b *Builder) AddText(id NodeID, speaker, text string, opts ...TextOption) *Builder {
	n := &Node{ID: id, Kind: KindText, Speaker: speaker, Text: text}
	for _, opt := range opts {
		opt(n)
	}
	b.addNode(n)
	return b
}

// AddChoice adds a choice node. The per-option labels and guards live on
// the node's outgoing edges.
// Returns the builder for method chaining.
func (b *Builder) AddChoice(id NodeID) *Builder {
	b.addNode(&Node{ID: id, Kind: KindChoice})
	return b
}

// AddCondition adds a condition node that evaluates src and routes by
// the result. src is compiled at Build; parse failures are Build errors.
// Returns the builder for method chaining.
func (b *Builder) AddCondition(id NodeID, src string) *Builder {
	if strings.TrimSpace(src) == "" {
		panic("dialogue: condition expression cannot be empty")
	}
	b.addNode(&Node{ID: id, Kind: KindCondition})
	b.condSrc[id] = src
	return b
}

// AddAction adds an action node with an ordered effect batch.
// Returns the builder for method chaining.
func (b *Builder) AddAction(id NodeID, effects ...Effect) *Builder {
	if len(effects) == 0 {
		panic("dialogue: action node needs at least one effect")
	}
	b.addNode(&Node{ID: id, Kind: KindAction, Effects: effects})
	return b
}

// AddJump adds a jump node that transfers control to target.
// Returns the builder for method chaining.
func (b *Builder) AddJump(id, target NodeID) *Builder {
	if target == "" {
		panic("dialogue: jump target cannot be empty")
	}
	b.addNode(&Node{ID: id, Kind: KindJump, Target: target})
	return b
}

// EdgeOption configures an edge added with Connect.
type EdgeOption func(*edgeSpec)

// WithGuard gates the edge on a boolean expression, compiled at Build.
func WithGuard(src string) EdgeOption {
	return func(e *edgeSpec) { e.guardSrc = src }
}

// WithLabel sets the display text offered for the edge when its source
// is a choice node.
func WithLabel(label string) EdgeOption {
	return func(e *edgeSpec) { e.label = label }
}

// WithOrdinal fixes the edge's position in the source node's authored
// ordering. Edges without ordinals keep insertion order.
func WithOrdinal(n int) EdgeOption {
	return func(e *edgeSpec) { e.ordinal = n }
}

// WithWhen tags the edge as a condition node's true- or false-edge.
func WithWhen(result bool) EdgeOption {
	return func(e *edgeSpec) { e.when = &result }
}

// Connect adds a directed edge. Endpoint existence is checked at Build,
// not here, so edges may be added in any order. Self-loops are permitted.
// Returns the builder for method chaining.
func (b *Builder) Connect(from, to NodeID, opts ...EdgeOption) *Builder {
	if from == "" || to == "" {
		panic("dialogue: edge endpoints cannot be empty")
	}
	spec := edgeSpec{from: from, to: to, seq: len(b.edges)}
	for _, opt := range opts {
		opt(&spec)
	}
	b.edges = append(b.edges, spec)
	return b
}

// AddStart designates a start node. A graph may have several; hosts pick
// one with StartAt when more than one exists.
// Returns the builder for method chaining.
func (b *Builder) AddStart(id NodeID) *Builder {
	if id == "" {
		panic("dialogue: start node id cannot be empty")
	}
	b.starts = append(b.starts, id)
	return b
}

// DeclareVar declares a variable's kind for the validator's static
// expression checks. Declarations are optional; undeclared variables are
// only type-checked at runtime.
// Returns the builder for method chaining.
func (b *Builder) DeclareVar(name string, kind expr.Kind) *Builder {
	if name == "" {
		panic("dialogue: variable name cannot be empty")
	}
	b.decls[name] = kind
	return b
}
