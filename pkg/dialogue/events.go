package dialogue

import "github.com/funkusgames/dialogue/pkg/dialogue/expr"

// Event is one observable dialogue occurrence. Each Start, Advance and
// Select call returns the finite ordered sequence of events it produced.
//
// The variant set is closed: LineShown, ChoicesOffered, ActionPerformed,
// VariableChanged and SessionEnded.
type Event interface {
	isEvent()
}

// LineShown reports a line of dialogue to display.
type LineShown struct {
	// NodeID is the text node that produced the line.
	NodeID NodeID
	// Speaker identifies who says the line.
	Speaker string
	// Text is the line content or localization key.
	Text string
	// Portrait is an optional portrait asset key.
	Portrait string
	// AutoAdvance hints that the host should advance after its own
	// delay rather than waiting for player input.
	AutoAdvance bool
}

// ChoiceOption is one selectable option of a ChoicesOffered event.
type ChoiceOption struct {
	// EdgeID identifies the edge to pass to Select. It is the edge's
	// index in the choice node's authored outgoing order.
	EdgeID int
	// Label is the display text for the option.
	Label string
}

// ChoicesOffered reports the eligible options at a choice node, in
// authored order. The session is suspended until Select is called.
type ChoicesOffered struct {
	// NodeID is the choice node.
	NodeID NodeID
	// Options are exactly the edges whose guard passed or was absent.
	Options []ChoiceOption
}

// ActionPerformed reports a custom event raised by an action node's
// emit effect, after the node's whole effect batch committed.
type ActionPerformed struct {
	// NodeID is the action node.
	NodeID NodeID
	// Name is the author-chosen event name.
	Name string
	// Payload is the author-chosen event payload.
	Payload map[string]any
}

// VariableChanged reports a committed variable assignment.
type VariableChanged struct {
	// Name is the variable name.
	Name string
	// Scope is the namespace written to.
	Scope Scope
	// Value is the new value.
	Value expr.Value
}

// SessionEnded reports that the conversation reached an end.
type SessionEnded struct{}

func (LineShown) isEvent()       {}
func (ChoicesOffered) isEvent()  {}
func (ActionPerformed) isEvent() {}
func (VariableChanged) isEvent() {}
func (SessionEnded) isEvent()    {}
