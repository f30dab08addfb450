package dialogue

import (
	"errors"
	"fmt"
)

// Sentinel errors for graph building.
var (
	// ErrNoStartNode indicates Build was called with an empty start set.
	ErrNoStartNode = errors.New("no start node set")

	// ErrNodeNotFound indicates an edge, jump or start references a
	// node id absent from the graph.
	ErrNodeNotFound = errors.New("node not found")

	// ErrDuplicateNode indicates a document declared the same node id twice.
	ErrDuplicateNode = errors.New("duplicate node id")

	// ErrBadExpression indicates a guard, condition or effect expression
	// failed to parse.
	ErrBadExpression = errors.New("bad expression")
)

// Sentinel errors for session creation.
var (
	// ErrReportRequired indicates NewSession was called without a
	// validation report for the graph.
	ErrReportRequired = errors.New("validation report required")

	// ErrFatalDiagnostics indicates the graph's validation report contains
	// fatal diagnostics and no session may be created from it.
	ErrFatalDiagnostics = errors.New("graph has fatal diagnostics")

	// ErrAmbiguousStart indicates Start was called on a graph with more
	// than one start node; the host must pick one with StartAt.
	ErrAmbiguousStart = errors.New("graph has multiple start nodes")
)

// Sentinel errors for session execution. Typed wrappers below carry
// per-failure context and unwrap to these for errors.Is checks.
var (
	// ErrNoEligibleEdge indicates no outgoing edge of the current node
	// had a passing (or absent) guard.
	ErrNoEligibleEdge = errors.New("no eligible edge")

	// ErrInvalidChoice indicates Select was called with an edge id
	// outside the currently offered eligible set.
	ErrInvalidChoice = errors.New("invalid choice")

	// ErrInvalidOperation indicates a session call that is not valid in
	// the session's current state.
	ErrInvalidOperation = errors.New("invalid operation for session state")

	// ErrActionFailed indicates an action node's effect batch was rolled
	// back; no effect was applied.
	ErrActionFailed = errors.New("action failed")

	// ErrCycleLimit indicates auto-processing exceeded the configured
	// step limit without reaching an interactive node.
	ErrCycleLimit = errors.New("exceeded step limit")

	// ErrVariableType indicates a write that conflicts with the type
	// fixed by a variable's first write.
	ErrVariableType = errors.New("variable type mismatch")
)

// Sentinel errors for snapshots.
var (
	// ErrSnapshotVersion indicates the snapshot format version is
	// incompatible with this package.
	ErrSnapshotVersion = errors.New("snapshot version mismatch")

	// ErrSnapshotNode indicates the snapshot's node id does not exist in
	// the graph it is being restored against.
	ErrSnapshotNode = errors.New("snapshot node not in graph")
)

// NoEligibleEdgeError reports a node whose outgoing edges were all
// ineligible at visit time.
type NoEligibleEdgeError struct {
	// NodeID is the node that could not be left.
	NodeID NodeID
}

// Error implements the error interface.
func (e *NoEligibleEdgeError) Error() string {
	return fmt.Sprintf("no eligible edge from node %s", e.NodeID)
}

// Unwrap returns ErrNoEligibleEdge for errors.Is support.
func (e *NoEligibleEdgeError) Unwrap() error { return ErrNoEligibleEdge }

// InvalidChoiceError reports a Select call with an unknown or
// ineligible edge id.
type InvalidChoiceError struct {
	// NodeID is the choice node the session is positioned at.
	NodeID NodeID
	// EdgeID is the rejected edge id.
	EdgeID int
}

// Error implements the error interface.
func (e *InvalidChoiceError) Error() string {
	return fmt.Sprintf("invalid choice %d at node %s", e.EdgeID, e.NodeID)
}

// Unwrap returns ErrInvalidChoice for errors.Is support.
func (e *InvalidChoiceError) Unwrap() error { return ErrInvalidChoice }

// InvalidOperationError reports a session call made in the wrong state.
type InvalidOperationError struct {
	// Op is the attempted operation ("start", "advance", "select").
	Op string
	// State is the session state at the time of the call.
	State SessionState
}

// Error implements the error interface.
func (e *InvalidOperationError) Error() string {
	return fmt.Sprintf("cannot %s in state %s", e.Op, e.State)
}

// Unwrap returns ErrInvalidOperation for errors.Is support.
func (e *InvalidOperationError) Unwrap() error { return ErrInvalidOperation }

// ActionError reports a failed action node visit. The effect batch is
// all-or-nothing: when ActionError is returned, nothing was applied.
type ActionError struct {
	// NodeID is the action node that failed.
	NodeID NodeID
	// Err is the underlying failure (type mismatch, arithmetic error...).
	Err error
}

// Error implements the error interface.
func (e *ActionError) Error() string {
	return fmt.Sprintf("action node %s: %v", e.NodeID, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
// ActionError also matches ErrActionFailed via Is.
func (e *ActionError) Unwrap() error { return e.Err }

// Is reports whether target is ErrActionFailed.
func (e *ActionError) Is(target error) bool { return target == ErrActionFailed }

// CycleLimitError reports auto-processing that ran out of steps,
// typically a guard-dependent loop the validator cannot catch statically.
type CycleLimitError struct {
	// Limit is the configured maximum step count per call.
	Limit int
	// NodeID is the node that would have been visited next.
	NodeID NodeID
}

// Error implements the error interface.
func (e *CycleLimitError) Error() string {
	return fmt.Sprintf("exceeded step limit (%d) at node %s", e.Limit, e.NodeID)
}

// Unwrap returns ErrCycleLimit for errors.Is support.
func (e *CycleLimitError) Unwrap() error { return ErrCycleLimit }

// NodeError wraps an error with the node and operation where it surfaced.
type NodeError struct {
	// NodeID is the node being visited.
	NodeID NodeID
	// Op is the phase that failed ("guard", "condition", "action", "visit").
	Op string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s: %s: %v", e.NodeID, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *NodeError) Unwrap() error { return e.Err }

// VariableTypeError reports a write whose value kind conflicts with the
// kind fixed by the variable's first write.
type VariableTypeError struct {
	// Name is the variable name.
	Name string
	// Want is the kind fixed at first write; Got is the rejected kind.
	Want, Got string
}

// Error implements the error interface.
func (e *VariableTypeError) Error() string {
	return fmt.Sprintf("variable %s is %s, cannot assign %s", e.Name, e.Want, e.Got)
}

// Unwrap returns ErrVariableType for errors.Is support.
func (e *VariableTypeError) Unwrap() error { return ErrVariableType }
