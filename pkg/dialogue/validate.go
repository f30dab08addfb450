package dialogue

import (
	"errors"
	"fmt"

	"github.com/funkusgames/dialogue/pkg/dialogue/expr"
)

// Severity grades a validation diagnostic. Fatal diagnostics block
// session creation; warnings are advisory and the host decides.
type Severity int

const (
	// SeverityWarning marks an advisory diagnostic.
	SeverityWarning Severity = iota
	// SeverityFatal marks a diagnostic that makes the graph unusable.
	SeverityFatal
)

// String returns the severity name.
func (s Severity) String() string {
	if s == SeverityFatal {
		return "fatal"
	}
	return "warning"
}

// Category names the check a diagnostic came from.
type Category string

// Diagnostic categories, one per validator check.
const (
	// CategoryUnreachable flags nodes no start node can reach.
	CategoryUnreachable Category = "unreachable"
	// CategoryReference flags edges or jumps to missing nodes.
	CategoryReference Category = "reference"
	// CategoryCycleExit flags strongly-connected components with no
	// edge leaving the component.
	CategoryCycleExit Category = "cycle-exit"
	// CategoryJumpCycle flags jump chains that loop without reaching
	// a text or choice node.
	CategoryJumpCycle Category = "jump-cycle"
	// CategoryTypeCheck flags expressions that statically mismatch the
	// graph's declared variable kinds.
	CategoryTypeCheck Category = "type-check"
)

// Diagnostic is one validator finding.
type Diagnostic struct {
	Severity Severity
	Category Category
	// NodeID names the implicated node, or "" for graph-level findings.
	NodeID  NodeID
	Message string
}

// String formats the diagnostic for logs and error text.
func (d Diagnostic) String() string {
	if d.NodeID != "" {
		return fmt.Sprintf("%s [%s] node %s: %s", d.Severity, d.Category, d.NodeID, d.Message)
	}
	return fmt.Sprintf("%s [%s] %s", d.Severity, d.Category, d.Message)
}

// Report is the ordered outcome of validating a graph. Session creation
// requires a Report whose Fatal() is false; the caller accepting the
// report is the explicit gate the runtime enforces.
type Report struct {
	diags []Diagnostic
}

// Diagnostics returns all findings in check order.
func (r *Report) Diagnostics() []Diagnostic {
	out := make([]Diagnostic, len(r.diags))
	copy(out, r.diags)
	return out
}

// Ok reports whether validation produced no findings at all.
func (r *Report) Ok() bool { return len(r.diags) == 0 }

// Fatal reports whether any finding is fatal.
func (r *Report) Fatal() bool {
	for _, d := range r.diags {
		if d.Severity == SeverityFatal {
			return true
		}
	}
	return false
}

// Warnings returns only the warning-level findings.
func (r *Report) Warnings() []Diagnostic {
	var out []Diagnostic
	for _, d := range r.diags {
		if d.Severity == SeverityWarning {
			out = append(out, d)
		}
	}
	return out
}

// Err returns the fatal findings joined into one error, or nil.
func (r *Report) Err() error {
	var errs []error
	for _, d := range r.diags {
		if d.Severity == SeverityFatal {
			errs = append(errs, errors.New(d.String()))
		}
	}
	return errors.Join(errs...)
}

// Validate runs the static checks on a built graph. It runs once per
// graph, before any session is created from it.
//
// Checks, each with its own diagnostic category:
//   - referential integrity of edges and jump targets (fatal)
//   - reachability of every node from some start node (warning)
//   - every multi-node or self-looping strongly-connected component has
//     an edge leaving the component (fatal)
//   - jump chains always reach a text or choice node (fatal)
//   - expressions type-check against declared variable kinds (warning)
func Validate(g *Graph) *Report {
	r := &Report{}
	checkReferences(g, r)
	checkReachability(g, r)
	checkCycleExits(g, r)
	checkJumpCycles(g, r)
	checkTypes(g, r)
	return r
}

// successors returns the ids traversal can move to from the node,
// including a jump node's implicit target edge.
func successors(n *Node) []NodeID {
	out := make([]NodeID, 0, len(n.edges)+1)
	for _, e := range n.edges {
		out = append(out, e.To)
	}
	if n.Kind == KindJump {
		out = append(out, n.Target)
	}
	return out
}

func checkReferences(g *Graph, r *Report) {
	for _, id := range g.order {
		n := g.nodes[id]
		for _, to := range successors(n) {
			if _, exists := g.nodes[to]; !exists {
				r.diags = append(r.diags, Diagnostic{
					Severity: SeverityFatal,
					Category: CategoryReference,
					NodeID:   id,
					Message:  fmt.Sprintf("references missing node %s", to),
				})
			}
		}
	}
}

func checkReachability(g *Graph, r *Report) {
	reachable := make(map[NodeID]bool)
	queue := make([]NodeID, 0, len(g.starts))
	for _, id := range g.starts {
		if !reachable[id] {
			reachable[id] = true
			queue = append(queue, id)
		}
	}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		n, exists := g.nodes[current]
		if !exists {
			continue
		}
		for _, to := range successors(n) {
			if _, exists := g.nodes[to]; exists && !reachable[to] {
				reachable[to] = true
				queue = append(queue, to)
			}
		}
	}
	for _, id := range g.order {
		if !reachable[id] {
			r.diags = append(r.diags, Diagnostic{
				Severity: SeverityWarning,
				Category: CategoryUnreachable,
				NodeID:   id,
				Message:  "not reachable from any start node",
			})
		}
	}
}

// checkCycleExits finds strongly-connected components via Tarjan's
// algorithm and requires each cycle to have at least one edge leaving
// the component. A cycle with no exit would loop forever regardless of
// runtime state.
func checkCycleExits(g *Graph, r *Report) {
	for _, scc := range stronglyConnected(g) {
		if len(scc) == 1 {
			// Single nodes only count when they self-loop.
			id := scc[0]
			selfLoop := false
			for _, to := range successors(g.nodes[id]) {
				if to == id {
					selfLoop = true
					break
				}
			}
			if !selfLoop {
				continue
			}
		}
		member := make(map[NodeID]bool, len(scc))
		for _, id := range scc {
			member[id] = true
		}
		hasExit := false
		for _, id := range scc {
			for _, to := range successors(g.nodes[id]) {
				if _, exists := g.nodes[to]; exists && !member[to] {
					hasExit = true
					break
				}
			}
			if hasExit {
				break
			}
		}
		if !hasExit {
			r.diags = append(r.diags, Diagnostic{
				Severity: SeverityFatal,
				Category: CategoryCycleExit,
				NodeID:   scc[0],
				Message:  fmt.Sprintf("cycle of %d node(s) has no exit edge", len(scc)),
			})
		}
	}
}

// checkJumpCycles flags cycles made only of jump nodes. Jumps are
// unconditional, so such a chain can never make player-visible progress.
func checkJumpCycles(g *Graph, r *Report) {
	for _, id := range g.order {
		n := g.nodes[id]
		if n.Kind != KindJump {
			continue
		}
		// Follow the jump chain; a repeat before any non-jump node is a
		// zero-progress loop. Bounded by the number of nodes.
		seen := map[NodeID]bool{id: true}
		current := n.Target
		for steps := 0; steps <= len(g.nodes); steps++ {
			next, exists := g.nodes[current]
			if !exists || next.Kind != KindJump {
				break
			}
			if seen[current] {
				r.diags = append(r.diags, Diagnostic{
					Severity: SeverityFatal,
					Category: CategoryJumpCycle,
					NodeID:   id,
					Message:  "jump chain loops without reaching a text or choice node",
				})
				break
			}
			seen[current] = true
			current = next.Target
		}
	}
}

func checkTypes(g *Graph, r *Report) {
	decls := g.decls
	warn := func(id NodeID, what string, err error) {
		r.diags = append(r.diags, Diagnostic{
			Severity: SeverityWarning,
			Category: CategoryTypeCheck,
			NodeID:   id,
			Message:  fmt.Sprintf("%s: %v", what, err),
		})
	}
	for _, id := range g.order {
		n := g.nodes[id]
		if n.Condition != nil {
			if _, err := n.Condition.Check(decls); err != nil {
				warn(id, "condition", err)
			}
		}
		for i, eff := range n.Effects {
			if eff.Kind != EffectAssign || eff.compiled == nil {
				continue
			}
			kind, err := eff.compiled.Check(decls)
			if err != nil {
				warn(id, fmt.Sprintf("effect %d", i), err)
				continue
			}
			if want, declared := decls[eff.Name]; declared && kind != expr.KindInvalid && kind != want {
				warn(id, fmt.Sprintf("effect %d", i),
					fmt.Errorf("assigns %s to %s variable %s", kind, want, eff.Name))
			}
		}
		for _, e := range n.edges {
			if e.Guard == nil {
				continue
			}
			kind, err := e.Guard.Check(decls)
			if err != nil {
				warn(id, fmt.Sprintf("guard on edge to %s", e.To), err)
				continue
			}
			if kind != expr.KindInvalid && kind != expr.KindBool {
				warn(id, fmt.Sprintf("guard on edge to %s", e.To),
					fmt.Errorf("guard is %s, want bool", kind))
			}
		}
	}
}

// stronglyConnected returns the graph's strongly-connected components
// (Tarjan, iterative frame recursion kept simple with a helper).
func stronglyConnected(g *Graph) [][]NodeID {
	index := 0
	indices := make(map[NodeID]int, len(g.nodes))
	lowlink := make(map[NodeID]int, len(g.nodes))
	onStack := make(map[NodeID]bool, len(g.nodes))
	var stack []NodeID
	var out [][]NodeID

	var strongconnect func(v NodeID)
	strongconnect = func(v NodeID) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range successors(g.nodes[v]) {
			if _, exists := g.nodes[w]; !exists {
				continue
			}
			if _, visited := indices[w]; !visited {
				strongconnect(w)
				if lowlink[w] < lowlink[v] {
					lowlink[v] = lowlink[w]
				}
			} else if onStack[w] {
				if indices[w] < lowlink[v] {
					lowlink[v] = indices[w]
				}
			}
		}

		if lowlink[v] == indices[v] {
			var scc []NodeID
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			out = append(out, scc)
		}
	}

	for _, id := range g.order {
		if _, visited := indices[id]; !visited {
			strongconnect(id)
		}
	}
	return out
}
