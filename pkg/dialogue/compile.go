package dialogue

import (
	"errors"
	"fmt"
	"sort"

	"github.com/funkusgames/dialogue/pkg/dialogue/expr"
)

// Build validates the authored structure and creates an immutable Graph.
// Multiple problems are joined into one error.
//
// Checks (in order):
//  1. At least one start node, and every start references an existing node
//  2. All edge endpoints reference existing nodes
//  3. All jump targets reference existing nodes
//  4. All guard, condition and effect expressions parse
//
// Deeper structural analysis (reachability, cycle exits, static typing)
// is the Validator's job; see Validate.
func (b *Builder) Build() (*Graph, error) {
	var errs []error

	if len(b.starts) == 0 {
		errs = append(errs, ErrNoStartNode)
	}
	startSet := make(map[NodeID]bool, len(b.starts))
	for _, id := range b.starts {
		if _, exists := b.nodes[id]; !exists {
			errs = append(errs, fmt.Errorf("%w: start node %s", ErrNodeNotFound, id))
			continue
		}
		startSet[id] = true
	}

	for _, spec := range b.edges {
		if _, exists := b.nodes[spec.from]; !exists {
			errs = append(errs, fmt.Errorf("%w: edge source %s", ErrNodeNotFound, spec.from))
		}
		if _, exists := b.nodes[spec.to]; !exists {
			errs = append(errs, fmt.Errorf("%w: edge target %s", ErrNodeNotFound, spec.to))
		}
	}

	for _, id := range b.order {
		n := b.nodes[id]
		if n.Kind == KindJump {
			if _, exists := b.nodes[n.Target]; !exists {
				errs = append(errs, fmt.Errorf("%w: jump target %s (from node %s)", ErrNodeNotFound, n.Target, id))
			}
		}
	}

	// Compile condition expressions.
	conditions := make(map[NodeID]*expr.Compiled, len(b.condSrc))
	for id, src := range b.condSrc {
		c, err := expr.Compile(src)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: condition on node %s: %v", ErrBadExpression, id, err))
			continue
		}
		conditions[id] = c
	}

	// Compile effect expressions.
	for _, id := range b.order {
		n := b.nodes[id]
		for i := range n.Effects {
			eff := &n.Effects[i]
			if eff.Kind != EffectAssign {
				continue
			}
			c, err := expr.Compile(eff.Src)
			if err != nil {
				errs = append(errs, fmt.Errorf("%w: effect %d on node %s: %v", ErrBadExpression, i, id, err))
				continue
			}
			eff.compiled = c
		}
	}

	// Compile guards and attach edges in authored order.
	byic := make(map[NodeID][]edgeSpec)
	for _, spec := range b.edges {
		byic[spec.from] = append(byic[spec.from], spec)
	}
	for from, specs := range byic {
		sort.SliceStable(specs, func(i, j int) bool {
			if specs[i].ordinal != specs[j].ordinal {
				return specs[i].ordinal < specs[j].ordinal
			}
			return specs[i].seq < specs[j].seq
		})
		n, exists := b.nodes[from]
		if !exists {
			continue
		}
		edges := make([]Edge, 0, len(specs))
		for _, spec := range specs {
			e := Edge{
				From:    spec.from,
				To:      spec.to,
				Label:   spec.label,
				Ordinal: spec.ordinal,
				When:    spec.when,
			}
			if spec.guardSrc != "" {
				c, err := expr.Compile(spec.guardSrc)
				if err != nil {
					errs = append(errs, fmt.Errorf("%w: guard on edge %s->%s: %v", ErrBadExpression, spec.from, spec.to, err))
					continue
				}
				e.Guard = c
			}
			edges = append(edges, e)
		}
		n.edges = edges
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	// Copy everything the builder owns so later builder reuse cannot
	// reach into the graph.
	nodes := make(map[NodeID]*Node, len(b.nodes))
	order := make([]NodeID, len(b.order))
	copy(order, b.order)
	for id, n := range b.nodes {
		cp := *n
		if c, ok := conditions[id]; ok {
			cp.Condition = c
		}
		nodes[id] = &cp
	}
	starts := make([]NodeID, 0, len(b.starts))
	seen := make(map[NodeID]bool, len(b.starts))
	for _, id := range b.starts {
		if !seen[id] {
			seen[id] = true
			starts = append(starts, id)
		}
	}
	decls := make(map[string]expr.Kind, len(b.decls))
	for name, kind := range b.decls {
		decls[name] = kind
	}

	return &Graph{
		name:     b.name,
		nodes:    nodes,
		order:    order,
		starts:   starts,
		startSet: startSet,
		decls:    decls,
	}, nil
}
