package dialogue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/funkusgames/dialogue/pkg/dialogue/expr"
	"github.com/funkusgames/dialogue/pkg/dialogue/notify"
	"github.com/funkusgames/dialogue/pkg/dialogue/observability"
)

// SessionState is the externally visible state of a session.
type SessionState int

const (
	// StateNotStarted means Start has not been called.
	StateNotStarted SessionState = iota
	// StateAwaitingAdvance means the session is positioned at a text
	// node, waiting for Advance.
	StateAwaitingAdvance
	// StateAwaitingChoice means the session is positioned at a choice
	// node, waiting for Select.
	StateAwaitingChoice
	// StateEnded means the conversation is over.
	StateEnded
)

// String returns the state name.
func (s SessionState) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateAwaitingAdvance:
		return "awaiting_advance"
	case StateAwaitingChoice:
		return "awaiting_choice"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s SessionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *SessionState) UnmarshalText(text []byte) error {
	switch string(text) {
	case "not_started":
		*s = StateNotStarted
	case "awaiting_advance":
		*s = StateAwaitingAdvance
	case "awaiting_choice":
		*s = StateAwaitingChoice
	case "ended":
		*s = StateEnded
	default:
		return fmt.Errorf("unknown session state: %q", text)
	}
	return nil
}

// Session is one live conversation walking a Graph. It owns a private
// local variable scope and shares the immutable Graph and the global
// scope with other sessions.
//
// Each of Start, Advance and Select runs to completion (bounded by the
// step limit) and returns the ordered events it produced. A failed call
// leaves the session in its prior interactive state; see the package
// documentation for the exact atomicity rules.
//
// A Session is not safe for concurrent use. Mutation of a shared global
// Store from sessions on multiple goroutines needs host-provided mutual
// exclusion.
type Session struct {
	id      string
	graph   *Graph
	globals *Store
	locals  *Store
	cfg     sessionConfig
	logger  *slog.Logger

	state   SessionState
	current NodeID
	offered []ChoiceOption
	pending []notify.Notification
}

// NewSession creates a session over a validated graph.
//
// The report is the gate: passing the graph's validation report is how
// the caller accepts its diagnostics. A nil report or one with fatal
// diagnostics blocks creation. globals may be nil, in which case the
// session gets a private global store.
func NewSession(g *Graph, report *Report, globals *Store, opts ...SessionOption) (*Session, error) {
	if g == nil {
		return nil, fmt.Errorf("%w: nil graph", ErrNodeNotFound)
	}
	if report == nil {
		return nil, ErrReportRequired
	}
	if report.Fatal() {
		return nil, fmt.Errorf("%w: %v", ErrFatalDiagnostics, report.Err())
	}
	if globals == nil {
		globals = NewStore()
	}

	cfg := defaultSessionConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.id == "" {
		cfg.id = uuid.New().String()
	}

	return &Session{
		id:      cfg.id,
		graph:   g,
		globals: globals,
		locals:  NewStore(),
		cfg:     cfg,
		logger:  observability.EnrichLogger(cfg.logger, cfg.id),
		state:   StateNotStarted,
	}, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Graph returns the graph the session walks.
func (s *Session) Graph() *Graph { return s.graph }

// State returns the current session state. Repeated calls without an
// intervening Start/Advance/Select return identical results.
func (s *Session) State() SessionState { return s.state }

// CurrentNodeID returns the node the session is positioned at.
// ok is false before Start and after the session ends.
func (s *Session) CurrentNodeID() (NodeID, bool) {
	if s.state == StateAwaitingAdvance || s.state == StateAwaitingChoice {
		return s.current, true
	}
	return "", false
}

// Choices returns the currently offered options, or nil outside
// StateAwaitingChoice. The returned slice is a copy.
func (s *Session) Choices() []ChoiceOption {
	if s.state != StateAwaitingChoice {
		return nil
	}
	out := make([]ChoiceOption, len(s.offered))
	copy(out, s.offered)
	return out
}

// Var resolves a variable in the given scope.
func (s *Session) Var(scope Scope, name string) (expr.Value, bool) {
	if scope == ScopeGlobal {
		return s.globals.Get(name)
	}
	return s.locals.Get(name)
}

// Start begins the conversation at the graph's sole start node. Graphs
// with several start nodes require StartAt. Valid only in
// StateNotStarted.
func (s *Session) Start(ctx context.Context) ([]Event, error) {
	return s.do(ctx, "start", func(ctx context.Context) ([]Event, error) {
		if s.state != StateNotStarted {
			return nil, &InvalidOperationError{Op: "start", State: s.state}
		}
		starts := s.graph.Starts()
		if len(starts) != 1 {
			return nil, ErrAmbiguousStart
		}
		return s.begin(ctx, starts[0])
	})
}

// StartAt begins the conversation at the given start node, for graphs
// with more than one. Valid only in StateNotStarted.
func (s *Session) StartAt(ctx context.Context, id NodeID) ([]Event, error) {
	return s.do(ctx, "start", func(ctx context.Context) ([]Event, error) {
		if s.state != StateNotStarted {
			return nil, &InvalidOperationError{Op: "start", State: s.state}
		}
		if !s.graph.IsStart(id) {
			return nil, fmt.Errorf("%w: %s is not a start node", ErrNodeNotFound, id)
		}
		return s.begin(ctx, id)
	})
}

func (s *Session) begin(ctx context.Context, id NodeID) ([]Event, error) {
	observability.LogSessionStart(s.logger, s.id, s.graph.Name())
	s.publish(notify.KindStarted, id, 0)

	var events []Event
	if err := s.runFrom(ctx, id, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// Advance follows the current text node's eligible edge and
// auto-processes until the next interactive node or the end. Valid only
// in StateAwaitingAdvance.
func (s *Session) Advance(ctx context.Context) ([]Event, error) {
	return s.do(ctx, "advance", func(ctx context.Context) ([]Event, error) {
		if s.state != StateAwaitingAdvance {
			return nil, &InvalidOperationError{Op: "advance", State: s.state}
		}
		n, ok := s.graph.Node(s.current)
		if !ok {
			return nil, &NodeError{NodeID: s.current, Op: "visit", Err: ErrNodeNotFound}
		}

		var events []Event
		next, end, err := s.followSingle(n, nil)
		if err != nil {
			return nil, err
		}
		if end {
			s.end(ctx, &events)
			return events, nil
		}
		if err := s.runFrom(ctx, next, &events); err != nil {
			return nil, err
		}
		return events, nil
	})
}

// Select follows the chosen edge of the current choice node and
// auto-processes until the next interactive node or the end. The edge id
// must come from the currently offered eligible set. Valid only in
// StateAwaitingChoice.
func (s *Session) Select(ctx context.Context, edgeID int) ([]Event, error) {
	return s.do(ctx, "select", func(ctx context.Context) ([]Event, error) {
		if s.state != StateAwaitingChoice {
			return nil, &InvalidOperationError{Op: "select", State: s.state}
		}
		eligible := false
		for _, opt := range s.offered {
			if opt.EdgeID == edgeID {
				eligible = true
				break
			}
		}
		if !eligible {
			return nil, &InvalidChoiceError{NodeID: s.current, EdgeID: edgeID}
		}
		n, ok := s.graph.Node(s.current)
		if !ok {
			return nil, &NodeError{NodeID: s.current, Op: "visit", Err: ErrNodeNotFound}
		}

		observability.LogChoice(s.logger, s.id, edgeID)
		s.publish(notify.KindChoiceMade, s.current, edgeID)

		var events []Event
		if err := s.runFrom(ctx, n.edges[edgeID].To, &events); err != nil {
			return nil, err
		}
		return events, nil
	})
}

// Stop abandons the conversation from any live state. The session moves
// to StateEnded and emits SessionEnded. Valid in any state but
// StateEnded.
func (s *Session) Stop(ctx context.Context) ([]Event, error) {
	return s.do(ctx, "stop", func(ctx context.Context) ([]Event, error) {
		if s.state == StateEnded {
			return nil, &InvalidOperationError{Op: "stop", State: s.state}
		}
		var events []Event
		s.end(ctx, &events)
		return events, nil
	})
}

// do wraps one session call with rollback, metrics, tracing and logging.
func (s *Session) do(ctx context.Context, op string, fn func(context.Context) ([]Event, error)) ([]Event, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	done := observability.TimedOperation()
	opCtx := ctx
	var span trace.Span
	if s.cfg.tracing {
		opCtx, span = s.cfg.spans.StartOpSpan(ctx, op, s.id)
	}

	prior := s.capture()
	events, err := fn(opCtx)
	if err != nil {
		s.restore(prior)
		s.pending = nil
	}

	durationMs := done()
	s.cfg.metrics.RecordOp(ctx, op, time.Duration(durationMs)*time.Millisecond, err)
	if s.cfg.tracing {
		s.cfg.spans.EndSpanWithError(span, err)
	}

	if err != nil {
		observability.LogOpError(s.logger, s.id, op, err)
		return nil, err
	}
	s.flushNotifications()
	observability.LogOpComplete(s.logger, s.id, op, durationMs, len(events))
	return events, nil
}

// priorState is what restore puts back after a failed call. Local
// variables roll back with the position; committed batches in the shared
// global store stay, since other sessions may have observed them.
type priorState struct {
	state   SessionState
	current NodeID
	offered []ChoiceOption
	locals  map[string]expr.Value
}

func (s *Session) capture() priorState {
	return priorState{
		state:   s.state,
		current: s.current,
		offered: s.offered,
		locals:  s.locals.Export(),
	}
}

func (s *Session) restore(p priorState) {
	s.state = p.state
	s.current = p.current
	s.offered = p.offered
	s.locals.Import(p.locals)
}

// runFrom walks the graph from id, auto-processing non-interactive nodes
// until a text or choice node suspends the session or the graph ends.
// steps bounds the walk; exceeding the limit fails with CycleLimitError.
func (s *Session) runFrom(ctx context.Context, id NodeID, events *[]Event) error {
	current := id
	steps := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, ok := s.graph.Node(current)
		if !ok {
			return &NodeError{NodeID: current, Op: "visit", Err: ErrNodeNotFound}
		}

		observability.LogNodeVisit(s.logger, s.id, string(current), n.Kind.String())
		s.cfg.metrics.RecordNodeVisit(ctx, n.Kind.String())

		nodeCtx := ctx
		var span trace.Span
		if s.cfg.tracing {
			nodeCtx, span = s.cfg.spans.StartNodeSpan(ctx, string(current))
		}

		next, done, err := s.visit(nodeCtx, n, events, &steps)

		if s.cfg.tracing {
			s.cfg.spans.EndSpanWithError(span, err)
		}
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		current = next
	}
}

// visit processes one node. done is true when the session suspended or
// ended; otherwise next names the node to continue with.
func (s *Session) visit(ctx context.Context, n *Node, events *[]Event, steps *int) (next NodeID, done bool, err error) {
	switch n.Kind {
	case KindText:
		*events = append(*events, LineShown{
			NodeID:      n.ID,
			Speaker:     n.Speaker,
			Text:        n.Text,
			Portrait:    n.Portrait,
			AutoAdvance: n.AutoAdvance,
		})
		s.settle(n.ID, StateAwaitingAdvance, nil)
		return "", true, nil

	case KindChoice:
		opts, err := s.eligibleChoices(n)
		if err != nil {
			return "", false, err
		}
		if len(opts) == 0 {
			return "", false, &NoEligibleEdgeError{NodeID: n.ID}
		}
		offered := make([]ChoiceOption, len(opts))
		copy(offered, opts)
		*events = append(*events, ChoicesOffered{NodeID: n.ID, Options: offered})
		s.settle(n.ID, StateAwaitingChoice, opts)
		return "", true, nil
	}

	*steps++
	if *steps > s.cfg.maxSteps {
		return "", false, &CycleLimitError{Limit: s.cfg.maxSteps, NodeID: n.ID}
	}

	switch n.Kind {
	case KindCondition:
		result, err := n.Condition.Eval(s.env(nil))
		if err != nil {
			return "", false, &NodeError{NodeID: n.ID, Op: "condition", Err: err}
		}
		next, end, err := s.conditionNext(n, result)
		if err != nil {
			return "", false, err
		}
		if end {
			s.end(ctx, events)
			return "", true, nil
		}
		return next, false, nil

	case KindAction:
		evs, err := s.applyEffects(n)
		if err != nil {
			return "", false, &ActionError{NodeID: n.ID, Err: err}
		}
		*events = append(*events, evs...)
		next, end, err := s.followSingle(n, nil)
		if err != nil {
			return "", false, err
		}
		if end {
			s.end(ctx, events)
			return "", true, nil
		}
		return next, false, nil

	case KindJump:
		return n.Target, false, nil
	}
	return "", false, &NodeError{NodeID: n.ID, Op: "visit", Err: fmt.Errorf("unknown node kind %d", n.Kind)}
}

// settle parks the session at an interactive node.
func (s *Session) settle(id NodeID, state SessionState, offered []ChoiceOption) {
	s.current = id
	s.state = state
	s.offered = offered
	s.publish(notify.KindNodeActivated, id, 0)
}

// end moves the session to StateEnded and emits SessionEnded.
func (s *Session) end(ctx context.Context, events *[]Event) {
	s.state = StateEnded
	s.current = ""
	s.offered = nil
	*events = append(*events, SessionEnded{})
	s.publish(notify.KindEnded, "", 0)
	s.cfg.metrics.RecordSessionEnd(ctx)
	observability.LogSessionEnd(s.logger, s.id)
}

// followSingle picks the first edge whose guard passes or is absent, in
// authored order. end is true when the node has no outgoing edges.
func (s *Session) followSingle(n *Node, result *expr.Value) (next NodeID, end bool, err error) {
	if len(n.edges) == 0 {
		return "", true, nil
	}
	env := s.env(result)
	for _, e := range n.edges {
		if e.Guard == nil {
			return e.To, false, nil
		}
		ok, err := e.Guard.EvalBool(env)
		if err != nil {
			return "", false, &NodeError{NodeID: n.ID, Op: "guard", Err: err}
		}
		if ok {
			return e.To, false, nil
		}
	}
	return "", false, &NoEligibleEdgeError{NodeID: n.ID}
}

// conditionNext routes a condition node by its evaluated result.
// When-tagged edges match a boolean result directly; guarded edges see
// the result bound as "result"; an untagged, unguarded edge is the
// fallback. First eligible in authored order wins.
func (s *Session) conditionNext(n *Node, result expr.Value) (next NodeID, end bool, err error) {
	if len(n.edges) == 0 {
		return "", true, nil
	}
	env := s.env(&result)
	for _, e := range n.edges {
		switch {
		case e.When != nil:
			if result.Kind() != expr.KindBool {
				return "", false, &NodeError{
					NodeID: n.ID,
					Op:     "condition",
					Err:    &expr.TypeMismatchError{Op: "when", Left: result.Kind(), Right: expr.KindBool},
				}
			}
			if *e.When == result.AsBool() {
				return e.To, false, nil
			}
		case e.Guard != nil:
			ok, err := e.Guard.EvalBool(env)
			if err != nil {
				return "", false, &NodeError{NodeID: n.ID, Op: "guard", Err: err}
			}
			if ok {
				return e.To, false, nil
			}
		default:
			return e.To, false, nil
		}
	}
	return "", false, &NoEligibleEdgeError{NodeID: n.ID}
}

// eligibleChoices returns the options whose guard passes or is absent,
// in authored order, with positional edge ids.
func (s *Session) eligibleChoices(n *Node) ([]ChoiceOption, error) {
	env := s.env(nil)
	var opts []ChoiceOption
	for i, e := range n.edges {
		if e.Guard != nil {
			ok, err := e.Guard.EvalBool(env)
			if err != nil {
				return nil, &NodeError{NodeID: n.ID, Op: "guard", Err: err}
			}
			if !ok {
				continue
			}
		}
		opts = append(opts, ChoiceOption{EdgeID: i, Label: e.Label})
	}
	return opts, nil
}

// stagedWrite is one assignment held back until the whole effect batch
// evaluates cleanly.
type stagedWrite struct {
	store *Store
	name  string
	value expr.Value
}

// applyEffects runs an action node's effect batch all-or-nothing: every
// assignment is evaluated and type-checked before anything is written.
func (s *Session) applyEffects(n *Node) ([]Event, error) {
	var writes []stagedWrite
	var evs []Event
	pending := make(map[string]expr.Kind)

	for i, eff := range n.Effects {
		switch eff.Kind {
		case EffectAssign:
			v, err := eff.compiled.Eval(s.env(nil))
			if err != nil {
				return nil, fmt.Errorf("effect %d: %w", i, err)
			}
			store := s.locals
			if eff.Scope == ScopeGlobal {
				store = s.globals
			}
			key := eff.Scope.String() + "." + eff.Name
			if k, staged := pending[key]; staged {
				if k != v.Kind() {
					return nil, &VariableTypeError{Name: eff.Name, Want: k.String(), Got: v.Kind().String()}
				}
			} else if prev, exists := store.Get(eff.Name); exists && prev.Kind() != v.Kind() {
				return nil, &VariableTypeError{Name: eff.Name, Want: prev.Kind().String(), Got: v.Kind().String()}
			}
			pending[key] = v.Kind()
			writes = append(writes, stagedWrite{store: store, name: eff.Name, value: v})
			evs = append(evs, VariableChanged{Name: eff.Name, Scope: eff.Scope, Value: v})

		case EffectEmit:
			evs = append(evs, ActionPerformed{NodeID: n.ID, Name: eff.Event, Payload: eff.Payload})

		default:
			return nil, fmt.Errorf("effect %d: unknown effect kind %d", i, eff.Kind)
		}
	}

	for _, w := range writes {
		if err := w.store.Set(w.name, w.value); err != nil {
			return nil, err
		}
	}
	return evs, nil
}

// sessionEnv resolves variable references for expression evaluation.
// Unqualified names resolve local scope first, then global. A condition
// node's result, when present, is bound as "result".
type sessionEnv struct {
	locals, globals *Store
	result          *expr.Value
}

func (e sessionEnv) Lookup(scope, name string) (expr.Value, bool) {
	switch scope {
	case expr.ScopeLocal:
		return e.locals.Get(name)
	case expr.ScopeGlobal:
		return e.globals.Get(name)
	}
	if e.result != nil && name == "result" {
		return *e.result, true
	}
	if v, ok := e.locals.Get(name); ok {
		return v, true
	}
	return e.globals.Get(name)
}

func (s *Session) env(result *expr.Value) expr.Env {
	return sessionEnv{locals: s.locals, globals: s.globals, result: result}
}

// publish buffers a notification for the current call. Buffered
// notifications reach the bus only after the call succeeds, so
// subscribers never observe progress a rolled-back call denied.
func (s *Session) publish(kind notify.Kind, nodeID NodeID, edgeID int) {
	if s.cfg.bus == nil {
		return
	}
	s.pending = append(s.pending, notify.Notification{
		Kind:      kind,
		SessionID: s.id,
		NodeID:    string(nodeID),
		EdgeID:    edgeID,
	})
}

// flushNotifications delivers the notifications buffered during one
// successful call, in occurrence order.
func (s *Session) flushNotifications() {
	for _, n := range s.pending {
		s.cfg.bus.Publish(n)
	}
	s.pending = nil
}
