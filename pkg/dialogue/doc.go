/*
Package dialogue provides a branching-dialogue runtime for games.

# Overview

dialogue is a Go library for authoring and running branching
conversations. A conversation is a directed graph where nodes show
lines, offer choices, route on conditions, or mutate variables, and
edges define the possible transitions. The host engine drives a
session through the graph one call at a time and renders the events
each call returns.

The library separates three phases:
  - Authoring: build a Graph with the fluent Builder or load one from
    a YAML/JSON Document
  - Validation: Validate produces a Report of structural and type
    diagnostics; fatal diagnostics gate session creation
  - Execution: a Session walks the graph via Start, Advance, Select
    and Stop, suspending at text and choice nodes

# Basic Usage

Build a graph, validate it, then run a session:

	g, err := dialogue.NewBuilder().
	    Name("intro").
	    AddText("hello", "Guide", "Welcome, traveler.").
	    AddChoice("pick").
	    AddText("yes", "Guide", "Then follow me.").
	    AddText("no", "Guide", "Safe travels.").
	    Connect("hello", "pick").
	    Connect("pick", "yes", dialogue.WithLabel("I need a guide")).
	    Connect("pick", "no", dialogue.WithLabel("I know the way")).
	    AddStart("hello").
	    Build()
	if err != nil {
	    log.Fatal(err)
	}

	report := dialogue.Validate(g)
	if report.Fatal() {
	    log.Fatal(report.Err())
	}

	session, err := dialogue.NewSession(g, report, nil)
	if err != nil {
	    log.Fatal(err)
	}

	events, err := session.Start(context.Background())
	// render events; call Advance or Select depending on session.State()

# Variables and Conditions

Variables live in two scopes: global stores are shared across sessions
(quest flags, inventory), local stores belong to one session. Guards
and condition nodes use a small typed expression language:

	dialogue.NewBuilder().
	    DeclareVar("trust", expr.KindInt).
	    AddCondition("check", "global.trust > 3").
	    AddAction("earn", dialogue.Assign(dialogue.ScopeGlobal, "trust", "global.trust + 1")).
	    ...
	    Connect("check", "friendly", dialogue.WithWhen(true)).
	    Connect("check", "hostile", dialogue.WithWhen(false))

Expressions are statically type-checked by Validate against declared
variable kinds. Action effects apply atomically per node: if any
effect fails, none are committed.

# Loops

Conversations may legitimately cycle (hub-and-spoke shop menus). The
validator accepts cycles that pass through a text or choice node and
rejects ones that cannot suspend. Guard-dependent loops the validator
cannot see are bounded at runtime by a per-call step limit
(DefaultMaxSteps, configurable with WithMaxSteps).

# Persistence

Snapshot a suspended session and resume it later, optionally through
a save store:

	store, err := saves.NewSQLiteStore("./saves.db")
	defer store.Close()

	err = store.Save("player1", "slot1", session.Snapshot())

	snap, err := store.Load("player1", "slot1")
	restored, err := dialogue.RestoreSession(g, report, globals, snap)

Snapshots capture position, state and local variables. Global stores
are the host's to persist; offered choices are recomputed on restore.

# Documents

The Document type is the serialized authoring form. It round-trips
losslessly through YAML and JSON:

	doc, err := dialogue.FromFile("quest.yaml")
	g, err := doc.Build()

	again := dialogue.FromGraph(g)
	data, err := again.ToYAML()

Unlike the Builder, Document.Build reports data errors instead of
panicking, so malformed files from disk fail gracefully.

# Observability

Enable logging, metrics, tracing and notifications per session:

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	bus := notify.NewBus()

	session, err := dialogue.NewSession(g, report, globals,
	    dialogue.WithLogger(logger),
	    dialogue.WithMetrics(observability.NewMetricsRecorder()),
	    dialogue.WithTracing(observability.NewSpanManager()),
	    dialogue.WithBus(bus))

Logs include structured fields: session_id, node_id, duration_ms.
OpenTelemetry metrics: dialogue.session.calls, dialogue.node.visits, etc.
OpenTelemetry tracing: dialogue.{op} > dialogue.node spans.

# Error Handling

Errors carry the node they occurred at:

	events, err := session.Select(ctx, choice)
	var nodeErr *dialogue.NodeError
	if errors.As(err, &nodeErr) {
	    log.Printf("node %s failed: %v", nodeErr.NodeID, nodeErr.Err)
	}

Failed calls roll back: the session stays at its pre-call position and
state, so a failed Select can be retried with a different option.

# Thread Safety

  - Builder is NOT safe for concurrent use during construction
  - Graph IS safe for concurrent use (immutable after Build)
  - Session is NOT safe for concurrent use; one goroutine drives it
  - Store (variables) performs no internal locking; a global store
    shared across sessions on multiple goroutines needs host-provided
    mutual exclusion
  - saves.Store implementations are safe for concurrent use

# Subpackages

  - expr: typed expression language for guards, conditions and effects
  - saves: snapshot storage (memory, SQLite)
  - notify: synchronous notification bus for session lifecycle
  - observability: logging, metrics, and tracing helpers
*/
package dialogue
