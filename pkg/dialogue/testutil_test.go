package dialogue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/funkusgames/dialogue/pkg/dialogue/expr"
)

// Shared test fixtures and helpers for the dialogue package tests.

// mustBuild builds the graph and fails the test on any build error.
func mustBuild(t *testing.T, b *Builder) *Graph {
	t.Helper()
	g, err := b.Build()
	require.NoError(t, err)
	return g
}

// mustValidate validates the graph and fails the test on fatal findings.
func mustValidate(t *testing.T, g *Graph) *Report {
	t.Helper()
	report := Validate(g)
	require.False(t, report.Fatal(), "unexpected fatal diagnostics: %v", report.Err())
	return report
}

// newTestSession builds a ready session over g, failing on any error.
func newTestSession(t *testing.T, g *Graph, opts ...SessionOption) *Session {
	t.Helper()
	s, err := NewSession(g, mustValidate(t, g), nil, opts...)
	require.NoError(t, err)
	return s
}

// greetingGraph is the canonical small fixture: a line, a choice, and
// two endings.
//
//	hello -> pick -> yes
//	              -> no
func greetingGraph(t *testing.T) *Graph {
	t.Helper()
	return mustBuild(t, NewBuilder().
		Name("greeting").
		AddText("hello", "Guide", "Hello there!").
		AddChoice("pick").
		AddText("yes", "Guide", "Glad to hear it.").
		AddText("no", "Guide", "A shame.").
		Connect("hello", "pick").
		Connect("pick", "yes", WithLabel("Wonderful")).
		Connect("pick", "no", WithLabel("Terrible")).
		AddStart("hello"))
}

// trustGraph routes through a condition on a global variable:
//
//	set (trust = 5) -> check (trust > 3) -true-> high
//	                                     -false-> low
func trustGraph(t *testing.T) *Graph {
	t.Helper()
	return mustBuild(t, NewBuilder().
		Name("trust").
		DeclareVar("trust", expr.KindInt).
		AddAction("set", Assign(ScopeGlobal, "trust", "5")).
		AddCondition("check", "trust > 3").
		AddText("high", "Guide", "You are trusted.").
		AddText("low", "Guide", "Not yet.").
		Connect("set", "check").
		Connect("check", "high", WithWhen(true)).
		Connect("check", "low", WithWhen(false)).
		AddStart("set"))
}

// startSession starts s and fails the test on error.
func startSession(t *testing.T, s *Session) []Event {
	t.Helper()
	events, err := s.Start(context.Background())
	require.NoError(t, err)
	return events
}

// eventAt asserts the event at index i has type E and returns it.
func eventAt[E Event](t *testing.T, events []Event, i int) E {
	t.Helper()
	require.Greater(t, len(events), i, "event %d missing, have %d events", i, len(events))
	e, ok := events[i].(E)
	require.True(t, ok, "event %d is %T", i, events[i])
	return e
}
