package dialogue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBuild_Minimal verifies a single-node graph builds.
func TestBuild_Minimal(t *testing.T) {
	g := mustBuild(t, NewBuilder().
		AddText("only", "Guide", "hi").
		AddStart("only"))

	assert.Equal(t, 1, g.Len())
	assert.True(t, g.IsStart("only"))
	assert.Equal(t, []NodeID{"only"}, g.Starts())
}

// TestBuild_NoStart_Fails verifies Build requires a start node.
func TestBuild_NoStart_Fails(t *testing.T) {
	_, err := NewBuilder().AddText("a", "Guide", "hi").Build()
	assert.ErrorIs(t, err, ErrNoStartNode)
}

// TestBuild_UnknownReferences_Fail verifies dangling starts, edge
// endpoints and jump targets all surface, joined into one error.
func TestBuild_UnknownReferences_Fail(t *testing.T) {
	_, err := NewBuilder().
		AddText("a", "Guide", "hi").
		AddJump("j", "nowhere").
		Connect("a", "ghost").
		Connect("phantom", "a").
		AddStart("missing").
		Build()

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNodeNotFound)
	for _, want := range []string{"ghost", "phantom", "nowhere", "missing"} {
		assert.Contains(t, err.Error(), want)
	}
}

// TestBuild_BadExpressions_Fail verifies unparsable guard, condition and
// effect expressions are Build errors, not panics.
func TestBuild_BadExpressions_Fail(t *testing.T) {
	testCases := []struct {
		name  string
		build func() (*Graph, error)
	}{
		{"bad condition", func() (*Graph, error) {
			return NewBuilder().
				AddCondition("c", "1 +").
				AddText("a", "Guide", "hi").
				Connect("c", "a").
				AddStart("c").
				Build()
		}},
		{"bad guard", func() (*Graph, error) {
			return NewBuilder().
				AddText("a", "Guide", "hi").
				AddText("b", "Guide", "bye").
				Connect("a", "b", WithGuard("((")).
				AddStart("a").
				Build()
		}},
		{"bad effect", func() (*Graph, error) {
			return NewBuilder().
				AddAction("act", Assign(ScopeLocal, "x", "* 2")).
				AddText("a", "Guide", "hi").
				Connect("act", "a").
				AddStart("act").
				Build()
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.build()
			assert.ErrorIs(t, err, ErrBadExpression)
		})
	}
}

// TestBuild_EdgeOrdering verifies edges keep insertion order and that
// ordinals override it stably.
func TestBuild_EdgeOrdering(t *testing.T) {
	g := mustBuild(t, NewBuilder().
		AddChoice("pick").
		AddText("a", "Guide", "a").
		AddText("b", "Guide", "b").
		AddText("c", "Guide", "c").
		Connect("pick", "a", WithLabel("A"), WithOrdinal(2)).
		Connect("pick", "b", WithLabel("B"), WithOrdinal(1)).
		Connect("pick", "c", WithLabel("C"), WithOrdinal(1)).
		AddStart("pick"))

	edges := g.Outgoing("pick")
	require.Len(t, edges, 3)
	// Ordinal 1 entries first, insertion order breaking the tie.
	assert.Equal(t, NodeID("b"), edges[0].To)
	assert.Equal(t, NodeID("c"), edges[1].To)
	assert.Equal(t, NodeID("a"), edges[2].To)
}

// TestBuild_CopiesBuilderState verifies later builder mutation cannot
// reach the built graph.
func TestBuild_CopiesBuilderState(t *testing.T) {
	b := NewBuilder().
		AddText("a", "Guide", "hi").
		AddStart("a")
	g := mustBuild(t, b)

	b.AddText("later", "Guide", "more").Connect("a", "later")

	assert.Equal(t, 1, g.Len())
	assert.Empty(t, g.Outgoing("a"))
}

// TestBuild_DuplicateStartsDeduplicated verifies repeated AddStart of the
// same node yields one start entry.
func TestBuild_DuplicateStartsDeduplicated(t *testing.T) {
	g := mustBuild(t, NewBuilder().
		AddText("a", "Guide", "hi").
		AddStart("a").
		AddStart("a"))

	assert.Equal(t, []NodeID{"a"}, g.Starts())
}
