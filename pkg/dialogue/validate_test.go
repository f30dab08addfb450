package dialogue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funkusgames/dialogue/pkg/dialogue/expr"
)

// findDiags filters a report's diagnostics by category.
func findDiags(r *Report, cat Category) []Diagnostic {
	var out []Diagnostic
	for _, d := range r.Diagnostics() {
		if d.Category == cat {
			out = append(out, d)
		}
	}
	return out
}

// TestValidate_CleanGraph verifies a well-formed graph reports nothing.
func TestValidate_CleanGraph(t *testing.T) {
	report := Validate(greetingGraph(t))
	assert.True(t, report.Ok())
	assert.False(t, report.Fatal())
	assert.NoError(t, report.Err())
}

// TestValidate_UnreachableNode_Warns verifies unreachable nodes produce
// a warning, not a fatal.
func TestValidate_UnreachableNode_Warns(t *testing.T) {
	g := mustBuild(t, NewBuilder().
		AddText("a", "Guide", "hi").
		AddText("island", "Guide", "unseen").
		AddStart("a"))

	report := Validate(g)
	assert.False(t, report.Fatal())

	diags := findDiags(report, CategoryUnreachable)
	require.Len(t, diags, 1)
	assert.Equal(t, NodeID("island"), diags[0].NodeID)
	assert.Equal(t, SeverityWarning, diags[0].Severity)
}

// TestValidate_CycleWithExit_Ok verifies cycles are legal as long as the
// component has an edge leaving it.
func TestValidate_CycleWithExit_Ok(t *testing.T) {
	g := mustBuild(t, NewBuilder().
		AddText("loop1", "Guide", "around").
		AddText("loop2", "Guide", "we go").
		AddText("out", "Guide", "done").
		Connect("loop1", "loop2").
		Connect("loop2", "loop1", WithGuard("false")).
		Connect("loop2", "out").
		AddStart("loop1"))

	report := Validate(g)
	assert.Empty(t, findDiags(report, CategoryCycleExit))
	assert.False(t, report.Fatal())
}

// TestValidate_CycleWithoutExit_Fatal verifies a trapped cycle is fatal.
func TestValidate_CycleWithoutExit_Fatal(t *testing.T) {
	g := mustBuild(t, NewBuilder().
		AddText("loop1", "Guide", "around").
		AddText("loop2", "Guide", "we go").
		Connect("loop1", "loop2").
		Connect("loop2", "loop1").
		AddStart("loop1"))

	report := Validate(g)
	assert.True(t, report.Fatal())

	diags := findDiags(report, CategoryCycleExit)
	require.Len(t, diags, 1)
	assert.Equal(t, SeverityFatal, diags[0].Severity)
}

// TestValidate_SelfLoopWithoutExit_Fatal verifies a single node counting
// only when it loops onto itself.
func TestValidate_SelfLoopWithoutExit_Fatal(t *testing.T) {
	trapped := mustBuild(t, NewBuilder().
		AddText("a", "Guide", "hi").
		Connect("a", "a").
		AddStart("a"))
	assert.True(t, Validate(trapped).Fatal())

	escapable := mustBuild(t, NewBuilder().
		AddText("a", "Guide", "hi").
		AddText("b", "Guide", "bye").
		Connect("a", "a", WithGuard("false")).
		Connect("a", "b").
		AddStart("a"))
	assert.Empty(t, findDiags(Validate(escapable), CategoryCycleExit))
}

// TestValidate_JumpCycle_Fatal verifies jump-only loops are fatal even
// though the component technically has exit edges elsewhere.
func TestValidate_JumpCycle_Fatal(t *testing.T) {
	g := mustBuild(t, NewBuilder().
		AddJump("j1", "j2").
		AddJump("j2", "j1").
		AddStart("j1"))

	report := Validate(g)
	assert.True(t, report.Fatal())
	assert.NotEmpty(t, findDiags(report, CategoryJumpCycle))
}

// TestValidate_JumpChainToText_Ok verifies chained jumps that land on a
// text node are fine.
func TestValidate_JumpChainToText_Ok(t *testing.T) {
	g := mustBuild(t, NewBuilder().
		AddJump("j1", "j2").
		AddJump("j2", "line").
		AddText("line", "Guide", "made it").
		AddStart("j1"))

	report := Validate(g)
	assert.Empty(t, findDiags(report, CategoryJumpCycle))
	assert.False(t, report.Fatal())
}

// TestValidate_TypeCheck_Warns verifies static type findings against
// declared variable kinds are warnings.
func TestValidate_TypeCheck_Warns(t *testing.T) {
	g := mustBuild(t, NewBuilder().
		DeclareVar("trust", expr.KindInt).
		DeclareVar("name", expr.KindString).
		AddCondition("c", "trust + name").
		AddText("a", "Guide", "hi").
		AddText("b", "Guide", "bye").
		Connect("c", "a", WithWhen(true)).
		Connect("c", "b", WithWhen(false)).
		AddStart("c"))

	report := Validate(g)
	assert.False(t, report.Fatal())
	assert.NotEmpty(t, findDiags(report, CategoryTypeCheck))
}

// TestValidate_GuardMustBeBool_Warns verifies non-boolean guards are
// flagged statically when declarations allow it.
func TestValidate_GuardMustBeBool_Warns(t *testing.T) {
	g := mustBuild(t, NewBuilder().
		DeclareVar("trust", expr.KindInt).
		AddText("a", "Guide", "hi").
		AddText("b", "Guide", "bye").
		Connect("a", "b", WithGuard("trust + 1")).
		AddStart("a"))

	report := Validate(g)
	diags := findDiags(report, CategoryTypeCheck)
	require.NotEmpty(t, diags)
	assert.Contains(t, diags[0].Message, "want bool")
}

// TestValidate_AssignKindMismatch_Warns verifies assigning the wrong kind
// to a declared variable is flagged.
func TestValidate_AssignKindMismatch_Warns(t *testing.T) {
	g := mustBuild(t, NewBuilder().
		DeclareVar("trust", expr.KindInt).
		AddAction("act", Assign(ScopeGlobal, "trust", "'five'")).
		AddText("a", "Guide", "hi").
		Connect("act", "a").
		AddStart("act"))

	report := Validate(g)
	assert.NotEmpty(t, findDiags(report, CategoryTypeCheck))
}

// TestReport_GatesSessionCreation verifies the report plumbing:
// NewSession requires a report and refuses fatal ones.
func TestReport_GatesSessionCreation(t *testing.T) {
	g := greetingGraph(t)

	_, err := NewSession(g, nil, nil)
	assert.ErrorIs(t, err, ErrReportRequired)

	trapped := mustBuild(t, NewBuilder().
		AddText("a", "Guide", "hi").
		Connect("a", "a").
		AddStart("a"))
	_, err = NewSession(trapped, Validate(trapped), nil)
	assert.ErrorIs(t, err, ErrFatalDiagnostics)

	_, err = NewSession(g, Validate(g), nil)
	assert.NoError(t, err)
}
