package emit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betracehq/pulsar/internal/ast"
	"github.com/betracehq/pulsar/internal/compileerr"
	"github.com/betracehq/pulsar/internal/depgraph"
	"github.com/betracehq/pulsar/internal/manifest"
	"github.com/betracehq/pulsar/internal/partition"
)

func TestEmit_WritesGroupsCoordinatorAndManifestLast(t *testing.T) {
	rule := &ast.Rule{
		Name:       "high_temp_alarm",
		Location:   ast.Location{File: "rules.yaml", Line: 3},
		Conditions: ast.ConditionGroup{All: []ast.Condition{&ast.Comparison{Sensor: "temp", Op: ast.OpGT, Literal: 30}}},
		Actions:    []ast.Action{&ast.SendMessage{Channel: "alerts", Message: "too hot"}},
	}
	groups := []*partition.Group{
		{Index: 0, Rules: []*ast.Rule{rule}, MinLayer: 0, MaxLayer: 0},
	}
	result := &depgraph.Result{Layers: depgraph.LayerMap{"high_temp_alarm": 0}, Ordered: []*ast.Rule{rule}}
	doc := manifest.Build(result, "2026-07-29T00:00:00Z")

	fs := NewMockFileSystem()
	issues := Emit(groups, doc, "/out", fs, nil)
	require.Empty(t, issues.Fatal())

	group0, ok := fs.GetFile("/out/group_0.py")
	require.True(t, ok)
	assert.Contains(t, string(group0), `inputs["temp"] > 30`)
	assert.Contains(t, string(group0), `sendMessage("alerts", "too hot")`)

	coord, ok := fs.GetFile("/out/coordinator.py")
	require.True(t, ok)
	assert.Contains(t, string(coord), "import group_0")

	_, ok = fs.GetFile("/out/manifest.yaml")
	require.True(t, ok)

	// Nothing should remain staged.
	_, ok = fs.GetFile("/out/.pulsar-staging/group_0.py")
	assert.False(t, ok)
}

func TestEmit_WriteFailureIsFatalAndLeavesNoManifest(t *testing.T) {
	rule := &ast.Rule{Name: "r", Location: ast.Location{File: "rules.yaml", Line: 1}}
	groups := []*partition.Group{{Index: 0, Rules: []*ast.Rule{rule}}}
	result := &depgraph.Result{Layers: depgraph.LayerMap{"r": 0}, Ordered: []*ast.Rule{rule}}
	doc := manifest.Build(result, "2026-07-29T00:00:00Z")

	fs := NewMockFileSystem()
	fs.WriteError = assertErr{}

	issues := Emit(groups, doc, "/out", fs, nil)
	require.NotEmpty(t, issues.Fatal())
	assert.Equal(t, compileerr.KindIO, issues.Fatal()[0].Kind)

	_, ok := fs.GetFile("/out/manifest.yaml")
	assert.False(t, ok)
}

type assertErr struct{}

func (assertErr) Error() string { return "simulated write failure" }
