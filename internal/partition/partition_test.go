package partition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betracehq/pulsar/internal/ast"
	"github.com/betracehq/pulsar/internal/depgraph"
)

func makeResult(names []string, layers []int) *depgraph.Result {
	result := &depgraph.Result{Layers: depgraph.LayerMap{}}
	for i, name := range names {
		r := &ast.Rule{Name: name, Location: ast.Location{File: "rules.yaml", Line: i + 1}}
		result.Ordered = append(result.Ordered, r)
		result.Layers[name] = layers[i]
	}
	return result
}

func TestPartition_SplitsFiftyRulesIntoThreeGroups(t *testing.T) {
	names := make([]string, 50)
	layers := make([]int, 50)
	for i := range names {
		names[i] = "R" + itoaTest(i)
	}
	result := makeResult(names, layers)

	groups := Partition(result, 20, true)
	require.Len(t, groups, 3)
	assert.Len(t, groups[0].Rules, 20)
	assert.Len(t, groups[1].Rules, 20)
	assert.Len(t, groups[2].Rules, 10)
}

func TestPartition_NeverMixesLayersWithinAGroup(t *testing.T) {
	names := []string{"A", "B", "C", "D"}
	layers := []int{0, 0, 1, 1}
	result := makeResult(names, layers)

	groups := Partition(result, 3, false)
	for _, g := range groups {
		assert.Equal(t, g.MinLayer, g.MaxLayer)
	}
}

func TestPartition_CoordinatorOrderAscendingByMinLayer(t *testing.T) {
	names := []string{"A", "B", "C"}
	layers := []int{2, 0, 1}
	result := makeResult(names, layers)

	groups := Partition(result, 10, true)
	for i := 1; i < len(groups); i++ {
		assert.LessOrEqual(t, groups[i-1].MinLayer, groups[i].MinLayer)
	}
}

func itoaTest(i int) string {
	if i == 0 {
		return "0"
	}
	digits := []byte{}
	for i > 0 {
		digits = append([]byte{byte('0' + i%10)}, digits...)
		i /= 10
	}
	return string(digits)
}
