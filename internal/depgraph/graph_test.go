package depgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betracehq/pulsar/internal/ast"
	"github.com/betracehq/pulsar/internal/compileerr"
)

func rule(name, file string, line int, reads []string, writes []string) *ast.Rule {
	r := &ast.Rule{
		Name:     name,
		Location: ast.Location{File: file, Line: line},
	}
	for _, s := range reads {
		r.Conditions.All = append(r.Conditions.All, &ast.Comparison{Sensor: s, Op: ast.OpGT, Literal: 0})
	}
	for _, s := range writes {
		r.Actions = append(r.Actions, &ast.SetValue{Key: s, Literal: 1})
	}
	return r
}

func TestAnalyze_LayerOrdering(t *testing.T) {
	// rule B reads what rule A writes, so B must be strictly above A.
	a := rule("A", "rules.yaml", 1, []string{"raw_temp"}, []string{"temp_ok"})
	b := rule("B", "rules.yaml", 10, []string{"temp_ok"}, []string{"alarm"})

	result, issues := Analyze([]*ast.Rule{b, a}, 0, nil)
	require.Empty(t, issues.Fatal())

	assert.Less(t, result.Layers["A"], result.Layers["B"])
	assert.Equal(t, 0, result.Layers["A"])
	assert.Equal(t, 1, result.Layers["B"])
}

func TestAnalyze_IndependentRulesShareLayerZero(t *testing.T) {
	a := rule("A", "rules.yaml", 1, []string{"x"}, []string{"y"})
	b := rule("B", "rules.yaml", 5, []string{"p"}, []string{"q"})

	result, issues := Analyze([]*ast.Rule{a, b}, 0, nil)
	require.Empty(t, issues.Fatal())
	assert.Equal(t, 0, result.Layers["A"])
	assert.Equal(t, 0, result.Layers["B"])
}

func TestAnalyze_SelfLoopIsCycle(t *testing.T) {
	a := rule("A", "rules.yaml", 1, []string{"x"}, []string{"x"})

	_, issues := Analyze([]*ast.Rule{a}, 0, nil)
	require.NotEmpty(t, issues.Fatal())
	assert.Equal(t, compileerr.KindCyclicDependency, issues.Fatal()[0].Kind)
}

func TestAnalyze_TwoRuleCycleIsRejected(t *testing.T) {
	a := rule("A", "rules.yaml", 1, []string{"b_out"}, []string{"a_out"})
	b := rule("B", "rules.yaml", 5, []string{"a_out"}, []string{"b_out"})

	_, issues := Analyze([]*ast.Rule{a, b}, 0, nil)
	require.NotEmpty(t, issues.Fatal())
	for _, e := range issues.Fatal() {
		assert.Equal(t, compileerr.KindCyclicDependency, e.Kind)
	}
}

func TestAnalyze_DuplicateProducerWarns(t *testing.T) {
	a := rule("A", "rules.yaml", 1, nil, []string{"shared"})
	b := rule("B", "rules.yaml", 5, nil, []string{"shared"})

	_, issues := Analyze([]*ast.Rule{a, b}, 0, nil)
	require.Empty(t, issues.Fatal())
	require.NotEmpty(t, issues.Warnings())
	assert.Contains(t, issues.Warnings()[0].Message, "shared")
}

func TestAnalyze_DeepChainWarnsPastMaxDepth(t *testing.T) {
	rules := []*ast.Rule{
		rule("R0", "rules.yaml", 1, nil, []string{"s0"}),
	}
	for i := 1; i <= 5; i++ {
		rules = append(rules, rule(
			ruleName(i), "rules.yaml", i*10,
			[]string{sensorName(i - 1)}, []string{sensorName(i)},
		))
	}

	_, issues := Analyze(rules, 2, nil)
	require.Empty(t, issues.Fatal())
	require.NotEmpty(t, issues.Warnings())
}

func ruleName(i int) string   { return "R" + itoa(i) }
func sensorName(i int) string { return "s" + itoa(i) }

func itoa(i int) string {
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
