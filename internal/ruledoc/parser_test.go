package ruledoc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betracehq/pulsar/internal/ast"
)

func TestParse_ValidDocumentProducesOneRule(t *testing.T) {
	doc := Document{File: "rules.yaml", Content: []byte(`
rules:
  - name: high_temp
    description: alarm when it gets hot
    conditions:
      all:
        - condition:
            type: comparison
            sensor: temp
            operator: ">"
            value: 80
    actions:
      - set_value:
          key: alarm
          value: 1
`)}

	rules, issues := Parse([]Document{doc}, nil)
	require.Empty(t, issues.Fatal())
	require.Len(t, rules, 1)
	assert.Equal(t, "high_temp", rules[0].Name)
	require.Len(t, rules[0].Conditions.All, 1)
	cmp, ok := rules[0].Conditions.All[0].(*ast.Comparison)
	require.True(t, ok)
	assert.Equal(t, "temp", cmp.Sensor)
	assert.Equal(t, float64(80), cmp.Literal)
}

func TestParse_DuplicateKeyIsSyntaxError(t *testing.T) {
	doc := Document{File: "rules.yaml", Content: []byte(`
rules:
  - name: r1
    name: r1_again
    actions:
      - set_value:
          key: alarm
          value: 1
`)}
	_, issues := Parse([]Document{doc}, nil)
	require.NotEmpty(t, issues.Fatal())
}

func TestParse_MissingRulesKeyIsSchemaError(t *testing.T) {
	doc := Document{File: "rules.yaml", Content: []byte("version: 1\n")}
	_, issues := Parse([]Document{doc}, nil)
	require.NotEmpty(t, issues.Fatal())
}

func TestParse_SetValueBothFormsIsRejected(t *testing.T) {
	doc := Document{File: "rules.yaml", Content: []byte(`
rules:
  - name: r1
    conditions:
      all:
        - condition:
            type: comparison
            sensor: temp
            operator: ">"
            value: 0
    actions:
      - set_value:
          key: alarm
          value: 1
          value_expression: "temp * 2"
`)}
	_, issues := Parse([]Document{doc}, nil)
	require.NotEmpty(t, issues.Fatal())
}

func TestParse_SetValueNeitherFormWarnsAndDefaultsToZero(t *testing.T) {
	doc := Document{File: "rules.yaml", Content: []byte(`
rules:
  - name: r1
    conditions:
      all:
        - condition:
            type: comparison
            sensor: temp
            operator: ">"
            value: 0
    actions:
      - set_value:
          key: alarm
`)}
	rules, issues := Parse([]Document{doc}, nil)
	require.Empty(t, issues.Fatal())
	require.NotEmpty(t, issues.Warnings())
	sv, ok := rules[0].Actions[0].(*ast.SetValue)
	require.True(t, ok)
	assert.Equal(t, float64(0), sv.Literal)
}

func TestParse_ThresholdOverTimeCondition(t *testing.T) {
	doc := Document{File: "rules.yaml", Content: []byte(`
rules:
  - name: sustained
    conditions:
      all:
        - condition:
            type: threshold_over_time
            sensor: temp
            threshold: 90
            duration: 5000
    actions:
      - send_message:
          channel: ops
          message: too hot
`)}
	rules, issues := Parse([]Document{doc}, nil)
	require.Empty(t, issues.Fatal())
	tot, ok := rules[0].Conditions.All[0].(*ast.ThresholdOverTime)
	require.True(t, ok)
	assert.Equal(t, int64(5000), tot.DurationMillis)
}

func TestParse_UnrecognizedConditionTypeIsSchemaError(t *testing.T) {
	doc := Document{File: "rules.yaml", Content: []byte(`
rules:
  - name: r1
    conditions:
      all:
        - condition:
            type: not_a_real_type
    actions:
      - set_value:
          key: alarm
          value: 1
`)}
	_, issues := Parse([]Document{doc}, nil)
	require.NotEmpty(t, issues.Fatal())
}
