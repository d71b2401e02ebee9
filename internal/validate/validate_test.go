package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betracehq/pulsar/internal/ast"
	"github.com/betracehq/pulsar/internal/catalog"
	"github.com/betracehq/pulsar/internal/compileerr"
	"github.com/betracehq/pulsar/internal/compilerconfig"
)

func testCatalog(sensors ...string) *catalog.Catalog {
	return catalog.New(&compilerconfig.SystemConfig{ValidSensors: sensors})
}

func validRule(name string) *ast.Rule {
	return &ast.Rule{
		Name:        name,
		Description: "a description",
		Conditions: ast.ConditionGroup{
			All: []ast.Condition{&ast.Comparison{Sensor: "temp", Op: ast.OpGT, Literal: 0}},
		},
		Actions: []ast.Action{&ast.SetValue{Key: "alarm", Literal: 1}},
	}
}

func TestValidate_RejectsUnknownSensor(t *testing.T) {
	cat := testCatalog("temp")
	rule := validRule("R1")
	rule.Actions = []ast.Action{&ast.SetValue{Key: "not_a_sensor", Literal: 1}}

	issues := Validate([]*ast.Rule{rule}, cat, compilerconfig.ValidationNormal, nil)
	require.NotEmpty(t, issues.Fatal())
	assert.Contains(t, issues.Fatal()[0].Message, "not_a_sensor")
}

func TestValidate_RejectsEmptyConditionsAndActions(t *testing.T) {
	cat := testCatalog("temp", "alarm")
	rule := &ast.Rule{Name: "R1"}

	issues := Validate([]*ast.Rule{rule}, cat, compilerconfig.ValidationNormal, nil)
	fatal := issues.Fatal()
	require.Len(t, fatal, 2)
}

func TestValidate_RejectsDuplicateRuleNames(t *testing.T) {
	cat := testCatalog("temp", "alarm")
	a := validRule("R1")
	b := validRule("R1")

	issues := Validate([]*ast.Rule{a, b}, cat, compilerconfig.ValidationNormal, nil)
	require.NotEmpty(t, issues.Fatal())
	assert.Contains(t, issues.Fatal()[0].Message, "duplicate rule name")
}

func TestValidate_StrictModeRequiresDescriptionAndCapsActions(t *testing.T) {
	cat := testCatalog("temp", "alarm")
	rule := validRule("R1")
	rule.Description = ""
	for i := 0; i < 6; i++ {
		rule.Actions = append(rule.Actions, &ast.SetValue{Key: "alarm", Literal: 1})
	}

	issues := Validate([]*ast.Rule{rule}, cat, compilerconfig.ValidationStrict, nil)
	fatal := issues.Fatal()
	require.Len(t, fatal, 2)
	for _, e := range fatal {
		assert.Equal(t, compileerr.KindValidation, e.Kind)
	}
}

func TestValidate_NormalModeWarnsRatherThanFailsOnMissingDescription(t *testing.T) {
	cat := testCatalog("temp", "alarm")
	rule := validRule("R1")
	rule.Description = ""

	issues := Validate([]*ast.Rule{rule}, cat, compilerconfig.ValidationNormal, nil)
	assert.Empty(t, issues.Fatal())
	require.NotEmpty(t, issues.Warnings())
}

func TestValidate_RelaxedModeStillWarnsOnMissingDescription(t *testing.T) {
	cat := testCatalog("temp", "alarm")
	rule := validRule("R1")
	rule.Description = ""

	issues := Validate([]*ast.Rule{rule}, cat, compilerconfig.ValidationRelaxed, nil)
	assert.Empty(t, issues.Fatal())
	require.NotEmpty(t, issues.Warnings())
}

func TestValidate_ExpressionConditionChecksExtractedIdentifiers(t *testing.T) {
	cat := testCatalog("temp", "alarm")
	rule := validRule("R1")
	rule.Conditions = ast.ConditionGroup{All: []ast.Condition{&ast.Expression{Source: "unknown_sensor > 5"}}}

	issues := Validate([]*ast.Rule{rule}, cat, compilerconfig.ValidationNormal, nil)
	require.NotEmpty(t, issues.Fatal())
	assert.Contains(t, issues.Fatal()[0].Message, "unknown_sensor")
}

func TestValidate_ExpressionConditionRejectsUnwhitelistedCall(t *testing.T) {
	cat := testCatalog("temp", "alarm")
	rule := validRule("R1")
	rule.Conditions = ast.ConditionGroup{All: []ast.Condition{&ast.Expression{Source: "not_whitelisted(temp) > 5"}}}

	issues := Validate([]*ast.Rule{rule}, cat, compilerconfig.ValidationNormal, nil)
	require.NotEmpty(t, issues.Fatal())
	assert.Contains(t, issues.Fatal()[0].Message, "not_whitelisted")
	for _, e := range issues.Fatal() {
		assert.Equal(t, compileerr.KindValidation, e.Kind)
	}
}

func TestValidate_ExpressionConditionRejectsWrongArityCall(t *testing.T) {
	cat := testCatalog("temp", "alarm")
	rule := validRule("R1")
	rule.Conditions = ast.ConditionGroup{All: []ast.Condition{&ast.Expression{Source: "pow(temp) > 5"}}}

	issues := Validate([]*ast.Rule{rule}, cat, compilerconfig.ValidationNormal, nil)
	require.NotEmpty(t, issues.Fatal())
}

func TestValidate_SetValueExpressionRejectsUnwhitelistedCall(t *testing.T) {
	cat := testCatalog("temp", "alarm")
	rule := validRule("R1")
	rule.Actions = []ast.Action{&ast.SetValue{Key: "alarm", HasExpression: true, Expression: "bogus(temp)"}}

	issues := Validate([]*ast.Rule{rule}, cat, compilerconfig.ValidationNormal, nil)
	require.NotEmpty(t, issues.Fatal())
	assert.Contains(t, issues.Fatal()[0].Message, "bogus")
}

func TestValidate_ExpressionConditionAcceptsWellFormedWhitelistedCall(t *testing.T) {
	cat := testCatalog("temp", "alarm")
	rule := validRule("R1")
	rule.Conditions = ast.ConditionGroup{All: []ast.Condition{&ast.Expression{Source: "sqrt(temp) > 5"}}}

	issues := Validate([]*ast.Rule{rule}, cat, compilerconfig.ValidationNormal, nil)
	assert.Empty(t, issues.Fatal())
}
