// Package validate implements the Validator stage of spec.md §4.3: every
// rule must reference only catalog sensors, have at least one condition
// and one action, and (depending on validation mode) carry a
// description and stay within an action-count cap.
package validate

import (
	"log/slog"

	"github.com/betracehq/pulsar/internal/ast"
	"github.com/betracehq/pulsar/internal/catalog"
	"github.com/betracehq/pulsar/internal/compileerr"
	"github.com/betracehq/pulsar/internal/compilerconfig"
	"github.com/betracehq/pulsar/internal/expr"
)

const (
	strictMaxActions = 5
	normalMaxActions = 10
)

// Validate checks every rule against cat under the given validation
// level, returning every accumulated issue. It also rejects duplicate
// rule names across the whole input, per spec.md §4.3 ("names must be
// globally unique across all parsed files").
func Validate(rules []*ast.Rule, cat *catalog.Catalog, level compilerconfig.ValidationLevel, logger *slog.Logger) *compileerr.List {
	if logger == nil {
		logger = slog.Default()
	}
	issues := &compileerr.List{}

	seenNames := make(map[string]ast.Location)
	for _, rule := range rules {
		if rule.Name == "" {
			issues.Errorf(compileerr.KindValidation, rule.Location.File, rule.Location.Line, "",
				"rule name must not be empty")
			continue
		}
		if first, dup := seenNames[rule.Name]; dup {
			issues.Errorf(compileerr.KindValidation, rule.Location.File, rule.Location.Line, rule.Name,
				"duplicate rule name (first defined at %s)", first)
			continue
		}
		seenNames[rule.Name] = rule.Location

		validateRule(rule, cat, level, issues)
	}

	logger.Debug("validation complete", "rules", len(rules), "issues", len(issues.Items()))
	return issues
}

func validateRule(rule *ast.Rule, cat *catalog.Catalog, level compilerconfig.ValidationLevel, issues *compileerr.List) {
	if rule.Conditions.Empty() {
		issues.Errorf(compileerr.KindValidation, rule.Location.File, rule.Location.Line, rule.Name,
			"rule must have at least one condition (non-empty all or any)")
	}

	for _, c := range rule.Conditions.All {
		validateCondition(c, rule, cat, issues)
	}
	for _, c := range rule.Conditions.Any {
		validateCondition(c, rule, cat, issues)
	}

	if len(rule.Actions) == 0 {
		issues.Errorf(compileerr.KindValidation, rule.Location.File, rule.Location.Line, rule.Name,
			"rule must have at least one action")
	}
	for _, a := range rule.Actions {
		validateAction(a, rule, cat, issues)
	}

	validateMode(rule, level, issues)
}

func validateCondition(c ast.Condition, rule *ast.Rule, cat *catalog.Catalog, issues *compileerr.List) {
	switch cond := c.(type) {
	case *ast.Comparison:
		if !cat.Contains(cond.Sensor) {
			issues.Errorf(compileerr.KindValidation, rule.Location.File, rule.Location.Line, rule.Name,
				"unknown sensor %q referenced in comparison condition", cond.Sensor)
		}
	case *ast.ThresholdOverTime:
		if !cat.Contains(cond.Sensor) {
			issues.Errorf(compileerr.KindValidation, rule.Location.File, rule.Location.Line, rule.Name,
				"unknown sensor %q referenced in threshold_over_time condition", cond.Sensor)
		}
	case *ast.Expression:
		for _, ident := range expr.ExtractSensorIdentifiers(cond.Source) {
			if !cat.Contains(ident) {
				issues.Errorf(compileerr.KindValidation, rule.Location.File, rule.Location.Line, rule.Name,
					"unknown sensor %q referenced in rule %s", ident, rule.Name)
			}
		}
		lintCalls(cond.Source, rule, issues)
	default:
		issues.Errorf(compileerr.KindValidation, rule.Location.File, rule.Location.Line, rule.Name,
			"unrecognized condition variant %T", cond)
	}
}

// lintCalls checks every whitelisted-math-function call shape found in an
// expression string, flagging an unwhitelisted function name, a malformed
// call, or a wrong argument count before the emitter ever sees it.
func lintCalls(source string, rule *ast.Rule, issues *compileerr.List) {
	for _, call := range expr.ExtractCalls(source) {
		if err := expr.LintCallShape(call); err != nil {
			issues.Errorf(compileerr.KindValidation, rule.Location.File, rule.Location.Line, rule.Name,
				"%s", err)
		}
	}
}

func validateAction(a ast.Action, rule *ast.Rule, cat *catalog.Catalog, issues *compileerr.List) {
	switch action := a.(type) {
	case *ast.SetValue:
		if !cat.Contains(action.Key) {
			issues.Errorf(compileerr.KindValidation, rule.Location.File, rule.Location.Line, rule.Name,
				"unknown sensor %q set by set_value action", action.Key)
		}
		if action.HasExpression {
			for _, ident := range expr.ExtractSensorIdentifiers(action.Expression) {
				if !cat.Contains(ident) {
					issues.Errorf(compileerr.KindValidation, rule.Location.File, rule.Location.Line, rule.Name,
						"unknown sensor %q referenced in set_value expression", ident)
				}
			}
			lintCalls(action.Expression, rule, issues)
		}
	case *ast.SendMessage:
		// Channel and message are free-form; nothing to validate against
		// the catalog.
	default:
		issues.Errorf(compileerr.KindValidation, rule.Location.File, rule.Location.Line, rule.Name,
			"unrecognized action variant %T", action)
	}
}

func validateMode(rule *ast.Rule, level compilerconfig.ValidationLevel, issues *compileerr.List) {
	switch level {
	case compilerconfig.ValidationStrict:
		if rule.Description == "" {
			issues.Errorf(compileerr.KindValidation, rule.Location.File, rule.Location.Line, rule.Name,
				"strict mode requires a non-empty description")
		}
		if len(rule.Actions) > strictMaxActions {
			issues.Errorf(compileerr.KindValidation, rule.Location.File, rule.Location.Line, rule.Name,
				"strict mode caps actions per rule at %d, rule has %d", strictMaxActions, len(rule.Actions))
		}
	case compilerconfig.ValidationRelaxed:
		if rule.Description == "" {
			issues.Errorf(compileerr.KindWarning, rule.Location.File, rule.Location.Line, rule.Name,
				"rule has no description")
		}
	default: // normal
		if rule.Description == "" {
			issues.Errorf(compileerr.KindWarning, rule.Location.File, rule.Location.Line, rule.Name,
				"rule has no description")
		}
		if len(rule.Actions) > normalMaxActions {
			issues.Errorf(compileerr.KindWarning, rule.Location.File, rule.Location.Line, rule.Name,
				"rule has %d actions, more than the recommended %d", len(rule.Actions), normalMaxActions)
		}
	}
}
