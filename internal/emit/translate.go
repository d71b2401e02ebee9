package emit

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/betracehq/pulsar/internal/ast"
	"github.com/betracehq/pulsar/internal/expr"
)

// translateCompareOp maps an ast.CompareOp to its Python operator
// spelling; all six operators, equality and inequality included, are
// already spelled as in Python, so each maps to itself.
func translateCompareOp(op ast.CompareOp) string {
	switch op {
	case ast.OpEQ:
		return "=="
	case ast.OpNEQ:
		return "!="
	default:
		return string(op)
	}
}

// formatLiteral renders a float64 using a culture-invariant
// representation, per spec.md §4.6.
func formatLiteral(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// translateCondition renders a single condition as a boolean Python
// expression, per spec.md §4.6's condition translation rules.
func translateCondition(c ast.Condition) string {
	switch cond := c.(type) {
	case *ast.Comparison:
		return fmt.Sprintf("inputs[%q] %s %s", cond.Sensor, translateCompareOp(cond.Op), formatLiteral(cond.Literal))
	case *ast.ThresholdOverTime:
		return fmt.Sprintf("buffers.isAtOrAboveThresholdFor(%q, %s, %d)", cond.Sensor, formatLiteral(cond.Threshold), cond.DurationMillis)
	case *ast.Expression:
		return expr.Rewrite(cond.Source, func(identifier string) string {
			return fmt.Sprintf("inputs[%q]", identifier)
		})
	default:
		return "true"
	}
}

// translateConditionGroup renders a ConditionGroup per spec.md §4.6's
// composition rule: AND every `all` member, OR every `any` member
// (parenthesized), AND the two sub-expressions together. An empty `all`
// with non-empty `any` emits only the `any` sub-expression; both empty
// emits the literal `true` (defensive — the validator rejects this case
// before the emitter ever sees it).
func translateConditionGroup(g ast.ConditionGroup) string {
	var allParts, anyParts []string
	for _, c := range g.All {
		allParts = append(allParts, translateCondition(c))
	}
	for _, c := range g.Any {
		anyParts = append(anyParts, translateCondition(c))
	}

	allExpr := strings.Join(allParts, " and ")
	var anyExpr string
	if len(anyParts) > 0 {
		anyExpr = "(" + strings.Join(anyParts, " or ") + ")"
	}

	switch {
	case allExpr != "" && anyExpr != "":
		return allExpr + " and " + anyExpr
	case allExpr != "":
		return allExpr
	case anyExpr != "":
		return anyExpr
	default:
		return "true"
	}
}

// translateAction renders a single action as a Python statement, per
// spec.md §4.6's action translation rules.
func translateAction(a ast.Action) string {
	switch action := a.(type) {
	case *ast.SetValue:
		if action.HasExpression {
			value := expr.Rewrite(action.Expression, func(identifier string) string {
				return fmt.Sprintf("inputs[%q]", identifier)
			})
			return fmt.Sprintf("outputs[%q] = %s", action.Key, value)
		}
		return fmt.Sprintf("outputs[%q] = %s", action.Key, formatLiteral(action.Literal))
	case *ast.SendMessage:
		return fmt.Sprintf("sendMessage(%q, %q)", action.Channel, action.Message)
	default:
		return "pass"
	}
}
