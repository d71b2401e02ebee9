// Package ruledoc parses rule documents (spec.md §6) into internal/ast
// values. Rule documents are YAML, following the same family the
// teacher's internal/api/rules_import.go uses for bulk rule import, but
// unlike gopkg.in/yaml.v3's default struct-unmarshal behavior (which
// silently keeps the last of two duplicate mapping keys), Pulsar decodes
// into a *yaml.Node tree first so duplicate keys, excessive nesting, and
// precise source lines can all be caught before any data reaches the
// AST — "a contract, not an accident of library choice" per spec.md
// §4.2.
package ruledoc

// maxNestingDepth guards against pathological documents, per spec.md
// §4.2's "nesting deeper than 100 levels".
const maxNestingDepth = 100

// Recognized condition type discriminators (spec.md §6).
const (
	conditionTypeComparison       = "comparison"
	conditionTypeExpression       = "expression"
	conditionTypeThresholdOverTime = "threshold_over_time"
)

// Recognized comparison operators as they appear in a rule document.
var comparisonOperators = map[string]struct{}{
	"<": {}, "<=": {}, ">": {}, ">=": {}, "==": {}, "!=": {},
}
