package expr

import "strings"

// mathFunctions is the whitelisted set of math function names an
// Expression condition or SetValue expression may call, per spec.md §3.
var mathFunctions = map[string]string{
	"abs":   "abs",
	"pow":   "pow",
	"sqrt":  "sqrt",
	"sin":   "sin",
	"cos":   "cos",
	"tan":   "tan",
	"log":   "log",
	"exp":   "exp",
	"floor": "floor",
	"ceil":  "ceil",
	"round": "round",
}

// IsMathFunction reports whether ident names a whitelisted math function,
// case-insensitively.
func IsMathFunction(ident string) bool {
	_, ok := mathFunctions[strings.ToLower(ident)]
	return ok
}

// CanonicalMathFunction returns the case-normalized spelling of a
// whitelisted math function name, per spec.md §4.6 ("Math function
// identifiers are preserved and case-normalized").
func CanonicalMathFunction(ident string) (string, bool) {
	canon, ok := mathFunctions[strings.ToLower(ident)]
	return canon, ok
}
