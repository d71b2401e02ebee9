// grammar.go implements an optional linting pass over the whitelisted
// math-function calls inside an expression string, built with
// alecthomas/participle/v2 — the same parser-combinator library the
// teacher's internal/dsl/parser.go uses for its condition grammar. This
// pass never participates in the identifier rewrite (see identifiers.go);
// it only checks that whitelisted function calls are well-formed (known
// name, balanced parentheses, plausible arity) before the emitter treats
// the rest of the expression as an opaque string, per spec.md §9's
// instruction not to invent a full expression parser.
package expr

import (
	"fmt"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// call is one whitelisted-function invocation.
type call struct {
	Name string  `@Ident`
	Args []*arg  `"(" ( @@ ( "," @@ )* )? ")"`
}

// arg is a single call argument: a nested call, a bare identifier, or a
// numeric literal. It intentionally does not model operators — only
// enough shape to validate call arity and nesting.
type arg struct {
	Call   *call    `  @@`
	Number *float64 `| @Float | @Int`
	Ident  *string  `| @Ident`
}

var callLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `[ \t\n\r]+`},
	{Name: "Float", Pattern: `\d+\.\d+`},
	{Name: "Int", Pattern: `\d+`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Punct", Pattern: `[(),]`},
})

var callParser = participle.MustBuild[call](
	participle.Lexer(callLexer),
	participle.Elide("Whitespace"),
)

// arity holds the {min, max} plausible argument count for each
// whitelisted function; calls outside this range are flagged.
var arity = map[string][2]int{
	"abs":   {1, 1},
	"pow":   {2, 2},
	"sqrt":  {1, 1},
	"sin":   {1, 1},
	"cos":   {1, 1},
	"tan":   {1, 1},
	"log":   {1, 2},
	"exp":   {1, 1},
	"floor": {1, 1},
	"ceil":  {1, 1},
	"round": {1, 2},
}

// ExtractCalls returns every outermost call-shaped substring of source:
// an identifier (not preceded by '.') immediately followed by a balanced
// parenthesized argument list, skipping text inside string literals. A
// call nested inside another call's arguments is part of the outer
// substring and is not returned separately.
// Callers that want to lint a whole Expression condition or
// expression-valued action pass each returned substring to
// LintCallShape, rather than trying to parse the full expression (which
// this package deliberately never does — see the package comment).
func ExtractCalls(source string) []string {
	masked := maskStringLiterals(source)
	var calls []string
	covered := -1
	for _, loc := range identifierPattern.FindAllStringIndex(masked, -1) {
		start, end := loc[0], loc[1]
		if start <= covered {
			continue
		}
		if start > 0 && masked[start-1] == '.' {
			continue
		}
		if end >= len(masked) || masked[end] != '(' {
			continue
		}
		closing := matchingParen(masked, end)
		if closing == -1 {
			continue
		}
		calls = append(calls, source[start:closing+1])
		covered = closing
	}
	return calls
}

// matchingParen returns the index of the ')' that closes the '(' at
// open, or -1 if the parentheses are unbalanced.
func matchingParen(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// LintCallShape parses callText ("funcname(args...)") and reports a
// non-nil error if funcname is not whitelisted, the call is malformed, or
// the argument count falls outside the function's plausible arity.
func LintCallShape(callText string) error {
	parsed, err := callParser.ParseString("", callText)
	if err != nil {
		return fmt.Errorf("expr: malformed call %q: %w", callText, err)
	}
	return lintCall(parsed)
}

func lintCall(c *call) error {
	bounds, ok := arity[canonicalOrLower(c.Name)]
	if !ok {
		return fmt.Errorf("expr: %q is not a whitelisted math function", c.Name)
	}
	if n := len(c.Args); n < bounds[0] || n > bounds[1] {
		return fmt.Errorf("expr: %s expects %d-%d argument(s), got %d", c.Name, bounds[0], bounds[1], n)
	}
	for _, a := range c.Args {
		if a.Call != nil {
			if err := lintCall(a.Call); err != nil {
				return err
			}
		}
	}
	return nil
}

func canonicalOrLower(name string) string {
	if canon, ok := CanonicalMathFunction(name); ok {
		return canon
	}
	return name
}
