package evalsim

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"math"

	"github.com/betracehq/pulsar/internal/expr"
)

// evalExpression evaluates an Expression condition's or SetValue
// action's source string against vars (sensor name -> current value).
// None of spec.md's examples in the retrieved corpus carry a math
// expression evaluator — spec.md §9 is explicit that Pulsar itself never
// parses the expression grammar — so this reference interpreter borrows
// go/parser (standard library) to parse the expression as a Go
// expression (the grammar is a syntactic match: identifiers, arithmetic,
// comparisons, and call syntax) and walks the resulting ast.Expr
// directly. This is documented in DESIGN.md as the one standard-library
// choice in this support package, justified by the absence of any
// retrieved third-party arithmetic-expression evaluator.
func evalExpression(source string, vars map[string]float64) (float64, error) {
	node, err := parser.ParseExpr(source)
	if err != nil {
		return 0, fmt.Errorf("evalsim: cannot parse expression %q: %w", source, err)
	}
	return evalNode(node, vars)
}

func evalNode(n ast.Expr, vars map[string]float64) (float64, error) {
	switch node := n.(type) {
	case *ast.ParenExpr:
		return evalNode(node.X, vars)
	case *ast.BasicLit:
		return evalLiteral(node)
	case *ast.Ident:
		v, ok := vars[node.Name]
		if !ok {
			return 0, fmt.Errorf("evalsim: unbound identifier %q", node.Name)
		}
		return v, nil
	case *ast.UnaryExpr:
		x, err := evalNode(node.X, vars)
		if err != nil {
			return 0, err
		}
		switch node.Op {
		case token.SUB:
			return -x, nil
		case token.ADD:
			return x, nil
		default:
			return 0, fmt.Errorf("evalsim: unsupported unary operator %s", node.Op)
		}
	case *ast.BinaryExpr:
		return evalBinary(node, vars)
	case *ast.CallExpr:
		return evalCall(node, vars)
	default:
		return 0, fmt.Errorf("evalsim: unsupported expression node %T", n)
	}
}

func evalLiteral(lit *ast.BasicLit) (float64, error) {
	if lit.Kind != token.INT && lit.Kind != token.FLOAT {
		return 0, fmt.Errorf("evalsim: unsupported literal kind %s", lit.Kind)
	}
	var f float64
	if _, err := fmt.Sscanf(lit.Value, "%g", &f); err != nil {
		return 0, fmt.Errorf("evalsim: malformed numeric literal %q: %w", lit.Value, err)
	}
	return f, nil
}

func evalBinary(node *ast.BinaryExpr, vars map[string]float64) (float64, error) {
	x, err := evalNode(node.X, vars)
	if err != nil {
		return 0, err
	}
	y, err := evalNode(node.Y, vars)
	if err != nil {
		return 0, err
	}
	switch node.Op {
	case token.ADD:
		return x + y, nil
	case token.SUB:
		return x - y, nil
	case token.MUL:
		return x * y, nil
	case token.QUO:
		return x / y, nil
	case token.LSS:
		return boolToFloat(x < y), nil
	case token.LEQ:
		return boolToFloat(x <= y), nil
	case token.GTR:
		return boolToFloat(x > y), nil
	case token.GEQ:
		return boolToFloat(x >= y), nil
	case token.EQL:
		return boolToFloat(x == y), nil
	case token.NEQ:
		return boolToFloat(x != y), nil
	case token.LAND:
		return boolToFloat(x != 0 && y != 0), nil
	case token.LOR:
		return boolToFloat(x != 0 || y != 0), nil
	default:
		return 0, fmt.Errorf("evalsim: unsupported binary operator %s", node.Op)
	}
}

func evalCall(node *ast.CallExpr, vars map[string]float64) (float64, error) {
	ident, ok := node.Fun.(*ast.Ident)
	if !ok {
		return 0, fmt.Errorf("evalsim: unsupported call target %T", node.Fun)
	}
	canon, ok := expr.CanonicalMathFunction(ident.Name)
	if !ok {
		return 0, fmt.Errorf("evalsim: %q is not a whitelisted math function", ident.Name)
	}
	args := make([]float64, len(node.Args))
	for i, a := range node.Args {
		v, err := evalNode(a, vars)
		if err != nil {
			return 0, err
		}
		args[i] = v
	}
	return applyMathFunction(canon, args)
}

func applyMathFunction(name string, args []float64) (float64, error) {
	one := func(f func(float64) float64) (float64, error) {
		if len(args) != 1 {
			return 0, fmt.Errorf("evalsim: %s expects 1 argument, got %d", name, len(args))
		}
		return f(args[0]), nil
	}
	switch name {
	case "abs":
		return one(math.Abs)
	case "sqrt":
		return one(math.Sqrt)
	case "sin":
		return one(math.Sin)
	case "cos":
		return one(math.Cos)
	case "tan":
		return one(math.Tan)
	case "exp":
		return one(math.Exp)
	case "floor":
		return one(math.Floor)
	case "ceil":
		return one(math.Ceil)
	case "pow":
		if len(args) != 2 {
			return 0, fmt.Errorf("evalsim: pow expects 2 arguments, got %d", len(args))
		}
		return math.Pow(args[0], args[1]), nil
	case "log":
		switch len(args) {
		case 1:
			return math.Log(args[0]), nil
		case 2:
			return math.Log(args[1]) / math.Log(args[0]), nil
		default:
			return 0, fmt.Errorf("evalsim: log expects 1-2 arguments, got %d", len(args))
		}
	case "round":
		switch len(args) {
		case 1:
			return math.Round(args[0]), nil
		case 2:
			scale := math.Pow(10, args[1])
			return math.Round(args[0]*scale) / scale, nil
		default:
			return 0, fmt.Errorf("evalsim: round expects 1-2 arguments, got %d", len(args))
		}
	default:
		return 0, fmt.Errorf("evalsim: unimplemented math function %q", name)
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
