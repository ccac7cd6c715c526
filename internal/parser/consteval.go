package parser

import (
	"math"

	"github.com/HugoDaniel/shadec/internal/ast"
	"github.com/HugoDaniel/shadec/internal/types"
)

// ----------------------------------------------------------------------------
// Constant Evaluation
// ----------------------------------------------------------------------------

// ConstKind identifies the kind of a compile-time constant.
type ConstKind uint8

const (
	ConstNone ConstKind = iota // not a constant expression
	ConstInt
	ConstFloat
	ConstBool
)

// ConstValue is the result of folding a scalar expression.
type ConstValue struct {
	Kind  ConstKind
	Int   int64
	Float float64
	Bool  bool
}

var notConst = ConstValue{Kind: ConstNone}

func intValue(v int64) ConstValue     { return ConstValue{Kind: ConstInt, Int: v} }
func floatValue(v float64) ConstValue { return ConstValue{Kind: ConstFloat, Float: v} }
func boolValue(v bool) ConstValue     { return ConstValue{Kind: ConstBool, Bool: v} }

func (v ConstValue) asFloat() float64 {
	if v.Kind == ConstInt {
		return float64(v.Int)
	}
	return v.Float
}

// EvaluateConstant folds a scalar expression built from literals, const
// variables, operators and scalar conversions. Anything else, including
// division by zero, yields ConstNone.
func EvaluateConstant(tree *ast.Tree, id ast.NodeID) ConstValue {
	switch n := tree.Node(id).(type) {
	case *ast.ConstInt:
		if n.Unsigned {
			return intValue(int64(uint32(n.Value)))
		}
		return intValue(int64(int32(n.Value)))
	case *ast.ConstFloat:
		return floatValue(n.Value)
	case *ast.ConstBool:
		return boolValue(n.Value)
	case *ast.Paren:
		return EvaluateConstant(tree, n.Expr)

	case *ast.Variable:
		if !n.Decl.Valid() {
			return notConst
		}
		decl := varDecl(tree.Node(n.Decl))
		if decl == nil || !decl.HasQualifier("const") || !decl.Initializer.Valid() {
			return notConst
		}
		return convertTo(EvaluateConstant(tree, decl.Initializer), decl.VarType)

	case *ast.PrefixOp:
		v := EvaluateConstant(tree, n.Operand)
		switch {
		case v.Kind == ConstNone:
			return notConst
		case n.Op == "+":
			return v
		case n.Op == "-" && v.Kind == ConstInt:
			return intValue(wrap(-v.Int, tree.TypeOf(id)))
		case n.Op == "-" && v.Kind == ConstFloat:
			return floatValue(-v.Float)
		case n.Op == "!" && v.Kind == ConstBool:
			return boolValue(!v.Bool)
		case n.Op == "~" && v.Kind == ConstInt:
			return intValue(wrap(^v.Int, tree.TypeOf(id)))
		}
		return notConst

	case *ast.Binary:
		l := EvaluateConstant(tree, n.Left)
		if l.Kind == ConstNone {
			return notConst
		}
		r := EvaluateConstant(tree, n.Right)
		if r.Kind == ConstNone {
			return notConst
		}
		return foldBinary(n.Op, l, r, tree.TypeOf(id))

	case *ast.Ternary:
		c := EvaluateConstant(tree, n.Condition)
		if c.Kind != ConstBool {
			return notConst
		}
		branch := n.Else
		if c.Bool {
			branch = n.Then
		}
		return convertTo(EvaluateConstant(tree, branch), tree.TypeOf(id))

	case *ast.FunctionCall:
		if !n.Constructor || len(n.Args) != 1 {
			return notConst
		}
		if _, ok := tree.TypeOf(id).(*types.Scalar); !ok {
			return notConst
		}
		return convertTo(EvaluateConstant(tree, n.Args[0]), tree.TypeOf(id))
	}
	return notConst
}

// convertTo applies a scalar conversion to a folded value.
func convertTo(v ConstValue, t types.Type) ConstValue {
	s, ok := t.(*types.Scalar)
	if !ok || v.Kind == ConstNone {
		return notConst
	}
	switch s.Kind {
	case types.ScalarFloat:
		switch v.Kind {
		case ConstBool:
			if v.Bool {
				return floatValue(1)
			}
			return floatValue(0)
		default:
			return floatValue(v.asFloat())
		}
	case types.ScalarInt, types.ScalarUint:
		var i int64
		switch v.Kind {
		case ConstBool:
			if v.Bool {
				i = 1
			}
		case ConstFloat:
			i = int64(math.Trunc(v.Float))
		default:
			i = v.Int
		}
		return intValue(wrap(i, s))
	case types.ScalarBool:
		switch v.Kind {
		case ConstBool:
			return v
		case ConstFloat:
			return boolValue(v.Float != 0)
		default:
			return boolValue(v.Int != 0)
		}
	}
	return notConst
}

// wrap truncates integer results to 32 bits.
func wrap(v int64, t types.Type) int64 {
	if s, ok := t.(*types.Scalar); ok && s.Kind == types.ScalarUint {
		return int64(uint32(v))
	}
	return int64(int32(v))
}

func foldBinary(op string, l, r ConstValue, result types.Type) ConstValue {
	switch op {
	case "&&":
		return boolValue(l.Bool && r.Bool)
	case "||":
		return boolValue(l.Bool || r.Bool)
	case "^^":
		return boolValue(l.Bool != r.Bool)
	}

	if l.Kind == ConstBool || r.Kind == ConstBool {
		switch op {
		case "==":
			return boolValue(l.Bool == r.Bool)
		case "!=":
			return boolValue(l.Bool != r.Bool)
		}
		return notConst
	}

	if l.Kind == ConstFloat || r.Kind == ConstFloat {
		a, b := l.asFloat(), r.asFloat()
		switch op {
		case "+":
			return floatValue(a + b)
		case "-":
			return floatValue(a - b)
		case "*":
			return floatValue(a * b)
		case "/":
			if b == 0 {
				return notConst
			}
			return floatValue(a / b)
		case "<":
			return boolValue(a < b)
		case ">":
			return boolValue(a > b)
		case "<=":
			return boolValue(a <= b)
		case ">=":
			return boolValue(a >= b)
		case "==":
			return boolValue(a == b)
		case "!=":
			return boolValue(a != b)
		}
		return notConst
	}

	a, b := l.Int, r.Int
	switch op {
	case "+":
		return intValue(wrap(a+b, result))
	case "-":
		return intValue(wrap(a-b, result))
	case "*":
		return intValue(wrap(a*b, result))
	case "/":
		if b == 0 {
			return notConst
		}
		return intValue(wrap(a/b, result))
	case "%":
		if b == 0 {
			return notConst
		}
		return intValue(wrap(a%b, result))
	case "&":
		return intValue(a & b)
	case "|":
		return intValue(a | b)
	case "^":
		return intValue(wrap(a^b, result))
	case "<<":
		if b < 0 || b > 31 {
			return notConst
		}
		return intValue(wrap(a<<uint(b), result))
	case ">>":
		if b < 0 || b > 31 {
			return notConst
		}
		return intValue(wrap(a>>uint(b), result))
	case "<":
		return boolValue(a < b)
	case ">":
		return boolValue(a > b)
	case "<=":
		return boolValue(a <= b)
	case ">=":
		return boolValue(a >= b)
	case "==":
		return boolValue(a == b)
	case "!=":
		return boolValue(a != b)
	}
	return notConst
}
