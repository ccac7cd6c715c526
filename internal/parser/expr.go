package parser

import (
	"strconv"
	"strings"

	"github.com/HugoDaniel/shadec/internal/ast"
	"github.com/HugoDaniel/shadec/internal/builtins"
	"github.com/HugoDaniel/shadec/internal/diagnostic"
	"github.com/HugoDaniel/shadec/internal/lexer"
	"github.com/HugoDaniel/shadec/internal/types"
)

// ----------------------------------------------------------------------------
// Precedence
// ----------------------------------------------------------------------------

// Binding power of binary, assignment and ternary operators. Higher binds
// tighter. Assignment and ternary are right-associative.
const (
	precAssign = iota + 1
	precTernary
	precLogicalOr
	precLogicalXor
	precLogicalAnd
	precBitOr
	precBitXor
	precBitAnd
	precEquality
	precRelational
	precShift
	precAdditive
	precMultiplicative
)

var precedence = map[lexer.TokenKind]int{
	lexer.TokEq: precAssign, lexer.TokPlusEq: precAssign, lexer.TokMinusEq: precAssign,
	lexer.TokStarEq: precAssign, lexer.TokSlashEq: precAssign, lexer.TokPercentEq: precAssign,
	lexer.TokAmpEq: precAssign, lexer.TokPipeEq: precAssign, lexer.TokCaretEq: precAssign,
	lexer.TokLtLtEq: precAssign, lexer.TokGtGtEq: precAssign,
	lexer.TokQuestion:   precTernary,
	lexer.TokPipePipe:   precLogicalOr,
	lexer.TokCaretCaret: precLogicalXor,
	lexer.TokAmpAmp:     precLogicalAnd,
	lexer.TokPipe:       precBitOr,
	lexer.TokCaret:      precBitXor,
	lexer.TokAmp:        precBitAnd,
	lexer.TokEqEq:       precEquality, lexer.TokBangEq: precEquality,
	lexer.TokLt: precRelational, lexer.TokGt: precRelational,
	lexer.TokLtEq: precRelational, lexer.TokGtEq: precRelational,
	lexer.TokLtLt: precShift, lexer.TokGtGt: precShift,
	lexer.TokPlus: precAdditive, lexer.TokMinus: precAdditive,
	lexer.TokStar: precMultiplicative, lexer.TokSlash: precMultiplicative, lexer.TokPercent: precMultiplicative,
}

// compoundOps maps compound assignments to their arithmetic operator.
var compoundOps = map[lexer.TokenKind]lexer.TokenKind{
	lexer.TokPlusEq: lexer.TokPlus, lexer.TokMinusEq: lexer.TokMinus,
	lexer.TokStarEq: lexer.TokStar, lexer.TokSlashEq: lexer.TokSlash,
	lexer.TokPercentEq: lexer.TokPercent, lexer.TokAmpEq: lexer.TokAmp,
	lexer.TokPipeEq: lexer.TokPipe, lexer.TokCaretEq: lexer.TokCaret,
	lexer.TokLtLtEq: lexer.TokLtLt, lexer.TokGtGtEq: lexer.TokGtGt,
}

// ----------------------------------------------------------------------------
// Expressions
// ----------------------------------------------------------------------------

// parseExpression parses a full expression, including assignments.
func (p *Parser) parseExpression() ast.NodeID {
	return p.parseBinary(precAssign)
}

// add creates an expression node with its evaluated type.
func (p *Parser) add(line int, n ast.Node, typ types.Type, children ...ast.NodeID) ast.NodeID {
	id := p.tree.Add(p.scope, line, n)
	p.tree.Base(id).Type = typ
	for _, c := range children {
		p.tree.SetParent(c, id)
	}
	return id
}

func (p *Parser) parseBinary(minPrec int) ast.NodeID {
	left := p.parseUnary()
	for {
		tok := p.current()
		prec, ok := precedence[tok.Kind]
		if !ok || prec < minPrec {
			return left
		}
		p.advance()

		switch {
		case tok.Kind == lexer.TokQuestion:
			then := p.parseBinary(precAssign)
			p.expect(lexer.TokColon, "in the conditional expression")
			els := p.parseBinary(precTernary)
			left = p.makeTernary(tok, left, then, els)
		case tok.Kind.IsAssignment():
			right := p.parseBinary(precAssign)
			left = p.makeAssignment(tok, left, right)
		default:
			right := p.parseBinary(prec + 1)
			left = p.makeBinary(tok, left, right)
		}
	}
}

// binaryResultType returns the type of "a op b", or nil.
func binaryResultType(op lexer.TokenKind, a, b types.Type) types.Type {
	if a == nil || b == nil {
		return nil
	}
	switch op {
	case lexer.TokPlus, lexer.TokMinus, lexer.TokSlash:
		return types.ArithmeticResultType(a, b)
	case lexer.TokStar:
		return types.MultiplyResultType(a, b)
	case lexer.TokPercent:
		return types.ModuloResultType(a, b)
	case lexer.TokAmp, lexer.TokPipe, lexer.TokCaret:
		return types.BitwiseResultType(a, b)
	case lexer.TokLtLt, lexer.TokGtGt:
		return types.ShiftResultType(a, b)
	case lexer.TokLt, lexer.TokGt, lexer.TokLtEq, lexer.TokGtEq:
		return types.ComparisonResultType(a, b)
	case lexer.TokEqEq, lexer.TokBangEq:
		return types.EqualityResultType(a, b)
	case lexer.TokAmpAmp, lexer.TokPipePipe, lexer.TokCaretCaret:
		return types.LogicalResultType(a, b)
	}
	return nil
}

func (p *Parser) makeBinary(op lexer.Token, left, right ast.NodeID) ast.NodeID {
	lt, rt := p.tree.TypeOf(left), p.tree.TypeOf(right)
	result := binaryResultType(op.Kind, lt, rt)
	if result == nil {
		p.fail(diagnostic.KindType, op.Line, "Invalid operands to binary '%s': '%s' and '%s'.", op.Kind, typeString(lt), typeString(rt))
	}
	return p.add(p.tree.Line(left), &ast.Binary{Op: op.Kind.String(), Left: left, Right: right}, result, left, right)
}

func (p *Parser) makeAssignment(op lexer.Token, left, right ast.NodeID) ast.NodeID {
	p.checkLValue(left, op.Line)
	lt, rt := p.tree.TypeOf(left), p.tree.TypeOf(right)

	value := rt
	if arith, ok := compoundOps[op.Kind]; ok {
		value = binaryResultType(arith, lt, rt)
		if value == nil {
			p.fail(diagnostic.KindType, op.Line, "Invalid operands to '%s': '%s' and '%s'.", op.Kind, typeString(lt), typeString(rt))
		}
	}
	if !canConvert(value, lt) {
		p.fail(diagnostic.KindType, op.Line, "Cannot assign a value of type '%s' to '%s'.", typeString(value), typeString(lt))
	}
	return p.add(p.tree.Line(left), &ast.Binary{Op: op.Kind.String(), Left: left, Right: right}, lt, left, right)
}

func (p *Parser) makeTernary(op lexer.Token, cond, then, els ast.NodeID) ast.NodeID {
	if t := p.tree.TypeOf(cond); !isBool(t) {
		p.fail(diagnostic.KindType, op.Line, "The condition of '?:' must be a boolean expression, found '%s'.", typeString(t))
	}
	tt, et := p.tree.TypeOf(then), p.tree.TypeOf(els)
	var result types.Type
	if tt != nil && et != nil {
		result = types.CommonType(tt, et)
	}
	if result == nil {
		p.fail(diagnostic.KindType, op.Line, "The branches of '?:' have incompatible types '%s' and '%s'.", typeString(tt), typeString(et))
	}
	return p.add(p.tree.Line(cond), &ast.Ternary{Condition: cond, Then: then, Else: els}, result, cond, then, els)
}

// checkLValue fails unless id denotes a writable location.
func (p *Parser) checkLValue(id ast.NodeID, line int) {
	switch n := p.tree.Node(id).(type) {
	case *ast.Variable:
		if !n.Decl.Valid() {
			if builtins.Variables[n.Name].ReadOnly {
				p.fail(diagnostic.KindType, line, "Cannot assign to read-only built-in '%s'.", n.Name)
			}
			return
		}
		decl := varDecl(p.tree.Node(n.Decl))
		switch {
		case decl.HasQualifier("const"):
			p.fail(diagnostic.KindType, line, "Cannot assign to const variable '%s'.", n.Name)
		case decl.HasQualifier("uniform"):
			p.fail(diagnostic.KindType, line, "Cannot assign to uniform '%s'.", n.Name)
		}
	case *ast.PostfixOp:
		switch n.Kind {
		case ast.PostfixIndex:
			p.checkLValue(n.Operand, line)
		case ast.PostfixMember:
			if _, ok := p.tree.TypeOf(n.Operand).(*types.Vector); ok {
				member := p.tree.Node(n.Arg).(*ast.Identifier).Name
				for i := 0; i < len(member); i++ {
					if strings.IndexByte(member[i+1:], member[i]) >= 0 {
						p.fail(diagnostic.KindType, line, "Cannot assign to swizzle '%s' with repeated components.", member)
					}
				}
			}
			p.checkLValue(n.Operand, line)
		default:
			p.fail(diagnostic.KindType, line, "Expression is not assignable.")
		}
	case *ast.Paren:
		p.checkLValue(n.Expr, line)
	default:
		p.fail(diagnostic.KindType, line, "Expression is not assignable.")
	}
}

// varDecl returns the variable part of a local or global declaration.
func varDecl(n ast.Node) *ast.VariableDeclaration {
	switch d := n.(type) {
	case *ast.VariableDeclaration:
		return d
	case *ast.GlobalVariableDeclaration:
		return &d.VariableDeclaration
	}
	return nil
}

// ----------------------------------------------------------------------------
// Unary and Postfix
// ----------------------------------------------------------------------------

func (p *Parser) parseUnary() ast.NodeID {
	tok := p.current()
	switch tok.Kind {
	case lexer.TokMinus, lexer.TokPlus, lexer.TokBang, lexer.TokTilde, lexer.TokPlusPlus, lexer.TokMinusMinus:
		p.advance()
		operand := p.parseUnary()
		t := p.tree.TypeOf(operand)
		ok := false
		switch tok.Kind {
		case lexer.TokMinus, lexer.TokPlus:
			ok = types.IsNumeric(t)
		case lexer.TokBang:
			ok = isBool(t)
		case lexer.TokTilde:
			ok = types.IsInteger(t)
		default:
			ok = types.IsNumeric(t)
			if ok {
				p.checkLValue(operand, tok.Line)
			}
		}
		if !ok {
			p.fail(diagnostic.KindType, tok.Line, "Invalid operand to unary '%s': '%s'.", tok.Kind, typeString(t))
		}
		return p.add(tok.Line, &ast.PrefixOp{Op: tok.Kind.String(), Operand: operand}, t, operand)
	}
	return p.parsePostfix(p.parsePrimary())
}

func (p *Parser) parsePostfix(operand ast.NodeID) ast.NodeID {
	for {
		tok := p.current()
		t := p.tree.TypeOf(operand)

		switch tok.Kind {
		case lexer.TokLBracket:
			p.advance()
			index := p.parseExpression()
			p.expect(lexer.TokRBracket, "after the index")
			elem := types.IndexType(t)
			if elem == nil {
				p.fail(diagnostic.KindType, tok.Line, "Type '%s' cannot be indexed.", typeString(t))
			}
			if !isIntegerScalar(p.tree.TypeOf(index)) {
				p.fail(diagnostic.KindType, tok.Line, "Index must be an integer scalar, found '%s'.", typeString(p.tree.TypeOf(index)))
			}
			if v := EvaluateConstant(p.tree, index); v.Kind == ConstInt {
				if n := types.IndexLength(t); v.Int < 0 || v.Int >= int64(n) {
					p.fail(diagnostic.KindType, tok.Line, "Index %d is out of range for '%s'.", v.Int, typeString(t))
				}
			}
			operand = p.add(p.tree.Line(operand), &ast.PostfixOp{Kind: ast.PostfixIndex, Operand: operand, Arg: index}, elem, operand, index)

		case lexer.TokDot:
			p.advance()
			nameTok := p.current()
			if !isMemberName(nameTok) {
				p.fail(diagnostic.KindSyntax, nameTok.Line, "Expected a member name after '.' but found '%s'.", nameTok.Text())
			}
			p.advance()
			result := p.memberType(t, nameTok)
			member := p.add(nameTok.Line, &ast.Identifier{Name: nameTok.Value}, nil)
			operand = p.add(p.tree.Line(operand), &ast.PostfixOp{Kind: ast.PostfixMember, Operand: operand, Arg: member}, result, operand, member)

		case lexer.TokPlusPlus, lexer.TokMinusMinus:
			p.advance()
			if !types.IsNumeric(t) {
				p.fail(diagnostic.KindType, tok.Line, "Invalid operand to postfix '%s': '%s'.", tok.Kind, typeString(t))
			}
			p.checkLValue(operand, tok.Line)
			kind := ast.PostfixIncrement
			if tok.Kind == lexer.TokMinusMinus {
				kind = ast.PostfixDecrement
			}
			operand = p.add(p.tree.Line(operand), &ast.PostfixOp{Kind: kind, Operand: operand, Arg: ast.NoNode}, t, operand)

		default:
			return operand
		}
	}
}

func (p *Parser) memberType(t types.Type, name lexer.Token) types.Type {
	switch t := t.(type) {
	case *types.Vector:
		result, err := types.SwizzleType(t, name.Value)
		if err != nil {
			p.fail(diagnostic.KindType, name.Line, "%s", err.Error())
		}
		return result
	case *types.Struct:
		f := t.Field(name.Value)
		if f == nil {
			p.fail(diagnostic.KindType, name.Line, "Struct '%s' has no field '%s'.", t.Name, name.Value)
		}
		return f.Type
	}
	p.fail(diagnostic.KindType, name.Line, "Type '%s' has no members.", typeString(t))
	return nil
}

// ----------------------------------------------------------------------------
// Primary Expressions
// ----------------------------------------------------------------------------

func (p *Parser) parsePrimary() ast.NodeID {
	tok := p.current()

	switch tok.Kind {
	case lexer.TokLParen:
		p.advance()
		inner := p.parseExpression()
		p.expect(lexer.TokRParen, "to close the parenthesized expression")
		return p.add(tok.Line, &ast.Paren{Expr: inner}, p.tree.TypeOf(inner), inner)

	case lexer.TokIntLiteral, lexer.TokUintLiteral:
		p.advance()
		value, err := strconv.ParseUint(tok.Value, 10, 64)
		if err != nil || value > 0xFFFFFFFF {
			p.fail(diagnostic.KindLex, tok.Line, "Integer literal '%s' does not fit in 32 bits.", tok.Value)
		}
		if tok.Kind == lexer.TokUintLiteral {
			return p.add(tok.Line, &ast.ConstInt{Value: int64(value), Unsigned: true}, types.Uint)
		}
		return p.add(tok.Line, &ast.ConstInt{Value: int64(value)}, types.Int)

	case lexer.TokFloatLiteral:
		p.advance()
		value, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			p.fail(diagnostic.KindLex, tok.Line, "Malformed float literal '%s'.", tok.Value)
		}
		return p.add(tok.Line, &ast.ConstFloat{Value: value, Text: tok.Value}, types.Float)

	case lexer.TokBoolLiteral:
		p.advance()
		return p.add(tok.Line, &ast.ConstBool{Value: tok.Value == "true"}, types.Bool)

	case lexer.TokIdent:
		if p.isType(tok) {
			return p.parseConstructor()
		}
		if p.peek(1).Kind == lexer.TokLParen {
			return p.parseCall()
		}
		if !p.isVariable(tok) {
			p.fail(diagnostic.KindScope, tok.Line, "Undeclared identifier '%s'.", tok.Value)
		}
		p.advance()
		decl := p.tree.LookupVariable(p.scope, tok.Value)
		var t types.Type
		if decl.Valid() {
			t = varDecl(p.tree.Node(decl)).VarType
		} else {
			t = builtins.Variables[tok.Value].Type
		}
		return p.add(tok.Line, &ast.Variable{Name: tok.Value, Decl: decl}, t)

	case lexer.TokType:
		return p.parseConstructor()
	}

	p.fail(diagnostic.KindSyntax, tok.Line, "Expected an expression but found '%s'.", tok.Text())
	return ast.NoNode
}

// parseArguments parses "(a, b, c)".
func (p *Parser) parseArguments(callee string) []ast.NodeID {
	p.expect(lexer.TokLParen, "after '"+callee+"'")
	var args []ast.NodeID
	if p.current().Kind == lexer.TokType && p.current().Value == "void" && p.peek(1).Kind == lexer.TokRParen {
		p.advance()
	}
	for p.current().Kind != lexer.TokRParen {
		if len(args) > 0 {
			p.expect(lexer.TokComma, "between arguments")
		}
		args = append(args, p.parseBinary(precAssign))
	}
	p.advance()
	return args
}

func (p *Parser) argTypes(args []ast.NodeID) []types.Type {
	out := make([]types.Type, len(args))
	for i, a := range args {
		out[i] = p.tree.TypeOf(a)
	}
	return out
}

// parseCall resolves a call against user functions first, then builtins.
// Exact parameter matches win over matches needing implicit conversions.
func (p *Parser) parseCall() ast.NodeID {
	tok := p.advance()
	name := tok.Value
	if !p.isFunction(tok) {
		if p.isVariable(tok) {
			p.fail(diagnostic.KindType, tok.Line, "'%s' is not a function.", name)
		}
		p.fail(diagnostic.KindScope, tok.Line, "Undeclared function '%s'.", name)
	}

	args := p.parseArguments(name)
	argTypes := p.argTypes(args)

	target := ast.NoNode
	var result types.Type
	candidates := p.tree.LookupFunctions(p.scope, name)
	for _, exact := range []bool{true, false} {
		for _, c := range candidates {
			if builtins.Matches(p.signature(p.tree.Node(c).(*ast.Function)), argTypes, exact) {
				target = c
				result = p.tree.Node(c).(*ast.Function).ReturnType
				break
			}
		}
		if target.Valid() {
			break
		}
	}
	if !target.Valid() {
		if b := builtins.Lookup(name); b != nil {
			if ret, ok := builtins.ResolveOverload(b, argTypes); ok {
				result = ret
			}
		}
	}
	if result == nil {
		p.fail(diagnostic.KindType, tok.Line, "No matching definition for function call '%s(%s)'", name, joinTypes(argTypes))
	}

	if target.Valid() {
		fn := p.tree.Node(target).(*ast.Function)
		for i, param := range fn.Params {
			decl := p.tree.Node(param).(*ast.VariableDeclaration)
			if decl.HasQualifier("out") || decl.HasQualifier("inout") {
				p.checkLValue(args[i], tok.Line)
			}
		}
	}

	return p.add(tok.Line, &ast.FunctionCall{Name: name, Args: args, Target: target, ArraySize: ast.NoNode}, result, args...)
}

// parseConstructor parses "Type(args)" and "Type[N](args)".
func (p *Parser) parseConstructor() ast.NodeID {
	tok := p.current()
	typeName, typ := p.expectTypeSpecifier("for the constructor")

	arraySize := ast.NoNode
	arrayLen := -1
	if p.current().Kind == lexer.TokLBracket {
		if p.peek(1).Kind == lexer.TokRBracket {
			p.advance()
			p.advance()
			arrayLen = 0
		} else {
			arraySize, arrayLen = p.parseArraySize()
		}
	}
	if p.current().Kind != lexer.TokLParen {
		p.fail(diagnostic.KindSyntax, p.current().Line, "Expected '(' after type '%s' but found '%s'.", typeName, p.current().Text())
	}
	args := p.parseArguments(typeName)
	argTypes := p.argTypes(args)
	result := typ

	switch {
	case arrayLen >= 0:
		if arrayLen == 0 {
			arrayLen = len(args)
			if arrayLen == 0 {
				p.fail(diagnostic.KindType, tok.Line, "Arrays need to determine the array size at compile-time.")
			}
			arraySize = p.add(tok.Line, &ast.ConstInt{Value: int64(arrayLen)}, types.Int)
		}
		if len(args) != arrayLen {
			p.fail(diagnostic.KindType, tok.Line, "Array constructor '%s[%d]' expects %d arguments but got %d.", typeName, arrayLen, arrayLen, len(args))
		}
		for i, at := range argTypes {
			if !canConvert(at, typ) {
				p.fail(diagnostic.KindType, tok.Line, "Argument %d of array constructor '%s[%d]' has type '%s', expected '%s'.",
					i+1, typeName, arrayLen, typeString(at), typ.String())
			}
		}
		result = &types.Array{Element: typ, Length: arrayLen}

	case isStruct(typ):
		st := typ.(*types.Struct)
		if len(args) != len(st.Fields) {
			p.fail(diagnostic.KindType, tok.Line, "Constructor '%s' expects %d arguments but got %d.", st.Name, len(st.Fields), len(args))
		}
		for i, f := range st.Fields {
			if !canConvert(argTypes[i], f.Type) {
				p.fail(diagnostic.KindType, tok.Line, "Argument %d of constructor '%s' has type '%s', expected '%s'.",
					i+1, st.Name, typeString(argTypes[i]), typeString(f.Type))
			}
		}

	default:
		if err := types.CheckConstructor(typ, argTypes); err != nil {
			p.fail(diagnostic.KindType, tok.Line, "%s", err.Error())
		}
	}

	children := append([]ast.NodeID{arraySize}, args...)
	return p.add(tok.Line, &ast.FunctionCall{
		Name:        typeName,
		Args:        args,
		Target:      ast.NoNode,
		Constructor: true,
		ArraySize:   arraySize,
	}, result, children...)
}

// ----------------------------------------------------------------------------
// Type Helpers
// ----------------------------------------------------------------------------

func typeString(t types.Type) string {
	if t == nil {
		return "<unknown>"
	}
	return t.String()
}

func joinTypes(ts []types.Type) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = typeString(t)
	}
	return strings.Join(parts, ", ")
}

func canConvert(from, to types.Type) bool {
	return from != nil && to != nil && types.CanConvert(from, to)
}

func isBool(t types.Type) bool {
	return t != nil && types.IsBoolScalar(t)
}

func isIntegerScalar(t types.Type) bool {
	return t != nil && types.IsIntegerScalar(t)
}

func isVoid(t types.Type) bool {
	_, ok := t.(*types.Void)
	return ok
}

func isStruct(t types.Type) bool {
	_, ok := t.(*types.Struct)
	return ok
}
