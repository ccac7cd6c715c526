package parser

import (
	"strings"

	"github.com/HugoDaniel/shadec/internal/ast"
	"github.com/HugoDaniel/shadec/internal/builtins"
	"github.com/HugoDaniel/shadec/internal/diagnostic"
	"github.com/HugoDaniel/shadec/internal/lexer"
	"github.com/HugoDaniel/shadec/internal/types"
)

// ----------------------------------------------------------------------------
// Type Specifiers
// ----------------------------------------------------------------------------

// isType reports whether tok names a built-in type or a visible struct.
func (p *Parser) isType(tok lexer.Token) bool {
	switch tok.Kind {
	case lexer.TokType:
		return true
	case lexer.TokIdent:
		return p.tree.LookupStruct(p.scope, tok.Value).Valid()
	}
	return false
}

// isVariable reports whether tok names a visible variable.
func (p *Parser) isVariable(tok lexer.Token) bool {
	if tok.Kind != lexer.TokIdent {
		return false
	}
	if p.tree.LookupVariable(p.scope, tok.Value).Valid() {
		return true
	}
	_, ok := builtins.Variables[tok.Value]
	return ok
}

// isFunction reports whether tok names a visible user or built-in function.
func (p *Parser) isFunction(tok lexer.Token) bool {
	if tok.Kind != lexer.TokIdent {
		return false
	}
	return builtins.IsBuiltin(tok.Value) || len(p.tree.LookupFunctions(p.scope, tok.Value)) > 0
}

// parseTypeSpecifier consumes a type name. It abandons the alternative when
// the current token is not a type.
func (p *Parser) parseTypeSpecifier() (string, types.Type) {
	tok := p.current()
	switch tok.Kind {
	case lexer.TokType:
		p.advance()
		t, _ := types.Lookup(tok.Value)
		return tok.Value, t
	case lexer.TokIdent:
		if s := p.tree.LookupStruct(p.scope, tok.Value); s.Valid() {
			p.advance()
			return tok.Value, p.tree.Node(s).(*ast.Struct).StructType
		}
	}
	p.miss()
	return "", nil
}

// expectTypeSpecifier is parseTypeSpecifier where a type is mandatory.
func (p *Parser) expectTypeSpecifier(context string) (string, types.Type) {
	tok := p.current()
	if !p.isType(tok) {
		if tok.Kind == lexer.TokIdent {
			p.fail(diagnostic.KindScope, tok.Line, "Undeclared type '%s'.", tok.Value)
		}
		p.fail(diagnostic.KindSyntax, tok.Line, "Expected a type %s but found '%s'.", context, tok.Text())
	}
	return p.parseTypeSpecifier()
}

// parseQualifiers consumes a run of qualifier keywords.
func (p *Parser) parseQualifiers() []string {
	var quals []string
	for p.current().Kind == lexer.TokQualifier {
		tok := p.advance()
		for _, q := range quals {
			if q == tok.Value {
				p.fail(diagnostic.KindSyntax, tok.Line, "Duplicate qualifier '%s'.", tok.Value)
			}
		}
		quals = append(quals, tok.Value)
	}
	return quals
}

// parseArraySize parses "[expr]" after '[' has been seen and folds the size
// to a literal node. The bracket pair must hold a positive integer constant.
func (p *Parser) parseArraySize() (ast.NodeID, int) {
	open := p.expect(lexer.TokLBracket, "to open the array size")
	if p.current().Kind == lexer.TokRBracket {
		p.fail(diagnostic.KindType, open.Line, "Arrays need to determine the array size at compile-time.")
	}
	expr := p.parseExpression()
	p.expect(lexer.TokRBracket, "after the array size")

	value := EvaluateConstant(p.tree, expr)
	if value.Kind != ConstInt {
		p.fail(diagnostic.KindType, open.Line, "Arrays need to determine the array size at compile-time.")
	}
	if value.Int <= 0 {
		p.fail(diagnostic.KindType, open.Line, "Array size must be greater than zero, found %d.", value.Int)
	}
	return p.foldInt(expr, value.Int), int(value.Int)
}

// foldInt replaces an expression by an integer literal holding its value.
// The literal keeps the expression's signedness.
func (p *Parser) foldInt(expr ast.NodeID, value int64) ast.NodeID {
	if _, ok := p.tree.Node(expr).(*ast.ConstInt); ok {
		return expr
	}
	lit := &ast.ConstInt{Value: value}
	t := types.Type(types.Int)
	if s, ok := p.tree.TypeOf(expr).(*types.Scalar); ok && s.Kind == types.ScalarUint {
		lit.Unsigned = true
		t = types.Uint
	}
	id := p.tree.Add(p.scope, p.tree.Line(expr), lit)
	p.tree.Base(id).Type = t
	return id
}

// checkRedefinition fails if name is already declared in the current scope.
// A function body shares its scope with the parameters.
func (p *Parser) checkRedefinition(name string, line int) {
	scopes := []ast.NodeID{p.scope}
	if _, ok := p.tree.Node(p.scope).(*ast.Scope); ok {
		if parent := p.tree.Parent(p.scope); parent.Valid() {
			if _, isFn := p.tree.Node(parent).(*ast.Function); isFn {
				scopes = append(scopes, parent)
			}
		}
	}
	for _, s := range scopes {
		if prev := p.tree.DeclaredInScope(s, name); prev.Valid() {
			if _, isFn := p.tree.Node(prev).(*ast.Function); isFn && p.atGlobalScope() {
				p.fail(diagnostic.KindScope, line, "'%s' is already declared as a function.", name)
			}
			p.fail(diagnostic.KindScope, line, "Redefinition of '%s' (first declared on line %d).", name, p.tree.Line(prev))
		}
	}
}

// ----------------------------------------------------------------------------
// Functions
// ----------------------------------------------------------------------------

// parseFunctionDeclaration parses a prototype or a definition. It abandons
// the alternative unless it sees "Type name (".
func (p *Parser) parseFunctionDeclaration() ast.NodeID {
	start := p.current()
	retName, retType := p.parseTypeSpecifier()
	nameTok := p.current()
	if nameTok.Kind != lexer.TokIdent || p.peek(1).Kind != lexer.TokLParen {
		p.miss()
	}
	p.advance()
	p.advance()

	if !p.atGlobalScope() {
		p.fail(diagnostic.KindSyntax, start.Line, "Function '%s' must be declared at global scope.", nameTok.Value)
	}
	if builtins.IsBuiltin(nameTok.Value) {
		p.fail(diagnostic.KindScope, nameTok.Line, "Cannot redefine built-in function '%s'.", nameTok.Value)
	}
	if prev := p.tree.DeclaredInScope(p.scope, nameTok.Value); prev.Valid() {
		if _, isFn := p.tree.Node(prev).(*ast.Function); !isFn {
			p.fail(diagnostic.KindScope, nameTok.Line, "Redefinition of '%s' (first declared on line %d).", nameTok.Value, p.tree.Line(prev))
		}
	}

	id := p.tree.Add(p.scope, start.Line, &ast.Function{
		ReturnTypeName: retName,
		ReturnType:     retType,
		Name:           nameTok.Value,
		Body:           ast.NoNode,
	})
	fn := p.tree.Node(id).(*ast.Function)
	leave := p.enter(id)

	// (void) is an empty parameter list.
	if p.current().Kind == lexer.TokType && p.current().Value == "void" && p.peek(1).Kind == lexer.TokRParen {
		p.advance()
	}
	for p.current().Kind != lexer.TokRParen {
		if len(fn.Params) > 0 {
			p.expect(lexer.TokComma, "between parameters")
		}
		fn.Params = append(fn.Params, p.parseParameter())
	}
	p.advance()

	p.checkOverload(id)

	if !p.match(lexer.TokSemicolon) {
		if p.current().Kind != lexer.TokLBrace {
			p.fail(diagnostic.KindSyntax, p.current().Line, "Expected ';' or '{' after the declaration of '%s' but found '%s'.",
				fn.Name, p.current().Text())
		}
		fn.Body = p.parseScope()
	}

	leave()
	p.emit(id)
	return id
}

func (p *Parser) parseParameter() ast.NodeID {
	quals := p.parseQualifiers()
	for _, q := range quals {
		switch q {
		case "uniform", "varying", "flat", "smooth", "noperspective":
			p.fail(diagnostic.KindSyntax, p.current().Line, "Qualifier '%s' is not allowed on a parameter.", q)
		}
	}
	line := p.current().Line
	typeName, typ := p.expectTypeSpecifier("for the parameter")
	if isVoid(typ) {
		p.fail(diagnostic.KindType, line, "Parameters cannot have type 'void'.")
	}

	decl := &ast.VariableDeclaration{
		Qualifiers:  quals,
		TypeName:    typeName,
		VarType:     typ,
		ArraySize:   ast.NoNode,
		Initializer: ast.NoNode,
	}
	if tok := p.current(); tok.Kind == lexer.TokIdent {
		p.advance()
		decl.Name = tok.Value
		p.checkRedefinition(decl.Name, tok.Line)
	}
	id := p.tree.Add(p.scope, line, decl)
	if p.current().Kind == lexer.TokLBracket {
		size, n := p.parseArraySize()
		decl.ArraySize = size
		decl.VarType = &types.Array{Element: typ, Length: n}
		p.tree.SetParent(size, id)
	}
	return id
}

// signature returns the parameter types of a function.
func (p *Parser) signature(fn *ast.Function) []types.Type {
	params := make([]types.Type, len(fn.Params))
	for i, param := range fn.Params {
		params[i] = p.tree.Node(param).(*ast.VariableDeclaration).VarType
	}
	return params
}

// checkOverload validates a new function against earlier declarations with
// the same name: same parameters require the same return type and at most
// one definition.
func (p *Parser) checkOverload(id ast.NodeID) {
	fn := p.tree.Node(id).(*ast.Function)
	params := p.signature(fn)
	for _, prevID := range p.tree.LookupFunctions(p.tree.Root, fn.Name) {
		prev := p.tree.Node(prevID).(*ast.Function)
		if !builtins.Matches(p.signature(prev), params, true) {
			continue
		}
		if !prev.ReturnType.Equals(fn.ReturnType) {
			p.fail(diagnostic.KindType, fn.Line, "Function '%s' redeclared with return type '%s' (previously '%s').",
				fn.Name, typeString(fn.ReturnType), typeString(prev.ReturnType))
		}
		if prev.Body.Valid() && p.current().Kind == lexer.TokLBrace {
			p.fail(diagnostic.KindScope, fn.Line, "Function '%s' is already defined on line %d.", fn.Name, prev.Line)
		}
	}
}

// ----------------------------------------------------------------------------
// Variables
// ----------------------------------------------------------------------------

// parseVariableDeclarations parses "qualifiers Type name [= init] (, name
// [= init])* ;" and emits one declaration per declarator. It abandons the
// alternative unless it sees a type followed by a name.
func (p *Parser) parseVariableDeclarations() ast.NodeID {
	start := p.current()
	quals := p.parseQualifiers()
	var typeName string
	var typ types.Type
	if len(quals) > 0 {
		typeName, typ = p.expectTypeSpecifier("after the qualifiers")
	} else {
		typeName, typ = p.parseTypeSpecifier()
	}

	// Array dimension on the type: float[3] a;
	typeSize, typeLen := ast.NoNode, 0
	if p.current().Kind == lexer.TokLBracket {
		if len(quals) == 0 && !p.looksLikeArrayDeclaration() {
			p.miss()
		}
		typeSize, typeLen = p.parseArraySize()
	}

	if tok := p.current(); tok.Kind != lexer.TokIdent {
		if len(quals) == 0 && typeSize == ast.NoNode {
			p.miss()
		}
		p.fail(diagnostic.KindSyntax, tok.Line, "Expected a variable name but found '%s'.", tok.Text())
	}

	p.checkQualifiers(quals, start.Line)
	if isVoid(typ) {
		p.fail(diagnostic.KindType, start.Line, "Variables cannot have type 'void'.")
	}

	var last ast.NodeID
	for {
		nameTok := p.expect(lexer.TokIdent, "for the variable name")
		last = p.parseDeclarator(quals, typeName, typ, typeSize, typeLen, nameTok)
		if !p.match(lexer.TokComma) {
			break
		}
	}
	p.expect(lexer.TokSemicolon, "after the declaration")
	return last
}

// looksLikeArrayDeclaration distinguishes "float[3] a;" from the array
// constructor expression "float[3](...)".
func (p *Parser) looksLikeArrayDeclaration() bool {
	depth := 0
	for i := 0; ; i++ {
		switch p.peek(i).Kind {
		case lexer.TokLBracket:
			depth++
		case lexer.TokRBracket:
			depth--
			if depth == 0 {
				return p.peek(i+1).Kind == lexer.TokIdent
			}
		case lexer.TokEOF, lexer.TokSemicolon:
			return false
		}
	}
}

func (p *Parser) checkQualifiers(quals []string, line int) {
	global := p.atGlobalScope()
	for _, q := range quals {
		switch q {
		case "uniform", "varying":
			if !global {
				p.fail(diagnostic.KindSyntax, line, "Storage qualifier '%s' is only allowed at global scope.", q)
			}
		case "in", "out", "inout":
			p.fail(diagnostic.KindSyntax, line, "Qualifier '%s' is only allowed on function parameters.", q)
		case "flat", "smooth", "noperspective":
			if !hasQualifier(quals, "varying") {
				p.fail(diagnostic.KindSyntax, line, "Interpolation qualifier '%s' requires 'varying'.", q)
			}
		}
	}
	if hasQualifier(quals, "const") && (hasQualifier(quals, "uniform") || hasQualifier(quals, "varying")) {
		p.fail(diagnostic.KindSyntax, line, "Qualifiers '%s' cannot be combined.", strings.Join(quals, " "))
	}
}

// parseDeclarator parses one "name [N] [= init]" and emits its declaration.
func (p *Parser) parseDeclarator(quals []string, typeName string, typ types.Type, typeSize ast.NodeID, typeLen int, nameTok lexer.Token) ast.NodeID {
	p.checkRedefinition(nameTok.Value, nameTok.Line)

	decl := ast.VariableDeclaration{
		Qualifiers:  quals,
		TypeName:    typeName,
		VarType:     typ,
		Name:        nameTok.Value,
		ArraySize:   ast.NoNode,
		Initializer: ast.NoNode,
	}
	var node ast.Node
	var vd *ast.VariableDeclaration
	if p.atGlobalScope() {
		g := &ast.GlobalVariableDeclaration{VariableDeclaration: decl}
		node, vd = g, &g.VariableDeclaration
	} else {
		node, vd = &decl, &decl
	}
	id := p.tree.Add(p.scope, nameTok.Line, node)

	if typeSize.Valid() {
		vd.ArraySize = p.cloneInt(typeSize, id)
		vd.VarType = &types.Array{Element: typ, Length: typeLen}
	}
	if p.current().Kind == lexer.TokLBracket {
		if typeSize.Valid() {
			p.fail(diagnostic.KindType, nameTok.Line, "Arrays of arrays are not supported.")
		}
		size, n := p.parseArraySize()
		vd.ArraySize = size
		vd.VarType = &types.Array{Element: typ, Length: n}
		p.tree.SetParent(size, id)
	}

	if p.match(lexer.TokEq) {
		if hasQualifier(quals, "varying") {
			p.fail(diagnostic.KindType, nameTok.Line, "Varying '%s' cannot have an initializer.", vd.Name)
		}
		init := p.parseExpression()
		p.tree.SetParent(init, id)
		vd.Initializer = init
		got := p.tree.TypeOf(init)
		if !canConvert(got, vd.VarType) {
			p.fail(diagnostic.KindType, nameTok.Line, "Cannot initialize '%s' of type '%s' with a value of type '%s'.",
				vd.Name, typeString(vd.VarType), typeString(got))
		}
	} else if hasQualifier(quals, "const") {
		p.fail(diagnostic.KindType, nameTok.Line, "Const variable '%s' requires an initializer.", vd.Name)
	}

	p.emit(id)
	return id
}

// cloneInt copies an int literal so that every declarator owns its own size
// node.
func (p *Parser) cloneInt(src, parent ast.NodeID) ast.NodeID {
	lit := p.tree.Node(src).(*ast.ConstInt)
	id := p.tree.Add(parent, lit.Line, &ast.ConstInt{Value: lit.Value})
	p.tree.Base(id).Type = types.Int
	return id
}

// ----------------------------------------------------------------------------
// Structs
// ----------------------------------------------------------------------------

// parseStruct parses "struct Name { fields } [declarators] ;".
func (p *Parser) parseStruct() {
	tok := p.advance()
	nameTok := p.expect(lexer.TokIdent, "for the struct name")
	if _, ok := types.Lookup(nameTok.Value); ok {
		p.fail(diagnostic.KindScope, nameTok.Line, "Cannot redefine built-in type '%s'.", nameTok.Value)
	}
	p.checkRedefinition(nameTok.Value, nameTok.Line)

	node := &ast.Struct{Name: nameTok.Value}
	id := p.tree.Add(p.scope, tok.Line, node)
	node.StructType = &types.Struct{Name: nameTok.Value, Decl: int32(id)}

	p.expect(lexer.TokLBrace, "after the struct name")
	for !p.match(lexer.TokRBrace) {
		if p.current().Kind == lexer.TokEOF {
			p.fail(diagnostic.KindSyntax, p.current().Line, "Expected '}' to close struct '%s'.", node.Name)
		}
		p.parseFields(id, node)
	}
	if len(node.Fields) == 0 {
		p.fail(diagnostic.KindType, tok.Line, "Struct '%s' must have at least one field.", node.Name)
	}
	p.emit(id)

	// Inline declarators: struct S { ... } a, b;
	if p.current().Kind == lexer.TokIdent {
		for {
			nameTok := p.expect(lexer.TokIdent, "for the variable name")
			p.parseDeclarator(nil, node.Name, node.StructType, ast.NoNode, 0, nameTok)
			if !p.match(lexer.TokComma) {
				break
			}
		}
	}
	p.expect(lexer.TokSemicolon, "after the struct declaration")
}

// parseFields parses "Type a [N], b;" inside a struct body.
func (p *Parser) parseFields(structID ast.NodeID, node *ast.Struct) {
	line := p.current().Line
	if p.current().Kind == lexer.TokQualifier {
		p.fail(diagnostic.KindSyntax, line, "Struct fields cannot have qualifiers.")
	}
	typeName, typ := p.expectTypeSpecifier("for the struct field")
	if isVoid(typ) {
		p.fail(diagnostic.KindType, line, "Struct fields cannot have type 'void'.")
	}
	if s, ok := typ.(*types.Struct); ok && s.Decl == node.StructType.Decl {
		p.fail(diagnostic.KindType, line, "Struct '%s' cannot contain itself.", node.Name)
	}

	for {
		nameTok := p.current()
		if !isMemberName(nameTok) {
			p.fail(diagnostic.KindSyntax, nameTok.Line, "Expected a field name but found '%s'.", nameTok.Text())
		}
		p.advance()
		if node.StructType.Field(nameTok.Value) != nil {
			p.fail(diagnostic.KindScope, nameTok.Line, "Duplicate field '%s' in struct '%s'.", nameTok.Value, node.Name)
		}

		field := &ast.Field{TypeName: typeName, FieldType: typ, Name: nameTok.Value, ArraySize: ast.NoNode}
		fieldID := p.tree.Add(structID, nameTok.Line, field)
		if p.current().Kind == lexer.TokLBracket {
			size, n := p.parseArraySize()
			field.ArraySize = size
			field.FieldType = &types.Array{Element: typ, Length: n}
			p.tree.SetParent(size, fieldID)
		}
		node.Fields = append(node.Fields, fieldID)
		node.StructType.Fields = append(node.StructType.Fields, types.StructField{Name: field.Name, Type: field.FieldType})

		if !p.match(lexer.TokComma) {
			break
		}
	}
	p.expect(lexer.TokSemicolon, "after the struct field")
}

// isMemberName accepts identifiers and the type names that double as member
// names, such as the "color" field of VertexData.
func isMemberName(tok lexer.Token) bool {
	return tok.Kind == lexer.TokIdent || tok.Kind == lexer.TokType
}

func hasQualifier(quals []string, q string) bool {
	for _, have := range quals {
		if have == q {
			return true
		}
	}
	return false
}
