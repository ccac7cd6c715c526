// Package parser provides shader parsing into an arena AST.
//
// The parser is a backtracking recursive-descent parser with precedence
// climbing for binary operators. It does more than build the tree:
// - Names are resolved as they are parsed, using text-order scope lookup
// - Every expression node gets its type evaluated on construction
// - Array sizes and case labels are folded to literal constants
// - Context rules (break, continue, discard, return) are enforced
//
// Parsing stops at the first error: there is no recovery, so a parse either
// yields a complete tree or exactly one diagnostic.
package parser

import (
	"fmt"

	"github.com/HugoDaniel/shadec/internal/ast"
	"github.com/HugoDaniel/shadec/internal/diagnostic"
	"github.com/HugoDaniel/shadec/internal/lexer"
	"github.com/HugoDaniel/shadec/internal/logger"
)

var plog = logger.New("parser")

// Options configures parsing.
type Options struct {
	// FragmentEntry names the only function allowed to contain discard.
	FragmentEntry string
}

// DefaultOptions returns the options used by New.
func DefaultOptions() Options {
	return Options{FragmentEntry: "fragment"}
}

// Parser parses shader source into an AST.
type Parser struct {
	tokens  []lexer.Token
	lexErr  error
	pos     int
	tree    *ast.Tree
	scope   ast.NodeID // innermost node receiving declarations
	diags   *diagnostic.List
	options Options
}

// parseAbort unwinds the parser after a diagnostic has been recorded.
type parseAbort struct{}

// noMatch unwinds an alternative whose leading tokens do not fit. It is
// caught by try, which restores the parser and lets the next alternative run.
type noMatch struct{}

// New creates a new parser for the given source.
func New(source string) *Parser {
	return NewWithOptions(source, DefaultOptions())
}

// NewWithOptions creates a new parser with explicit options.
func NewWithOptions(source string, options Options) *Parser {
	tokens, err := lexer.Tokenize(source)
	tree := ast.NewTree()
	if options.FragmentEntry == "" {
		options.FragmentEntry = DefaultOptions().FragmentEntry
	}
	return &Parser{
		tokens:  tokens,
		lexErr:  err,
		tree:    tree,
		scope:   tree.Root,
		diags:   diagnostic.NewList(),
		options: options,
	}
}

// Parse parses source with default options.
func Parse(source string) (*ast.Tree, []diagnostic.Diagnostic) {
	return New(source).Parse()
}

// Parse parses the source and returns the tree. On failure the returned
// diagnostics hold exactly one error and the tree is incomplete.
func (p *Parser) Parse() (tree *ast.Tree, diags []diagnostic.Diagnostic) {
	if p.lexErr != nil {
		line := 0
		msg := p.lexErr.Error()
		if le, ok := p.lexErr.(*lexer.LexError); ok {
			line, msg = le.Line, le.Message
		}
		p.diags.AddError(diagnostic.KindLex, line, msg)
		return p.tree, p.diags.Diagnostics()
	}

	defer func() {
		if r := recover(); r != nil {
			switch r.(type) {
			case parseAbort:
			case noMatch:
				tok := p.current()
				p.diags.AddErrorf(diagnostic.KindSyntax, tok.Line, "Unexpected '%s'.", tok.Text())
			default:
				panic(r)
			}
		}
		if p.diags.HasErrors() {
			plog.Debugf("parse failed: %s", p.diags.Errors()[0].Message)
		}
		tree, diags = p.tree, p.diags.Diagnostics()
	}()

	for p.current().Kind != lexer.TokEOF {
		p.parseStatement()
	}
	return p.tree, p.diags.Diagnostics()
}

// ----------------------------------------------------------------------------
// Token Helpers
// ----------------------------------------------------------------------------

func (p *Parser) current() lexer.Token {
	if p.pos >= len(p.tokens) {
		line := 0
		if len(p.tokens) > 0 {
			line = p.tokens[len(p.tokens)-1].Line
		}
		return lexer.Token{Kind: lexer.TokEOF, Line: line}
	}
	return p.tokens[p.pos]
}

func (p *Parser) peek(offset int) lexer.Token {
	pos := p.pos + offset
	if pos >= len(p.tokens) {
		return lexer.Token{Kind: lexer.TokEOF}
	}
	return p.tokens[pos]
}

func (p *Parser) advance() lexer.Token {
	tok := p.current()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

// expect consumes a token of the given kind or fails with a syntax error.
func (p *Parser) expect(kind lexer.TokenKind, context string) lexer.Token {
	tok := p.current()
	if tok.Kind != kind {
		p.fail(diagnostic.KindSyntax, tok.Line, "Expected '%s' %s but found '%s'.", kind, context, tok.Text())
	}
	return p.advance()
}

func (p *Parser) match(kind lexer.TokenKind) bool {
	if p.current().Kind == kind {
		p.advance()
		return true
	}
	return false
}

// fail records an error and aborts the parse.
func (p *Parser) fail(kind diagnostic.Kind, line int, format string, args ...interface{}) {
	p.diags.AddError(kind, line, fmt.Sprintf(format, args...))
	panic(parseAbort{})
}

// miss abandons the current alternative.
func (p *Parser) miss() {
	panic(noMatch{})
}

// ----------------------------------------------------------------------------
// Backtracking
// ----------------------------------------------------------------------------

// savepoint captures everything an alternative may change.
type savepoint struct {
	pos   int
	nodes int
	scope ast.NodeID
	stmts int
}

func (p *Parser) save() savepoint {
	sp := savepoint{pos: p.pos, nodes: p.tree.Len(), scope: p.scope}
	if list := p.tree.Statements(p.scope); list != nil {
		sp.stmts = len(*list)
	}
	return sp
}

func (p *Parser) restore(sp savepoint) {
	p.pos = sp.pos
	p.scope = sp.scope
	if list := p.tree.Statements(sp.scope); list != nil && len(*list) > sp.stmts {
		*list = (*list)[:sp.stmts]
	}
	p.tree.Truncate(sp.nodes)
}

// try runs one alternative. If the alternative does not apply, the parser is
// restored to where it was and ok is false. Hard errors pass through.
func (p *Parser) try(alternative func() ast.NodeID) (id ast.NodeID, ok bool) {
	sp := p.save()
	defer func() {
		if r := recover(); r != nil {
			if _, isMiss := r.(noMatch); !isMiss {
				panic(r)
			}
			p.restore(sp)
			id, ok = ast.NoNode, false
		}
	}()
	return alternative(), true
}

// emit attaches a finished statement to the current container.
func (p *Parser) emit(id ast.NodeID) {
	list := p.tree.Statements(p.scope)
	if list == nil {
		panic(fmt.Sprintf("parser: node %d cannot hold statements", p.scope))
	}
	*list = append(*list, id)
	p.tree.SetParent(id, p.scope)
}

// enter makes id the current container and returns a function restoring
// the previous one.
func (p *Parser) enter(id ast.NodeID) func() {
	prev := p.scope
	p.scope = id
	return func() { p.scope = prev }
}

func (p *Parser) atGlobalScope() bool {
	return p.scope == p.tree.Root
}

// ----------------------------------------------------------------------------
// Statements
// ----------------------------------------------------------------------------

func (p *Parser) parseStatement() {
	tok := p.current()

	if p.atGlobalScope() {
		p.parseGlobalStatement()
		return
	}

	switch tok.Kind {
	case lexer.TokFor:
		p.emit(p.parseFor())
	case lexer.TokWhile:
		p.emit(p.parseWhile())
	case lexer.TokDo:
		p.emit(p.parseDo())
	case lexer.TokSwitch:
		p.emit(p.parseSwitch())
	case lexer.TokIf:
		p.emit(p.parseIf())
	case lexer.TokStruct:
		p.parseStruct()
	case lexer.TokBreak, lexer.TokContinue, lexer.TokReturn, lexer.TokDiscard:
		p.emit(p.parseJump())
	case lexer.TokLBrace:
		p.emit(p.parseScope())
	case lexer.TokSemicolon:
		p.advance()
		p.emit(p.tree.Add(p.scope, tok.Line, &ast.Empty{}))
	default:
		if _, ok := p.try(p.parseFunctionDeclaration); ok {
			return
		}
		if _, ok := p.try(p.parseVariableDeclarations); ok {
			return
		}
		p.emit(p.parseExpressionStatement())
	}
}

// parseGlobalStatement accepts only declarations.
func (p *Parser) parseGlobalStatement() {
	tok := p.current()
	switch tok.Kind {
	case lexer.TokStruct:
		p.parseStruct()
		return
	case lexer.TokSemicolon:
		p.advance()
		p.emit(p.tree.Add(p.scope, tok.Line, &ast.Empty{}))
		return
	}

	if _, ok := p.try(p.parseFunctionDeclaration); ok {
		return
	}
	if _, ok := p.try(p.parseVariableDeclarations); ok {
		return
	}

	if tok.Kind == lexer.TokIdent && !p.isType(tok) {
		p.fail(diagnostic.KindScope, tok.Line, "Undeclared identifier '%s'.", tok.Value)
	}
	p.fail(diagnostic.KindSyntax, tok.Line, "Only declarations are allowed at global scope, found '%s'.", tok.Text())
}

// parseScope parses a braced block.
func (p *Parser) parseScope() ast.NodeID {
	open := p.expect(lexer.TokLBrace, "to open a block")
	id := p.tree.Add(p.scope, open.Line, &ast.Scope{})
	leave := p.enter(id)
	for p.current().Kind != lexer.TokRBrace {
		if p.current().Kind == lexer.TokEOF {
			p.fail(diagnostic.KindSyntax, p.current().Line, "Expected '}' to close the block opened on line %d.", open.Line)
		}
		p.parseStatement()
	}
	p.advance()
	leave()
	return id
}

// parseBody parses a braced block or a single statement wrapped in an
// implicit scope.
func (p *Parser) parseBody() ast.NodeID {
	if p.current().Kind == lexer.TokLBrace {
		return p.parseScope()
	}
	id := p.tree.Add(p.scope, p.current().Line, &ast.Scope{Implicit: true})
	leave := p.enter(id)
	p.parseStatement()
	leave()
	return id
}

func (p *Parser) parseCondition(what string) ast.NodeID {
	p.expect(lexer.TokLParen, "after '"+what+"'")
	cond := p.parseExpression()
	p.expect(lexer.TokRParen, "after the "+what+" condition")
	p.checkBool(cond, what)
	return cond
}

func (p *Parser) checkBool(cond ast.NodeID, what string) {
	if t := p.tree.TypeOf(cond); t == nil || !isBool(t) {
		p.fail(diagnostic.KindType, p.tree.Line(cond), "The %s condition must be a boolean expression, found '%s'.", what, typeString(t))
	}
}

func (p *Parser) parseFor() ast.NodeID {
	tok := p.advance()
	id := p.tree.Add(p.scope, tok.Line, &ast.For{Condition: ast.NoNode, Increment: ast.NoNode, Body: ast.NoNode})
	node := p.tree.Node(id).(*ast.For)
	leave := p.enter(id)
	defer leave()

	p.expect(lexer.TokLParen, "after 'for'")

	// Init clause: declarations, an expression, or nothing.
	if !p.match(lexer.TokSemicolon) {
		if _, ok := p.try(p.parseVariableDeclarations); !ok {
			p.emit(p.parseExpressionStatement())
		}
	}

	if p.current().Kind != lexer.TokSemicolon {
		node.Condition = p.parseExpression()
		p.tree.SetParent(node.Condition, id)
		p.checkBool(node.Condition, "for")
	}
	p.expect(lexer.TokSemicolon, "after the for condition")

	if p.current().Kind != lexer.TokRParen {
		node.Increment = p.parseExpression()
		p.tree.SetParent(node.Increment, id)
	}
	p.expect(lexer.TokRParen, "after the for clauses")

	node.Body = p.parseBody()
	return id
}

func (p *Parser) parseWhile() ast.NodeID {
	tok := p.advance()
	id := p.tree.Add(p.scope, tok.Line, &ast.While{})
	node := p.tree.Node(id).(*ast.While)
	leave := p.enter(id)
	defer leave()

	node.Condition = p.parseCondition("while")
	p.tree.SetParent(node.Condition, id)
	node.Body = p.parseBody()
	return id
}

func (p *Parser) parseDo() ast.NodeID {
	tok := p.advance()
	id := p.tree.Add(p.scope, tok.Line, &ast.Do{})
	node := p.tree.Node(id).(*ast.Do)
	leave := p.enter(id)
	defer leave()

	node.Body = p.parseBody()
	p.expect(lexer.TokWhile, "after the do body")
	node.Condition = p.parseCondition("do-while")
	p.tree.SetParent(node.Condition, id)
	p.expect(lexer.TokSemicolon, "after do-while")
	return id
}

func (p *Parser) parseIf() ast.NodeID {
	tok := p.advance()
	id := p.tree.Add(p.scope, tok.Line, &ast.If{Else: ast.NoNode})
	node := p.tree.Node(id).(*ast.If)
	leave := p.enter(id)
	defer leave()

	node.Condition = p.parseCondition("if")
	p.tree.SetParent(node.Condition, id)
	node.Then = p.parseBody()

	if p.match(lexer.TokElse) {
		if p.current().Kind == lexer.TokIf {
			node.Else = p.parseIf()
		} else {
			node.Else = p.parseBody()
		}
	}
	return id
}

func (p *Parser) parseSwitch() ast.NodeID {
	tok := p.advance()
	id := p.tree.Add(p.scope, tok.Line, &ast.Switch{})
	node := p.tree.Node(id).(*ast.Switch)
	leave := p.enter(id)
	defer leave()

	p.expect(lexer.TokLParen, "after 'switch'")
	node.Selector = p.parseExpression()
	p.tree.SetParent(node.Selector, id)
	p.expect(lexer.TokRParen, "after the switch selector")
	if t := p.tree.TypeOf(node.Selector); !isIntegerScalar(t) {
		p.fail(diagnostic.KindType, tok.Line, "The switch selector must be an integer scalar, found '%s'.", typeString(t))
	}

	open := p.expect(lexer.TokLBrace, "to open the switch body")
	seen := map[int64]bool{}
	hasDefault := false

	for !p.match(lexer.TokRBrace) {
		label := p.current()
		c := &ast.Case{Value: ast.NoNode}
		switch label.Kind {
		case lexer.TokCase:
			p.advance()
			value := p.parseExpression()
			folded := EvaluateConstant(p.tree, value)
			if folded.Kind != ConstInt {
				p.fail(diagnostic.KindType, label.Line, "Case labels must be integer constant expressions.")
			}
			if seen[folded.Int] {
				p.fail(diagnostic.KindType, label.Line, "Duplicate case label '%d'.", folded.Int)
			}
			seen[folded.Int] = true
			c.Value = p.foldInt(value, folded.Int)
		case lexer.TokDefault:
			p.advance()
			if hasDefault {
				p.fail(diagnostic.KindSyntax, label.Line, "Multiple default labels in one switch.")
			}
			hasDefault = true
			c.Default = true
		case lexer.TokEOF:
			p.fail(diagnostic.KindSyntax, label.Line, "Expected '}' to close the switch opened on line %d.", open.Line)
		default:
			p.fail(diagnostic.KindSyntax, label.Line, "Expected 'case' or 'default' but found '%s'.", label.Text())
		}
		p.expect(lexer.TokColon, "after the case label")

		caseID := p.tree.Add(id, label.Line, c)
		p.tree.SetParent(c.Value, caseID)
		node.Cases = append(node.Cases, caseID)

		leaveCase := p.enter(caseID)
		for k := p.current().Kind; k != lexer.TokCase && k != lexer.TokDefault && k != lexer.TokRBrace; k = p.current().Kind {
			if k == lexer.TokEOF {
				p.fail(diagnostic.KindSyntax, p.current().Line, "Expected '}' to close the switch opened on line %d.", open.Line)
			}
			p.parseStatement()
		}
		leaveCase()
	}
	return id
}

func (p *Parser) parseJump() ast.NodeID {
	tok := p.advance()
	jump := &ast.Jump{Value: ast.NoNode}

	switch tok.Kind {
	case lexer.TokBreak:
		jump.Kind = ast.JumpBreak
		if !p.tree.InLoop(p.scope, true) {
			p.fail(diagnostic.KindSyntax, tok.Line, "'break' is only allowed inside a loop or switch.")
		}
	case lexer.TokContinue:
		jump.Kind = ast.JumpContinue
		if !p.tree.InLoop(p.scope, false) {
			p.fail(diagnostic.KindSyntax, tok.Line, "'continue' is only allowed inside a loop.")
		}
	case lexer.TokDiscard:
		jump.Kind = ast.JumpDiscard
		fn := p.tree.EnclosingFunction(p.scope)
		if !fn.Valid() || p.tree.Node(fn).(*ast.Function).Name != p.options.FragmentEntry {
			p.fail(diagnostic.KindSyntax, tok.Line, "'discard' is only allowed inside the '%s' entry point.", p.options.FragmentEntry)
		}
	case lexer.TokReturn:
		jump.Kind = ast.JumpReturn
	}

	id := p.tree.Add(p.scope, tok.Line, jump)

	if jump.Kind == ast.JumpReturn {
		fnID := p.tree.EnclosingFunction(p.scope)
		fn := p.tree.Node(fnID).(*ast.Function)
		if p.current().Kind != lexer.TokSemicolon {
			jump.Value = p.parseExpression()
			p.tree.SetParent(jump.Value, id)
			got := p.tree.TypeOf(jump.Value)
			if isVoid(fn.ReturnType) {
				p.fail(diagnostic.KindType, tok.Line, "Function '%s' returns void but a value is returned.", fn.Name)
			}
			if !canConvert(got, fn.ReturnType) {
				p.fail(diagnostic.KindType, tok.Line, "Cannot return a value of type '%s' from function '%s' returning '%s'.",
					typeString(got), fn.Name, typeString(fn.ReturnType))
			}
		} else if !isVoid(fn.ReturnType) {
			p.fail(diagnostic.KindType, tok.Line, "Function '%s' must return a value of type '%s'.", fn.Name, typeString(fn.ReturnType))
		}
	}

	p.expect(lexer.TokSemicolon, "after '"+tok.Kind.String()+"'")
	return id
}

func (p *Parser) parseExpressionStatement() ast.NodeID {
	line := p.current().Line
	expr := p.parseExpression()
	p.expect(lexer.TokSemicolon, "after the expression")
	id := p.tree.Add(p.scope, line, &ast.ExpressionStatement{Expr: expr})
	p.tree.SetParent(expr, id)
	return id
}
