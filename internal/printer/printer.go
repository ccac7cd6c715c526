// Package printer outputs GLSL code from an AST.
//
// The printer can operate in two modes:
// - Pretty: Human-readable output with indentation
// - Compact: Minimal whitespace output
//
// Stage-specific rewriting happens during printing rather than as a separate
// AST transformation: varying becomes out in the vertex stage and in in the
// fragment stage, and the color type prints as vec4. While printing, the
// printer records which source line produced each output line.
package printer

import (
	"sort"
	"strconv"
	"strings"

	"github.com/HugoDaniel/shadec/internal/ast"
)

// Stage selects the stage-specific rewriting of storage qualifiers.
type Stage uint8

const (
	StageNone Stage = iota
	StageVertex
	StageFragment
)

func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	}
	return "none"
}

// Filter decides which top-level statements are printed.
type Filter interface {
	IsLive(id ast.NodeID) bool
}

// Options controls printer output.
type Options struct {
	// Stage rewrites varying storage for one pipeline stage
	Stage Stage

	// MinifyWhitespace removes unnecessary whitespace
	MinifyWhitespace bool

	// Filter skips top-level statements (nil prints everything)
	Filter Filter
}

// Printer outputs GLSL code.
type Printer struct {
	options Options
	tree    *ast.Tree

	buf    strings.Builder
	indent int
	line   int // 0-based output line
	lines  LineMap
}

// New creates a new printer.
func New(options Options, tree *ast.Tree) *Printer {
	return &Printer{options: options, tree: tree}
}

// Print outputs the program as a string.
func (p *Printer) Print() string {
	p.buf.Reset()
	p.line = 0
	p.lines = nil
	p.printProgram()
	return p.buf.String()
}

// LineMap returns the source line of every output line from the last Print.
func (p *Printer) LineMap() LineMap {
	return p.lines
}

// Node2Code prints a single node, statement or expression, with default
// options.
func Node2Code(tree *ast.Tree, id ast.NodeID, stage Stage) string {
	p := New(Options{Stage: stage}, tree)
	if isExpression(tree.Node(id)) {
		p.printExpr(id)
	} else {
		p.printStmt(id)
	}
	return p.buf.String()
}

// ----------------------------------------------------------------------------
// Line Map
// ----------------------------------------------------------------------------

// LineMap maps 0-based output lines to 1-based source lines. Zero means the
// output line was not produced by a statement, such as a closing brace.
type LineMap []int

// Lookup returns the source line for a 1-based output line. Lines without
// their own entry take the closest preceding mapped line.
func (m LineMap) Lookup(outputLine int) int {
	if outputLine < 1 {
		return 0
	}
	for i := outputLine - 1; i >= 0; i-- {
		if i < len(m) && m[i] != 0 {
			return m[i]
		}
	}
	return 0
}

// ----------------------------------------------------------------------------
// Output Helpers
// ----------------------------------------------------------------------------

func (p *Printer) print(s string) {
	p.buf.WriteString(s)
}

func (p *Printer) printSpace() {
	if !p.options.MinifyWhitespace {
		p.buf.WriteByte(' ')
	}
}

func (p *Printer) printNewline() {
	if p.options.MinifyWhitespace {
		return
	}
	p.buf.WriteByte('\n')
	p.line++
	for i := 0; i < p.indent; i++ {
		p.buf.WriteString("    ")
	}
}

// mark records the source line of the statement starting on this line.
func (p *Printer) mark(id ast.NodeID) {
	for len(p.lines) <= p.line {
		p.lines = append(p.lines, 0)
	}
	if p.lines[p.line] == 0 {
		p.lines[p.line] = p.tree.Line(id)
	}
}

func (p *Printer) printTypeName(name string) {
	if name == "color" {
		name = "vec4"
	}
	p.print(name)
}

// ----------------------------------------------------------------------------
// Program and Declarations
// ----------------------------------------------------------------------------

func (p *Printer) printProgram() {
	first := true
	for _, id := range p.tree.Program().Statements {
		if p.options.Filter != nil && !p.options.Filter.IsLive(id) {
			continue
		}
		if _, ok := p.tree.Node(id).(*ast.Empty); ok {
			continue
		}
		if !first {
			p.printNewline()
		}
		first = false
		p.printStmt(id)
	}
	if !first {
		p.printNewline()
	}
}

// qualifierRank orders qualifiers the way GLSL expects them: interpolation,
// storage, precision.
var qualifierRank = map[string]int{
	"flat": 0, "smooth": 0, "noperspective": 0,
	"const": 1, "uniform": 1, "varying": 1, "in": 1, "out": 1, "inout": 1,
	"lowp": 2, "mediump": 2, "highp": 2,
}

func (p *Printer) printQualifiers(quals []string) {
	sorted := append([]string(nil), quals...)
	sort.SliceStable(sorted, func(i, j int) bool { return qualifierRank[sorted[i]] < qualifierRank[sorted[j]] })
	for _, q := range sorted {
		if q == "varying" {
			switch p.options.Stage {
			case StageVertex:
				q = "out"
			case StageFragment:
				q = "in"
			}
		}
		p.print(q)
		p.print(" ")
	}
}

func (p *Printer) printArraySize(size ast.NodeID) {
	if size.Valid() {
		p.print("[")
		p.printExpr(size)
		p.print("]")
	}
}

// printDeclarator prints "name[N] = init".
func (p *Printer) printDeclarator(d *ast.VariableDeclaration) {
	p.print(d.Name)
	p.printArraySize(d.ArraySize)
	if d.Initializer.Valid() {
		p.printSpace()
		p.print("=")
		p.printSpace()
		p.printExpr(d.Initializer)
	}
}

func (p *Printer) printVariable(d *ast.VariableDeclaration) {
	p.printQualifiers(d.Qualifiers)
	p.printTypeName(d.TypeName)
	p.print(" ")
	p.printDeclarator(d)
}

func (p *Printer) printFunction(fn *ast.Function) {
	p.printTypeName(fn.ReturnTypeName)
	p.print(" ")
	p.print(fn.Name)
	p.print("(")
	for i, param := range fn.Params {
		if i > 0 {
			p.print(",")
			p.printSpace()
		}
		d := p.tree.Node(param).(*ast.VariableDeclaration)
		p.printQualifiers(d.Qualifiers)
		p.printTypeName(d.TypeName)
		if d.Name != "" {
			p.print(" ")
			p.print(d.Name)
		}
		p.printArraySize(d.ArraySize)
	}
	p.print(")")
	if !fn.Body.Valid() {
		p.print(";")
		return
	}
	p.printSpace()
	p.printBlock(p.tree.Node(fn.Body).(*ast.Scope).Statements)
}

func (p *Printer) printStruct(s *ast.Struct) {
	p.print("struct ")
	p.print(s.Name)
	p.printSpace()
	p.print("{")
	p.indent++
	for _, id := range s.Fields {
		f := p.tree.Node(id).(*ast.Field)
		p.printNewline()
		p.mark(id)
		p.printTypeName(f.TypeName)
		p.print(" ")
		p.print(f.Name)
		p.printArraySize(f.ArraySize)
		p.print(";")
	}
	p.indent--
	p.printNewline()
	p.print("};")
}

// ----------------------------------------------------------------------------
// Statements
// ----------------------------------------------------------------------------

func (p *Printer) printBlock(stmts []ast.NodeID) {
	p.print("{")
	p.indent++
	for _, id := range stmts {
		p.printNewline()
		p.printStmt(id)
	}
	p.indent--
	p.printNewline()
	p.print("}")
}

// printBody prints a loop or branch body, always braced.
func (p *Printer) printBody(id ast.NodeID) {
	if s, ok := p.tree.Node(id).(*ast.Scope); ok {
		p.printBlock(s.Statements)
		return
	}
	p.printBlock([]ast.NodeID{id})
}

func (p *Printer) printStmt(id ast.NodeID) {
	p.mark(id)

	switch s := p.tree.Node(id).(type) {
	case *ast.Scope:
		p.printBlock(s.Statements)

	case *ast.VariableDeclaration:
		p.printVariable(s)
		p.print(";")

	case *ast.GlobalVariableDeclaration:
		p.printVariable(&s.VariableDeclaration)
		p.print(";")

	case *ast.Function:
		p.printFunction(s)

	case *ast.Struct:
		p.printStruct(s)

	case *ast.For:
		p.print("for")
		p.printSpace()
		p.print("(")
		p.printForInit(s.Init)
		p.print(";")
		if s.Condition.Valid() {
			p.printSpace()
			p.printExpr(s.Condition)
		}
		p.print(";")
		if s.Increment.Valid() {
			p.printSpace()
			p.printExpr(s.Increment)
		}
		p.print(")")
		p.printSpace()
		p.printBody(s.Body)

	case *ast.While:
		p.print("while")
		p.printSpace()
		p.print("(")
		p.printExpr(s.Condition)
		p.print(")")
		p.printSpace()
		p.printBody(s.Body)

	case *ast.Do:
		p.print("do")
		p.printSpace()
		p.printBody(s.Body)
		p.printSpace()
		p.print("while")
		p.printSpace()
		p.print("(")
		p.printExpr(s.Condition)
		p.print(");")

	case *ast.If:
		p.printIf(s)

	case *ast.Switch:
		p.print("switch")
		p.printSpace()
		p.print("(")
		p.printExpr(s.Selector)
		p.print(")")
		p.printSpace()
		p.print("{")
		for _, c := range s.Cases {
			p.printNewline()
			p.printCase(c)
		}
		p.printNewline()
		p.print("}")

	case *ast.Jump:
		p.print(s.Kind.String())
		if s.Value.Valid() {
			p.print(" ")
			p.printExpr(s.Value)
		}
		p.print(";")

	case *ast.ExpressionStatement:
		p.printExpr(s.Expr)
		p.print(";")

	case *ast.Empty:
		p.print(";")
	}
}

func (p *Printer) printIf(s *ast.If) {
	p.print("if")
	p.printSpace()
	p.print("(")
	p.printExpr(s.Condition)
	p.print(")")
	p.printSpace()
	p.printBody(s.Then)
	if !s.Else.Valid() {
		return
	}
	p.printSpace()
	p.print("else")
	if elseIf, ok := p.tree.Node(s.Else).(*ast.If); ok {
		p.print(" ")
		p.printIf(elseIf)
		return
	}
	p.printSpace()
	p.printBody(s.Else)
}

func (p *Printer) printCase(id ast.NodeID) {
	p.mark(id)
	c := p.tree.Node(id).(*ast.Case)
	if c.Default {
		p.print("default:")
	} else {
		p.print("case ")
		p.printExpr(c.Value)
		p.print(":")
	}
	p.indent++
	for _, stmt := range c.Statements {
		p.printNewline()
		p.printStmt(stmt)
	}
	p.indent--
}

// printForInit prints the init clause without its semicolon. Several
// declarators share one type.
func (p *Printer) printForInit(init []ast.NodeID) {
	for i, id := range init {
		switch s := p.tree.Node(id).(type) {
		case *ast.VariableDeclaration:
			if i == 0 {
				p.printVariable(s)
			} else {
				p.print(",")
				p.printSpace()
				p.printDeclarator(s)
			}
		case *ast.ExpressionStatement:
			p.printExpr(s.Expr)
		}
	}
}

// ----------------------------------------------------------------------------
// Expressions
// ----------------------------------------------------------------------------

func isExpression(n ast.Node) bool {
	switch n.(type) {
	case *ast.Identifier, *ast.Variable, *ast.ConstBool, *ast.ConstInt, *ast.ConstFloat,
		*ast.Binary, *ast.PrefixOp, *ast.PostfixOp, *ast.FunctionCall, *ast.Ternary, *ast.Paren:
		return true
	}
	return false
}

func (p *Printer) printExpr(id ast.NodeID) {
	switch e := p.tree.Node(id).(type) {
	case *ast.Identifier:
		p.print(e.Name)

	case *ast.Variable:
		p.print(e.Name)

	case *ast.ConstBool:
		p.print(strconv.FormatBool(e.Value))

	case *ast.ConstInt:
		p.print(strconv.FormatInt(e.Value, 10))
		if e.Unsigned {
			p.print("u")
		}

	case *ast.ConstFloat:
		if e.Text != "" {
			p.print(e.Text)
		} else {
			p.print(FormatFloat(e.Value))
		}

	case *ast.Binary:
		p.printExpr(e.Left)
		p.printSpace()
		p.print(e.Op)
		// "x - -x" must not print as "x--x".
		if op := p.leadingPrefix(e.Right); p.options.MinifyWhitespace && op != "" && op[0] == e.Op[len(e.Op)-1] {
			p.print(" ")
		} else {
			p.printSpace()
		}
		p.printExpr(e.Right)

	case *ast.PrefixOp:
		p.print(e.Op)
		// "- -x" must not print as "--x".
		if inner, ok := p.tree.Node(e.Operand).(*ast.PrefixOp); ok && inner.Op[0] == e.Op[len(e.Op)-1] {
			p.print(" ")
		}
		p.printExpr(e.Operand)

	case *ast.PostfixOp:
		p.printExpr(e.Operand)
		switch e.Kind {
		case ast.PostfixIndex:
			p.print("[")
			p.printExpr(e.Arg)
			p.print("]")
		case ast.PostfixMember:
			p.print(".")
			p.printExpr(e.Arg)
		case ast.PostfixIncrement:
			p.print("++")
		case ast.PostfixDecrement:
			p.print("--")
		}

	case *ast.FunctionCall:
		if e.Constructor {
			p.printTypeName(e.Name)
			p.printArraySize(e.ArraySize)
		} else {
			p.print(e.Name)
		}
		p.print("(")
		for i, arg := range e.Args {
			if i > 0 {
				p.print(",")
				p.printSpace()
			}
			p.printExpr(arg)
		}
		p.print(")")

	case *ast.Ternary:
		p.printExpr(e.Condition)
		p.printSpace()
		p.print("?")
		p.printSpace()
		p.printExpr(e.Then)
		p.printSpace()
		p.print(":")
		p.printSpace()
		p.printExpr(e.Else)

	case *ast.Paren:
		p.print("(")
		p.printExpr(e.Expr)
		p.print(")")
	}
}

// leadingPrefix returns the prefix operator printed first by id, if any.
func (p *Printer) leadingPrefix(id ast.NodeID) string {
	for {
		switch e := p.tree.Node(id).(type) {
		case *ast.PrefixOp:
			return e.Op
		case *ast.Binary:
			id = e.Left
		case *ast.Ternary:
			id = e.Condition
		case *ast.PostfixOp:
			id = e.Operand
		default:
			return ""
		}
	}
}

// FormatFloat prints a float so that GLSL reads it back as a float.
func FormatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEn") {
		s += ".0"
	}
	return s
}
