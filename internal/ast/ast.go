// Package ast defines the syntax tree produced by the shader parser.
//
// The tree is an arena:
// - Nodes live in one slice and refer to each other by NodeID
// - Every node records its parent id; the parent link is weak and only used
//   for walking outwards during scope lookup
// - Children are owned by exactly one parent
//
// A NodeID is only meaningful together with the Tree that produced it.
package ast

import (
	"github.com/alecthomas/repr"

	"github.com/HugoDaniel/shadec/internal/types"
)

// NodeID indexes a node in a Tree.
type NodeID int32

// NoNode marks an absent child or the parent of the root.
const NoNode NodeID = -1

// Valid returns true if the id refers to a node.
func (id NodeID) Valid() bool {
	return id >= 0
}

// Base holds the fields shared by every node.
type Base struct {
	ID     NodeID
	Parent NodeID
	Line   int
	// Type is the evaluated type of an expression node; nil for statements.
	Type types.Type
}

// Node is implemented by every node variant.
type Node interface {
	base() *Base
}

func (b *Base) base() *Base { return b }

// ----------------------------------------------------------------------------
// Containers
// ----------------------------------------------------------------------------

// Program is the root of a parsed source.
type Program struct {
	Base
	Statements []NodeID
}

// Scope is a braced block of statements. Implicit scopes wrap an unbraced
// single-statement body.
type Scope struct {
	Base
	Statements []NodeID
	Implicit   bool
}

// ----------------------------------------------------------------------------
// Declarations
// ----------------------------------------------------------------------------

// VariableDeclaration declares a local variable or a function parameter.
type VariableDeclaration struct {
	Base
	Qualifiers  []string
	TypeName    string
	VarType     types.Type // includes the array dimension, if any
	Name        string
	ArraySize   NodeID // folded constant, NoNode when not an array
	Initializer NodeID
}

// GlobalVariableDeclaration declares a program-level variable, including
// uniforms and varyings.
type GlobalVariableDeclaration struct {
	VariableDeclaration
}

// HasQualifier returns true if the declaration carries the qualifier.
func (d *VariableDeclaration) HasQualifier(q string) bool {
	for _, have := range d.Qualifiers {
		if have == q {
			return true
		}
	}
	return false
}

// Function declares a function prototype (Body is NoNode) or definition.
type Function struct {
	Base
	ReturnTypeName string
	ReturnType     types.Type
	Name           string
	Params         []NodeID
	Body           NodeID
}

// Struct declares a struct type.
type Struct struct {
	Base
	Name       string
	Fields     []NodeID
	StructType *types.Struct
}

// Field is a struct member.
type Field struct {
	Base
	TypeName  string
	FieldType types.Type
	Name      string
	ArraySize NodeID
}

// ----------------------------------------------------------------------------
// Statements
// ----------------------------------------------------------------------------

// For is a for loop. Init holds zero or more declarations or one expression.
type For struct {
	Base
	Init      []NodeID
	Condition NodeID
	Increment NodeID
	Body      NodeID
}

// While is a while loop.
type While struct {
	Base
	Condition NodeID
	Body      NodeID
}

// Do is a do-while loop.
type Do struct {
	Base
	Body      NodeID
	Condition NodeID
}

// Switch is a switch statement.
type Switch struct {
	Base
	Selector NodeID
	Cases    []NodeID
}

// Case is one labelled section of a switch. Default cases have no Value.
type Case struct {
	Base
	Value      NodeID
	Default    bool
	Statements []NodeID
}

// If is an if statement. Else is a Scope, another If, or NoNode.
type If struct {
	Base
	Condition NodeID
	Then      NodeID
	Else      NodeID
}

// JumpKind identifies a jump statement.
type JumpKind uint8

const (
	JumpBreak JumpKind = iota
	JumpContinue
	JumpReturn
	JumpDiscard
)

var jumpNames = [...]string{
	JumpBreak:    "break",
	JumpContinue: "continue",
	JumpReturn:   "return",
	JumpDiscard:  "discard",
}

func (k JumpKind) String() string {
	return jumpNames[k]
}

// Jump is break, continue, return or discard. Value is the returned
// expression or NoNode.
type Jump struct {
	Base
	Kind  JumpKind
	Value NodeID
}

// ExpressionStatement evaluates an expression for its side effects.
type ExpressionStatement struct {
	Base
	Expr NodeID
}

// Empty is a lone semicolon.
type Empty struct {
	Base
}

// ----------------------------------------------------------------------------
// Expressions
// ----------------------------------------------------------------------------

// Identifier is a bare name that is not a variable reference, such as the
// member name of a field access or swizzle.
type Identifier struct {
	Base
	Name string
}

// Variable references a declared or built-in variable. Decl is NoNode for
// built-in variables.
type Variable struct {
	Base
	Name string
	Decl NodeID
}

// ConstBool is a boolean literal.
type ConstBool struct {
	Base
	Value bool
}

// ConstInt is an integer literal.
type ConstInt struct {
	Base
	Value    int64
	Unsigned bool
}

// ConstFloat is a float literal. Text keeps the normalized source spelling.
type ConstFloat struct {
	Base
	Value float64
	Text  string
}

// Binary is a binary operation, including assignments.
type Binary struct {
	Base
	Op    string
	Left  NodeID
	Right NodeID
}

// PrefixOp is a prefix unary operation.
type PrefixOp struct {
	Base
	Op      string
	Operand NodeID
}

// PostfixKind identifies a postfix operation.
type PostfixKind uint8

const (
	PostfixIndex PostfixKind = iota
	PostfixMember
	PostfixIncrement
	PostfixDecrement
)

// PostfixOp is indexing, member access, swizzle or a postfix ++/--.
// Arg is the index expression or the member Identifier.
type PostfixOp struct {
	Base
	Kind    PostfixKind
	Operand NodeID
	Arg     NodeID
}

// FunctionCall is a call to a user function, a built-in function or a
// constructor. Target is the resolved user Function, or NoNode.
type FunctionCall struct {
	Base
	Name        string
	Args        []NodeID
	Target      NodeID
	Constructor bool
	ArraySize   NodeID // set for array constructors such as float[3](...)
}

// Ternary is cond ? a : b.
type Ternary struct {
	Base
	Condition NodeID
	Then      NodeID
	Else      NodeID
}

// Paren is a parenthesized expression.
type Paren struct {
	Base
	Expr NodeID
}

// ----------------------------------------------------------------------------
// Tree
// ----------------------------------------------------------------------------

// Tree is the node arena.
type Tree struct {
	Nodes []Node
	Root  NodeID
}

// NewTree creates a tree holding an empty Program root.
func NewTree() *Tree {
	t := &Tree{}
	t.Root = t.Add(NoNode, 0, &Program{})
	return t
}

// Add appends n to the arena under parent and returns its id.
func (t *Tree) Add(parent NodeID, line int, n Node) NodeID {
	id := NodeID(len(t.Nodes))
	b := n.base()
	b.ID = id
	b.Parent = parent
	b.Line = line
	t.Nodes = append(t.Nodes, n)
	return id
}

// Len returns the number of nodes in the arena.
func (t *Tree) Len() int {
	return len(t.Nodes)
}

// Truncate discards every node with an id >= n.
func (t *Tree) Truncate(n int) {
	for i := n; i < len(t.Nodes); i++ {
		t.Nodes[i] = nil
	}
	t.Nodes = t.Nodes[:n]
}

// Node returns the node with the given id, or nil.
func (t *Tree) Node(id NodeID) Node {
	if id < 0 || int(id) >= len(t.Nodes) {
		return nil
	}
	return t.Nodes[id]
}

// Base returns the shared fields of a node.
func (t *Tree) Base(id NodeID) *Base {
	if n := t.Node(id); n != nil {
		return n.base()
	}
	return nil
}

// Parent returns the parent of a node, or NoNode.
func (t *Tree) Parent(id NodeID) NodeID {
	if b := t.Base(id); b != nil {
		return b.Parent
	}
	return NoNode
}

// SetParent reparents a node. It is a no-op for NoNode.
func (t *Tree) SetParent(id, parent NodeID) {
	if b := t.Base(id); b != nil {
		b.Parent = parent
	}
}

// Line returns the source line of a node.
func (t *Tree) Line(id NodeID) int {
	if b := t.Base(id); b != nil {
		return b.Line
	}
	return 0
}

// TypeOf returns the evaluated type of an expression node.
func (t *Tree) TypeOf(id NodeID) types.Type {
	if b := t.Base(id); b != nil {
		return b.Type
	}
	return nil
}

// Program returns the root program.
func (t *Tree) Program() *Program {
	return t.Nodes[t.Root].(*Program)
}

// Statements returns the statement list of a container node (Program, Scope,
// Case or the For init clause), or nil.
func (t *Tree) Statements(id NodeID) *[]NodeID {
	switch n := t.Node(id).(type) {
	case *Program:
		return &n.Statements
	case *Scope:
		return &n.Statements
	case *Case:
		return &n.Statements
	case *For:
		return &n.Init
	}
	return nil
}

// Children returns the direct children of a node in source order.
func (t *Tree) Children(id NodeID) []NodeID {
	var out []NodeID
	add := func(ids ...NodeID) {
		for _, c := range ids {
			if c.Valid() {
				out = append(out, c)
			}
		}
	}

	switch n := t.Node(id).(type) {
	case *Program:
		add(n.Statements...)
	case *Scope:
		add(n.Statements...)
	case *VariableDeclaration:
		add(n.ArraySize, n.Initializer)
	case *GlobalVariableDeclaration:
		add(n.ArraySize, n.Initializer)
	case *Function:
		add(n.Params...)
		add(n.Body)
	case *Struct:
		add(n.Fields...)
	case *Field:
		add(n.ArraySize)
	case *For:
		add(n.Init...)
		add(n.Condition, n.Increment, n.Body)
	case *While:
		add(n.Condition, n.Body)
	case *Do:
		add(n.Body, n.Condition)
	case *Switch:
		add(n.Selector)
		add(n.Cases...)
	case *Case:
		add(n.Value)
		add(n.Statements...)
	case *If:
		add(n.Condition, n.Then, n.Else)
	case *Jump:
		add(n.Value)
	case *ExpressionStatement:
		add(n.Expr)
	case *Binary:
		add(n.Left, n.Right)
	case *PrefixOp:
		add(n.Operand)
	case *PostfixOp:
		add(n.Operand, n.Arg)
	case *FunctionCall:
		add(n.ArraySize)
		add(n.Args...)
	case *Ternary:
		add(n.Condition, n.Then, n.Else)
	case *Paren:
		add(n.Expr)
	}
	return out
}

// Walk calls fn for id and every descendant, depth first. Returning false
// from fn skips the node's children.
func (t *Tree) Walk(id NodeID, fn func(id NodeID, n Node) bool) {
	n := t.Node(id)
	if n == nil || !fn(id, n) {
		return
	}
	for _, c := range t.Children(id) {
		t.Walk(c, fn)
	}
}

// Dump returns a readable dump of the subtree rooted at id. It is meant for
// debugging and the CLI ast command.
func (t *Tree) Dump(id NodeID) string {
	type dumped struct {
		Node     Node
		Children []interface{}
	}
	var build func(id NodeID) interface{}
	build = func(id NodeID) interface{} {
		n := t.Node(id)
		d := dumped{Node: n}
		for _, c := range t.Children(id) {
			d.Children = append(d.Children, build(c))
		}
		return d
	}
	return repr.String(build(id), repr.Indent("  "), repr.OmitEmpty(true))
}
