// Package dce implements dead code elimination for parsed shader passes.
//
// DCE works by:
// 1. Finding the entry point functions (all overloads of one name)
// 2. Building a dependency graph between top-level declarations
// 3. Re-scanning live declarations until the live set stops growing
// 4. Letting the printer skip top-level declarations that are not live
//
// Dependencies are call targets, references to global variables and uses
// of struct types anywhere in a declaration. Prototypes and definitions
// with the same signature form one unit: reaching one reaches both.
package dce

import (
	"sort"
	"strings"

	"github.com/HugoDaniel/shadec/internal/ast"
	"github.com/HugoDaniel/shadec/internal/types"
)

// Result holds the live set of one Mark run.
type Result struct {
	tree *ast.Tree
	live map[ast.NodeID]bool
}

// IsLive returns true if the top-level statement id should be printed.
// Nested statements are always live.
func (r *Result) IsLive(id ast.NodeID) bool {
	if r == nil || r.tree.Parent(id) != r.tree.Root {
		return true
	}
	return r.live[id]
}

// LiveCount returns the number of live top-level statements.
func (r *Result) LiveCount() int {
	return len(r.live)
}

// Dead returns the top-level statements that were not reached, in source
// order.
func (r *Result) Dead() []ast.NodeID {
	var out []ast.NodeID
	for _, id := range r.tree.Program().Statements {
		if !r.live[id] {
			out = append(out, id)
		}
	}
	return out
}

// DeadFunctions returns the sorted names of pruned functions.
func (r *Result) DeadFunctions() []string {
	seen := map[string]bool{}
	var names []string
	for _, id := range r.Dead() {
		if fn, ok := r.tree.Node(id).(*ast.Function); ok && !seen[fn.Name] {
			seen[fn.Name] = true
			names = append(names, fn.Name)
		}
	}
	sort.Strings(names)
	return names
}

// Mark computes the live set of a program reachable from the functions
// named entry. Varyings are always live since they form the interface
// between stages. Without an entry point everything is live.
func Mark(tree *ast.Tree, entry string) *Result {
	r := &Result{tree: tree, live: make(map[ast.NodeID]bool)}
	if tree == nil {
		return r
	}
	stmts := tree.Program().Statements

	entryPoints := findEntryPoints(tree, entry)
	if len(entryPoints) == 0 {
		for _, id := range stmts {
			r.live[id] = true
		}
		return r
	}

	deps := buildDependencyGraph(tree)

	for _, id := range entryPoints {
		r.live[id] = true
	}
	for _, id := range stmts {
		if isVarying(tree.Node(id)) || isEmpty(tree.Node(id)) {
			r.live[id] = true
		}
	}

	// Re-scan until no live declaration adds anything new.
	for changed := true; changed; {
		changed = false
		for _, id := range stmts {
			if !r.live[id] {
				continue
			}
			for _, dep := range deps[id] {
				if !r.live[dep] {
					r.live[dep] = true
					changed = true
				}
			}
		}
	}
	return r
}

// All returns a result in which every statement is live.
func All(tree *ast.Tree) *Result {
	return Mark(tree, "")
}

// ----------------------------------------------------------------------------
// Dependency Graph
// ----------------------------------------------------------------------------

// findEntryPoints returns every top-level function named entry.
func findEntryPoints(tree *ast.Tree, entry string) []ast.NodeID {
	var out []ast.NodeID
	if entry == "" {
		return nil
	}
	for _, id := range tree.Program().Statements {
		if fn, ok := tree.Node(id).(*ast.Function); ok && fn.Name == entry {
			out = append(out, id)
		}
	}
	return out
}

// buildDependencyGraph maps each top-level statement to the top-level
// statements it references.
func buildDependencyGraph(tree *ast.Tree) map[ast.NodeID][]ast.NodeID {
	groups := functionGroups(tree)
	deps := make(map[ast.NodeID][]ast.NodeID)

	for _, id := range tree.Program().Statements {
		c := collector{tree: tree, groups: groups, seen: map[ast.NodeID]bool{id: true}}
		if fn, ok := tree.Node(id).(*ast.Function); ok {
			// The other declarations of the same function stay with it.
			for _, other := range groups[signatureKey(tree, fn)] {
				c.add(other)
			}
		}
		tree.Walk(id, c.visit)
		deps[id] = c.refs
	}
	return deps
}

type collector struct {
	tree   *ast.Tree
	groups map[string][]ast.NodeID
	seen   map[ast.NodeID]bool
	refs   []ast.NodeID
}

func (c *collector) add(id ast.NodeID) {
	if !id.Valid() || c.seen[id] || c.tree.Parent(id) != c.tree.Root {
		return
	}
	c.seen[id] = true
	c.refs = append(c.refs, id)
}

func (c *collector) visit(id ast.NodeID, n ast.Node) bool {
	c.addType(c.tree.TypeOf(id))

	switch n := n.(type) {
	case *ast.FunctionCall:
		if n.Target.Valid() {
			fn := c.tree.Node(n.Target).(*ast.Function)
			for _, decl := range c.groups[signatureKey(c.tree, fn)] {
				c.add(decl)
			}
		}
	case *ast.Variable:
		c.add(n.Decl)
	case *ast.VariableDeclaration:
		c.addType(n.VarType)
	case *ast.GlobalVariableDeclaration:
		c.addType(n.VarType)
	case *ast.Function:
		c.addType(n.ReturnType)
	case *ast.Field:
		c.addType(n.FieldType)
	}
	return true
}

// addType records the struct declaration behind t, if any.
func (c *collector) addType(t types.Type) {
	switch t := t.(type) {
	case *types.Struct:
		c.add(ast.NodeID(t.Decl))
	case *types.Array:
		c.addType(t.Element)
	}
}

// functionGroups buckets top-level functions by name and parameter types.
func functionGroups(tree *ast.Tree) map[string][]ast.NodeID {
	groups := make(map[string][]ast.NodeID)
	for _, id := range tree.Program().Statements {
		if fn, ok := tree.Node(id).(*ast.Function); ok {
			key := signatureKey(tree, fn)
			groups[key] = append(groups[key], id)
		}
	}
	return groups
}

// signatureKey identifies a function by name and parameter types, for
// example "shade(vec3,float)".
func signatureKey(tree *ast.Tree, fn *ast.Function) string {
	var sb strings.Builder
	sb.WriteString(fn.Name)
	sb.WriteByte('(')
	for i, p := range fn.Params {
		if i > 0 {
			sb.WriteByte(',')
		}
		if d, ok := tree.Node(p).(*ast.VariableDeclaration); ok && d.VarType != nil {
			sb.WriteString(d.VarType.String())
		}
	}
	sb.WriteByte(')')
	return sb.String()
}

func isVarying(n ast.Node) bool {
	g, ok := n.(*ast.GlobalVariableDeclaration)
	return ok && g.HasQualifier("varying")
}

func isEmpty(n ast.Node) bool {
	_, ok := n.(*ast.Empty)
	return ok
}
