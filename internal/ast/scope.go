package ast

// Scope lookup walks outwards along parent links. At each scope-bearing node
// (Program, Scope, Case, Switch, Function parameters, For init clause) it
// looks at the declarations that are already attached, which is every
// declaration that precedes the lookup point in source order. The innermost
// match wins, so inner declarations shadow outer ones.

// LookupVariable returns the variable declaration named name visible from
// the node from, or NoNode.
func (t *Tree) LookupVariable(from NodeID, name string) NodeID {
	return t.lookup(from, func(id NodeID) bool {
		switch n := t.Node(id).(type) {
		case *VariableDeclaration:
			return n.Name == name
		case *GlobalVariableDeclaration:
			return n.Name == name
		}
		return false
	})
}

// LookupStruct returns the struct declaration named name visible from the
// node from, or NoNode.
func (t *Tree) LookupStruct(from NodeID, name string) NodeID {
	return t.lookup(from, func(id NodeID) bool {
		s, ok := t.Node(id).(*Struct)
		return ok && s.Name == name
	})
}

// LookupFunctions returns every function declaration named name visible from
// the node from, innermost scope first and in declaration order within a
// scope.
func (t *Tree) LookupFunctions(from NodeID, name string) []NodeID {
	var out []NodeID
	for id := from; id.Valid(); id = t.Parent(id) {
		list := t.Statements(id)
		if list == nil {
			continue
		}
		for _, s := range *list {
			if f, ok := t.Node(s).(*Function); ok && f.Name == name {
				out = append(out, s)
			}
		}
	}
	return out
}

// DeclaredInScope returns the declaration named name directly in the scope
// node, ignoring outer scopes. Variables, structs and functions all count.
func (t *Tree) DeclaredInScope(scope NodeID, name string) NodeID {
	for _, id := range t.scopeDecls(scope) {
		if DeclName(t.Node(id)) == name {
			return id
		}
	}
	return NoNode
}

// DeclName returns the declared name of a declaration node, or "".
func DeclName(n Node) string {
	switch n := n.(type) {
	case *VariableDeclaration:
		return n.Name
	case *GlobalVariableDeclaration:
		return n.Name
	case *Struct:
		return n.Name
	case *Function:
		return n.Name
	}
	return ""
}

func (t *Tree) lookup(from NodeID, match func(NodeID) bool) NodeID {
	for id := from; id.Valid(); id = t.Parent(id) {
		decls := t.scopeDecls(id)
		for i := len(decls) - 1; i >= 0; i-- {
			if match(decls[i]) {
				return decls[i]
			}
		}
	}
	return NoNode
}

// scopeDecls returns the declarations owned directly by a scope-bearing node.
func (t *Tree) scopeDecls(id NodeID) []NodeID {
	switch n := t.Node(id).(type) {
	case *Program:
		return n.Statements
	case *Scope:
		return n.Statements
	case *Function:
		return n.Params
	case *For:
		return n.Init
	case *Switch:
		var out []NodeID
		for _, c := range n.Cases {
			if cs, ok := t.Node(c).(*Case); ok {
				out = append(out, cs.Statements...)
			}
		}
		return out
	case *Case:
		return n.Statements
	}
	return nil
}

// EnclosingFunction returns the function containing id, or NoNode.
func (t *Tree) EnclosingFunction(id NodeID) NodeID {
	for ; id.Valid(); id = t.Parent(id) {
		if _, ok := t.Node(id).(*Function); ok {
			return id
		}
	}
	return NoNode
}

// InLoop returns true if id is nested in a loop body within its function.
// With allowSwitch, a switch also counts.
func (t *Tree) InLoop(id NodeID, allowSwitch bool) bool {
	for ; id.Valid(); id = t.Parent(id) {
		switch t.Node(id).(type) {
		case *For, *While, *Do:
			return true
		case *Switch:
			if allowSwitch {
				return true
			}
		case *Function:
			return false
		}
	}
	return false
}
