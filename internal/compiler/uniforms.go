package compiler

import (
	"github.com/HugoDaniel/shadec/internal/ast"
	"github.com/HugoDaniel/shadec/internal/diagnostic"
	"github.com/HugoDaniel/shadec/internal/printer"
	"github.com/HugoDaniel/shadec/internal/structure"
)

type uniformDecl struct {
	uniform Uniform
	text    string // regenerated declaration, one line
}

// uniforms parses the Uniforms block and regenerates every declaration with
// uniform storage.
func (c *Compiler) uniforms(block *structure.Block) ([]uniformDecl, error) {
	tree, diags := c.parse(block.Source)
	if len(diags) > 0 {
		return nil, remapped(diags, block.DocumentLine)
	}

	var out []uniformDecl
	for _, id := range tree.Program().Statements {
		line := block.DocumentLine(tree.Line(id))
		switch n := tree.Node(id).(type) {
		case *ast.Empty:
		case *ast.GlobalVariableDeclaration:
			if n.HasQualifier("const") || n.HasQualifier("varying") {
				return nil, errorAt(diagnostic.KindStructural, line,
					"Uniform '%s' cannot be declared 'const' or 'varying'.", n.Name)
			}
			n.Qualifiers = withUniform(n.Qualifiers)
			out = append(out, uniformDecl{
				uniform: Uniform{Name: n.Name, Type: typeName(n), Line: line},
				text:    printer.Node2Code(tree, id, printer.StageNone),
			})
		default:
			return nil, errorAt(diagnostic.KindStructural, line,
				"Only variable declarations are allowed in a Uniforms block.")
		}
	}
	plog.Debugf("uniforms block on line %d declares %d uniform(s)", block.Line, len(out))
	return out, nil
}

// withUniform returns a fresh qualifier list carrying uniform storage.
// Declarators of one declaration share their qualifier slice.
func withUniform(quals []string) []string {
	out := []string{"uniform"}
	for _, q := range quals {
		if q != "uniform" {
			out = append(out, q)
		}
	}
	return out
}

func typeName(d *ast.GlobalVariableDeclaration) string {
	if d.VarType != nil {
		return d.VarType.String()
	}
	return d.TypeName
}

// manifest collects uniforms across passes, first declaration wins.
type manifest struct {
	uniforms []Uniform
	byName   map[string]int
}

func newManifest() *manifest {
	return &manifest{byName: map[string]int{}}
}

func (m *manifest) add(u Uniform) error {
	if i, ok := m.byName[u.Name]; ok {
		if have := m.uniforms[i]; have.Type != u.Type {
			return errorAt(diagnostic.KindType, u.Line,
				"Uniform '%s' is declared as '%s' here and as '%s' on line %d.", u.Name, u.Type, have.Type, have.Line)
		}
		return nil
	}
	m.byName[u.Name] = len(m.uniforms)
	m.uniforms = append(m.uniforms, u)
	return nil
}

// collect adds the top-level uniforms of tree that at least one stage
// prints.
func (m *manifest) collect(tree *ast.Tree, docLine func(int) int, stages ...printer.Filter) error {
	for _, id := range tree.Program().Statements {
		g, ok := tree.Node(id).(*ast.GlobalVariableDeclaration)
		if !ok || !g.HasQualifier("uniform") || !liveIn(id, stages) {
			continue
		}
		if err := m.add(Uniform{Name: g.Name, Type: typeName(g), Line: docLine(tree.Line(id))}); err != nil {
			return err
		}
	}
	return nil
}

func liveIn(id ast.NodeID, stages []printer.Filter) bool {
	for _, f := range stages {
		if f == nil || f.IsLive(id) {
			return true
		}
	}
	return false
}
