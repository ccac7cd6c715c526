package compiler

import (
	"context"
	"errors"
	"fmt"

	"github.com/HugoDaniel/shadec/internal/ast"
	"github.com/HugoDaniel/shadec/internal/backend"
	"github.com/HugoDaniel/shadec/internal/dce"
	"github.com/HugoDaniel/shadec/internal/diagnostic"
	"github.com/HugoDaniel/shadec/internal/printer"
	"github.com/HugoDaniel/shadec/internal/sourcemap"
	"github.com/HugoDaniel/shadec/internal/structure"
	"github.com/HugoDaniel/shadec/internal/types"
)

func (c *Compiler) compilePass(ctx context.Context, index int, block *structure.Block, ub *unitBuilder, m *manifest, shader *CompiledShader) (*Pass, error) {
	u := ub.build(block)
	tree, diags := c.parse(u.source)
	if len(diags) > 0 {
		return nil, remapped(diags, u.docLine)
	}
	names := c.options.EntryPoints
	fragment := findEntryPoint(tree, names.Fragment)
	if !fragment.Valid() {
		return nil, errorAt(diagnostic.KindStructural, block.Line,
			"Pass %d has no '%s' entry point.", index, names.Fragment)
	}
	if err := c.checkFragmentEntry(tree, fragment, u); err != nil {
		return nil, err
	}
	vertex := findEntryPoint(tree, names.Vertex)
	if vertex.Valid() {
		if err := c.checkVertexEntry(tree, vertex, u); err != nil {
			return nil, err
		}
	} else {
		msg := fmt.Sprintf("Pass %d has no '%s' entry point; using a pass-through vertex stage.", index, names.Vertex)
		plog.Warningf("%s: %s", shader.Name, msg)
		shader.Warnings = append(shader.Warnings, diagnostic.Diagnostic{
			Severity: diagnostic.Warning,
			Kind:     diagnostic.KindStructural,
			Line:     block.Line,
			Message:  msg,
		})
	}
	plog.Debugf("pass %d: %d prefix line(s) before the body", index, ub.bodyStart()-1)

	pass := &Pass{Index: index, Line: block.Line}

	vs := c.newStage(tree, u, block, printer.StageVertex)
	if vertex.Valid() {
		vs.live = c.mark(tree, names.Vertex, names.Fragment)
	} else {
		vs.live = varyingsOnly{tree}
	}
	c.vertexHeader(vs)
	vs.body()
	c.vertexMain(vs, tree, vertex)
	pass.Vertex = vs.finish(c.options, fmt.Sprintf("pass%d.vert", index))

	fs := c.newStage(tree, u, block, printer.StageFragment)
	fs.live = c.mark(tree, names.Fragment, names.Vertex)
	c.fragmentHeader(fs)
	fs.body()
	c.fragmentMain(fs)
	pass.Fragment = fs.finish(c.options, fmt.Sprintf("pass%d.frag", index))

	plog.Debugf("pass %d: vertex pruned %v, fragment pruned %v", index, pass.Vertex.Pruned, pass.Fragment.Pruned)

	if err := m.collect(tree, u.docLine, vs.live, fs.live); err != nil {
		return nil, err
	}

	if c.options.Backend != nil {
		program, err := c.options.Backend.CompileProgram(ctx, pass.Vertex.Source, pass.Fragment.Source)
		if err != nil {
			return nil, backendError(err, pass)
		}
		pass.Program = program
	}
	return pass, nil
}

// findEntryPoint returns the first definition of name.
func findEntryPoint(tree *ast.Tree, name string) ast.NodeID {
	for _, id := range tree.Program().Statements {
		if fn, ok := tree.Node(id).(*ast.Function); ok && fn.Name == name && fn.Body.Valid() {
			return id
		}
	}
	return ast.NoNode
}

var vec4 = types.Vec(4, types.ScalarFloat)

func (c *Compiler) checkFragmentEntry(tree *ast.Tree, id ast.NodeID, u *unit) error {
	fn := tree.Node(id).(*ast.Function)
	if len(fn.Params) != 0 || fn.ReturnType == nil || !fn.ReturnType.Equals(vec4) {
		return errorAt(diagnostic.KindType, u.docLine(tree.Line(id)),
			"Entry point '%s' must return 'vec4' or 'color' and take no parameters.", fn.Name)
	}
	return nil
}

func (c *Compiler) checkVertexEntry(tree *ast.Tree, id ast.NodeID, u *unit) error {
	fn := tree.Node(id).(*ast.Function)
	ok := fn.ReturnType != nil && fn.ReturnType.Equals(vec4)
	switch len(fn.Params) {
	case 0:
	case 1:
		param := tree.Node(fn.Params[0]).(*ast.VariableDeclaration)
		s, isStruct := param.VarType.(*types.Struct)
		ok = ok && isStruct && s.Name == "VertexData" && len(c.options.Attributes) > 0 &&
			!param.HasQualifier("out") && !param.HasQualifier("inout")
	default:
		ok = false
	}
	if !ok {
		return errorAt(diagnostic.KindType, u.docLine(tree.Line(id)),
			"Entry point '%s' must return 'vec4' and take no parameters or one 'VertexData' parameter.", fn.Name)
	}
	return nil
}

// mark selects what one stage prints. Without tree shaking every
// declaration is printed except the other stage's entry point.
func (c *Compiler) mark(tree *ast.Tree, entry, other string) printer.Filter {
	if c.options.TreeShaking {
		return dce.Mark(tree, entry)
	}
	return excludeFunction{tree: tree, name: other}
}

type excludeFunction struct {
	tree *ast.Tree
	name string
}

func (f excludeFunction) IsLive(id ast.NodeID) bool {
	fn, ok := f.tree.Node(id).(*ast.Function)
	return !ok || fn.Name != f.name
}

// varyingsOnly keeps the stage interface of a pass without a vertex entry
// point.
type varyingsOnly struct {
	tree *ast.Tree
}

func (f varyingsOnly) IsLive(id ast.NodeID) bool {
	g, ok := f.tree.Node(id).(*ast.GlobalVariableDeclaration)
	return ok && g.HasQualifier("varying")
}

// backendError remaps a rejected program to document lines.
func backendError(err error, pass *Pass) error {
	var cerr *backend.CompileError
	if !errors.As(err, &cerr) {
		return err
	}
	lines := pass.Fragment.Lines
	if cerr.Stage == backend.StageVertex {
		lines = pass.Vertex.Lines
	}
	log := RemapLog(cerr.Log, lines)

	var diags []diagnostic.Diagnostic
	for _, entry := range backend.ParseLog(log) {
		diags = append(diags, diagnostic.Diagnostic{
			Severity: diagnostic.Error,
			Kind:     diagnostic.KindBackend,
			Line:     entry.Line,
			Message:  fmt.Sprintf("%s: %s", cerr.Stage, entry.Message),
		})
	}
	if len(diags) == 0 {
		diags = append(diags, diagnostic.Diagnostic{
			Severity: diagnostic.Error,
			Kind:     diagnostic.KindBackend,
			Line:     pass.Line,
			Message:  fmt.Sprintf("%s stage was rejected without a log.", cerr.Stage),
		})
	}
	e := newError(diags...)
	e.Log = log
	return e
}

// stageSourceMap builds the source map of one generated stage.
func stageSourceMap(o Options, file string, lines printer.LineMap) *sourcemap.SourceMap {
	g := sourcemap.NewGenerator(o.SourceName+"."+file, o.SourceName)
	g.AddLines(lines)
	return g.Generate()
}
