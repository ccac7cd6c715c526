package compiler

import (
	"fmt"
	"strings"

	"github.com/HugoDaniel/shadec/internal/ast"
	"github.com/HugoDaniel/shadec/internal/dce"
	"github.com/HugoDaniel/shadec/internal/printer"
	"github.com/HugoDaniel/shadec/internal/structure"
)

// attributePrefix is prepended to attribute names so that they cannot clash
// with user declarations.
const attributePrefix = "_shadec_"

// stageWriter assembles one generated stage: boilerplate lines, the printed
// pass and the generated main().
type stageWriter struct {
	tree    *ast.Tree
	unit    *unit
	block   *structure.Block
	stage   printer.Stage
	compact bool
	live    printer.Filter

	sb          strings.Builder
	lines       printer.LineMap
	boilerplate int
}

func (c *Compiler) newStage(tree *ast.Tree, u *unit, block *structure.Block, stage printer.Stage) *stageWriter {
	return &stageWriter{tree: tree, unit: u, block: block, stage: stage, compact: c.options.MinifyWhitespace}
}

// line writes a boilerplate line, attributed to the Pass block.
func (w *stageWriter) line(text string) {
	w.sb.WriteString(text)
	w.sb.WriteByte('\n')
	w.lines = append(w.lines, w.block.Line)
	w.boilerplate++
}

// body prints the pass through the stage filter.
func (w *stageWriter) body() {
	p := printer.New(printer.Options{Stage: w.stage, MinifyWhitespace: w.compact, Filter: w.live}, w.tree)
	text := p.Print()
	if text == "" {
		return
	}
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	src := p.LineMap()
	n := strings.Count(text, "\n")
	for i := 0; i < n; i++ {
		doc := 0
		if i < len(src) {
			doc = w.unit.docLine(src[i])
		}
		w.lines = append(w.lines, doc)
	}
	w.sb.WriteString(text)
}

// function writes a generated function, one statement per line unless
// compact.
func (w *stageWriter) function(signature string, stmts []string) {
	if w.compact {
		w.line(strings.ReplaceAll(signature, " {", "{") + strings.Join(stmts, "") + "}")
		return
	}
	w.line(signature)
	for _, s := range stmts {
		w.line("    " + s)
	}
	w.line("}")
}

func (w *stageWriter) assign(lhs, rhs string) string {
	if w.compact {
		return lhs + "=" + rhs + ";"
	}
	return lhs + " = " + rhs + ";"
}

func (w *stageWriter) finish(o Options, file string) Stage {
	s := Stage{Source: w.sb.String(), Lines: w.lines}
	if r, ok := w.live.(*dce.Result); ok {
		s.Pruned = r.DeadFunctions()
	}
	if o.GenerateSourceMap {
		s.SourceMap = stageSourceMap(o, file, w.lines)
	}
	plog.Debugf("%s stage: %d boilerplate line(s), %d line(s) total", w.stage, w.boilerplate, len(w.lines))
	return s
}

// ----------------------------------------------------------------------------
// Boilerplate
// ----------------------------------------------------------------------------

func (c *Compiler) version(w *stageWriter) {
	w.line("#version " + c.options.GLSLVersion)
}

func (c *Compiler) vertexHeader(w *stageWriter) {
	c.version(w)
	for i, a := range c.options.Attributes {
		w.line(fmt.Sprintf("layout(location = %d) in %s %s%s;", i, glslType(a.Type), attributePrefix, a.Name))
	}
}

// vertexMain fills a VertexData from the attributes and writes gl_Position
// from the vertex entry point. Without an entry point the position
// attribute is passed through.
func (c *Compiler) vertexMain(w *stageWriter, tree *ast.Tree, entry ast.NodeID) {
	var stmts []string
	switch {
	case !entry.Valid():
		stmts = append(stmts, w.assign("gl_Position", c.passThroughPosition()))
	case len(tree.Node(entry).(*ast.Function).Params) == 1:
		stmts = append(stmts, "VertexData v;")
		for _, a := range c.options.Attributes {
			stmts = append(stmts, w.assign("v."+a.Name, attributePrefix+a.Name))
		}
		stmts = append(stmts, w.assign("gl_Position", c.options.EntryPoints.Vertex+"(v)"))
	default:
		stmts = append(stmts, w.assign("gl_Position", c.options.EntryPoints.Vertex+"()"))
	}
	w.function("void main() {", stmts)
}

func (c *Compiler) passThroughPosition() string {
	for _, a := range c.options.Attributes {
		if a.Name != "position" {
			continue
		}
		name := attributePrefix + a.Name
		switch glslType(a.Type) {
		case "vec2":
			return "vec4(" + name + ", 0.0, 1.0)"
		case "vec3":
			return "vec4(" + name + ", 1.0)"
		case "vec4":
			return name
		}
	}
	return "vec4(0.0)"
}

func (c *Compiler) fragmentHeader(w *stageWriter) {
	c.version(w)
	if strings.HasSuffix(c.options.GLSLVersion, " es") {
		w.line("precision highp float;")
	}
	w.line("out vec4 " + c.options.FragmentOutput + ";")
}

func (c *Compiler) fragmentMain(w *stageWriter) {
	w.function("void main() {", []string{w.assign(c.options.FragmentOutput, c.options.EntryPoints.Fragment+"()")})
}

func glslType(name string) string {
	if name == "color" {
		return "vec4"
	}
	return name
}
