// Package compiler turns a shader document into GLSL programs.
//
// It coordinates the stages:
// 1. Split the document into its Uniforms and Pass blocks
// 2. Parse the Uniforms block once and regenerate it as uniform declarations
// 3. Parse every pass with the uniforms and the VertexData struct prepended
// 4. Prune each pass from the vertex and fragment entry points
// 5. Print both stages and wrap them in attribute and main() boilerplate
// 6. Optionally hand the result to a GraphicsBackend and remap its log
//
// Every diagnostic is reported against lines of the original document.
package compiler

import (
	"context"
	"errors"
	"strings"

	"github.com/HugoDaniel/shadec/internal/ast"
	"github.com/HugoDaniel/shadec/internal/backend"
	"github.com/HugoDaniel/shadec/internal/diagnostic"
	"github.com/HugoDaniel/shadec/internal/logger"
	"github.com/HugoDaniel/shadec/internal/parser"
	"github.com/HugoDaniel/shadec/internal/printer"
	"github.com/HugoDaniel/shadec/internal/sourcemap"
	"github.com/HugoDaniel/shadec/internal/structure"
)

var plog = logger.New("compiler")

// Attribute is a vertex input. Attributes become fields of VertexData and
// get consecutive layout locations.
type Attribute struct {
	Name string
	Type string
}

// EntryPoints names the functions wrapped by the generated main().
type EntryPoints struct {
	Vertex   string
	Fragment string
}

// Options controls compilation.
type Options struct {
	// GLSLVersion is written after #version
	GLSLVersion string

	// FragmentOutput names the generated fragment color output
	FragmentOutput string

	// Attributes are the vertex inputs, in location order
	Attributes []Attribute

	// EntryPoints names the stage functions
	EntryPoints EntryPoints

	// TreeShaking prints only declarations reachable from the entry point
	TreeShaking bool

	// MinifyWhitespace prints compact GLSL
	MinifyWhitespace bool

	// GenerateSourceMap attaches a source map to every stage
	GenerateSourceMap bool

	// SourceName is the document name used in source maps and file names
	SourceName string

	// Backend compiles the generated programs (nil skips that step)
	Backend backend.GraphicsBackend
}

// DefaultOptions returns the options used when no configuration exists.
func DefaultOptions() Options {
	return Options{
		GLSLVersion:    "330 core",
		FragmentOutput: "_shadecFragColor",
		Attributes: []Attribute{
			{Name: "position", Type: "vec3"},
			{Name: "normal", Type: "vec3"},
			{Name: "uv", Type: "vec2"},
			{Name: "color", Type: "vec4"},
		},
		EntryPoints: EntryPoints{Vertex: "vertex", Fragment: "fragment"},
		TreeShaking: true,
	}
}

// Uniform is one entry of the uniform manifest.
type Uniform struct {
	Name string
	Type string
	Line int // document line of the declaration
}

// Stage is the generated source of one pipeline stage.
type Stage struct {
	Source string

	// Lines maps output lines to document lines
	Lines printer.LineMap

	// Pruned lists the functions removed by tree shaking
	Pruned []string

	// SourceMap is set when Options.GenerateSourceMap is true
	SourceMap *sourcemap.SourceMap
}

// Pass is one vertex and fragment program pair.
type Pass struct {
	Index    int
	Line     int // document line of the Pass block
	Vertex   Stage
	Fragment Stage

	// Program is the backend handle, nil without a backend
	Program backend.Program
}

// VertexSource returns the generated vertex shader.
func (p *Pass) VertexSource() string { return p.Vertex.Source }

// FragmentSource returns the generated fragment shader.
func (p *Pass) FragmentSource() string { return p.Fragment.Source }

// CompiledShader is the result of a successful compile.
type CompiledShader struct {
	Name     string
	Passes   []Pass
	Uniforms []Uniform
	Warnings []diagnostic.Diagnostic
}

// Compiler compiles shader documents.
type Compiler struct {
	options Options
}

// New creates a compiler. Empty option fields take their defaults.
func New(options Options) *Compiler {
	defaults := DefaultOptions()
	if options.GLSLVersion == "" {
		options.GLSLVersion = defaults.GLSLVersion
	}
	if options.FragmentOutput == "" {
		options.FragmentOutput = defaults.FragmentOutput
	}
	if options.EntryPoints.Vertex == "" {
		options.EntryPoints.Vertex = defaults.EntryPoints.Vertex
	}
	if options.EntryPoints.Fragment == "" {
		options.EntryPoints.Fragment = defaults.EntryPoints.Fragment
	}
	if options.SourceName == "" {
		options.SourceName = "shader"
	}
	return &Compiler{options: options}
}

// Options returns the effective options.
func (c *Compiler) Options() Options {
	return c.options
}

// Compile compiles a document with options. It is a shorthand for
// New(options).Compile.
func Compile(ctx context.Context, source string, options Options) (*CompiledShader, error) {
	return New(options).Compile(ctx, source)
}

// Compile compiles every pass of source. On failure the error is an *Error
// holding the diagnostics, unless the backend itself could not be reached.
// No partial shader is returned.
func (c *Compiler) Compile(ctx context.Context, source string) (*CompiledShader, error) {
	cs, u, err := c.prepare(source)
	if err != nil {
		return nil, err
	}

	shader := &CompiledShader{Name: cs.TypeName}
	manifest := newManifest()
	for i := range cs.Passes {
		pass, err := c.compilePass(ctx, i, &cs.Passes[i], u, manifest, shader)
		if err != nil {
			return nil, err
		}
		shader.Passes = append(shader.Passes, *pass)
	}
	shader.Uniforms = manifest.uniforms

	plog.Infof("compiled shader %s: %d pass(es), %d uniform(s)", shader.Name, len(shader.Passes), len(shader.Uniforms))
	return shader, nil
}

// ParsePass parses one pass the way Compile does, with the uniforms and
// the VertexData struct prepended. Diagnostics use document lines.
func (c *Compiler) ParsePass(source string, index int) (*ast.Tree, error) {
	cs, u, err := c.prepare(source)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(cs.Passes) {
		return nil, errorAt(diagnostic.KindStructural, 0, "Shader '%s' has no pass %d.", cs.TypeName, index)
	}
	unit := u.build(&cs.Passes[index])
	tree, diags := c.parse(unit.source)
	if len(diags) > 0 {
		return nil, remapped(diags, unit.docLine)
	}
	return tree, nil
}

// prepare splits the document and builds the prefix shared by every pass.
func (c *Compiler) prepare(source string) (*structure.CodeStructure, *unitBuilder, error) {
	cs, err := structure.Parse(source)
	if err != nil {
		var serr *structure.Error
		if errors.As(err, &serr) {
			return nil, nil, errorAt(diagnostic.KindStructural, serr.Line, "%s", serr.Message)
		}
		return nil, nil, err
	}

	u := &unitBuilder{}
	if cs.Uniforms != nil {
		decls, err := c.uniforms(cs.Uniforms)
		if err != nil {
			return nil, nil, err
		}
		for _, d := range decls {
			u.prefix(d.text, d.uniform.Line)
		}
	}
	u.prefix(c.vertexDataStruct(), 0)
	return cs, u, nil
}

func (c *Compiler) parse(source string) (*ast.Tree, []diagnostic.Diagnostic) {
	return parser.NewWithOptions(source, parser.Options{FragmentEntry: c.options.EntryPoints.Fragment}).Parse()
}

// vertexDataStruct declares the struct that carries the attributes into
// the vertex entry point.
func (c *Compiler) vertexDataStruct() string {
	if len(c.options.Attributes) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("struct VertexData {")
	for _, a := range c.options.Attributes {
		sb.WriteString(" ")
		sb.WriteString(a.Type)
		sb.WriteString(" ")
		sb.WriteString(a.Name)
		sb.WriteString(";")
	}
	sb.WriteString(" };")
	return sb.String()
}
