// Package api provides the public API for the shader compiler.
//
// This package is intended for programmatic use of the compiler. Results
// are plain values with JSON tags so that they can be handed to other
// processes as they are. For CLI usage, see cmd/shadec.
package api

import (
	"context"
	"errors"

	"github.com/HugoDaniel/shadec/internal/backend"
	"github.com/HugoDaniel/shadec/internal/compiler"
	"github.com/HugoDaniel/shadec/internal/diagnostic"
	"github.com/HugoDaniel/shadec/internal/structure"
)

// CompileOptions controls compilation. Zero values select the defaults.
type CompileOptions struct {
	// GLSLVersion is written after #version, "330 core" by default.
	GLSLVersion string

	// Attributes replaces the default vertex inputs
	// (position vec3, normal vec3, uv vec2, color vec4).
	Attributes []Attribute

	// DisableTreeShaking prints every declaration in both stages.
	DisableTreeShaking bool

	// MinifyWhitespace prints compact GLSL.
	MinifyWhitespace bool

	// SourceMap attaches a source map to every generated stage.
	SourceMap bool

	// SourceName names the document in source maps.
	SourceName string

	// Backend compiles the generated GLSL. Nil skips that step.
	Backend backend.GraphicsBackend
}

// Attribute is a vertex input.
type Attribute struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// CompileResult contains the compiler output.
type CompileResult struct {
	// Name is the shader type name of the document.
	Name string `json:"name"`

	// Passes holds the generated programs, empty on failure.
	Passes []PassResult `json:"passes"`

	// Uniforms lists every uniform a stage uses once, in declaration order.
	Uniforms []UniformInfo `json:"uniforms"`

	// Errors contains the diagnostics of a failed compile.
	Errors []Diagnostic `json:"errors,omitempty"`

	// Warnings contains non-fatal diagnostics.
	Warnings []Diagnostic `json:"warnings,omitempty"`
}

// OK reports whether the compile succeeded.
func (r *CompileResult) OK() bool {
	return len(r.Errors) == 0
}

// PassResult is one vertex and fragment program pair.
type PassResult struct {
	VertexSource   string `json:"vertexSource"`
	FragmentSource string `json:"fragmentSource"`

	// VertexSourceMap and FragmentSourceMap are JSON source maps, empty
	// unless requested.
	VertexSourceMap   string `json:"vertexSourceMap,omitempty"`
	FragmentSourceMap string `json:"fragmentSourceMap,omitempty"`
}

// UniformInfo describes one uniform.
type UniformInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Diagnostic is a message about a line of the document.
type Diagnostic struct {
	Line     int    `json:"line"`
	Kind     string `json:"kind"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// Compile compiles a shader document with default options.
func Compile(source string) CompileResult {
	return CompileWithOptions(context.Background(), source, CompileOptions{})
}

// CompileWithOptions compiles a shader document with custom options.
// Failures never panic: they are reported in the result's Errors.
func CompileWithOptions(ctx context.Context, source string, opts CompileOptions) CompileResult {
	options := compiler.DefaultOptions()
	if opts.GLSLVersion != "" {
		options.GLSLVersion = opts.GLSLVersion
	}
	if len(opts.Attributes) > 0 {
		options.Attributes = nil
		for _, a := range opts.Attributes {
			options.Attributes = append(options.Attributes, compiler.Attribute{Name: a.Name, Type: a.Type})
		}
	}
	options.TreeShaking = !opts.DisableTreeShaking
	options.MinifyWhitespace = opts.MinifyWhitespace
	options.GenerateSourceMap = opts.SourceMap
	options.SourceName = opts.SourceName
	options.Backend = opts.Backend

	shader, err := compiler.Compile(ctx, source, options)
	if err != nil {
		return CompileResult{Passes: []PassResult{}, Uniforms: []UniformInfo{}, Errors: convertError(err)}
	}

	result := CompileResult{
		Name:     shader.Name,
		Passes:   make([]PassResult, len(shader.Passes)),
		Uniforms: make([]UniformInfo, len(shader.Uniforms)),
		Warnings: convertDiagnostics(shader.Warnings),
	}
	for i, p := range shader.Passes {
		result.Passes[i] = PassResult{VertexSource: p.VertexSource(), FragmentSource: p.FragmentSource()}
		if p.Vertex.SourceMap != nil {
			result.Passes[i].VertexSourceMap = p.Vertex.SourceMap.ToJSON()
		}
		if p.Fragment.SourceMap != nil {
			result.Passes[i].FragmentSourceMap = p.Fragment.SourceMap.ToJSON()
		}
	}
	for i, u := range shader.Uniforms {
		result.Uniforms[i] = UniformInfo{Name: u.Name, Type: u.Type}
	}
	return result
}

// Check compiles source with default options and returns only the
// diagnostics.
func Check(source string) []Diagnostic {
	r := Compile(source)
	return append(r.Errors, r.Warnings...)
}

// ----------------------------------------------------------------------------
// Structure API
// ----------------------------------------------------------------------------

// BlockInfo describes one block of a shader document.
type BlockInfo struct {
	Kind   string `json:"kind" yaml:"kind"`
	Line   int    `json:"line" yaml:"line"`
	Offset int    `json:"offset" yaml:"offset"`
	Source string `json:"source" yaml:"source"`
}

// StructureResult describes the blocks of a shader document.
type StructureResult struct {
	Name     string      `json:"name" yaml:"name"`
	Uniforms *BlockInfo  `json:"uniforms,omitempty" yaml:"uniforms,omitempty"`
	Passes   []BlockInfo `json:"passes" yaml:"passes"`
	Errors   []string    `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// Structure splits source into its blocks without compiling them.
func Structure(source string) StructureResult {
	cs, err := structure.Parse(source)
	if err != nil {
		return StructureResult{Passes: []BlockInfo{}, Errors: []string{err.Error()}}
	}
	result := StructureResult{Name: cs.TypeName, Passes: make([]BlockInfo, len(cs.Passes))}
	if cs.Uniforms != nil {
		info := convertBlock(cs.Uniforms)
		result.Uniforms = &info
	}
	for i := range cs.Passes {
		result.Passes[i] = convertBlock(&cs.Passes[i])
	}
	return result
}

func convertBlock(b *structure.Block) BlockInfo {
	return BlockInfo{Kind: b.Kind.String(), Line: b.Line, Offset: b.Offset(), Source: b.Source}
}

// convertError converts a compile failure to API diagnostics.
func convertError(err error) []Diagnostic {
	var cerr *compiler.Error
	if errors.As(err, &cerr) {
		return convertDiagnostics(cerr.Diagnostics)
	}
	return []Diagnostic{{Kind: diagnostic.KindBackend.String(), Severity: diagnostic.Error.String(), Message: err.Error()}}
}

func convertDiagnostics(diags []diagnostic.Diagnostic) []Diagnostic {
	if len(diags) == 0 {
		return nil
	}
	out := make([]Diagnostic, len(diags))
	for i, d := range diags {
		out[i] = Diagnostic{Line: d.Line, Kind: d.Kind.String(), Severity: d.Severity.String(), Message: d.Message}
	}
	return out
}
