package dce

import (
	"strings"
	"testing"

	"github.com/HugoDaniel/shadec/internal/ast"
	"github.com/HugoDaniel/shadec/internal/parser"
	"github.com/HugoDaniel/shadec/internal/test"
)

// ----------------------------------------------------------------------------
// Test Helpers
// ----------------------------------------------------------------------------

func parse(t *testing.T, source string) *ast.Tree {
	t.Helper()
	tree, diags := parser.Parse(source)
	if len(diags) > 0 {
		t.Fatalf("parse errors: %v", diags)
	}
	return tree
}

// liveNames returns the declared names of live top-level statements, in
// source order, joined by commas.
func liveNames(tree *ast.Tree, r *Result) string {
	var names []string
	for _, id := range tree.Program().Statements {
		if name := ast.DeclName(tree.Node(id)); name != "" && r.IsLive(id) {
			names = append(names, name)
		}
	}
	return strings.Join(names, ",")
}

func expectLive(t *testing.T, source, entry, expected string) {
	t.Helper()
	t.Run(entry+":"+expected, func(t *testing.T) {
		tree := parse(t, source)
		test.AssertEqual(t, liveNames(tree, Mark(tree, entry)), expected)
	})
}

// ----------------------------------------------------------------------------
// Mark Tests
// ----------------------------------------------------------------------------

func TestMarkNilTree(t *testing.T) {
	r := Mark(nil, "fragment")
	test.AssertEqual(t, r.LiveCount(), 0)
}

func TestMarkNoEntryPoint(t *testing.T) {
	// Without an entry point everything is kept.
	expectLive(t, "float helper() { return 1.0; } const float K = 2.0;", "fragment", "helper,K")
}

func TestMarkTransitiveCalls(t *testing.T) {
	source := `
float c() { return 1.0; }
float b() { return c(); }
float unused() { return 3.0; }
float a() { return b(); }
vec4 fragment() { return vec4(a()); }
`
	expectLive(t, source, "fragment", "c,b,a,fragment")
}

func TestMarkFixedPointAcrossOrder(t *testing.T) {
	// A prototype lets a call reach a definition that appears later.
	source := `
float late();
vec4 fragment() { return vec4(late()); }
float helper() { return 2.0; }
float late() { return helper(); }
float never() { return 0.0; }
`
	tree := parse(t, source)
	r := Mark(tree, "fragment")
	test.AssertEqual(t, liveNames(tree, r), "late,fragment,helper,late")
	test.AssertEqual(t, strings.Join(r.DeadFunctions(), ","), "never")
}

func TestMarkOverloadsBySignature(t *testing.T) {
	source := `
float pick(float x) { return x; }
int pick(int x) { return x; }
vec4 fragment() { return vec4(pick(1.0)); }
`
	tree := parse(t, source)
	r := Mark(tree, "fragment")
	stmts := tree.Program().Statements
	test.AssertEqual(t, r.IsLive(stmts[0]), true)
	test.AssertEqual(t, r.IsLive(stmts[1]), false)
}

func TestMarkGlobalsAndStructs(t *testing.T) {
	source := `
struct Material { vec3 albedo; float rough; };
struct Unused { float x; };
uniform float time;
uniform float unusedUniform;
const float SCALE = 2.0;
varying vec2 uv;
float shade(Material m) { return m.rough * SCALE; }
vec4 fragment() {
    Material m = Material(vec3(1.0), 0.5);
    return vec4(shade(m) + time);
}
`
	expectLive(t, source, "fragment", "Material,time,SCALE,uv,shade,fragment")
}

func TestMarkNestedStructFields(t *testing.T) {
	source := `
struct Inner { float v; };
struct Outer { Inner items[2]; };
Outer global;
vec4 fragment() { return vec4(global.items[0].v); }
`
	expectLive(t, source, "fragment", "Inner,Outer,global,fragment")
}

func TestMarkGlobalInitializerDependencies(t *testing.T) {
	source := `
const float BASE = 1.0;
const float DERIVED = BASE * 2.0;
const float OTHER = 3.0;
vec4 fragment() { return vec4(DERIVED); }
`
	expectLive(t, source, "fragment", "BASE,DERIVED,fragment")
}

func TestMarkPerStage(t *testing.T) {
	source := `
struct VertexData { vec3 position; };
varying vec2 uv;
vec4 vertex(VertexData v) { uv = v.position.xy; return vec4(v.position, 1.0); }
vec4 fragment() { return vec4(uv, 0.0, 1.0); }
`
	expectLive(t, source, "vertex", "VertexData,uv,vertex")
	expectLive(t, source, "fragment", "uv,fragment")
}

func TestAllKeepsEverything(t *testing.T) {
	tree := parse(t, "float a() { return 1.0; } float b() { return 2.0; }")
	r := All(tree)
	test.AssertEqual(t, len(r.Dead()), 0)
	test.AssertEqual(t, r.LiveCount(), 2)
}

func TestNestedStatementsAlwaysLive(t *testing.T) {
	tree := parse(t, "float unused() { float x = 1.0; return x; } vec4 fragment() { return vec4(1.0); }")
	r := Mark(tree, "fragment")
	fn := tree.Node(tree.Program().Statements[0]).(*ast.Function)
	body := tree.Node(fn.Body).(*ast.Scope)
	test.AssertEqual(t, r.IsLive(body.Statements[0]), true)
	test.AssertEqual(t, r.IsLive(tree.Program().Statements[0]), false)
}
