package parser

import (
	"strings"
	"testing"

	"github.com/HugoDaniel/shadec/internal/ast"
	"github.com/HugoDaniel/shadec/internal/diagnostic"
	"github.com/HugoDaniel/shadec/internal/test"
	"github.com/HugoDaniel/shadec/internal/types"
)

// ----------------------------------------------------------------------------
// Test Helpers
// ----------------------------------------------------------------------------

// expectParse parses input and fails the test on any diagnostic.
func expectParse(t *testing.T, input string) *ast.Tree {
	t.Helper()
	tree, diags := Parse(input)
	if len(diags) > 0 {
		t.Fatalf("unexpected diagnostics for:\n%s\n%v", input, diags)
	}
	return tree
}

// expectParseError verifies that parsing stops with exactly one error whose
// message contains errorSubstring.
func expectParseError(t *testing.T, input string, errorSubstring string) diagnostic.Diagnostic {
	t.Helper()
	_, diags := Parse(input)
	if len(diags) != 1 {
		t.Fatalf("expected exactly one diagnostic containing %q, got %v", errorSubstring, diags)
	}
	test.AssertContains(t, diags[0].Message, errorSubstring)
	return diags[0]
}

// find returns the first node of type T satisfying match, in walk order.
func find[T ast.Node](tree *ast.Tree, match func(T) bool) (ast.NodeID, T) {
	found := ast.NoNode
	var result T
	tree.Walk(tree.Root, func(id ast.NodeID, n ast.Node) bool {
		if found.Valid() {
			return false
		}
		if typed, ok := n.(T); ok && match(typed) {
			found, result = id, typed
			return false
		}
		return true
	})
	return found, result
}

func findVariable(tree *ast.Tree, name string) *ast.VariableDeclaration {
	_, decl := find(tree, func(d *ast.VariableDeclaration) bool { return d.Name == name })
	return decl
}

func findGlobal(tree *ast.Tree, name string) *ast.GlobalVariableDeclaration {
	_, decl := find(tree, func(d *ast.GlobalVariableDeclaration) bool { return d.Name == name })
	return decl
}

// ----------------------------------------------------------------------------
// Declarations
// ----------------------------------------------------------------------------

func TestGlobalDeclarations(t *testing.T) {
	tree := expectParse(t, `
uniform float time;
varying vec2 uv;
const int COUNT = 4;
float scale = 2.0, offset;
`)
	prog := tree.Program()
	test.AssertEqual(t, len(prog.Statements), 5)

	time := findGlobal(tree, "time")
	if time == nil || !time.HasQualifier("uniform") {
		t.Fatalf("expected uniform time, got %#v", time)
	}
	test.AssertEqual(t, time.VarType.String(), "float")
	test.AssertEqual(t, findGlobal(tree, "uv").VarType.String(), "vec2")
	test.AssertEqual(t, findGlobal(tree, "offset").Initializer, ast.NoNode)
}

func TestFunctionDeclarations(t *testing.T) {
	tree := expectParse(t, `
float square(float x);
float square(float x) { return x * x; }
void noop(void) {}
`)
	id, fn := find(tree, func(f *ast.Function) bool { return f.Name == "square" && f.Body.Valid() })
	if !id.Valid() {
		t.Fatalf("definition of square not found")
	}
	test.AssertEqual(t, len(fn.Params), 1)
	test.AssertEqual(t, fn.ReturnType.String(), "float")

	_, noop := find(tree, func(f *ast.Function) bool { return f.Name == "noop" })
	test.AssertEqual(t, len(noop.Params), 0)
}

func TestStructDeclaration(t *testing.T) {
	tree := expectParse(t, `
struct Light { vec3 dir; float power; } sun;
float shade() {
    Light l = Light(vec3(0.0), 2.0);
    return l.power * l.dir.x + sun.power;
}
`)
	_, st := find(tree, func(s *ast.Struct) bool { return s.Name == "Light" })
	test.AssertEqual(t, len(st.Fields), 2)
	test.AssertEqual(t, st.StructType.Field("dir").Type.String(), "vec3")

	l := findVariable(tree, "l")
	if _, ok := l.VarType.(*types.Struct); !ok {
		t.Errorf("expected l to have a struct type, got %s", l.VarType)
	}
	test.AssertEqual(t, findGlobal(tree, "sun").VarType.String(), "Light")
}

func TestArrayDeclarations(t *testing.T) {
	tree := expectParse(t, `
const int N = 2;
float values[N + 3];
float[2] pair;
void f() {
    float a[3] = float[3](1.0, 2.0, 3.0);
    float b[2] = float[](1.0, 2.0);
}
`)
	values := findGlobal(tree, "values")
	size, ok := tree.Node(values.ArraySize).(*ast.ConstInt)
	if !ok {
		t.Fatalf("array size should be folded to a literal, got %T", tree.Node(values.ArraySize))
	}
	test.AssertEqual(t, size.Value, int64(5))
	test.AssertEqual(t, values.VarType.(*types.Array).Length, 5)
	test.AssertEqual(t, findGlobal(tree, "pair").VarType.(*types.Array).Length, 2)

	_, ctor := find(tree, func(c *ast.FunctionCall) bool { return c.Constructor && len(c.Args) == 2 })
	test.AssertEqual(t, tree.Node(ctor.ArraySize).(*ast.ConstInt).Value, int64(2))
}

func TestArraySizeErrors(t *testing.T) {
	expectParseError(t, "void f() { int n = 3; float v[n]; }", "determine the array size at compile-time")
	expectParseError(t, "float v[];", "determine the array size at compile-time")
	expectParseError(t, "float v[0];", "greater than zero")
	expectParseError(t, "float v[2.0];", "determine the array size at compile-time")
}

func TestQualifierPlacement(t *testing.T) {
	expectParseError(t, "void f() { uniform float u; }", "only allowed at global scope")
	expectParseError(t, "out float x;", "only allowed on function parameters")
	expectParseError(t, "flat float x;", "requires 'varying'")
	expectParseError(t, "const float k;", "requires an initializer")
	expectParseError(t, "varying vec2 uv = vec2(0.0);", "cannot have an initializer")
}

func TestRedefinition(t *testing.T) {
	expectParseError(t, "float a; int a;", "Redefinition of 'a'")
	expectParseError(t, "void f(float x) { float x; }", "Redefinition of 'x'")
	expectParseError(t, "float length(vec3 v) { return 1.0; }", "Cannot redefine built-in function 'length'")
	expectParseError(t, "float f() { return 1.0; } float f() { return 2.0; }", "already defined")
	expectParseError(t, "float f(); int f();", "redeclared with return type")
}

// ----------------------------------------------------------------------------
// Scope Resolution
// ----------------------------------------------------------------------------

func TestShadowing(t *testing.T) {
	tree := expectParse(t, `
float x = 1.0;
void f() {
    int x = 2;
    x = x + 1;
}
`)
	tree.Walk(tree.Root, func(id ast.NodeID, n ast.Node) bool {
		if v, ok := n.(*ast.Variable); ok && v.Name == "x" {
			decl, isLocal := tree.Node(v.Decl).(*ast.VariableDeclaration)
			if !isLocal {
				t.Errorf("x on line %d should bind to the local declaration", v.Line)
			} else {
				test.AssertEqual(t, decl.VarType.String(), "int")
			}
		}
		return true
	})
}

func TestBlockScopeEnds(t *testing.T) {
	// The inner int a goes out of scope with its block, so a = 3.0 assigns
	// the outer float.
	expectParse(t, "void f() { float a = 1.0; { int a = 2; } a = 3.0; }")
	expectParseError(t, "void f() { { int a = 2; } a = 1; }", "Undeclared identifier 'a'.")
}

func TestTextOrderLookup(t *testing.T) {
	d := expectParseError(t, "void f() { y = 1; int y; }", "Undeclared identifier 'y'.")
	test.AssertEqual(t, d.Kind, diagnostic.KindScope)
	test.AssertEqual(t, d.Line, 1)

	expectParseError(t, "void f() { g(); } void g() {}", "Undeclared function 'g'.")
	expectParseError(t, "void f() { Missing m; }", "Undeclared identifier 'Missing'.")
}

func TestForInitScope(t *testing.T) {
	expectParse(t, `
float sum() {
    float s = 0.0;
    for (int i = 0; i < 4; i++) { s += float(i); }
    return s;
}
`)
	expectParseError(t, "void f() { for (int i = 0; i < 4; i++) {} i = 1; }", "Undeclared identifier 'i'.")
}

// ----------------------------------------------------------------------------
// Type Evaluation
// ----------------------------------------------------------------------------

func TestExpressionTypes(t *testing.T) {
	tree := expectParse(t, `
void f() {
    vec3 v = vec3(1.0, 2.0, 3.0);
    mat3 m = mat3(1.0);
    vec3 a = m * v;
    bool b = v.x < 1.0 && true;
    vec2 s = v.zy;
    float d = dot(v, a) + length(s);
    uint u = 3u;
    float c = b ? 1.0 : 2;
}
`)
	test.AssertEqual(t, findVariable(tree, "a").VarType.String(), "vec3")
	_, ternary := find(tree, func(n *ast.Ternary) bool { return true })
	test.AssertEqual(t, ternary.Type.String(), "float")
	_, lit := find(tree, func(n *ast.ConstInt) bool { return n.Unsigned })
	test.AssertEqual(t, lit.Type.String(), "uint")
}

func TestOverloadResolution(t *testing.T) {
	// The exact int overload is preferred over converting to float.
	tree := expectParse(t, `
float pick(float a) { return a; }
int pick(int a) { return a; }
void f() { int r = pick(1); }
`)
	_, call := find(tree, func(c *ast.FunctionCall) bool { return c.Name == "pick" })
	target := tree.Node(call.Target).(*ast.Function)
	test.AssertEqual(t, target.ReturnType.String(), "int")
}

func TestNoMatchingCall(t *testing.T) {
	d := expectParseError(t, `
void foo(float a) {}
void main2() { foo(1, 2); }
`, "No matching definition for function call 'foo(int, int)'")
	test.AssertEqual(t, d.Kind, diagnostic.KindType)
	test.AssertEqual(t, d.Line, 3)
}

func TestTypeErrors(t *testing.T) {
	expectParseError(t, "void f() { float x = 1.0 + true; }", "Invalid operands to binary '+': 'float' and 'bool'.")
	expectParseError(t, "void f() { int x = 1.5; }", "Cannot initialize 'x'")
	expectParseError(t, "void f() { vec2 v = vec2(1.0); float z = v.z; }", "out of range")
	expectParseError(t, "void f() { vec4 v = vec4(1.0); vec2 w = v.xg; }", "mixes component sets")
	expectParseError(t, "void f() { vec2 v = vec2(1.0); v.xx = vec2(2.0); }", "repeated components")
	expectParseError(t, "const float K = 1.0; void f() { K = 2.0; }", "Cannot assign to const variable 'K'.")
	expectParseError(t, "uniform float t; void f() { t = 2.0; }", "Cannot assign to uniform 't'.")
	expectParseError(t, "void f() { if (1) {} }", "must be a boolean expression")
	expectParseError(t, "void f() { float a[2]; float b = a[2]; }", "out of range")
	expectParseError(t, "void f() { vec3 v = vec3(1.0, 2.0); }", "Not enough components")
	expectParseError(t, "void f() { 1 = 2; }", "not assignable")
}

func TestReturnChecks(t *testing.T) {
	expectParseError(t, "float f() { return; }", "must return a value of type 'float'")
	expectParseError(t, "void f() { return 1.0; }", "returns void")
	expectParseError(t, "int f() { return vec2(1.0); }", "Cannot return a value of type 'vec2'")
}

// ----------------------------------------------------------------------------
// Statements and Context Rules
// ----------------------------------------------------------------------------

func TestControlFlow(t *testing.T) {
	expectParse(t, `
int f(int n) {
    int r = 0;
    while (r < n) r++;
    do { r--; } while (r > 10);
    if (r == 0) return 1; else if (r == 1) return 2; else { r = 3; }
    switch (n) {
    case 0:
        r = 1;
        break;
    case 1 + 1:
        int local = 2;
        r = local;
    default:
        break;
    }
    for (;;) { break; }
    return r;
}
`)
}

func TestImplicitScopeBody(t *testing.T) {
	tree := expectParse(t, "void f() { if (true) ; }")
	_, ifNode := find(tree, func(n *ast.If) bool { return true })
	then := tree.Node(ifNode.Then).(*ast.Scope)
	test.AssertEqual(t, then.Implicit, true)
}

func TestJumpContext(t *testing.T) {
	expectParseError(t, "void f() { break; }", "'break' is only allowed inside a loop or switch.")
	expectParseError(t, "void f() { continue; }", "'continue' is only allowed inside a loop.")
	expectParseError(t, "void f() { int i = 0; switch (i) { case 0: continue; } }", "'continue' is only allowed inside a loop.")
	expectParseError(t, "void helper() { discard; }", "'discard' is only allowed inside the 'fragment' entry point.")
	expectParse(t, "vec4 fragment() { if (true) discard; return vec4(1.0); }")
}

func TestFragmentEntryOption(t *testing.T) {
	p := NewWithOptions("void shade() { discard; }", Options{FragmentEntry: "shade"})
	_, diags := p.Parse()
	test.AssertEqual(t, len(diags), 0)
}

func TestSwitchErrors(t *testing.T) {
	expectParseError(t, "void f() { float x = 1.0; switch (x) { default: break; } }", "integer scalar")
	expectParseError(t, "void f() { int i = 0; switch (i) { case 1: break; case 2 - 1: break; } }", "Duplicate case label '1'.")
	expectParseError(t, "void f() { int i = 0; switch (i) { default: break; default: break; } }", "Multiple default labels")
	expectParseError(t, "void f() { int i = 0; switch (i) { case i: break; } }", "integer constant expressions")
}

func TestGlobalScopeOnlyDeclarations(t *testing.T) {
	expectParseError(t, "if (true) {}", "Only declarations are allowed at global scope")
	expectParseError(t, "x = 1;", "Undeclared identifier 'x'.")
	expectParseError(t, "void f() { void g() {} }", "must be declared at global scope")
}

func TestNoRecovery(t *testing.T) {
	_, diags := Parse("void f() { int a = ; int b = ; }\nfloat c = true;")
	test.AssertEqual(t, len(diags), 1)
	test.AssertContains(t, diags[0].Message, "Expected an expression")
}

func TestLexErrorBecomesDiagnostic(t *testing.T) {
	d := expectParseError(t, "void f() {\n  float x = 1.0.0;\n}", "decimal point")
	test.AssertEqual(t, d.Kind, diagnostic.KindLex)
	test.AssertEqual(t, d.Line, 2)
}

func TestBacktrackingLeavesNoNodes(t *testing.T) {
	// Each statement below is first tried as a function and a declaration.
	// Abandoned attempts must not leave declarations behind.
	tree := expectParse(t, "float g; void f() { g = 1.0; g++; }")
	count := 0
	tree.Walk(tree.Root, func(id ast.NodeID, n ast.Node) bool {
		if ast.DeclName(n) != "" {
			count++
		}
		return true
	})
	test.AssertEqual(t, count, 2)
	for i, n := range tree.Nodes {
		if n == nil {
			t.Fatalf("node %d is nil", i)
		}
	}
}

// ----------------------------------------------------------------------------
// Constant Folding
// ----------------------------------------------------------------------------

func TestEvaluateConstant(t *testing.T) {
	tree := expectParse(t, `
const int A = 7 / 2 + (1 << 3);
const float F = 1.5 * 2.0;
const int T = 1 < 2 ? 10 : 20;
const int B = A - 1;
const bool L = !(A > 3) || false;
const int Z = 1 / 0;
const uint U = uint(-1);
const int C = int(2.9);
int notConst = 4;
`)
	cases := []struct {
		name string
		want ConstValue
	}{
		{"A", ConstValue{Kind: ConstInt, Int: 11}},
		{"F", ConstValue{Kind: ConstFloat, Float: 3}},
		{"T", ConstValue{Kind: ConstInt, Int: 10}},
		{"B", ConstValue{Kind: ConstInt, Int: 10}},
		{"L", ConstValue{Kind: ConstBool, Bool: false}},
		{"Z", ConstValue{Kind: ConstNone}},
		{"U", ConstValue{Kind: ConstInt, Int: 4294967295}},
		{"C", ConstValue{Kind: ConstInt, Int: 2}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			decl := findGlobal(tree, c.name)
			test.AssertEqual(t, EvaluateConstant(tree, decl.Initializer), c.want)
		})
	}

	// A variable without const is never folded.
	_, v := find(tree, func(d *ast.GlobalVariableDeclaration) bool { return d.Name == "notConst" })
	test.AssertEqual(t, EvaluateConstant(tree, v.Initializer).Kind, ConstInt)
	id := tree.Add(tree.Root, 1, &ast.Variable{Name: "notConst", Decl: tree.LookupVariable(tree.Root, "notConst")})
	test.AssertEqual(t, EvaluateConstant(tree, id).Kind, ConstNone)
}

func TestDumpContainsTypes(t *testing.T) {
	tree := expectParse(t, "float k = 1.0;")
	out := tree.Dump(tree.Root)
	if !strings.Contains(out, "GlobalVariableDeclaration") {
		t.Errorf("dump missing declaration:\n%s", out)
	}
}
