package builtins

import (
	"testing"

	"github.com/HugoDaniel/shadec/internal/types"
)

func lookupType(t *testing.T, name string) types.Type {
	t.Helper()
	typ, ok := types.Lookup(name)
	if !ok {
		t.Fatalf("unknown type %q", name)
	}
	return typ
}

func expectResolve(t *testing.T, fn string, args []string, want string) {
	t.Helper()
	b := Lookup(fn)
	if b == nil {
		t.Fatalf("%s is not a builtin", fn)
	}
	argTypes := make([]types.Type, len(args))
	for i, a := range args {
		argTypes[i] = lookupType(t, a)
	}
	ret, ok := ResolveOverload(b, argTypes)
	if want == "" {
		if ok {
			t.Errorf("%s%v: expected no match, got %s", fn, args, ret)
		}
		return
	}
	if !ok {
		t.Fatalf("%s%v: expected %s, got no match", fn, args, want)
	}
	if ret.String() != want {
		t.Errorf("%s%v: expected %s, got %s", fn, args, want, ret)
	}
}

func TestResolveOverload(t *testing.T) {
	cases := []struct {
		fn   string
		args []string
		want string
	}{
		{"sin", []string{"float"}, "float"},
		{"sin", []string{"vec3"}, "vec3"},
		{"sin", []string{"color"}, "vec4"},
		{"sin", []string{"int"}, "float"},
		{"abs", []string{"ivec2"}, "ivec2"},
		{"clamp", []string{"vec3", "float", "float"}, "vec3"},
		{"clamp", []string{"vec3", "vec3", "vec3"}, "vec3"},
		{"clamp", []string{"int", "int", "int"}, "int"},
		{"mix", []string{"vec4", "vec4", "float"}, "vec4"},
		{"mix", []string{"vec2", "vec2", "bvec2"}, "vec2"},
		{"mix", []string{"vec2", "vec3", "float"}, ""},
		{"dot", []string{"vec3", "vec3"}, "float"},
		{"cross", []string{"vec3", "vec3"}, "vec3"},
		{"cross", []string{"vec2", "vec2"}, ""},
		{"length", []string{"vec2"}, "float"},
		{"normalize", []string{"vec3"}, "vec3"},
		{"transpose", []string{"mat2x3"}, "mat3x2"},
		{"determinant", []string{"mat3x3"}, "float"},
		{"lessThan", []string{"vec3", "vec3"}, "bvec3"},
		{"any", []string{"bvec2"}, "bool"},
		{"texture", []string{"sampler2D", "vec2"}, "vec4"},
		{"texture", []string{"isampler2D", "vec2"}, "ivec4"},
		{"texture", []string{"usamplerCube", "vec3"}, "uvec4"},
		{"texture", []string{"sampler2DShadow", "vec3"}, "float"},
		{"texture", []string{"sampler2D", "vec3"}, ""},
		{"texelFetch", []string{"sampler2D", "ivec2", "int"}, "vec4"},
		{"textureSize", []string{"sampler2D", "int"}, "ivec2"},
		{"dFdx", []string{"vec2"}, "vec2"},
	}
	for _, c := range cases {
		t.Run(c.fn, func(t *testing.T) {
			expectResolve(t, c.fn, c.args, c.want)
		})
	}
}

func TestExactMatchPreferred(t *testing.T) {
	// abs(int) has an exact genIType overload; it must not be converted to float.
	expectResolve(t, "abs", []string{"int"}, "int")
	expectResolve(t, "max", []string{"uint", "uint"}, "uint")
}

func TestExpandLockStep(t *testing.T) {
	name, overloads := expand("genType mix(genType, genType, genBType)")
	if name != "mix" {
		t.Fatalf("expected mix, got %s", name)
	}
	if len(overloads) != 4 {
		t.Fatalf("expected 4 overloads, got %d", len(overloads))
	}
	last := overloads[3]
	if last.Return.String() != "vec4" || last.Params[2].String() != "bvec4" {
		t.Errorf("expected vec4 mix(vec4, vec4, bvec4), got %s(%v)", last.Return, last.Params)
	}

	_, samplers := expand("gvec4 texture(gsampler3D, vec3)")
	if len(samplers) != 3 || samplers[1].Params[0].String() != "isampler3D" || samplers[1].Return.String() != "ivec4" {
		t.Errorf("unexpected sampler expansion %v", samplers)
	}
}

func TestBuiltinVariables(t *testing.T) {
	pos, ok := Variables["gl_Position"]
	if !ok || pos.Type.String() != "vec4" || pos.ReadOnly {
		t.Errorf("unexpected gl_Position %+v", pos)
	}
	if !Variables["gl_FragCoord"].ReadOnly {
		t.Error("gl_FragCoord should be read-only")
	}
	if IsBuiltin("vertex") {
		t.Error("vertex is not a builtin")
	}
}
