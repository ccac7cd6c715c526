package types

import (
	"strings"
	"testing"
)

func mustLookup(t *testing.T, name string) Type {
	t.Helper()
	typ, ok := Lookup(name)
	if !ok {
		t.Fatalf("Lookup(%q) failed", name)
	}
	return typ
}

func TestLookup(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"float", "float"},
		{"uint", "uint"},
		{"vec3", "vec3"},
		{"ivec2", "ivec2"},
		{"uvec4", "uvec4"},
		{"bvec3", "bvec3"},
		{"color", "vec4"},
		{"mat3", "mat3"},
		{"mat3x3", "mat3"},
		{"mat2x4", "mat2x4"},
		{"sampler2D", "sampler2D"},
		{"isampler3D", "isampler3D"},
		{"usamplerCube", "usamplerCube"},
		{"sampler2DShadow", "sampler2DShadow"},
		{"void", "void"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := mustLookup(t, c.name).String(); got != c.want {
				t.Errorf("expected %q, got %q", c.want, got)
			}
		})
	}

	for _, bad := range []string{"vec5", "vec1", "mat5", "mat2x", "isampler2DShadow", "Color", "double"} {
		if _, ok := Lookup(bad); ok {
			t.Errorf("Lookup(%q) should fail", bad)
		}
	}
}

func TestAliases(t *testing.T) {
	if !mustLookup(t, "color").Equals(mustLookup(t, "vec4")) {
		t.Error("color should equal vec4")
	}
	if !mustLookup(t, "mat4").Equals(mustLookup(t, "mat4x4")) {
		t.Error("mat4 should equal mat4x4")
	}
	if mustLookup(t, "mat2x3").Equals(mustLookup(t, "mat3x2")) {
		t.Error("mat2x3 should not equal mat3x2")
	}
}

func TestStructEquality(t *testing.T) {
	a := &Struct{Name: "Light", Decl: 3}
	b := &Struct{Name: "Light", Decl: 3}
	c := &Struct{Name: "Light", Decl: 9}
	if !a.Equals(b) {
		t.Error("same declaration should be equal")
	}
	if a.Equals(c) {
		t.Error("different declarations should differ")
	}
}

func TestCompatibleSymmetry(t *testing.T) {
	names := []string{
		"bool", "int", "uint", "float", "vec2", "vec3", "vec4", "color",
		"ivec3", "uvec3", "bvec3", "mat3", "mat3x3", "mat2x3", "sampler2D", "void",
	}
	all := make([]Type, 0, len(names)+2)
	for _, n := range names {
		all = append(all, mustLookup(t, n))
	}
	all = append(all, &Array{Element: Float, Length: 3}, &Struct{Name: "S", Decl: 1})

	for _, a := range all {
		for _, b := range all {
			if Compatible(a, b) != Compatible(b, a) {
				t.Errorf("Compatible(%s, %s) is not symmetric", a, b)
			}
		}
		if !Compatible(a, a) {
			t.Errorf("Compatible(%s, %s) should hold", a, a)
		}
	}
}

func TestCanConvert(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{"int", "float", true},
		{"uint", "float", true},
		{"int", "uint", true},
		{"float", "int", false},
		{"ivec3", "vec3", true},
		{"ivec3", "vec2", false},
		{"bool", "float", false},
		{"vec4", "color", true},
		{"mat3", "mat3x3", true},
	}
	for _, c := range cases {
		if got := CanConvert(mustLookup(t, c.from), mustLookup(t, c.to)); got != c.want {
			t.Errorf("CanConvert(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestMultiplyResultType(t *testing.T) {
	cases := []struct {
		a, b string
		want string
	}{
		{"float", "float", "float"},
		{"vec3", "float", "vec3"},
		{"int", "vec2", "vec2"},
		{"mat4", "vec4", "vec4"},
		{"vec4", "mat4", "vec4"},
		{"mat2x3", "vec2", "vec3"},
		{"vec3", "mat2x3", "vec2"},
		{"mat3x2", "mat2x3", "mat2"},
		{"mat2x3", "mat3x2", "mat3"},
		{"mat4", "float", "mat4"},
		{"mat4", "vec3", ""},
		{"mat2x3", "mat2x3", ""},
		{"vec3", "vec2", ""},
		{"bool", "float", ""},
	}
	for _, c := range cases {
		t.Run(c.a+"*"+c.b, func(t *testing.T) {
			got := MultiplyResultType(mustLookup(t, c.a), mustLookup(t, c.b))
			if c.want == "" {
				if got != nil {
					t.Errorf("expected invalid, got %s", got)
				}
				return
			}
			if got == nil || got.String() != c.want {
				t.Errorf("expected %s, got %v", c.want, got)
			}
		})
	}
}

func TestOperatorResultTypes(t *testing.T) {
	if got := ModuloResultType(Int, Int); got == nil || !got.Equals(Int) {
		t.Errorf("int %% int should be int, got %v", got)
	}
	if ModuloResultType(Float, Float) != nil {
		t.Error("float % float should be invalid")
	}
	if got := ShiftResultType(Vec(3, ScalarInt), Int); got == nil || got.String() != "ivec3" {
		t.Errorf("ivec3 << int should be ivec3, got %v", got)
	}
	if ShiftResultType(Int, Vec(2, ScalarInt)) != nil {
		t.Error("int << ivec2 should be invalid")
	}
	if ComparisonResultType(Int, Float) != Bool {
		t.Error("int < float should be bool")
	}
	if ComparisonResultType(Vec(2, ScalarFloat), Vec(2, ScalarFloat)) != nil {
		t.Error("vec2 < vec2 should be invalid")
	}
	if EqualityResultType(Vec(2, ScalarFloat), Vec(2, ScalarFloat)) != Bool {
		t.Error("vec2 == vec2 should be bool")
	}
	if LogicalResultType(Bool, Int) != nil {
		t.Error("bool && int should be invalid")
	}
}

func TestSwizzleType(t *testing.T) {
	v3 := Vec(3, ScalarFloat)
	cases := []struct {
		swizzle string
		want    string
		err     string
	}{
		{"x", "float", ""},
		{"xy", "vec2", ""},
		{"zyx", "vec3", ""},
		{"rgb", "vec3", ""},
		{"stst", "vec4", ""},
		{"xg", "", "mixes"},
		{"w", "", "out of range"},
		{"xyzwx", "", "Invalid swizzle"},
		{"q", "", "out of range"},
		{"foo", "", "Invalid swizzle"},
	}
	for _, c := range cases {
		t.Run(c.swizzle, func(t *testing.T) {
			got, err := SwizzleType(v3, c.swizzle)
			if c.err != "" {
				if err == nil || !strings.Contains(err.Error(), c.err) {
					t.Errorf("expected error containing %q, got %v", c.err, err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got.String() != c.want {
				t.Errorf("expected %s, got %s", c.want, got)
			}
		})
	}

	got, err := SwizzleType(Vec(4, ScalarInt), "zw")
	if err != nil || got.String() != "ivec2" {
		t.Errorf("expected ivec2, got %v (%v)", got, err)
	}
}

func TestIndexType(t *testing.T) {
	if got := IndexType(&Matrix{Cols: 2, Rows: 3}); got.String() != "vec3" {
		t.Errorf("expected vec3 column, got %s", got)
	}
	if got := IndexType(&Array{Element: Vec(2, ScalarFloat), Length: 4}); got.String() != "vec2" {
		t.Errorf("expected vec2, got %s", got)
	}
	if IndexType(Float) != nil {
		t.Error("float is not indexable")
	}
	if IndexLength(&Matrix{Cols: 2, Rows: 3}) != 2 {
		t.Error("mat2x3 has 2 columns")
	}
}

func TestCheckConstructor(t *testing.T) {
	v2, v3, v4 := Vec(2, ScalarFloat), Vec(3, ScalarFloat), Vec(4, ScalarFloat)
	m3 := &Matrix{Cols: 3, Rows: 3}

	ok := []struct {
		target Type
		args   []Type
	}{
		{v4, []Type{Float}},
		{v4, []Type{Int, Int, Int, Int}},
		{v4, []Type{v3, Float}},
		{v4, []Type{v2, v2}},
		{v3, []Type{v4}},
		{Float, []Type{Int}},
		{Int, []Type{v3}},
		{m3, []Type{Float}},
		{m3, []Type{&Matrix{Cols: 4, Rows: 4}}},
		{m3, []Type{v3, v3, v3}},
		{v4, []Type{v3, v2}},
	}
	for _, c := range ok {
		if err := CheckConstructor(c.target, c.args); err != nil {
			t.Errorf("%s%v: unexpected error %v", c.target, c.args, err)
		}
	}

	bad := []struct {
		target Type
		args   []Type
		err    string
	}{
		{v4, []Type{Float, Float}, "Not enough components"},
		{v4, []Type{v2}, "Not enough components"},
		{v2, []Type{Float, Float, Float}, "Too many arguments"},
		{v4, nil, "at least one"},
		{Float, []Type{Int, Int}, "exactly one"},
		{v3, []Type{&Sampler{Dim: Sampler2D}}, "Cannot construct"},
	}
	for _, c := range bad {
		err := CheckConstructor(c.target, c.args)
		if err == nil || !strings.Contains(err.Error(), c.err) {
			t.Errorf("%s%v: expected error containing %q, got %v", c.target, c.args, c.err, err)
		}
	}
}
