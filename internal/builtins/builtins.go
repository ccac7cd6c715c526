// Package builtins defines the built-in functions and variables of the shader
// language and their type signatures.
//
// Signatures are written with generic families (genType, genIType, genUType,
// genBType, vec, ivec, uvec, bvec, mat, gsampler*, gvec4) and expanded into
// concrete overloads when the table is built. Families in one signature
// expand in lock step, so "genType mix(genType, genType, genBType)" yields
// float/bool, vec2/bvec2 and so on.
package builtins

import (
	"fmt"
	"strings"

	"github.com/HugoDaniel/shadec/internal/types"
)

// BuiltinKind identifies categories of builtin functions.
type BuiltinKind uint8

const (
	BuiltinAngle      BuiltinKind = iota // Angle and trigonometry
	BuiltinExponent                      // Exponential functions
	BuiltinCommon                        // Common math functions
	BuiltinGeometric                     // Vector geometry
	BuiltinMatrix                        // Matrix functions
	BuiltinRelational                    // Component-wise comparison
	BuiltinTexture                       // Texture lookup
	BuiltinDerivative                    // Fragment derivatives
)

// Overload represents a single function overload.
type Overload struct {
	// Parameter types.
	Params []types.Type
	// Return type.
	Return types.Type
	// Matcher for overloads that cannot be listed, such as transpose.
	// If non-nil, this is called instead of direct type matching.
	Matcher func(args []types.Type) (types.Type, bool)
}

// Builtin represents a built-in function.
type Builtin struct {
	Name      string
	Kind      BuiltinKind
	Overloads []Overload
}

// Table maps builtin function names to their definitions.
var Table = make(map[string]*Builtin)

func init() {
	registerAngle()
	registerExponent()
	registerCommon()
	registerGeometric()
	registerMatrix()
	registerRelational()
	registerTexture()
	registerDerivative()
}

// Lookup returns the builtin function with the given name, or nil.
func Lookup(name string) *Builtin {
	return Table[name]
}

// IsBuiltin returns true if the name is a builtin function.
func IsBuiltin(name string) bool {
	return Table[name] != nil
}

// ResolveOverload finds the matching overload for the given arguments.
// Exact matches are preferred over matches that need implicit conversions.
// Returns the return type and true if a match was found.
func ResolveOverload(b *Builtin, args []types.Type) (types.Type, bool) {
	for _, exact := range []bool{true, false} {
		for _, overload := range b.Overloads {
			if overload.Matcher != nil {
				if exact {
					continue
				}
				if ret, ok := overload.Matcher(args); ok {
					return ret, true
				}
				continue
			}
			if Matches(overload.Params, args, exact) {
				return overload.Return, true
			}
		}
	}
	return nil, false
}

// Matches reports whether args fit params, either exactly or through
// implicit conversions.
func Matches(params, args []types.Type, exact bool) bool {
	if len(params) != len(args) {
		return false
	}
	for i, param := range params {
		if args[i] == nil {
			return false
		}
		if exact && !args[i].Equals(param) {
			return false
		}
		if !exact && !types.CanConvert(args[i], param) {
			return false
		}
	}
	return true
}

// ----------------------------------------------------------------------------
// Built-in Variables
// ----------------------------------------------------------------------------

// Variable describes a built-in variable.
type Variable struct {
	Name     string
	Type     types.Type
	ReadOnly bool
}

// Variables lists the built-in variables visible in every function.
var Variables = map[string]Variable{
	"gl_Position":    {Name: "gl_Position", Type: types.Vec(4, types.ScalarFloat)},
	"gl_PointSize":   {Name: "gl_PointSize", Type: types.Float},
	"gl_VertexID":    {Name: "gl_VertexID", Type: types.Int, ReadOnly: true},
	"gl_InstanceID":  {Name: "gl_InstanceID", Type: types.Int, ReadOnly: true},
	"gl_FragCoord":   {Name: "gl_FragCoord", Type: types.Vec(4, types.ScalarFloat), ReadOnly: true},
	"gl_FrontFacing": {Name: "gl_FrontFacing", Type: types.Bool, ReadOnly: true},
	"gl_PointCoord":  {Name: "gl_PointCoord", Type: types.Vec(2, types.ScalarFloat), ReadOnly: true},
	"gl_FragDepth":   {Name: "gl_FragDepth", Type: types.Float},
}

// ----------------------------------------------------------------------------
// Signature Expansion
// ----------------------------------------------------------------------------

// families maps generic names to their concrete members. "color" is not
// listed: it is an alias of vec4 and matches wherever vec4 does.
var families = map[string][]string{
	"genType":  {"float", "vec2", "vec3", "vec4"},
	"genIType": {"int", "ivec2", "ivec3", "ivec4"},
	"genUType": {"uint", "uvec2", "uvec3", "uvec4"},
	"genBType": {"bool", "bvec2", "bvec3", "bvec4"},
	"vec":      {"vec2", "vec3", "vec4"},
	"ivec":     {"ivec2", "ivec3", "ivec4"},
	"uvec":     {"uvec2", "uvec3", "uvec4"},
	"bvec":     {"bvec2", "bvec3", "bvec4"},
	"mat":      {"mat2", "mat3", "mat4", "mat2x3", "mat2x4", "mat3x2", "mat3x4", "mat4x2", "mat4x3"},
	"gvec4":    {"vec4", "ivec4", "uvec4"},
}

// samplerPrefixes expands gsamplerXX in lock step with gvec4.
var samplerPrefixes = []string{"", "i", "u"}

// expand parses a signature such as "genType clamp(genType, float, float)"
// and returns the name and every concrete overload.
func expand(signature string) (string, []Overload) {
	open := strings.IndexByte(signature, '(')
	head := strings.Fields(signature[:open])
	ret, name := head[0], head[1]
	var params []string
	if inner := strings.TrimSpace(signature[open+1 : len(signature)-1]); inner != "" {
		for _, p := range strings.Split(inner, ",") {
			params = append(params, strings.TrimSpace(p))
		}
	}

	// Find the family size driving the expansion.
	size := 1
	for _, word := range append([]string{ret}, params...) {
		if members, ok := families[word]; ok {
			size = len(members)
			break
		}
		if strings.HasPrefix(word, "gsampler") {
			size = len(samplerPrefixes)
			break
		}
	}

	overloads := make([]Overload, 0, size)
	for i := 0; i < size; i++ {
		o := Overload{Return: concrete(ret, i)}
		for _, p := range params {
			o.Params = append(o.Params, concrete(p, i))
		}
		overloads = append(overloads, o)
	}
	return name, overloads
}

func concrete(word string, i int) types.Type {
	if members, ok := families[word]; ok {
		word = members[i%len(members)]
	} else if rest, ok := strings.CutPrefix(word, "gsampler"); ok {
		word = samplerPrefixes[i%len(samplerPrefixes)] + "sampler" + rest
	}
	t, ok := types.Lookup(word)
	if !ok {
		panic(fmt.Sprintf("builtins: unknown type %q", word))
	}
	return t
}

func register(kind BuiltinKind, signatures ...string) {
	for _, sig := range signatures {
		name, overloads := expand(sig)
		b := Table[name]
		if b == nil {
			b = &Builtin{Name: name, Kind: kind}
			Table[name] = b
		}
		b.Overloads = append(b.Overloads, overloads...)
	}
}

func registerMatcher(kind BuiltinKind, name string, matcher func([]types.Type) (types.Type, bool)) {
	b := Table[name]
	if b == nil {
		b = &Builtin{Name: name, Kind: kind}
		Table[name] = b
	}
	b.Overloads = append(b.Overloads, Overload{Matcher: matcher})
}

// ----------------------------------------------------------------------------
// Function Catalog
// ----------------------------------------------------------------------------

func registerAngle() {
	for _, name := range []string{"radians", "degrees", "sin", "cos", "tan", "asin", "acos",
		"sinh", "cosh", "tanh", "asinh", "acosh", "atanh"} {
		register(BuiltinAngle, "genType "+name+"(genType)")
	}
	register(BuiltinAngle, "genType atan(genType, genType)", "genType atan(genType)")
}

func registerExponent() {
	register(BuiltinExponent, "genType pow(genType, genType)")
	for _, name := range []string{"exp", "log", "exp2", "log2", "sqrt", "inversesqrt"} {
		register(BuiltinExponent, "genType "+name+"(genType)")
	}
}

func registerCommon() {
	register(BuiltinCommon,
		"genType abs(genType)", "genIType abs(genIType)",
		"genType sign(genType)", "genIType sign(genIType)",
	)
	for _, name := range []string{"floor", "trunc", "round", "roundEven", "ceil", "fract"} {
		register(BuiltinCommon, "genType "+name+"(genType)")
	}
	register(BuiltinCommon, "genType mod(genType, genType)", "genType mod(genType, float)")
	for _, name := range []string{"min", "max"} {
		register(BuiltinCommon,
			"genType "+name+"(genType, genType)", "genType "+name+"(genType, float)",
			"genIType "+name+"(genIType, genIType)", "genIType "+name+"(genIType, int)",
			"genUType "+name+"(genUType, genUType)", "genUType "+name+"(genUType, uint)",
		)
	}
	register(BuiltinCommon,
		"genType clamp(genType, genType, genType)", "genType clamp(genType, float, float)",
		"genIType clamp(genIType, genIType, genIType)", "genIType clamp(genIType, int, int)",
		"genUType clamp(genUType, genUType, genUType)", "genUType clamp(genUType, uint, uint)",
		"genType mix(genType, genType, genType)", "genType mix(genType, genType, float)",
		"genType mix(genType, genType, genBType)",
		"genType step(genType, genType)", "genType step(float, genType)",
		"genType smoothstep(genType, genType, genType)", "genType smoothstep(float, float, genType)",
		"genBType isnan(genType)", "genBType isinf(genType)",
	)
}

func registerGeometric() {
	register(BuiltinGeometric,
		"float length(genType)",
		"float distance(genType, genType)",
		"float dot(genType, genType)",
		"vec3 cross(vec3, vec3)",
		"genType normalize(genType)",
		"genType faceforward(genType, genType, genType)",
		"genType reflect(genType, genType)",
		"genType refract(genType, genType, float)",
	)
}

func registerMatrix() {
	register(BuiltinMatrix,
		"mat matrixCompMult(mat, mat)",
		"float determinant(mat2)", "float determinant(mat3)", "float determinant(mat4)",
		"mat2 inverse(mat2)", "mat3 inverse(mat3)", "mat4 inverse(mat4)",
		"mat2 outerProduct(vec2, vec2)", "mat3 outerProduct(vec3, vec3)", "mat4 outerProduct(vec4, vec4)",
	)
	registerMatcher(BuiltinMatrix, "transpose", matchTranspose)
}

func matchTranspose(args []types.Type) (types.Type, bool) {
	if len(args) != 1 {
		return nil, false
	}
	m, ok := args[0].(*types.Matrix)
	if !ok {
		return nil, false
	}
	return &types.Matrix{Cols: m.Rows, Rows: m.Cols}, true
}

func registerRelational() {
	for _, name := range []string{"lessThan", "lessThanEqual", "greaterThan", "greaterThanEqual", "equal", "notEqual"} {
		register(BuiltinRelational,
			"bvec "+name+"(vec, vec)",
			"bvec "+name+"(ivec, ivec)",
			"bvec "+name+"(uvec, uvec)",
		)
	}
	register(BuiltinRelational,
		"bvec equal(bvec, bvec)", "bvec notEqual(bvec, bvec)",
		"bool any(bvec)", "bool all(bvec)", "bvec not(bvec)",
	)
}

func registerTexture() {
	register(BuiltinTexture,
		"gvec4 texture(gsampler1D, float)",
		"gvec4 texture(gsampler2D, vec2)",
		"gvec4 texture(gsampler2D, vec2, float)",
		"gvec4 texture(gsampler3D, vec3)",
		"gvec4 texture(gsamplerCube, vec3)",
		"gvec4 texture(gsampler2DArray, vec3)",
		"float texture(sampler2DShadow, vec3)",
		"float texture(samplerCubeShadow, vec4)",
		"gvec4 textureLod(gsampler2D, vec2, float)",
		"gvec4 textureLod(gsampler3D, vec3, float)",
		"gvec4 textureLod(gsamplerCube, vec3, float)",
		"gvec4 textureProj(gsampler2D, vec3)",
		"gvec4 textureProj(gsampler2D, vec4)",
		"gvec4 texelFetch(gsampler2D, ivec2, int)",
		"gvec4 texelFetch(gsampler3D, ivec3, int)",
		"ivec2 textureSize(gsampler2D, int)",
		"ivec3 textureSize(gsampler3D, int)",
		"ivec2 textureSize(gsamplerCube, int)",
	)
}

func registerDerivative() {
	for _, name := range []string{"dFdx", "dFdy", "fwidth"} {
		register(BuiltinDerivative, "genType "+name+"(genType)")
	}
}
