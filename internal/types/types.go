// Package types provides the shader type system used during parsing.
//
// Types are a closed set: scalars, vectors, matrices, samplers, structs,
// fixed-size arrays and void. The package answers the questions the parser
// asks while it builds the tree: type lookup by name, compatibility and
// implicit conversion, operator result types and swizzle validation.
package types

import (
	"fmt"
	"strings"
)

// Type represents a shader type.
type Type interface {
	// String returns the GLSL spelling of this type.
	String() string
	// Equals returns true if this type equals another type.
	Equals(Type) bool
	// isType is a marker method.
	isType()
}

// ----------------------------------------------------------------------------
// Scalar Types
// ----------------------------------------------------------------------------

// ScalarKind represents the kind of scalar type.
type ScalarKind uint8

const (
	ScalarBool ScalarKind = iota
	ScalarInt
	ScalarUint
	ScalarFloat
)

var scalarNames = [...]string{
	ScalarBool:  "bool",
	ScalarInt:   "int",
	ScalarUint:  "uint",
	ScalarFloat: "float",
}

// vectorPrefix is the GLSL vector name prefix for each element kind.
var vectorPrefix = [...]string{
	ScalarBool:  "b",
	ScalarInt:   "i",
	ScalarUint:  "u",
	ScalarFloat: "",
}

// Scalar represents bool, int, uint or float.
type Scalar struct {
	Kind ScalarKind
}

func (s *Scalar) String() string {
	return scalarNames[s.Kind]
}

func (s *Scalar) Equals(other Type) bool {
	if o, ok := other.(*Scalar); ok {
		return s.Kind == o.Kind
	}
	return false
}

func (s *Scalar) isType() {}

// Predeclared scalar and void types.
var (
	Bool  = &Scalar{Kind: ScalarBool}
	Int   = &Scalar{Kind: ScalarInt}
	Uint  = &Scalar{Kind: ScalarUint}
	Float = &Scalar{Kind: ScalarFloat}
	VoidT = &Void{}
)

// ----------------------------------------------------------------------------
// Vector Types
// ----------------------------------------------------------------------------

// Vector represents vecN, ivecN, uvecN and bvecN. The name "color" is an
// alias of vec4 and produces an equal Vector.
type Vector struct {
	Width   int
	Element ScalarKind
}

func (v *Vector) String() string {
	return fmt.Sprintf("%svec%d", vectorPrefix[v.Element], v.Width)
}

func (v *Vector) Equals(other Type) bool {
	if o, ok := other.(*Vector); ok {
		return v.Width == o.Width && v.Element == o.Element
	}
	return false
}

func (v *Vector) isType() {}

// Vec returns the vector type of the given width and element kind.
func Vec(width int, elem ScalarKind) *Vector {
	return &Vector{Width: width, Element: elem}
}

// ----------------------------------------------------------------------------
// Matrix Types
// ----------------------------------------------------------------------------

// Matrix represents matCxR (C columns, R rows). Elements are always float.
// "matN" and "matNxN" name the same matrix.
type Matrix struct {
	Cols int
	Rows int
}

func (m *Matrix) String() string {
	if m.Cols == m.Rows {
		return fmt.Sprintf("mat%d", m.Cols)
	}
	return fmt.Sprintf("mat%dx%d", m.Cols, m.Rows)
}

func (m *Matrix) Equals(other Type) bool {
	if o, ok := other.(*Matrix); ok {
		return m.Cols == o.Cols && m.Rows == o.Rows
	}
	return false
}

func (m *Matrix) isType() {}

// Column returns the column vector type.
func (m *Matrix) Column() *Vector {
	return Vec(m.Rows, ScalarFloat)
}

// ----------------------------------------------------------------------------
// Sampler Types
// ----------------------------------------------------------------------------

// SamplerDim is the dimensionality of a sampler.
type SamplerDim uint8

const (
	Sampler1D SamplerDim = iota
	Sampler2D
	Sampler3D
	SamplerCube
	Sampler2DArray
	Sampler2DShadow
	SamplerCubeShadow
)

var samplerDimNames = [...]string{
	Sampler1D:         "1D",
	Sampler2D:         "2D",
	Sampler3D:         "3D",
	SamplerCube:       "Cube",
	Sampler2DArray:    "2DArray",
	Sampler2DShadow:   "2DShadow",
	SamplerCubeShadow: "CubeShadow",
}

// Sampler represents the sampler families. Element is the kind of value the
// sampler returns: float for sampler*, int for isampler*, uint for usampler*.
type Sampler struct {
	Dim     SamplerDim
	Element ScalarKind
}

func (s *Sampler) String() string {
	return vectorPrefix[s.Element] + "sampler" + samplerDimNames[s.Dim]
}

func (s *Sampler) Equals(other Type) bool {
	if o, ok := other.(*Sampler); ok {
		return s.Dim == o.Dim && s.Element == o.Element
	}
	return false
}

func (s *Sampler) isType() {}

// ----------------------------------------------------------------------------
// Struct Types
// ----------------------------------------------------------------------------

// StructField represents a field in a struct.
type StructField struct {
	Name string
	Type Type
}

// Struct represents a user-declared struct. Decl is the arena id of the
// declaring node; two structs are equal only if they share a declaration.
type Struct struct {
	Name   string
	Fields []StructField
	Decl   int32
}

func (s *Struct) String() string {
	return s.Name
}

func (s *Struct) Equals(other Type) bool {
	if o, ok := other.(*Struct); ok {
		return s.Name == o.Name && s.Decl == o.Decl
	}
	return false
}

func (s *Struct) isType() {}

// Field returns the field with the given name, or nil.
func (s *Struct) Field(name string) *StructField {
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			return &s.Fields[i]
		}
	}
	return nil
}

// ----------------------------------------------------------------------------
// Array and Void Types
// ----------------------------------------------------------------------------

// Array represents T[N]. Length is always known at compile time.
type Array struct {
	Element Type
	Length  int
}

func (a *Array) String() string {
	return fmt.Sprintf("%s[%d]", a.Element.String(), a.Length)
}

func (a *Array) Equals(other Type) bool {
	if o, ok := other.(*Array); ok {
		return a.Length == o.Length && a.Element.Equals(o.Element)
	}
	return false
}

func (a *Array) isType() {}

// Void is the type of functions without a return value.
type Void struct{}

func (v *Void) String() string { return "void" }

func (v *Void) Equals(other Type) bool {
	_, ok := other.(*Void)
	return ok
}

func (v *Void) isType() {}

// ----------------------------------------------------------------------------
// Lookup
// ----------------------------------------------------------------------------

// Lookup resolves a built-in type name.
func Lookup(name string) (Type, bool) {
	switch name {
	case "void":
		return VoidT, true
	case "bool":
		return Bool, true
	case "int":
		return Int, true
	case "uint":
		return Uint, true
	case "float":
		return Float, true
	case "color":
		return Vec(4, ScalarFloat), true
	}

	for kind, prefix := range vectorPrefix {
		if rest, ok := cut(name, prefix+"vec"); ok && len(rest) == 1 && rest[0] >= '2' && rest[0] <= '4' {
			return Vec(int(rest[0]-'0'), ScalarKind(kind)), true
		}
	}

	if rest, ok := cut(name, "mat"); ok {
		switch {
		case len(rest) == 1 && isDim(rest[0]):
			n := int(rest[0] - '0')
			return &Matrix{Cols: n, Rows: n}, true
		case len(rest) == 3 && isDim(rest[0]) && rest[1] == 'x' && isDim(rest[2]):
			return &Matrix{Cols: int(rest[0] - '0'), Rows: int(rest[2] - '0')}, true
		}
		return nil, false
	}

	for kind, prefix := range vectorPrefix {
		if ScalarKind(kind) == ScalarBool {
			continue
		}
		rest, ok := cut(name, prefix+"sampler")
		if !ok {
			continue
		}
		for dim, dimName := range samplerDimNames {
			if rest != dimName {
				continue
			}
			d := SamplerDim(dim)
			if ScalarKind(kind) != ScalarFloat && (d == Sampler2DShadow || d == SamplerCubeShadow) {
				return nil, false
			}
			return &Sampler{Dim: d, Element: ScalarKind(kind)}, true
		}
	}

	return nil, false
}

func cut(s, prefix string) (string, bool) {
	if strings.HasPrefix(s, prefix) {
		return s[len(prefix):], true
	}
	return "", false
}

func isDim(c byte) bool {
	return c >= '2' && c <= '4'
}

// ----------------------------------------------------------------------------
// Type Predicates
// ----------------------------------------------------------------------------

// ComponentKind returns the scalar kind of a scalar or vector type.
func ComponentKind(t Type) (ScalarKind, bool) {
	switch t := t.(type) {
	case *Scalar:
		return t.Kind, true
	case *Vector:
		return t.Element, true
	case *Matrix:
		return ScalarFloat, true
	}
	return 0, false
}

// ComponentCount returns the number of scalar components in a scalar, vector
// or matrix type, or 0.
func ComponentCount(t Type) int {
	switch t := t.(type) {
	case *Scalar:
		return 1
	case *Vector:
		return t.Width
	case *Matrix:
		return t.Cols * t.Rows
	}
	return 0
}

// IsNumeric returns true for int, uint and float scalars and vectors, and for
// matrices.
func IsNumeric(t Type) bool {
	if _, ok := t.(*Matrix); ok {
		return true
	}
	kind, ok := ComponentKind(t)
	return ok && kind != ScalarBool
}

// IsInteger returns true for int and uint scalars and vectors.
func IsInteger(t Type) bool {
	if _, ok := t.(*Matrix); ok {
		return false
	}
	kind, ok := ComponentKind(t)
	return ok && (kind == ScalarInt || kind == ScalarUint)
}

// IsBoolScalar returns true for bool.
func IsBoolScalar(t Type) bool {
	s, ok := t.(*Scalar)
	return ok && s.Kind == ScalarBool
}

// IsIntegerScalar returns true for int and uint.
func IsIntegerScalar(t Type) bool {
	s, ok := t.(*Scalar)
	return ok && (s.Kind == ScalarInt || s.Kind == ScalarUint)
}

// withKind returns t with its component kind replaced.
func withKind(t Type, kind ScalarKind) Type {
	switch t := t.(type) {
	case *Scalar:
		return &Scalar{Kind: kind}
	case *Vector:
		return Vec(t.Width, kind)
	}
	return t
}

// ----------------------------------------------------------------------------
// Conversions and Compatibility
// ----------------------------------------------------------------------------

// CanConvert returns true if a value of type from may be implicitly
// converted to type to: int to uint, int to float and uint to float, applied
// component-wise to vectors of equal width.
func CanConvert(from, to Type) bool {
	if from.Equals(to) {
		return true
	}
	fk, ok1 := ComponentKind(from)
	tk, ok2 := ComponentKind(to)
	if !ok1 || !ok2 {
		return false
	}
	switch f := from.(type) {
	case *Scalar:
		if _, ok := to.(*Scalar); !ok {
			return false
		}
	case *Vector:
		tv, ok := to.(*Vector)
		if !ok || tv.Width != f.Width {
			return false
		}
	default:
		return false
	}
	switch fk {
	case ScalarInt:
		return tk == ScalarUint || tk == ScalarFloat
	case ScalarUint:
		return tk == ScalarFloat
	}
	return false
}

// Compatible reports whether two types may meet in an operation, directly or
// through an implicit conversion in either direction. It is symmetric.
func Compatible(a, b Type) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Equals(b) || CanConvert(a, b) || CanConvert(b, a)
}

// CommonType returns the type both operands convert to, or nil.
func CommonType(a, b Type) Type {
	if a.Equals(b) {
		return a
	}
	if CanConvert(a, b) {
		return b
	}
	if CanConvert(b, a) {
		return a
	}
	return nil
}

// ----------------------------------------------------------------------------
// Operator Result Types
// ----------------------------------------------------------------------------

// ArithmeticResultType returns the result of a + - / b, or nil if invalid.
// Operands may both be the same shape or one may be a scalar.
func ArithmeticResultType(a, b Type) Type {
	if !IsNumeric(a) || !IsNumeric(b) {
		return nil
	}
	if common := CommonType(a, b); common != nil {
		return common
	}

	// scalar op vector/matrix and vector/matrix op scalar
	if sa, ok := a.(*Scalar); ok {
		return broadcast(sa, b)
	}
	if sb, ok := b.(*Scalar); ok {
		return broadcast(sb, a)
	}
	return nil
}

// broadcast combines a scalar with a vector or matrix operand.
func broadcast(s *Scalar, other Type) Type {
	switch o := other.(type) {
	case *Vector:
		if s.Kind == o.Element || CanConvert(s, &Scalar{Kind: o.Element}) {
			return o
		}
		if CanConvert(&Scalar{Kind: o.Element}, s) {
			return withKind(o, s.Kind)
		}
	case *Matrix:
		if s.Kind == ScalarFloat || CanConvert(s, Float) {
			return o
		}
	}
	return nil
}

// MultiplyResultType returns the result type of a * b, or nil if invalid.
//   - scalar/vector cases follow ArithmeticResultType (component-wise)
//   - matCxR * matKxC → matKxR
//   - matCxR * vecC → vecR
//   - vecR * matCxR → vecC
func MultiplyResultType(a, b Type) Type {
	ma, aIsMat := a.(*Matrix)
	mb, bIsMat := b.(*Matrix)

	switch {
	case aIsMat && bIsMat:
		if ma.Cols != mb.Rows {
			return nil
		}
		return &Matrix{Cols: mb.Cols, Rows: ma.Rows}
	case aIsMat:
		if v, ok := b.(*Vector); ok {
			if v.Width != ma.Cols || !CanConvert(v, Vec(v.Width, ScalarFloat)) {
				return nil
			}
			return Vec(ma.Rows, ScalarFloat)
		}
	case bIsMat:
		if v, ok := a.(*Vector); ok {
			if v.Width != mb.Rows || !CanConvert(v, Vec(v.Width, ScalarFloat)) {
				return nil
			}
			return Vec(mb.Cols, ScalarFloat)
		}
	}
	return ArithmeticResultType(a, b)
}

// ModuloResultType returns the result of a % b, or nil. Only integer operands
// are accepted.
func ModuloResultType(a, b Type) Type {
	if !IsInteger(a) || !IsInteger(b) {
		return nil
	}
	return ArithmeticResultType(a, b)
}

// BitwiseResultType returns the result of a & | ^ b, or nil.
func BitwiseResultType(a, b Type) Type {
	return ModuloResultType(a, b)
}

// ShiftResultType returns the result of a << >> b, or nil. The result has the
// type of the left operand; a vector left operand accepts a scalar or a
// vector of equal width on the right.
func ShiftResultType(a, b Type) Type {
	if !IsInteger(a) || !IsInteger(b) {
		return nil
	}
	if _, ok := a.(*Scalar); ok {
		if _, ok := b.(*Scalar); !ok {
			return nil
		}
		return a
	}
	av := a.(*Vector)
	if bv, ok := b.(*Vector); ok && bv.Width != av.Width {
		return nil
	}
	return a
}

// ComparisonResultType returns bool for < > <= >= on numeric scalars.
func ComparisonResultType(a, b Type) Type {
	_, sa := a.(*Scalar)
	_, sb := b.(*Scalar)
	if !sa || !sb || !IsNumeric(a) || !IsNumeric(b) || !Compatible(a, b) {
		return nil
	}
	return Bool
}

// EqualityResultType returns bool for == and != on compatible operands.
func EqualityResultType(a, b Type) Type {
	if _, ok := a.(*Sampler); ok {
		return nil
	}
	if !Compatible(a, b) {
		return nil
	}
	return Bool
}

// LogicalResultType returns bool for && || ^^ on bool scalars.
func LogicalResultType(a, b Type) Type {
	if !IsBoolScalar(a) || !IsBoolScalar(b) {
		return nil
	}
	return Bool
}

// ----------------------------------------------------------------------------
// Member Access
// ----------------------------------------------------------------------------

var swizzleSets = []string{"xyzw", "rgba", "stpq"}

// SwizzleType validates a swizzle against a vector type and returns the
// resulting scalar or vector type. All components must come from one set and
// address an existing component.
func SwizzleType(v *Vector, swizzle string) (Type, error) {
	if len(swizzle) < 1 || len(swizzle) > 4 {
		return nil, fmt.Errorf("Invalid swizzle '%s' on '%s'.", swizzle, v.String())
	}

	set := ""
	for _, s := range swizzleSets {
		if strings.IndexByte(s, swizzle[0]) >= 0 {
			set = s
			break
		}
	}
	if set == "" {
		return nil, fmt.Errorf("Invalid swizzle '%s' on '%s'.", swizzle, v.String())
	}
	for i := 0; i < len(swizzle); i++ {
		idx := strings.IndexByte(set, swizzle[i])
		if idx < 0 {
			return nil, fmt.Errorf("Swizzle '%s' mixes component sets.", swizzle)
		}
		if idx >= v.Width {
			return nil, fmt.Errorf("Swizzle component '%c' is out of range for '%s'.", swizzle[i], v.String())
		}
	}

	if len(swizzle) == 1 {
		return &Scalar{Kind: v.Element}, nil
	}
	return Vec(len(swizzle), v.Element), nil
}

// IndexType returns the element type produced by indexing t, or nil.
func IndexType(t Type) Type {
	switch t := t.(type) {
	case *Vector:
		return &Scalar{Kind: t.Element}
	case *Matrix:
		return t.Column()
	case *Array:
		return t.Element
	}
	return nil
}

// IndexLength returns the number of indexable elements of t.
func IndexLength(t Type) int {
	switch t := t.(type) {
	case *Vector:
		return t.Width
	case *Matrix:
		return t.Cols
	case *Array:
		return t.Length
	}
	return 0
}

// ----------------------------------------------------------------------------
// Constructors
// ----------------------------------------------------------------------------

// CheckConstructor validates constructor arguments for a scalar, vector or
// matrix type.
//   - scalar: exactly one scalar, vector or matrix argument
//   - vector: one scalar, one vector/matrix with enough components, or
//     arguments whose components fill the vector exactly
//   - matrix: one scalar (diagonal), one matrix, or components filling it
func CheckConstructor(target Type, args []Type) error {
	for _, a := range args {
		if ComponentCount(a) == 0 {
			return fmt.Errorf("Cannot construct '%s' from a value of type '%s'.", target.String(), a.String())
		}
	}

	switch t := target.(type) {
	case *Scalar:
		if len(args) != 1 {
			return fmt.Errorf("Constructor '%s' expects exactly one argument.", t.String())
		}
		return nil
	case *Vector, *Matrix:
		need := ComponentCount(t)
		if len(args) == 0 {
			return fmt.Errorf("Constructor '%s' expects at least one argument.", t.String())
		}
		if len(args) == 1 {
			if _, ok := args[0].(*Scalar); ok {
				return nil
			}
			_, targetIsMat := t.(*Matrix)
			_, argIsMat := args[0].(*Matrix)
			if targetIsMat && argIsMat {
				return nil
			}
			if ComponentCount(args[0]) < need {
				return fmt.Errorf("Not enough components to construct '%s'.", t.String())
			}
			return nil
		}
		total := 0
		for i, a := range args {
			if _, ok := a.(*Matrix); ok {
				return fmt.Errorf("Cannot construct '%s' from a matrix and other arguments.", t.String())
			}
			if total >= need {
				return fmt.Errorf("Too many arguments to constructor '%s' (argument %d is unused).", t.String(), i+1)
			}
			total += ComponentCount(a)
		}
		if total < need {
			return fmt.Errorf("Not enough components to construct '%s'.", t.String())
		}
		return nil
	}
	return fmt.Errorf("Type '%s' has no constructor.", target.String())
}
