package lexer

import (
	"errors"
	"strconv"
	"strings"
	"testing"
)

// ----------------------------------------------------------------------------
// Test Helpers (esbuild-style)
// ----------------------------------------------------------------------------

func expectToken(t *testing.T, input string, expected TokenKind) {
	t.Helper()
	tok, err := New(input).Next()
	if err != nil {
		t.Fatalf("input %q: unexpected error %v", input, err)
	}
	if tok.Kind != expected {
		t.Errorf("input %q: expected %v, got %v", input, expected, tok.Kind)
	}
}

func expectTokenValue(t *testing.T, input string, expectedKind TokenKind, expectedValue string) {
	t.Helper()
	tok, err := New(input).Next()
	if err != nil {
		t.Fatalf("input %q: unexpected error %v", input, err)
	}
	if tok.Kind != expectedKind {
		t.Errorf("input %q: expected kind %v, got %v", input, expectedKind, tok.Kind)
	}
	if tok.Value != expectedValue {
		t.Errorf("input %q: expected value %q, got %q", input, expectedValue, tok.Value)
	}
}

func expectTokens(t *testing.T, input string, expected []TokenKind) {
	t.Helper()
	tokens, err := Tokenize(input)
	if err != nil {
		t.Fatalf("input %q: unexpected error %v", input, err)
	}
	// Trailing EOF is implicit.
	expected = append(expected, TokEOF)
	if len(tokens) != len(expected) {
		t.Fatalf("input %q: expected %d tokens, got %d", input, len(expected), len(tokens))
	}
	for i, exp := range expected {
		if tokens[i].Kind != exp {
			t.Errorf("input %q token %d: expected %v, got %v", input, i, exp, tokens[i].Kind)
		}
	}
}

func expectError(t *testing.T, input string, contains string) {
	t.Helper()
	_, err := Tokenize(input)
	if err == nil {
		t.Fatalf("input %q: expected error", input)
	}
	var lexErr *LexError
	if !errors.As(err, &lexErr) {
		t.Fatalf("input %q: expected *LexError, got %T", input, err)
	}
	if !strings.Contains(lexErr.Message, contains) {
		t.Errorf("input %q: expected error containing %q, got %q", input, contains, lexErr.Message)
	}
}

// ----------------------------------------------------------------------------
// Keyword Tests
// ----------------------------------------------------------------------------

func TestKeywords(t *testing.T) {
	cases := []struct {
		input string
		kind  TokenKind
	}{
		{"struct", TokStruct},
		{"if", TokIf},
		{"else", TokElse},
		{"for", TokFor},
		{"while", TokWhile},
		{"do", TokDo},
		{"switch", TokSwitch},
		{"case", TokCase},
		{"default", TokDefault},
		{"break", TokBreak},
		{"continue", TokContinue},
		{"return", TokReturn},
		{"discard", TokDiscard},
		{"true", TokBoolLiteral},
		{"false", TokBoolLiteral},
	}

	for _, c := range cases {
		t.Run(c.input, func(t *testing.T) {
			expectToken(t, c.input, c.kind)
		})
	}
}

func TestTypesAndQualifiers(t *testing.T) {
	for _, name := range []string{"float", "vec3", "color", "mat3x3", "sampler2D", "isamplerCube", "void"} {
		expectTokenValue(t, name, TokType, name)
	}
	for _, name := range []string{"const", "uniform", "varying", "inout", "flat", "highp"} {
		expectTokenValue(t, name, TokQualifier, name)
	}
}

func TestIdentifiers(t *testing.T) {
	cases := []string{"foo", "_bar", "VertexData", "x1", "colorful", "vec5", "structs"}
	for _, c := range cases {
		t.Run(c, func(t *testing.T) {
			expectTokenValue(t, c, TokIdent, c)
		})
	}
}

// ----------------------------------------------------------------------------
// Numeric Literal Tests
// ----------------------------------------------------------------------------

func TestIntLiterals(t *testing.T) {
	cases := []struct {
		input string
		kind  TokenKind
		value string
	}{
		{"0", TokIntLiteral, "0"},
		{"42", TokIntLiteral, "42"},
		{"0x1A", TokIntLiteral, "26"},
		{"0XfF", TokIntLiteral, "255"},
		{"010", TokIntLiteral, "8"},
		{"0777", TokIntLiteral, "511"},
		{"7u", TokUintLiteral, "7"},
		{"0x10u", TokUintLiteral, "16"},
		{"012U", TokUintLiteral, "10"},
	}

	for _, c := range cases {
		t.Run(c.input, func(t *testing.T) {
			expectTokenValue(t, c.input, c.kind, c.value)
		})
	}
}

func TestFloatLiterals(t *testing.T) {
	cases := []struct {
		input string
		value string
	}{
		{"3.14", "3.14"},
		{"3.14f", "3.14"},
		{"1.", "1."},
		{".5", ".5"},
		{"1e3", "1e3"},
		{"2.5E-2", "2.5E-2"},
		{"1f", "1.0"},
		{"010.5", "010.5"},
	}

	for _, c := range cases {
		t.Run(c.input, func(t *testing.T) {
			expectTokenValue(t, c.input, TokFloatLiteral, c.value)
		})
	}
}

func TestLiteralRoundTrip(t *testing.T) {
	// The normalized value must denote the same number as the source text.
	ints := map[string]uint64{"0x1A": 26, "010": 8, "123": 123, "0": 0}
	for input, want := range ints {
		tok, err := New(input).Next()
		if err != nil {
			t.Fatal(err)
		}
		got, err := strconv.ParseUint(tok.Value, 10, 64)
		if err != nil || got != want {
			t.Errorf("%q: expected %d, got %q", input, want, tok.Value)
		}
	}

	floats := map[string]float64{"3.14f": 3.14, "1e3": 1000, ".25": 0.25}
	for input, want := range floats {
		tok, err := New(input).Next()
		if err != nil {
			t.Fatal(err)
		}
		got, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil || got != want {
			t.Errorf("%q: expected %g, got %q", input, want, tok.Value)
		}
	}
}

func TestNumericErrors(t *testing.T) {
	expectError(t, "09", "octal")
	expectError(t, "1.2.3", "multiple decimal points")
	expectError(t, "0x", "hexadecimal")
	expectError(t, "1e", "exponent")
	expectError(t, "12abc", "Malformed")
	expectError(t, "1.5u", "unsigned suffix")
}

// ----------------------------------------------------------------------------
// Operator Tests
// ----------------------------------------------------------------------------

func TestOperators(t *testing.T) {
	cases := []struct {
		input string
		kind  TokenKind
	}{
		{"+", TokPlus}, {"-", TokMinus}, {"*", TokStar}, {"/", TokSlash},
		{"%", TokPercent}, {"&", TokAmp}, {"|", TokPipe}, {"^", TokCaret},
		{"~", TokTilde}, {"!", TokBang}, {"<", TokLt}, {">", TokGt},
		{"=", TokEq}, {".", TokDot}, {"?", TokQuestion},
		{"++", TokPlusPlus}, {"--", TokMinusMinus},
		{"&&", TokAmpAmp}, {"||", TokPipePipe}, {"^^", TokCaretCaret},
		{"<<", TokLtLt}, {">>", TokGtGt},
		{"<=", TokLtEq}, {">=", TokGtEq}, {"==", TokEqEq}, {"!=", TokBangEq},
		{"+=", TokPlusEq}, {"-=", TokMinusEq}, {"*=", TokStarEq}, {"/=", TokSlashEq},
		{"%=", TokPercentEq}, {"&=", TokAmpEq}, {"|=", TokPipeEq}, {"^=", TokCaretEq},
		{"<<=", TokLtLtEq}, {">>=", TokGtGtEq},
		{"(", TokLParen}, {")", TokRParen}, {"{", TokLBrace}, {"}", TokRBrace},
		{"[", TokLBracket}, {"]", TokRBracket}, {";", TokSemicolon}, {":", TokColon},
		{",", TokComma},
	}

	for _, c := range cases {
		t.Run(c.input, func(t *testing.T) {
			expectToken(t, c.input, c.kind)
		})
	}
}

func TestAssignmentOperators(t *testing.T) {
	for _, k := range []TokenKind{TokEq, TokPlusEq, TokGtGtEq, TokCaretEq} {
		if !k.IsAssignment() {
			t.Errorf("%v should be an assignment", k)
		}
	}
	for _, k := range []TokenKind{TokEqEq, TokLtEq, TokPlus} {
		if k.IsAssignment() {
			t.Errorf("%v should not be an assignment", k)
		}
	}
}

// ----------------------------------------------------------------------------
// Comments, Lines and Sequences
// ----------------------------------------------------------------------------

func TestComments(t *testing.T) {
	expectTokens(t, "a // comment\nb", []TokenKind{TokIdent, TokIdent})
	expectTokens(t, "a /* multi\nline */ b", []TokenKind{TokIdent, TokIdent})
	expectTokens(t, "/**/", nil)
	expectError(t, "a /* never closed", "Unterminated block comment")
}

func TestLineTracking(t *testing.T) {
	tokens, err := Tokenize("float a;\n\n/* x\n y */ int b;\n// c\nc")
	if err != nil {
		t.Fatal(err)
	}
	lines := []int{1, 1, 1, 4, 4, 4, 6, 6}
	if len(tokens) != len(lines) {
		t.Fatalf("expected %d tokens, got %d", len(lines), len(tokens))
	}
	for i, want := range lines {
		if tokens[i].Line != want {
			t.Errorf("token %d (%v): expected line %d, got %d", i, tokens[i].Kind, want, tokens[i].Line)
		}
	}
}

func TestErrorLine(t *testing.T) {
	_, err := Tokenize("a\nb\n  @")
	var lexErr *LexError
	if !errors.As(err, &lexErr) {
		t.Fatalf("expected *LexError, got %v", err)
	}
	if lexErr.Line != 3 {
		t.Errorf("expected line 3, got %d", lexErr.Line)
	}
	if lexErr.Error() != "line 3: Unexpected character '@'." {
		t.Errorf("unexpected message %q", lexErr.Error())
	}
}

func TestErrorNonASCII(t *testing.T) {
	_, err := Tokenize("float é = 1.0;")
	var lexErr *LexError
	if !errors.As(err, &lexErr) {
		t.Fatalf("expected *LexError, got %v", err)
	}
	if lexErr.Message != "Unexpected character 'é'." {
		t.Errorf("unexpected message %q", lexErr.Message)
	}
}

func TestSequence(t *testing.T) {
	expectTokens(t, "vec4 fragment() { return color(1.0, 0, 0x0, 1); }", []TokenKind{
		TokType, TokIdent, TokLParen, TokRParen, TokLBrace,
		TokReturn, TokType, TokLParen, TokFloatLiteral, TokComma,
		TokIntLiteral, TokComma, TokIntLiteral, TokComma, TokIntLiteral,
		TokRParen, TokSemicolon, TokRBrace,
	})
	expectTokens(t, "v.xy+=a[i++]>>=2", []TokenKind{
		TokIdent, TokDot, TokIdent, TokPlusEq, TokIdent, TokLBracket,
		TokIdent, TokPlusPlus, TokRBracket, TokGtGtEq, TokIntLiteral,
	})
}

func TestTokenString(t *testing.T) {
	if TokSemicolon.String() != ";" {
		t.Errorf("expected ';', got %q", TokSemicolon.String())
	}
	if TokenKind(255).String() != "unknown" {
		t.Errorf("expected unknown")
	}
	if (Token{Kind: TokIdent, Value: "foo"}).Text() != "foo" {
		t.Errorf("expected identifier text")
	}
}
