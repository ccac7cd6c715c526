// Package lexer provides tokenization for shader source code.
//
// The lexer converts a shader source string into a flat sequence of tokens,
// handling:
// - Keywords, built-in type names and qualifiers (closed tables)
// - Identifiers
// - Numeric literals (decimal, hex, octal, float, f/u suffixes)
// - Operators and punctuation (longest match)
// - Line and block comments
//
// Every token carries the 1-based source line it starts on.
package lexer

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ----------------------------------------------------------------------------
// Token Types
// ----------------------------------------------------------------------------

// TokenKind represents the type of a token.
type TokenKind uint8

const (
	TokEOF TokenKind = iota

	// Literals
	TokIntLiteral
	TokUintLiteral
	TokFloatLiteral
	TokBoolLiteral

	// Names
	TokIdent
	TokType
	TokQualifier

	// Keywords
	TokStruct
	TokIf
	TokElse
	TokFor
	TokWhile
	TokDo
	TokSwitch
	TokCase
	TokDefault
	TokBreak
	TokContinue
	TokReturn
	TokDiscard

	// Operators
	TokPlus     // +
	TokMinus    // -
	TokStar     // *
	TokSlash    // /
	TokPercent  // %
	TokAmp      // &
	TokPipe     // |
	TokCaret    // ^
	TokTilde    // ~
	TokBang     // !
	TokLt       // <
	TokGt       // >
	TokEq       // =
	TokDot      // .
	TokQuestion // ?

	// Multi-char operators
	TokPlusPlus   // ++
	TokMinusMinus // --
	TokAmpAmp     // &&
	TokPipePipe   // ||
	TokCaretCaret // ^^
	TokLtLt       // <<
	TokGtGt       // >>
	TokLtEq       // <=
	TokGtEq       // >=
	TokEqEq       // ==
	TokBangEq     // !=
	TokPlusEq     // +=
	TokMinusEq    // -=
	TokStarEq     // *=
	TokSlashEq    // /=
	TokPercentEq  // %=
	TokAmpEq      // &=
	TokPipeEq     // |=
	TokCaretEq    // ^=
	TokLtLtEq     // <<=
	TokGtGtEq     // >>=

	// Delimiters
	TokLParen    // (
	TokRParen    // )
	TokLBrace    // {
	TokRBrace    // }
	TokLBracket  // [
	TokRBracket  // ]
	TokSemicolon // ;
	TokColon     // :
	TokComma     // ,
)

// String returns the string representation of a token kind.
func (k TokenKind) String() string {
	if int(k) < len(tokenNames) && tokenNames[k] != "" {
		return tokenNames[k]
	}
	return "unknown"
}

var tokenNames = [...]string{
	TokEOF:          "end of input",
	TokIntLiteral:   "integer literal",
	TokUintLiteral:  "unsigned literal",
	TokFloatLiteral: "float literal",
	TokBoolLiteral:  "boolean literal",
	TokIdent:        "identifier",
	TokType:         "type name",
	TokQualifier:    "qualifier",
	TokStruct:       "struct",
	TokIf:           "if",
	TokElse:         "else",
	TokFor:          "for",
	TokWhile:        "while",
	TokDo:           "do",
	TokSwitch:       "switch",
	TokCase:         "case",
	TokDefault:      "default",
	TokBreak:        "break",
	TokContinue:     "continue",
	TokReturn:       "return",
	TokDiscard:      "discard",
	TokPlus:         "+",
	TokMinus:        "-",
	TokStar:         "*",
	TokSlash:        "/",
	TokPercent:      "%",
	TokAmp:          "&",
	TokPipe:         "|",
	TokCaret:        "^",
	TokTilde:        "~",
	TokBang:         "!",
	TokLt:           "<",
	TokGt:           ">",
	TokEq:           "=",
	TokDot:          ".",
	TokQuestion:     "?",
	TokPlusPlus:     "++",
	TokMinusMinus:   "--",
	TokAmpAmp:       "&&",
	TokPipePipe:     "||",
	TokCaretCaret:   "^^",
	TokLtLt:         "<<",
	TokGtGt:         ">>",
	TokLtEq:         "<=",
	TokGtEq:         ">=",
	TokEqEq:         "==",
	TokBangEq:       "!=",
	TokPlusEq:       "+=",
	TokMinusEq:      "-=",
	TokStarEq:       "*=",
	TokSlashEq:      "/=",
	TokPercentEq:    "%=",
	TokAmpEq:        "&=",
	TokPipeEq:       "|=",
	TokCaretEq:      "^=",
	TokLtLtEq:       "<<=",
	TokGtGtEq:       ">>=",
	TokLParen:       "(",
	TokRParen:       ")",
	TokLBrace:       "{",
	TokRBrace:       "}",
	TokLBracket:     "[",
	TokRBracket:     "]",
	TokSemicolon:    ";",
	TokColon:        ":",
	TokComma:        ",",
}

// IsAssignment returns true for = and the compound assignment operators.
func (k TokenKind) IsAssignment() bool {
	return k == TokEq || (k >= TokPlusEq && k <= TokGtGtEq)
}

// ----------------------------------------------------------------------------
// Token
// ----------------------------------------------------------------------------

// Token represents a lexical token.
//
// For numeric literals Value holds the normalized text: integers are always
// decimal (hex and octal are converted) and suffixes are stripped.
type Token struct {
	Kind  TokenKind
	Value string
	Line  int
}

// Text returns the token as it should appear in messages.
func (t Token) Text() string {
	if t.Value != "" {
		return t.Value
	}
	return t.Kind.String()
}

// ----------------------------------------------------------------------------
// Keyword tables
// ----------------------------------------------------------------------------

// Keywords maps keyword strings to their token kinds.
var Keywords = map[string]TokenKind{
	"struct":   TokStruct,
	"if":       TokIf,
	"else":     TokElse,
	"for":      TokFor,
	"while":    TokWhile,
	"do":       TokDo,
	"switch":   TokSwitch,
	"case":     TokCase,
	"default":  TokDefault,
	"break":    TokBreak,
	"continue": TokContinue,
	"return":   TokReturn,
	"discard":  TokDiscard,
	"true":     TokBoolLiteral,
	"false":    TokBoolLiteral,
}

// Types lists the built-in type names. User struct names are never
// promoted to TokType; they stay identifiers.
var Types = map[string]bool{
	"void": true, "bool": true, "int": true, "uint": true, "float": true,
	"vec2": true, "vec3": true, "vec4": true, "color": true,
	"ivec2": true, "ivec3": true, "ivec4": true,
	"uvec2": true, "uvec3": true, "uvec4": true,
	"bvec2": true, "bvec3": true, "bvec4": true,
	"mat2": true, "mat3": true, "mat4": true,
	"mat2x2": true, "mat2x3": true, "mat2x4": true,
	"mat3x2": true, "mat3x3": true, "mat3x4": true,
	"mat4x2": true, "mat4x3": true, "mat4x4": true,
	"sampler1D": true, "sampler2D": true, "sampler3D": true, "samplerCube": true,
	"sampler2DArray": true, "sampler2DShadow": true, "samplerCubeShadow": true,
	"isampler1D": true, "isampler2D": true, "isampler3D": true, "isamplerCube": true,
	"isampler2DArray": true,
	"usampler1D": true, "usampler2D": true, "usampler3D": true, "usamplerCube": true,
	"usampler2DArray": true,
}

// Qualifiers lists storage, parameter, interpolation and precision qualifiers.
var Qualifiers = map[string]bool{
	"const": true, "uniform": true, "varying": true,
	"in": true, "out": true, "inout": true,
	"flat": true, "smooth": true, "noperspective": true,
	"lowp": true, "mediump": true, "highp": true,
}

// ----------------------------------------------------------------------------
// Errors
// ----------------------------------------------------------------------------

// LexError reports an illegal character, a malformed numeric literal or an
// unterminated block comment.
type LexError struct {
	Message string
	Line    int
}

func (e *LexError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// ----------------------------------------------------------------------------
// Lexer
// ----------------------------------------------------------------------------

// Lexer tokenizes shader source code.
type Lexer struct {
	source string
	pos    int
	line   int
}

// New creates a new lexer for the given source.
func New(source string) *Lexer {
	return &Lexer{source: source, line: 1}
}

// Tokenize returns all tokens in the source, ending with TokEOF.
// It stops at the first lexical error.
func Tokenize(source string) ([]Token, error) {
	l := New(source)
	tokens := make([]Token, 0, len(source)/4)
	for {
		tok, err := l.Next()
		if err != nil {
			return tokens, err
		}
		tokens = append(tokens, tok)
		if tok.Kind == TokEOF {
			return tokens, nil
		}
	}
}

// Next returns the next token.
func (l *Lexer) Next() (Token, error) {
	if err := l.skipWhitespaceAndComments(); err != nil {
		return Token{}, err
	}

	if l.pos >= len(l.source) {
		return Token{Kind: TokEOF, Line: l.line}, nil
	}

	ch := l.source[l.pos]

	if isIdentStart(ch) {
		return l.scanIdentOrKeyword(), nil
	}

	if isDigit(ch) || (ch == '.' && l.pos+1 < len(l.source) && isDigit(l.source[l.pos+1])) {
		return l.scanNumber()
	}

	return l.scanOperator()
}

func (l *Lexer) errorf(format string, args ...interface{}) *LexError {
	return &LexError{Message: fmt.Sprintf(format, args...), Line: l.line}
}

// ----------------------------------------------------------------------------
// Scanning Helpers
// ----------------------------------------------------------------------------

func (l *Lexer) skipWhitespaceAndComments() error {
	for l.pos < len(l.source) {
		ch := l.source[l.pos]

		if ch == '\n' {
			l.line++
			l.pos++
			continue
		}

		if ch == ' ' || ch == '\t' || ch == '\r' || ch == '\v' || ch == '\f' {
			l.pos++
			continue
		}

		if ch == '/' && l.pos+1 < len(l.source) && l.source[l.pos+1] == '/' {
			l.pos += 2
			for l.pos < len(l.source) && l.source[l.pos] != '\n' {
				l.pos++
			}
			continue
		}

		if ch == '/' && l.pos+1 < len(l.source) && l.source[l.pos+1] == '*' {
			startLine := l.line
			l.pos += 2
			closed := false
			for l.pos < len(l.source) {
				c := l.source[l.pos]
				if c == '*' && l.pos+1 < len(l.source) && l.source[l.pos+1] == '/' {
					l.pos += 2
					closed = true
					break
				}
				if c == '\n' {
					l.line++
				}
				l.pos++
			}
			if !closed {
				return &LexError{Message: "Unterminated block comment.", Line: startLine}
			}
			continue
		}

		break
	}
	return nil
}

func (l *Lexer) scanIdentOrKeyword() Token {
	start := l.pos
	for l.pos < len(l.source) && isIdentContinue(l.source[l.pos]) {
		l.pos++
	}
	text := l.source[start:l.pos]

	if kind, ok := Keywords[text]; ok {
		return Token{Kind: kind, Value: text, Line: l.line}
	}
	if Types[text] {
		return Token{Kind: TokType, Value: text, Line: l.line}
	}
	if Qualifiers[text] {
		return Token{Kind: TokQualifier, Value: text, Line: l.line}
	}
	return Token{Kind: TokIdent, Value: text, Line: l.line}
}

func (l *Lexer) scanNumber() (Token, error) {
	start := l.pos

	// Hex integer
	if l.source[l.pos] == '0' && l.pos+1 < len(l.source) &&
		(l.source[l.pos+1] == 'x' || l.source[l.pos+1] == 'X') {
		l.pos += 2
		digitsStart := l.pos
		for l.pos < len(l.source) && isHexDigit(l.source[l.pos]) {
			l.pos++
		}
		digits := l.source[digitsStart:l.pos]
		if digits == "" {
			return Token{}, l.errorf("Malformed hexadecimal literal '%s'.", l.source[start:l.pos])
		}
		value, err := strconv.ParseUint(digits, 16, 64)
		if err != nil {
			return Token{}, l.errorf("Hexadecimal literal '%s' is out of range.", l.source[start:l.pos])
		}
		kind := TokIntLiteral
		if l.pos < len(l.source) && (l.source[l.pos] == 'u' || l.source[l.pos] == 'U') {
			kind = TokUintLiteral
			l.pos++
		}
		if err := l.checkLiteralEnd(start); err != nil {
			return Token{}, err
		}
		return Token{Kind: kind, Value: strconv.FormatUint(value, 10), Line: l.line}, nil
	}

	// Decimal digits and dots; more than one dot is malformed.
	dots := 0
	for l.pos < len(l.source) && (isDigit(l.source[l.pos]) || l.source[l.pos] == '.') {
		if l.source[l.pos] == '.' {
			dots++
		}
		l.pos++
	}
	if dots > 1 {
		return Token{}, l.errorf("Malformed numeric literal '%s': multiple decimal points.", l.source[start:l.pos])
	}
	isFloat := dots == 1

	// Exponent
	if l.pos < len(l.source) && (l.source[l.pos] == 'e' || l.source[l.pos] == 'E') {
		isFloat = true
		l.pos++
		if l.pos < len(l.source) && (l.source[l.pos] == '+' || l.source[l.pos] == '-') {
			l.pos++
		}
		expStart := l.pos
		for l.pos < len(l.source) && isDigit(l.source[l.pos]) {
			l.pos++
		}
		if expStart == l.pos {
			return Token{}, l.errorf("Malformed numeric literal '%s': missing exponent digits.", l.source[start:l.pos])
		}
	}

	text := l.source[start:l.pos]
	kind := TokIntLiteral

	// Suffix
	if l.pos < len(l.source) {
		switch l.source[l.pos] {
		case 'f', 'F':
			isFloat = true
			l.pos++
		case 'u', 'U':
			if isFloat {
				return Token{}, l.errorf("Malformed numeric literal '%s': unsigned suffix on a float.", l.source[start:l.pos+1])
			}
			kind = TokUintLiteral
			l.pos++
		}
	}
	if err := l.checkLiteralEnd(start); err != nil {
		return Token{}, err
	}

	if isFloat {
		return Token{Kind: TokFloatLiteral, Value: normalizeFloat(text), Line: l.line}, nil
	}

	base := 10
	if len(text) > 1 && text[0] == '0' {
		for i := 1; i < len(text); i++ {
			if text[i] > '7' {
				return Token{}, l.errorf("Invalid digit '%c' in octal literal '%s'.", text[i], text)
			}
		}
		base = 8
	}
	value, err := strconv.ParseUint(text, base, 64)
	if err != nil {
		return Token{}, l.errorf("Integer literal '%s' is out of range.", text)
	}
	return Token{Kind: kind, Value: strconv.FormatUint(value, 10), Line: l.line}, nil
}

// checkLiteralEnd rejects literals directly followed by identifier characters,
// such as "12abc".
func (l *Lexer) checkLiteralEnd(start int) error {
	if l.pos < len(l.source) && isIdentContinue(l.source[l.pos]) {
		end := l.pos
		for end < len(l.source) && isIdentContinue(l.source[end]) {
			end++
		}
		return l.errorf("Malformed numeric literal '%s'.", l.source[start:end])
	}
	return nil
}

// normalizeFloat makes sure a float literal keeps a decimal point or exponent
// so it stays a float once printed.
func normalizeFloat(text string) string {
	if strings.ContainsAny(text, ".eE") {
		return text
	}
	return text + ".0"
}

// operators is ordered longest first so the first match wins.
var operators = []struct {
	text string
	kind TokenKind
}{
	{"<<=", TokLtLtEq}, {">>=", TokGtGtEq},
	{"++", TokPlusPlus}, {"--", TokMinusMinus},
	{"&&", TokAmpAmp}, {"||", TokPipePipe}, {"^^", TokCaretCaret},
	{"<<", TokLtLt}, {">>", TokGtGt},
	{"<=", TokLtEq}, {">=", TokGtEq}, {"==", TokEqEq}, {"!=", TokBangEq},
	{"+=", TokPlusEq}, {"-=", TokMinusEq}, {"*=", TokStarEq}, {"/=", TokSlashEq},
	{"%=", TokPercentEq}, {"&=", TokAmpEq}, {"|=", TokPipeEq}, {"^=", TokCaretEq},
	{"+", TokPlus}, {"-", TokMinus}, {"*", TokStar}, {"/", TokSlash}, {"%", TokPercent},
	{"&", TokAmp}, {"|", TokPipe}, {"^", TokCaret}, {"~", TokTilde}, {"!", TokBang},
	{"<", TokLt}, {">", TokGt}, {"=", TokEq}, {".", TokDot}, {"?", TokQuestion},
	{"(", TokLParen}, {")", TokRParen}, {"{", TokLBrace}, {"}", TokRBrace},
	{"[", TokLBracket}, {"]", TokRBracket}, {";", TokSemicolon}, {":", TokColon},
	{",", TokComma},
}

func (l *Lexer) scanOperator() (Token, error) {
	rest := l.source[l.pos:]
	for _, op := range operators {
		if strings.HasPrefix(rest, op.text) {
			l.pos += len(op.text)
			return Token{Kind: op.kind, Line: l.line}, nil
		}
	}
	r, _ := utf8.DecodeRuneInString(rest)
	return Token{}, l.errorf("Unexpected character '%c'.", r)
}

// ----------------------------------------------------------------------------
// Character Classification
// ----------------------------------------------------------------------------

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isHexDigit(ch byte) bool {
	return isDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentContinue(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}
