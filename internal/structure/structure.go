// Package structure splits a shader document into its blocks.
//
// A document has the form:
//
//	TypeName {
//	    Uniforms { ... }   // optional, at most one
//	    Pass { ... }       // one or more
//	}
//
// The scanner only tracks brace depth. Braces inside comments and string
// literals do not count. Block bodies are returned verbatim together with
// the document line where each body starts, so that lines reported against a
// body can be mapped back to the document.
package structure

import (
	"fmt"
)

// BlockKind identifies a top-level block.
type BlockKind uint8

const (
	BlockUniforms BlockKind = iota
	BlockPass
)

func (k BlockKind) String() string {
	if k == BlockUniforms {
		return "Uniforms"
	}
	return "Pass"
}

var blockKinds = map[string]BlockKind{
	"Uniforms": BlockUniforms,
	"Pass":     BlockPass,
}

// Block is one Uniforms or Pass block.
type Block struct {
	Kind   BlockKind
	Source string // body between the braces, verbatim
	Line   int    // 1-based document line of the opening brace
	Start  int    // byte offset of the body in the document
	End    int    // byte offset of the closing brace
}

// Offset is added to a 1-based body line to get the document line.
func (b *Block) Offset() int {
	return b.Line - 1
}

// DocumentLine maps a 1-based line of the block body to the document.
func (b *Block) DocumentLine(bodyLine int) int {
	return bodyLine + b.Offset()
}

// CodeStructure is the result of splitting a shader document.
type CodeStructure struct {
	TypeName string
	Uniforms *Block
	Passes   []Block
}

// Offsets returns the body line offset of every pass.
func (c *CodeStructure) Offsets() []int {
	out := make([]int, len(c.Passes))
	for i := range c.Passes {
		out[i] = c.Passes[i].Offset()
	}
	return out
}

// Error is a structural error with the document line it was found on.
type Error struct {
	Line    int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// ----------------------------------------------------------------------------
// Scanner
// ----------------------------------------------------------------------------

type scanner struct {
	source string
	pos    int
	line   int
}

// Parse splits source into its blocks.
func Parse(source string) (*CodeStructure, error) {
	s := &scanner{source: source, line: 1}
	return s.parse()
}

func (s *scanner) errorf(line int, format string, args ...interface{}) *Error {
	return &Error{Line: line, Message: fmt.Sprintf(format, args...)}
}

func (s *scanner) parse() (*CodeStructure, error) {
	if err := s.skip(); err != nil {
		return nil, err
	}
	name := s.word()
	if name == "" {
		return nil, s.errorf(s.line, "Expected a shader type name at the start of the document.")
	}
	if err := s.expectBrace(name); err != nil {
		return nil, err
	}
	shaderLine := s.line

	cs := &CodeStructure{TypeName: name}
	for {
		if err := s.skip(); err != nil {
			return nil, err
		}
		if s.pos >= len(s.source) {
			return nil, s.errorf(shaderLine, "Unbalanced braces: shader '%s' opened on line %d is never closed.", name, shaderLine)
		}
		if s.source[s.pos] == '}' {
			s.pos++
			break
		}

		line := s.line
		keyword := s.word()
		kind, ok := blockKinds[keyword]
		if !ok {
			if keyword == "" {
				return nil, s.errorf(line, "Unexpected '%c' in shader '%s'.", s.source[s.pos], name)
			}
			return nil, s.errorf(line, "Unknown block '%s' in shader '%s'; expected 'Uniforms' or 'Pass'.", keyword, name)
		}
		if err := s.expectBrace(keyword); err != nil {
			return nil, err
		}
		block, err := s.body(kind)
		if err != nil {
			return nil, err
		}

		switch kind {
		case BlockUniforms:
			if cs.Uniforms != nil {
				return nil, s.errorf(line, "Only one Uniforms block is allowed (first declared on line %d).", cs.Uniforms.Line)
			}
			cs.Uniforms = &block
		case BlockPass:
			cs.Passes = append(cs.Passes, block)
		}
	}

	if err := s.skip(); err != nil {
		return nil, err
	}
	if s.pos < len(s.source) {
		if s.source[s.pos] == '}' {
			return nil, s.errorf(s.line, "Unbalanced braces: unexpected '}'.")
		}
		return nil, s.errorf(s.line, "Unexpected text after the end of shader '%s'.", name)
	}
	if len(cs.Passes) == 0 {
		return nil, s.errorf(shaderLine, "Shader '%s' has no Pass block.", name)
	}
	return cs, nil
}

// body scans to the brace matching the one just consumed.
func (s *scanner) body(kind BlockKind) (Block, error) {
	block := Block{Kind: kind, Line: s.line, Start: s.pos}
	depth := 1
	for s.pos < len(s.source) {
		if err := s.skip(); err != nil {
			return block, err
		}
		if s.pos >= len(s.source) {
			break
		}
		switch ch := s.source[s.pos]; ch {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				block.End = s.pos
				block.Source = s.source[block.Start:block.End]
				s.pos++
				return block, nil
			}
		case '"':
			if err := s.skipString(); err != nil {
				return block, err
			}
			continue
		}
		s.pos++
	}
	return block, s.errorf(block.Line, "Unbalanced braces: block '%s' opened on line %d is never closed.", kind, block.Line)
}

// expectBrace consumes the '{' after a name.
func (s *scanner) expectBrace(after string) error {
	if err := s.skip(); err != nil {
		return err
	}
	if s.pos >= len(s.source) || s.source[s.pos] != '{' {
		return s.errorf(s.line, "Expected '{' after '%s'.", after)
	}
	s.pos++
	return nil
}

// word consumes an identifier, or returns "".
func (s *scanner) word() string {
	start := s.pos
	for s.pos < len(s.source) && isWordByte(s.source[s.pos], s.pos == start) {
		s.pos++
	}
	return s.source[start:s.pos]
}

// skip consumes whitespace and comments.
func (s *scanner) skip() error {
	for s.pos < len(s.source) {
		ch := s.source[s.pos]
		switch {
		case ch == '\n':
			s.line++
			s.pos++
		case ch == ' ' || ch == '\t' || ch == '\r' || ch == '\v' || ch == '\f':
			s.pos++
		case ch == '/' && s.peek(1) == '/':
			for s.pos < len(s.source) && s.source[s.pos] != '\n' {
				s.pos++
			}
		case ch == '/' && s.peek(1) == '*':
			start := s.line
			s.pos += 2
			for {
				if s.pos >= len(s.source) {
					return s.errorf(start, "Unterminated block comment.")
				}
				if s.source[s.pos] == '*' && s.peek(1) == '/' {
					s.pos += 2
					break
				}
				if s.source[s.pos] == '\n' {
					s.line++
				}
				s.pos++
			}
		default:
			return nil
		}
	}
	return nil
}

func (s *scanner) skipString() error {
	start := s.line
	s.pos++
	for s.pos < len(s.source) {
		switch s.source[s.pos] {
		case '\\':
			s.pos++
		case '"':
			s.pos++
			return nil
		case '\n':
			return s.errorf(start, "Unterminated string literal.")
		}
		s.pos++
	}
	return s.errorf(start, "Unterminated string literal.")
}

func (s *scanner) peek(offset int) byte {
	if s.pos+offset < len(s.source) {
		return s.source[s.pos+offset]
	}
	return 0
}

func isWordByte(ch byte, first bool) bool {
	if ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') {
		return true
	}
	return !first && ch >= '0' && ch <= '9'
}
