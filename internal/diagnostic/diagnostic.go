// Package diagnostic provides error reporting for the shader compiler.
//
// Every diagnostic carries a kind (which stage produced it), a severity and a
// 1-based line number. Lines may be remapped after the fact, which is how
// errors found in a combined pass source are reported against the original
// shader document.
package diagnostic

import (
	"fmt"
	"strings"
)

// Severity represents the severity level of a diagnostic.
type Severity uint8

const (
	// Error prevents shader compilation.
	Error Severity = iota
	// Warning is a non-blocking issue.
	Warning
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	default:
		return "unknown"
	}
}

// Kind identifies the stage that produced a diagnostic.
type Kind uint8

const (
	// KindLex is an illegal character, malformed literal or unterminated comment.
	KindLex Kind = iota
	// KindSyntax is a grammar or context violation.
	KindSyntax
	// KindType is a type mismatch, bad operand or non-constant array size.
	KindType
	// KindScope is an undeclared or redeclared name.
	KindScope
	// KindStructural is a malformed shader document.
	KindStructural
	// KindBackend is an error reported by the graphics backend.
	KindBackend
)

var kindNames = [...]string{
	KindLex:        "lex",
	KindSyntax:     "syntax",
	KindType:       "type",
	KindScope:      "scope",
	KindStructural: "structure",
	KindBackend:    "backend",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Diagnostic represents a single diagnostic message.
type Diagnostic struct {
	Severity Severity
	Kind     Kind
	Line     int // 1-based, 0 when unknown
	Message  string
}

// Error returns a formatted error string.
func (d *Diagnostic) Error() string {
	if d.Line > 0 {
		return fmt.Sprintf("%d: %s error: %s", d.Line, d.Kind, d.Message)
	}
	return fmt.Sprintf("%s error: %s", d.Kind, d.Message)
}

// List collects diagnostics during compilation.
type List struct {
	diagnostics []Diagnostic
	hasErrors   bool
}

// NewList creates an empty diagnostic list.
func NewList() *List {
	return &List{}
}

// Add adds a diagnostic to the list.
func (l *List) Add(d Diagnostic) {
	l.diagnostics = append(l.diagnostics, d)
	if d.Severity == Error {
		l.hasErrors = true
	}
}

// AddError adds an error diagnostic.
func (l *List) AddError(kind Kind, line int, message string) {
	l.Add(Diagnostic{Severity: Error, Kind: kind, Line: line, Message: message})
}

// AddErrorf adds a formatted error diagnostic.
func (l *List) AddErrorf(kind Kind, line int, format string, args ...interface{}) {
	l.AddError(kind, line, fmt.Sprintf(format, args...))
}

// AddWarning adds a warning diagnostic.
func (l *List) AddWarning(kind Kind, line int, message string) {
	l.Add(Diagnostic{Severity: Warning, Kind: kind, Line: line, Message: message})
}

// Append adds every diagnostic of other.
func (l *List) Append(other []Diagnostic) {
	for _, d := range other {
		l.Add(d)
	}
}

// HasErrors returns true if there are any error-level diagnostics.
func (l *List) HasErrors() bool {
	return l.hasErrors
}

// Diagnostics returns all collected diagnostics.
func (l *List) Diagnostics() []Diagnostic {
	return l.diagnostics
}

// Errors returns only error-level diagnostics.
func (l *List) Errors() []Diagnostic {
	var errors []Diagnostic
	for _, d := range l.diagnostics {
		if d.Severity == Error {
			errors = append(errors, d)
		}
	}
	return errors
}

// Count returns the total number of diagnostics.
func (l *List) Count() int {
	return len(l.diagnostics)
}

// Truncate drops every diagnostic after the first n.
func (l *List) Truncate(n int) {
	if n >= len(l.diagnostics) {
		return
	}
	l.diagnostics = l.diagnostics[:n]
	l.hasErrors = false
	for _, d := range l.diagnostics {
		if d.Severity == Error {
			l.hasErrors = true
		}
	}
}

// Remap rewrites every line number with fn.
func (l *List) Remap(fn func(line int) int) {
	for i := range l.diagnostics {
		if l.diagnostics[i].Line > 0 {
			l.diagnostics[i].Line = fn(l.diagnostics[i].Line)
		}
	}
}

// Format formats all diagnostics as a human-readable string, quoting the
// offending line of source when it is available.
func Format(diagnostics []Diagnostic, source string) string {
	if len(diagnostics) == 0 {
		return ""
	}

	lines := strings.Split(source, "\n")
	var sb strings.Builder
	for i := range diagnostics {
		sb.WriteString(FormatDiagnostic(&diagnostics[i], lines))
	}
	return sb.String()
}

// FormatDiagnostic formats a single diagnostic with source context.
func FormatDiagnostic(d *Diagnostic, lines []string) string {
	var sb strings.Builder

	if d.Line > 0 {
		sb.WriteString(fmt.Sprintf("%d: %s: %s: %s\n", d.Line, d.Severity, d.Kind, d.Message))
	} else {
		sb.WriteString(fmt.Sprintf("%s: %s: %s\n", d.Severity, d.Kind, d.Message))
	}

	if d.Line >= 1 && d.Line <= len(lines) {
		src := strings.TrimRight(lines[d.Line-1], "\r")
		if strings.TrimSpace(src) != "" {
			sb.WriteString(fmt.Sprintf("    %s\n", src))
			indent := len(src) - len(strings.TrimLeft(src, " \t"))
			sb.WriteString("    " + src[:indent] + "^\n")
		}
	}

	return sb.String()
}
