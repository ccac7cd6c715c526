package compiler

import (
	"fmt"

	"github.com/HugoDaniel/shadec/internal/diagnostic"
)

// Error is a failed compile. Lines refer to the original document.
type Error struct {
	Diagnostics []diagnostic.Diagnostic

	// Log is the remapped backend log for backend failures
	Log string
}

func newError(diags ...diagnostic.Diagnostic) *Error {
	return &Error{Diagnostics: diags}
}

func (e *Error) Error() string {
	if len(e.Diagnostics) == 0 {
		return "compile failed"
	}
	msg := e.Diagnostics[0].Error()
	if n := len(e.Diagnostics) - 1; n > 0 {
		msg = fmt.Sprintf("%s (and %d more)", msg, n)
	}
	return msg
}

// Report renders every diagnostic with the offending document line.
func (e *Error) Report(source string) string {
	return diagnostic.Format(e.Diagnostics, source)
}

// Kind returns the kind of the first diagnostic.
func (e *Error) Kind() diagnostic.Kind {
	if len(e.Diagnostics) == 0 {
		return diagnostic.KindStructural
	}
	return e.Diagnostics[0].Kind
}

func errorAt(kind diagnostic.Kind, line int, format string, args ...interface{}) *Error {
	return newError(diagnostic.Diagnostic{
		Severity: diagnostic.Error,
		Kind:     kind,
		Line:     line,
		Message:  fmt.Sprintf(format, args...),
	})
}

// remapped converts parser diagnostics to document lines.
func remapped(diags []diagnostic.Diagnostic, fn func(int) int) *Error {
	l := diagnostic.NewList()
	l.Append(diags)
	l.Remap(fn)
	return newError(l.Diagnostics()...)
}
