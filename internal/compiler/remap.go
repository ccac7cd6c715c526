package compiler

import (
	"github.com/HugoDaniel/shadec/internal/backend"
	"github.com/HugoDaniel/shadec/internal/printer"
)

// RemapLog rewrites the line numbers of a backend log for one generated
// stage to document lines. Lines that cannot be mapped are left as they
// are.
func RemapLog(log string, lines printer.LineMap) string {
	return backend.RewriteLog(log, func(line int) int {
		if doc := lines.Lookup(line); doc > 0 {
			return doc
		}
		return line
	})
}
