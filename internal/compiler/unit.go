package compiler

import (
	"strings"

	"github.com/HugoDaniel/shadec/internal/structure"
)

// unitBuilder assembles the text handed to the parser for one pass: a
// prefix of generated lines followed by the pass body. It remembers the
// document line behind every line of that text.
type unitBuilder struct {
	lines  []string
	origin []int
}

// prefix adds one generated line. Empty text is skipped.
func (u *unitBuilder) prefix(text string, docLine int) {
	if text == "" {
		return
	}
	u.lines = append(u.lines, text)
	u.origin = append(u.origin, docLine)
}

// unit is the parser input for one pass.
type unit struct {
	source string
	origin []int // document line per 1-based unit line, at index line-1
}

func (u *unitBuilder) build(block *structure.Block) *unit {
	var sb strings.Builder
	origin := append([]int(nil), u.origin...)
	for _, l := range u.lines {
		sb.WriteString(l)
		sb.WriteByte('\n')
	}
	sb.WriteString(block.Source)
	n := strings.Count(block.Source, "\n") + 1
	for i := 1; i <= n; i++ {
		origin = append(origin, block.DocumentLine(i))
	}
	return &unit{source: sb.String(), origin: origin}
}

// docLine maps a 1-based unit line to the document, or 0.
func (u *unit) docLine(line int) int {
	if line >= 1 && line <= len(u.origin) {
		return u.origin[line-1]
	}
	return 0
}

// bodyStart returns the first unit line that belongs to the pass body.
func (u *unitBuilder) bodyStart() int {
	return len(u.lines) + 1
}
