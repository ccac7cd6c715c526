package backend

import (
	"regexp"
	"strconv"
	"strings"
)

// LogEntry is one line of a driver log.
type LogEntry struct {
	Source  int // index of the source string, usually 0
	Line    int // 0 when the line carries no location
	Column  int // 0 when unknown
	Message string
	Raw     string
}

// Located reports whether the entry carries a line number.
func (e *LogEntry) Located() bool {
	return e.Line > 0
}

// Each pattern captures the prefix, the line number and the suffix of a log
// line, so the line can be rewritten in place.
var logPatterns = []*regexp.Regexp{
	// Mesa: "0:12(5): error: ..."
	regexp.MustCompile(`^(\s*(?:[A-Z]+:\s*)?(\d+):)(\d+)(\((\d+)\):\s*(.*))$`),
	// glslang and ANGLE: "ERROR: 0:12: ..."
	regexp.MustCompile(`^(\s*(?:[A-Z]+:\s*)?(\d+):)(\d+)(():\s*(.*))$`),
	// NVIDIA and Apple: "0(12) : error C0000: ..."
	regexp.MustCompile(`^(\s*(?:[A-Z]+:\s*)?(\d+)\()(\d+)(\)()\s*:\s*(.*))$`),
}

func matchLine(line string) []string {
	for _, re := range logPatterns {
		if m := re.FindStringSubmatch(line); m != nil {
			return m
		}
	}
	return nil
}

// ParseLog splits a driver log into entries. Blank lines are dropped and
// lines without a recognizable location are kept with Line 0.
func ParseLog(log string) []LogEntry {
	var entries []LogEntry
	for _, raw := range strings.Split(log, "\n") {
		raw = strings.TrimRight(raw, "\r")
		if strings.TrimSpace(raw) == "" {
			continue
		}
		entry := LogEntry{Raw: raw, Message: strings.TrimSpace(raw)}
		if m := matchLine(raw); m != nil {
			entry.Source, _ = strconv.Atoi(m[2])
			entry.Line, _ = strconv.Atoi(m[3])
			entry.Column, _ = strconv.Atoi(m[5])
			entry.Message = m[6]
		}
		entries = append(entries, entry)
	}
	return entries
}

// RewriteLog replaces the line number of every located log line with
// fn(line), leaving the rest of the text untouched.
func RewriteLog(log string, fn func(line int) int) string {
	lines := strings.Split(log, "\n")
	for i, raw := range lines {
		m := matchLine(strings.TrimRight(raw, "\r"))
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[3])
		if err != nil {
			continue
		}
		lines[i] = m[1] + strconv.Itoa(fn(n)) + m[4] + raw[len(strings.TrimRight(raw, "\r")):]
	}
	return strings.Join(lines, "\n")
}
