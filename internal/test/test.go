// Package test provides testing utilities for the shader compiler.
//
// This follows esbuild's testing patterns with helper functions
// for assertions, diffs, and common test patterns.
package test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/alecthomas/repr"
)

// AssertEqual checks if two values are equal and reports a test error if not.
func AssertEqual[T comparable](t *testing.T, actual, expected T) {
	t.Helper()
	if actual != expected {
		t.Errorf("\nexpected: %v\nactual:   %v", expected, actual)
	}
}

// AssertEqualWithDiff checks if two strings are equal and shows a diff if not.
func AssertEqualWithDiff(t *testing.T, actual, expected string) {
	t.Helper()
	if actual != expected {
		t.Errorf("\n%s", Diff(expected, actual))
	}
}

// AssertDeepEqual compares two values by their repr dump and shows a diff of
// the dumps if they differ.
func AssertDeepEqual(t *testing.T, actual, expected interface{}) {
	t.Helper()
	a := repr.String(actual, repr.Indent("  "))
	e := repr.String(expected, repr.Indent("  "))
	if a != e {
		t.Errorf("\n%s", Diff(e, a))
	}
}

// AssertContains checks that s contains substr.
func AssertContains(t *testing.T, s, substr string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Errorf("\nexpected to contain: %q\nactual: %q", substr, s)
	}
}

// AssertNotContains checks that s does not contain substr.
func AssertNotContains(t *testing.T, s, substr string) {
	t.Helper()
	if strings.Contains(s, substr) {
		t.Errorf("\nexpected not to contain: %q\nactual: %q", substr, s)
	}
}

// Diff produces a line-by-line diff between two strings.
// Shows context around differences with +/- prefixes.
func Diff(expected, actual string) string {
	expectedLines := strings.Split(expected, "\n")
	actualLines := strings.Split(actual, "\n")

	var result strings.Builder
	result.WriteString("--- expected\n+++ actual\n")

	maxLines := len(expectedLines)
	if len(actualLines) > maxLines {
		maxLines = len(actualLines)
	}

	for i := 0; i < maxLines; i++ {
		var expLine, actLine string
		if i < len(expectedLines) {
			expLine = expectedLines[i]
		}
		if i < len(actualLines) {
			actLine = actualLines[i]
		}

		if expLine == actLine {
			result.WriteString(fmt.Sprintf(" %s\n", expLine))
			continue
		}
		if i < len(expectedLines) {
			result.WriteString(fmt.Sprintf("-%s\n", expLine))
		}
		if i < len(actualLines) {
			result.WriteString(fmt.Sprintf("+%s\n", actLine))
		}
	}

	return result.String()
}
