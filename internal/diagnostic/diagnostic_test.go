package diagnostic

import (
	"testing"

	"github.com/HugoDaniel/shadec/internal/test"
)

func TestListBasics(t *testing.T) {
	l := NewList()
	l.AddWarning(KindStructural, 1, "no vertex entry point")
	test.AssertEqual(t, l.HasErrors(), false)

	l.AddErrorf(KindType, 4, "Cannot assign to '%s'.", "x")
	test.AssertEqual(t, l.HasErrors(), true)
	test.AssertEqual(t, l.Count(), 2)
	test.AssertEqual(t, len(l.Errors()), 1)
	test.AssertEqual(t, l.Errors()[0].Message, "Cannot assign to 'x'.")

	l.Truncate(1)
	test.AssertEqual(t, l.Count(), 1)
	test.AssertEqual(t, l.HasErrors(), false)
}

func TestRemap(t *testing.T) {
	l := NewList()
	l.AddError(KindSyntax, 3, "a")
	l.AddError(KindSyntax, 0, "b")
	l.Remap(func(line int) int { return line + 10 })

	d := l.Diagnostics()
	test.AssertEqual(t, d[0].Line, 13)
	test.AssertEqual(t, d[1].Line, 0)
}

func TestError(t *testing.T) {
	d := Diagnostic{Kind: KindScope, Line: 7, Message: "Undeclared identifier 'x'."}
	test.AssertEqual(t, d.Error(), "7: scope error: Undeclared identifier 'x'.")

	d = Diagnostic{Kind: KindStructural, Message: "Missing Pass block."}
	test.AssertEqual(t, d.Error(), "structure error: Missing Pass block.")
}

func TestFormat(t *testing.T) {
	source := "Shader {\n  Pass {\n    float x = y;\n  }\n}"
	diags := []Diagnostic{{Severity: Error, Kind: KindScope, Line: 3, Message: "Undeclared identifier 'y'."}}

	expected := "3: error: scope: Undeclared identifier 'y'.\n" +
		"        float x = y;\n" +
		"        ^\n"
	test.AssertEqualWithDiff(t, Format(diags, source), expected)
	test.AssertEqual(t, Format(nil, source), "")
}

func TestKindString(t *testing.T) {
	test.AssertEqual(t, KindBackend.String(), "backend")
	test.AssertEqual(t, Kind(99).String(), "unknown")
	test.AssertEqual(t, Warning.String(), "warning")
}
