package backend

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"

	"github.com/ztrue/tracerr"
)

// DefaultValidator is the reference compiler used by Validator.
const DefaultValidator = "glslangValidator"

// Validator is a GraphicsBackend that runs an offline GLSL compiler on each
// stage. The program handle it returns is the pair of validated sources.
type Validator struct {
	// Path is the validator executable, DefaultValidator when empty.
	Path string
}

// Available reports whether the validator executable can be found.
func (v *Validator) Available() bool {
	_, err := exec.LookPath(v.path())
	return err == nil
}

func (v *Validator) path() string {
	if v.Path == "" {
		return DefaultValidator
	}
	return v.Path
}

func (v *Validator) CompileProgram(ctx context.Context, vertexSource, fragmentSource string) (Program, error) {
	if err := v.compile(ctx, StageVertex, "vert", vertexSource); err != nil {
		return nil, err
	}
	if err := v.compile(ctx, StageFragment, "frag", fragmentSource); err != nil {
		return nil, err
	}
	return [2]string{vertexSource, fragmentSource}, nil
}

func (v *Validator) compile(ctx context.Context, stage Stage, ext, source string) error {
	cmd := exec.CommandContext(ctx, v.path(), "--stdin", "-S", ext) //nolint:gosec // G204: path comes from configuration
	cmd.Stdin = strings.NewReader(source)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &CompileError{Stage: stage, Log: validatorLog(out.String())}
	}
	return tracerr.Wrap(err)
}

// validatorLog drops the banner lines glslang prints around the errors.
func validatorLog(log string) string {
	var kept []string
	for _, line := range strings.Split(log, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || trimmed == "stdin" || strings.HasSuffix(trimmed, "compilation errors.  No code generated.") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}
