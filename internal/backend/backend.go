// Package backend defines the boundary between the compiler and the GPU
// driver that compiles the generated GLSL.
//
// The compiler never talks to a driver directly. It hands each pass to a
// GraphicsBackend and gets back either an opaque program handle or a
// CompileError carrying the driver's textual log. Line numbers in that log
// refer to the generated source and are rewritten by the caller.
package backend

import (
	"context"
	"fmt"
)

// Stage identifies the shader stage a log belongs to.
type Stage uint8

const (
	StageVertex Stage = iota
	StageFragment
	StageLink
)

var stageNames = [...]string{
	StageVertex:   "vertex",
	StageFragment: "fragment",
	StageLink:     "link",
}

func (s Stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return "unknown"
}

// Program is an opaque handle to a compiled and linked program.
type Program interface{}

// GraphicsBackend compiles one pass worth of generated GLSL.
type GraphicsBackend interface {
	CompileProgram(ctx context.Context, vertexSource, fragmentSource string) (Program, error)
}

// CompileError is returned by a backend that rejected a stage.
type CompileError struct {
	Stage Stage
	Log   string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s stage failed to compile:\n%s", e.Stage, e.Log)
}
