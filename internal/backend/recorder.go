package backend

import (
	"context"
	"sync"
)

// Submission is one program handed to a Recorder.
type Submission struct {
	VertexSource   string
	FragmentSource string
}

// Recorder is a GraphicsBackend that stores every submission and fails with
// preset logs. It is safe for concurrent use.
type Recorder struct {
	// Logs holds the log returned for a stage. A stage with a non-empty log
	// fails; vertex is checked before fragment, and link last.
	Logs map[Stage]string

	mu          sync.Mutex
	submissions []Submission
}

// NewRecorder returns a Recorder that accepts everything.
func NewRecorder() *Recorder {
	return &Recorder{Logs: map[Stage]string{}}
}

// Fail makes every later submission fail at stage with log.
func (r *Recorder) Fail(stage Stage, log string) *Recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Logs == nil {
		r.Logs = map[Stage]string{}
	}
	r.Logs[stage] = log
	return r
}

func (r *Recorder) CompileProgram(ctx context.Context, vertexSource, fragmentSource string) (Program, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.submissions = append(r.submissions, Submission{VertexSource: vertexSource, FragmentSource: fragmentSource})
	for _, stage := range []Stage{StageVertex, StageFragment, StageLink} {
		if log := r.Logs[stage]; log != "" {
			return nil, &CompileError{Stage: stage, Log: log}
		}
	}
	return len(r.submissions), nil
}

// Submissions returns a copy of everything compiled so far.
func (r *Recorder) Submissions() []Submission {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Submission(nil), r.submissions...)
}
