package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Outcome is the terminal result of one execution.
type Outcome struct {
	Step       Step          `json:"step"`
	Success    bool          `json:"success"`
	Err        error         `json:"-"`
	Error      string        `json:"error,omitempty"`
	Lines      []string      `json:"lines"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration"`
}

// ProgressFunc receives each progress line as the step produces it.
type ProgressFunc func(line string)

type ExecuteOption func(*Execution)

func WithProgress(fn ProgressFunc) ExecuteOption {
	return func(e *Execution) { e.progress = fn }
}

// Execution tracks one asynchronous run of a step.
type Execution struct {
	ID        string
	Step      Step
	StartedAt time.Time

	mu       sync.RWMutex
	lines    []string
	outcome  Outcome
	finished bool
	done     chan struct{}
	progress ProgressFunc
}

func newExecution(step Step, opts ...ExecuteOption) *Execution {
	e := &Execution{
		ID:        uuid.New().String(),
		Step:      step,
		StartedAt: time.Now(),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Done is closed once the outcome is available.
func (e *Execution) Done() <-chan struct{} {
	return e.done
}

// Wait blocks until the execution finishes and returns its outcome.
func (e *Execution) Wait() Outcome {
	<-e.done
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.outcome
}

// Outcome returns the outcome without blocking; ok is false while running.
func (e *Execution) Outcome() (Outcome, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.outcome, e.finished
}

// Lines returns the progress lines produced so far.
func (e *Execution) Lines() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, len(e.lines))
	copy(out, e.lines)
	return out
}

func (e *Execution) Running() bool {
	select {
	case <-e.done:
		return false
	default:
		return true
	}
}

func (e *Execution) log(line string) {
	e.mu.Lock()
	e.lines = append(e.lines, line)
	progress := e.progress
	e.mu.Unlock()

	if progress != nil {
		e.notify(progress, line)
	}
}

// notify stops reporting to a progress callback once it panics.
func (e *Execution) notify(progress ProgressFunc, line string) {
	defer func() {
		if recover() != nil {
			e.mu.Lock()
			e.progress = nil
			e.mu.Unlock()
		}
	}()
	progress(line)
}

func (e *Execution) finish(err error) Outcome {
	now := time.Now()

	e.mu.Lock()
	e.outcome = Outcome{
		Step:       e.Step,
		Success:    err == nil,
		Err:        err,
		Lines:      append([]string(nil), e.lines...),
		StartedAt:  e.StartedAt,
		FinishedAt: now,
		Duration:   now.Sub(e.StartedAt),
	}
	if err != nil {
		e.outcome.Error = err.Error()
	}
	e.finished = true
	outcome := e.outcome
	e.mu.Unlock()

	return outcome
}

// close publishes the outcome. An execution that stopped before finishing
// is reported as failed.
func (e *Execution) close() {
	e.mu.RLock()
	finished := e.finished
	e.mu.RUnlock()
	if !finished {
		e.finish(errExecutionAborted)
	}
	close(e.done)
}
