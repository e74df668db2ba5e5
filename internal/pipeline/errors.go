package pipeline

import (
	"errors"
	"fmt"
)

// ErrNoLigands means the ligand file holds no descriptor lines.
var ErrNoLigands = errors.New("ligand file contains no descriptors")

var errExecutionAborted = errors.New("execution stopped before producing an outcome")

type MissingInputError struct {
	Step  Step
	Input string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("%s: input %q is not set", e.Step, e.Input)
}

// MissingArtifactError reports a file or directory a step needs that does
// not exist, usually because an earlier step has not run.
type MissingArtifactError struct {
	Step Step
	Path string
	Hint string
}

func (e *MissingArtifactError) Error() string {
	msg := fmt.Sprintf("%s: %s not found", e.Step, e.Path)
	if e.Hint != "" {
		msg += ", " + e.Hint
	}
	return msg
}

func IsMissingArtifact(err error) bool {
	var m *MissingArtifactError
	return errors.As(err, &m)
}

// StepPanicError wraps a panic recovered from a step action.
type StepPanicError struct {
	Step  Step
	Value any
}

func (e *StepPanicError) Error() string {
	return fmt.Sprintf("%s: panic: %v", e.Step, e.Value)
}
