package runner

import (
	"errors"
	"fmt"
	"strings"
)

// ExternalToolFailure reports an external program that ran but did not succeed.
type ExternalToolFailure struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ExternalToolFailure) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("%s exited with code %d", e.Command, e.ExitCode)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ExternalToolFailure) Unwrap() error { return e.Err }

func IsExternalToolFailure(err error) bool {
	var f *ExternalToolFailure
	return errors.As(err, &f)
}

// StartError means the program could not be launched at all.
type StartError struct {
	Command string
	Err     error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("failed to start %s: %v", e.Command, e.Err)
}

func (e *StartError) Unwrap() error { return e.Err }
