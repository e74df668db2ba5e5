package runner

import (
	"context"
	"time"
)

type Stream string

const (
	Stdout Stream = "stdout"
	Stderr Stream = "stderr"
)

// LineFunc receives every complete output line as it is produced.
type LineFunc func(stream Stream, line string)

type Command struct {
	Name    string
	Args    []string
	Dir     string
	Timeout time.Duration
	OnLine  LineFunc
}

type Result struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
	Duration time.Duration
}

// Runner executes external programs. Implementations return the Result
// together with an *ExternalToolFailure when the program exits non-zero.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}
