package toolchain

import (
	"errors"
	"fmt"
)

// ErrToolNotFound is the sentinel error for tools no strategy could locate.
var ErrToolNotFound = errors.New("tool not found")

// NotFoundError indicates every resolution strategy failed for a tool.
type NotFoundError struct {
	Key        string
	Executable string
}

func (e *NotFoundError) Error() string {
	if e == nil {
		return ""
	}
	if e.Executable != "" {
		return fmt.Sprintf("%s: %s not found in cache, PATH or search roots", e.Key, e.Executable)
	}
	return fmt.Sprintf("%s: %v", e.Key, ErrToolNotFound)
}

func (e *NotFoundError) Unwrap() error { return ErrToolNotFound }

// IsNotFoundError returns true when err is (or wraps) a NotFoundError.
func IsNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return true
	}
	return errors.Is(err, ErrToolNotFound)
}

type UnknownToolError struct {
	Key string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool: %s", e.Key)
}

func IsUnknownToolError(err error) bool {
	var ut *UnknownToolError
	return errors.As(err, &ut)
}

// ErrNotRegularFile marks a tool path that exists but is not a file.
var ErrNotRegularFile = errors.New("not a regular file")

// InvalidPathError is returned by SetPath when the supplied path does not exist.
type InvalidPathError struct {
	Key  string
	Path string
	Err  error
}

func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("invalid path for %s: %s: %v", e.Key, e.Path, e.Err)
}

func (e *InvalidPathError) Unwrap() error { return e.Err }
