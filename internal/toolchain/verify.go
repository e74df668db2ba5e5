package toolchain

import (
	"context"
	"errors"

	"github.com/alex-galey/docking-mcp/internal/runner"
)

const versionDetailLimit = 100

// Verify runs "<path> --version" with the probe timeout. Failing to run the
// program is reported in the Verification, never as an error; only unknown
// keys and store failures return one.
func (r *Resolver) Verify(ctx context.Context, key string) (Verification, error) {
	if _, ok := r.catalog.Get(key); !ok {
		return Verification{}, &UnknownToolError{Key: key}
	}

	path, err := r.Path(key)
	if err != nil {
		return Verification{}, err
	}
	if !isRegularFile(path) {
		return Verification{OK: false, Detail: "file does not exist"}, nil
	}

	result, err := r.runner.Run(ctx, runner.Command{
		Name:    path,
		Args:    []string{"--version"},
		Timeout: r.probeTimeout,
	})
	if err != nil {
		var failure *runner.ExternalToolFailure
		// A program that ran and exited non-zero still counts as present.
		if !errors.As(err, &failure) || errors.Is(failure.Err, context.DeadlineExceeded) || errors.Is(failure.Err, context.Canceled) {
			r.logger.Warn("Tool verification failed",
				"tool", key,
				"path", path,
				"error", err)
			return Verification{OK: false, Detail: "cannot execute"}, nil
		}
	}

	detail := ""
	if result != nil {
		detail = truncate(string(result.Stdout), versionDetailLimit)
	}
	return Verification{OK: true, Detail: detail}, nil
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
