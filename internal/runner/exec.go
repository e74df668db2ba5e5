package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/alex-galey/docking-mcp/internal/shared/metrics"
)

var tracer = otel.Tracer("github.com/alex-galey/docking-mcp/internal/runner")

type ExecRunner struct {
	logger  *slog.Logger
	metrics metrics.Collector
}

func NewExecRunner(logger *slog.Logger, collector metrics.Collector) *ExecRunner {
	if collector == nil {
		collector = metrics.NewNoOpCollector()
	}
	return &ExecRunner{logger: logger, metrics: collector}
}

func (r *ExecRunner) Run(ctx context.Context, c Command) (result *Result, err error) {
	if strings.TrimSpace(c.Name) == "" {
		return nil, fmt.Errorf("command name cannot be empty")
	}

	ctx, span := tracer.Start(ctx, "runner.exec", trace.WithAttributes(
		attribute.String("process.executable.name", filepath.Base(c.Name)),
		attribute.Int("process.args_count", len(c.Args)),
	))
	defer func() {
		if result != nil {
			span.SetAttributes(attribute.Int("process.exit.code", result.ExitCode))
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	// A zero timeout leaves the command bounded only by ctx.
	cmdCtx, cancel := ctx, context.CancelFunc(func() {})
	if c.Timeout > 0 {
		cmdCtx, cancel = context.WithTimeout(ctx, c.Timeout)
	}
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Stdin = nil
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	var mu sync.Mutex
	outWriter := newLineWriter(&stdout, Stdout, c.OnLine, &mu)
	errWriter := newLineWriter(&stderr, Stderr, c.OnLine, &mu)
	cmd.Stdout = outWriter
	cmd.Stderr = errWriter

	r.logger.Debug("Executing external command",
		"command", c.Name,
		"args", c.Args,
		"dir", c.Dir,
		"timeout", c.Timeout)

	start := time.Now()
	err = cmd.Run()
	outWriter.flush()
	errWriter.flush()

	result = &Result{
		ExitCode: 0,
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}

	if err == nil {
		r.metrics.RecordExternalCommand(ctx, c.Name, result.Duration, true)
		r.logger.Debug("External command completed",
			"command", c.Name,
			"duration", result.Duration,
			"stdout_length", stdout.Len())
		return result, nil
	}

	r.metrics.RecordExternalCommand(ctx, c.Name, result.Duration, false)

	var exitError *exec.ExitError
	if errors.As(err, &exitError) {
		result.ExitCode = exitError.ExitCode()
		if cmdCtx.Err() != nil {
			err = cmdCtx.Err()
		}
		r.logger.Error("External command failed",
			"command", c.Name,
			"args", c.Args,
			"exit_code", result.ExitCode,
			"context_error", cmdCtx.Err(),
			"stderr", stderr.String())
		return result, &ExternalToolFailure{
			Command:  c.Name,
			ExitCode: result.ExitCode,
			Stderr:   stderr.String(),
			Err:      err,
		}
	}

	r.logger.Error("Failed to start external command",
		"command", c.Name,
		"error", err)
	return nil, &StartError{Command: c.Name, Err: err}
}

// lineWriter tees output into a buffer and reports complete lines.
type lineWriter struct {
	buf     *bytes.Buffer
	stream  Stream
	onLine  LineFunc
	mu      *sync.Mutex
	pending []byte
}

func newLineWriter(buf *bytes.Buffer, stream Stream, onLine LineFunc, mu *sync.Mutex) *lineWriter {
	return &lineWriter{buf: buf, stream: stream, onLine: onLine, mu: mu}
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Write(p)
	if w.onLine == nil {
		return len(p), nil
	}

	w.pending = append(w.pending, p...)
	for {
		i := bytes.IndexByte(w.pending, '\n')
		if i < 0 {
			break
		}
		w.emit(w.pending[:i])
		w.pending = w.pending[i+1:]
	}
	return len(p), nil
}

func (w *lineWriter) flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.onLine != nil && len(w.pending) > 0 {
		w.emit(w.pending)
		w.pending = nil
	}
}

func (w *lineWriter) emit(line []byte) {
	text := strings.TrimRight(string(line), "\r")
	if strings.TrimSpace(text) == "" {
		return
	}
	w.onLine(w.stream, text)
}
