package pipeline_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/alex-galey/docking-mcp/internal/receptor"
	"github.com/alex-galey/docking-mcp/internal/runner"
	"github.com/alex-galey/docking-mcp/internal/structure"
	"github.com/alex-galey/docking-mcp/internal/toolchain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeTools struct {
	mu       sync.Mutex
	catalog  *toolchain.Catalog
	resolved map[string]string
	set      map[string]string
	verify   toolchain.Verification
}

func newFakeTools() *fakeTools {
	return &fakeTools{
		catalog:  toolchain.DefaultCatalog(),
		resolved: map[string]string{},
		set:      map[string]string{},
		verify:   toolchain.Verification{OK: true, Detail: "1.0"},
	}
}

func (f *fakeTools) Catalog() *toolchain.Catalog { return f.catalog }

func (f *fakeTools) Resolve(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.resolved[key]; ok {
		return p, nil
	}
	return "", &toolchain.NotFoundError{Key: key}
}

func (f *fakeTools) SetPath(key, path string) error {
	if _, err := os.Stat(path); err != nil {
		return &toolchain.InvalidPathError{Key: key, Path: path, Err: err}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.set[key] = path
	return nil
}

func (f *fakeTools) Verify(ctx context.Context, key string) (toolchain.Verification, error) {
	return f.verify, nil
}

type fakeReceptor struct {
	calls  [][2]string
	result *receptor.Result
	err    error
}

func (f *fakeReceptor) Prepare(ctx context.Context, structureFile, outputDir string) (*receptor.Result, error) {
	f.calls = append(f.calls, [2]string{structureFile, outputDir})
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &receptor.Result{
		ConvertedPath: outputDir + "/rec.pdbqt",
		ParamFilePath: outputDir + "/vina.conf",
		Center:        structure.Point3{X: 1, Y: 2, Z: 3},
		Size:          structure.Box3{X: 20, Y: 20, Z: 20},
		LigandAtoms:   12,
	}, nil
}

// scriptedRunner emits the configured lines then returns err. When gate is
// set it blocks until the gate is closed.
type scriptedRunner struct {
	mu       sync.Mutex
	commands []runner.Command
	stdout   []string
	stderr   []string
	err      error
	gate     chan struct{}
	started  chan struct{}
}

func (r *scriptedRunner) Run(ctx context.Context, cmd runner.Command) (*runner.Result, error) {
	r.mu.Lock()
	r.commands = append(r.commands, cmd)
	r.mu.Unlock()

	if r.started != nil {
		close(r.started)
	}
	if r.gate != nil {
		<-r.gate
	}
	if cmd.OnLine != nil {
		for _, line := range r.stdout {
			cmd.OnLine(runner.Stdout, line)
		}
		for _, line := range r.stderr {
			cmd.OnLine(runner.Stderr, line)
		}
	}
	return &runner.Result{}, r.err
}

func (r *scriptedRunner) Commands() []runner.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]runner.Command(nil), r.commands...)
}

type panickingReceptor struct{}

func (panickingReceptor) Prepare(ctx context.Context, structureFile, outputDir string) (*receptor.Result, error) {
	panic("boom")
}

// heldExecutor queues tasks until RunAll is called.
type heldExecutor struct {
	mu    sync.Mutex
	tasks []func()
}

func (h *heldExecutor) Submit(task func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.tasks = append(h.tasks, task)
}

func (h *heldExecutor) RunAll() {
	h.mu.Lock()
	tasks := h.tasks
	h.tasks = nil
	h.mu.Unlock()
	for _, task := range tasks {
		task()
	}
}
