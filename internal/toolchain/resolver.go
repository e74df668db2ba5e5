package toolchain

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/alex-galey/docking-mcp/internal/runner"
	"github.com/alex-galey/docking-mcp/internal/shared/metrics"
)

// Strategy names the resolution step that produced a path.
type Strategy string

const (
	StrategyCache Strategy = "cache"
	StrategyPath  Strategy = "path"
	StrategyWalk  Strategy = "walk"
	StrategyNone  Strategy = "none"
)

const DefaultProbeTimeout = 5 * time.Second

type Options struct {
	SearchRoots []string
	InstallDir  string
	// MaxDepth bounds the walk below each root. Zero means DefaultMaxDepth;
	// a negative value scans the roots themselves only.
	MaxDepth     int
	ProbeTimeout time.Duration
	// LookPath replaces exec.LookPath, mostly for tests.
	LookPath func(file string) (string, error)
}

// Detection is the per-tool result of ResolveAll.
type Detection struct {
	Spec     ToolSpec `json:"spec"`
	Found    bool     `json:"found"`
	Path     string   `json:"path,omitempty"`
	Strategy Strategy `json:"strategy"`
	Err      error    `json:"-"`
}

type Verification struct {
	OK     bool   `json:"ok"`
	Detail string `json:"detail"`
}

// Resolver maps tool keys to executable paths: cache, then PATH, then a
// bounded walk of the search roots. Successful discoveries are persisted.
type Resolver struct {
	catalog      *Catalog
	store        Store
	runner       runner.Runner
	logger       *slog.Logger
	metrics      metrics.Collector
	roots        []string
	maxDepth     int
	probeTimeout time.Duration
	lookPath     func(string) (string, error)

	// mu serializes read-modify-write cycles on the store within a process.
	mu sync.Mutex
}

func NewResolver(catalog *Catalog, store Store, r runner.Runner, logger *slog.Logger, collector metrics.Collector, opts Options) *Resolver {
	if collector == nil {
		collector = metrics.NewNoOpCollector()
	}

	roots := opts.SearchRoots
	if len(roots) == 0 {
		roots = DefaultSearchRoots()
	}
	if opts.InstallDir != "" {
		roots = append(append([]string{}, roots...), opts.InstallDir)
	}

	lookPath := opts.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}

	probe := opts.ProbeTimeout
	if probe <= 0 {
		probe = DefaultProbeTimeout
	}

	depth := opts.MaxDepth
	switch {
	case depth == 0:
		depth = DefaultMaxDepth
	case depth < 0:
		depth = 0
	}

	return &Resolver{
		catalog:      catalog,
		store:        store,
		runner:       r,
		logger:       logger,
		metrics:      collector,
		roots:        roots,
		maxDepth:     depth,
		probeTimeout: probe,
		lookPath:     lookPath,
	}
}

func (r *Resolver) Catalog() *Catalog { return r.catalog }

func (r *Resolver) SearchRoots() []string {
	return append([]string{}, r.roots...)
}

// Resolve returns the executable path for key or a *NotFoundError.
func (r *Resolver) Resolve(ctx context.Context, key string) (string, error) {
	path, _, err := r.resolve(ctx, key)
	return path, err
}

func (r *Resolver) resolve(ctx context.Context, key string) (string, Strategy, error) {
	spec, ok := r.catalog.Get(key)
	if !ok {
		return "", StrategyNone, &UnknownToolError{Key: key}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cached, err := r.store.Load()
	if err != nil {
		return "", StrategyNone, err
	}

	if path, ok := cached[key]; ok {
		if isRegularFile(path) {
			r.record(ctx, key, StrategyCache, true)
			return path, StrategyCache, nil
		}
		r.logger.Warn("Cached tool path no longer exists",
			"tool", key,
			"path", path)
	}

	if path, err := r.lookPath(spec.ExecutableName); err == nil && path != "" {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		return r.persist(ctx, cached, key, path, StrategyPath)
	}

	for _, root := range r.roots {
		if path, found := findInTree(ctx, root, spec.ExecutableName, r.maxDepth); found {
			return r.persist(ctx, cached, key, path, StrategyWalk)
		}
	}

	r.record(ctx, key, StrategyNone, false)
	r.logger.Warn("Tool not found",
		"tool", key,
		"executable", spec.ExecutableName,
		"search_roots", r.roots)
	return "", StrategyNone, &NotFoundError{Key: key, Executable: spec.ExecutableName}
}

func (r *Resolver) persist(ctx context.Context, cached map[string]string, key, path string, strategy Strategy) (string, Strategy, error) {
	cached[key] = path
	if err := r.store.Save(cached); err != nil {
		return "", strategy, fmt.Errorf("failed to persist path for %s: %w", key, err)
	}
	r.record(ctx, key, strategy, true)
	r.logger.Info("Tool resolved",
		"tool", key,
		"path", path,
		"strategy", string(strategy))
	return path, strategy, nil
}

func (r *Resolver) record(ctx context.Context, key string, strategy Strategy, found bool) {
	r.metrics.RecordToolResolution(ctx, key, string(strategy), found)
}

// ResolveAll resolves every catalog tool independently; one failure never
// prevents the others from being attempted.
func (r *Resolver) ResolveAll(ctx context.Context) map[string]Detection {
	results := make(map[string]Detection, r.catalog.Len())
	for _, spec := range r.catalog.Specs() {
		path, strategy, err := r.resolve(ctx, spec.Key)
		results[spec.Key] = Detection{
			Spec:     spec,
			Found:    err == nil,
			Path:     path,
			Strategy: strategy,
			Err:      err,
		}
	}
	return results
}

// SetPath records a user-supplied path. Nothing changes if the path does not exist.
func (r *Resolver) SetPath(key, path string) error {
	if _, ok := r.catalog.Get(key); !ok {
		return &UnknownToolError{Key: key}
	}
	if path == "" {
		return &InvalidPathError{Key: key, Path: path, Err: os.ErrNotExist}
	}
	info, err := os.Stat(path)
	if err != nil {
		return &InvalidPathError{Key: key, Path: path, Err: err}
	}
	if !info.Mode().IsRegular() {
		return &InvalidPathError{Key: key, Path: path, Err: ErrNotRegularFile}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cached, err := r.store.Load()
	if err != nil {
		return err
	}
	cached[key] = path
	if err := r.store.Save(cached); err != nil {
		return fmt.Errorf("failed to persist path for %s: %w", key, err)
	}

	r.logger.Info("Tool path set",
		"tool", key,
		"path", path)
	return nil
}

// Path returns the cached path for key without searching, or "" if none.
func (r *Resolver) Path(key string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cached, err := r.store.Load()
	if err != nil {
		return "", err
	}
	return cached[key], nil
}

// Paths returns a copy of every cached path.
func (r *Resolver) Paths() (map[string]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.Load()
}
