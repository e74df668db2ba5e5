package toolchain

import (
	"log/slog"
	"os"
	"path/filepath"

	"go.uber.org/fx"

	"github.com/alex-galey/docking-mcp/internal/runner"
	"github.com/alex-galey/docking-mcp/internal/shared/metrics"
	"github.com/alex-galey/docking-mcp/pkg/config"
)

var Module = fx.Module("toolchain",
	fx.Provide(
		DefaultCatalog,
		NewStoreFromConfig,
		NewResolverFromConfig,
	),
)

// ConfigFilePath places a relative tool configuration file inside the work
// directory, where the step scripts look for it.
func ConfigFilePath(cfg *config.ServerConfig) string {
	path := cfg.Tools.ConfigFile
	if !filepath.IsAbs(path) {
		path = filepath.Join(cfg.WorkDir, path)
	}
	return path
}

func NewStoreFromConfig(cfg *config.ServerConfig, logger *slog.Logger) Store {
	return NewFileStore(ConfigFilePath(cfg), logger)
}

func NewResolverFromConfig(cfg *config.ServerConfig, catalog *Catalog, store Store, r runner.Runner, logger *slog.Logger, collector metrics.Collector) *Resolver {
	return NewResolver(catalog, store, r, logger, collector, Options{
		SearchRoots:  cfg.Tools.SearchRoots,
		InstallDir:   installDir(),
		MaxDepth:     cfg.Tools.MaxDepth,
		ProbeTimeout: cfg.Tools.ProbeTimeout,
	})
}

func installDir() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	return filepath.Dir(exe)
}
