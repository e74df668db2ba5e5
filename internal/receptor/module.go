package receptor

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/alex-galey/docking-mcp/internal/runner"
	"github.com/alex-galey/docking-mcp/internal/toolchain"
	"github.com/alex-galey/docking-mcp/pkg/config"
)

var Module = fx.Module("receptor",
	fx.Provide(
		NewConverter,
		NewPreparerFromConfig,
	),
)

func NewConverter(resolver *toolchain.Resolver, r runner.Runner) Converter {
	return NewOpenBabel(resolver, r)
}

func NewPreparerFromConfig(cfg config.DockingConfig, converter Converter, logger *slog.Logger) *Preparer {
	return NewPreparer(converter, logger, Options{
		Padding:        cfg.Padding,
		Exhaustiveness: cfg.Exhaustiveness,
		NumModes:       cfg.NumModes,
		EnergyRange:    cfg.EnergyRange,
	})
}
