package pipeline

import (
	"context"
	"log/slog"
	"time"

	"go.uber.org/fx"

	"github.com/alex-galey/docking-mcp/internal/receptor"
	"github.com/alex-galey/docking-mcp/internal/runner"
	"github.com/alex-galey/docking-mcp/internal/shared/metrics"
	"github.com/alex-galey/docking-mcp/internal/toolchain"
	"github.com/alex-galey/docking-mcp/pkg/config"
)

const shutdownGrace = 10 * time.Second

var Module = fx.Module("pipeline",
	fx.Provide(NewControllerFromConfig),
)

type controllerParams struct {
	fx.In

	Config    *config.ServerConfig
	Resolver  *toolchain.Resolver
	Preparer  *receptor.Preparer
	Runner    runner.Runner
	Logger    *slog.Logger
	Metrics   metrics.Collector
	Lifecycle fx.Lifecycle
}

func NewControllerFromConfig(p controllerParams) *Controller {
	controller := NewController(Dependencies{
		Tools:    p.Resolver,
		Receptor: p.Preparer,
		Runner:   p.Runner,
		Logger:   p.Logger,
		Metrics:  p.Metrics,
		WorkDir:  p.Config.WorkDir,
		Commands: Commands{
			LigandConvert: p.Config.Steps.LigandConvert,
			FormatConvert: p.Config.Steps.FormatConvert,
			Docking:       p.Config.Steps.Docking,
		},
	})

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			controller.Close()
			if !controller.WaitIdle(shutdownGrace) {
				p.Logger.Warn("Pipeline executions still running at shutdown")
			}
			return nil
		},
	})
	return controller
}
