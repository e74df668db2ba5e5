package pipeline

import (
	"log/slog"

	"github.com/alex-galey/docking-mcp/internal/pipeline"
	serverDomain "github.com/alex-galey/docking-mcp/internal/server-plugin/domain"
	"github.com/alex-galey/docking-mcp/pkg/logger"
	"go.uber.org/fx"
)

var Module = fx.Module("pipeline_plugin",
	fx.Provide(
		fx.Annotate(
			func(controller *pipeline.Controller, buffer *logger.RingBuffer, log *slog.Logger) *PipelineServerPlugin {
				return NewPipelineServerPlugin(controller, buffer, log)
			},
			fx.As(new(serverDomain.ServerPlugin)),
			fx.ResultTags(`group:"server_plugins"`),
		),
	),
)
