package receptor

import (
	"log/slog"

	"github.com/alex-galey/docking-mcp/internal/receptor"
	serverDomain "github.com/alex-galey/docking-mcp/internal/server-plugin/domain"
	"github.com/alex-galey/docking-mcp/pkg/config"
	"go.uber.org/fx"
)

var Module = fx.Module("receptor_plugin",
	fx.Provide(
		fx.Annotate(
			func(cfg *config.ServerConfig, preparer *receptor.Preparer, logger *slog.Logger) *ReceptorServerPlugin {
				return NewReceptorServerPlugin(preparer, cfg.WorkDir, logger)
			},
			fx.As(new(serverDomain.ServerPlugin)),
			fx.ResultTags(`group:"server_plugins"`),
		),
	),
)
