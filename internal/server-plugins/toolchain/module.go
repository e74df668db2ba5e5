package toolchain

import (
	serverDomain "github.com/alex-galey/docking-mcp/internal/server-plugin/domain"
	tc "github.com/alex-galey/docking-mcp/internal/toolchain"
	"go.uber.org/fx"
)

var Module = fx.Module("toolchain_plugin",
	fx.Provide(
		func(r *tc.Resolver) Resolver { return r },
		fx.Annotate(
			NewToolchainServerPlugin,
			fx.As(new(serverDomain.ServerPlugin)),
			fx.ResultTags(`group:"server_plugins"`),
		),
	),
	fx.Invoke(registerConfigWatcher),
)
