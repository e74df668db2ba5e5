package config

import "go.uber.org/fx"

// Module expects the full ServerConfig to be supplied by the application
// and provides the smaller configs for consumers.
var Module = fx.Module("config",
	fx.Provide(func(cfg *ServerConfig) TransportConfig { return cfg.Transport }),
	fx.Provide(func(cfg *ServerConfig) ToolsConfig { return cfg.Tools }),
	fx.Provide(func(cfg *ServerConfig) DockingConfig { return cfg.Docking }),
	fx.Provide(func(cfg *ServerConfig) StepsConfig { return cfg.Steps }),
)
