package fxapp

import (
	"log"
	"os"

	"github.com/alex-galey/docking-mcp/internal/pipeline"
	"github.com/alex-galey/docking-mcp/internal/receptor"
	"github.com/alex-galey/docking-mcp/internal/runner"
	"github.com/alex-galey/docking-mcp/internal/server"
	pipelineplugin "github.com/alex-galey/docking-mcp/internal/server-plugins/pipeline"
	receptorplugin "github.com/alex-galey/docking-mcp/internal/server-plugins/receptor"
	toolchainplugin "github.com/alex-galey/docking-mcp/internal/server-plugins/toolchain"
	"github.com/alex-galey/docking-mcp/internal/shared/metrics"
	"github.com/alex-galey/docking-mcp/internal/toolchain"
	"github.com/alex-galey/docking-mcp/pkg/config"
	"github.com/alex-galey/docking-mcp/pkg/logger"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

// ConfigFileEnv names an explicit configuration file for the server binary.
const ConfigFileEnv = "DOCKING_MCP_CONFIG_FILE"

// Core wires the docking workflow without any MCP transport. The CLI uses
// it directly.
func Core(cfg *config.ServerConfig) fx.Option {
	return fx.Options(
		fx.Supply(cfg),
		config.Module,
		logger.Module,
		metrics.Module,
		runner.Module,
		toolchain.Module,
		receptor.Module,
		pipeline.Module,
	)
}

// Server is Core plus the MCP server and its plugins.
func Server(cfg *config.ServerConfig) fx.Option {
	return fx.Options(
		Core(cfg),
		server.Module,
		toolchainplugin.Module,
		receptorplugin.Module,
		pipelineplugin.Module,
	)
}

func New() *fx.App {
	var (
		cfg *config.ServerConfig
		err error
	)
	if path := os.Getenv(ConfigFileEnv); path != "" {
		cfg, err = config.LoadConfigFile(path)
	} else {
		cfg, err = config.LoadConfig()
	}
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Default to a verbose logger for debug level
	var fxLogger fx.Option = fx.WithLogger(
		func() fxevent.Logger {
			return &fxevent.ConsoleLogger{W: log.Writer()}
		},
	)

	if cfg.LogLevel != "debug" {
		fxLogger = fx.NopLogger
	}

	return fx.New(
		fxLogger,
		Server(cfg),
	)
}
