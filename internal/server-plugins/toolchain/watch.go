package toolchain

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/fx"

	tc "github.com/alex-galey/docking-mcp/internal/toolchain"
	"github.com/alex-galey/docking-mcp/pkg/config"
)

const resourceUpdatedMethod = "notifications/resources/updated"

// registerConfigWatcher tells subscribed clients to re-read docking://tools
// whenever the tool configuration file changes on disk.
func registerConfigWatcher(lc fx.Lifecycle, cfg *config.ServerConfig, mcpServer *server.MCPServer, logger *slog.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	path := tc.ConfigFilePath(cfg)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				err := tc.WatchConfigFile(ctx, path, logger, func() {
					mcpServer.SendNotificationToAllClients(resourceUpdatedMethod, map[string]any{
						"uri": toolsResourceURI,
					})
				})
				if err != nil {
					logger.Warn("Tool configuration changes will not be announced",
						"path", path,
						"error", err)
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			return nil
		},
	})
}
