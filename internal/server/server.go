package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/alex-galey/docking-mcp/internal/shared/metrics"
	"github.com/alex-galey/docking-mcp/pkg/config"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/fx"
)

const shutdownTimeout = 30 * time.Second

// NewHTTPHandler mounts the SSE transport behind the CORS middleware and,
// when the collector exposes one, the Prometheus endpoint on /metrics.
func NewHTTPHandler(cfg *config.ServerConfig, mcpServer *server.MCPServer, collector metrics.Collector) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", CORSMiddleware(&cfg.Transport.CORS)(server.NewSSEServer(mcpServer)))
	if collector != nil {
		if h := collector.Handler(); h != nil {
			mux.Handle("/metrics", h)
		}
	}
	return mux
}

// registerServerHooks uses fx.Hook to manage the server's lifecycle.
func registerServerHooks(lc fx.Lifecycle, cfg *config.ServerConfig, mcpServer *server.MCPServer, adapter *MCPAdapter, collector metrics.Collector, logger *slog.Logger) {
	var httpServer *http.Server

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("Registering all server plugins...")
			if err := adapter.RegisterAllServerPlugins(ctx); err != nil {
				return fmt.Errorf("failed to register server plugins: %w", err)
			}

			switch cfg.Transport.Type {
			case "sse":
				addr := net.JoinHostPort(cfg.Transport.Host, strconv.Itoa(cfg.Transport.Port))
				httpServer = &http.Server{
					Addr:              addr,
					Handler:           NewHTTPHandler(cfg, mcpServer, collector),
					ReadHeaderTimeout: 10 * time.Second,
				}
				go func() {
					logger.Info("SSE server listening", "address", addr)
					if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						logger.Error("SSE server failed", "error", err)
					}
				}()
			case "stdio":
				logger.Info("Starting MCP server with 'stdio' transport.")
				go func() {
					if err := server.ServeStdio(mcpServer); err != nil {
						logger.Error("Stdio server failed", "error", err)
					}
				}()
			default:
				return fmt.Errorf("unknown transport type: %s", cfg.Transport.Type)
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if httpServer == nil {
				logger.Info("Stdio server shutdown.")
				return nil
			}
			logger.Info("Shutting down SSE server gracefully...")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		},
	})
}
