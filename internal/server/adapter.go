package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alex-galey/docking-mcp/internal/server-plugin/domain"
	"github.com/mark3labs/mcp-go/server"
)

// ServerPluginProvider is the part of the plugin registry the adapter reads.
type ServerPluginProvider interface {
	GetResourceProviders() []domain.ResourceProvider
	GetToolProviders() []domain.ToolProvider
	GetPromptProviders() []domain.PromptProvider
}

// MCPAdapter publishes plugin capabilities on the MCP server.
type MCPAdapter struct {
	provider  ServerPluginProvider
	mcpServer *server.MCPServer
	logger    *slog.Logger

	owners map[capabilityKey]string
}

type capabilityKey struct {
	kind domain.Kind
	name string
}

// pending is a validated capability waiting to be added to the server.
type pending struct {
	capabilityKey
	plugin string
	add    func()
}

func NewMCPAdapter(provider ServerPluginProvider, mcpServer *server.MCPServer, logger *slog.Logger) *MCPAdapter {
	return &MCPAdapter{
		provider:  provider,
		mcpServer: mcpServer,
		logger:    logger,
		owners:    make(map[capabilityKey]string),
	}
}

// RegisterAllServerPlugins validates every capability of every plugin and
// only then adds them to the MCP server. An invalid or duplicated
// capability aborts registration with nothing added.
func (a *MCPAdapter) RegisterAllServerPlugins(ctx context.Context) error {
	a.logger.Info("Registering all plugins with MCP server")

	var plan []pending
	owners := make(map[capabilityKey]string)
	claim := func(p pending, validate func() error) error {
		if err := validate(); err != nil {
			return fmt.Errorf("plugin %s: %w", p.plugin, err)
		}
		if owner, taken := owners[p.capabilityKey]; taken {
			return fmt.Errorf("%s %q from plugin %s already registered by %s", p.kind, p.name, p.plugin, owner)
		}
		owners[p.capabilityKey] = p.plugin
		plan = append(plan, p)
		return nil
	}

	for _, provider := range a.provider.GetResourceProviders() {
		resources, err := provider.GetResources(ctx)
		if err != nil {
			return fmt.Errorf("failed to list resources of %s: %w", provider.ID(), err)
		}
		for _, resource := range resources {
			p := pending{
				capabilityKey: capabilityKey{domain.KindResource, resource.URI},
				plugin:        provider.ID(),
				add:           func() { a.mcpServer.AddResource(resource.Definition(), resource.Handler) },
			}
			if err := claim(p, resource.Validate); err != nil {
				return err
			}
		}
	}

	for _, provider := range a.provider.GetToolProviders() {
		tools, err := provider.GetTools(ctx)
		if err != nil {
			return fmt.Errorf("failed to list tools of %s: %w", provider.ID(), err)
		}
		for _, tool := range tools {
			p := pending{
				capabilityKey: capabilityKey{domain.KindTool, tool.Name},
				plugin:        provider.ID(),
				add:           func() { a.mcpServer.AddTool(tool.Builder(), tool.Handler) },
			}
			if err := claim(p, tool.Validate); err != nil {
				return err
			}
		}
	}

	for _, provider := range a.provider.GetPromptProviders() {
		prompts, err := provider.GetPrompts(ctx)
		if err != nil {
			return fmt.Errorf("failed to list prompts of %s: %w", provider.ID(), err)
		}
		for _, prompt := range prompts {
			p := pending{
				capabilityKey: capabilityKey{domain.KindPrompt, prompt.Name},
				plugin:        provider.ID(),
				add:           func() { a.mcpServer.AddPrompt(prompt.Builder(), prompt.Handler) },
			}
			if err := claim(p, prompt.Validate); err != nil {
				return err
			}
		}
	}

	for _, p := range plan {
		p.add()
		a.owners[p.capabilityKey] = p.plugin
		a.logger.Debug("Capability registered",
			"plugin", p.plugin,
			"kind", p.kind,
			"name", p.name)
	}

	a.logger.Info("All plugins registered successfully", "capabilities", len(plan))
	return nil
}

// Owner returns the plugin that registered a capability.
func (a *MCPAdapter) Owner(kind domain.Kind, name string) (string, bool) {
	owner, ok := a.owners[capabilityKey{kind, name}]
	return owner, ok
}
