package plugins

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"go.uber.org/fx"

	"github.com/alex-galey/docking-mcp/internal/server-plugin/domain"
)

// ServerPluginRegistry holds the server plugins contributed to the
// "server_plugins" group, in ID order.
type ServerPluginRegistry struct {
	plugins map[string]domain.ServerPlugin
	logger  *slog.Logger
	mu      sync.RWMutex
}

type ServerPluginRegistryParams struct {
	fx.In
	Logger        *slog.Logger
	ServerPlugins []domain.ServerPlugin `group:"server_plugins"`
}

// NewServerPluginRegistry creates a registry pre-populated with the grouped plugins
func NewServerPluginRegistry(params ServerPluginRegistryParams) (*ServerPluginRegistry, error) {
	r := &ServerPluginRegistry{
		plugins: make(map[string]domain.ServerPlugin),
		logger:  params.Logger,
	}
	for _, plugin := range params.ServerPlugins {
		if err := r.Register(plugin); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a server plugin; IDs must be unique
func (r *ServerPluginRegistry) Register(plugin domain.ServerPlugin) error {
	if plugin == nil {
		return fmt.Errorf("server plugin cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.plugins[plugin.ID()]; exists {
		return fmt.Errorf("server plugin already registered: %s", plugin.ID())
	}
	r.plugins[plugin.ID()] = plugin

	if r.logger != nil {
		r.logger.Debug("ServerPlugin registered with registry",
			"plugin", plugin.ID(),
			"name", plugin.Name(),
			"version", plugin.Version())
	}
	return nil
}

// GetServerPlugins returns every registered plugin sorted by ID
func (r *ServerPluginRegistry) GetServerPlugins() []domain.ServerPlugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.plugins))
	for id := range r.plugins {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]domain.ServerPlugin, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.plugins[id])
	}
	return out
}

// GetServerPlugin looks up a plugin by ID
func (r *ServerPluginRegistry) GetServerPlugin(id string) (domain.ServerPlugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	plugin, ok := r.plugins[id]
	return plugin, ok
}

// GetResourceProviders returns all plugins that provide resources
func (r *ServerPluginRegistry) GetResourceProviders() []domain.ResourceProvider {
	var providers []domain.ResourceProvider
	for _, plugin := range r.GetServerPlugins() {
		if provider, ok := plugin.(domain.ResourceProvider); ok {
			providers = append(providers, provider)
		}
	}
	return providers
}

// GetToolProviders returns all plugins that provide tools
func (r *ServerPluginRegistry) GetToolProviders() []domain.ToolProvider {
	var providers []domain.ToolProvider
	for _, plugin := range r.GetServerPlugins() {
		if provider, ok := plugin.(domain.ToolProvider); ok {
			providers = append(providers, provider)
		}
	}
	return providers
}

// GetPromptProviders returns all plugins that provide prompts
func (r *ServerPluginRegistry) GetPromptProviders() []domain.PromptProvider {
	var providers []domain.PromptProvider
	for _, plugin := range r.GetServerPlugins() {
		if provider, ok := plugin.(domain.PromptProvider); ok {
			providers = append(providers, provider)
		}
	}
	return providers
}
