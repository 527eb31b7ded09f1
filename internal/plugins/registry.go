// Package plugins provides a registry of language model providers.
package plugins

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"

	"github.com/projectcapital/capital/pkg/api"
)

// ProviderPlugin defines the interface for language model provider plugins.
type ProviderPlugin interface {
	// Name returns the plugin name (e.g., "gemini", "openai").
	Name() string
	// Description returns a human-readable description.
	Description() string
	// ConfigSchema returns a JSON schema describing the plugin's configuration.
	ConfigSchema() map[string]any
	// NewGenerator creates a text generator with the given config.
	NewGenerator(httpClient *http.Client, config json.RawMessage, logger *slog.Logger) (api.TextGenerator, error)
}

// Registry manages available provider plugins.
type Registry struct {
	providers map[string]ProviderPlugin
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]ProviderPlugin)}
}

// Register registers a provider plugin.
func (r *Registry) Register(plugin ProviderPlugin) error {
	name := plugin.Name()
	if _, exists := r.providers[name]; exists {
		return fmt.Errorf("provider plugin %q already registered", name)
	}
	r.providers[name] = plugin
	return nil
}

// Get returns a provider plugin by name.
func (r *Registry) Get(name string) (ProviderPlugin, error) {
	plugin, exists := r.providers[name]
	if !exists {
		return nil, fmt.Errorf("provider plugin %q not found", name)
	}
	return plugin, nil
}

// List returns all registered provider plugins sorted by name.
func (r *Registry) List() []ProviderPlugin {
	plugins := make([]ProviderPlugin, 0, len(r.providers))
	for _, plugin := range r.providers {
		plugins = append(plugins, plugin)
	}
	sort.Slice(plugins, func(i, j int) bool { return plugins[i].Name() < plugins[j].Name() })
	return plugins
}

// Create creates a text generator from a plugin.
func (r *Registry) Create(name string, httpClient *http.Client, config json.RawMessage, logger *slog.Logger) (api.TextGenerator, error) {
	plugin, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	if len(config) == 0 {
		config = json.RawMessage("{}")
	}
	return plugin.NewGenerator(httpClient, config, logger)
}
