// Package config defines the configuration schema for toolagent.
//
// Files are JSON by default; a .yaml or .yml extension selects YAML. Keys are
// camelCase in both formats.
package config

import (
	"github.com/crystaldolphin/toolagent/internal/config/agent"
	"github.com/crystaldolphin/toolagent/internal/config/provider"
	"github.com/crystaldolphin/toolagent/internal/config/tool"
	"github.com/crystaldolphin/toolagent/internal/schema"
)

// Config is the root configuration object, loaded from ~/.toolagent/config.json.
type Config struct {
	Agents    agent.AgentsConfig       `json:"agents" yaml:"agents"`
	Providers provider.ProvidersConfig `json:"providers" yaml:"providers"`
	Tools     tool.ToolsConfig         `json:"tools" yaml:"tools"`
}

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() Config {
	return Config{
		Agents:    agent.DefaultAgentsConfig(),
		Providers: provider.DefaultProvidersConfig(),
		Tools:     tool.DefaultToolConfigs(),
	}
}

// ProviderByName returns a pointer to the ProviderConfig field matching the
// given registry name (e.g. "openrouter", "anthropic"). Returns nil if unknown.
func (c *Config) ProviderByName(name string) *provider.ProviderConfig {
	return c.Providers.ByName(name)
}

// AgentSettings converts the agent defaults into loop settings.
func (c *Config) AgentSettings() schema.AgentSettings {
	d := c.Agents.Defaults
	return schema.NewAgentSettings(d.Model, d.MaxToolIter, d.Temperature, d.MaxTokens, d.SystemPrompt)
}
