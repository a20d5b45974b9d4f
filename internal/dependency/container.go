// Package dependency wires core toolagent services using go.uber.org/dig.
package dependency

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/dig"

	"github.com/crystaldolphin/toolagent/internal/agent"
	"github.com/crystaldolphin/toolagent/internal/config"
	"github.com/crystaldolphin/toolagent/internal/providers"
	"github.com/crystaldolphin/toolagent/internal/schema"
	"github.com/crystaldolphin/toolagent/internal/tools"
	"github.com/crystaldolphin/toolagent/internal/tools/builtin"
)

// Container holds the resolved core service singletons.
// Callers use the typed getter methods; they never need to import dig directly.
type Container struct {
	cfg      *config.Config
	provider schema.CompletionPort
	registry *tools.Registry
	settings schema.AgentSettings
}

func (c *Container) Config() *config.Config          { return c.cfg }
func (c *Container) Provider() schema.CompletionPort { return c.provider }
func (c *Container) Registry() *tools.Registry       { return c.registry }
func (c *Container) Settings() schema.AgentSettings  { return c.settings }

// NewAgent builds a fresh session sharing the container's provider and tools.
// Reflection follows agents.defaults.maxReflections unless opts override it.
func (c *Container) NewAgent(opts ...agent.Option) (*agent.Agent, error) {
	opts = append([]agent.Option{agent.WithReflection(c.cfg.Agents.Defaults.MaxReflections)}, opts...)
	return agent.NewWithRegistry(c.provider, c.settings, c.registry, opts...)
}

// LLMModel is a named string type so dig can distinguish it from plain
// strings when injecting the effective model name.
type LLMModel string

// AgentRegistry wraps the tool registry shared by every session.
type AgentRegistry struct{ *tools.Registry }

// New builds and wires all core services from cfg.
func New(cfg *config.Config) (*Container, error) {
	return build(cfg, newProvider)
}

// NewWithProvider wires cfg around an already constructed completion port.
func NewWithProvider(cfg *config.Config, p schema.CompletionPort) (*Container, error) {
	return build(cfg, func() (schema.CompletionPort, error) { return p, nil })
}

func build(cfg *config.Config, providerCtor any) (*Container, error) {
	d := dig.New()

	if err := d.Provide(func() *config.Config { return cfg }); err != nil {
		return nil, err
	}
	if err := d.Provide(providerCtor); err != nil {
		return nil, err
	}
	if err := d.Provide(resolveLLMModel); err != nil {
		return nil, err
	}
	if err := d.Provide(newAgentSettings); err != nil {
		return nil, err
	}
	if err := d.Provide(newAgentRegistry); err != nil {
		return nil, err
	}

	var result *Container
	err := d.Invoke(func(
		provider schema.CompletionPort,
		settings schema.AgentSettings,
		reg AgentRegistry,
	) {
		result = &Container{
			cfg:      cfg,
			provider: provider,
			registry: reg.Registry,
			settings: settings,
		}
	})
	if err != nil {
		return nil, dig.RootCause(err)
	}
	return result, nil
}

func newProvider(cfg *config.Config) (schema.CompletionPort, error) {
	params := cfg.ProviderParams()
	if params.APIKey == "" && !isLocal(params.ProviderName, params.APIBase) {
		return nil, &schema.ConfigurationError{
			Msg: fmt.Sprintf("no API key configured for model %q; edit %s", params.DefaultModel, config.ConfigPath()),
		}
	}
	return providers.New(params)
}

// isLocal reports whether the provider can run without a key.
func isLocal(name, apiBase string) bool {
	if name == "custom" && apiBase != "" {
		return true
	}
	spec := providers.FindByName(name)
	return spec != nil && spec.IsLocal
}

func resolveLLMModel(cfg *config.Config, p schema.CompletionPort) LLMModel {
	m := cfg.Agents.Defaults.Model
	if m == "" && p != nil {
		m = p.DefaultModel()
	}
	return LLMModel(m)
}

func newAgentSettings(cfg *config.Config, m LLMModel) schema.AgentSettings {
	s := cfg.AgentSettings()
	s.Model = string(m)
	return s
}

func newAgentRegistry(cfg *config.Config) (AgentRegistry, error) {
	workDir := cfg.Tools.Exec.WorkingDir
	if workDir == "" {
		workDir, _ = os.Getwd()
	}

	registry, err := tools.NewRegistryBuilder().
		WithTools(builtin.Tools(builtin.Options{
			Exec:         cfg.Tools.Exec.Enabled,
			ExecTimeout:  time.Duration(cfg.Tools.Exec.Timeout) * time.Second,
			WorkingDir:   workDir,
			RestrictExec: cfg.Tools.RestrictToWorkspace,
			WebFetch:     cfg.Tools.Web.Enabled,
			WebMaxChars:  cfg.Tools.Web.MaxChars,
			Files:        cfg.Tools.Files.Enabled,
		})...).
		Build()
	if err != nil {
		return AgentRegistry{}, err
	}
	return AgentRegistry{registry}, nil
}
