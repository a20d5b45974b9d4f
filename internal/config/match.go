package config

import (
	"os"
	"strings"

	"github.com/crystaldolphin/toolagent/internal/config/provider"
	"github.com/crystaldolphin/toolagent/internal/providers"
)

// MatchResult is the resolved LLM provider config and registry name for a model.
type MatchResult struct {
	Provider *provider.ProviderConfig
	Name     string // e.g. "openrouter", "anthropic"
	APIKey   string // config key, or the registry EnvKey value when the config has none
}

// lookupEnv is swapped in tests.
var lookupEnv = os.Getenv

// apiKey returns the configured key for spec, falling back to its env var.
func apiKey(spec providers.ProviderSpec, p *provider.ProviderConfig) string {
	if p != nil && p.APIKey != "" {
		return p.APIKey
	}
	if spec.EnvKey != "" {
		return lookupEnv(spec.EnvKey)
	}
	return ""
}

// MatchProvider resolves which provider config and registry entry to use for model.
// If model is empty, the default model from agents.defaults.model is used.
//
// Priority order:
//  0. agents.defaults.provider, when set
//  1. Explicit provider prefix in model string (e.g. "deepseek/deepseek-chat" → deepseek)
//  2. Keyword match in model name (registry order)
//  3. Fallback: first provider with a key, gateways first in registry order
func (c *Config) MatchProvider(model string) MatchResult {
	if model == "" {
		model = c.Agents.Defaults.Model
	}

	if forced := c.Agents.Defaults.Provider; forced != "" {
		name := forced
		if name == providers.SDKProviderName || name == "openai-sdk" {
			name = provider.ProviderOpenAI
		}
		if spec := providers.FindByName(name); spec != nil {
			p := c.ProviderByName(name)
			return MatchResult{Provider: p, Name: name, APIKey: apiKey(*spec, p)}
		}
	}

	modelLower := strings.ToLower(model)
	modelNorm := strings.ReplaceAll(modelLower, "-", "_")
	modelPrefix, _, _ := strings.Cut(modelLower, "/")
	normalizedPrefix := strings.ReplaceAll(modelPrefix, "-", "_")

	kwMatches := func(kw string) bool {
		kw = strings.ToLower(kw)
		kwNorm := strings.ReplaceAll(kw, "-", "_")
		return strings.Contains(modelLower, kw) || strings.Contains(modelNorm, kwNorm)
	}

	// 1. Explicit provider prefix wins.
	for _, spec := range providers.Catalog {
		p := c.ProviderByName(spec.Name)
		if p == nil || modelPrefix == "" || normalizedPrefix != spec.Name {
			continue
		}
		if key := apiKey(spec, p); key != "" {
			return MatchResult{Provider: p, Name: spec.Name, APIKey: key}
		}
	}

	// 2. Keyword match.
	for _, spec := range providers.Catalog {
		p := c.ProviderByName(spec.Name)
		if p == nil {
			continue
		}
		matched := false
		for _, kw := range spec.Keywords {
			if kwMatches(kw) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		if key := apiKey(spec, p); key != "" {
			return MatchResult{Provider: p, Name: spec.Name, APIKey: key}
		}
	}

	// 3. Fallback: first configured provider.
	for _, spec := range providers.Catalog {
		p := c.ProviderByName(spec.Name)
		if p == nil {
			continue
		}
		if key := apiKey(spec, p); key != "" {
			return MatchResult{Provider: p, Name: spec.Name, APIKey: key}
		}
	}

	return MatchResult{}
}

// GetProviderName returns the registry name of the matched provider (or "").
func (c *Config) GetProviderName(model string) string {
	return c.MatchProvider(model).Name
}

// GetAPIKey returns the API key for model (or "").
func (c *Config) GetAPIKey(model string) string {
	return c.MatchProvider(model).APIKey
}

// GetAPIBase resolves the effective API base URL for model.
// Precedence: user-configured apiBase > spec.DefaultAPIBase (gateways only).
func (c *Config) GetAPIBase(model string) string {
	result := c.MatchProvider(model)
	if result.Provider != nil && result.Provider.APIBase != "" {
		return result.Provider.APIBase
	}
	if result.Name != "" {
		spec := providers.FindByName(result.Name)
		if spec != nil && spec.IsGateway && spec.DefaultAPIBase != "" {
			return spec.DefaultAPIBase
		}
	}
	return ""
}

// ProviderParams builds the construction parameters for the completion port
// serving the default model.
func (c *Config) ProviderParams() providers.Params {
	model := c.Agents.Defaults.Model
	m := c.MatchProvider(model)
	params := providers.Params{
		APIKey:       m.APIKey,
		APIBase:      c.GetAPIBase(model),
		DefaultModel: model,
		ProviderName: m.Name,
	}
	if m.Provider != nil {
		params.ExtraHeaders = m.Provider.ExtraHeaders
	}
	if forced := c.Agents.Defaults.Provider; forced == providers.SDKProviderName || forced == "openai-sdk" {
		params.ProviderName = providers.SDKProviderName
	}
	return params
}
