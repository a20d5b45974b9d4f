package providers

import "strings"

// ModelOverride merges fixed request parameters for models whose bare name
// starts with Prefix.
type ModelOverride struct {
	Prefix    string         // case-insensitive, matched after any "provider/" segment
	Overrides map[string]any // merged into the request body
}

// ProviderSpec describes one chat completions backend.
type ProviderSpec struct {
	Name        string   // key under "providers" in the config file
	Keywords    []string // lowercase model-name fragments that select this backend
	EnvKey      string   // consulted when the config carries no API key
	DisplayName string   // shown by `toolagent status`

	// RoutePrefix is the model prefix a gateway or backend uses for routing.
	RoutePrefix string

	IsGateway           bool   // accepts any model name
	IsLocal             bool   // self-hosted, no API key required
	DetectByKeyPrefix   string // API key prefix that identifies a gateway
	DetectByBaseKeyword string // API base substring that identifies a gateway
	DefaultAPIBase      string

	// StripModelPrefix sends only the bare model name to a gateway.
	StripModelPrefix bool

	ModelOverrides []ModelOverride

	// SupportsPromptCaching enables cache_control breakpoints.
	SupportsPromptCaching bool
}

// Label returns the display name, defaulting to Name with a capital letter.
func (s ProviderSpec) Label() string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	return strings.ToTitle(s.Name[:1]) + s.Name[1:]
}

// Catalog lists the supported backends in match priority order.
var Catalog = []ProviderSpec{
	{
		Name:        "custom",
		DisplayName: "Custom",
	},
	{
		Name:                  "openrouter",
		Keywords:              []string{"openrouter"},
		EnvKey:                "OPENROUTER_API_KEY",
		DisplayName:           "OpenRouter",
		RoutePrefix:           "openrouter",
		IsGateway:             true,
		DetectByKeyPrefix:     "sk-or-",
		DetectByBaseKeyword:   "openrouter",
		DefaultAPIBase:        "https://openrouter.ai/api/v1",
		SupportsPromptCaching: true,
	},
	{
		Name:                "aihubmix",
		Keywords:            []string{"aihubmix"},
		EnvKey:              "AIHUBMIX_API_KEY",
		DisplayName:         "AiHubMix",
		RoutePrefix:         "openai",
		IsGateway:           true,
		DetectByBaseKeyword: "aihubmix",
		DefaultAPIBase:      "https://aihubmix.com/v1",
		StripModelPrefix:    true,
	},
	{
		Name:                  "anthropic",
		Keywords:              []string{"anthropic", "claude"},
		EnvKey:                "ANTHROPIC_API_KEY",
		DisplayName:           "Anthropic",
		SupportsPromptCaching: true,
	},
	{
		Name:        "openai",
		Keywords:    []string{"openai", "gpt"},
		EnvKey:      "OPENAI_API_KEY",
		DisplayName: "OpenAI",
		// Reasoning models reject any temperature other than 1.
		ModelOverrides: []ModelOverride{
			{Prefix: "o1", Overrides: map[string]any{"temperature": 1.0}},
			{Prefix: "o3", Overrides: map[string]any{"temperature": 1.0}},
			{Prefix: "o4", Overrides: map[string]any{"temperature": 1.0}},
		},
	},
	{
		Name:        "deepseek",
		Keywords:    []string{"deepseek"},
		EnvKey:      "DEEPSEEK_API_KEY",
		DisplayName: "DeepSeek",
		RoutePrefix: "deepseek",
	},
	{
		Name:        "groq",
		Keywords:    []string{"groq"},
		EnvKey:      "GROQ_API_KEY",
		DisplayName: "Groq",
		RoutePrefix: "groq",
	},
	{
		Name:        "vllm",
		Keywords:    []string{"vllm"},
		EnvKey:      "HOSTED_VLLM_API_KEY",
		DisplayName: "vLLM/Local",
		RoutePrefix: "hosted_vllm",
		IsLocal:     true,
	},
}

// FindByModel matches a direct backend by an explicit "name/" prefix, then by
// keyword. Gateways and local backends are never returned.
func FindByModel(model string) *ProviderSpec {
	modelLower := strings.ToLower(model)
	modelNorm := strings.ReplaceAll(modelLower, "-", "_")
	prefix, _, _ := strings.Cut(modelLower, "/")
	prefix = strings.ReplaceAll(prefix, "-", "_")

	var direct []*ProviderSpec
	for i := range Catalog {
		if !Catalog[i].IsGateway && !Catalog[i].IsLocal {
			direct = append(direct, &Catalog[i])
		}
	}

	for _, spec := range direct {
		if prefix != "" && prefix == spec.Name {
			return spec
		}
	}
	for _, spec := range direct {
		for _, kw := range spec.Keywords {
			if strings.Contains(modelLower, kw) || strings.Contains(modelNorm, strings.ReplaceAll(kw, "-", "_")) {
				return spec
			}
		}
	}
	return nil
}

// FindGateway returns the gateway or local backend named by providerName, or
// the first gateway whose key prefix or base keyword matches.
func FindGateway(providerName, apiKey, apiBase string) *ProviderSpec {
	if providerName != "" {
		if s := FindByName(providerName); s != nil && (s.IsGateway || s.IsLocal) {
			return s
		}
	}
	for i := range Catalog {
		spec := &Catalog[i]
		if spec.DetectByKeyPrefix != "" && strings.HasPrefix(apiKey, spec.DetectByKeyPrefix) {
			return spec
		}
		if spec.DetectByBaseKeyword != "" && strings.Contains(apiBase, spec.DetectByBaseKeyword) {
			return spec
		}
	}
	return nil
}

// FindByName returns the ProviderSpec whose Name equals name.
func FindByName(name string) *ProviderSpec {
	for i := range Catalog {
		if Catalog[i].Name == name {
			return &Catalog[i]
		}
	}
	return nil
}
