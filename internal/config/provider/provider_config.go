package provider

const (
	ProviderCustom     = "custom"
	ProviderOpenRouter = "openrouter"
	ProviderAiHubMix   = "aihubmix"
	ProviderAnthropic  = "anthropic"
	ProviderOpenAI     = "openai"
	ProviderDeepSeek   = "deepseek"
	ProviderGroq       = "groq"
	ProviderVLLM       = "vllm"
)

// ProviderConfig holds credentials for one LLM provider.
type ProviderConfig struct {
	APIKey       string            `json:"apiKey" yaml:"apiKey"`
	APIBase      string            `json:"apiBase,omitempty" yaml:"apiBase,omitempty"`
	ExtraHeaders map[string]string `json:"extraHeaders,omitempty" yaml:"extraHeaders,omitempty"`
}

// ProvidersConfig holds credentials for every supported provider.
type ProvidersConfig struct {
	Custom     ProviderConfig `json:"custom" yaml:"custom"`
	OpenRouter ProviderConfig `json:"openrouter" yaml:"openrouter"`
	AiHubMix   ProviderConfig `json:"aihubmix" yaml:"aihubmix"`
	Anthropic  ProviderConfig `json:"anthropic" yaml:"anthropic"`
	OpenAI     ProviderConfig `json:"openai" yaml:"openai"`
	DeepSeek   ProviderConfig `json:"deepseek" yaml:"deepseek"`
	Groq       ProviderConfig `json:"groq" yaml:"groq"`
	VLLM       ProviderConfig `json:"vllm" yaml:"vllm"`
}

func DefaultProvidersConfig() ProvidersConfig {
	return ProvidersConfig{}
}

// ByName returns a pointer to the ProviderConfig field matching the given
// catalog name. Returns nil if the name is unknown.
func (p *ProvidersConfig) ByName(name string) *ProviderConfig {
	switch name {
	case ProviderCustom:
		return &p.Custom
	case ProviderOpenRouter:
		return &p.OpenRouter
	case ProviderAiHubMix:
		return &p.AiHubMix
	case ProviderAnthropic:
		return &p.Anthropic
	case ProviderOpenAI:
		return &p.OpenAI
	case ProviderDeepSeek:
		return &p.DeepSeek
	case ProviderGroq:
		return &p.Groq
	case ProviderVLLM:
		return &p.VLLM
	}
	return nil
}
