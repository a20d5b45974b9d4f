package agent

// AgentDefaults are the settings every session starts from.
type AgentDefaults struct {
	Model          string  `json:"model" yaml:"model"`
	Provider       string  `json:"provider,omitempty" yaml:"provider,omitempty"` // catalog name or "openai_sdk"; empty means match by model
	MaxTokens      int     `json:"maxTokens" yaml:"maxTokens"`
	Temperature    float64 `json:"temperature" yaml:"temperature"`
	MaxToolIter    int     `json:"maxToolIterations" yaml:"maxToolIterations"`
	SystemPrompt   string  `json:"systemPrompt" yaml:"systemPrompt"`
	MaxReflections int     `json:"maxReflections,omitempty" yaml:"maxReflections,omitempty"` // critique passes per answer, 0 disables
}

type AgentsConfig struct {
	Defaults AgentDefaults `json:"defaults" yaml:"defaults"`
}

func defaultAgentDefaults() AgentDefaults {
	return AgentDefaults{
		Model:        "gpt-4o-mini",
		MaxTokens:    4096,
		Temperature:  0,
		MaxToolIter:  10,
		SystemPrompt: "You are a helpful assistant.",
	}
}

func DefaultAgentsConfig() AgentsConfig {
	return AgentsConfig{Defaults: defaultAgentDefaults()}
}
