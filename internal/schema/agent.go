package schema

import "context"

// DefaultMaxIter bounds the number of model passes in one Invoke call.
const DefaultMaxIter = 10

type AgentSettings struct {
	Model        string
	MaxIter      int
	Temperature  float64
	MaxTokens    int
	SystemPrompt string
}

func NewAgentSettings(model string, maxIter int, temperature float64, maxTokens int, systemPrompt string) AgentSettings {
	return AgentSettings{
		Model:        model,
		MaxIter:      maxIter,
		Temperature:  temperature,
		MaxTokens:    maxTokens,
		SystemPrompt: systemPrompt,
	}
}

// Invoker is the session surface consumed by the CLI.
type Invoker interface {
	// Invoke runs one user message through the tool loop and returns the
	// final assistant turn.
	Invoke(ctx context.Context, userText string) (Turn, error)
	// History returns an independent snapshot of the conversation.
	History() []Turn
	// Reset clears the conversation, keeping tools and settings.
	Reset()
}
