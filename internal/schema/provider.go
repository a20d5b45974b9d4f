package schema

import "context"

// ChatOptions configures a single completion request.
type ChatOptions struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

func NewChatOptions(model string, maxTokens int, temperature float64) ChatOptions {
	return ChatOptions{
		Model:       model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}
}

// Usage is the token accounting reported by a provider.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// ProposedTurn is the normalised response from any completion provider.
type ProposedTurn struct {
	Content      *string // nil when the response contains only tool requests
	ToolRequests []ToolRequest
	FinishReason string
	Usage        Usage
}

// HasToolRequests reports whether the response asks for at least one tool.
func (p ProposedTurn) HasToolRequests() bool { return len(p.ToolRequests) > 0 }

// CompletionPort is the boundary to the language-model provider.
//
// Complete may block on network I/O. Failures are returned as *ProviderError.
type CompletionPort interface {
	Complete(ctx context.Context, turns []Turn, tools []ToolSchema, opts ChatOptions) (ProposedTurn, error)
	DefaultModel() string
}
