package providers

import (
	"net/http"

	"github.com/crystaldolphin/toolagent/internal/schema"
)

// SDKProviderName selects the openai-go backed provider.
const SDKProviderName = sdkProviderName

// Params are the raw values needed to construct any schema.CompletionPort.
// Extracted from config.Config by the caller to avoid an import cycle.
type Params struct {
	APIKey       string
	APIBase      string
	ExtraHeaders map[string]string
	DefaultModel string
	ProviderName string // registry name, e.g. "openrouter", "anthropic", or "openai_sdk"
	HTTPClient   *http.Client
}

// New creates the appropriate schema.CompletionPort for the given params.
//
// Rules:
//   - openai_sdk → SDKProvider (official openai-go client)
//   - otherwise  → OpenAIProvider (direct HTTP, handles all OpenAI-compat providers
//     including Anthropic native API)
func New(p Params) (schema.CompletionPort, error) {
	if p.ProviderName == SDKProviderName || p.ProviderName == "openai-sdk" {
		return NewSDKProvider(p.APIKey, p.APIBase, p.DefaultModel, p.HTTPClient)
	}

	op := NewOpenAIProvider(p.APIKey, p.APIBase, p.DefaultModel, p.ProviderName, p.ExtraHeaders)
	if p.HTTPClient != nil {
		op.WithHTTPClient(p.HTTPClient)
	}
	return op, nil
}
