// Package providers implements schema.CompletionPort over OpenAI-compatible
// HTTP endpoints, the Anthropic Messages API and the official openai-go SDK.
package providers

import (
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/crystaldolphin/toolagent/internal/schema"
)

var (
	_ schema.CompletionPort = (*OpenAIProvider)(nil)
	_ schema.CompletionPort = (*SDKProvider)(nil)
)

// providerError wraps err as a *schema.ProviderError unless it already is one.
func providerError(name string, status int, err error) error {
	var pe *schema.ProviderError
	if errors.As(err, &pe) {
		return err
	}
	return &schema.ProviderError{Provider: name, StatusCode: status, Err: err}
}

func newRequestID() string { return "call_" + uuid.NewString() }

// ensureUniqueIDs gives every request in reqs an id that is not empty, not
// used earlier in turns and not repeated within reqs. Some OpenAI-compatible
// servers omit ids or restart at call_0 on every response.
func ensureUniqueIDs(turns []schema.Turn, reqs []schema.ToolRequest) {
	if len(reqs) == 0 {
		return
	}
	seen := make(map[string]struct{})
	for _, t := range turns {
		for _, r := range t.ToolRequests {
			seen[r.ID] = struct{}{}
		}
	}
	for i := range reqs {
		if _, dup := seen[reqs[i].ID]; reqs[i].ID == "" || dup {
			id := newRequestID()
			slog.Debug("Reassigned tool request id", "name", reqs[i].Name, "from", reqs[i].ID, "to", id)
			reqs[i].ID = id
		}
		seen[reqs[i].ID] = struct{}{}
	}
}
