package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/crystaldolphin/toolagent/internal/conversation"
	"github.com/crystaldolphin/toolagent/internal/schema"
	"github.com/crystaldolphin/toolagent/internal/shared/llmutils"
	"github.com/crystaldolphin/toolagent/internal/tools"
)

// ToolObserver is notified with every batch of tool requests before they are
// dispatched. It runs on the invoking goroutine.
type ToolObserver func(content *string, reqs []schema.ToolRequest)

// LoopRunner executes the model ↔ tool iteration loop for one session.
type LoopRunner struct {
	provider     schema.CompletionPort
	providerName string
	settings     schema.AgentSettings
	registry     *tools.Registry
	observer     ToolObserver
}

func newLoopRunner(provider schema.CompletionPort, settings schema.AgentSettings, registry *tools.Registry) LoopRunner {
	return LoopRunner{
		provider:     provider,
		providerName: providerName(provider),
		settings:     settings,
		registry:     registry,
	}
}

// run queries the model with the full log and answers every tool request it
// makes, until the model returns a turn without requests or MaxIter passes
// have been made. Every turn is appended to log as soon as it exists, so a
// failure leaves the log holding everything up to the failing step.
func (r *LoopRunner) run(ctx context.Context, log *conversation.Log) (schema.Turn, error) {
	schemas := r.registry.Schemas()
	opts := schema.NewChatOptions(r.settings.Model, r.settings.MaxTokens, r.settings.Temperature)

	for pass := 1; pass <= r.settings.MaxIter; pass++ {
		if err := ctx.Err(); err != nil {
			return schema.Turn{}, err
		}

		resp, err := r.provider.Complete(ctx, log.All(), schemas, opts)
		if err != nil {
			slog.Error("LLM error", "provider", r.providerName, "pass", pass, "err", err)
			return schema.Turn{}, r.providerError(err)
		}
		slog.Debug("Model pass",
			"pass", pass,
			"finish", resp.FinishReason,
			"toolRequests", len(resp.ToolRequests),
			"promptTokens", resp.Usage.PromptTokens,
			"completionTokens", resp.Usage.CompletionTokens,
		)

		turn := assistantTurn(resp)
		if err := log.Append(turn); err != nil {
			return schema.Turn{}, err
		}

		if !turn.HasToolRequests() {
			return turn, nil
		}

		if r.observer != nil {
			r.observer(turn.Content, turn.ToolRequests)
		}

		for _, req := range turn.ToolRequests {
			if err := ctx.Err(); err != nil {
				return schema.Turn{}, err
			}
			result := r.dispatch(ctx, req)
			if err := log.Append(schema.NewToolTurn(req.ID, req.Name, result)); err != nil {
				return schema.Turn{}, err
			}
		}
	}

	slog.Warn("Tool iteration limit reached", "limit", r.settings.MaxIter)
	return schema.Turn{}, &schema.RecursionLimitError{Limit: r.settings.MaxIter}
}

// dispatch runs one tool request and returns the content of its tool turn.
// Tool-level failures are reported to the model, never to the caller.
func (r *LoopRunner) dispatch(ctx context.Context, req schema.ToolRequest) string {
	slog.Info("Tool call", "name", req.Name, "args", llmutils.Truncate(req.ArgumentsJSON(), 200))

	t, ok := r.registry.Get(req.Name)
	if !ok {
		slog.Warn("Unknown tool requested", "name", req.Name)
		return fmt.Sprintf("Error: unknown tool: %s", req.Name)
	}

	if req.Arguments == nil && req.RawArguments != "" {
		err := &schema.ArgumentError{Tool: req.Name, Reason: "arguments are not a valid JSON object"}
		slog.Warn("Tool failed", "name", req.Name, "err", err)
		return "Error: " + err.Error()
	}

	result, err := t.Invoke(ctx, req.Arguments)
	if err != nil {
		slog.Warn("Tool failed", "name", req.Name, "err", err)
		return "Error: " + err.Error()
	}
	return result
}

func (r *LoopRunner) providerError(err error) error {
	var pe *schema.ProviderError
	if errors.As(err, &pe) {
		return err
	}
	return &schema.ProviderError{Provider: r.providerName, Err: err}
}

// assistantTurn converts a provider response into a log entry. A response
// with neither content nor requests becomes an empty final answer.
func assistantTurn(resp schema.ProposedTurn) schema.Turn {
	content := resp.Content
	if content == nil && len(resp.ToolRequests) == 0 {
		empty := ""
		content = &empty
	}
	return schema.NewAssistantTurn(content, resp.ToolRequests)
}

func providerName(p schema.CompletionPort) string {
	if n, ok := p.(interface{ Name() string }); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", p)
}
