package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/crystaldolphin/toolagent/internal/conversation"
	"github.com/crystaldolphin/toolagent/internal/schema"
	"github.com/crystaldolphin/toolagent/internal/shared/llmutils"
)

// MaxReflections caps the critique and refine passes run after an answer.
const MaxReflections = 3

const critiquePrompt = `Review the answer below to the question that follows it. Identify mistakes, gaps and unclear wording, then write an improved answer.
Reply with the improved answer only. If the answer needs no change, reply with it unchanged.

QUESTION:
%s

ANSWER:
%s`

// WithReflection makes the agent critique and refine every final answer up to
// n times before returning it. n is capped at MaxReflections; n <= 0 turns
// reflection off.
func WithReflection(n int) Option {
	return func(a *Agent) {
		a.reflections = min(max(n, 0), MaxReflections)
	}
}

// reflect runs the critique passes for question over answer. Each revision
// is appended to log as an assistant turn and becomes the answer for the
// next pass. Passes stop early when the model returns the answer unchanged,
// returns no text, or fails; the last good answer is returned either way.
func (r *LoopRunner) reflect(ctx context.Context, log *conversation.Log, question string, answer schema.Turn, n int) schema.Turn {
	opts := schema.NewChatOptions(r.settings.Model, r.settings.MaxTokens, r.settings.Temperature)

	for pass := 1; pass <= n; pass++ {
		if ctx.Err() != nil {
			return answer
		}

		turns := make([]schema.Turn, 0, 2)
		if r.settings.SystemPrompt != "" {
			turns = append(turns, schema.NewSystemTurn(r.settings.SystemPrompt))
		}
		turns = append(turns, schema.NewUserTurn(fmt.Sprintf(critiquePrompt, question, answer.Text())))

		resp, err := r.provider.Complete(ctx, turns, nil, opts)
		if err != nil {
			slog.Warn("Reflection failed, keeping answer", "provider", r.providerName, "pass", pass, "err", err)
			return answer
		}
		if resp.Content == nil {
			return answer
		}
		revised := strings.TrimSpace(*resp.Content)
		if revised == "" || revised == strings.TrimSpace(answer.Text()) {
			slog.Debug("Reflection converged", "pass", pass)
			return answer
		}

		turn := schema.NewAssistantTurn(&revised, nil)
		if err := log.Append(turn); err != nil {
			slog.Warn("Reflection turn rejected", "err", err)
			return answer
		}
		slog.Info("Answer revised", "pass", pass, "of", n, "answer", llmutils.Truncate(revised, 100))
		answer = turn
	}
	return answer
}
