package agent

import (
	"context"
	"log/slog"
	"sync"

	"github.com/crystaldolphin/toolagent/internal/conversation"
	"github.com/crystaldolphin/toolagent/internal/schema"
	"github.com/crystaldolphin/toolagent/internal/tools"
)

const interruptedResult = "Error: tool request interrupted before completion"

// Agent is one conversational session: a conversation log, an immutable tool
// registry and the settings used for every model call.
//
// Invoke calls on the same Agent are serialized. Separate Agents share
// nothing mutable and may run concurrently, even over one Registry.
type Agent struct {
	mu       sync.Mutex
	runner   LoopRunner
	log      *conversation.Log
	registry *tools.Registry
	settings schema.AgentSettings

	reflections int
}

// Option customizes an Agent at construction.
type Option func(*Agent)

// WithToolObserver registers fn to be told about every tool batch.
func WithToolObserver(fn ToolObserver) Option {
	return func(a *Agent) { a.runner.observer = fn }
}

// New builds an Agent over the given tools, in order. Two tools with the same
// name fail with *schema.DuplicateToolError.
func New(provider schema.CompletionPort, settings schema.AgentSettings, ts []tools.Tool, opts ...Option) (*Agent, error) {
	registry, err := tools.NewRegistry(ts...)
	if err != nil {
		return nil, err
	}
	return NewWithRegistry(provider, settings, registry, opts...)
}

// NewWithRegistry builds an Agent over an already constructed registry.
// Many agents may share one registry.
func NewWithRegistry(provider schema.CompletionPort, settings schema.AgentSettings, registry *tools.Registry, opts ...Option) (*Agent, error) {
	if provider == nil {
		return nil, &schema.ConfigurationError{Msg: "agent requires a completion provider"}
	}
	if registry == nil {
		return nil, &schema.ConfigurationError{Msg: "agent requires a tool registry"}
	}
	if settings.MaxIter <= 0 {
		settings.MaxIter = schema.DefaultMaxIter
	}
	if settings.Model == "" {
		settings.Model = provider.DefaultModel()
	}

	a := &Agent{
		runner:   newLoopRunner(provider, settings, registry),
		log:      conversation.NewLog(),
		registry: registry,
		settings: settings,
	}
	for _, opt := range opts {
		opt(a)
	}
	if err := a.seed(); err != nil {
		return nil, err
	}
	return a, nil
}

// Invoke appends userText as a user turn and runs the tool loop until the
// model produces a final answer, which is returned. With WithReflection the
// answer is then critiqued and refined before it is returned.
//
// Provider failures come back as *schema.ProviderError and a runaway loop as
// *schema.RecursionLimitError. In every failure case the log keeps the turns
// appended before the failing step.
func (a *Agent) Invoke(ctx context.Context, userText string) (schema.Turn, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.answerInterrupted(); err != nil {
		return schema.Turn{}, err
	}
	if err := a.log.Append(schema.NewUserTurn(userText)); err != nil {
		return schema.Turn{}, err
	}

	final, err := a.runner.run(ctx, a.log)
	if err != nil {
		return schema.Turn{}, err
	}
	if a.reflections > 0 {
		final = a.runner.reflect(ctx, a.log, userText, final, a.reflections)
	}
	return final.Clone(), nil
}

// History returns an independent snapshot of the conversation.
func (a *Agent) History() []schema.Turn {
	return a.log.All()
}

// Reset clears the conversation. The system prompt, if configured, is seeded
// again; tools and settings are kept.
func (a *Agent) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.log.Reset()
	if err := a.seed(); err != nil {
		slog.Error("Reseed system prompt", "err", err)
	}
}

// Tools returns the registry the agent dispatches to.
func (a *Agent) Tools() *tools.Registry { return a.registry }

// Settings returns the effective settings after defaults were applied.
func (a *Agent) Settings() schema.AgentSettings { return a.settings }

func (a *Agent) seed() error {
	if a.settings.SystemPrompt == "" {
		return nil
	}
	return a.log.Append(schema.NewSystemTurn(a.settings.SystemPrompt))
}

// answerInterrupted closes requests left open by a cancelled Invoke so the
// next model call receives an answer for every request it made.
func (a *Agent) answerInterrupted() error {
	for _, req := range a.log.Pending() {
		slog.Warn("Answering interrupted tool request", "name", req.Name, "id", req.ID)
		if err := a.log.Append(schema.NewToolTurn(req.ID, req.Name, interruptedResult)); err != nil {
			return err
		}
	}
	return nil
}

var _ schema.Invoker = (*Agent)(nil)
