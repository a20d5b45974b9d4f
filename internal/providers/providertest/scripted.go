// Package providertest provides a scripted schema.CompletionPort for tests.
package providertest

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/crystaldolphin/toolagent/internal/schema"
)

// ErrExhausted is returned once every scripted reply has been consumed.
var ErrExhausted = errors.New("scripted provider has no replies left")

// Call records one Complete request as the provider received it.
type Call struct {
	Turns   []schema.Turn
	Tools   []schema.ToolSchema
	Options schema.ChatOptions
}

// ReplyFunc computes the reply for the n-th call (starting at 0).
type ReplyFunc func(n int, turns []schema.Turn) (schema.ProposedTurn, error)

type reply struct {
	turn schema.ProposedTurn
	err  error
}

// Scripted replays canned replies in order and records every request.
// It is safe for concurrent use.
type Scripted struct {
	mu      sync.Mutex
	model   string
	replies []reply
	fn      ReplyFunc
	calls   []Call
}

// New returns a provider that answers with replies, one per call.
func New(replies ...schema.ProposedTurn) *Scripted {
	s := &Scripted{model: "scripted-model"}
	for _, r := range replies {
		s.replies = append(s.replies, reply{turn: r})
	}
	return s
}

// NewFunc returns a provider that computes every reply with fn.
func NewFunc(fn ReplyFunc) *Scripted {
	return &Scripted{model: "scripted-model", fn: fn}
}

// ThenFail queues a failing reply after the ones already scripted.
func (s *Scripted) ThenFail(err error) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies = append(s.replies, reply{err: err})
	return s
}

func (s *Scripted) Name() string         { return "scripted" }
func (s *Scripted) DefaultModel() string { return s.model }

func (s *Scripted) Complete(ctx context.Context, turns []schema.Turn, tools []schema.ToolSchema, opts schema.ChatOptions) (schema.ProposedTurn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	call := Call{
		Turns:   make([]schema.Turn, len(turns)),
		Tools:   make([]schema.ToolSchema, len(tools)),
		Options: opts,
	}
	for i, t := range turns {
		call.Turns[i] = t.Clone()
	}
	for i, t := range tools {
		call.Tools[i] = t.Clone()
	}
	n := len(s.calls)
	s.calls = append(s.calls, call)

	if err := ctx.Err(); err != nil {
		return schema.ProposedTurn{}, err
	}
	if s.fn != nil {
		return s.fn(n, call.Turns)
	}
	if len(s.replies) == 0 {
		return schema.ProposedTurn{}, &schema.ProviderError{Provider: s.Name(), Err: ErrExhausted}
	}
	next := s.replies[0]
	s.replies = s.replies[1:]
	return next.turn, next.err
}

// Calls returns every recorded request in order.
func (s *Scripted) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// Text builds a final reply with the given content.
func Text(content string) schema.ProposedTurn {
	return schema.ProposedTurn{Content: &content, FinishReason: "stop"}
}

// Requests builds a reply asking for the given tool invocations.
func Requests(reqs ...schema.ToolRequest) schema.ProposedTurn {
	return schema.ProposedTurn{ToolRequests: reqs, FinishReason: "tool_calls"}
}

// Request builds a tool request with a fresh random id.
func Request(name string, args map[string]any) schema.ToolRequest {
	return schema.ToolRequest{ID: "call_" + uuid.NewString(), Name: name, Arguments: args}
}
