package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crystaldolphin/toolagent/internal/providers/providertest"
	"github.com/crystaldolphin/toolagent/internal/schema"
	"github.com/crystaldolphin/toolagent/internal/tools"
	"github.com/crystaldolphin/toolagent/internal/tools/builtin"
)

const systemPrompt = "You are a helpful assistant."

func settings(maxIter int) schema.AgentSettings {
	return schema.NewAgentSettings("test-model", maxIter, 0, 0, systemPrompt)
}

func newAgent(t *testing.T, provider schema.CompletionPort, opts ...Option) *Agent {
	t.Helper()
	a, err := New(provider, settings(10), []tools.Tool{builtin.Power()}, opts...)
	require.NoError(t, err)
	return a
}

func req(id, name string, args map[string]any) schema.ToolRequest {
	return schema.ToolRequest{ID: id, Name: name, Arguments: args}
}

func roles(turns []schema.Turn) []schema.Role {
	out := make([]schema.Role, len(turns))
	for i, t := range turns {
		out[i] = t.Role
	}
	return out
}

func TestInvoke_PowerRoundTrip(t *testing.T) {
	provider := providertest.New(
		providertest.Requests(req("call_1", "power", map[string]any{"base": 2.0, "exponent": 10.0})),
		providertest.Text("1024"),
	)
	a := newAgent(t, provider)

	final, err := a.Invoke(context.Background(), "What is 2 to the power of 10?")
	require.NoError(t, err)
	assert.Equal(t, schema.RoleAssistant, final.Role)
	assert.Contains(t, final.Text(), "1024")

	history := a.History()
	require.Len(t, history, 5)
	assert.Equal(t, []schema.Role{
		schema.RoleSystem, schema.RoleUser, schema.RoleAssistant, schema.RoleTool, schema.RoleAssistant,
	}, roles(history))
	assert.Nil(t, history[2].Content)
	require.Len(t, history[2].ToolRequests, 1)
	assert.Equal(t, "power", history[2].ToolRequests[0].Name)
	assert.Equal(t, "1024", history[3].Text())
	assert.Equal(t, "call_1", history[3].ToolRequestID)
	assert.Equal(t, "power", history[3].ToolName)

	calls := provider.Calls()
	require.Len(t, calls, 2)
	assert.Len(t, calls[0].Turns, 2)
	assert.Len(t, calls[1].Turns, 4)
	require.Len(t, calls[0].Tools, 1)
	assert.Equal(t, "power", calls[0].Tools[0].Name)
	assert.Equal(t, "test-model", calls[0].Options.Model)
}

func TestInvoke_UnknownToolIsReportedToModel(t *testing.T) {
	provider := providertest.New(
		providertest.Requests(req("call_1", "teleport", map[string]any{"to": "mars"})),
		providertest.Text("I cannot teleport."),
	)
	a := newAgent(t, provider)

	_, err := a.Invoke(context.Background(), "Take me to Mars")
	require.NoError(t, err)

	toolTurn := a.History()[3]
	assert.Equal(t, schema.RoleTool, toolTurn.Role)
	assert.Contains(t, toolTurn.Text(), "teleport")
	assert.Contains(t, toolTurn.Text(), "unknown")
}

func TestInvoke_EmptyToolNameIsReportedToModel(t *testing.T) {
	provider := providertest.New(
		providertest.Requests(req("c1", "", nil)),
		providertest.Text("ok"),
	)
	a := newAgent(t, provider)

	final, err := a.Invoke(context.Background(), "do something")
	require.NoError(t, err)
	assert.Equal(t, "ok", final.Text())

	history := a.History()
	require.Len(t, history, 5)
	assert.Equal(t, schema.RoleTool, history[3].Role)
	assert.Equal(t, "c1", history[3].ToolRequestID)
	assert.Equal(t, "Error: unknown tool: ", history[3].Text())
	assert.Len(t, provider.Calls(), 2)
}

func TestInvoke_AnswersEveryRequestInOrderBeforeNextCall(t *testing.T) {
	provider := providertest.New(
		providertest.Requests(
			req("call_a", "power", map[string]any{"base": 2.0, "exponent": 2.0}),
			req("call_b", "power", map[string]any{"base": 3.0, "exponent": 0.0}),
		),
		providertest.Text("4 and 1"),
	)
	a := newAgent(t, provider)

	_, err := a.Invoke(context.Background(), "2^2 and 3^0?")
	require.NoError(t, err)

	calls := provider.Calls()
	require.Len(t, calls, 2)
	second := calls[1].Turns
	require.Len(t, second, 5)
	assert.Equal(t, "call_a", second[3].ToolRequestID)
	assert.Equal(t, "4", second[3].Text())
	assert.Equal(t, "call_b", second[4].ToolRequestID)
	assert.Equal(t, "1", second[4].Text())
}

func TestReset(t *testing.T) {
	t.Run("seeded", func(t *testing.T) {
		a := newAgent(t, providertest.New(providertest.Text("hi"), providertest.Text("again")))
		_, err := a.Invoke(context.Background(), "hello")
		require.NoError(t, err)

		a.Reset()
		history := a.History()
		require.Len(t, history, 1)
		assert.Equal(t, schema.RoleSystem, history[0].Role)
		assert.Equal(t, systemPrompt, history[0].Text())

		_, err = a.Invoke(context.Background(), "hello again")
		require.NoError(t, err)
		assert.Len(t, a.History(), 3)
	})

	t.Run("unseeded", func(t *testing.T) {
		s := settings(10)
		s.SystemPrompt = ""
		a, err := New(providertest.New(providertest.Text("hi")), s, nil)
		require.NoError(t, err)
		assert.Empty(t, a.History())

		_, err = a.Invoke(context.Background(), "hello")
		require.NoError(t, err)
		a.Reset()
		assert.Empty(t, a.History())
	})
}

func TestInvoke_RecursionLimit(t *testing.T) {
	provider := providertest.NewFunc(func(n int, _ []schema.Turn) (schema.ProposedTurn, error) {
		return providertest.Requests(req(fmt.Sprintf("call_%d", n), "power", map[string]any{"base": 1.0, "exponent": 1.0})), nil
	})
	a, err := New(provider, settings(3), []tools.Tool{builtin.Power()})
	require.NoError(t, err)

	_, err = a.Invoke(context.Background(), "loop forever")
	require.Error(t, err)
	assert.True(t, errors.Is(err, schema.ErrRecursionLimitExceeded))

	var limitErr *schema.RecursionLimitError
	require.True(t, errors.As(err, &limitErr))
	assert.Equal(t, 3, limitErr.Limit)
	assert.Len(t, provider.Calls(), 3)

	// system, user, then three assistant/tool pairs
	assert.Len(t, a.History(), 8)
}

func TestInvoke_ToolFailuresDoNotAbortThePass(t *testing.T) {
	failing := tools.MustNew("fail", "always fails", func(context.Context, tools.Args) (any, error) {
		return nil, errors.New("backend unavailable")
	})
	panicking := tools.MustNew("explode", "always panics", func(context.Context, tools.Args) (any, error) {
		panic("boom")
	})
	provider := providertest.New(
		providertest.Requests(
			req("c1", "fail", nil),
			req("c2", "explode", nil),
			req("c3", "power", map[string]any{"base": 2.0}),
			req("c4", "power", map[string]any{"base": 2.0, "exponent": 3.0}),
		),
		providertest.Text("done"),
	)
	a, err := New(provider, settings(10), []tools.Tool{builtin.Power(), failing, panicking})
	require.NoError(t, err)

	final, err := a.Invoke(context.Background(), "try everything")
	require.NoError(t, err)
	assert.Equal(t, "done", final.Text())

	history := a.History()
	require.Len(t, history, 8)
	for _, tt := range history[3:6] {
		assert.Equal(t, schema.RoleTool, tt.Role)
		assert.True(t, strings.HasPrefix(tt.Text(), "Error: "), tt.Text())
	}
	assert.Contains(t, history[3].Text(), "backend unavailable")
	assert.Contains(t, history[4].Text(), "boom")
	assert.Contains(t, history[5].Text(), "exponent")
	assert.Equal(t, "8", history[6].Text())
}

func TestInvoke_UndecodableArguments(t *testing.T) {
	provider := providertest.New(
		providertest.Requests(schema.ToolRequest{ID: "c1", Name: "power", RawArguments: "{not json"}),
		providertest.Text("sorry"),
	)
	a := newAgent(t, provider)

	_, err := a.Invoke(context.Background(), "2^10")
	require.NoError(t, err)
	assert.Contains(t, a.History()[3].Text(), "not a valid JSON object")
}

func TestInvoke_ContentWithRequestsStillRunsTools(t *testing.T) {
	thinking := "Let me compute that."
	provider := providertest.New(
		schema.ProposedTurn{
			Content:      &thinking,
			ToolRequests: []schema.ToolRequest{req("c1", "power", map[string]any{"base": 3.0, "exponent": 2.0})},
		},
		providertest.Text("9"),
	)
	var observed []string
	a := newAgent(t, provider, WithToolObserver(func(content *string, reqs []schema.ToolRequest) {
		require.NotNil(t, content)
		observed = append(observed, *content)
		for _, r := range reqs {
			observed = append(observed, r.Name)
		}
	}))

	final, err := a.Invoke(context.Background(), "3^2")
	require.NoError(t, err)
	assert.Equal(t, "9", final.Text())
	assert.Equal(t, thinking, a.History()[2].Text())
	assert.Equal(t, "9", a.History()[3].Text())
	assert.Equal(t, []string{thinking, "power"}, observed)
}

func TestInvoke_EmptyProposalIsEmptyFinalAnswer(t *testing.T) {
	a := newAgent(t, providertest.New(schema.ProposedTurn{}))

	final, err := a.Invoke(context.Background(), "say nothing")
	require.NoError(t, err)
	require.NotNil(t, final.Content)
	assert.Equal(t, "", *final.Content)
	assert.Len(t, a.History(), 3)
}

func TestInvoke_ProviderErrorKeepsLog(t *testing.T) {
	cause := errors.New("rate limited")
	provider := providertest.New(
		providertest.Requests(req("c1", "power", map[string]any{"base": 2.0, "exponent": 1.0})),
	).ThenFail(cause)
	a := newAgent(t, provider)

	_, err := a.Invoke(context.Background(), "2^1")
	var provErr *schema.ProviderError
	require.True(t, errors.As(err, &provErr))
	assert.Equal(t, "scripted", provErr.Provider)
	assert.True(t, errors.Is(err, cause))

	assert.Equal(t, []schema.Role{
		schema.RoleSystem, schema.RoleUser, schema.RoleAssistant, schema.RoleTool,
	}, roles(a.History()))
}

func TestInvoke_CancelledPassIsResumable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancelling := tools.MustNew("cancel", "cancels the caller", func(context.Context, tools.Args) (any, error) {
		cancel()
		return "cancelled", nil
	})
	provider := providertest.New(
		providertest.Requests(req("c1", "cancel", nil), req("c2", "power", map[string]any{"base": 2.0, "exponent": 2.0})),
		providertest.Text("recovered"),
	)
	a, err := New(provider, settings(10), []tools.Tool{builtin.Power(), cancelling})
	require.NoError(t, err)

	_, err = a.Invoke(ctx, "start")
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, a.History(), 4)

	final, err := a.Invoke(context.Background(), "continue")
	require.NoError(t, err)
	assert.Equal(t, "recovered", final.Text())

	history := a.History()
	require.Len(t, history, 7)
	assert.Equal(t, "c2", history[4].ToolRequestID)
	assert.Equal(t, interruptedResult, history[4].Text())
	assert.Equal(t, schema.RoleUser, history[5].Role)
}

func TestNew_Configuration(t *testing.T) {
	provider := providertest.New()

	_, err := New(provider, settings(10), []tools.Tool{builtin.Power(), builtin.Power()})
	var dup *schema.DuplicateToolError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "power", dup.Name)

	_, err = New(nil, settings(10), nil)
	assert.True(t, errors.Is(err, schema.ErrConfiguration))

	a, err := New(provider, schema.AgentSettings{}, nil)
	require.NoError(t, err)
	assert.Equal(t, schema.DefaultMaxIter, a.Settings().MaxIter)
	assert.Equal(t, provider.DefaultModel(), a.Settings().Model)
	assert.Equal(t, 0, a.Tools().Len())
}

func TestAgents_ShareRegistry(t *testing.T) {
	registry, err := tools.NewRegistry(builtin.Power())
	require.NoError(t, err)

	a1, err := NewWithRegistry(providertest.New(providertest.Text("one")), settings(10), registry)
	require.NoError(t, err)
	a2, err := NewWithRegistry(providertest.New(providertest.Text("two")), settings(10), registry)
	require.NoError(t, err)

	_, err = a1.Invoke(context.Background(), "first")
	require.NoError(t, err)
	assert.Len(t, a1.History(), 3)
	assert.Len(t, a2.History(), 1)
}

func TestInvoke_ReflectionRefinesAnswer(t *testing.T) {
	provider := providertest.New(
		providertest.Requests(req("call_1", "power", map[string]any{"base": 2.0, "exponent": 10.0})),
		providertest.Text("1024"),
		providertest.Text("2^10 = 1024"),
		providertest.Text("2 to the power of 10 is 1024."),
	)
	a := newAgent(t, provider, WithReflection(2))

	final, err := a.Invoke(context.Background(), "What is 2 to the power of 10?")
	require.NoError(t, err)
	assert.Equal(t, "2 to the power of 10 is 1024.", final.Text())

	history := a.History()
	require.Len(t, history, 7)
	assert.Equal(t, "1024", history[4].Text())
	assert.Equal(t, "2^10 = 1024", history[5].Text())
	assert.Equal(t, final.Text(), history[6].Text())
	assert.Empty(t, a.log.Pending())

	calls := provider.Calls()
	require.Len(t, calls, 4)
	critique := calls[2]
	assert.Empty(t, critique.Tools)
	require.Len(t, critique.Turns, 2)
	assert.Equal(t, schema.RoleSystem, critique.Turns[0].Role)
	assert.Contains(t, critique.Turns[1].Text(), "What is 2 to the power of 10?")
	assert.Contains(t, critique.Turns[1].Text(), "1024")
	assert.Contains(t, calls[3].Turns[1].Text(), "2^10 = 1024")
}

func TestInvoke_ReflectionStopsWhenUnchanged(t *testing.T) {
	provider := providertest.New(providertest.Text("Paris"), providertest.Text(" Paris\n"))
	a := newAgent(t, provider, WithReflection(3))

	final, err := a.Invoke(context.Background(), "Capital of France?")
	require.NoError(t, err)
	assert.Equal(t, "Paris", final.Text())
	assert.Len(t, a.History(), 3)
	assert.Len(t, provider.Calls(), 2)
}

func TestInvoke_ReflectionIsBounded(t *testing.T) {
	provider := providertest.NewFunc(func(n int, _ []schema.Turn) (schema.ProposedTurn, error) {
		return providertest.Text(fmt.Sprintf("draft %d", n)), nil
	})
	a := newAgent(t, provider, WithReflection(10))

	final, err := a.Invoke(context.Background(), "Write a haiku")
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("draft %d", MaxReflections), final.Text())
	assert.Len(t, provider.Calls(), 1+MaxReflections)
	assert.Len(t, a.History(), 3+MaxReflections)
}

func TestInvoke_ReflectionFailureKeepsAnswer(t *testing.T) {
	provider := providertest.New(providertest.Text("42")).ThenFail(errors.New("boom"))
	a := newAgent(t, provider, WithReflection(1))

	final, err := a.Invoke(context.Background(), "The answer?")
	require.NoError(t, err)
	assert.Equal(t, "42", final.Text())
	assert.Len(t, a.History(), 3)
}

func TestInvoke_ReflectionDisabled(t *testing.T) {
	provider := providertest.New(providertest.Text("only"))
	a := newAgent(t, provider, WithReflection(0))

	final, err := a.Invoke(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "only", final.Text())
	assert.Len(t, provider.Calls(), 1)
}
