package conversation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crystaldolphin/toolagent/internal/schema"
)

func strPtr(s string) *string { return &s }

func powerRequest(id string) schema.ToolRequest {
	return schema.ToolRequest{ID: id, Name: "power", Arguments: map[string]any{"base": 2.0, "exponent": 10.0}}
}

func TestLog_AppendAndAll(t *testing.T) {
	l := NewLog()

	require.NoError(t, l.Append(schema.NewSystemTurn("be helpful")))
	require.NoError(t, l.Append(schema.NewUserTurn("hi")))
	require.NoError(t, l.Append(schema.NewAssistantTurn(strPtr("hello"), nil)))

	turns := l.All()
	require.Len(t, turns, 3)
	assert.Equal(t, schema.RoleSystem, turns[0].Role)
	assert.Equal(t, schema.RoleUser, turns[1].Role)
	assert.Equal(t, "hello", turns[2].Text())
}

func TestLog_AllIsDefensiveCopy(t *testing.T) {
	l := NewLog()
	require.NoError(t, l.Append(schema.NewUserTurn("hi")))
	require.NoError(t, l.Append(schema.NewAssistantTurn(nil, []schema.ToolRequest{powerRequest("call_1")})))

	snap := l.All()
	*snap[0].Content = "mutated"
	snap[1].ToolRequests[0].Arguments["base"] = 99.0
	snap[1].ToolRequests = nil
	snap = append(snap[:0], schema.NewUserTurn("other"))

	fresh := l.All()
	assert.Equal(t, "hi", fresh[0].Text())
	require.Len(t, fresh[1].ToolRequests, 1)
	assert.Equal(t, 2.0, fresh[1].ToolRequests[0].Arguments["base"])
	assert.Len(t, snap, 1)
}

func TestLog_Last(t *testing.T) {
	l := NewLog()

	_, ok := l.Last()
	assert.False(t, ok)

	require.NoError(t, l.Append(schema.NewUserTurn("first")))
	require.NoError(t, l.Append(schema.NewAssistantTurn(strPtr("second"), nil)))

	last, ok := l.Last()
	require.True(t, ok)
	assert.Equal(t, "second", last.Text())
}

func TestLog_ToolTurnMustAnswerPendingRequest(t *testing.T) {
	l := NewLog()
	require.NoError(t, l.Append(schema.NewUserTurn("2^10?")))

	err := l.Append(schema.NewToolTurn("call_1", "power", "1024"))
	var invalid *schema.InvalidTurnError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, 1, invalid.Index)
	assert.Equal(t, 1, l.Len())

	require.NoError(t, l.Append(schema.NewAssistantTurn(nil, []schema.ToolRequest{powerRequest("call_1"), powerRequest("call_2")})))
	assert.Len(t, l.Pending(), 2)

	// Answers may arrive for an earlier unanswered request, not only the head.
	require.NoError(t, l.Append(schema.NewToolTurn("call_2", "power", "4")))
	require.NoError(t, l.Append(schema.NewToolTurn("call_1", "power", "1024")))
	assert.Empty(t, l.Pending())

	// A second answer for the same id is rejected.
	err = l.Append(schema.NewToolTurn("call_1", "power", "1024"))
	assert.True(t, errors.As(err, &invalid))
}

func TestLog_RejectsReusedRequestID(t *testing.T) {
	l := NewLog()
	require.NoError(t, l.Append(schema.NewAssistantTurn(nil, []schema.ToolRequest{powerRequest("call_1")})))
	require.NoError(t, l.Append(schema.NewToolTurn("call_1", "power", "1024")))

	err := l.Append(schema.NewAssistantTurn(nil, []schema.ToolRequest{powerRequest("call_1")}))
	var invalid *schema.InvalidTurnError
	assert.True(t, errors.As(err, &invalid))
}

func TestLog_RejectsMalformedTurns(t *testing.T) {
	cases := map[string]schema.Turn{
		"unknown role":           {Role: "robot", Content: strPtr("x")},
		"assistant empty":        {Role: schema.RoleAssistant},
		"user without content":   {Role: schema.RoleUser},
		"tool without id":        {Role: schema.RoleTool, Content: strPtr("x")},
		"user with request id":   {Role: schema.RoleUser, Content: strPtr("x"), ToolRequestID: "call_1"},
		"request without id":     {Role: schema.RoleAssistant, ToolRequests: []schema.ToolRequest{{Name: "power"}}},
		"request without name":   {Role: schema.RoleAssistant, ToolRequests: []schema.ToolRequest{{ID: "call_1"}}},
		"duplicate id in turn":   {Role: schema.RoleAssistant, ToolRequests: []schema.ToolRequest{powerRequest("a"), powerRequest("a")}},
		"assistant with tool id": {Role: schema.RoleAssistant, Content: strPtr("x"), ToolRequestID: "a"},
	}

	for name, turn := range cases {
		t.Run(name, func(t *testing.T) {
			l := NewLog()
			err := l.Append(turn)
			var invalid *schema.InvalidTurnError
			require.True(t, errors.As(err, &invalid), "got %v", err)
			assert.Zero(t, l.Len())
		})
	}
}

func TestLog_AssistantWithEmptyContentIsValid(t *testing.T) {
	l := NewLog()
	require.NoError(t, l.Append(schema.NewAssistantTurn(strPtr(""), nil)))
	last, _ := l.Last()
	require.NotNil(t, last.Content)
	assert.Equal(t, "", *last.Content)
}

func TestLog_Reset(t *testing.T) {
	l := NewLog()
	require.NoError(t, l.Append(schema.NewUserTurn("hi")))
	require.NoError(t, l.Append(schema.NewAssistantTurn(nil, []schema.ToolRequest{powerRequest("call_1")})))

	l.Reset()

	assert.Empty(t, l.All())
	assert.Empty(t, l.Pending())
	// Ids from before the reset may be reused.
	require.NoError(t, l.Append(schema.NewAssistantTurn(nil, []schema.ToolRequest{powerRequest("call_1")})))
}
