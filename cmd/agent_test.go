package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crystaldolphin/toolagent/internal/agent"
	"github.com/crystaldolphin/toolagent/internal/providers/providertest"
	"github.com/crystaldolphin/toolagent/internal/schema"
	"github.com/crystaldolphin/toolagent/internal/tools/builtin"
)

func TestRunInteractive(t *testing.T) {
	port := providertest.New(
		providertest.Requests(providertest.Request("power", map[string]any{"base": 2.0, "exponent": 10.0})),
		providertest.Text("<think>easy</think>2^10 is 1024."),
	)
	var hints bytes.Buffer
	a, err := agent.New(port, schema.AgentSettings{}, builtin.Tools(builtin.Options{}),
		agent.WithToolObserver(hintPrinter(&hints)))
	require.NoError(t, err)

	var out bytes.Buffer
	in := strings.NewReader("What is 2 to the power of 10?\n/history\n/reset\nexit\n")
	require.NoError(t, runInteractive(a, in, &out))

	s := out.String()
	assert.Contains(t, s, "2^10 is 1024.")
	assert.NotContains(t, s, "<think>")
	assert.Contains(t, s, "tool      power → 1024")
	assert.Contains(t, s, "Conversation cleared.")
	assert.Contains(t, s, "Goodbye!")
	assert.Equal(t, "  ↳ power(base=2, exponent=10)\n", hints.String())
	assert.Empty(t, a.History())
}
