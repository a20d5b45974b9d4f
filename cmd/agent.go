package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/crystaldolphin/toolagent/internal/agent"
	"github.com/crystaldolphin/toolagent/internal/schema"
	"github.com/crystaldolphin/toolagent/internal/shared/cmdutils"
	"github.com/crystaldolphin/toolagent/internal/shared/llmutils"
	"github.com/crystaldolphin/toolagent/internal/transcript"
)

var (
	agentMessage    string
	agentTranscript string
	agentTimeout    time.Duration
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Interact with the agent",
	RunE:  runAgent,
}

func init() {
	agentCmd.Flags().StringVarP(&agentMessage, "message", "m", "", "Send a single message and exit")
	agentCmd.Flags().StringVarP(&agentTranscript, "transcript", "t", "", "Write the conversation as JSONL to this file on exit")
	agentCmd.Flags().DurationVar(&agentTimeout, "timeout", 5*time.Minute, "Per-message timeout")
}

var exitCommands = map[string]bool{
	"exit":  true,
	"quit":  true,
	"/exit": true,
	"/quit": true,
	":q":    true,
}

func runAgent(c *cobra.Command, _ []string) error {
	container, err := loadContainer()
	if err != nil {
		return err
	}

	out := c.OutOrStdout()
	a, err := container.NewAgent(agent.WithToolObserver(hintPrinter(c.ErrOrStderr())))
	if err != nil {
		return err
	}
	defer saveTranscript(a, container.Settings().Model)

	if agentMessage != "" {
		return runSingleMessage(a, out)
	}
	return runInteractive(a, c.InOrStdin(), out)
}

// hintPrinter shows each batch of tool requests as it is dispatched.
func hintPrinter(w io.Writer) agent.ToolObserver {
	return func(_ *string, reqs []schema.ToolRequest) {
		cmdutils.PrintHint(w, llmutils.ToolHint(reqs))
	}
}

// runSingleMessage sends one message to the agent and prints the response.
func runSingleMessage(a schema.Invoker, out io.Writer) error {
	ctx, cancel := context.WithTimeout(context.Background(), agentTimeout)
	defer cancel()

	final, err := a.Invoke(ctx, agentMessage)
	if err != nil {
		return err
	}
	printTurn(out, final)
	return nil
}

// runInteractive starts the REPL: reads lines from in, runs each through the
// agent, and prints the reply before prompting again. Ctrl+C cancels the
// message in flight; a second Ctrl+C at the prompt exits.
func runInteractive(a schema.Invoker, in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, "%s Interactive mode (type 'exit' or Ctrl+C to quit; /reset, /history)\n\n", logo)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		fmt.Fprint(out, "You: ")

		var line string
		select {
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(out, "\nGoodbye!")
				return nil
			}
			line = strings.TrimSpace(l)
		case <-sigChan:
			fmt.Fprintln(out, "\nGoodbye!")
			return nil
		}

		switch {
		case line == "":
			continue
		case exitCommands[strings.ToLower(line)]:
			fmt.Fprintln(out, "Goodbye!")
			return nil
		case line == "/reset":
			a.Reset()
			fmt.Fprintln(out, "Conversation cleared.")
			continue
		case line == "/history":
			printHistory(out, a.History())
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), agentTimeout)
		go func() {
			select {
			case <-sigChan:
				cancel()
			case <-ctx.Done():
			}
		}()
		final, err := a.Invoke(ctx, line)
		cancel()

		if err != nil {
			reportError(out, err)
			continue
		}
		printTurn(out, final)
	}
}

func reportError(out io.Writer, err error) {
	var limit *schema.RecursionLimitError
	switch {
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(out, "\n(interrupted)")
	case errors.As(err, &limit):
		fmt.Fprintf(out, "\nStopped after %d model calls without a final answer.\n\n", limit.Limit)
	default:
		fmt.Fprintf(out, "\nError: %v\n\n", err)
	}
}

func printTurn(out io.Writer, t schema.Turn) {
	text := strings.TrimSpace(llmutils.StripThink(t.Text()))
	cmdutils.PrintResponse(out, llmutils.StringOrDefault(text, "(no response)"))
}

func printHistory(out io.Writer, turns []schema.Turn) {
	for i, t := range turns {
		switch {
		case t.Role == schema.RoleTool:
			fmt.Fprintf(out, "%2d %-9s %s → %s\n", i, t.Role, t.ToolName, llmutils.Truncate(t.Text(), 80))
		case len(t.ToolRequests) > 0:
			fmt.Fprintf(out, "%2d %-9s %s\n", i, t.Role, llmutils.ToolHint(t.ToolRequests))
		default:
			fmt.Fprintf(out, "%2d %-9s %s\n", i, t.Role, llmutils.Truncate(t.Text(), 80))
		}
	}
	fmt.Fprintln(out)
}

func saveTranscript(a schema.Invoker, model string) {
	if agentTranscript == "" {
		return
	}
	if err := transcript.Save(agentTranscript, transcript.NewHeader(model), a.History()); err != nil {
		slog.Error("failed to save transcript", "path", agentTranscript, "error", err)
	}
}
