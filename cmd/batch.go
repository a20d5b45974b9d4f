package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/crystaldolphin/toolagent/internal/dependency"
	"github.com/crystaldolphin/toolagent/internal/transcript"
)

var (
	batchFile        string
	batchParallel    int
	batchTranscripts string
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run one independent session per prompt line",
	Long: "Reads prompts (one per line) from a file or stdin and runs each in its own session. " +
		"Results are written as JSON lines in input order.",
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().StringVarP(&batchFile, "file", "f", "-", "Prompt file, one prompt per line (- for stdin)")
	batchCmd.Flags().IntVarP(&batchParallel, "parallel", "p", 4, "Maximum sessions running at once")
	batchCmd.Flags().StringVar(&batchTranscripts, "transcripts", "", "Directory to write one JSONL transcript per prompt")
}

// batchResult is one output line.
type batchResult struct {
	Index  int    `json:"index"`
	Prompt string `json:"prompt"`
	Answer string `json:"answer,omitempty"`
	Error  string `json:"error,omitempty"`
}

func runBatch(c *cobra.Command, _ []string) error {
	prompts, err := readPrompts(c.InOrStdin(), batchFile)
	if err != nil {
		return err
	}
	if len(prompts) == 0 {
		return nil
	}

	container, err := loadContainer()
	if err != nil {
		return err
	}

	results := runPrompts(c.Context(), container, prompts, batchParallel)

	enc := json.NewEncoder(c.OutOrStdout())
	for _, r := range results {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}

// runPrompts runs every prompt in a fresh session. A failing session is
// reported in its result and does not stop the others.
func runPrompts(ctx context.Context, container *dependency.Container, prompts []string, parallel int) []batchResult {
	if ctx == nil {
		ctx = context.Background()
	}
	if parallel < 1 {
		parallel = 1
	}

	results := make([]batchResult, len(prompts))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)

	for i, prompt := range prompts {
		i, prompt := i, prompt
		g.Go(func() error {
			results[i] = runOne(ctx, container, i, prompt)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func runOne(ctx context.Context, container *dependency.Container, i int, prompt string) batchResult {
	res := batchResult{Index: i, Prompt: prompt}

	a, err := container.NewAgent()
	if err != nil {
		res.Error = err.Error()
		return res
	}

	final, err := a.Invoke(ctx, prompt)
	if err != nil {
		slog.Warn("batch prompt failed", "index", i, "error", err)
		res.Error = err.Error()
	} else {
		res.Answer = final.Text()
	}

	if batchTranscripts != "" {
		path := filepath.Join(batchTranscripts, fmt.Sprintf("%03d.jsonl", i))
		if err := transcript.Save(path, transcript.NewHeader(container.Settings().Model), a.History()); err != nil {
			slog.Error("failed to save transcript", "path", path, "error", err)
		}
	}
	return res
}

func readPrompts(stdin io.Reader, path string) ([]string, error) {
	r := stdin
	if path != "-" && path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open prompts: %w", err)
		}
		defer f.Close()
		r = f
	}

	var prompts []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" && !strings.HasPrefix(line, "#") {
			prompts = append(prompts, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read prompts: %w", err)
	}
	return prompts, nil
}
