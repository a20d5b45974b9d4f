// Package transcript exports a conversation as JSONL.
//
// File format:
//
//	Line 1:  {"_type":"metadata","id":"…","model":"…","created_at":"…"}
//	Line 2+: one turn per line, in the chat-completions message shape
//	         ({role, content, tool_calls?} or {role:"tool", content, tool_call_id, name})
package transcript

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/crystaldolphin/toolagent/internal/schema"
)

// Header is the metadata line of a transcript.
type Header struct {
	ID        string
	Model     string
	CreatedAt time.Time
}

// NewHeader returns a header with a fresh random id.
func NewHeader(model string) Header {
	return Header{ID: uuid.NewString(), Model: model, CreatedAt: time.Now().UTC()}
}

type wireCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function wireFunction `json:"function"`
}

type wireFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// wireTurn is the on-disk representation of one turn.
type wireTurn struct {
	Role       string     `json:"role"`
	Content    *string    `json:"content"`
	ToolCalls  []wireCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

// Write encodes h followed by every turn, one JSON object per line.
func Write(w io.Writer, h Header, turns []schema.Turn) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	meta := map[string]any{
		"_type":      "metadata",
		"id":         h.ID,
		"model":      h.Model,
		"created_at": h.CreatedAt.UTC().Format(time.RFC3339),
	}
	if err := enc.Encode(meta); err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	for _, t := range turns {
		if err := enc.Encode(turnToWire(t)); err != nil {
			return fmt.Errorf("encode turn: %w", err)
		}
	}
	return nil
}

// Save writes the transcript to path, creating parent directories.
func Save(path string, h Header, turns []schema.Turn) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create transcript dir: %w", err)
	}

	var buf bytes.Buffer
	if err := Write(&buf, h, turns); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write transcript %s: %w", path, err)
	}
	return nil
}

// Read decodes a transcript written by Write. Malformed lines are skipped
// with a warning; a missing metadata line leaves the header zero.
func Read(r io.Reader) (Header, []schema.Turn, error) {
	var (
		h     Header
		turns []schema.Turn
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1<<20), 1<<20) // 1 MB per line
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var probe struct {
			Type      string `json:"_type"`
			ID        string `json:"id"`
			Model     string `json:"model"`
			CreatedAt string `json:"created_at"`
		}
		if err := json.Unmarshal(line, &probe); err != nil {
			slog.Warn("skipping malformed transcript line", "err", err)
			continue
		}
		if probe.Type == "metadata" {
			h.ID, h.Model = probe.ID, probe.Model
			if t, err := time.Parse(time.RFC3339, probe.CreatedAt); err == nil {
				h.CreatedAt = t
			}
			continue
		}

		var w wireTurn
		if err := json.Unmarshal(line, &w); err != nil {
			slog.Warn("skipping malformed transcript line", "err", err)
			continue
		}
		turns = append(turns, wireToTurn(w))
	}
	if err := scanner.Err(); err != nil {
		return h, turns, fmt.Errorf("read transcript: %w", err)
	}
	return h, turns, nil
}

func turnToWire(t schema.Turn) wireTurn {
	w := wireTurn{
		Role:       string(t.Role),
		Content:    t.Content,
		ToolCallID: t.ToolRequestID,
		Name:       t.ToolName,
	}
	for _, r := range t.ToolRequests {
		w.ToolCalls = append(w.ToolCalls, wireCall{
			ID:       r.ID,
			Type:     "function",
			Function: wireFunction{Name: r.Name, Arguments: r.ArgumentsJSON()},
		})
	}
	return w
}

func wireToTurn(w wireTurn) schema.Turn {
	t := schema.Turn{
		Role:          schema.Role(w.Role),
		Content:       w.Content,
		ToolRequestID: w.ToolCallID,
		ToolName:      w.Name,
	}
	for _, c := range w.ToolCalls {
		req := schema.ToolRequest{ID: c.ID, Name: c.Function.Name}
		var args map[string]any
		if err := json.Unmarshal([]byte(c.Function.Arguments), &args); err == nil && args != nil {
			req.Arguments = args
		} else {
			req.RawArguments = c.Function.Arguments
		}
		t.ToolRequests = append(t.ToolRequests, req)
	}
	return t
}
