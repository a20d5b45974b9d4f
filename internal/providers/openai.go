package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/crystaldolphin/toolagent/internal/schema"
)

// OpenAIProvider makes direct HTTP calls to any OpenAI-compatible endpoint,
// and also handles the Anthropic Messages API as a special case.
type OpenAIProvider struct {
	name         string
	apiKey       string
	apiBase      string
	defaultModel string
	extraHeaders map[string]string
	gateway      *ProviderSpec // non-nil for gateway/local providers
	spec         *ProviderSpec // non-nil for standard providers
	isAnthropic  bool
	httpClient   *http.Client
}

// NewOpenAIProvider constructs a provider from raw config values.
// The caller extracts these from config.Config to avoid an import cycle.
func NewOpenAIProvider(
	apiKey, apiBase, defaultModel, providerName string,
	extraHeaders map[string]string,
) *OpenAIProvider {
	gateway := FindGateway(providerName, apiKey, apiBase)

	var spec *ProviderSpec
	if gateway == nil {
		spec = FindByModel(defaultModel)
		if spec == nil {
			spec = FindByName(providerName)
		}
	}

	// Resolve effective API base.
	effectiveBase := apiBase
	if effectiveBase == "" {
		if gateway != nil && gateway.DefaultAPIBase != "" {
			effectiveBase = gateway.DefaultAPIBase
		} else if spec != nil && spec.DefaultAPIBase != "" {
			effectiveBase = spec.DefaultAPIBase
		} else {
			effectiveBase = "https://api.openai.com/v1"
		}
	}
	effectiveBase = strings.TrimRight(effectiveBase, "/")

	isAnthropic := providerName == "anthropic" ||
		strings.Contains(strings.ToLower(effectiveBase), "anthropic.com")

	name := providerName
	switch {
	case name != "":
	case gateway != nil:
		name = gateway.Name
	case spec != nil:
		name = spec.Name
	default:
		name = "openai"
	}

	return &OpenAIProvider{
		name:         name,
		apiKey:       apiKey,
		apiBase:      effectiveBase,
		defaultModel: defaultModel,
		extraHeaders: extraHeaders,
		gateway:      gateway,
		spec:         spec,
		isAnthropic:  isAnthropic,
		httpClient:   &http.Client{Timeout: 120 * time.Second},
	}
}

// WithHTTPClient replaces the client used for every request.
func (p *OpenAIProvider) WithHTTPClient(c *http.Client) *OpenAIProvider {
	p.httpClient = c
	return p
}

func (p *OpenAIProvider) Name() string         { return p.name }
func (p *OpenAIProvider) DefaultModel() string { return p.defaultModel }
func (p *OpenAIProvider) APIBase() string      { return p.apiBase }

// Complete implements schema.CompletionPort. It dispatches to the Anthropic
// or OpenAI-compatible path. Every failure is a *schema.ProviderError.
func (p *OpenAIProvider) Complete(
	ctx context.Context,
	turns []schema.Turn,
	tools []schema.ToolSchema,
	opts schema.ChatOptions,
) (schema.ProposedTurn, error) {
	model := opts.Model
	if model == "" {
		model = p.defaultModel
	}

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	wireTools := make([]map[string]any, len(tools))
	for i, t := range tools {
		wireTools[i] = t.ToWireMap()
	}

	var (
		out schema.ProposedTurn
		err error
	)
	if p.isAnthropic {
		out, err = p.completeAnthropic(ctx, turns, wireTools, p.resolveModel(model), maxTokens, opts.Temperature)
	} else {
		messages := turnsToWire(turns)
		if p.supportsPromptCaching(model) {
			messages, wireTools = applyCacheControl(messages, wireTools)
		}
		out, err = p.completeOpenAI(ctx, messages, wireTools, p.resolveModel(model), maxTokens, opts.Temperature)
	}
	if err != nil {
		return schema.ProposedTurn{}, err
	}
	ensureUniqueIDs(turns, out.ToolRequests)
	return out, nil
}

// ---------------------------------------------------------------------------
// OpenAI-compatible path
// ---------------------------------------------------------------------------

func (p *OpenAIProvider) completeOpenAI(
	ctx context.Context,
	messages []map[string]any,
	tools []map[string]any,
	model string,
	maxTokens int,
	temperature float64,
) (schema.ProposedTurn, error) {
	body := map[string]any{
		"model":       model,
		"messages":    messages,
		"max_tokens":  maxTokens,
		"temperature": temperature,
	}
	if len(tools) > 0 {
		body["tools"] = tools
		body["tool_choice"] = "auto"
	}
	p.applyModelOverrides(model, body)

	raw, err := p.post(ctx, "/chat/completions", body, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	})
	if err != nil {
		return schema.ProposedTurn{}, err
	}

	turn, err := parseOpenAIResponse(raw)
	if err != nil {
		return schema.ProposedTurn{}, providerError(p.name, 0, err)
	}
	return turn, nil
}

// ---------------------------------------------------------------------------
// Anthropic Messages API path
// ---------------------------------------------------------------------------

func (p *OpenAIProvider) completeAnthropic(
	ctx context.Context,
	turns []schema.Turn,
	tools []map[string]any,
	model string,
	maxTokens int,
	temperature float64,
) (schema.ProposedTurn, error) {
	system, converted := convertTurnsToAnthropic(turns)

	body := map[string]any{
		"model":       model,
		"messages":    converted,
		"max_tokens":  maxTokens,
		"temperature": temperature,
	}
	if system != "" {
		body["system"] = system
	}
	if len(tools) > 0 {
		if p.supportsPromptCaching(model) {
			_, tools = applyCacheControl(nil, tools)
		}
		body["tools"] = convertToolsToAnthropic(tools)
	}

	raw, err := p.post(ctx, "/messages", body, func(req *http.Request) {
		req.Header.Set("x-api-key", p.apiKey)
		req.Header.Set("anthropic-version", "2023-06-01")
	})
	if err != nil {
		return schema.ProposedTurn{}, err
	}

	turn, err := parseAnthropicResponse(raw)
	if err != nil {
		return schema.ProposedTurn{}, providerError(p.name, 0, err)
	}
	return turn, nil
}

// post sends body as JSON to apiBase+path and returns the raw 200 response.
func (p *OpenAIProvider) post(ctx context.Context, path string, body map[string]any, auth func(*http.Request)) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, providerError(p.name, 0, fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiBase+path, bytes.NewReader(data))
	if err != nil {
		return nil, providerError(p.name, 0, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	auth(req)
	for k, v := range p.extraHeaders {
		req.Header.Set(k, v)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, providerError(p.name, 0, fmt.Errorf("HTTP request: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, providerError(p.name, resp.StatusCode, fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, providerError(p.name, resp.StatusCode, errors.New(friendlyHTTPError(resp.StatusCode, raw)))
	}
	return raw, nil
}

// ---------------------------------------------------------------------------
// Model resolution
// ---------------------------------------------------------------------------

// resolveModel strips routing prefixes so the backend receives the model name
// it expects. Gateways keep the "vendor/model" form minus their own prefix,
// unless StripModelPrefix asks for the bare name. Direct backends drop their
// own name or route prefix.
func (p *OpenAIProvider) resolveModel(model string) string {
	if p.gateway != nil {
		if p.gateway.StripModelPrefix {
			if i := strings.LastIndex(model, "/"); i >= 0 {
				return model[i+1:]
			}
			return model
		}
		if pfx := p.gateway.RoutePrefix; pfx != "" {
			full := pfx + "/"
			if strings.HasPrefix(strings.ToLower(model), full) {
				model = model[len(full):]
			}
		}
		return model
	}

	prefixesToStrip := []string{}
	if p.spec != nil {
		prefixesToStrip = append(prefixesToStrip, p.spec.RoutePrefix, p.spec.Name)
	}
	for _, pfx := range prefixesToStrip {
		if pfx == "" {
			continue
		}
		full := pfx + "/"
		if strings.HasPrefix(strings.ToLower(model), full) {
			return model[len(full):]
		}
	}
	// Fallback: strip any unknown provider prefix recognised in registry.
	if strings.Contains(model, "/") {
		parts := strings.SplitN(model, "/", 2)
		norm := strings.ReplaceAll(strings.ToLower(parts[0]), "-", "_")
		if FindByName(norm) != nil {
			return parts[1]
		}
	}
	return model
}

func (p *OpenAIProvider) applyModelOverrides(model string, body map[string]any) {
	spec := p.spec
	if spec == nil {
		spec = FindByModel(model)
	}
	if spec == nil {
		return
	}
	bare := strings.ToLower(model)
	if i := strings.LastIndex(bare, "/"); i >= 0 {
		bare = bare[i+1:]
	}
	for _, ov := range spec.ModelOverrides {
		if strings.HasPrefix(bare, strings.ToLower(ov.Prefix)) {
			for k, v := range ov.Overrides {
				body[k] = v
			}
			return
		}
	}
}

// ---------------------------------------------------------------------------
// Prompt caching
// ---------------------------------------------------------------------------

func (p *OpenAIProvider) supportsPromptCaching(model string) bool {
	if p.gateway != nil {
		return p.gateway.SupportsPromptCaching
	}
	spec := FindByModel(model)
	return spec != nil && spec.SupportsPromptCaching
}

// applyCacheControl marks the system message and the last tool definition as
// ephemeral cache breakpoints. Inputs are not modified.
func applyCacheControl(messages, tools []map[string]any) ([]map[string]any, []map[string]any) {
	ephemeral := map[string]any{"type": "ephemeral"}

	var out []map[string]any
	if messages != nil {
		out = make([]map[string]any, len(messages))
		for i, m := range messages {
			if s, ok := m["content"].(string); ok && m["role"] == string(schema.RoleSystem) {
				cm := copyMap(m)
				cm["content"] = []any{
					map[string]any{"type": "text", "text": s, "cache_control": ephemeral},
				}
				out[i] = cm
				continue
			}
			out[i] = m
		}
	}

	if len(tools) == 0 {
		return out, tools
	}
	newTools := make([]map[string]any, len(tools))
	copy(newTools, tools)
	last := copyMap(newTools[len(newTools)-1])
	last["cache_control"] = ephemeral
	newTools[len(newTools)-1] = last
	return out, newTools
}

// ---------------------------------------------------------------------------
// Wire format
// ---------------------------------------------------------------------------

// turnsToWire converts the log to OpenAI chat messages. Assistant turns carry
// their requests as tool_calls with JSON-encoded argument strings; tool turns
// carry the id of the request they answer.
func turnsToWire(turns []schema.Turn) []map[string]any {
	out := make([]map[string]any, 0, len(turns))
	for _, t := range turns {
		wire := map[string]any{"role": string(t.Role)}
		switch t.Role {
		case schema.RoleAssistant:
			// Strict providers require "content" even for tool-call-only messages.
			if t.Content == nil {
				wire["content"] = nil
			} else {
				wire["content"] = *t.Content
			}
			if len(t.ToolRequests) > 0 {
				calls := make([]map[string]any, len(t.ToolRequests))
				for i, r := range t.ToolRequests {
					calls[i] = map[string]any{
						"id":   r.ID,
						"type": "function",
						"function": map[string]any{
							"name":      r.Name,
							"arguments": r.ArgumentsJSON(),
						},
					}
				}
				wire["tool_calls"] = calls
			}
		case schema.RoleTool:
			wire["content"] = t.Text()
			wire["tool_call_id"] = t.ToolRequestID
			if t.ToolName != "" {
				wire["name"] = t.ToolName
			}
		default:
			wire["content"] = t.Text()
		}
		out = append(out, wire)
	}
	return out
}

// convertTurnsToAnthropic converts the log to Anthropic's wire format.
// Returns (system_prompt, converted_messages).
func convertTurnsToAnthropic(turns []schema.Turn) (string, []map[string]any) {
	var system string
	var out []map[string]any

	for _, t := range turns {
		switch t.Role {
		case schema.RoleSystem:
			if system != "" {
				system += "\n\n"
			}
			system += t.Text()

		case schema.RoleUser:
			out = append(out, map[string]any{"role": "user", "content": t.Text()})

		case schema.RoleTool:
			block := map[string]any{
				"type":        "tool_result",
				"tool_use_id": t.ToolRequestID,
				"content":     t.Text(),
			}
			// Merge consecutive tool results into one user message.
			if len(out) > 0 && out[len(out)-1]["role"] == "user" {
				prev := out[len(out)-1]
				if c, ok := prev["content"].([]any); ok {
					prev["content"] = append(c, block)
					continue
				}
			}
			out = append(out, map[string]any{"role": "user", "content": []any{block}})

		case schema.RoleAssistant:
			var blocks []any
			if s := t.Text(); s != "" {
				blocks = append(blocks, map[string]any{"type": "text", "text": s})
			}
			for _, r := range t.ToolRequests {
				input := r.Arguments
				if input == nil {
					input = map[string]any{}
				}
				blocks = append(blocks, map[string]any{
					"type":  "tool_use",
					"id":    r.ID,
					"name":  r.Name,
					"input": input,
				})
			}
			if len(blocks) == 0 {
				blocks = []any{map[string]any{"type": "text", "text": ""}}
			}
			out = append(out, map[string]any{"role": "assistant", "content": blocks})
		}
	}
	return system, out
}

// convertToolsToAnthropic converts OpenAI function schemas to Anthropic tool format.
// Key difference: "parameters" → "input_schema".
func convertToolsToAnthropic(tools []map[string]any) []map[string]any {
	out := make([]map[string]any, 0, len(tools))
	for _, t := range tools {
		fn, _ := t["function"].(map[string]any)
		if fn == nil {
			continue
		}
		at := map[string]any{
			"name":         fn["name"],
			"description":  fn["description"],
			"input_schema": fn["parameters"],
		}
		if cc, ok := t["cache_control"]; ok {
			at["cache_control"] = cc
		}
		out = append(out, at)
	}
	return out
}

// ---------------------------------------------------------------------------
// Response parsers
// ---------------------------------------------------------------------------

// openAIRespBody is the subset of the OpenAI chat completion response we care about.
type openAIRespBody struct {
	Choices []struct {
		Message struct {
			Content   any `json:"content"`
			ToolCalls []struct {
				ID       string `json:"id"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

func parseOpenAIResponse(raw []byte) (schema.ProposedTurn, error) {
	var body openAIRespBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return schema.ProposedTurn{}, fmt.Errorf("parse OpenAI response: %w", err)
	}
	if len(body.Choices) == 0 {
		return schema.ProposedTurn{}, fmt.Errorf("empty choices in response")
	}

	msg := body.Choices[0].Message

	var content *string
	if c, ok := msg.Content.(string); ok && c != "" {
		content = &c
	}

	var reqs []schema.ToolRequest
	for _, tc := range msg.ToolCalls {
		reqs = append(reqs, toolRequest(tc.ID, tc.Function.Name, tc.Function.Arguments))
	}

	finish := body.Choices[0].FinishReason
	if finish == "" {
		finish = "stop"
	}

	return schema.ProposedTurn{
		Content:      content,
		ToolRequests: reqs,
		FinishReason: finish,
		Usage: schema.Usage{
			PromptTokens:     body.Usage.PromptTokens,
			CompletionTokens: body.Usage.CompletionTokens,
			TotalTokens:      body.Usage.TotalTokens,
		},
	}, nil
}

// anthropicRespBody models the Anthropic Messages API response.
type anthropicRespBody struct {
	Content []struct {
		Type  string         `json:"type"`
		Text  string         `json:"text"`  // type=text
		ID    string         `json:"id"`    // type=tool_use
		Name  string         `json:"name"`  // type=tool_use
		Input map[string]any `json:"input"` // type=tool_use
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func parseAnthropicResponse(raw []byte) (schema.ProposedTurn, error) {
	var body anthropicRespBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return schema.ProposedTurn{}, fmt.Errorf("parse Anthropic response: %w", err)
	}

	var contentStr string
	var reqs []schema.ToolRequest

	for _, block := range body.Content {
		switch block.Type {
		case "text":
			contentStr += block.Text
		case "tool_use":
			args := block.Input
			if args == nil {
				args = map[string]any{}
			}
			reqs = append(reqs, schema.ToolRequest{ID: block.ID, Name: block.Name, Arguments: args})
		}
	}

	var content *string
	if contentStr != "" {
		content = &contentStr
	}

	finish := "stop"
	if body.StopReason == "tool_use" {
		finish = "tool_calls"
	} else if body.StopReason != "" && body.StopReason != "end_turn" {
		finish = body.StopReason
	}

	return schema.ProposedTurn{
		Content:      content,
		ToolRequests: reqs,
		FinishReason: finish,
		Usage: schema.Usage{
			PromptTokens:     body.Usage.InputTokens,
			CompletionTokens: body.Usage.OutputTokens,
			TotalTokens:      body.Usage.InputTokens + body.Usage.OutputTokens,
		},
	}, nil
}

// toolRequest decodes a wire argument string. Arguments that cannot be
// repaired into an object leave Arguments nil and keep the raw text, so the
// loop can answer the request with an argument error.
func toolRequest(id, name, rawArgs string) schema.ToolRequest {
	args, err := repairJSON(rawArgs)
	if err != nil {
		slog.Warn("failed to parse tool arguments", "tool", name, "err", err)
		return schema.ToolRequest{ID: id, Name: name, RawArguments: rawArgs}
	}
	return schema.ToolRequest{ID: id, Name: name, Arguments: args, RawArguments: rawArgs}
}

// ---------------------------------------------------------------------------
// JSON repair
// ---------------------------------------------------------------------------

// repairJSON attempts to unmarshal JSON, retrying after stripping trailing
// garbage characters. This handles some LLMs that emit truncated tool arguments.
func repairJSON(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}, nil
	}

	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err == nil && out != nil {
		return out, nil
	}

	// Attempt 1: trim trailing non-JSON characters.
	stripped := strings.TrimRight(raw, " \t\n\r}]")
	if !strings.HasSuffix(stripped, "}") {
		stripped += "}"
	}
	out = nil
	if err := json.Unmarshal([]byte(stripped), &out); err == nil && out != nil {
		return out, nil
	}

	// Attempt 2: find the last complete JSON object.
	if i := strings.LastIndex(raw, "}"); i >= 0 {
		out = nil
		if err := json.Unmarshal([]byte(raw[:i+1]), &out); err == nil && out != nil {
			return out, nil
		}
	}

	return nil, fmt.Errorf("cannot repair JSON: %s", raw)
}

// ---------------------------------------------------------------------------
// Utilities
// ---------------------------------------------------------------------------

func friendlyHTTPError(code int, body []byte) string {
	if code == http.StatusTooManyRequests {
		return "rate limit exceeded"
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 300 {
		s = s[:300]
	}
	return s
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
