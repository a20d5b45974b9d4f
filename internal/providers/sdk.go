package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/crystaldolphin/toolagent/internal/schema"
)

const sdkProviderName = "openai_sdk"

// SDKProvider implements schema.CompletionPort with the official openai-go
// client. It speaks the same chat completions protocol as OpenAIProvider.
// SDK retries are disabled; a failed call surfaces as one ProviderError.
type SDKProvider struct {
	client       oai.Client
	defaultModel string
}

// NewSDKProvider constructs an SDKProvider. apiBase may be empty for the
// public OpenAI endpoint; client may be nil.
func NewSDKProvider(apiKey, apiBase, defaultModel string, client *http.Client) (*SDKProvider, error) {
	if apiKey == "" {
		return nil, &schema.ConfigurationError{Msg: "openai_sdk: API key must not be empty"}
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if apiBase != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(apiBase))
	}
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}
	reqOpts = append(reqOpts, option.WithHTTPClient(client))

	return &SDKProvider{client: oai.NewClient(reqOpts...), defaultModel: defaultModel}, nil
}

func (p *SDKProvider) Name() string         { return sdkProviderName }
func (p *SDKProvider) DefaultModel() string { return p.defaultModel }

// Complete implements schema.CompletionPort.
func (p *SDKProvider) Complete(
	ctx context.Context,
	turns []schema.Turn,
	tools []schema.ToolSchema,
	opts schema.ChatOptions,
) (schema.ProposedTurn, error) {
	params, err := p.buildParams(turns, tools, opts)
	if err != nil {
		return schema.ProposedTurn{}, providerError(sdkProviderName, 0, err)
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *oai.Error
		if errors.As(err, &apiErr) {
			return schema.ProposedTurn{}, providerError(sdkProviderName, apiErr.StatusCode, err)
		}
		return schema.ProposedTurn{}, providerError(sdkProviderName, 0, fmt.Errorf("chat completion: %w", err))
	}
	if len(resp.Choices) == 0 {
		return schema.ProposedTurn{}, providerError(sdkProviderName, 0, errors.New("empty choices in response"))
	}

	choice := resp.Choices[0]
	out := schema.ProposedTurn{
		FinishReason: string(choice.FinishReason),
		Usage: schema.Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}
	if c := choice.Message.Content; c != "" {
		out.Content = &c
	}
	for _, tc := range choice.Message.ToolCalls {
		out.ToolRequests = append(out.ToolRequests, toolRequest(tc.ID, tc.Function.Name, tc.Function.Arguments))
	}
	ensureUniqueIDs(turns, out.ToolRequests)
	return out, nil
}

// buildParams converts the log and tool schemas into SDK params.
func (p *SDKProvider) buildParams(turns []schema.Turn, tools []schema.ToolSchema, opts schema.ChatOptions) (oai.ChatCompletionNewParams, error) {
	model := opts.Model
	if model == "" {
		model = p.defaultModel
	}

	messages := make([]oai.ChatCompletionMessageParamUnion, 0, len(turns))
	for _, t := range turns {
		msg, err := convertTurn(t)
		if err != nil {
			return oai.ChatCompletionNewParams{}, err
		}
		messages = append(messages, msg)
	}

	params := oai.ChatCompletionNewParams{
		Model:       shared.ChatModel(model),
		Messages:    messages,
		Temperature: param.NewOpt(opts.Temperature),
	}
	if opts.MaxTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(int64(opts.MaxTokens))
	}

	for _, ts := range tools {
		params.Tools = append(params.Tools, oai.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:        ts.Name,
				Description: param.NewOpt(ts.Description),
				Parameters:  shared.FunctionParameters(ts.ParametersMap()),
			},
		})
	}

	return params, nil
}

// convertTurn converts one log entry to an SDK message param.
func convertTurn(t schema.Turn) (oai.ChatCompletionMessageParamUnion, error) {
	switch t.Role {
	case schema.RoleSystem:
		return oai.SystemMessage(t.Text()), nil

	case schema.RoleUser:
		return oai.UserMessage(t.Text()), nil

	case schema.RoleAssistant:
		asst := oai.ChatCompletionAssistantMessageParam{}
		if t.Content != nil {
			asst.Content.OfString = oai.String(*t.Content)
		}
		for _, r := range t.ToolRequests {
			asst.ToolCalls = append(asst.ToolCalls, oai.ChatCompletionMessageToolCallParam{
				ID: r.ID,
				Function: oai.ChatCompletionMessageToolCallFunctionParam{
					Name:      r.Name,
					Arguments: r.ArgumentsJSON(),
				},
			})
		}
		return oai.ChatCompletionMessageParamUnion{OfAssistant: &asst}, nil

	case schema.RoleTool:
		return oai.ToolMessage(t.Text(), t.ToolRequestID), nil

	default:
		return oai.ChatCompletionMessageParamUnion{}, fmt.Errorf("unknown turn role %q", t.Role)
	}
}
