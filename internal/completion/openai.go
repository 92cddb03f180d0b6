package completion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// OpenAIConfig configures the OpenAI-compatible client.
type OpenAIConfig struct {
	// APIKey authenticates requests.
	APIKey string
	// BaseURL overrides the API endpoint (OpenRouter, a proxy, a test server).
	BaseURL string
	// HTTPClient overrides the transport.
	HTTPClient *http.Client
}

// OpenAI calls the chat completions API.
type OpenAI struct {
	client openai.Client
}

// NewOpenAI builds a client. SDK retries are disabled; the gateway never retries.
func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("api key is required")
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	return &OpenAI{client: openai.NewClient(opts...)}, nil
}

// Complete sends one chat completion request and returns its first choice.
func (o *OpenAI) Complete(ctx context.Context, req Request) (Response, error) {
	if strings.TrimSpace(req.Model) == "" {
		return Response{}, errors.New("model is required")
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(req.Model),
		Messages: toOpenAIMessages(req.Messages),
	}
	if len(req.Tools) > 0 {
		params.Tools = toOpenAITools(req.Tools)
	}
	if req.ReasoningEffort != "" {
		params.ReasoningEffort = shared.ReasoningEffort(req.ReasoningEffort)
	}

	var reqOpts []option.RequestOption
	if req.Verbosity != "" {
		reqOpts = append(reqOpts, option.WithJSONSet("verbosity", req.Verbosity))
	}

	completion, err := o.client.Chat.Completions.New(ctx, params, reqOpts...)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return Response{}, fmt.Errorf("completion service status %d: %w", apiErr.StatusCode, err)
		}
		return Response{}, fmt.Errorf("completion request failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return Response{}, errors.New("completion returned no choices")
	}

	choice := completion.Choices[0]
	resp := Response{
		FinishReason: string(choice.FinishReason),
		Text:         strings.TrimSpace(choice.Message.Content),
	}
	if resp.Text == "" && choice.Message.Refusal != "" {
		resp.Text = strings.TrimSpace(choice.Message.Refusal)
	}
	for _, call := range choice.Message.ToolCalls {
		resp.ToolCalls = append(resp.ToolCalls, ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
		})
	}
	return resp, nil
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(msg.Content))
		default:
			out = append(out, openai.UserMessage(msg.Content))
		}
	}
	return out
}

func toOpenAITools(specs []ToolSpec) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, 0, len(specs))
	for _, spec := range specs {
		fn := openai.FunctionDefinitionParam{
			Name:       spec.Name,
			Parameters: openai.FunctionParameters(spec.Parameters),
		}
		if spec.Description != "" {
			fn.Description = openai.String(spec.Description)
		}
		out = append(out, openai.ChatCompletionToolParam{Function: fn})
	}
	return out
}
