package llm

import (
	"context"
	"fmt"

	"github.com/avvvet/storebuddy/internal/models"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
)

// AnthropicProvider talks to Claude through langchaingo
type AnthropicProvider struct {
	model  string
	client llms.Model
}

func NewAnthropicProvider(apiKey, model string) (*AnthropicProvider, error) {
	client, err := anthropic.New(
		anthropic.WithToken(apiKey),
		anthropic.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create anthropic client: %w", err)
	}
	return &AnthropicProvider{model: model, client: client}, nil
}

func (a *AnthropicProvider) Generate(ctx context.Context, request *LLMRequest) (*LLMResponse, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, request.System),
		llms.TextParts(llms.ChatMessageTypeHuman, request.Prompt),
	}

	opts := []llms.CallOption{
		llms.WithMaxTokens(request.MaxTokens),
		llms.WithTemperature(request.Temperature),
	}
	if len(request.Tools) > 0 {
		tools := make([]llms.Tool, 0, len(request.Tools))
		for _, t := range request.Tools {
			tools = append(tools, llms.Tool{
				Type: "function",
				Function: &llms.FunctionDefinition{
					Name:        t.Name,
					Description: t.Description,
					Parameters:  t.Parameters,
				},
			})
		}
		opts = append(opts, llms.WithTools(tools))
	}

	resp, err := a.client.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return nil, fmt.Errorf("anthropic generate: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	out := &LLMResponse{}
	for _, choice := range resp.Choices {
		out.Content += choice.Content
		for _, tc := range choice.ToolCalls {
			if tc.FunctionCall == nil {
				continue
			}
			out.ToolCalls = append(out.ToolCalls, models.FunctionCall{
				Name:      tc.FunctionCall.Name,
				Arguments: tc.FunctionCall.Arguments,
			})
		}
	}
	return out, nil
}
