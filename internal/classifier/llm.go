package classifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/avvvet/storebuddy/internal/llm"
	"github.com/avvvet/storebuddy/internal/models"
	"github.com/avvvet/storebuddy/internal/prompts"
	"go.uber.org/zap"
)

// LLM implements Classifier on top of an llm.Provider
type LLM struct {
	provider    llm.Provider
	maxTokens   int
	temperature float64
	logger      *zap.Logger
}

// Option configures the LLM classifier.
type Option func(*LLM)

// WithLogger configures a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *LLM) { c.logger = logger }
}

// WithSampling overrides max tokens and temperature.
func WithSampling(maxTokens int, temperature float64) Option {
	return func(c *LLM) {
		c.maxTokens = maxTokens
		c.temperature = temperature
	}
}

func NewLLM(provider llm.Provider, opts ...Option) *LLM {
	c := &LLM{
		provider:    provider,
		maxTokens:   1000,
		temperature: 0.1, // Low temperature for consistent responses
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *LLM) Classify(ctx context.Context, message string, history []models.Message, catalog []models.Product) (models.Classification, error) {
	resp, err := c.call(ctx, &llm.LLMRequest{
		System: prompts.ClassifySystemPrompt,
		Prompt: prompts.BuildClassifyPrompt(message, history, catalog),
		Tools: []llm.Tool{{
			Name:        CreateOrderFunction,
			Description: "Create a confirmed order and deduct stock",
			Parameters:  OrderTool(),
		}},
	})
	if err != nil {
		return models.Unclassified(), err
	}

	for _, call := range resp.ToolCalls {
		if call.Name == CreateOrderFunction {
			call := call
			return models.Classification{Intent: models.IntentPurchase, Call: &call}, nil
		}
	}

	result, dropped, err := prompts.ParseClassification(resp.Content)
	if err != nil {
		c.logger.Warn("failed to parse classification",
			zap.String("session_id", SessionIDFrom(ctx)), zap.Error(err))
		return models.Unclassified(), fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	if len(dropped) > 0 {
		c.logger.Debug("dropped uncoercible entities",
			zap.String("session_id", SessionIDFrom(ctx)), zap.Strings("keys", dropped))
	}
	return result, nil
}

func (c *LLM) Answer(ctx context.Context, message string, history []models.Message, catalog []models.Product) (string, error) {
	return c.text(ctx, prompts.AnswerSystemPrompt, prompts.BuildAnswerPrompt(message, history, catalog))
}

func (c *LLM) Redirect(ctx context.Context, message string, history []models.Message, catalog []models.Product) (string, error) {
	return c.text(ctx, prompts.RedirectSystemPrompt, prompts.BuildAnswerPrompt(message, history, catalog))
}

func (c *LLM) PickSuggestion(ctx context.Context, request string, candidates []string) (string, error) {
	content, err := c.text(ctx, prompts.SuggestSystemPrompt, prompts.BuildSuggestPrompt(request, candidates))
	if err != nil {
		return "", err
	}
	return nonEmptyName(content)
}

func (c *LLM) CompleteName(ctx context.Context, fuzzy string, names []string) (string, error) {
	content, err := c.text(ctx, prompts.CompleteNameSystemPrompt, prompts.BuildCompleteNamePrompt(fuzzy, names))
	if err != nil {
		return "", err
	}
	return nonEmptyName(content)
}

func (c *LLM) LastMentioned(ctx context.Context, history []models.Message) (string, error) {
	content, err := c.text(ctx, prompts.LastMentionedSystemPrompt, prompts.BuildLastMentionedPrompt(history))
	if err != nil {
		return "", err
	}
	name, err := prompts.ParseLastMentioned(content)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return name, nil
}

func (c *LLM) text(ctx context.Context, system, prompt string) (string, error) {
	resp, err := c.call(ctx, &llm.LLMRequest{System: system, Prompt: prompt})
	if err != nil {
		return "", err
	}
	content := strings.TrimSpace(resp.Content)
	if content == "" {
		return "", fmt.Errorf("%w: empty reply", ErrMalformedOutput)
	}
	return content, nil
}

func (c *LLM) call(ctx context.Context, request *llm.LLMRequest) (*llm.LLMResponse, error) {
	request.MaxTokens = c.maxTokens
	request.Temperature = c.temperature

	resp, err := c.provider.Generate(ctx, request)
	if err != nil {
		c.logger.Warn("llm call failed",
			zap.String("session_id", SessionIDFrom(ctx)), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.Usage != nil {
		c.logger.Debug("llm call",
			zap.String("session_id", SessionIDFrom(ctx)),
			zap.Int("input_tokens", resp.Usage.InputTokens),
			zap.Int("output_tokens", resp.Usage.OutputTokens))
	}
	return resp, nil
}

func nonEmptyName(content string) (string, error) {
	name := prompts.CleanName(content)
	if name == "" {
		return "", fmt.Errorf("%w: empty name", ErrMalformedOutput)
	}
	return name, nil
}
