package llm

import (
	"context"
	"errors"

	"github.com/avvvet/storebuddy/internal/models"
)

// ErrEmptyResponse is returned when the model produced no choices.
var ErrEmptyResponse = errors.New("llm returned no choices")

// Provider defines the interface for LLM providers
type Provider interface {
	Generate(ctx context.Context, request *LLMRequest) (*LLMResponse, error)
}

// LLMRequest represents the structured request to LLM
type LLMRequest struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
	Tools       []Tool
}

// Tool is a function the model may ask us to call
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// LLMResponse represents the raw response from LLM
type LLMResponse struct {
	Content   string
	ToolCalls []models.FunctionCall
	Usage     *Usage
}

type Usage struct {
	InputTokens  int
	OutputTokens int
}
