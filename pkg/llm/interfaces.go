// Package llm wraps the chat-completion providers used to flag clearance risks.
package llm

import (
	"context"
)

// Client generates a single chat completion.
// Use this interface for dependency injection to enable mocking in tests.
type Client interface {
	// GenerateResponse sends one system message and one user prompt.
	GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (*GenerateResponseResult, error)

	// GetModel returns the configured model name.
	GetModel() string
}

// GenerateResponseResult is the completion text plus token usage.
type GenerateResponseResult struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

var (
	_ Client = (*OpenAIClient)(nil)
	_ Client = (*AnthropicClient)(nil)
)
