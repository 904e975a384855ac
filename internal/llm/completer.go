// Package llm provides the text-completion collaborator consumed by workflow
// steps. The orchestrator core never sees this package; steps call it and
// translate its answers into events.
package llm

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// Completer produces a free-text completion for a prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ChatClient captures the subset of the go-openai client used by the adapter.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (
		openai.ChatCompletionResponse, error)
}

// Options configures the OpenAI adapter.
type Options struct {
	Client ChatClient
	Model  string
}

// OpenAICompleter implements Completer via the OpenAI Chat Completions API.
type OpenAICompleter struct {
	chat  ChatClient
	model string
}

var _ Completer = (*OpenAICompleter)(nil)

// New builds an OpenAI-backed completer from the provided options.
func New(opts Options) (*OpenAICompleter, error) {
	if opts.Client == nil {
		return nil, errors.New("openai client is required")
	}
	if opts.Model == "" {
		return nil, errors.New("model is required")
	}
	return &OpenAICompleter{chat: opts.Client, model: opts.Model}, nil
}

// NewFromAPIKey constructs a completer using the default go-openai HTTP client.
func NewFromAPIKey(apiKey, model string) (*OpenAICompleter, error) {
	if apiKey == "" {
		return nil, errors.New("api key is required")
	}
	return New(Options{Client: openai.NewClient(apiKey), Model: model})
}

// Complete sends prompt as a single user message and returns the first
// choice's text.
func (c *OpenAICompleter) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.chat.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
