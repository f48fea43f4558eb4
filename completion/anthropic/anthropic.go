// Package anthropic implements the completion capability over the
// Anthropic Messages API.
package anthropic

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
)

// Config holds completer settings.
type Config struct {
	// Model is the Claude model to use.
	// Default: "claude-sonnet-4-20250514".
	Model string

	// MaxTokens bounds the response size. Default: 1024.
	MaxTokens int64
}

// Completer implements completion.Completer using the Anthropic API.
type Completer struct {
	client *anthropic.Client
	config Config
}

// New creates a completer over an existing client. The client is shared,
// externally managed; the completer only borrows it per call.
func New(client *anthropic.Client, config Config) *Completer {
	if config.Model == "" {
		config.Model = "claude-sonnet-4-20250514"
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 1024
	}
	return &Completer{
		client: client,
		config: config,
	}
}

// Complete sends one prompt as a single user message and concatenates the
// text blocks of the response.
func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.config.Model),
		MaxTokens: c.config.MaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API error: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return text, nil
}

// Probe issues a one-token request to verify the capability is usable.
func (c *Completer) Probe(ctx context.Context) error {
	_, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.config.Model),
		MaxTokens: 1,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("ping")),
		},
	})
	if err != nil {
		return fmt.Errorf("anthropic probe: %w", err)
	}
	return nil
}
