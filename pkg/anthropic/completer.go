package anthropic

import (
	"context"

	"github.com/rotisserie/eris"
)

// Completer adapts a Client to the plain prompt-in, text-out call shape
// the classifier consumes, logging token cost per call.
type Completer struct {
	client    Client
	model     string
	maxTokens int64
}

// NewCompleter creates a Completer for the given model.
func NewCompleter(client Client, model string, maxTokens int64) *Completer {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &Completer{client: client, model: model, maxTokens: maxTokens}
}

// Complete sends a single user prompt and returns the raw response text.
func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateMessage(ctx, MessageRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []Message{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", eris.Wrap(err, "anthropic: complete")
	}

	resp.Usage.LogCost(c.model, "classify")
	return resp.Text(), nil
}
