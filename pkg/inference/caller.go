// Package inference provides the model caller used by the orchestration
// loop. It speaks the OpenAI chat completions protocol, which also
// covers the many providers exposing a compatible endpoint behind a
// custom base URL.
package inference

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	go_openai "github.com/sashabaranov/go-openai"

	"github.com/go-go-golems/mangiafuoco/pkg/orchestrator"
)

// ModelError wraps a failed completion request so callers can tell a
// transport or provider failure apart from local errors.
type ModelError struct {
	Model string
	Err   error
}

func (e *ModelError) Error() string {
	return "model " + e.Model + ": " + e.Err.Error()
}

func (e *ModelError) Unwrap() error { return e.Err }

// OpenAICaller implements orchestrator.ModelCaller over an
// OpenAI-compatible chat completions API.
type OpenAICaller struct {
	settings *Settings
	client   *go_openai.Client
}

// MakeClient builds a go-openai client from the settings. A base URL
// override points the client at a compatible third-party endpoint.
func MakeClient(settings *Settings) (*go_openai.Client, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	config := go_openai.DefaultConfig(settings.APIKey)
	if settings.BaseURL != "" {
		config.BaseURL = settings.BaseURL
	}
	return go_openai.NewClientWithConfig(config), nil
}

func NewOpenAICaller(settings *Settings) (*OpenAICaller, error) {
	client, err := MakeClient(settings)
	if err != nil {
		return nil, err
	}
	return &OpenAICaller{settings: settings, client: client}, nil
}

// Complete issues one chat completion request and returns the assistant
// message content.
func (c *OpenAICaller) Complete(ctx context.Context, messages []orchestrator.Message) (string, error) {
	if len(messages) == 0 {
		return "", errors.New("no messages to send")
	}

	if c.settings.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.settings.Timeout)
		defer cancel()
	}

	req := go_openai.ChatCompletionRequest{
		Model:       c.settings.Model,
		Temperature: c.settings.Temperature,
		MaxTokens:   c.settings.MaxTokens,
		Messages:    makeChatMessages(messages),
	}

	log.Debug().
		Str("model", c.settings.Model).
		Int("num_messages", len(req.Messages)).
		Msg("Sending chat completion request")

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", &ModelError{Model: c.settings.Model, Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &ModelError{Model: c.settings.Model, Err: errors.New("response contained no choices")}
	}

	content := resp.Choices[0].Message.Content
	log.Debug().
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Str("finish_reason", string(resp.Choices[0].FinishReason)).
		Msg("Chat completion received")

	return content, nil
}

func makeChatMessages(messages []orchestrator.Message) []go_openai.ChatCompletionMessage {
	out := make([]go_openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, go_openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}
	return out
}

var _ orchestrator.ModelCaller = (*OpenAICaller)(nil)
