package openai

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"github.com/breeew/otterly-api/pkg/ai"
)

const (
	NAME = "openai"
)

type Driver struct {
	client *openai.Client
	model  ai.ModelName
}

func New(token, proxy string, model ai.ModelName) *Driver {
	cfg := openai.DefaultConfig(token)
	if proxy != "" {
		cfg.BaseURL = proxy
	}

	if model.ChatModel == "" {
		model.ChatModel = openai.GPT4oMini
	}

	return &Driver{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (s *Driver) messages(prompt string) []openai.ChatCompletionMessage {
	return []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleUser,
			Content: prompt,
		},
	}
}

// Generate asks for a JSON object answer; the prompt carries the object contract.
func (s *Driver) Generate(ctx context.Context, prompt string) (ai.GenerateResponse, error) {
	slog.Debug("Generate", slog.String("driver", NAME), slog.String("model", s.model.ChatModel))

	req := openai.ChatCompletionRequest{
		Model:    s.model.ChatModel,
		Messages: s.messages(prompt),
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	var result ai.GenerateResponse
	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return result, fmt.Errorf("Completion error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return result, ai.ERROR_UPSTREAM_EMPTY
	}

	result.Text = resp.Choices[0].Message.Content
	result.Model = resp.Model
	result.Usage = ai.Usage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}
	return result, nil
}

// GenerateStream re-frames the completion stream as `data: {"response": ...}` events.
func (s *Driver) GenerateStream(ctx context.Context, prompt string) (io.ReadCloser, error) {
	req := openai.ChatCompletionRequest{
		Model:    s.model.ChatModel,
		Stream:   true,
		Messages: s.messages(prompt),
	}

	stream, err := s.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Completion error: %w", err)
	}

	slog.Debug("GenerateStream", slog.String("driver", NAME), slog.String("model", s.model.ChatModel))

	var completion int
	recv := func() (string, error) {
		msg, err := stream.Recv()
		if err != nil {
			return "", err
		}
		var text string
		for _, v := range msg.Choices {
			text += v.Delta.Content
		}
		completion += len(text)
		return text, nil
	}

	return ai.PipeStream(ctx, NAME, recv, func() {
		stream.Close()
		slog.Debug("stream finished", slog.String("driver", NAME), slog.Int("completion_chars", completion))
	}), nil
}
