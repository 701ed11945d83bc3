package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/breeew/otterly-api/pkg/ai"
)

const (
	NAME = "gemini"

	DEFAULT_CHAT_MODEL = "gemini-1.5-flash"
)

type Driver struct {
	client *genai.Client
	model  ai.ModelName
}

func New(ctx context.Context, token string, model ai.ModelName) (*Driver, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(token))
	if err != nil {
		return nil, fmt.Errorf("Failed to create gemini client: %w", err)
	}
	if model.ChatModel == "" {
		model.ChatModel = DEFAULT_CHAT_MODEL
	}
	return &Driver{
		client: client,
		model:  model,
	}, nil
}

func partsText(content *genai.Content) string {
	if content == nil {
		return ""
	}
	b := strings.Builder{}
	for _, p := range content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String()
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	return partsText(resp.Candidates[0].Content)
}

func (s *Driver) Generate(ctx context.Context, prompt string) (ai.GenerateResponse, error) {
	slog.Debug("Generate", slog.String("driver", NAME), slog.String("model", s.model.ChatModel))

	model := s.client.GenerativeModel(s.model.ChatModel)
	model.ResponseMIMEType = "application/json"

	var result ai.GenerateResponse
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return result, fmt.Errorf("Gemini generate error: %w", err)
	}

	result.Text = responseText(resp)
	if result.Text == "" {
		return result, ai.ERROR_UPSTREAM_EMPTY
	}
	result.Model = s.model.ChatModel
	if resp.UsageMetadata != nil {
		result.Usage = ai.Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	return result, nil
}

func (s *Driver) GenerateStream(ctx context.Context, prompt string) (io.ReadCloser, error) {
	slog.Debug("GenerateStream", slog.String("driver", NAME), slog.String("model", s.model.ChatModel))

	iter := s.client.GenerativeModel(s.model.ChatModel).GenerateContentStream(ctx, genai.Text(prompt))
	recv := func() (string, error) {
		resp, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return "", io.EOF
		}
		if err != nil {
			return "", err
		}
		return responseText(resp), nil
	}
	return ai.PipeStream(ctx, NAME, recv, func() {}), nil
}

func (s *Driver) Close() error {
	return s.client.Close()
}
