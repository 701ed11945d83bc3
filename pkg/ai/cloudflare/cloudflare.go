package cloudflare

// provider for https://developers.cloudflare.com/workers-ai/
// - reply (buffered / stream)
// - classify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/breeew/otterly-api/pkg/ai"
	"github.com/breeew/otterly-api/pkg/types"
)

const (
	NAME = "cloudflare"

	DEFAULT_ENDPOINT       = "https://api.cloudflare.com/client/v4"
	DEFAULT_CHAT_MODEL     = "@cf/meta/llama-3-8b-instruct"
	DEFAULT_CLASSIFY_MODEL = "@cf/huggingface/distilbert-sst-2-int8"
)

type Driver struct {
	client    *resty.Client
	accountID string
	model     ai.ModelName
}

func New(accountID, token, endpoint string, model ai.ModelName) *Driver {
	if endpoint == "" {
		endpoint = DEFAULT_ENDPOINT
	}
	if model.ChatModel == "" {
		model.ChatModel = DEFAULT_CHAT_MODEL
	}
	if model.ClassifyModel == "" {
		model.ClassifyModel = DEFAULT_CLASSIFY_MODEL
	}

	c := resty.New().
		SetBaseURL(strings.TrimSuffix(endpoint, "/")).
		SetAuthToken(token).
		SetHeader("Content-Type", "application/json")

	return &Driver{
		client:    c,
		accountID: accountID,
		model:     model,
	}
}

func (s *Driver) runPath(model string) string {
	return fmt.Sprintf("/accounts/%s/ai/run/%s", s.accountID, model)
}

type runRequest struct {
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type apiMessage struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type runResponse struct {
	Result struct {
		Response json.RawMessage `json:"response"`
	} `json:"result"`
	Success bool         `json:"success"`
	Errors  []apiMessage `json:"errors"`
}

func upstreamError(status int, body []byte) error {
	var r struct {
		Errors []apiMessage `json:"errors"`
	}
	if err := json.Unmarshal(body, &r); err == nil && len(r.Errors) > 0 {
		return fmt.Errorf("cloudflare status %d: %s", status, r.Errors[0].Message)
	}
	return fmt.Errorf("cloudflare status %d", status)
}

// Generate runs the chat model once and returns the model's response string.
// Newer models may answer a JSON prompt with an object instead of a string,
// which is returned as its JSON text.
func (s *Driver) Generate(ctx context.Context, prompt string) (ai.GenerateResponse, error) {
	slog.Debug("Generate", slog.String("driver", NAME), slog.String("model", s.model.ChatModel))

	var result ai.GenerateResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(runRequest{Prompt: prompt}).
		Post(s.runPath(s.model.ChatModel))
	if err != nil {
		return result, fmt.Errorf("Failed to request cloudflare ai: %w", err)
	}
	if resp.IsError() {
		return result, upstreamError(resp.StatusCode(), resp.Body())
	}

	var r runResponse
	if err = json.Unmarshal(resp.Body(), &r); err != nil {
		return result, fmt.Errorf("decode cloudflare response: %w", err)
	}
	if !r.Success && len(r.Errors) > 0 {
		return result, fmt.Errorf("cloudflare error: %s", r.Errors[0].Message)
	}

	raw := strings.TrimSpace(string(r.Result.Response))
	if raw == "" || raw == "null" {
		return result, ai.ERROR_UPSTREAM_EMPTY
	}
	if strings.HasPrefix(raw, `"`) {
		if err = json.Unmarshal(r.Result.Response, &result.Text); err != nil {
			return result, fmt.Errorf("decode cloudflare response string: %w", err)
		}
	} else {
		result.Text = raw
	}
	result.Model = s.model.ChatModel
	return result, nil
}

// GenerateStream returns the upstream event stream body untouched. The caller owns the body.
func (s *Driver) GenerateStream(ctx context.Context, prompt string) (io.ReadCloser, error) {
	slog.Debug("GenerateStream", slog.String("driver", NAME), slog.String("model", s.model.ChatModel))

	resp, err := s.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		SetHeader("Accept", "text/event-stream").
		SetBody(runRequest{Prompt: prompt, Stream: true}).
		Post(s.runPath(s.model.ChatModel))
	if err != nil {
		return nil, fmt.Errorf("Failed to request cloudflare ai stream: %w", err)
	}

	body := resp.RawBody()
	if body == nil {
		return nil, ai.ERROR_UPSTREAM_EMPTY
	}
	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		defer body.Close()
		raw, _ := io.ReadAll(io.LimitReader(body, 4096))
		return nil, upstreamError(resp.StatusCode(), raw)
	}
	return body, nil
}

type classifyResponse struct {
	Result  []types.EmotionLabel `json:"result"`
	Success bool                 `json:"success"`
	Errors  []apiMessage         `json:"errors"`
}

// Classify runs the text classification model, labels sorted by score.
func (s *Driver) Classify(ctx context.Context, text string) ([]types.EmotionLabel, error) {
	slog.Debug("Classify", slog.String("driver", NAME), slog.String("model", s.model.ClassifyModel))

	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"text": text}).
		Post(s.runPath(s.model.ClassifyModel))
	if err != nil {
		return nil, fmt.Errorf("Failed to request cloudflare classify: %w", err)
	}
	if resp.IsError() {
		return nil, upstreamError(resp.StatusCode(), resp.Body())
	}

	var r classifyResponse
	if err = json.Unmarshal(resp.Body(), &r); err != nil {
		return nil, fmt.Errorf("decode cloudflare classify response: %w", err)
	}
	if !r.Success && len(r.Errors) > 0 {
		return nil, fmt.Errorf("cloudflare error: %s", r.Errors[0].Message)
	}

	sort.SliceStable(r.Result, func(i, j int) bool {
		return r.Result[i].Score > r.Result[j].Score
	})
	return r.Result, nil
}
