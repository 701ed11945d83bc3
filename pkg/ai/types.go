package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/breeew/otterly-api/pkg/ai/sse"
	"github.com/breeew/otterly-api/pkg/safe"
)

type ModelName struct {
	ChatModel     string
	ClassifyModel string
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

type GenerateResponse struct {
	// Text is the raw model output, for the titled contract a JSON document.
	Text  string
	Model string
	Usage Usage
}

var ERROR_UPSTREAM_EMPTY = errors.New("upstream returned an empty response")

type tokenizer struct {
	once sync.Once
	tkm  *tiktoken.Tiktoken
	err  error
}

// model name -> *tokenizer, loaded once since tiktoken fetches its ranks on first use
var tokenizers sync.Map

// NumTokens estimates the token count of text with the tokenizer of model,
// falling back to cl100k_base for models tiktoken does not know.
func NumTokens(text, model string) (int, error) {
	v, _ := tokenizers.LoadOrStore(model, &tokenizer{})
	t := v.(*tokenizer)
	t.once.Do(func() {
		if t.tkm, t.err = tiktoken.EncodingForModel(model); t.err != nil {
			t.tkm, t.err = tiktoken.GetEncoding("cl100k_base")
		}
	})
	if t.err != nil {
		return 0, t.err
	}
	return len(t.tkm.Encode(text, nil, nil)), nil
}

// Recv is one step of a provider stream. It returns io.EOF once the provider is exhausted.
type Recv func() (string, error)

// PipeStream re-frames a provider specific stream as an event stream made of
// `data: {"response": ...}` frames closed by the sentinel, so every driver hands
// the relay the same wire shape.
func PipeStream(ctx context.Context, driver string, recv Recv, closer func()) io.ReadCloser {
	pr, pw := io.Pipe()
	go safe.Run(func() {
		defer closer()
		defer func() {
			// a panicking provider must not leave the reader blocked
			if r := recover(); r != nil {
				pw.CloseWithError(fmt.Errorf("provider stream panic: %v", r))
				panic(r)
			}
		}()
		for {
			if err := ctx.Err(); err != nil {
				pw.CloseWithError(err)
				return
			}
			chunk, err := recv()
			if errors.Is(err, io.EOF) {
				if err = sse.WriteDone(pw); err != nil {
					pw.CloseWithError(err)
					return
				}
				pw.Close()
				return
			}
			if err != nil {
				slog.Error("provider stream interrupted", slog.String("driver", driver), slog.String("error", err.Error()))
				pw.CloseWithError(err)
				return
			}
			if chunk == "" {
				continue
			}
			if err = sse.WriteChunk(pw, chunk); err != nil {
				// reader went away
				pw.CloseWithError(err)
				return
			}
		}
	})
	return pr
}
