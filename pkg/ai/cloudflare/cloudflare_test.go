package cloudflare_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/breeew/otterly-api/pkg/ai"
	"github.com/breeew/otterly-api/pkg/ai/cloudflare"
)

func init() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})))
}

type captured struct {
	path   string
	auth   string
	prompt string
	stream bool
}

func newUpstream(t *testing.T, status int, body string, c *captured) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Prompt string `json:"prompt"`
			Stream bool   `json:"stream"`
		}
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &req)
		if c != nil {
			c.path = r.URL.Path
			c.auth = r.Header.Get("Authorization")
			c.prompt = req.Prompt
			c.stream = req.Stream
		}
		if req.Stream {
			w.Header().Set("Content-Type", "text/event-stream")
		} else {
			w.Header().Set("Content-Type", "application/json")
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func Test_Generate(t *testing.T) {
	c := &captured{}
	srv := newUpstream(t, http.StatusOK, `{"result":{"response":"{\"title\":\"T\",\"reply\":\"R\"}"},"success":true}`, c)
	defer srv.Close()

	d := cloudflare.New("acc-1", "secret-token", srv.URL, ai.ModelName{ChatModel: "@cf/meta/llama"})
	resp, err := d.Generate(context.Background(), "hello oto")
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, `{"title":"T","reply":"R"}`, resp.Text)
	assert.Equal(t, "/accounts/acc-1/ai/run/@cf/meta/llama", c.path)
	assert.Equal(t, "Bearer secret-token", c.auth)
	assert.Equal(t, "hello oto", c.prompt)
	assert.False(t, c.stream)
}

func Test_GenerateObjectResponse(t *testing.T) {
	srv := newUpstream(t, http.StatusOK, `{"result":{"response":{"title":"T","reply":"R"}},"success":true}`, nil)
	defer srv.Close()

	d := cloudflare.New("acc", "token", srv.URL, ai.ModelName{})
	resp, err := d.Generate(context.Background(), "p")
	if err != nil {
		t.Fatal(err)
	}
	assert.JSONEq(t, `{"title":"T","reply":"R"}`, resp.Text)
}

func Test_GenerateUpstreamError(t *testing.T) {
	srv := newUpstream(t, http.StatusUnauthorized, `{"success":false,"errors":[{"code":10000,"message":"Authentication error"}]}`, nil)
	defer srv.Close()

	d := cloudflare.New("acc", "bad", srv.URL, ai.ModelName{})
	_, err := d.Generate(context.Background(), "p")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "Authentication error")
	assert.NotContains(t, err.Error(), "bad")
}

func Test_GenerateStream(t *testing.T) {
	c := &captured{}
	payload := "data: {\"response\":\"Hel\"}\n\ndata: {\"response\":\"lo\"}\n\ndata: [DONE]\n\n"
	srv := newUpstream(t, http.StatusOK, payload, c)
	defer srv.Close()

	d := cloudflare.New("acc", "token", srv.URL, ai.ModelName{})
	body, err := d.GenerateStream(context.Background(), "p")
	if err != nil {
		t.Fatal(err)
	}
	defer body.Close()

	raw, err := io.ReadAll(body)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, payload, string(raw))
	assert.True(t, c.stream)
}

func Test_GenerateStreamUpstreamError(t *testing.T) {
	srv := newUpstream(t, http.StatusInternalServerError, `oops`, nil)
	defer srv.Close()

	d := cloudflare.New("acc", "token", srv.URL, ai.ModelName{})
	_, err := d.GenerateStream(context.Background(), "p")
	assert.Error(t, err)
}

func Test_Classify(t *testing.T) {
	srv := newUpstream(t, http.StatusOK, `{"result":[{"label":"NEGATIVE","score":0.1},{"label":"POSITIVE","score":0.9}],"success":true}`, nil)
	defer srv.Close()

	d := cloudflare.New("acc", "token", srv.URL, ai.ModelName{})
	labels, err := d.Classify(context.Background(), "I feel great")
	if err != nil {
		t.Fatal(err)
	}
	assert.Len(t, labels, 2)
	assert.Equal(t, "POSITIVE", labels[0].Label)
}
