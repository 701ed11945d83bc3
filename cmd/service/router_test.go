package service_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"os"
	"path/filepath"
	"testing"
	"testing/iotest"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/breeew/otterly-api/cmd/service"
	"github.com/breeew/otterly-api/internal/core"
	"github.com/breeew/otterly-api/internal/core/srv"
	"github.com/breeew/otterly-api/internal/plugins"
	"github.com/breeew/otterly-api/internal/store/memstore"
	"github.com/breeew/otterly-api/pkg/ai"
	"github.com/breeew/otterly-api/pkg/security"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const upstream = "data: {\"response\":\"Hello\"}\n\ndata: {\"response\":\" world\"}\n\ndata: [DONE]\n\n"

type driver struct {
	text   string
	stream string
	err    error
	// cut, when set, fails the stream after it was sent
	cut error
}

func (d *driver) Generate(ctx context.Context, prompt string) (ai.GenerateResponse, error) {
	return ai.GenerateResponse{Text: d.text}, d.err
}

func (d *driver) GenerateStream(ctx context.Context, prompt string) (io.ReadCloser, error) {
	if d.err != nil {
		return nil, d.err
	}
	if d.cut != nil {
		return io.NopCloser(io.MultiReader(strings.NewReader(d.stream), iotest.ErrReader(d.cut))), nil
	}
	return io.NopCloser(strings.NewReader(d.stream)), nil
}

func setupEngine(t *testing.T, d *driver, contract string) *gin.Engine {
	cfg, err := core.LoadBaseConfig([]byte(fmt.Sprintf(`
[security]
jwt_secret = "router-secret"

[reply]
contract = %q
`, contract)))
	if err != nil {
		t.Fatal(err)
	}
	c := core.NewCore(cfg, memstore.New(), srv.SetupSrvs(
		srv.ApplyAIDriver(srv.NewAIWithDrivers(map[string]any{"fake": d}, "fake")),
		srv.ApplyEmotion(),
	))
	plugins.Setup(c.InstallPlugins, "selfhost")
	return service.SetupHttpEngine(c)
}

type envelope struct {
	Meta struct {
		Code      int    `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id"`
	} `json:"meta"`
	Data json.RawMessage `json:"data"`
}

func do(e *gin.Engine, method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data any) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("not an envelope: %s", w.Body.String())
	}
	if data != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, data); err != nil {
			t.Fatal(err)
		}
	}
	return env
}

func signup(t *testing.T, e *gin.Engine) string {
	w := do(e, http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"email":    "robin@otterly.test",
		"password": "hunter22",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("signup failed: %s", w.Body.String())
	}
	var res struct {
		Token string `json:"token"`
	}
	decode(t, w, &res)
	return res.Token
}

var replyBody = map[string]any{
	"currentEntry": "I finished my first 5k run!",
	"aspirations":  []string{"get fit"},
	"history":      []string{},
}

func Test_ReplyStream(t *testing.T) {
	e := setupEngine(t, &driver{stream: upstream}, "stream")
	token := signup(t, e)

	w := do(e, http.MethodPost, "/api/reply", token, replyBody)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, upstream, w.Body.String())
}

func Test_ReplyBuffered(t *testing.T) {
	e := setupEngine(t, &driver{text: `{"title":"First Run Done","reply":"Amazing work!"}`}, "buffered")
	token := signup(t, e)

	w := do(e, http.MethodPost, "/api/reply", token, replyBody)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"title":"First Run Done","reply":"Amazing work!"}`, w.Body.String())
}

func Test_ReplyFailures(t *testing.T) {
	for name, tc := range map[string]struct {
		driver   *driver
		contract string
		body     any
	}{
		"upstream stream":   {driver: &driver{err: fmt.Errorf("status 500")}, contract: "stream", body: replyBody},
		"upstream buffered": {driver: &driver{err: fmt.Errorf("status 500")}, contract: "buffered", body: replyBody},
		"malformed":         {driver: &driver{text: "Hello there"}, contract: "buffered", body: replyBody},
		"bad request":       {driver: &driver{stream: upstream}, contract: "stream", body: map[string]any{"history": []string{}}},
	} {
		t.Run(name, func(t *testing.T) {
			e := setupEngine(t, tc.driver, tc.contract)
			token := signup(t, e)

			w := do(e, http.MethodPost, "/api/reply", token, tc.body)
			assert.Equal(t, http.StatusInternalServerError, w.Code)
			assert.Equal(t, "Error generating reply.", w.Body.String())
			assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/plain"))
		})
	}
}

func Test_ReplyRequiresSession(t *testing.T) {
	e := setupEngine(t, &driver{stream: upstream}, "stream")

	w := do(e, http.MethodPost, "/api/reply", "", replyBody)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	env := decode(t, w, nil)
	assert.Equal(t, http.StatusUnauthorized, env.Meta.Code)
	assert.NotEmpty(t, env.Meta.RequestID)

	w = do(e, http.MethodPost, "/api/reply", "not-a-token", replyBody)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func Test_EntryStreamEndpoint(t *testing.T) {
	e := setupEngine(t, &driver{stream: upstream}, "stream")
	token := signup(t, e)

	w := do(e, http.MethodPost, "/api/v1/journal/entry/stream", token, map[string]string{"content": "ran 5k"})
	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	t.Log(body)

	assert.True(t, strings.HasPrefix(body, "data: {\"response\":\"Hello\"}\n\ndata: {\"response\":\" world\"}\n\n"))
	assert.Contains(t, body, "event:done\n")
	assert.Contains(t, body, `"reply":"Hello world"`)
	assert.True(t, strings.HasSuffix(body, "data: [DONE]\n\n"))

	w = do(e, http.MethodGet, "/api/v1/journal/entry/list", token, nil)
	var list []struct {
		Content  string `json:"content"`
		OtoReply string `json:"oto_reply"`
	}
	decode(t, w, &list)
	if assert.Len(t, list, 1) {
		assert.Equal(t, "Hello world", list[0].OtoReply)
	}
}

func Test_EntryEndpointErrors(t *testing.T) {
	e := setupEngine(t, &driver{err: fmt.Errorf("down")}, "stream")
	token := signup(t, e)

	w := do(e, http.MethodPost, "/api/v1/journal/entry/stream", token, map[string]string{"content": "  "}, "Accept-Language", "zh-CN")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "请先写点什么再提交。", decode(t, w, nil).Meta.Message)

	// nothing streamed yet, the failure is a regular json error
	w = do(e, http.MethodPost, "/api/v1/journal/entry/stream", token, map[string]string{"content": "hello"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Oto is feeling a bit tired. Please try again.", decode(t, w, nil).Meta.Message)

	w = do(e, http.MethodPost, "/api/v1/journal/entry", token, map[string]string{"content": "hello"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Oto is feeling a bit tired. Please try again.", decode(t, w, nil).Meta.Message)
}

func Test_JournalEndpoints(t *testing.T) {
	e := setupEngine(t, &driver{text: `{"title":"t","reply":"r"}`}, "buffered")
	token := signup(t, e)

	w := do(e, http.MethodGet, "/api/v1/journal/active", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "null", string(decode(t, w, nil).Data))

	w = do(e, http.MethodPost, "/api/v1/journal", token, map[string]string{"title": "Volume One"})
	assert.Equal(t, http.StatusOK, w.Code)
	var journal struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	decode(t, w, &journal)
	assert.Equal(t, "active", journal.Status)

	w = do(e, http.MethodPost, "/api/v1/journal", token, map[string]string{"title": "Volume Two"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(e, http.MethodPost, "/api/v1/journal/entry", token, map[string]string{"content": "hello"})
	assert.Equal(t, http.StatusOK, w.Code)
	var submitted struct {
		EntryID string `json:"entry_id"`
		Title   string `json:"title"`
		Reply   string `json:"reply"`
	}
	decode(t, w, &submitted)
	assert.Equal(t, "r", submitted.Reply)

	w = do(e, http.MethodGet, "/api/v1/journal/entry/"+submitted.EntryID, token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(e, http.MethodPut, "/api/v1/journal/"+journal.ID+"/conclude", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(e, http.MethodGet, "/api/v1/journal/"+journal.ID+"/entries", token, nil)
	var entries []json.RawMessage
	decode(t, w, &entries)
	assert.Len(t, entries, 1)
}

func Test_UserEndpoints(t *testing.T) {
	e := setupEngine(t, &driver{}, "stream")
	token := signup(t, e)

	w := do(e, http.MethodPost, "/api/v1/auth/signup", "", map[string]string{"email": "robin@otterly.test", "password": "hunter22"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(e, http.MethodPost, "/api/v1/auth/signin", "", map[string]string{"email": "robin@otterly.test", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(e, http.MethodPut, "/api/v1/user/onboarding", token, map[string]any{
		"name": "Robin", "age": 30, "gender": "female", "aspirations": []string{"get fit"},
	})
	assert.Equal(t, http.StatusOK, w.Code)
	var info struct {
		OnboardingDone bool   `json:"onboarding_done"`
		ServiceMode    string `json:"service_mode"`
	}
	decode(t, w, &info)
	assert.True(t, info.OnboardingDone)
	assert.Equal(t, "selfhost", info.ServiceMode)

	w = do(e, http.MethodPut, "/api/v1/user/onboarding", token, map[string]any{
		"name": "Robin", "aspirations": []string{"again"},
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(e, http.MethodPost, "/api/v1/emotion/analyze", token, map[string]string{"text": "great day"})
	assert.Equal(t, http.StatusOK, w.Code)
	var emotion struct {
		Loaded bool              `json:"loaded"`
		Labels []json.RawMessage `json:"labels"`
	}
	decode(t, w, &emotion)
	assert.False(t, emotion.Loaded)
	assert.Empty(t, emotion.Labels)
}

func Test_ModeAndMetrics(t *testing.T) {
	e := setupEngine(t, &driver{stream: upstream}, "stream")
	token := signup(t, e)
	do(e, http.MethodPost, "/api/reply", token, replyBody)

	w := do(e, http.MethodGet, "/api/v1/mode", "", nil)
	assert.Equal(t, `"selfhost"`, string(decode(t, w, nil).Data))

	w = do(e, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `otterly_api_core_relay_requests_total{contract="stream",driver="fake",status="ok"} 1`)
}

func Test_ReplyStreamCutOff(t *testing.T) {
	frame := "data: {\"response\":\"Hello\"}\n\n"
	e := setupEngine(t, &driver{stream: frame, cut: fmt.Errorf("connection reset by peer")}, "stream")
	token := signup(t, e)

	w := do(e, http.MethodPost, "/api/reply", token, replyBody)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, frame, w.Body.String())

	w = do(e, http.MethodGet, "/metrics", "", nil)
	assert.Contains(t, w.Body.String(), `otterly_api_core_relay_requests_total{contract="stream",driver="fake",status="error"} 1`)
	assert.NotContains(t, w.Body.String(), `status="ok"`)
}

func Test_ReplyHasNoServerRateLimit(t *testing.T) {
	e := setupEngine(t, &driver{stream: upstream}, "stream")
	token := signup(t, e)

	for i := 0; i < 80; i++ {
		w := do(e, http.MethodPost, "/api/reply", token, replyBody)
		if !assert.Equal(t, http.StatusOK, w.Code, "request %d", i) {
			return
		}
	}
}

func Test_TokenSignedWithoutSecretIsRefused(t *testing.T) {
	cfg, err := core.LoadBaseConfig([]byte(`addr = ":0"`))
	if err != nil {
		t.Fatal(err)
	}
	c := core.NewCore(cfg, memstore.New(), srv.SetupSrvs(
		srv.ApplyAIDriver(srv.NewAIWithDrivers(map[string]any{"fake": &driver{stream: upstream}}, "fake")),
	))
	plugins.Setup(c.InstallPlugins, "selfhost")
	e := service.SetupHttpEngine(c)

	claims := security.NewTokenClaims(c.DefaultAppid(), "otterly", "victim", time.Now().Add(time.Hour).Unix())
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(""))
	if err != nil {
		t.Fatal(err)
	}

	w := do(e, http.MethodGet, "/api/v1/journal/entry/list", forged, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(e, http.MethodPost, "/api/reply", forged, replyBody)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func Test_RunRequiresSecret(t *testing.T) {
	path := filepath.Join(t.TempDir(), "otterly.toml")
	if err := os.WriteFile(path, []byte("addr = \":0\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	err := service.Run(&service.Options{ConfigPath: path, Init: "selfhost"})
	assert.ErrorContains(t, err, "jwt_secret")
}
