package v1_test

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/breeew/otterly-api/internal/core"
	"github.com/breeew/otterly-api/internal/core/srv"
	v1 "github.com/breeew/otterly-api/internal/logic/v1"
	"github.com/breeew/otterly-api/internal/plugins"
	"github.com/breeew/otterly-api/internal/store"
	"github.com/breeew/otterly-api/internal/store/memstore"
	"github.com/breeew/otterly-api/pkg/ai"
	"github.com/breeew/otterly-api/pkg/errors"
	"github.com/breeew/otterly-api/pkg/security"
	"github.com/breeew/otterly-api/pkg/types"
)

const helloStream = "data: {\"response\":\"Hello\"}\n\n" +
	"data: {\"response\":\" world\"}\n\n" +
	"data: [DONE]\n\n"

// fakeDriver plays the language model. Every call is recorded.
type fakeDriver struct {
	mu      sync.Mutex
	prompts []string

	generateCalls int32
	streamCalls   int32

	text     string
	usage    ai.Usage
	stream   string
	body     func() io.Reader
	err      error
	onStream func()
	labels   []types.EmotionLabel
	started  chan struct{}
	unblock  chan struct{}
}

func (d *fakeDriver) record(prompt string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.prompts = append(d.prompts, prompt)
}

func (d *fakeDriver) lastPrompt() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.prompts) == 0 {
		return ""
	}
	return d.prompts[len(d.prompts)-1]
}

func (d *fakeDriver) Generate(ctx context.Context, prompt string) (ai.GenerateResponse, error) {
	atomic.AddInt32(&d.generateCalls, 1)
	d.record(prompt)
	if d.started != nil {
		d.started <- struct{}{}
		<-d.unblock
	}
	if d.err != nil {
		return ai.GenerateResponse{}, d.err
	}
	return ai.GenerateResponse{Text: d.text, Model: "fake", Usage: d.usage}, nil
}

func (d *fakeDriver) GenerateStream(ctx context.Context, prompt string) (io.ReadCloser, error) {
	atomic.AddInt32(&d.streamCalls, 1)
	d.record(prompt)
	if d.onStream != nil {
		d.onStream()
	}
	if d.err != nil {
		return nil, d.err
	}
	if d.body != nil {
		return io.NopCloser(d.body()), nil
	}
	return io.NopCloser(strings.NewReader(d.stream)), nil
}

func (d *fakeDriver) Classify(ctx context.Context, text string) ([]types.EmotionLabel, error) {
	return append([]types.EmotionLabel{}, d.labels...), nil
}

func (d *fakeDriver) calls() int32 {
	return atomic.LoadInt32(&d.generateCalls) + atomic.LoadInt32(&d.streamCalls)
}

// replyOnly exposes no Classify, the emotion classifier stays unloaded.
type replyOnly struct {
	d *fakeDriver
}

func (r replyOnly) Generate(ctx context.Context, prompt string) (ai.GenerateResponse, error) {
	return r.d.Generate(ctx, prompt)
}

func (r replyOnly) GenerateStream(ctx context.Context, prompt string) (io.ReadCloser, error) {
	return r.d.GenerateStream(ctx, prompt)
}

type countingEntries struct {
	store.JournalEntryStore
	creates int32
	updates int32
}

func (c *countingEntries) Create(ctx context.Context, data types.JournalEntry) error {
	atomic.AddInt32(&c.creates, 1)
	return c.JournalEntryStore.Create(ctx, data)
}

func (c *countingEntries) UpdateReply(ctx context.Context, userID, id, title, reply string) error {
	atomic.AddInt32(&c.updates, 1)
	return c.JournalEntryStore.UpdateReply(ctx, userID, id, title, reply)
}

type countingStores struct {
	*memstore.Provider
	entries *countingEntries
}

func (s *countingStores) JournalEntryStore() store.JournalEntryStore {
	return s.entries
}

type fixture struct {
	core    *core.Core
	driver  *fakeDriver
	entries *countingEntries
}

// newFixture wires a core around memstore and driver. storageConfig replaces the
// default local object storage section.
func newFixture(t *testing.T, driver *fakeDriver, storageConfig ...string) *fixture {
	storage := fmt.Sprintf(`
[custom_config.object_storage]
driver = "local"
local_root = %q
`, t.TempDir())
	if len(storageConfig) > 0 {
		storage = strings.Join(storageConfig, "\n")
	}
	cfg, err := core.LoadBaseConfig([]byte(`
[security]
jwt_secret = "test-secret"
` + storage))
	if err != nil {
		t.Fatal(err)
	}

	mem := memstore.New()
	stores := &countingStores{
		Provider: mem,
		entries:  &countingEntries{JournalEntryStore: mem.JournalEntryStore()},
	}

	var backend any = driver
	if driver.labels == nil {
		backend = replyOnly{driver}
	}
	c := core.NewCore(cfg, stores, srv.SetupSrvs(
		srv.ApplyAIDriver(srv.NewAIWithDrivers(map[string]any{"fake": backend}, "fake")),
		srv.ApplyEmotion(),
	))
	plugins.Setup(c.InstallPlugins, "selfhost")

	return &fixture{
		core:    c,
		driver:  driver,
		entries: stores.entries,
	}
}

func (f *fixture) userCtx(t *testing.T) context.Context {
	res, err := v1.NewAuthLogic(context.Background(), f.core).Signup(fmt.Sprintf("%s@otterly.test", strings.ToLower(t.Name())), "password")
	if err != nil {
		t.Fatal(err)
	}
	return v1.WithTokenClaim(context.Background(), security.TokenClaims{
		Appid: f.core.DefaultAppid(),
		User:  res.UserID,
	})
}

func (f *fixture) onboard(t *testing.T, ctx context.Context, aspirations ...string) {
	if err := v1.NewUserLogic(ctx, f.core).Onboarding(types.UserProfile{Name: "Robin", Age: 30, Gender: "female"}, aspirations); err != nil {
		t.Fatal(err)
	}
}

func assertError(t *testing.T, err error, code int, message string) {
	t.Helper()
	ce, ok := errors.As(err)
	if !assert.True(t, ok, "expected a customized error, got %v", err) {
		return
	}
	assert.Equal(t, code, ce.HttpCode())
	assert.Equal(t, message, ce.Message())
}
