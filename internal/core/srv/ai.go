package srv

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/breeew/otterly-api/pkg/ai"
	"github.com/breeew/otterly-api/pkg/ai/cloudflare"
	"github.com/breeew/otterly-api/pkg/ai/gemini"
	"github.com/breeew/otterly-api/pkg/ai/openai"
	"github.com/breeew/otterly-api/pkg/types"
)

type ReplyAI interface {
	// Generate returns the raw model output for a prompt carrying the {title, reply} contract.
	Generate(ctx context.Context, prompt string) (ai.GenerateResponse, error)
	// GenerateStream returns an event stream of `data: {"response": ...}` frames.
	GenerateStream(ctx context.Context, prompt string) (io.ReadCloser, error)
}

type ClassifyAI interface {
	Classify(ctx context.Context, text string) ([]types.EmotionLabel, error)
}

type AIConfig struct {
	Cloudflare Cloudflare `toml:"cloudflare"`
	Openai     Openai     `toml:"openai"`
	Gemini     Gemini     `toml:"gemini"`
	// Usage list
	// reply
	// classify
	Usage map[string]string `toml:"usage"`
}

func (c *AIConfig) FromENV() {
	c.Usage = make(map[string]string)
	c.Usage["reply"] = os.Getenv("OTTERLY_API_AI_USAGE_REPLY")
	c.Usage["classify"] = os.Getenv("OTTERLY_API_AI_USAGE_CLASSIFY")

	c.Cloudflare.FromENV()
	c.Openai.FromENV()
	c.Gemini.FromENV()
}

type Cloudflare struct {
	AccountID     string `toml:"account_id"`
	Token         string `toml:"api_token"`
	Endpoint      string `toml:"endpoint"`
	ChatModel     string `toml:"model"`
	ClassifyModel string `toml:"emotion_model"`
}

func (c *Cloudflare) FromENV() {
	c.AccountID = os.Getenv("OTTERLY_API_AI_CF_ACCOUNT_ID")
	c.Token = os.Getenv("OTTERLY_API_AI_CF_API_TOKEN")
	c.Endpoint = os.Getenv("OTTERLY_API_AI_CF_ENDPOINT")
	c.ChatModel = os.Getenv("OTTERLY_API_AI_CF_MODEL")
	c.ClassifyModel = os.Getenv("OTTERLY_API_AI_CF_EMOTION_MODEL")
}

func (cfg *Cloudflare) Install(root *AI) {
	if cfg.Token == "" || cfg.AccountID == "" {
		return
	}
	installAI(root, cloudflare.NAME, cloudflare.New(cfg.AccountID, cfg.Token, cfg.Endpoint, ai.ModelName{
		ChatModel:     cfg.ChatModel,
		ClassifyModel: cfg.ClassifyModel,
	}))
}

type Openai struct {
	Token     string `toml:"token"`
	Endpoint  string `toml:"endpoint"`
	ChatModel string `toml:"chat_model"`
}

func (c *Openai) FromENV() {
	c.Token = os.Getenv("OTTERLY_API_AI_OPENAI_TOKEN")
	c.Endpoint = os.Getenv("OTTERLY_API_AI_OPENAI_ENDPOINT")
	c.ChatModel = os.Getenv("OTTERLY_API_AI_OPENAI_CHAT_MODEL")
}

func (cfg *Openai) Install(root *AI) {
	if cfg.Token == "" {
		return
	}
	installAI(root, openai.NAME, openai.New(cfg.Token, cfg.Endpoint, ai.ModelName{
		ChatModel: cfg.ChatModel,
	}))
}

type Gemini struct {
	Token     string `toml:"token"`
	ChatModel string `toml:"chat_model"`
}

func (c *Gemini) FromENV() {
	c.Token = os.Getenv("OTTERLY_API_AI_GEMINI_TOKEN")
	c.ChatModel = os.Getenv("OTTERLY_API_AI_GEMINI_CHAT_MODEL")
}

func (cfg *Gemini) Install(root *AI) {
	if cfg.Token == "" {
		return
	}
	d, err := gemini.New(context.Background(), cfg.Token, ai.ModelName{ChatModel: cfg.ChatModel})
	if err != nil {
		slog.Error("Failed to install ai driver", slog.String("driver", gemini.NAME), slog.String("error", err.Error()))
		return
	}
	installAI(root, gemini.NAME, d)
}

type AI struct {
	replyDrivers    map[string]ReplyAI
	classifyDrivers map[string]ClassifyAI
	// installation order, the first driver is the default
	order []string

	replyName    string
	classifyName string
}

var (
	ERROR_NO_REPLY_DRIVER     = errors.New("no reply ai driver configured")
	ERROR_UNSUPPORTED_FEATURE = errors.New("Unsupported feature")
)

func newAI() *AI {
	return &AI{
		replyDrivers:    make(map[string]ReplyAI),
		classifyDrivers: make(map[string]ClassifyAI),
	}
}

func installAI(a *AI, name string, driver any) {
	var installed bool
	if d, ok := driver.(ReplyAI); ok {
		a.replyDrivers[name] = d
		installed = true
	}
	if d, ok := driver.(ClassifyAI); ok {
		a.classifyDrivers[name] = d
		installed = true
	}
	if installed {
		a.order = append(a.order, name)
	}
}

// resolve picks the driver named by usage, or the first installed one.
func (a *AI) resolve(usage string) {
	a.replyName, a.classifyName = "", ""
	if name := usage; name != "" {
		if _, ok := a.replyDrivers[name]; ok {
			a.replyName = name
		}
	}
	for _, name := range a.order {
		if a.replyName == "" {
			if _, ok := a.replyDrivers[name]; ok {
				a.replyName = name
			}
		}
		if a.classifyName == "" {
			if _, ok := a.classifyDrivers[name]; ok {
				a.classifyName = name
			}
		}
	}
}

func SetupAI(cfg AIConfig) (*AI, error) {
	a := newAI()

	cfg.Cloudflare.Install(a)
	cfg.Openai.Install(a)
	cfg.Gemini.Install(a)

	a.resolve(cfg.Usage["reply"])
	if name := cfg.Usage["classify"]; name != "" {
		if _, ok := a.classifyDrivers[name]; ok {
			a.classifyName = name
		}
	}

	if a.replyName == "" {
		return nil, ERROR_NO_REPLY_DRIVER
	}
	return a, nil
}

// NewAIWithDrivers builds the registry from ready drivers, first one wins.
func NewAIWithDrivers(drivers map[string]any, order ...string) *AI {
	a := newAI()
	for _, name := range order {
		if d, ok := drivers[name]; ok {
			installAI(a, name, d)
		}
	}
	a.resolve("")
	return a
}

func (a *AI) ReplyDriverName() string {
	return a.replyName
}

func (a *AI) Generate(ctx context.Context, prompt string) (ai.GenerateResponse, error) {
	d := a.replyDrivers[a.replyName]
	if d == nil {
		return ai.GenerateResponse{}, ERROR_NO_REPLY_DRIVER
	}
	return d.Generate(ctx, prompt)
}

func (a *AI) GenerateStream(ctx context.Context, prompt string) (io.ReadCloser, error) {
	d := a.replyDrivers[a.replyName]
	if d == nil {
		return nil, ERROR_NO_REPLY_DRIVER
	}
	return d.GenerateStream(ctx, prompt)
}

// Option Feature
func (a *AI) Classify(ctx context.Context, text string) ([]types.EmotionLabel, error) {
	d := a.classifyDrivers[a.classifyName]
	if d == nil {
		return nil, ERROR_UNSUPPORTED_FEATURE
	}
	return d.Classify(ctx, text)
}

func (a *AI) SupportClassify() bool {
	return a.classifyDrivers[a.classifyName] != nil
}
