package v1

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/breeew/otterly-api/internal/core"
	"github.com/breeew/otterly-api/pkg/ai"
	"github.com/breeew/otterly-api/pkg/ai/agents/oto"
	"github.com/breeew/otterly-api/pkg/ai/sse"
	"github.com/breeew/otterly-api/pkg/errors"
	"github.com/breeew/otterly-api/pkg/i18n"
	"github.com/breeew/otterly-api/pkg/safe"
	"github.com/breeew/otterly-api/pkg/types"
)

// ReplyLogic relays a journal entry to the configured language model.
// It makes exactly one upstream call per invocation and never retries.
type ReplyLogic struct {
	ctx  context.Context
	core *core.Core
}

func NewReplyLogic(ctx context.Context, core *core.Core) *ReplyLogic {
	return &ReplyLogic{
		ctx:  ctx,
		core: core,
	}
}

func (l *ReplyLogic) Contract() types.ReplyContract {
	return l.core.Cfg().Reply.ReplyContract()
}

func relayStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}

func (l *ReplyLogic) observe(contract types.ReplyContract, start time.Time, err error) {
	m := l.core.Metrics()
	m.RelayRequests.WithLabelValues(string(contract), l.core.Srv().AI().ReplyDriverName(), relayStatus(err)).Inc()
	m.RelayLatency.WithLabelValues(string(contract)).Observe(time.Since(start).Seconds())
}

// countTokens records what the driver reported, or a tiktoken estimate of prompt and
// completion when it reported nothing. Estimates run in the background.
func (l *ReplyLogic) countTokens(model, prompt, completion string, usage ai.Usage) {
	driver := l.core.Srv().AI().ReplyDriverName()
	m := l.core.Metrics().TokenUsage
	record := func(u ai.Usage) {
		m.WithLabelValues(driver, "prompt").Add(float64(u.PromptTokens))
		m.WithLabelValues(driver, "completion").Add(float64(u.CompletionTokens))
	}
	if usage.PromptTokens > 0 || usage.CompletionTokens > 0 {
		record(usage)
		return
	}

	go safe.Run(func() {
		var (
			estimate ai.Usage
			err      error
		)
		if estimate.PromptTokens, err = ai.NumTokens(prompt, model); err == nil {
			estimate.CompletionTokens, err = ai.NumTokens(completion, model)
		}
		if err != nil {
			slog.Warn("token estimate unavailable", slog.String("driver", driver), slog.String("error", err.Error()))
			return
		}
		record(estimate)
	})
}

// Buffered asks for the titled contract and decodes the model's {title, reply} object.
func (l *ReplyLogic) Buffered(req types.ReplyRequest) (reply types.OtoReply, err error) {
	start := time.Now()
	defer func() {
		l.observe(types.REPLY_CONTRACT_BUFFERED, start, err)
	}()

	prompt := oto.FormatTitledReplyPrompt(req.CurrentEntry, req.Aspirations, req.History)
	resp, err := l.core.Srv().AI().Generate(l.ctx, prompt)
	if err != nil {
		return reply, errors.New("ReplyLogic.Buffered.AI.Generate", i18n.ERROR_OTO_TIRED, err)
	}
	l.countTokens(resp.Model, prompt, resp.Text, resp.Usage)

	if reply, err = oto.ParseTitledReply(resp.Text); err != nil {
		slog.Error("model returned a malformed reply", slog.String("model", resp.Model),
			slog.Int("raw_length", len(resp.Text)))
		return reply, errors.New("ReplyLogic.Buffered.ParseTitledReply", i18n.ERROR_OTO_TIRED, err)
	}
	return reply, nil
}

// Stream asks for the free text contract and hands back the upstream event stream untouched.
// The outcome is recorded when the caller closes the body: a read that failed before
// EOF counts as an error.
func (l *ReplyLogic) Stream(req types.ReplyRequest) (io.ReadCloser, error) {
	start := time.Now()
	prompt := oto.FormatReplyPrompt(req.CurrentEntry, req.Aspirations, req.History)
	body, err := l.core.Srv().AI().GenerateStream(l.ctx, prompt)
	if err != nil {
		l.observe(types.REPLY_CONTRACT_STREAM, start, err)
		return nil, errors.New("ReplyLogic.Stream.AI.GenerateStream", i18n.ERROR_OTO_TIRED, err)
	}
	return &observedBody{
		ReadCloser: body,
		decoder:    sse.NewDecoder(),
		onClose: func(reply string, err error) {
			l.observe(types.REPLY_CONTRACT_STREAM, start, err)
			l.countTokens("", prompt, reply, ai.Usage{})
		},
	}, nil
}

// observedBody keeps a decoded copy of the reply and the first read failure.
type observedBody struct {
	io.ReadCloser
	decoder *sse.Decoder
	err     error
	once    sync.Once
	onClose func(reply string, err error)
}

func (b *observedBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	if n > 0 {
		b.decoder.Feed(p[:n])
	}
	if err != nil && b.err == nil && !errors.Is(err, io.EOF) {
		b.err = err
	}
	return n, err
}

func (b *observedBody) Close() error {
	b.once.Do(func() {
		b.decoder.Flush()
		b.onClose(b.decoder.Reply(), b.err)
	})
	return b.ReadCloser.Close()
}
