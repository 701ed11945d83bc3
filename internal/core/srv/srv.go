package srv

import (
	"context"
	"log/slog"
	"time"

	"github.com/breeew/otterly-api/pkg/ai/emotion"
)

type Srv struct {
	ai      *AI
	emotion *emotion.Classifier
}

func SetupSrvs(opts ...ApplyFunc) *Srv {
	a := &Srv{}

	for _, opt := range opts {
		opt(a)
	}
	if a.emotion == nil {
		a.emotion = emotion.New(nil)
	}
	return a
}

func (s *Srv) AI() *AI {
	return s.ai
}

func (s *Srv) Emotion() *emotion.Classifier {
	return s.emotion
}

type ApplyFunc func(s *Srv)

func ApplyAI(cfg AIConfig) ApplyFunc {
	return func(s *Srv) {
		a, err := SetupAI(cfg)
		if err != nil {
			panic(err)
		}
		s.ai = a
	}
}

// ApplyAIDriver installs a prepared registry.
func ApplyAIDriver(a *AI) ApplyFunc {
	return func(s *Srv) {
		s.ai = a
	}
}

// ApplyEmotion constructs the classifier on top of the classify driver and loads it.
// A load failure is logged and leaves the classifier unloaded. Must come after the AI option.
func ApplyEmotion() ApplyFunc {
	return func(s *Srv) {
		var backend emotion.Backend
		if s.ai != nil && s.ai.SupportClassify() {
			backend = s.ai
		}
		s.emotion = emotion.New(backend)
		if backend == nil {
			slog.Warn("emotion classifier disabled, no classify driver", slog.String("component", "srv.ApplyEmotion"))
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
		defer cancel()
		if err := s.emotion.Load(ctx); err != nil {
			return
		}
		slog.Info("emotion classifier loaded", slog.String("driver", s.ai.classifyName))
	}
}
