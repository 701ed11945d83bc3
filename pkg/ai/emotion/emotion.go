package emotion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/samber/lo"

	"github.com/breeew/otterly-api/pkg/types"
)

const (
	DEFAULT_TOP_K     = 5
	DEFAULT_THRESHOLD = 0.5

	probeText = "I am writing in my journal today."
)

var ERROR_NO_BACKEND = errors.New("emotion classifier has no backend")

type Backend interface {
	Classify(ctx context.Context, text string) ([]types.EmotionLabel, error)
}

// Classifier is a handle owned by the service layer. It starts unloaded; Load
// probes the backend once and only a loaded classifier talks to it.
type Classifier struct {
	mu      sync.RWMutex
	backend Backend
	loaded  bool

	topK      int
	threshold float64
}

func New(backend Backend) *Classifier {
	return &Classifier{
		backend:   backend,
		topK:      DEFAULT_TOP_K,
		threshold: DEFAULT_THRESHOLD,
	}
}

// Load is idempotent. On failure the classifier stays unloaded and Analyze keeps
// returning an empty list.
func (c *Classifier) Load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded {
		return nil
	}
	if c.backend == nil {
		return ERROR_NO_BACKEND
	}
	if _, err := c.backend.Classify(ctx, probeText); err != nil {
		slog.Error("failed to load emotion classifier", slog.String("component", "emotion.Classifier"), slog.String("error", err.Error()))
		return fmt.Errorf("load emotion classifier: %w", err)
	}
	c.loaded = true
	return nil
}

func (c *Classifier) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// Analyze returns at most five labels scoring above 0.5, best first.
func (c *Classifier) Analyze(ctx context.Context, text string) ([]types.EmotionLabel, error) {
	if !c.Loaded() {
		return []types.EmotionLabel{}, nil
	}

	labels, err := c.backend.Classify(ctx, text)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(labels, func(i, j int) bool {
		return labels[i].Score > labels[j].Score
	})
	if len(labels) > c.topK {
		labels = labels[:c.topK]
	}
	return lo.Filter(labels, func(item types.EmotionLabel, _ int) bool {
		return item.Score > c.threshold
	}), nil
}
