package v1

import (
	"context"
	"net/http"
	"strconv"

	"github.com/breeew/otterly-api/internal/core"
	"github.com/breeew/otterly-api/pkg/errors"
	"github.com/breeew/otterly-api/pkg/i18n"
	"github.com/breeew/otterly-api/pkg/types"
	"github.com/breeew/otterly-api/pkg/utils"
)

type EmotionLogic struct {
	UserInfo
	ctx  context.Context
	core *core.Core
}

func NewEmotionLogic(ctx context.Context, core *core.Core) *EmotionLogic {
	return &EmotionLogic{
		ctx:      ctx,
		core:     core,
		UserInfo: setupUserInfo(ctx, core),
	}
}

type EmotionResult struct {
	Loaded bool                 `json:"loaded"`
	Labels []types.EmotionLabel `json:"labels"`
}

// Analyze labels text with the shared classifier. An unloaded classifier yields no labels.
func (l *EmotionLogic) Analyze(text string) (*EmotionResult, error) {
	if err := l.RequireUser("EmotionLogic.Analyze"); err != nil {
		return nil, err
	}
	if utils.IsBlank(text) {
		return nil, errors.New("EmotionLogic.Analyze.IsBlank", i18n.ERROR_INVALIDARGUMENT, nil).Code(http.StatusBadRequest)
	}

	classifier := l.core.Srv().Emotion()
	loaded := classifier.Loaded()
	l.core.Metrics().EmotionQueries.WithLabelValues(strconv.FormatBool(loaded)).Inc()

	labels, err := classifier.Analyze(l.ctx, text)
	if err != nil {
		return nil, errors.New("EmotionLogic.Analyze.Classifier.Analyze", i18n.ERROR_INTERNAL, err)
	}
	return &EmotionResult{
		Loaded: loaded,
		Labels: labels,
	}, nil
}
