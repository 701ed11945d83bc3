package response

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/breeew/otterly-api/pkg/errors"
	"github.com/breeew/otterly-api/pkg/i18n"
	"github.com/breeew/otterly-api/pkg/utils"
)

const (
	REQUEST_ID_KEY        = "__otterly.request_id"
	LOCALIZER_KEY         = "__otterly.localizer"
	LANGUAGE_KEY          = "__otterly.accept_language"
	REQUEST_ID_HEADER_KEY = "X-Request-Id"
)

type Meta struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

type Body struct {
	Meta Meta `json:"meta"`
	Data any  `json:"data"`
}

// NewResponse stamps every request with an id, echoed back in the header and the meta block.
func NewResponse() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(REQUEST_ID_HEADER_KEY)
		if id == "" {
			id = utils.GenRandomID()
		}
		c.Set(REQUEST_ID_KEY, id)
		c.Header(REQUEST_ID_HEADER_KEY, id)
	}
}

// ProvideResponseLocalizer resolves the caller language once per request.
func ProvideResponseLocalizer(l *i18n.Localizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(LOCALIZER_KEY, l)
		c.Set(LANGUAGE_KEY, l.Match(c.GetHeader("Accept-Language")))
	}
}

func Translate(c *gin.Context, id string) string {
	l, ok := c.Value(LOCALIZER_KEY).(*i18n.Localizer)
	if !ok {
		return id
	}
	return l.Get(c.GetString(LANGUAGE_KEY), id)
}

func APISuccess(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Body{
		Meta: Meta{
			Code:      http.StatusOK,
			Message:   "success",
			RequestID: c.GetString(REQUEST_ID_KEY),
		},
		Data: data,
	})
}

// APIError renders err and aborts the chain. Non customized errors are hidden behind error.internal.
func APIError(c *gin.Context, err error) {
	code := http.StatusInternalServerError
	message := i18n.ERROR_INTERNAL
	if ce, ok := errors.As(err); ok {
		code = ce.HttpCode()
		message = ce.Message()
	}

	l := slog.Default().With(slog.String("request_id", c.GetString(REQUEST_ID_KEY)),
		slog.String("path", c.FullPath()), slog.Int("code", code))
	if code >= http.StatusInternalServerError {
		l.Error("request failed", slog.Any("error", err))
	} else {
		l.Debug("request rejected", slog.Any("error", err))
	}

	c.AbortWithStatusJSON(code, Body{
		Meta: Meta{
			Code:      code,
			Message:   Translate(c, message),
			RequestID: c.GetString(REQUEST_ID_KEY),
		},
	})
}
