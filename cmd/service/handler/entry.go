package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	v1 "github.com/breeew/otterly-api/internal/logic/v1"
	"github.com/breeew/otterly-api/internal/response"
	"github.com/breeew/otterly-api/pkg/ai/sse"
	"github.com/breeew/otterly-api/pkg/i18n"
	"github.com/breeew/otterly-api/pkg/utils"
)

type SubmitEntryRequest struct {
	// blank content is refused by the logic with a dedicated message
	Content string `json:"content" binding:"max=20000"`
}

func (s *HttpSrv) SubmitEntry(c *gin.Context) {
	var req SubmitEntryRequest
	if err := utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	res, err := v1.NewEntryLogic(c, s.Core).SubmitEntry(req.Content)
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, res)
}

func setupEventStream(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
}

// SubmitEntryStream forwards reply fragments as they arrive. A failure before the first
// fragment is a regular JSON error, later failures are reported with an error event.
func (s *HttpSrv) SubmitEntryStream(c *gin.Context) {
	var req SubmitEntryRequest
	if err := utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	var streaming bool
	begin := func() {
		if !streaming {
			setupEventStream(c)
			streaming = true
		}
	}

	res, err := v1.NewEntryLogic(c, s.Core).SubmitEntryStream(req.Content, func(chunk string) error {
		begin()
		if err := sse.WriteChunk(c.Writer, chunk); err != nil {
			return err
		}
		c.Writer.Flush()
		return nil
	})
	if err != nil {
		if !streaming {
			response.APIError(c, err)
			return
		}
		slog.Error("entry stream aborted", slog.String("request_id", c.GetString(response.REQUEST_ID_KEY)), slog.Any("error", err))
		_ = sse.WriteEvent(c.Writer, "error", gin.H{"message": response.Translate(c, i18n.ERROR_OTO_TIRED)})
		_ = sse.WriteDone(c.Writer)
		c.Writer.Flush()
		return
	}

	begin()
	_ = sse.WriteEvent(c.Writer, "done", *res)
	_ = sse.WriteDone(c.Writer)
	c.Writer.Flush()
}

func (s *HttpSrv) ListEntries(c *gin.Context) {
	var req PageRequest
	if err := utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	list, err := v1.NewEntryLogic(c, s.Core).List(req.Page, req.PageSize)
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, list)
}

func (s *HttpSrv) ListJournalEntries(c *gin.Context) {
	var req PageRequest
	if err := utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	list, err := v1.NewEntryLogic(c, s.Core).ListByJournal(c.Param("id"), req.Page, req.PageSize)
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, list)
}

func (s *HttpSrv) GetEntry(c *gin.Context) {
	entry, err := v1.NewEntryLogic(c, s.Core).Get(c.Param("id"))
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, entry)
}
