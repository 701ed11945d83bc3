package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	v1 "github.com/breeew/otterly-api/internal/logic/v1"
	"github.com/breeew/otterly-api/internal/response"
	"github.com/breeew/otterly-api/pkg/types"
)

const REPLY_ERROR_MESSAGE = "Error generating reply."

type ReplyRequest struct {
	CurrentEntry string   `json:"currentEntry" binding:"required"`
	Aspirations  []string `json:"aspirations"`
	History      []string `json:"history"`
}

// replyFailed is the only plain text error of the api.
func replyFailed(c *gin.Context, err error) {
	slog.Error("failed to generate reply", slog.String("request_id", c.GetString(response.REQUEST_ID_KEY)), slog.Any("error", err))
	c.Abort()
	c.String(http.StatusInternalServerError, REPLY_ERROR_MESSAGE)
}

// Reply relays an entry to the model under the contract this deployment runs.
func (s *HttpSrv) Reply(c *gin.Context) {
	var req ReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		replyFailed(c, err)
		return
	}
	args := types.ReplyRequest{
		CurrentEntry: req.CurrentEntry,
		Aspirations:  req.Aspirations,
		History:      req.History,
	}

	relay := v1.NewReplyLogic(c, s.Core)
	if relay.Contract() == types.REPLY_CONTRACT_BUFFERED {
		reply, err := relay.Buffered(args)
		if err != nil {
			replyFailed(c, err)
			return
		}
		c.JSON(http.StatusOK, reply)
		return
	}

	body, err := relay.Stream(args)
	if err != nil {
		replyFailed(c, err)
		return
	}
	defer body.Close()

	setupEventStream(c)
	buf := make([]byte, 4096)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			if _, werr := c.Writer.Write(buf[:n]); werr != nil {
				slog.Warn("reply stream client gone", slog.String("error", werr.Error()))
				return
			}
			c.Writer.Flush()
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				slog.Error("reply stream interrupted", slog.String("request_id", c.GetString(response.REQUEST_ID_KEY)), slog.Any("error", err))
			}
			return
		}
	}
}
