package handler

import (
	"github.com/gin-gonic/gin"

	v1 "github.com/breeew/otterly-api/internal/logic/v1"
	"github.com/breeew/otterly-api/internal/response"
	"github.com/breeew/otterly-api/pkg/utils"
)

type AnalyzeEmotionRequest struct {
	Text string `json:"text" binding:"required,max=5000"`
}

func (s *HttpSrv) AnalyzeEmotion(c *gin.Context) {
	var req AnalyzeEmotionRequest
	if err := utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	res, err := v1.NewEmotionLogic(c, s.Core).Analyze(req.Text)
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, res)
}
