package handler

import (
	"github.com/gin-gonic/gin"

	v1 "github.com/breeew/otterly-api/internal/logic/v1"
	"github.com/breeew/otterly-api/internal/response"
	"github.com/breeew/otterly-api/pkg/utils"
)

func (s *HttpSrv) ActiveJournal(c *gin.Context) {
	journal, err := v1.NewJournalLogic(c, s.Core).Active()
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, journal)
}

func (s *HttpSrv) ListJournals(c *gin.Context) {
	var req PageRequest
	if err := utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	list, err := v1.NewJournalLogic(c, s.Core).List(req.Page, req.PageSize)
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, list)
}

type StartJournalRequest struct {
	Title string `json:"title" binding:"max=128"`
}

func (s *HttpSrv) StartJournal(c *gin.Context) {
	var req StartJournalRequest
	if err := utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	journal, err := v1.NewJournalLogic(c, s.Core).Start(req.Title)
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, journal)
}

func (s *HttpSrv) ConcludeJournal(c *gin.Context) {
	res, err := v1.NewJournalLogic(c, s.Core).Conclude(c.Param("id"))
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, res)
}

type JournalExportResponse struct {
	URL string `json:"url"`
}

func (s *HttpSrv) JournalExport(c *gin.Context) {
	url, err := v1.NewJournalLogic(c, s.Core).ExportURL(c.Param("id"))
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, JournalExportResponse{URL: url})
}
