package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/breeew/otterly-api/internal/core"
)

type HttpSrv struct {
	Core   *core.Core
	Engine *gin.Engine
}

type PageRequest struct {
	Page     uint64 `json:"page" form:"page"`
	PageSize uint64 `json:"pagesize" form:"pagesize" binding:"lte=100"`
}
