package handler

import (
	"github.com/gin-gonic/gin"

	v1 "github.com/breeew/otterly-api/internal/logic/v1"
	"github.com/breeew/otterly-api/internal/response"
	"github.com/breeew/otterly-api/pkg/utils"
)

type AuthRequest struct {
	Email    string `json:"email" binding:"required,email,max=128"`
	Password string `json:"password" binding:"required,min=6,max=64"`
}

func (s *HttpSrv) Signup(c *gin.Context) {
	var req AuthRequest
	if err := utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	res, err := v1.NewAuthLogic(c, s.Core).Signup(req.Email, req.Password)
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, res)
}

func (s *HttpSrv) Signin(c *gin.Context) {
	var req AuthRequest
	if err := utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	res, err := v1.NewAuthLogic(c, s.Core).Signin(req.Email, req.Password)
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, res)
}
