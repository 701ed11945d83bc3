package handler

import (
	"github.com/gin-gonic/gin"

	v1 "github.com/breeew/otterly-api/internal/logic/v1"
	"github.com/breeew/otterly-api/internal/response"
	"github.com/breeew/otterly-api/pkg/types"
	"github.com/breeew/otterly-api/pkg/utils"
)

type UserInfoResponse struct {
	UserID         string `json:"user_id"`
	Email          string `json:"email"`
	Name           string `json:"name"`
	Age            int    `json:"age"`
	Gender         string `json:"gender"`
	OnboardingDone bool   `json:"onboarding_done"`
	ServiceMode    string `json:"service_mode"`
}

func (s *HttpSrv) GetUser(c *gin.Context) {
	user, err := v1.NewUserLogic(c, s.Core).GetUser()
	if err != nil {
		response.APIError(c, err)
		return
	}

	response.APISuccess(c, UserInfoResponse{
		UserID:         user.ID,
		Email:          user.Email,
		Name:           user.Name,
		Age:            user.Age,
		Gender:         user.Gender,
		OnboardingDone: user.OnboardingDone,
		ServiceMode:    s.Core.Plugins.Name(),
	})
}

type OnboardingRequest struct {
	Name        string   `json:"name" binding:"required,max=32"`
	Age         int      `json:"age" binding:"gte=0,lte=150"`
	Gender      string   `json:"gender" binding:"max=32"`
	Aspirations []string `json:"aspirations" binding:"required,min=1,max=3,dive,max=200"`
}

func (s *HttpSrv) Onboarding(c *gin.Context) {
	var req OnboardingRequest
	if err := utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	logic := v1.NewUserLogic(c, s.Core)
	err := logic.Onboarding(types.UserProfile{
		Name:   req.Name,
		Age:    req.Age,
		Gender: req.Gender,
	}, req.Aspirations)
	if err != nil {
		response.APIError(c, err)
		return
	}

	s.GetUser(c)
}

func (s *HttpSrv) ListAspirations(c *gin.Context) {
	list, err := v1.NewUserLogic(c, s.Core).ListAspirations()
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, list)
}
