package v1

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/breeew/otterly-api/internal/core"
	"github.com/breeew/otterly-api/pkg/errors"
	"github.com/breeew/otterly-api/pkg/i18n"
	"github.com/breeew/otterly-api/pkg/security"
)

type _userInfo struct {
	u *security.TokenClaims
}

func (u *_userInfo) GetUserInfo() security.TokenClaims {
	return *u.u
}

// RequireUser fails when the context carries no signed in user.
func (u *_userInfo) RequireUser(trace string) error {
	if u.u.User == "" {
		return errors.New(trace+".RequireUser", i18n.ERROR_UNAUTHORIZED, nil).Code(http.StatusUnauthorized)
	}
	return nil
}

func setupUserInfo(ctx context.Context, core *core.Core) UserInfo {
	userInfo, ok := InjectTokenClaim(ctx)
	if !ok {
		slog.Debug("Not found user in context", slog.String("component", "logic.v1.setupUserInfo"))
		userInfo = security.TokenClaims{}
	}
	return &_userInfo{
		u: &userInfo,
	}
}

type UserInfo interface {
	GetUserInfo() security.TokenClaims
	RequireUser(trace string) error
}
