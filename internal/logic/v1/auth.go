package v1

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/breeew/otterly-api/internal/core"
	"github.com/breeew/otterly-api/pkg/errors"
	"github.com/breeew/otterly-api/pkg/i18n"
	"github.com/breeew/otterly-api/pkg/security"
	"github.com/breeew/otterly-api/pkg/types"
	"github.com/breeew/otterly-api/pkg/utils"
)

const TOKEN_ISSUER = "otterly"

type AuthLogic struct {
	ctx  context.Context
	core *core.Core
}

func NewAuthLogic(ctx context.Context, core *core.Core) *AuthLogic {
	l := &AuthLogic{
		ctx:  ctx,
		core: core,
	}

	return l
}

type AuthResult struct {
	UserID string `json:"user_id"`
	Token  string `json:"token"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (l *AuthLogic) Signup(email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)
	appid := l.core.DefaultAppid()

	exist, err := l.core.Store().UserStore().GetByEmail(l.ctx, appid, email)
	if err != nil && err != sql.ErrNoRows {
		return nil, errors.New("AuthLogic.Signup.UserStore.GetByEmail", i18n.ERROR_INTERNAL, err)
	}
	if exist != nil {
		return nil, errors.New("AuthLogic.Signup.UserStore.GetByEmail.exist", i18n.ERROR_EMAIL_ALREADY_REGISTED, nil).Code(http.StatusForbidden)
	}

	hashed, err := utils.HashPassword(password)
	if err != nil {
		return nil, errors.New("AuthLogic.Signup.HashPassword", i18n.ERROR_INTERNAL, err)
	}

	now := time.Now().Unix()
	user := types.User{
		ID:        utils.GenSpecIDStr(),
		Appid:     appid,
		Email:     email,
		Password:  hashed,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err = l.core.Store().UserStore().Create(l.ctx, user); err != nil {
		return nil, errors.New("AuthLogic.Signup.UserStore.Create", i18n.ERROR_INTERNAL, err)
	}

	token, err := l.GenSessionToken(user.ID)
	if err != nil {
		return nil, errors.Trace("AuthLogic.Signup", err)
	}
	return &AuthResult{UserID: user.ID, Token: token}, nil
}

func (l *AuthLogic) Signin(email, password string) (*AuthResult, error) {
	user, err := l.core.Store().UserStore().GetByEmail(l.ctx, l.core.DefaultAppid(), normalizeEmail(email))
	if err != nil && err != sql.ErrNoRows {
		return nil, errors.New("AuthLogic.Signin.UserStore.GetByEmail", i18n.ERROR_INTERNAL, err)
	}
	if user == nil || !utils.CheckPassword(user.Password, password) {
		return nil, errors.New("AuthLogic.Signin.CheckPassword", i18n.ERROR_INVALID_ACCOUNT, nil).Code(http.StatusUnauthorized)
	}

	token, err := l.GenSessionToken(user.ID)
	if err != nil {
		return nil, errors.Trace("AuthLogic.Signin", err)
	}
	return &AuthResult{UserID: user.ID, Token: token}, nil
}

func (l *AuthLogic) GenSessionToken(userID string) (string, error) {
	cfg := l.core.Cfg().Security
	claims := security.NewTokenClaims(l.core.DefaultAppid(), TOKEN_ISSUER, userID, time.Now().Add(cfg.TTL()).Unix())
	token, err := security.GenToken(cfg.JWTSecret, claims)
	if err != nil {
		return "", errors.New("AuthLogic.GenSessionToken", i18n.ERROR_INTERNAL, err)
	}
	return token, nil
}

// ParseSessionToken validates a session token issued for this deployment.
func (l *AuthLogic) ParseSessionToken(token string) (*security.TokenClaims, error) {
	claims, err := security.ParseToken(l.core.Cfg().Security.JWTSecret, token)
	if err != nil {
		return nil, errors.New("AuthLogic.ParseSessionToken", i18n.ERROR_INVALID_TOKEN, err).Code(http.StatusUnauthorized)
	}
	if claims.Appid != l.core.DefaultAppid() || claims.User == "" {
		return nil, errors.New("AuthLogic.ParseSessionToken.Appid", i18n.ERROR_INVALID_TOKEN, fmt.Errorf("token issued for %q", claims.Appid)).Code(http.StatusUnauthorized)
	}
	return claims, nil
}
