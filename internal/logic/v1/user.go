package v1

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/breeew/otterly-api/internal/core"
	"github.com/breeew/otterly-api/pkg/errors"
	"github.com/breeew/otterly-api/pkg/i18n"
	"github.com/breeew/otterly-api/pkg/types"
	"github.com/breeew/otterly-api/pkg/utils"
)

type UserLogic struct {
	UserInfo
	ctx  context.Context
	core *core.Core
}

func NewUserLogic(ctx context.Context, core *core.Core) *UserLogic {
	l := &UserLogic{
		ctx:      ctx,
		core:     core,
		UserInfo: setupUserInfo(ctx, core),
	}

	return l
}

func (l *UserLogic) GetUser() (*types.User, error) {
	if err := l.RequireUser("UserLogic.GetUser"); err != nil {
		return nil, err
	}
	claims := l.GetUserInfo()
	user, err := l.core.Store().UserStore().GetUser(l.ctx, claims.Appid, claims.User)
	if err != nil && err != sql.ErrNoRows {
		return nil, errors.New("UserLogic.GetUser.UserStore.GetUser", i18n.ERROR_INTERNAL, err)
	}
	if user == nil {
		return nil, errors.New("UserLogic.GetUser.UserStore.GetUser.nil", i18n.ERROR_NOTFOUND, nil).Code(http.StatusNotFound)
	}
	return user, nil
}

// Onboarding stores the profile and aspirations together, once per user.
func (l *UserLogic) Onboarding(profile types.UserProfile, aspirations []string) error {
	if err := l.RequireUser("UserLogic.Onboarding"); err != nil {
		return err
	}

	profile.Name = strings.TrimSpace(profile.Name)
	aspirations = lo.FilterMap(aspirations, func(item string, _ int) (string, bool) {
		item = strings.TrimSpace(item)
		return item, item != ""
	})
	if profile.Name == "" || len(aspirations) < types.MIN_ASPIRATIONS || len(aspirations) > types.MAX_ASPIRATIONS {
		return errors.New("UserLogic.Onboarding.Validate", i18n.ERROR_INVALIDARGUMENT,
			fmt.Errorf("name and %d to %d aspirations are required", types.MIN_ASPIRATIONS, types.MAX_ASPIRATIONS)).Code(http.StatusBadRequest)
	}

	claims := l.GetUserInfo()
	return l.core.Store().Transaction(l.ctx, func(ctx context.Context) error {
		user, err := l.core.Store().UserStore().GetUser(ctx, claims.Appid, claims.User)
		if err != nil && err != sql.ErrNoRows {
			return errors.New("UserLogic.Onboarding.UserStore.GetUser", i18n.ERROR_INTERNAL, err)
		}
		if user == nil {
			return errors.New("UserLogic.Onboarding.UserStore.GetUser.nil", i18n.ERROR_NOTFOUND, nil).Code(http.StatusNotFound)
		}
		if user.OnboardingDone {
			return errors.New("UserLogic.Onboarding.OnboardingDone", i18n.ERROR_ONBOARDING_DONE, nil).Code(http.StatusForbidden)
		}

		if err = l.core.Store().UserStore().CompleteOnboarding(ctx, claims.Appid, claims.User, profile); err != nil {
			return errors.New("UserLogic.Onboarding.UserStore.CompleteOnboarding", i18n.ERROR_INTERNAL, err)
		}

		now := time.Now().Unix()
		list := lo.Map(aspirations, func(item string, _ int) types.Aspiration {
			return types.Aspiration{
				ID:        utils.GenSpecIDStr(),
				UserID:    claims.User,
				Text:      item,
				CreatedAt: now,
			}
		})
		if err = l.core.Store().AspirationStore().BatchCreate(ctx, list); err != nil {
			return errors.New("UserLogic.Onboarding.AspirationStore.BatchCreate", i18n.ERROR_INTERNAL, err)
		}
		return nil
	})
}

func (l *UserLogic) ListAspirations() ([]types.Aspiration, error) {
	if err := l.RequireUser("UserLogic.ListAspirations"); err != nil {
		return nil, err
	}
	list, err := l.core.Store().AspirationStore().ListUserAspirations(l.ctx, l.GetUserInfo().User)
	if err != nil && err != sql.ErrNoRows {
		return nil, errors.New("UserLogic.ListAspirations.AspirationStore.ListUserAspirations", i18n.ERROR_INTERNAL, err)
	}
	if list == nil {
		list = []types.Aspiration{}
	}
	return list, nil
}
