package plugins

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/breeew/otterly-api/internal/core"
	"github.com/breeew/otterly-api/pkg/utils"
)

type SelfHostCustomConfig struct {
	ObjectStorage ObjectStorageDriver `toml:"object_storage"`
}

var _ core.Plugins = (*SelfHostPlugin)(nil)

func newSelfHostMode() *SelfHostPlugin {
	return &SelfHostPlugin{
		Appid:      "otterly-selfhost",
		singleLock: NewSingleLock(),
		limiters:   newLimiterGroup(),
	}
}

type SelfHostPlugin struct {
	core       *core.Core
	Appid      string
	singleLock *SingleLock
	limiters   *limiterGroup
	core.FileStorage

	customConfig SelfHostCustomConfig
}

func (s *SelfHostPlugin) Name() string {
	return "selfhost"
}

func (s *SelfHostPlugin) DefaultAppid() string {
	return s.Appid
}

func (s *SelfHostPlugin) Install(c *core.Core) error {
	s.core = c
	utils.SetupIDWorker(1)

	customConfig := core.NewCustomConfigPayload[SelfHostCustomConfig]()
	if err := s.core.Cfg().LoadCustomConfig(&customConfig); err != nil {
		return fmt.Errorf("Failed to install custom config, %w", err)
	}
	s.customConfig = customConfig.CustomConfig
	s.FileStorage = SetupObjectStorage(s.customConfig.ObjectStorage)

	slog.Info("plugin installed", slog.String("mode", s.Name()), slog.String("appid", s.Appid),
		slog.String("object_storage", s.customConfig.ObjectStorage.Driver))
	return nil
}

func (s *SelfHostPlugin) TryLock(ctx context.Context, key string) (core.Unlock, bool, error) {
	return s.singleLock.TryLock(ctx, key)
}

// ratelimit is the count allowed per minute
func (s *SelfHostPlugin) UseLimiter(key string, method string, defaultRatelimit int) core.Limiter {
	return s.limiters.use(key, method, defaultRatelimit)
}

func (s *SelfHostPlugin) FileUploader() core.FileStorage {
	if s.FileStorage == nil {
		s.FileStorage = &NoneFileStorage{}
	}
	return s.FileStorage
}
