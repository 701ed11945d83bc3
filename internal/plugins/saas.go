package plugins

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v9"

	"github.com/breeew/otterly-api/internal/core"
	"github.com/breeew/otterly-api/pkg/utils"
)

var _ core.Plugins = (*SaaSPlugin)(nil)

func newSaaSPlugin() *SaaSPlugin {
	return &SaaSPlugin{
		Appid:    "otterly",
		limiters: newLimiterGroup(),
	}
}

type SaaSCustomConfig struct {
	ObjectStorage ObjectStorageDriver `toml:"object_storage"`
	// NodeID seeds the snowflake worker, unique per replica
	NodeID int64 `toml:"node_id"`
}

type SaaSPlugin struct {
	core     *core.Core
	Appid    string
	redis    redis.UniversalClient
	lock     *RedisLock
	limiters *limiterGroup

	core.FileStorage

	customConfig SaaSCustomConfig
}

func (s *SaaSPlugin) Name() string {
	return "saas"
}

func (s *SaaSPlugin) DefaultAppid() string {
	return s.Appid
}

func (s *SaaSPlugin) Install(c *core.Core) error {
	s.core = c

	customConfig := core.NewCustomConfigPayload[SaaSCustomConfig]()
	if err := s.core.Cfg().LoadCustomConfig(&customConfig); err != nil {
		return fmt.Errorf("Failed to install custom config, %w", err)
	}
	s.customConfig = customConfig.CustomConfig
	nodeID := s.customConfig.NodeID
	if nodeID <= 0 {
		nodeID = 1
	}
	utils.SetupIDWorker(nodeID)

	redisCfg := c.Cfg().Redis
	if redisCfg.Addr == "" {
		return fmt.Errorf("saas mode requires a redis address")
	}
	s.redis = redis.NewClient(&redis.Options{
		Addr:     redisCfg.Addr,
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("Failed to connect redis, %w", err)
	}
	s.lock = NewRedisLock(s.redis)
	s.FileStorage = SetupObjectStorage(s.customConfig.ObjectStorage)

	slog.Info("plugin installed", slog.String("mode", s.Name()), slog.String("appid", s.Appid), slog.Int64("node_id", nodeID))
	return nil
}

func (s *SaaSPlugin) TryLock(ctx context.Context, key string) (core.Unlock, bool, error) {
	return s.lock.TryLock(ctx, key)
}

// ratelimit is the count allowed per minute, kept per replica
func (s *SaaSPlugin) UseLimiter(key string, method string, defaultRatelimit int) core.Limiter {
	return s.limiters.use(key, method, defaultRatelimit)
}

func (s *SaaSPlugin) FileUploader() core.FileStorage {
	if s.FileStorage == nil {
		s.FileStorage = &NoneFileStorage{}
	}
	return s.FileStorage
}
