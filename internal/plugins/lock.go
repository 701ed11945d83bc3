package plugins

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-redis/redis/v9"

	"github.com/breeew/otterly-api/internal/core"
	"github.com/breeew/otterly-api/pkg/safe"
	"github.com/breeew/otterly-api/pkg/utils"
)

func NewSingleLock() *SingleLock {
	return &SingleLock{
		locks: make(map[string]*singleHold),
	}
}

// SingleLock is an in-process lock. A key is held until it is unlocked or the ctx
// passed to TryLock is done.
type SingleLock struct {
	mu    sync.Mutex
	locks map[string]*singleHold
}

type singleHold struct {
	ctx context.Context
}

func (s *SingleLock) TryLock(ctx context.Context, key string) (core.Unlock, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if holder, exist := s.locks[key]; exist && holder.ctx.Err() == nil {
		return nil, false, nil
	}
	hold := &singleHold{ctx: ctx}
	s.locks[key] = hold

	unlock, done := onceUnlock(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.locks[key] == hold {
			delete(s.locks, key)
		}
	})
	go safe.Run(func() {
		select {
		case <-ctx.Done():
			unlock()
		case <-done:
		}
	})
	return unlock, true, nil
}

// onceUnlock wraps release so it runs a single time. done is closed once it has run.
func onceUnlock(release func()) (core.Unlock, <-chan struct{}) {
	var once sync.Once
	done := make(chan struct{})
	return func() {
		once.Do(func() {
			release()
			close(done)
		})
	}, done
}

const (
	REDIS_LOCK_PREFIX = "otterly:lock:"
	REDIS_LOCK_TTL    = time.Minute * 5
)

// compare and delete, a lock is only released by its owner
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// refresh while the owner still holds the key
var refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)

// RedisLock is shared by every replica. The key expires after ttl unless its holder
// is still alive, in which case it is refreshed every ttl/2.
type RedisLock struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisLock(client redis.UniversalClient) *RedisLock {
	return &RedisLock{
		client: client,
		ttl:    REDIS_LOCK_TTL,
	}
}

func (r *RedisLock) TryLock(ctx context.Context, key string) (core.Unlock, bool, error) {
	key = REDIS_LOCK_PREFIX + key
	owner := utils.GenRandomID()
	ok, err := r.client.SetNX(ctx, key, owner, r.ttl).Result()
	if err != nil || !ok {
		return nil, false, err
	}

	unlock, done := onceUnlock(func() {
		r.run(unlockScript, key, owner)
	})
	go safe.Run(func() {
		ticker := time.NewTicker(r.ttl / 2)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				unlock()
				return
			case <-ticker.C:
				r.run(refreshScript, key, owner, r.ttl.Milliseconds())
			}
		}
	})
	return unlock, true, nil
}

func (r *RedisLock) run(script *redis.Script, key, owner string, args ...any) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*3)
	defer cancel()
	if err := script.Run(ctx, r.client, []string{key}, append([]any{owner}, args...)...).Err(); err != nil && err != redis.Nil {
		slog.Error("redis lock script failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}
