package plugins

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/breeew/otterly-api/internal/core"
)

type limiterGroup struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func newLimiterGroup() *limiterGroup {
	return &limiterGroup{
		limiters: make(map[string]*rate.Limiter),
	}
}

// use returns the limiter for method+key, ratelimit is the allowed count per minute.
func (g *limiterGroup) use(key, method string, ratelimit int) core.Limiter {
	if ratelimit <= 0 {
		ratelimit = 1
	}
	id := method + ":" + key

	g.mu.Lock()
	defer g.mu.Unlock()
	l, exist := g.limiters[id]
	if !exist {
		l = rate.NewLimiter(rate.Every(time.Minute/time.Duration(ratelimit)), ratelimit*2)
		g.limiters[id] = l
	}
	return l
}
