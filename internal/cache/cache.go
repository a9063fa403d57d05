// Package cache keeps the public campground list in Redis.
//
// The list endpoint is the only hot read that needs no session, so it is the
// only thing cached. Any write to a campground invalidates the whole entry
// and bumps a generation counter. A list is only stored if the generation is
// still the one the reader saw before querying the store, so a read that
// raced a write cannot put the pre-write list back.
// Callers treat every error from this package as a miss: a broken cache must
// never fail a request.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sakif/journeyhub/internal/middleware"
	"github.com/sakif/journeyhub/internal/model"
)

// ListKey is the Redis key holding the serialised campground list.
const ListKey = "journeyhub:campgrounds:list"

// GenerationKey counts list invalidations.
const GenerationKey = "journeyhub:campgrounds:gen"

// setIfGeneration writes the list only while the generation is unchanged.
// KEYS: generation, list. ARGV: expected generation, payload, ttl ms.
var setIfGeneration = redis.NewScript(`
local cur = redis.call("GET", KEYS[1]) or "0"
if cur ~= ARGV[1] then
	return 0
end
redis.call("SET", KEYS[2], ARGV[2], "PX", ARGV[3])
return 1
`)

// DefaultTTL bounds how stale the list can get if an invalidation is lost.
const DefaultTTL = 5 * time.Minute

type metricsHook struct{}

func (metricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (metricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if err != nil && !errors.Is(err, redis.Nil) {
			middleware.RedisErrors.WithLabelValues(cmd.Name()).Inc()
		}
		return err
	}
}

func (metricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		if err != nil && !errors.Is(err, redis.Nil) {
			middleware.RedisErrors.WithLabelValues("pipeline").Inc()
		}
		return err
	}
}

// Connect builds a client from a redis:// URL or a bare host:port and checks
// it with PING.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	var opts *redis.Options
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("cache: invalid redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: addr}
	}

	client := redis.NewClient(opts)
	client.AddHook(metricsHook{})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("cache: pinging redis: %w", err)
	}
	return client, nil
}

// CampgroundCache stores the campground summary list.
type CampgroundCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCampgroundCache wraps client. A non-positive ttl uses DefaultTTL.
func NewCampgroundCache(client *redis.Client, ttl time.Duration) *CampgroundCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CampgroundCache{client: client, ttl: ttl}
}

// GetList returns the cached list. ok is false on a miss.
func (c *CampgroundCache) GetList(ctx context.Context) (list []model.CampgroundSummary, ok bool, err error) {
	raw, err := c.client.Get(ctx, ListKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache: reading list: %w", err)
	}
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, false, fmt.Errorf("cache: decoding list: %w", err)
	}
	return list, true, nil
}

// Generation returns the current invalidation count. Read it before loading
// the list from the store and pass it to SetList.
func (c *CampgroundCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, GenerationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("cache: reading generation: %w", err)
	}
	return gen, nil
}

// SetList stores list with the cache TTL unless an invalidation happened
// after gen was read. stored reports whether the write went through.
func (c *CampgroundCache) SetList(ctx context.Context, list []model.CampgroundSummary, gen int64) (stored bool, err error) {
	raw, err := json.Marshal(list)
	if err != nil {
		return false, fmt.Errorf("cache: encoding list: %w", err)
	}
	n, err := setIfGeneration.Run(ctx, c.client,
		[]string{GenerationKey, ListKey},
		strconv.FormatInt(gen, 10), raw, c.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("cache: writing list: %w", err)
	}
	return n == 1, nil
}

// Invalidate drops the cached list and bumps the generation in one
// transaction.
func (c *CampgroundCache) Invalidate(ctx context.Context) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, GenerationKey)
		pipe.Del(ctx, ListKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("cache: invalidating list: %w", err)
	}
	return nil
}
