package cache

import (
	"agro-route-service/internal/platform/obs"
	"agro-route-service/internal/ports"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const routeKeyPrefix = "route:"

// RedisRouteCache stores computed routes as JSON with a fixed TTL.
type RedisRouteCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisRouteCache(client *redis.Client, ttl time.Duration) *RedisRouteCache {
	return &RedisRouteCache{Client: client, TTL: ttl}
}

func (c *RedisRouteCache) Get(ctx context.Context, key string) (_ ports.CachedRoute, _ bool, err error) {
	defer obs.Time(ctx, "routes.cache.Get")(&err)

	if c.Client == nil {
		return ports.CachedRoute{}, false, errors.New("route cache: client is nil")
	}

	b, err := c.Client.Get(ctx, routeKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ports.CachedRoute{}, false, nil
	}
	if err != nil {
		return ports.CachedRoute{}, false, fmt.Errorf("get route %q: %w", key, err)
	}

	var route ports.CachedRoute
	if err := json.Unmarshal(b, &route); err != nil {
		return ports.CachedRoute{}, false, fmt.Errorf("get route %q: decode: %w", key, err)
	}
	return route, true, nil
}

func (c *RedisRouteCache) Put(ctx context.Context, key string, route ports.CachedRoute) (err error) {
	defer obs.Time(ctx, "routes.cache.Put")(&err)

	if c.Client == nil {
		return errors.New("route cache: client is nil")
	}

	b, err := json.Marshal(route)
	if err != nil {
		return fmt.Errorf("put route %q: encode: %w", key, err)
	}

	if err := c.Client.Set(ctx, routeKeyPrefix+key, b, c.TTL).Err(); err != nil {
		return fmt.Errorf("put route %q: %w", key, err)
	}
	return nil
}
