// Package cache keeps read-through copies of events in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Shivanand-hulikatti/kayak-tours/internal/model"
)

// ErrMiss is returned when a key is not cached.
var ErrMiss = errors.New("cache miss")

const (
	itemPrefix    = "kayak:events:item:"
	pagePrefix    = "kayak:events:page:"
	generationKey = "kayak:events:gen"
)

// setIfGeneration writes ARGV[2] to KEYS[2] only while KEYS[1] still holds
// the generation in ARGV[1]. ARGV[3] is the TTL in milliseconds, 0 for none.
var setIfGeneration = redis.NewScript(`
local cur = redis.call('GET', KEYS[1]) or '0'
if cur ~= ARGV[1] then
	return 0
end
if ARGV[3] == '0' then
	redis.call('SET', KEYS[2], ARGV[2])
else
	redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
end
return 1
`)

func itemKey(id int64) string {
	return itemPrefix + strconv.FormatInt(id, 10)
}

func pageKey(q model.PageQuery) string {
	return fmt.Sprintf("%s%d:%d", pagePrefix, q.PageNumber, q.PageSize)
}

// RedisCache stores JSON-encoded events and list pages with a fixed TTL.
//
// Every Invalidate bumps a generation counter. Writers read the generation
// before loading from the database and pass it to SetEvent or SetPage; the
// write is dropped if an invalidation happened in between, so a slow reader
// cannot put back a row that a committed change already replaced.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func (c *RedisCache) Event(ctx context.Context, id int64) (*model.Event, error) {
	var e model.Event
	if err := c.get(ctx, itemKey(id), &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// Generation returns the current invalidation generation.
func (c *RedisCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.rdb.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get %s: %w", generationKey, err)
	}
	return gen, nil
}

func (c *RedisCache) SetEvent(ctx context.Context, gen int64, e *model.Event) error {
	return c.set(ctx, gen, itemKey(e.ID), e)
}

func (c *RedisCache) Page(ctx context.Context, q model.PageQuery) ([]model.Event, error) {
	var events []model.Event
	if err := c.get(ctx, pageKey(q), &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (c *RedisCache) SetPage(ctx context.Context, gen int64, q model.PageQuery, events []model.Event) error {
	return c.set(ctx, gen, pageKey(q), events)
}

// Invalidate bumps the generation, then drops the cached event and every
// cached list page, since any page may contain it.
func (c *RedisCache) Invalidate(ctx context.Context, id int64) error {
	if err := c.rdb.Incr(ctx, generationKey).Err(); err != nil {
		return fmt.Errorf("incr %s: %w", generationKey, err)
	}
	if err := c.rdb.Del(ctx, itemKey(id)).Err(); err != nil {
		return fmt.Errorf("delete %s: %w", itemKey(id), err)
	}
	return c.PurgePages(ctx)
}

// PurgePages deletes every cached list page.
func (c *RedisCache) PurgePages(ctx context.Context) error {
	iter := c.rdb.Scan(ctx, 0, pagePrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("delete %s: %w", iter.Val(), err)
		}
	}
	return iter.Err()
}

func (c *RedisCache) get(ctx context.Context, key string, dst any) error {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrMiss
		}
		return fmt.Errorf("get %s: %w", key, err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (c *RedisCache) set(ctx context.Context, gen int64, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	err = setIfGeneration.Run(ctx, c.rdb,
		[]string{generationKey, key},
		strconv.FormatInt(gen, 10), b, c.ttl.Milliseconds(),
	).Err()
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// NoopCache never stores anything (used when Redis is not configured).
type NoopCache struct{}

func (NoopCache) Event(context.Context, int64) (*model.Event, error) { return nil, ErrMiss }

func (NoopCache) Generation(context.Context) (int64, error) { return 0, nil }

func (NoopCache) SetEvent(context.Context, int64, *model.Event) error { return nil }

func (NoopCache) Page(context.Context, model.PageQuery) ([]model.Event, error) { return nil, ErrMiss }

func (NoopCache) SetPage(context.Context, int64, model.PageQuery, []model.Event) error { return nil }

func (NoopCache) Invalidate(context.Context, int64) error { return nil }
