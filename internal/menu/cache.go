package menu

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedRepo is a Redis read-through decorator over a Repository.
//
// Menus are read on every webhook and change rarely, so a short TTL keeps
// the store off the hot path. Cache failures degrade to the underlying
// repository; they never fail a call.
//
// Not-found is cached too (as a tombstone) so misdials don't hammer the DB.
type CachedRepo struct {
	next Repository
	rdb  *redis.Client
	ttl  time.Duration
}

func NewCachedRepo(next Repository, rdb *redis.Client, ttl time.Duration) *CachedRepo {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &CachedRepo{next: next, rdb: rdb, ttl: ttl}
}

const cacheTombstone = "!"

func (c *CachedRepo) GetByNumber(ctx context.Context, dialedNumber string) (Menu, error) {
	var m Menu
	if hit, notFound := c.get(ctx, "ivr:menu:num:"+dialedNumber, &m); notFound {
		return Menu{}, ErrNotFound
	} else if hit {
		return m, nil
	}
	m, err := c.next.GetByNumber(ctx, dialedNumber)
	c.put(ctx, "ivr:menu:num:"+dialedNumber, m, err)
	return m, err
}

func (c *CachedRepo) GetByID(ctx context.Context, id string) (Menu, error) {
	var m Menu
	if hit, notFound := c.get(ctx, "ivr:menu:id:"+id, &m); notFound {
		return Menu{}, ErrNotFound
	} else if hit {
		return m, nil
	}
	m, err := c.next.GetByID(ctx, id)
	c.put(ctx, "ivr:menu:id:"+id, m, err)
	return m, err
}

func (c *CachedRepo) ListOptions(ctx context.Context, menuID string) ([]Option, error) {
	var opts []Option
	if hit, _ := c.get(ctx, "ivr:opts:"+menuID, &opts); hit {
		return opts, nil
	}
	opts, err := c.next.ListOptions(ctx, menuID)
	c.put(ctx, "ivr:opts:"+menuID, opts, err)
	return opts, err
}

// get returns (hit, notFoundTombstone). Any cache error counts as a miss.
func (c *CachedRepo) get(ctx context.Context, key string, dst any) (bool, bool) {
	if c.rdb == nil {
		return false, false
	}
	raw, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			slog.Debug("menu cache read failed", "key", key, "err", err)
		}
		return false, false
	}
	if raw == cacheTombstone {
		return false, true
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, false
	}
	return true, false
}

func (c *CachedRepo) put(ctx context.Context, key string, v any, loadErr error) {
	if c.rdb == nil {
		return
	}
	var payload string
	switch {
	case loadErr == nil:
		b, err := json.Marshal(v)
		if err != nil {
			return
		}
		payload = string(b)
	case errors.Is(loadErr, ErrNotFound):
		payload = cacheTombstone
	default:
		// Transient store errors are not cacheable.
		return
	}
	if err := c.rdb.Set(ctx, key, payload, c.ttl).Err(); err != nil && ctx.Err() == nil {
		slog.Debug("menu cache write failed", "key", key, "err", err)
	}
}
