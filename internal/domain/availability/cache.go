package availability

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// CachedRepository is a read-through Redis cache in front of another
// Repository. Redis failures fall back to the underlying store.
type CachedRepository struct {
	next  Repository
	redis redis.Cmdable
	ttl   time.Duration
}

func NewCachedRepository(next Repository, client redis.Cmdable, ttl time.Duration) *CachedRepository {
	return &CachedRepository{next: next, redis: client, ttl: ttl}
}

func cacheKey(practitionerID int64) string {
	return "availability:" + strconv.FormatInt(practitionerID, 10)
}

func (c *CachedRepository) Get(ctx context.Context, practitionerID int64) (*Schedule, error) {
	key := cacheKey(practitionerID)
	data, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		s := NewSchedule()
		if jerr := json.Unmarshal(data, s); jerr == nil {
			return s, nil
		}
		zerolog.Ctx(ctx).Warn().Str("key", key).Msg("discarding undecodable availability cache entry")
	case !errors.Is(err, redis.Nil):
		zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("availability cache read failed")
	}

	s, err := c.next.Get(ctx, practitionerID)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(s); err == nil {
		if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("availability cache write failed")
		}
	}
	return s, nil
}

func (c *CachedRepository) Replace(ctx context.Context, practitionerID int64, s *Schedule) error {
	if err := c.next.Replace(ctx, practitionerID, s); err != nil {
		return err
	}
	c.invalidate(ctx, practitionerID)
	return nil
}

// Update bypasses redis entirely; a cached copy may be stale.
func (c *CachedRepository) Update(ctx context.Context, practitionerID int64, fn func(*Schedule) error) (*Schedule, error) {
	s, err := c.next.Update(ctx, practitionerID, fn)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, practitionerID)
	return s, nil
}

func (c *CachedRepository) invalidate(ctx context.Context, practitionerID int64) {
	key := cacheKey(practitionerID)
	if err := c.redis.Del(ctx, key).Err(); err != nil {
		// The entry expires on its own after ttl.
		zerolog.Ctx(ctx).Error().Err(err).Str("key", key).Msg("availability cache invalidation failed")
	}
}
