package availability

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRepo struct {
	*mockRepo
	gets int
}

func (c *countingRepo) Get(ctx context.Context, id int64) (*Schedule, error) {
	c.gets++
	return c.mockRepo.Get(ctx, id)
}

func newCachedRepo(t *testing.T) (*CachedRepository, *countingRepo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	inner := &countingRepo{mockRepo: newMockRepo()}
	return NewCachedRepository(inner, client, time.Minute), inner, mr
}

func TestCachedRepository_ReadThrough(t *testing.T) {
	cache, inner, mr := newCachedRepo(t)
	ctx := context.Background()

	s := NewSchedule()
	s.SetDay(Monday, []Slot{{StartTime: NewClock(9, 0), EndTime: NewClock(17, 0), Location: "Main Clinic"}})
	require.NoError(t, inner.Replace(ctx, 8, s))

	first, err := cache.Get(ctx, 8)
	require.NoError(t, err)
	second, err := cache.Get(ctx, 8)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.gets, "second read should be served from redis")
	assert.True(t, first.Equal(s))
	assert.True(t, second.Equal(s))
	assert.True(t, mr.Exists("availability:8"))
	assert.Equal(t, time.Minute, mr.TTL("availability:8"))
}

func TestCachedRepository_ReplaceInvalidates(t *testing.T) {
	cache, inner, mr := newCachedRepo(t)
	ctx := context.Background()

	_, err := cache.Get(ctx, 8)
	require.NoError(t, err)
	require.True(t, mr.Exists("availability:8"))

	s := NewSchedule()
	s.SetDay(Friday, []Slot{{StartTime: NewClock(10, 0), EndTime: NewClock(11, 0)}})
	require.NoError(t, cache.Replace(ctx, 8, s))
	assert.False(t, mr.Exists("availability:8"))

	got, err := cache.Get(ctx, 8)
	require.NoError(t, err)
	assert.True(t, got.Equal(s))
	assert.Equal(t, 2, inner.gets)
}

func TestCachedRepository_RedisDown(t *testing.T) {
	cache, inner, mr := newCachedRepo(t)
	mr.Close()

	s, err := cache.Get(context.Background(), 2)
	require.NoError(t, err, "cache outage should fall back to the store")
	assert.True(t, s.Equal(NewSchedule()))
	assert.Equal(t, 1, inner.gets)
}

func TestCachedRepository_CorruptEntry(t *testing.T) {
	cache, inner, mr := newCachedRepo(t)
	require.NoError(t, mr.Set("availability:4", "not json"))

	_, err := cache.Get(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, 1, inner.gets)
}

func TestCachedRepository_SlotEditsIgnoreStaleEntry(t *testing.T) {
	cache, inner, mr := newCachedRepo(t)
	svc := NewService(cache, nil)
	ctx := context.Background()

	a := Slot{StartTime: NewClock(9, 0), EndTime: NewClock(10, 0)}
	seed := NewSchedule()
	seed.SetDay(Monday, []Slot{a})
	require.NoError(t, inner.Replace(ctx, 8, seed))

	_, err := cache.Get(ctx, 8)
	require.NoError(t, err)
	stale, err := json.Marshal(seed)
	require.NoError(t, err)

	_, err = svc.AddSlot(ctx, 8, Monday, Slot{StartTime: NewClock(11, 0), EndTime: NewClock(12, 0)})
	require.NoError(t, err)
	assert.False(t, mr.Exists("availability:8"), "edit should invalidate the cached week")

	// A reader that loaded the week before the edit writes it back late.
	require.NoError(t, mr.Set("availability:8", string(stale)))

	slots, err := svc.AddSlot(ctx, 8, Monday, Slot{StartTime: NewClock(13, 0), EndTime: NewClock(14, 0)})
	require.NoError(t, err)
	assert.Len(t, slots, 3)

	stored, err := inner.mockRepo.Get(ctx, 8)
	require.NoError(t, err)
	assert.Len(t, stored.Day(Monday), 3, "earlier edit must survive a stale cache entry")

	// Removing by index also works against the stored week, not the cached one.
	require.NoError(t, mr.Set("availability:8", string(stale)))
	slots, err = svc.RemoveSlot(ctx, 8, Monday, 2)
	require.NoError(t, err)
	assert.Len(t, slots, 2)
}
