package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/embedchat/internal/config"
)

// fakeClock is advanced by tests to expire sessions.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

type storeFixture struct {
	store   Store
	advance func(time.Duration)
}

var limits = Limits{MaxEntries: 4, TTL: time.Hour}

func newMemoryFixture(t *testing.T) storeFixture {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	s := NewMemoryStore(limits)
	s.now = clock.now
	return storeFixture{store: s, advance: clock.advance}
}

func newSQLiteFixture(t *testing.T) storeFixture {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	s, err := NewSQLiteStore(":memory:", limits)
	require.NoError(t, err)
	s.now = clock.now
	t.Cleanup(func() { s.Close() })
	return storeFixture{store: s, advance: clock.advance}
}

func newRedisFixture(t *testing.T) storeFixture {
	mr := miniredis.RunT(t)
	s := NewRedisStoreWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), limits)
	t.Cleanup(func() { s.Close() })
	return storeFixture{store: s, advance: mr.FastForward}
}

var fixtures = map[string]func(*testing.T) storeFixture{
	"memory": newMemoryFixture,
	"sqlite": newSQLiteFixture,
	"redis":  newRedisFixture,
}

func forEachStore(t *testing.T, fn func(t *testing.T, f storeFixture)) {
	for name, newFixture := range fixtures {
		t.Run(name, func(t *testing.T) {
			fn(t, newFixture(t))
		})
	}
}

func TestStoreAppendAndHistory(t *testing.T) {
	forEachStore(t, func(t *testing.T, f storeFixture) {
		ctx := context.Background()

		require.NoError(t, f.store.Append(ctx, "s1", Entry{Role: "user", Content: "hello"}))
		require.NoError(t, f.store.Append(ctx, "s1", Entry{Role: "assistant", Content: "hi there"}))
		require.NoError(t, f.store.Append(ctx, "s2", Entry{Role: "user", Content: "other"}))

		got, err := f.store.History(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, []Entry{
			{Role: "user", Content: "hello"},
			{Role: "assistant", Content: "hi there"},
		}, got)
	})
}

func TestStoreUnknownSessionIsEmpty(t *testing.T) {
	forEachStore(t, func(t *testing.T, f storeFixture) {
		got, err := f.store.History(context.Background(), "missing")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestStoreKeepsNewestEntries(t *testing.T) {
	forEachStore(t, func(t *testing.T, f storeFixture) {
		ctx := context.Background()
		for i := 0; i < 7; i++ {
			require.NoError(t, f.store.Append(ctx, "s1", Entry{Role: "user", Content: fmt.Sprintf("m%d", i)}))
		}

		got, err := f.store.History(ctx, "s1")
		require.NoError(t, err)
		require.Len(t, got, limits.MaxEntries)
		assert.Equal(t, "m3", got[0].Content)
		assert.Equal(t, "m6", got[3].Content)
	})
}

func TestStoreExpiresIdleSessions(t *testing.T) {
	forEachStore(t, func(t *testing.T, f storeFixture) {
		ctx := context.Background()
		require.NoError(t, f.store.Append(ctx, "idle", Entry{Role: "user", Content: "old"}))
		require.NoError(t, f.store.Append(ctx, "busy", Entry{Role: "user", Content: "kept"}))

		f.advance(40 * time.Minute)
		_, err := f.store.History(ctx, "busy")
		require.NoError(t, err)
		f.advance(40 * time.Minute)

		got, err := f.store.History(ctx, "idle")
		require.NoError(t, err)
		assert.Empty(t, got)

		got, err = f.store.History(ctx, "busy")
		require.NoError(t, err)
		assert.Equal(t, []Entry{{Role: "user", Content: "kept"}}, got)
	})
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(limits)
	require.NoError(t, s.Append(ctx, "s1", Entry{Role: "user", Content: "hello"}))

	got, _ := s.History(ctx, "s1")
	got[0].Content = "changed"

	again, _ := s.History(ctx, "s1")
	assert.Equal(t, "hello", again[0].Content)
}

func TestNewStore(t *testing.T) {
	s, err := NewStore(config.BackendConfig{HistoryStore: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = NewStore(config.BackendConfig{HistoryStore: "sqlite", SQLiteDSN: ":memory:"})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	s.Close()

	mr := miniredis.RunT(t)
	s, err = NewStore(config.BackendConfig{HistoryStore: "redis", RedisURL: "redis://" + mr.Addr() + "/0"})
	require.NoError(t, err)
	assert.IsType(t, &RedisStore{}, s)
	s.Close()

	_, err = NewStore(config.BackendConfig{HistoryStore: "postgres"})
	assert.ErrorIs(t, err, ErrUnknownStore)
}
