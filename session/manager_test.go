package session

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/mediavec/engine"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var localDrivers = []StoreType{StoreTypeMemory, StoreTypeSQLite}

func newTestStore(t *testing.T, driver StoreType) Store {
	t.Helper()
	var opts []StoreOption
	if driver == StoreTypeSQLite {
		db, err := engine.Open(filepath.Join(t.TempDir(), "sessions.sqlite"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })
		opts = append(opts, WithSQLiteDB(db))
	}
	store, err := NewStore(context.Background(), driver, opts...)
	require.NoError(t, err)
	return store
}

func newTestManager(t *testing.T, driver StoreType, ttl time.Duration) (*Manager, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	m, err := NewManager(newTestStore(t, driver), ttl, WithClock(clock.Now))
	require.NoError(t, err)
	return m, clock
}

// forEachDriver runs fn against every store that needs no external service.
func forEachDriver(t *testing.T, ttl time.Duration, fn func(t *testing.T, m *Manager, clock *fakeClock)) {
	for _, driver := range localDrivers {
		t.Run(string(driver), func(t *testing.T) {
			m, clock := newTestManager(t, driver, ttl)
			fn(t, m, clock)
		})
	}
}

func assertSameSession(t *testing.T, want, got *Session) {
	t.Helper()
	require.NotNil(t, got)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Subject, got.Subject)
	assert.Equal(t, want.Token, got.Token)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt), "created_at")
	assert.True(t, want.UpdatedAt.Equal(got.UpdatedAt), "updated_at")
	assert.True(t, want.ExpiresAt.Equal(got.ExpiresAt), "expires_at")
}

func TestNewStore(t *testing.T) {
	ctx := context.Background()
	_, err := NewStore(ctx, StoreTypeRedis)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewStore(ctx, StoreTypeSQLite)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewStore(ctx, "etcd")
	assert.ErrorIs(t, err, ErrInvalidStoreType)

	s, err := NewStore(ctx, StoreTypeMemory)
	require.NoError(t, err)
	assert.NoError(t, s.Close())
}

func TestNewManager_InvalidConfig(t *testing.T) {
	store := newTestStore(t, StoreTypeMemory)

	_, err := NewManager(nil, time.Minute)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = NewManager(store, 0)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestManager_CreateGet(t *testing.T) {
	forEachDriver(t, time.Minute, testCreateGet)
}

func testCreateGet(t *testing.T, m *Manager, clock *fakeClock) {
	ctx := context.Background()

	anon, err := m.Create(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, anon.Subject)
	assert.Nil(t, anon.Token)
	assert.Equal(t, clock.Now().Add(time.Minute), anon.ExpiresAt)

	named, err := m.Create(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, named.Subject)
	assert.Equal(t, "alice", *named.Subject)
	assert.NotEqual(t, anon.ID, named.ID)

	got, err := m.Get(ctx, named.ID)
	require.NoError(t, err)
	assertSameSession(t, named, got)

	got, err = m.Get(ctx, anon.ID)
	require.NoError(t, err)
	assertSameSession(t, anon, got)

	_, err = m.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestManager_ReturnedSessionIsACopy(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, StoreTypeMemory, time.Minute)

	s, err := m.Create(ctx, "alice")
	require.NoError(t, err)
	*s.Subject = "mallory"

	got, err := m.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", *got.Subject)
}

func TestManager_Expiry(t *testing.T) {
	forEachDriver(t, time.Minute, testExpiry)
}

func testExpiry(t *testing.T, m *Manager, clock *fakeClock) {
	ctx := context.Background()

	s, err := m.Create(ctx, "")
	require.NoError(t, err)

	clock.Advance(59 * time.Second)
	_, err = m.Get(ctx, s.ID)
	require.NoError(t, err)

	clock.Advance(time.Second)
	_, err = m.Get(ctx, s.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestManager_SetTokenExtendsExpiry(t *testing.T) {
	forEachDriver(t, time.Minute, testSetToken)
}

func testSetToken(t *testing.T, m *Manager, clock *fakeClock) {
	ctx := context.Background()

	s, err := m.Create(ctx, "alice")
	require.NoError(t, err)

	clock.Advance(50 * time.Second)
	updated, err := m.SetToken(ctx, s.ID, "tok-1")
	require.NoError(t, err)
	require.NotNil(t, updated.Token)
	assert.Equal(t, "tok-1", *updated.Token)
	assert.Equal(t, clock.Now().Add(time.Minute), updated.ExpiresAt)

	clock.Advance(50 * time.Second)
	got, err := m.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", *got.Token)

	clock.Advance(time.Hour)
	_, err = m.SetToken(ctx, s.ID, "tok-2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestManager_Sweep(t *testing.T) {
	forEachDriver(t, time.Minute, testSweep)
}

func testSweep(t *testing.T, m *Manager, clock *fakeClock) {
	ctx := context.Background()

	old1, err := m.Create(ctx, "")
	require.NoError(t, err)
	old2, err := m.Create(ctx, "")
	require.NoError(t, err)
	clock.Advance(30 * time.Second)
	fresh, err := m.Create(ctx, "")
	require.NoError(t, err)

	n, err := m.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	clock.Advance(30 * time.Second)
	n, err = m.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, id := range []string{old1.ID, old2.ID} {
		raw, err := m.store.Get(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, raw)
	}
	_, err = m.Get(ctx, fresh.ID)
	assert.NoError(t, err)
}

func TestManager_Delete(t *testing.T) {
	forEachDriver(t, time.Minute, func(t *testing.T, m *Manager, _ *fakeClock) {
		testDelete(t, m)
	})
}

func testDelete(t *testing.T, m *Manager) {
	ctx := context.Background()

	s, err := m.Create(ctx, "")
	require.NoError(t, err)
	require.NoError(t, m.Delete(ctx, s.ID))
	_, err = m.Get(ctx, s.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestManager_RunStopsWithContext(t *testing.T) {
	m, _ := newTestManager(t, StoreTypeMemory, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- m.Run(ctx, time.Millisecond) }()
	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("MEDIAVEC_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("MEDIAVEC_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	store, err := NewStore(ctx, StoreTypeRedis, WithRedisClient(client), WithRedisPrefix("mediavec-test:"))
	require.NoError(t, err)
	defer store.Close()

	m, err := NewManager(store, time.Minute)
	require.NoError(t, err)

	s, err := m.Create(ctx, "alice")
	require.NoError(t, err)
	defer m.Delete(ctx, s.ID)

	got, err := m.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", *got.Subject)
	assert.True(t, s.ExpiresAt.Equal(got.ExpiresAt))

	ttl, err := client.TTL(ctx, "mediavec-test:"+s.ID).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, m.Delete(ctx, s.ID))
	_, err = m.Get(ctx, s.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
