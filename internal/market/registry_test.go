package market

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func countingFactory(n *atomic.Int32) SessionFactory {
	return func(creds Credentials) *DhanSession {
		n.Add(1)
		return NewDhanSession(DhanConfig{BaseURL: "http://127.0.0.1:0"}, creds)
	}
}

func TestRegistry_GetOrCreateReusesSession(t *testing.T) {
	var created atomic.Int32
	r := NewRegistry(RegistryConfig{}, countingFactory(&created))

	a := r.GetOrCreate(Credentials{ClientID: "c1", AccessToken: "t1"})
	b := r.GetOrCreate(Credentials{ClientID: "c1", AccessToken: "t1"})
	assert.Same(t, a, b)
	assert.Equal(t, int32(1), created.Load())

	other := r.GetOrCreate(Credentials{ClientID: "c2", AccessToken: "t1"})
	assert.NotSame(t, a, other)
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_TokenChangeReplacesSession(t *testing.T) {
	var created atomic.Int32
	r := NewRegistry(RegistryConfig{}, countingFactory(&created))

	first := r.GetOrCreate(Credentials{ClientID: "c1", AccessToken: "old"})
	second := r.GetOrCreate(Credentials{ClientID: "c1", AccessToken: "new"})
	assert.NotSame(t, first, second)
	assert.Equal(t, 1, r.Len())
	assert.Same(t, second, r.GetOrCreate(Credentials{ClientID: "c1", AccessToken: "new"}))
}

func TestRegistry_ConcurrentGetOrCreateBuildsOnce(t *testing.T) {
	var created atomic.Int32
	r := NewRegistry(RegistryConfig{}, countingFactory(&created))

	var wg sync.WaitGroup
	sessions := make([]*DhanSession, 32)
	for i := range sessions {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sessions[i] = r.GetOrCreate(Credentials{ClientID: "shared", AccessToken: "tok"})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), created.Load())
	for _, s := range sessions {
		assert.Same(t, sessions[0], s)
	}
}

func TestRegistry_EvictsLeastRecentlyUsed(t *testing.T) {
	var created atomic.Int32
	r := NewRegistry(RegistryConfig{MaxSessions: 2}, countingFactory(&created))

	r.GetOrCreate(Credentials{ClientID: "a", AccessToken: "t"})
	r.GetOrCreate(Credentials{ClientID: "b", AccessToken: "t"})
	r.GetOrCreate(Credentials{ClientID: "a", AccessToken: "t"})
	r.GetOrCreate(Credentials{ClientID: "c", AccessToken: "t"})
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, int32(3), created.Load())

	// b was evicted, a was kept
	r.GetOrCreate(Credentials{ClientID: "a", AccessToken: "t"})
	assert.Equal(t, int32(3), created.Load())
	r.GetOrCreate(Credentials{ClientID: "b", AccessToken: "t"})
	assert.Equal(t, int32(4), created.Load())
}

func TestRegistry_SweepDropsIdleSessions(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 11, 12, 9, 0, 0, 0, time.UTC)}
	var created atomic.Int32
	r := NewRegistry(RegistryConfig{TTL: time.Hour}, countingFactory(&created))
	r.now = clock.Now

	r.GetOrCreate(Credentials{ClientID: "idle", AccessToken: "t"})
	clock.Advance(45 * time.Minute)
	r.GetOrCreate(Credentials{ClientID: "busy", AccessToken: "t"})
	clock.Advance(30 * time.Minute)

	assert.Equal(t, 1, r.Sweep())
	assert.Equal(t, 1, r.Len())

	clock.Advance(2 * time.Hour)
	assert.Equal(t, 1, r.Sweep())
	assert.Zero(t, r.Len())
}

func TestRegistry_SweepWithoutTTLKeepsEverything(t *testing.T) {
	var created atomic.Int32
	r := NewRegistry(RegistryConfig{}, countingFactory(&created))
	for i := 0; i < 3; i++ {
		r.GetOrCreate(Credentials{ClientID: fmt.Sprintf("c%d", i), AccessToken: "t"})
	}
	assert.Zero(t, r.Sweep())
	assert.Equal(t, 3, r.Len())
}

func TestRegistry_StartSweeper(t *testing.T) {
	var created atomic.Int32
	r := NewRegistry(RegistryConfig{TTL: time.Minute}, countingFactory(&created))

	_, err := r.StartSweeper("not a schedule")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schedule session sweep")

	c, err := r.StartSweeper("@every 1m")
	require.NoError(t, err)
	assert.Len(t, c.Entries(), 1)
	c.Stop()
}

func TestRegistry_PutReplaces(t *testing.T) {
	var created atomic.Int32
	r := NewRegistry(RegistryConfig{}, countingFactory(&created))
	creds := Credentials{ClientID: "c1", AccessToken: "t"}

	r.GetOrCreate(creds)
	verified := NewDhanSession(DhanConfig{}, creds)
	r.Put(creds, verified)

	assert.Equal(t, 1, r.Len())
	assert.Same(t, verified, r.GetOrCreate(creds))
	assert.Equal(t, "c1", verified.ClientID())
}
