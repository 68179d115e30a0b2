package market

import (
	"container/list"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SessionFactory builds a brokerage session for one client.
type SessionFactory func(creds Credentials) *DhanSession

type RegistryConfig struct {
	// TTL evicts sessions that have been idle for longer. Zero keeps them forever.
	TTL time.Duration
	// MaxSessions bounds the registry; the least recently used session goes first.
	MaxSessions int
}

// Registry maps clientId to a live session. All access goes through mu.
type Registry struct {
	cfg     RegistryConfig
	factory SessionFactory
	now     func() time.Time
	logger  zerolog.Logger

	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List
}

type registryEntry struct {
	clientID string
	token    string
	session  *DhanSession
	lastUsed time.Time
}

func NewRegistry(cfg RegistryConfig, factory SessionFactory) *Registry {
	return &Registry{
		cfg:     cfg,
		factory: factory,
		now:     time.Now,
		logger:  log.With().Str("component", "session_registry").Logger(),
		entries: make(map[string]*list.Element),
		order:   list.New(),
	}
}

// GetOrCreate returns the cached session for creds.ClientID, creating it when
// absent or when the caller presents a different access token.
func (r *Registry) GetOrCreate(creds Credentials) *DhanSession {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if el, ok := r.entries[creds.ClientID]; ok {
		e := el.Value.(*registryEntry)
		if e.token == creds.AccessToken {
			e.lastUsed = now
			r.order.MoveToFront(el)
			return e.session
		}
		r.removeLocked(el)
	}
	sess := r.factory(creds)
	r.insertLocked(creds, sess, now)
	return sess
}

// Put stores an already verified session, replacing any previous one.
func (r *Registry) Put(creds Credentials, sess *DhanSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if el, ok := r.entries[creds.ClientID]; ok {
		r.removeLocked(el)
	}
	r.insertLocked(creds, sess, r.now())
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.order.Len()
}

// Sweep drops sessions idle for longer than the TTL and returns how many went.
func (r *Registry) Sweep() int {
	if r.cfg.TTL <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-r.cfg.TTL)
	removed := 0
	for el := r.order.Back(); el != nil; {
		e := el.Value.(*registryEntry)
		if !e.lastUsed.Before(cutoff) {
			break
		}
		prev := el.Prev()
		r.removeLocked(el)
		removed++
		el = prev
	}
	return removed
}

// StartSweeper schedules Sweep on a cron spec such as "@every 5m".
// The caller owns the returned scheduler and must Stop it.
func (r *Registry) StartSweeper(spec string) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		if n := r.Sweep(); n > 0 {
			r.logger.Info().Int("evicted", n).Int("remaining", r.Len()).Msg("session sweep")
		}
	}); err != nil {
		return nil, fmt.Errorf("schedule session sweep %q: %w", spec, err)
	}
	c.Start()
	return c, nil
}

func (r *Registry) insertLocked(creds Credentials, sess *DhanSession, now time.Time) {
	el := r.order.PushFront(&registryEntry{
		clientID: creds.ClientID,
		token:    creds.AccessToken,
		session:  sess,
		lastUsed: now,
	})
	r.entries[creds.ClientID] = el
	for r.cfg.MaxSessions > 0 && r.order.Len() > r.cfg.MaxSessions {
		r.removeLocked(r.order.Back())
	}
}

func (r *Registry) removeLocked(el *list.Element) {
	e := el.Value.(*registryEntry)
	delete(r.entries, e.clientID)
	r.order.Remove(el)
}
