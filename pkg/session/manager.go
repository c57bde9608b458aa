package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"

	"github.com/vango-dev/vdiff/pkg/metrics"
)

// ManagerConfig configures the session manager.
type ManagerConfig struct {
	// MaxSessions is the maximum number of live sessions. Opening one more
	// evicts the least recently used session. Default: 10000.
	MaxSessions int

	// IdleTimeout is how long a session may go without activity before the
	// cleanup loop closes it. Zero disables idle cleanup. Default: 30 minutes.
	IdleTimeout time.Duration

	// CleanupInterval is how often idle sessions are collected.
	// Default: 1 minute.
	CleanupInterval time.Duration

	// Session is the template for new reconcilers; ID is set per session.
	Session Config

	// OnEvict, if set, is called for every session closed by eviction or
	// idle cleanup, outside the manager lock.
	OnEvict func(r *Reconciler)
}

// DefaultManagerConfig returns a ManagerConfig with sensible defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		MaxSessions:     10000,
		IdleTimeout:     30 * time.Minute,
		CleanupInterval: 1 * time.Minute,
	}
}

type managed struct {
	r          *Reconciler
	lastActive time.Time
}

// Manager owns the reconcilers of all live sessions, with LRU eviction and
// idle cleanup.
type Manager struct {
	mu       sync.Mutex
	sessions *simplelru.LRU[string, *managed]

	config  ManagerConfig
	logger  *slog.Logger
	metrics *metrics.Collector
	now     func() time.Time

	done    chan struct{}
	stopped bool
}

// NewManager creates a session manager and starts its cleanup loop.
func NewManager(config ManagerConfig, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if config.MaxSessions <= 0 {
		config.MaxSessions = DefaultManagerConfig().MaxSessions
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = DefaultManagerConfig().CleanupInterval
	}
	if config.Session.Logger == nil {
		config.Session.Logger = logger
	}

	// Eviction is driven by Open so evicted sessions can be reported
	// outside the lock; the cache itself never evicts.
	sessions, _ := simplelru.NewLRU[string, *managed](config.MaxSessions+1, nil)

	m := &Manager{
		sessions: sessions,
		config:   config,
		logger:   logger.With("component", "session_manager"),
		metrics:  config.Session.Metrics,
		now:      time.Now,
		done:     make(chan struct{}),
	}
	if config.IdleTimeout > 0 {
		go m.cleanupLoop()
	}
	return m
}

// Open returns the reconciler for id, creating it when needed.
func (m *Manager) Open(id string) (*Reconciler, error) {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return nil, ErrManagerStopped
	}

	if s, ok := m.sessions.Get(id); ok {
		s.lastActive = m.now()
		m.mu.Unlock()
		return s.r, nil
	}

	var evicted []*Reconciler
	for m.sessions.Len() >= m.config.MaxSessions {
		r := m.evictOldestLocked()
		if r == nil {
			m.mu.Unlock()
			return nil, ErrMaxSessionsReached
		}
		evicted = append(evicted, r)
	}

	cfg := m.config.Session
	cfg.ID = id
	s := &managed{r: New(cfg), lastActive: m.now()}
	m.sessions.Add(id, s)
	count := m.sessions.Len()
	m.mu.Unlock()

	m.metrics.SessionOpened()
	m.logger.Debug("session opened", "session_id", id, "session_count", count)
	m.notifyEvicted(evicted)
	return s.r, nil
}

// Get returns the reconciler for id and marks it active.
func (m *Manager) Get(id string) (*Reconciler, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return nil, ErrManagerStopped
	}
	s, ok := m.sessions.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.lastActive = m.now()
	return s.r, nil
}

// Close removes a session. Closing an unknown session is a no-op.
func (m *Manager) Close(id string) {
	m.mu.Lock()
	ok := m.sessions.Remove(id)
	m.mu.Unlock()

	if ok {
		m.metrics.SessionClosed()
		m.logger.Debug("session closed", "session_id", id)
	}
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions.Len()
}

// IDs returns the live session ids, most recently used first.
func (m *Manager) IDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := m.sessions.Keys()
	ids := make([]string, 0, len(keys))
	for i := len(keys) - 1; i >= 0; i-- {
		ids = append(ids, keys[i])
	}
	return ids
}

// Stop stops the cleanup loop and closes every session.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	close(m.done)
	n := m.sessions.Len()
	m.sessions.Purge()
	m.mu.Unlock()

	for range n {
		m.metrics.SessionClosed()
	}
	m.logger.Info("session manager stopped", "sessions_closed", n)
}

func (m *Manager) evictOldestLocked() *Reconciler {
	id, s, ok := m.sessions.RemoveOldest()
	if !ok {
		return nil
	}
	m.logger.Debug("evicting session", "session_id", id, "reason", "lru")
	return s.r
}

func (m *Manager) notifyEvicted(evicted []*Reconciler) {
	for _, r := range evicted {
		m.metrics.SessionClosed()
		if m.config.OnEvict != nil {
			m.config.OnEvict(r)
		}
	}
}

// cleanupLoop periodically closes idle sessions.
func (m *Manager) cleanupLoop() {
	ticker := time.NewTicker(m.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cleanupIdle()
		case <-m.done:
			return
		}
	}
}

// cleanupIdle closes sessions idle for longer than IdleTimeout. The cache is
// ordered by activity, so the scan stops at the first active session.
func (m *Manager) cleanupIdle() int {
	m.mu.Lock()
	cutoff := m.now().Add(-m.config.IdleTimeout)
	var evicted []*Reconciler
	for {
		_, s, ok := m.sessions.GetOldest()
		if !ok || !s.lastActive.Before(cutoff) {
			break
		}
		_, s, _ = m.sessions.RemoveOldest()
		evicted = append(evicted, s.r)
	}
	m.mu.Unlock()

	if len(evicted) > 0 {
		m.logger.Info("closed idle sessions", "count", len(evicted))
	}
	m.notifyEvicted(evicted)
	return len(evicted)
}
