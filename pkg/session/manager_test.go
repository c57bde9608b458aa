package session

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestManager(config ManagerConfig) (*Manager, *fakeClock) {
	if config.CleanupInterval == 0 {
		config.CleanupInterval = time.Hour
	}
	m := NewManager(config, nil)
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	m.mu.Lock()
	m.now = clock.now
	m.mu.Unlock()
	return m, clock
}

func TestManagerOpenGetClose(t *testing.T) {
	m, _ := newTestManager(ManagerConfig{})
	defer m.Stop()

	r, err := m.Open("a")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if r.ID() != "a" {
		t.Errorf("Expected id a, got %q", r.ID())
	}
	again, _ := m.Open("a")
	if again != r {
		t.Error("Open returned a different reconciler for an existing session")
	}
	got, err := m.Get("a")
	if err != nil || got != r {
		t.Fatalf("Get = %v, %v", got, err)
	}

	m.Close("a")
	m.Close("a")
	if _, err := m.Get("a"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
	if m.Len() != 0 {
		t.Errorf("Expected 0 sessions, got %d", m.Len())
	}
}

func TestManagerEvictsLeastRecentlyUsed(t *testing.T) {
	var evicted []string
	m, _ := newTestManager(ManagerConfig{
		MaxSessions: 3,
		OnEvict:     func(r *Reconciler) { evicted = append(evicted, r.ID()) },
	})
	defer m.Stop()

	for _, id := range []string{"a", "b", "c"} {
		if _, err := m.Open(id); err != nil {
			t.Fatalf("Open(%s): %v", id, err)
		}
	}
	if _, err := m.Get("a"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Open("d"); err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]string{"b"}, evicted); diff != "" {
		t.Errorf("evicted mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"d", "a", "c"}, m.IDs()); diff != "" {
		t.Errorf("IDs mismatch (-want +got):\n%s", diff)
	}
}

func TestManagerCleanupIdle(t *testing.T) {
	var evicted []string
	m, clock := newTestManager(ManagerConfig{
		IdleTimeout: 10 * time.Minute,
		OnEvict:     func(r *Reconciler) { evicted = append(evicted, r.ID()) },
	})
	defer m.Stop()

	m.Open("old")
	clock.advance(6 * time.Minute)
	m.Open("mid")
	clock.advance(6 * time.Minute)
	m.Open("new")

	if n := m.cleanupIdle(); n != 1 {
		t.Fatalf("Expected 1 idle session closed, got %d", n)
	}
	if diff := cmp.Diff([]string{"old"}, evicted); diff != "" {
		t.Errorf("evicted mismatch (-want +got):\n%s", diff)
	}

	// Activity resets the idle clock.
	clock.advance(5 * time.Minute)
	m.Get("mid")
	clock.advance(6 * time.Minute)
	if n := m.cleanupIdle(); n != 1 {
		t.Fatalf("Expected 1 idle session closed, got %d", n)
	}
	if diff := cmp.Diff([]string{"mid"}, m.IDs()); diff != "" {
		t.Errorf("IDs mismatch (-want +got):\n%s", diff)
	}
}

func TestManagerStop(t *testing.T) {
	m, _ := newTestManager(ManagerConfig{IdleTimeout: time.Minute})
	m.Open("a")
	m.Open("b")

	m.Stop()
	m.Stop()

	if m.Len() != 0 {
		t.Errorf("Expected 0 sessions after Stop, got %d", m.Len())
	}
	if _, err := m.Open("c"); !errors.Is(err, ErrManagerStopped) {
		t.Errorf("Expected ErrManagerStopped from Open, got %v", err)
	}
	if _, err := m.Get("a"); !errors.Is(err, ErrManagerStopped) {
		t.Errorf("Expected ErrManagerStopped from Get, got %v", err)
	}
}

func TestManagerSessionTemplate(t *testing.T) {
	m, _ := newTestManager(ManagerConfig{Session: Config{HistorySize: 7}})
	defer m.Stop()

	r, _ := m.Open("x")
	if r.History().capacity != 7 {
		t.Errorf("Expected history capacity 7, got %d", r.History().capacity)
	}
}
