package archive

import (
	"context"
	"slices"
	"sync"

	"github.com/vango-dev/vdiff/pkg/session"
)

// MemoryStore keeps batches in memory. It suits tests and single-process
// deployments that only need recent replay.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]map[uint64]session.Batch
	closed   bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]map[uint64]session.Batch),
	}
}

// Put stores a copy of b.
func (m *MemoryStore) Put(ctx context.Context, b *session.Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	// Copy data so later reuse of the buffer doesn't change the archive.
	cp := *b
	cp.Data = slices.Clone(b.Data)

	batches, ok := m.sessions[b.Session]
	if !ok {
		batches = make(map[uint64]session.Batch)
		m.sessions[b.Session] = batches
	}
	batches[b.Seq] = cp
	return nil
}

// Get returns a copy of the stored batch.
func (m *MemoryStore) Get(ctx context.Context, sessionID string, seq uint64) (*session.Batch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}
	b, ok := m.sessions[sessionID][seq]
	if !ok {
		return nil, ErrNotFound
	}
	b.Data = slices.Clone(b.Data)
	return &b, nil
}

// List returns the stored sequence numbers of a session.
func (m *MemoryStore) List(ctx context.Context, sessionID string) ([]uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}
	seqs := make([]uint64, 0, len(m.sessions[sessionID]))
	for seq := range m.sessions[sessionID] {
		seqs = append(seqs, seq)
	}
	slices.Sort(seqs)
	return seqs, nil
}

// Close drops every stored batch. Further calls fail with ErrStoreClosed.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.sessions = nil
	return nil
}

var _ Store = (*MemoryStore)(nil)
