package session

import (
	"sync"
)

// History is a thread-safe ring buffer of recent batches, kept so a host
// that missed some can replay them instead of remounting the document.
//
// The ring buffer overwrites the oldest batch when full, maintaining a
// sliding window of recoverable sequence numbers.
type History struct {
	mu       sync.RWMutex
	entries  []*Batch
	head     int // Next write position (circular)
	count    int
	capacity int
}

// DefaultHistorySize is the capacity used when none is configured.
const DefaultHistorySize = 100

// NewHistory creates a history with the given capacity.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	return &History{
		entries:  make([]*Batch, capacity),
		capacity: capacity,
	}
}

// Add stores a batch. Batches must be added in sequence order.
func (h *History) Add(b *Batch) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries[h.head] = b
	h.head = (h.head + 1) % h.capacity
	if h.count < h.capacity {
		h.count++
	}
}

// at returns the i-th oldest batch. Callers hold the lock.
func (h *History) at(i int) *Batch {
	return h.entries[(h.head-h.count+i+h.capacity)%h.capacity]
}

// Since returns the batches with sequence numbers after afterSeq, oldest
// first. It returns ErrHistoryGap when any of them has been overwritten.
func (h *History) Since(afterSeq uint64) ([]*Batch, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.count == 0 {
		if afterSeq == 0 {
			return nil, nil
		}
		return nil, historyGap(afterSeq, 0, 0)
	}

	oldest, newest := h.at(0).Seq, h.at(h.count-1).Seq
	if afterSeq >= newest {
		return nil, nil
	}
	if afterSeq+1 < oldest {
		return nil, historyGap(afterSeq, oldest, newest)
	}

	first := int(afterSeq + 1 - oldest)
	out := make([]*Batch, 0, h.count-first)
	for i := first; i < h.count; i++ {
		out = append(out, h.at(i))
	}
	return out, nil
}

// Get returns the batch with sequence number seq.
func (h *History) Get(seq uint64) (*Batch, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.count == 0 {
		return nil, false
	}
	oldest := h.at(0).Seq
	if seq < oldest || seq-oldest >= uint64(h.count) {
		return nil, false
	}
	return h.at(int(seq - oldest)), true
}

// CanRecover reports whether every batch after lastSeq is still held.
func (h *History) CanRecover(lastSeq uint64) bool {
	_, err := h.Since(lastSeq)
	return err == nil
}

// MinSeq returns the oldest sequence number held, or 0 when empty.
func (h *History) MinSeq() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.count == 0 {
		return 0
	}
	return h.at(0).Seq
}

// MaxSeq returns the newest sequence number held, or 0 when empty.
func (h *History) MaxSeq() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.count == 0 {
		return 0
	}
	return h.at(h.count - 1).Seq
}

// Count returns the number of batches held.
func (h *History) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Clear removes all batches.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()

	clear(h.entries)
	h.head = 0
	h.count = 0
}
