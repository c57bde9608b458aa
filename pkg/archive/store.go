package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	verrors "github.com/vango-dev/vdiff/internal/errors"
	"github.com/vango-dev/vdiff/pkg/metrics"
	"github.com/vango-dev/vdiff/pkg/session"
)

// Archive errors.
var (
	// ErrNotFound is returned by Get when no batch is stored under the
	// session and sequence number.
	ErrNotFound = errors.New("archive: batch not found")

	// ErrStoreClosed is returned by operations on a closed store.
	ErrStoreClosed = errors.New("archive: store is closed")

	// ErrCorrupt is returned when stored bytes do not match their digest.
	ErrCorrupt = errors.New("archive: batch digest mismatch")
)

// Store persists encoded batches by session and sequence number.
type Store interface {
	// Put stores a batch. Storing the same session and seq again replaces
	// the earlier batch.
	Put(ctx context.Context, b *session.Batch) error

	// Get returns the batch stored for session and seq, or ErrNotFound.
	Get(ctx context.Context, sessionID string, seq uint64) (*session.Batch, error)

	// List returns the stored sequence numbers of a session in ascending
	// order.
	List(ctx context.Context, sessionID string) ([]uint64, error)

	// Close releases the store's resources.
	Close() error
}

// Key returns the object key of a batch: <session>/<seq>.bin. The sequence
// number is zero padded so keys sort in sequence order. A session reopened
// under the same id reuses its keys, so a later batch overwrites the earlier
// one.
func Key(sessionID string, seq uint64) string {
	return fmt.Sprintf("%s/%020d.bin", sessionID, seq)
}

// parseKey extracts the sequence number from the base name of a key produced
// by Key.
func parseKey(key string) (seq uint64, ok bool) {
	base := key[strings.LastIndexByte(key, '/')+1:]
	base, found := strings.CutSuffix(base, ".bin")
	if !found {
		return 0, false
	}
	seq, err := strconv.ParseUint(base, 10, 64)
	if err != nil {
		return 0, false
	}
	return seq, true
}

func verify(b *session.Batch) error {
	if xxhash.Sum64(b.Data) != b.Digest {
		return fmt.Errorf("%w: session %s seq %d", ErrCorrupt, b.Session, b.Seq)
	}
	return nil
}

// Archiver publishes committed batches to a Store. It implements
// session.Sink.
type Archiver struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Collector
}

// NewArchiver creates an Archiver writing to store. logger and m may be nil.
func NewArchiver(store Store, logger *slog.Logger, m *metrics.Collector) *Archiver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Archiver{
		store:   store,
		logger:  logger.With("component", "archive"),
		metrics: m,
	}
}

// Publish stores b. Failures are returned as E601 errors.
func (a *Archiver) Publish(ctx context.Context, b *session.Batch) error {
	err := a.store.Put(ctx, b)
	a.metrics.ObserveArchive(err)
	if err != nil {
		return verrors.New("E601").
			WithDetailf("session %s seq %d", b.Session, b.Seq).
			Wrap(err)
	}
	a.logger.Debug("batch archived", "session_id", b.Session, "seq", b.Seq, "bytes", len(b.Data))
	return nil
}

// Store returns the underlying store.
func (a *Archiver) Store() Store {
	return a.store
}

var _ session.Sink = (*Archiver)(nil)
