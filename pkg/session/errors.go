package session

import (
	"errors"

	verrors "github.com/vango-dev/vdiff/internal/errors"
)

// Session errors.
var (
	// ErrHistoryGap is returned when a resync asks for batches the history
	// no longer holds. The host needs a snapshot instead.
	ErrHistoryGap = errors.New("session: batch history gap")

	// ErrSessionNotFound is returned when a session doesn't exist.
	ErrSessionNotFound = errors.New("session: not found")

	// ErrMaxSessionsReached is returned when the session limit is reached and
	// no idle session can be evicted.
	ErrMaxSessionsReached = errors.New("session: maximum session limit reached")

	// ErrManagerStopped is returned when operations are attempted on a stopped manager.
	ErrManagerStopped = errors.New("session: manager is stopped")
)

func historyGap(after, oldest, newest uint64) error {
	return verrors.New("E600").
		WithDetailf("after %d requested, history holds %d..%d", after, oldest, newest).
		Wrap(ErrHistoryGap)
}
