// Package session runs reconciliation for live documents.
//
// A Reconciler holds the previous aligned tree of one session and turns each
// new tree into a numbered binary batch:
//
//	r := session.New(session.Config{ID: "s1", Logger: logger})
//	b, err := r.Render(ctx, page)
//	if err != nil {
//	    // invalid tree; the previous tree is still current
//	}
//	if b != nil {
//	    send(b.Data)
//	}
//
// Each render aligns, diffs and encodes under its own OpenTelemetry span and
// records Prometheus metrics when a Collector is configured. Committed
// batches go to every configured Sink, such as a stream server or an
// archive.
//
// # Resync
//
// The last HistorySize batches are kept in a ring buffer. A host that
// reconnects after applying sequence n asks for Resync(n); when the history
// has moved past n the host applies Snapshot instead, a fresh AddRoot mount
// of the current document.
//
// # Sessions
//
// Manager keeps one Reconciler per session id with LRU eviction and idle
// cleanup:
//
//	m := session.NewManager(session.ManagerConfig{
//	    MaxSessions: 1000,
//	    IdleTimeout: 10 * time.Minute,
//	}, logger)
//	r, err := m.Open("s1")
package session
