package stream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/vango-dev/vdiff/pkg/archive"
	"github.com/vango-dev/vdiff/pkg/metrics"
	"github.com/vango-dev/vdiff/pkg/session"
	"github.com/vango-dev/vdiff/pkg/vdom"
)

const (
	// maxHostMessage bounds messages read from hosts; hosts only send
	// control frames.
	maxHostMessage = 512

	// maxDocument bounds posted documents.
	maxDocument = 8 << 20
)

// Sessions owns the live sessions. *session.Manager implements it.
type Sessions interface {
	Open(id string) (*session.Reconciler, error)
	Get(id string) (*session.Reconciler, error)
	Close(id string)
	IDs() []string
}

// Server pushes batches to connected hosts over WebSocket and serves batch
// replay over HTTP. It implements session.Sink: add it to the sessions' sinks
// so each committed batch is fanned out to the session's hosts.
type Server struct {
	config   Config
	sessions Sessions
	upgrader websocket.Upgrader
	logger   *slog.Logger
	metrics  *metrics.Collector

	mu     sync.RWMutex
	hosts  map[string]map[*host]struct{}
	closed bool
}

type host struct {
	session string
	conn    *websocket.Conn
	send    chan *session.Batch
	done    chan struct{}
	once    sync.Once
}

func (h *host) close() {
	h.once.Do(func() { close(h.done) })
}

// New creates a stream server. logger and m may be nil.
func New(config Config, logger *slog.Logger, m *metrics.Collector) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	config = config.withDefaults()
	return &Server{
		config: config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.checkOrigin(),
		},
		logger:  logger.With("component", "stream"),
		metrics: m,
		hosts:   make(map[string]map[*host]struct{}),
	}
}

// SetSessions sets the session lookup. It must be called before serving.
func (s *Server) SetSessions(sessions Sessions) {
	s.sessions = sessions
}

// Handler returns the HTTP handler:
//
//	GET /healthz                          liveness
//	GET /metrics                          Prometheus, if configured
//	GET /sessions                         live session ids
//	POST /sessions/{id}/documents         render a document into the session
//	DELETE /sessions/{id}                 close the session
//	GET /sessions/{id}/snapshot           the current document as one batch
//	GET /sessions/{id}/batches/{seq}      one batch from history or archive
//	GET /sessions/{id}/ws?after={seq}     WebSocket batch stream
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok"))
	})
	if s.config.MetricsHandler != nil {
		r.Handle("/metrics", s.config.MetricsHandler)
	}
	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Route("/{id}", func(r chi.Router) {
			r.Delete("/", s.handleClose)
			r.Post("/documents", s.handleRender)
			r.Get("/snapshot", s.handleSnapshot)
			r.Get("/batches/{seq}", s.handleBatch)
			r.Get("/ws", s.handleWS)
		})
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	ids := []string{}
	if s.sessions != nil {
		ids = s.sessions.IDs()
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"sessions": ids})
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	if s.sessions == nil {
		http.Error(w, "no sessions", http.StatusServiceUnavailable)
		return
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDocument))
	if err != nil {
		http.Error(w, "document too large", http.StatusRequestEntityTooLarge)
		return
	}
	doc, err := vdom.ParseDocument(data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rec, err := s.sessions.Open(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	b, err := rec.RenderDocument(r.Context(), doc)
	if err != nil {
		// The session keeps its previous document.
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	resp := map[string]any{"seq": rec.Seq(), "patches": 0}
	if b != nil {
		resp["patches"] = b.Patches
		resp["bytes"] = len(b.Data)
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	if s.sessions == nil {
		http.Error(w, "no sessions", http.StatusServiceUnavailable)
		return
	}
	id := chi.URLParam(r, "id")
	s.sessions.Close(id)
	s.Disconnect(id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.lookup(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	b, err := rec.Snapshot()
	if err != nil {
		s.logger.Error("snapshot failed", "session_id", rec.ID(), "error", err)
		http.Error(w, "snapshot failed", http.StatusInternalServerError)
		return
	}
	if b == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeBatch(w, b)
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	seq, err := strconv.ParseUint(chi.URLParam(r, "seq"), 10, 64)
	if err != nil || seq == 0 {
		http.Error(w, "invalid sequence number", http.StatusBadRequest)
		return
	}

	if s.sessions != nil {
		if rec, err := s.sessions.Get(id); err == nil {
			if b, ok := rec.History().Get(seq); ok {
				writeBatch(w, b)
				return
			}
		}
	}
	if s.config.Archive != nil {
		b, err := s.config.Archive.Get(r.Context(), id, seq)
		switch {
		case err == nil:
			writeBatch(w, b)
			return
		case !errors.Is(err, archive.ErrNotFound):
			s.logger.Error("archive read failed", "session_id", id, "seq", seq, "error", err)
			http.Error(w, "archive unavailable", http.StatusBadGateway)
			return
		}
	}
	http.Error(w, "batch not found", http.StatusNotFound)
}

func writeBatch(w http.ResponseWriter, b *session.Batch) {
	h := w.Header()
	h.Set("Content-Type", "application/octet-stream")
	h.Set("X-Vdiff-Seq", strconv.FormatUint(b.Seq, 10))
	h.Set("X-Vdiff-Digest", strconv.FormatUint(b.Digest, 16))
	if b.Snapshot {
		h.Set("X-Vdiff-Snapshot", "true")
	}
	w.Write(b.Data)
}

// lookup writes the error response itself when the session is unavailable.
func (s *Server) lookup(w http.ResponseWriter, id string) (*session.Reconciler, bool) {
	if s.sessions == nil {
		http.Error(w, "no sessions", http.StatusServiceUnavailable)
		return nil, false
	}
	rec, err := s.sessions.Get(id)
	switch {
	case err == nil:
		return rec, true
	case errors.Is(err, session.ErrSessionNotFound):
		http.Error(w, "session not found", http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	}
	return nil, false
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.lookup(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	var after uint64
	if v := r.URL.Query().Get("after"); v != "" {
		var err error
		if after, err = strconv.ParseUint(v, 10, 64); err != nil {
			http.Error(w, "invalid after", http.StatusBadRequest)
			return
		}
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied.
		s.metrics.WebSocketError("upgrade")
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	h := &host{
		session: rec.ID(),
		conn:    conn,
		send:    make(chan *session.Batch, s.config.SendBuffer),
		done:    make(chan struct{}),
	}
	// Register before catching up so no batch committed meanwhile is lost;
	// the writer drops the duplicates.
	if !s.register(h) {
		conn.Close()
		return
	}
	defer s.unregister(h)
	s.metrics.HostConnected()
	defer s.metrics.HostDisconnected()

	backlog, last, err := s.catchUp(rec, after)
	if err != nil {
		s.logger.Error("catch up failed", "session_id", h.session, "after_seq", after, "error", err)
		conn.Close()
		return
	}
	s.logger.Info("host connected",
		"session_id", h.session,
		"after_seq", after,
		"backlog", len(backlog))

	go s.writeLoop(h, backlog, last)
	s.readLoop(h)
	h.close()
}

// catchUp returns the batches a host that has applied after needs, and the
// seq the host will be at once it has applied them.
func (s *Server) catchUp(rec *session.Reconciler, after uint64) ([]*session.Batch, uint64, error) {
	seq := rec.Seq()
	if after == seq {
		return nil, after, nil
	}
	if after < seq {
		batches, err := rec.Resync(after)
		if err == nil {
			return batches, after, nil
		}
		if !errors.Is(err, session.ErrHistoryGap) {
			return nil, 0, err
		}
	}
	snap, err := rec.Snapshot()
	if err != nil {
		return nil, 0, err
	}
	if snap == nil {
		return nil, 0, nil
	}
	return []*session.Batch{snap}, 0, nil
}

func (s *Server) writeLoop(h *host, backlog []*session.Batch, last uint64) {
	ticker := time.NewTicker(s.config.PingInterval)
	defer func() {
		ticker.Stop()
		h.conn.Close()
	}()

	write := func(b *session.Batch) bool {
		h.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
		if err := h.conn.WriteMessage(websocket.BinaryMessage, EncodeFrame(b)); err != nil {
			s.metrics.WebSocketError("write")
			s.logger.Debug("write failed", "session_id", h.session, "seq", b.Seq, "error", err)
			return false
		}
		s.metrics.MessageSent()
		last = b.Seq
		return true
	}

	for _, b := range backlog {
		if !write(b) {
			h.close()
			return
		}
	}

	for {
		select {
		case b := <-h.send:
			if b.Seq <= last {
				continue
			}
			if !write(b) {
				h.close()
				return
			}
		case <-ticker.C:
			deadline := time.Now().Add(s.config.WriteTimeout)
			if err := h.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				s.metrics.WebSocketError("ping")
				h.close()
				return
			}
		case <-h.done:
			deadline := time.Now().Add(s.config.WriteTimeout)
			h.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
			return
		}
	}
}

// readLoop discards host messages and returns when the connection fails or
// the host stops answering pings.
func (s *Server) readLoop(h *host) {
	timeout := 2 * s.config.PingInterval
	h.conn.SetReadLimit(maxHostMessage)
	h.conn.SetReadDeadline(time.Now().Add(timeout))
	h.conn.SetPongHandler(func(string) error {
		return h.conn.SetReadDeadline(time.Now().Add(timeout))
	})

	for {
		if _, _, err := h.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				s.logger.Warn("read error", "session_id", h.session, "error", err)
			}
			return
		}
		h.conn.SetReadDeadline(time.Now().Add(timeout))
	}
}

func (s *Server) register(h *host) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	set, ok := s.hosts[h.session]
	if !ok {
		set = make(map[*host]struct{})
		s.hosts[h.session] = set
	}
	set[h] = struct{}{}
	return true
}

func (s *Server) unregister(h *host) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if set, ok := s.hosts[h.session]; ok {
		delete(set, h)
		if len(set) == 0 {
			delete(s.hosts, h.session)
		}
	}
}

// Hosts returns the number of hosts connected to a session.
func (s *Server) Hosts(sessionID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.hosts[sessionID])
}

// Publish queues b for every host of its session. It never blocks: a host
// whose queue is full is disconnected.
func (s *Server) Publish(_ context.Context, b *session.Batch) error {
	var slow []*host
	s.mu.RLock()
	for h := range s.hosts[b.Session] {
		select {
		case h.send <- b:
		default:
			slow = append(slow, h)
		}
	}
	s.mu.RUnlock()

	for _, h := range slow {
		s.metrics.WebSocketError("slow_host")
		s.logger.Warn("disconnecting slow host", "session_id", b.Session, "seq", b.Seq)
		h.close()
	}
	return nil
}

// Disconnect disconnects the hosts of one session, e.g. when it is closed.
func (s *Server) Disconnect(sessionID string) {
	s.mu.RLock()
	hosts := make([]*host, 0, len(s.hosts[sessionID]))
	for h := range s.hosts[sessionID] {
		hosts = append(hosts, h)
	}
	s.mu.RUnlock()

	for _, h := range hosts {
		h.close()
	}
}

// Close disconnects every host. Later connections are refused.
func (s *Server) Close() {
	s.mu.Lock()
	s.closed = true
	var all []*host
	for _, set := range s.hosts {
		for h := range set {
			all = append(all, h)
		}
	}
	s.mu.Unlock()

	for _, h := range all {
		h.close()
	}
}

// ListenAndServe serves Handler on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("stream server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

var _ session.Sink = (*Server)(nil)
