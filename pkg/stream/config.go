package stream

import (
	"net/http"
	"slices"
	"time"

	"github.com/vango-dev/vdiff/pkg/archive"
)

// Config configures a Server.
type Config struct {
	// WriteTimeout bounds each WebSocket write. Default: 10 seconds.
	WriteTimeout time.Duration

	// PingInterval is how often idle hosts are pinged. A host that does not
	// answer within two intervals is dropped. Default: 30 seconds.
	PingInterval time.Duration

	// ReadBufferSize and WriteBufferSize size the WebSocket buffers.
	// Default: 4096.
	ReadBufferSize  int
	WriteBufferSize int

	// SendBuffer is the number of batches queued per host. A host that falls
	// further behind is disconnected and resumes with ?after=<seq>.
	// Default: 64.
	SendBuffer int

	// AllowedOrigins lists the origins allowed to open a WebSocket. "*"
	// allows any origin. Empty means same-origin only.
	AllowedOrigins []string

	// Archive, if set, serves batch requests that fell out of a session's
	// history.
	Archive archive.Store

	// MetricsHandler, if set, is mounted at /metrics.
	MetricsHandler http.Handler
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		WriteTimeout:    10 * time.Second,
		PingInterval:    30 * time.Second,
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		SendBuffer:      64,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.PingInterval <= 0 {
		c.PingInterval = d.PingInterval
	}
	if c.ReadBufferSize <= 0 {
		c.ReadBufferSize = d.ReadBufferSize
	}
	if c.WriteBufferSize <= 0 {
		c.WriteBufferSize = d.WriteBufferSize
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = d.SendBuffer
	}
	return c
}

// checkOrigin returns the upgrader's origin check, or nil for gorilla's
// same-origin default.
func (c Config) checkOrigin() func(*http.Request) bool {
	if len(c.AllowedOrigins) == 0 {
		return nil
	}
	if slices.Contains(c.AllowedOrigins, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		return slices.Contains(c.AllowedOrigins, r.Header.Get("Origin"))
	}
}
