package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/vdiff/pkg/protocol"
	"github.com/vango-dev/vdiff/pkg/vdom"
)

// Config configures the collectors.
type Config struct {
	// Namespace is the metrics namespace (default: "vdiff").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for pass durations.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures the collectors.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the duration histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "vdiff",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Collector holds the Prometheus collectors for the reconciler, the stream
// server and the archive. A nil *Collector records nothing, so callers never
// need to check whether metrics are enabled.
type Collector struct {
	passesTotal    *prometheus.CounterVec
	passDuration   *prometheus.HistogramVec
	patchesTotal   *prometheus.CounterVec
	batchBytes     prometheus.Histogram
	activeSessions prometheus.Gauge
	connections    prometheus.Gauge
	messagesSent   prometheus.Counter
	resyncsTotal   *prometheus.CounterVec
	wsErrors       *prometheus.CounterVec
	archiveWrites  *prometheus.CounterVec
}

// New registers the collectors and returns them.
func New(opts ...Option) *Collector {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Collector{
		passesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "passes_total",
			Help:        "Total number of reconciliation passes by stage and status",
			ConstLabels: config.ConstLabels,
		}, []string{"stage", "status"}),

		passDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "pass_duration_seconds",
			Help:        "Duration of align, diff and encode passes in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"stage"}),

		patchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "patches_total",
			Help:        "Total number of patches produced by operation",
			ConstLabels: config.ConstLabels,
		}, []string{"op"}),

		batchBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "batch_bytes",
			Help:        "Size of encoded batches in bytes",
			ConstLabels: config.ConstLabels,
			Buckets:     prometheus.ExponentialBuckets(64, 4, 8), // 64B to 1MB
		}),

		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "active_sessions",
			Help:        "Number of live reconciler sessions",
			ConstLabels: config.ConstLabels,
		}),

		connections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "stream_connections",
			Help:        "Number of connected WebSocket hosts",
			ConstLabels: config.ConstLabels,
		}),

		messagesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "stream_messages_total",
			Help:        "Total number of batches written to hosts",
			ConstLabels: config.ConstLabels,
		}),

		resyncsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "resyncs_total",
			Help:        "Total number of host resyncs by outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"outcome"}),

		wsErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "websocket_errors_total",
			Help:        "Total WebSocket errors by type",
			ConstLabels: config.ConstLabels,
		}, []string{"type"}),

		archiveWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "archive_writes_total",
			Help:        "Total number of archived batches by status",
			ConstLabels: config.ConstLabels,
		}, []string{"status"}),
	}
}

// Pass stages.
const (
	StageAlign  = "align"
	StageDiff   = "diff"
	StageEncode = "encode"
)

// ObservePass records one align, diff or encode pass.
func (c *Collector) ObservePass(stage string, d time.Duration, err error) {
	if c == nil {
		return
	}
	c.passDuration.WithLabelValues(stage).Observe(d.Seconds())
	c.passesTotal.WithLabelValues(stage, status(err)).Inc()
}

// ObservePatches counts patches by operation.
func (c *Collector) ObservePatches(patches []vdom.Patch) {
	if c == nil {
		return
	}
	for op, n := range vdom.CountOps(patches) {
		c.patchesTotal.WithLabelValues(op.String()).Add(float64(n))
	}
}

// ObserveBatch records the size of an encoded batch.
func (c *Collector) ObserveBatch(size int) {
	if c == nil {
		return
	}
	c.batchBytes.Observe(float64(size))
}

// SessionOpened records a new session.
func (c *Collector) SessionOpened() {
	if c == nil {
		return
	}
	c.activeSessions.Inc()
}

// SessionClosed records a closed or evicted session.
func (c *Collector) SessionClosed() {
	if c == nil {
		return
	}
	c.activeSessions.Dec()
}

// HostConnected records a WebSocket host joining.
func (c *Collector) HostConnected() {
	if c == nil {
		return
	}
	c.connections.Inc()
}

// HostDisconnected records a WebSocket host leaving.
func (c *Collector) HostDisconnected() {
	if c == nil {
		return
	}
	c.connections.Dec()
}

// MessageSent records a batch written to a host.
func (c *Collector) MessageSent() {
	if c == nil {
		return
	}
	c.messagesSent.Inc()
}

// Resync outcomes.
const (
	ResyncReplayed = "replayed"
	ResyncGap      = "gap"
)

// ObserveResync records a resync attempt.
func (c *Collector) ObserveResync(outcome string) {
	if c == nil {
		return
	}
	c.resyncsTotal.WithLabelValues(outcome).Inc()
}

// WebSocketError records a WebSocket failure by type, e.g. "write".
func (c *Collector) WebSocketError(kind string) {
	if c == nil {
		return
	}
	c.wsErrors.WithLabelValues(kind).Inc()
}

// ObserveArchive records an archive write.
func (c *Collector) ObserveArchive(err error) {
	if c == nil {
		return
	}
	c.archiveWrites.WithLabelValues(status(err)).Inc()
}

// status maps an error to a low-cardinality label.
func status(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, vdom.ErrDuplicateKey), errors.Is(err, vdom.ErrDuplicateAttr),
		errors.Is(err, vdom.ErrMissingKey), errors.Is(err, vdom.ErrUnknownKind),
		errors.Is(err, vdom.ErrDuplicateHeadKey):
		return "invalid_tree"
	case errors.Is(err, vdom.ErrPoolInUse), errors.Is(err, protocol.ErrEncoderInUse):
		return "busy"
	case errors.Is(err, protocol.ErrTableTooLarge), errors.Is(err, protocol.ErrCollectionTooLarge):
		return "too_large"
	default:
		return "error"
	}
}
