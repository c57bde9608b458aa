package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/vdiff/pkg/metrics"
	"github.com/vango-dev/vdiff/pkg/protocol"
	"github.com/vango-dev/vdiff/pkg/vdom"
)

// Default tracer name for reconciliation spans.
const defaultTracerName = "vdiff"

// Batch is one encoded render result.
type Batch struct {
	// Session is the id of the session that produced the batch.
	Session string

	// Seq numbers batches 1, 2, 3, ... per session. A snapshot carries the
	// sequence number of the last batch it includes.
	Seq uint64

	// Data is the binary batch.
	Data []byte

	// Patches is the number of patches in Data.
	Patches int

	// Digest is the xxhash of Data.
	Digest uint64

	// Snapshot marks a batch that mounts the whole document with AddRoot
	// rather than patching the previous one.
	Snapshot bool

	// CreatedAt is when the batch was encoded.
	CreatedAt time.Time
}

// Sink receives every committed batch, e.g. a stream server or an archive.
type Sink interface {
	Publish(ctx context.Context, b *Batch) error
}

// Config configures a Reconciler.
type Config struct {
	// ID identifies the session in batches, logs and spans.
	ID string

	// BulkInsertThreshold is passed to the differ, see vdom.Options.
	BulkInsertThreshold int

	// HistorySize is the number of batches kept for resync.
	// Default: DefaultHistorySize.
	HistorySize int

	// Handlers is the side table for the session's event handlers. Entries
	// no longer referenced by the current tree are pruned after each render.
	// If nil, an empty table is created.
	Handlers *vdom.HandlerTable

	// Sinks receive each batch after it is committed. Sink errors are logged;
	// they do not undo the render.
	Sinks []Sink

	// Logger is the structured logger. Default: slog.Default().
	Logger *slog.Logger

	// Metrics records pass durations and batch sizes. May be nil.
	Metrics *metrics.Collector

	// TracerName is the OpenTelemetry tracer name (default: "vdiff").
	TracerName string
}

// Reconciler turns a stream of trees into a stream of batches. It keeps the
// previous aligned tree and head, aligns each new tree against it, diffs and
// encodes the result.
//
// A render that fails leaves the previous tree in place, so the next render
// diffs against what the host actually shows. Renders are serialized; a
// Reconciler is safe for concurrent use.
type Reconciler struct {
	mu sync.Mutex

	id       string
	gen      *vdom.IDGenerator
	differ   *vdom.Differ
	encoder  *protocol.BatchEncoder
	history  *History
	handlers *vdom.HandlerTable
	sinks    []Sink

	prev     *vdom.Node
	prevHead []vdom.HeadEntry
	seq      uint64

	logger  *slog.Logger
	metrics *metrics.Collector
	tracer  trace.Tracer
}

// New creates a Reconciler with no previous tree; its first render mounts
// the document with AddRoot.
func New(cfg Config) *Reconciler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Handlers == nil {
		cfg.Handlers = vdom.NewHandlerTable()
	}
	if cfg.TracerName == "" {
		cfg.TracerName = defaultTracerName
	}

	return &Reconciler{
		id:       cfg.ID,
		gen:      vdom.NewIDGenerator(),
		differ:   vdom.NewDiffer(vdom.NewPool(), vdom.Options{BulkInsertThreshold: cfg.BulkInsertThreshold}),
		encoder:  protocol.NewBatchEncoder(nil),
		history:  NewHistory(cfg.HistorySize),
		handlers: cfg.Handlers,
		sinks:    cfg.Sinks,
		logger:   cfg.Logger.With("component", "reconciler", "session_id", cfg.ID),
		metrics:  cfg.Metrics,
		tracer:   otel.Tracer(cfg.TracerName),
	}
}

// ID returns the session id.
func (r *Reconciler) ID() string {
	return r.id
}

// Handlers returns the session's handler table.
func (r *Reconciler) Handlers() *vdom.HandlerTable {
	return r.handlers
}

// History returns the batch history.
func (r *Reconciler) History() *History {
	return r.history
}

// Seq returns the sequence number of the last committed batch.
func (r *Reconciler) Seq() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seq
}

// Current returns the last committed aligned tree. It must not be modified.
func (r *Reconciler) Current() *vdom.Node {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.prev
}

// Dispatch delivers an event payload to the handler bound under correlation.
func (r *Reconciler) Dispatch(correlation string, payload any) error {
	return r.handlers.Dispatch(correlation, payload)
}

// Render reconciles next against the previous tree. A render that changes
// nothing returns a nil batch and does not consume a sequence number.
func (r *Reconciler) Render(ctx context.Context, next *vdom.Node) (*Batch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.render(ctx, &vdom.Document{Root: next, Head: r.prevHead})
}

// RenderDocument reconciles a tree and its head region.
func (r *Reconciler) RenderDocument(ctx context.Context, doc *vdom.Document) (*Batch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.render(ctx, doc)
}

func (r *Reconciler) render(ctx context.Context, doc *vdom.Document) (_ *Batch, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx, span := r.tracer.Start(ctx, "vdiff.render",
		trace.WithAttributes(
			attribute.String("vdiff.session_id", r.id),
			attribute.Int64("vdiff.base_seq", int64(r.seq)),
		))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}()

	var aligned *vdom.Node
	_ = r.run(ctx, metrics.StageAlign, func() error {
		aligned = r.differ.Align(r.prev, doc.Root, r.gen)
		return nil
	})

	var patches []vdom.Patch
	err = r.run(ctx, metrics.StageDiff, func() error {
		var err error
		patches, err = r.differ.Diff(r.prev, aligned)
		if err != nil {
			return err
		}
		head, err := r.differ.DiffHead(r.prevHead, doc.Head)
		if err != nil {
			return err
		}
		patches = append(patches, head...)
		return nil
	})
	if err != nil {
		r.logger.Warn("diff failed", "seq", r.seq, "error", err)
		return nil, err
	}

	if len(patches) == 0 {
		r.prev, r.prevHead = aligned, doc.Head
		span.SetAttributes(attribute.Int("vdiff.patch_count", 0))
		return nil, nil
	}

	var data []byte
	err = r.run(ctx, metrics.StageEncode, func() error {
		var err error
		data, err = r.encoder.Encode(patches)
		return err
	})
	if err != nil {
		r.logger.Warn("encode failed", "seq", r.seq, "patches", len(patches), "error", err)
		return nil, err
	}

	r.seq++
	b := &Batch{
		Session:   r.id,
		Seq:       r.seq,
		Data:      data,
		Patches:   len(patches),
		Digest:    xxhash.Sum64(data),
		CreatedAt: time.Now(),
	}
	r.history.Add(b)
	r.prev, r.prevHead = aligned, doc.Head

	pruned := r.handlers.Prune(aligned)
	r.metrics.ObservePatches(patches)
	r.metrics.ObserveBatch(len(data))
	span.SetAttributes(
		attribute.Int64("vdiff.seq", int64(b.Seq)),
		attribute.Int("vdiff.patch_count", b.Patches),
		attribute.Int("vdiff.batch_bytes", len(data)),
	)
	r.logger.Debug("batch committed",
		"seq", b.Seq,
		"patches", b.Patches,
		"bytes", len(data),
		"handlers_pruned", pruned)

	r.publish(ctx, b)
	return b, nil
}

// run runs one pass under a child span and records it.
func (r *Reconciler) run(ctx context.Context, name string, fn func() error) error {
	_, span := r.tracer.Start(ctx, "vdiff."+name)
	defer span.End()

	start := time.Now()
	err := fn()
	r.metrics.ObservePass(name, time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (r *Reconciler) publish(ctx context.Context, b *Batch) {
	for _, s := range r.sinks {
		if err := s.Publish(ctx, b); err != nil {
			r.logger.Warn("sink publish failed", "seq", b.Seq, "sink", fmt.Sprintf("%T", s), "error", err)
		}
	}
}

// Resync returns the batches a host that has applied afterSeq needs to catch
// up, oldest first. When the history no longer holds them it returns
// ErrHistoryGap and the host should apply Snapshot instead.
func (r *Reconciler) Resync(afterSeq uint64) ([]*Batch, error) {
	batches, err := r.history.Since(afterSeq)
	if err != nil {
		r.metrics.ObserveResync(metrics.ResyncGap)
		r.logger.Info("resync gap", "after_seq", afterSeq, "min_seq", r.history.MinSeq())
		return nil, err
	}
	r.metrics.ObserveResync(metrics.ResyncReplayed)
	return batches, nil
}

// Snapshot encodes the current document as a fresh mount: AddRoot followed by
// one AddHeadElement per head entry. It returns nil before the first render.
func (r *Reconciler) Snapshot() (*Batch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.prev == nil {
		return nil, nil
	}
	patches := []vdom.Patch{{Op: vdom.PatchAddRoot, Target: r.prev.ID, Node: r.prev}}
	for _, e := range r.prevHead {
		patches = append(patches, vdom.Patch{Op: vdom.PatchAddHeadElement, Name: e.Key, Node: e.Node})
	}
	data, err := r.encoder.Encode(patches)
	if err != nil {
		return nil, err
	}
	return &Batch{
		Session:   r.id,
		Seq:       r.seq,
		Data:      data,
		Patches:   len(patches),
		Digest:    xxhash.Sum64(data),
		Snapshot:  true,
		CreatedAt: time.Now(),
	}, nil
}
