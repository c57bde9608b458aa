package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/vango-dev/vdiff/pkg/protocol"
	"github.com/vango-dev/vdiff/pkg/vdom"
)

func metricCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("counter Write() error: %v", err)
	}
	if m.Counter == nil {
		t.Fatal("expected counter metric to have Counter field")
	}
	return m.GetCounter().GetValue()
}

func metricGaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("gauge Write() error: %v", err)
	}
	if m.Gauge == nil {
		t.Fatal("expected gauge metric to have Gauge field")
	}
	return m.GetGauge().GetValue()
}

func metricHistogramCount(t *testing.T, o prometheus.Observer) uint64 {
	t.Helper()
	metric, ok := o.(prometheus.Metric)
	if !ok {
		t.Fatalf("observer %T does not implement prometheus.Metric", o)
	}
	var m dto.Metric
	if err := metric.Write(&m); err != nil {
		t.Fatalf("histogram Write() error: %v", err)
	}
	if m.Histogram == nil {
		t.Fatal("expected histogram metric to have Histogram field")
	}
	return m.GetHistogram().GetSampleCount()
}

func TestObservePass(t *testing.T) {
	c := New(WithRegistry(prometheus.NewRegistry()))

	c.ObservePass(StageDiff, time.Millisecond, nil)
	c.ObservePass(StageDiff, time.Millisecond, vdom.ErrDuplicateKey)
	c.ObservePass(StageEncode, time.Millisecond, protocol.ErrEncoderInUse)

	if got := metricCounterValue(t, c.passesTotal.WithLabelValues(StageDiff, "success")); got != 1 {
		t.Errorf("passes_total(diff, success)=%v, want 1", got)
	}
	if got := metricCounterValue(t, c.passesTotal.WithLabelValues(StageDiff, "invalid_tree")); got != 1 {
		t.Errorf("passes_total(diff, invalid_tree)=%v, want 1", got)
	}
	if got := metricCounterValue(t, c.passesTotal.WithLabelValues(StageEncode, "busy")); got != 1 {
		t.Errorf("passes_total(encode, busy)=%v, want 1", got)
	}
	if got := metricHistogramCount(t, c.passDuration.WithLabelValues(StageDiff)); got != 2 {
		t.Errorf("pass_duration_seconds(diff) count=%d, want 2", got)
	}
}

func TestObservePatches(t *testing.T) {
	c := New(WithRegistry(prometheus.NewRegistry()))
	c.ObservePatches([]vdom.Patch{
		{Op: vdom.PatchMoveChild},
		{Op: vdom.PatchMoveChild},
		{Op: vdom.PatchUpdateText},
	})

	if got := metricCounterValue(t, c.patchesTotal.WithLabelValues("MoveChild")); got != 2 {
		t.Errorf("patches_total(MoveChild)=%v, want 2", got)
	}
	if got := metricCounterValue(t, c.patchesTotal.WithLabelValues("UpdateText")); got != 1 {
		t.Errorf("patches_total(UpdateText)=%v, want 1", got)
	}
}

func TestGaugesAndCounters(t *testing.T) {
	c := New(WithRegistry(prometheus.NewRegistry()), WithNamespace("test"))

	c.SessionOpened()
	c.SessionOpened()
	c.SessionClosed()
	c.HostConnected()
	c.MessageSent()
	c.MessageSent()
	c.ObserveResync(ResyncGap)
	c.WebSocketError("write")
	c.ObserveArchive(errors.New("boom"))
	c.ObserveBatch(512)

	if got := metricGaugeValue(t, c.activeSessions); got != 1 {
		t.Errorf("active_sessions=%v, want 1", got)
	}
	if got := metricGaugeValue(t, c.connections); got != 1 {
		t.Errorf("stream_connections=%v, want 1", got)
	}
	if got := metricCounterValue(t, c.messagesSent); got != 2 {
		t.Errorf("stream_messages_total=%v, want 2", got)
	}
	if got := metricCounterValue(t, c.resyncsTotal.WithLabelValues(ResyncGap)); got != 1 {
		t.Errorf("resyncs_total(gap)=%v, want 1", got)
	}
	if got := metricCounterValue(t, c.wsErrors.WithLabelValues("write")); got != 1 {
		t.Errorf("websocket_errors_total(write)=%v, want 1", got)
	}
	if got := metricCounterValue(t, c.archiveWrites.WithLabelValues("error")); got != 1 {
		t.Errorf("archive_writes_total(error)=%v, want 1", got)
	}
	if got := metricHistogramCount(t, c.batchBytes); got != 1 {
		t.Errorf("batch_bytes count=%d, want 1", got)
	}
}

func TestNilCollector(t *testing.T) {
	var c *Collector
	c.ObservePass(StageAlign, time.Second, nil)
	c.ObservePatches([]vdom.Patch{{Op: vdom.PatchAddRoot}})
	c.ObserveBatch(1)
	c.SessionOpened()
	c.HostConnected()
	c.MessageSent()
	c.ObserveResync(ResyncReplayed)
	c.WebSocketError("read")
	c.ObserveArchive(nil)
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(WithRegistry(reg))
	defer func() {
		if recover() == nil {
			t.Error("expected second registration on the same registry to panic")
		}
	}()
	New(WithRegistry(reg))
}
