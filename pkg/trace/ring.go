package trace

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Ring stands in for the kernel-side BPF_MAP_TYPE_RINGBUF: a bounded
// channel that a producer never blocks on. bpf_ringbuf_output returns
// a drop rather than stalling the probe when the buffer is full; Emit
// does the same via a non-blocking send, counting the drop instead of
// propagating backpressure into the calling probe.
type Ring struct {
	ch      chan *Event
	dropped uint64
	emitted uint64

	desc *prometheus.Desc
}

// NewRing allocates a ring buffer with room for capacity pending
// events before Emit starts dropping.
func NewRing(capacity int) *Ring {
	return &Ring{
		ch: make(chan *Event, capacity),
		desc: prometheus.NewDesc(
			"podtrace_ring_buffer_events_total",
			"Count of events processed by the podtrace ring buffer, partitioned by outcome.",
			[]string{"outcome"},
			nil,
		),
	}
}

// Emit hands an event to the ring buffer without blocking. On a full
// buffer the event is dropped silently to the consumer (matching the
// kernel behavior of a reserve failure) but counted for Describe/Collect.
// The caller must not touch e again after calling Emit.
func (r *Ring) Emit(e *Event) {
	select {
	case r.ch <- e:
		atomic.AddUint64(&r.emitted, 1)
	default:
		atomic.AddUint64(&r.dropped, 1)
		PutScratch(e)
	}
}

// Events exposes the consumer side of the ring buffer.
func (r *Ring) Events() <-chan *Event {
	return r.ch
}

// Dropped returns the number of events dropped so far because the
// buffer was full when Emit was called.
func (r *Ring) Dropped() uint64 {
	return atomic.LoadUint64(&r.dropped)
}

// Close shuts down the producer side. Only call once no further Emit
// calls will be made.
func (r *Ring) Close() {
	close(r.ch)
}

// Describe implements prometheus.Collector.
func (r *Ring) Describe(descs chan<- *prometheus.Desc) {
	descs <- r.desc
}

// Collect implements prometheus.Collector, exposing emitted/dropped
// counts the way TCPInfoCollector exposes per-connection tcp_info
// fields: pulled on scrape, not pushed as events occur.
func (r *Ring) Collect(metrics chan<- prometheus.Metric) {
	metrics <- prometheus.MustNewConstMetric(
		r.desc, prometheus.CounterValue, float64(atomic.LoadUint64(&r.emitted)), "emitted",
	)
	metrics <- prometheus.MustNewConstMetric(
		r.desc, prometheus.CounterValue, float64(atomic.LoadUint64(&r.dropped)), "dropped",
	)
}
