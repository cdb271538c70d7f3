package trace

import "sync"

// scratchPool stands in for the single-entry per-CPU BPF_MAP_TYPE_ARRAY
// (event_buf) that every kernel-side probe borrows before filling in an
// event. A sync.Pool gives each goroutine its own zeroed *Event without
// the allocation a naive "new(Event) per call" would cost under load,
// the same tradeoff the per-CPU array makes against a shared lock.
var scratchPool = sync.Pool{
	New: func() any { return new(Event) },
}

// GetScratch borrows a zeroed Event, mirroring get_event_buf(). Once
// the event is handed to Ring.Emit the producer must not call
// PutScratch on it: Emit returns it to the pool itself on a drop, and
// otherwise the consumer that reads it from Ring.Events does.
func GetScratch() *Event {
	e := scratchPool.Get().(*Event)
	e.reset()
	return e
}

// PutScratch returns a scratch Event to the pool for reuse: from a
// producer that decided not to emit after all, or from the consumer
// once it is done with an event received from Ring.Events.
func PutScratch(e *Event) {
	scratchPool.Put(e)
}
