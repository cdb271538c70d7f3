package trace

import "github.com/gma1k/podtrace/pkg/correlate"

// StackTrace is the Go rendering of struct stack_trace_t: a bounded
// run of captured frame addresses.
type StackTrace struct {
	IPs []uint64
}

// Sideband stands in for the stack_traces BPF map plus the stack_buf
// single-entry scratch array: a bounded table from StackKey to a
// captured stack, populated by capture_user_stack and consulted by
// whatever out-of-band tool resolves frame addresses to symbols.
type Sideband struct {
	table *correlate.Table[uint64, StackTrace]
}

// NewSideband creates a stack sideband bounded to capacity entries,
// matching stack_traces' max_entries.
func NewSideband(capacity int) *Sideband {
	return &Sideband{table: correlate.NewTable[uint64, StackTrace](capacity)}
}

// Capture records frames (already walked by whatever stack-walking
// mechanism the attachment layer provides) under the key derived from
// pid/tid/timestamp, and returns that key for the caller to stash in
// Event.StackKey — mirroring capture_user_stack's contract exactly:
// on failure (no frames) it returns 0, meaning "no stack available".
func (s *Sideband) Capture(pid, tid uint32, timestampNS uint64, frames []uint64) uint64 {
	if len(frames) == 0 {
		return 0
	}
	if len(frames) > MaxStackDepth {
		frames = frames[:MaxStackDepth]
	}
	key := StackKey(pid, tid, timestampNS)
	s.table.Put(key, StackTrace{IPs: append([]uint64(nil), frames...)})
	return key
}

// Lookup resolves a stack key back to its captured frames.
func (s *Sideband) Lookup(key uint64) (StackTrace, bool) {
	if key == 0 {
		return StackTrace{}, false
	}
	return s.table.Get(key)
}
