package trace

// Event is the Go rendering of the kernel tracer's fixed-layout event
// record. Field order follows the original struct; unlike the C
// struct, Target/Details/Comm are plain strings rather than
// null-terminated char arrays, but producers must still keep them
// within MaxStringLen/CommLen since that's the contract downstream
// consumers are built against.
type Event struct {
	Timestamp uint64 // nanoseconds, from a monotonic clock source
	PID       uint32
	Type      EventType
	LatencyNS uint64
	Error     int32
	Bytes     uint64
	TCPState  uint32 // also carries ResourceKind for EventResourceLimit
	StackKey  uint64
	CgroupID  uint64
	Comm      string
	Target    string
	Details   string
	NetNSID   uint32 // 0 when BTF-derived fields are unavailable
}

// reset clears an event back to its zero value in place, mirroring
// get_event_buf()'s memset of the shared scratch slot before reuse.
func (e *Event) reset() {
	*e = Event{}
}

// clampString truncates s to the fixed-width contract enforced by the
// original char[MAX_STRING_LEN] fields.
func clampString(s string, max int) string {
	if len(s) <= max-1 {
		return s
	}
	return s[:max-1]
}

// ClampTarget truncates to the target field's width.
func ClampTarget(s string) string { return clampString(s, MaxStringLen) }

// ClampDetails truncates to the details field's width.
func ClampDetails(s string) string { return clampString(s, MaxStringLen) }

// ClampComm truncates to the comm field's width.
func ClampComm(s string) string { return clampString(s, CommLen) }

// ClampBytes applies the MAX_BYTES_THRESHOLD sanity clamp shared by
// every producer that reports a syscall return value as a byte count:
// negative or implausibly large values collapse to zero.
func ClampBytes(ret int64) uint64 {
	if ret > 0 && ret < MaxBytesThreshold {
		return uint64(ret)
	}
	return 0
}

// ErrorOrZero mirrors "ret < 0 ? ret : 0", the pattern used by every
// producer that reports a syscall's return value as Event.Error.
func ErrorOrZero(ret int64) int32 {
	if ret < 0 {
		return int32(ret)
	}
	return 0
}
