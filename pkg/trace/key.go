package trace

// ThreadKey is the composite correlation key used across every
// entry/exit probe pair: the high 32 bits are the process id, the low
// 32 bits the thread id, with no masking applied to either half.
type ThreadKey uint64

// NewThreadKey builds the composite key get_key(pid, tid) used to
// correlate a probe's entry call with its matching exit call.
func NewThreadKey(pid, tid uint32) ThreadKey {
	return ThreadKey(uint64(pid)<<32 | uint64(tid))
}

// PID extracts the process id half of the key.
func (k ThreadKey) PID() uint32 {
	return uint32(k >> 32)
}

// TID extracts the thread id half of the key.
func (k ThreadKey) TID() uint32 {
	return uint32(k)
}

// StackKey is the key used to correlate an event with a captured user
// stack trace, built by XOR-ing the thread key with the event's
// timestamp so that repeated calls on the same thread don't collide.
func StackKey(pid, tid uint32, timestampNS uint64) uint64 {
	return uint64(NewThreadKey(pid, tid)) ^ timestampNS
}
