package sched

import (
	"strings"

	"github.com/gma1k/podtrace/pkg/correlate"
	"github.com/gma1k/podtrace/pkg/trace"
)

// LockTable correlates a futex/mutex entry with its exit, plus the
// lock-identity string captured on entry — the Go rendering of
// start_times plus lock_targets.
type LockTable struct {
	start   *correlate.Table[trace.ThreadKey, uint64]
	targets *correlate.Table[trace.ThreadKey, string]
}

// NewLockTable allocates a table sized to match start_times/lock_targets'
// 1024-entry BPF maps.
func NewLockTable() *LockTable {
	return &LockTable{
		start:   correlate.NewTable[trace.ThreadKey, uint64](1024),
		targets: correlate.NewTable[trace.ThreadKey, string](1024),
	}
}

// hexAddr renders addr as "0x" followed by 16 lowercase hex digits,
// matching do_futex's and pthread_mutex_lock's digit-by-digit builder.
func hexAddr(addr uint64) string {
	const digits = "0123456789abcdef"
	var sb strings.Builder
	sb.WriteString("0x")
	for i := 0; i < 16; i++ {
		shift := uint((15 - i) * 4)
		nibble := (addr >> shift) & 0xF
		sb.WriteByte(digits[nibble])
	}
	return sb.String()
}

// FutexEntry mirrors kprobe_do_futex: records the call start and the
// futex address as a "0x..." lock identity string.
func FutexEntry(tbl *LockTable, pid, tid uint32, nowNS uint64, uaddr uint64) {
	key := trace.NewThreadKey(pid, tid)
	tbl.start.Put(key, nowNS)
	if uaddr != 0 {
		tbl.targets.Put(key, hexAddr(uaddr))
	}
}

// MutexEntry mirrors uprobe_pthread_mutex_lock: identical to FutexEntry
// except the identity string is prefixed "mtx@".
func MutexEntry(tbl *LockTable, pid, tid uint32, nowNS uint64, mutex uint64) {
	key := trace.NewThreadKey(pid, tid)
	tbl.start.Put(key, nowNS)
	if mutex != 0 {
		tbl.targets.Put(key, "mtx@"+hexAddr(mutex))
	}
}

// lockExit implements the shared shape of kretprobe_do_futex and
// uretprobe_pthread_mutex_lock: both apply the same MinLatencyNS
// suppression and emit EVENT_LOCK_CONTENTION with the ret value
// carried directly in Error (unlike most producers, a positive ret is
// not treated as success-only; futex/mutex return codes are passed
// through verbatim).
func lockExit(tbl *LockTable, ring *trace.Ring, sb *trace.Sideband,
	pid, tid uint32, nowNS uint64, ret int32, frames []uint64) {

	key := trace.NewThreadKey(pid, tid)
	start, ok := tbl.start.Take(key)
	if !ok {
		return
	}

	latency := calcLatency(start, nowNS)
	if latency < trace.MinLatencyNS {
		tbl.targets.Delete(key)
		return
	}

	e := trace.GetScratch()
	e.Timestamp = nowNS
	e.PID = pid
	e.Type = trace.EventLockContention
	e.LatencyNS = latency
	e.Error = ret
	if target, ok := tbl.targets.Take(key); ok {
		e.Target = target
	}
	e.StackKey = sb.Capture(pid, tid, nowNS, frames)
	ring.Emit(e)
}

// FutexExit mirrors kretprobe_do_futex.
func FutexExit(tbl *LockTable, ring *trace.Ring, sb *trace.Sideband,
	pid, tid uint32, nowNS uint64, ret int32, frames []uint64) {
	lockExit(tbl, ring, sb, pid, tid, nowNS, ret, frames)
}

// MutexExit mirrors uretprobe_pthread_mutex_lock.
func MutexExit(tbl *LockTable, ring *trace.Ring, sb *trace.Sideband,
	pid, tid uint32, nowNS uint64, ret int32, frames []uint64) {
	lockExit(tbl, ring, sb, pid, tid, nowNS, ret, frames)
}
