package fs

import "github.com/gma1k/podtrace/pkg/trace"

// OpenEntry mirrors kprobe_do_sys_openat2: captures the filename
// argument for the matching exit.
func OpenEntry(tbl *PathTable, pid, tid uint32, nowNS uint64, filename string) {
	vfsEntry(tbl, pid, tid, nowNS, filename)
}

// OpenExit mirrors kretprobe_do_sys_openat2: no minimum-latency
// suppression, and on success bytes carries the returned file
// descriptor (not a byte count — this mirrors the original producer's
// literal field reuse).
func OpenExit(tbl *PathTable, ring *trace.Ring, sb *trace.Sideband,
	pid, tid uint32, nowNS uint64, ret int64, frames []uint64) {

	key := trace.NewThreadKey(pid, tid)
	start, ok := tbl.start.Take(key)
	if !ok {
		return
	}

	e := trace.GetScratch()
	e.Timestamp = nowNS
	e.PID = pid
	e.Type = trace.EventOpen
	e.LatencyNS = calcLatency(start, nowNS)
	e.Error = trace.ErrorOrZero(ret)
	if ret >= 0 {
		e.Bytes = uint64(ret)
	}
	if path, ok := tbl.paths.Take(key); ok {
		e.Target = path
	}
	e.StackKey = sb.Capture(pid, tid, nowNS, frames)
	ring.Emit(e)
}
