package fs

import "github.com/gma1k/podtrace/pkg/trace"

// UnlinkEntry mirrors a vfs_unlink kprobe: captures the target
// dentry's basename for the matching exit.
func UnlinkEntry(tbl *PathTable, pid, tid uint32, nowNS uint64, basename string) {
	vfsEntry(tbl, pid, tid, nowNS, basename)
}

// UnlinkExit mirrors the vfs_unlink kretprobe: no minimum-latency
// suppression, always emitted.
func UnlinkExit(tbl *PathTable, ring *trace.Ring, sb *trace.Sideband,
	pid, tid uint32, nowNS uint64, ret int64, frames []uint64) {

	key := trace.NewThreadKey(pid, tid)
	start, ok := tbl.start.Take(key)
	if !ok {
		return
	}

	e := trace.GetScratch()
	e.Timestamp = nowNS
	e.PID = pid
	e.Type = trace.EventUnlink
	e.LatencyNS = calcLatency(start, nowNS)
	e.Error = trace.ErrorOrZero(ret)
	if path, ok := tbl.paths.Take(key); ok {
		e.Target = path
	}
	e.StackKey = sb.Capture(pid, tid, nowNS, frames)
	ring.Emit(e)
}
