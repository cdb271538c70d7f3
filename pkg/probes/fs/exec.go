package fs

import "github.com/gma1k/podtrace/pkg/trace"

// ExecEntry mirrors kprobe_do_execveat_common: the filename argument
// is captured into the path table for the matching exit.
func ExecEntry(tbl *PathTable, pid, tid uint32, nowNS uint64, filename string) {
	vfsEntry(tbl, pid, tid, nowNS, filename)
}

// ExecExit mirrors kretprobe_do_execveat_common: no minimum-latency
// suppression and no byte count.
func ExecExit(tbl *PathTable, ring *trace.Ring, sb *trace.Sideband,
	pid, tid uint32, nowNS uint64, ret int64, frames []uint64) {

	key := trace.NewThreadKey(pid, tid)
	start, ok := tbl.start.Take(key)
	if !ok {
		return
	}

	e := trace.GetScratch()
	e.Timestamp = nowNS
	e.PID = pid
	e.Type = trace.EventExec
	e.LatencyNS = calcLatency(start, nowNS)
	e.Error = trace.ErrorOrZero(ret)
	if path, ok := tbl.paths.Take(key); ok {
		e.Target = path
	}
	e.StackKey = sb.Capture(pid, tid, nowNS, frames)
	ring.Emit(e)
}
