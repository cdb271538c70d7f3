package fs

import "github.com/gma1k/podtrace/pkg/trace"

// CloseFD is a point event mirroring kprobe___close_fd: no entry
// probe, no correlation, no latency; bytes carries the closed fd.
func CloseFD(ring *trace.Ring, sb *trace.Sideband, pid, tid uint32, nowNS uint64,
	fd uint32, frames []uint64) {

	e := trace.GetScratch()
	e.Timestamp = nowNS
	e.PID = pid
	e.Type = trace.EventClose
	e.Bytes = uint64(fd)
	e.StackKey = sb.Capture(pid, tid, nowNS, frames)
	ring.Emit(e)
}
