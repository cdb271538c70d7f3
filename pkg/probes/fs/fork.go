package fs

import "github.com/gma1k/podtrace/pkg/trace"

// ForkChild mirrors tracepoint_sched_process_fork: a point event keyed
// on the child PID (not the calling thread), carrying only the
// child's comm as target. A fork that produced PID 0 (a kernel thread
// artifact) is not a real child and is never reported.
func ForkChild(ring *trace.Ring, sb *trace.Sideband, nowNS uint64,
	childPID uint32, childComm string, frames []uint64) {

	if childPID == 0 {
		return
	}

	e := trace.GetScratch()
	e.Timestamp = nowNS
	e.PID = childPID
	e.Type = trace.EventFork
	e.Target = trace.ClampComm(childComm)
	e.StackKey = sb.Capture(childPID, 0, nowNS, frames)
	ring.Emit(e)
}
