package network

import "github.com/gma1k/podtrace/pkg/trace"

// TCPStateChange mirrors tracepoint_tcp_set_state: a point event with
// no entry/exit correlation, carrying the new TCP state and the
// formatted peer address when the destination address is known.
func TCPStateChange(ring *trace.Ring, sb *trace.Sideband, pid uint32, nowNS uint64,
	newState uint32, daddr uint32, dport uint16, frames []uint64) {

	e := trace.GetScratch()
	e.Timestamp = nowNS
	e.PID = pid
	e.Type = trace.EventTCPState
	e.TCPState = newState
	if daddr != 0 {
		e.Target = FormatIPv4Port(daddr, dport)
	}
	e.StackKey = sb.Capture(pid, 0, nowNS, frames)
	ring.Emit(e)
}
