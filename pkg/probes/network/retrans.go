package network

import "github.com/gma1k/podtrace/pkg/trace"

// TCPRetransmit mirrors tracepoint_tcp_retransmit_skb: a point event
// fired whenever the kernel retransmits a segment.
func TCPRetransmit(ring *trace.Ring, sb *trace.Sideband, pid uint32, nowNS uint64,
	daddr uint32, dport uint16, frames []uint64) {

	e := trace.GetScratch()
	e.Timestamp = nowNS
	e.PID = pid
	e.Type = trace.EventTCPRetrans
	if daddr != 0 {
		e.Target = FormatIPv4Port(daddr, dport)
	}
	e.StackKey = sb.Capture(pid, 0, nowNS, frames)
	ring.Emit(e)
}
