package network

import "github.com/gma1k/podtrace/pkg/trace"

// NetDevXmitError mirrors tracepoint_net_dev_xmit: net_dev_xmit fires
// on every transmitted packet, but the original producer only emits
// an event when the driver's queue_xmit return code is non-zero
// (i.e. the transmit failed or was requeued) — successful, silent
// transmits never reach the ring buffer. ifaceName is clamped to
// trace.CommLen the way the kernel's 16-byte net_device name field is.
func NetDevXmitError(ring *trace.Ring, sb *trace.Sideband, pid uint32, nowNS uint64,
	rc int32, lenBytes uint64, ifaceName string, frames []uint64) {

	if rc == 0 {
		return
	}

	e := trace.GetScratch()
	e.Timestamp = nowNS
	e.PID = pid
	e.Type = trace.EventNetDevError
	e.Error = rc
	e.Bytes = lenBytes
	e.Target = trace.ClampComm(ifaceName)
	e.StackKey = sb.Capture(pid, 0, nowNS, frames)
	ring.Emit(e)
}
