package network

import "github.com/gma1k/podtrace/pkg/trace"

// UDPTable correlates udp_sendmsg/udp_recvmsg entry with exit. Kept
// distinct from SendRecvTable (rather than sharing start_times the
// way the kernel source does) so a thread doing concurrent TCP and
// UDP I/O can't have one clobber the other's correlation entry.
type UDPTable = SendRecvTable

func NewUDPTable() *UDPTable {
	return NewSendRecvTable()
}

func UDPSendEntry(tbl *UDPTable, pid, tid uint32, nowNS uint64) {
	tbl.Put(trace.NewThreadKey(pid, tid), nowNS)
}

func UDPRecvEntry(tbl *UDPTable, pid, tid uint32, nowNS uint64) {
	tbl.Put(trace.NewThreadKey(pid, tid), nowNS)
}

func udpExit(tbl *UDPTable, ring *trace.Ring, sb *trace.Sideband,
	typ trace.EventType, pid, tid uint32, nowNS uint64, ret int64, frames []uint64) {

	key := trace.NewThreadKey(pid, tid)
	start, ok := tbl.Take(key)
	if !ok {
		return
	}

	e := trace.GetScratch()
	e.Timestamp = nowNS
	e.PID = pid
	e.Type = typ
	e.LatencyNS = calcLatency(start, nowNS)
	e.Error = trace.ErrorOrZero(ret)
	e.Bytes = trace.ClampBytes(ret)
	e.StackKey = sb.Capture(pid, tid, nowNS, frames)
	ring.Emit(e)
}

// UDPSendExit completes a udp_sendmsg call, mirroring kretprobe_udp_sendmsg.
func UDPSendExit(tbl *UDPTable, ring *trace.Ring, sb *trace.Sideband,
	pid, tid uint32, nowNS uint64, ret int64, frames []uint64) {
	udpExit(tbl, ring, sb, trace.EventUDPSend, pid, tid, nowNS, ret, frames)
}

// UDPRecvExit completes a udp_recvmsg call, mirroring kretprobe_udp_recvmsg.
func UDPRecvExit(tbl *UDPTable, ring *trace.Ring, sb *trace.Sideband,
	pid, tid uint32, nowNS uint64, ret int64, frames []uint64) {
	udpExit(tbl, ring, sb, trace.EventUDPRecv, pid, tid, nowNS, ret, frames)
}
