package network

import (
	"github.com/gma1k/podtrace/pkg/correlate"
	"github.com/gma1k/podtrace/pkg/trace"
)

// SendRecvTable correlates tcp_sendmsg/tcp_recvmsg (and their UDP
// equivalents) entry with exit, mirroring start_times.
type SendRecvTable = correlate.Table[trace.ThreadKey, uint64]

func NewSendRecvTable() *SendRecvTable {
	return correlate.NewTable[trace.ThreadKey, uint64](1024)
}

// ConnTargets holds the peer string optionally stashed by the caller
// for a thread (e.g. after a connect), consumed (and cleared) by the
// next send/recv or HTTP request exit on that thread — mirroring
// socket_conns.
type ConnTargets = correlate.Table[trace.ThreadKey, string]

func NewConnTargets() *ConnTargets {
	return correlate.NewTable[trace.ThreadKey, string](1024)
}

// SendEntry/RecvEntry record the start of a tcp_sendmsg/tcp_recvmsg
// call.
func SendEntry(tbl *SendRecvTable, pid, tid uint32, nowNS uint64) {
	tbl.Put(trace.NewThreadKey(pid, tid), nowNS)
}

func RecvEntry(tbl *SendRecvTable, pid, tid uint32, nowNS uint64) {
	tbl.Put(trace.NewThreadKey(pid, tid), nowNS)
}

func sendRecvExit(tbl *SendRecvTable, targets *ConnTargets, ring *trace.Ring, sb *trace.Sideband,
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
	if target, ok := targets.Take(key); ok {
		e.Target = target
	}
	e.StackKey = sb.Capture(pid, tid, nowNS, frames)
	ring.Emit(e)
}

// SendExit completes a tcp_sendmsg call, mirroring kretprobe_tcp_sendmsg.
func SendExit(tbl *SendRecvTable, targets *ConnTargets, ring *trace.Ring, sb *trace.Sideband,
	pid, tid uint32, nowNS uint64, ret int64, frames []uint64) {
	sendRecvExit(tbl, targets, ring, sb, trace.EventTCPSend, pid, tid, nowNS, ret, frames)
}

// RecvExit completes a tcp_recvmsg call, mirroring kretprobe_tcp_recvmsg.
func RecvExit(tbl *SendRecvTable, targets *ConnTargets, ring *trace.Ring, sb *trace.Sideband,
	pid, tid uint32, nowNS uint64, ret int64, frames []uint64) {
	sendRecvExit(tbl, targets, ring, sb, trace.EventTCPRecv, pid, tid, nowNS, ret, frames)
}
