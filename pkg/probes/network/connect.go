package network

import (
	"github.com/gma1k/podtrace/pkg/correlate"
	"github.com/gma1k/podtrace/pkg/trace"
)

func calcLatency(start, now uint64) uint64 {
	if now > start {
		return now - start
	}
	return 0
}

// ConnectTable correlates a connect() entry with its matching exit,
// keyed by thread — the Go rendering of start_times as used by
// kprobe_tcp_connect/kprobe_tcp_v6_connect.
type ConnectTable = correlate.Table[trace.ThreadKey, uint64]

// NewConnectTable allocates a connect-correlation table sized to match
// start_times' 1024-entry BPF map.
func NewConnectTable() *ConnectTable {
	return correlate.NewTable[trace.ThreadKey, uint64](1024)
}

// ConnectEntry records the start of a connect() call, mirroring
// kprobe_tcp_connect/kprobe_tcp_v6_connect.
func ConnectEntry(tbl *ConnectTable, pid, tid uint32, nowNS uint64) {
	tbl.Put(trace.NewThreadKey(pid, tid), nowNS)
}

// ConnectExitIPv4 completes a connect() call against an IPv4 peer,
// mirroring kretprobe_tcp_connect. retErrno is the connect() return
// value (0 on success, negative errno otherwise); ip is host-order.
// frames, if non-empty, are attached via sb and referenced from the
// emitted event's StackKey.
func ConnectExitIPv4(tbl *ConnectTable, ring *trace.Ring, sb *trace.Sideband,
	pid, tid uint32, nowNS uint64, retErrno int32, ip uint32, port uint16, frames []uint64) {

	key := trace.NewThreadKey(pid, tid)
	start, ok := tbl.Take(key)
	if !ok {
		return
	}

	e := trace.GetScratch()
	e.Timestamp = nowNS
	e.PID = pid
	e.Type = trace.EventConnect
	e.LatencyNS = calcLatency(start, nowNS)
	e.Error = retErrno
	e.Target = FormatIPv4Port(ip, port)
	e.StackKey = sb.Capture(pid, tid, nowNS, frames)
	ring.Emit(e)
}

// ConnectExitIPv6 completes a connect() call against an IPv6 peer,
// mirroring kretprobe_tcp_v6_connect's common path: only the port is
// read, so the target is the "[IPv6]:port" placeholder.
func ConnectExitIPv6(tbl *ConnectTable, ring *trace.Ring, sb *trace.Sideband,
	pid, tid uint32, nowNS uint64, retErrno int32, port uint16, frames []uint64) {

	key := trace.NewThreadKey(pid, tid)
	start, ok := tbl.Take(key)
	if !ok {
		return
	}

	e := trace.GetScratch()
	e.Timestamp = nowNS
	e.PID = pid
	e.Type = trace.EventConnect
	e.LatencyNS = calcLatency(start, nowNS)
	e.Error = retErrno
	e.Target = FormatIPv6Placeholder(port)
	e.StackKey = sb.Capture(pid, tid, nowNS, frames)
	ring.Emit(e)
}

// ConnectExitIPv6Full is the enrichment path used when the full
// 16-byte address could be read, using the hex-segment formatter
// instead of the "[IPv6]" placeholder.
func ConnectExitIPv6Full(tbl *ConnectTable, ring *trace.Ring, sb *trace.Sideband,
	pid, tid uint32, nowNS uint64, retErrno int32, addr [16]byte, port uint16, frames []uint64) {

	key := trace.NewThreadKey(pid, tid)
	start, ok := tbl.Take(key)
	if !ok {
		return
	}

	e := trace.GetScratch()
	e.Timestamp = nowNS
	e.PID = pid
	e.Type = trace.EventConnect
	e.LatencyNS = calcLatency(start, nowNS)
	e.Error = retErrno
	e.Target = FormatIPv6Full(addr, port)
	e.StackKey = sb.Capture(pid, tid, nowNS, frames)
	ring.Emit(e)
}
