package network

import (
	"github.com/gma1k/podtrace/pkg/correlate"
	"github.com/gma1k/podtrace/pkg/trace"
)

// DNSTable correlates a getaddrinfo() entry (which stashes the
// hostname being resolved) with its exit, mirroring dns_targets plus
// start_times.
type DNSTable struct {
	start   *correlate.Table[trace.ThreadKey, uint64]
	targets *correlate.Table[trace.ThreadKey, string]
}

func NewDNSTable() *DNSTable {
	return &DNSTable{
		start:   correlate.NewTable[trace.ThreadKey, uint64](1024),
		targets: correlate.NewTable[trace.ThreadKey, string](1024),
	}
}

// DNSEntry records the hostname being resolved, mirroring uprobe_getaddrinfo.
func DNSEntry(tbl *DNSTable, pid, tid uint32, nowNS uint64, node string) {
	key := trace.NewThreadKey(pid, tid)
	tbl.start.Put(key, nowNS)
	if node != "" {
		tbl.targets.Put(key, trace.ClampTarget(node))
	}
}

// DNSExit completes a getaddrinfo() call, mirroring uretprobe_getaddrinfo.
// ret is getaddrinfo's return code (0 == success).
func DNSExit(tbl *DNSTable, ring *trace.Ring, sb *trace.Sideband,
	pid, tid uint32, nowNS uint64, ret int32, frames []uint64) {

	key := trace.NewThreadKey(pid, tid)
	start, ok := tbl.start.Take(key)
	if !ok {
		return
	}

	e := trace.GetScratch()
	e.Timestamp = nowNS
	e.PID = pid
	e.Type = trace.EventDNS
	e.LatencyNS = calcLatency(start, nowNS)
	e.Error = ret
	if target, ok := tbl.targets.Take(key); ok {
		e.Target = target
	}
	e.StackKey = sb.Capture(pid, tid, nowNS, frames)
	ring.Emit(e)
}
