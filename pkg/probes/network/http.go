package network

import (
	"github.com/gma1k/podtrace/pkg/correlate"
	"github.com/gma1k/podtrace/pkg/trace"
)

// HTTPTable correlates http_request/http_response entry with exit.
// Request entries additionally carry the captured URL, mirroring the
// way socket_conns is consulted by uretprobe_http_request.
type HTTPTable struct {
	start *correlate.Table[trace.ThreadKey, uint64]
	urls  *correlate.Table[trace.ThreadKey, string]
}

func NewHTTPTable() *HTTPTable {
	return &HTTPTable{
		start: correlate.NewTable[trace.ThreadKey, uint64](1024),
		urls:  correlate.NewTable[trace.ThreadKey, string](1024),
	}
}

// HTTPRequestEntry mirrors uprobe_http_request: records the call start
// and, when the instrumented client exposes it directly, the request URL.
func HTTPRequestEntry(tbl *HTTPTable, pid, tid uint32, nowNS uint64, url string) {
	key := trace.NewThreadKey(pid, tid)
	tbl.start.Put(key, nowNS)
	if url != "" {
		tbl.urls.Put(key, trace.ClampTarget(url))
	}
}

// HTTPRequestExit mirrors uretprobe_http_request: emits EventHTTPReq
// with the captured URL as target, falling back to connTargets (the
// socket_conns equivalent) when the probe itself never saw a URL.
func HTTPRequestExit(tbl *HTTPTable, conn *ConnTargets, ring *trace.Ring, sb *trace.Sideband,
	pid, tid uint32, nowNS uint64, ret int64, frames []uint64) {

	key := trace.NewThreadKey(pid, tid)
	start, ok := tbl.start.Take(key)
	if !ok {
		return
	}

	e := trace.GetScratch()
	e.Timestamp = nowNS
	e.PID = pid
	e.Type = trace.EventHTTPReq
	e.LatencyNS = calcLatency(start, nowNS)
	e.Error = trace.ErrorOrZero(ret)
	e.Bytes = trace.ClampBytes(ret)
	if url, ok := tbl.urls.Take(key); ok {
		e.Target = url
	} else if conn != nil {
		if target, ok := conn.Take(key); ok {
			e.Target = target
		}
	}
	e.StackKey = sb.Capture(pid, tid, nowNS, frames)
	ring.Emit(e)
}

// HTTPResponseEntry mirrors uprobe_http_response: a plain latency
// start with no target capture.
func HTTPResponseEntry(tbl *HTTPTable, pid, tid uint32, nowNS uint64) {
	tbl.start.Put(trace.NewThreadKey(pid, tid), nowNS)
}

// HTTPResponseExit mirrors uretprobe_http_response.
func HTTPResponseExit(tbl *HTTPTable, ring *trace.Ring, sb *trace.Sideband,
	pid, tid uint32, nowNS uint64, ret int64, frames []uint64) {

	key := trace.NewThreadKey(pid, tid)
	start, ok := tbl.start.Take(key)
	if !ok {
		return
	}

	e := trace.GetScratch()
	e.Timestamp = nowNS
	e.PID = pid
	e.Type = trace.EventHTTPResp
	e.LatencyNS = calcLatency(start, nowNS)
	e.Error = trace.ErrorOrZero(ret)
	e.Bytes = trace.ClampBytes(ret)
	e.StackKey = sb.Capture(pid, tid, nowNS, frames)
	ring.Emit(e)
}
