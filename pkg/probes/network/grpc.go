package network

import (
	"github.com/gma1k/podtrace/pkg/correlate"
	"github.com/gma1k/podtrace/pkg/decode/grpc"
	"github.com/gma1k/podtrace/pkg/kernel"
	"github.com/gma1k/podtrace/pkg/trace"
)

// GRPCMethods mirrors grpc_methods: a thread-keyed table populated by
// the second tcp_sendmsg kprobe that inspects send buffers destined
// for the configured gRPC port, consumed by the generic tcp_sendmsg
// exit probe.
type GRPCMethods = correlate.Table[trace.ThreadKey, string]

func NewGRPCMethods() *GRPCMethods {
	return correlate.NewTable[trace.ThreadKey, string](1024)
}

// GRPCSendEntry mirrors kprobe_grpc_tcp_sendmsg: runs alongside the
// generic SendEntry, filtering by destination port and stashing the
// decoded method path (if any) for the matching exit.
func GRPCSendEntry(methods *GRPCMethods, pid, tid uint32, dport uint16, grpcPort uint16, sendBuf []byte) {
	if dport != grpcPort {
		return
	}
	if !kernel.BTFAvailable() {
		return
	}
	if method, ok := grpc.MethodFromSendBuffer(sendBuf); ok {
		methods.Put(trace.NewThreadKey(pid, tid), method)
	}
}

// SendExitGRPC wraps SendExit: after the generic EVENT_TCP_SEND is
// emitted, checks GRPCMethods for the thread and, if a path was
// captured, emits an additional EVENT_GRPC_METHOD carrying it as target.
func SendExitGRPC(tbl *SendRecvTable, targets *ConnTargets, methods *GRPCMethods,
	ring *trace.Ring, sb *trace.Sideband, pid, tid uint32, nowNS uint64, ret int64, frames []uint64) {

	SendExit(tbl, targets, ring, sb, pid, tid, nowNS, ret, frames)

	key := trace.NewThreadKey(pid, tid)
	method, ok := methods.Take(key)
	if !ok {
		return
	}

	e := trace.GetScratch()
	e.Timestamp = nowNS
	e.PID = pid
	e.Type = trace.EventGRPCMethod
	e.Target = method
	e.StackKey = sb.Capture(pid, tid, nowNS, frames)
	ring.Emit(e)
}
