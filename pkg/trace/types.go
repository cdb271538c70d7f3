/**
 * Copyright (c) 2022, Xerra Earth Observation Institute.
 * Copyright (c) 2025, Simeon Miteff.
 *
 * See LICENSE.TXT in the root directory of this source tree.
 */

// Package trace defines the wire-level event record, the composite
// thread key, and the channel/pool primitives that stand in for the
// ring buffer, per-CPU scratch map and stack sideband of a kernel-side
// tracer, rendered as ordinary Go concurrency primitives.
package trace

// EventType mirrors the kernel tracer's event_type enum. Ordinals are
// load-bearing: they are part of the wire contract with any consumer
// that persists raw Type values, so existing members are never
// renumbered — only appended to.
type EventType uint32

const (
	EventDNS EventType = iota
	EventConnect
	EventTCPSend
	EventTCPRecv
	EventWrite
	EventRead
	EventFsync
	EventSchedSwitch
	EventTCPState
	EventPageFault
	EventOOMKill
	EventUDPSend
	EventUDPRecv
	EventHTTPReq
	EventHTTPResp
	EventLockContention
	EventTCPRetrans
	EventNetDevError
	EventDBQuery
	EventExec
	EventFork
	EventOpen
	EventClose
	EventTLSHandshake
	EventTLSError
	EventResourceLimit
	EventPoolAcquire
	EventPoolRelease
	EventPoolExhausted
	EventUnlink
	EventRename

	// Protocol decoder extensions. Not present in the original 31-value
	// enum; appended here rather than interleaved so the base ordinals
	// above stay stable.
	EventRedisCmd
	EventMemcachedCmd
	EventFastCGIRequest
	EventFastCGIResponse
	EventGRPCMethod
	EventKafkaProduce
	EventKafkaFetch
)

var eventTypeNames = map[EventType]string{
	EventDNS:             "dns",
	EventConnect:         "connect",
	EventTCPSend:         "tcp_send",
	EventTCPRecv:         "tcp_recv",
	EventWrite:           "write",
	EventRead:            "read",
	EventFsync:           "fsync",
	EventSchedSwitch:     "sched_switch",
	EventTCPState:        "tcp_state",
	EventPageFault:       "page_fault",
	EventOOMKill:         "oom_kill",
	EventUDPSend:         "udp_send",
	EventUDPRecv:         "udp_recv",
	EventHTTPReq:         "http_req",
	EventHTTPResp:        "http_resp",
	EventLockContention:  "lock_contention",
	EventTCPRetrans:      "tcp_retrans",
	EventNetDevError:     "net_dev_error",
	EventDBQuery:         "db_query",
	EventExec:            "exec",
	EventFork:            "fork",
	EventOpen:            "open",
	EventClose:           "close",
	EventTLSHandshake:    "tls_handshake",
	EventTLSError:        "tls_error",
	EventResourceLimit:   "resource_limit",
	EventPoolAcquire:     "pool_acquire",
	EventPoolRelease:     "pool_release",
	EventPoolExhausted:   "pool_exhausted",
	EventUnlink:          "unlink",
	EventRename:          "rename",
	EventRedisCmd:        "redis_cmd",
	EventMemcachedCmd:    "memcached_cmd",
	EventFastCGIRequest:  "fastcgi_request",
	EventFastCGIResponse: "fastcgi_response",
	EventGRPCMethod:      "grpc_method",
	EventKafkaProduce:    "kafka_produce",
	EventKafkaFetch:      "kafka_fetch",
}

func (t EventType) String() string {
	if name, ok := eventTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// Resource kind carried in Event.TCPState when Type == EventResourceLimit
// (the field is reused the way tcp_state is reused for resource_type in
// the original emit_resource_alert).
type ResourceKind uint32

const (
	ResourceCPU ResourceKind = iota
	ResourceMemory
	ResourceIO
)

func (r ResourceKind) String() string {
	switch r {
	case ResourceCPU:
		return "CPU"
	case ResourceMemory:
		return "MEM"
	case ResourceIO:
		return "IO"
	default:
		return "?"
	}
}

// Database/pool backend kind, carried via target strings ("sqlite-pool" etc.)
type PoolBackend uint32

const (
	PoolSQLite PoolBackend = iota + 1
	PoolPostgreSQL
	PoolMySQL
)

func (b PoolBackend) PoolName() string {
	switch b {
	case PoolSQLite:
		return "sqlite-pool"
	case PoolPostgreSQL:
		return "postgresql-pool"
	case PoolMySQL:
		return "mysql-pool"
	default:
		return "default-pool"
	}
}

// Size limits carried over from the kernel implementation's fixed-width
// buffers. They bound string fields the same way MAX_STRING_LEN/COMM_LEN
// bound char[] fields in the C event struct.
const (
	MaxStringLen = 128
	CommLen      = 16
	MaxStackDepth = 64
)

// Clamp/suppression thresholds shared by every producer that mirrors a
// kprobe/kretprobe pair.
const (
	MaxBytesThreshold = 10 * 1024 * 1024
	MinLatencyNS      = uint64(1000000) // 1ms, in nanoseconds
)
