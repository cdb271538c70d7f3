/**
 * Copyright (c) 2022, Xerra Earth Observation Institute.
 * Copyright (c) 2025, Simeon Miteff.
 *
 * See LICENSE.TXT in the root directory of this source tree.
 */

// Package memcached decodes libmemcached calls into "get <key>" /
// "set <key>" / "del <key>" operation strings.
package memcached

import (
	"github.com/gma1k/podtrace/pkg/correlate"
	"github.com/gma1k/podtrace/pkg/kernel"
	"github.com/gma1k/podtrace/pkg/trace"
)

const (
	opGet = "get "
	opSet = "set "
	opDel = "del "
)

func calcLatency(start, now uint64) uint64 {
	if now > start {
		return now - start
	}
	return 0
}

type reqState struct {
	startNS uint64
	op      string
	bytes   uint64
}

// Tracker correlates memcached_get/set/delete entry with their
// matching uretprobe, mirroring start_times + memcached_ops + proto_bytes.
type Tracker struct {
	reqs *correlate.Table[trace.ThreadKey, reqState]
}

func NewTracker() *Tracker {
	return &Tracker{reqs: correlate.NewTable[trace.ThreadKey, reqState](4096)}
}

func (t *Tracker) store(pid, tid uint32, nowNS uint64, prefix, key string, bytesVal uint64) {
	if !kernel.BTFAvailable() {
		return
	}
	op := trace.ClampDetails(prefix + key)
	t.reqs.Put(trace.NewThreadKey(pid, tid), reqState{startNS: nowNS, op: op, bytes: bytesVal})
}

// GetEntry mirrors uprobe_memcached_get.
func (t *Tracker) GetEntry(pid, tid uint32, nowNS uint64, key string) {
	t.store(pid, tid, nowNS, opGet, key, 0)
}

// SetEntry mirrors uprobe_memcached_set: vlen (PARM5) is captured as the
// byte count up front, since a successful set has no other way to learn it.
func (t *Tracker) SetEntry(pid, tid uint32, nowNS uint64, key string, vlen uint64) {
	t.store(pid, tid, nowNS, opSet, key, vlen)
}

// DeleteEntry mirrors uprobe_memcached_delete.
func (t *Tracker) DeleteEntry(pid, tid uint32, nowNS uint64, key string) {
	t.store(pid, tid, nowNS, opDel, key, 0)
}

// Exit mirrors mc_emit: error is the raw memcached_return_t value
// (0 == MEMCACHED_SUCCESS), passed through verbatim, not via ErrorOrZero.
func (t *Tracker) Exit(ring *trace.Ring, sb *trace.Sideband, pid, tid uint32, nowNS uint64, ret int32, frames []uint64) bool {
	key := trace.NewThreadKey(pid, tid)
	st, ok := t.reqs.Take(key)
	if !ok {
		return false
	}

	e := trace.GetScratch()
	e.Timestamp = nowNS
	e.PID = pid
	e.Type = trace.EventMemcachedCmd
	e.LatencyNS = calcLatency(st.startNS, nowNS)
	e.Error = ret
	e.Bytes = st.bytes
	e.Details = st.op
	e.Target = ""
	e.StackKey = sb.Capture(pid, tid, nowNS, frames)
	ring.Emit(e)
	return true
}
