/**
 * Copyright (c) 2022, Xerra Earth Observation Institute.
 * Copyright (c) 2025, Simeon Miteff.
 *
 * See LICENSE.TXT in the root directory of this source tree.
 */

// Package pool renders the kernel tracer's connection-pool state
// machine (SQLite/PostgreSQL/MySQL acquire/release/exhaustion) as a
// plain Go engine over a per-thread correlation table.
package pool

import (
	"github.com/gma1k/podtrace/pkg/correlate"
	"github.com/gma1k/podtrace/pkg/trace"
)

// ExhaustionThreshold is the wait time past which an outstanding
// acquire is reported as exhausted, matching handle_pool_exhaustion's
// hardcoded 10ms.
const ExhaustionThreshold = uint64(10_000_000)

// state is the Go rendering of struct pool_state plus the sidecar
// pool_db_types/pool_acquire_times maps, merged into a single value
// since they always travel together keyed by the same K.
type state struct {
	lastUseNS    uint64
	connectionID uint32
	inUse        bool
	dbType       trace.PoolBackend
	acquireNS    uint64
	hasAcquire   bool
}

// Engine tracks pool_states/pool_db_types/pool_acquire_times, keyed by
// (pid,tid) the same way get_pool_key does.
type Engine struct {
	states *correlate.Table[trace.ThreadKey, *state]
}

// NewEngine allocates a pool engine sized to match pool_states' 1024-entry map.
func NewEngine() *Engine {
	return &Engine{states: correlate.NewTable[trace.ThreadKey, *state](1024)}
}

// Acquire mirrors handle_pool_acquire: creates state on first sight,
// reactivates it on a 0→1 transition (emitting EVENT_POOL_ACQUIRE both
// times), or silently refreshes last_use_ns when already in use.
func (eng *Engine) Acquire(ring *trace.Ring, pid, tid uint32, nowNS uint64, db trace.PoolBackend) {
	key := trace.NewThreadKey(pid, tid)
	st, ok := eng.states.Get(key)

	if !ok {
		st = &state{connectionID: tid, lastUseNS: nowNS, inUse: true, dbType: db, acquireNS: nowNS, hasAcquire: true}
		eng.states.Put(key, st)
		emitPoolEvent(ring, pid, nowNS, trace.EventPoolAcquire, 0, db)
		return
	}

	if !st.inUse {
		st.inUse = true
		st.lastUseNS = nowNS
		st.dbType = db
		st.acquireNS = nowNS
		st.hasAcquire = true
		emitPoolEvent(ring, pid, nowNS, trace.EventPoolAcquire, 0, db)
		return
	}

	st.lastUseNS = nowNS
}

// Release mirrors handle_pool_release: flips in_use 1→0 and emits
// EVENT_POOL_RELEASE; a no-op if already released or never acquired.
func (eng *Engine) Release(ring *trace.Ring, pid, tid uint32, nowNS uint64) {
	key := trace.NewThreadKey(pid, tid)
	st, ok := eng.states.Get(key)
	if !ok {
		return
	}

	if st.inUse {
		st.inUse = false
		emitPoolEvent(ring, pid, nowNS, trace.EventPoolRelease, 0, st.dbType)
	}
}

// CheckExhaustion mirrors handle_pool_exhaustion: if the outstanding
// acquire has been waiting at least ExhaustionThreshold, emits
// EVENT_POOL_EXHAUSTED carrying the wait as latency.
func (eng *Engine) CheckExhaustion(ring *trace.Ring, pid, tid uint32, nowNS uint64) {
	key := trace.NewThreadKey(pid, tid)
	st, ok := eng.states.Get(key)
	if !ok || !st.hasAcquire || nowNS <= st.acquireNS {
		return
	}

	wait := nowNS - st.acquireNS
	if wait >= ExhaustionThreshold {
		emitPoolEvent(ring, pid, nowNS, trace.EventPoolExhausted, wait, st.dbType)
	}
}

// ClearAcquire mirrors the step-exit side of sqlite3_step (and the
// equivalent query-exit probes): the outstanding acquire marker is
// cleared once the blocking call returns.
func (eng *Engine) ClearAcquire(pid, tid uint32) {
	key := trace.NewThreadKey(pid, tid)
	if st, ok := eng.states.Get(key); ok {
		st.hasAcquire = false
	}
}

func emitPoolEvent(ring *trace.Ring, pid uint32, nowNS uint64, typ trace.EventType, latencyNS uint64, db trace.PoolBackend) {
	e := trace.GetScratch()
	e.Timestamp = nowNS
	e.PID = pid
	e.Type = typ
	e.LatencyNS = latencyNS
	e.Target = db.PoolName()
	ring.Emit(e)
}
