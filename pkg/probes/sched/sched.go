/**
 * Copyright (c) 2022, Xerra Earth Observation Institute.
 * Copyright (c) 2025, Simeon Miteff.
 *
 * See LICENSE.TXT in the root directory of this source tree.
 */

// Package sched renders the kernel tracer's off-CPU scheduling and
// lock-contention producers (sched_switch, do_futex, pthread_mutex_lock)
// as Go function pairs over a per-PID/per-thread correlation table.
package sched

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

// SwitchTable tracks, per PID, the timestamp at which that PID was
// last switched onto a CPU — the Go rendering of start_times as used
// by tracepoint_sched_switch (keyed by get_key(pid, 0), i.e. per
// process rather than per thread).
type SwitchTable = correlate.Table[trace.ThreadKey, uint64]

// NewSwitchTable allocates a table sized to match start_times' 1024-entry map.
func NewSwitchTable() *SwitchTable {
	return correlate.NewTable[trace.ThreadKey, uint64](1024)
}

// SchedSwitch mirrors tracepoint_sched_switch: on the outgoing thread,
// if it had a recorded switch-in time and the resulting off-CPU block
// exceeds MinLatencyNS, emit EVENT_SCHED_SWITCH; the incoming thread's
// switch-in time is always (re)recorded for the next switch-out.
// Unlike the suppression threshold used by the VFS producers (latency
// < MinLatencyNS is dropped), this one drops at <=, matching the
// source's strict "> MIN_LATENCY_NS" emit condition.
func SchedSwitch(tbl *SwitchTable, ring *trace.Ring, sb *trace.Sideband,
	nowNS uint64, prevPID, nextPID uint32, frames []uint64) {

	if prevPID > 0 {
		key := trace.NewThreadKey(prevPID, 0)
		if start, ok := tbl.Take(key); ok {
			blockTime := calcLatency(start, nowNS)
			if blockTime > trace.MinLatencyNS {
				e := trace.GetScratch()
				e.Timestamp = nowNS
				e.PID = prevPID
				e.Type = trace.EventSchedSwitch
				e.LatencyNS = blockTime
				e.StackKey = sb.Capture(prevPID, 0, nowNS, frames)
				ring.Emit(e)
			}
		}
	}

	if nextPID > 0 {
		tbl.Put(trace.NewThreadKey(nextPID, 0), nowNS)
	}
}
