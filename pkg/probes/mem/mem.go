/**
 * Copyright (c) 2022, Xerra Earth Observation Institute.
 * Copyright (c) 2025, Simeon Miteff.
 *
 * See LICENSE.TXT in the root directory of this source tree.
 */

// Package mem renders the kernel tracer's memory-pressure producers
// (page_fault_user, oom_kill_process) as point events: neither carries
// a correlation table, both fire directly from a tracepoint.
package mem

import "github.com/gma1k/podtrace/pkg/trace"

// PageSize matches the kernel's PAGE_SIZE used to convert oom_kill's
// totalpages into a byte count.
const PageSize = 4096

// PageFault mirrors tracepoint_page_fault_user: a point event carrying
// the fault's error_code in Error.
func PageFault(ring *trace.Ring, sb *trace.Sideband, nowNS uint64, pid uint32,
	errorCode uint32, frames []uint64) {

	e := trace.GetScratch()
	e.Timestamp = nowNS
	e.PID = pid
	e.Type = trace.EventPageFault
	e.Error = int32(errorCode)
	e.StackKey = sb.Capture(pid, 0, nowNS, frames)
	ring.Emit(e)
}

// OOMKill mirrors tracepoint_oom_kill_process: a point event reporting
// the victim's comm as target and its total resident pages converted
// to bytes.
func OOMKill(ring *trace.Ring, sb *trace.Sideband, nowNS uint64, victimPID uint32,
	totalPages uint64, victimComm string, frames []uint64) {

	e := trace.GetScratch()
	e.Timestamp = nowNS
	e.PID = victimPID
	e.Type = trace.EventOOMKill
	e.Bytes = totalPages * PageSize
	e.Target = trace.ClampComm(victimComm)
	e.StackKey = sb.Capture(victimPID, 0, nowNS, frames)
	ring.Emit(e)
}
