/**
 * Copyright (c) 2022, Xerra Earth Observation Institute.
 * Copyright (c) 2025, Simeon Miteff.
 *
 * See LICENSE.TXT in the root directory of this source tree.
 */

// Package redis extracts the command name from hiredis calls: either
// a printf-style format string (redisCommand) or an argv vector
// (redisCommandArgv).
package redis

import (
	"strings"

	"github.com/gma1k/podtrace/pkg/correlate"
	"github.com/gma1k/podtrace/pkg/kernel"
	"github.com/gma1k/podtrace/pkg/trace"
)

// CommandFromFormat mirrors redis_store_cmd: the command name is the
// leading token of the format string, truncated at the first space,
// '%' format verb, or NUL — whichever comes first.
func CommandFromFormat(format string) string {
	if i := strings.IndexAny(format, " %\x00"); i >= 0 {
		return format[:i]
	}
	return format
}

type reqState struct {
	startNS uint64
	command string
}

// Tracker correlates redisCommand/redisCommandArgv entry with their
// matching uretprobe, mirroring start_times + redis_cmds.
type Tracker struct {
	reqs *correlate.Table[trace.ThreadKey, reqState]
}

func NewTracker() *Tracker {
	return &Tracker{reqs: correlate.NewTable[trace.ThreadKey, reqState](4096)}
}

func calcLatency(start, now uint64) uint64 {
	if now > start {
		return now - start
	}
	return 0
}

// Entry stashes the command name decoded by the caller (from either
// the format string or argv[0]) against the calling thread.
func (t *Tracker) Entry(pid, tid uint32, nowNS uint64, command string) {
	if !kernel.BTFAvailable() {
		return
	}
	t.reqs.Put(trace.NewThreadKey(pid, tid), reqState{startNS: nowNS, command: command})
}

// Exit mirrors redis_emit: a NULL hiredis return (ret == 0) is the
// library's own error signal, recorded as error == -1; target is
// populated from the caller's current connection target, if known.
func (t *Tracker) Exit(ring *trace.Ring, sb *trace.Sideband, pid, tid uint32, nowNS uint64, ret int64, connTarget string, frames []uint64) bool {
	key := trace.NewThreadKey(pid, tid)
	st, ok := t.reqs.Take(key)
	if !ok {
		return false
	}

	e := trace.GetScratch()
	e.Timestamp = nowNS
	e.PID = pid
	e.Type = trace.EventRedisCmd
	e.LatencyNS = calcLatency(st.startNS, nowNS)
	if ret == 0 {
		e.Error = -1
	} else {
		e.Error = 0
	}
	e.Bytes = 0
	e.Details = trace.ClampDetails(st.command)
	e.Target = trace.ClampTarget(connTarget)
	e.StackKey = sb.Capture(pid, tid, nowNS, frames)
	ring.Emit(e)
	return true
}
