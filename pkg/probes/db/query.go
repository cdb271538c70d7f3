/**
 * Copyright (c) 2022, Xerra Earth Observation Institute.
 * Copyright (c) 2025, Simeon Miteff.
 *
 * See LICENSE.TXT in the root directory of this source tree.
 */

// Package db renders the kernel tracer's database client producers
// (PQexec, mysql_real_query) as a single function pair: both truncate
// the query text at the first whitespace or NUL before the exit event
// stashes it as target.
package db

import (
	"strings"

	"github.com/gma1k/podtrace/pkg/correlate"
	"github.com/gma1k/podtrace/pkg/trace"
)

func calcLatency(start, now uint64) uint64 {
	if now > start {
		return now - start
	}
	return 0
}

// QueryTable correlates a query entry with its exit, plus the verb
// captured on entry — the Go rendering of start_times plus db_queries.
type QueryTable struct {
	start *correlate.Table[trace.ThreadKey, uint64]
	verbs *correlate.Table[trace.ThreadKey, string]
}

// NewQueryTable allocates a table sized to match start_times/db_queries'
// 1024-entry BPF maps.
func NewQueryTable() *QueryTable {
	return &QueryTable{
		start: correlate.NewTable[trace.ThreadKey, uint64](1024),
		verbs: correlate.NewTable[trace.ThreadKey, string](1024),
	}
}

// truncateVerb mirrors uprobe_PQexec/uprobe_mysql_real_query: cut the
// query string at the first space, newline, tab, or NUL.
func truncateVerb(query string) string {
	if i := strings.IndexAny(query, " \n\t\x00"); i >= 0 {
		query = query[:i]
	}
	return trace.ClampTarget(query)
}

// QueryEntry mirrors uprobe_PQexec/uprobe_mysql_real_query.
func QueryEntry(tbl *QueryTable, pid, tid uint32, nowNS uint64, query string) {
	key := trace.NewThreadKey(pid, tid)
	tbl.start.Put(key, nowNS)
	if query != "" {
		tbl.verbs.Put(key, truncateVerb(query))
	}
}

// QueryExit mirrors uretprobe_PQexec/uretprobe_mysql_real_query: no
// minimum-latency suppression, and error carries the client library's
// raw return value rather than an errno (PQexec returns a result
// pointer's truthiness, not a negative error code).
func QueryExit(tbl *QueryTable, ring *trace.Ring, sb *trace.Sideband,
	pid, tid uint32, nowNS uint64, ret int64, frames []uint64) {

	key := trace.NewThreadKey(pid, tid)
	start, ok := tbl.start.Take(key)
	if !ok {
		return
	}

	e := trace.GetScratch()
	e.Timestamp = nowNS
	e.PID = pid
	e.Type = trace.EventDBQuery
	e.LatencyNS = calcLatency(start, nowNS)
	e.Error = int32(ret)
	if verb, ok := tbl.verbs.Take(key); ok {
		e.Target = verb
	}
	e.StackKey = sb.Capture(pid, tid, nowNS, frames)
	ring.Emit(e)
}
