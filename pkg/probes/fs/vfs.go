/**
 * Copyright (c) 2022, Xerra Earth Observation Institute.
 * Copyright (c) 2025, Simeon Miteff.
 *
 * See LICENSE.TXT in the root directory of this source tree.
 */

// Package fs renders the kernel tracer's VFS and syscall producers
// (vfs_read/vfs_write/vfs_fsync, vfs_unlink, vfs_rename, do_sys_openat2,
// __close_fd, do_execveat_common, sched_process_fork) as Go function
// pairs over a per-thread correlation table.
package fs

import (
	"path/filepath"

	"github.com/gma1k/podtrace/pkg/correlate"
	"github.com/gma1k/podtrace/pkg/kernel"
	"github.com/gma1k/podtrace/pkg/trace"
)

func calcLatency(start, now uint64) uint64 {
	if now > start {
		return now - start
	}
	return 0
}

// PathTable mirrors start_times plus syscall_paths: a per-thread entry
// timestamp and, for probes that capture one, the path string that
// should be attached to the matching exit event.
type PathTable struct {
	start *correlate.Table[trace.ThreadKey, uint64]
	paths *correlate.Table[trace.ThreadKey, string]
}

// NewPathTable allocates a table sized to match start_times/syscall_paths'
// 1024-entry BPF maps.
func NewPathTable() *PathTable {
	return &PathTable{
		start: correlate.NewTable[trace.ThreadKey, uint64](1024),
		paths: correlate.NewTable[trace.ThreadKey, string](1024),
	}
}

// vfsEntry stores the call's start time and, where available, its
// path. Full dentry-to-path resolution needs the same BTF-driven
// field access the protocol decoders gate on; without it, only the
// final path component is retained (a CO-RE dentry->d_name read needs
// no full-path walk), matching the kernel-version proxy used
// elsewhere in this tree for "BTF available".
func vfsEntry(tbl *PathTable, pid, tid uint32, nowNS uint64, path string) {
	key := trace.NewThreadKey(pid, tid)
	tbl.start.Put(key, nowNS)
	if path == "" {
		return
	}
	if !kernel.BTFAvailable() {
		path = filepath.Base(path)
	}
	tbl.paths.Put(key, trace.ClampTarget(path))
}

// ReadEntry mirrors kprobe_vfs_read.
func ReadEntry(tbl *PathTable, pid, tid uint32, nowNS uint64, path string) {
	vfsEntry(tbl, pid, tid, nowNS, path)
}

// WriteEntry mirrors kprobe_vfs_write.
func WriteEntry(tbl *PathTable, pid, tid uint32, nowNS uint64, path string) {
	vfsEntry(tbl, pid, tid, nowNS, path)
}

// FsyncEntry mirrors kprobe_vfs_fsync.
func FsyncEntry(tbl *PathTable, pid, tid uint32, nowNS uint64, path string) {
	vfsEntry(tbl, pid, tid, nowNS, path)
}

// vfsExit implements the shared kretprobe_vfs_read/kretprobe_vfs_write
// shape: entries below MinLatencyNS are silently suppressed (the
// correlation entry is still cleaned up), byte counts come from a
// positive, sanity-clamped return value.
func vfsExit(tbl *PathTable, ring *trace.Ring, sb *trace.Sideband, typ trace.EventType,
	pid, tid uint32, nowNS uint64, ret int64, frames []uint64) {

	key := trace.NewThreadKey(pid, tid)
	start, ok := tbl.start.Take(key)
	if !ok {
		return
	}

	latency := calcLatency(start, nowNS)
	if latency < trace.MinLatencyNS {
		tbl.paths.Delete(key)
		return
	}

	e := trace.GetScratch()
	e.Timestamp = nowNS
	e.PID = pid
	e.Type = typ
	e.LatencyNS = latency
	e.Error = trace.ErrorOrZero(ret)
	e.Bytes = trace.ClampBytes(ret)
	if path, ok := tbl.paths.Take(key); ok {
		e.Target = path
	}
	e.StackKey = sb.Capture(pid, tid, nowNS, frames)
	ring.Emit(e)
}

// ReadExit mirrors kretprobe_vfs_read.
func ReadExit(tbl *PathTable, ring *trace.Ring, sb *trace.Sideband,
	pid, tid uint32, nowNS uint64, ret int64, frames []uint64) {
	vfsExit(tbl, ring, sb, trace.EventRead, pid, tid, nowNS, ret, frames)
}

// WriteExit mirrors kretprobe_vfs_write.
func WriteExit(tbl *PathTable, ring *trace.Ring, sb *trace.Sideband,
	pid, tid uint32, nowNS uint64, ret int64, frames []uint64) {
	vfsExit(tbl, ring, sb, trace.EventWrite, pid, tid, nowNS, ret, frames)
}

// FsyncExit mirrors kretprobe_vfs_fsync: fsync carries no byte count,
// but is otherwise subject to the same suppression threshold.
func FsyncExit(tbl *PathTable, ring *trace.Ring, sb *trace.Sideband,
	pid, tid uint32, nowNS uint64, ret int64, frames []uint64) {

	key := trace.NewThreadKey(pid, tid)
	start, ok := tbl.start.Take(key)
	if !ok {
		return
	}

	latency := calcLatency(start, nowNS)
	if latency < trace.MinLatencyNS {
		tbl.paths.Delete(key)
		return
	}

	e := trace.GetScratch()
	e.Timestamp = nowNS
	e.PID = pid
	e.Type = trace.EventFsync
	e.LatencyNS = latency
	e.Error = trace.ErrorOrZero(ret)
	if path, ok := tbl.paths.Take(key); ok {
		e.Target = path
	}
	e.StackKey = sb.Capture(pid, tid, nowNS, frames)
	ring.Emit(e)
}
