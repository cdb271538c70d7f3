package fs

import "github.com/gma1k/podtrace/pkg/trace"

// RenameEntry mirrors a vfs_rename kprobe attached to the pre-6.3
// four-argument signature (old_dir, old_dentry, new_dir, new_dentry).
// The unified single-argument renamedata signature introduced in 6.3
// is not supported; the attach layer must refuse to load this probe
// on kernels that only expose that form.
func RenameEntry(tbl *PathTable, pid, tid uint32, nowNS uint64, oldName, newName string) {
	target := oldName + ">" + newName
	vfsEntry(tbl, pid, tid, nowNS, target)
}

// RenameExit mirrors the vfs_rename kretprobe: always emitted, no
// minimum-latency suppression. A rename between identical old/new
// dentries still produces its "name>name" target.
func RenameExit(tbl *PathTable, ring *trace.Ring, sb *trace.Sideband,
	pid, tid uint32, nowNS uint64, ret int64, frames []uint64) {

	key := trace.NewThreadKey(pid, tid)
	start, ok := tbl.start.Take(key)
	if !ok {
		return
	}

	e := trace.GetScratch()
	e.Timestamp = nowNS
	e.PID = pid
	e.Type = trace.EventRename
	e.LatencyNS = calcLatency(start, nowNS)
	e.Error = trace.ErrorOrZero(ret)
	if path, ok := tbl.paths.Take(key); ok {
		e.Target = path
	}
	e.StackKey = sb.Capture(pid, tid, nowNS, frames)
	ring.Emit(e)
}
