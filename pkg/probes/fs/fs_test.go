package fs

import (
	"testing"

	"github.com/gma1k/podtrace/pkg/trace"
	"github.com/stretchr/testify/assert"
)

func newRing() *trace.Ring { return trace.NewRing(16) }

func TestReadExitSuppressedBelowMinLatency(t *testing.T) {
	tbl := NewPathTable()
	ring := newRing()
	sb := trace.NewSideband(64)

	ReadEntry(tbl, 1, 1, 1_000_000, "/tmp/f")
	ReadExit(tbl, ring, sb, 1, 1, 1_000_500, 10, nil) // 500ns < 1ms

	select {
	case <-ring.Events():
		t.Fatal("expected suppressed event below MinLatencyNS")
	default:
	}
	assert.Equal(t, 0, tbl.paths.Len())
}

func TestReadExitEmittedAboveMinLatency(t *testing.T) {
	tbl := NewPathTable()
	ring := newRing()
	sb := trace.NewSideband(64)

	ReadEntry(tbl, 1, 1, 0, "/tmp/f")
	ReadExit(tbl, ring, sb, 1, 1, 2_000_000, 4096, nil) // 2ms

	ev := <-ring.Events()
	assert.Equal(t, trace.EventRead, ev.Type)
	assert.Equal(t, uint64(4096), ev.Bytes)
	assert.Equal(t, "/tmp/f", ev.Target)
	assert.Equal(t, uint64(2_000_000), ev.LatencyNS)
}

func TestOpenExitAlwaysEmitsAndBytesIsFD(t *testing.T) {
	tbl := NewPathTable()
	ring := newRing()
	sb := trace.NewSideband(64)

	OpenEntry(tbl, 1, 1, 0, "/etc/hosts")
	OpenExit(tbl, ring, sb, 1, 1, 10, 7, nil) // 10ns latency, well under 1ms

	ev := <-ring.Events()
	assert.Equal(t, trace.EventOpen, ev.Type)
	assert.Equal(t, uint64(7), ev.Bytes)
	assert.Equal(t, "/etc/hosts", ev.Target)
}

func TestCloseFDIsPointEvent(t *testing.T) {
	ring := newRing()
	sb := trace.NewSideband(64)

	CloseFD(ring, sb, 1, 1, 1000, 9, nil)

	ev := <-ring.Events()
	assert.Equal(t, trace.EventClose, ev.Type)
	assert.Equal(t, uint64(9), ev.Bytes)
	assert.Equal(t, uint64(0), ev.LatencyNS)
}

func TestForkChildZeroPIDIsDropped(t *testing.T) {
	ring := newRing()
	sb := trace.NewSideband(64)

	ForkChild(ring, sb, 1000, 0, "nope", nil)

	select {
	case <-ring.Events():
		t.Fatal("expected no event for pid 0")
	default:
	}
}

func TestForkChildEmitsWithComm(t *testing.T) {
	ring := newRing()
	sb := trace.NewSideband(64)

	ForkChild(ring, sb, 1000, 42, "worker", nil)

	ev := <-ring.Events()
	assert.Equal(t, trace.EventFork, ev.Type)
	assert.Equal(t, uint32(42), ev.PID)
	assert.Equal(t, "worker", ev.Target)
}

func TestUnlinkEmitsBasename(t *testing.T) {
	tbl := NewPathTable()
	ring := newRing()
	sb := trace.NewSideband(64)

	UnlinkEntry(tbl, 1, 1, 0, "scratch.tmp")
	UnlinkExit(tbl, ring, sb, 1, 1, 10, 0, nil)

	ev := <-ring.Events()
	assert.Equal(t, trace.EventUnlink, ev.Type)
	assert.Equal(t, "scratch.tmp", ev.Target)
}

func TestRenameFormatsOldGreaterThanNew(t *testing.T) {
	tbl := NewPathTable()
	ring := newRing()
	sb := trace.NewSideband(64)

	RenameEntry(tbl, 1, 1, 0, "a.txt", "b.txt")
	RenameExit(tbl, ring, sb, 1, 1, 10, 0, nil)

	ev := <-ring.Events()
	assert.Equal(t, trace.EventRename, ev.Type)
	assert.Equal(t, "a.txt>b.txt", ev.Target)
}

func TestRenameIdenticalNamesStillEmits(t *testing.T) {
	tbl := NewPathTable()
	ring := newRing()
	sb := trace.NewSideband(64)

	RenameEntry(tbl, 1, 1, 0, "same.txt", "same.txt")
	RenameExit(tbl, ring, sb, 1, 1, 10, 0, nil)

	ev := <-ring.Events()
	assert.Equal(t, "same.txt>same.txt", ev.Target)
}

func TestExecExitCapturesFilename(t *testing.T) {
	tbl := NewPathTable()
	ring := newRing()
	sb := trace.NewSideband(64)

	ExecEntry(tbl, 1, 1, 0, "/usr/bin/sh")
	ExecExit(tbl, ring, sb, 1, 1, 10, 0, nil)

	ev := <-ring.Events()
	assert.Equal(t, trace.EventExec, ev.Type)
	assert.Equal(t, "/usr/bin/sh", ev.Target)
}

func TestFsyncExitSuppressedBelowMinLatency(t *testing.T) {
	tbl := NewPathTable()
	ring := newRing()
	sb := trace.NewSideband(64)

	FsyncEntry(tbl, 1, 1, 0, "/tmp/f")
	FsyncExit(tbl, ring, sb, 1, 1, 500, 0, nil)

	select {
	case <-ring.Events():
		t.Fatal("expected suppressed fsync below MinLatencyNS")
	default:
	}
}
