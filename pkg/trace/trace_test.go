package trace

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewThreadKey(t *testing.T) {
	k := NewThreadKey(1234, 5678)
	assert.Equal(t, uint32(1234), k.PID())
	assert.Equal(t, uint32(5678), k.TID())
	assert.Equal(t, ThreadKey(uint64(1234)<<32|5678), k)
}

func TestStackKeyIsXORedWithTimestamp(t *testing.T) {
	k1 := StackKey(1, 2, 1000)
	k2 := StackKey(1, 2, 2000)
	assert.NotEqual(t, k1, k2)

	base := uint64(NewThreadKey(1, 2))
	assert.Equal(t, base^1000, k1)
}

func TestClampBytesRejectsNegativeAndOversized(t *testing.T) {
	assert.Equal(t, uint64(512), ClampBytes(512))
	assert.Equal(t, uint64(0), ClampBytes(-1))
	assert.Equal(t, uint64(0), ClampBytes(MaxBytesThreshold))
	assert.Equal(t, uint64(0), ClampBytes(MaxBytesThreshold+1))
}

func TestErrorOrZero(t *testing.T) {
	assert.Equal(t, int32(0), ErrorOrZero(42))
	assert.Equal(t, int32(-1), ErrorOrZero(-1))
}

func TestClampTruncatesToWidth(t *testing.T) {
	long := make([]byte, MaxStringLen+10)
	for i := range long {
		long[i] = 'a'
	}
	clamped := ClampTarget(string(long))
	assert.Equal(t, MaxStringLen-1, len(clamped))
}

func TestScratchPoolReturnsZeroedEvent(t *testing.T) {
	e := GetScratch()
	e.PID = 99
	e.Target = "stale"
	PutScratch(e)

	e2 := GetScratch()
	assert.Equal(t, uint32(0), e2.PID)
	assert.Equal(t, "", e2.Target)
}

func TestRingEmitAndDrop(t *testing.T) {
	r := NewRing(1)
	r.Emit(&Event{PID: 1})
	r.Emit(&Event{PID: 2}) // buffer full, should be dropped

	got := <-r.Events()
	assert.Equal(t, uint32(1), got.PID)
	assert.Equal(t, uint64(1), r.Dropped())
}

func TestSidebandCaptureAndLookup(t *testing.T) {
	sb := NewSideband(8)
	key := sb.Capture(1, 2, 1000, []uint64{0xdead, 0xbeef})
	assert.NotEqual(t, uint64(0), key)

	trace, ok := sb.Lookup(key)
	assert.True(t, ok)
	assert.Equal(t, []uint64{0xdead, 0xbeef}, trace.IPs)
}

func TestSidebandCaptureNoFramesReturnsZero(t *testing.T) {
	sb := NewSideband(8)
	key := sb.Capture(1, 2, 1000, nil)
	assert.Equal(t, uint64(0), key)
}
