package mem

import (
	"testing"

	"github.com/gma1k/podtrace/pkg/trace"
	"github.com/stretchr/testify/assert"
)

func TestPageFaultCarriesErrorCode(t *testing.T) {
	ring := trace.NewRing(8)
	sb := trace.NewSideband(64)

	PageFault(ring, sb, 1000, 42, 0x4, nil)

	ev := <-ring.Events()
	assert.Equal(t, trace.EventPageFault, ev.Type)
	assert.Equal(t, int32(0x4), ev.Error)
	assert.Equal(t, uint32(42), ev.PID)
}

func TestOOMKillConvertsPagesToBytes(t *testing.T) {
	ring := trace.NewRing(8)
	sb := trace.NewSideband(64)

	OOMKill(ring, sb, 1000, 99, 256, "hungry", nil)

	ev := <-ring.Events()
	assert.Equal(t, trace.EventOOMKill, ev.Type)
	assert.Equal(t, uint64(256*PageSize), ev.Bytes)
	assert.Equal(t, "hungry", ev.Target)
}
