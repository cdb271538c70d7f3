package cgroup

import (
	"testing"

	"github.com/gma1k/podtrace/pkg/trace"
	"github.com/stretchr/testify/assert"
)

func TestUtilizationCapsAtHundred(t *testing.T) {
	assert.Equal(t, uint32(100), Utilization(2000, 1000))
	assert.Equal(t, uint32(50), Utilization(500, 1000))
	assert.Equal(t, uint32(0), Utilization(500, 0))
	assert.Equal(t, uint32(0), Utilization(500, ^uint64(0)))
}

func TestAlertLevelThresholds(t *testing.T) {
	th := DefaultThresholds
	assert.Equal(t, uint32(0), th.AlertLevel(79))
	assert.Equal(t, uint32(1), th.AlertLevel(80))
	assert.Equal(t, uint32(2), th.AlertLevel(90))
	assert.Equal(t, uint32(3), th.AlertLevel(95))
}

func TestEvaluateScenarioUsage950Limit1000(t *testing.T) {
	eng := NewEngine(DefaultThresholds)
	ring := trace.NewRing(8)

	eng.Evaluate(ring, 1000, 42, trace.ResourceCPU, 950, 1000)

	ev := <-ring.Events()
	assert.Equal(t, trace.EventResourceLimit, ev.Type)
	assert.Equal(t, int32(95), ev.Error)
	assert.Equal(t, uint64(950), ev.Bytes)
	assert.Equal(t, uint32(0), ev.TCPState)
	assert.Equal(t, "CPU:95%", ev.Details)
	assert.Equal(t, uint32(3), eng.AlertLevel(42))
}

func TestEvaluateClearsAlertWhenUtilizationDrops(t *testing.T) {
	eng := NewEngine(DefaultThresholds)
	ring := trace.NewRing(8)

	eng.Evaluate(ring, 0, 1, trace.ResourceMemory, 950, 1000)
	<-ring.Events()
	assert.Equal(t, uint32(3), eng.AlertLevel(1))

	eng.Evaluate(ring, 0, 1, trace.ResourceMemory, 100, 1000)
	<-ring.Events()
	assert.Equal(t, uint32(0), eng.AlertLevel(1))
}

func TestCustomThresholds(t *testing.T) {
	eng := NewEngine(Thresholds{Warn: 50, Crit: 70, Emerg: 90})
	ring := trace.NewRing(8)

	eng.Evaluate(ring, 0, 7, trace.ResourceIO, 60, 100)
	<-ring.Events()
	assert.Equal(t, uint32(1), eng.AlertLevel(7))
}
