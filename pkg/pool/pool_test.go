package pool

import (
	"testing"

	"github.com/gma1k/podtrace/pkg/trace"
	"github.com/stretchr/testify/assert"
)

func TestAcquireOnFirstSightEmits(t *testing.T) {
	eng := NewEngine()
	ring := trace.NewRing(8)

	eng.Acquire(ring, 1, 1, 1000, trace.PoolSQLite)

	ev := <-ring.Events()
	assert.Equal(t, trace.EventPoolAcquire, ev.Type)
	assert.Equal(t, "sqlite-pool", ev.Target)
}

func TestAcquireWhileInUseIsIdempotentKeepalive(t *testing.T) {
	eng := NewEngine()
	ring := trace.NewRing(8)

	eng.Acquire(ring, 1, 1, 1000, trace.PoolSQLite)
	<-ring.Events()

	eng.Acquire(ring, 1, 1, 2000, trace.PoolSQLite) // already in_use, no event

	select {
	case <-ring.Events():
		t.Fatal("expected no second acquire event while still in use")
	default:
	}
}

func TestReleaseThenReacquireEmitsTwice(t *testing.T) {
	eng := NewEngine()
	ring := trace.NewRing(8)

	eng.Acquire(ring, 1, 1, 1000, trace.PoolSQLite)
	<-ring.Events()

	eng.Release(ring, 1, 1, 1100)
	rel := <-ring.Events()
	assert.Equal(t, trace.EventPoolRelease, rel.Type)

	eng.Acquire(ring, 1, 1, 1200, trace.PoolSQLite)
	acq := <-ring.Events()
	assert.Equal(t, trace.EventPoolAcquire, acq.Type)
}

func TestExhaustionAtTwentyMillisecondWait(t *testing.T) {
	eng := NewEngine()
	ring := trace.NewRing(8)

	eng.Acquire(ring, 1, 1, 0, trace.PoolSQLite)
	<-ring.Events()

	eng.CheckExhaustion(ring, 1, 1, 20_000_000) // 20ms wait, >= 10ms threshold

	ev := <-ring.Events()
	assert.Equal(t, trace.EventPoolExhausted, ev.Type)
	assert.Equal(t, uint64(20_000_000), ev.LatencyNS)
	assert.Equal(t, "sqlite-pool", ev.Target)
}

func TestExhaustionBelowThresholdIsSilent(t *testing.T) {
	eng := NewEngine()
	ring := trace.NewRing(8)

	eng.Acquire(ring, 1, 1, 0, trace.PoolPostgreSQL)
	<-ring.Events()

	eng.CheckExhaustion(ring, 1, 1, 5_000_000) // 5ms, below threshold

	select {
	case <-ring.Events():
		t.Fatal("expected no exhaustion event below threshold")
	default:
	}
}

func TestClearAcquireStopsFurtherExhaustionChecks(t *testing.T) {
	eng := NewEngine()
	ring := trace.NewRing(8)

	eng.Acquire(ring, 1, 1, 0, trace.PoolMySQL)
	<-ring.Events()

	eng.ClearAcquire(1, 1)
	eng.CheckExhaustion(ring, 1, 1, 50_000_000)

	select {
	case <-ring.Events():
		t.Fatal("expected no exhaustion event once acquire marker is cleared")
	default:
	}
}
