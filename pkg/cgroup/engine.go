/**
 * Copyright (c) 2022, Xerra Earth Observation Institute.
 * Copyright (c) 2025, Simeon Miteff.
 *
 * See LICENSE.TXT in the root directory of this source tree.
 */

// Package cgroup renders the kernel tracer's cgroup resource-utilization
// engine as a plain Go evaluator: usage/limit ratios are compared
// against configurable alert thresholds and turned into
// EVENT_RESOURCE_LIMIT events plus a remembered per-cgroup alert level.
package cgroup

import (
	"fmt"

	"github.com/gma1k/podtrace/pkg/correlate"
	"github.com/gma1k/podtrace/pkg/trace"
)

// Thresholds holds the three alert-level percentages, read from
// configuration (alert_thresholds[0..2]); the zero value is invalid —
// callers should use DefaultThresholds unless configuration overrides it.
type Thresholds struct {
	Warn, Crit, Emerg uint32
}

// DefaultThresholds matches the source's hardcoded 80/90/95, used when
// configuration leaves alert_thresholds unset.
var DefaultThresholds = Thresholds{Warn: 80, Crit: 90, Emerg: 95}

// Engine evaluates cgroup usage/limit pairs against Thresholds and
// tracks the resulting alert level per cgroup, mirroring cgroup_alerts.
type Engine struct {
	thresholds Thresholds
	alerts     *correlate.Table[uint64, uint32]
}

// NewEngine creates an evaluator using thresholds, or DefaultThresholds
// if the zero value is passed.
func NewEngine(thresholds Thresholds) *Engine {
	if thresholds == (Thresholds{}) {
		thresholds = DefaultThresholds
	}
	return &Engine{
		thresholds: thresholds,
		alerts:     correlate.NewTable[uint64, uint32](4096),
	}
}

// Utilization mirrors calculate_utilization: 0 when limit is zero or
// the all-ones sentinel (an unset cgroup limit), 100 when usage
// exceeds limit, else the usage/limit percentage capped at 100.
func Utilization(usage, limit uint64) uint32 {
	if limit == 0 || limit == ^uint64(0) {
		return 0
	}
	if usage > limit {
		return 100
	}
	pct := usage * 100 / limit
	if pct > 100 {
		pct = 100
	}
	return uint32(pct)
}

// AlertLevel mirrors check_alert_threshold: 3/2/1/0 for
// emerg/crit/warn/none, evaluated against t high-to-low.
func (t Thresholds) AlertLevel(utilization uint32) uint32 {
	switch {
	case utilization >= t.Emerg:
		return 3
	case utilization >= t.Crit:
		return 2
	case utilization >= t.Warn:
		return 1
	default:
		return 0
	}
}

// detailsString mirrors emit_resource_alert's hand-built "{kind}:{pct}%"
// string.
func detailsString(kind trace.ResourceKind, utilization uint32) string {
	return trace.ClampDetails(fmt.Sprintf("%s:%d%%", kind, utilization))
}

// Evaluate mirrors emit_resource_alert end to end: computes utilization
// and alert level, emits EVENT_RESOURCE_LIMIT, and updates (or clears)
// the remembered alert level for cgroupID.
func (eng *Engine) Evaluate(ring *trace.Ring, nowNS uint64, cgroupID uint64,
	kind trace.ResourceKind, usage, limit uint64) {

	utilization := Utilization(usage, limit)

	e := trace.GetScratch()
	e.Timestamp = nowNS
	e.Type = trace.EventResourceLimit
	e.Error = int32(utilization)
	e.Bytes = usage
	e.TCPState = uint32(kind)
	e.CgroupID = cgroupID
	e.Details = detailsString(kind, utilization)
	ring.Emit(e)

	level := eng.thresholds.AlertLevel(utilization)
	if level > 0 {
		eng.alerts.Put(cgroupID, level)
	} else {
		eng.alerts.Delete(cgroupID)
	}
}

// AlertLevel returns the remembered alert level for cgroupID (0 if none).
func (eng *Engine) AlertLevel(cgroupID uint64) uint32 {
	level, ok := eng.alerts.Get(cgroupID)
	if !ok {
		return 0
	}
	return level
}
