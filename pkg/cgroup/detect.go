//go:build linux

/**
 * Copyright (c) 2022, Xerra Earth Observation Institute.
 * Copyright (c) 2025, Simeon Miteff.
 *
 * See LICENSE.TXT in the root directory of this source tree.
 */

package cgroup

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Version identifies the cgroup hierarchy the utilization engine should
// read usage/limit pairs from.
type Version int

const (
	Unsupported Version = iota // non-Linux or no cgroup mounts
	V1                         // legacy multi-hierarchy cgroup v1
	V2                         // unified cgroup v2
	Hybrid                     // both v1 and v2 present
)

func (v Version) String() string {
	switch v {
	case V1:
		return "cgroup v1"
	case V2:
		return "cgroup v2"
	case Hybrid:
		return "cgroup hybrid"
	default:
		return "unsupported"
	}
}

// Detect parses /proc/self/mountinfo for cgroup/cgroup2 filesystems and
// reports which hierarchy (or both) is mounted, plus the mount points
// the utilization engine should read limit/usage files under.
func Detect() (Version, string, error) {
	f, err := os.Open("/proc/self/mountinfo")
	if err != nil {
		return Unsupported, "", fmt.Errorf("open mountinfo: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	var (
		hasV1 bool
		hasV2 bool
		v1Pts []string
		v2Pts []string
		sc    = bufio.NewScanner(f)
	)
	for sc.Scan() {
		line := sc.Text()
		// mountinfo has: <fields> - <fstype> <source> <superopts>
		const sep = " - "
		i := strings.LastIndex(line, sep)
		if i < 0 {
			continue
		}
		tail := line[i+len(sep):]
		fields := strings.Fields(tail)
		if len(fields) < 1 {
			continue
		}
		fstype := fields[0]

		pre := strings.Fields(line[:i])
		if len(pre) < 5 {
			continue
		}
		mountPoint := pre[4]

		switch fstype {
		case "cgroup2":
			hasV2 = true
			v2Pts = append(v2Pts, mountPoint)
		case "cgroup":
			hasV1 = true
			v1Pts = append(v1Pts, mountPoint)
		}
	}
	if err := sc.Err(); err != nil {
		return Unsupported, "", fmt.Errorf("scan mountinfo: %w", err)
	}

	switch {
	case hasV1 && hasV2:
		return Hybrid, fmt.Sprintf("cgroup2 on %v; cgroup v1 on %v",
			strings.Join(v2Pts, ","), strings.Join(v1Pts, ",")), nil
	case hasV2:
		return V2, fmt.Sprintf("cgroup2 on %v", strings.Join(v2Pts, ",")), nil
	case hasV1:
		return V1, fmt.Sprintf("cgroup v1 on %v", strings.Join(v1Pts, ",")), nil
	default:
		return Unsupported, "no cgroup mounts found", nil
	}
}

// MustDetect is a convenience that panics on error.
func MustDetect() Version {
	v, _, err := Detect()
	if err != nil {
		panic(err)
	}
	return v
}

// limitUsageFiles names, per Version and trace.ResourceKind, the
// controller files the utilization engine reads usage/limit from.
// readCounterFile takes only the first whitespace-separated token of
// each file, so files whose first token is not a number (cpu.stat,
// io.stat, io.max and the blkio files) make ReadLimitUsage return an
// error; no read+write byte totals are summed.
func limitUsageFiles(v Version, kind int) (limitFile, usageFile string) {
	switch v {
	case V2:
		switch kind {
		case 0: // CPU
			return "cpu.max", "cpu.stat"
		case 1: // Memory
			return "memory.max", "memory.current"
		default: // IO
			return "io.max", "io.stat"
		}
	default: // V1, Hybrid falls back to the v1 controller layout
		switch kind {
		case 0:
			return "cpu.cfs_quota_us", "cpuacct.usage"
		case 1:
			return "memory.limit_in_bytes", "memory.usage_in_bytes"
		default:
			return "blkio.throttle.read_bps_device", "blkio.throttle.io_service_bytes"
		}
	}
}

// ReadLimitUsage reads the raw limit and usage counters for a resource
// kind under cgroupPath, using the file layout appropriate to v. "max"
// (cgroup v2's unset-limit sentinel) reads back as the all-ones
// sentinel Utilization already treats as "no limit".
func ReadLimitUsage(v Version, cgroupPath string, kind int) (limit, usage uint64, err error) {
	limitFile, usageFile := limitUsageFiles(v, kind)

	limit, err = readCounterFile(filepath.Join(cgroupPath, limitFile))
	if err != nil {
		return 0, 0, err
	}
	usage, err = readCounterFile(filepath.Join(cgroupPath, usageFile))
	if err != nil {
		return 0, 0, err
	}
	return limit, usage, nil
}

// controllerName maps a resource kind to the v1 controller whose
// subsystem carries its limit/usage files.
func controllerName(kind int) string {
	switch kind {
	case 0:
		return "cpu"
	case 1:
		return "memory"
	default:
		return "blkio"
	}
}

// mountPointFor scans /proc/self/mountinfo, the same way Detect does,
// for the single mount point serving v and kind: the unified cgroup2
// mount for V2, or the v1 hierarchy whose superopts name the kind's
// controller for V1/Hybrid.
func mountPointFor(v Version, kind int) (string, error) {
	f, err := os.Open("/proc/self/mountinfo")
	if err != nil {
		return "", fmt.Errorf("open mountinfo: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	want := controllerName(kind)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		const sep = " - "
		i := strings.LastIndex(line, sep)
		if i < 0 {
			continue
		}
		tail := line[i+len(sep):]
		fields := strings.Fields(tail)
		if len(fields) < 3 {
			continue
		}
		fstype, superopts := fields[0], fields[2]

		pre := strings.Fields(line[:i])
		if len(pre) < 5 {
			continue
		}
		mountPoint := pre[4]

		switch v {
		case V2:
			if fstype == "cgroup2" {
				return mountPoint, nil
			}
		default: // V1, Hybrid
			if fstype == "cgroup" && strings.Contains(superopts, want) {
				return mountPoint, nil
			}
		}
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("scan mountinfo: %w", err)
	}
	return "", fmt.Errorf("no cgroup mount found for %s", want)
}

// selfRelPath reads /proc/self/cgroup for this process's path fragment
// within the hierarchy identified by v/kind: "0::path" for v2, or
// "N:controller-list:path" for the v1 hierarchy naming kind's controller.
func selfRelPath(v Version, kind int) (string, error) {
	data, err := os.ReadFile("/proc/self/cgroup")
	if err != nil {
		return "", fmt.Errorf("read /proc/self/cgroup: %w", err)
	}

	want := controllerName(kind)
	for _, line := range strings.Split(string(data), "\n") {
		parts := strings.SplitN(line, ":", 3)
		if len(parts) != 3 {
			continue
		}
		hierarchyID, controllers, path := parts[0], parts[1], parts[2]
		if v == V2 {
			if hierarchyID == "0" && controllers == "" {
				return path, nil
			}
			continue
		}
		if strings.Contains(controllers, want) {
			return path, nil
		}
	}
	return "", fmt.Errorf("no /proc/self/cgroup entry for %s", want)
}

// SelfPath resolves the calling process's own cgroup directory for
// kind: the hierarchy's mount point joined with this process's
// relative path within it, ready to pass to ReadLimitUsage in place
// of a bare hierarchy root.
func SelfPath(v Version, kind int) (string, error) {
	mountPoint, err := mountPointFor(v, kind)
	if err != nil {
		return "", err
	}
	rel, err := selfRelPath(v, kind)
	if err != nil {
		return "", err
	}
	return filepath.Join(mountPoint, rel), nil
}

func readCounterFile(path string) (uint64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return 0, fmt.Errorf("empty counter file %q", path)
	}
	text := fields[0]
	if text == "max" || text == "-1" {
		return ^uint64(0), nil
	}
	return strconv.ParseUint(text, 10, 64)
}
