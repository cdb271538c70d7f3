/**
 * Copyright (c) 2022, Xerra Earth Observation Institute.
 * Copyright (c) 2025, Simeon Miteff.
 *
 * See LICENSE.TXT in the root directory of this source tree.
 */

// Package kernel resolves the running kernel's version once at process
// start and exposes the gates the rest of the tree needs: whether a
// kernel is new enough to carry a given tcp_info field (adapted from
// the teacher's own gate), and — standing in for actual BTF detection,
// which needs libbpf this tree doesn't depend on — whether the kernel
// is new enough that BTF is plausibly available, the same threshold
// the protocol decoders gate their iov_iter-dependent paths on.
package kernel

import (
	"fmt"

	"github.com/docker/docker/pkg/parsers/kernel"
)

// btfMinimum is the kernel version after which CONFIG_DEBUG_INFO_BTF
// became common on mainstream distributions (~5.x backports aside,
// vanilla support landed in 4.18).
var btfMinimum = kernel.VersionInfo{Kernel: 4, Major: 18, Minor: 0}

var current *kernel.VersionInfo

func init() {
	v, err := kernel.GetKernelVersion()
	if err != nil {
		// Matches the teacher's fail-fast stance in pkg/linux/init.go:
		// every caller in this tree assumes Info() never returns nil.
		panic(fmt.Errorf("podtrace: error getting kernel version: %w", err))
	}
	current = v
}

// Info returns the detected kernel version.
func Info() *kernel.VersionInfo {
	return current
}

// AtLeast reports whether the running kernel is at or above the given
// version, the same comparison the teacher's adaptToKernelVersion uses
// to gate individual tcp_info fields.
func AtLeast(k, major, minor int) bool {
	return kernel.CompareKernelVersion(*current, kernel.VersionInfo{Kernel: k, Major: major, Minor: minor}) >= 0
}

// BTFAvailable reports whether the protocol decoders that need
// iov_iter/struct-field access (FastCGI PARAMS/END_REQUEST parsing,
// the gRPC HTTP/2 HEADERS scan) should be enabled. On a real kernel
// this would check /sys/kernel/btf/vmlinux; absent a BTF-introspection
// dependency in this tree's stack, the kernel version is used as the
// same proxy the original C sources gate on via
// PODTRACE_VMLINUX_FROM_BTF at build time.
func BTFAvailable() bool {
	return kernel.CompareKernelVersion(*current, btfMinimum) >= 0
}
