/**
 * Copyright (c) 2022, Xerra Earth Observation Institute.
 * Copyright (c) 2025, Simeon Miteff.
 *
 * See LICENSE.TXT in the root directory of this source tree.
 */

// Package config loads the small writable configuration the tracer
// core consults: alert thresholds, the optional cgroup scope filter,
// and the configured gRPC port. It mirrors the three entries the core
// reads from its configuration map (§7 of the event record layout):
// alert_thresholds[0..2], target_cgroup_id[0], and the gRPC port used
// by the HTTP/2 HEADERS probe.
package config

import (
	"fmt"
	"os"

	"github.com/gma1k/podtrace/pkg/cgroup"
	"gopkg.in/yaml.v3"
)

// defaultGRPCPort mirrors GRPC_DEFAULT_PORT from protocols.h.
const defaultGRPCPort = 50051

// Config is the writable configuration map's Go-side rendering.
// Unset fields apply the same defaults the core falls back to when
// the map entries are missing.
type Config struct {
	// AlertThresholds holds alert_thresholds[0..2] (warn, crit, emerg
	// percent). The zero value is replaced with cgroup.DefaultThresholds.
	AlertThresholds cgroup.Thresholds `yaml:"alert_thresholds"`

	// TargetCgroupID mirrors target_cgroup_id[0]: an optional scope
	// filter, currently informational (consumers may use it to skip
	// events from cgroups outside scope, but the core itself does not
	// filter).
	TargetCgroupID uint64 `yaml:"target_cgroup_id"`

	// GRPCPort is the destination port the gRPC HEADERS probe filters
	// tcp_sendmsg calls on.
	GRPCPort uint16 `yaml:"grpc_port"`
}

// Default returns the configuration the core behaves as if no
// configuration map entries were ever written.
func Default() Config {
	return Config{
		AlertThresholds: cgroup.DefaultThresholds,
		TargetCgroupID:  0,
		GRPCPort:        defaultGRPCPort,
	}
}

// applyDefaults fills zero-valued fields with their documented
// defaults, mirroring "unset ⇒ defaults" for each map entry.
func (c *Config) applyDefaults() {
	if c.AlertThresholds == (cgroup.Thresholds{}) {
		c.AlertThresholds = cgroup.DefaultThresholds
	}
	if c.GRPCPort == 0 {
		c.GRPCPort = defaultGRPCPort
	}
}

// Load reads a YAML configuration file and applies defaults for any
// entry the file omits.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %q: %w", path, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}
