package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gma1k/podtrace/pkg/cgroup"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultMatchesDocumentedDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, cgroup.DefaultThresholds, cfg.AlertThresholds)
	assert.Equal(t, uint64(0), cfg.TargetCgroupID)
	assert.Equal(t, uint16(defaultGRPCPort), cfg.GRPCPort)
}

func TestLoadAppliesDefaultsForOmittedFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("target_cgroup_id: 42\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), cfg.TargetCgroupID)
	assert.Equal(t, cgroup.DefaultThresholds, cfg.AlertThresholds)
	assert.Equal(t, uint16(defaultGRPCPort), cfg.GRPCPort)
}

func TestLoadHonorsExplicitThresholds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "alert_thresholds:\n  warn: 70\n  crit: 85\n  emerg: 92\ngrpc_port: 6000\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cgroup.Thresholds{Warn: 70, Crit: 85, Emerg: 92}, cfg.AlertThresholds)
	assert.Equal(t, uint16(6000), cfg.GRPCPort)
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	assert.Error(t, err)
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("grpc_port: 1111\n"), 0o644))

	var lastErr error
	w, err := NewWatcher(path, func(e error) { lastErr = e })
	require.NoError(t, err)
	defer w.Close()

	assert.Equal(t, uint16(1111), w.Current().GRPCPort)

	require.NoError(t, os.WriteFile(path, []byte("grpc_port: 2222\n"), 0o644))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if w.Current().GRPCPort == 2222 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, uint16(2222), w.Current().GRPCPort)
	assert.NoError(t, lastErr)
}
