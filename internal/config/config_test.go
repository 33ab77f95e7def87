package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeTempConfig(t, `
node:
  id: 1
  addr: "127.0.0.1:50051"
peers:
  - id: 2
    addr: "127.0.0.1:50052"
  - id: 3
    addr: "127.0.0.1:50053"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), cfg.Node.ID)
	assert.Equal(t, 3, cfg.Quorum.Hint, "quorum hint defaults to len(peers)+1")
	assert.Equal(t, defaultElectionMs, cfg.Timeouts.ElectionMs)
	assert.Equal(t, defaultHeartbeatMs, cfg.Timeouts.HeartbeatMs)
	assert.Equal(t, defaultSessionMs, cfg.Timeouts.SessionMs)
	assert.Equal(t, defaultWALBuffer, cfg.WAL.BufferSize)
	assert.Equal(t, defaultMetricsPort, cfg.Metrics.Port)
}

func TestLoad_ExplicitValuesOverrideDefaults(t *testing.T) {
	path := writeTempConfig(t, `
node:
  id: 1
  addr: "127.0.0.1:50051"
quorum:
  hint: 5
  backup_count: 2
timeouts:
  election_ms: 2000
metrics:
  enabled: true
  port: 9999
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Quorum.Hint)
	assert.Equal(t, 2, cfg.Quorum.BackupCount)
	assert.Equal(t, 2000, cfg.Timeouts.ElectionMs)
	assert.Equal(t, defaultHeartbeatMs, cfg.Timeouts.HeartbeatMs, "unset fields still default")
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 9999, cfg.Metrics.Port)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDurationHelpers(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	assert.Equal(t, defaultElectionMs, int(cfg.ElectionTimeout().Milliseconds()))
	assert.Equal(t, defaultHeartbeatMs, int(cfg.HeartbeatInterval().Milliseconds()))
	assert.Equal(t, defaultSessionMs, int(cfg.SessionTimeout().Milliseconds()))
}
