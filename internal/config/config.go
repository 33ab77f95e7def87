// ============================================================================
// raftcore Config - Node Configuration
// ============================================================================
//
// Package: internal/config
// File: config.go
// Purpose: Load and default the YAML configuration for one raft node.
//
// Configuration items:
//   - node: this node's id and bind address
//   - peers: the other members of the cluster at startup
//   - quorum: quorumHint (Q) and backupCount (B) targets for the rebalancer
//   - timeouts: electionTimeout, heartbeatInterval, sessionTimeout
//   - wal / snapshot: durable log-port backing
//   - metrics: Prometheus HTTP server
// ============================================================================

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// PeerConfig names one other cluster member at startup.
type PeerConfig struct {
	ID   uint64 `yaml:"id"`
	Addr string `yaml:"addr"`
}

// Config is the complete system configuration structure, loaded from a
// YAML file with defaults applied to any zero-valued field (if x <= 0
// { x = default }).
type Config struct {
	Node struct {
		ID   uint64 `yaml:"id"`
		Addr string `yaml:"addr"`
	} `yaml:"node"`

	Peers []PeerConfig `yaml:"peers"`

	Quorum struct {
		Hint        int `yaml:"hint"`
		BackupCount int `yaml:"backup_count"`
	} `yaml:"quorum"`

	Timeouts struct {
		ElectionMs  int `yaml:"election_ms"`
		HeartbeatMs int `yaml:"heartbeat_ms"`
		SessionMs   int `yaml:"session_ms"`
	} `yaml:"timeouts"`

	WAL struct {
		Dir              string `yaml:"dir"`
		MaxSegmentSize   int64  `yaml:"max_segment_size"`
		SyncInterval     int    `yaml:"sync_interval"`
		RetentionSeconds int    `yaml:"retention_seconds"`
		BufferSize       int    `yaml:"buffer_size"`
		FlushIntervalMs  int    `yaml:"flush_interval_ms"`
	} `yaml:"wal"`

	Snapshot struct {
		Dir             string `yaml:"dir"`
		IntervalSeconds int    `yaml:"interval_seconds"`
		RetentionCount  int    `yaml:"retention_count"`
	} `yaml:"snapshot"`

	Metrics struct {
		Enabled bool `yaml:"enabled"`
		Port    int  `yaml:"port"`
	} `yaml:"metrics"`
}

const (
	defaultElectionMs  = 1000
	defaultHeartbeatMs = 150
	defaultSessionMs   = 5000
	defaultWALBuffer   = 256
	defaultFlushMs     = 50
	defaultMetricsPort = 9090
)

// Load reads and parses the YAML config at path, applying defaults for
// any zero-valued field that has one.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Quorum.Hint <= 0 {
		c.Quorum.Hint = len(c.Peers) + 1
	}
	if c.Timeouts.ElectionMs <= 0 {
		c.Timeouts.ElectionMs = defaultElectionMs
	}
	if c.Timeouts.HeartbeatMs <= 0 {
		c.Timeouts.HeartbeatMs = defaultHeartbeatMs
	}
	if c.Timeouts.SessionMs <= 0 {
		c.Timeouts.SessionMs = defaultSessionMs
	}
	if c.WAL.BufferSize <= 0 {
		c.WAL.BufferSize = defaultWALBuffer
	}
	if c.WAL.FlushIntervalMs <= 0 {
		c.WAL.FlushIntervalMs = defaultFlushMs
	}
	if c.Metrics.Port <= 0 {
		c.Metrics.Port = defaultMetricsPort
	}
}

// ElectionTimeout returns the configured election timeout as a Duration.
func (c *Config) ElectionTimeout() time.Duration {
	return time.Duration(c.Timeouts.ElectionMs) * time.Millisecond
}

// HeartbeatInterval returns the configured heartbeat interval as a Duration.
func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.Timeouts.HeartbeatMs) * time.Millisecond
}

// SessionTimeout returns the configured session timeout as a Duration.
func (c *Config) SessionTimeout() time.Duration {
	return time.Duration(c.Timeouts.SessionMs) * time.Millisecond
}
