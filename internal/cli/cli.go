// ============================================================================
// raftcore CLI - Command Line Interface
// ============================================================================
//
// Package: internal/cli
// File: cli.go
// Purpose: Provides user-friendly command line interface based on Cobra
// framework for running a single raft node process.
//
// Command Structure:
//   raftnode                       # Root command
//   ├── run                        # Start a node
//   │   └── --config, -c          # Specify config file
//   ├── status                     # Show config-derived node status
//   ├── bootstrap                  # Write a starter config file
//   ├── --version                  # Display version information
//   └── --help                     # Display help information
//
// run Command:
//   Starts one raft node:
//   1. Load config file
//   2. Build the Cluster View from node+peers
//   3. Open the durable log (WAL-backed) or an in-memory log if wal.dir
//      is unset
//   4. Load the latest snapshot, if snapshot.dir is set, restoring the
//      applier's state and discarding the log entries it already covers
//   5. Assemble the node.Node (Context, Rebalancer, Handlers)
//   6. Register the gRPC service and start serving
//   7. Start the Metrics HTTP server, if enabled
//   8. Start the periodic snapshot writer, if snapshot.interval_seconds > 0
//   9. Listen for SIGINT/SIGTERM, write a final snapshot, and shut down
//      gracefully
//
// bootstrap Command:
//   Writes a minimal starter YAML config for a single node to the given
//   path, for operators standing up a new cluster member.
//
// status Command:
//   Display the node's configuration without starting it:
//   - Node id/address, peer list
//   - Quorum hint / backup count
//   - WAL/Snapshot paths
//
// Signal Handling:
//   run command captures the following signals and gracefully shuts down:
//   - SIGINT (Ctrl+C): user interrupt
//   - SIGTERM: system terminate request
//
// ============================================================================

package cli

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/emberkv/raftcore/internal/cluster"
	"github.com/emberkv/raftcore/internal/config"
	"github.com/emberkv/raftcore/internal/metrics"
	"github.com/emberkv/raftcore/internal/node"
	"github.com/emberkv/raftcore/internal/raft"
	"github.com/emberkv/raftcore/internal/snapshot"
	"github.com/emberkv/raftcore/internal/transport"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"gopkg.in/yaml.v3"
)

var configFile string

// BuildCLI assembles the root raftnode command tree.
func BuildCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "raftnode",
		Short: "raftnode: a single Raft consensus node",
		Long: `raftnode runs one member of a Raft cluster:
- Append-entries and vote handling over gRPC
- WAL-backed durable log with crash recovery
- Membership rebalancing across ACTIVE/PROMOTABLE/PASSIVE/RESERVE tiers
- Prometheus metrics`,
		Version: "1.0.0",
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "configs/default.yaml", "config file path")

	rootCmd.AddCommand(buildRunCommand())
	rootCmd.AddCommand(buildStatusCommand())
	rootCmd.AddCommand(buildBootstrapCommand())

	return rootCmd
}

func buildRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the raft node",
		Long:  "Load configuration, assemble the node, and serve gRPC until signaled to stop",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNode(configFile)
		},
	}
	return cmd
}

func runNode(path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := slog.Default().With("node_id", cfg.Node.ID)
	logger.Info("starting raft node", "addr", cfg.Node.Addr, "peers", len(cfg.Peers))

	view := buildView(cfg)

	log, closeLog, err := buildLog(cfg)
	if err != nil {
		return fmt.Errorf("failed to open log: %w", err)
	}
	defer closeLog()

	applier := raft.NewMapApplier()
	snapMgr := buildSnapshotManager(cfg)
	var snapData snapshot.Data
	if snapMgr != nil {
		snapData, err = snapMgr.Load()
		if err != nil {
			return fmt.Errorf("failed to load snapshot: %w", err)
		}
		if err := restoreFromSnapshot(snapData, applier, log); err != nil {
			return fmt.Errorf("failed to restore snapshot: %w", err)
		}
		if snapData.LastIncludedIndex > 0 {
			logger.Info("restored from snapshot", "last_included_index", snapData.LastIncludedIndex, "last_included_term", snapData.LastIncludedTerm)
		}
	}

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector()
	}

	n := node.New(node.Config{
		Self:        raft.MemberID(cfg.Node.ID),
		View:        view,
		Applier:     applier,
		Log:         log,
		QuorumHint:  cfg.Quorum.Hint,
		BackupCount: cfg.Quorum.BackupCount,
		Metrics:     collector,
		Logger:      logger,
	})

	if snapData.LastIncludedIndex > 0 {
		n.Ctx.CommitIndex = snapData.LastIncludedIndex
		n.Ctx.LastApplied = snapData.LastIncludedIndex
		if snapData.LastIncludedTerm > n.Ctx.CurrentTerm {
			n.Ctx.CurrentTerm = snapData.LastIncludedTerm
		}
	}

	lis, err := net.Listen("tcp", cfg.Node.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Node.Addr, err)
	}

	grpcServer := grpc.NewServer()
	transport.RegisterService(grpcServer, n.Handlers())

	go func() {
		logger.Info("gRPC server listening", "addr", cfg.Node.Addr)
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC server stopped", "error", err)
		}
	}()

	if collector != nil {
		go func() {
			logger.Info("metrics server listening", "port", cfg.Metrics.Port)
			if err := metrics.StartServer(cfg.Metrics.Port); err != nil {
				logger.Error("metrics server stopped", "error", err)
			}
		}()
	}

	var snapshotStop chan struct{}
	if snapMgr != nil && cfg.Snapshot.IntervalSeconds > 0 {
		snapshotStop = make(chan struct{})
		go runSnapshotLoop(snapMgr, applier, n, time.Duration(cfg.Snapshot.IntervalSeconds)*time.Second, logger, snapshotStop)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("received shutdown signal, stopping gracefully")
	if snapshotStop != nil {
		close(snapshotStop)
		if err := writeSnapshot(snapMgr, applier, log, n.Ctx); err != nil {
			logger.Error("final snapshot write failed", "error", err)
		}
	}
	grpcServer.GracefulStop()
	logger.Info("node stopped")
	return nil
}

// buildSnapshotManager returns a snapshot.Manager rooted at cfg.Snapshot.Dir,
// or nil if snapshotting is disabled (dir unset).
func buildSnapshotManager(cfg *config.Config) *snapshot.Manager {
	if cfg.Snapshot.Dir == "" {
		return nil
	}
	os.MkdirAll(cfg.Snapshot.Dir, 0755)
	return snapshot.NewManager(filepath.Join(cfg.Snapshot.Dir, "snapshot.json"))
}

// restoreFromSnapshot seeds applier and, for a WAL-backed log, discards the
// log entries the snapshot already covers.
func restoreFromSnapshot(data snapshot.Data, applier *raft.MapApplier, log raft.Log) error {
	if data.LastIncludedIndex == 0 {
		return nil
	}
	state, err := snapshot.DecodeMapApplierState(data.StateBlob)
	if err != nil {
		return err
	}
	applier.Restore(state)

	if durable, ok := log.(*raft.DurableLog); ok {
		return durable.RestoreFromSnapshot(data.LastIncludedIndex)
	}
	return nil
}

// writeSnapshot captures the applier's current state and the context's
// commit progress into a fresh snapshot file.
func writeSnapshot(mgr *snapshot.Manager, applier *raft.MapApplier, log raft.Log, ctx *raft.Context) error {
	blob, err := snapshot.EncodeMapApplierState(applier.Export())
	if err != nil {
		return err
	}
	data := snapshot.Data{
		LastIncludedIndex: ctx.LastApplied,
		LastIncludedTerm:  ctx.CurrentTerm,
		StateBlob:         blob,
	}
	if durable, ok := log.(*raft.DurableLog); ok {
		data.LastSeq = durable.LastSeq()
	}
	return mgr.Write(data)
}

// runSnapshotLoop writes a snapshot every interval until stop is closed.
func runSnapshotLoop(mgr *snapshot.Manager, applier *raft.MapApplier, n *node.Node, interval time.Duration, logger *slog.Logger, stop chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := writeSnapshot(mgr, applier, n.Log, n.Ctx); err != nil {
				logger.Error("periodic snapshot write failed", "error", err)
			}
		case <-stop:
			return
		}
	}
}

// buildView constructs an InMemoryView seeded with the configured peers,
// all PASSIVE and Available until the rebalancer and cluster-join traffic
// promote them.
func buildView(cfg *config.Config) *cluster.InMemoryView {
	members := make([]cluster.Member, 0, len(cfg.Peers)+1)
	members = append(members, cluster.Member{
		ID:     raft.MemberID(cfg.Node.ID),
		Type:   cluster.Active,
		Status: cluster.Available,
	})
	for _, p := range cfg.Peers {
		members = append(members, cluster.Member{
			ID:     raft.MemberID(p.ID),
			Type:   cluster.Passive,
			Status: cluster.Available,
		})
	}
	return cluster.NewInMemoryView(raft.MemberID(cfg.Node.ID), members)
}

// buildLog opens the WAL-backed durable log when cfg.WAL.Dir is set, or
// falls back to an in-memory log for config-free smoke testing.
func buildLog(cfg *config.Config) (raft.Log, func(), error) {
	if cfg.WAL.Dir == "" {
		mem := raft.NewMemoryLogStore()
		return mem, func() {}, nil
	}

	path := filepath.Join(cfg.WAL.Dir, "raft.wal")
	flushInterval := time.Duration(cfg.WAL.FlushIntervalMs) * time.Millisecond
	durable, err := raft.OpenDurableLog(path, cfg.WAL.BufferSize, flushInterval)
	if err != nil {
		return nil, nil, err
	}
	return durable, func() { durable.Close() }, nil
}

func buildStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show node configuration",
		Long:  "Display the configuration this node would run with, without starting it",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showStatus(configFile)
		},
	}
	return cmd
}

func showStatus(path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Println("raftnode status")
	fmt.Printf("  config file:    %s\n", path)
	fmt.Printf("  node id:        %d\n", cfg.Node.ID)
	fmt.Printf("  node addr:      %s\n", cfg.Node.Addr)
	fmt.Printf("  peers:          %d\n", len(cfg.Peers))
	for _, p := range cfg.Peers {
		fmt.Printf("    - %d @ %s\n", p.ID, p.Addr)
	}
	fmt.Printf("  quorum hint:    %d\n", cfg.Quorum.Hint)
	fmt.Printf("  backup count:   %d\n", cfg.Quorum.BackupCount)
	fmt.Printf("  election:       %s\n", cfg.ElectionTimeout())
	fmt.Printf("  heartbeat:      %s\n", cfg.HeartbeatInterval())
	fmt.Printf("  session:        %s\n", cfg.SessionTimeout())
	fmt.Printf("  wal dir:        %s\n", cfg.WAL.Dir)
	fmt.Printf("  snapshot dir:   %s\n", cfg.Snapshot.Dir)
	if cfg.Metrics.Enabled {
		fmt.Printf("  metrics:        enabled on :%d\n", cfg.Metrics.Port)
	} else {
		fmt.Println("  metrics:        disabled")
	}
	return nil
}

func buildBootstrapCommand() *cobra.Command {
	var out string
	var id uint64
	var addr string

	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Write a starter config file",
		Long:  "Write a minimal single-node config to --out, for a fresh cluster member",
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeBootstrapConfig(out, id, addr)
		},
	}

	cmd.Flags().StringVar(&out, "out", "configs/default.yaml", "path to write the config file")
	cmd.Flags().Uint64Var(&id, "id", 1, "this node's member id")
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:50051", "this node's bind address")

	return cmd
}

func writeBootstrapConfig(out string, id uint64, addr string) error {
	cfg := config.Config{}
	cfg.Node.ID = id
	cfg.Node.Addr = addr
	cfg.Quorum.Hint = 1
	cfg.Quorum.BackupCount = 0
	cfg.WAL.Dir = "data/wal"
	cfg.Snapshot.Dir = "data/snapshot"
	cfg.Metrics.Enabled = true

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal starter config: %w", err)
	}

	if err := os.WriteFile(out, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}

	fmt.Printf("wrote starter config to %s\n", out)
	return nil
}
