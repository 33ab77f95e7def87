// Package node assembles a raft.Context, Log, Applier, cluster.View, and
// Rebalancer into one running node, along with the transport.Handlers
// that dispatch inbound RPCs to it. It is thin by design: every piece of
// consensus logic itself lives in internal/raft.
package node

import (
	"log/slog"

	"github.com/emberkv/raftcore/internal/cluster"
	"github.com/emberkv/raftcore/internal/metrics"
	"github.com/emberkv/raftcore/internal/raft"
	"github.com/emberkv/raftcore/internal/transport"
)

// Node wires one raft.Context to its Log, Applier, and Cluster View, and
// exposes transport.Handlers bound to that context for registration on a
// gRPC server.
type Node struct {
	Ctx        *raft.Context
	Log        raft.Log
	Applier    raft.Applier
	View       cluster.View
	Rebalancer *cluster.Rebalancer
	Metrics    *metrics.Collector

	logger *slog.Logger
}

// Config collects the dependencies New assembles; every field must be
// non-nil except Metrics, which is optional, and Logger, which defaults
// to slog.Default().
type Config struct {
	Self        raft.MemberID
	View        cluster.View
	Applier     raft.Applier
	Log         raft.Log
	QuorumHint  int
	BackupCount int
	Metrics     *metrics.Collector
	Logger      *slog.Logger
}

// New assembles a Node from cfg, wiring the rebalancer to re-run whenever
// the cluster view reports a membership change.
func New(cfg Config) *Node {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx := raft.NewContext(cfg.Self, logger)
	ctx.IsMember = cfg.View.IsMember

	n := &Node{
		Ctx:     ctx,
		Log:     cfg.Log,
		Applier: cfg.Applier,
		View:    cfg.View,
		Metrics: cfg.Metrics,
		logger:  logger.With("component", "node"),
	}

	var rebalanceMetrics cluster.RebalanceMetrics
	if cfg.Metrics != nil {
		rebalanceMetrics = cfg.Metrics
	}
	n.Rebalancer = cluster.NewRebalancer(cfg.View, cfg.QuorumHint, cfg.BackupCount, rebalanceMetrics, logger)
	cfg.View.OnChange(n.Rebalancer.Rebalance)

	return n
}

// Handlers returns the transport.Handlers bound to this node's context,
// log, and applier, ready for transport.RegisterService.
func (n *Node) Handlers() *transport.Handlers {
	return &transport.Handlers{
		Append: func(req raft.AppendRequest) raft.AppendResponse {
			resp := raft.HandleAppend(n.Ctx, n.Log, n.Applier, req)
			n.recordAppendMetrics(resp)
			return resp
		},
		Poll: func(req raft.PollRequest) raft.PollResponse {
			return raft.HandlePoll(n.Ctx, n.Log, req)
		},
		Vote: func(req raft.VoteRequest) raft.VoteResponse {
			resp := raft.HandleVote(n.Ctx, n.Log, req)
			n.recordVoteMetrics(resp)
			return resp
		},
	}
}

func (n *Node) recordAppendMetrics(resp raft.AppendResponse) {
	if n.Metrics == nil {
		return
	}
	n.Metrics.SetTerm(uint64(n.Ctx.CurrentTerm))
	n.Metrics.SetCommitIndex(int64(n.Ctx.CommitIndex))
	n.Metrics.SetLastApplied(int64(n.Ctx.LastApplied))
	if !resp.Succeeded {
		n.Metrics.RecordAppendRejected()
	}
}

func (n *Node) recordVoteMetrics(resp raft.VoteResponse) {
	if n.Metrics == nil {
		return
	}
	n.Metrics.SetTerm(uint64(n.Ctx.CurrentTerm))
	if resp.Voted {
		n.Metrics.RecordVoteGranted()
	}
}
