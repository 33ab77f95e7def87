// ============================================================================
// raftcore Metrics - Prometheus Monitoring
// ============================================================================
//
// Package: internal/metrics
// File: metrics.go
// Purpose: Collect and expose system metrics for Prometheus monitoring
//
// Metric Categories:
//
//   1. Term/index gauges - instantaneous consensus position:
//      - raft_term: current term
//      - raft_commit_index: current commitIndex
//      - raft_last_applied: current lastApplied
//
//   2. Election counters - cumulative, monotonically increasing:
//      - raft_votes_granted_total: votes this node has granted
//      - raft_append_rejected_total: AppendRequests rejected (stale term or
//        log-prefix mismatch)
//
//   3. Rebalancer counters, labeled by action:
//      - raft_rebalance_actions_total{action="promote_passive"|
//        "promote_reserve"|"demote_to_passive"|"demote_to_reserve"}
//
// HTTP Endpoint:
//   Exposed via /metrics, scraped by Prometheus. Format: Prometheus text.
// ============================================================================

package metrics

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector collects Prometheus metrics for one raft node.
type Collector struct {
	term        prometheus.Gauge
	commitIndex prometheus.Gauge
	lastApplied prometheus.Gauge

	votesGranted     prometheus.Counter
	appendRejected   prometheus.Counter
	rebalanceActions *prometheus.CounterVec

	mu sync.Mutex
}

// NewCollector creates a new metrics collector and registers it against the
// default Prometheus registerer.
func NewCollector() *Collector {
	c := &Collector{
		term: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "raft_term",
			Help: "Current Raft term",
		}),
		commitIndex: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "raft_commit_index",
			Help: "Current commit index",
		}),
		lastApplied: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "raft_last_applied",
			Help: "Current last-applied index",
		}),
		votesGranted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "raft_votes_granted_total",
			Help: "Total number of votes this node has granted",
		}),
		appendRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "raft_append_rejected_total",
			Help: "Total number of AppendRequests rejected",
		}),
		rebalanceActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "raft_rebalance_actions_total",
			Help: "Total number of rebalancer promote/demote actions, by action",
		}, []string{"action"}),
	}

	prometheus.MustRegister(c.term)
	prometheus.MustRegister(c.commitIndex)
	prometheus.MustRegister(c.lastApplied)
	prometheus.MustRegister(c.votesGranted)
	prometheus.MustRegister(c.appendRejected)
	prometheus.MustRegister(c.rebalanceActions)

	return c
}

// SetTerm records the current term.
func (c *Collector) SetTerm(term uint64) {
	c.term.Set(float64(term))
}

// SetCommitIndex records the current commit index.
func (c *Collector) SetCommitIndex(index int64) {
	c.commitIndex.Set(float64(index))
}

// SetLastApplied records the current last-applied index.
func (c *Collector) SetLastApplied(index int64) {
	c.lastApplied.Set(float64(index))
}

// RecordVoteGranted increments the granted-vote counter.
func (c *Collector) RecordVoteGranted() {
	c.votesGranted.Inc()
}

// RecordAppendRejected increments the rejected-append counter.
func (c *Collector) RecordAppendRejected() {
	c.appendRejected.Inc()
}

// RecordRebalanceAction increments the rebalancer action counter for action.
func (c *Collector) RecordRebalanceAction(action string) {
	c.rebalanceActions.WithLabelValues(action).Inc()
}

// StartServer starts the Prometheus metrics HTTP server.
//
// Parameters:
//   - port: HTTP server port
//
// Returns:
//   - error: Error on startup failure
func StartServer(port int) error {
	http.Handle("/metrics", promhttp.Handler())
	addr := fmt.Sprintf(":%d", port)
	return http.ListenAndServe(addr, nil)
}
