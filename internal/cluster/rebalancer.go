package cluster

import (
	"log/slog"

	"github.com/emberkv/raftcore/internal/raft"
)

// RebalanceMetrics is the subset of metrics.Collector the rebalancer
// reports through, kept as a narrow interface so this package does not
// import internal/metrics directly.
type RebalanceMetrics interface {
	RecordRebalanceAction(action string)
}

// Rebalancer is the leader-scoped control loop that inspects the cluster
// member table on any change and issues promote/demote actions to reach
// quorumHint voters and quorumHint*backupCount backups.
type Rebalancer struct {
	view        View
	quorumHint  int
	backupCount int
	metrics     RebalanceMetrics
	logger      *slog.Logger
}

// NewRebalancer creates a Rebalancer over view, targeting quorumHint
// voters and quorumHint*backupCount passive backups.
func NewRebalancer(view View, quorumHint, backupCount int, metrics RebalanceMetrics, logger *slog.Logger) *Rebalancer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Rebalancer{
		view:        view,
		quorumHint:  quorumHint,
		backupCount: backupCount,
		metrics:     metrics,
		logger:      logger.With("component", "rebalancer"),
	}
}

// Rebalance is the entry point, wired to the view's change callback
// (join, leave, status change, type change, election). It is a no-op
// unless this node currently believes itself to be leader.
func (r *Rebalancer) Rebalance() {
	if !r.view.IsLeader() {
		return
	}
	r.step()
}

// step applies the first matching promote/demote rule against the
// current member counts and, when an action was taken, waits for its
// completion handle and recurses to re-check the table — a fire-and-
// forget continuation style. It returns once no rule matches, i.e. the
// member table has reached a balanced fixed point.
func (r *Rebalancer) step() {
	members := r.view.Members()
	q := r.quorumHint
	qb := r.quorumHint * r.backupCount

	var totalActive, availableActive int
	var totalPassive, availablePassive int
	var availableReserve int
	var activeMembers, passiveMembers, reserveMembers []Member

	for _, m := range members {
		switch m.Type {
		case Active, Promotable:
			totalActive++
			activeMembers = append(activeMembers, m)
			if m.Status == Available {
				availableActive++
			}
		case Passive:
			totalPassive++
			passiveMembers = append(passiveMembers, m)
			if m.Status == Available {
				availablePassive++
			}
		case Reserve:
			reserveMembers = append(reserveMembers, m)
			if m.Status == Available {
				availableReserve++
			}
		}
	}

	var label string
	var act func() <-chan struct{}

	switch {
	case availableActive < q && availablePassive > 0:
		target := pickAvailable(passiveMembers)
		label = "promote_passive"
		act = func() <-chan struct{} { return r.view.Promote(target.ID, Promotable) }

	case availableActive < q && availableReserve > 0:
		target := pickAvailable(reserveMembers)
		label = "promote_reserve"
		act = func() <-chan struct{} { return r.view.Promote(target.ID, Promotable) }

	case totalActive > q && availablePassive < qb:
		target := pickDemotable(activeMembers, r.view.Self())
		if target == nil {
			return
		}
		label = "demote_to_passive"
		act = func() <-chan struct{} { return r.view.Demote(target.ID, Passive) }

	case totalActive > q:
		target := pickDemotable(activeMembers, r.view.Self())
		if target == nil {
			return
		}
		label = "demote_to_reserve"
		act = func() <-chan struct{} { return r.view.Demote(target.ID, Reserve) }

	case availablePassive < qb && availableReserve > 0:
		target := pickAvailable(reserveMembers)
		label = "promote_passive"
		act = func() <-chan struct{} { return r.view.Promote(target.ID, Passive) }

	case totalPassive > qb:
		target := pickDemotable(passiveMembers, r.view.Self())
		if target == nil {
			return
		}
		label = "demote_to_reserve"
		act = func() <-chan struct{} { return r.view.Demote(target.ID, Reserve) }

	default:
		return
	}

	r.logger.Info("rebalance action", slog.String("action", label))
	if r.metrics != nil {
		r.metrics.RecordRebalanceAction(label)
	}
	<-act()
	r.step()
}

// pickAvailable returns the available member with the lowest id.
func pickAvailable(candidates []Member) Member {
	var best Member
	found := false
	for _, m := range candidates {
		if m.Status != Available {
			continue
		}
		if !found || m.ID < best.ID {
			best = m
			found = true
		}
	}
	return best
}

// pickDemotable selects a demotion candidate, excluding self, preferring
// an UNAVAILABLE member and breaking ties by lowest id.
func pickDemotable(candidates []Member, self raft.MemberID) *Member {
	var bestUnavailable, bestAny *Member
	for i := range candidates {
		m := candidates[i]
		if m.ID == self {
			continue
		}
		if bestAny == nil || m.ID < bestAny.ID {
			cp := m
			bestAny = &cp
		}
		if m.Status == Unavailable && (bestUnavailable == nil || m.ID < bestUnavailable.ID) {
			cp := m
			bestUnavailable = &cp
		}
	}
	if bestUnavailable != nil {
		return bestUnavailable
	}
	return bestAny
}
