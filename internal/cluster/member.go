// Package cluster models the membership tiers the rebalancer promotes and
// demotes members between: ACTIVE, PROMOTABLE, PASSIVE, and RESERVE.
package cluster

import "github.com/emberkv/raftcore/internal/raft"

// MemberType classifies a cluster member's current role in replication
// and voting.
type MemberType int

const (
	// Active members are full voters.
	Active MemberType = iota
	// Promotable members are voters-awaiting-catch-up: already promoted
	// from PASSIVE/RESERVE but not yet counted as a steady-state voter.
	Promotable
	// Passive members replicate but do not vote.
	Passive
	// Reserve members are standby and do not currently replicate.
	Reserve
)

func (t MemberType) String() string {
	switch t {
	case Active:
		return "ACTIVE"
	case Promotable:
		return "PROMOTABLE"
	case Passive:
		return "PASSIVE"
	case Reserve:
		return "RESERVE"
	default:
		return "UNKNOWN"
	}
}

// MemberStatus reports whether a member is currently reachable.
type MemberStatus int

const (
	Available MemberStatus = iota
	Unavailable
)

func (s MemberStatus) String() string {
	if s == Available {
		return "AVAILABLE"
	}
	return "UNAVAILABLE"
}

// Member is one cluster participant as the rebalancer sees it. Member.ID
// shares raft.MemberID's numeric space: every cluster member is also a
// Raft participant addressable by the same id in vote/append RPCs.
type Member struct {
	ID     raft.MemberID
	Type   MemberType
	Status MemberStatus
}
