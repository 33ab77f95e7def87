package raft

// Role identifies which Raft sub-state a node is currently running.
//
// Only Follower is implemented by this package (the non-leader "active"
// role); Candidate and Leader are external collaborators. This core never
// transitions *into* them: the only transition it issues is a step-down
// *out of* them to Follower — see Context.Transition.
type Role int

const (
	Follower Role = iota
	Candidate
	Leader
)

func (r Role) String() string {
	switch r {
	case Follower:
		return "Follower"
	case Candidate:
		return "Candidate"
	case Leader:
		return "Leader"
	default:
		return "Unknown"
	}
}
