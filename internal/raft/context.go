package raft

import (
	"log/slog"
	"sync/atomic"
)

// TransitionFunc is invoked when the Active role decides this node must
// step down to Follower, such as on observing a higher term or a new
// leader at the end of an Append handler. It returns an async completion
// handle; this core never waits on it — the handle exists for the caller
// (the node's role driver) to observe and is always non-nil.
type TransitionFunc func(role Role) <-chan struct{}

// Context is the shared mutable state of one node. It is owned by
// exactly one goroutine — the node's serial executor — and is never
// locked; checkThread is a debugging aid, not a mutex.
type Context struct {
	// Persistent state.
	CurrentTerm  Term
	LeaderID     MemberID
	LastVotedFor MemberID

	// Volatile state.
	CommitIndex Index
	LastApplied Index

	// Self identifies this node, used to always grant its own vote
	// requests to itself when starting an election.
	Self MemberID

	// IsMember reports whether a MemberID names a current cluster
	// member, used to reject vote requests from an unrecognized
	// candidate.
	IsMember func(id MemberID) bool

	// OnTransition is called by Transition when a handler's term/leader
	// change requires a step-down to Follower and Role is not already
	// Follower; a node that is already Follower does not trigger it. May be
	// nil in tests that don't care about role transitions.
	OnTransition TransitionFunc

	// Role is this node's current role. Handlers in this package only
	// ever read it to decide whether a transition is a no-op.
	Role Role

	// Scratch buffers reused across Apply calls to avoid per-entry
	// allocation. Owned per-context rather than as process-wide globals
	// so that multiple nodes in one process never share a buffer.
	keyScratch     []byte
	payloadScratch []byte

	logger *slog.Logger

	busy atomic.Bool // held for the duration of one handler call
}

// NewContext creates a Context for node self, logging with the given
// node id for correlation.
func NewContext(self MemberID, logger *slog.Logger) *Context {
	if logger == nil {
		logger = slog.Default()
	}
	return &Context{
		Self:   self,
		Role:   Follower,
		logger: logger.With("component", "raft", "node_id", self),
	}
}

// checkThread enforces that handlers in this package never run
// concurrently with each other or with themselves. It panics rather than
// racing silently; callers release it by invoking the returned func when
// the handler returns.
//
//	defer ctx.checkThread()()
func (c *Context) checkThread() func() {
	if !c.busy.CompareAndSwap(false, true) {
		panic("raft: Context entered by more than one caller at once")
	}
	return func() { c.busy.Store(false) }
}

// Transition requests a role change, invoking OnTransition if set and
// the role actually changes. Idempotent when already in role.
func (c *Context) Transition(role Role) {
	if c.Role == role {
		return
	}
	c.Role = role
	if c.OnTransition != nil {
		c.OnTransition(role)
	}
}

// keyScratchBuf and payloadScratchBuf hand the commit applier a reusable
// buffer sized to n, growing it only when too small.
func (c *Context) keyScratchBuf(n int) []byte {
	if cap(c.keyScratch) < n {
		c.keyScratch = make([]byte, n)
	}
	return c.keyScratch[:n]
}

func (c *Context) payloadScratchBuf(n int) []byte {
	if cap(c.payloadScratch) < n {
		c.payloadScratch = make([]byte, n)
	}
	return c.payloadScratch[:n]
}
