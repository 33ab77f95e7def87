package raft

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext(self MemberID) *Context {
	return NewContext(self, nil)
}

func TestHandleAppend_HeartbeatOnFreshNode(t *testing.T) {
	ctx := newTestContext(1)
	log := NewMemoryLogStore()
	applier := NewMapApplier()

	var transitioned Role
	ctx.OnTransition = func(role Role) <-chan struct{} {
		transitioned = role
		done := make(chan struct{})
		close(done)
		return done
	}

	resp := HandleAppend(ctx, log, applier, AppendRequest{
		Term: 1, LeaderID: 7, PrevLogIndex: 0, PrevLogTerm: 0, Entries: nil, CommitIndex: 0,
	})

	assert.True(t, resp.Succeeded, "empty entries is a valid heartbeat")
	assert.Equal(t, Term(1), resp.Term)
	assert.Equal(t, Index(0), resp.LogIndex)
	assert.Equal(t, Term(1), ctx.CurrentTerm)
	assert.Equal(t, MemberID(7), ctx.LeaderID)
	assert.Equal(t, Follower, transitioned, "fresh node transitions to follower on first leader contact")
}

func TestHandleAppend_PrefixConflictTruncates(t *testing.T) {
	ctx := newTestContext(1)
	log := NewMemoryLogStore()
	applier := NewMapApplier()

	mustAppend(t, log, LogEntry{Term: 1}) // index 1
	mustAppend(t, log, LogEntry{Term: 1}) // index 2
	mustAppend(t, log, LogEntry{Term: 1}) // index 3
	ctx.CommitIndex = 1
	ctx.LastApplied = 1

	resp := HandleAppend(ctx, log, applier, AppendRequest{
		Term: 2, LeaderID: 9, PrevLogIndex: 2, PrevLogTerm: 1,
		Entries:     []LogEntry{{Index: 3, Term: 2}},
		CommitIndex: 1,
	})

	require.True(t, resp.Succeeded)
	assert.Equal(t, Index(3), resp.LogIndex)
	assert.Equal(t, Term(2), ctx.CurrentTerm)

	e3, err := log.GetEntry(3)
	require.NoError(t, err)
	assert.Equal(t, Term(2), e3.Term, "conflicting entry at index 3 replaced by the leader's version")

	e1, err := log.GetEntry(1)
	require.NoError(t, err)
	assert.Equal(t, Term(1), e1.Term, "entries at or below prevLogIndex are untouched")
}

func TestHandleAppend_StaleTermRejected(t *testing.T) {
	ctx := newTestContext(1)
	ctx.CurrentTerm = 5
	log := NewMemoryLogStore()
	mustAppend(t, log, LogEntry{Term: 1})
	applier := NewMapApplier()

	resp := HandleAppend(ctx, log, applier, AppendRequest{Term: 3, LeaderID: 2})

	assert.False(t, resp.Succeeded)
	assert.Equal(t, Term(5), resp.Term)
	assert.Equal(t, log.LastIndex(), resp.LogIndex)
	assert.Equal(t, Term(5), ctx.CurrentTerm, "stale append must not mutate currentTerm")
}

func TestHandleAppend_PrevLogInconsistencyRejected(t *testing.T) {
	ctx := newTestContext(1)
	log := NewMemoryLogStore()
	mustAppend(t, log, LogEntry{Term: 1})
	applier := NewMapApplier()

	resp := HandleAppend(ctx, log, applier, AppendRequest{
		Term: 1, LeaderID: 2, PrevLogIndex: 1, PrevLogTerm: 2, // term mismatch
	})

	assert.False(t, resp.Succeeded)
	assert.Equal(t, Index(1), log.LastIndex(), "rejected append must not mutate the log")
}

func TestHandleAppend_IdempotentReapply(t *testing.T) {
	ctx := newTestContext(1)
	log := NewMemoryLogStore()
	applier := NewMapApplier()

	req := AppendRequest{
		Term: 1, LeaderID: 7,
		Entries:     []LogEntry{{Index: 1, Term: 1, Type: EntryCommand, Key: []byte("k"), Payload: []byte("v")}},
		CommitIndex: 1,
	}

	first := HandleAppend(ctx, log, applier, req)
	second := HandleAppend(ctx, log, applier, req)

	assert.Equal(t, first, second, "reapplying the same request produces the same response")
	assert.Equal(t, 1, applier.Len(), "idempotent apply must not double-count")
}

func TestHandlePoll_DoesNotMutateState(t *testing.T) {
	ctx := newTestContext(1)
	ctx.CurrentTerm = 4
	ctx.LastVotedFor = 99
	log := NewMemoryLogStore()
	mustAppend(t, log, LogEntry{Term: 4})

	resp := HandlePoll(ctx, log, PollRequest{Term: 5, CandidateID: 2, LastLogIndex: 1, LastLogTerm: 4})

	assert.True(t, resp.Accepted)
	assert.Equal(t, Term(4), ctx.CurrentTerm, "poll must never mutate currentTerm")
	assert.Equal(t, MemberID(99), ctx.LastVotedFor, "poll must never mutate lastVotedFor")
}

func TestHandleVote_TieThenSecondCandidateRejected(t *testing.T) {
	ctx := newTestContext(1)
	ctx.CurrentTerm = 4
	ctx.IsMember = func(id MemberID) bool { return id == 11 || id == 12 }
	log := NewMemoryLogStore()
	mustAppend(t, log, LogEntry{Term: 1})
	mustAppend(t, log, LogEntry{Term: 4})

	first := HandleVote(ctx, log, VoteRequest{Term: 4, CandidateID: 11, LastLogIndex: 2, LastLogTerm: 4})
	assert.True(t, first.Voted)
	assert.Equal(t, MemberID(11), ctx.LastVotedFor)

	second := HandleVote(ctx, log, VoteRequest{Term: 4, CandidateID: 12, LastLogIndex: 2, LastLogTerm: 4})
	assert.False(t, second.Voted, "already voted for a different candidate this term")
}

func TestHandleVote_UpToDatenessRejection(t *testing.T) {
	ctx := newTestContext(1)
	ctx.CurrentTerm = 4
	ctx.IsMember = func(MemberID) bool { return true }
	log := NewMemoryLogStore()
	mustAppend(t, log, LogEntry{Term: 1})
	mustAppend(t, log, LogEntry{Term: 1})
	mustAppend(t, log, LogEntry{Term: 1})
	mustAppend(t, log, LogEntry{Term: 1})
	mustAppend(t, log, LogEntry{Term: 4}) // last = (5, 4)

	lowerTerm := HandleVote(ctx, log, VoteRequest{Term: 5, CandidateID: 3, LastLogIndex: 5, LastLogTerm: 3})
	assert.False(t, lowerTerm.Voted, "candidate term 3 < local last entry term 4")

	ctx2 := newTestContext(1)
	ctx2.CurrentTerm = 5
	ctx2.IsMember = func(MemberID) bool { return true }
	lowerIndex := HandleVote(ctx2, log, VoteRequest{Term: 5, CandidateID: 3, LastLogIndex: 4, LastLogTerm: 5})
	assert.False(t, lowerIndex.Voted, "candidate index 4 < local last index 5")
}

func TestHandleVote_TermAdvanceResetsLastVotedFor(t *testing.T) {
	ctx := newTestContext(1)
	ctx.CurrentTerm = 4
	ctx.LastVotedFor = 11
	ctx.IsMember = func(MemberID) bool { return true }
	log := NewMemoryLogStore()

	resp := HandleVote(ctx, log, VoteRequest{Term: 5, CandidateID: 20})

	assert.True(t, resp.Voted, "lastVotedFor from the old term must not block a vote in the new term")
	assert.Equal(t, MemberID(20), ctx.LastVotedFor)
}

func TestHandleVote_SelfVoteAlwaysGranted(t *testing.T) {
	ctx := newTestContext(1)
	ctx.CurrentTerm = 4
	ctx.LastVotedFor = 2
	log := NewMemoryLogStore()

	resp := HandleVote(ctx, log, VoteRequest{Term: 4, CandidateID: 1})

	assert.True(t, resp.Voted)
	assert.Equal(t, MemberID(1), ctx.LastVotedFor)
}

func TestHandleVote_UnknownCandidateRejected(t *testing.T) {
	ctx := newTestContext(1)
	ctx.CurrentTerm = 4
	ctx.IsMember = func(id MemberID) bool { return id == 2 }
	log := NewMemoryLogStore()

	resp := HandleVote(ctx, log, VoteRequest{Term: 4, CandidateID: 99})

	assert.False(t, resp.Voted)
}

func mustAppend(t *testing.T, log Log, e LogEntry) Index {
	t.Helper()
	idx, err := log.CreateEntry(e)
	require.NoError(t, err)
	return idx
}
