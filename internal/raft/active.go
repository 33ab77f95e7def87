package raft

import "log/slog"

// HandleAppend processes a leader's AppendEntries RPC: it reconciles
// terms, checks prefix consistency against the leader's claimed previous
// entry, appends the batch with conflict truncation, advances the commit
// index, and releases any log prefix the leader says is safe to recycle.
func HandleAppend(ctx *Context, log Log, applier Applier, req AppendRequest) AppendResponse {
	defer ctx.checkThread()()

	transition := false
	if req.Term > ctx.CurrentTerm || (req.Term == ctx.CurrentTerm && ctx.LeaderID == NoMember) {
		ctx.CurrentTerm = req.Term
		ctx.LeaderID = req.LeaderID
		transition = true
	}
	if transition {
		defer ctx.Transition(Follower)
	}

	// Step 2 — stale leader.
	if req.Term < ctx.CurrentTerm {
		return AppendResponse{Status: StatusOK, Term: ctx.CurrentTerm, Succeeded: false, LogIndex: log.LastIndex()}
	}

	// Step 3 — previous-entry consistency.
	if req.PrevLogIndex != 0 && req.PrevLogTerm != 0 {
		if log.IsEmpty() || req.PrevLogIndex > log.LastIndex() {
			return AppendResponse{Status: StatusOK, Term: ctx.CurrentTerm, Succeeded: false, LogIndex: log.LastIndex()}
		}
		prev, err := log.GetEntry(req.PrevLogIndex)
		if err != nil || prev.Term != req.PrevLogTerm {
			return AppendResponse{Status: StatusOK, Term: ctx.CurrentTerm, Succeeded: false, LogIndex: log.LastIndex()}
		}
	}

	// Step 4 — append, with conflict truncation.
	for _, e := range req.Entries {
		if log.ContainsIndex(e.Index) {
			existing, err := log.GetEntry(e.Index)
			if err != nil || existing.Term != e.Term {
				if err := log.Truncate(e.Index-1, ctx.CommitIndex); err != nil {
					ctx.logger.Error("truncate failed during append", slog.Any("err", err))
					continue
				}
				if _, err := log.CreateEntry(e); err != nil {
					ctx.logger.Error("create entry failed during append", slog.Any("err", err))
				}
			}
			// Else: identical entry already present, idempotent no-op.
			continue
		}
		gap := int64(e.Index - log.LastIndex() - 1)
		if gap > 0 {
			if _, err := log.Skip(gap, e); err != nil {
				ctx.logger.Error("skip failed during append", slog.Any("err", err))
			}
			continue
		}
		if _, err := log.CreateEntry(e); err != nil {
			ctx.logger.Error("create entry failed during append", slog.Any("err", err))
		}
	}

	// Step 5 — commit advance.
	applyCommits(ctx, log, applier, req.CommitIndex)

	// Step 6 — recycle.
	if req.RecycleIndex > 0 {
		if err := log.Recycle(req.RecycleIndex); err != nil {
			ctx.logger.Error("recycle failed during append", slog.Any("err", err))
		}
	}

	// Step 7 — response.
	return AppendResponse{Status: StatusOK, Term: ctx.CurrentTerm, Succeeded: true, LogIndex: log.LastIndex()}
}

// HandlePoll answers a pre-vote probe: it reports whether this node would
// grant a real vote to a candidate with the given log position, without
// mutating lastVotedFor or currentTerm. Candidates use this to avoid
// disrupting a stable leader with an election they would lose anyway.
func HandlePoll(ctx *Context, log Log, req PollRequest) PollResponse {
	defer ctx.checkThread()()
	accepted := isUpToDate(log, req.LastLogIndex, req.LastLogTerm)
	return PollResponse{Status: StatusOK, Term: ctx.CurrentTerm, Accepted: accepted}
}

// HandleVote processes a real vote request: it advances term and resets
// lastVotedFor on a higher term, rejects stale or already-committed-to-
// someone-else candidates, and otherwise grants the vote only if the
// candidate's log is at least as up to date as this node's.
func HandleVote(ctx *Context, log Log, req VoteRequest) VoteResponse {
	defer ctx.checkThread()()

	// Step 1 — term advance.
	if req.Term > ctx.CurrentTerm {
		ctx.CurrentTerm = req.Term
		ctx.LastVotedFor = NoMember
	}

	// Step 2 — stale candidate term.
	if req.Term < ctx.CurrentTerm {
		return VoteResponse{Status: StatusOK, Term: ctx.CurrentTerm, Voted: false}
	}

	// Step 3 — self-vote always granted.
	if req.CandidateID == ctx.Self {
		ctx.LastVotedFor = ctx.Self
		return VoteResponse{Status: StatusOK, Term: ctx.CurrentTerm, Voted: true}
	}

	// Step 4 — unknown-candidate rejection.
	if ctx.IsMember != nil && !ctx.IsMember(req.CandidateID) {
		return VoteResponse{Status: StatusOK, Term: ctx.CurrentTerm, Voted: false}
	}

	// Step 5 — eligible to vote this term.
	if ctx.LastVotedFor == NoMember || ctx.LastVotedFor == req.CandidateID {
		if isUpToDate(log, req.LastLogIndex, req.LastLogTerm) {
			ctx.LastVotedFor = req.CandidateID
			return VoteResponse{Status: StatusOK, Term: ctx.CurrentTerm, Voted: true}
		}
		return VoteResponse{Status: StatusOK, Term: ctx.CurrentTerm, Voted: false}
	}

	// Step 6 — already voted for someone else this term.
	return VoteResponse{Status: StatusOK, Term: ctx.CurrentTerm, Voted: false}
}
