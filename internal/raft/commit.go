package raft

import "log/slog"

// applyCommits advances ctx.CommitIndex toward leaderCommit and then
// ctx.LastApplied toward ctx.CommitIndex, delivering COMMAND/TOMBSTONE
// entries to applier one index at a time.
//
// The double-max clamp (min(max(leaderCommit, commitIndex), lastIndex)) is
// kept in this form rather than simplified to min(leaderCommit,
// lastIndex): the two agree only while commitIndex <= leaderCommit. When
// a leader reports a lower leaderCommit than the local commitIndex, the
// inner max keeps commitIndex where it is, so the clamp never moves
// commitIndex backwards (given commitIndex <= lastIndex).
func applyCommits(ctx *Context, log Log, applier Applier, leaderCommit Index) {
	if leaderCommit == 0 || log.IsEmpty() {
		return
	}
	retryingFailedApply := ctx.CommitIndex > ctx.LastApplied
	if !(ctx.CommitIndex == 0 || leaderCommit > ctx.CommitIndex || retryingFailedApply) {
		return
	}

	newCommit := min(max(leaderCommit, ctx.CommitIndex), log.LastIndex())
	ctx.CommitIndex = newCommit

	start := max(ctx.LastApplied, log.FirstIndex())
	end := min(ctx.CommitIndex, log.LastIndex())

	for i := start; i <= end; i++ {
		sequential := (ctx.LastApplied == 0 && i == log.FirstIndex()) || ctx.LastApplied == i-1
		if !sequential {
			continue
		}

		entry, err := log.GetEntry(i)
		if err != nil {
			// Recycled or missing: nothing left to apply at this index,
			// but lastApplied always advances past it regardless.
			ctx.LastApplied = i
			continue
		}

		if entry.Type.Applied() {
			key := ctx.keyScratchBuf(len(entry.Key))
			copy(key, entry.Key)

			var payload []byte
			if entry.Type == EntryTombstone {
				payload = nil
			} else {
				payload = ctx.payloadScratchBuf(len(entry.Payload))
				copy(payload, entry.Payload)
			}

			if applyErr := applier.Apply(key, payload); applyErr != nil {
				ctx.logger.Error("apply failed, advancing past it",
					slog.Int64("index", int64(i)), slog.Any("err", applyErr))
			}
		}

		ctx.LastApplied = i
	}
}
