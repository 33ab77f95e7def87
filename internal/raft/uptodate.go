package raft

// isUpToDate reports whether a candidate's log is at least as up to date
// as this node's, deciding whether to grant it a vote.
//
// Canonical Raft orders candidates by (lastLogTerm, lastLogIndex)
// lexicographically: a strictly higher term always wins regardless of
// index, and index only breaks ties within the same term. This
// predicate instead uses the combined relation "index >= lastIndex AND
// term >= lastEntry.term", which can grant a vote to a candidate with an
// older term but an equal-or-greater index — a deliberate divergence
// from Raft's leader-completeness property, kept rather than corrected;
// see the open-question decisions in DESIGN.md.
func isUpToDate(log Log, candidateIndex Index, candidateTerm Term) bool {
	if log.IsEmpty() {
		return true
	}
	lastIndex := log.LastIndex()
	lastEntry, err := log.GetEntry(lastIndex)
	if err != nil || lastEntry == nil {
		// Recycled away: treat as vacuously up-to-date.
		return true
	}
	return candidateIndex != 0 && candidateIndex >= lastIndex && candidateTerm >= lastEntry.Term
}
