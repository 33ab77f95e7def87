package raft

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyCommits_SequentialAdvance(t *testing.T) {
	ctx := newTestContext(1)
	log := NewMemoryLogStore()
	applier := NewMapApplier()

	mustAppend(t, log, LogEntry{Term: 1, Type: EntryCommand, Key: []byte("a"), Payload: []byte("1")})
	mustAppend(t, log, LogEntry{Term: 1, Type: EntryCommand, Key: []byte("b"), Payload: []byte("2")})
	mustAppend(t, log, LogEntry{Term: 1, Type: EntryNoop})

	applyCommits(ctx, log, applier, 3)

	assert.Equal(t, Index(3), ctx.CommitIndex)
	assert.Equal(t, Index(3), ctx.LastApplied)
	v, ok := applier.Get([]byte("a"))
	require.True(t, ok)
	assert.Equal(t, []byte("1"), v)
	assert.Equal(t, 2, applier.Len(), "NOOP entries advance lastApplied without reaching the applier")
}

func TestApplyCommits_GuardSkipsWhenNoNewWork(t *testing.T) {
	ctx := newTestContext(1)
	log := NewMemoryLogStore()
	applier := NewMapApplier()
	mustAppend(t, log, LogEntry{Term: 1, Type: EntryCommand})

	applyCommits(ctx, log, applier, 1)
	assert.Equal(t, Index(1), ctx.CommitIndex)

	// Re-invoking with the same (already-applied) leaderCommit is a no-op.
	applyCommits(ctx, log, applier, 1)
	assert.Equal(t, Index(1), ctx.LastApplied)
}

func TestApplyCommits_EmptyLogGuard(t *testing.T) {
	ctx := newTestContext(1)
	log := NewMemoryLogStore()
	applier := NewMapApplier()

	applyCommits(ctx, log, applier, 5)

	assert.Equal(t, Index(0), ctx.CommitIndex, "an empty log can never advance commitIndex")
}

func TestApplyCommits_TombstoneDeletesKey(t *testing.T) {
	ctx := newTestContext(1)
	log := NewMemoryLogStore()
	applier := NewMapApplier()
	require.NoError(t, applier.Apply([]byte("k"), []byte("v")))

	mustAppend(t, log, LogEntry{Term: 1, Type: EntryTombstone, Key: []byte("k")})
	applyCommits(ctx, log, applier, 1)

	_, ok := applier.Get([]byte("k"))
	assert.False(t, ok, "tombstone entries delete the key from the applier")
}

type erroringApplier struct{ calls int }

func (e *erroringApplier) Apply(key, payload []byte) error {
	e.calls++
	return errors.New("boom")
}

func TestApplyCommits_ApplyErrorStillAdvances(t *testing.T) {
	ctx := newTestContext(1)
	log := NewMemoryLogStore()
	mustAppend(t, log, LogEntry{Term: 1, Type: EntryCommand, Key: []byte("a")})
	mustAppend(t, log, LogEntry{Term: 1, Type: EntryCommand, Key: []byte("b")})
	applier := &erroringApplier{}

	applyCommits(ctx, log, applier, 2)

	assert.Equal(t, Index(2), ctx.LastApplied, "lastApplied advances past a failed apply")
	assert.Equal(t, 2, applier.calls)
}

func TestApplyCommits_ClampsToLastIndex(t *testing.T) {
	ctx := newTestContext(1)
	log := NewMemoryLogStore()
	applier := NewMapApplier()
	mustAppend(t, log, LogEntry{Term: 1, Type: EntryCommand})

	applyCommits(ctx, log, applier, 100)

	assert.Equal(t, log.LastIndex(), ctx.CommitIndex, "commitIndex never exceeds the log's lastIndex")
}
