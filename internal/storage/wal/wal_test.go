package wal

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/emberkv/raftcore/internal/raft"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWAL_CreatesFileAndDirectory(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "nested", "raft.wal")

	w, err := NewWAL(path, false, 4, 5*time.Millisecond)
	require.NoError(t, err)
	defer w.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err, "WAL file should have been created")
}

func TestWAL_AppendAndReplay(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "raft.wal")

	w, err := NewWAL(path, false, 2, 5*time.Millisecond)
	require.NoError(t, err)

	entry1 := &raft.LogEntry{Term: 1, Type: raft.EntryCommand, Key: []byte("a"), Payload: []byte("1")}
	entry2 := &raft.LogEntry{Term: 1, Type: raft.EntryCommand, Key: []byte("b"), Payload: []byte("2")}

	require.NoError(t, w.Append(EventCreate, 1, entry1))
	require.NoError(t, w.Append(EventCreate, 2, entry2))
	require.NoError(t, w.Close())

	w2, err := NewWAL(path, false, 2, 5*time.Millisecond)
	require.NoError(t, err)
	defer w2.Close()

	var replayed []Event
	err = w2.Replay(func(e *Event) error {
		replayed = append(replayed, *e)
		return nil
	})
	require.NoError(t, err)

	require.Len(t, replayed, 2)
	assert.Equal(t, raft.Index(1), replayed[0].Index)
	assert.Equal(t, []byte("a"), replayed[0].Entry.Key)
	assert.Equal(t, raft.Index(2), replayed[1].Index)
	assert.Equal(t, []byte("b"), replayed[1].Entry.Key)
}

func TestWAL_GetLastSeqAdvances(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "raft.wal")

	w, err := NewWAL(path, false, 1, 5*time.Millisecond)
	require.NoError(t, err)
	defer w.Close()

	assert.Equal(t, uint64(0), w.GetLastSeq())

	require.NoError(t, w.Append(EventCreate, 1, &raft.LogEntry{Term: 1}))
	assert.Equal(t, uint64(1), w.GetLastSeq())

	require.NoError(t, w.Append(EventCommit, 1, nil))
	assert.Equal(t, uint64(2), w.GetLastSeq())
}

func TestWAL_ResumesSeqAcrossReopen(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "raft.wal")

	w, err := NewWAL(path, false, 1, 5*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, w.Append(EventCreate, 1, &raft.LogEntry{Term: 1}))
	require.NoError(t, w.Append(EventCreate, 2, &raft.LogEntry{Term: 1}))
	require.NoError(t, w.Close())

	w2, err := NewWAL(path, false, 1, 5*time.Millisecond)
	require.NoError(t, err)
	defer w2.Close()

	assert.Equal(t, uint64(2), w2.GetLastSeq())
}

func TestWAL_Rotate(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "raft.wal")

	w, err := NewWAL(path, false, 1, 5*time.Millisecond)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Append(EventCreate, 1, &raft.LogEntry{Term: 1}))
	require.NoError(t, w.Rotate())

	assert.Equal(t, uint64(0), w.GetLastSeq())

	entries, err := os.ReadDir(tempDir)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(entries), 2, "rotate should leave a backup file alongside the fresh WAL")
}

func TestWAL_CloseIsIdempotent(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "raft.wal")

	w, err := NewWAL(path, false, 1, 5*time.Millisecond)
	require.NoError(t, err)

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
}

func TestWAL_AppendAfterCloseFails(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "raft.wal")

	w, err := NewWAL(path, false, 1, 5*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	err = w.Append(EventCreate, 1, &raft.LogEntry{Term: 1})
	assert.Error(t, err)
}

func TestWAL_ConcurrentAppendsAreSerialized(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "raft.wal")

	w, err := NewWAL(path, false, 8, 5*time.Millisecond)
	require.NoError(t, err)
	defer w.Close()

	var wg sync.WaitGroup
	n := 20
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			assert.NoError(t, w.Append(EventCreate, 1, &raft.LogEntry{Term: 1}))
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(n), w.GetLastSeq())
}

func TestCalculateChecksum_DeterministicAndVerifiable(t *testing.T) {
	event := Event{Seq: 1, Type: EventCreate, Index: 5}
	event.Checksum = CalculateChecksum(event.Type, event.Index, event.Seq)

	assert.True(t, VerifyChecksum(event))

	tampered := event
	tampered.Index = 6
	assert.False(t, VerifyChecksum(tampered))
}
