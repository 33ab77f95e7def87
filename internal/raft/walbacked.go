package raft

import (
	"fmt"
	"time"

	"github.com/emberkv/raftcore/internal/storage/wal"
)

// DurableLog wraps an in-memory Log with a write-ahead log so entries
// survive a restart without needing a snapshot on every boot. It is the
// wiring target for any deployment that wants crash recovery; tests and
// throwaway clusters can use MemoryLogStore directly.
type DurableLog struct {
	mem *MemoryLogStore
	w   *wal.WAL
}

// OpenDurableLog opens (or creates) a WAL at path, replays it into a fresh
// MemoryLogStore, and returns a DurableLog ready to serve the core. Replay
// here starts from whatever the WAL itself contains; a caller using a
// snapshot applies it afterwards via RestoreFromSnapshot.
func OpenDurableLog(path string, bufferSize int, flushInterval time.Duration) (*DurableLog, error) {
	w, err := wal.NewWAL(path, false, bufferSize, flushInterval)
	if err != nil {
		return nil, fmt.Errorf("raft: open durable log: %w", err)
	}

	mem := NewMemoryLogStore()
	d := &DurableLog{mem: mem, w: w}

	if err := w.Replay(d.applyEvent); err != nil {
		return nil, fmt.Errorf("raft: replay durable log: %w", err)
	}

	return d, nil
}

// applyEvent replays a single WAL event onto the in-memory log. It does
// not re-append to the WAL — Replay only rebuilds memory state.
func (d *DurableLog) applyEvent(event *wal.Event) error {
	switch event.Type {
	case wal.EventCreate:
		if event.Entry == nil {
			return fmt.Errorf("raft: replay: CREATE event at index %d missing entry", event.Index)
		}
		entry := *event.Entry
		d.mem.setEntryForReplay(event.Index, entry)
	case wal.EventTruncate:
		d.mem.truncateRaw(event.Index)
	case wal.EventRecycle:
		return d.mem.Recycle(event.Index)
	case wal.EventCommit:
		// Commit events are informational for replay tooling; the commit
		// index itself lives in Context, not the log.
	}
	return nil
}

// RestoreFromSnapshot discards any in-memory entries at or below
// lastIncludedIndex by recycling them: FirstIndex becomes the lowest
// surviving entry. When no entry above lastIncludedIndex survives, the log
// reports empty, with FirstIndex and LastIndex both 0. No WAL event is
// written for this.
func (d *DurableLog) RestoreFromSnapshot(lastIncludedIndex Index) error {
	return d.mem.Recycle(lastIncludedIndex)
}

func (d *DurableLog) IsEmpty() bool              { return d.mem.IsEmpty() }
func (d *DurableLog) FirstIndex() Index          { return d.mem.FirstIndex() }
func (d *DurableLog) LastIndex() Index           { return d.mem.LastIndex() }
func (d *DurableLog) ContainsIndex(i Index) bool { return d.mem.ContainsIndex(i) }

func (d *DurableLog) GetEntry(i Index) (*LogEntry, error) {
	return d.mem.GetEntry(i)
}

func (d *DurableLog) CreateEntry(e LogEntry) (Index, error) {
	idx, err := d.mem.CreateEntry(e)
	if err != nil {
		return 0, err
	}
	entry := e
	entry.Index = idx
	if err := d.w.Append(wal.EventCreate, idx, &entry); err != nil {
		return 0, fmt.Errorf("raft: wal append CREATE: %w", err)
	}
	return idx, nil
}

func (d *DurableLog) Skip(n int64, e LogEntry) (Index, error) {
	idx, err := d.mem.Skip(n, e)
	if err != nil {
		return 0, err
	}
	entry := e
	entry.Index = idx
	if err := d.w.Append(wal.EventCreate, idx, &entry); err != nil {
		return 0, fmt.Errorf("raft: wal append CREATE (skip): %w", err)
	}
	return idx, nil
}

func (d *DurableLog) Truncate(i Index, commitIndex Index) error {
	if err := d.mem.Truncate(i, commitIndex); err != nil {
		return err
	}
	return d.w.Append(wal.EventTruncate, i, nil)
}

func (d *DurableLog) Recycle(i Index) error {
	if err := d.mem.Recycle(i); err != nil {
		return err
	}
	return d.w.Append(wal.EventRecycle, i, nil)
}

// Close flushes and closes the underlying WAL. The DurableLog must not be
// used after Close.
func (d *DurableLog) Close() error {
	return d.w.Close()
}

// LastSeq exposes the WAL's sequence counter, for snapshot bookkeeping
// (Data.LastSeq should be set to this value at snapshot time).
func (d *DurableLog) LastSeq() uint64 {
	return d.w.GetLastSeq()
}
