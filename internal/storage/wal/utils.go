package wal

// ============================================================================
// WAL Utility Functions
// Purpose: Provide WAL-related helper functionality
// ============================================================================

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// ============================================================================
// File Operation Helpers
// ============================================================================

// GetLastEvent reads the last event from a WAL file
//
// Use cases:
// - NewWAL needs to get last_seq to continue numbering
// - Validate WAL integrity
//
// Parameters:
//
//	path - WAL file path
//
// Returns:
//
//	Last event, error (returns ErrEmptyWAL if file is empty)
func GetLastEvent(path string) (*Event, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrEmptyWAL
		}
		return nil, fmt.Errorf("wal: open %s: %w", path, err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	var last *Event
	for {
		var event Event
		if err := decoder.Decode(&event); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("wal: decode event: %w", err)
		}
		e := event
		last = &e
	}
	if last == nil {
		return nil, ErrEmptyWAL
	}
	return last, nil
}

// CountEvents counts the total number of events in WAL
//
// Use cases:
// - Debugging and diagnostics
// - Statistics and monitoring
func CountEvents(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("wal: open %s: %w", path, err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	count := 0
	for {
		var event Event
		if err := decoder.Decode(&event); err != nil {
			if err == io.EOF {
				break
			}
			return count, fmt.Errorf("wal: decode event at position %d: %w", count, err)
		}
		count++
	}
	return count, nil
}

// ValidateWAL validates WAL file integrity
//
// Checks:
// - All events have correct JSON format
// - All events have correct checksums
// - seq is sequential and unique
//
// Returns:
//
//	error (if any issues found)
func ValidateWAL(path string) error {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("wal: open %s: %w", path, err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	var lastSeq uint64
	var errs []error
	for {
		var event Event
		if err := decoder.Decode(&event); err != nil {
			if err == io.EOF {
				break
			}
			errs = append(errs, fmt.Errorf("wal: decode event after seq=%d: %w", lastSeq, err))
			break
		}
		if lastSeq != 0 && event.Seq != lastSeq+1 {
			errs = append(errs, fmt.Errorf("wal: seq gap: expected %d, got %d", lastSeq+1, event.Seq))
		}
		if !VerifyChecksum(event) {
			errs = append(errs, &ChecksumError{
				Seq:      event.Seq,
				Expected: CalculateChecksum(event.Type, event.Index, event.Seq),
				Actual:   event.Checksum,
			})
		}
		lastSeq = event.Seq
	}
	return errors.Join(errs...)
}

// ============================================================================
// WAL Repair Tools (Advanced Features)
// ============================================================================

// RepairWAL scans srcPath, drops events with a bad checksum, stops at the
// first event that fails to decode (dropping it and everything after it),
// renumbers the survivors from seq 1, and writes the result to dstPath.
//
// Warning: this changes event sequence numbers — only run it against a
// WAL that is no longer being replayed for its original seq ordering.
func RepairWAL(srcPath, dstPath string) error {
	file, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("wal: repair: open %s: %w", srcPath, err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	var survivors []Event
	for {
		var event Event
		if err := decoder.Decode(&event); err != nil {
			if err == io.EOF {
				break
			}
			// Stop at the first unparsable event; whatever came before it
			// is still usable.
			break
		}
		if VerifyChecksum(event) {
			survivors = append(survivors, event)
		}
	}

	out, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("wal: repair: create %s: %w", dstPath, err)
	}
	defer out.Close()

	encoder := json.NewEncoder(out)
	for i, event := range survivors {
		event.Seq = uint64(i + 1)
		event.Checksum = CalculateChecksum(event.Type, event.Index, event.Seq)
		if err := encoder.Encode(event); err != nil {
			return fmt.Errorf("wal: repair: encode event: %w", err)
		}
	}
	return out.Sync()
}

// TruncateWAL rewrites the WAL at path keeping only events with
// Seq < seq, atomically replacing the original file.
//
// Use cases:
//   - Recover to a known good state
//   - Roll back erroneous operations
func TruncateWAL(path string, seq uint64) error {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("wal: truncate: open %s: %w", path, err)
	}

	decoder := json.NewDecoder(file)
	var kept []Event
	for {
		var event Event
		if err := decoder.Decode(&event); err != nil {
			if err == io.EOF {
				break
			}
			file.Close()
			return fmt.Errorf("wal: truncate: decode event: %w", err)
		}
		if event.Seq < seq {
			kept = append(kept, event)
		}
	}
	file.Close()

	tmpPath := path + ".tmp"
	out, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("wal: truncate: create %s: %w", tmpPath, err)
	}
	encoder := json.NewEncoder(out)
	for _, event := range kept {
		if err := encoder.Encode(event); err != nil {
			out.Close()
			return fmt.Errorf("wal: truncate: encode event: %w", err)
		}
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("wal: truncate: rename %s to %s: %w", tmpPath, path, err)
	}
	return nil
}

// ============================================================================
// Debugging and Diagnostic Tools
// ============================================================================

// DumpWAL outputs WAL contents (human-readable format)
//
// Use cases:
// - Debugging
// - Manual event inspection
func DumpWAL(path string, w io.Writer) error {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("wal: open %s: %w", path, err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	for {
		var event Event
		if err := decoder.Decode(&event); err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("wal: decode event: %w", err)
		}
		mark := ""
		if !VerifyChecksum(event) {
			mark = " [CHECKSUM MISMATCH]"
		}
		fmt.Fprintf(w, "[seq:%d] %s index=%d at %d (checksum:0x%08x)%s\n",
			event.Seq, event.Type, event.Index, event.Timestamp, event.Checksum, mark)
	}
	return nil
}

// readAllEvents decodes every event in a WAL file into memory, for tools
// that need random access rather than streaming (CompareWAL, GetWALStats).
func readAllEvents(path string) ([]Event, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("wal: open %s: %w", path, err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	var events []Event
	for {
		var event Event
		if err := decoder.Decode(&event); err != nil {
			if err == io.EOF {
				break
			}
			return events, fmt.Errorf("wal: decode event: %w", err)
		}
		events = append(events, event)
	}
	return events, nil
}

// CompareWAL compares two WAL files event-by-event and returns a list of
// human-readable differences (empty slice if they match).
//
// Use cases:
// - Testing
// - Verify Rotate correctness
func CompareWAL(path1, path2 string) ([]string, error) {
	events1, err := readAllEvents(path1)
	if err != nil {
		return nil, fmt.Errorf("wal: compare: %s: %w", path1, err)
	}
	events2, err := readAllEvents(path2)
	if err != nil {
		return nil, fmt.Errorf("wal: compare: %s: %w", path2, err)
	}

	var diffs []string
	if len(events1) != len(events2) {
		diffs = append(diffs, fmt.Sprintf("event count differs: %d vs %d", len(events1), len(events2)))
	}

	n := len(events1)
	if len(events2) < n {
		n = len(events2)
	}
	for i := 0; i < n; i++ {
		a, b := events1[i], events2[i]
		if a.Seq != b.Seq || a.Type != b.Type || a.Index != b.Index || a.Checksum != b.Checksum {
			diffs = append(diffs, fmt.Sprintf("event %d differs: seq=%d/%d type=%s/%s index=%d/%d",
				i, a.Seq, b.Seq, a.Type, b.Type, a.Index, b.Index))
		}
	}
	return diffs, nil
}

// ============================================================================
// Statistics and Analysis
// ============================================================================

// WALStats WAL statistics information
type WALStats struct {
	TotalEvents    int               // Total number of events
	EventTypes     map[EventType]int // Event count by type
	FirstSeq       uint64            // Sequence number of first event
	LastSeq        uint64            // Sequence number of last event
	TimeRange      [2]int64          // Time range [earliest, latest]
	CorruptedCount int               // Number of corrupted events
}

// GetWALStats scans the WAL at path and summarizes it.
func GetWALStats(path string) (*WALStats, error) {
	events, err := readAllEvents(path)
	if err != nil {
		return nil, fmt.Errorf("wal: stats: %w", err)
	}

	stats := &WALStats{
		EventTypes: make(map[EventType]int),
	}
	for i, event := range events {
		stats.TotalEvents++
		stats.EventTypes[event.Type]++
		if !VerifyChecksum(event) {
			stats.CorruptedCount++
		}
		if i == 0 {
			stats.FirstSeq = event.Seq
			stats.TimeRange[0] = event.Timestamp
			stats.TimeRange[1] = event.Timestamp
		}
		stats.LastSeq = event.Seq
		if event.Timestamp < stats.TimeRange[0] {
			stats.TimeRange[0] = event.Timestamp
		}
		if event.Timestamp > stats.TimeRange[1] {
			stats.TimeRange[1] = event.Timestamp
		}
	}
	return stats, nil
}
