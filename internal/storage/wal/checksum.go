package wal

// ============================================================================
// Checksum Calculation
// Responsibility: Calculate and verify CRC32 checksum for WAL events
// ============================================================================

import (
	"hash/crc32"
	"strconv"

	"github.com/emberkv/raftcore/internal/raft"
)

// CalculateChecksum calculates the CRC32 checksum for an event.
//
// Combines Type + Index + Seq into a string and hashes it with
// CRC32-IEEE. Timestamp is excluded since it changes on replay.
func CalculateChecksum(eventType EventType, index raft.Index, seq uint64) uint32 {
	data := string(eventType) + strconv.FormatInt(int64(index), 10) + strconv.FormatUint(seq, 10)
	return crc32.ChecksumIEEE([]byte(data))
}

// VerifyChecksum verifies that event's checksum matches its fields.
func VerifyChecksum(event Event) bool {
	expected := CalculateChecksum(event.Type, event.Index, event.Seq)
	return event.Checksum == expected
}
