// Package codec implements the CRDT log and snapshot binary wire format:
// fixed-size magic/version headers, little-endian base-128 varints, and
// big-endian fixed timestamps. It is used both for runtime reads (log.go,
// snapshot.go) and, in its offset-tracking variant (inspector.go), to feed
// a byte-accurate on-disk inspector.
package codec

import (
	"encoding/binary"
	"fmt"
)

// FormatError is returned whenever the binary layout of a log or snapshot
// file does not match this package's invariants.
type FormatError struct {
	Offset int
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("format error at offset %d: %s", e.Offset, e.Reason)
}

// DecodeVarint decodes an unsigned little-endian base-128 varint (7-bit
// groups, high bit = continuation) starting at offset in buf. It returns
// the decoded value and the number of bytes consumed. The wire format is
// identical to encoding/binary's Uvarint — the same stdlib idiom the
// retrieval pack's own storage-engine reference (pebble's manifest decoder)
// uses, so no third-party varint library is introduced here.
func DecodeVarint(buf []byte, offset int) (value uint64, bytesRead int, err error) {
	if offset < 0 || offset > len(buf) {
		return 0, 0, &FormatError{Offset: offset, Reason: "offset out of range"}
	}
	v, n := binary.Uvarint(buf[offset:])
	if n == 0 {
		return 0, 0, &FormatError{Offset: offset, Reason: "truncated varint"}
	}
	if n < 0 {
		return 0, 0, &FormatError{Offset: offset, Reason: "varint overflows 64 bits"}
	}
	return v, n, nil
}

// EncodeVarint appends the varint encoding of v to buf and returns the
// result.
func EncodeVarint(buf []byte, v uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	return append(buf, tmp[:n]...)
}

// DecodeTimestamp reads a big-endian 8-byte unsigned millisecond timestamp
// at offset.
func DecodeTimestamp(buf []byte, offset int) (uint64, error) {
	if offset < 0 || offset+8 > len(buf) {
		return 0, &FormatError{Offset: offset, Reason: "truncated timestamp: need 8 bytes"}
	}
	return binary.BigEndian.Uint64(buf[offset : offset+8]), nil
}

// EncodeTimestamp appends the big-endian 8-byte encoding of ts to buf.
func EncodeTimestamp(buf []byte, ts uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], ts)
	return append(buf, tmp[:]...)
}
