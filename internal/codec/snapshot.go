package codec

import (
	"bytes"
	"strconv"
)

// SnapshotMagic identifies a CRDT snapshot file (§3 "Snapshot file").
var SnapshotMagic = [4]byte{'N', 'C', 'S', 'N'}

const (
	CurrentSnapshotVersion = 1
	// SnapshotHeaderSize is the fixed header size: 4-byte magic + 1-byte
	// version + 1-byte status.
	SnapshotHeaderSize = 6

	SnapshotStatusComplete   byte = 0x01
	SnapshotStatusIncomplete byte = 0x00
)

// SnapshotHeaderResult is the outcome of validating a snapshot header.
type SnapshotHeaderResult struct {
	Valid    bool
	Complete bool
	Err      error
}

// ReadSnapshotHeader validates the magic and version of a snapshot header
// and reports its completion status.
func ReadSnapshotHeader(buf []byte) SnapshotHeaderResult {
	if len(buf) < SnapshotHeaderSize {
		return SnapshotHeaderResult{Err: &FormatError{
			Offset: 0,
			Reason: "truncated header: expected at least " + strconv.Itoa(SnapshotHeaderSize) + " bytes",
		}}
	}
	if !bytes.Equal(buf[:4], SnapshotMagic[:]) {
		return SnapshotHeaderResult{Err: &FormatError{Offset: 0, Reason: "bad snapshot magic"}}
	}
	if buf[4] != CurrentSnapshotVersion {
		return SnapshotHeaderResult{Err: &FormatError{Offset: 4, Reason: "unsupported snapshot version"}}
	}
	return SnapshotHeaderResult{Valid: true, Complete: buf[5] == SnapshotStatusComplete}
}

// EncodeSnapshotHeader returns a fresh SnapshotHeaderSize-byte header.
func EncodeSnapshotHeader(complete bool) []byte {
	status := SnapshotStatusIncomplete
	if complete {
		status = SnapshotStatusComplete
	}
	buf := make([]byte, 0, SnapshotHeaderSize)
	buf = append(buf, SnapshotMagic[:]...)
	buf = append(buf, CurrentSnapshotVersion)
	buf = append(buf, status)
	return buf
}

// VectorClockEntry pinpoints the last update from one peer merged into a
// snapshot.
type VectorClockEntry struct {
	InstanceID string
	Sequence   uint64
	Offset     uint64
	Filename   string
}

// Snapshot is a decoded snapshot file body (everything after the header).
type Snapshot struct {
	VectorClock   []VectorClockEntry
	DocumentState []byte
}

// EncodeSnapshotBody appends the vector clock and document state to buf,
// per §3: varint(entryCount), then per entry
// varint(idLen)+id+varint(seq)+varint(offset)+varint(nameLen)+name,
// followed by the raw document state bytes.
func EncodeSnapshotBody(buf []byte, snap Snapshot) []byte {
	buf = EncodeVarint(buf, uint64(len(snap.VectorClock)))
	for _, e := range snap.VectorClock {
		idBytes := []byte(e.InstanceID)
		nameBytes := []byte(e.Filename)
		buf = EncodeVarint(buf, uint64(len(idBytes)))
		buf = append(buf, idBytes...)
		buf = EncodeVarint(buf, e.Sequence)
		buf = EncodeVarint(buf, e.Offset)
		buf = EncodeVarint(buf, uint64(len(nameBytes)))
		buf = append(buf, nameBytes...)
	}
	buf = append(buf, snap.DocumentState...)
	return buf
}

// ReadSnapshotBody decodes the vector clock and document state from buf,
// which must start immediately after the snapshot header.
func ReadSnapshotBody(buf []byte) (Snapshot, error) {
	offset := 0
	count, n, err := DecodeVarint(buf, offset)
	if err != nil {
		return Snapshot{}, err
	}
	offset += n

	entries := make([]VectorClockEntry, 0, count)
	for i := uint64(0); i < count; i++ {
		entry, consumed, err := decodeVectorClockEntry(buf, offset)
		if err != nil {
			return Snapshot{}, err
		}
		entries = append(entries, entry)
		offset += consumed
	}

	docState := make([]byte, len(buf)-offset)
	copy(docState, buf[offset:])

	return Snapshot{VectorClock: entries, DocumentState: docState}, nil
}

func decodeVectorClockEntry(buf []byte, offset int) (VectorClockEntry, int, error) {
	start := offset
	idLen, n, err := DecodeVarint(buf, offset)
	if err != nil {
		return VectorClockEntry{}, 0, err
	}
	offset += n
	if offset+int(idLen) > len(buf) {
		return VectorClockEntry{}, 0, &FormatError{Offset: offset, Reason: "truncated instance id"}
	}
	id := string(buf[offset : offset+int(idLen)])
	offset += int(idLen)

	seq, n, err := DecodeVarint(buf, offset)
	if err != nil {
		return VectorClockEntry{}, 0, err
	}
	offset += n

	off, n, err := DecodeVarint(buf, offset)
	if err != nil {
		return VectorClockEntry{}, 0, err
	}
	offset += n

	nameLen, n, err := DecodeVarint(buf, offset)
	if err != nil {
		return VectorClockEntry{}, 0, err
	}
	offset += n
	if offset+int(nameLen) > len(buf) {
		return VectorClockEntry{}, 0, &FormatError{Offset: offset, Reason: "truncated filename"}
	}
	name := string(buf[offset : offset+int(nameLen)])
	offset += int(nameLen)

	return VectorClockEntry{InstanceID: id, Sequence: seq, Offset: off, Filename: name}, offset - start, nil
}
