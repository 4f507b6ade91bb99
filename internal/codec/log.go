package codec

import (
	"bytes"
	"strconv"
)

// LogMagic and LogVersion identify a CRDT log file (§3 "Binary log file").
var LogMagic = [4]byte{'N', 'C', 'L', 'G'}

const (
	CurrentLogVersion = 1
	// LogHeaderSize is the fixed header size: 4-byte magic + 1-byte version.
	LogHeaderSize = 5
)

// LogHeaderResult is the outcome of validating a log file's header.
type LogHeaderResult struct {
	Valid bool
	Err   error
}

// ReadLogHeader validates the magic and version in the first LogHeaderSize
// bytes of a log file; the records start at offset LogHeaderSize.
func ReadLogHeader(buf []byte) LogHeaderResult {
	if len(buf) < LogHeaderSize {
		return LogHeaderResult{Valid: false, Err: &FormatError{
			Offset: 0,
			Reason: "truncated header: need " + strconv.Itoa(LogHeaderSize) + " bytes",
		}}
	}
	if !bytes.Equal(buf[:4], LogMagic[:]) {
		return LogHeaderResult{Valid: false, Err: &FormatError{Offset: 0, Reason: "bad log magic"}}
	}
	if buf[4] != CurrentLogVersion {
		return LogHeaderResult{Valid: false, Err: &FormatError{Offset: 4, Reason: "unsupported log version"}}
	}
	return LogHeaderResult{Valid: true}
}

// EncodeLogHeader returns a fresh LogHeaderSize-byte header.
func EncodeLogHeader() []byte {
	buf := make([]byte, 0, LogHeaderSize)
	buf = append(buf, LogMagic[:]...)
	buf = append(buf, CurrentLogVersion)
	return buf
}

// LogRecord is one decoded CRDT update record.
type LogRecord struct {
	Timestamp uint64 // milliseconds since epoch
	Sequence  uint64
	Data      []byte
}

// EncodeLogRecord appends the wire encoding of one record to buf:
// varint(payloadLength) ++ timestamp(8) ++ varint(sequence) ++ data.
func EncodeLogRecord(buf []byte, rec LogRecord) []byte {
	var seqBuf []byte
	seqBuf = EncodeVarint(seqBuf, rec.Sequence)
	payloadLen := uint64(8 + len(seqBuf) + len(rec.Data))

	buf = EncodeVarint(buf, payloadLen)
	buf = EncodeTimestamp(buf, rec.Timestamp)
	buf = append(buf, seqBuf...)
	buf = append(buf, rec.Data...)
	return buf
}

// EncodeLogSentinel appends the zero-length-varint sentinel that terminates
// a log file's record stream.
func EncodeLogSentinel(buf []byte) []byte {
	return EncodeVarint(buf, 0)
}

// ReadLogRecords sequentially decodes every record in buf (buf must start
// at the first record, i.e. after the header) until the zero-length
// sentinel or end of buffer. It is the runtime (non-offset-tracking) path
// used by the CRDT manager to replay a note's update log.
func ReadLogRecords(buf []byte) ([]LogRecord, error) {
	var records []LogRecord
	offset := 0
	for offset < len(buf) {
		payloadLen, n, err := DecodeVarint(buf, offset)
		if err != nil {
			return records, err
		}
		offset += n
		if payloadLen == 0 {
			return records, nil
		}

		rec, consumed, err := decodeRecordPayload(buf, offset, payloadLen)
		if err != nil {
			return records, err
		}
		records = append(records, rec)
		offset += consumed
	}
	return records, nil
}

// decodeRecordPayload decodes the payloadLen bytes starting at offset into
// a LogRecord, per §3: 8-byte timestamp, varint sequence, remaining data.
func decodeRecordPayload(buf []byte, offset int, payloadLen uint64) (LogRecord, int, error) {
	end := offset + int(payloadLen)
	if end > len(buf) {
		return LogRecord{}, 0, &FormatError{
			Offset: offset,
			Reason: "truncated record payload: need " + strconv.Itoa(int(payloadLen)) + " bytes, have " + strconv.Itoa(len(buf)-offset),
		}
	}

	ts, err := DecodeTimestamp(buf, offset)
	if err != nil {
		return LogRecord{}, 0, err
	}

	seq, seqBytes, err := DecodeVarint(buf, offset+8)
	if err != nil {
		return LogRecord{}, 0, err
	}

	// Open question (spec §9): a payloadLength too small to hold the
	// timestamp and sequence varint would imply negative data length.
	// Treated as a FormatError rather than a silently-truncated read.
	dataLen := int64(payloadLen) - 8 - int64(seqBytes)
	if dataLen < 0 {
		return LogRecord{}, 0, &FormatError{
			Offset: offset,
			Reason: "payload length too small for timestamp and sequence",
		}
	}

	dataStart := offset + 8 + seqBytes
	data := make([]byte, dataLen)
	copy(data, buf[dataStart:end])

	return LogRecord{Timestamp: ts, Sequence: seq, Data: data}, int(payloadLen), nil
}
