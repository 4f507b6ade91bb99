package codec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestInspectLogValidRecord exercises a valid log with one record: a
// magic/version header, a single record with timestamp 1000, sequence 7,
// one byte of data, and the zero-length sentinel.
func TestInspectLogValidRecord(t *testing.T) {
	buf := EncodeLogHeader()
	buf = EncodeLogRecord(buf, LogRecord{Timestamp: 1000, Sequence: 7, Data: []byte{0xAA}})
	buf = EncodeLogSentinel(buf)

	result := InspectLog(buf)

	require.Empty(t, result.Error)
	require.Len(t, result.Records, 1)

	rec := result.Records[0]
	require.Equal(t, uint64(1000), rec.Timestamp)
	require.Equal(t, uint64(7), rec.Sequence)
	require.Equal(t, 1, rec.DataSize)

	var fieldTypes []FieldType
	for _, f := range rec.Fields {
		fieldTypes = append(fieldTypes, f.Type)
	}
	require.Equal(t, []FieldType{FieldLength, FieldTimestamp, FieldSequence, FieldData}, fieldTypes)

	last := result.Fields[len(result.Fields)-1]
	require.Equal(t, FieldTermination, last.Type)
}

// TestInspectSnapshotTruncatedHeader exercises a 3-byte truncated snapshot
// header and expects a single error field over offsets 0..3, a reported
// incomplete/zero document state, and the exact truncation message.
func TestInspectSnapshotTruncatedHeader(t *testing.T) {
	buf := []byte{'N', 'C', 'S'}

	result := InspectSnapshot(buf)

	require.False(t, result.Complete)
	require.Equal(t, 0, result.DocumentStateSize)
	require.Equal(t, "Truncated header: expected at least 6 bytes", result.Error)

	require.Len(t, result.Fields, 1)
	errField := result.Fields[0]
	require.Equal(t, FieldError, errField.Type)
	require.Equal(t, 0, errField.StartOffset)
	require.Equal(t, 3, errField.EndOffset)
}

func TestInspectLogTruncatedHeaderNeverErrors(t *testing.T) {
	result := InspectLog([]byte{'N', 'C'})
	require.NotEmpty(t, result.Error)
	require.Len(t, result.Fields, 1)
	require.Equal(t, FieldError, result.Fields[0].Type)
}

func TestInspectLogTruncatedRecordReportsPartial(t *testing.T) {
	buf := EncodeLogHeader()
	buf = EncodeLogRecord(buf, LogRecord{Timestamp: 1, Sequence: 1, Data: []byte{0x01}})
	full := EncodeLogRecord(nil, LogRecord{Timestamp: 2, Sequence: 2, Data: []byte{0x02, 0x03}})
	buf = append(buf, full[:len(full)-1]...) // chop the last byte of the second record

	result := InspectLog(buf)

	require.NotEmpty(t, result.Error)
	require.Len(t, result.Records, 1)
	require.Equal(t, uint64(1), result.Records[0].Timestamp)
}
