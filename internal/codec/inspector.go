package codec

import "strconv"

// FieldType classifies one entry in an inspector's flat field list.
type FieldType string

const (
	FieldMagic       FieldType = "magic"
	FieldVersion     FieldType = "version"
	FieldStatus      FieldType = "status"
	FieldTimestamp   FieldType = "timestamp"
	FieldSequence    FieldType = "sequence"
	FieldLength      FieldType = "length"
	FieldData        FieldType = "data"
	FieldError       FieldType = "error"
	FieldVectorClock FieldType = "vectorClock"
	FieldTermination FieldType = "termination"
)

// Field is one named, offset-tracked value surfaced by the inspector. It
// never represents a thrown exception — parse failures are themselves
// Fields of Type FieldError, per spec §7's "never throw upward" policy.
type Field struct {
	Name        string
	Value       any
	StartOffset int
	EndOffset   int
	Type        FieldType
}

// InspectedRecord is one fully-parsed log record, offset-annotated.
type InspectedRecord struct {
	Timestamp   uint64
	Sequence    uint64
	DataSize    int
	StartOffset int
	EndOffset   int
	Fields      []Field
}

// LogInspection is the full result of running the offset-tracking parser
// over a log file.
type LogInspection struct {
	Fields  []Field
	Records []InspectedRecord
	Error   string
}

// InspectLog parses buf field-by-field, recording byte offsets for every
// field and record so a human (or the notecove-store CLI) can audit a log
// file byte-for-byte. It never panics or returns a Go error — malformed
// input surfaces as Fields of Type FieldError plus a top-level Error
// string, so a partially-corrupt file still yields every record parsed
// before the corruption.
func InspectLog(buf []byte) LogInspection {
	var result LogInspection

	if len(buf) < LogHeaderSize {
		result.Fields = append(result.Fields, Field{
			Name: "header", Type: FieldError, StartOffset: 0, EndOffset: len(buf),
			Value: "truncated header: need " + strconv.Itoa(LogHeaderSize) + " bytes",
		})
		result.Error = "truncated header: need " + strconv.Itoa(LogHeaderSize) + " bytes"
		return result
	}

	result.Fields = append(result.Fields,
		Field{Name: "magic", Value: string(buf[0:4]), StartOffset: 0, EndOffset: 4, Type: FieldMagic},
		Field{Name: "version", Value: buf[4], StartOffset: 4, EndOffset: 5, Type: FieldVersion},
	)

	hdr := ReadLogHeader(buf)
	if !hdr.Valid {
		result.Fields = append(result.Fields, Field{
			Name: "header", Type: FieldError, StartOffset: 0, EndOffset: LogHeaderSize, Value: hdr.Err.Error(),
		})
		result.Error = hdr.Err.Error()
		return result
	}

	offset := LogHeaderSize
	for offset < len(buf) {
		lenStart := offset
		payloadLen, n, err := DecodeVarint(buf, offset)
		if err != nil {
			result.Fields = append(result.Fields, Field{
				Name: "length", Type: FieldError, StartOffset: lenStart, EndOffset: len(buf), Value: err.Error(),
			})
			result.Error = err.Error()
			return result
		}
		lenField := Field{
			Name: "length", Value: payloadLen, StartOffset: lenStart, EndOffset: offset + n, Type: FieldLength,
		}
		offset += n
		result.Fields = append(result.Fields, lenField)

		if payloadLen == 0 {
			result.Fields = append(result.Fields, Field{
				Name: "termination", StartOffset: lenStart, EndOffset: offset, Type: FieldTermination,
			})
			return result
		}

		rec, recFields, consumed, err := inspectRecordPayload(buf, offset, payloadLen)
		recFields = append([]Field{lenField}, recFields...)
		if err != nil {
			result.Fields = append(result.Fields, recFields[1:]...)
			result.Fields = append(result.Fields, Field{
				Name: "data", Type: FieldError, StartOffset: offset, EndOffset: len(buf), Value: err.Error(),
			})
			result.Error = err.Error()
			return result
		}
		result.Fields = append(result.Fields, recFields[1:]...)
		rec.StartOffset = lenStart
		rec.EndOffset = offset + consumed
		rec.Fields = recFields
		result.Records = append(result.Records, rec)
		offset += consumed
	}

	return result
}

func inspectRecordPayload(buf []byte, offset int, payloadLen uint64) (InspectedRecord, []Field, int, error) {
	var fields []Field
	end := offset + int(payloadLen)
	if end > len(buf) {
		return InspectedRecord{}, fields, 0, &FormatError{
			Offset: offset,
			Reason: "truncated record payload: need " + strconv.Itoa(int(payloadLen)) +
				" bytes, missing " + strconv.Itoa(end-len(buf)) + " bytes",
		}
	}

	tsStart := offset
	ts, err := DecodeTimestamp(buf, offset)
	if err != nil {
		return InspectedRecord{}, fields, 0, err
	}
	fields = append(fields, Field{Name: "timestamp", Value: ts, StartOffset: tsStart, EndOffset: tsStart + 8, Type: FieldTimestamp})
	offset += 8

	seqStart := offset
	seq, seqBytes, err := DecodeVarint(buf, offset)
	if err != nil {
		return InspectedRecord{}, fields, 0, err
	}
	fields = append(fields, Field{Name: "sequence", Value: seq, StartOffset: seqStart, EndOffset: seqStart + seqBytes, Type: FieldSequence})
	offset += seqBytes

	dataLen := int64(payloadLen) - 8 - int64(seqBytes)
	if dataLen < 0 {
		return InspectedRecord{}, fields, 0, &FormatError{
			Offset: offset,
			Reason: "payload length too small for timestamp and sequence",
		}
	}
	fields = append(fields, Field{Name: "data", Value: buf[offset:end], StartOffset: offset, EndOffset: end, Type: FieldData})

	return InspectedRecord{Timestamp: ts, Sequence: seq, DataSize: int(dataLen)}, fields, int(payloadLen), nil
}

// SnapshotInspection is the full result of running the offset-tracking
// parser over a snapshot file.
type SnapshotInspection struct {
	Fields            []Field
	Complete          bool
	VectorClock       []VectorClockEntry
	DocumentStateSize int
	Error             string
}

// InspectSnapshot parses buf field-by-field like InspectLog; it never
// returns a Go error, surfacing malformed input as a FieldError plus a
// top-level Error string.
func InspectSnapshot(buf []byte) SnapshotInspection {
	var result SnapshotInspection

	if len(buf) < SnapshotHeaderSize {
		msg := "Truncated header: expected at least " + strconv.Itoa(SnapshotHeaderSize) + " bytes"
		result.Fields = append(result.Fields, Field{
			Name: "header", Type: FieldError, StartOffset: 0, EndOffset: len(buf), Value: msg,
		})
		result.Error = msg
		return result
	}

	result.Fields = append(result.Fields,
		Field{Name: "magic", Value: string(buf[0:4]), StartOffset: 0, EndOffset: 4, Type: FieldMagic},
		Field{Name: "version", Value: buf[4], StartOffset: 4, EndOffset: 5, Type: FieldVersion},
		Field{Name: "status", Value: buf[5], StartOffset: 5, EndOffset: 6, Type: FieldStatus},
	)

	hdr := ReadSnapshotHeader(buf)
	if !hdr.Valid {
		result.Fields = append(result.Fields, Field{
			Name: "header", Type: FieldError, StartOffset: 0, EndOffset: SnapshotHeaderSize, Value: hdr.Err.Error(),
		})
		result.Error = hdr.Err.Error()
		return result
	}
	result.Complete = hdr.Complete

	offset := SnapshotHeaderSize
	countStart := offset
	count, n, err := DecodeVarint(buf, offset)
	if err != nil {
		result.Fields = append(result.Fields, Field{
			Name: "entryCount", Type: FieldError, StartOffset: countStart, EndOffset: len(buf), Value: err.Error(),
		})
		result.Error = err.Error()
		return result
	}
	offset += n
	result.Fields = append(result.Fields, Field{
		Name: "entryCount", Value: count, StartOffset: countStart, EndOffset: offset, Type: FieldVectorClock,
	})

	for i := uint64(0); i < count; i++ {
		entry, consumed, err := decodeVectorClockEntry(buf, offset)
		if err != nil {
			result.Fields = append(result.Fields, Field{
				Name: "vectorClockEntry", Type: FieldError, StartOffset: offset, EndOffset: len(buf), Value: err.Error(),
			})
			result.Error = err.Error()
			return result
		}
		result.Fields = append(result.Fields, Field{
			Name: "vectorClockEntry", Value: entry, StartOffset: offset, EndOffset: offset + consumed, Type: FieldVectorClock,
		})
		result.VectorClock = append(result.VectorClock, entry)
		offset += consumed
	}

	result.DocumentStateSize = len(buf) - offset
	result.Fields = append(result.Fields, Field{
		Name: "documentState", Value: result.DocumentStateSize, StartOffset: offset, EndOffset: len(buf), Type: FieldData,
	})

	return result
}
