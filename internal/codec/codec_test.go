package codec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVarintRoundTrip(t *testing.T) {
	for _, v := range []uint64{0, 1, 127, 128, 300, 1 << 20, 1 << 63} {
		buf := EncodeVarint(nil, v)
		got, n, err := DecodeVarint(buf, 0)
		require.NoError(t, err)
		require.Equal(t, len(buf), n)
		require.Equal(t, v, got)
	}
}

func TestTimestampRoundTrip(t *testing.T) {
	buf := EncodeTimestamp(nil, 1700000000123)
	got, err := DecodeTimestamp(buf, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(1700000000123), got)
}

func TestLogHeaderRoundTrip(t *testing.T) {
	hdr := EncodeLogHeader()
	res := ReadLogHeader(hdr)
	require.True(t, res.Valid)
	require.NoError(t, res.Err)
}

func TestLogHeaderRejectsBadMagic(t *testing.T) {
	hdr := []byte{'X', 'X', 'X', 'X', 1}
	res := ReadLogHeader(hdr)
	require.False(t, res.Valid)
	require.Error(t, res.Err)
}

func TestLogRecordRoundTrip(t *testing.T) {
	buf := EncodeLogHeader()
	buf = EncodeLogRecord(buf, LogRecord{Timestamp: 1000, Sequence: 7, Data: []byte{0xAA}})
	buf = EncodeLogSentinel(buf)

	records, err := ReadLogRecords(buf[LogHeaderSize:])
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, uint64(1000), records[0].Timestamp)
	require.Equal(t, uint64(7), records[0].Sequence)
	require.Equal(t, []byte{0xAA}, records[0].Data)
}

func TestSnapshotBodyRoundTrip(t *testing.T) {
	snap := Snapshot{
		VectorClock: []VectorClockEntry{
			{InstanceID: "inst-1", Sequence: 3, Offset: 128, Filename: "log-0001.bin"},
		},
		DocumentState: []byte{0x01, 0x02, 0x03},
	}
	buf := EncodeSnapshotBody(nil, snap)

	got, err := ReadSnapshotBody(buf)
	require.NoError(t, err)
	require.Equal(t, snap.VectorClock, got.VectorClock)
	require.Equal(t, snap.DocumentState, got.DocumentState)
}

func TestSnapshotHeaderTruncated(t *testing.T) {
	res := ReadSnapshotHeader([]byte{'N', 'C'})
	require.False(t, res.Valid)
	require.Error(t, res.Err)
}
