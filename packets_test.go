package mysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLengthEncodedIntegerRoundTrip(t *testing.T) {
	cases := []uint64{0, 1, 250, 251, 65535, 65536, 0xffffff, 0x1000000, 1 << 40}
	for _, n := range cases {
		buf := appendLengthEncodedInteger(nil, n)
		got, isNull, consumed := readLengthEncodedInteger(buf)
		assert.False(t, isNull)
		assert.Equal(t, n, got)
		assert.Equal(t, len(buf), consumed)
	}
}

func TestReadLengthEncodedIntegerNull(t *testing.T) {
	_, isNull, n := readLengthEncodedInteger([]byte{0xfb})
	assert.True(t, isNull)
	assert.Equal(t, 1, n)
}

func TestLengthEncodedStringRoundTrip(t *testing.T) {
	want := "hello, world"
	buf := appendLengthEncodedInteger(nil, uint64(len(want)))
	buf = append(buf, want...)

	got, isNull, n, err := readLengthEncodedString(buf)
	require.NoError(t, err)
	assert.False(t, isNull)
	assert.Equal(t, want, string(got))
	assert.Equal(t, len(buf), n)
}

func TestDecodeTextValueIntegers(t *testing.T) {
	col := ColumnDef{Type: fieldTypeLongLong}
	v, err := decodeTextValue([]byte("-9223372036854775808"), col)
	require.NoError(t, err)
	i, ok := v.Int64()
	require.True(t, ok)
	assert.Equal(t, int64(-9223372036854775808), i)

	col.Flags = flagUnsigned
	v, err = decodeTextValue([]byte("18446744073709551615"), col)
	require.NoError(t, err)
	u, ok := v.Uint64()
	require.True(t, ok)
	assert.Equal(t, uint64(18446744073709551615), u)
}

func TestTextValueRoundTrip(t *testing.T) {
	col := ColumnDef{Type: fieldTypeLong}
	v, err := decodeTextValue([]byte("42"), col)
	require.NoError(t, err)

	s, ok := encodeTextValue(v)
	require.True(t, ok)
	assert.Equal(t, "42", s)
}

func TestDecodeColumnDef(t *testing.T) {
	var data []byte
	data = appendLengthEncodedInteger(data, 3)
	data = append(data, "def"...)
	data = appendLengthEncodedInteger(data, 4)
	data = append(data, "test"...)
	data = appendLengthEncodedInteger(data, 5)
	data = append(data, "users"...)
	data = appendLengthEncodedInteger(data, 5)
	data = append(data, "users"...)
	data = appendLengthEncodedInteger(data, 2)
	data = append(data, "id"...)
	data = appendLengthEncodedInteger(data, 2)
	data = append(data, "id"...)
	data = appendLengthEncodedInteger(data, 0x0c) // fixed-length fields marker
	data = append(data,
		45, 0, // collation
		11, 0, 0, 0, // length
		byte(fieldTypeLong), // type
		0, 0,                // flags
		0, // decimals
	)

	col, err := decodeColumnDef(data)
	require.NoError(t, err)
	assert.Equal(t, "users", col.Table)
	assert.Equal(t, "id", col.Name)
	assert.Equal(t, fieldTypeLong, col.Type)
	assert.Equal(t, uint32(11), col.Length)
}

func TestDecodeBinaryValueLongLong(t *testing.T) {
	col := ColumnDef{Type: fieldTypeLongLong}
	data := []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff} // -1
	v, n, err := decodeBinaryValue(data, col)
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	i, _ := v.Int64()
	assert.Equal(t, int64(-1), i)
}

func TestBinaryDateTimeRoundTrip(t *testing.T) {
	dt := DateTime{Date: Date{Year: 2024, Month: 3, Day: 15}, Hour: 12, Minute: 30, Second: 5, Microsecond: 42}
	buf := appendBinaryDateTime(nil, dt)

	v, n, err := decodeBinaryDateTime(buf, false)
	require.NoError(t, err)
	assert.Equal(t, len(buf), n)
	got, ok := v.DateTime()
	require.True(t, ok)
	assert.Equal(t, dt, got)
}

func TestBinaryDurationRoundTrip(t *testing.T) {
	d := Duration{Negative: true, Hours: 100, Minutes: 15, Seconds: 30, Microsecond: 7}
	buf := appendBinaryDuration(nil, d)

	v, n, err := decodeBinaryDuration(buf)
	require.NoError(t, err)
	assert.Equal(t, len(buf), n)
	got, ok := v.Duration()
	require.True(t, ok)
	assert.Equal(t, d, got)
}

func TestIsEOFOrOKNeverMatchesBinaryRowHeaderByte(t *testing.T) {
	// A binary row always starts with 0x00, the same byte as an OK
	// packet header; it must never be classified as a terminator.
	row := []byte{0x00, 0x00, 42}
	assert.False(t, isEOFOrOK(row, 0))
	assert.False(t, isEOFOrOK(row, clientDeprecateEOF))
}

func TestIsEOFOrOKNeverMatchesEmptyLenencString(t *testing.T) {
	// A text row whose first column is an empty string is also a
	// single 0x00 byte; it must decode as a row, not a terminator.
	row := []byte{0x00}
	assert.False(t, isEOFOrOK(row, 0))
}

func TestIsEOFOrOKMatchesFixedFormatEOF(t *testing.T) {
	eof := []byte{iEOF, 0, 0, 0, 0}
	assert.True(t, isEOFOrOK(eof, 0))
}

func TestIsEOFOrOKDeprecateEOFIgnoresLengthOfInfoString(t *testing.T) {
	// Under CLIENT_DEPRECATE_EOF the row-stream terminator is an
	// OK-formatted packet that may carry a trailing info string,
	// making it far longer than a fixed 5-byte EOF packet.
	terminator := append([]byte{iEOF, 0, 0, 0, 0}, "Rows matched: 1"...)
	assert.True(t, isEOFOrOK(terminator, clientDeprecateEOF))
	assert.False(t, isEOFOrOK(terminator, 0))
}

func TestParseTextDuration(t *testing.T) {
	d, err := parseTextDuration([]byte("-838:59:59"))
	require.NoError(t, err)
	assert.True(t, d.Negative)
	assert.Equal(t, uint16(838), d.Hours)

	_, err = parseTextDuration([]byte("999:00:00"))
	assert.Error(t, err)
}
