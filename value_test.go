package mysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueEqual(t *testing.T) {
	assert.True(t, Null.Equal(Null))
	assert.True(t, ValueFromInt64(5).Equal(ValueFromUint64(5)))
	assert.True(t, ValueFromUint64(5).Equal(ValueFromInt64(5)))
	assert.False(t, ValueFromInt64(-1).Equal(ValueFromUint64(18446744073709551615)))
	assert.False(t, ValueFromInt64(1).Equal(ValueFromFloat64(1)))
	assert.True(t, ValueFromString([]byte("abc")).Equal(ValueFromString([]byte("abc"))))
	assert.False(t, ValueFromString([]byte("abc")).Equal(Null))
}

func TestValueDetachCopiesBackingBytes(t *testing.T) {
	buf := []byte("hello")
	v := ValueFromString(buf)
	detached := v.Detach()

	buf[0] = 'X'

	s, ok := detached.StringBytes()
	require.True(t, ok)
	assert.Equal(t, "hello", string(s))

	orig, _ := v.StringBytes()
	assert.Equal(t, "Xello", string(orig))
}

func TestDateTimeString(t *testing.T) {
	dt := DateTime{Date: Date{Year: 2024, Month: 1, Day: 2}, Hour: 3, Minute: 4, Second: 5}
	assert.Equal(t, "2024-01-02 03:04:05", dt.String())

	dt.Microsecond = 123
	assert.Equal(t, "2024-01-02 03:04:05.000123", dt.String())
}

func TestDurationAsTimeDuration(t *testing.T) {
	d := Duration{Negative: true, Hours: 1, Minutes: 30, Seconds: 0}
	got := d.AsTimeDuration()
	assert.Equal(t, -(90 * 60), int(got.Seconds()))
}
