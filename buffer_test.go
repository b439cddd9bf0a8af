package mysql

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTransport is an in-memory Transport backed by two buffers, one
// for each direction, used to drive channel's framing logic without a
// real socket.
type fakeTransport struct {
	in  *bytes.Buffer
	out *bytes.Buffer
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{in: new(bytes.Buffer), out: new(bytes.Buffer)}
}

func (f *fakeTransport) Read(p []byte) (int, error)  { return f.in.Read(p) }
func (f *fakeTransport) Write(p []byte) (int, error) { return f.out.Write(p) }
func (f *fakeTransport) Close() error                { return nil }
func (f *fakeTransport) SetReadDeadline(time.Time) error  { return nil }
func (f *fakeTransport) SetWriteDeadline(time.Time) error { return nil }

func TestChannelWriteFramesHeader(t *testing.T) {
	ft := newFakeTransport()
	c := newChannel(ft)

	body := append(make([]byte, 4), []byte("SELECT 1")...)
	require.NoError(t, c.write(body))

	written := ft.out.Bytes()
	pktLen := int(written[0]) | int(written[1])<<8 | int(written[2])<<16
	assert.Equal(t, len("SELECT 1"), pktLen)
	assert.Equal(t, byte(0), written[3])
	assert.Equal(t, "SELECT 1", string(written[4:]))
}

func TestChannelReadReassemblesPacket(t *testing.T) {
	ft := newFakeTransport()
	c := newChannel(ft)

	payload := []byte("hello world")
	ft.in.WriteByte(byte(len(payload)))
	ft.in.WriteByte(0)
	ft.in.WriteByte(0)
	ft.in.WriteByte(0) // sequence 0
	ft.in.Write(payload)

	got, err := c.read()
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestChannelReadSequenceMismatchPoisons(t *testing.T) {
	ft := newFakeTransport()
	c := newChannel(ft)

	ft.in.WriteByte(0)
	ft.in.WriteByte(0)
	ft.in.WriteByte(0)
	ft.in.WriteByte(5) // wrong sequence, expected 0

	_, err := c.read()
	assert.ErrorIs(t, err, ErrSequenceMismatch)

	// the channel is now poisoned: further reads fail immediately
	// without touching the transport again.
	_, err = c.read()
	assert.ErrorIs(t, err, ErrSequenceMismatch)
}

func TestChannelReadUnexpectedEOF(t *testing.T) {
	ft := newFakeTransport()
	c := newChannel(ft)

	ft.in.Write([]byte{5, 0, 0, 0, 'a', 'b'}) // declares 5 bytes, only 2 present

	_, err := c.read()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}
