package mysql

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// panicTransport fails the test if touched after the channel using it
// has been poisoned, proving poison() short-circuits I/O.
type panicTransport struct {
	t      *testing.T
	usable bool
}

func (p *panicTransport) Read([]byte) (int, error) {
	if !p.usable {
		p.t.Fatal("read reached the transport after poisoning")
	}
	return 0, assertErrEOF
}
func (p *panicTransport) Write([]byte) (int, error) {
	if !p.usable {
		p.t.Fatal("write reached the transport after poisoning")
	}
	return 0, assertErrEOF
}
func (p *panicTransport) Close() error                     { return nil }
func (p *panicTransport) SetReadDeadline(time.Time) error  { return nil }
func (p *panicTransport) SetWriteDeadline(time.Time) error { return nil }

var assertErrEOF = errShortRead{}

type errShortRead struct{}

func (errShortRead) Error() string { return "short read" }

func TestChannelPoisonIsSticky(t *testing.T) {
	pt := &panicTransport{t: t, usable: true}
	c := newChannel(pt)

	_, err := c.read()
	require.Error(t, err)

	pt.usable = false // any further transport access now fails the test

	_, err2 := c.read()
	assert.Equal(t, err, err2)

	err3 := c.write(append(make([]byte, 4), []byte("x")...))
	assert.Equal(t, err, err3)
}
