// Go MySQL Driver - A MySQL-Driver for Go's database/sql package
//
// Copyright 2013 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package mysql

import (
	"io"
	"time"
)

const defaultBufSize = 4096
const maxCachedBufSize = 256 * 1024

// Transport is any byte stream the engine can speak the wire protocol
// over: a plain TCP connection, a Unix/local stream socket, or a
// TLS-wrapped stream. The channel only reads and writes it, and (during
// the handshake) it may be replaced with a TLS-wrapped one around the
// same underlying socket. Connect opens the socket itself (through
// net.Dialer or a registered DialContextFunc); there is no entry point
// that accepts an already established Transport.
type Transport interface {
	io.Reader
	io.Writer
	io.Closer
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
}

// channel is the framed packet channel (spec C2): it fragments and
// reassembles MySQL packets and enforces per-command sequence-number
// discipline on top of a Transport. It is single-producer
// single-consumer — callers must not interleave unrelated reads and
// writes (spec §5).
//
// The buffer at its core is used for both reading and writing, which is
// possible because communication on a connection is synchronous: reads
// and writes never happen concurrently on the same channel. It is
// backed by two byte slices in a double-buffering scheme, similar to
// bufio.Reader/Writer but zero-copy-ish and tuned for this exact usage.
type channel struct {
	buf  []byte // buf is a byte buffer whose length and capacity are equal.
	nc   Transport
	idx  int
	length int

	readTimeout  time.Duration
	writeTimeout time.Duration

	dbuf    [2][]byte // the two byte slices backing the double buffer
	flipcnt uint      // flipcnt&1 selects the active dbuf index

	sequence byte // expected/next sequence number for the current command

	maxAllowedPacket int

	// poisoned records the first protocol or transport error seen on
	// this channel. Once set, every subsequent read/write returns it
	// immediately without touching the transport (spec §7).
	poisoned error
}

// newChannel allocates and returns a new channel over nc.
func newChannel(nc Transport) *channel {
	fg := make([]byte, defaultBufSize)
	return &channel{
		buf:              fg,
		nc:               nc,
		dbuf:             [2][]byte{fg, nil},
		maxAllowedPacket: maxPacketSize,
	}
}

// poison records err as the channel's sticky failure, if none is
// recorded yet, and returns the (possibly earlier) poisoning error.
func (c *channel) poison(err error) error {
	if err == nil {
		return nil
	}
	if c.poisoned == nil {
		c.poisoned = err
		errLog.Print(err)
	}
	return c.poisoned
}

// resetSequenceNumber is called by higher layers before every new
// command (spec C2).
func (c *channel) resetSequenceNumber() {
	c.sequence = 0
}

// flip replaces the active buffer with the background buffer. This is a
// delayed flip that simply increases the buffer counter; the actual
// flip happens the next time fill is called.
func (c *channel) flip() {
	c.flipcnt++
}

// fill reads into the buffer until at least need bytes are in it.
func (c *channel) fill(need int) error {
	n := c.length
	dest := c.dbuf[c.flipcnt&1]

	// grow buffer if necessary to fit the whole packet, rounding up to
	// the next multiple of the default size.
	if need > len(dest) {
		dest = make([]byte, ((need/defaultBufSize)+1)*defaultBufSize)

		// keep buffers that aren't too large as backing storage, to
		// avoid extra allocations for applications doing large reads.
		if len(dest) <= maxCachedBufSize {
			c.dbuf[c.flipcnt&1] = dest
		}
	}

	// if we're filling the fg buffer, move existing data to the front;
	// if we're filling the bg buffer, copy the data over.
	if n > 0 {
		copy(dest[:n], c.buf[c.idx:])
	}

	c.buf = dest
	c.idx = 0

	for {
		if c.readTimeout > 0 {
			if err := c.nc.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
				return err
			}
		}

		nn, err := c.nc.Read(c.buf[n:])
		n += nn

		switch err {
		case nil:
			if n < need {
				continue
			}
			c.length = n
			return nil

		case io.EOF:
			if n >= need {
				c.length = n
				return nil
			}
			return io.ErrUnexpectedEOF

		default:
			return err
		}
	}
}

// readNext returns the next N bytes from the buffer. The returned slice
// is only guaranteed to be valid until the next read (spec §5's field
// view invalidation rule).
func (c *channel) readNext(need int) ([]byte, error) {
	if c.length < need {
		if err := c.fill(need); err != nil {
			return nil, err
		}
	}

	offset := c.idx
	c.idx += need
	c.length -= need
	return c.buf[offset:c.idx], nil
}

// takeBuffer returns a buffer with the requested size. If possible, a
// slice of the existing buffer is returned; otherwise a bigger one is
// allocated. Only one buffer (total) may be in use at a time.
func (c *channel) takeBuffer(length int) ([]byte, error) {
	if c.length > 0 {
		return nil, ErrBusyBuffer
	}

	if length <= cap(c.buf) {
		return c.buf[:length], nil
	}

	if length < maxPacketSize {
		c.buf = make([]byte, length)
		return c.buf, nil
	}

	return make([]byte, length), nil
}

// takeSmallBuffer is a shortcut usable when length is known to be
// smaller than defaultBufSize.
func (c *channel) takeSmallBuffer(length int) ([]byte, error) {
	if c.length > 0 {
		return nil, ErrBusyBuffer
	}
	return c.buf[:length], nil
}

// takeCompleteBuffer returns the complete existing buffer, useful when
// the required size isn't known up front.
func (c *channel) takeCompleteBuffer() ([]byte, error) {
	if c.length > 0 {
		return nil, ErrBusyBuffer
	}
	return c.buf, nil
}

// store keeps buf as the channel's backing buffer if it's suitable to
// do so.
func (c *channel) store(buf []byte) error {
	if c.length > 0 {
		return ErrBusyBuffer
	} else if cap(buf) <= maxPacketSize && cap(buf) > cap(c.buf) {
		c.buf = buf[:cap(buf)]
	}
	return nil
}

// read implements the channel's read(buf) primitive (spec C2): it reads
// one full logical MySQL message (following the 0xFFFFFF-length
// continuation rule) and returns it. A sequence-number mismatch or
// transport failure poisons the channel.
func (c *channel) read() ([]byte, error) {
	if c.poisoned != nil {
		return nil, c.poisoned
	}

	var prevData []byte
	for {
		data, err := c.readNext(4)
		if err != nil {
			return nil, c.poison(err)
		}

		pktLen := int(uint32(data[0]) | uint32(data[1])<<8 | uint32(data[2])<<16)

		if data[3] != c.sequence {
			return nil, c.poison(ErrSequenceMismatch)
		}
		c.sequence++

		// a zero-length packet terminates a previous packet that was
		// itself exactly (2^24)-1 bytes long.
		if pktLen == 0 {
			if prevData == nil {
				return nil, c.poison(ErrMalformedPacket)
			}
			return prevData, nil
		}

		data, err = c.readNext(pktLen)
		if err != nil {
			return nil, c.poison(err)
		}

		if pktLen < maxPacketSize {
			if prevData == nil {
				return data, nil
			}
			return append(prevData, data...), nil
		}

		prevData = append(prevData, data...)
	}
}

// write implements the channel's write(body) primitive (spec C2): body
// must have 4 leading bytes reserved for the packet header. write
// fragments body into packets of at most 0xFFFFFF bytes, stamping each
// with the next sequence number, and sends a trailing empty packet when
// len(body)-4 is an exact multiple of 0xFFFFFF (including zero) so the
// server knows the logical message ended. Sends are atomic at the
// message level: any error once part of the message has reached the
// transport poisons the channel. ErrPacketTooLarge (detected before any
// I/O) and a first write that sent nothing (errBadConnNoWrite) do not.
func (c *channel) write(data []byte) error {
	if c.poisoned != nil {
		return c.poisoned
	}

	pktLen := len(data) - 4
	if pktLen > c.maxAllowedPacket {
		return ErrPacketTooLarge
	}
	totalLen := pktLen

	for {
		var size int
		if pktLen >= maxPacketSize {
			data[0] = 0xff
			data[1] = 0xff
			data[2] = 0xff
			size = maxPacketSize
		} else {
			data[0] = byte(pktLen)
			data[1] = byte(pktLen >> 8)
			data[2] = byte(pktLen >> 16)
			size = pktLen
		}
		data[3] = c.sequence

		if c.writeTimeout > 0 {
			if err := c.nc.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
				return c.poison(err)
			}
		}

		n, err := c.nc.Write(data[:4+size])
		if err == nil && n == 4+size {
			c.sequence++
			if size != maxPacketSize {
				return nil
			}
			pktLen -= size
			data = data[size:]
			continue
		}

		if err == nil { // n != len(data): a short write is still a poisoning failure
			return c.poison(ErrMalformedPacket)
		}
		if n == 0 && pktLen == totalLen {
			// nothing was written yet on the first iteration; safe for
			// the caller to treat as a fresh-connection failure.
			return errBadConnNoWrite
		}
		return c.poison(err)
	}
}
