// Go MySQL Driver - A MySQL-Driver for Go's database/sql package
//
// Copyright 2012 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

// rows.go implements Rows (spec C7): the streaming row reader for both
// the text and binary resultset sub-protocols. Grounded on
// zhglin-mysql/packets.go's textRows.readRow and binaryRows.readRow,
// rewritten to decode into this module's own Value instead of
// database/sql/driver.Value, and to expose field views per spec §3
// rather than always copying.
package mysql

import (
	"encoding/binary"
	"io"
)

// Rows is the streaming result of Query or Stmt.Query (spec C7). Rows
// returned by Next are field views: valid only until the next call to
// Next, unless Detach'd (spec §3). Rows must be fully drained or
// Closed before the owning Conn issues another command; the owning
// Conn enforces this in watchCancel and fails the new command with
// ErrSyncViolation instead (spec §5).
type Rows struct {
	mc      *Conn
	binary  bool
	columns []ColumnDef
	done    bool
	summary ResultSummary
}

// RowsView is the non-owning batch of rows returned by ReadSome (spec
// §3/§9): each Value's string payload may reference the channel's
// shared read buffer directly and is invalidated by the resultset's
// next read. Detach individual Values, or use ReadAll, to retain data
// past that point.
type RowsView struct {
	Columns []ColumnDef
	Rows    [][]Value
}

// OwnedRow is a single row whose Value payloads have been copied out
// of the channel's read buffer (spec §3/§9's owned-row variant), safe
// to retain across further reads on the same Rows.
type OwnedRow []Value

// Columns returns the resultset's column metadata.
func (rs *Rows) Columns() []ColumnDef { return rs.columns }

// Result returns the resultset's trailer (spec §3). It is only
// meaningful once Next has returned io.EOF.
func (rs *Rows) Result() ResultSummary { return rs.summary }

// Complete reports whether the resultset has reached a terminal state
// (spec §6's resultset.complete()): true once ReadSome or Next has
// returned io.EOF (ReadAll returns nil at that point), and also once
// Next has returned a read error or a server ERR packet.
func (rs *Rows) Complete() bool { return rs.done }

// ReadSome reads and decodes the next batch of rows (spec §4.6's "read
// some rows" primitive, §9's streaming design). One MySQL row arrives
// per packet, so a batch is exactly one row; the returned RowsView is
// backed by the channel's shared read buffer and is invalidated by the
// resultset's next read.
func (rs *Rows) ReadSome() (RowsView, error) {
	view := RowsView{Columns: rs.columns}
	if rs.done {
		return view, io.EOF
	}

	row := make([]Value, len(rs.columns))
	if err := rs.Next(row); err != nil {
		return view, err
	}
	view.Rows = [][]Value{row}
	return view, nil
}

// ReadAll reads every remaining row, detaching each Value out of the
// channel's read buffer so the result outlives further reads (spec
// §9: "read_all is a convenience that calls read_some_rows repeatedly
// and concatenates").
func (rs *Rows) ReadAll() ([]OwnedRow, error) {
	var out []OwnedRow
	for {
		view, err := rs.ReadSome()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		for _, row := range view.Rows {
			owned := make(OwnedRow, len(row))
			for i, v := range row {
				owned[i] = v.Detach()
			}
			out = append(out, owned)
		}
	}
}

// markDone marks the resultset exhausted and releases the Conn's
// sync-violation guard (spec §5): a new command may now be issued
// without tripping ErrSyncViolation in watchCancel.
func (rs *Rows) markDone() {
	rs.done = true
	if rs.mc.openRows == rs {
		rs.mc.openRows = nil
	}
}

// Next advances to the next row, decoding it into dest, which must
// have exactly len(rs.Columns()) elements. It returns io.EOF once the
// resultset is exhausted, after which rs.mc is released back for the
// next command.
func (rs *Rows) Next(dest []Value) error {
	if rs.done {
		return io.EOF
	}
	mc := rs.mc

	data, err := mc.c.read()
	if err != nil {
		rs.markDone()
		mc.finish()
		return err
	}

	if data[0] == iERR {
		rs.markDone()
		mc.finish()
		return parseErrorPacket(data)
	}

	if isEOFOrOK(data, mc.flags) {
		if data[0] == iEOF && len(data) == 5 {
			mc.status = statusFlag(binary.LittleEndian.Uint16(data[3:5]))
			rs.summary = ResultSummary{Status: mc.status}
		} else {
			ok, err := parseOKPacket(data, mc.flags)
			if err != nil {
				rs.markDone()
				mc.finish()
				return err
			}
			mc.status = ok.statusFlags
			rs.summary = ok.summary()
		}
		rs.markDone()
		mc.finish()
		return io.EOF
	}

	if rs.binary {
		return rs.decodeBinaryRow(data, dest)
	}
	return rs.decodeTextRow(data, dest)
}

// decodeTextRow decodes one COM_QUERY text-protocol row (spec §4.1).
func (rs *Rows) decodeTextRow(data []byte, dest []Value) error {
	pos := 0
	for i, col := range rs.columns {
		raw, isNull, n, err := readLengthEncodedString(data[pos:])
		if err != nil {
			return err
		}
		pos += n

		if isNull {
			dest[i] = Null
			continue
		}

		v, err := decodeTextValue(raw, col)
		if err != nil {
			return err
		}
		dest[i] = v
	}
	return nil
}

// decodeBinaryRow decodes one COM_STMT_EXECUTE binary-protocol row
// (spec §4.1): a leading packet-header byte (always 0x00), a NULL
// bitmap offset by 2, then each non-NULL column's fixed/variable
// encoding in column order.
func (rs *Rows) decodeBinaryRow(data []byte, dest []Value) error {
	if len(data) < 1 {
		return ErrIncompleteMessage
	}
	pos := 1

	nullMaskLen := (len(rs.columns) + 7 + 2) / 8
	if len(data) < pos+nullMaskLen {
		return ErrIncompleteMessage
	}
	nullMask := data[pos : pos+nullMaskLen]
	pos += nullMaskLen

	for i, col := range rs.columns {
		bit := uint(i + 2)
		if nullMask[bit/8]&(1<<(bit%8)) != 0 {
			dest[i] = Null
			continue
		}

		v, n, err := decodeBinaryValue(data[pos:], col)
		if err != nil {
			return err
		}
		dest[i] = v
		pos += n
	}
	return nil
}

// Close drains any remaining rows without decoding them, releasing the
// connection for the next command (spec §5).
func (rs *Rows) Close() error {
	if rs.done {
		return nil
	}
	mc := rs.mc
	rs.markDone()

	scratch := make([]Value, len(rs.columns))
	for {
		if err := rs.drainOne(scratch); err != nil {
			if err == io.EOF {
				return nil
			}
			mc.finish()
			return err
		}
	}
}

// drainOne reads and discards a single row or trailer packet without
// updating rs.done, used only by Close's drain loop.
func (rs *Rows) drainOne(scratch []Value) error {
	mc := rs.mc
	data, err := mc.c.read()
	if err != nil {
		return err
	}
	if data[0] == iERR {
		return parseErrorPacket(data)
	}
	if isEOFOrOK(data, mc.flags) {
		mc.finish()
		return io.EOF
	}
	return nil
}
