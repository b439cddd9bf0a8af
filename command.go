// Go MySQL Driver - A MySQL-Driver for Go's database/sql package
//
// Copyright 2012 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

// command.go implements the command pipeline (spec C6): COM_QUERY,
// COM_STMT_PREPARE/EXECUTE/CLOSE, and the OK/ERR/column-definition
// response parsing shared by all of them. Grounded on
// zhglin-mysql/packets.go's writeCommandPacket/readResultSetHeaderPacket/
// handleOkPacket/handleErrorPacket/readColumns/discardResults,
// generalized from database/sql/driver.Value to this module's Value.
package mysql

import (
	"context"
	"encoding/binary"
)

/******************************************************************************
*                              Command packets                                *
******************************************************************************/

// writeCommandPacket sends a bare one-byte command (spec §4.2).
func (mc *Conn) writeCommandPacket(command byte) error {
	mc.c.resetSequenceNumber()

	data, err := mc.c.takeSmallBuffer(4 + 1)
	if err != nil {
		return errBadConnNoWrite
	}
	data[4] = command
	return mc.c.write(data)
}

// writeCommandPacketStr sends command followed by arg (COM_QUERY,
// COM_INIT_DB), spec §4.2.
func (mc *Conn) writeCommandPacketStr(command byte, arg string) error {
	mc.c.resetSequenceNumber()

	data, err := mc.c.takeBuffer(4 + 1 + len(arg))
	if err != nil {
		return errBadConnNoWrite
	}
	data[4] = command
	copy(data[5:], arg)
	return mc.c.write(data)
}

// writeCommandPacketUint32 sends command followed by a little-endian
// uint32 (COM_STMT_CLOSE, COM_STMT_RESET), spec §4.6.
func (mc *Conn) writeCommandPacketUint32(command byte, arg uint32) error {
	mc.c.resetSequenceNumber()

	data, err := mc.c.takeSmallBuffer(4 + 1 + 4)
	if err != nil {
		return errBadConnNoWrite
	}
	data[4] = command
	binary.LittleEndian.PutUint32(data[5:9], arg)
	return mc.c.write(data)
}

/******************************************************************************
*                          OK / ERR response parsing                          *
******************************************************************************/

// okPacket is the parsed trailer of an OK packet (spec §4.3): affected
// rows, last insert id, status flags, and warning count.
type okPacket struct {
	affectedRows uint64
	lastInsertID uint64
	statusFlags  statusFlag
	warnings     uint16
	info         string
}

// isEOFOrOK reports whether data is the trailing marker that ends a
// row stream (spec §4.3/§4.7), given the connection's negotiated
// capabilities. 0x00 is never a terminator here: it is the binary-row
// header byte (decodeBinaryRow skips it as its first byte) and the
// zero-length marker of a length-encoded string, both of which
// are legitimate row data, not the header-stage OK case (that is
// handled separately by readResultSetHeaderPacket before any row is
// read). Only 0xFE ends the stream: unconditionally once
// CLIENT_DEPRECATE_EOF is negotiated (the server always emits it as
// an OK-formatted terminator there, per the teacher's
// binaryRows/textRows.readRow), otherwise only when short enough to
// be a genuine fixed-format EOF packet rather than an 8-byte
// length-encoded string prefix.
func isEOFOrOK(data []byte, flags clientFlag) bool {
	if len(data) == 0 || data[0] != iEOF {
		return false
	}
	if flags&clientDeprecateEOF != 0 {
		return true
	}
	return len(data) < 9
}

func parseOKPacket(data []byte, flags clientFlag) (okPacket, error) {
	var ok okPacket
	if len(data) < 1 {
		return ok, ErrIncompleteMessage
	}
	pos := 1

	affected, _, n := readLengthEncodedInteger(data[pos:])
	ok.affectedRows = affected
	pos += n

	insertID, _, n := readLengthEncodedInteger(data[pos:])
	ok.lastInsertID = insertID
	pos += n

	if flags&clientProtocol41 != 0 {
		if len(data) < pos+2 {
			return ok, ErrIncompleteMessage
		}
		ok.statusFlags = statusFlag(binary.LittleEndian.Uint16(data[pos : pos+2]))
		pos += 2

		if len(data) < pos+2 {
			return ok, ErrIncompleteMessage
		}
		ok.warnings = binary.LittleEndian.Uint16(data[pos : pos+2])
		pos += 2
	} else if flags&clientTransactions != 0 {
		if len(data) < pos+2 {
			return ok, ErrIncompleteMessage
		}
		ok.statusFlags = statusFlag(binary.LittleEndian.Uint16(data[pos : pos+2]))
		pos += 2
	}

	if pos < len(data) {
		ok.info = string(data[pos:])
	}
	return ok, nil
}

// parseErrorPacket converts an ERR packet into a *MySQLError (spec §4.3).
func parseErrorPacket(data []byte) error {
	if len(data) < 1 || data[0] != iERR {
		return ErrMalformedPacket
	}
	if len(data) < 3 {
		return ErrIncompleteMessage
	}

	errno := binary.LittleEndian.Uint16(data[1:3])
	pos := 3

	var sqlState string
	if len(data) > 3 && data[3] == '#' {
		if len(data) < 9 {
			return ErrIncompleteMessage
		}
		sqlState = string(data[4:9])
		pos = 9
	}

	return &MySQLError{
		Number:   errno,
		SQLState: sqlState,
		Message:  string(data[pos:]),
	}
}

// readResultOK reads and requires an OK response to the just-issued
// command (spec §4.2): COM_INIT_DB, COM_PING, and similar.
func (mc *Conn) readResultOK() (okPacket, error) {
	data, err := mc.c.read()
	if err != nil {
		return okPacket{}, err
	}
	if data[0] == iERR {
		return okPacket{}, parseErrorPacket(data)
	}
	ok, err := parseOKPacket(data, mc.flags)
	if err != nil {
		return ok, err
	}
	mc.status = ok.statusFlags
	return ok, nil
}

// readResultSetHeaderPacket reads the first packet of a COM_QUERY or
// COM_STMT_EXECUTE response and returns the column count, or handles it
// directly if it's an OK/ERR packet instead of a resultset (spec §4.2).
// When the response is an OK packet (no resultset), ok.affectedRows
// etc. are populated and count is 0.
func (mc *Conn) readResultSetHeaderPacket() (count int, ok okPacket, err error) {
	data, err := mc.c.read()
	if err != nil {
		return 0, okPacket{}, err
	}

	switch data[0] {
	case iOK:
		ok, err = parseOKPacket(data, mc.flags)
		if err != nil {
			return 0, okPacket{}, err
		}
		mc.status = ok.statusFlags
		return 0, ok, nil
	case iERR:
		return 0, okPacket{}, parseErrorPacket(data)
	}

	num, _, n := readLengthEncodedInteger(data)
	if n != len(data) {
		return 0, okPacket{}, ErrExtraBytes
	}
	return int(num), okPacket{}, nil
}

/******************************************************************************
*                          Column definitions / EOF                           *
******************************************************************************/

// readColumns reads count Column Definition packets (spec §4.3). If
// CLIENT_DEPRECATE_EOF was not negotiated, a trailing EOF packet is
// also consumed.
func (mc *Conn) readColumns(count int) ([]ColumnDef, error) {
	columns := make([]ColumnDef, count)

	for i := 0; i < count; i++ {
		data, err := mc.c.read()
		if err != nil {
			return nil, err
		}
		col, err := decodeColumnDef(data)
		if err != nil {
			return nil, err
		}
		columns[i] = col
	}

	if mc.flags&clientDeprecateEOF == 0 {
		if err := mc.readUntilEOF(); err != nil {
			return nil, err
		}
	}
	return columns, nil
}

// readUntilEOF drains packets until an EOF (or ERR) packet is seen,
// updating mc.status from it (spec §4.3).
func (mc *Conn) readUntilEOF() error {
	for {
		data, err := mc.c.read()
		if err != nil {
			return err
		}
		switch data[0] {
		case iERR:
			return parseErrorPacket(data)
		case iEOF:
			if len(data) == 5 {
				mc.status = statusFlag(binary.LittleEndian.Uint16(data[3:5]))
			}
			return nil
		}
	}
}

// discardResults drains any pending resultsets left by a multi-
// statement command (spec §4.6's MultiStatements support).
func (mc *Conn) discardResults() error {
	for mc.status&statusMoreResultsExists != 0 {
		resLen, _, err := mc.readResultSetHeaderPacket()
		if err != nil {
			return err
		}
		if resLen > 0 {
			if _, err := mc.readColumns(resLen); err != nil {
				return err
			}
			if err := mc.readUntilEOF(); err != nil {
				return err
			}
		}
	}
	return nil
}

/******************************************************************************
*                                Text queries                                 *
******************************************************************************/

// exec runs query as COM_QUERY and requires it to return no resultset
// (spec §4.2). Any resultset it does return is discarded.
func (mc *Conn) exec(query string) (okPacket, error) {
	if err := mc.writeCommandPacketStr(comQuery, query); err != nil {
		return okPacket{}, err
	}

	resLen, ok, err := mc.readResultSetHeaderPacket()
	if err != nil {
		return okPacket{}, err
	}
	if resLen > 0 {
		if _, err := mc.readColumns(resLen); err != nil {
			return okPacket{}, err
		}
		if err := mc.readUntilEOF(); err != nil {
			return okPacket{}, err
		}
		ok = okPacket{statusFlags: mc.status}
	}
	return ok, mc.discardResults()
}

// Query runs query as COM_QUERY and returns a streaming Rows over its
// resultset (spec §4.2, S1-S6). ctx governs cancellation of the
// blocking network I/O the command performs (spec §5).
func (mc *Conn) Query(ctx context.Context, query string) (*Rows, error) {
	if err := mc.watchCancel(ctx); err != nil {
		return nil, err
	}

	if err := mc.writeCommandPacketStr(comQuery, query); err != nil {
		mc.finish()
		return nil, err
	}

	resLen, ok, err := mc.readResultSetHeaderPacket()
	if err != nil {
		mc.finish()
		return nil, err
	}

	rows := &Rows{mc: mc, binary: false}
	if resLen == 0 {
		mc.finish()
		rows.done = true
		rows.summary = ok.summary()
		return rows, nil
	}

	columns, err := mc.readColumns(resLen)
	if err != nil {
		mc.finish()
		return nil, err
	}
	rows.columns = columns
	mc.openRows = rows
	return rows, nil
}

// Exec runs query as COM_QUERY and returns its OK trailer (spec §4.2)
// without expecting a resultset, e.g. INSERT/UPDATE/DDL.
func (mc *Conn) Exec(ctx context.Context, query string) (Result, error) {
	if err := mc.watchCancel(ctx); err != nil {
		return Result{}, err
	}
	defer mc.finish()

	ok, err := mc.exec(query)
	if err != nil {
		return Result{}, err
	}
	return Result{LastInsertID: ok.lastInsertID, RowsAffected: ok.affectedRows}, nil
}

// Result is the outcome of a non-resultset command (spec §4.2).
type Result struct {
	LastInsertID uint64
	RowsAffected uint64
}

/******************************************************************************
*                            Prepared statements                              *
******************************************************************************/

// Prepare sends COM_STMT_PREPARE for query and returns a bound Stmt
// (spec §4.6).
func (mc *Conn) Prepare(ctx context.Context, query string) (*Stmt, error) {
	if err := mc.watchCancel(ctx); err != nil {
		return nil, err
	}
	defer mc.finish()

	if err := mc.writeCommandPacketStr(comStmtPrepare, query); err != nil {
		return nil, err
	}

	stmt := &Stmt{mc: mc}
	columnCount, err := stmt.readPrepareResultPacket()
	if err != nil {
		return nil, err
	}

	if stmt.paramCount > 0 {
		if _, err := mc.readColumns(stmt.paramCount); err != nil {
			return nil, err
		}
	}
	if columnCount > 0 {
		columns, err := mc.readColumns(int(columnCount))
		if err != nil {
			return nil, err
		}
		stmt.columns = columns
	}

	return stmt, nil
}

// readPrepareResultPacket parses COM_STMT_PREPARE's OK response
// (spec §4.6), grounded on zhglin-mysql/packets.go's
// mysqlStmt.readPrepareResultPacket.
func (stmt *Stmt) readPrepareResultPacket() (uint16, error) {
	data, err := stmt.mc.c.read()
	if err != nil {
		return 0, err
	}
	if data[0] != iOK {
		return 0, parseErrorPacket(data)
	}

	stmt.id = binary.LittleEndian.Uint32(data[1:5])
	columnCount := binary.LittleEndian.Uint16(data[5:7])
	stmt.paramCount = int(binary.LittleEndian.Uint16(data[7:9]))
	return columnCount, nil
}

// Close sends COM_STMT_CLOSE, invalidating the statement (spec §4.6).
// The server sends no response to this command.
func (stmt *Stmt) Close() error {
	if stmt.closed {
		return nil
	}
	if mc := stmt.mc; mc != nil && mc.openRows != nil && !mc.openRows.done {
		return ErrSyncViolation
	}
	stmt.closed = true
	if stmt.mc == nil || !stmt.mc.IsValid() {
		return nil
	}
	return stmt.mc.writeCommandPacketUint32(comStmtClose, stmt.id)
}

// Query executes the prepared statement with args bound as parameters
// and returns a streaming binary Rows (spec §4.6).
func (stmt *Stmt) Query(ctx context.Context, args []Value) (*Rows, error) {
	mc := stmt.mc
	if stmt.closed || mc == nil || mc.closed.Load() {
		return nil, ErrStatementNotValid
	}
	if len(args) != stmt.paramCount {
		return nil, ErrWrongNumParams
	}

	if err := mc.watchCancel(ctx); err != nil {
		return nil, err
	}

	if err := stmt.writeExecutePacket(args); err != nil {
		mc.finish()
		return nil, err
	}

	resLen, ok, err := mc.readResultSetHeaderPacket()
	if err != nil {
		mc.finish()
		return nil, err
	}

	rows := &Rows{mc: mc, binary: true}
	if resLen == 0 {
		mc.finish()
		rows.done = true
		rows.summary = ok.summary()
		return rows, nil
	}

	columns, err := mc.readColumns(resLen)
	if err != nil {
		mc.finish()
		return nil, err
	}
	rows.columns = columns
	mc.openRows = rows
	return rows, nil
}

// Exec executes the prepared statement with args bound as parameters
// and returns its OK trailer (spec §4.6), for statements that produce
// no resultset.
func (stmt *Stmt) Exec(ctx context.Context, args []Value) (Result, error) {
	mc := stmt.mc
	if stmt.closed || mc == nil || mc.closed.Load() {
		return Result{}, ErrStatementNotValid
	}
	if len(args) != stmt.paramCount {
		return Result{}, ErrWrongNumParams
	}

	if err := mc.watchCancel(ctx); err != nil {
		return Result{}, err
	}
	defer mc.finish()

	if err := stmt.writeExecutePacket(args); err != nil {
		return Result{}, err
	}

	resLen, ok, err := mc.readResultSetHeaderPacket()
	if err != nil {
		return Result{}, err
	}
	if resLen > 0 {
		if _, err := mc.readColumns(resLen); err != nil {
			return Result{}, err
		}
		if err := mc.readUntilEOF(); err != nil {
			return Result{}, err
		}
		ok = okPacket{statusFlags: mc.status}
	}

	return Result{LastInsertID: ok.lastInsertID, RowsAffected: ok.affectedRows}, nil
}
