// Go MySQL Driver - A MySQL-Driver for Go's database/sql package
//
// Copyright 2012 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

// packets.go implements the wire codec (spec C1): fixed/length-encoded
// integer and string primitives, and typed value serialization in both
// the text and binary resultset sub-protocols. Grounded on
// zhglin-mysql/packets.go's readColumns/binaryRows.readRow/
// writeExecutePacket, generalized from database/sql's driver.Value to
// this module's own Value union.
package mysql

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
)

/******************************************************************************
*                      Length-encoded integers/strings                       *
******************************************************************************/

// readLengthEncodedInteger reads a length-encoded integer (spec §4.1)
// from b. It returns the value, whether the leading byte was the NULL
// marker 0xFB, and the number of bytes consumed.
func readLengthEncodedInteger(b []byte) (num uint64, isNull bool, n int) {
	if len(b) == 0 {
		return 0, true, 1
	}

	switch b[0] {
	case 0xfb:
		return 0, true, 1
	case 0xfc:
		return uint64(b[1]) | uint64(b[2])<<8, false, 3
	case 0xfd:
		return uint64(b[1]) | uint64(b[2])<<8 | uint64(b[3])<<16, false, 4
	case 0xfe:
		return binary.LittleEndian.Uint64(b[1:9]), false, 9
	default:
		return uint64(b[0]), false, 1
	}
}

// appendLengthEncodedInteger appends n to b in length-encoded form.
func appendLengthEncodedInteger(b []byte, n uint64) []byte {
	switch {
	case n <= 250:
		return append(b, byte(n))
	case n <= 0xffff:
		return append(b, 0xfc, byte(n), byte(n>>8))
	case n <= 0xffffff:
		return append(b, 0xfd, byte(n), byte(n>>8), byte(n>>16))
	default:
		return append(b, 0xfe, byte(n), byte(n>>8), byte(n>>16), byte(n>>24),
			byte(n>>32), byte(n>>40), byte(n>>48), byte(n>>56))
	}
}

// readLengthEncodedString reads a length-encoded string from b. It
// returns the string bytes (a view into b), whether it was NULL, and
// the number of bytes consumed.
func readLengthEncodedString(b []byte) (data []byte, isNull bool, n int, err error) {
	num, isNull, n := readLengthEncodedInteger(b)
	if num < 1 {
		return b[n:n], isNull, n, nil
	}

	n += int(num)
	if len(b) >= n {
		return b[n-int(num) : n : n], false, n, nil
	}
	return nil, false, n, ErrIncompleteMessage
}

// skipLengthEncodedString returns the number of bytes a length-encoded
// string at the start of b occupies, without materializing it.
func skipLengthEncodedString(b []byte) (n int, err error) {
	num, _, n := readLengthEncodedInteger(b)
	if num < 1 {
		return n, nil
	}

	n += int(num)
	if len(b) >= n {
		return n, nil
	}
	return n, ErrIncompleteMessage
}

// readNullTerminatedString reads bytes up to and including the first
// zero byte, returning the string without the terminator and the
// number of bytes consumed including it.
func readNullTerminatedString(b []byte) (data []byte, n int, err error) {
	idx := bytes.IndexByte(b, 0x00)
	if idx < 0 {
		return nil, 0, ErrIncompleteMessage
	}
	return b[:idx], idx + 1, nil
}

/******************************************************************************
*                              Column metadata                                *
******************************************************************************/

// ColumnDef is the column metadata described by spec §3/§4.3.
type ColumnDef struct {
	Catalog   string
	Schema    string
	Table     string
	OrgTable  string
	Name      string
	OrgName   string
	Collation uint16
	Length    uint32
	Type      fieldType
	Flags     fieldFlag
	Decimals  uint8
}

// Unsigned reports whether integer values in this column decode as
// unsigned (spec §3: the UNSIGNED flag governs this).
func (c ColumnDef) Unsigned() bool { return c.Flags&flagUnsigned != 0 }

// Binary reports whether a BLOB-flagged column is binary (BLOB) rather
// than text (TEXT) — spec §3.
func (c ColumnDef) Binary() bool { return c.Flags&flagBinary != 0 }

// decodeColumnDef parses a single Column Definition packet body
// (spec §4.3), grounded on zhglin-mysql/packets.go's readColumns.
func decodeColumnDef(data []byte) (ColumnDef, error) {
	var col ColumnDef
	pos := 0

	catalog, _, n, err := readLengthEncodedString(data[pos:])
	if err != nil {
		return col, err
	}
	col.Catalog = string(catalog)
	pos += n

	schema, _, n, err := readLengthEncodedString(data[pos:])
	if err != nil {
		return col, err
	}
	col.Schema = string(schema)
	pos += n

	table, _, n, err := readLengthEncodedString(data[pos:])
	if err != nil {
		return col, err
	}
	col.Table = string(table)
	pos += n

	orgTable, _, n, err := readLengthEncodedString(data[pos:])
	if err != nil {
		return col, err
	}
	col.OrgTable = string(orgTable)
	pos += n

	name, _, n, err := readLengthEncodedString(data[pos:])
	if err != nil {
		return col, err
	}
	col.Name = string(name)
	pos += n

	orgName, _, n, err := readLengthEncodedString(data[pos:])
	if err != nil {
		return col, err
	}
	col.OrgName = string(orgName)
	pos += n

	// length of fixed fields, always 0x0c
	_, _, n = readLengthEncodedInteger(data[pos:])
	pos += n

	if pos+10 > len(data) {
		return col, ErrIncompleteMessage
	}

	col.Collation = binary.LittleEndian.Uint16(data[pos : pos+2])
	pos += 2

	col.Length = binary.LittleEndian.Uint32(data[pos : pos+4])
	pos += 4

	col.Type = fieldType(data[pos])
	pos++

	col.Flags = fieldFlag(binary.LittleEndian.Uint16(data[pos : pos+2]))
	pos += 2

	col.Decimals = data[pos]

	return col, nil
}

/******************************************************************************
*                          Typed text-value decode                            *
******************************************************************************/

// decodeTextValue decodes a single column's text-protocol bytes into a
// Value per spec §4.1's table.
func decodeTextValue(raw []byte, col ColumnDef) (Value, error) {
	switch col.Type {
	case fieldTypeTiny, fieldTypeShort, fieldTypeInt24, fieldTypeLong, fieldTypeLongLong:
		if col.Unsigned() {
			u, err := strconv.ParseUint(string(raw), 10, 64)
			if err != nil {
				return Value{}, ErrProtocolValue
			}
			return ValueFromUint64(u), nil
		}
		i, err := strconv.ParseInt(string(raw), 10, 64)
		if err != nil {
			return Value{}, ErrProtocolValue
		}
		return ValueFromInt64(i), nil

	case fieldTypeYear, fieldTypeBit:
		u, err := strconv.ParseUint(string(raw), 10, 64)
		if err != nil {
			return Value{}, ErrProtocolValue
		}
		return ValueFromUint64(u), nil

	case fieldTypeFloat:
		f, err := strconv.ParseFloat(string(raw), 32)
		if err != nil {
			return Value{}, ErrProtocolValue
		}
		return ValueFromFloat32(float32(f)), nil

	case fieldTypeDouble:
		f, err := strconv.ParseFloat(string(raw), 64)
		if err != nil {
			return Value{}, ErrProtocolValue
		}
		return ValueFromFloat64(f), nil

	case fieldTypeDate, fieldTypeNewDate:
		d, err := parseTextDate(raw)
		if err != nil {
			return Value{}, err
		}
		return ValueFromDate(d), nil

	case fieldTypeDateTime, fieldTypeTimestamp:
		dt, err := parseTextDateTime(raw)
		if err != nil {
			return Value{}, err
		}
		return ValueFromDateTime(dt), nil

	case fieldTypeTime:
		d, err := parseTextDuration(raw)
		if err != nil {
			return Value{}, err
		}
		return ValueFromDuration(d), nil

	default:
		// VARCHAR/VAR_STRING/STRING/BLOB/TEXT/DECIMAL/ENUM/SET/GEOMETRY/JSON
		return ValueFromString(raw), nil
	}
}

// encodeTextValue is the inverse of decodeTextValue for the types the
// text protocol can express; used by the codec round-trip test
// (spec §8, property 1). Query parameters are inlined into SQL text by
// the caller, not encoded by this engine, so this is exercised only by
// tests, not by the command pipeline.
func encodeTextValue(v Value) (string, bool) {
	switch v.Kind() {
	case KindInt64:
		i, _ := v.Int64()
		return strconv.FormatInt(i, 10), true
	case KindUint64:
		u, _ := v.Uint64()
		return strconv.FormatUint(u, 10), true
	case KindFloat32:
		f, _ := v.Float32()
		return strconv.FormatFloat(float64(f), 'g', -1, 32), true
	case KindFloat64:
		f, _ := v.Float64()
		return strconv.FormatFloat(f, 'g', -1, 64), true
	case KindString:
		s, _ := v.StringBytes()
		return string(s), true
	case KindDate:
		d, _ := v.Date()
		return d.String(), true
	case KindDateTime:
		dt, _ := v.DateTime()
		return dt.String(), true
	case KindDuration:
		d, _ := v.Duration()
		return d.String(), true
	default:
		return "", false
	}
}

func parseTextDate(raw []byte) (Date, error) {
	s := string(raw)
	if len(s) < 10 {
		return Date{}, ErrProtocolValue
	}
	y, err1 := strconv.ParseUint(s[0:4], 10, 16)
	m, err2 := strconv.ParseUint(s[5:7], 10, 8)
	d, err3 := strconv.ParseUint(s[8:10], 10, 8)
	if err1 != nil || err2 != nil || err3 != nil {
		return Date{}, ErrProtocolValue
	}
	return Date{Year: uint16(y), Month: uint8(m), Day: uint8(d)}, nil
}

func parseTextDateTime(raw []byte) (DateTime, error) {
	s := string(raw)
	if len(s) < 19 {
		return DateTime{}, ErrProtocolValue
	}
	date, err := parseTextDate(raw[:10])
	if err != nil {
		return DateTime{}, err
	}
	h, err1 := strconv.ParseUint(s[11:13], 10, 8)
	mi, err2 := strconv.ParseUint(s[14:16], 10, 8)
	se, err3 := strconv.ParseUint(s[17:19], 10, 8)
	if err1 != nil || err2 != nil || err3 != nil {
		return DateTime{}, ErrProtocolValue
	}
	var micro uint64
	if len(s) > 20 && s[19] == '.' {
		frac := s[20:]
		for len(frac) < 6 {
			frac += "0"
		}
		frac = frac[:6]
		micro, err = strconv.ParseUint(frac, 10, 32)
		if err != nil {
			return DateTime{}, ErrProtocolValue
		}
	}
	return DateTime{Date: date, Hour: uint8(h), Minute: uint8(mi), Second: uint8(se), Microsecond: uint32(micro)}, nil
}

func parseTextDuration(raw []byte) (Duration, error) {
	s := string(raw)
	neg := false
	if len(s) > 0 && s[0] == '-' {
		neg = true
		s = s[1:]
	}
	colon1 := bytes.IndexByte([]byte(s), ':')
	if colon1 < 0 {
		return Duration{}, ErrProtocolValue
	}
	h, err := strconv.ParseUint(s[:colon1], 10, 16)
	if err != nil || h > 838 {
		return Duration{}, ErrProtocolValue
	}
	rest := s[colon1+1:]
	if len(rest) < 5 {
		return Duration{}, ErrProtocolValue
	}
	mi, err1 := strconv.ParseUint(rest[0:2], 10, 8)
	se, err2 := strconv.ParseUint(rest[3:5], 10, 8)
	if err1 != nil || err2 != nil || rest[2] != ':' {
		return Duration{}, ErrProtocolValue
	}
	var micro uint64
	if len(rest) > 6 && rest[5] == '.' {
		frac := rest[6:]
		for len(frac) < 6 {
			frac += "0"
		}
		frac = frac[:6]
		micro, err = strconv.ParseUint(frac, 10, 32)
		if err != nil {
			return Duration{}, ErrProtocolValue
		}
	}
	return Duration{Negative: neg, Hours: uint16(h), Minutes: uint8(mi), Seconds: uint8(se), Microsecond: uint32(micro)}, nil
}

/******************************************************************************
*                         Typed binary-value decode                           *
******************************************************************************/

// decodeBinaryValue decodes one non-NULL column's binary-protocol bytes
// into a Value, per spec §4.1, returning the number of bytes consumed.
// Grounded on zhglin-mysql/packets.go's binaryRows.readRow switch.
func decodeBinaryValue(data []byte, col ColumnDef) (Value, int, error) {
	switch col.Type {
	case fieldTypeTiny:
		if len(data) < 1 {
			return Value{}, 0, ErrIncompleteMessage
		}
		if col.Unsigned() {
			return ValueFromUint64(uint64(data[0])), 1, nil
		}
		return ValueFromInt64(int64(int8(data[0]))), 1, nil

	case fieldTypeShort, fieldTypeYear:
		if len(data) < 2 {
			return Value{}, 0, ErrIncompleteMessage
		}
		u := binary.LittleEndian.Uint16(data[:2])
		if col.Type == fieldTypeYear {
			return ValueFromUint64(uint64(u)), 2, nil
		}
		if col.Unsigned() {
			return ValueFromUint64(uint64(u)), 2, nil
		}
		return ValueFromInt64(int64(int16(u))), 2, nil

	case fieldTypeInt24, fieldTypeLong:
		if len(data) < 4 {
			return Value{}, 0, ErrIncompleteMessage
		}
		u := binary.LittleEndian.Uint32(data[:4])
		if col.Unsigned() {
			return ValueFromUint64(uint64(u)), 4, nil
		}
		return ValueFromInt64(int64(int32(u))), 4, nil

	case fieldTypeLongLong:
		if len(data) < 8 {
			return Value{}, 0, ErrIncompleteMessage
		}
		u := binary.LittleEndian.Uint64(data[:8])
		if col.Unsigned() {
			return ValueFromUint64(u), 8, nil
		}
		return ValueFromInt64(int64(u)), 8, nil

	case fieldTypeBit:
		s, isNull, n, err := readLengthEncodedString(data)
		if err != nil {
			return Value{}, 0, err
		}
		if isNull {
			return Null, n, nil
		}
		var u uint64
		for _, b := range s {
			u = u<<8 | uint64(b)
		}
		return ValueFromUint64(u), n, nil

	case fieldTypeFloat:
		if len(data) < 4 {
			return Value{}, 0, ErrIncompleteMessage
		}
		return ValueFromFloat32(math.Float32frombits(binary.LittleEndian.Uint32(data[:4]))), 4, nil

	case fieldTypeDouble:
		if len(data) < 8 {
			return Value{}, 0, ErrIncompleteMessage
		}
		return ValueFromFloat64(math.Float64frombits(binary.LittleEndian.Uint64(data[:8]))), 8, nil

	case fieldTypeDecimal, fieldTypeNewDecimal, fieldTypeVarChar, fieldTypeEnum,
		fieldTypeSet, fieldTypeTinyBLOB, fieldTypeMediumBLOB, fieldTypeLongBLOB,
		fieldTypeBLOB, fieldTypeVarString, fieldTypeString, fieldTypeGeometry, fieldTypeJSON:
		s, isNull, n, err := readLengthEncodedString(data)
		if err != nil {
			return Value{}, 0, err
		}
		if isNull {
			return Null, n, nil
		}
		return ValueFromString(s), n, nil

	case fieldTypeDate, fieldTypeNewDate, fieldTypeDateTime, fieldTypeTimestamp:
		return decodeBinaryDateTime(data, col.Type == fieldTypeDate || col.Type == fieldTypeNewDate)

	case fieldTypeTime:
		return decodeBinaryDuration(data)

	case fieldTypeNULL:
		return Null, 0, nil

	default:
		return Value{}, 0, fmt.Errorf("unknown field type %d", col.Type)
	}
}

func decodeBinaryDateTime(data []byte, dateOnly bool) (Value, int, error) {
	if len(data) < 1 {
		return Value{}, 0, ErrIncompleteMessage
	}
	length := int(data[0])
	if len(data) < 1+length {
		return Value{}, 0, ErrIncompleteMessage
	}
	body := data[1 : 1+length]

	var dt DateTime
	switch length {
	case 0:
		// zero date/datetime
	case 4, 7, 11:
		dt.Year = binary.LittleEndian.Uint16(body[0:2])
		dt.Month = body[2]
		dt.Day = body[3]
		if length >= 7 {
			dt.Hour = body[4]
			dt.Minute = body[5]
			dt.Second = body[6]
		}
		if length == 11 {
			dt.Microsecond = binary.LittleEndian.Uint32(body[7:11])
		}
	default:
		return Value{}, 0, ErrProtocolValue
	}

	if dateOnly {
		return ValueFromDate(dt.Date), 1 + length, nil
	}
	return ValueFromDateTime(dt), 1 + length, nil
}

func decodeBinaryDuration(data []byte) (Value, int, error) {
	if len(data) < 1 {
		return Value{}, 0, ErrIncompleteMessage
	}
	length := int(data[0])
	if len(data) < 1+length {
		return Value{}, 0, ErrIncompleteMessage
	}
	body := data[1 : 1+length]

	var d Duration
	switch length {
	case 0:
	case 8, 12:
		d.Negative = body[0] != 0
		days := binary.LittleEndian.Uint32(body[1:5])
		d.Hours = uint16(days)*24 + uint16(body[5])
		d.Minutes = body[6]
		d.Seconds = body[7]
		if length == 12 {
			d.Microsecond = binary.LittleEndian.Uint32(body[8:12])
		}
	default:
		return Value{}, 0, ErrProtocolValue
	}

	return ValueFromDuration(d), 1 + length, nil
}

/******************************************************************************
*                         Typed binary-value encode                           *
******************************************************************************/

// binaryParamType returns the (field_type, sign-bit flag) pair used in
// COM_STMT_EXECUTE's parameter type list (spec §4.3) for v.
func binaryParamType(v Value) (fieldType, byte) {
	switch v.Kind() {
	case KindNull:
		return fieldTypeNULL, 0
	case KindInt64:
		return fieldTypeLongLong, 0
	case KindUint64:
		return fieldTypeLongLong, 0x80
	case KindString:
		return fieldTypeString, 0
	case KindFloat32:
		return fieldTypeFloat, 0
	case KindFloat64:
		return fieldTypeDouble, 0
	case KindDate:
		return fieldTypeDate, 0
	case KindDateTime:
		return fieldTypeDateTime, 0
	case KindDuration:
		return fieldTypeTime, 0
	default:
		return fieldTypeNULL, 0
	}
}

// appendBinaryValue is the inverse of decodeBinaryValue/decodeBinary*
// (spec C1.binary_encode): it appends v's binary-protocol encoding to
// buf. NULL values are not encoded here; callers signal NULL via the
// COM_STMT_EXECUTE NULL bitmap instead.
func appendBinaryValue(buf []byte, v Value) []byte {
	switch v.Kind() {
	case KindInt64:
		i, _ := v.Int64()
		var tmp [8]byte
		binary.LittleEndian.PutUint64(tmp[:], uint64(i))
		return append(buf, tmp[:]...)

	case KindUint64:
		u, _ := v.Uint64()
		var tmp [8]byte
		binary.LittleEndian.PutUint64(tmp[:], u)
		return append(buf, tmp[:]...)

	case KindFloat32:
		f, _ := v.Float32()
		var tmp [4]byte
		binary.LittleEndian.PutUint32(tmp[:], math.Float32bits(f))
		return append(buf, tmp[:]...)

	case KindFloat64:
		f, _ := v.Float64()
		var tmp [8]byte
		binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(f))
		return append(buf, tmp[:]...)

	case KindString:
		s, _ := v.StringBytes()
		buf = appendLengthEncodedInteger(buf, uint64(len(s)))
		return append(buf, s...)

	case KindDate:
		d, _ := v.Date()
		return appendBinaryDate(buf, d)

	case KindDateTime:
		dt, _ := v.DateTime()
		return appendBinaryDateTime(buf, dt)

	case KindDuration:
		d, _ := v.Duration()
		return appendBinaryDuration(buf, d)

	default:
		return buf
	}
}

func appendBinaryDate(buf []byte, d Date) []byte {
	if d.Year == 0 && d.Month == 0 && d.Day == 0 {
		return append(buf, 0)
	}
	buf = append(buf, 4)
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], d.Year)
	buf = append(buf, tmp[0], tmp[1], d.Month, d.Day)
	return buf
}

func appendBinaryDateTime(buf []byte, dt DateTime) []byte {
	var length byte
	switch {
	case dt.Year == 0 && dt.Month == 0 && dt.Day == 0:
		return append(buf, 0)
	case dt.Microsecond != 0:
		length = 11
	case dt.Hour != 0 || dt.Minute != 0 || dt.Second != 0:
		length = 7
	default:
		length = 4
	}
	buf = append(buf, length)
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], dt.Year)
	buf = append(buf, tmp[0], tmp[1], dt.Month, dt.Day)
	if length >= 7 {
		buf = append(buf, dt.Hour, dt.Minute, dt.Second)
	}
	if length == 11 {
		var us [4]byte
		binary.LittleEndian.PutUint32(us[:], dt.Microsecond)
		buf = append(buf, us[:]...)
	}
	return buf
}

func appendBinaryDuration(buf []byte, d Duration) []byte {
	if d.Hours == 0 && d.Minutes == 0 && d.Seconds == 0 && d.Microsecond == 0 && !d.Negative {
		return append(buf, 0)
	}
	length := byte(8)
	if d.Microsecond != 0 {
		length = 12
	}
	buf = append(buf, length)
	sign := byte(0)
	if d.Negative {
		sign = 1
	}
	days := uint32(d.Hours) / 24
	hours := uint8(uint32(d.Hours) % 24)
	var dbuf [4]byte
	binary.LittleEndian.PutUint32(dbuf[:], days)
	buf = append(buf, sign, dbuf[0], dbuf[1], dbuf[2], dbuf[3], hours, d.Minutes, d.Seconds)
	if length == 12 {
		var us [4]byte
		binary.LittleEndian.PutUint32(us[:], d.Microsecond)
		buf = append(buf, us[:]...)
	}
	return buf
}
