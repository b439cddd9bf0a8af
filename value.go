// Package mysql — value.go implements the tagged-union field value
// described by spec §3 and §9. It has no direct model in the teacher's
// database/sql-oriented code (database/sql's driver.Value interface{} is
// exactly the "user-facing wrapper" layer this module does not build);
// the closed-tagged-union-with-kind-accessors shape follows the pattern
// vitessio-vitess/go/sqltypes uses for its own typed row values.
package mysql

import (
	"fmt"
	"time"
)

// Kind identifies which variant a Value holds. The order matches spec §9's
// mandated wire/equality index order.
type Kind uint8

const (
	KindNull Kind = iota
	KindInt64
	KindUint64
	KindString
	KindFloat32
	KindFloat64
	KindDate
	KindDateTime
	KindDuration
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt64:
		return "int64"
	case KindUint64:
		return "uint64"
	case KindString:
		return "string"
	case KindFloat32:
		return "float32"
	case KindFloat64:
		return "float64"
	case KindDate:
		return "date"
	case KindDateTime:
		return "datetime"
	case KindDuration:
		return "duration"
	default:
		return "unknown"
	}
}

// Date is a calendar date: year 0-9999, month 1-12, day 1-31. It is not
// time.Time because the wire format permits the zero date "0000-00-00",
// which time.Time cannot represent.
type Date struct {
	Year  uint16
	Month uint8
	Day   uint8
}

// ToTime converts the date to a time.Time in loc. The zero date maps to
// the zero time.Time.
func (d Date) ToTime(loc *time.Location) time.Time {
	if d.Year == 0 && d.Month == 0 && d.Day == 0 {
		return time.Time{}
	}
	return time.Date(int(d.Year), time.Month(d.Month), int(d.Day), 0, 0, 0, 0, loc)
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// DateTime is a calendar date plus a time-of-day with microsecond
// resolution, mirroring MYSQL's DATETIME/TIMESTAMP wire format.
type DateTime struct {
	Date
	Hour       uint8
	Minute     uint8
	Second     uint8
	Microsecond uint32
}

// ToTime converts the value to a time.Time in loc.
func (dt DateTime) ToTime(loc *time.Location) time.Time {
	if dt.Year == 0 && dt.Month == 0 && dt.Day == 0 {
		return time.Time{}
	}
	return time.Date(int(dt.Year), time.Month(dt.Month), int(dt.Day),
		int(dt.Hour), int(dt.Minute), int(dt.Second), int(dt.Microsecond)*1000, loc)
}

func (dt DateTime) String() string {
	s := fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d", dt.Year, dt.Month, dt.Day, dt.Hour, dt.Minute, dt.Second)
	if dt.Microsecond > 0 {
		s += fmt.Sprintf(".%06d", dt.Microsecond)
	}
	return s
}

// Duration is a MySQL TIME value: a signed duration with |hours| <= 838.
// The zero duration carries no sign, matching spec §3.
type Duration struct {
	Negative    bool
	Hours       uint16 // 0..838
	Minutes     uint8
	Seconds     uint8
	Microsecond uint32
}

func (d Duration) String() string {
	sign := ""
	if d.Negative {
		sign = "-"
	}
	s := fmt.Sprintf("%s%03d:%02d:%02d", sign, d.Hours, d.Minutes, d.Seconds)
	if d.Microsecond > 0 {
		s += fmt.Sprintf(".%06d", d.Microsecond)
	}
	return s
}

// AsTimeDuration converts to a time.Duration (loses nothing within the
// |hours| <= 838 range time.Duration can represent).
func (d Duration) AsTimeDuration() time.Duration {
	td := time.Duration(d.Hours)*time.Hour +
		time.Duration(d.Minutes)*time.Minute +
		time.Duration(d.Seconds)*time.Second +
		time.Duration(d.Microsecond)*time.Microsecond
	if d.Negative {
		td = -td
	}
	return td
}

// Value is the tagged union field value described by spec §3: null,
// signed/unsigned 64-bit integer, byte-safe string, float32/float64,
// date, datetime, or time (duration). A Value carries no MySQL type id
// beyond its variant tag.
type Value struct {
	kind Kind
	i    int64
	u    uint64
	f32  float32
	f64  float64
	s    []byte
	dt   DateTime
	dur  Duration
}

// Null is the null variant.
var Null = Value{kind: KindNull}

func ValueFromInt64(v int64) Value      { return Value{kind: KindInt64, i: v} }
func ValueFromUint64(v uint64) Value    { return Value{kind: KindUint64, u: v} }
func ValueFromString(v []byte) Value    { return Value{kind: KindString, s: v} }
func ValueFromFloat32(v float32) Value  { return Value{kind: KindFloat32, f32: v} }
func ValueFromFloat64(v float64) Value  { return Value{kind: KindFloat64, f64: v} }
func ValueFromDate(v Date) Value        { return Value{kind: KindDate, dt: DateTime{Date: v}} }
func ValueFromDateTime(v DateTime) Value { return Value{kind: KindDateTime, dt: v} }
func ValueFromDuration(v Duration) Value { return Value{kind: KindDuration, dur: v} }

// Kind reports which variant v holds.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is the null variant.
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) Int64() (int64, bool) {
	if v.kind != KindInt64 {
		return 0, false
	}
	return v.i, true
}

func (v Value) Uint64() (uint64, bool) {
	if v.kind != KindUint64 {
		return 0, false
	}
	return v.u, true
}

// StringBytes returns the raw bytes of a string variant. The returned
// slice may alias a caller-owned buffer (a "field view", spec §3): it is
// only valid until the next read on the connection that produced it,
// unless the Value was obtained from an owned row.
func (v Value) StringBytes() ([]byte, bool) {
	if v.kind != KindString {
		return nil, false
	}
	return v.s, true
}

func (v Value) Float32() (float32, bool) {
	if v.kind != KindFloat32 {
		return 0, false
	}
	return v.f32, true
}

func (v Value) Float64() (float64, bool) {
	if v.kind != KindFloat64 {
		return 0, false
	}
	return v.f64, true
}

func (v Value) Date() (Date, bool) {
	if v.kind != KindDate {
		return Date{}, false
	}
	return v.dt.Date, true
}

func (v Value) DateTime() (DateTime, bool) {
	if v.kind != KindDateTime {
		return DateTime{}, false
	}
	return v.dt, true
}

func (v Value) Duration() (Duration, bool) {
	if v.kind != KindDuration {
		return Duration{}, false
	}
	return v.dur, true
}

// Detach copies any backing byte slice so v no longer aliases a buffer
// that may be reused by a subsequent read (turning a field view into an
// owned field, spec §3).
func (v Value) Detach() Value {
	if v.kind != KindString || v.s == nil {
		return v
	}
	cp := make([]byte, len(v.s))
	copy(cp, v.s)
	v.s = cp
	return v
}

// Equal implements spec §3's equality rule: by-variant then by-value,
// with the exception that a signed and an unsigned integer compare equal
// when both are non-negative and numerically equal. Two distinct
// variants never compare equal (with that one exception).
func (v Value) Equal(o Value) bool {
	if v.kind == o.kind {
		switch v.kind {
		case KindNull:
			return true
		case KindInt64:
			return v.i == o.i
		case KindUint64:
			return v.u == o.u
		case KindString:
			return string(v.s) == string(o.s)
		case KindFloat32:
			return v.f32 == o.f32
		case KindFloat64:
			return v.f64 == o.f64
		case KindDate:
			return v.dt.Date == o.dt.Date
		case KindDateTime:
			return v.dt == o.dt
		case KindDuration:
			return v.dur == o.dur
		}
	}

	if v.kind == KindInt64 && o.kind == KindUint64 {
		return v.i >= 0 && uint64(v.i) == o.u
	}
	if v.kind == KindUint64 && o.kind == KindInt64 {
		return o.i >= 0 && uint64(o.i) == v.u
	}
	return false
}

func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "NULL"
	case KindInt64:
		return fmt.Sprintf("%d", v.i)
	case KindUint64:
		return fmt.Sprintf("%d", v.u)
	case KindString:
		return string(v.s)
	case KindFloat32:
		return fmt.Sprintf("%v", v.f32)
	case KindFloat64:
		return fmt.Sprintf("%v", v.f64)
	case KindDate:
		return v.dt.Date.String()
	case KindDateTime:
		return v.dt.String()
	case KindDuration:
		return v.dur.String()
	default:
		return "?"
	}
}
