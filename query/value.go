// Package query defines the database-agnostic query algebra: a tagged
// Value union, a Filter tagged union, and Query/Delete builders that both
// backends compile against their own native query language.
package query

import "github.com/vstorage-dev/vstorage/storagetime"

// Value is a scalar that can appear on the right-hand side of a Filter. Its
// variants mirror the original query algebra's Value enum (String, Int,
// UInt, Bool, Strings, Datetime, Null) one-for-one, plus a JSON variant for
// the storable column-type set's json column (the original has no distinct
// json variant of its own, since the backend it targeted has native
// document support throughout). Float is the one original variant with no
// Go counterpart here: storable's closed column-type set
// (text/datetime/bigint/integer/boolean/json) has no float entry, so no
// column could ever bind a Value carrying one.
type Value struct {
	kind Kind
	s    string
	i    int64
	u    uint64
	b    bool
	t    storagetime.Datetime
	ss   []string
	j    []byte
}

// Kind identifies which field of a Value is populated.
type Kind int

const (
	KindText Kind = iota
	KindInt
	KindUInt
	KindBool
	KindDatetime
	KindStringList
	KindJSON
	KindNull
)

func Text(s string) Value               { return Value{kind: KindText, s: s} }
func Int(i int64) Value                 { return Value{kind: KindInt, i: i} }
func UInt(u uint64) Value               { return Value{kind: KindUInt, u: u} }
func Bool(b bool) Value                 { return Value{kind: KindBool, b: b} }
func Time(t storagetime.Datetime) Value { return Value{kind: KindDatetime, t: t} }
func StringList(ss ...string) Value     { return Value{kind: KindStringList, ss: ss} }
func JSON(raw []byte) Value             { return Value{kind: KindJSON, j: raw} }
func Null() Value                       { return Value{kind: KindNull} }

func (v Value) Kind() Kind                      { return v.kind }
func (v Value) TextValue() string               { return v.s }
func (v Value) IntValue() int64                 { return v.i }
func (v Value) UIntValue() uint64               { return v.u }
func (v Value) BoolValue() bool                 { return v.b }
func (v Value) TimeValue() storagetime.Datetime { return v.t }
func (v Value) StringListValue() []string       { return v.ss }
func (v Value) JSONValue() []byte               { return v.j }

// Native returns v as a plain Go value suitable for binding into a driver
// parameter slot (string, int64, uint64, bool, []string, time.Time,
// []byte, or nil).
func (v Value) Native() any {
	switch v.kind {
	case KindText:
		return v.s
	case KindInt:
		return v.i
	case KindUInt:
		return v.u
	case KindBool:
		return v.b
	case KindDatetime:
		return v.t.Time()
	case KindStringList:
		return v.ss
	case KindJSON:
		return v.j
	default:
		return nil
	}
}
