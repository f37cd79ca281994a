// Package timestamp implements the 64 bit 1 second precision UNIX timestamp
// used in events and filters.
package timestamp

import (
	"encoding/binary"
	"fmt"
	"time"
)

// T is a UNIX timestamp with 1 second precision.
type T int64

// Tp is a synonym used where presence/absence matters (filters), obtained via
// the Ptr method.
type Tp T

// Now returns the current UNIX timestamp.
func Now() T { return T(time.Now().Unix()) }

// U64 returns the timestamp as uint64.
func (t T) U64() uint64 { return uint64(t) }

// I64 returns the timestamp as int64.
func (t T) I64() int64 { return int64(t) }

// Int returns the timestamp as an int.
func (t T) Int() int { return int(t) }

// Time converts the timestamp into a time.Time.
func (t T) Time() time.Time { return time.Unix(int64(t), 0) }

// Bytes returns the timestamp as 8 big-endian bytes, the form used in index
// keys so they sort chronologically.
func (t T) Bytes() (b []byte) {
	b = make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(t))
	return
}

// Ptr returns a pointer form so a value can register as unset when nil.
func (t T) Ptr() *Tp {
	tp := Tp(t)
	return &tp
}

// T converts back from the pointer form.
func (tp *Tp) T() T { return T(*tp) }

func (tp *Tp) String() string { return fmt.Sprint(T(*tp)) }

// Clone copies the pointer form, nil begets nil.
func (tp *Tp) Clone() (tc *Tp) {
	if tp == nil {
		return
	}
	cp := *tp
	return &cp
}

// FromTime returns a T from a time.Time.
func FromTime(t time.Time) T { return T(t.Unix()) }

// FromUnix converts from a standard int64 unix timestamp.
func FromUnix(t int64) T { return T(t) }

// FromBytes converts from the 8 byte big-endian form.
func FromBytes(b []byte) T { return T(binary.BigEndian.Uint64(b)) }
