// Package serial implements the 8 byte monotonic counter element that makes
// every index key unique and links it to its event record.
package serial

import (
	"bytes"
	"encoding/binary"

	"github.com/lumenlabs/relayr/pkg/nostr/eventstore/badger/keys"
)

const Len = 8

type T struct {
	Val []byte
}

var _ keys.Element = &T{}

// New creates a serial from raw counter bytes. Pass nil when the value will
// be filled by a Read.
func New(ser []byte) (p *T) { return &T{Val: ser} }

// FromUint64 creates a serial from a counter value.
func FromUint64(ser uint64) (p *T) {
	b := make([]byte, Len)
	binary.BigEndian.PutUint64(b, ser)
	return &T{Val: b}
}

// FromKey reads the serial out of the last 8 bytes of an index key.
func FromKey(k []byte) (p *T) {
	if len(k) < Len {
		panic("cannot get a serial without at least 8 bytes")
	}
	return &T{Val: k[len(k)-Len:]}
}

// Uint64 returns the counter value.
func (p *T) Uint64() uint64 { return binary.BigEndian.Uint64(p.Val) }

func (p *T) Write(buf *bytes.Buffer) { buf.Write(p.Val) }

func (p *T) Read(buf *bytes.Buffer) (el keys.Element) {
	p.Val = make([]byte, Len)
	if n, err := buf.Read(p.Val); err != nil || n != Len {
		return nil
	}
	return p
}

func (p *T) Len() int { return Len }
