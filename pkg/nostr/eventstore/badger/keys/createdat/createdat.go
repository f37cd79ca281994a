// Package createdat implements the timestamp element of index keys, stored
// big-endian so keys sort chronologically.
package createdat

import (
	"bytes"
	"encoding/binary"

	"github.com/lumenlabs/relayr/pkg/nostr/eventstore/badger/keys"
	"github.com/lumenlabs/relayr/pkg/nostr/eventstore/badger/keys/serial"
	"github.com/lumenlabs/relayr/pkg/nostr/timestamp"
)

const Len = 8

type T struct {
	Val timestamp.T
}

var _ keys.Element = &T{}

func New(c timestamp.T) (p *T) { return &T{Val: c} }

// FromKey reads the timestamp element preceding the serial in an index key.
func FromKey(k []byte) (p *T) {
	if len(k) < Len+serial.Len {
		panic("cannot get a timestamp from a key shorter than 16 bytes")
	}
	return &T{Val: timestamp.FromBytes(k[len(k)-Len-serial.Len : len(k)-serial.Len])}
}

func (c *T) Write(buf *bytes.Buffer) { buf.Write(c.Val.Bytes()) }

func (c *T) Read(buf *bytes.Buffer) (el keys.Element) {
	b := make([]byte, Len)
	if n, err := buf.Read(b); err != nil || n != Len {
		return nil
	}
	c.Val = timestamp.FromUnix(int64(binary.BigEndian.Uint64(b)))
	return c
}

func (c *T) Len() int { return Len }
