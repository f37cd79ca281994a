// Package kinder implements the 2 byte kind element of index keys.
package kinder

import (
	"bytes"
	"encoding/binary"

	"github.com/lumenlabs/relayr/pkg/nostr/eventstore/badger/keys"
	"github.com/lumenlabs/relayr/pkg/nostr/kind"
)

const Len = 2

type T struct {
	Val kind.T
}

var _ keys.Element = &T{}

func New(k kind.T) (p *T) { return &T{Val: k} }

func (p *T) Write(buf *bytes.Buffer) {
	b := make([]byte, Len)
	binary.BigEndian.PutUint16(b, uint16(p.Val))
	buf.Write(b)
}

func (p *T) Read(buf *bytes.Buffer) (el keys.Element) {
	b := make([]byte, Len)
	if n, err := buf.Read(b); err != nil || n != Len {
		return nil
	}
	p.Val = kind.T(binary.BigEndian.Uint16(b))
	return p
}

func (p *T) Len() int { return Len }
