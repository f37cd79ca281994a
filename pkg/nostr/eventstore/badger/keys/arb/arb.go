// Package arb implements an arbitrary length byte string element, used for
// tag values and full event ids where the length is fixed by the caller.
package arb

import (
	"bytes"

	"github.com/lumenlabs/relayr/pkg/nostr/eventstore/badger/keys"
)

type T struct {
	Val []byte
}

var _ keys.Element = &T{}

func New(b []byte) (p *T) { return &T{Val: b} }

func NewFromString(s string) (p *T) { return &T{Val: []byte(s)} }

func (p *T) Write(buf *bytes.Buffer) { buf.Write(p.Val) }

// Read consumes len(p.Val) bytes, so the caller must size Val first.
func (p *T) Read(buf *bytes.Buffer) (el keys.Element) {
	if n, err := buf.Read(p.Val); err != nil || n != len(p.Val) {
		return nil
	}
	return p
}

func (p *T) Len() int { return len(p.Val) }
