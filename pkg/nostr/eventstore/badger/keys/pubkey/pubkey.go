// Package pubkey implements the truncated author public key element of index
// keys.
package pubkey

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/lumenlabs/relayr/pkg/nostr/eventstore/badger/keys"
)

// Len is the number of bytes of a pubkey kept in index keys.
const Len = 8

type T struct {
	Val []byte
}

var _ keys.Element = &T{}

// New creates a pubkey element from the hex form, truncated to Len bytes.
func New(pkHex string) (p *T, err error) {
	if len(pkHex) < Len*2 {
		return nil, fmt.Errorf("pubkey hex too short: %d < %d", len(pkHex), Len*2)
	}
	var b []byte
	if b, err = hex.DecodeString(pkHex); err != nil {
		return nil, fmt.Errorf("pubkey is not valid hex: %w", err)
	}
	return &T{Val: b[:Len]}, nil
}

// NewFromBytes creates a pubkey element from raw decoded bytes.
func NewFromBytes(b []byte) (p *T, err error) {
	if len(b) < Len {
		return nil, fmt.Errorf("pubkey bytes too short: %d < %d", len(b), Len)
	}
	return &T{Val: b[:Len]}, nil
}

// Empty returns an element to be filled by a Read.
func Empty() (p *T) { return &T{} }

func (p *T) Write(buf *bytes.Buffer) { buf.Write(p.Val) }

func (p *T) Read(buf *bytes.Buffer) (el keys.Element) {
	p.Val = make([]byte, Len)
	if n, err := buf.Read(p.Val); err != nil || n != Len {
		return nil
	}
	return p
}

func (p *T) Len() int { return Len }
