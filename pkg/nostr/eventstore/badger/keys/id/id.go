// Package id implements the truncated event id element used in the id index.
package id

import (
	"bytes"
	"encoding/hex"

	"github.com/lumenlabs/relayr/pkg/nostr/eventid"
	"github.com/lumenlabs/relayr/pkg/nostr/eventstore/badger/keys"
)

// Len is the number of bytes of an event id kept in index keys. 8 bytes of
// a SHA256 is collision resistant enough for a store that confirms the match
// against the full record.
const Len = 8

type T struct {
	Val []byte
}

var _ keys.Element = &T{}

// New creates an id element from the hex form of an event id, truncated to
// Len bytes. Pass the empty string when the value will be filled by a Read.
func New(evID eventid.T) (p *T) {
	if evID == "" {
		return &T{}
	}
	b, err := hex.DecodeString(string(evID))
	if err != nil || len(b) < Len {
		return &T{}
	}
	return &T{Val: b[:Len]}
}

func (p *T) Write(buf *bytes.Buffer) { buf.Write(p.Val) }

func (p *T) Read(buf *bytes.Buffer) (el keys.Element) {
	p.Val = make([]byte, Len)
	if n, err := buf.Read(p.Val); err != nil || n != Len {
		return nil
	}
	return p
}

func (p *T) Len() int { return Len }
