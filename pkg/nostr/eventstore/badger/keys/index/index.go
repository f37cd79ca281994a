// Package index defines the key prefixes of the store's keyspace and the
// builder that assembles prefixed keys from elements.
package index

import (
	"bytes"

	"github.com/lumenlabs/relayr/pkg/nostr/eventstore/badger/keys"
)

// P is a key prefix byte.
type P byte

const (
	// Event is the prefix of primary event records, keyed by the monotonic
	// serial.
	//
	//   [ 0 ][ 8 bytes serial ] -> event JSON
	Event P = iota

	// CreatedAt indexes all events by timestamp alone.
	//
	//   [ 1 ][ 8 bytes timestamp ][ 8 bytes serial ]
	CreatedAt

	// Id indexes events by the first 8 bytes of their id.
	//
	//   [ 2 ][ 8 bytes id prefix ][ 8 bytes serial ]
	Id

	// Kind indexes by kind and timestamp.
	//
	//   [ 3 ][ 2 bytes kind ][ 8 bytes timestamp ][ 8 bytes serial ]
	Kind

	// Pubkey indexes by author prefix and timestamp.
	//
	//   [ 4 ][ 8 bytes pubkey prefix ][ 8 bytes timestamp ][ 8 bytes serial ]
	Pubkey

	// PubkeyKind indexes by author prefix, kind and timestamp.
	//
	//   [ 5 ][ 8 bytes pubkey prefix ][ 2 bytes kind ][ 8 bytes timestamp ][ 8 bytes serial ]
	PubkeyKind

	// Tag indexes by the first value of a tag, for values up to 100 bytes.
	//
	//   [ 6 ][ tag value <= 100 bytes ][ 8 bytes timestamp ][ 8 bytes serial ]
	Tag

	// Tag32 indexes 64 character hex tag values (pubkey/event references) by
	// their first 8 decoded bytes, mirroring the Pubkey/Id truncation.
	//
	//   [ 7 ][ 8 bytes value prefix ][ 8 bytes timestamp ][ 8 bytes serial ]
	Tag32

	// Tombstone marks a deleted event id so queries skip it and re-inserts
	// are refused. The key carries the full 32 byte id.
	//
	//   [ 8 ][ 32 bytes id ]
	Tombstone

	// Version stores the schema version of the store.
	//
	//   [ 255 ]
	Version P = 255
)

// Key writes a key with the P prefix byte and the given elements.
func (p P) Key(element ...keys.Element) (b []byte) {
	return keys.Write(append([]keys.Element{New(byte(p))}, element...)...)
}

// B returns the prefix as a byte.
func (p P) B() byte { return byte(p) }

// T is the one byte prefix element of every key.
type T struct {
	Val []byte
}

var _ keys.Element = &T{}

func New(b byte) (p *T) { return &T{Val: []byte{b}} }

// Empty returns a prefix element for a Read to fill.
func Empty() (p *T) { return &T{Val: make([]byte, 1)} }

func (p *T) Write(buf *bytes.Buffer) { buf.Write(p.Val) }

func (p *T) Read(buf *bytes.Buffer) (el keys.Element) {
	p.Val = make([]byte, 1)
	if n, err := buf.Read(p.Val); err != nil || n != 1 {
		return nil
	}
	return p
}

func (p *T) Len() int { return 1 }
