// Package eventid implements the event id, the SHA256 hash of the canonical
// serialization, encoded as 64 hex characters.
package eventid

import (
	"encoding/hex"
	"fmt"
)

// T is the hex-encoded SHA256 hash of the canonical event serialization.
type T string

// New creates a T from a hex string after length and encoding validation.
func New(s string) (ei T, err error) {
	ei = T(s)
	if err = ei.Validate(); err != nil {
		ei = ""
	}
	return
}

func (ei T) String() string { return string(ei) }

// Bytes decodes the hex form into the 32 raw hash bytes.
func (ei T) Bytes() (b []byte) {
	var err error
	if b, err = hex.DecodeString(string(ei)); err != nil {
		return nil
	}
	return
}

// Validate checks the id is 64 characters of valid hex.
func (ei T) Validate() (err error) {
	if len(ei) != 64 {
		return fmt.Errorf("event id invalid length: got %d require 64 '%s'",
			len(ei), string(ei))
	}
	if _, err = hex.DecodeString(string(ei)); err != nil {
		return fmt.Errorf("event id is not valid hex: %w", err)
	}
	return
}
