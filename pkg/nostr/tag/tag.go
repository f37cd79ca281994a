// Package tag implements the tag, a list of strings with a literal ordering
// where the first element is the tag name and the second the indexed value.
//
// The same type doubles as the value list of filter fields (ids, authors, tag
// values) since those share the representation and the membership operations.
package tag

import (
	"strings"

	"github.com/lumenlabs/relayr/pkg/nostr/escape"
)

// The tag position meanings so they are clear when reading.
const (
	Key = iota
	Value
	Relay
)

// T is a list of strings with a literal ordering. Not a set, there can be
// repeating elements.
type T []string

// Key returns the first element of the tag.
func (t T) Key() string {
	if len(t) > Key {
		return t[Key]
	}
	return ""
}

// Value returns the second element of the tag.
func (t T) Value() string {
	if len(t) > Value {
		return t[Value]
	}
	return ""
}

// Contains reports whether the list has an element equal to s.
func (t T) Contains(s string) bool {
	for i := range t {
		if t[i] == s {
			return true
		}
	}
	return false
}

// ContainsPrefix reports whether any element of the list is a prefix of s.
// Filter ids/authors entries may be prefixes of the full 64 character hex
// value.
func (t T) ContainsPrefix(s string) bool {
	for i := range t {
		if strings.HasPrefix(s, t[i]) {
			return true
		}
	}
	return false
}

// Equals compares two tags for element-wise equality.
func (t T) Equals(t1 T) bool {
	if len(t) != len(t1) {
		return false
	}
	for i := range t {
		if t[i] != t1[i] {
			return false
		}
	}
	return true
}

// Clone copies the tag.
func (t T) Clone() (c T) {
	if t == nil {
		return
	}
	c = make(T, len(t))
	copy(c, t)
	return
}

// MarshalTo appends the JSON form of the tag to dst. Used in the canonical
// serialization so escaping is as in RFC 8259.
func (t T) MarshalTo(dst []byte) []byte {
	dst = append(dst, '[')
	for i, s := range t {
		if i > 0 {
			dst = append(dst, ',')
		}
		dst = escape.String(dst, s)
	}
	dst = append(dst, ']')
	return dst
}

func (t T) String() string { return string(t.MarshalTo(nil)) }
