// Package tags implements the list of tags on an event.
package tags

import (
	"encoding/json"

	"github.com/lumenlabs/relayr/pkg/nostr/tag"
)

// T is the ordered list of tags of an event.
type T []tag.T

// GetFirst returns the first tag whose initial elements match the prefix, nil
// if there is none.
func (t T) GetFirst(prefix []string) *tag.T {
	for i := range t {
		if startsWith(t[i], prefix) {
			return &t[i]
		}
	}
	return nil
}

// GetAll returns all tags with the given name.
func (t T) GetAll(name string) (found T) {
	for i := range t {
		if t[i].Key() == name {
			found = append(found, t[i])
		}
	}
	return
}

// ContainsAny reports whether any tag with the given name has a value in the
// given list. An empty value list never matches.
func (t T) ContainsAny(name string, values tag.T) bool {
	for i := range t {
		if t[i].Key() != name {
			continue
		}
		if values.Contains(t[i].Value()) {
			return true
		}
	}
	return false
}

// Clone deep copies the tag list.
func (t T) Clone() (c T) {
	if t == nil {
		return
	}
	c = make(T, len(t))
	for i := range t {
		c[i] = t[i].Clone()
	}
	return
}

// MarshalTo appends the JSON form of the tag list to dst, used in the
// canonical serialization.
func (t T) MarshalTo(dst []byte) []byte {
	dst = append(dst, '[')
	for i := range t {
		if i > 0 {
			dst = append(dst, ',')
		}
		dst = t[i].MarshalTo(dst)
	}
	dst = append(dst, ']')
	return dst
}

func (t T) String() string { return string(t.MarshalTo(nil)) }

// MarshalJSON uses the canonical writer so stored and hashed bytes agree.
func (t T) MarshalJSON() ([]byte, error) { return t.MarshalTo(nil), nil }

func (t *T) UnmarshalJSON(b []byte) (err error) {
	var raw [][]string
	if err = json.Unmarshal(b, &raw); err != nil {
		return
	}
	*t = make(T, len(raw))
	for i := range raw {
		(*t)[i] = tag.T(raw[i])
	}
	return
}

// startsWith checks a tag has the same initial elements as prefix, with the
// last prefix element matching as a string prefix.
func startsWith(t tag.T, prefix []string) bool {
	prefixLen := len(prefix)
	if prefixLen > len(t) {
		return false
	}
	for i := 0; i < prefixLen-1; i++ {
		if prefix[i] != t[i] {
			return false
		}
	}
	if prefixLen == 0 {
		return true
	}
	return len(t[prefixLen-1]) >= len(prefix[prefixLen-1]) &&
		t[prefixLen-1][:len(prefix[prefixLen-1])] == prefix[prefixLen-1]
}
