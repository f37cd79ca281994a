// Package kinds is a list of kind numbers as appears in filters.
package kinds

import (
	"github.com/lumenlabs/relayr/pkg/nostr/kind"
)

// T is a list of kind.T.
type T []kind.T

// Contains reports whether the list includes the given kind.
func (k T) Contains(s kind.T) bool {
	for i := range k {
		if k[i] == s {
			return true
		}
	}
	return false
}

// Equals compares two kind lists for element-wise equality.
func (k T) Equals(k1 T) bool {
	if len(k) != len(k1) {
		return false
	}
	for i := range k {
		if k[i] != k1[i] {
			return false
		}
	}
	return true
}

// Clone copies the list.
func (k T) Clone() (c T) {
	c = make(T, len(k))
	copy(c, k)
	return
}

// ToInts converts to a plain int slice, used for JSON encoding.
func (k T) ToInts() (is []int) {
	is = make([]int, len(k))
	for i := range k {
		is[i] = int(k[i])
	}
	return
}

// FromInts converts from a plain int slice.
func FromInts(is []int) (k T) {
	k = make(T, len(is))
	for i := range is {
		k[i] = kind.T(is[i])
	}
	return
}
