// Package subscriptionid implements the client-chosen subscription
// identifier, unique within its connection.
package subscriptionid

import (
	"fmt"
)

// T is a subscription identifier, an arbitrary non-empty string of at most 64
// characters.
type T string

// New creates a T after validation.
func New(s string) (si T, err error) {
	si = T(s)
	if !si.IsValid() {
		err = fmt.Errorf("invalid subscription id '%s'", s)
		si = ""
	}
	return
}

func (si T) String() string { return string(si) }

// IsValid enforces the 1..64 character length bound.
func (si T) IsValid() bool { return len(si) > 0 && len(si) <= 64 }
