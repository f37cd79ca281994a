// Package filters implements the filter list held by a subscription: an
// event matches the subscription when it matches any of the filters.
package filters

import (
	"encoding/json"

	"github.com/lumenlabs/relayr/pkg/nostr/event"
	"github.com/lumenlabs/relayr/pkg/nostr/filter"
)

// T is a list of filters belonging to one subscription.
type T []*filter.T

// Match reports whether the event matches any filter in the list.
func (f T) Match(ev *event.T) bool {
	for _, f1 := range f {
		if f1.Matches(ev) {
			return true
		}
	}
	return false
}

// Clone deep copies the list.
func (f T) Clone() (c T) {
	c = make(T, len(f))
	for i := range f {
		c[i] = f[i].Clone()
	}
	return
}

func (f T) String() string {
	b, _ := json.Marshal(f)
	return string(b)
}
