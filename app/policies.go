package app

import (
	"context"
	"fmt"

	"github.com/lumenlabs/relayr/pkg/nostr/event"
	"github.com/lumenlabs/relayr/pkg/nostr/filter"
	"github.com/lumenlabs/relayr/pkg/nostr/timestamp"
)

// RejectFutureEvents refuses events whose creation date lies more than
// maxOffset seconds ahead of the relay clock. Client clocks drift, a small
// allowance avoids spurious rejections.
func RejectFutureEvents(maxOffset int64) RejectEvent {
	return func(c context.Context, ev *event.T) (reject bool, msg string) {
		if ev.CreatedAt > timestamp.Now()+timestamp.T(maxOffset) {
			return true, fmt.Sprintf(
				"invalid: event creation date is more than %d seconds in the future",
				maxOffset)
		}
		return
	}
}

// ClampFilterLimit caps the limit of incoming filters at the relay maximum,
// and applies the maximum when no limit is given.
func ClampFilterLimit(max int) OverwriteFilter {
	return func(c context.Context, f *filter.T) {
		if f.Limit == nil || *f.Limit > max {
			m := max
			f.Limit = &m
		}
	}
}
