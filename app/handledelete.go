package app

import (
	"context"
	"fmt"

	"github.com/lumenlabs/relayr/pkg/nostr/event"
	"github.com/lumenlabs/relayr/pkg/nostr/filter"
	"github.com/lumenlabs/relayr/pkg/nostr/tag"
)

// handleDeleteRequest processes a kind 5 deletion: every event referenced by
// an "e" tag is tombstoned, provided the deletion author is the author of the
// target. Unknown ids are skipped silently, the tombstone for them is only
// written once the target exists and is legitimately deleted.
func (rl *Relay) handleDeleteRequest(c context.Context,
	evt *event.T) (err error) {

	for _, t := range evt.Tags {
		if len(t) < 2 || t[0] != "e" {
			continue
		}
		for _, query := range rl.QueryEvents {
			var ch event.C
			if ch, err = query(c, &filter.T{IDs: tag.T{t[1]}}); chk.E(err) {
				err = nil
				continue
			}
			target := <-ch
			if target == nil {
				continue
			}
			acceptDeletion := target.PubKey == evt.PubKey
			var msg string
			if !acceptDeletion {
				msg = "you are not the author of this event"
			}
			for _, odo := range rl.OverrideDeletion {
				acceptDeletion, msg = odo(c, target, evt)
			}
			if !acceptDeletion {
				err = fmt.Errorf("blocked: %s", msg)
				log.D.Ln(err)
				return
			}
			for _, del := range rl.DeleteEvent {
				chk.E(del(c, target))
			}
			// don't query this same event again
			break
		}
	}
	return nil
}
