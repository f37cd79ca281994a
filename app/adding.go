package app

import (
	"context"
	"errors"

	"github.com/lumenlabs/relayr/pkg/nostr/event"
	"github.com/lumenlabs/relayr/pkg/nostr/eventstore"
	"github.com/lumenlabs/relayr/pkg/nostr/normalize"
)

// AddEvent sends an event through the normal add pipeline, as if it was
// received from a websocket: policy checks, storage routed by kind, then
// broadcast to matching subscriptions. The returned error always carries a
// machine readable prefix.
func (rl *Relay) AddEvent(c context.Context, ev *event.T) (err error) {
	if ev == nil {
		err = errors.New("error: event is nil")
		log.E.Ln(err)
		return
	}
	for _, rej := range rl.RejectEvent {
		if reject, msg := rej(c, ev); reject {
			if msg == "" {
				msg = "no reason"
			}
			err = errors.New(normalize.Reason(msg, "blocked"))
			log.D.Ln(err)
			return
		}
	}
	switch {
	case ev.Kind.IsEphemeral():
		// ephemeral events pass through to live subscribers only
	case ev.Kind.IsReplaceable() || ev.Kind.IsParameterizedReplaceable():
		for _, replace := range rl.ReplaceEvent {
			if saveErr := replace(c, ev); saveErr != nil {
				return storeError(saveErr)
			}
		}
		for _, ons := range rl.OnEventSaved {
			ons(c, ev)
		}
	default:
		for _, store := range rl.StoreEvent {
			if saveErr := store(c, ev); saveErr != nil {
				return storeError(saveErr)
			}
		}
		for _, ons := range rl.OnEventSaved {
			ons(c, ev)
		}
	}
	rl.BroadcastEvent(ev)
	return nil
}

func storeError(saveErr error) (err error) {
	switch {
	case errors.Is(saveErr, eventstore.ErrDupEvent),
		errors.Is(saveErr, eventstore.ErrSuperseded),
		errors.Is(saveErr, eventstore.ErrTombstoned):
		// already prefixed
		return saveErr
	default:
		return errors.New(normalize.Reason(saveErr.Error(), "error"))
	}
}
