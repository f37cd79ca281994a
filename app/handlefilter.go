package app

import (
	"context"
	"errors"
	"sync"

	"github.com/lumenlabs/relayr/pkg/nostr/envelopes"
	"github.com/lumenlabs/relayr/pkg/nostr/event"
	"github.com/lumenlabs/relayr/pkg/nostr/filter"
	"github.com/lumenlabs/relayr/pkg/nostr/normalize"
	"github.com/lumenlabs/relayr/pkg/nostr/relayws"
	"github.com/lumenlabs/relayr/pkg/nostr/subscriptionid"
)

type handleFilterParams struct {
	c    context.Context
	id   subscriptionid.T
	eose *sync.WaitGroup
	ws   *relayws.WebSocket
	f    *filter.T
}

// handleFilter runs the historical scan for one filter of a subscription and
// streams the results into the connection mailbox. The eose group is done
// when every result of this filter has been dispatched.
func (rl *Relay) handleFilter(h handleFilterParams) (err error) {
	defer h.eose.Done()
	// overwrite the filter, for example to cut limits the relay won't serve
	for _, ovw := range rl.OverwriteFilter {
		ovw(h.c, h.f)
	}
	if h.f.Limit != nil && *h.f.Limit < 0 {
		err = errors.New("blocked: filter invalidated")
		log.E.Ln(err)
		return
	}
	for _, reject := range rl.RejectFilter {
		if rej, msg := reject(h.c, h.id, h.f); rej {
			return errors.New(normalize.Reason(msg, "blocked"))
		}
	}
	h.eose.Add(len(rl.QueryEvents))
	for _, query := range rl.QueryEvents {
		var ch event.C
		if ch, err = query(h.c, h.f); chk.E(err) {
			chk.E(h.ws.WriteEnvelope(&envelopes.Notice{Text: err.Error()}))
			h.eose.Done()
			err = nil
			continue
		}
		go func(ch event.C) {
			defer h.eose.Done()
			for ev := range ch {
				if ev == nil {
					continue
				}
				chk.E(h.ws.WriteEnvelope(&envelopes.Event{
					SubscriptionID: h.id,
					Event:          ev,
				}))
			}
		}(ch)
	}
	return nil
}
