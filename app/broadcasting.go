package app

import (
	"github.com/lumenlabs/relayr/pkg/nostr/envelopes"
	"github.com/lumenlabs/relayr/pkg/nostr/event"
	"github.com/lumenlabs/relayr/pkg/nostr/relayws"
	"github.com/lumenlabs/relayr/pkg/nostr/subscriptionid"
)

// BroadcastEvent delivers an event to every subscription whose filters match
// it. Broadcasts are serialized, so when two events are accepted one after
// the other every connection sees them enqueued in that order; fan-out to a
// connection is a non-blocking mailbox write and slow consumers get
// disconnected rather than stalling the rest.
func (rl *Relay) BroadcastEvent(ev *event.T) {
	rl.broadcastMx.Lock()
	defer rl.broadcastMx.Unlock()
	rl.listeners.Range(func(ws *relayws.WebSocket, subs ListenerMap) bool {
		subs.Range(func(id string, listener *Listener) bool {
			if !listener.filters.Match(ev) {
				return true
			}
			log.T.F("sending event %s to subscriber %s sub %s",
				ev.ID, ws.RealRemote(), id)
			chk.T(ws.WriteEnvelope(&envelopes.Event{
				SubscriptionID: subscriptionid.T(id),
				Event:          ev,
			}))
			return true
		})
		return true
	})
}
