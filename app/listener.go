package app

import (
	"context"
	"errors"

	"github.com/lumenlabs/relayr/pkg/nostr/filter"
	"github.com/lumenlabs/relayr/pkg/nostr/filters"
	"github.com/lumenlabs/relayr/pkg/nostr/relayws"
	"github.com/puzpuzpuz/xsync/v2"
)

// Listener is one live subscription: the filters to match events against and
// the cancel that tears down its historical query when the client closes the
// subscription early.
type Listener struct {
	filters filters.T
	cancel  context.CancelCauseFunc
	ws      *relayws.WebSocket
}

type ListenerMap = *xsync.MapOf[string, *Listener]

// SetListener registers or replaces a subscription. Registering the same id
// again atomically swaps the filters, the old subscription's query is
// canceled.
func (rl *Relay) SetListener(id string, ws *relayws.WebSocket, f filters.T,
	c context.CancelCauseFunc) {

	subs, _ := rl.listeners.LoadOrCompute(ws, func() ListenerMap {
		return xsync.NewMapOf[*Listener]()
	})
	if prev, ok := subs.Load(id); ok && prev.cancel != nil {
		prev.cancel(errors.New("subscription replaced"))
	}
	subs.Store(id, &Listener{filters: f, cancel: c, ws: ws})
}

// RemoveListenerId drops one subscription from a connection and cancels its
// in-flight query. Unknown ids are a no-op.
func (rl *Relay) RemoveListenerId(ws *relayws.WebSocket, id string) {
	if subs, ok := rl.listeners.Load(ws); ok {
		if listener, ok := subs.LoadAndDelete(id); ok {
			listener.cancel(errors.New("subscription closed by client"))
		}
		if subs.Size() == 0 {
			rl.listeners.Delete(ws)
		}
	}
}

// RemoveListener drops all of a connection's subscriptions. The per
// subscription contexts all inherit from the connection context, so no
// cancels are needed here.
func (rl *Relay) RemoveListener(ws *relayws.WebSocket) {
	rl.listeners.Delete(ws)
}

// CountListeners returns the number of open subscriptions on one connection.
func (rl *Relay) CountListeners(ws *relayws.WebSocket) (n int) {
	if subs, ok := rl.listeners.Load(ws); ok {
		n = subs.Size()
	}
	return
}

// GetListeningFilters returns the distinct filters of all live
// subscriptions.
func (rl *Relay) GetListeningFilters() (respFilters filters.T) {
	respFilters = make(filters.T, 0, rl.listeners.Size()*2)
	rl.listeners.Range(func(_ *relayws.WebSocket, subs ListenerMap) bool {
		subs.Range(func(_ string, listener *Listener) bool {
			for _, listenerFilter := range listener.filters {
				for _, respFilter := range respFilters {
					if filter.Equal(listenerFilter, respFilter) {
						goto next
					}
				}
				respFilters = append(respFilters, listenerFilter)
			next:
				continue
			}
			return true
		})
		return true
	})
	return
}
