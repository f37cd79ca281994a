package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/lumenlabs/relayr/pkg/nostr/envelopes"
	"github.com/lumenlabs/relayr/pkg/nostr/kind"
	"github.com/lumenlabs/relayr/pkg/nostr/relayws"
)

// IgnoreAfter is the number of protocol violations tolerated on one
// connection before it is dropped.
const IgnoreAfter = 16

func (rl *Relay) wsProcessMessage(c context.Context, ws *relayws.WebSocket,
	msg []byte) (err error) {

	if len(msg) == 0 {
		return log.E.Err("empty message, probably dropped connection")
	}
	if ws.Offenses.Load() > IgnoreAfter {
		return log.E.Err("client keeps sending malformed messages")
	}
	if int64(len(msg)) > rl.MaxMessageSize {
		chk.E(ws.WriteEnvelope(&envelopes.Notice{
			Text: fmt.Sprintf(
				"invalid: relay limit disallows messages larger than %d bytes,"+
					" this message is %d bytes", rl.MaxMessageSize, len(msg)),
		}))
		return
	}
	var env envelopes.E
	if env, err = envelopes.ParseMessage(msg); err != nil {
		ws.Offenses.Inc()
		chk.E(ws.WriteEnvelope(&envelopes.Notice{
			Text: "invalid: " + err.Error(),
		}))
		return nil
	}
	switch env := env.(type) {
	case *envelopes.Event:
		rl.handleEventMessage(c, ws, env)
	case *envelopes.Req:
		rl.handleReqMessage(c, ws, env)
	case *envelopes.Close:
		rl.RemoveListenerId(ws, env.SubscriptionID.String())
	case *envelopes.CountRequest:
		rl.handleCountMessage(c, ws, env)
	}
	return
}

func (rl *Relay) handleEventMessage(c context.Context, ws *relayws.WebSocket,
	env *envelopes.Event) {

	ev := env.Event
	if err := ev.Validate(); err != nil {
		log.D.F("rejecting event from %s: %v", ws.RealRemote(), err)
		chk.E(ws.WriteEnvelope(&envelopes.OK{
			ID:     ev.ID,
			Reason: err.Error(),
		}))
		return
	}
	var err error
	if ev.Kind == kind.Deletion {
		// always carries a "blocked: " reason on error
		err = rl.handleDeleteRequest(c, ev)
	} else {
		err = rl.AddEvent(c, ev)
	}
	ok := err == nil
	var reason string
	if err != nil {
		reason = err.Error()
		// an exact duplicate is acknowledged as accepted
		if strings.HasPrefix(reason, "duplicate") {
			ok = true
		}
	}
	chk.E(ws.WriteEnvelope(&envelopes.OK{ID: ev.ID, OK: ok, Reason: reason}))
}

func (rl *Relay) handleReqMessage(c context.Context, ws *relayws.WebSocket,
	env *envelopes.Req) {

	sid := env.SubscriptionID
	if !sid.IsValid() ||
		(rl.Info.Limitation.MaxSubidLength > 0 &&
			len(sid.String()) > rl.Info.Limitation.MaxSubidLength) {
		ws.Offenses.Inc()
		chk.E(ws.WriteEnvelope(&envelopes.Closed{
			SubscriptionID: sid,
			Reason:         "invalid: subscription id is malformed",
		}))
		return
	}
	if max := rl.Info.Limitation.MaxFilters; max > 0 && len(env.Filters) > max {
		chk.E(ws.WriteEnvelope(&envelopes.Closed{
			SubscriptionID: sid,
			Reason: fmt.Sprintf(
				"blocked: too many filters, relay accepts at most %d", max),
		}))
		return
	}
	if max := rl.Info.Limitation.MaxSubscriptions; max > 0 &&
		rl.CountListeners(ws) >= max {
		chk.E(ws.WriteEnvelope(&envelopes.Closed{
			SubscriptionID: sid,
			Reason: fmt.Sprintf(
				"blocked: relay accepts at most %d subscriptions per connection",
				max),
		}))
		return
	}
	wg := sync.WaitGroup{}
	wg.Add(len(env.Filters))
	// a context just for the stored events scan
	reqCtx, cancelReqCtx := context.WithCancelCause(c)
	reqCtx = context.WithValue(reqCtx, subscriptionIDKey, sid.String())
	// live matching starts before the historical scan, so an event arriving
	// in the overlap window can be delivered twice but never missed; clients
	// dedup by id
	rl.SetListener(sid.String(), ws, env.Filters, cancelReqCtx)
	for _, f := range env.Filters {
		err := rl.handleFilter(handleFilterParams{reqCtx, sid, &wg, ws, f})
		if log.T.Chk(err) {
			rl.RemoveListenerId(ws, sid.String())
			chk.E(ws.WriteEnvelope(&envelopes.Closed{
				SubscriptionID: sid,
				Reason:         err.Error(),
			}))
			cancelReqCtx(errors.New("filter rejected"))
			return
		}
	}
	go func() {
		// all stored events are dispatched, mark the transition to live
		wg.Wait()
		cancelReqCtx(nil)
		chk.E(ws.WriteEnvelope(&envelopes.EOSE{SubscriptionID: sid}))
	}()
}

func (rl *Relay) handleCountMessage(c context.Context, ws *relayws.WebSocket,
	env *envelopes.CountRequest) {

	if len(rl.CountEvents) == 0 {
		chk.E(ws.WriteEnvelope(&envelopes.Closed{
			SubscriptionID: env.SubscriptionID,
			Reason:         "unsupported: this relay does not support NIP-45",
		}))
		return
	}
	var total int
	for _, f := range env.Filters {
		for _, reject := range rl.RejectCountQuery {
			if rej, msg := reject(c, env.SubscriptionID, f); rej {
				chk.E(ws.WriteEnvelope(&envelopes.Closed{
					SubscriptionID: env.SubscriptionID,
					Reason:         msg,
				}))
				return
			}
		}
		for _, count := range rl.CountEvents {
			n, err := count(c, f)
			if chk.E(err) {
				continue
			}
			total += n
		}
	}
	chk.E(ws.WriteEnvelope(&envelopes.CountResponse{
		SubscriptionID: env.SubscriptionID,
		Count:          total,
	}))
}
