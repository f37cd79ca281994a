package app

import (
	"context"
	"time"

	"github.com/lumenlabs/relayr/pkg/nostr/relayws"
)

type watcherParams struct {
	ctx  context.Context
	kill func()
	t    *time.Ticker
	ws   *relayws.WebSocket
}

// websocketWatcher pings the peer on a timer and tears the session down when
// either the connection or the relay context ends.
func (rl *Relay) websocketWatcher(p watcherParams) {
	defer p.kill()
	for {
		select {
		case <-rl.Ctx.Done():
			return
		case <-p.ctx.Done():
			return
		case <-p.ws.Done():
			return
		case <-p.t.C:
			if err := p.ws.Ping(); log.T.Chk(err) {
				return
			}
		}
	}
}
