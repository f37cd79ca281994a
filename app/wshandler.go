package app

import (
	"context"
	"net/http"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/lumenlabs/relayr/pkg/nostr/relayws"
	"github.com/sebest/xff"
)

func (rl *Relay) HandleWebsocket(w http.ResponseWriter, r *http.Request) {
	var err error
	var conn *websocket.Conn
	if conn, err = rl.upgrader.Upgrade(w, r, nil); chk.E(err) {
		log.E.F("failed to upgrade websocket: %v", err)
		return
	}
	ws := relayws.New(conn, r, rl.MailboxSize)
	// record the address the proxy saw, not the proxy's own
	rr := xff.GetRemoteAddr(r)
	if rr == "" {
		rr = r.RemoteAddr
	}
	ws.SetRealRemote(rr)
	log.T.Ln("inbound connection from", rr)
	rl.clients.Store(ws, struct{}{})
	ticker := time.NewTicker(rl.PingPeriod)
	c, cancel := context.WithCancel(
		context.WithValue(rl.Ctx, wsKey, ws))
	kill := func() {
		log.T.Ln("disconnecting websocket", rr)
		for _, onDisconnect := range rl.OnDisconnect {
			onDisconnect(c)
		}
		ticker.Stop()
		cancel()
		if _, ok := rl.clients.LoadAndDelete(ws); ok {
			rl.RemoveListener(ws)
		}
		ws.Close()
	}
	go rl.websocketReadMessages(readParams{c, kill, ws, conn})
	go rl.websocketWatcher(watcherParams{c, kill, ticker, ws})
}
