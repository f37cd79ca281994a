package app

import (
	"context"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/lumenlabs/relayr/pkg/nostr/relayws"
)

type readParams struct {
	c    context.Context
	kill func()
	ws   *relayws.WebSocket
	conn *websocket.Conn
}

func (rl *Relay) websocketReadMessages(p readParams) {
	defer p.kill()
	p.conn.SetReadLimit(rl.MaxMessageSize)
	log.E.Chk(p.conn.SetReadDeadline(time.Now().Add(rl.PongWait)))
	p.conn.SetPongHandler(func(string) (err error) {
		err = p.conn.SetReadDeadline(time.Now().Add(rl.PongWait))
		log.E.Chk(err)
		return
	})
	for _, onConnect := range rl.OnConnect {
		onConnect(p.c)
	}
	for {
		var err error
		var message []byte
		if _, message, err = p.conn.ReadMessage(); log.D.Chk(err) {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
				websocket.CloseAbnormalClosure,
			) {
				log.E.F("unexpected close error from %s: %v",
					p.ws.RealRemote(), err)
			}
			return
		}
		if err = rl.wsProcessMessage(p.c, p.ws, message); err != nil {
			log.D.F("dropping connection %s: %v", p.ws.RealRemote(), err)
			return
		}
	}
}
