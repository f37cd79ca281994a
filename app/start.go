package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/lumenlabs/relayr/pkg/nostr/relayws"
	"github.com/rs/cors"
)

// Start creates an http server and starts listening on the given address.
func (rl *Relay) Start(addr string, started ...chan bool) (err error) {
	var ln net.Listener
	if ln, err = net.Listen("tcp", addr); chk.E(err) {
		return
	}
	rl.Addr = ln.Addr().String()
	rl.httpServer = &http.Server{
		Handler:      cors.Default().Handler(rl),
		Addr:         addr,
		WriteTimeout: 2 * time.Second,
		ReadTimeout:  2 * time.Second,
		IdleTimeout:  30 * time.Second,
	}
	log.I.Ln("relay listening on", rl.Addr)
	// notify callers that we're up
	for _, s := range started {
		close(s)
	}
	if err = rl.httpServer.Serve(ln); errors.Is(err, http.ErrServerClosed) {
		return nil
	} else if chk.E(err) {
		return
	}
	return
}

// Shutdown stops accepting requests and hangs up on all connected clients.
func (rl *Relay) Shutdown(c context.Context) {
	chk.E(rl.httpServer.Shutdown(c))
	rl.clients.Range(func(ws *relayws.WebSocket, _ struct{}) bool {
		ws.Close()
		rl.clients.Delete(ws)
		return true
	})
}
