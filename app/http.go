package app

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/cors"
)

// ServeHTTP routes the single endpoint: websocket upgrades become relay
// sessions, requests accepting application/nostr+json get the information
// document, everything else falls through to the mux.
func (rl *Relay) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	select {
	case <-rl.Ctx.Done():
		log.W.Ln("shutting down")
		return
	default:
	}
	if r.Header.Get("Upgrade") == "websocket" {
		rl.HandleWebsocket(w, r)
	} else if strings.Contains(r.Header.Get("Accept"),
		"application/nostr+json") {
		cors.AllowAll().Handler(http.HandlerFunc(rl.HandleRelayInfo)).
			ServeHTTP(w, r)
	} else {
		rl.serveMux.ServeHTTP(w, r)
	}
}

// Router exposes the fallthrough mux for extra handlers.
func (rl *Relay) Router() *http.ServeMux { return rl.serveMux }

// HandleRelayInfo serves the NIP-11 information document.
func (rl *Relay) HandleRelayInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/nostr+json")
	chk.E(json.NewEncoder(w).Encode(rl.Info))
}
