package app

import (
	"context"
	"hash/maphash"
	"os"
	"unsafe"

	"github.com/lumenlabs/relayr/pkg/nostr/relayws"
	"github.com/lumenlabs/relayr/pkg/slog"
)

var log, chk = slog.New(os.Stderr)

type ctxKey int

const (
	wsKey ctxKey = iota
	subscriptionIDKey
)

// GetConnection pulls the websocket out of a session context.
func GetConnection(c context.Context) *relayws.WebSocket {
	v, ok := c.Value(wsKey).(*relayws.WebSocket)
	if !ok {
		return nil
	}
	return v
}

// GetSubscriptionID pulls the subscription id out of a query context.
func GetSubscriptionID(c context.Context) string {
	v, _ := c.Value(subscriptionIDKey).(string)
	return v
}

func PointerHasher[V any](_ maphash.Seed, k *V) uint64 {
	return uint64(uintptr(unsafe.Pointer(k)))
}
