// Package app ties the event store, the subscription registry and the
// websocket sessions together into a relay.
package app

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/lumenlabs/relayr/pkg/nostr/event"
	"github.com/lumenlabs/relayr/pkg/nostr/filter"
	"github.com/lumenlabs/relayr/pkg/nostr/relayinfo"
	"github.com/lumenlabs/relayr/pkg/nostr/relayws"
	"github.com/lumenlabs/relayr/pkg/nostr/subscriptionid"
	"github.com/puzpuzpuz/xsync/v2"
)

var Version = "v0.1.0"
var Software = "https://github.com/lumenlabs/relayr"

const (
	WriteWait       = 10 * time.Second
	PongWait        = 60 * time.Second
	PingPeriod      = 30 * time.Second
	ReadBufferSize  = 4096
	WriteBufferSize = 4096
	MaxMessageSize  = 128 * 1024
)

// function types used in the relay state
type (
	RejectEvent func(c context.Context, ev *event.T) (reject bool,
		msg string)
	RejectFilter func(c context.Context, id subscriptionid.T,
		f *filter.T) (reject bool, msg string)
	OverwriteFilter         func(c context.Context, f *filter.T)
	OverrideDeletionOutcome func(c context.Context, tgt, del *event.T) (
		ok bool, msg string)
	Events       func(c context.Context, ev *event.T) error
	Hook         func(c context.Context)
	QueryEvents  func(c context.Context, f *filter.T) (event.C, error)
	CountEvents  func(c context.Context, f *filter.T) (int, error)
	OnEventSaved func(c context.Context, ev *event.T)
)

type Relay struct {
	Ctx    context.Context
	WG     *sync.WaitGroup
	Cancel context.CancelFunc
	Config *Config
	Info   *relayinfo.T

	RejectEvent      []RejectEvent
	RejectFilter     []RejectFilter
	RejectCountQuery []RejectFilter
	OverwriteFilter  []OverwriteFilter
	OverrideDeletion []OverrideDeletionOutcome
	StoreEvent       []Events
	ReplaceEvent     []Events
	DeleteEvent      []Events
	QueryEvents      []QueryEvents
	CountEvents      []CountEvents
	OnConnect        []Hook
	OnDisconnect     []Hook
	OnEventSaved     []OnEventSaved

	// for establishing websockets
	upgrader websocket.Upgrader
	// all connected clients, for Shutdown
	clients *xsync.MapOf[*relayws.WebSocket, struct{}]
	// the subscription registry: per connection, a map of subscription id to
	// its listener
	listeners *xsync.MapOf[*relayws.WebSocket, ListenerMap]
	// serializes broadcasts so every connection observes live events in the
	// order they were accepted
	broadcastMx sync.Mutex

	Addr       string
	serveMux   *http.ServeMux
	httpServer *http.Server

	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
	MaxMessageSize int64
	// MailboxSize is the outbound queue depth per connection.
	MailboxSize int
}

func NewRelay(c context.Context, cancel context.CancelFunc,
	inf *relayinfo.T, conf *Config) (rl *Relay) {

	maxMessageLength := MaxMessageSize
	if inf.Limitation.MaxMessageLength > 0 {
		maxMessageLength = inf.Limitation.MaxMessageLength
	}
	inf.Software = Software
	inf.Version = Version
	rl = &Relay{
		Ctx:    c,
		WG:     &sync.WaitGroup{},
		Cancel: cancel,
		Config: conf,
		Info:   inf,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  ReadBufferSize,
			WriteBufferSize: WriteBufferSize,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: xsync.NewTypedMapOf[*relayws.WebSocket,
			struct{}](PointerHasher[relayws.WebSocket]),
		listeners: xsync.NewTypedMapOf[*relayws.WebSocket,
			ListenerMap](PointerHasher[relayws.WebSocket]),
		serveMux:       &http.ServeMux{},
		WriteWait:      WriteWait,
		PongWait:       PongWait,
		PingPeriod:     PingPeriod,
		MaxMessageSize: int64(maxMessageLength),
		MailboxSize:    relayws.DefaultMailboxSize,
	}
	return
}
