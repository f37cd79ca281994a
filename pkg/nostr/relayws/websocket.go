// Package relayws wraps a websocket connection with the bounded outbound
// mailbox that decouples broadcast fan-out from slow clients.
package relayws

import (
	"errors"
	"net/http"
	"os"
	"sync"

	"github.com/fasthttp/websocket"
	"github.com/lumenlabs/relayr/pkg/nostr/envelopes"
	"github.com/lumenlabs/relayr/pkg/slog"
	"go.uber.org/atomic"
)

var log, chk = slog.New(os.Stderr)

// DefaultMailboxSize is the outbound queue depth per connection. When a
// client cannot drain this many pending messages it is cut off rather than
// allowed to exert backpressure on the broadcast path.
const DefaultMailboxSize = 512

// ErrClosed is returned by WriteEnvelope after the connection is torn down.
var ErrClosed = errors.New("connection closed")

// ErrMailboxFull is returned when an enqueue found the mailbox at capacity;
// the connection is closed as a side effect.
var ErrMailboxFull = errors.New("mailbox full, closing slow consumer")

// Conn is the part of *websocket.Conn the wrapper drives. Tests substitute a
// recording implementation.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// WebSocket multiplexes writes from the broadcaster, query streams and
// acknowledgments into a single ordered mailbox consumed by one writer
// goroutine, so no caller ever blocks on a peer's TCP window.
type WebSocket struct {
	Conn    Conn
	Request *http.Request

	remote atomic.String
	// Offenses counts protocol violations; sessions hang up after too many.
	Offenses atomic.Uint32

	mailbox  chan wsMsg
	done     chan struct{}
	closeOne sync.Once
}

type wsMsg struct {
	typ  int
	data []byte
}

// New wraps a connection and starts its writer. mailboxSize of zero means
// DefaultMailboxSize.
func New(conn Conn, req *http.Request, mailboxSize int) (ws *WebSocket) {
	if mailboxSize <= 0 {
		mailboxSize = DefaultMailboxSize
	}
	ws = &WebSocket{
		Conn:    conn,
		Request: req,
		mailbox: make(chan wsMsg, mailboxSize),
		done:    make(chan struct{}),
	}
	go ws.writeLoop()
	return
}

func (ws *WebSocket) writeLoop() {
	for {
		select {
		case <-ws.done:
			return
		case m := <-ws.mailbox:
			if err := ws.Conn.WriteMessage(m.typ, m.data); err != nil {
				log.T.F("write to %s failed: %s", ws.RealRemote(), err)
				ws.Close()
				return
			}
		}
	}
}

// WriteEnvelope enqueues an envelope for delivery. The enqueue itself never
// blocks: a full mailbox means the client has stopped reading, and the
// connection is closed instead of stalling the caller.
func (ws *WebSocket) WriteEnvelope(env envelopes.E) (err error) {
	return ws.enqueue(wsMsg{websocket.TextMessage, envelopes.Bytes(env)})
}

// Ping enqueues a ping control frame on the same writer, keeping all conn
// writes on one goroutine.
func (ws *WebSocket) Ping() (err error) {
	return ws.enqueue(wsMsg{websocket.PingMessage, nil})
}

func (ws *WebSocket) enqueue(m wsMsg) (err error) {
	select {
	case <-ws.done:
		return ErrClosed
	default:
	}
	select {
	case ws.mailbox <- m:
		return nil
	default:
		log.D.F("slow consumer %s, dropping connection", ws.RealRemote())
		ws.Close()
		return ErrMailboxFull
	}
}

// Close tears the connection down. Safe to call any number of times from any
// goroutine.
func (ws *WebSocket) Close() {
	ws.closeOne.Do(func() {
		close(ws.done)
		chk.T(ws.Conn.Close())
	})
}

// Done is closed when the connection is finished, for readers that select on
// connection lifetime.
func (ws *WebSocket) Done() <-chan struct{} { return ws.done }

// RealRemote returns the client address, taking proxy headers into account
// when the handler recorded them.
func (ws *WebSocket) RealRemote() string { return ws.remote.Load() }

func (ws *WebSocket) SetRealRemote(r string) { ws.remote.Store(r) }
