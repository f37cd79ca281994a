package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lumenlabs/relayr/pkg/nostr/envelopes"
	"github.com/lumenlabs/relayr/pkg/nostr/event"
	"github.com/lumenlabs/relayr/pkg/nostr/eventid"
	"github.com/lumenlabs/relayr/pkg/nostr/eventstore"
	"github.com/lumenlabs/relayr/pkg/nostr/filter"
	"github.com/lumenlabs/relayr/pkg/nostr/filters"
	"github.com/lumenlabs/relayr/pkg/nostr/kind"
	"github.com/lumenlabs/relayr/pkg/nostr/kinds"
	"github.com/lumenlabs/relayr/pkg/nostr/relayinfo"
	"github.com/lumenlabs/relayr/pkg/nostr/relayws"
	"github.com/lumenlabs/relayr/pkg/nostr/tags"
	"github.com/lumenlabs/relayr/pkg/nostr/timestamp"
	"github.com/stretchr/testify/require"
)

const (
	alicePK = "79be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"
	id1     = "1111111111111111111111111111111111111111111111111111111111111111"
	id2     = "2222222222222222222222222222222222222222222222222222222222222222"
	id3     = "3333333333333333333333333333333333333333333333333333333333333333"
)

type recordingConn struct {
	mu     sync.Mutex
	wrote  []string
	closed bool
}

func (r *recordingConn) WriteMessage(_ int, b []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.wrote = append(r.wrote, string(b))
	return nil
}

func (r *recordingConn) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *recordingConn) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.wrote...)
}

func newTestRelay(t *testing.T) *Relay {
	t.Helper()
	c, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	inf := relayinfo.NewInfo("test", "", "", "", "", relayinfo.Limits{
		MaxSubscriptions: 8,
		MaxFilters:       4,
		MaxLimit:         100,
	})
	return NewRelay(c, cancel, inf, &Config{})
}

func newTestSocket() (*relayws.WebSocket, *recordingConn) {
	conn := &recordingConn{}
	return relayws.New(conn, nil, 32), conn
}

func mkNote(id string, ts timestamp.T) *event.T {
	return &event.T{
		ID:        eventid.T(id),
		PubKey:    alicePK,
		CreatedAt: ts,
		Kind:      kind.TextNote,
		Tags:      tags.T{},
		Content:   "note",
	}
}

func kindFilter(ks ...kind.T) filters.T {
	return filters.T{&filter.T{Kinds: kinds.T(ks)}}
}

func TestListenerRegistry(t *testing.T) {
	rl := newTestRelay(t)
	ws, _ := newTestSocket()
	defer ws.Close()
	var canceled []string
	mkCancel := func(name string) context.CancelCauseFunc {
		return func(error) { canceled = append(canceled, name) }
	}
	rl.SetListener("a", ws, kindFilter(kind.TextNote), mkCancel("a"))
	rl.SetListener("b", ws, kindFilter(kind.Reaction), mkCancel("b"))
	require.Equal(t, 2, rl.CountListeners(ws))

	// re-registering an id swaps the filters and cancels the old query
	rl.SetListener("a", ws, kindFilter(kind.Repost), mkCancel("a2"))
	require.Equal(t, 2, rl.CountListeners(ws))
	require.Equal(t, []string{"a"}, canceled)

	rl.RemoveListenerId(ws, "b")
	require.Equal(t, 1, rl.CountListeners(ws))
	require.Equal(t, []string{"a", "b"}, canceled)

	// unknown ids are a no-op
	rl.RemoveListenerId(ws, "nope")
	require.Equal(t, 1, rl.CountListeners(ws))

	rl.RemoveListener(ws)
	require.Equal(t, 0, rl.CountListeners(ws))
}

func TestGetListeningFiltersDeduplicates(t *testing.T) {
	rl := newTestRelay(t)
	ws1, _ := newTestSocket()
	ws2, _ := newTestSocket()
	defer ws1.Close()
	defer ws2.Close()
	noop := func(error) {}
	rl.SetListener("a", ws1, kindFilter(kind.TextNote), noop)
	rl.SetListener("b", ws2, kindFilter(kind.TextNote), noop)
	rl.SetListener("c", ws2, kindFilter(kind.Reaction), noop)
	got := rl.GetListeningFilters()
	require.Len(t, got, 2)
}

func TestBroadcastDeliveryOrder(t *testing.T) {
	rl := newTestRelay(t)
	ws, conn := newTestSocket()
	defer ws.Close()
	rl.SetListener("sub", ws, kindFilter(kind.TextNote), func(error) {})

	rl.BroadcastEvent(mkNote(id1, 100))
	rl.BroadcastEvent(mkNote(id2, 200))

	require.Eventually(t, func() bool {
		return len(conn.messages()) == 2
	}, time.Second, time.Millisecond)
	msgs := conn.messages()
	require.Contains(t, msgs[0], id1)
	require.Contains(t, msgs[1], id2)
	require.True(t, strings.HasPrefix(msgs[0], `["EVENT","sub",`))
}

func TestBroadcastMatchesSubscriptionFilters(t *testing.T) {
	rl := newTestRelay(t)
	notes, notesConn := newTestSocket()
	reactions, reactionsConn := newTestSocket()
	defer notes.Close()
	defer reactions.Close()
	rl.SetListener("n", notes, kindFilter(kind.TextNote), func(error) {})
	rl.SetListener("r", reactions, kindFilter(kind.Reaction), func(error) {})

	rl.BroadcastEvent(mkNote(id1, 100))

	require.Eventually(t, func() bool {
		return len(notesConn.messages()) == 1
	}, time.Second, time.Millisecond)
	require.Empty(t, reactionsConn.messages())
}

func TestAddEventStoresAndBroadcasts(t *testing.T) {
	rl := newTestRelay(t)
	var stored []*event.T
	rl.StoreEvent = append(rl.StoreEvent,
		func(c context.Context, ev *event.T) error {
			stored = append(stored, ev)
			return nil
		})
	var savedHook int
	rl.OnEventSaved = append(rl.OnEventSaved,
		func(c context.Context, ev *event.T) { savedHook++ })
	ws, conn := newTestSocket()
	defer ws.Close()
	rl.SetListener("sub", ws, kindFilter(kind.TextNote), func(error) {})

	require.NoError(t, rl.AddEvent(rl.Ctx, mkNote(id1, 100)))
	require.Len(t, stored, 1)
	require.Equal(t, 1, savedHook)
	require.Eventually(t, func() bool {
		return len(conn.messages()) == 1
	}, time.Second, time.Millisecond)
}

func TestAddEventEphemeralSkipsStorage(t *testing.T) {
	rl := newTestRelay(t)
	var stored int
	rl.StoreEvent = append(rl.StoreEvent,
		func(c context.Context, ev *event.T) error {
			stored++
			return nil
		})
	ws, conn := newTestSocket()
	defer ws.Close()
	rl.SetListener("sub", ws, filters.T{&filter.T{}}, func(error) {})

	ev := mkNote(id1, 100)
	ev.Kind = 20001
	require.NoError(t, rl.AddEvent(rl.Ctx, ev))
	require.Zero(t, stored)
	require.Eventually(t, func() bool {
		return len(conn.messages()) == 1
	}, time.Second, time.Millisecond)
}

func TestAddEventRoutesReplaceable(t *testing.T) {
	rl := newTestRelay(t)
	var stored, replaced int
	rl.StoreEvent = append(rl.StoreEvent,
		func(c context.Context, ev *event.T) error { stored++; return nil })
	rl.ReplaceEvent = append(rl.ReplaceEvent,
		func(c context.Context, ev *event.T) error { replaced++; return nil })

	ev := mkNote(id1, 100)
	ev.Kind = kind.ProfileMetadata
	require.NoError(t, rl.AddEvent(rl.Ctx, ev))
	ev2 := mkNote(id2, 100)
	ev2.Kind = kind.Article
	require.NoError(t, rl.AddEvent(rl.Ctx, ev2))
	require.Zero(t, stored)
	require.Equal(t, 2, replaced)
}

func TestAddEventSupersededSkipsHooksAndBroadcast(t *testing.T) {
	rl := newTestRelay(t)
	rl.ReplaceEvent = append(rl.ReplaceEvent,
		func(c context.Context, ev *event.T) error {
			return eventstore.ErrSuperseded
		})
	var saved int
	rl.OnEventSaved = append(rl.OnEventSaved,
		func(c context.Context, ev *event.T) { saved++ })
	ws, conn := newTestSocket()
	defer ws.Close()
	rl.SetListener("sub", ws, filters.T{&filter.T{}}, func(error) {})

	ev := mkNote(id1, 100)
	ev.Kind = kind.ProfileMetadata
	err := rl.AddEvent(rl.Ctx, ev)
	require.ErrorIs(t, err, eventstore.ErrSuperseded)
	// acknowledged as a duplicate, never fanned out
	require.True(t, strings.HasPrefix(err.Error(), "duplicate:"))
	require.Zero(t, saved)
	require.Never(t, func() bool {
		return len(conn.messages()) > 0
	}, 100*time.Millisecond, 10*time.Millisecond)
}

func TestSubscribeStoredThenLive(t *testing.T) {
	rl := newTestRelay(t)
	stored := mkNote(id1, 100)
	rl.QueryEvents = append(rl.QueryEvents,
		func(c context.Context, f *filter.T) (event.C, error) {
			ch := make(event.C, 1)
			ch <- stored
			close(ch)
			return ch, nil
		})
	ws, conn := newTestSocket()
	defer ws.Close()

	rl.handleReqMessage(rl.Ctx, ws, &envelopes.Req{
		SubscriptionID: "sub",
		Filters:        kindFilter(kind.TextNote),
	})
	require.Equal(t, 1, rl.CountListeners(ws))
	require.Eventually(t, func() bool {
		return len(conn.messages()) == 2
	}, time.Second, time.Millisecond)
	msgs := conn.messages()
	require.True(t, strings.HasPrefix(msgs[0], `["EVENT","sub",`))
	require.Contains(t, msgs[0], id1)
	require.Equal(t, `["EOSE","sub"]`, msgs[1])

	// after the end of stored events, live deliveries keep flowing
	rl.BroadcastEvent(mkNote(id2, 200))
	require.Eventually(t, func() bool {
		return len(conn.messages()) == 3
	}, time.Second, time.Millisecond)
	msgs = conn.messages()
	require.Contains(t, msgs[2], id2)
	eoses := 0
	for _, m := range msgs {
		if strings.HasPrefix(m, `["EOSE"`) {
			eoses++
		}
	}
	require.Equal(t, 1, eoses)
}

// stuckConn never finishes a write until released, simulating a peer that
// stopped reading.
type stuckConn struct {
	recordingConn
	release chan struct{}
}

func (s *stuckConn) WriteMessage(t int, b []byte) error {
	<-s.release
	return s.recordingConn.WriteMessage(t, b)
}

func (s *stuckConn) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func TestSlowConsumerDoesNotBlockOthers(t *testing.T) {
	rl := newTestRelay(t)
	stuck := &stuckConn{release: make(chan struct{})}
	defer close(stuck.release)
	slow := relayws.New(stuck, nil, 1)
	healthy, conn := newTestSocket()
	defer healthy.Close()
	noop := func(error) {}
	rl.SetListener("s", slow, filters.T{&filter.T{}}, noop)
	rl.SetListener("h", healthy, filters.T{&filter.T{}}, noop)

	for i := 1; i <= 4; i++ {
		rl.BroadcastEvent(mkNote(id3, timestamp.T(100*i)))
	}
	// the saturated connection gets cut, everyone else gets everything
	require.Eventually(t, func() bool {
		return len(conn.messages()) == 4
	}, time.Second, time.Millisecond)
	require.Eventually(t, stuck.isClosed, time.Second, time.Millisecond)
}

func TestAddEventRejectPolicy(t *testing.T) {
	rl := newTestRelay(t)
	rl.RejectEvent = append(rl.RejectEvent,
		func(c context.Context, ev *event.T) (bool, string) {
			return true, "rate-limited: slow down"
		})
	err := rl.AddEvent(rl.Ctx, mkNote(id1, 100))
	require.Error(t, err)
	require.Equal(t, "rate-limited: slow down", err.Error())
}

func TestAddEventNil(t *testing.T) {
	rl := newTestRelay(t)
	err := rl.AddEvent(rl.Ctx, nil)
	require.Error(t, err)
	require.True(t, strings.HasPrefix(err.Error(), "error:"))
}

func TestStoreErrorKeepsKnownPrefixes(t *testing.T) {
	require.ErrorIs(t, storeError(eventstore.ErrDupEvent),
		eventstore.ErrDupEvent)
	require.ErrorIs(t, storeError(eventstore.ErrTombstoned),
		eventstore.ErrTombstoned)
	err := storeError(errors.New("disk on fire"))
	require.True(t, strings.HasPrefix(err.Error(), "error:"))
}

func TestRejectFutureEvents(t *testing.T) {
	policy := RejectFutureEvents(900)
	ok := mkNote(id1, timestamp.Now()+100)
	reject, _ := policy(context.Background(), ok)
	require.False(t, reject)
	far := mkNote(id2, timestamp.Now()+10000)
	reject, msg := policy(context.Background(), far)
	require.True(t, reject)
	require.Contains(t, msg, "future")
}

func TestClampFilterLimit(t *testing.T) {
	policy := ClampFilterLimit(100)
	f := &filter.T{}
	policy(context.Background(), f)
	require.Equal(t, 100, *f.Limit)
	big := 5000
	f = &filter.T{Limit: &big}
	policy(context.Background(), f)
	require.Equal(t, 100, *f.Limit)
	small := 7
	f = &filter.T{Limit: &small}
	policy(context.Background(), f)
	require.Equal(t, 7, *f.Limit)
}
