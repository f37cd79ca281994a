package badger

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/lumenlabs/relayr/pkg/nostr/event"
	"github.com/lumenlabs/relayr/pkg/nostr/eventstore"
	"github.com/lumenlabs/relayr/pkg/nostr/filter"
	"github.com/lumenlabs/relayr/pkg/nostr/kind"
	"github.com/lumenlabs/relayr/pkg/nostr/kinds"
	"github.com/lumenlabs/relayr/pkg/nostr/tag"
	"github.com/lumenlabs/relayr/pkg/nostr/tags"
	"github.com/lumenlabs/relayr/pkg/nostr/timestamp"
	"github.com/stretchr/testify/require"
	"lukechampine.com/frand"
)

func newTestBackend(t *testing.T) (b *Backend) {
	t.Helper()
	b = GetBackend(t.TempDir())
	require.NoError(t, b.Init())
	t.Cleanup(b.Close)
	return
}

// mkEvent builds an unsigned event with a correctly computed id. The store
// trusts its callers to have validated signatures already, so these are
// enough for everything but the import path.
func mkEvent(pk string, ts int64, k kind.T, content string,
	tgs ...tag.T) (ev *event.T) {

	ev = &event.T{
		PubKey:    pk,
		CreatedAt: timestamp.FromUnix(ts),
		Kind:      k,
		Tags:      tags.T(tgs),
		Content:   content,
	}
	if ev.Tags == nil {
		ev.Tags = tags.T{}
	}
	ev.ID = ev.GetID()
	return
}

var (
	alice = "79be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"
	bob   = "c6047f9441ed7d6d3045406e95c07cd85c778e4b8cef3ca7abac09b95c709ee5"
)

func drain(t *testing.T, ch event.C) (evs []*event.T) {
	t.Helper()
	for ev := range ch {
		evs = append(evs, ev)
	}
	return
}

func TestSaveIdempotent(t *testing.T) {
	b := newTestBackend(t)
	c := context.Background()
	ev := mkEvent(alice, 100, kind.TextNote, "hello")
	require.NoError(t, b.SaveEvent(c, ev))
	err := b.SaveEvent(c, ev)
	require.ErrorIs(t, err, eventstore.ErrDupEvent)
	ch, err := b.QueryEvents(c, &filter.T{})
	require.NoError(t, err)
	evs := drain(t, ch)
	require.Len(t, evs, 1)
	require.Equal(t, ev.ID, evs[0].ID)
}

func TestQueryOrderAndPagination(t *testing.T) {
	b := newTestBackend(t)
	c := context.Background()
	for i := int64(1); i <= 10; i++ {
		ev := mkEvent(alice, i*10, kind.TextNote, fmt.Sprintf("note %d", i))
		require.NoError(t, b.SaveEvent(c, ev))
	}
	limit := 4
	ch, err := b.QueryEvents(c, &filter.T{Limit: &limit})
	require.NoError(t, err)
	evs := drain(t, ch)
	require.Len(t, evs, 4)
	for i, ev := range evs {
		require.EqualValues(t, (10-i)*10, ev.CreatedAt)
	}
	// a fresh query below the last seen timestamp continues the walk
	until := (evs[len(evs)-1].CreatedAt - 1).Ptr()
	ch, err = b.QueryEvents(c, &filter.T{Limit: &limit, Until: until})
	require.NoError(t, err)
	evs = drain(t, ch)
	require.Len(t, evs, 4)
	for i, ev := range evs {
		require.EqualValues(t, (6-i)*10, ev.CreatedAt)
	}
}

func TestQuerySinceUntilInclusive(t *testing.T) {
	b := newTestBackend(t)
	c := context.Background()
	for i := int64(1); i <= 5; i++ {
		require.NoError(t,
			b.SaveEvent(c, mkEvent(alice, i, kind.TextNote, fmt.Sprintf("n%d", i))))
	}
	f := &filter.T{
		Since: timestamp.FromUnix(2).Ptr(),
		Until: timestamp.FromUnix(4).Ptr(),
	}
	ch, err := b.QueryEvents(c, f)
	require.NoError(t, err)
	evs := drain(t, ch)
	require.Len(t, evs, 3)
	require.EqualValues(t, 4, evs[0].CreatedAt)
	require.EqualValues(t, 2, evs[2].CreatedAt)
}

func TestQueryByIDPrefix(t *testing.T) {
	b := newTestBackend(t)
	c := context.Background()
	ev1 := mkEvent(alice, 100, kind.TextNote, "first")
	ev2 := mkEvent(bob, 200, kind.TextNote, "second")
	require.NoError(t, b.SaveEvent(c, ev1))
	require.NoError(t, b.SaveEvent(c, ev2))
	// full id
	ch, err := b.QueryEvents(c, &filter.T{IDs: tag.T{ev1.ID.String()}})
	require.NoError(t, err)
	evs := drain(t, ch)
	require.Len(t, evs, 1)
	require.Equal(t, ev1.ID, evs[0].ID)
	// short prefix
	ch, err = b.QueryEvents(c, &filter.T{IDs: tag.T{ev2.ID.String()[:12]}})
	require.NoError(t, err)
	evs = drain(t, ch)
	require.Len(t, evs, 1)
	require.Equal(t, ev2.ID, evs[0].ID)
}

func TestQueryAuthorsAndKinds(t *testing.T) {
	b := newTestBackend(t)
	c := context.Background()
	require.NoError(t, b.SaveEvent(c, mkEvent(alice, 10, kind.TextNote, "a note")))
	require.NoError(t, b.SaveEvent(c, mkEvent(alice, 20, kind.Repost, "a repost")))
	require.NoError(t, b.SaveEvent(c, mkEvent(bob, 30, kind.TextNote, "b note")))
	ch, err := b.QueryEvents(c, &filter.T{
		Authors: tag.T{alice},
		Kinds:   kinds.T{kind.TextNote},
	})
	require.NoError(t, err)
	evs := drain(t, ch)
	require.Len(t, evs, 1)
	require.Equal(t, "a note", evs[0].Content)
	// author prefix matching
	ch, err = b.QueryEvents(c, &filter.T{Authors: tag.T{bob[:10]}})
	require.NoError(t, err)
	evs = drain(t, ch)
	require.Len(t, evs, 1)
	require.Equal(t, "b note", evs[0].Content)
}

func TestQueryByTag(t *testing.T) {
	b := newTestBackend(t)
	c := context.Background()
	tagged := mkEvent(alice, 10, kind.TextNote, "tagged",
		tag.T{"t", "nostr"})
	require.NoError(t, b.SaveEvent(c, tagged))
	require.NoError(t, b.SaveEvent(c, mkEvent(alice, 20, kind.TextNote, "plain")))
	refd := mkEvent(bob, 30, kind.TextNote, "reply",
		tag.T{"p", alice})
	require.NoError(t, b.SaveEvent(c, refd))
	ch, err := b.QueryEvents(c, &filter.T{Tags: filter.TagMap{"t": {"nostr"}}})
	require.NoError(t, err)
	evs := drain(t, ch)
	require.Len(t, evs, 1)
	require.Equal(t, tagged.ID, evs[0].ID)
	// 64 char hex values travel through the compact index
	ch, err = b.QueryEvents(c, &filter.T{Tags: filter.TagMap{"p": {alice}}})
	require.NoError(t, err)
	evs = drain(t, ch)
	require.Len(t, evs, 1)
	require.Equal(t, refd.ID, evs[0].ID)
	// empty value set matches nothing
	ch, err = b.QueryEvents(c, &filter.T{Tags: filter.TagMap{"t": {}}})
	require.NoError(t, err)
	require.Empty(t, drain(t, ch))
}

func TestReplaceNewerWins(t *testing.T) {
	b := newTestBackend(t)
	c := context.Background()
	older := mkEvent(alice, 10, kind.ProfileMetadata, `{"name":"old"}`)
	newer := mkEvent(alice, 20, kind.ProfileMetadata, `{"name":"new"}`)

	t.Run("in order", func(t *testing.T) {
		b := newTestBackend(t)
		require.NoError(t, b.SaveReplaceable(c, older))
		require.NoError(t, b.SaveReplaceable(c, newer))
		ch, err := b.QueryEvents(c, &filter.T{Authors: tag.T{alice}})
		require.NoError(t, err)
		evs := drain(t, ch)
		require.Len(t, evs, 1)
		require.Equal(t, newer.ID, evs[0].ID)
	})
	t.Run("out of order", func(t *testing.T) {
		require.NoError(t, b.SaveReplaceable(c, newer))
		// the late arrival is tombstoned, not stored, and says so
		require.ErrorIs(t, b.SaveReplaceable(c, older), eventstore.ErrSuperseded)
		ch, err := b.QueryEvents(c, &filter.T{Authors: tag.T{alice}})
		require.NoError(t, err)
		evs := drain(t, ch)
		require.Len(t, evs, 1)
		require.Equal(t, newer.ID, evs[0].ID)
	})
}

func TestReplaceTieSmallerIDWins(t *testing.T) {
	b := newTestBackend(t)
	c := context.Background()
	ev1 := mkEvent(alice, 10, kind.ProfileMetadata, `{"name":"one"}`)
	ev2 := mkEvent(alice, 10, kind.ProfileMetadata, `{"name":"two"}`)
	winner, loser := ev1, ev2
	if ev2.ID < ev1.ID {
		winner, loser = ev2, ev1
	}
	require.NoError(t, b.SaveReplaceable(c, loser))
	require.NoError(t, b.SaveReplaceable(c, winner))
	ch, err := b.QueryEvents(c, &filter.T{Authors: tag.T{alice}})
	require.NoError(t, err)
	evs := drain(t, ch)
	require.Len(t, evs, 1)
	require.Equal(t, winner.ID, evs[0].ID)
	// and with the winner already stored the loser never lands
	b2 := newTestBackend(t)
	require.NoError(t, b2.SaveReplaceable(c, winner))
	require.ErrorIs(t, b2.SaveReplaceable(c, loser), eventstore.ErrSuperseded)
}

func TestReplaceParameterized(t *testing.T) {
	b := newTestBackend(t)
	c := context.Background()
	art1 := mkEvent(alice, 10, kind.T(30023), "v1", tag.T{"d", "post-1"})
	art2 := mkEvent(alice, 20, kind.T(30023), "v2", tag.T{"d", "post-1"})
	other := mkEvent(alice, 15, kind.T(30023), "other", tag.T{"d", "post-2"})
	require.NoError(t, b.SaveReplaceable(c, art1))
	require.NoError(t, b.SaveReplaceable(c, other))
	require.NoError(t, b.SaveReplaceable(c, art2))
	ch, err := b.QueryEvents(c, &filter.T{Authors: tag.T{alice}})
	require.NoError(t, err)
	evs := drain(t, ch)
	require.Len(t, evs, 2)
	var contents []string
	for _, ev := range evs {
		contents = append(contents, ev.Content)
	}
	require.ElementsMatch(t, []string{"v2", "other"}, contents)
}

func TestReplaceParameterizedExactDTagName(t *testing.T) {
	b := newTestBackend(t)
	c := context.Background()
	// a "delegation" tag ahead of the "d" tag must not be mistaken for the
	// replacement key
	v1 := mkEvent(alice, 10, kind.T(30023), "v1",
		tag.T{"delegation", "k1"}, tag.T{"d", "same"})
	v2 := mkEvent(alice, 20, kind.T(30023), "v2", tag.T{"d", "same"})
	require.NoError(t, b.SaveReplaceable(c, v1))
	require.NoError(t, b.SaveReplaceable(c, v2))
	ch, err := b.QueryEvents(c, &filter.T{Authors: tag.T{alice}})
	require.NoError(t, err)
	evs := drain(t, ch)
	require.Len(t, evs, 1)
	require.Equal(t, "v2", evs[0].Content)
}

func TestQueryZeroLimit(t *testing.T) {
	b := newTestBackend(t)
	c := context.Background()
	for i := int64(1); i <= 3; i++ {
		require.NoError(t,
			b.SaveEvent(c, mkEvent(alice, i, kind.TextNote, fmt.Sprintf("n%d", i))))
	}
	// limit zero means no stored events, it is not the same as no limit
	zero := 0
	ch, err := b.QueryEvents(c, &filter.T{Limit: &zero})
	require.NoError(t, err)
	require.Empty(t, drain(t, ch))
	// counting is unaffected by limits
	count, err := b.CountEvents(c, &filter.T{Limit: &zero})
	require.NoError(t, err)
	require.Equal(t, 3, count)
}

func TestDeleteTombstones(t *testing.T) {
	b := newTestBackend(t)
	c := context.Background()
	ev := mkEvent(alice, 100, kind.TextNote, "regrettable")
	require.NoError(t, b.SaveEvent(c, ev))
	require.NoError(t, b.DeleteEvent(c, ev))
	ch, err := b.QueryEvents(c, &filter.T{})
	require.NoError(t, err)
	require.Empty(t, drain(t, ch))
	// the id stays blocked
	err = b.SaveEvent(c, ev)
	require.ErrorIs(t, err, eventstore.ErrTombstoned)
}

func TestCountEvents(t *testing.T) {
	b := newTestBackend(t)
	c := context.Background()
	for i := int64(1); i <= 7; i++ {
		require.NoError(t,
			b.SaveEvent(c, mkEvent(alice, i, kind.TextNote, fmt.Sprintf("n%d", i))))
	}
	require.NoError(t, b.SaveEvent(c, mkEvent(bob, 8, kind.Repost, "r")))
	count, err := b.CountEvents(c, &filter.T{Kinds: kinds.T{kind.TextNote}})
	require.NoError(t, err)
	require.Equal(t, 7, count)
	// counts are not capped by limits
	limit := 2
	count, err = b.CountEvents(c, &filter.T{Limit: &limit})
	require.NoError(t, err)
	require.Equal(t, 8, count)
}

func TestExportImportRoundTrip(t *testing.T) {
	b := newTestBackend(t)
	c := context.Background()
	sk := hex.EncodeToString(frand.Bytes(32))
	var ids []string
	for i := int64(1); i <= 3; i++ {
		ev := &event.T{
			CreatedAt: timestamp.FromUnix(i),
			Kind:      kind.TextNote,
			Content:   fmt.Sprintf("signed %d", i),
		}
		require.NoError(t, ev.Sign(sk))
		require.NoError(t, b.SaveEvent(c, ev))
		ids = append(ids, ev.ID.String())
	}
	var buf bytes.Buffer
	require.NoError(t, b.Export(c, &buf))

	b2 := newTestBackend(t)
	n, err := b2.Import(c, &buf)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	ch, err := b2.QueryEvents(c, &filter.T{})
	require.NoError(t, err)
	evs := drain(t, ch)
	require.Len(t, evs, 3)
	for _, ev := range evs {
		require.Contains(t, ids, ev.ID.String())
	}
}

func TestWipe(t *testing.T) {
	b := newTestBackend(t)
	c := context.Background()
	ev := mkEvent(alice, 100, kind.TextNote, "gone soon")
	require.NoError(t, b.SaveEvent(c, ev))
	require.NoError(t, b.Wipe())
	ch, err := b.QueryEvents(c, &filter.T{})
	require.NoError(t, err)
	require.Empty(t, drain(t, ch))
	// wiping clears tombstones too, the event can come back
	require.NoError(t, b.SaveEvent(c, ev))
}
