package badger

import (
	"context"

	"github.com/dgraph-io/badger/v4"
	"github.com/lumenlabs/relayr/pkg/nostr/event"
	"github.com/lumenlabs/relayr/pkg/nostr/eventstore"
	"github.com/lumenlabs/relayr/pkg/nostr/eventstore/badger/keys/index"
	"github.com/lumenlabs/relayr/pkg/nostr/eventstore/badger/keys/kinder"
	"github.com/lumenlabs/relayr/pkg/nostr/eventstore/badger/keys/pubkey"
	"github.com/lumenlabs/relayr/pkg/nostr/eventstore/badger/keys/serial"
	"github.com/lumenlabs/relayr/pkg/nostr/tag"
)

// SaveReplaceable stores an event of a replaceable kind, keeping exactly one
// canonical instance per replacement key. The newest created_at wins no
// matter the arrival order, a tie goes to the lexicographically smaller id.
// The losing instance is tombstoned, so replicas playing events to each other
// in any order converge on the same survivor.
func (b *Backend) SaveReplaceable(c context.Context, ev *event.T) (err error) {
	b.WG.Add(1)
	defer b.WG.Done()
	b.writeMx.Lock()
	defer b.writeMx.Unlock()
	// a returned error aborts the transaction, so the superseded outcome is
	// carried out of the Update separately: its tombstone write must commit
	superseded := false
	err = b.Update(func(txn *badger.Txn) (err error) {
		if _, err = txn.Get(TombstoneKey(ev.ID)); err == nil {
			return eventstore.ErrTombstoned
		}
		var found *serial.T
		if found, err = b.findSerial(txn, ev.ID); chk.E(err) {
			return
		}
		if found != nil {
			return eventstore.ErrDupEvent
		}
		var existing []replaceCandidate
		if existing, err = b.findReplaceCandidates(txn, ev); chk.E(err) {
			return
		}
		for _, prev := range existing {
			if supersedes(prev.ev, ev) {
				// an already stored instance outranks the incoming event;
				// tombstone the loser and store nothing
				superseded = true
				return txn.Set(TombstoneKey(ev.ID), nil)
			}
		}
		for _, prev := range existing {
			if err = b.removeEvent(txn, prev.ev, prev.ser); chk.E(err) {
				return
			}
			if err = txn.Set(TombstoneKey(prev.ev.ID), nil); chk.E(err) {
				return
			}
		}
		return b.saveEvent(txn, ev)
	})
	if err == nil && superseded {
		err = eventstore.ErrSuperseded
	}
	return
}

type replaceCandidate struct {
	ev  *event.T
	ser *serial.T
}

// findReplaceCandidates returns the stored instances sharing the incoming
// event's replacement key: same pubkey and kind, and for parameterized kinds
// the same "d" tag value (a missing "d" tag counts as the empty value).
func (b *Backend) findReplaceCandidates(txn *badger.Txn,
	ev *event.T) (found []replaceCandidate, err error) {

	var pk *pubkey.T
	if pk, err = pubkey.New(ev.PubKey); chk.E(err) {
		return
	}
	prf := index.PubkeyKind.Key(pk, kinder.New(ev.Kind))
	var sers []*serial.T
	it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: false})
	for it.Seek(prf); it.ValidForPrefix(prf); it.Next() {
		ser := serial.FromKey(it.Item().Key())
		ser.Val = append([]byte(nil), ser.Val...)
		sers = append(sers, ser)
	}
	it.Close()
	dTag := replacementDTag(ev)
	for _, ser := range sers {
		var stored *event.T
		if stored, err = b.fetchEvent(txn, ser); chk.E(err) {
			return
		}
		if stored == nil {
			continue
		}
		// the 8 byte pubkey prefix in the index can collide, confirm
		if stored.PubKey != ev.PubKey || stored.Kind != ev.Kind {
			continue
		}
		if ev.Kind.IsParameterizedReplaceable() &&
			replacementDTag(stored) != dTag {
			continue
		}
		found = append(found, replaceCandidate{ev: stored, ser: ser})
	}
	return
}

func replacementDTag(ev *event.T) string {
	// the empty value element pins the name match exact, a bare {"d"} prefix
	// would also catch names like "delegation"
	if t := ev.Tags.GetFirst(tag.T{"d", ""}); t != nil {
		return t.Value()
	}
	return ""
}

// supersedes reports whether a outranks b for the same replacement key.
func supersedes(a, b *event.T) bool {
	if a.CreatedAt != b.CreatedAt {
		return a.CreatedAt > b.CreatedAt
	}
	return a.ID < b.ID
}
