package badger

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/lumenlabs/relayr/pkg/nostr/event"
	"github.com/lumenlabs/relayr/pkg/nostr/eventstore/badger/keys/index"
	"github.com/lumenlabs/relayr/pkg/nostr/eventstore/badger/keys/serial"
)

var deletesSinceGC uint32

// DeleteEvent removes the event from the store and writes its tombstone, so
// the same id is refused if published again. Removing an id that is not
// stored still writes the tombstone.
func (b *Backend) DeleteEvent(c context.Context, ev *event.T) (err error) {
	b.WG.Add(1)
	defer b.WG.Done()
	b.writeMx.Lock()
	defer b.writeMx.Unlock()
	deleted := false
	err = b.Update(func(txn *badger.Txn) (err error) {
		var ser *serial.T
		if ser, err = b.findSerial(txn, ev.ID); chk.E(err) {
			return
		}
		if ser != nil {
			var stored *event.T
			if stored, err = b.fetchEvent(txn, ser); chk.E(err) {
				return
			}
			if stored != nil {
				if err = b.removeEvent(txn, stored, ser); chk.E(err) {
					return
				}
				deleted = true
			}
		}
		return txn.Set(TombstoneKey(ev.ID), nil)
	})
	if err != nil {
		return
	}
	if deleted {
		// occasionally reclaim value log space after deletions
		deletesSinceGC = (deletesSinceGC + 1) % 256
		if deletesSinceGC == 0 {
			if err := b.RunValueLogGC(0.8); err != nil &&
				!errors.Is(err, badger.ErrNoRewrite) {
				log.E.F("badger gc errored: %s", err)
			}
		}
	}
	return nil
}

// removeEvent deletes the primary record and every index key of a stored
// event. The index key set is recomputed from the record, which is why the
// stored form is required rather than the caller's copy.
func (b *Backend) removeEvent(txn *badger.Txn, ev *event.T,
	ser *serial.T) (err error) {

	for _, k := range GetIndexKeysForEvent(ev, ser) {
		if err = txn.Delete(k); chk.E(err) {
			return
		}
	}
	return txn.Delete(index.Event.Key(ser))
}
