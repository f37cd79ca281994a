package badger

import (
	"context"
	"encoding/json"

	"github.com/dgraph-io/badger/v4"
	"github.com/lumenlabs/relayr/pkg/nostr/event"
	"github.com/lumenlabs/relayr/pkg/nostr/eventid"
	"github.com/lumenlabs/relayr/pkg/nostr/eventstore"
	"github.com/lumenlabs/relayr/pkg/nostr/eventstore/badger/keys/arb"
	"github.com/lumenlabs/relayr/pkg/nostr/eventstore/badger/keys/id"
	"github.com/lumenlabs/relayr/pkg/nostr/eventstore/badger/keys/index"
	"github.com/lumenlabs/relayr/pkg/nostr/eventstore/badger/keys/serial"
)

// TombstoneKey is the key marking an event id as deleted. It carries the full
// 32 bytes of the id, unlike the 8 byte prefix of the id index, because a
// false positive here would permanently block an unrelated event.
func TombstoneKey(evID eventid.T) []byte {
	return index.Tombstone.Key(arb.New(evID.Bytes()))
}

func (b *Backend) SaveEvent(c context.Context, ev *event.T) (err error) {
	b.WG.Add(1)
	defer b.WG.Done()
	b.writeMx.Lock()
	defer b.writeMx.Unlock()
	return b.Update(func(txn *badger.Txn) (err error) {
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
		return b.saveEvent(txn, ev)
	})
}

// saveEvent writes the primary record and all index keys inside txn. The
// caller holds writeMx and has already ruled out duplicates and tombstones.
func (b *Backend) saveEvent(txn *badger.Txn, ev *event.T) (err error) {
	var bin []byte
	if bin, err = json.Marshal(ev); chk.E(err) {
		return
	}
	var idx []byte
	var ser *serial.T
	if idx, ser, err = b.SerialKey(); chk.E(err) {
		return
	}
	if err = txn.Set(idx, bin); chk.E(err) {
		return
	}
	for _, k := range GetIndexKeysForEvent(ev, ser) {
		if err = txn.Set(k, nil); chk.E(err) {
			return
		}
	}
	log.T.F("saved event %s under serial %d", ev.ID, ser.Uint64())
	return
}

// findSerial looks up an event's serial through the id index, nil when the
// event is not stored.
func (b *Backend) findSerial(txn *badger.Txn,
	evID eventid.T) (ser *serial.T, err error) {

	prf := index.Id.Key(id.New(evID))
	it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: false})
	defer it.Close()
	it.Seek(prf)
	if it.ValidForPrefix(prf) {
		ser = serial.FromKey(it.Item().Key())
		ser.Val = append([]byte(nil), ser.Val...)
	}
	return
}

// fetchEvent loads and decodes the primary record for a serial, nil when the
// record is gone.
func (b *Backend) fetchEvent(txn *badger.Txn,
	ser *serial.T) (ev *event.T, err error) {

	var item *badger.Item
	if item, err = txn.Get(index.Event.Key(ser)); err != nil {
		return nil, nil
	}
	var bin []byte
	if bin, err = item.ValueCopy(nil); chk.E(err) {
		return
	}
	ev = &event.T{}
	if err = json.Unmarshal(bin, ev); chk.E(err) {
		return nil, err
	}
	return
}
