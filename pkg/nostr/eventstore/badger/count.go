package badger

import (
	"context"

	"github.com/dgraph-io/badger/v4"
	"github.com/lumenlabs/relayr/pkg/nostr/event"
	"github.com/lumenlabs/relayr/pkg/nostr/eventstore/badger/keys/createdat"
	"github.com/lumenlabs/relayr/pkg/nostr/eventstore/badger/keys/serial"
	"github.com/lumenlabs/relayr/pkg/nostr/filter"
)

// CountEvents reports how many stored events match the filter. Unlike
// QueryEvents the count is not capped by a limit.
func (b *Backend) CountEvents(c context.Context, f *filter.T) (count int,
	err error) {

	var queries []query
	var since uint64
	if queries, since, err = PrepareQueries(f); chk.E(err) {
		return
	}
	seen := make(map[uint64]struct{})
	err = b.View(func(txn *badger.Txn) (err error) {
		for _, q := range queries {
			opts := badger.IteratorOptions{Reverse: true, PrefetchValues: false}
			it := txn.NewIterator(opts)
			for it.Seek(q.start); it.ValidForPrefix(q.searchPrefix); it.Next() {
				k := it.Item().KeyCopy(nil)
				if !q.skipTS {
					if createdat.FromKey(k).Val.U64() < since {
						break
					}
				}
				ser := serial.FromKey(k)
				if _, dup := seen[ser.Uint64()]; dup {
					continue
				}
				var ev *event.T
				if ev, err = b.fetchEvent(txn, ser); chk.E(err) {
					it.Close()
					return
				}
				if ev == nil || !q.queryFilter.Matches(ev) {
					continue
				}
				seen[ser.Uint64()] = struct{}{}
				count++
			}
			it.Close()
		}
		return
	})
	return
}
