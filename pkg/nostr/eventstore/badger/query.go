package badger

import (
	"container/heap"
	"context"

	"github.com/dgraph-io/badger/v4"
	"github.com/lumenlabs/relayr/pkg/nostr/event"
	"github.com/lumenlabs/relayr/pkg/nostr/eventstore/badger/keys/createdat"
	"github.com/lumenlabs/relayr/pkg/nostr/eventstore/badger/keys/serial"
	"github.com/lumenlabs/relayr/pkg/nostr/eventstore/badger/priority"
	"github.com/lumenlabs/relayr/pkg/nostr/filter"
)

// QueryEvents streams the stored events matching the filter into the returned
// channel, newest first with ties broken by descending id, and closes it when
// the scan is done or the context is canceled. At most min(filter limit,
// MaxLimit) events are sent.
//
// Each index scan runs in its own goroutine against a read snapshot, and a
// merge heap interleaves their already-sorted streams, so the result order
// holds without materializing more than one event per scan at a time.
func (b *Backend) QueryEvents(c context.Context, f *filter.T) (ch event.C,
	err error) {

	ch = make(event.C)
	// an explicit zero limit asks for no stored events at all, distinct from
	// an absent limit which gets the server maximum
	if f.Limit != nil && *f.Limit == 0 {
		close(ch)
		return
	}
	var queries []query
	var since uint64
	if queries, since, err = PrepareQueries(f); chk.E(err) {
		return
	}
	limit := b.MaxLimit
	if f.Limit != nil && *f.Limit > 0 && *f.Limit < limit {
		limit = *f.Limit
	}
	go func() {
		defer close(ch)
		// scans stop when the merge is done, not just when the caller goes
		scanCtx, scanCancel := context.WithCancel(c)
		defer scanCancel()
		for _, q1 := range queries {
			q2 := q1
			go b.runScan(scanCtx, q2, since)
		}
		// seed the merge heap with the head of each scan
		emitQueue := make(priority.Queue, 0, len(queries))
		for _, q := range queries {
			if evt, ok := <-q.results; ok {
				emitQueue = append(emitQueue, &priority.QueryEvent{
					T:     evt.Ev,
					Ser:   evt.Ser,
					Query: q.index,
				})
			}
		}
		if len(emitQueue) == 0 {
			return
		}
		heap.Init(&emitQueue)
		emitted := 0
		// a single event can surface in more than one scan when a filter
		// names several of its tag values
		seen := make(map[uint64]struct{}, limit)
		for {
			latest := emitQueue[0]
			snum := latest.Ser.Uint64()
			if _, dup := seen[snum]; !dup {
				seen[snum] = struct{}{}
				select {
				case <-c.Done():
					return
				case ch <- latest.T:
				}
				emitted++
				if emitted == limit {
					return
				}
			}
			if evt, ok := <-queries[latest.Query].results; ok {
				emitQueue[0].T = evt.Ev
				emitQueue[0].Ser = evt.Ser
				heap.Fix(&emitQueue, 0)
			} else {
				heap.Remove(&emitQueue, 0)
				if len(emitQueue) == 0 {
					return
				}
			}
		}
	}()
	return ch, nil
}

// runScan walks one index range in reverse, confirms each candidate against
// the full filter and feeds survivors to the query's results channel in the
// order the index yields them, newest first.
func (b *Backend) runScan(c context.Context, q query, since uint64) {
	defer close(q.results)
	var sers []*serial.T
	err := b.View(func(txn *badger.Txn) (err error) {
		opts := badger.IteratorOptions{Reverse: true, PrefetchValues: false}
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(q.start); it.ValidForPrefix(q.searchPrefix); it.Next() {
			k := it.Item().KeyCopy(nil)
			if !q.skipTS {
				if createdat.FromKey(k).Val.U64() < since {
					break
				}
			}
			sers = append(sers, serial.FromKey(k))
		}
		return
	})
	if chk.E(err) {
		return
	}
	for _, ser := range sers {
		var ev *event.T
		err = b.View(func(txn *badger.Txn) (err error) {
			ev, err = b.fetchEvent(txn, ser)
			return
		})
		if chk.E(err) || ev == nil {
			continue
		}
		// the index prefix is a superset match, the filter is the authority
		if !q.queryFilter.Matches(ev) {
			continue
		}
		select {
		case <-c.Done():
			return
		case q.results <- Results{Ev: ev, Ser: ser}:
		}
	}
}
