package badger

import (
	"bufio"
	"context"
	"encoding/json"
	"io"

	"github.com/dgraph-io/badger/v4"
	"github.com/lumenlabs/relayr/pkg/nostr/event"
	"github.com/lumenlabs/relayr/pkg/nostr/eventstore/badger/keys/index"
)

// Export writes every stored event to w as newline delimited JSON, in serial
// (insertion) order. The output of Export fed back through Import rebuilds an
// equivalent store, indexes included, since indexes derive from the records.
func (b *Backend) Export(c context.Context, w io.Writer) (err error) {
	bw := bufio.NewWriter(w)
	prf := index.Event.Key()
	err = b.View(func(txn *badger.Txn) (err error) {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prf})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			select {
			case <-c.Done():
				return c.Err()
			default:
			}
			var v []byte
			if v, err = it.Item().ValueCopy(nil); chk.E(err) {
				return
			}
			if _, err = bw.Write(v); chk.E(err) {
				return
			}
			if err = bw.WriteByte('\n'); chk.E(err) {
				return
			}
		}
		return
	})
	if err != nil {
		return
	}
	return bw.Flush()
}

// Import reads newline delimited JSON events from r and stores each one,
// skipping events that fail validation, are duplicates or are tombstoned.
// Replaceable kinds go through the replacement path so the resulting store is
// canonical no matter the order of the input.
func (b *Backend) Import(c context.Context, r io.Reader) (count int,
	err error) {

	scan := bufio.NewScanner(r)
	scan.Buffer(make([]byte, 0, 512*1024), 512*1024)
	for scan.Scan() {
		select {
		case <-c.Done():
			return count, c.Err()
		default:
		}
		line := scan.Bytes()
		if len(line) == 0 {
			continue
		}
		ev := &event.T{}
		if err = json.Unmarshal(line, ev); err != nil {
			log.D.F("import: skipping unparseable line: %s", err)
			err = nil
			continue
		}
		if err = ev.Validate(); err != nil {
			log.D.F("import: skipping invalid event %s: %s", ev.ID, err)
			err = nil
			continue
		}
		if ev.Kind.IsReplaceable() || ev.Kind.IsParameterizedReplaceable() {
			err = b.SaveReplaceable(c, ev)
		} else {
			err = b.SaveEvent(c, ev)
		}
		if err != nil {
			log.D.F("import: not storing %s: %s", ev.ID, err)
			err = nil
			continue
		}
		count++
	}
	return count, scan.Err()
}
