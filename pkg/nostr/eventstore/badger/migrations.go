package badger

import (
	"encoding/binary"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/lumenlabs/relayr/pkg/nostr/eventstore/badger/keys/index"
)

// currentVersion is the schema version of the keyspace. Bump when a key
// layout change requires a rebuild of the indexes from the primary records.
const currentVersion uint16 = 1

func (b *Backend) runMigrations() (err error) {
	return b.Update(func(txn *badger.Txn) (err error) {
		var item *badger.Item
		key := index.Version.Key()
		if item, err = txn.Get(key); errors.Is(err, badger.ErrKeyNotFound) {
			// fresh database, stamp it
			val := make([]byte, 2)
			binary.BigEndian.PutUint16(val, currentVersion)
			return txn.Set(key, val)
		} else if chk.E(err) {
			return
		}
		var val []byte
		if val, err = item.ValueCopy(nil); chk.E(err) {
			return
		}
		if v := binary.BigEndian.Uint16(val); v != currentVersion {
			return log.E.Err("unsupported store version %d, this build expects %d",
				v, currentVersion)
		}
		return
	})
}
