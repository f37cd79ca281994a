package badger

import (
	"github.com/lumenlabs/relayr/pkg/nostr/eventstore/badger/keys/index"
)

// Wipe erases all records, indexes and tombstones. The version stamp
// survives, the store stays usable.
func (b *Backend) Wipe() (err error) {
	b.writeMx.Lock()
	defer b.writeMx.Unlock()
	return b.DB.DropPrefix(
		[]byte{index.Event.B()},
		[]byte{index.CreatedAt.B()},
		[]byte{index.Id.B()},
		[]byte{index.Kind.B()},
		[]byte{index.Pubkey.B()},
		[]byte{index.PubkeyKind.B()},
		[]byte{index.Tag.B()},
		[]byte{index.Tag32.B()},
		[]byte{index.Tombstone.B()},
	)
}
