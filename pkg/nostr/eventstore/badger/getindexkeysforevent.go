package badger

import (
	"github.com/lumenlabs/relayr/pkg/nostr/event"
	"github.com/lumenlabs/relayr/pkg/nostr/eventstore/badger/keys/createdat"
	"github.com/lumenlabs/relayr/pkg/nostr/eventstore/badger/keys/id"
	"github.com/lumenlabs/relayr/pkg/nostr/eventstore/badger/keys/index"
	"github.com/lumenlabs/relayr/pkg/nostr/eventstore/badger/keys/kinder"
	"github.com/lumenlabs/relayr/pkg/nostr/eventstore/badger/keys/pubkey"
	"github.com/lumenlabs/relayr/pkg/nostr/eventstore/badger/keys/serial"
	"github.com/lumenlabs/relayr/pkg/nostr/tag"
	"golang.org/x/exp/slices"
)

// MaxTagValueLen is the longest tag value that gets an index entry; longer
// values can still be found via post-filtering on a broader scan.
const MaxTagValueLen = 100

// GetIndexKeysForEvent generates all the index keys required to find the
// event from filters. ser must be the serial assigned to the event's primary
// record; the same derivation runs again on delete, so the set is a pure
// function of the record.
func GetIndexKeysForEvent(ev *event.T, ser *serial.T) (keyz [][]byte) {
	keyz = make([][]byte, 0, 6+len(ev.Tags))
	ID := id.New(ev.ID)
	CA := createdat.New(ev.CreatedAt)
	K := kinder.New(ev.Kind)
	PK, _ := pubkey.New(ev.PubKey)
	// ~ by id
	keyz = append(keyz, index.Id.Key(ID, ser))
	// ~ by pubkey+date
	keyz = append(keyz, index.Pubkey.Key(PK, CA, ser))
	// ~ by kind+date
	keyz = append(keyz, index.Kind.Key(K, CA, ser))
	// ~ by pubkey+kind+date
	keyz = append(keyz, index.PubkeyKind.Key(PK, K, CA, ser))
	// ~ by tag value + date
	for i, t := range ev.Tags {
		if len(t) < 2 ||
			// only single character tag names are indexable
			len(t[0]) != 1 ||
			len(t[1]) == 0 ||
			len(t[1]) > MaxTagValueLen {
			continue
		}
		// skip duplicate values, the first instance already got a key
		firstIndex := slices.IndexFunc(ev.Tags, func(ti tag.T) bool {
			return len(ti) >= 2 && ti[1] == t[1]
		})
		if firstIndex != i {
			continue
		}
		prf, elems := GetTagKeyElements(t.Value(), CA, ser)
		keyz = append(keyz, prf.Key(elems...))
	}
	// ~ by date only
	keyz = append(keyz, index.CreatedAt.Key(CA, ser))
	return
}
