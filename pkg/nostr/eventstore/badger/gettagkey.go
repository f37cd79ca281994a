package badger

import (
	"encoding/hex"

	"github.com/lumenlabs/relayr/pkg/nostr/eventstore/badger/keys"
	"github.com/lumenlabs/relayr/pkg/nostr/eventstore/badger/keys/arb"
	"github.com/lumenlabs/relayr/pkg/nostr/eventstore/badger/keys/createdat"
	"github.com/lumenlabs/relayr/pkg/nostr/eventstore/badger/keys/index"
	"github.com/lumenlabs/relayr/pkg/nostr/eventstore/badger/keys/pubkey"
	"github.com/lumenlabs/relayr/pkg/nostr/eventstore/badger/keys/serial"
)

// GetTagKeyElements picks the index for a tag value and assembles the key
// elements following the prefix. 64 character hex values (pubkey and event
// references) go into the compact Tag32 index, everything else is indexed as
// utf-8 in Tag.
func GetTagKeyElements(tagValue string, CA *createdat.T,
	ser *serial.T) (prf index.P, elems []keys.Element) {

	if pkb := decode32(tagValue); pkb != nil {
		pk, _ := pubkey.NewFromBytes(pkb)
		return index.Tag32, keys.Make(pk, CA, ser)
	}
	return index.Tag, keys.Make(arb.NewFromString(tagValue), CA, ser)
}

// GetTagKeyPrefix returns the search prefix for a tag value, the initial
// bytes of the keys produced by GetTagKeyElements.
func GetTagKeyPrefix(tagValue string) (key []byte) {
	if pkb := decode32(tagValue); pkb != nil {
		pk, _ := pubkey.NewFromBytes(pkb)
		return index.Tag32.Key(pk)
	}
	return index.Tag.Key(arb.NewFromString(tagValue))
}

func decode32(tagValue string) (b []byte) {
	if len(tagValue) != 64 {
		return nil
	}
	var err error
	if b, err = hex.DecodeString(tagValue); err != nil {
		return nil
	}
	return
}
