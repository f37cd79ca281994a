package badger

import (
	"encoding/binary"
	"encoding/hex"
	"math"

	"github.com/lumenlabs/relayr/pkg/nostr/event"
	"github.com/lumenlabs/relayr/pkg/nostr/eventstore/badger/keys/index"
	"github.com/lumenlabs/relayr/pkg/nostr/eventstore/badger/keys/kinder"
	"github.com/lumenlabs/relayr/pkg/nostr/eventstore/badger/keys/pubkey"
	"github.com/lumenlabs/relayr/pkg/nostr/eventstore/badger/keys/serial"
	"github.com/lumenlabs/relayr/pkg/nostr/filter"
)

type query struct {
	index        int
	queryFilter  *filter.T
	searchPrefix []byte
	start        []byte
	results      chan Results
	// skipTS marks queries over the id index, whose keys carry no timestamp.
	skipTS bool
	// padStart marks queries whose prefix cuts into the middle of a key
	// field, so the until bound cannot be encoded into the seek start and
	// the scan begins at the very end of the prefix range instead.
	padStart bool
}

type Results struct {
	Ev  *event.T
	Ser *serial.T
}

// PrepareQueries analyses a filter and generates the set of index scans whose
// union covers every event the filter can match. Every candidate an index
// scan yields is confirmed against the full filter before being returned, so
// the scans only need to be a superset, which is what makes prefix searches
// on ids and authors work.
func PrepareQueries(f *filter.T) (qs []query, since uint64, err error) {
	switch {
	// ids override all other dimensions, they are the narrowest index
	case len(f.IDs) > 0:
		qs = make([]query, 0, len(f.IDs))
		for _, idHex := range f.IDs {
			prf, _, ok := hexPrefix(index.Id, idHex, 8)
			if !ok {
				continue
			}
			qs = append(qs, query{
				index:        len(qs),
				searchPrefix: prf,
				skipTS:       true,
				padStart:     true,
			})
		}
	case len(f.Authors) > 0:
		qs = make([]query, 0, len(f.Authors))
		for _, pubkeyHex := range f.Authors {
			if len(pubkeyHex) >= 2*pubkey.Len && len(f.Kinds) > 0 {
				var pk *pubkey.T
				if pk, err = pubkey.New(pubkeyHex); err != nil {
					// unparseable author can't match anything
					err = nil
					continue
				}
				for _, k := range f.Kinds {
					qs = append(qs, query{
						index:        len(qs),
						searchPrefix: index.PubkeyKind.Key(pk, kinder.New(k)),
					})
				}
				continue
			}
			// a short author prefix scans the pubkey index, kinds are
			// settled by the confirming filter match
			prf, full, ok := hexPrefix(index.Pubkey, pubkeyHex, pubkey.Len)
			if !ok {
				continue
			}
			qs = append(qs, query{
				index:        len(qs),
				searchPrefix: prf,
				padStart:     !full,
			})
		}
	case len(f.Tags) > 0:
		size := 0
		for _, values := range f.Tags {
			size += len(values)
		}
		if size == 0 {
			// an empty tag value set matches nothing
			return nil, 0, nil
		}
		qs = make([]query, 0, size)
		for _, values := range f.Tags {
			for _, value := range values {
				qs = append(qs, query{
					index:        len(qs),
					searchPrefix: GetTagKeyPrefix(value),
				})
			}
		}
	case len(f.Kinds) > 0:
		qs = make([]query, len(f.Kinds))
		for i, k := range f.Kinds {
			qs[i] = query{
				index:        i,
				searchPrefix: index.Kind.Key(kinder.New(k)),
			}
		}
	default:
		qs = []query{{index: 0, searchPrefix: index.CreatedAt.Key()}}
	}
	var until uint64 = math.MaxUint64
	if f.Until != nil {
		if fu := f.Until.T().U64(); fu < until {
			until = fu + 1
		}
	}
	for i, q := range qs {
		qs[i].queryFilter = f
		if q.padStart {
			// start past every key in the prefix range; 0xff padding longer
			// than any key suffix sorts after them all
			start := make([]byte, len(q.searchPrefix),
				len(q.searchPrefix)+3*serial.Len)
			copy(start, q.searchPrefix)
			for j := 0; j < 3*serial.Len; j++ {
				start = append(start, 0xff)
			}
			qs[i].start = start
		} else {
			qs[i].start = binary.BigEndian.AppendUint64(q.searchPrefix, until)
		}
		qs[i].results = make(chan Results, 12)
	}
	// this is where the iteration stops
	if f.Since != nil {
		if fs := f.Since.T().U64(); fs > since {
			since = fs
		}
	}
	return
}

// hexPrefix turns a full or prefix hex value into a search prefix under the
// given index, truncated at max decoded bytes. Odd length prefixes are
// rounded down to whole bytes, the confirming filter match settles the last
// nibble. full reports whether the value covered all max bytes.
func hexPrefix(idx index.P, h string, max int) (prf []byte, full bool, ok bool) {
	if len(h) > 2*max {
		h = h[:2*max]
	}
	full = len(h) == 2*max
	h = h[:len(h)&^1]
	dec, err := hex.DecodeString(h)
	if err != nil {
		return nil, false, false
	}
	return append(idx.Key(), dec...), full, true
}
