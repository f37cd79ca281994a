// Package badger implements the durable event store on dgraph's badger
// key-value database.
//
// Events are stored once under a monotonic serial and reached through a set
// of secondary index keys (see the index package) that all end in the event's
// timestamp and serial, so that prefix range scans walk matching events in
// chronological order. Every index entry is derivable from the primary record
// alone, which keeps the whole keyspace rebuildable from an export.
package badger

import (
	"encoding/binary"
	"os"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/lumenlabs/relayr/pkg/nostr/eventstore"
	"github.com/lumenlabs/relayr/pkg/nostr/eventstore/badger/keys/index"
	"github.com/lumenlabs/relayr/pkg/nostr/eventstore/badger/keys/serial"
	"github.com/lumenlabs/relayr/pkg/slog"
)

var log, chk = slog.New(os.Stderr)

var _ eventstore.Store = (*Backend)(nil)

// DefaultMaxLimit is the largest number of events a single query will return
// when the filter does not bound it lower.
const DefaultMaxLimit = 512

type Backend struct {
	// WG guards in-flight writes so Close can drain them.
	WG sync.WaitGroup
	// Path is the directory of the badger database.
	Path string
	// MaxLimit caps the result count of any single query.
	MaxLimit int
	// BlockCacheSize tunes badger's block cache, in bytes.
	BlockCacheSize int

	// DB is the badger db handle.
	*badger.DB

	// seq issues the conflict-free monotonic serials for event records.
	seq *badger.Sequence

	// writeMx serializes writers; badger readers are unaffected, they run
	// against the snapshot preceding the write transaction.
	writeMx sync.Mutex
}

// GetBackend returns a backend with default limits for the given path.
func GetBackend(path string) (b *Backend) {
	return &Backend{
		Path:           path,
		MaxLimit:       DefaultMaxLimit,
		BlockCacheSize: 16 * 1024 * 1024,
	}
}

func (b *Backend) Init() (err error) {
	log.I.Ln("opening badger event store at", b.Path)
	opts := badger.DefaultOptions(b.Path)
	opts.BlockCacheSize = int64(b.BlockCacheSize)
	opts.CompactL0OnClose = true
	opts.Compression = options.ZSTD
	opts.Logger = nil
	if b.DB, err = badger.Open(opts); chk.E(err) {
		return err
	}
	if b.seq, err = b.DB.GetSequence([]byte("events"), 1000); chk.E(err) {
		return err
	}
	if err = b.runMigrations(); chk.E(err) {
		return log.E.Err("error running migrations: %w; %s", err, b.Path)
	}
	if b.MaxLimit == 0 {
		b.MaxLimit = DefaultMaxLimit
	}
	return nil
}

// Close drains in-flight writes and releases the database.
func (b *Backend) Close() {
	b.WG.Wait()
	if b.seq != nil {
		_ = b.seq.Release()
	}
	if b.DB != nil {
		_ = b.DB.Close()
	}
}

// SerialKey returns a new primary record key and the serial to copy into the
// record's index keys.
func (b *Backend) SerialKey() (idx []byte, ser *serial.T, err error) {
	var s uint64
	if s, err = b.seq.Next(); chk.E(err) {
		return
	}
	sb := make([]byte, serial.Len)
	binary.BigEndian.PutUint64(sb, s)
	ser = serial.New(sb)
	return index.Event.Key(ser), ser, nil
}

func (b *Backend) Update(fn func(txn *badger.Txn) (err error)) (err error) {
	return b.DB.Update(fn)
}

func (b *Backend) View(fn func(txn *badger.Txn) (err error)) (err error) {
	return b.DB.View(fn)
}
