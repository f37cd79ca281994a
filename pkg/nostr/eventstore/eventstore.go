// Package eventstore defines the interface between the relay and its durable
// event storage.
package eventstore

import (
	"context"
	"errors"

	"github.com/lumenlabs/relayr/pkg/nostr/event"
	"github.com/lumenlabs/relayr/pkg/nostr/filter"
)

// ErrDupEvent signals an idempotent no-op insert: the event id is already
// stored. Not a failure, callers acknowledge it as already-stored.
var ErrDupEvent = errors.New("duplicate: already have this event")

// ErrTombstoned signals that the event id was deleted by its author and may
// not be stored again.
var ErrTombstoned = errors.New("blocked: this event was deleted and cannot be accepted again")

// ErrSuperseded signals that a stored instance already outranks the incoming
// replaceable event, which was tombstoned without being stored. The event is
// acknowledged but never becomes visible.
var ErrSuperseded = errors.New("duplicate: a newer event exists for this replaceable key")

// Store is a persistence layer for nostr events handling queries and
// deletions.
type Store interface {
	// Init is called at application startup.
	Init() error
	// Close is called at application exit, after in-flight writes drain.
	Close()
	// SaveEvent stores an event. Returns ErrDupEvent for an already stored
	// id, ErrTombstoned for a deleted one. The event and all its index
	// entries land atomically.
	SaveEvent(c context.Context, ev *event.T) error
	// SaveReplaceable stores a replaceable-kind event, superseding any older
	// instance for the same replacement key. Newest created_at wins
	// regardless of arrival order, ties are broken by the lexicographically
	// smaller id.
	SaveReplaceable(c context.Context, ev *event.T) error
	// QueryEvents streams stored events matching the filter, newest first,
	// ties by id descending, truncated at min(filter limit, server max).
	QueryEvents(c context.Context, f *filter.T) (ch event.C, err error)
	// CountEvents counts without streaming.
	CountEvents(c context.Context, f *filter.T) (count int, err error)
	// DeleteEvent tombstones the given event: it disappears from queries and
	// its id cannot be re-inserted.
	DeleteEvent(c context.Context, ev *event.T) error
	// Wipe erases all records, indexes and tombstones, leaving a usable empty
	// store.
	Wipe() error
}
