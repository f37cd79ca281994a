// Package priority provides the merge heap used to interleave the result
// streams of concurrent index scans into one newest-first sequence.
package priority

import (
	"github.com/lumenlabs/relayr/pkg/nostr/event"
	"github.com/lumenlabs/relayr/pkg/nostr/eventstore/badger/keys/serial"
)

type QueryEvent struct {
	*event.T
	Ser   *serial.T
	Query int
}

type Queue []*QueryEvent

func (pq Queue) Len() int { return len(pq) }

// Less orders newest first, ties broken by descending id so that pagination
// with a fixed until is deterministic.
func (pq Queue) Less(i, j int) bool {
	if pq[i].CreatedAt != pq[j].CreatedAt {
		return pq[i].CreatedAt > pq[j].CreatedAt
	}
	return pq[i].ID > pq[j].ID
}

func (pq Queue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
}

func (pq *Queue) Push(x any) {
	item := x.(*QueryEvent)
	*pq = append(*pq, item)
}

func (pq *Queue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil // avoid memory leak
	*pq = old[0 : n-1]
	return item
}
