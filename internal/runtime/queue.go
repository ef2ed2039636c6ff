package runtime

import (
	"sync"

	"github.com/aretw0/stagehand/pkg/domain"
)

// ArgQueue is the FIFO of pending argument sets, one per future trial run.
// It is safe for concurrent use so producers can enqueue while an experiment runs.
type ArgQueue struct {
	mu    sync.Mutex
	items []domain.ArgSet
}

// NewArgQueue creates a queue holding items in order.
func NewArgQueue(items ...domain.ArgSet) *ArgQueue {
	q := &ArgQueue{}
	q.Push(items...)
	return q
}

// Push appends argument sets to the tail.
func (q *ArgQueue) Push(items ...domain.ArgSet) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, items...)
}

// Pop removes and returns the head of the queue.
func (q *ArgQueue) Pop() (domain.ArgSet, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return domain.ArgSet{}, false
	}
	head := q.items[0]
	q.items[0] = domain.ArgSet{}
	q.items = q.items[1:]
	return head, true
}

// Len returns the number of pending argument sets.
func (q *ArgQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
