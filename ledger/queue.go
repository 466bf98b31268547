package ledger

import "sync"

// stop is the distinguished sentinel item. It is compared by identity and can
// never be confused with a real event.
var stop = &Event{}

// Queue is an unbounded FIFO buffer between the node's event delivery
// goroutine and the confirmation worker. Push never blocks; Pop blocks until
// an item or the stop sentinel arrives. A lock serializes concurrent pushes,
// so ordering is FIFO per producer.
//
// Every popped event must be acknowledged with Done so that Join can observe
// a drained queue during shutdown.
type Queue struct {
	mu         sync.Mutex
	notEmpty   *sync.Cond
	allDone    *sync.Cond
	items      []*Event
	unfinished int
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	q := &Queue{}
	q.notEmpty = sync.NewCond(&q.mu)
	q.allDone = sync.NewCond(&q.mu)
	return q
}

// Push appends an event. Safe to call from the delivery goroutine; never
// blocks.
func (q *Queue) Push(ev *Event) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = append(q.items, ev)
	q.unfinished++
	q.notEmpty.Signal()
}

// PushStop enqueues the stop sentinel. The consumer popping it must exit its
// loop; the sentinel takes part in FIFO ordering but not in Done/Join
// accounting.
func (q *Queue) PushStop() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = append(q.items, stop)
	q.notEmpty.Signal()
}

// Pop blocks until an item is available and returns it. ok is false when the
// stop sentinel was popped; the returned event is nil in that case.
func (q *Queue) Pop() (ev *Event, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 {
		q.notEmpty.Wait()
	}

	item := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]

	if item == stop {
		return nil, false
	}
	return item, true
}

// Done acknowledges one previously popped event.
func (q *Queue) Done() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.unfinished <= 0 {
		panic("ledger: Queue.Done called more times than Push")
	}
	q.unfinished--
	if q.unfinished == 0 {
		q.allDone.Broadcast()
	}
}

// Join blocks until every pushed event has been acknowledged.
func (q *Queue) Join() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.unfinished > 0 {
		q.allDone.Wait()
	}
}

// Len reports the number of buffered items, including a pending sentinel.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
