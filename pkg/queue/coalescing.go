// Package queue provides a debouncing coalescing queue and a serial operation queue
// with dependencies, cancellation and progress bookkeeping.
package queue

import (
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
)

// DefaultCoalescingInterval is used when NewCoalescingQueue gets a zero interval
const DefaultCoalescingInterval = 50 * time.Millisecond

// CoalescingQueue collects deferred calls, deduplicated by key, and runs them together
// once no new call was added for the interval. The queue owns the closures, a call is never dropped.
type CoalescingQueue struct {
	name     string
	interval time.Duration

	mu        sync.Mutex
	calls     map[string]func()
	order     []string
	timer     *time.Timer
	suspended bool
}

// NewCoalescingQueue makes a queue with the debounce interval
func NewCoalescingQueue(name string, interval time.Duration) *CoalescingQueue {
	if interval <= 0 {
		interval = DefaultCoalescingInterval
	}
	return &CoalescingQueue{name: name, interval: interval, calls: map[string]func(){}}
}

// Add schedules fn under key. A pending call with the same key is replaced and keeps its position.
// Every add restarts the timer.
func (q *CoalescingQueue) Add(key string, fn func()) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.calls[key]; !ok {
		q.order = append(q.order, key)
	}
	q.calls[key] = fn
	q.restartTimer()
}

// Pending returns the number of calls waiting to run
func (q *CoalescingQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.order)
}

// Flush runs all pending calls now, ignoring the timer
func (q *CoalescingQueue) Flush() {
	q.mu.Lock()
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
	batch := q.takeBatch()
	q.mu.Unlock()
	q.run(batch)
}

// Suspend holds pending calls until Resume
func (q *CoalescingQueue) Suspend() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.suspended = true
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
}

// Resume restarts the timer if calls are pending
func (q *CoalescingQueue) Resume() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.suspended = false
	if len(q.order) > 0 {
		q.restartTimer()
	}
}

// restartTimer should be called with the lock held
func (q *CoalescingQueue) restartTimer() {
	if q.suspended {
		return
	}
	if q.timer != nil {
		q.timer.Stop()
	}
	q.timer = time.AfterFunc(q.interval, q.fire)
}

func (q *CoalescingQueue) fire() {
	q.mu.Lock()
	if q.suspended {
		q.mu.Unlock()
		return
	}
	q.timer = nil
	batch := q.takeBatch()
	q.mu.Unlock()
	q.run(batch)
}

func (q *CoalescingQueue) takeBatch() []func() {
	batch := make([]func(), 0, len(q.order))
	for _, key := range q.order {
		batch = append(batch, q.calls[key])
	}
	q.order = nil
	q.calls = map[string]func(){}
	return batch
}

func (q *CoalescingQueue) run(batch []func()) {
	if len(batch) == 0 {
		return
	}
	lgr.Printf("[DEBUG] %s: running %d coalesced calls", q.name, len(batch))
	for _, fn := range batch {
		fn()
	}
}
