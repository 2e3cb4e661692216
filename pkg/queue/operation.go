package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/go-pkgz/lgr"
)

// ErrCancelled is the result of an operation cancelled before it ran
var ErrCancelled = errors.New("operation cancelled")

var lastOperationID atomic.Uint64

// Operation is a unit of work run by OperationQueue
type Operation struct {
	Name string
	run  func(ctx context.Context) error

	id         uint64
	ctx        context.Context
	cancel     context.CancelFunc
	parents    map[uint64]*Operation // unfinished dependencies
	dependents []*Operation
	cancelled  bool
	finished   bool
	err        error
	done       chan struct{}
}

// NewOperation makes an operation, fn gets a context cancelled when the operation is cancelled
func NewOperation(name string, fn func(ctx context.Context) error) *Operation {
	return &Operation{
		Name:    name,
		run:     fn,
		id:      lastOperationID.Add(1),
		parents: map[uint64]*Operation{},
		done:    make(chan struct{}),
	}
}

// Done is closed when the operation finished or was cancelled
func (o *Operation) Done() <-chan struct{} { return o.done }

// Err returns the result of a finished operation, ErrCancelled if it never ran
func (o *Operation) Err() error {
	select {
	case <-o.done:
		return o.err
	default:
		return nil
	}
}

// Progress is a snapshot of queue bookkeeping
type Progress struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Remaining int `json:"remaining"`
}

// IsComplete returns true if nothing is left to run
func (p Progress) IsComplete() bool { return p.Remaining == 0 }

// OperationQueue runs operations one at a time in FIFO order, skipping operations whose
// dependencies are not finished yet. Cancellation is cooperative: a running operation only sees
// its context cancelled.
type OperationQueue struct {
	name string

	mu        sync.Mutex
	pending   []*Operation
	current   *Operation
	suspended bool
	total     int
	completed int
	children  []*OperationQueue

	wake   chan struct{}
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOperationQueue makes a stopped queue, call Start to begin running operations
func NewOperationQueue(name string) *OperationQueue {
	return &OperationQueue{name: name, wake: make(chan struct{}, 1)}
}

// Start launches the runner goroutine
func (q *OperationQueue) Start(ctx context.Context) {
	ctx, q.cancel = context.WithCancel(ctx)
	q.wg.Add(1)
	go q.runner(ctx)
}

// Stop cancels everything and waits for the runner to exit
func (q *OperationQueue) Stop() {
	q.CancelAll()
	if q.cancel != nil {
		q.cancel()
	}
	q.wg.Wait()
}

// Add appends operations to the queue
func (q *OperationQueue) Add(ops ...*Operation) {
	q.mu.Lock()
	for _, op := range ops {
		if op.finished {
			continue
		}
		op.ctx, op.cancel = context.WithCancel(context.Background())
		q.pending = append(q.pending, op)
		q.total++
	}
	q.mu.Unlock()
	q.signal()
}

// AddDependency makes child wait for parent. If parent was already cancelled, child is cancelled.
func (q *OperationQueue) AddDependency(child, parent *Operation) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if parent.finished {
		if parent.cancelled {
			q.cancelLocked(child)
		}
		return
	}
	child.parents[parent.id] = parent
	parent.dependents = append(parent.dependents, child)
}

// CancelAll cancels every pending operation and the current one
func (q *OperationQueue) CancelAll() {
	q.mu.Lock()
	ops := append([]*Operation{}, q.pending...)
	if q.current != nil {
		ops = append(ops, q.current)
	}
	for _, op := range ops {
		q.cancelLocked(op)
	}
	q.mu.Unlock()
	q.signal()
}

// Cancel cancels the given operations and, recursively, everything depending on them
func (q *OperationQueue) Cancel(ops ...*Operation) {
	q.mu.Lock()
	for _, op := range ops {
		q.cancelLocked(op)
	}
	q.mu.Unlock()
	q.signal()
}

// CancelNamed cancels pending and current operations with the name
func (q *OperationQueue) CancelNamed(name string) {
	q.mu.Lock()
	var ops []*Operation
	for _, op := range q.pending {
		if op.Name == name {
			ops = append(ops, op)
		}
	}
	if q.current != nil && q.current.Name == name {
		ops = append(ops, q.current)
	}
	for _, op := range ops {
		q.cancelLocked(op)
	}
	q.mu.Unlock()
	q.signal()
}

// HasNamed returns true if an operation with the name is pending or running
func (q *OperationQueue) HasNamed(name string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.current != nil && q.current.Name == name && !q.current.cancelled {
		return true
	}
	for _, op := range q.pending {
		if op.Name == name && !op.cancelled {
			return true
		}
	}
	return false
}

// Suspend stops starting new operations, the current one keeps running
func (q *OperationQueue) Suspend() {
	q.mu.Lock()
	q.suspended = true
	q.mu.Unlock()
}

// Resume allows operations to start again
func (q *OperationQueue) Resume() {
	q.mu.Lock()
	q.suspended = false
	q.mu.Unlock()
	q.signal()
}

// AddChild includes child's bookkeeping into Progress
func (q *OperationQueue) AddChild(child *OperationQueue) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.children = append(q.children, child)
}

// Progress returns counts for this queue and its children
func (q *OperationQueue) Progress() Progress {
	q.mu.Lock()
	p := Progress{Total: q.total, Completed: q.completed, Remaining: q.total - q.completed}
	children := append([]*OperationQueue{}, q.children...)
	q.mu.Unlock()

	for _, c := range children {
		cp := c.Progress()
		p.Total += cp.Total
		p.Completed += cp.Completed
		p.Remaining += cp.Remaining
	}
	return p
}

func (q *OperationQueue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *OperationQueue) runner(ctx context.Context) {
	defer q.wg.Done()
	for {
		op := q.next()
		if op == nil {
			select {
			case <-ctx.Done():
				return
			case <-q.wake:
				continue
			}
		}

		lgr.Printf("[DEBUG] %s: running operation %s", q.name, op.Name)
		err := op.run(op.ctx)

		q.mu.Lock()
		q.current = nil
		q.finishLocked(op, err)
		q.mu.Unlock()
	}
}

// next picks the first runnable operation and makes it current
func (q *OperationQueue) next() *Operation {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.suspended || q.current != nil {
		return nil
	}
	for i, op := range q.pending {
		if op.cancelled || len(op.parents) > 0 {
			continue
		}
		q.pending = append(q.pending[:i:i], q.pending[i+1:]...)
		q.current = op
		return op
	}
	return nil
}

// cancelLocked cancels op and its dependents. A pending op is finished right away,
// the current op finishes when its run returns.
func (q *OperationQueue) cancelLocked(op *Operation) {
	if op.finished || op.cancelled {
		return
	}
	op.cancelled = true
	if op.cancel != nil {
		op.cancel()
	}
	if op == q.current {
		return
	}
	q.removePending(op)
	q.finishLocked(op, ErrCancelled)
}

// finishLocked records completion and releases or cancels dependents
func (q *OperationQueue) finishLocked(op *Operation, err error) {
	if op.finished {
		return
	}
	op.finished = true
	if op.cancelled && err == nil {
		err = ErrCancelled
	}
	op.err = err
	if op.cancel != nil {
		op.cancel()
	}
	close(op.done)
	if op.ctx != nil {
		q.completed++
	}

	for _, dep := range op.dependents {
		delete(dep.parents, op.id)
		if op.cancelled {
			q.cancelLocked(dep)
		}
	}
	op.dependents = nil

	if len(q.pending) == 0 && q.current == nil {
		q.total, q.completed = 0, 0
	}
	q.signal()
}

func (q *OperationQueue) removePending(op *Operation) {
	for i, p := range q.pending {
		if p == op {
			q.pending = append(q.pending[:i:i], q.pending[i+1:]...)
			return
		}
	}
}
