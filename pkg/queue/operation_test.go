package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	names []string
}

func (r *recorder) op(name string) *Operation {
	return NewOperation(name, func(context.Context) error {
		r.mu.Lock()
		r.names = append(r.names, name)
		r.mu.Unlock()
		return nil
	})
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.names...)
}

func waitDone(t *testing.T, ops ...*Operation) {
	t.Helper()
	for _, op := range ops {
		select {
		case <-op.Done():
		case <-time.After(2 * time.Second):
			t.Fatalf("operation %s not done", op.Name)
		}
	}
}

func TestOperationQueue_FIFO(t *testing.T) {
	q := NewOperationQueue("test")
	q.Start(context.Background())
	defer q.Stop()

	rec := &recorder{}
	a, b, c := rec.op("a"), rec.op("b"), rec.op("c")
	q.Add(a, b, c)
	waitDone(t, a, b, c)
	assert.Equal(t, []string{"a", "b", "c"}, rec.list())
	require.NoError(t, a.Err())
}

func TestOperationQueue_Dependencies(t *testing.T) {
	q := NewOperationQueue("test")
	rec := &recorder{}
	parent, child, other := rec.op("parent"), rec.op("child"), rec.op("other")

	q.Add(child, other, parent)
	q.AddDependency(child, parent)
	q.Start(context.Background())
	defer q.Stop()

	waitDone(t, parent, child, other)
	assert.Equal(t, []string{"other", "parent", "child"}, rec.list())
}

func TestOperationQueue_CancelCascades(t *testing.T) {
	q := NewOperationQueue("test")
	rec := &recorder{}
	parent, child, grandchild, free := rec.op("parent"), rec.op("child"), rec.op("grandchild"), rec.op("free")
	q.Add(parent, child, grandchild, free)
	q.AddDependency(child, parent)
	q.AddDependency(grandchild, child)

	q.Cancel(parent)
	q.Start(context.Background())
	defer q.Stop()

	waitDone(t, parent, child, grandchild, free)
	assert.Equal(t, []string{"free"}, rec.list())
	assert.ErrorIs(t, parent.Err(), ErrCancelled)
	assert.ErrorIs(t, child.Err(), ErrCancelled)
	assert.ErrorIs(t, grandchild.Err(), ErrCancelled)
	require.NoError(t, free.Err())
}

func TestOperationQueue_CancelNamedIncludesCurrent(t *testing.T) {
	q := NewOperationQueue("test")
	q.Start(context.Background())
	defer q.Stop()

	started := make(chan struct{})
	running := NewOperation("refresh", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	rec := &recorder{}
	pendingSame, pendingOther := rec.op("refresh"), rec.op("save")
	dependent := rec.op("after-refresh")

	q.Add(running, pendingSame, pendingOther, dependent)
	q.AddDependency(dependent, running)
	<-started

	q.CancelNamed("refresh")
	waitDone(t, running, pendingSame, pendingOther, dependent)

	assert.ErrorIs(t, running.Err(), context.Canceled, "running operation sees its context cancelled")
	assert.ErrorIs(t, pendingSame.Err(), ErrCancelled)
	assert.ErrorIs(t, dependent.Err(), ErrCancelled, "dependents of a cancelled operation are cancelled")
	assert.Equal(t, []string{"save"}, rec.list())
}

func TestOperationQueue_SuspendDoesNotInterruptCurrent(t *testing.T) {
	q := NewOperationQueue("test")
	q.Start(context.Background())
	defer q.Stop()

	release := make(chan struct{})
	started := make(chan struct{})
	long := NewOperation("long", func(ctx context.Context) error {
		close(started)
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	rec := &recorder{}
	next := rec.op("next")
	q.Add(long, next)
	<-started

	q.Suspend()
	close(release)
	waitDone(t, long)
	require.NoError(t, long.Err())

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, rec.list(), "nothing starts while suspended")
	assert.True(t, q.HasNamed("next"))

	q.Resume()
	waitDone(t, next)
	assert.Equal(t, []string{"next"}, rec.list())
}

func TestOperationQueue_Progress(t *testing.T) {
	q := NewOperationQueue("main")
	child := NewOperationQueue("child")
	q.AddChild(child)

	rec := &recorder{}
	q.Add(rec.op("a"), rec.op("b"))
	child.Add(rec.op("c"))
	assert.Equal(t, Progress{Total: 3, Completed: 0, Remaining: 3}, q.Progress())
	assert.False(t, q.Progress().IsComplete())

	failing := NewOperation("fail", func(context.Context) error { return errors.New("boom") })
	q.Add(failing)
	q.Start(context.Background())
	child.Start(context.Background())
	defer q.Stop()
	defer child.Stop()

	waitDone(t, failing)
	require.EqualError(t, failing.Err(), "boom")
	require.Eventually(t, func() bool { return q.Progress().IsComplete() }, time.Second, 5*time.Millisecond)
	assert.Equal(t, Progress{}, q.Progress(), "bookkeeping resets when idle")
}

func TestOperationQueue_CancelAll(t *testing.T) {
	q := NewOperationQueue("test")
	rec := &recorder{}
	a, b := rec.op("a"), rec.op("b")
	q.Add(a, b)
	q.CancelAll()
	waitDone(t, a, b)

	q.Start(context.Background())
	defer q.Stop()
	c := rec.op("c")
	q.Add(c)
	waitDone(t, c)
	assert.Equal(t, []string{"c"}, rec.list())
}

func TestOperationQueue_DependencyOnFinished(t *testing.T) {
	q := NewOperationQueue("test")
	rec := &recorder{}
	cancelled := rec.op("cancelled")
	q.Add(cancelled)
	q.Cancel(cancelled)

	child := rec.op("child")
	q.Add(child)
	q.AddDependency(child, cancelled)
	waitDone(t, child)
	assert.ErrorIs(t, child.Err(), ErrCancelled)
}
