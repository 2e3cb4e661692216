package queue

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoalescingQueue_Debounce(t *testing.T) {
	q := NewCoalescingQueue("test", 30*time.Millisecond)

	var saves, reloads atomic.Int32
	for range 10 {
		q.Add("save", func() { saves.Add(1) })
		q.Add("reload", func() { reloads.Add(1) })
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, 2, q.Pending())
	assert.Equal(t, int32(0), saves.Load(), "timer restarted on every add")

	require.Eventually(t, func() bool { return saves.Load() == 1 && reloads.Load() == 1 },
		time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, q.Pending())
}

func TestCoalescingQueue_LatestClosureKeepsOrder(t *testing.T) {
	q := NewCoalescingQueue("test", time.Hour)

	var mu sync.Mutex
	var calls []string
	rec := func(s string) func() {
		return func() {
			mu.Lock()
			calls = append(calls, s)
			mu.Unlock()
		}
	}
	q.Add("a", rec("a1"))
	q.Add("b", rec("b1"))
	q.Add("a", rec("a2"))
	q.Flush()

	assert.Equal(t, []string{"a2", "b1"}, calls)
	q.Flush()
	assert.Len(t, calls, 2, "nothing runs twice")
}

func TestCoalescingQueue_SuspendResume(t *testing.T) {
	q := NewCoalescingQueue("test", 10*time.Millisecond)
	var n atomic.Int32

	q.Suspend()
	q.Add("x", func() { n.Add(1) })
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), n.Load())

	q.Resume()
	require.Eventually(t, func() bool { return n.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestCoalescingQueue_DefaultInterval(t *testing.T) {
	q := NewCoalescingQueue("test", 0)
	assert.Equal(t, DefaultCoalescingInterval, q.interval)
}
