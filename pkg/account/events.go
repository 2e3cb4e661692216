package account

// EventKind names a change notification
type EventKind string

// enum of account notifications
const (
	BatchUpdateDidPerform EventKind = "batch_update_did_perform"
	UnreadCountDidChange  EventKind = "unread_count_did_change"
	FeedDidAdd            EventKind = "feed_did_add"
	ChildrenDidChange     EventKind = "children_did_change"
	StatusesDidChange     EventKind = "statuses_did_change"
	ArticlesDidChange     EventKind = "articles_did_change"
)

// Event is delivered to account observers
type Event struct {
	Kind        EventKind
	AccountID   string
	ContainerID string   // for graph events
	FeedIDs     []string // affected feeds, if known
	ArticleIDs  []string // for status and article events
}

// Batch groups graph changes, see Account.BeginBatch
type Batch struct {
	acc   *Account
	ended bool
}

// Subscribe registers an observer and returns a function removing it.
// Observers are called synchronously on the goroutine that made the change, outside the account lock.
func (a *Account) Subscribe(fn func(Event)) (unsubscribe func()) {
	a.mu.Lock()
	id := a.nextObserver
	a.nextObserver++
	a.observers[id] = fn
	a.mu.Unlock()
	return func() {
		a.mu.Lock()
		delete(a.observers, id)
		a.mu.Unlock()
	}
}

// BeginBatch starts a batch of graph changes. Batches nest; graph notifications made while any batch
// is open are replaced by one BatchUpdateDidPerform when the outermost batch ends.
func (a *Account) BeginBatch() *Batch {
	a.mu.Lock()
	a.batchDepth++
	a.mu.Unlock()
	return &Batch{acc: a}
}

// End closes the batch, calling it again is a no-op
func (b *Batch) End() {
	a := b.acc
	a.mu.Lock()
	if b.ended {
		a.mu.Unlock()
		return
	}
	b.ended = true
	a.batchDepth--
	var events []Event
	if a.batchDepth == 0 && a.batchChanged {
		a.batchChanged = false
		events = append(events, Event{Kind: BatchUpdateDidPerform, AccountID: a.id})
	}
	a.mu.Unlock()
	a.notify(events...)
}

// graphEventsLocked returns events to deliver now, or nothing if they are folded into an open batch
func (a *Account) graphEventsLocked(events ...Event) []Event {
	if a.batchDepth > 0 {
		a.batchChanged = true
		return nil
	}
	for i := range events {
		events[i].AccountID = a.id
	}
	return events
}

func (a *Account) notify(events ...Event) {
	if len(events) == 0 {
		return
	}
	a.mu.Lock()
	observers := make([]func(Event), 0, len(a.observers))
	for i := 0; i < a.nextObserver; i++ {
		if fn, ok := a.observers[i]; ok {
			observers = append(observers, fn)
		}
	}
	a.mu.Unlock()
	for _, ev := range events {
		if ev.AccountID == "" {
			ev.AccountID = a.id
		}
		for _, fn := range observers {
			fn(ev)
		}
	}
}
