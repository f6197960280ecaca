package watcher

import (
	"sync"
	"time"
)

// maxWaitFactor bounds how long a busy tree can postpone a batch, as a
// multiple of the quiet period.
const maxWaitFactor = 10

// Batcher coalesces change events per path and hands them over once the
// tree has been quiet for the delay, or once the oldest pending change has
// waited maxWaitFactor delays.
type Batcher struct {
	delay   time.Duration
	maxWait time.Duration
	emit    func([]Event)

	mu      sync.Mutex
	timer   *time.Timer
	first   time.Time
	order   []string
	pending map[string]Event
}

// NewBatcher creates a batcher calling emit with each batch.
func NewBatcher(delay time.Duration, emit func([]Event)) *Batcher {
	return &Batcher{
		delay:   delay,
		maxWait: delay * maxWaitFactor,
		emit:    emit,
		pending: make(map[string]Event),
	}
}

// Add records e. A later event for the same path replaces the earlier one
// but keeps its place in the batch.
func (b *Batcher) Add(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	if len(b.order) == 0 {
		b.first = now
	}
	if _, ok := b.pending[e.Path]; !ok {
		b.order = append(b.order, e.Path)
	}
	b.pending[e.Path] = e

	wait := b.delay
	if deadline := b.first.Add(b.maxWait); now.Add(wait).After(deadline) {
		wait = deadline.Sub(now)
	}
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(wait, b.fire)
}

// take empties the batch and returns it.
func (b *Batcher) take() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	events := make([]Event, 0, len(b.order))
	for _, p := range b.order {
		events = append(events, b.pending[p])
	}
	b.order = nil
	b.pending = make(map[string]Event)
	return events
}

func (b *Batcher) fire() {
	if events := b.take(); len(events) > 0 && b.emit != nil {
		b.emit(events)
	}
}

// Flush emits the pending batch now.
func (b *Batcher) Flush() {
	b.fire()
}

// Stop drops the pending batch.
func (b *Batcher) Stop() {
	b.take()
}

// Pending returns the number of distinct paths waiting.
func (b *Batcher) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.order)
}
