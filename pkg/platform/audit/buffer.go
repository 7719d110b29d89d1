package audit

import "sync"

// ringBuffer is a bounded, thread-safe queue of pending alerts. When full the
// oldest alert is dropped so enqueueing never blocks.
type ringBuffer struct {
	mu       sync.Mutex
	events   []Event
	head     int
	tail     int
	count    int
	capacity int
	dropped  int64
}

func newRingBuffer(capacity int) *ringBuffer {
	if capacity <= 0 {
		capacity = 1024
	}
	return &ringBuffer{events: make([]Event, capacity), capacity: capacity}
}

// enqueue adds an event and reports whether an older one was dropped.
func (b *ringBuffer) enqueue(event Event) (dropped bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count >= b.capacity {
		b.events[b.tail] = Event{}
		b.tail = (b.tail + 1) % b.capacity
		b.count--
		b.dropped++
		dropped = true
	}

	b.events[b.head] = event
	b.head = (b.head + 1) % b.capacity
	b.count++
	return dropped
}

func (b *ringBuffer) dequeueBatch(n int) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 {
		return nil
	}
	if n > b.count {
		n = b.count
	}

	out := make([]Event, n)
	for i := 0; i < n; i++ {
		out[i] = b.events[b.tail]
		b.events[b.tail] = Event{}
		b.tail = (b.tail + 1) % b.capacity
	}
	b.count -= n
	return out
}

func (b *ringBuffer) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

func (b *ringBuffer) droppedCount() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
