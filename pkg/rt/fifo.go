package rt

import "sync/atomic"

// Fifo is a bounded single-producer/single-consumer queue of Events.
// Push and Pop never block and never allocate, which makes the queue safe
// to use from the audio thread on either side.
//
// Both positions are free-running counters; they are only masked when
// indexing the backing array. Unsigned subtraction keeps the fullness
// check correct across wrap-around.
type Fifo struct {
	buf     []Event
	mask    uint64
	read    atomic.Uint64
	write   atomic.Uint64
	dropped atomic.Uint64
}

// NewFifo creates a queue with the given capacity, rounded up to the next
// power of two.
func NewFifo(capacity int) *Fifo {
	size := uint64(1)
	for size < uint64(capacity) {
		size <<= 1
	}
	return &Fifo{
		buf:  make([]Event, size),
		mask: size - 1,
	}
}

// Push appends an event. It returns false, increments the drop counter and
// leaves the queue untouched when the queue is full. Producer side only.
func (f *Fifo) Push(e Event) bool {
	write := f.write.Load()
	read := f.read.Load()
	if write-read >= uint64(len(f.buf)) {
		f.dropped.Add(1)
		return false
	}
	f.buf[write&f.mask] = e
	f.write.Store(write + 1)
	return true
}

// Pop removes the oldest event. It returns false when the queue is empty.
// Consumer side only.
func (f *Fifo) Pop() (Event, bool) {
	read := f.read.Load()
	if read == f.write.Load() {
		return Event{}, false
	}
	e := f.buf[read&f.mask]
	f.buf[read&f.mask] = Event{}
	f.read.Store(read + 1)
	return e, true
}

// Empty reports whether the queue currently holds no events.
func (f *Fifo) Empty() bool {
	return f.read.Load() == f.write.Load()
}

// Len returns the number of queued events.
func (f *Fifo) Len() int {
	return int(f.write.Load() - f.read.Load())
}

// Capacity returns the fixed capacity of the queue.
func (f *Fifo) Capacity() int {
	return len(f.buf)
}

// Dropped returns the number of events rejected because the queue was full.
func (f *Fifo) Dropped() uint64 {
	return f.dropped.Load()
}
