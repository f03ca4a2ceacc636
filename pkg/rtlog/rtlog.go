// Package rtlog provides a fixed-size, lock-free log ring. The audio
// thread pushes records without blocking or allocating; a background
// goroutine drains them into a slog.Logger.
package rtlog

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Record is one log entry. Msg should be a constant string so pushing
// never allocates; Value carries one numeric argument.
type Record struct {
	Level slog.Level
	Msg   string
	Value int64
}

// Ring is a single-producer/single-consumer record queue.
type Ring struct {
	buf     []Record
	mask    uint64
	read    atomic.Uint64
	write   atomic.Uint64
	dropped atomic.Uint64
}

// NewRing creates a ring with capacity rounded up to a power of two.
func NewRing(capacity int) *Ring {
	size := uint64(1)
	for size < uint64(capacity) {
		size <<= 1
	}
	return &Ring{buf: make([]Record, size), mask: size - 1}
}

// Push appends a record; on overflow the record is dropped and counted.
// Safe on the audio thread.
func (r *Ring) Push(level slog.Level, msg string, value int64) {
	write := r.write.Load()
	if write-r.read.Load() >= uint64(len(r.buf)) {
		r.dropped.Add(1)
		return
	}
	r.buf[write&r.mask] = Record{Level: level, Msg: msg, Value: value}
	r.write.Store(write + 1)
}

// Pop removes the oldest record; returns false when empty.
func (r *Ring) Pop() (Record, bool) {
	read := r.read.Load()
	if read == r.write.Load() {
		return Record{}, false
	}
	rec := r.buf[read&r.mask]
	r.read.Store(read + 1)
	return rec, true
}

// Dropped returns the number of records lost to overflow.
func (r *Ring) Dropped() uint64 {
	return r.dropped.Load()
}

// Drainer periodically empties a Ring into a logger.
type Drainer struct {
	ring   *Ring
	log    *slog.Logger
	period time.Duration
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDrainer creates a drainer; call Run to start it.
func NewDrainer(ring *Ring, log *slog.Logger, period time.Duration) *Drainer {
	return &Drainer{ring: ring, log: log, period: period}
}

// Run starts the drain goroutine.
func (d *Drainer) Run() {
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ticker := time.NewTicker(d.period)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				d.drain()
				return
			case <-ticker.C:
				d.drain()
			}
		}
	}()
}

// Stop drains remaining records and joins the goroutine.
func (d *Drainer) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
}

func (d *Drainer) drain() {
	for {
		rec, ok := d.ring.Pop()
		if !ok {
			return
		}
		d.log.Log(context.Background(), rec.Level, rec.Msg, "value", rec.Value)
	}
}
