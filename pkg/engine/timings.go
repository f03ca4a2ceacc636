package engine

import (
	"sync/atomic"
	"time"
)

// Timings accumulates per-block processing durations. Recording uses only
// atomics so the audio thread can write without locking; reporting happens
// on the worker thread.
type Timings struct {
	count atomic.Int64
	total atomic.Int64 // nanoseconds
	min   atomic.Int64
	max   atomic.Int64
}

// NewTimings creates an empty accumulator.
func NewTimings() *Timings {
	t := &Timings{}
	t.Reset()
	return t
}

// Reset clears the accumulated statistics.
func (t *Timings) Reset() {
	t.count.Store(0)
	t.total.Store(0)
	t.min.Store(int64(^uint64(0) >> 1))
	t.max.Store(0)
}

// Record adds one block duration. Audio thread.
func (t *Timings) Record(d time.Duration) {
	n := int64(d)
	t.count.Add(1)
	t.total.Add(n)
	for {
		min := t.min.Load()
		if n >= min || t.min.CompareAndSwap(min, n) {
			break
		}
	}
	for {
		max := t.max.Load()
		if n <= max || t.max.CompareAndSwap(max, n) {
			break
		}
	}
}

// Report is a snapshot of the accumulated block timings.
type Report struct {
	Count   int64
	Average time.Duration
	Min     time.Duration
	Max     time.Duration
}

// Snapshot returns the current statistics.
func (t *Timings) Snapshot() Report {
	count := t.count.Load()
	r := Report{Count: count}
	if count > 0 {
		r.Average = time.Duration(t.total.Load() / count)
		r.Min = time.Duration(t.min.Load())
		r.Max = time.Duration(t.max.Load())
	}
	return r
}

// EmitTimings logs the engine's block timing statistics against the block
// budget and resets the accumulator. Called from the worker thread.
func (e *Engine) EmitTimings() {
	r := e.timings.Snapshot()
	if r.Count == 0 {
		return
	}
	budget := time.Duration(float64(e.blockSize) / e.sampleRate * float64(time.Second))
	logFn := e.log.Info
	if r.Max > budget {
		// A block ran past its deadline; report once, no recovery attempt.
		logFn = e.log.Warn
	}
	logFn("block timings",
		"blocks", r.Count,
		"avg", r.Average,
		"min", r.Min,
		"max", r.Max,
		"budget", budget,
		"in_queue_dropped", e.inQueue.Dropped(),
		"out_queue_dropped", e.outQueue.Dropped(),
		"unknown_target_dropped", e.unknownTarget.Load(),
	)
	e.timings.Reset()
}
