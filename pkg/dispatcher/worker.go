package dispatcher

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/perastrom/koto/pkg/event"
)

// TimingReporter emits accumulated audio-thread telemetry; the engine
// implements it.
type TimingReporter interface {
	EmitTimings()
}

// Worker executes engine mutations and asynchronous work on its own
// thread, keeping both off the audio path. It also receives objects the
// audio thread has unlinked, so their release never happens under the
// block deadline.
type Worker struct {
	log      *slog.Logger
	queue    *eventQueue
	period   time.Duration
	reporter TimingReporter

	// Set by the dispatcher at wiring time; follow-up events from async
	// work go back through it.
	repost func(e *event.Event) error

	timingInterval time.Duration
	lastTimingLog  time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWorker creates a worker ticking at the given period and logging
// engine timing telemetry at timingInterval.
func NewWorker(log *slog.Logger, reporter TimingReporter, period, timingInterval time.Duration) *Worker {
	return &Worker{
		log:            log,
		queue:          &eventQueue{},
		period:         period,
		reporter:       reporter,
		timingInterval: timingInterval,
		lastTimingLog:  time.Now(),
	}
}

// PosterID implements event.Poster.
func (w *Worker) PosterID() event.PosterID { return event.Worker }

// Process implements event.Poster: the worker takes ownership of every
// event routed to it and settles completion after execution on its own
// thread.
func (w *Worker) Process(e *event.Event) int {
	if !w.enqueue(e) {
		return event.Error
	}
	return event.QueuedHandling
}

func (w *Worker) enqueue(e *event.Event) bool {
	return w.queue.push(e)
}

// Dispose takes an object unlinked by the audio thread and releases it on
// the worker thread. Objects with a Close method are closed.
func (w *Worker) Dispose(obj any) {
	w.enqueue(event.NewAsyncWorkEvent(func() *event.Event {
		if c, ok := obj.(io.Closer); ok {
			if err := c.Close(); err != nil {
				w.log.Warn("disposed object close failed", "error", err)
			}
		}
		return nil
	}, 0))
}

// Run starts the worker loop.
func (w *Worker) Run() {
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(w.period)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.Tick()
			}
		}
	}()
}

// Stop halts the loop; events still queued complete with Cancelled.
func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	for _, e := range w.queue.close() {
		e.Complete(event.Cancelled)
	}
}

// Tick drains the queue and periodically asks the engine for telemetry.
func (w *Worker) Tick() {
	for {
		e, ok := w.queue.pop()
		if !ok {
			break
		}
		e.Complete(w.execute(e))
	}
	if w.reporter != nil && time.Since(w.lastTimingLog) >= w.timingInterval {
		w.reporter.EmitTimings()
		w.lastTimingLog = time.Now()
	}
}

func (w *Worker) execute(e *event.Event) (status int) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("worker event panicked", "panic", r)
			status = event.Error
		}
	}()

	switch {
	case e.IsEngineMutation():
		return e.ExecuteMutation()
	case e.IsAsyncWork():
		if follow := e.ExecuteWork(); follow != nil && w.repost != nil {
			if err := w.repost(follow); err != nil {
				w.log.Warn("follow-up event rejected", "error", err)
				follow.Complete(event.Cancelled)
			}
		}
		return event.HandledOK
	}
	return event.UnrecognizedEvent
}
