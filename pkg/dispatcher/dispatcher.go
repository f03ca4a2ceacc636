// Package dispatcher runs the control-plane scheduler and worker threads.
// The dispatcher classifies inbound events, routes them to registered
// posters, converts timed events into realtime events at the right block
// and broadcasts notifications to subscribers. The worker executes engine
// mutations and asynchronous work off the audio thread.
package dispatcher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/perastrom/koto/pkg/event"
	"github.com/perastrom/koto/pkg/rt"
)

// ErrStopped is returned when an event is posted after Stop.
var ErrStopped = errors.New("dispatcher stopped")

// EngineLink is the slice of the audio engine the dispatcher needs: the two
// realtime queues, the clock and the async work executor.
type EngineLink interface {
	InQueue() *rt.Fifo
	OutQueue() *rt.Fifo
	SampleRate() float64
	BlockSize() int
	TimeNow() rt.Time
	ExecuteAsyncWork(id rt.ObjectID, workID int) int
}

// Dispatcher is the control-plane scheduler. It is itself the poster with
// id Controller; events routed there are converted to realtime events or
// broadcast to listeners.
type Dispatcher struct {
	log    *slog.Logger
	engine EngineLink
	worker *Worker
	timer  *rt.EventTimer
	period time.Duration

	in *eventQueue

	// Dispatcher-thread state. Subscription and registration changes from
	// other threads arrive as command events, so no lock is needed.
	waiting            []*event.Event
	posters            [event.MaxPosters]event.Poster
	keyboardListeners  []event.Poster
	parameterListeners []event.Poster

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a dispatcher wired to the given engine and worker. The
// dispatcher registers itself as the Controller poster and the worker under
// its own id.
func New(log *slog.Logger, engine EngineLink, worker *Worker, period time.Duration) *Dispatcher {
	d := &Dispatcher{
		log:    log,
		engine: engine,
		worker: worker,
		timer:  rt.NewEventTimer(engine.SampleRate(), engine.BlockSize()),
		period: period,
		in:     &eventQueue{},
	}
	d.posters[event.Controller] = d
	d.posters[event.Worker] = worker
	worker.repost = d.PostEvent
	return d
}

// PosterID implements event.Poster.
func (d *Dispatcher) PosterID() event.PosterID { return event.Controller }

// PostEvent hands an event to the dispatcher thread. After Stop the failure
// is reported synchronously.
func (d *Dispatcher) PostEvent(e *event.Event) error {
	if !d.in.push(e) {
		return ErrStopped
	}
	return nil
}

// Register installs a poster under its id. Applied on the dispatcher thread
// when the loop is running.
func (d *Dispatcher) Register(p event.Poster) error {
	return d.onDispatcherThread(func() {
		d.posters[p.PosterID()] = p
	})
}

// Deregister clears the poster slot for the given id.
func (d *Dispatcher) Deregister(id event.PosterID) error {
	return d.onDispatcherThread(func() {
		d.posters[id] = nil
	})
}

// SubscribeToKeyboardEvents appends a listener for keyboard notifications.
// Broadcast order is subscription order.
func (d *Dispatcher) SubscribeToKeyboardEvents(l event.Poster) error {
	return d.onDispatcherThread(func() {
		d.keyboardListeners = append(d.keyboardListeners, l)
	})
}

// UnsubscribeFromKeyboardEvents removes a keyboard listener.
func (d *Dispatcher) UnsubscribeFromKeyboardEvents(l event.Poster) error {
	return d.onDispatcherThread(func() {
		d.keyboardListeners = removeListener(d.keyboardListeners, l)
	})
}

// SubscribeToParameterChangeNotifications appends a listener for applied
// parameter changes.
func (d *Dispatcher) SubscribeToParameterChangeNotifications(l event.Poster) error {
	return d.onDispatcherThread(func() {
		d.parameterListeners = append(d.parameterListeners, l)
	})
}

// UnsubscribeFromParameterChangeNotifications removes a parameter listener.
func (d *Dispatcher) UnsubscribeFromParameterChangeNotifications(l event.Poster) error {
	return d.onDispatcherThread(func() {
		d.parameterListeners = removeListener(d.parameterListeners, l)
	})
}

// onDispatcherThread applies a state change where the loop can see it:
// directly when the loop is not running, as a command event otherwise.
func (d *Dispatcher) onDispatcherThread(fn func()) error {
	if !d.running.Load() {
		fn()
		return nil
	}
	return d.PostEvent(event.NewCommandEvent(fn, d.engine.TimeNow()))
}

func removeListener(list []event.Poster, l event.Poster) []event.Poster {
	for i, x := range list {
		if x == l {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// Run starts the dispatcher loop.
func (d *Dispatcher) Run() {
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.running.Store(true)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ticker := time.NewTicker(d.period)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				d.Tick()
			}
		}
	}()
}

// Stop halts the loop and cancels everything still queued: remaining
// events complete with Cancelled and later posts fail synchronously.
func (d *Dispatcher) Stop() {
	d.running.Store(false)
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()

	for _, e := range d.in.close() {
		e.Complete(event.Cancelled)
	}
	for _, e := range d.waiting {
		e.Complete(event.Cancelled)
	}
	d.waiting = nil
}

// Tick runs one dispatcher iteration: the waiting list first, then the
// inbox, then the engine's outbound realtime queue. Exported so frontends
// that own the clock can drive the dispatcher synchronously.
func (d *Dispatcher) Tick() {
	// Only events waiting at tick start are retried; a retry that is still
	// in the future goes back to the front and waits for the next tick.
	for n := len(d.waiting); n > 0; n-- {
		e := d.waiting[len(d.waiting)-1]
		d.waiting = d.waiting[:len(d.waiting)-1]
		d.dispatch(e)
	}
	for {
		e, ok := d.in.pop()
		if !ok {
			break
		}
		d.dispatch(e)
	}
	d.drainRt()
}

// dispatch routes one event to its poster and settles its completion,
// unless the poster took ownership by returning QueuedHandling.
func (d *Dispatcher) dispatch(e *event.Event) {
	status := event.UnrecognizedReceiver
	if id := e.Receiver(); id >= 0 && id < event.MaxPosters {
		if p := d.posters[id]; p != nil {
			status = p.Process(e)
		}
	}
	if status == event.QueuedHandling {
		return
	}
	e.Complete(status)
}

// Process implements event.Poster for the Controller slot.
func (d *Dispatcher) Process(e *event.Event) int {
	switch {
	case e.IsCommand():
		e.RunCommand()
		return event.HandledOK

	case e.ProcessAsynchronously():
		e.SetReceiver(event.Worker)
		if !d.worker.enqueue(e) {
			return event.Error
		}
		return event.QueuedHandling

	case e.MapsToRtEvent():
		sendNow, offset := d.timer.SampleOffsetFromRealtime(e.Time())
		if !sendNow {
			d.waiting = append([]*event.Event{e}, d.waiting...)
			return event.QueuedHandling
		}
		if !d.engine.InQueue().Push(e.ToRtEvent(offset)) {
			return event.Error
		}
		return event.HandledOK

	case e.IsParameterChangeNotification():
		d.broadcast(d.parameterListeners, e)
		return event.HandledOK
	}
	return event.UnrecognizedEvent
}

// drainRt lifts events emitted by the audio thread into the control plane.
func (d *Dispatcher) drainRt() {
	for {
		re, ok := d.engine.OutQueue().Pop()
		if !ok {
			return
		}
		switch {
		case re.Type() == rt.EventTypeSync:
			d.timer.SetIncomingTime(re.Timestamp())
			d.timer.SetOutgoingTime(re.Timestamp())

		case re.Type() == rt.EventTypeObjectHandoff:
			d.worker.Dispose(re.Object())

		case re.Type() == rt.EventTypeAsyncWork:
			id, workID := re.ProcessorID(), re.Note()
			work := event.NewAsyncWorkEvent(func() *event.Event {
				status := d.engine.ExecuteAsyncWork(id, workID)
				return event.NewAsyncWorkCompletion(id, workID, status, d.engine.TimeNow())
			}, d.timer.RealTimeFromSampleOffset(re.SampleOffset()))
			if !d.worker.enqueue(work) {
				d.log.Warn("async work lost, worker stopped", "processor", id, "work_id", workID)
			}

		case re.Type().IsKeyboard():
			ts := d.timer.RealTimeFromSampleOffset(re.SampleOffset())
			if ne := event.FromRtEvent(re, ts); ne != nil {
				d.broadcast(d.keyboardListeners, ne)
				ne.Complete(event.HandledOK)
			}

		case re.Type() == rt.EventTypeParameterChange:
			ts := d.timer.RealTimeFromSampleOffset(re.SampleOffset())
			if ne := event.FromRtEvent(re, ts); ne != nil {
				d.broadcast(d.parameterListeners, ne)
				ne.Complete(event.HandledOK)
			}
		}
	}
}

// broadcast invokes each listener exactly once, in subscription order.
func (d *Dispatcher) broadcast(listeners []event.Poster, e *event.Event) {
	for _, l := range listeners {
		l.Process(e)
	}
}
