// Package control implements the non-realtime producer side: a base
// frontend that external control surfaces build on, and a MIDI frontend
// translating hardware input into engine events.
package control

import (
	"log/slog"
	"sync/atomic"

	"github.com/perastrom/koto/pkg/event"
	"github.com/perastrom/koto/pkg/rt"
)

// EngineController is the engine surface a frontend drives: the inbound
// realtime queue for fire-and-forget events and the clock for stamping
// dispatcher events.
type EngineController interface {
	InQueue() *rt.Fifo
	TimeNow() rt.Time
	CreateChain(name string, channels int) error
	DeleteChain(name string) error
	AddPlugin(chainName, kind, name string) error
	RemovePlugin(chainName, name string) error
}

// EventPoster accepts events for the dispatcher thread.
type EventPoster interface {
	PostEvent(e *event.Event) error
}

// BaseFrontend gives control surfaces the two producer paths: direct
// realtime pushes for parameter and keyboard changes, dispatcher events
// for everything that must run off the audio thread.
type BaseFrontend struct {
	log     *slog.Logger
	engine  EngineController
	poster  EventPoster
	dropped atomic.Uint64
}

// NewBaseFrontend wires a frontend to the engine and dispatcher.
func NewBaseFrontend(log *slog.Logger, engine EngineController, poster EventPoster) *BaseFrontend {
	return &BaseFrontend{log: log, engine: engine, poster: poster}
}

// Dropped returns how many realtime pushes were lost to queue overflow.
func (f *BaseFrontend) Dropped() uint64 { return f.dropped.Load() }

// SendParameterChange pushes a float parameter change straight onto the
// inbound realtime queue. Fire and forget; overflow drops and logs.
func (f *BaseFrontend) SendParameterChange(processor, parameter rt.ObjectID, value float32) {
	f.pushRt(rt.MakeParameterChangeEvent(processor, 0, parameter, value))
}

// SendStringParameterChange allocates an immutable copy of the value and
// transfers its ownership with the event.
func (f *BaseFrontend) SendStringParameterChange(processor, parameter rt.ObjectID, value string) {
	s := value
	f.pushRt(rt.MakeStringParameterChangeEvent(processor, 0, parameter, &s))
}

// SendKeyboardEvent pushes a keyboard event straight onto the inbound
// realtime queue.
func (f *BaseFrontend) SendKeyboardEvent(processor rt.ObjectID, typ rt.EventType, note int, value float32) {
	f.pushRt(rt.MakeKeyboardEvent(typ, processor, 0, note, value))
}

// SendTimedKeyboardEvent routes a keyboard event through the dispatcher so
// it lands in the block containing the given timestamp.
func (f *BaseFrontend) SendTimedKeyboardEvent(processor rt.ObjectID, typ rt.EventType, note int, value float32, at rt.Time) error {
	return f.poster.PostEvent(event.NewKeyboardEvent(typ, processor, note, value, at))
}

func (f *BaseFrontend) pushRt(e rt.Event) {
	if !f.engine.InQueue().Push(e) {
		f.dropped.Add(1)
		f.log.Warn("rt queue full, event dropped", "type", e.Type())
	}
}

// AddChain posts an asynchronous engine mutation creating a chain. The
// callback, if non-nil, receives the terminal status.
func (f *BaseFrontend) AddChain(name string, channels int, cb event.CompletionCallback) error {
	return f.postMutation(func() int {
		return statusFromError(f.engine.CreateChain(name, channels))
	}, cb)
}

// DeleteChain posts an asynchronous engine mutation removing a chain.
func (f *BaseFrontend) DeleteChain(name string, cb event.CompletionCallback) error {
	return f.postMutation(func() int {
		return statusFromError(f.engine.DeleteChain(name))
	}, cb)
}

// AddProcessor posts an asynchronous engine mutation creating a processor
// on the named chain.
func (f *BaseFrontend) AddProcessor(chainName, kind, name string, cb event.CompletionCallback) error {
	return f.postMutation(func() int {
		return statusFromError(f.engine.AddPlugin(chainName, kind, name))
	}, cb)
}

// DeleteProcessor posts an asynchronous engine mutation removing a
// processor from the named chain.
func (f *BaseFrontend) DeleteProcessor(chainName, name string, cb event.CompletionCallback) error {
	return f.postMutation(func() int {
		return statusFromError(f.engine.RemovePlugin(chainName, name))
	}, cb)
}

func (f *BaseFrontend) postMutation(fn event.MutationFunc, cb event.CompletionCallback) error {
	e := event.NewEngineMutationEvent(fn, f.engine.TimeNow())
	if cb != nil {
		e.SetCompletionCallback(cb, nil)
	}
	return f.poster.PostEvent(e)
}

func statusFromError(err error) int {
	if err != nil {
		return event.Error
	}
	return event.HandledOK
}
