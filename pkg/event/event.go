package event

import (
	"sync/atomic"

	"github.com/perastrom/koto/pkg/rt"
)

// Kind discriminates the Event variants.
type Kind int

const (
	KindKeyboard Kind = iota
	KindParameterChange
	KindStringParameterChange
	KindParameterChangeNotification
	KindEngineMutation
	KindAsyncWork
	KindAsyncWorkCompletion
	KindCommand
)

// CompletionCallback is invoked exactly once with a terminal status when an
// event finishes processing, unless the event ended up queued elsewhere.
type CompletionCallback func(arg any, e *Event, status int)

// MutationFunc performs an engine mutation on the worker thread and returns
// a status code. The closure captures whatever engine handle it needs.
type MutationFunc func() int

// WorkFunc performs asynchronous work on the worker thread. A non-nil
// follow-up event is re-posted to the dispatcher.
type WorkFunc func() *Event

// Event is the control-plane variant record. Fields beyond the common
// header are populated per kind by the constructors below.
type Event struct {
	kind     Kind
	receiver PosterID
	time     rt.Time

	keyboardType rt.EventType
	processorID  rt.ObjectID
	parameterID  rt.ObjectID
	note         int
	floatValue   float32
	stringValue  string

	mutation MutationFunc
	work     WorkFunc
	command  func()

	completionCb CompletionCallback
	callbackArg  any
	completed    atomic.Bool
}

// Kind returns the variant tag.
func (e *Event) Kind() Kind { return e.kind }

// Receiver returns the poster this event is routed to.
func (e *Event) Receiver() PosterID { return e.receiver }

// SetReceiver re-routes the event; used by the dispatcher before process.
func (e *Event) SetReceiver(id PosterID) { e.receiver = id }

// Time returns the wall-clock timestamp assigned at creation.
func (e *Event) Time() rt.Time { return e.time }

// ProcessorID returns the target processor for keyboard and parameter events.
func (e *Event) ProcessorID() rt.ObjectID { return e.processorID }

// ParameterID returns the target parameter for parameter events.
func (e *Event) ParameterID() rt.ObjectID { return e.parameterID }

// Note returns the note number of a keyboard event.
func (e *Event) Note() int { return e.note }

// Value returns the float payload (parameter value or velocity).
func (e *Event) Value() float32 { return e.floatValue }

// StringValue returns the string payload of a string parameter change.
func (e *Event) StringValue() string { return e.stringValue }

// KeyboardType returns the realtime event type of a keyboard event.
func (e *Event) KeyboardType() rt.EventType { return e.keyboardType }

// SetCompletionCallback attaches a completion callback and its opaque
// argument. Must be called before the event is posted.
func (e *Event) SetCompletionCallback(cb CompletionCallback, arg any) {
	e.completionCb = cb
	e.callbackArg = arg
}

// Complete invokes the completion callback with the given status. Repeated
// calls are ignored so a callback fires at most once per event.
func (e *Event) Complete(status int) {
	if !e.completed.CompareAndSwap(false, true) {
		return
	}
	if e.completionCb != nil {
		e.completionCb(e.callbackArg, e, status)
	}
}

// ProcessAsynchronously reports whether the event must run on the worker.
func (e *Event) ProcessAsynchronously() bool {
	return e.kind == KindEngineMutation || e.kind == KindAsyncWork
}

// IsKeyboardEvent reports whether the event is a keyboard notification.
func (e *Event) IsKeyboardEvent() bool { return e.kind == KindKeyboard }

// IsParameterChangeNotification reports whether the event is broadcast to
// parameter listeners.
func (e *Event) IsParameterChangeNotification() bool {
	return e.kind == KindParameterChangeNotification
}

// IsEngineMutation reports whether ExecuteMutation may be called.
func (e *Event) IsEngineMutation() bool { return e.kind == KindEngineMutation }

// IsAsyncWork reports whether ExecuteWork may be called.
func (e *Event) IsAsyncWork() bool { return e.kind == KindAsyncWork }

// IsCommand reports whether the event carries a dispatcher-thread command.
func (e *Event) IsCommand() bool { return e.kind == KindCommand }

// ExecuteMutation runs the engine mutation and returns its status.
func (e *Event) ExecuteMutation() int {
	if e.mutation == nil {
		return UnrecognizedEvent
	}
	return e.mutation()
}

// ExecuteWork runs the asynchronous work and returns an optional follow-up.
func (e *Event) ExecuteWork() *Event {
	if e.work == nil {
		return nil
	}
	return e.work()
}

// RunCommand executes a dispatcher-thread command.
func (e *Event) RunCommand() {
	if e.command != nil {
		e.command()
	}
}

// MapsToRtEvent reports whether ToRtEvent produces a realtime event.
func (e *Event) MapsToRtEvent() bool {
	switch e.kind {
	case KindKeyboard, KindParameterChange, KindStringParameterChange, KindAsyncWorkCompletion:
		return true
	}
	return false
}

// ToRtEvent converts the event into its realtime form at the given sample
// offset. Call only when MapsToRtEvent is true.
func (e *Event) ToRtEvent(offset int) rt.Event {
	switch e.kind {
	case KindKeyboard:
		return rt.MakeKeyboardEvent(e.keyboardType, e.processorID, offset, e.note, e.floatValue)
	case KindParameterChange:
		return rt.MakeParameterChangeEvent(e.processorID, offset, e.parameterID, e.floatValue)
	case KindStringParameterChange:
		s := e.stringValue
		return rt.MakeStringParameterChangeEvent(e.processorID, offset, e.parameterID, &s)
	case KindAsyncWorkCompletion:
		return rt.MakeAsyncWorkCompletionEvent(e.processorID, e.note, int(e.floatValue))
	}
	return rt.Event{}
}

// NewKeyboardEvent builds a timed keyboard event routed to the controller.
func NewKeyboardEvent(typ rt.EventType, processor rt.ObjectID, note int, value float32, time rt.Time) *Event {
	return &Event{
		kind:         KindKeyboard,
		receiver:     Controller,
		time:         time,
		keyboardType: typ,
		processorID:  processor,
		note:         note,
		floatValue:   value,
	}
}

// NewParameterChangeEvent builds a timed float parameter change routed to
// the controller.
func NewParameterChangeEvent(processor, parameter rt.ObjectID, value float32, time rt.Time) *Event {
	return &Event{
		kind:        KindParameterChange,
		receiver:    Controller,
		time:        time,
		processorID: processor,
		parameterID: parameter,
		floatValue:  value,
	}
}

// NewStringParameterChangeEvent builds a timed string parameter change.
func NewStringParameterChangeEvent(processor, parameter rt.ObjectID, value string, time rt.Time) *Event {
	return &Event{
		kind:        KindStringParameterChange,
		receiver:    Controller,
		time:        time,
		processorID: processor,
		parameterID: parameter,
		stringValue: value,
	}
}

// NewParameterChangeNotification builds a broadcast notification of an
// applied parameter change.
func NewParameterChangeNotification(processor, parameter rt.ObjectID, value float32, time rt.Time) *Event {
	return &Event{
		kind:        KindParameterChangeNotification,
		receiver:    Controller,
		time:        time,
		processorID: processor,
		parameterID: parameter,
		floatValue:  value,
	}
}

// NewEngineMutationEvent builds an asynchronous engine mutation.
func NewEngineMutationEvent(fn MutationFunc, time rt.Time) *Event {
	return &Event{
		kind:     KindEngineMutation,
		receiver: Worker,
		time:     time,
		mutation: fn,
	}
}

// NewAsyncWorkEvent builds an asynchronous work request.
func NewAsyncWorkEvent(fn WorkFunc, time rt.Time) *Event {
	return &Event{
		kind:     KindAsyncWork,
		receiver: Worker,
		time:     time,
		work:     fn,
	}
}

// NewAsyncWorkCompletion builds a completion notice for a processor's
// asynchronous work request.
func NewAsyncWorkCompletion(processor rt.ObjectID, workID, status int, time rt.Time) *Event {
	return &Event{
		kind:        KindAsyncWorkCompletion,
		receiver:    Controller,
		time:        time,
		processorID: processor,
		note:        workID,
		floatValue:  float32(status),
	}
}

// NewCommandEvent builds an event whose closure runs on the dispatcher
// thread; used for subscription changes and other dispatcher-local state.
func NewCommandEvent(fn func(), time rt.Time) *Event {
	return &Event{
		kind:     KindCommand,
		receiver: Controller,
		time:     time,
		command:  fn,
	}
}

// FromRtEvent lifts a realtime event emitted by the engine into the control
// plane, stamped with the reconstructed wall-clock timestamp. It returns
// nil for realtime-only events such as SYNC.
func FromRtEvent(re rt.Event, timestamp rt.Time) *Event {
	switch {
	case re.Type().IsKeyboard():
		return NewKeyboardEvent(re.Type(), re.ProcessorID(), re.Note(), re.Value(), timestamp)
	case re.Type() == rt.EventTypeParameterChange:
		return NewParameterChangeNotification(re.ProcessorID(), re.ParameterID(), re.Value(), timestamp)
	}
	return nil
}
