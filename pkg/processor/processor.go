// Package processor defines the contract every audio-processing unit
// implements and a base implementation handling parameter storage and
// event plumbing.
package processor

import (
	"github.com/perastrom/koto/pkg/audio"
	"github.com/perastrom/koto/pkg/event"
	"github.com/perastrom/koto/pkg/param"
	"github.com/perastrom/koto/pkg/rt"
)

// HostControl is the handle a processor uses to talk to the outside world.
// Processors never see the engine or the dispatcher directly.
type HostControl interface {
	// PostEvent sends a non-realtime event to the dispatcher.
	PostEvent(e *event.Event) error

	// OutputRtEvent pushes a realtime event onto the engine's outgoing
	// queue. Safe to call from the audio thread.
	OutputRtEvent(e rt.Event)

	// TimeNow returns the current time against the engine epoch.
	TimeNow() rt.Time

	// SampleRate returns the engine sample rate.
	SampleRate() float64
}

// Processor is one audio-processing unit in a chain.
type Processor interface {
	// ID returns the processor's unique ObjectID.
	ID() rt.ObjectID

	// Name returns the globally unique machine name.
	Name() string

	// SetName assigns the machine name; called once before insertion.
	SetName(name string)

	// Label returns the human-readable label.
	Label() string

	// Init prepares the processor for the given sample rate. Called off
	// the audio thread before the processor is inserted.
	Init(sampleRate float64) error

	// ProcessAudio renders one block. Audio thread; must not allocate,
	// lock or block.
	ProcessAudio(in, out *audio.Buffer)

	// ProcessEvent handles a realtime event targeted at this processor.
	// Audio thread; called before ProcessAudio for the same block.
	ProcessEvent(e rt.Event)

	// Parameters returns the processor's parameter registry.
	Parameters() *param.Registry

	// InputChannels and OutputChannels return the channel configuration.
	InputChannels() int
	OutputChannels() int
}

// Base provides id, naming, parameter storage and default event handling.
// Concrete processors embed it and override what they need.
type Base struct {
	id          rt.ObjectID
	name        string
	label       string
	inChannels  int
	outChannels int
	params      *param.Registry
	host        HostControl
}

// NewBase creates a base with a fresh ObjectID.
func NewBase(host HostControl, label string, inChannels, outChannels int) *Base {
	return &Base{
		id:          rt.NewID(),
		label:       label,
		inChannels:  inChannels,
		outChannels: outChannels,
		params:      param.NewRegistry(),
		host:        host,
	}
}

// ID implements Processor.
func (b *Base) ID() rt.ObjectID { return b.id }

// Name implements Processor.
func (b *Base) Name() string { return b.name }

// SetName implements Processor.
func (b *Base) SetName(name string) { b.name = name }

// Label implements Processor.
func (b *Base) Label() string { return b.label }

// InputChannels implements Processor.
func (b *Base) InputChannels() int { return b.inChannels }

// OutputChannels implements Processor.
func (b *Base) OutputChannels() int { return b.outChannels }

// Parameters implements Processor.
func (b *Base) Parameters() *param.Registry { return b.params }

// Host returns the host control handle.
func (b *Base) Host() HostControl { return b.host }

// Init implements Processor; the default needs no preparation.
func (b *Base) Init(float64) error { return nil }

// RegisterFloatParameter creates, registers and returns a float parameter.
func (b *Base) RegisterFloatParameter(name, label string, def, min, max float64) *param.Parameter {
	p := param.NewFloat(name, label, def, min, max)
	b.params.Add(p)
	return p
}

// RegisterIntParameter creates, registers and returns an int parameter.
func (b *Base) RegisterIntParameter(name, label string, def, min, max int) *param.Parameter {
	p := param.NewInt(name, label, def, min, max)
	b.params.Add(p)
	return p
}

// RegisterBoolParameter creates, registers and returns a bool parameter.
func (b *Base) RegisterBoolParameter(name, label string, def bool) *param.Parameter {
	p := param.NewBool(name, label, def)
	b.params.Add(p)
	return p
}

// RegisterStringParameter creates, registers and returns a string parameter.
func (b *Base) RegisterStringParameter(name, label, def string) *param.Parameter {
	p := param.NewString(name, label, def)
	b.params.Add(p)
	return p
}

// ProcessEvent implements the default behaviour: parameter changes store
// into the value slots and emit a change notification; everything else is
// ignored.
func (b *Base) ProcessEvent(e rt.Event) {
	switch e.Type() {
	case rt.EventTypeParameterChange:
		if p := b.params.Get(e.ParameterID()); p != nil {
			p.Set(float64(e.Value()))
			b.OutputEvent(rt.MakeParameterChangeEvent(b.id, e.SampleOffset(), e.ParameterID(), e.Value()))
		}
	case rt.EventTypeStringParameterChange:
		if p := b.params.Get(e.ParameterID()); p != nil {
			p.SetString(e.StringValue())
		}
	}
}

// OutputEvent pushes an event onto the engine's outgoing queue.
func (b *Base) OutputEvent(e rt.Event) {
	if b.host != nil {
		b.host.OutputRtEvent(e)
	}
}
