// Package transposer implements the internal transposer plugin. It carries
// no audio; note events are re-emitted shifted by the transpose parameter
// and the originals are not forwarded.
package transposer

import (
	"github.com/perastrom/koto/pkg/audio"
	"github.com/perastrom/koto/pkg/midi"
	"github.com/perastrom/koto/pkg/param"
	"github.com/perastrom/koto/pkg/processor"
	"github.com/perastrom/koto/pkg/rt"
)

// Name is the default machine name of the plugin.
const Name = "koto.internal.transposer"

const (
	minNote = 0
	maxNote = 127
)

// Plugin shifts note events by a configurable number of semitones.
// Transposed events are staged in an internal queue and emitted during
// ProcessAudio, preserving the order they arrived in.
type Plugin struct {
	*processor.Base
	transpose *param.Parameter
	queue     *rt.Fifo
}

// New creates a transposer plugin.
func New(host processor.HostControl) *Plugin {
	p := &Plugin{
		Base:  processor.NewBase(host, "Transposer", 0, 0),
		queue: rt.NewFifo(64),
	}
	p.SetName(Name)
	p.transpose = p.RegisterIntParameter("transpose", "Transpose", 0, -24, 24)
	return p
}

// ProcessEvent transposes note events; parameter changes fall through to
// the default handling.
func (p *Plugin) ProcessEvent(e rt.Event) {
	switch e.Type() {
	case rt.EventTypeNoteOn:
		p.queue.Push(rt.MakeNoteOnEvent(e.ProcessorID(), e.SampleOffset(), p.transposeNote(e.Note()), e.Value()))
	case rt.EventTypeNoteOff:
		p.queue.Push(rt.MakeNoteOffEvent(e.ProcessorID(), e.SampleOffset(), p.transposeNote(e.Note()), e.Value()))
	case rt.EventTypeWrappedMidi:
		p.queue.Push(rt.MakeWrappedMidiEvent(e.ProcessorID(), e.SampleOffset(), p.transposeMidi(e.MidiData())))
	default:
		p.Base.ProcessEvent(e)
	}
}

// ProcessAudio drains the staged events onto the output queue.
func (p *Plugin) ProcessAudio(_, _ *audio.Buffer) {
	for {
		e, ok := p.queue.Pop()
		if !ok {
			return
		}
		p.OutputEvent(e)
	}
}

func (p *Plugin) transposeNote(note int) int {
	note += p.transpose.IntValue()
	if note < minNote {
		return minNote
	}
	if note > maxNote {
		return maxNote
	}
	return note
}

func (p *Plugin) transposeMidi(data [4]byte) [4]byte {
	switch midi.DecodeType(data) {
	case midi.MessageTypeNoteOn:
		msg := midi.DecodeNote(data)
		return midi.EncodeNoteOn(msg.Channel, uint8(p.transposeNote(int(msg.Note))), msg.Velocity)
	case midi.MessageTypeNoteOff:
		msg := midi.DecodeNote(data)
		return midi.EncodeNoteOff(msg.Channel, uint8(p.transposeNote(int(msg.Note))), msg.Velocity)
	}
	return data
}
