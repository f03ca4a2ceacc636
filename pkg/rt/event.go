package rt

// EventType tags the payload carried by an Event.
type EventType uint8

const (
	// EventTypeNone is the zero value; it carries no payload.
	EventTypeNone EventType = iota

	// Parameter changes.
	EventTypeParameterChange
	EventTypeStringParameterChange

	// Keyboard events.
	EventTypeNoteOn
	EventTypeNoteOff
	EventTypeNoteAftertouch
	EventTypePitchBend
	EventTypeModulation
	EventTypeProgramChange

	// Raw MIDI wrapped in an event, up to 4 bytes.
	EventTypeWrappedMidi

	// Asynchronous work handshake between the audio thread and the worker.
	EventTypeAsyncWork
	EventTypeAsyncWorkCompletion

	// Graph mutation instructions, audio-thread side.
	EventTypeInsertProcessor
	EventTypeRemoveProcessor
	EventTypeInsertChain
	EventTypeRemoveChain

	// Handoff of an unlinked object from the audio thread to the worker
	// for destruction off the realtime path.
	EventTypeObjectHandoff

	// Time synchronisation, carries the wall-clock start of the current
	// output block.
	EventTypeSync
)

// IsKeyboard reports whether t is one of the keyboard event types.
func (t EventType) IsKeyboard() bool {
	switch t {
	case EventTypeNoteOn, EventTypeNoteOff, EventTypeNoteAftertouch,
		EventTypePitchBend, EventTypeModulation, EventTypeProgramChange:
		return true
	}
	return false
}

// Event is the fixed-size record that crosses the audio/non-audio boundary.
// Events are passed by value; the only heap payloads are the string pointer
// of a string parameter change and the object reference of graph mutations,
// both of which transfer ownership with the event.
type Event struct {
	typ          EventType
	sampleOffset int
	processorID  ObjectID
	parameterID  ObjectID
	value        float32
	note         int
	midiData     [4]byte
	timestamp    Time
	str          *string
	obj          any
}

// Type returns the payload tag.
func (e Event) Type() EventType { return e.typ }

// SampleOffset returns the position within the current block, in [0, blockSize).
func (e Event) SampleOffset() int { return e.sampleOffset }

// ProcessorID returns the target processor.
func (e Event) ProcessorID() ObjectID { return e.processorID }

// ParameterID returns the target parameter for parameter change events.
func (e Event) ParameterID() ObjectID { return e.parameterID }

// Value returns the float payload: parameter value, velocity, bend amount.
func (e Event) Value() float32 { return e.value }

// Note returns the note number, or the program number for program changes.
func (e Event) Note() int { return e.note }

// MidiData returns the raw bytes of a wrapped MIDI event.
func (e Event) MidiData() [4]byte { return e.midiData }

// Timestamp returns the wall-clock time of a SYNC event.
func (e Event) Timestamp() Time { return e.timestamp }

// StringValue returns the string payload of a string parameter change.
// The receiver of a popped event owns the pointer.
func (e Event) StringValue() *string { return e.str }

// Object returns the object reference of an insert or handoff event.
// The receiver of a popped event owns the reference.
func (e Event) Object() any { return e.obj }

// WithSampleOffset returns a copy of e stamped with the given offset.
func (e Event) WithSampleOffset(offset int) Event {
	e.sampleOffset = offset
	return e
}

// MakeParameterChangeEvent builds a float parameter change.
func MakeParameterChangeEvent(processor ObjectID, offset int, parameter ObjectID, value float32) Event {
	return Event{
		typ:          EventTypeParameterChange,
		sampleOffset: offset,
		processorID:  processor,
		parameterID:  parameter,
		value:        value,
	}
}

// MakeStringParameterChangeEvent builds a string parameter change. Ownership
// of value transfers with the event.
func MakeStringParameterChangeEvent(processor ObjectID, offset int, parameter ObjectID, value *string) Event {
	return Event{
		typ:          EventTypeStringParameterChange,
		sampleOffset: offset,
		processorID:  processor,
		parameterID:  parameter,
		str:          value,
	}
}

// MakeKeyboardEvent builds a keyboard event of the given type. For note
// events value is the velocity, for pitch bend and modulation it is the
// amount.
func MakeKeyboardEvent(typ EventType, processor ObjectID, offset int, note int, value float32) Event {
	return Event{
		typ:          typ,
		sampleOffset: offset,
		processorID:  processor,
		note:         note,
		value:        value,
	}
}

// MakeNoteOnEvent builds a note on targeting the given processor.
func MakeNoteOnEvent(processor ObjectID, offset int, note int, velocity float32) Event {
	return MakeKeyboardEvent(EventTypeNoteOn, processor, offset, note, velocity)
}

// MakeNoteOffEvent builds a note off targeting the given processor.
func MakeNoteOffEvent(processor ObjectID, offset int, note int, velocity float32) Event {
	return MakeKeyboardEvent(EventTypeNoteOff, processor, offset, note, velocity)
}

// MakeWrappedMidiEvent builds an event carrying up to 4 raw MIDI bytes.
func MakeWrappedMidiEvent(processor ObjectID, offset int, data [4]byte) Event {
	return Event{
		typ:          EventTypeWrappedMidi,
		sampleOffset: offset,
		processorID:  processor,
		midiData:     data,
	}
}

// MakeSyncEvent builds a time synchronisation event.
func MakeSyncEvent(offset int, timestamp Time) Event {
	return Event{
		typ:          EventTypeSync,
		sampleOffset: offset,
		timestamp:    timestamp,
	}
}

// MakeInsertProcessorEvent instructs the audio thread to link the given
// processor object into the chain identified by chainID.
func MakeInsertProcessorEvent(chainID ObjectID, processor any) Event {
	return Event{
		typ:         EventTypeInsertProcessor,
		processorID: chainID,
		obj:         processor,
	}
}

// MakeRemoveProcessorEvent instructs the audio thread to unlink the
// processor from the chain identified by chainID and hand it back.
func MakeRemoveProcessorEvent(chainID ObjectID, processor ObjectID) Event {
	return Event{
		typ:         EventTypeRemoveProcessor,
		processorID: chainID,
		parameterID: processor,
	}
}

// MakeInsertChainEvent instructs the audio thread to link a new chain.
func MakeInsertChainEvent(chain any) Event {
	return Event{typ: EventTypeInsertChain, obj: chain}
}

// MakeRemoveChainEvent instructs the audio thread to unlink the chain with
// the given id and hand it back.
func MakeRemoveChainEvent(chainID ObjectID) Event {
	return Event{typ: EventTypeRemoveChain, processorID: chainID}
}

// MakeObjectHandoffEvent carries an unlinked object out of the audio thread
// so it is released on the worker instead.
func MakeObjectHandoffEvent(id ObjectID, obj any) Event {
	return Event{typ: EventTypeObjectHandoff, processorID: id, obj: obj}
}

// MakeAsyncWorkEvent requests asynchronous work on behalf of a processor.
func MakeAsyncWorkEvent(processor ObjectID, offset int, workID int) Event {
	return Event{
		typ:          EventTypeAsyncWork,
		sampleOffset: offset,
		processorID:  processor,
		note:         workID,
	}
}

// MakeAsyncWorkCompletionEvent notifies a processor that requested work
// has finished.
func MakeAsyncWorkCompletionEvent(processor ObjectID, workID int, status int) Event {
	return Event{
		typ:         EventTypeAsyncWorkCompletion,
		processorID: processor,
		note:        workID,
		value:       float32(status),
	}
}
