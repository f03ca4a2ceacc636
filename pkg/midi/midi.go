// Package midi encodes and decodes the raw MIDI bytes carried by wrapped
// MIDI events.
package midi

// MessageType classifies a raw MIDI message by its status nibble.
type MessageType uint8

const (
	MessageTypeUnknown MessageType = iota
	MessageTypeNoteOff
	MessageTypeNoteOn
	MessageTypePolyPressure
	MessageTypeControlChange
	MessageTypeProgramChange
	MessageTypeChannelPressure
	MessageTypePitchBend
)

const (
	statusNoteOff         = 0x80
	statusNoteOn          = 0x90
	statusPolyPressure    = 0xA0
	statusControlChange   = 0xB0
	statusProgramChange   = 0xC0
	statusChannelPressure = 0xD0
	statusPitchBend       = 0xE0
)

// CCModulation is the controller number of the modulation wheel.
const CCModulation uint8 = 1

// NoteMessage is a decoded note on or note off.
type NoteMessage struct {
	Channel  uint8
	Note     uint8
	Velocity uint8
}

// ControlChangeMessage is a decoded controller change.
type ControlChangeMessage struct {
	Channel    uint8
	Controller uint8
	Value      uint8
}

// PitchBendMessage is a decoded pitch bend; Value is centered at 0 in
// [-8192, 8191].
type PitchBendMessage struct {
	Channel uint8
	Value   int
}

// DecodeType returns the message type of a raw MIDI message.
func DecodeType(data [4]byte) MessageType {
	switch data[0] & 0xF0 {
	case statusNoteOff:
		return MessageTypeNoteOff
	case statusNoteOn:
		if data[2] == 0 {
			// Note on with zero velocity is a note off.
			return MessageTypeNoteOff
		}
		return MessageTypeNoteOn
	case statusPolyPressure:
		return MessageTypePolyPressure
	case statusControlChange:
		return MessageTypeControlChange
	case statusProgramChange:
		return MessageTypeProgramChange
	case statusChannelPressure:
		return MessageTypeChannelPressure
	case statusPitchBend:
		return MessageTypePitchBend
	}
	return MessageTypeUnknown
}

// DecodeNote decodes a note on/off message.
func DecodeNote(data [4]byte) NoteMessage {
	return NoteMessage{
		Channel:  data[0] & 0x0F,
		Note:     data[1] & 0x7F,
		Velocity: data[2] & 0x7F,
	}
}

// DecodeControlChange decodes a controller change message.
func DecodeControlChange(data [4]byte) ControlChangeMessage {
	return ControlChangeMessage{
		Channel:    data[0] & 0x0F,
		Controller: data[1] & 0x7F,
		Value:      data[2] & 0x7F,
	}
}

// DecodePitchBend decodes a pitch bend message.
func DecodePitchBend(data [4]byte) PitchBendMessage {
	raw := int(data[1]&0x7F) | int(data[2]&0x7F)<<7
	return PitchBendMessage{
		Channel: data[0] & 0x0F,
		Value:   raw - 8192,
	}
}

// EncodeNoteOn encodes a note on message.
func EncodeNoteOn(channel, note, velocity uint8) [4]byte {
	return [4]byte{statusNoteOn | channel&0x0F, note & 0x7F, velocity & 0x7F, 0}
}

// EncodeNoteOff encodes a note off message.
func EncodeNoteOff(channel, note, velocity uint8) [4]byte {
	return [4]byte{statusNoteOff | channel&0x0F, note & 0x7F, velocity & 0x7F, 0}
}

// EncodeControlChange encodes a controller change message.
func EncodeControlChange(channel, controller, value uint8) [4]byte {
	return [4]byte{statusControlChange | channel&0x0F, controller & 0x7F, value & 0x7F, 0}
}
