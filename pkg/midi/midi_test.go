package midi

import "testing"

func TestNoteRoundTrip(t *testing.T) {
	msg := EncodeNoteOn(3, 60, 100)
	if DecodeType(msg) != MessageTypeNoteOn {
		t.Fatalf("expected note on, got %v", DecodeType(msg))
	}
	n := DecodeNote(msg)
	if n.Channel != 3 || n.Note != 60 || n.Velocity != 100 {
		t.Errorf("decoded %+v", n)
	}

	msg = EncodeNoteOff(0, 72, 0)
	if DecodeType(msg) != MessageTypeNoteOff {
		t.Fatalf("expected note off, got %v", DecodeType(msg))
	}
}

func TestNoteOnZeroVelocityIsNoteOff(t *testing.T) {
	msg := EncodeNoteOn(0, 60, 0)
	if DecodeType(msg) != MessageTypeNoteOff {
		t.Error("note on with zero velocity should decode as note off")
	}
}

func TestControlChange(t *testing.T) {
	msg := EncodeControlChange(1, CCModulation, 64)
	if DecodeType(msg) != MessageTypeControlChange {
		t.Fatalf("expected control change, got %v", DecodeType(msg))
	}
	cc := DecodeControlChange(msg)
	if cc.Controller != CCModulation || cc.Value != 64 {
		t.Errorf("decoded %+v", cc)
	}
}

func TestPitchBendCenter(t *testing.T) {
	// 0x2000 split over two data bytes is the center position.
	pb := DecodePitchBend([4]byte{statusPitchBend, 0x00, 0x40, 0})
	if pb.Value != 0 {
		t.Errorf("expected centered bend, got %d", pb.Value)
	}
}
