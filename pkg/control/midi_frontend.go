package control

import (
	"fmt"
	"log/slog"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"github.com/perastrom/koto/pkg/midi"
	"github.com/perastrom/koto/pkg/rt"
)

// MidiFrontend listens on a hardware MIDI input and forwards note,
// modulation and pitch bend messages to one target processor.
type MidiFrontend struct {
	*BaseFrontend
	log    *slog.Logger
	in     drivers.In
	target rt.ObjectID
	stop   func()
}

// NewMidiFrontend wires a MIDI input port to the processor that should
// receive its events. The port must already be open.
func NewMidiFrontend(log *slog.Logger, base *BaseFrontend, in drivers.In, target rt.ObjectID) *MidiFrontend {
	return &MidiFrontend{BaseFrontend: base, log: log, in: in, target: target}
}

// Run starts listening on the port.
func (f *MidiFrontend) Run() error {
	stop, err := gomidi.ListenTo(f.in, f.handleMessage, gomidi.HandleError(func(err error) {
		f.log.Warn("midi listener error", "port", f.in.String(), "error", err)
	}))
	if err != nil {
		return fmt.Errorf("listen on %s: %w", f.in.String(), err)
	}
	f.stop = stop
	f.log.Info("midi input connected", "port", f.in.String())
	return nil
}

// Stop detaches from the port.
func (f *MidiFrontend) Stop() {
	if f.stop != nil {
		f.stop()
		f.stop = nil
	}
}

func (f *MidiFrontend) handleMessage(msg gomidi.Message, timestampms int32) {
	var ch, key, vel, cc, val uint8
	var rel int16
	var abs uint16
	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		f.SendKeyboardEvent(f.target, rt.EventTypeNoteOn, int(key), float32(vel)/127.0)
	case msg.GetNoteEnd(&ch, &key):
		f.SendKeyboardEvent(f.target, rt.EventTypeNoteOff, int(key), 0)
	case msg.GetControlChange(&ch, &cc, &val):
		if cc == midi.CCModulation {
			f.SendKeyboardEvent(f.target, rt.EventTypeModulation, 0, float32(val)/127.0)
		}
	case msg.GetPitchBend(&ch, &rel, &abs):
		f.SendKeyboardEvent(f.target, rt.EventTypePitchBend, 0, float32(rel)/8192.0)
	case msg.GetProgramChange(&ch, &val):
		f.SendKeyboardEvent(f.target, rt.EventTypeProgramChange, int(val), 0)
	default:
		f.log.Debug("unhandled midi message", "msg", msg.String())
	}
}

// InputPorts lists the names of the available MIDI input ports.
func InputPorts(drv drivers.Driver) ([]string, error) {
	ins, err := drv.Ins()
	if err != nil {
		return nil, fmt.Errorf("list midi inputs: %w", err)
	}
	names := make([]string, len(ins))
	for i, in := range ins {
		names[i] = in.String()
	}
	return names, nil
}

// FindInput opens the named input port.
func FindInput(drv drivers.Driver, name string) (drivers.In, error) {
	ins, err := drv.Ins()
	if err != nil {
		return nil, fmt.Errorf("list midi inputs: %w", err)
	}
	for _, in := range ins {
		if in.String() == name {
			if err := in.Open(); err != nil {
				return nil, fmt.Errorf("open %s: %w", name, err)
			}
			return in, nil
		}
	}
	return nil, fmt.Errorf("midi input %q not found", name)
}
