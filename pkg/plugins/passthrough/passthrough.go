// Package passthrough implements the internal passthrough plugin: audio is
// copied unchanged and incoming events are forwarded to the output queue.
package passthrough

import (
	"github.com/perastrom/koto/pkg/audio"
	"github.com/perastrom/koto/pkg/processor"
	"github.com/perastrom/koto/pkg/rt"
)

// Name is the default machine name of the plugin.
const Name = "koto.internal.passthrough"

// Plugin copies input to output and mirrors keyboard events downstream.
type Plugin struct {
	*processor.Base
}

// New creates a passthrough plugin.
func New(host processor.HostControl) *Plugin {
	p := &Plugin{Base: processor.NewBase(host, "Passthrough", 2, 2)}
	p.SetName(Name)
	return p
}

// ProcessAudio implements processor.Processor.
func (p *Plugin) ProcessAudio(in, out *audio.Buffer) {
	out.CopyFrom(in)
}

// ProcessEvent forwards keyboard events unchanged, everything else falls
// through to the default handling.
func (p *Plugin) ProcessEvent(e rt.Event) {
	if e.Type().IsKeyboard() {
		p.OutputEvent(e)
		return
	}
	p.Base.ProcessEvent(e)
}
