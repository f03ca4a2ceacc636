// Package gain implements the internal gain plugin.
package gain

import (
	"math"

	"github.com/perastrom/koto/pkg/audio"
	"github.com/perastrom/koto/pkg/param"
	"github.com/perastrom/koto/pkg/processor"
)

// Name is the default machine name of the plugin.
const Name = "koto.internal.gain"

// MinDB is treated as silence when converting to linear gain.
const MinDB = -120.0

// Plugin applies a gain, in dB, to every channel of the block.
type Plugin struct {
	*processor.Base
	gain *param.Parameter
}

// New creates a gain plugin with a single "gain" parameter.
func New(host processor.HostControl) *Plugin {
	p := &Plugin{Base: processor.NewBase(host, "Gain", 2, 2)}
	p.SetName(Name)
	p.gain = p.RegisterFloatParameter("gain", "Gain", 0.0, MinDB, 24.0)
	return p
}

// ProcessAudio implements processor.Processor.
func (p *Plugin) ProcessAudio(in, out *audio.Buffer) {
	g := dbToLinear(p.gain.Value())
	channels := out.ChannelCount()
	if in.ChannelCount() < channels {
		channels = in.ChannelCount()
	}
	for ch := 0; ch < channels; ch++ {
		src := in.Channel(ch)
		dst := out.Channel(ch)
		for i := range dst {
			dst[i] = src[i] * g
		}
	}
}

func dbToLinear(db float64) float32 {
	if db <= MinDB {
		return 0
	}
	return float32(math.Pow(10.0, db/20.0))
}
