// Package eq implements the internal parametric equalizer plugin, a
// single peaking band.
package eq

import (
	"math"

	"github.com/perastrom/koto/pkg/audio"
	"github.com/perastrom/koto/pkg/param"
	"github.com/perastrom/koto/pkg/processor"
)

// Name is the default machine name of the plugin.
const Name = "koto.internal.eq"

const maxChannels = 2

// biquad is a direct form I second order section with per-channel state.
type biquad struct {
	b0, b1, b2 float32
	a1, a2     float32
	x1, x2     [maxChannels]float32
	y1, y2     [maxChannels]float32
}

// setPeaking derives peaking EQ coefficients from the RBJ cookbook.
func (f *biquad) setPeaking(sampleRate, frequency, q, gainDB float64) {
	omega := 2.0 * math.Pi * frequency / sampleRate
	sinOmega := math.Sin(omega)
	cosOmega := math.Cos(omega)
	amp := math.Pow(10.0, gainDB/40.0)
	alpha := sinOmega / (2.0 * q)

	a0 := 1.0 + alpha/amp
	f.b0 = float32((1.0 + alpha*amp) / a0)
	f.b1 = float32(-2.0 * cosOmega / a0)
	f.b2 = float32((1.0 - alpha*amp) / a0)
	f.a1 = float32(-2.0 * cosOmega / a0)
	f.a2 = float32((1.0 - alpha/amp) / a0)
}

func (f *biquad) reset() {
	for ch := 0; ch < maxChannels; ch++ {
		f.x1[ch], f.x2[ch] = 0, 0
		f.y1[ch], f.y2[ch] = 0, 0
	}
}

func (f *biquad) process(in, out []float32, ch int) {
	x1, x2 := f.x1[ch], f.x2[ch]
	y1, y2 := f.y1[ch], f.y2[ch]
	for i := range out {
		x0 := in[i]
		y0 := f.b0*x0 + f.b1*x1 + f.b2*x2 - f.a1*y1 - f.a2*y2
		x2, x1 = x1, x0
		y2, y1 = y1, y0
		out[i] = y0
	}
	f.x1[ch], f.x2[ch] = x1, x2
	f.y1[ch], f.y2[ch] = y1, y2
}

// Plugin applies one peaking EQ band to every channel.
type Plugin struct {
	*processor.Base
	frequency *param.Parameter
	q         *param.Parameter
	gain      *param.Parameter

	filter     biquad
	sampleRate float64

	// Cached parameter values; coefficients are recomputed at block start
	// only when one of them moved.
	curFreq, curQ, curGain float64
}

// New creates an equalizer with frequency, q and gain parameters.
func New(host processor.HostControl) *Plugin {
	p := &Plugin{Base: processor.NewBase(host, "Equalizer", maxChannels, maxChannels)}
	p.SetName(Name)
	p.frequency = p.RegisterFloatParameter("frequency", "Frequency", 1000.0, 20.0, 20000.0)
	p.q = p.RegisterFloatParameter("q", "Q", 1.0, 0.1, 10.0)
	p.gain = p.RegisterFloatParameter("gain", "Gain", 0.0, -24.0, 24.0)
	return p
}

// Init implements processor.Processor.
func (p *Plugin) Init(sampleRate float64) error {
	p.sampleRate = sampleRate
	p.filter.reset()
	p.updateCoefficients()
	return nil
}

// ProcessAudio implements processor.Processor.
func (p *Plugin) ProcessAudio(in, out *audio.Buffer) {
	if p.frequency.Value() != p.curFreq || p.q.Value() != p.curQ || p.gain.Value() != p.curGain {
		p.updateCoefficients()
	}
	channels := out.ChannelCount()
	if in.ChannelCount() < channels {
		channels = in.ChannelCount()
	}
	if channels > maxChannels {
		channels = maxChannels
	}
	for ch := 0; ch < channels; ch++ {
		p.filter.process(in.Channel(ch), out.Channel(ch), ch)
	}
}

func (p *Plugin) updateCoefficients() {
	p.curFreq = p.frequency.Value()
	p.curQ = p.q.Value()
	p.curGain = p.gain.Value()
	p.filter.setPeaking(p.sampleRate, p.curFreq, p.curQ, p.curGain)
}
