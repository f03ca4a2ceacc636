package gain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perastrom/koto/pkg/audio"
	"github.com/perastrom/koto/pkg/event"
	"github.com/perastrom/koto/pkg/rt"
)

type nullHost struct{}

func (nullHost) PostEvent(*event.Event) error { return nil }
func (nullHost) OutputRtEvent(rt.Event)       {}
func (nullHost) TimeNow() rt.Time             { return 0 }
func (nullHost) SampleRate() float64          { return 48000 }

func TestUnityGainByDefault(t *testing.T) {
	p := New(nullHost{})
	require.NoError(t, p.Init(48000))

	in := audio.NewBuffer(2, 64)
	out := audio.NewBuffer(2, 64)
	for i := range in.Channel(0) {
		in.Channel(0)[i] = 0.25
		in.Channel(1)[i] = -0.5
	}

	p.ProcessAudio(in, out)
	assert.InDelta(t, 0.25, out.Channel(0)[10], 1e-6)
	assert.InDelta(t, -0.5, out.Channel(1)[10], 1e-6)
}

func TestGainParameterChangeAppliesBeforeProcessing(t *testing.T) {
	p := New(nullHost{})
	gainParam := p.Parameters().GetByName("gain")
	require.NotNil(t, gainParam)

	// -6 dB is half amplitude, near enough.
	p.ProcessEvent(rt.MakeParameterChangeEvent(p.ID(), 0, gainParam.ID(), -6.0))
	assert.InDelta(t, -6.0, gainParam.Value(), 1e-6)

	in := audio.NewBuffer(2, 64)
	out := audio.NewBuffer(2, 64)
	in.Channel(0)[0] = 1.0

	p.ProcessAudio(in, out)
	want := math.Pow(10, -6.0/20.0)
	assert.InDelta(t, want, float64(out.Channel(0)[0]), 1e-4)
}

func TestGainClampsOutOfRangeValues(t *testing.T) {
	p := New(nullHost{})
	gainParam := p.Parameters().GetByName("gain")
	p.ProcessEvent(rt.MakeParameterChangeEvent(p.ID(), 0, gainParam.ID(), 1000))
	assert.Equal(t, 24.0, gainParam.Value())
}
