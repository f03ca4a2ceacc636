package offline

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perastrom/koto/pkg/engine"
	"github.com/perastrom/koto/pkg/plugins/gain"
	"github.com/perastrom/koto/pkg/processor"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeTestWav(t *testing.T, path string, samples []int) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc := wav.NewEncoder(f, 48000, 16, 2, 1)
	require.NoError(t, enc.Write(&goaudio.IntBuffer{
		Data:   samples,
		Format: &goaudio.Format{NumChannels: 2, SampleRate: 48000},
	}))
	require.NoError(t, enc.Close())
}

func readTestWav(t *testing.T, path string) []int {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	require.NoError(t, err)
	return buf.Data
}

// rampSamples builds an interleaved stereo ramp spanning the given frame
// count, a bit longer than two blocks to exercise the partial tail.
func rampSamples(frames int) []int {
	samples := make([]int, frames*2)
	for i := 0; i < frames; i++ {
		samples[i*2] = i * 10
		samples[i*2+1] = -i * 10
	}
	return samples
}

func TestRenderPassesAudioThrough(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "in.wav")
	outPath := filepath.Join(dir, "out.wav")
	frames := 150 // two full 64-frame blocks plus a 22-frame tail
	writeTestWav(t, inPath, rampSamples(frames))

	e := engine.New(discard(), 64, 1024)
	require.NoError(t, e.CreateChain("main", 2))

	f := New(discard(), e, nil)
	require.NoError(t, f.Process(inPath, outPath))

	got := readTestWav(t, outPath)
	want := rampSamples(frames)
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1, "sample %d", i)
	}
}

func TestRenderAppliesGain(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "in.wav")
	outPath := filepath.Join(dir, "out.wav")
	writeTestWav(t, inPath, rampSamples(128))

	e := engine.New(discard(), 64, 1024)
	e.SetFactory(func(kind string, host processor.HostControl) (processor.Processor, error) {
		return gain.New(host), nil
	})
	require.NoError(t, e.CreateChain("main", 2))
	require.NoError(t, e.AddPlugin("main", "gain", "g1"))
	p, _ := e.ProcessorByName("g1")
	p.Parameters().GetByName("gain").Set(-120)

	f := New(discard(), e, nil)
	require.NoError(t, f.Process(inPath, outPath))

	for i, s := range readTestWav(t, outPath) {
		assert.Zero(t, s, "sample %d must be silent", i)
	}
}

func TestRenderRejectsGarbageInput(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "in.wav")
	require.NoError(t, os.WriteFile(inPath, []byte("not a wav"), 0o644))

	e := engine.New(discard(), 64, 1024)
	f := New(discard(), e, nil)
	assert.Error(t, f.Process(inPath, filepath.Join(dir, "out.wav")))
}
