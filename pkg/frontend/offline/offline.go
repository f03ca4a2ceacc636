// Package offline renders audio files through the engine faster than real
// time. It owns the clock: block timestamps are derived from the sample
// position instead of the wall clock, and the dispatcher is ticked once
// per block so timed events stay aligned.
package offline

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/perastrom/koto/pkg/audio"
	"github.com/perastrom/koto/pkg/rt"
)

// Renderer is the engine surface the frontend drives.
type Renderer interface {
	BlockSize() int
	SetSampleRate(sampleRate float64)
	UpdateTime(usecSinceStart rt.Time, samplesSinceStart int64)
	ProcessChunk(in, out *audio.Buffer)
}

// Ticker advances the control plane once per rendered block.
type Ticker interface {
	Tick()
}

// Frontend streams a WAV file through the engine block by block and writes
// the processed result.
type Frontend struct {
	log    *slog.Logger
	engine Renderer
	ticker Ticker
}

// New creates an offline frontend. ticker may be nil when no control plane
// is attached.
func New(log *slog.Logger, engine Renderer, ticker Ticker) *Frontend {
	return &Frontend{log: log, engine: engine, ticker: ticker}
}

// Process renders inPath through the engine into outPath. The output keeps
// the input's sample rate, channel count and bit depth.
func (f *Frontend) Process(inPath, outPath string) error {
	inFile, err := os.Open(inPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer inFile.Close()

	dec := wav.NewDecoder(inFile)
	if !dec.IsValidFile() {
		return fmt.Errorf("%s: not a valid wav file", inPath)
	}
	dec.ReadInfo()
	format := dec.Format()
	sampleRate := format.SampleRate
	channels := format.NumChannels
	bitDepth := int(dec.BitDepth)

	outFile, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer outFile.Close()

	enc := wav.NewEncoder(outFile, sampleRate, bitDepth, channels, 1)
	defer enc.Close()

	f.engine.SetSampleRate(float64(sampleRate))
	f.log.Info("offline render started",
		"input", inPath,
		"output", outPath,
		"sample_rate", sampleRate,
		"channels", channels,
		"bit_depth", bitDepth,
	)

	blockSize := f.engine.BlockSize()
	in := audio.NewBuffer(channels, blockSize)
	out := audio.NewBuffer(channels, blockSize)
	intBuf := &goaudio.IntBuffer{
		Data:   make([]int, blockSize*channels),
		Format: format,
	}
	scale := pcmScale(bitDepth)

	var samplePos int64
	for {
		intBuf.Data = intBuf.Data[:blockSize*channels]
		n, err := dec.PCMBuffer(intBuf)
		if err != nil && err != io.EOF {
			return fmt.Errorf("decode: %w", err)
		}
		if n == 0 {
			break
		}
		frames := n / channels

		deinterleave(in, intBuf.Data[:n], channels, frames, scale)

		usec := rt.Time(math.Round(float64(samplePos) / float64(sampleRate) * 1e6))
		f.engine.UpdateTime(usec, samplePos)
		f.engine.ProcessChunk(in, out)
		if f.ticker != nil {
			f.ticker.Tick()
		}

		interleave(intBuf.Data[:n], out, channels, frames, scale)
		intBuf.Data = intBuf.Data[:n]
		if err := enc.Write(intBuf); err != nil {
			return fmt.Errorf("encode: %w", err)
		}

		samplePos += int64(frames)
		if frames < blockSize {
			break
		}
	}

	f.log.Info("offline render finished", "frames", samplePos)
	return nil
}

func pcmScale(bitDepth int) float32 {
	switch bitDepth {
	case 8:
		return 128.0
	case 16:
		return 32768.0
	case 24:
		return 8388608.0
	case 32:
		return 2147483648.0
	}
	return 32768.0
}

func deinterleave(dst *audio.Buffer, src []int, channels, frames int, scale float32) {
	dst.Clear()
	for ch := 0; ch < channels; ch++ {
		data := dst.Channel(ch)
		for i := 0; i < frames; i++ {
			data[i] = float32(src[i*channels+ch]) / scale
		}
	}
}

func interleave(dst []int, src *audio.Buffer, channels, frames int, scale float32) {
	maxV := int(scale) - 1
	minV := -int(scale)
	for ch := 0; ch < channels; ch++ {
		data := src.Channel(ch)
		for i := 0; i < frames; i++ {
			v := int(math.Round(float64(data[i]) * float64(scale)))
			if v > maxV {
				v = maxV
			} else if v < minV {
				v = minV
			}
			dst[i*channels+ch] = v
		}
	}
}
