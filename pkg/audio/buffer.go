// Package audio provides deinterleaved float32 block buffers shared between
// the engine, processors and audio frontends.
package audio

// Buffer holds a fixed number of frames for a fixed number of channels.
// Channel data lives in one contiguous backing slice; per-channel views are
// created once so no allocation happens during processing.
type Buffer struct {
	data     []float32
	channels [][]float32
	frames   int
}

// NewBuffer allocates a buffer of channels x frames samples, zeroed.
func NewBuffer(channels, frames int) *Buffer {
	b := &Buffer{
		data:   make([]float32, channels*frames),
		frames: frames,
	}
	b.channels = make([][]float32, channels)
	for ch := range b.channels {
		b.channels[ch] = b.data[ch*frames : (ch+1)*frames]
	}
	return b
}

// ChannelCount returns the number of channels.
func (b *Buffer) ChannelCount() int { return len(b.channels) }

// Frames returns the number of frames per channel.
func (b *Buffer) Frames() int { return b.frames }

// Channel returns the samples of one channel.
func (b *Buffer) Channel(ch int) []float32 { return b.channels[ch] }

// Clear zeroes every sample.
func (b *Buffer) Clear() {
	for i := range b.data {
		b.data[i] = 0
	}
}

// CopyFrom copies as many channels and frames as both buffers share.
func (b *Buffer) CopyFrom(src *Buffer) {
	n := len(b.channels)
	if len(src.channels) < n {
		n = len(src.channels)
	}
	for ch := 0; ch < n; ch++ {
		copy(b.channels[ch], src.channels[ch])
	}
}

// AddFrom mixes src into b sample by sample.
func (b *Buffer) AddFrom(src *Buffer) {
	n := len(b.channels)
	if len(src.channels) < n {
		n = len(src.channels)
	}
	for ch := 0; ch < n; ch++ {
		dst := b.channels[ch]
		s := src.channels[ch]
		for i := range dst {
			dst[i] += s[i]
		}
	}
}
