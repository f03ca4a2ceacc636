package engine

import (
	"github.com/perastrom/koto/pkg/audio"
	"github.com/perastrom/koto/pkg/processor"
	"github.com/perastrom/koto/pkg/rt"
)

// Chain is one ordered signal path of processors with a fixed channel
// count. The processor slice is touched only by the audio thread once the
// chain is linked into the engine; all mutations arrive as realtime events.
type Chain struct {
	id         rt.ObjectID
	name       string
	channels   int
	processors []processor.Processor

	// Ping-pong buffers owned by the engine, reused every block.
	bufA *audio.Buffer
	bufB *audio.Buffer
}

// NewChain creates a chain with buffers sized for the given block.
func NewChain(name string, channels, blockSize int) *Chain {
	return &Chain{
		id:       rt.NewID(),
		name:     name,
		channels: channels,
		bufA:     audio.NewBuffer(channels, blockSize),
		bufB:     audio.NewBuffer(channels, blockSize),
	}
}

// ID returns the chain's ObjectID.
func (c *Chain) ID() rt.ObjectID { return c.id }

// Name returns the chain name.
func (c *Chain) Name() string { return c.name }

// Channels returns the channel count.
func (c *Chain) Channels() int { return c.channels }

// Count returns the number of linked processors. Audio thread only.
func (c *Chain) Count() int { return len(c.processors) }

// add links a processor at the end of the chain. Audio thread only.
func (c *Chain) add(p processor.Processor) {
	c.processors = append(c.processors, p)
}

// remove unlinks the processor with the given id and returns it, or nil.
// Audio thread only.
func (c *Chain) remove(id rt.ObjectID) processor.Processor {
	for i, p := range c.processors {
		if p.ID() == id {
			c.processors = append(c.processors[:i], c.processors[i+1:]...)
			return p
		}
	}
	return nil
}

// process runs the chain on one block and returns the buffer holding the
// chain output. Audio thread only.
func (c *Chain) process(in *audio.Buffer) *audio.Buffer {
	if len(c.processors) == 0 {
		c.bufA.CopyFrom(in)
		return c.bufA
	}
	src := in
	dst, alt := c.bufA, c.bufB
	for _, p := range c.processors {
		p.ProcessAudio(src, dst)
		src = dst
		dst, alt = alt, dst
	}
	return src
}
