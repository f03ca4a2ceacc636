// Package engine owns the named processor chains and runs the per-block
// protocol on the audio thread. Everything that mutates the audio graph
// reaches the audio thread as realtime events; the engine never takes a
// lock between ProcessChunk entry and exit.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/perastrom/koto/pkg/audio"
	"github.com/perastrom/koto/pkg/event"
	"github.com/perastrom/koto/pkg/processor"
	"github.com/perastrom/koto/pkg/rt"
	"github.com/perastrom/koto/pkg/rtlog"
)

var (
	// ErrDuplicateName is returned when a chain or processor name is taken.
	ErrDuplicateName = errors.New("name already in use")
	// ErrUnknownChain is returned for lookups of chains that do not exist.
	ErrUnknownChain = errors.New("unknown chain")
	// ErrUnknownProcessor is returned for lookups of processors that do not exist.
	ErrUnknownProcessor = errors.New("unknown processor")
	// ErrQueueFull is returned when a graph mutation cannot reach the audio thread.
	ErrQueueFull = errors.New("rt queue full")
)

// Factory creates a processor of the given kind, or fails.
type Factory func(kind string, host processor.HostControl) (processor.Processor, error)

// AsyncWorker is implemented by processors that request asynchronous work.
type AsyncWorker interface {
	PerformAsyncWork(workID int) int
}

// Engine drives the processor graph. The audio thread enters through
// UpdateTime and ProcessChunk; the worker thread enters through the
// mutation methods; both sides meet only at the two realtime queues.
type Engine struct {
	log        *slog.Logger
	sampleRate float64
	blockSize  int

	inQueue  *rt.Fifo
	outQueue *rt.Fifo
	logRing  *rtlog.Ring

	// Audio-thread state. Never touched by other threads.
	chains  []*Chain
	routing map[rt.ObjectID]processor.Processor

	currentTime   atomic.Int64 // rt.Time of the current block start
	blockDuration rt.Time
	unknownTarget atomic.Uint64
	timings       *Timings

	// Control-plane bookkeeping, guarded by mu. The audio thread never
	// reads these maps.
	mu               sync.Mutex
	chainsByName     map[string]*Chain
	processorsByName map[string]processor.Processor
	processorsByID   map[rt.ObjectID]processor.Processor
	processorChain   map[rt.ObjectID]rt.ObjectID
	factory          Factory

	poster func(e *event.Event) error
}

// New creates an engine with the given block size and realtime queue
// capacity. SetSampleRate must be called before the first block.
func New(log *slog.Logger, blockSize, queueCapacity int) *Engine {
	e := &Engine{
		log:              log,
		blockSize:        blockSize,
		inQueue:          rt.NewFifo(queueCapacity),
		outQueue:         rt.NewFifo(queueCapacity),
		logRing:          rtlog.NewRing(256),
		routing:          make(map[rt.ObjectID]processor.Processor),
		chainsByName:     make(map[string]*Chain),
		processorsByName: make(map[string]processor.Processor),
		processorsByID:   make(map[rt.ObjectID]processor.Processor),
		processorChain:   make(map[rt.ObjectID]rt.ObjectID),
		timings:          NewTimings(),
	}
	e.SetSampleRate(48000)
	return e
}

// InQueue returns the inbound realtime queue (control plane to audio).
func (e *Engine) InQueue() *rt.Fifo { return e.inQueue }

// OutQueue returns the outbound realtime queue (audio to control plane).
func (e *Engine) OutQueue() *rt.Fifo { return e.outQueue }

// LogRing returns the ring the audio thread logs through.
func (e *Engine) LogRing() *rtlog.Ring { return e.logRing }

// SetFactory installs the processor factory used by AddPlugin.
func (e *Engine) SetFactory(f Factory) { e.factory = f }

// SetEventPoster installs the dispatcher post function used by the host
// control facade.
func (e *Engine) SetEventPoster(post func(e *event.Event) error) { e.poster = post }

// SetSampleRate configures the sample rate. Called before the first block.
func (e *Engine) SetSampleRate(sampleRate float64) {
	e.sampleRate = sampleRate
	e.blockDuration = rt.Time(float64(e.blockSize)/sampleRate*1e6 + 0.5)
}

// SampleRate returns the configured sample rate.
func (e *Engine) SampleRate() float64 { return e.sampleRate }

// BlockSize returns the configured block size in frames.
func (e *Engine) BlockSize() int { return e.blockSize }

// UnknownTargetCount returns how many events were dropped because their
// target processor was not found.
func (e *Engine) UnknownTargetCount() uint64 { return e.unknownTarget.Load() }

// UpdateTime anchors the engine clock for the next block. Called by the
// audio frontend just before ProcessChunk.
func (e *Engine) UpdateTime(usecSinceStart rt.Time, samplesSinceStart int64) {
	_ = samplesSinceStart
	e.currentTime.Store(int64(usecSinceStart))
}

// TimeNow returns the wall-clock time of the current block start.
func (e *Engine) TimeNow() rt.Time { return rt.Time(e.currentTime.Load()) }

// ProcessChunk renders one block. Audio thread. The totally ordered
// per-block sequence: time sync, drain inbound events, process chains,
// advance the clock.
func (e *Engine) ProcessChunk(in, out *audio.Buffer) {
	start := time.Now()

	e.outQueue.Push(rt.MakeSyncEvent(0, e.TimeNow()))

	for {
		ev, ok := e.inQueue.Pop()
		if !ok {
			break
		}
		e.processRtEvent(ev)
	}

	out.Clear()
	for _, c := range e.chains {
		out.AddFrom(c.process(in))
	}

	e.currentTime.Add(int64(e.blockDuration))
	e.timings.Record(time.Since(start))
}

// processRtEvent applies one inbound event on the audio thread. Graph
// mutations are applied atomically here; everything else routes to its
// target processor.
func (e *Engine) processRtEvent(ev rt.Event) {
	switch ev.Type() {
	case rt.EventTypeInsertChain:
		if c, ok := ev.Object().(*Chain); ok {
			e.chains = append(e.chains, c)
		}
	case rt.EventTypeRemoveChain:
		for i, c := range e.chains {
			if c.ID() == ev.ProcessorID() {
				e.chains = append(e.chains[:i], e.chains[i+1:]...)
				for _, p := range c.processors {
					delete(e.routing, p.ID())
				}
				e.outQueue.Push(rt.MakeObjectHandoffEvent(c.ID(), c))
				break
			}
		}
	case rt.EventTypeInsertProcessor:
		p, ok := ev.Object().(processor.Processor)
		if !ok {
			return
		}
		for _, c := range e.chains {
			if c.ID() == ev.ProcessorID() {
				c.add(p)
				e.routing[p.ID()] = p
				return
			}
		}
		// Chain disappeared before the insert arrived; hand the
		// processor straight back for destruction.
		e.outQueue.Push(rt.MakeObjectHandoffEvent(p.ID(), p))
	case rt.EventTypeRemoveProcessor:
		for _, c := range e.chains {
			if c.ID() == ev.ProcessorID() {
				if p := c.remove(ev.ParameterID()); p != nil {
					delete(e.routing, p.ID())
					e.outQueue.Push(rt.MakeObjectHandoffEvent(p.ID(), p))
				}
				return
			}
		}
	default:
		if p, ok := e.routing[ev.ProcessorID()]; ok {
			p.ProcessEvent(ev)
			return
		}
		e.unknownTarget.Add(1)
		e.logRing.Push(slog.LevelWarn, "rt event for unknown processor", int64(ev.ProcessorID()))
	}
}

// hostControl is the facade handed to processors; it is their only channel
// to the outside world.
type hostControl struct {
	e *Engine
}

func (h hostControl) PostEvent(ev *event.Event) error {
	if h.e.poster == nil {
		return errors.New("no dispatcher attached")
	}
	return h.e.poster(ev)
}

func (h hostControl) OutputRtEvent(ev rt.Event) {
	h.e.outQueue.Push(ev)
}

func (h hostControl) TimeNow() rt.Time { return h.e.TimeNow() }

func (h hostControl) SampleRate() float64 { return h.e.sampleRate }

// HostControl returns the facade passed to processors at construction.
func (e *Engine) HostControl() processor.HostControl { return hostControl{e} }

// CreateChain builds a chain and links it into the audio graph. Worker
// thread.
func (e *Engine) CreateChain(name string, channels int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.chainsByName[name]; exists {
		return fmt.Errorf("chain %q: %w", name, ErrDuplicateName)
	}
	c := NewChain(name, channels, e.blockSize)
	if !e.inQueue.Push(rt.MakeInsertChainEvent(c)) {
		return fmt.Errorf("chain %q: %w", name, ErrQueueFull)
	}
	e.chainsByName[name] = c
	e.log.Info("chain created", "name", name, "channels", channels)
	return nil
}

// DeleteChain unlinks a chain; the audio thread hands it back for
// destruction off the realtime path. Worker thread.
func (e *Engine) DeleteChain(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, exists := e.chainsByName[name]
	if !exists {
		return fmt.Errorf("chain %q: %w", name, ErrUnknownChain)
	}
	if !e.inQueue.Push(rt.MakeRemoveChainEvent(c.ID())) {
		return fmt.Errorf("chain %q: %w", name, ErrQueueFull)
	}
	delete(e.chainsByName, name)
	for procName, p := range e.processorsByName {
		if e.processorChain[p.ID()] == c.ID() {
			delete(e.processorsByName, procName)
			delete(e.processorsByID, p.ID())
			delete(e.processorChain, p.ID())
		}
	}
	e.log.Info("chain deleted", "name", name)
	return nil
}

// AddPlugin creates a processor through the factory, initialises it and
// posts the insertion to the audio thread. Worker thread.
func (e *Engine) AddPlugin(chainName, kind, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.factory == nil {
		return errors.New("no processor factory installed")
	}
	c, exists := e.chainsByName[chainName]
	if !exists {
		return fmt.Errorf("chain %q: %w", chainName, ErrUnknownChain)
	}
	if _, taken := e.processorsByName[name]; taken {
		return fmt.Errorf("processor %q: %w", name, ErrDuplicateName)
	}

	p, err := e.factory(kind, e.HostControl())
	if err != nil {
		return fmt.Errorf("create %q: %w", kind, err)
	}
	p.SetName(name)
	if err := p.Init(e.sampleRate); err != nil {
		return fmt.Errorf("init %q: %w", name, err)
	}
	if !e.inQueue.Push(rt.MakeInsertProcessorEvent(c.ID(), p)) {
		return fmt.Errorf("processor %q: %w", name, ErrQueueFull)
	}
	e.processorsByName[name] = p
	e.processorsByID[p.ID()] = p
	e.processorChain[p.ID()] = c.ID()
	e.log.Info("processor added", "chain", chainName, "kind", kind, "name", name, "id", p.ID())
	return nil
}

// RemovePlugin posts the removal to the audio thread, which hands the
// processor back for destruction. Worker thread.
func (e *Engine) RemovePlugin(chainName, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, exists := e.chainsByName[chainName]
	if !exists {
		return fmt.Errorf("chain %q: %w", chainName, ErrUnknownChain)
	}
	p, exists := e.processorsByName[name]
	if !exists {
		return fmt.Errorf("processor %q: %w", name, ErrUnknownProcessor)
	}
	if !e.inQueue.Push(rt.MakeRemoveProcessorEvent(c.ID(), p.ID())) {
		return fmt.Errorf("processor %q: %w", name, ErrQueueFull)
	}
	delete(e.processorsByName, name)
	delete(e.processorsByID, p.ID())
	delete(e.processorChain, p.ID())
	e.log.Info("processor removed", "chain", chainName, "name", name)
	return nil
}

// ProcessorByName looks a processor up in the control-plane table.
func (e *Engine) ProcessorByName(name string) (processor.Processor, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.processorsByName[name]
	return p, ok
}

// ChainByName looks a chain up in the control-plane table.
func (e *Engine) ChainByName(name string) (*Chain, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.chainsByName[name]
	return c, ok
}

// ExecuteAsyncWork runs a processor's asynchronous work request on the
// worker thread and returns its status.
func (e *Engine) ExecuteAsyncWork(id rt.ObjectID, workID int) int {
	e.mu.Lock()
	p, ok := e.processorsByID[id]
	e.mu.Unlock()
	if !ok {
		return event.UnrecognizedReceiver
	}
	worker, ok := p.(AsyncWorker)
	if !ok {
		return event.UnrecognizedEvent
	}
	return worker.PerformAsyncWork(workID)
}
