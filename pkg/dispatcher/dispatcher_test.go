package dispatcher

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perastrom/koto/pkg/audio"
	"github.com/perastrom/koto/pkg/engine"
	"github.com/perastrom/koto/pkg/event"
	"github.com/perastrom/koto/pkg/processor"
	"github.com/perastrom/koto/pkg/rt"
)

const blockSize = 64

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRig(t *testing.T) (*engine.Engine, *Dispatcher, *Worker) {
	t.Helper()
	log := discard()
	e := engine.New(log, blockSize, 128)
	w := NewWorker(log, e, time.Millisecond, time.Hour)
	d := New(log, e, w, time.Millisecond)
	e.SetEventPoster(d.PostEvent)
	return e, d, w
}

func runBlock(e *engine.Engine) {
	in := audio.NewBuffer(2, blockSize)
	out := audio.NewBuffer(2, blockSize)
	e.ProcessChunk(in, out)
}

// listener records every event it sees in a shared order log.
type listener struct {
	name  string
	order *[]string
}

func (l *listener) Process(e *event.Event) int {
	*l.order = append(*l.order, l.name)
	return event.HandledOK
}

func (l *listener) PosterID() event.PosterID { return event.OscFrontend }

func TestTimedEventWaitsForItsBlock(t *testing.T) {
	e, d, _ := newRig(t)

	// 2 ms lies beyond the first 1333 us block at 48 kHz.
	require.NoError(t, d.PostEvent(event.NewKeyboardEvent(
		rt.EventTypeNoteOn, rt.ObjectID(7), 60, 0.8, rt.Time(2000))))

	e.UpdateTime(0, 0)
	runBlock(e)
	d.Tick()
	_, ok := e.InQueue().Pop()
	assert.False(t, ok, "event must not be sent before its block")

	runBlock(e)
	d.Tick()
	re, ok := e.InQueue().Pop()
	require.True(t, ok)
	assert.Equal(t, rt.EventTypeNoteOn, re.Type())
	assert.Equal(t, 60, re.Note())
	// round((2000 - 1333) * 48000 / 1e6) = 32
	assert.Equal(t, 32, re.SampleOffset())
}

func TestNoteOnOneMillisecondAhead(t *testing.T) {
	e, d, _ := newRig(t)

	require.NoError(t, d.PostEvent(event.NewKeyboardEvent(
		rt.EventTypeNoteOn, rt.ObjectID(7), 60, 0.8, rt.Time(1000))))

	e.UpdateTime(0, 0)
	runBlock(e)
	d.Tick()

	re, ok := e.InQueue().Pop()
	require.True(t, ok)
	assert.Equal(t, 48, re.SampleOffset())
	_, ok = e.InQueue().Pop()
	assert.False(t, ok, "exactly one realtime event expected")
}

func TestSameBlockEventsKeepTimestampOrder(t *testing.T) {
	e, d, _ := newRig(t)
	pid := rt.ObjectID(7)

	require.NoError(t, d.PostEvent(event.NewParameterChangeEvent(pid, 1, 0.1, rt.Time(100))))
	require.NoError(t, d.PostEvent(event.NewParameterChangeEvent(pid, 1, 0.2, rt.Time(600))))
	require.NoError(t, d.PostEvent(event.NewParameterChangeEvent(pid, 1, 0.3, rt.Time(1200))))

	e.UpdateTime(0, 0)
	runBlock(e)
	d.Tick()

	last := -1
	for i := 0; i < 3; i++ {
		re, ok := e.InQueue().Pop()
		require.True(t, ok)
		assert.GreaterOrEqual(t, re.SampleOffset(), last, "offsets must be non-decreasing")
		last = re.SampleOffset()
	}
}

func TestKeyboardFanOutInSubscriptionOrder(t *testing.T) {
	e, d, _ := newRig(t)

	var order []string
	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, d.SubscribeToKeyboardEvents(&listener{name: name, order: &order}))
	}

	e.OutQueue().Push(rt.MakeNoteOnEvent(rt.ObjectID(7), 10, 60, 1.0))
	d.Tick()

	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestUnsubscribedListenerNotInvoked(t *testing.T) {
	e, d, _ := newRig(t)

	var order []string
	a := &listener{name: "a", order: &order}
	b := &listener{name: "b", order: &order}
	require.NoError(t, d.SubscribeToKeyboardEvents(a))
	require.NoError(t, d.SubscribeToKeyboardEvents(b))
	require.NoError(t, d.UnsubscribeFromKeyboardEvents(a))

	e.OutQueue().Push(rt.MakeNoteOnEvent(rt.ObjectID(7), 0, 60, 1.0))
	d.Tick()

	assert.Equal(t, []string{"b"}, order)
}

func TestParameterNotificationReachesListeners(t *testing.T) {
	e, d, _ := newRig(t)

	var order []string
	require.NoError(t, d.SubscribeToParameterChangeNotifications(&listener{name: "p", order: &order}))

	e.OutQueue().Push(rt.MakeParameterChangeEvent(rt.ObjectID(7), 0, rt.ObjectID(3), 0.5))
	d.Tick()

	assert.Equal(t, []string{"p"}, order)
}

func TestUnknownReceiverCompletesOnce(t *testing.T) {
	_, d, _ := newRig(t)

	var calls []int
	ev := event.NewParameterChangeEvent(1, 1, 0.5, 0)
	ev.SetReceiver(event.MidiDispatcher) // nothing registered there
	ev.SetCompletionCallback(func(_ any, _ *event.Event, status int) {
		calls = append(calls, status)
	}, nil)

	require.NoError(t, d.PostEvent(ev))
	d.Tick()
	d.Tick()

	assert.Equal(t, []int{event.UnrecognizedReceiver}, calls)
}

func TestMutationRunsOnWorkerAndCompletes(t *testing.T) {
	e, d, w := newRig(t)

	var status int
	done := false
	ev := event.NewEngineMutationEvent(func() int {
		return mutationStatus(e.CreateChain("main", 2))
	}, 0)
	ev.SetCompletionCallback(func(_ any, _ *event.Event, s int) {
		status = s
		done = true
	}, nil)

	require.NoError(t, d.PostEvent(ev))
	d.Tick()
	assert.False(t, done, "completion settles on the worker thread")
	w.Tick()

	require.True(t, done)
	assert.Equal(t, event.HandledOK, status)
	_, ok := e.ChainByName("main")
	assert.True(t, ok)
}

func mutationStatus(err error) int {
	if err != nil {
		return event.Error
	}
	return event.HandledOK
}

func TestCommandEventRunsOnDispatcherTick(t *testing.T) {
	_, d, _ := newRig(t)

	ran := false
	require.NoError(t, d.PostEvent(event.NewCommandEvent(func() { ran = true }, 0)))
	d.Tick()
	assert.True(t, ran)
}

func TestStopCancelsQueuedEvents(t *testing.T) {
	_, d, _ := newRig(t)

	var mu sync.Mutex
	statuses := make(map[int]int)
	for i := 0; i < 100; i++ {
		ev := event.NewEngineMutationEvent(func() int { return event.HandledOK }, 0)
		i := i
		ev.SetCompletionCallback(func(_ any, _ *event.Event, s int) {
			mu.Lock()
			statuses[i] = s
			mu.Unlock()
		}, nil)
		require.NoError(t, d.PostEvent(ev))
	}

	d.Stop()

	assert.Len(t, statuses, 100, "every event completes exactly once")
	for _, s := range statuses {
		assert.Equal(t, event.Cancelled, s)
	}
	assert.ErrorIs(t, d.PostEvent(event.NewCommandEvent(func() {}, 0)), ErrStopped)
}

func TestStopWithRunningThreadsCompletesEverything(t *testing.T) {
	e, d, w := newRig(t)
	d.Run()
	w.Run()

	var mu sync.Mutex
	count := 0
	for i := 0; i < 100; i++ {
		ev := event.NewEngineMutationEvent(func() int {
			return mutationStatus(e.CreateChain(fmt.Sprintf("chain-%d", rt.NewID()), 2))
		}, 0)
		ev.SetCompletionCallback(func(_ any, _ *event.Event, s int) {
			mu.Lock()
			count++
			mu.Unlock()
		}, nil)
		_ = d.PostEvent(ev)
	}

	start := time.Now()
	d.Stop()
	w.Stop()
	assert.Less(t, time.Since(start), time.Second, "stop must join promptly")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 100, count, "every completion fires exactly once")
}

// asyncProc requests work from its audio path and records the completion
// it gets back.
type asyncProc struct {
	*processor.Base
	performed   []int
	completions []rt.Event
}

func newAsyncProc(host processor.HostControl) *asyncProc {
	return &asyncProc{Base: processor.NewBase(host, "Async", 2, 2)}
}

func (p *asyncProc) ProcessAudio(in, out *audio.Buffer) { out.CopyFrom(in) }

func (p *asyncProc) ProcessEvent(e rt.Event) {
	if e.Type() == rt.EventTypeAsyncWorkCompletion {
		p.completions = append(p.completions, e)
		return
	}
	p.Base.ProcessEvent(e)
}

func (p *asyncProc) PerformAsyncWork(workID int) int {
	p.performed = append(p.performed, workID)
	return event.HandledOK
}

func TestAsyncWorkRoundTrip(t *testing.T) {
	e, d, w := newRig(t)

	var proc *asyncProc
	e.SetFactory(func(kind string, host processor.HostControl) (processor.Processor, error) {
		proc = newAsyncProc(host)
		return proc, nil
	})
	require.NoError(t, e.CreateChain("main", 2))
	require.NoError(t, e.AddPlugin("main", "async", "a1"))
	e.UpdateTime(0, 0)
	runBlock(e)
	d.Tick()

	// The processor asks for work from the audio path.
	e.OutQueue().Push(rt.MakeAsyncWorkEvent(proc.ID(), 0, 42))
	d.Tick()
	w.Tick()
	assert.Equal(t, []int{42}, proc.performed)

	// The completion travels back through the dispatcher to the processor.
	d.Tick()
	runBlock(e)
	require.Len(t, proc.completions, 1)
	assert.Equal(t, 42, proc.completions[0].Note())
	assert.Equal(t, event.HandledOK, int(proc.completions[0].Value()))
}

func TestHandoffDisposedOnWorker(t *testing.T) {
	e, d, w := newRig(t)
	e.SetFactory(func(kind string, host processor.HostControl) (processor.Processor, error) {
		return newAsyncProc(host), nil
	})
	require.NoError(t, e.CreateChain("main", 2))
	require.NoError(t, e.AddPlugin("main", "async", "a1"))
	runBlock(e)
	d.Tick()

	require.NoError(t, e.RemovePlugin("main", "a1"))
	runBlock(e)
	d.Tick()
	w.Tick()
	assert.Equal(t, 0, w.queue.len(), "handoff must be consumed by the worker")
}

func TestWorkerEmitsTimingTelemetry(t *testing.T) {
	log := discard()
	r := &countingReporter{}
	w := NewWorker(log, r, time.Millisecond, 0)
	w.Tick()
	w.Tick()
	assert.Equal(t, 2, r.calls)
}

type countingReporter struct{ calls int }

func (r *countingReporter) EmitTimings() { r.calls++ }
