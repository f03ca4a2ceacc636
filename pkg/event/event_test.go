package event

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perastrom/koto/pkg/rt"
)

func TestCompletionFiresExactlyOnce(t *testing.T) {
	e := NewParameterChangeEvent(1, 2, 0.5, 100)
	var statuses []int
	e.SetCompletionCallback(func(_ any, ev *Event, status int) {
		statuses = append(statuses, status)
		assert.Same(t, e, ev)
	}, nil)

	e.Complete(HandledOK)
	e.Complete(Error)
	e.Complete(Cancelled)

	assert.Equal(t, []int{HandledOK}, statuses)
}

func TestCompletionOnceUnderContention(t *testing.T) {
	e := NewEngineMutationEvent(func() int { return HandledOK }, 0)
	var mu sync.Mutex
	calls := 0
	e.SetCompletionCallback(func(any, *Event, int) {
		mu.Lock()
		calls++
		mu.Unlock()
	}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.Complete(Cancelled)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, calls)
}

func TestCompletionArgumentPassedThrough(t *testing.T) {
	type token struct{ n int }
	arg := &token{n: 7}
	e := NewCommandEvent(func() {}, 0)

	var got any
	e.SetCompletionCallback(func(a any, _ *Event, _ int) { got = a }, arg)
	e.Complete(HandledOK)

	assert.Same(t, arg, got)
}

func TestOnlyMutationsAndAsyncWorkRunOnWorker(t *testing.T) {
	assert.True(t, NewEngineMutationEvent(func() int { return 0 }, 0).ProcessAsynchronously())
	assert.True(t, NewAsyncWorkEvent(func() *Event { return nil }, 0).ProcessAsynchronously())
	assert.False(t, NewKeyboardEvent(rt.EventTypeNoteOn, 1, 60, 1, 0).ProcessAsynchronously())
	assert.False(t, NewParameterChangeNotification(1, 2, 0.5, 0).ProcessAsynchronously())
	assert.False(t, NewCommandEvent(func() {}, 0).ProcessAsynchronously())
}

func TestKeyboardEventMapsToRt(t *testing.T) {
	e := NewKeyboardEvent(rt.EventTypeNoteOn, 9, 60, 0.8, 1000)
	require.True(t, e.MapsToRtEvent())

	re := e.ToRtEvent(48)
	assert.Equal(t, rt.EventTypeNoteOn, re.Type())
	assert.Equal(t, rt.ObjectID(9), re.ProcessorID())
	assert.Equal(t, 60, re.Note())
	assert.Equal(t, 48, re.SampleOffset())
}

func TestStringParameterChangeMapsToRtWithOwnCopy(t *testing.T) {
	e := NewStringParameterChangeEvent(1, 2, "preset", 0)
	require.True(t, e.MapsToRtEvent())

	a := e.ToRtEvent(0)
	b := e.ToRtEvent(0)
	require.NotNil(t, a.StringValue())
	assert.Equal(t, "preset", *a.StringValue())
	assert.NotSame(t, a.StringValue(), b.StringValue(), "each realtime event owns its payload")
}

func TestAsyncWorkCompletionMapsToRt(t *testing.T) {
	e := NewAsyncWorkCompletion(9, 42, HandledOK, 0)
	require.True(t, e.MapsToRtEvent())

	re := e.ToRtEvent(0)
	assert.Equal(t, rt.EventTypeAsyncWorkCompletion, re.Type())
	assert.Equal(t, rt.ObjectID(9), re.ProcessorID())
	assert.Equal(t, 42, re.Note())
	assert.Equal(t, HandledOK, int(re.Value()))
}

func TestNotificationsDoNotMapToRt(t *testing.T) {
	assert.False(t, NewParameterChangeNotification(1, 2, 0.5, 0).MapsToRtEvent())
	assert.False(t, NewEngineMutationEvent(func() int { return 0 }, 0).MapsToRtEvent())
	assert.False(t, NewCommandEvent(func() {}, 0).MapsToRtEvent())
}

func TestFromRtEventLiftsKeyboardAndParameterChanges(t *testing.T) {
	ne := FromRtEvent(rt.MakeNoteOffEvent(9, 10, 64, 0.5), 2000)
	require.NotNil(t, ne)
	assert.True(t, ne.IsKeyboardEvent())
	assert.Equal(t, rt.EventTypeNoteOff, ne.KeyboardType())
	assert.Equal(t, rt.Time(2000), ne.Time())

	ne = FromRtEvent(rt.MakeParameterChangeEvent(9, 0, 3, 0.5), 2000)
	require.NotNil(t, ne)
	assert.True(t, ne.IsParameterChangeNotification())

	assert.Nil(t, FromRtEvent(rt.MakeSyncEvent(0, 0), 0))
}
