package rt

import (
	"sync"
	"testing"
)

func TestFifoPushPopRoundTrip(t *testing.T) {
	f := NewFifo(16)

	if !f.Empty() {
		t.Error("expected new fifo to be empty")
	}

	sent := MakeParameterChangeEvent(ObjectID(7), 42, ObjectID(9), 0.5)
	if !f.Push(sent) {
		t.Fatal("push on empty fifo failed")
	}

	got, ok := f.Pop()
	if !ok {
		t.Fatal("pop after push failed")
	}
	if got != sent {
		t.Errorf("popped event differs: got %+v, want %+v", got, sent)
	}
	if _, ok := f.Pop(); ok {
		t.Error("pop on drained fifo should fail")
	}
}

func TestFifoCapacityAndOverflow(t *testing.T) {
	f := NewFifo(8)

	for i := 0; i < f.Capacity(); i++ {
		if !f.Push(MakeNoteOnEvent(ObjectID(1), i, 60, 1.0)) {
			t.Fatalf("push %d failed below capacity", i)
		}
	}
	if f.Push(MakeNoteOnEvent(ObjectID(1), 0, 60, 1.0)) {
		t.Error("push on full fifo should fail")
	}
	if f.Dropped() != 1 {
		t.Errorf("expected 1 dropped event, got %d", f.Dropped())
	}

	// Earlier events still deliver in order.
	for i := 0; i < f.Capacity(); i++ {
		e, ok := f.Pop()
		if !ok {
			t.Fatalf("pop %d failed", i)
		}
		if e.SampleOffset() != i {
			t.Errorf("pop %d: expected offset %d, got %d", i, i, e.SampleOffset())
		}
	}
}

func TestFifoCapacityRoundsUpToPowerOfTwo(t *testing.T) {
	for _, tt := range []struct{ asked, want int }{
		{1, 1}, {2, 2}, {3, 4}, {1000, 1024}, {1024, 1024},
	} {
		if got := NewFifo(tt.asked).Capacity(); got != tt.want {
			t.Errorf("capacity(%d): expected %d, got %d", tt.asked, tt.want, got)
		}
	}
}

func TestFifoConcurrentProducerConsumer(t *testing.T) {
	const count = 100_000
	f := NewFifo(64)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < count; {
			if f.Push(MakeParameterChangeEvent(ObjectID(1), i%64, ObjectID(2), float32(i))) {
				i++
			}
		}
	}()

	next := 0
	for next < count {
		e, ok := f.Pop()
		if !ok {
			continue
		}
		if int(e.Value()) != next {
			t.Fatalf("out of order: expected %d, got %v", next, e.Value())
		}
		next++
	}
	wg.Wait()
}

func TestFifoStringOwnershipTransfer(t *testing.T) {
	f := NewFifo(4)
	payload := "preset/lead-2"
	f.Push(MakeStringParameterChangeEvent(ObjectID(3), 0, ObjectID(4), &payload))

	e, ok := f.Pop()
	if !ok {
		t.Fatal("pop failed")
	}
	if e.StringValue() == nil || *e.StringValue() != payload {
		t.Errorf("string payload lost in transit")
	}
}
