package rt

import "math"

// EventTimer maps between wall-clock timestamps and sample offsets within
// the current audio block. The incoming anchor tracks the block the audio
// thread will consume next, the outgoing anchor tracks the block whose
// emitted events are being translated back to wall-clock time. Both anchors
// are advanced once per block through SYNC events.
type EventTimer struct {
	sampleRate        float64
	blockSize         int
	blockDuration     Time
	incomingBlockTime Time
	outgoingBlockTime Time
}

// NewEventTimer creates a timer for the given rate and block size.
func NewEventTimer(sampleRate float64, blockSize int) *EventTimer {
	t := &EventTimer{blockSize: blockSize}
	t.SetSampleRate(sampleRate)
	return t
}

// SetSampleRate updates the rate and the derived block duration.
func (t *EventTimer) SetSampleRate(sampleRate float64) {
	t.sampleRate = sampleRate
	t.blockDuration = Time(math.Round(float64(t.blockSize) / sampleRate * 1e6))
}

// SampleOffsetFromRealtime translates a timestamp into an offset within the
// current incoming block. It returns false when the timestamp lies beyond
// the current block, in which case the caller retries on a later block.
// Timestamps in the past clip to offset 0.
func (t *EventTimer) SampleOffsetFromRealtime(timestamp Time) (sendNow bool, offset int) {
	if timestamp > t.incomingBlockTime+t.blockDuration {
		return false, 0
	}
	offset = int(math.Round(float64(timestamp-t.incomingBlockTime) * t.sampleRate / 1e6))
	if offset < 0 {
		offset = 0
	}
	if offset >= t.blockSize {
		offset = t.blockSize - 1
	}
	return true, offset
}

// RealTimeFromSampleOffset translates an offset within the outgoing block
// into a wall-clock timestamp.
func (t *EventTimer) RealTimeFromSampleOffset(offset int) Time {
	return t.outgoingBlockTime + Time(math.Round(float64(offset)/t.sampleRate*1e6))
}

// SetIncomingTime advances the incoming block anchor.
func (t *EventTimer) SetIncomingTime(timestamp Time) {
	t.incomingBlockTime = timestamp
}

// SetOutgoingTime advances the outgoing block anchor.
func (t *EventTimer) SetOutgoingTime(timestamp Time) {
	t.outgoingBlockTime = timestamp
}
