// Package rt holds the types that cross the audio/non-audio boundary:
// object identifiers, microsecond timestamps, fixed-size realtime events,
// the wait-free queue that carries them and the timer that maps wall-clock
// time to sample offsets.
package rt

import (
	"sync/atomic"
	"time"
)

// ObjectID identifies processors, parameters and chains. Ids are issued
// from a process-wide counter and never reused within a process lifetime.
type ObjectID uint32

// InvalidID is never issued by NewID.
const InvalidID ObjectID = 0

var idCounter atomic.Uint32

// NewID returns the next unique ObjectID.
func NewID() ObjectID {
	return ObjectID(idCounter.Add(1))
}

// Time is a microsecond count against a monotonic epoch established at
// engine start.
type Time int64

// TimeFromDuration converts a duration since the epoch to a Time.
func TimeFromDuration(d time.Duration) Time {
	return Time(d.Microseconds())
}

// Duration converts t to a time.Duration since the epoch.
func (t Time) Duration() time.Duration {
	return time.Duration(t) * time.Microsecond
}
