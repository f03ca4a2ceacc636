// Package event defines the non-realtime event model of the control plane:
// the Event variant record, the Poster contract that endpoints implement,
// and the status codes shared by posters and completion callbacks.
package event

// Status codes returned by Poster.Process and delivered to completion
// callbacks. HandledOK must be zero.
const (
	HandledOK = iota
	QueuedHandling
	UnrecognizedReceiver
	UnrecognizedEvent
	Error
	Cancelled
	TimedOut
)

// StatusString names a status code for logs.
func StatusString(status int) string {
	switch status {
	case HandledOK:
		return "ok"
	case QueuedHandling:
		return "queued"
	case UnrecognizedReceiver:
		return "unrecognized receiver"
	case UnrecognizedEvent:
		return "unrecognized event"
	case Error:
		return "error"
	case Cancelled:
		return "cancelled"
	case TimedOut:
		return "timed out"
	}
	return "unknown"
}

// PosterID indexes the dispatcher's poster table.
type PosterID int

const (
	AudioEngine PosterID = iota
	MidiDispatcher
	OscFrontend
	Worker
	Controller
	MaxPosters
)

// Poster is a named endpoint that can receive Events from the dispatcher.
type Poster interface {
	// Process handles the event and returns a status code. The return
	// value reaches the event's completion callback, if any.
	Process(e *Event) int

	// PosterID returns the poster's slot in the dispatcher table.
	PosterID() PosterID
}
