package player

import "context"

// EventKind identifies an [Event] emitted by an [Audio] handle.
type EventKind int

const (
	EventProgress EventKind = iota
	EventDuration
	EventEnded
	EventError
)

// Event reports progress from an audio handle. Position and Duration are in seconds.
type Event struct {
	Kind     EventKind
	Position float64
	Duration float64
	Err      error
}

// EventFunc receives audio events. It is called from the handle's own goroutines.
type EventFunc func(Event)

// Audio is one playback handle for one track.
//
// Implementations must not call the [EventFunc] synchronously from Pause, Seek, SetVolume or Close.
type Audio interface {
	Play() error
	Pause()
	Seek(sec float64) error
	SetVolume(v float64)
	Close()
}

// AudioFactory creates a handle for the audio at url. ctx is canceled when the selection is superseded.
type AudioFactory func(ctx context.Context, url string, emit EventFunc) (Audio, error)
