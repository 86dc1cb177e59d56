// Package recognizer connects speech-recognition engines to a reading session.
//
// A Recognizer delivers transcript fragments as Events on a channel. Each call
// to Start returns a fresh channel; after Stop (or when the engine ends on its
// own) the channel delivers a final EventEnd and is closed. Exactly one
// goroutine is expected to consume the channel.
package recognizer

import (
	"context"
	"errors"
)

// EventKind identifies what a recognizer reported.
type EventKind int

// Recognizer event kinds.
const (
	EventResult EventKind = iota
	EventEnd
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventResult:
		return "result"
	case EventEnd:
		return "end"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one notification from a speech-recognition engine.
type Event struct {
	Kind EventKind
	Text string
	Err  error
}

var (
	// ErrUnavailable means no speech-recognition engine can be used on this host.
	ErrUnavailable = errors.New("speech recognition not available")
	// ErrAlreadyStarted is returned by Start while a previous run is active.
	ErrAlreadyStarted = errors.New("recognizer already started")
)

// Recognizer is a source of transcript fragments.
type Recognizer interface {
	Start(ctx context.Context) (<-chan Event, error)
	Stop() error
}

// emit sends ev unless the run is stopped or ctx is done first.
func emit(ctx context.Context, stop <-chan struct{}, out chan<- Event, ev Event) bool {
	select {
	case out <- ev:
		return true
	case <-stop:
		return false
	case <-ctx.Done():
		return false
	}
}

// finish delivers the closing EventEnd without blocking on an absent reader.
func finish(out chan Event) {
	select {
	case out <- Event{Kind: EventEnd}:
	default:
	}
	close(out)
}
