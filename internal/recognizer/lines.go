package recognizer

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

type lineMsg struct {
	text string
	err  error
}

// LineRecognizer treats every non-empty line of a reader as one recognized
// fragment. It lets any external speech-to-text tool pipe its output in.
// Lines are only consumed while the recognizer is started.
type LineRecognizer struct {
	r   io.Reader
	log zerolog.Logger

	readOnce sync.Once
	lines    chan lineMsg

	mu   sync.Mutex
	stop chan struct{}
	// pending holds a line taken from the reader by a run that was stopped
	// before it could deliver it.
	pending *lineMsg
	// done is closed when the latest run's forwarder has exited.
	done chan struct{}
}

// NewLineRecognizer returns a recognizer reading from r. A nil reader yields
// a recognizer whose Start reports ErrUnavailable.
func NewLineRecognizer(r io.Reader, log zerolog.Logger) *LineRecognizer {
	return &LineRecognizer{r: r, log: log, lines: make(chan lineMsg)}
}

// Start begins forwarding lines as events.
func (l *LineRecognizer) Start(ctx context.Context) (<-chan Event, error) {
	if l.r == nil {
		return nil, ErrUnavailable
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stop != nil {
		return nil, ErrAlreadyStarted
	}
	l.readOnce.Do(func() { go l.readLines() })

	stop := make(chan struct{})
	l.stop = stop
	prev, done := l.done, make(chan struct{})
	l.done = done
	out := make(chan Event, 16)
	go l.forward(ctx, prev, done, stop, out)
	return out, nil
}

// Stop ends the current run. It is a no-op when not started.
func (l *LineRecognizer) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stop != nil {
		close(l.stop)
		l.stop = nil
	}
	return nil
}

func (l *LineRecognizer) readLines() {
	defer close(l.lines)
	scanner := bufio.NewScanner(l.r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		l.lines <- lineMsg{text: line}
	}
	if err := scanner.Err(); err != nil {
		l.lines <- lineMsg{err: err}
	}
}

func (l *LineRecognizer) forward(ctx context.Context, prev <-chan struct{}, done, stop chan struct{}, out chan Event) {
	defer func() {
		l.mu.Lock()
		if l.stop == stop {
			l.stop = nil
		}
		l.mu.Unlock()
		finish(out)
		close(done)
	}()
	// The previous run may still be parking its last line.
	if prev != nil {
		<-prev
	}
	l.mu.Lock()
	held := l.pending
	l.pending = nil
	l.mu.Unlock()
	if held != nil && !l.deliver(ctx, stop, out, *held) {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case msg, ok := <-l.lines:
			if !ok {
				l.log.Debug().Msg("transcript input exhausted")
				return
			}
			if !l.deliver(ctx, stop, out, msg) {
				return
			}
		}
	}
}

// deliver emits msg, keeping it for the next run when this one ends first.
func (l *LineRecognizer) deliver(ctx context.Context, stop chan struct{}, out chan Event, msg lineMsg) bool {
	ev := Event{Kind: EventResult, Text: msg.text}
	if msg.err != nil {
		ev = Event{Kind: EventError, Err: msg.err}
	}
	if emit(ctx, stop, out, ev) {
		return true
	}
	l.mu.Lock()
	l.pending = &msg
	l.mu.Unlock()
	return false
}
