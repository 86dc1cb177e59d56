// Package session owns the state of one read-aloud session.
//
// A Controller is not safe for concurrent use. It has a single owner that
// feeds it recognizer events one at a time, either through Run or from a UI
// update loop.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/verte-zerg/hearme/internal/compare"
	"github.com/verte-zerg/hearme/internal/model"
	"github.com/verte-zerg/hearme/internal/recognizer"
)

// State is the lifecycle state of a session.
type State int

// Session states.
const (
	StateIdle State = iota
	StateLoaded
	StateListening
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoaded:
		return "loaded"
	case StateListening:
		return "listening"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

var (
	// ErrNoDocument is returned when listening starts before a document is open.
	ErrNoDocument = errors.New("no document loaded")
	// ErrAlreadyListening is returned by Start while listening.
	ErrAlreadyListening = errors.New("already listening")
)

// Snapshot is an immutable copy of a controller's state.
type Snapshot struct {
	State      State
	Session    model.Session
	Document   model.Document
	Transcript string
	Result     compare.Result
}

// Option configures a Controller.
type Option func(*Controller)

// WithTolerance sets the fuzzy-match tolerance. Default: compare.DefaultTolerance.
func WithTolerance(tolerance float64) Option {
	return func(c *Controller) {
		c.tolerance = tolerance
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// WithRefresh registers a callback invoked after every comparison pass.
func WithRefresh(fn func(Snapshot)) Option {
	return func(c *Controller) {
		c.refresh = fn
	}
}

// WithLogger sets the controller's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Controller) {
		c.log = log
	}
}

// Controller drives the session state machine.
type Controller struct {
	tolerance float64
	now       func() time.Time
	refresh   func(Snapshot)
	log       zerolog.Logger

	state      State
	session    model.Session
	doc        model.Document
	transcript string
	result     compare.Result
}

// New returns an idle Controller.
func New(opts ...Option) *Controller {
	c := &Controller{
		tolerance: compare.DefaultTolerance,
		now:       time.Now,
		log:       zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	c.reset()
	return c
}

func (c *Controller) reset() {
	c.session = model.Session{Mispronounced: []model.MismatchRecord{}}
	c.transcript = ""
	c.result = compare.Result{Mismatches: []model.MismatchRecord{}}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	return c.state
}

// Open loads a document and resets the session, whatever the current state.
func (c *Controller) Open(doc model.Document) {
	c.reset()
	c.doc = doc
	c.session.FileName = doc.Path
	c.state = StateLoaded
	c.log.Info().Str("file", doc.Path).Str("format", string(doc.Format)).Msg("document opened")
	c.notify()
}

// Start marks the session as listening. The start timestamp is recorded only
// on the first start for the loaded document.
func (c *Controller) Start() error {
	switch c.state {
	case StateIdle:
		return ErrNoDocument
	case StateListening:
		return ErrAlreadyListening
	}
	if c.session.Start == nil {
		now := c.now()
		c.session.Start = &now
	}
	c.state = StateListening
	c.log.Info().Msg("listening started")
	return nil
}

// Stop records the end timestamp. Every stop overwrites it.
func (c *Controller) Stop() {
	if c.state == StateIdle {
		return
	}
	now := c.now()
	c.session.End = &now
	if c.state == StateListening {
		c.state = StateStopped
	}
	c.log.Info().Msg("listening stopped")
}

// HandleTranscript appends a recognized fragment and re-runs the comparison
// over the whole transcript.
func (c *Controller) HandleTranscript(text string) []model.MismatchRecord {
	if c.state == StateIdle {
		c.log.Debug().Msg("ignoring transcript without a document")
		return nil
	}
	if c.transcript != "" {
		c.transcript += " "
	}
	c.transcript += text
	c.analyze()
	return c.session.Mispronounced
}

func (c *Controller) analyze() {
	c.result = compare.Compare(c.transcript, c.doc.Expected, c.tolerance)
	c.session.Mispronounced = c.result.Mismatches
	c.log.Debug().
		Int("compared", c.result.Compared).
		Int("flagged", len(c.result.Mismatches)).
		Msg("transcript compared")
	c.notify()
}

// HandleEnd reacts to the engine ending on its own. The end timestamp is
// left alone.
func (c *Controller) HandleEnd() {
	if c.state == StateListening {
		c.state = StateStopped
		c.log.Info().Msg("recognizer ended")
		c.notify()
	}
}

// HandleError logs an engine error. It never changes state.
func (c *Controller) HandleError(err error) {
	c.log.Error().Err(err).Msg("recognition error")
}

// Handle dispatches one recognizer event.
func (c *Controller) Handle(ev recognizer.Event) {
	switch ev.Kind {
	case recognizer.EventResult:
		c.HandleTranscript(ev.Text)
	case recognizer.EventEnd:
		c.HandleEnd()
	case recognizer.EventError:
		c.HandleError(ev.Err)
	}
}

// Run consumes events until the channel closes or ctx is done. It is the
// only goroutine that may touch the controller while it runs.
func (c *Controller) Run(ctx context.Context, events <-chan recognizer.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				c.HandleEnd()
				return nil
			}
			c.Handle(ev)
		}
	}
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	s := Snapshot{
		State:      c.state,
		Session:    c.session,
		Document:   c.doc,
		Transcript: c.transcript,
		Result:     c.result,
	}
	s.Session.Mispronounced = append([]model.MismatchRecord{}, c.session.Mispronounced...)
	s.Result.Mismatches = s.Session.Mispronounced
	s.Result.Positions = append([]int(nil), c.result.Positions...)
	if c.session.Start != nil {
		t := *c.session.Start
		s.Session.Start = &t
	}
	if c.session.End != nil {
		t := *c.session.End
		s.Session.End = &t
	}
	return s
}

func (c *Controller) notify() {
	if c.refresh != nil {
		c.refresh(c.Snapshot())
	}
}
