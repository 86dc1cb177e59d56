package recognizer

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

//go:embed page.html
var pageHTML []byte

const writeTimeout = 5 * time.Second

// clientMessage is sent by the browser page.
type clientMessage struct {
	Type      string `json:"type"`
	Text      string `json:"text,omitempty"`
	Error     string `json:"error,omitempty"`
	Supported bool   `json:"supported,omitempty"`
}

// controlMessage is sent to the browser page.
type controlMessage struct {
	Type string `json:"type"`
	Lang string `json:"lang,omitempty"`
}

type client struct {
	id   string
	conn *websocket.Conn
	// ready orders pages by their hello; 0 means no speech support.
	ready atomic.Uint64
}

// SocketRecognizer receives transcript fragments from browser pages that run
// the Web Speech API and report over a websocket. GET / serves such a page.
// Each run is bound to a single page; messages from other pages are dropped.
type SocketRecognizer struct {
	addr string
	lang string
	log  zerolog.Logger

	in    chan Event
	hello atomic.Uint64

	mu      sync.Mutex
	clients map[string]*client
	stop    chan struct{}
	active  *client
}

// NewSocketRecognizer returns a recognizer for browsers connecting to addr.
func NewSocketRecognizer(addr, lang string, log zerolog.Logger) *SocketRecognizer {
	return &SocketRecognizer{
		addr:    addr,
		lang:    lang,
		log:     log,
		in:      make(chan Event, 64),
		clients: make(map[string]*client),
	}
}

// Handler returns the HTTP routes for the page and the websocket.
func (s *SocketRecognizer) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(pageHTML)
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/recognize", s.handleSocket)
	return r
}

// Serve listens on the configured address until ctx is canceled.
func (s *SocketRecognizer) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.addr).Msg("waiting for recognizer pages")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve recognizer socket: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.log.Warn().Err(err).Msg("recognizer socket shutdown")
	}
	return nil
}

// Start begins listening. It fails with ErrUnavailable when no connected page
// supports speech recognition.
func (s *SocketRecognizer) Start(ctx context.Context) (<-chan Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return nil, ErrAlreadyStarted
	}
	c := s.pickLocked()
	if c == nil {
		return nil, fmt.Errorf("%w: open http://%s/ in a browser with Web Speech support", ErrUnavailable, s.addr)
	}
	s.drain()

	stop := make(chan struct{})
	s.stop = stop
	s.active = c
	out := make(chan Event, 16)
	go s.forward(ctx, stop, out)
	go s.send(c, controlMessage{Type: "start", Lang: s.lang})
	s.log.Info().Str("client", c.id).Msg("recognizer run bound to page")
	return out, nil
}

// Stop ends the current run and tells its page to stop listening.
func (s *SocketRecognizer) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop == nil {
		return nil
	}
	close(s.stop)
	s.stop = nil
	if s.active != nil {
		go s.send(s.active, controlMessage{Type: "stop"})
		s.active = nil
	}
	return nil
}

// pickLocked returns the supporting page that said hello most recently, so a
// reloaded tab wins over its stale socket.
func (s *SocketRecognizer) pickLocked() *client {
	var best *client
	for _, c := range s.clients {
		if r := c.ready.Load(); r > 0 && (best == nil || r > best.ready.Load()) {
			best = c
		}
	}
	return best
}

func (s *SocketRecognizer) drain() {
	for {
		select {
		case <-s.in:
		default:
			return
		}
	}
}

func (s *SocketRecognizer) forward(ctx context.Context, stop chan struct{}, out chan Event) {
	defer func() {
		s.mu.Lock()
		if s.stop == stop {
			s.stop = nil
			s.active = nil
		}
		s.mu.Unlock()
		finish(out)
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case ev := <-s.in:
			if ev.Kind == EventEnd {
				return
			}
			if !emit(ctx, stop, out, ev) {
				return
			}
		}
	}
}

// deliver queues ev when c is the page bound to the current run.
func (s *SocketRecognizer) deliver(c *client, ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != c {
		s.log.Debug().Str("client", c.id).Stringer("kind", ev.Kind).Msg("dropping event from unbound page")
		return
	}
	select {
	case s.in <- ev:
	default:
		s.log.Warn().Stringer("kind", ev.Kind).Msg("recognizer queue full, dropping event")
	}
}

func (s *SocketRecognizer) send(c *client, msg controlMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := wsjson.Write(ctx, c.conn, msg); err != nil {
		s.log.Debug().Err(err).Str("client", c.id).Msg("failed to notify page")
	}
}

func (s *SocketRecognizer) handleSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket accept failed")
		return
	}
	defer conn.CloseNow()

	c := &client{id: uuid.NewString(), conn: conn}
	log := s.log.With().Str("client", c.id).Logger()
	s.mu.Lock()
	s.clients[c.id] = c
	s.mu.Unlock()
	defer func() {
		// A vanished page cannot end its run, so end it here.
		s.deliver(c, Event{Kind: EventEnd})
		s.mu.Lock()
		delete(s.clients, c.id)
		s.mu.Unlock()
	}()
	log.Info().Str("remote", r.RemoteAddr).Msg("recognizer page connected")

	ctx := r.Context()
	for {
		var msg clientMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				log.Info().Msg("recognizer page disconnected")
			default:
				if ctx.Err() == nil {
					log.Warn().Err(err).Msg("recognizer page read failed")
				}
			}
			return
		}
		switch msg.Type {
		case "hello":
			if msg.Supported {
				c.ready.Store(s.hello.Add(1))
			} else {
				c.ready.Store(0)
			}
			log.Info().Bool("supported", msg.Supported).Msg("recognizer page ready")
		case "result":
			s.deliver(c, Event{Kind: EventResult, Text: msg.Text})
		case "error":
			if msg.Error == "" {
				msg.Error = "unknown recognition error"
			}
			s.deliver(c, Event{Kind: EventError, Err: errors.New(msg.Error)})
		case "end":
			s.deliver(c, Event{Kind: EventEnd})
		default:
			log.Warn().Str("type", msg.Type).Msg("unknown recognizer message")
		}
	}
}
