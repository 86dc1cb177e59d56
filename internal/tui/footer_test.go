package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/verte-zerg/hearme/internal/model"
	"github.com/verte-zerg/hearme/internal/recognizer"
	"github.com/verte-zerg/hearme/internal/session"
	"github.com/verte-zerg/hearme/internal/source"
)

type stubRecognizer struct {
	ch      chan recognizer.Event
	err     error
	stopped int
}

func (s *stubRecognizer) Start(context.Context) (<-chan recognizer.Event, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.ch = make(chan recognizer.Event, 4)
	return s.ch, nil
}

func (s *stubRecognizer) Stop() error {
	s.stopped++
	return nil
}

func newTestModel(t *testing.T, rec recognizer.Recognizer) *Model {
	t.Helper()
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return start }
	ctrl := session.New(session.WithClock(clock))
	m := NewModel(context.Background(), Options{
		Controller: ctrl,
		Recognizer: rec,
		Loader:     source.NewLoader(source.DefaultLimits(), nil, zerolog.Nop()),
		Logger:     zerolog.Nop(),
		ReportPath: t.TempDir() + "/report.json",
	})
	m.now = func() time.Time { return start.Add(30 * time.Second) }
	return m
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestRenderFooterFormats(t *testing.T) {
	m := newTestModel(t, &stubRecognizer{})
	m.ctrl.Open(model.Document{Path: "a.txt", Format: model.FormatText, Expected: "one two three four"})
	if err := m.ctrl.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	m.ctrl.HandleTranscript("one too")

	out := m.renderFooter()
	if !containsAll(out, []string{"LISTENING", "Progress 50%", "Flagged 0", "Accuracy 100.0%", "4.0 WPM"}) {
		t.Fatalf("footer missing expected segments: %s", out)
	}
}

func TestStartRequiresDocument(t *testing.T) {
	rec := &stubRecognizer{}
	m := newTestModel(t, rec)
	m.Update(key("s"))
	if m.errMsg == "" || rec.ch != nil {
		t.Fatalf("expected error without document, got %q", m.errMsg)
	}
}

func TestStartReportsUnavailable(t *testing.T) {
	m := newTestModel(t, &stubRecognizer{err: recognizer.ErrUnavailable})
	m.ctrl.Open(model.Document{Path: "a.txt", Expected: "hello"})
	m.Update(key("s"))
	if !strings.Contains(m.alert, "not available") {
		t.Fatalf("expected alert, got %q", m.alert)
	}
	if m.ctrl.State() != session.StateLoaded {
		t.Fatalf("expected loaded state, got %v", m.ctrl.State())
	}
	m.Update(key("z"))
	if m.alert != "" {
		t.Fatalf("expected alert to be dismissed")
	}
}

func TestEventsFlowIntoSession(t *testing.T) {
	rec := &stubRecognizer{}
	m := newTestModel(t, rec)
	m.ctrl.Open(model.Document{Path: "a.txt", Expected: "red green blue"})
	m.Update(key("s"))
	if m.ctrl.State() != session.StateListening {
		t.Fatalf("expected listening, got %v", m.ctrl.State())
	}

	rec.ch <- recognizer.Event{Kind: recognizer.EventResult, Text: "red grain"}
	msg := waitForEvent(m.events)()
	_, cmd := m.Update(msg)
	if cmd == nil {
		t.Fatalf("expected follow-up wait command")
	}
	snap := m.ctrl.Snapshot()
	if snap.Transcript != "red grain" {
		t.Fatalf("unexpected transcript %q", snap.Transcript)
	}

	close(rec.ch)
	m.Update(waitForEvent(m.events)())
	if m.ctrl.State() != session.StateStopped {
		t.Fatalf("expected stopped after channel close, got %v", m.ctrl.State())
	}
	if m.ctrl.Snapshot().Session.End != nil {
		t.Fatalf("engine end must not set end timestamp")
	}
}

func TestStaleEventsIgnored(t *testing.T) {
	m := newTestModel(t, &stubRecognizer{})
	m.ctrl.Open(model.Document{Path: "a.txt", Expected: "alpha"})
	stale := make(chan recognizer.Event)
	m.Update(eventMsg{ch: stale, ev: recognizer.Event{Kind: recognizer.EventResult, Text: "beta"}, ok: true})
	if m.ctrl.Snapshot().Transcript != "" {
		t.Fatalf("stale event changed transcript")
	}
}

func TestStopKey(t *testing.T) {
	rec := &stubRecognizer{}
	m := newTestModel(t, rec)
	m.ctrl.Open(model.Document{Path: "a.txt", Expected: "alpha"})
	m.Update(key("s"))
	m.Update(key("x"))
	if rec.stopped != 1 {
		t.Fatalf("expected recognizer stop, got %d", rec.stopped)
	}
	if m.ctrl.State() != session.StateStopped || m.ctrl.Snapshot().Session.End == nil {
		t.Fatalf("expected stopped with end timestamp")
	}
}

func TestPromptEscCancels(t *testing.T) {
	m := newTestModel(t, &stubRecognizer{})
	m.Update(key("o"))
	if !m.prompting {
		t.Fatalf("expected prompt mode")
	}
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.prompting || cmd != nil {
		t.Fatalf("expected prompt to close without loading")
	}
}

func TestExportWritesReport(t *testing.T) {
	m := newTestModel(t, &stubRecognizer{})
	m.ctrl.Open(model.Document{Path: "a.txt", Expected: "alpha"})
	_, cmd := m.Update(key("e"))
	if cmd == nil {
		t.Fatalf("expected export command")
	}
	msg, ok := cmd().(exportedMsg)
	if !ok || msg.err != nil {
		t.Fatalf("unexpected export result %+v", msg)
	}
	m.Update(msg)
	if !strings.Contains(m.status, "report.json") {
		t.Fatalf("unexpected status %q", m.status)
	}
}

func containsAll(haystack string, needles []string) bool {
	for _, needle := range needles {
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	return true
}
