// Package tui provides the Bubble Tea reading interface.
package tui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/rs/zerolog"

	"github.com/verte-zerg/hearme/internal/compare"
	"github.com/verte-zerg/hearme/internal/model"
	"github.com/verte-zerg/hearme/internal/recognizer"
	"github.com/verte-zerg/hearme/internal/report"
	"github.com/verte-zerg/hearme/internal/session"
	"github.com/verte-zerg/hearme/internal/source"
	"github.com/verte-zerg/hearme/internal/stats"
)

const flagsHeight = 6

var (
	correctStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	incorrectStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F")).Underline(true)
	pendingStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	currentWordStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	footerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	hintStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
	modalStyle       = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#C89A3A")).
				Padding(1, 2)
)

type docLoadedMsg struct {
	doc model.Document
	err error
}

type eventMsg struct {
	ch <-chan recognizer.Event
	ev recognizer.Event
	ok bool
}

type exportedMsg struct {
	path string
	err  error
}

type tickMsg time.Time

// Model implements the Bubble Tea reading UI.
type Model struct {
	ctx        context.Context
	ctrl       *session.Controller
	rec        recognizer.Recognizer
	loader     *source.Loader
	log        zerolog.Logger
	reportPath string
	initial    string
	now        func() time.Time

	events <-chan recognizer.Event

	width  int
	height int

	flags     viewport.Model
	pathInput textinput.Model
	prompting bool

	status string
	errMsg string
	alert  string
}

// Options bundles the collaborators of a Model.
type Options struct {
	Controller *session.Controller
	Recognizer recognizer.Recognizer
	Loader     *source.Loader
	Logger     zerolog.Logger
	ReportPath string
	// InitialPath is loaded on startup when set.
	InitialPath string
}

// NewModel constructs a reading TUI model.
func NewModel(ctx context.Context, opts Options) *Model {
	input := textinput.New()
	input.Prompt = "Open: "
	input.Placeholder = "path to a .txt or .pdf file"
	input.CharLimit = 0
	input.Cursor.SetMode(cursor.CursorBlink)

	reportPath := opts.ReportPath
	if reportPath == "" {
		reportPath = report.DefaultFileName
	}
	return &Model{
		ctx:        ctx,
		ctrl:       opts.Controller,
		rec:        opts.Recognizer,
		loader:     opts.Loader,
		log:        opts.Logger,
		reportPath: reportPath,
		initial:    opts.InitialPath,
		now:        time.Now,
		flags:      viewport.New(0, flagsHeight),
		pathInput:  input,
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	if m.initial != "" {
		return m.loadCmd(m.initial)
	}
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.stopListening()
			return m, tea.Quit
		}
		if m.alert != "" {
			m.alert = ""
			return m, nil
		}
		if m.prompting {
			return m.updatePrompt(msg)
		}
		return m.handleKey(msg)
	case docLoadedMsg:
		return m.handleLoaded(msg)
	case eventMsg:
		return m.handleEvent(msg)
	case exportedMsg:
		if msg.err != nil {
			m.log.Error().Err(msg.err).Msg("export failed")
			m.errMsg = msg.err.Error()
			return m, nil
		}
		m.errMsg = ""
		m.status = "Report saved to " + msg.path
		return m, nil
	case tickMsg:
		if m.ctrl.State() == session.StateListening {
			return m, tickCmd()
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		m.stopListening()
		return m, tea.Quit
	case "o":
		m.prompting = true
		m.pathInput.SetValue("")
		return m, m.pathInput.Focus()
	case "s":
		return m, m.startListening()
	case "x":
		m.stopListening()
		return m, nil
	case "e":
		return m, m.exportCmd()
	}
	var cmd tea.Cmd
	m.flags, cmd = m.flags.Update(msg)
	return m, cmd
}

func (m *Model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.prompting = false
		m.pathInput.Blur()
		return m, nil
	case tea.KeyEnter:
		m.prompting = false
		m.pathInput.Blur()
		path := strings.TrimSpace(m.pathInput.Value())
		if path == "" {
			return m, nil
		}
		return m, m.loadCmd(path)
	}
	var cmd tea.Cmd
	m.pathInput, cmd = m.pathInput.Update(msg)
	return m, cmd
}

func (m *Model) loadCmd(path string) tea.Cmd {
	ctx, loader := m.ctx, m.loader
	m.status = "Loading " + filepath.Base(path) + "..."
	return func() tea.Msg {
		doc, err := loader.Load(ctx, path)
		return docLoadedMsg{doc: doc, err: err}
	}
}

func (m *Model) handleLoaded(msg docLoadedMsg) (tea.Model, tea.Cmd) {
	if errors.Is(msg.err, source.ErrCanceled) {
		m.status = ""
		return m, nil
	}
	if msg.err != nil {
		m.log.Error().Err(msg.err).Msg("failed to load document")
		m.errMsg = msg.err.Error()
		m.status = ""
		return m, nil
	}
	m.stopListening()
	m.ctrl.Open(msg.doc)
	m.errMsg = ""
	m.status = "Opened " + filepath.Base(msg.doc.Path)
	m.refreshFlags()
	return m, nil
}

func (m *Model) startListening() tea.Cmd {
	switch m.ctrl.State() {
	case session.StateIdle:
		m.errMsg = "Open a file first (o)."
		return nil
	case session.StateListening:
		return nil
	}
	events, err := m.rec.Start(m.ctx)
	if err != nil {
		m.log.Warn().Err(err).Msg("recognizer unavailable")
		m.alert = "Speech recognition is not available.\n\n" + err.Error()
		return nil
	}
	if err := m.ctrl.Start(); err != nil {
		_ = m.rec.Stop()
		m.errMsg = err.Error()
		return nil
	}
	m.events = events
	m.errMsg = ""
	m.status = "Listening"
	return tea.Batch(waitForEvent(events), tickCmd())
}

func (m *Model) stopListening() {
	if m.ctrl.State() != session.StateListening {
		return
	}
	if err := m.rec.Stop(); err != nil {
		m.log.Warn().Err(err).Msg("failed to stop recognizer")
	}
	m.ctrl.Stop()
	m.status = "Stopped"
}

func (m *Model) handleEvent(msg eventMsg) (tea.Model, tea.Cmd) {
	if msg.ch != m.events {
		return m, nil
	}
	if !msg.ok {
		m.events = nil
		if m.ctrl.State() == session.StateListening {
			m.ctrl.HandleEnd()
			m.status = "Recognition ended"
		}
		return m, nil
	}
	m.ctrl.Handle(msg.ev)
	switch msg.ev.Kind {
	case recognizer.EventResult:
		m.refreshFlags()
	case recognizer.EventEnd:
		if m.ctrl.State() == session.StateStopped {
			m.status = "Recognition ended"
		}
	}
	return m, waitForEvent(msg.ch)
}

func (m *Model) exportCmd() tea.Cmd {
	if m.ctrl.State() == session.StateIdle {
		m.errMsg = "Nothing to export yet."
		return nil
	}
	snap := m.ctrl.Snapshot()
	path, now := m.reportPath, m.now()
	return func() tea.Msg {
		_, err := report.Export(path, snap, now)
		return exportedMsg{path: path, err: err}
	}
}

func waitForEvent(ch <-chan recognizer.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		return eventMsg{ch: ch, ev: ev, ok: ok}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Model) updateLayout() {
	m.flags.Width = m.width
	m.flags.Height = flagsHeight
	m.pathInput.Width = max(10, m.width-lipgloss.Width(m.pathInput.Prompt)-2)
	m.refreshFlags()
}

func (m *Model) refreshFlags() {
	m.flags.SetContent(renderFlags(m.ctrl.Snapshot().Result))
	m.flags.GotoBottom()
}

func renderFlags(res compare.Result) string {
	if len(res.Mismatches) == 0 {
		return hintStyle.Render("No mispronounced words yet.")
	}
	lines := make([]string, 0, len(res.Mismatches))
	for i, mis := range res.Mismatches {
		marker := ""
		if compare.SoundsAlike(mis.Expected, mis.Observed) {
			marker = hintStyle.Render("  (sounds alike)")
		}
		pos := ""
		if i < len(res.Positions) {
			pos = fmt.Sprintf("%4d  ", res.Positions[i]+1)
		}
		lines = append(lines, pos+incorrectStyle.Render(mis.Expected)+" -> "+mis.Observed+marker)
	}
	return strings.Join(lines, "\n")
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.alert != "" && m.width > 0 {
		box := modalStyle.Render(m.alert + "\n\n" + hintStyle.Render("press any key"))
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
	}
	snap := m.ctrl.Snapshot()
	var content string
	if snap.State == session.StateIdle {
		content = hintStyle.Render("Press o to open a .txt or .pdf file.")
	} else {
		flagged := make(map[int]bool, len(snap.Result.Positions))
		for _, p := range snap.Result.Positions {
			flagged[p] = true
		}
		words := buildStyledWords(snap.Document.Expected, snap.Result.Compared, flagged)
		content = renderStyledWords(words)
		if m.width > 0 {
			contentWidth := max(1, int(float64(m.width)*0.70))
			content = lipgloss.NewStyle().Width(contentWidth).Render(wrapStyledWords(words, contentWidth))
		}
	}
	if m.width == 0 || m.height == 0 {
		return content
	}

	heard := "Heard: " + tail(snap.Transcript, m.width-7)
	bottom := []string{hintStyle.Render(heard), m.flags.View()}
	if m.prompting {
		bottom = append(bottom, m.pathInput.View())
	} else if m.errMsg != "" {
		bottom = append(bottom, errorStyle.Render(m.errMsg))
	} else {
		bottom = append(bottom, hintStyle.Render(m.status))
	}
	bottom = append(bottom, lipgloss.PlaceHorizontal(m.width, lipgloss.Center, m.renderFooter()))
	bottomView := strings.Join(bottom, "\n")

	bodyHeight := m.height - lipgloss.Height(bottomView)
	if bodyHeight < 1 {
		return bottomView
	}
	body := lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, content)
	return body + "\n" + bottomView
}

// tail keeps the last width cells of s.
func tail(s string, width int) string {
	w := runewidth.StringWidth(s)
	if width <= 0 || w <= width {
		return s
	}
	return runewidth.TruncateLeft(s, w-width+1, "…")
}

func (m *Model) renderFooter() string {
	snap := m.ctrl.Snapshot()
	sum := stats.Summarize(snap.Result, snap.Session.Start, snap.Session.End, m.now())
	segments := []string{strings.ToUpper(snap.State.String())}
	if snap.State != session.StateIdle {
		segments = append(segments,
			fmt.Sprintf("Progress %d%%", int(sum.Progress*100)),
			fmt.Sprintf("Flagged %d", sum.Flagged),
			fmt.Sprintf("Accuracy %.1f%%", sum.Accuracy*100),
		)
		if sum.DurationMs > 0 {
			segments = append(segments, fmt.Sprintf("%.1f WPM", sum.WPM))
		}
	}
	segments = append(segments, "o open · s start · x stop · e export · q quit")
	return footerStyle.Render(strings.Join(segments, "  "))
}
