// Package libraryui provides the Bubble Tea browser for previously opened
// documents.
package libraryui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/hearme/internal/model"
	"github.com/verte-zerg/hearme/internal/stats"
)

const (
	tabDocuments = iota
	tabPreview
)

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

// Source loads what the browser shows.
type Source interface {
	ListDocuments(ctx context.Context, limit int) ([]model.DocumentSummary, error)
	GetDocument(ctx context.Context, hash string, maxChars, pageLimit int) (model.Document, bool, error)
}

// Model implements the Bubble Tea library UI.
type Model struct {
	src   Source
	limit int

	lib     stats.Library
	visible []model.DocumentSummary
	errMsg  string

	tabs      []string
	activeTab int
	docTable  table.Model
	preview   viewport.Model

	width  int
	height int

	filterMode  bool
	filterInput textinput.Model
	filter      string

	selected string
}

// NewModel constructs a library UI model.
func NewModel(src Source, limit int) *Model {
	input := textinput.New()
	input.Prompt = "Filter: "
	input.Placeholder = "part of a path"
	input.CharLimit = 0
	input.Cursor.SetMode(cursor.CursorBlink)

	m := &Model{
		src:         src,
		limit:       limit,
		tabs:        []string{"Documents", "Preview"},
		docTable:    buildDocTable(nil, 0, 1),
		preview:     viewport.New(0, 0),
		filterInput: input,
	}
	m.docTable.Focus()
	m.refresh()
	return m
}

// Selected returns the path picked with enter, or "" when the user quit.
func (m *Model) Selected() string {
	return m.selected
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
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
			return m, tea.Quit
		}
		if m.filterMode {
			return m.updateFilter(msg)
		}
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "left", "h", "right", "l", "tab":
			m.toggleTab()
			return m, tea.ClearScreen
		case "/":
			m.filterMode = true
			m.filterInput.SetValue(m.filter)
			return m, m.filterInput.Focus()
		case "enter":
			if doc, ok := m.current(); ok {
				m.selected = doc.Path
				return m, tea.Quit
			}
			return m, nil
		}
		var cmd tea.Cmd
		if m.activeTab == tabDocuments {
			m.docTable, cmd = m.docTable.Update(msg)
			m.loadPreview()
		} else {
			m.preview, cmd = m.preview.Update(msg)
		}
		return m, cmd
	}
	return m, nil
}

func (m *Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.filterMode = false
		m.filterInput.Blur()
		return m, nil
	case tea.KeyEnter:
		m.filterMode = false
		m.filterInput.Blur()
		m.filter = strings.TrimSpace(m.filterInput.Value())
		m.applyFilter()
		return m, nil
	}
	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) refresh() {
	lib, err := stats.BuildLibrary(context.Background(), m.src, m.limit)
	if err != nil {
		m.errMsg = err.Error()
	} else {
		m.errMsg = ""
	}
	m.lib = lib
	m.applyFilter()
}

func (m *Model) applyFilter() {
	m.visible = m.visible[:0]
	needle := strings.ToLower(m.filter)
	for _, d := range m.lib.Documents {
		if needle == "" || strings.Contains(strings.ToLower(d.Path), needle) {
			m.visible = append(m.visible, d)
		}
	}
	m.docTable.SetRows(buildDocRows(m.visible))
	m.docTable.SetCursor(0)
	m.loadPreview()
}

func (m *Model) current() (model.DocumentSummary, bool) {
	idx := m.docTable.Cursor()
	if idx < 0 || idx >= len(m.visible) {
		return model.DocumentSummary{}, false
	}
	return m.visible[idx], true
}

func (m *Model) loadPreview() {
	sum, ok := m.current()
	if !ok {
		m.preview.SetContent("No document selected.")
		return
	}
	doc, found, err := m.src.GetDocument(context.Background(), sum.Hash, sum.MaxChars, sum.PageLimit)
	switch {
	case err != nil:
		m.preview.SetContent(fmt.Sprintf("Failed to load preview: %v", err))
	case !found:
		m.preview.SetContent("Document is no longer cached.")
	default:
		m.preview.SetContent(lipgloss.NewStyle().Width(max(20, m.width-2)).Render(doc.Expected))
	}
	m.preview.GotoTop()
}

func (m *Model) toggleTab() {
	m.activeTab = (m.activeTab + 1) % len(m.tabs)
	if m.activeTab == tabDocuments {
		m.docTable.Focus()
	} else {
		m.docTable.Blur()
	}
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	headerHeight = max(1, lipgloss.Height(activeNavStyle.Render("X"))) + 1
	footerHeight = 1
	if m.errMsg != "" {
		footerHeight++
	}
	bodyHeight = max(1, m.height-headerHeight-footerHeight)
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.layoutHeights()
	m.docTable.SetColumns(docColumns(m.width))
	m.docTable.SetWidth(m.width)
	m.docTable.SetHeight(max(1, bodyHeight-1))
	m.preview.Width = m.width
	m.preview.Height = bodyHeight
	m.filterInput.Width = max(10, m.width-lipgloss.Width(m.filterInput.Prompt)-2)
	m.loadPreview()
}

func (m *Model) renderHeader() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	tabs := lipgloss.JoinHorizontal(lipgloss.Top, parts...)
	filter := m.filter
	if filter == "" {
		filter = "none"
	}
	summary := fmt.Sprintf("Documents: %d/%d  opens=%d  filter=%s", len(m.visible), len(m.lib.Documents), m.lib.TotalOpens, filter)
	return tabs + "\n" + headerStyle.Render(truncateLine(summary, m.width))
}

func (m *Model) renderBody() string {
	if m.filterMode {
		return m.filterInput.View()
	}
	if m.activeTab == tabPreview {
		return m.preview.View()
	}
	if len(m.visible) == 0 {
		return "No documents opened yet."
	}
	return tableMutedStyle.Render(m.docTable.View())
}

func (m *Model) renderFooter() string {
	help := "Nav: tab  Move: up/down  Open: enter  Filter: /  Quit: q"
	if m.filterMode {
		help = "enter: apply  esc: cancel"
	}
	if m.errMsg != "" {
		return headerStyle.Render(help) + "\n" + errorStyle.Render(m.errMsg)
	}
	return headerStyle.Render(help)
}

func docColumns(width int) []table.Column {
	cols := []table.Column{
		{Title: "Last opened", Width: 16},
		{Title: "Format", Width: 6},
		{Title: "Pages", Width: 5},
		{Title: "Chars", Width: 6},
		{Title: "Opens", Width: 5},
	}
	used := 0
	for _, c := range cols {
		used += c.Width + 1
	}
	return append(cols, table.Column{Title: "Path", Width: max(10, width-used-1)})
}

func buildDocRows(docs []model.DocumentSummary) []table.Row {
	rows := make([]table.Row, 0, len(docs))
	for _, d := range docs {
		pages := "-"
		if d.Format == model.FormatPDF {
			pages = fmt.Sprintf("%d", d.Pages)
		}
		rows = append(rows, table.Row{
			d.LastOpenedAt.Local().Format("2006-01-02 15:04"),
			string(d.Format),
			pages,
			fmt.Sprintf("%d", d.ExpectedChars),
			fmt.Sprintf("%d", d.OpenCount),
			d.Path,
		})
	}
	return rows
}

func buildDocTable(docs []model.DocumentSummary, width, height int) table.Model {
	t := table.New(
		table.WithColumns(docColumns(width)),
		table.WithRows(buildDocRows(docs)),
		table.WithHeight(max(1, height-1)),
	)
	t.SetWidth(width)
	t.SetStyles(docTableStyles())
	return t
}

func docTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
