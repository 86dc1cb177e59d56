package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/hearme/internal/compare"
)

type styledWord struct {
	s     string
	width int
}

type wordState int

const (
	wordPending wordState = iota
	wordCurrent
	wordMatched
	wordFlagged
)

func styleFor(state wordState) lipgloss.Style {
	switch state {
	case wordMatched:
		return correctStyle
	case wordFlagged:
		return incorrectStyle
	case wordCurrent:
		return currentWordStyle
	default:
		return pendingStyle
	}
}

// buildStyledWords styles every whitespace-separated word of the expected
// text by how far the transcript got. Words without letters take the state of
// the next comparable word.
func buildStyledWords(expected string, compared int, flagged map[int]bool) []styledWord {
	fields := strings.Fields(expected)
	out := make([]styledWord, 0, len(fields))
	tok := 0
	for _, field := range fields {
		idx := tok
		if compare.Strip(field) != "" {
			tok++
		}
		state := wordPending
		switch {
		case idx < compared && flagged[idx]:
			state = wordFlagged
		case idx < compared:
			state = wordMatched
		case idx == compared:
			state = wordCurrent
		}
		out = append(out, styledWord{
			s:     styleFor(state).Render(field),
			width: runewidth.StringWidth(field),
		})
	}
	return out
}

func renderStyledWords(words []styledWord) string {
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = w.s
	}
	return strings.Join(parts, " ")
}

func wrapStyledWords(words []styledWord, width int) string {
	if width <= 0 {
		return renderStyledWords(words)
	}
	var out strings.Builder
	lineWidth := 0
	for i, w := range words {
		if i > 0 {
			if lineWidth+1+w.width > width {
				out.WriteRune('\n')
				lineWidth = 0
			} else {
				out.WriteRune(' ')
				lineWidth++
			}
		}
		out.WriteString(w.s)
		lineWidth += w.width
	}
	return out.String()
}
