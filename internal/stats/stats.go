// Package stats contains reading statistics and their text rendering.
package stats

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/verte-zerg/hearme/internal/compare"
)

const sparkChars = " .:-=+*#%@"

// Summary describes progress through one reading.
type Summary struct {
	ExpectedWords int
	SpokenWords   int
	Compared      int
	Flagged       int
	Accuracy      float64
	Progress      float64
	WPM           float64
	DurationMs    int64
}

// ReadingMetrics computes words per minute and accuracy for a reading.
func ReadingMetrics(spoken, compared, flagged int, durationMs int64) (wpm, accuracy float64) {
	if compared > 0 {
		accuracy = float64(compared-flagged) / float64(compared)
	}
	if durationMs <= 0 {
		return 0, accuracy
	}
	minutes := float64(durationMs) / 60000.0
	wpm = float64(spoken) / minutes
	return wpm, accuracy
}

// Summarize derives a Summary from a comparison result. The duration runs
// from start to end, or to now while the reading has not ended.
func Summarize(res compare.Result, start, end *time.Time, now time.Time) Summary {
	s := Summary{
		ExpectedWords: res.ExpectedTokens,
		SpokenWords:   res.ObservedTokens,
		Compared:      res.Compared,
		Flagged:       len(res.Mismatches),
	}
	if start != nil {
		stop := now
		if end != nil && end.After(*start) {
			stop = *end
		}
		s.DurationMs = stop.Sub(*start).Milliseconds()
	}
	s.WPM, s.Accuracy = ReadingMetrics(s.SpokenWords, s.Compared, s.Flagged, s.DurationMs)
	if s.ExpectedWords > 0 {
		s.Progress = float64(s.Compared) / float64(s.ExpectedWords)
	}
	return s
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		idx = max(0, min(idx, len(sparkChars)-1))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// AccuracyTrend returns rolling accuracy (0-100) along the compared words.
func AccuracyTrend(res compare.Result, window int) []float64 {
	values := make([]float64, res.Compared)
	for i := range values {
		values[i] = 100
	}
	for _, pos := range res.Positions {
		if pos < len(values) {
			values[pos] = 0
		}
	}
	return MovingAverage(values, window)
}

// RenderSummary prints a summary block for a reading.
func RenderSummary(w io.Writer, s Summary) error {
	lines := []string{
		"Summary",
		fmt.Sprintf("Expected words: %d", s.ExpectedWords),
		fmt.Sprintf("Spoken words: %d", s.SpokenWords),
		fmt.Sprintf("Compared: %d (%.0f%%)", s.Compared, s.Progress*100),
		fmt.Sprintf("Flagged: %d", s.Flagged),
		fmt.Sprintf("Accuracy: %.2f%%", s.Accuracy*100),
	}
	if s.DurationMs > 0 {
		lines = append(lines, fmt.Sprintf("WPM: %.2f", s.WPM))
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderMismatchTable prints every flagged word with its position.
func RenderMismatchTable(w io.Writer, res compare.Result) error {
	if len(res.Mismatches) == 0 {
		_, err := fmt.Fprintln(w, "No mispronounced words.")
		return err
	}
	if _, err := fmt.Fprintln(w, "Mispronounced"); err != nil {
		return err
	}
	headers := []string{"#", "Expected", "Observed", "Distance", "Sounds alike"}
	rows := make([][]string, 0, len(res.Mismatches))
	for i, m := range res.Mismatches {
		pos := ""
		if i < len(res.Positions) {
			pos = fmt.Sprintf("%d", res.Positions[i]+1)
		}
		alike := "no"
		if compare.SoundsAlike(m.Expected, m.Observed) {
			alike = "yes"
		}
		rows = append(rows, []string{
			pos,
			m.Expected,
			m.Observed,
			fmt.Sprintf("%d", compare.Levenshtein(strings.ToLower(m.Expected), strings.ToLower(m.Observed))),
			alike,
		})
	}
	for _, line := range formatTable(headers, rows, map[int]bool{0: true, 3: true}) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	if res.Compared > 1 {
		if _, err := fmt.Fprintf(w, "Trend: [%s]\n", Sparkline(AccuracyTrend(res, 5))); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}
