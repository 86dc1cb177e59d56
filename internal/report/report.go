// Package report builds and writes the exported session report.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/verte-zerg/hearme/internal/model"
	"github.com/verte-zerg/hearme/internal/session"
)

// DefaultFileName is used when no report path is given.
const DefaultFileName = "hearme_report.json"

// TimeLayout matches JavaScript's Date.prototype.toISOString.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// Build assembles a report from a session snapshot. It does not touch the
// controller that produced the snapshot.
func Build(snap session.Snapshot, now time.Time) model.Report {
	mis := snap.Session.Mispronounced
	if mis == nil {
		mis = []model.MismatchRecord{}
	}
	return model.Report{
		FileName:      snap.Session.FileName,
		Start:         epochMillis(snap.Session.Start),
		End:           epochMillis(snap.Session.End),
		Transcript:    snap.Transcript,
		Mispronounced: mis,
		GeneratedAt:   now.UTC().Format(TimeLayout),
	}
}

func epochMillis(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}

// Marshal renders the report with two-space indentation and no trailing
// newline.
func Marshal(r model.Report) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Write stores the report at path, replacing any existing file atomically.
func Write(path string, r model.Report) error {
	data, err := Marshal(r)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create report dir: %w", err)
	}
	tmpFile, err := os.CreateTemp(dir, "hearme-report-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp report: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close report: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// Export builds the report for snap and writes it to path.
func Export(path string, snap session.Snapshot, now time.Time) (model.Report, error) {
	r := Build(snap, now)
	if err := Write(path, r); err != nil {
		return model.Report{}, err
	}
	return r, nil
}
