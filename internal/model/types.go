// Package model defines shared data structures.
package model

import "time"

// Config defines reading session settings.
type Config struct {
	Tolerance   float64
	TxtMaxChars int
	PdfMaxChars int
	PdfPages    int
	Lang        string
	ListenAddr  string
	ReportDir   string
	LogLevel    string
}

// Format identifies how a file's content is decoded.
type Format string

// Known document formats.
const (
	FormatText    Format = "txt"
	FormatPDF     Format = "pdf"
	FormatUnknown Format = ""
)

// FileContent is the raw result of picking a file.
type FileContent struct {
	Canceled bool
	FilePath string
	Ext      string
	Content  string // base64-encoded file bytes
}

// Document is a loaded source with its expected text.
type Document struct {
	Path     string
	Format   Format
	Hash     string
	Expected string
	Pages    int
}

// MismatchRecord is one flagged token pair.
type MismatchRecord struct {
	Expected string `json:"expected"`
	Observed string `json:"observed"`
}

// Session captures one reading session for the loaded document.
type Session struct {
	Start         *time.Time
	End           *time.Time
	FileName      string
	Mispronounced []MismatchRecord
}

// Report is the exported session document. Field order is part of the format.
type Report struct {
	FileName      string           `json:"fileName"`
	Start         *int64           `json:"start"`
	End           *int64           `json:"end"`
	Transcript    string           `json:"transcript"`
	Mispronounced []MismatchRecord `json:"mispronounced"`
	GeneratedAt   string           `json:"generatedAt"`
}

// DocumentSummary describes a cached document for listing.
type DocumentSummary struct {
	Hash          string
	MaxChars      int
	PageLimit     int
	Path          string
	Format        Format
	Pages         int
	ExpectedChars int
	FirstOpenedAt time.Time
	LastOpenedAt  time.Time
	OpenCount     int
}
