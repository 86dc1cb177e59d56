// Package source loads eBooks and produces the expected text to read aloud.
package source

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/verte-zerg/hearme/internal/model"
)

// UnsupportedMessage replaces the expected text for files that are neither PDF nor TXT.
const UnsupportedMessage = "Unsupported file type. Please open PDF or TXT."

// Default limits applied to extracted text.
const (
	DefaultTextMaxChars = 3000
	DefaultPDFMaxChars  = 4000
	DefaultPDFPages     = 3
)

// ErrCanceled is returned when the user dismissed the file prompt.
var ErrCanceled = errors.New("file selection canceled")

// Limits bounds how much text is taken from a document.
type Limits struct {
	TextMaxChars int
	PDFMaxChars  int
	PDFPages     int
}

// DefaultLimits returns the standard truncation limits.
func DefaultLimits() Limits {
	return Limits{
		TextMaxChars: DefaultTextMaxChars,
		PDFMaxChars:  DefaultPDFMaxChars,
		PDFPages:     DefaultPDFPages,
	}
}

// MaxCharsFor returns the truncation limit for a format.
func (l Limits) MaxCharsFor(format model.Format) int {
	switch format {
	case model.FormatText:
		return l.TextMaxChars
	case model.FormatPDF:
		return l.PDFMaxChars
	default:
		return 0
	}
}

// PageLimitFor returns how many pages are scanned for a format. Only PDFs
// have pages.
func (l Limits) PageLimitFor(format model.Format) int {
	if format == model.FormatPDF {
		return l.PDFPages
	}
	return 0
}

// FormatForExt maps a file extension to a document format.
func FormatForExt(ext string) model.Format {
	switch strings.ToLower(ext) {
	case ".txt":
		return model.FormatText
	case ".pdf":
		return model.FormatPDF
	default:
		return model.FormatUnknown
	}
}

// ReadFile picks up a file the way the file dialog would. An empty path means
// the user canceled.
func ReadFile(path string) (model.FileContent, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return model.FileContent{Canceled: true}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return model.FileContent{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return model.FileContent{
		FilePath: path,
		Ext:      strings.ToLower(filepath.Ext(path)),
		Content:  base64.StdEncoding.EncodeToString(data),
	}, nil
}

// Decode turns file content into a document with its expected text.
func Decode(fc model.FileContent, limits Limits) (model.Document, error) {
	if fc.Canceled {
		return model.Document{}, ErrCanceled
	}
	raw, err := base64.StdEncoding.DecodeString(fc.Content)
	if err != nil {
		return model.Document{}, fmt.Errorf("failed to decode file content: %w", err)
	}
	doc := model.Document{
		Path:   fc.FilePath,
		Format: FormatForExt(fc.Ext),
		Hash:   HashBytes(raw),
	}
	if err := fill(&doc, raw, limits); err != nil {
		return model.Document{}, err
	}
	return doc, nil
}

func fill(doc *model.Document, raw []byte, limits Limits) error {
	switch doc.Format {
	case model.FormatText:
		doc.Expected = truncate(toValidUTF8(raw), limits.TextMaxChars)
	case model.FormatPDF:
		text, pages, err := extractPDF(raw, limits.PDFPages)
		if err != nil {
			return fmt.Errorf("failed to extract pdf text: %w", err)
		}
		doc.Pages = pages
		doc.Expected = truncate(text, limits.PDFMaxChars)
	default:
		doc.Expected = UnsupportedMessage
	}
	return nil
}

func toValidUTF8(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	return strings.ToValidUTF8(string(raw), "�")
}

// CollapseSpace joins whitespace runs into single spaces and trims the ends.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, maxChars int) string {
	if maxChars <= 0 || utf8.RuneCountInString(s) <= maxChars {
		return s
	}
	return string([]rune(s)[:maxChars])
}
