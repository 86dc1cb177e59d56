package source

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/verte-zerg/hearme/internal/model"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestReadFileEmptyPathIsCanceled(t *testing.T) {
	fc, err := ReadFile("   ")
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if !fc.Canceled {
		t.Fatalf("expected canceled content")
	}
	if _, err := Decode(fc, DefaultLimits()); !errors.Is(err, ErrCanceled) {
		t.Fatalf("expected ErrCanceled, got %v", err)
	}
}

func TestReadFileEncodesContent(t *testing.T) {
	path := writeFile(t, "Story.TXT", "Once upon a time")
	fc, err := ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if fc.Ext != ".txt" {
		t.Fatalf("expected lowercased ext, got %q", fc.Ext)
	}
	raw, err := base64.StdEncoding.DecodeString(fc.Content)
	if err != nil {
		t.Fatalf("decode content: %v", err)
	}
	if string(raw) != "Once upon a time" {
		t.Fatalf("unexpected content %q", raw)
	}
}

func TestDecodeTextTruncates(t *testing.T) {
	text := strings.Repeat("é", 3500)
	fc := model.FileContent{FilePath: "long.txt", Ext: ".txt", Content: base64.StdEncoding.EncodeToString([]byte(text))}
	doc, err := Decode(fc, DefaultLimits())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.Format != model.FormatText {
		t.Fatalf("unexpected format %q", doc.Format)
	}
	if n := utf8.RuneCountInString(doc.Expected); n != DefaultTextMaxChars {
		t.Fatalf("expected %d chars, got %d", DefaultTextMaxChars, n)
	}
	if doc.Hash != HashBytes([]byte(text)) {
		t.Fatalf("unexpected hash %q", doc.Hash)
	}
}

func TestDecodeTextKeepsShortText(t *testing.T) {
	fc := model.FileContent{FilePath: "a.txt", Ext: ".txt", Content: base64.StdEncoding.EncodeToString([]byte("line one\nline two"))}
	doc, err := Decode(fc, DefaultLimits())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.Expected != "line one\nline two" {
		t.Fatalf("unexpected expected text %q", doc.Expected)
	}
}

func TestDecodeUnsupported(t *testing.T) {
	fc := model.FileContent{FilePath: "book.epub", Ext: ".epub", Content: base64.StdEncoding.EncodeToString([]byte("PK"))}
	doc, err := Decode(fc, DefaultLimits())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.Expected != UnsupportedMessage {
		t.Fatalf("expected unsupported message, got %q", doc.Expected)
	}
	if doc.Path != "book.epub" {
		t.Fatalf("expected path to be kept, got %q", doc.Path)
	}
}

func TestDecodeMalformedPDF(t *testing.T) {
	fc := model.FileContent{FilePath: "bad.pdf", Ext: ".pdf", Content: base64.StdEncoding.EncodeToString([]byte("not a pdf at all"))}
	if _, err := Decode(fc, DefaultLimits()); err == nil {
		t.Fatalf("expected error for malformed pdf")
	}
}

func TestCollapseSpace(t *testing.T) {
	if got := CollapseSpace("  The\tquick \n\n brown   fox "); got != "The quick brown fox" {
		t.Fatalf("unexpected collapse result %q", got)
	}
}

type memCache struct {
	docs  map[string]model.Document
	saves int
}

func (c *memCache) key(hash string, maxChars, pageLimit int) string {
	return fmt.Sprintf("%s/%d/%d", hash, maxChars, pageLimit)
}

func (c *memCache) GetDocument(_ context.Context, hash string, maxChars, pageLimit int) (model.Document, bool, error) {
	doc, ok := c.docs[c.key(hash, maxChars, pageLimit)]
	return doc, ok, nil
}

func (c *memCache) SaveDocument(_ context.Context, doc model.Document, maxChars, pageLimit int) error {
	c.saves++
	c.docs[c.key(doc.Hash, maxChars, pageLimit)] = doc
	return nil
}

func TestLoaderUsesCache(t *testing.T) {
	path := writeFile(t, "story.txt", "fresh text from disk")
	cache := &memCache{docs: map[string]model.Document{}}
	loader := NewLoader(DefaultLimits(), cache, zerolog.Nop())

	hash := HashBytes([]byte("fresh text from disk"))
	cache.docs[cache.key(hash, DefaultTextMaxChars, 0)] = model.Document{
		Path:     "old/location.txt",
		Format:   model.FormatText,
		Hash:     hash,
		Expected: "cached text",
	}

	doc, err := loader.Load(context.Background(), path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if doc.Expected != "cached text" {
		t.Fatalf("expected cached text, got %q", doc.Expected)
	}
	if doc.Path != path {
		t.Fatalf("expected current path, got %q", doc.Path)
	}
	if cache.saves != 1 {
		t.Fatalf("expected open to be recorded once, got %d", cache.saves)
	}
}

func TestLoaderMissPopulatesCache(t *testing.T) {
	path := writeFile(t, "story.txt", "to be read aloud")
	cache := &memCache{docs: map[string]model.Document{}}
	loader := NewLoader(DefaultLimits(), cache, zerolog.Nop())

	doc, err := loader.Load(context.Background(), path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if doc.Expected != "to be read aloud" {
		t.Fatalf("unexpected expected text %q", doc.Expected)
	}
	if _, ok := cache.docs[cache.key(doc.Hash, DefaultTextMaxChars, 0)]; !ok {
		t.Fatalf("expected document to be cached")
	}
}

func TestLoaderCacheKeyIncludesPageLimit(t *testing.T) {
	path := writeFile(t, "paper.pdf", "not really a pdf")
	hash := HashBytes([]byte("not really a pdf"))
	cache := &memCache{docs: map[string]model.Document{}}
	cache.docs[cache.key(hash, DefaultPDFMaxChars, 3)] = model.Document{
		Format:   model.FormatPDF,
		Hash:     hash,
		Expected: "first page",
		Pages:    3,
	}

	doc, err := NewLoader(DefaultLimits(), cache, zerolog.Nop()).Load(context.Background(), path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if doc.Pages != 3 || doc.Expected != "first page" {
		t.Fatalf("expected cached pdf, got %+v", doc)
	}

	// A different page limit must not reuse the entry scanned with 3 pages.
	limits := DefaultLimits()
	limits.PDFPages = 1
	if _, err := NewLoader(limits, cache, zerolog.Nop()).Load(context.Background(), path); err == nil {
		t.Fatalf("expected extraction of the bogus pdf to fail on a cache miss")
	}
}

func TestLoaderCanceled(t *testing.T) {
	loader := NewLoader(DefaultLimits(), nil, zerolog.Nop())
	if _, err := loader.Load(context.Background(), ""); !errors.Is(err, ErrCanceled) {
		t.Fatalf("expected ErrCanceled, got %v", err)
	}
}
