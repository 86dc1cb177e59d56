package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/hearme/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "library.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func TestSaveAndGetDocument(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	doc := model.Document{
		Path:     "/books/alice.pdf",
		Format:   model.FormatPDF,
		Hash:     "abc123",
		Expected: "Alice was beginning to get very tired",
		Pages:    3,
	}
	if err := st.SaveDocument(ctx, doc, 4000, 3); err != nil {
		t.Fatalf("save document: %v", err)
	}

	got, ok, err := st.GetDocument(ctx, "abc123", 4000, 3)
	if err != nil {
		t.Fatalf("get document: %v", err)
	}
	if !ok {
		t.Fatalf("expected cached document")
	}
	if got != doc {
		t.Fatalf("unexpected document: %+v", got)
	}

	for _, limits := range [][2]int{{100, 3}, {4000, 5}} {
		_, ok, err = st.GetDocument(ctx, "abc123", limits[0], limits[1])
		if err != nil {
			t.Fatalf("get document: %v", err)
		}
		if ok {
			t.Fatalf("expected miss for limits %v", limits)
		}
	}
}

func TestListDocumentsOrderAndCount(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	tick := 0
	st.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	first := model.Document{Path: "a.txt", Format: model.FormatText, Hash: "h1", Expected: "one two"}
	second := model.Document{Path: "b.txt", Format: model.FormatText, Hash: "h2", Expected: "three"}
	for _, doc := range []model.Document{first, second, first} {
		if err := st.SaveDocument(ctx, doc, 3000, 0); err != nil {
			t.Fatalf("save document: %v", err)
		}
	}

	docs, err := st.ListDocuments(ctx, 10)
	if err != nil {
		t.Fatalf("list documents: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	if docs[0].Hash != "h1" || docs[0].OpenCount != 2 {
		t.Fatalf("expected h1 opened twice first, got %+v", docs[0])
	}
	if docs[0].ExpectedChars != len("one two") {
		t.Fatalf("unexpected expected chars: %d", docs[0].ExpectedChars)
	}
	if !docs[0].LastOpenedAt.After(docs[0].FirstOpenedAt) {
		t.Fatalf("expected last opened after first opened: %+v", docs[0])
	}

	limited, err := st.ListDocuments(ctx, 1)
	if err != nil {
		t.Fatalf("list documents: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("expected 1 document, got %d", len(limited))
	}
}

func TestListDocumentsOrdersSubSecondOpens(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	times := []time.Time{
		time.Date(2024, 5, 1, 0, 0, 5, 0, time.UTC),
		time.Date(2024, 5, 1, 0, 0, 5, 500_000_000, time.UTC),
	}
	next := 0
	st.now = func() time.Time {
		ts := times[next]
		next++
		return ts
	}

	older := model.Document{Path: "older.txt", Format: model.FormatText, Hash: "h1", Expected: "a"}
	newer := model.Document{Path: "newer.txt", Format: model.FormatText, Hash: "h2", Expected: "b"}
	for _, doc := range []model.Document{older, newer} {
		if err := st.SaveDocument(ctx, doc, 3000, 0); err != nil {
			t.Fatalf("save document: %v", err)
		}
	}

	docs, err := st.ListDocuments(ctx, 0)
	if err != nil {
		t.Fatalf("list documents: %v", err)
	}
	if len(docs) != 2 || docs[0].Path != "newer.txt" || docs[1].Path != "older.txt" {
		t.Fatalf("expected newer.txt first, got %+v", docs)
	}
	if !docs[0].LastOpenedAt.Equal(times[1]) {
		t.Fatalf("unexpected last opened %v", docs[0].LastOpenedAt)
	}
}

func TestOpenRebuildsOldSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.db")
	st, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if _, err := st.db.Exec(`PRAGMA user_version = 1`); err != nil {
		t.Fatalf("downgrade version: %v", err)
	}
	if err := st.SaveDocument(context.Background(), model.Document{Path: "a.txt", Format: model.FormatText, Hash: "h1"}, 3000, 0); err != nil {
		t.Fatalf("save document: %v", err)
	}
	_ = st.Close()

	st, err = Open(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer func() { _ = st.Close() }()
	docs, err := st.ListDocuments(context.Background(), 0)
	if err != nil {
		t.Fatalf("list documents: %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("expected old cache to be dropped, got %+v", docs)
	}
}
