package stats

import (
	"context"
	"fmt"
	"io"

	"github.com/verte-zerg/hearme/internal/model"
)

// Library contains cached documents prepared for rendering.
type Library struct {
	Documents  []model.DocumentSummary
	TotalOpens int
}

// DocumentLister lists cached documents, most recently opened first.
type DocumentLister interface {
	ListDocuments(ctx context.Context, limit int) ([]model.DocumentSummary, error)
}

// BuildLibrary loads the most recently opened documents.
func BuildLibrary(ctx context.Context, st DocumentLister, limit int) (Library, error) {
	docs, err := st.ListDocuments(ctx, limit)
	if err != nil {
		return Library{}, err
	}
	lib := Library{Documents: docs}
	for _, d := range docs {
		lib.TotalOpens += d.OpenCount
	}
	return lib, nil
}

// RenderLibrary prints cached documents as a table.
func RenderLibrary(w io.Writer, lib Library) error {
	if len(lib.Documents) == 0 {
		_, err := fmt.Fprintln(w, "No documents opened yet.")
		return err
	}
	headers := []string{"Last opened", "Format", "Pages", "Chars", "Opens", "Path"}
	rows := make([][]string, 0, len(lib.Documents))
	for _, d := range lib.Documents {
		pages := "-"
		if d.Format == model.FormatPDF {
			pages = fmt.Sprintf("%d", d.Pages)
		}
		rows = append(rows, []string{
			d.LastOpenedAt.Local().Format("2006-01-02 15:04"),
			string(d.Format),
			pages,
			fmt.Sprintf("%d", d.ExpectedChars),
			fmt.Sprintf("%d", d.OpenCount),
			d.Path,
		})
	}
	for _, line := range formatTable(headers, rows, map[int]bool{2: true, 3: true, 4: true}) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "\n%d documents, %d opens\n", len(lib.Documents), lib.TotalOpens)
	return err
}
