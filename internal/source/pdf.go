package source

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDF scans up to maxPages pages and returns the text of the first page
// with whitespace collapsed, along with the number of pages scanned.
func extractPDF(raw []byte, maxPages int) (text string, scanned int, err error) {
	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", 0, err
	}
	total := reader.NumPage()
	if total == 0 {
		return "", 0, errors.New("pdf has no pages")
	}
	if maxPages <= 0 || maxPages > total {
		maxPages = total
	}

	var first []string
	for i := 1; i <= maxPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		scanned++
		if i != 1 {
			continue
		}
		fonts := make(map[string]*pdf.Font)
		for _, name := range page.Fonts() {
			f := page.Font(name)
			fonts[name] = &f
		}
		pageText, err := page.GetPlainText(fonts)
		if err != nil {
			return "", scanned, fmt.Errorf("page %d: %w", i, err)
		}
		first = append(first, pageText)
	}
	return CollapseSpace(strings.Join(first, " ")), scanned, nil
}
