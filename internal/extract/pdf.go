package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/Aman-CERP/vaultsearch/internal/chunk"
)

// PDF reads each page of a PDF's text layer as its own numbered page. Pages
// without text (scans awaiting OCR) are skipped.
type PDF struct{}

// Extract implements Extractor.
func (PDF) Extract(ctx context.Context, path string) (pages []chunk.PageInput, err error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, extractError(path, "open pdf", err)
	}
	defer f.Close()

	// The reader panics on some malformed content streams.
	defer func() {
		if rec := recover(); rec != nil {
			pages = nil
			err = extractError(path, "read pdf", fmt.Errorf("%v", rec))
		}
	}()

	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, extractError(path, fmt.Sprintf("read page %d", i), err)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, chunk.PageInput{Text: text, PageNumber: chunk.IntPtr(i)})
	}
	return pages, nil
}
