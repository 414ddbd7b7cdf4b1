package extract

import (
	"context"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/Aman-CERP/vaultsearch/internal/chunk"
)

// XLSX reads each non-empty sheet of a workbook as a page numbered by the
// sheet's position.
type XLSX struct{}

// Extract implements Extractor.
func (XLSX) Extract(ctx context.Context, path string) ([]chunk.PageInput, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, extractError(path, "open xlsx", err)
	}
	defer f.Close()

	var pages []chunk.PageInput
	for i, sheet := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, extractError(path, "read sheet "+sheet, err)
		}

		var b strings.Builder
		for _, row := range rows {
			line := strings.TrimRight(strings.Join(row, "\t"), "\t ")
			if line == "" {
				continue
			}
			b.WriteString(line)
			b.WriteByte('\n')
		}
		if b.Len() == 0 {
			continue
		}
		pages = append(pages, chunk.PageInput{
			Text:       sheet + "\n" + b.String(),
			PageNumber: chunk.IntPtr(i + 1),
		})
	}
	return pages, nil
}
