package extract

import (
	"context"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/Aman-CERP/vaultsearch/internal/chunk"
)

// PlainText reads a text file as one unnumbered page.
type PlainText struct{}

// Extract implements Extractor.
func (PlainText) Extract(ctx context.Context, path string) ([]chunk.PageInput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text, err := readText(path)
	if err != nil {
		return nil, err
	}
	return singlePage(text), nil
}

// readText reads path as UTF-8, switching to UTF-16 when a BOM says so.
func readText(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", extractError(path, "open file", err)
	}
	defer f.Close()

	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	data, err := io.ReadAll(transform.NewReader(f, dec))
	if err != nil {
		return "", extractError(path, "decode text", err)
	}
	return strings.ToValidUTF8(string(data), "\uFFFD"), nil
}
