// Package extract turns files into the plain-text pages the chunker consumes.
package extract

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Aman-CERP/vaultsearch/internal/chunk"
	verrors "github.com/Aman-CERP/vaultsearch/internal/errors"
)

// Extractor reads one file into pages.
type Extractor interface {
	Extract(ctx context.Context, path string) ([]chunk.PageInput, error)
}

var byExtension = map[string]Extractor{
	".txt":      PlainText{},
	".text":     PlainText{},
	".log":      PlainText{},
	".csv":      PlainText{},
	".md":       Markdown{},
	".markdown": Markdown{},
	".pdf":      PDF{},
	".docx":     DOCX{},
	".xlsx":     XLSX{},
}

// ForPath returns the extractor for path's extension.
func ForPath(path string) (Extractor, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if e, ok := byExtension[ext]; ok {
		return e, nil
	}
	return nil, verrors.New(verrors.ErrCodeUnsupportedFormat, "unsupported file format", nil).
		WithDetail("path", path).
		WithSuggestion("Supported extensions: " + strings.Join(SupportedExtensions(), ", "))
}

// SupportedExtensions lists the handled extensions, sorted.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(byExtension))
	for ext := range byExtension {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// File extracts path with the extractor matching its extension.
func File(ctx context.Context, path string) ([]chunk.PageInput, error) {
	e, err := ForPath(path)
	if err != nil {
		return nil, err
	}
	return e.Extract(ctx, path)
}

func extractError(path, msg string, cause error) error {
	return verrors.New(verrors.ErrCodeExtractFailed, msg, cause).WithDetail("path", path)
}

// singlePage wraps text as the one unnumbered page of a source, or no pages
// when it is blank.
func singlePage(text string) []chunk.PageInput {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return []chunk.PageInput{{Text: text}}
}
