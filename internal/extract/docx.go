package extract

import (
	"context"
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"github.com/nguyenthenguyen/docx"

	"github.com/Aman-CERP/vaultsearch/internal/chunk"
)

// DOCX reads the body text of a Word document as one unnumbered page.
type DOCX struct{}

// Extract implements Extractor.
func (DOCX) Extract(ctx context.Context, path string) ([]chunk.PageInput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r, err := docx.ReadDocxFile(path)
	if err != nil {
		return nil, extractError(path, "open docx", err)
	}
	defer r.Close()

	text, err := wordprocessingText(r.Editable().GetContent())
	if err != nil {
		return nil, extractError(path, "parse docx body", err)
	}
	return singlePage(text), nil
}

// wordprocessingText collects w:t runs from document.xml, one line per paragraph.
func wordprocessingText(content string) (string, error) {
	dec := xml.NewDecoder(strings.NewReader(content))

	var b strings.Builder
	inText := false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				b.WriteByte('\t')
			case "br", "cr":
				b.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				b.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}
	return strings.TrimSpace(b.String()), nil
}
