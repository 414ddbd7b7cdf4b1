package extract

import (
	"bytes"
	"context"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	gtext "github.com/yuin/goldmark/text"

	"github.com/Aman-CERP/vaultsearch/internal/chunk"
)

// Markdown reads a Markdown file as one unnumbered page of its visible text.
type Markdown struct{}

var markdownParser = goldmark.New(goldmark.WithExtensions(extension.GFM)).Parser()

// Extract implements Extractor.
func (Markdown) Extract(ctx context.Context, path string) ([]chunk.PageInput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	src, err := readText(path)
	if err != nil {
		return nil, err
	}
	text, err := MarkdownText([]byte(src))
	if err != nil {
		return nil, extractError(path, "walk markdown", err)
	}
	return singlePage(text), nil
}

// MarkdownText strips Markdown syntax from src. Headings, paragraphs, list
// items and code blocks end with a newline; raw HTML is dropped.
func MarkdownText(src []byte) (string, error) {
	doc := markdownParser.Parse(gtext.NewReader(src))

	var buf bytes.Buffer
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock && buf.Len() > 0 && !bytes.HasSuffix(buf.Bytes(), []byte("\n")) {
				buf.WriteByte('\n')
			}
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Text:
			buf.Write(node.Segment.Value(src))
			switch {
			case node.HardLineBreak():
				buf.WriteByte('\n')
			case node.SoftLineBreak():
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(node.Value)
		case *ast.AutoLink:
			buf.Write(node.Label(src))
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				buf.Write(seg.Value(src))
			}
			return ast.WalkSkipChildren, nil
		case *ast.HTMLBlock, *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}
