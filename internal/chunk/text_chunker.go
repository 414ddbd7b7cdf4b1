package chunk

import (
	"strings"
	"unicode"
	"unicode/utf8"

	verrors "github.com/Aman-CERP/vaultsearch/internal/errors"
)

// TextChunker splits page text into overlapping word windows that prefer
// to end on a sentence boundary. Pages are never merged.
type TextChunker struct {
	cfg Config
}

// NewTextChunker creates a chunker with the given window sizes.
func NewTextChunker(cfg Config) (*TextChunker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, verrors.ConfigError("invalid chunking config", err)
	}
	return &TextChunker{cfg: cfg}, nil
}

// Config returns the chunker's window sizes.
func (c *TextChunker) Config() Config {
	return c.cfg
}

// word is a whitespace-delimited word located by byte offsets in its page.
type word struct {
	start, end   int
	newlineAfter bool
}

// Chunk splits pages into chunks. Indices run across all pages.
func (c *TextChunker) Chunk(pages []PageInput) []Chunk {
	var chunks []Chunk
	for _, page := range pages {
		text := strings.TrimSpace(page.Text)
		if text == "" {
			continue
		}
		for _, span := range c.windows(text) {
			chunks = append(chunks, Chunk{
				Index:      len(chunks),
				PageNumber: copyPage(page.PageNumber),
				Text:       span.text,
				WordCount:  span.words,
			})
		}
	}
	return chunks
}

type span struct {
	text  string
	words int
}

// windows slides over one trimmed page.
func (c *TextChunker) windows(text string) []span {
	words := splitWords(text)
	n := len(words)
	if n < c.cfg.MinWords {
		return []span{{text: text, words: n}}
	}

	cut := func(from, to int) span {
		return span{text: text[words[from].start:words[to-1].end], words: to - from}
	}

	var spans []span
	start := 0
	for start < n {
		end := min(start+c.cfg.TargetWords, n)
		if end < n {
			limit := min(start+c.cfg.MaxWords, n)
			for i := end - 1; i < limit; i++ {
				if endsSentence(text, words[i]) {
					end = i + 1
					break
				}
			}
		}
		if end >= n {
			spans = append(spans, cut(start, n))
			break
		}

		overlap := min(c.cfg.OverlapWords, end-start-1)
		next := end - overlap
		if n-next < c.cfg.MinWords {
			// Fold the short tail into this window unless that breaks the cap.
			if n-start <= c.cfg.MaxWords {
				spans = append(spans, cut(start, n))
			} else {
				spans = append(spans, cut(start, end), cut(next, n))
			}
			break
		}

		spans = append(spans, cut(start, end))
		start = next
	}
	return spans
}

func splitWords(text string) []word {
	var words []word
	inWord := false
	for i, r := range text {
		if unicode.IsSpace(r) {
			if inWord {
				words[len(words)-1].end = i
				inWord = false
			}
			if r == '\n' && len(words) > 0 {
				words[len(words)-1].newlineAfter = true
			}
			continue
		}
		if !inWord {
			words = append(words, word{start: i})
			inWord = true
		}
	}
	if inWord {
		words[len(words)-1].end = len(text)
	}
	return words
}

func endsSentence(text string, w word) bool {
	if w.newlineAfter {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[w.start:w.end])
	return r == '.' || r == '?' || r == '!'
}

func copyPage(p *int) *int {
	if p == nil {
		return nil
	}
	return IntPtr(*p)
}
