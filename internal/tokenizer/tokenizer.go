// Package tokenizer implements the WordPiece subword tokenizer used to feed
// the sentence embedding model.
//
// A Tokenizer is built once from a newline-delimited vocabulary file where the
// zero-based line number is the token ID. It is immutable afterwards and safe
// for concurrent use.
package tokenizer

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	verrors "github.com/Aman-CERP/vaultsearch/internal/errors"
)

// Special tokens every vocabulary must contain.
const (
	TokenUnknown = "[UNK]"
	TokenCLS     = "[CLS]"
	TokenSEP     = "[SEP]"
	TokenPad     = "[PAD]"

	// ContinuationPrefix marks a non-initial piece of a word.
	ContinuationPrefix = "##"
)

// DefaultMaxLength matches the sequence length of all-MiniLM-L6-v2.
const DefaultMaxLength = 128

// MaxInputCharsPerWord is the longest word WordPiece will split.
// Longer words become a single [UNK].
const MaxInputCharsPerWord = 100

// ErrMissingSpecialTokens is returned when the vocabulary lacks any of
// [UNK], [CLS], [SEP] or [PAD].
var ErrMissingSpecialTokens = verrors.Sentinel(verrors.ErrCodeMissingSpecialTokens)

// Tokenizer maps text to WordPiece token IDs.
type Tokenizer struct {
	vocab        map[string]int32
	unkID        int32
	clsID        int32
	sepID        int32
	padID        int32
	stripAccents bool
	size         int
}

// Option configures a Tokenizer.
type Option func(*Tokenizer)

// WithStripAccents folds accented letters to their base form before lookup.
// Only enable it for vocabularies built that way.
func WithStripAccents(strip bool) Option {
	return func(t *Tokenizer) {
		t.stripAccents = strip
	}
}

// Load reads a vocabulary file and builds a Tokenizer.
func Load(path string, opts ...Option) (*Tokenizer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, verrors.New(verrors.ErrCodeConfigNotFound, "open vocabulary "+path, err).
			WithSuggestion("set tokenizer.vocab_path to a WordPiece vocab.txt")
	}
	defer f.Close()

	return New(f, opts...)
}

// New builds a Tokenizer from a newline-delimited vocabulary.
func New(r io.Reader, opts ...Option) (*Tokenizer, error) {
	t := &Tokenizer{vocab: make(map[string]int32, 32000)}
	for _, opt := range opts {
		opt(t)
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var id int32
	for scanner.Scan() {
		token := strings.TrimRight(scanner.Text(), "\r")
		// Keep the first ID if a token repeats.
		if _, dup := t.vocab[token]; !dup && token != "" {
			t.vocab[token] = id
		}
		id++
	}
	if err := scanner.Err(); err != nil {
		return nil, verrors.New(verrors.ErrCodeInvalidInput, "read vocabulary", err)
	}
	t.size = int(id)

	var missing []string
	lookup := func(token string) int32 {
		v, ok := t.vocab[token]
		if !ok {
			missing = append(missing, token)
		}
		return v
	}
	t.unkID = lookup(TokenUnknown)
	t.clsID = lookup(TokenCLS)
	t.sepID = lookup(TokenSEP)
	t.padID = lookup(TokenPad)
	if len(missing) > 0 {
		return nil, verrors.New(verrors.ErrCodeMissingSpecialTokens,
			fmt.Sprintf("vocabulary is missing special tokens: %s", strings.Join(missing, ", ")), nil)
	}

	return t, nil
}

// VocabSize returns the number of vocabulary lines.
func (t *Tokenizer) VocabSize() int {
	return t.size
}

// ID returns the ID of a vocabulary token.
func (t *Tokenizer) ID(token string) (int32, bool) {
	id, ok := t.vocab[token]
	return id, ok
}

// PadID returns the [PAD] token ID.
func (t *Tokenizer) PadID() int32 {
	return t.padID
}

// Tokenize returns exactly maxLength IDs: [CLS], up to maxLength-2 content
// IDs, [SEP], then [PAD] padding. Content beyond the limit is truncated.
func (t *Tokenizer) Tokenize(text string, maxLength int) []int32 {
	if maxLength < 2 {
		maxLength = 2
	}
	limit := maxLength - 2

	ids := make([]int32, 0, maxLength)
	ids = append(ids, t.clsID)
	for _, word := range t.basicTokenize(text) {
		for _, piece := range t.wordPiece(word) {
			if len(ids)-1 >= limit {
				break
			}
			ids = append(ids, t.vocab[piece])
		}
		if len(ids)-1 >= limit {
			break
		}
	}
	ids = append(ids, t.sepID)
	for len(ids) < maxLength {
		ids = append(ids, t.padID)
	}
	return ids
}

// AttentionMask returns 1 for every non-[PAD] position and 0 otherwise.
func (t *Tokenizer) AttentionMask(ids []int32) []int32 {
	mask := make([]int32, len(ids))
	for i, id := range ids {
		if id != t.padID {
			mask[i] = 1
		}
	}
	return mask
}

// Tokens returns the WordPiece strings for text, without special tokens
// or truncation.
func (t *Tokenizer) Tokens(text string) []string {
	var out []string
	for _, word := range t.basicTokenize(text) {
		out = append(out, t.wordPiece(word)...)
	}
	return out
}

// basicTokenize lowercases text and splits it on whitespace and punctuation.
// Each punctuation rune becomes its own token.
func (t *Tokenizer) basicTokenize(text string) []string {
	text = strings.ToLower(text)
	if t.stripAccents {
		text = foldAccents(text)
	}

	var words []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			words = append(words, current.String())
			current.Reset()
		}
	}

	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			flush()
		case isPunctuation(r):
			flush()
			words = append(words, string(r))
		case r == 0 || r == unicode.ReplacementChar || unicode.IsControl(r):
			// dropped
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return words
}

// wordPiece splits a word greedily, longest match first. When no prefix of
// the remainder is in the vocabulary, the remainder becomes one [UNK].
func (t *Tokenizer) wordPiece(word string) []string {
	chars := []rune(word)
	if len(chars) > MaxInputCharsPerWord {
		return []string{TokenUnknown}
	}

	var pieces []string
	start := 0
	for start < len(chars) {
		end := len(chars)
		match := ""
		for end > start {
			candidate := string(chars[start:end])
			if start > 0 {
				candidate = ContinuationPrefix + candidate
			}
			if _, ok := t.vocab[candidate]; ok {
				match = candidate
				break
			}
			end--
		}
		if match == "" {
			pieces = append(pieces, TokenUnknown)
			break
		}
		pieces = append(pieces, match)
		start = end
	}
	return pieces
}

// isPunctuation treats Unicode punctuation plus the ASCII symbol ranges
// (e.g. "$", "+", "^") as punctuation, as BERT vocabularies expect.
func isPunctuation(r rune) bool {
	if (r >= 33 && r <= 47) || (r >= 58 && r <= 64) || (r >= 91 && r <= 96) || (r >= 123 && r <= 126) {
		return true
	}
	return unicode.IsPunct(r)
}

func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
