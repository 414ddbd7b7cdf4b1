package tokenizer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	verrors "github.com/Aman-CERP/vaultsearch/internal/errors"
)

// testVocab mirrors the head of a BERT vocabulary: [PAD] is 0.
var testVocab = []string{
	"[PAD]",  // 0
	"[UNK]",  // 1
	"[CLS]",  // 2
	"[SEP]",  // 3
	"hello",  // 4
	"world",  // 5
	"un",     // 6
	"##aff",  // 7
	"##able", // 8
	",",      // 9
	"!",      // 10
	"$",      // 11
	"cafe",   // 12
	"café",   // 13
	"tax",    // 14
	"##es",   // 15
}

func newTestTokenizer(t *testing.T, opts ...Option) *Tokenizer {
	t.Helper()
	tok, err := New(strings.NewReader(strings.Join(testVocab, "\n")+"\n"), opts...)
	require.NoError(t, err)
	return tok
}

func TestNew_RequiresSpecialTokens(t *testing.T) {
	for _, special := range []string{TokenUnknown, TokenCLS, TokenSEP, TokenPad} {
		t.Run(special, func(t *testing.T) {
			// Given: a vocabulary missing one special token
			var lines []string
			for _, tok := range testVocab {
				if tok != special {
					lines = append(lines, tok)
				}
			}

			// When: building a tokenizer
			tok, err := New(strings.NewReader(strings.Join(lines, "\n")))

			// Then: construction fails with the missing token named
			require.Error(t, err)
			assert.Nil(t, tok)
			assert.ErrorIs(t, err, ErrMissingSpecialTokens)
			assert.Contains(t, err.Error(), special)
			assert.True(t, verrors.IsFatal(err))
		})
	}
}

func TestTokenize_PadsToMaxLength(t *testing.T) {
	// Given: a tokenizer whose [PAD] has ID 0
	tok := newTestTokenizer(t)

	// When: tokenizing a short phrase
	ids := tok.Tokenize("hello world", 8)

	// Then: [CLS] hello world [SEP] followed by four [PAD]
	assert.Equal(t, []int32{2, 4, 5, 3, 0, 0, 0, 0}, ids)
	assert.Equal(t, []int32{1, 1, 1, 1, 0, 0, 0, 0}, tok.AttentionMask(ids))
}

func TestTokenize_LowercasesAndSplitsPunctuation(t *testing.T) {
	tok := newTestTokenizer(t)

	assert.Equal(t, []string{"hello", ",", "world", "!"}, tok.Tokens("Hello,   WORLD!"))
	assert.Equal(t, []string{"$", "tax", "##es"}, tok.Tokens("$taxes"))
}

func TestTokenize_GreedyLongestMatch(t *testing.T) {
	tok := newTestTokenizer(t)

	assert.Equal(t, []string{"un", "##aff", "##able"}, tok.Tokens("unaffable"))
}

func TestTokenize_UnknownRemainder(t *testing.T) {
	tok := newTestTokenizer(t)

	tests := []struct {
		name string
		text string
		want []string
	}{
		{"no prefix matches", "zebra", []string{"[UNK]"}},
		{"remainder unmatched", "unzip", []string{"un", "[UNK]"}},
		{"overlong word", strings.Repeat("a", MaxInputCharsPerWord+1), []string{"[UNK]"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tok.Tokens(tt.text))
		})
	}
}

func TestTokenize_TruncatesContent(t *testing.T) {
	// Given: more content than fits
	tok := newTestTokenizer(t)

	// When: tokenizing with room for two content tokens
	ids := tok.Tokenize("hello world hello world", 4)

	// Then: [CLS] hello world [SEP], no padding
	assert.Equal(t, []int32{2, 4, 5, 3}, ids)
	assert.Equal(t, []int32{1, 1, 1, 1}, tok.AttentionMask(ids))
}

func TestTokenize_TruncatesMidWord(t *testing.T) {
	tok := newTestTokenizer(t)

	ids := tok.Tokenize("unaffable", 4)

	assert.Equal(t, []int32{2, 6, 7, 3}, ids)
}

func TestTokenize_EmptyAndTinyLengths(t *testing.T) {
	tok := newTestTokenizer(t)

	assert.Equal(t, []int32{2, 3, 0, 0}, tok.Tokenize("   ", 4))
	assert.Equal(t, []int32{2, 3}, tok.Tokenize("hello", 0))
}

func TestTokenize_StripAccents(t *testing.T) {
	plain := newTestTokenizer(t)
	folded := newTestTokenizer(t, WithStripAccents(true))

	assert.Equal(t, []string{"café"}, plain.Tokens("Café"))
	assert.Equal(t, []string{"cafe"}, folded.Tokens("Café"))
}

func TestNew_KeepsLinePositionsAsIDs(t *testing.T) {
	// Given: a vocabulary with an unused blank line and CRLF endings
	vocab := "[PAD]\r\n[UNK]\r\n\r\n[CLS]\r\n[SEP]\r\nhello\r\n"

	tok, err := New(strings.NewReader(vocab))
	require.NoError(t, err)

	id, ok := tok.ID("hello")
	assert.True(t, ok)
	assert.Equal(t, int32(5), id)
	assert.Equal(t, 6, tok.VocabSize())
	assert.Equal(t, int32(0), tok.PadID())
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(testVocab, "\n")), 0o644))

	tok, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, len(testVocab), tok.VocabSize())

	_, err = Load(filepath.Join(t.TempDir(), "missing.txt"))
	assert.True(t, verrors.HasCode(err, verrors.ErrCodeConfigNotFound))
}
