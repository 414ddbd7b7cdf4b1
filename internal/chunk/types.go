package chunk

import (
	"fmt"
)

// Window defaults, in words.
const (
	DefaultTargetWords  = 200 // Preferred window length
	DefaultMaxWords     = 300 // Hard cap when extending to a sentence end
	DefaultOverlapWords = 40  // Words shared by consecutive windows
	DefaultMinWords     = 50  // Shorter pages stay whole; shorter tails fold back
)

// PageInput is one page of extracted text.
type PageInput struct {
	Text       string // Plain text of the page
	PageNumber *int   // 1-based page, nil for single-page sources
}

// Chunk is a retrievable unit of an item's text.
type Chunk struct {
	Index      int    // Zero-based, increasing across all pages of the item
	PageNumber *int   // Copied from the source page
	Text       string // Original page text spanning the window
	WordCount  int    // Whitespace-separated words in Text
}

// Config controls the sliding window.
type Config struct {
	TargetWords  int
	MaxWords     int
	OverlapWords int
	MinWords     int
}

// DefaultConfig returns the default window sizes.
func DefaultConfig() Config {
	return Config{
		TargetWords:  DefaultTargetWords,
		MaxWords:     DefaultMaxWords,
		OverlapWords: DefaultOverlapWords,
		MinWords:     DefaultMinWords,
	}
}

// Validate checks the window sizes are coherent.
func (c Config) Validate() error {
	switch {
	case c.MinWords <= 0:
		return fmt.Errorf("min words must be positive, got %d", c.MinWords)
	case c.TargetWords <= 0:
		return fmt.Errorf("target words must be positive, got %d", c.TargetWords)
	case c.MaxWords < c.TargetWords:
		return fmt.Errorf("max words (%d) must be at least target words (%d)", c.MaxWords, c.TargetWords)
	case c.MinWords > c.MaxWords:
		return fmt.Errorf("min words (%d) must not exceed max words (%d)", c.MinWords, c.MaxWords)
	case c.OverlapWords < 0:
		return fmt.Errorf("overlap words must not be negative, got %d", c.OverlapWords)
	}
	return nil
}

// IntPtr returns a pointer to n, for building PageInput literals.
func IntPtr(n int) *int {
	return &n
}
