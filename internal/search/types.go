// Package search answers free-text queries by combining an FTS5 keyword leg
// with a best-effort embedding similarity leg and fusing the two score lists.
package search

import (
	"fmt"

	verrors "github.com/Aman-CERP/vaultsearch/internal/errors"
)

// MatchType tells which legs contributed to a result.
type MatchType string

const (
	MatchKeyword  MatchType = "keyword"
	MatchSemantic MatchType = "semantic"
	MatchHybrid   MatchType = "hybrid"
)

// Result is one ranked chunk. Scores are derived per query and never stored.
type Result struct {
	ChunkID      int64     `json:"chunk_id"`
	ItemID       string    `json:"item_id"`
	Excerpt      string    `json:"excerpt"`
	PageNumber   *int      `json:"page_number,omitempty"`
	Score        float64   `json:"score"`
	LexicalScore float64   `json:"lexical_score"`
	VectorScore  float64   `json:"vector_score"`
	MatchType    MatchType `json:"match_type"`
}

// VectorHit is a hydrated similarity match.
type VectorHit struct {
	ChunkID    int64
	ItemID     string
	Text       string
	PageNumber *int
	Similarity float32
}

// Config holds fusion weights, thresholds and limits.
type Config struct {
	LexicalWeight    float64
	VectorWeight     float64
	MinCombinedScore float64
	MinSimilarity    float64
	LexicalLimit     int
	VectorLimit      int
	MaxResults       int

	// ExcerptLength caps excerpts in runes; 0 keeps the full chunk text.
	ExcerptLength int
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() Config {
	return Config{
		LexicalWeight:    0.4,
		VectorWeight:     0.6,
		MinCombinedScore: 0.05,
		MinSimilarity:    0.25,
		LexicalLimit:     20,
		VectorLimit:      20,
		MaxResults:       20,
		ExcerptLength:    300,
	}
}

// Validate rejects configurations the engine cannot run with.
func (c Config) Validate() error {
	switch {
	case c.LexicalWeight < 0 || c.VectorWeight < 0:
		return verrors.ConfigError("search weights must not be negative", nil)
	case c.LexicalWeight+c.VectorWeight == 0:
		return verrors.ConfigError("at least one search weight must be positive", nil)
	case c.MinSimilarity < -1 || c.MinSimilarity > 1:
		return verrors.ConfigError(fmt.Sprintf("min_similarity %.2f outside [-1, 1]", c.MinSimilarity), nil)
	case c.LexicalLimit <= 0 || c.VectorLimit <= 0 || c.MaxResults <= 0:
		return verrors.ConfigError("search limits must be positive", nil)
	case c.ExcerptLength < 0:
		return verrors.ConfigError("excerpt_length must not be negative", nil)
	}
	return nil
}
