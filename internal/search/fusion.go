package search

import (
	"sort"
	"strings"
	"unicode"

	"github.com/Aman-CERP/vaultsearch/internal/store"
)

// candidate holds intermediate fusion state for one chunk.
type candidate struct {
	chunkID     int64
	itemID      string
	text        string
	pageNumber  *int
	lexScore    float64
	vecScore    float64
	fromLexical bool
	fromVector  bool
}

// Fuse merges lexical and vector hits into ranked results.
//
// Lexical ranks are min-max normalized over the returned hits (a single
// distinct rank maps to 1.0). Vector scores are raw similarities. Every
// lexical hit is kept, so the weakest keyword match survives normalization to
// 0; candidates found only by the vector leg are dropped below
// MinCombinedScore. Only the best chunk per item is kept, and the list is
// truncated to MaxResults.
func Fuse(lexical []store.LexicalHit, vec []VectorHit, cfg Config) []*Result {
	if len(lexical) == 0 && len(vec) == 0 {
		return []*Result{}
	}

	byID := make(map[int64]*candidate, len(lexical)+len(vec))

	if len(lexical) > 0 {
		minRank, maxRank := lexical[0].Rank, lexical[0].Rank
		for _, h := range lexical[1:] {
			minRank = min(minRank, h.Rank)
			maxRank = max(maxRank, h.Rank)
		}
		for _, h := range lexical {
			score := 1.0
			if maxRank > minRank {
				score = (maxRank - h.Rank) / (maxRank - minRank)
			}
			byID[h.ChunkID] = &candidate{
				chunkID:     h.ChunkID,
				itemID:      h.ItemID,
				text:        h.Text,
				pageNumber:  h.PageNumber,
				lexScore:    score,
				fromLexical: true,
			}
		}
	}

	for _, h := range vec {
		c, ok := byID[h.ChunkID]
		if !ok {
			c = &candidate{
				chunkID:    h.ChunkID,
				itemID:     h.ItemID,
				text:       h.Text,
				pageNumber: h.PageNumber,
			}
			byID[h.ChunkID] = c
		}
		c.vecScore = float64(h.Similarity)
		c.fromVector = true
	}

	results := make([]*Result, 0, len(byID))
	for _, c := range byID {
		combined := c.lexScore*cfg.LexicalWeight + c.vecScore*cfg.VectorWeight
		if !c.fromLexical && combined < cfg.MinCombinedScore {
			continue
		}
		results = append(results, &Result{
			ChunkID:      c.chunkID,
			ItemID:       c.itemID,
			Excerpt:      Excerpt(c.text, cfg.ExcerptLength),
			PageNumber:   c.pageNumber,
			Score:        combined,
			LexicalScore: c.lexScore,
			VectorScore:  c.vecScore,
			MatchType:    c.matchType(),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return less(results[i], results[j])
	})

	return truncate(dedupeByItem(results), cfg.MaxResults)
}

func (c *candidate) matchType() MatchType {
	switch {
	case c.lexScore != 0 && c.vecScore != 0:
		return MatchHybrid
	case c.lexScore != 0:
		return MatchKeyword
	case c.vecScore != 0:
		return MatchSemantic
	case c.fromLexical:
		return MatchKeyword
	default:
		return MatchSemantic
	}
}

// less orders by combined score, then hybrid before single-leg, then higher
// lexical score, then lower chunk ID.
func less(a, b *Result) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	aHybrid, bHybrid := a.MatchType == MatchHybrid, b.MatchType == MatchHybrid
	if aHybrid != bHybrid {
		return aHybrid
	}
	if a.LexicalScore != b.LexicalScore {
		return a.LexicalScore > b.LexicalScore
	}
	return a.ChunkID < b.ChunkID
}

// dedupeByItem keeps the first, best ranked, result of each item.
func dedupeByItem(sorted []*Result) []*Result {
	seen := make(map[string]struct{}, len(sorted))
	out := sorted[:0]
	for _, r := range sorted {
		if _, dup := seen[r.ItemID]; dup {
			continue
		}
		seen[r.ItemID] = struct{}{}
		out = append(out, r)
	}
	return out
}

func truncate(results []*Result, limit int) []*Result {
	if limit > 0 && len(results) > limit {
		return results[:limit]
	}
	return results
}

// Excerpt shortens text to at most maxRunes runes, cutting at the last word
// boundary when there is one, and appends an ellipsis. maxRunes <= 0 returns
// text unchanged.
func Excerpt(text string, maxRunes int) string {
	runes := []rune(text)
	if maxRunes <= 0 || len(runes) <= maxRunes {
		return text
	}
	cut := runes[:maxRunes]
	if !unicode.IsSpace(runes[maxRunes]) {
		for i := len(cut) - 1; i > 0; i-- {
			if unicode.IsSpace(cut[i]) {
				cut = cut[:i]
				break
			}
		}
	}
	return strings.TrimRightFunc(string(cut), unicode.IsSpace) + "…"
}
