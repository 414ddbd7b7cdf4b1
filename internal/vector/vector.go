// Package vector holds the float32 vector math and the on-disk blob codec
// shared by the embedding adapters, the index store and the search engine.
package vector

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
)

// Dimensions is the embedding size of all-MiniLM-L6-v2.
const Dimensions = 384

// Dot returns the dot product of a and b over their common length.
// For L2-normalized vectors this is the cosine similarity.
func Dot(a, b []float32) float32 {
	n := min(len(a), len(b))
	var sum float32
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

// Norm returns the L2 norm of v.
func Norm(v []float32) float64 {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	return math.Sqrt(sumSquares)
}

// Normalize returns a unit-length copy of v. A zero vector is returned as-is.
func Normalize(v []float32) []float32 {
	magnitude := Norm(v)
	if magnitude == 0 {
		return v
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / magnitude)
	}
	return out
}

// Encode packs v as little-endian float32 values.
func Encode(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(x))
	}
	return buf
}

// Decode unpacks a blob written by Encode. The blob must hold exactly dims values.
func Decode(blob []byte, dims int) ([]float32, error) {
	if len(blob) != dims*4 {
		return nil, fmt.Errorf("vector blob has %d bytes, want %d", len(blob), dims*4)
	}
	v := make([]float32, dims)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return v, nil
}

// Scored is a candidate ID with its similarity.
type Scored struct {
	ID    int64
	Score float32
}

// TopK returns the k best candidates, highest score first, ties by lower ID.
// The input slice is reordered.
func TopK(candidates []Scored, k int) []Scored {
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].ID < candidates[j].ID
	})
	if k >= 0 && len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates
}
