package embed

import (
	"context"
	"encoding/binary"
	"hash/fnv"
	"sync"
)

// Weights for vector generation
const (
	unigramWeight = 1.0
	bigramWeight  = 0.5
)

// StaticRunner is a deterministic ModelRunner that needs no model files.
// Each attended token ID and each adjacent ID pair is hashed to a signed
// dimension. Texts sharing tokens get positive similarity; it has no
// understanding of synonyms.
type StaticRunner struct {
	dims int

	mu     sync.Mutex
	loaded bool
}

var _ ModelRunner = (*StaticRunner)(nil)

// NewStaticRunner creates a runner producing dims-sized vectors.
func NewStaticRunner(dims int) *StaticRunner {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &StaticRunner{dims: dims}
}

// Load marks the runner ready.
func (r *StaticRunner) Load(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaded = true
	return nil
}

// Unload marks the runner unloaded.
func (r *StaticRunner) Unload() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaded = false
	return nil
}

// Run hashes the content tokens between [CLS] and [SEP].
func (r *StaticRunner) Run(ctx context.Context, ids, mask []int32) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Attended positions minus the leading [CLS] and trailing [SEP].
	var content []int32
	for i, id := range ids {
		if i < len(mask) && mask[i] == 1 {
			content = append(content, id)
		}
	}
	if len(content) >= 2 {
		content = content[1 : len(content)-1]
	}

	vec := make([]float32, r.dims)
	if len(content) == 0 {
		// Empty text still gets a fixed, non-zero direction.
		vec[0] = 1
		return vec, nil
	}
	for i, id := range content {
		idx, sign := r.bucket(uint64(uint32(id)))
		vec[idx] += sign * unigramWeight
		if i > 0 {
			pair := uint64(uint32(content[i-1]))<<32 | uint64(uint32(id))
			idx, sign = r.bucket(pair ^ 0x9e3779b97f4a7c15)
			vec[idx] += sign * bigramWeight
		}
	}
	return vec, nil
}

// bucket maps a key to a dimension and a sign.
func (r *StaticRunner) bucket(key uint64) (int, float32) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], key)
	h := fnv.New64a()
	_, _ = h.Write(buf[:])
	sum := h.Sum64()

	sign := float32(1)
	if sum>>63 == 1 {
		sign = -1
	}
	return int(sum % uint64(r.dims)), sign
}

// Dimensions returns the vector size.
func (r *StaticRunner) Dimensions() int {
	return r.dims
}

// Name identifies the runner.
func (r *StaticRunner) Name() string {
	return "static-wordpiece"
}
