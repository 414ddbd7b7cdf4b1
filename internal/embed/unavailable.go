package embed

import "context"

// UnavailableEmbedder stands in when no model can be built, for example a
// missing vocabulary file. Load always fails with ErrModelUnavailable, so
// ingestion runs lexical-only and search skips its vector leg.
type UnavailableEmbedder struct {
	model  string
	dims   int
	reason error
}

var _ Embedder = (*UnavailableEmbedder)(nil)

// Unavailable returns an embedder whose Load reports cause.
func Unavailable(model string, dims int, cause error) *UnavailableEmbedder {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &UnavailableEmbedder{model: model, dims: dims, reason: cause}
}

// Load implements Embedder.
func (u *UnavailableEmbedder) Load(context.Context) error {
	return modelUnavailable(u.model, "embedding model is not available", u.reason)
}

// Unload implements Embedder.
func (u *UnavailableEmbedder) Unload() error { return nil }

// Embed implements Embedder.
func (u *UnavailableEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, modelUnavailable(u.model, "embedding model is not available", u.reason)
}

// Dimensions implements Embedder.
func (u *UnavailableEmbedder) Dimensions() int { return u.dims }

// ModelName implements Embedder.
func (u *UnavailableEmbedder) ModelName() string { return u.model }
