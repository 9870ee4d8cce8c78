package embedding

import "context"

// Embedder converts free text into a fixed-length numeric vector.
// Implementations must be deterministic for identical input text and safe
// for concurrent use; a single instance is constructed at process start and
// shared by every session.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float64, error)
}
