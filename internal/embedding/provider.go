package embedding

import "context"

// Provider turns abstract and query text into fixed-length vectors. The
// engine treats implementations as interchangeable as long as Dimensions
// matches the configured index dimensionality.
type Provider interface {
	// Embed encodes one text into a vector of Dimensions length.
	Embed(ctx context.Context, text string) (Embedding, error)

	// ModelName identifies the underlying embedding model.
	ModelName() string

	// Dimensions is the length of every vector Embed produces.
	Dimensions() int
}
