// Package embeddings defines the Provider interface for vector embedding
// backends.
//
// Voxprint embeds writing-sample text for the similarity index (duplicate
// neighborhoods, referent suggestion). All vectors from one Provider share
// the dimensionality reported by Dimensions; vectors from different
// providers must never be mixed in the same similarity computation.
//
// Implementations must be safe for concurrent use.
package embeddings

import "context"

// Provider is the abstraction over any text-embedding backend.
type Provider interface {
	// Embed computes the embedding vector for a single text string. The
	// returned slice has length Dimensions().
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch computes embeddings for a slice of texts in one provider
	// call; the i-th result corresponds to texts[i]. On error no partial
	// results are returned.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the fixed length of every vector produced by this
	// provider.
	Dimensions() int

	// ModelID returns the backend model identifier, for logging and for
	// verifying consistent model usage across a deployment.
	ModelID() string
}
