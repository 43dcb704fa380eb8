// Package embed provides the embedding collaborator: a service object
// constructed once at startup and shared by reference between the
// indexing pipeline and the retriever. Implementations return
// fixed-dimension, unit-normalized float32 vectors, order-preserving
// over batches.
package embed

import (
	"context"
	"math"
	"time"
)

// Common embedding constants.
const (
	// DefaultBatchSize caps the inputs sent in one embedding request.
	// Larger batches are split transparently.
	DefaultBatchSize = 256

	// DefaultTimeout is the default timeout for one embedding request.
	DefaultTimeout = 60 * time.Second

	// DefaultDimensions is the vector size of the default Ollama model.
	DefaultDimensions = 384

	// StaticDimensions is the vector size of the hash-based embedder.
	StaticDimensions = 256
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates the embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates one embedding per input text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension.
	Dimensions() int

	// ModelName returns the model identifier.
	ModelName() string

	// Close releases resources.
	Close() error
}

// normalizeVector normalizes a vector to unit length. The zero vector is
// returned unchanged.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}
