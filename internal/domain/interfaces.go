package domain

import "context"

// Embedder converts free text into a fixed-length numeric vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Generator produces completion text for a prompt. Implementations must
// bound the call with the context deadline and report token usage errors
// distinguishably from timeouts.
type Generator interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// VectorRetriever performs similarity search over the indexed corpus.
// It returns at most topK hits, each with similarity >= threshold; an empty
// result is valid and not an error.
type VectorRetriever interface {
	Search(ctx context.Context, vector []float32, topK int, threshold float64, filter SearchFilter) ([]SearchHit, error)
}
