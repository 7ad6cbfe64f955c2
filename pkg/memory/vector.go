package memory

import "context"

// VectorStore is the vector database surface run memory needs: idempotent
// collection ensure, point upsert, and nearest-vector search.
type VectorStore interface {
	// EnsureCollection creates the collection when it does not exist yet.
	EnsureCollection(ctx context.Context, name string, vectorSize uint64) error
	// Upsert adds or updates points in the collection.
	Upsert(ctx context.Context, collection string, points []Point) error
	// Search returns the points nearest to the vector, best first.
	Search(ctx context.Context, collection string, vector []float32, limit int, scoreThreshold float32) ([]SearchResult, error)
}

// Point is one stored vector with its payload.
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

// SearchResult is one scored hit from a vector search.
type SearchResult struct {
	ID      string
	Score   float32
	Payload map[string]any
}

// Embedder converts text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
