package memory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

const defaultScoreThreshold = 0.6

// VectorMemory stores run summaries in a vector index keyed by embeddings
// of their rendered text.
type VectorMemory struct {
	store      VectorStore
	embedder   Embedder
	collection string
	threshold  float32
}

// VectorOption configures a VectorMemory.
type VectorOption func(*VectorMemory)

// WithScoreThreshold sets the minimum similarity score for retrieval hits.
func WithScoreThreshold(threshold float32) VectorOption {
	return func(vm *VectorMemory) {
		vm.threshold = threshold
	}
}

// NewVectorMemory creates a vector-backed run memory over the given store
// and embedder.
func NewVectorMemory(store VectorStore, embedder Embedder, collection string, opts ...VectorOption) (*VectorMemory, error) {
	if store == nil {
		return nil, fmt.Errorf("store is nil")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is nil")
	}
	if collection == "" {
		return nil, fmt.Errorf("collection is required")
	}
	vm := &VectorMemory{
		store:      store,
		embedder:   embedder,
		collection: collection,
		threshold:  defaultScoreThreshold,
	}
	for _, opt := range opts {
		opt(vm)
	}
	return vm, nil
}

// Initialize probes the embedder for its dimension and ensures the
// collection exists. Call once before the first Record or Retrieve.
func (vm *VectorMemory) Initialize(ctx context.Context) error {
	vec, err := vm.embedder.Embed(ctx, "praxis")
	if err != nil {
		return fmt.Errorf("probe embedding dimension: %w", err)
	}
	if len(vec) == 0 {
		return fmt.Errorf("embedder returned an empty vector")
	}
	return vm.store.EnsureCollection(ctx, vm.collection, uint64(len(vec)))
}

// Record embeds the rendered summary and upserts it as one point. The run
// id doubles as the point id so re-recording a run overwrites its entry.
func (vm *VectorMemory) Record(ctx context.Context, summary RunSummary) error {
	text := summary.Render()
	vector, err := vm.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embed summary: %w", err)
	}
	id := summary.RunID
	if id == "" {
		id = uuid.NewString()
	}
	point := Point{
		ID:     id,
		Vector: vector,
		Payload: map[string]any{
			"text":         text,
			"run_id":       summary.RunID,
			"goal":         summary.Goal,
			"outcome":      summary.Outcome,
			"completed_at": summary.CompletedAt.UTC().Unix(),
		},
	}
	if err := vm.store.Upsert(ctx, vm.collection, []Point{point}); err != nil {
		return fmt.Errorf("store summary: %w", err)
	}
	return nil
}

// Retrieve embeds the query and returns the rendered text of the nearest
// summaries above the score threshold.
func (vm *VectorMemory) Retrieve(ctx context.Context, query string, k int) ([]string, error) {
	if k <= 0 {
		return nil, nil
	}
	vector, err := vm.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	results, err := vm.store.Search(ctx, vm.collection, vector, k, vm.threshold)
	if err != nil {
		return nil, fmt.Errorf("search run memory: %w", err)
	}
	out := make([]string, 0, len(results))
	for _, r := range results {
		if text, ok := r.Payload["text"].(string); ok {
			out = append(out, text)
		}
	}
	return out, nil
}

var _ Memory = (*VectorMemory)(nil)
