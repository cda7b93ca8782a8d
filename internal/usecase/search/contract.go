package search

import (
	"context"

	"github.com/kailas-cloud/carlens/internal/domain/query"
	"github.com/kailas-cloud/carlens/internal/domain/search"
)

// Enhancer runs intent analysis, query expansion and query embedding.
type Enhancer interface {
	Process(ctx context.Context, raw string, forceHistogram bool) (*query.Context, error)
}

// Retriever queries the vector index.
type Retriever interface {
	NearestNeighbors(ctx context.Context, vector []float32, k int, maxDistance float64, tagFilter []string) ([]search.Candidate, error)
	Count(ctx context.Context) (int, error)
}
