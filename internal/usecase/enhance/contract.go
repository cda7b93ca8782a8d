package enhance

import "context"

// QueryEmbedder turns query variations into one combined vector.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, variations []string) ([]float32, error)
}
