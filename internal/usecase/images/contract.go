package images

import (
	"context"

	"github.com/kailas-cloud/carlens/internal/domain/image"
	"github.com/kailas-cloud/carlens/internal/repository/vector"
	"github.com/kailas-cloud/carlens/internal/usecase/embedding"
)

// Repository is the relational store for image records.
type Repository interface {
	Create(ctx context.Context, rec *image.Record) error
	Get(ctx context.Context, id int64) (image.Record, error)
	FindByFilePath(ctx context.Context, filePath string) (image.Record, error)
	FindByOriginalName(ctx context.Context, originalName string) (image.Record, error)
	List(ctx context.Context, offset, limit int) ([]image.Record, error)
	Count(ctx context.Context) (int, error)
	UpdateTags(ctx context.Context, rec *image.Record) error
	Delete(ctx context.Context, id int64) error
}

// VectorIndex holds the image embeddings and denormalized attributes.
type VectorIndex interface {
	Upsert(ctx context.Context, id string, vec []float32, attrs vector.Attrs) error
	UpdateTags(ctx context.Context, id string, tags []string) error
	Delete(ctx context.Context, id string) error
}

// Embedder produces the stored image+tag fused embedding.
type Embedder interface {
	EmbedEnhanced(ctx context.Context, data []byte, tags []string, opts embedding.Options) ([]float32, error)
}

// FileStore persists uploaded image bytes.
type FileStore interface {
	Save(filename string, data []byte) (path string, err error)
	Remove(path string) error
}
