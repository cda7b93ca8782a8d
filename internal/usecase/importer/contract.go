package importer

import (
	"context"

	"github.com/kailas-cloud/carlens/internal/domain/image"
	"github.com/kailas-cloud/carlens/internal/usecase/images"
)

// Uploader ingests one image end to end.
type Uploader interface {
	Upload(ctx context.Context, in images.UploadInput) (image.Record, error)
}

// FileReader loads image bytes referenced by CSV rows.
type FileReader interface {
	Read(path string) ([]byte, error)
}
