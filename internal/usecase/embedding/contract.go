package embedding

import (
	"context"

	"github.com/kailas-cloud/carlens/internal/domain"
)

// TextEncoder vectorizes text, usually through the cache decorator.
type TextEncoder interface {
	EncodeText(ctx context.Context, text string) ([]float32, error)
}

// ImageEncoder vectorizes preprocessed image bytes.
type ImageEncoder interface {
	EncodeImage(ctx context.Context, imageBytes []byte) ([]float32, error)
}

// RegionDetector finds the best vehicle region in an image.
type RegionDetector interface {
	DetectBest(ctx context.Context, imageBytes []byte) (*domain.Region, error)
}
