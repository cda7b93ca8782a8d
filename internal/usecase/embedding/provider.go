// Package embedding fuses text, image and color histogram signals into
// the fixed-width vectors stored in the index.
package embedding

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/carlens/internal/domain"
	"github.com/kailas-cloud/carlens/internal/imaging"
	"github.com/kailas-cloud/carlens/internal/metrics"
)

// Options select the optional image embedding stages.
type Options struct {
	UseColorHistogram bool
	UseCarDetection   bool
}

// Config tunes the provider's fusion weights.
type Config struct {
	// Width is the index-wide vector width; every output is
	// truncated or zero-padded to it.
	Width int
	// ImageWeight and TagWeight blend image and tag-text vectors.
	ImageWeight float64
	TagWeight   float64
	// VariationWeights combine query variation vectors.
	VariationWeights []float64
	// CropPadding expands detected vehicle boxes before cropping.
	CropPadding float64
}

// Provider produces all embedding flavors used by search and ingestion.
type Provider struct {
	text     TextEncoder
	image    ImageEncoder
	detector RegionDetector
	cfg      Config
	logger   *zap.Logger
}

// NewProvider creates an embedding provider. detector may be nil, which
// disables car detection regardless of per-call options.
func NewProvider(text TextEncoder, image ImageEncoder, detector RegionDetector, cfg Config, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{text: text, image: image, detector: detector, cfg: cfg, logger: logger}
}

// Width returns the index vector width.
func (p *Provider) Width() int { return p.cfg.Width }

// EmbedText encodes text and normalizes the result to the index width.
func (p *Provider) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vec, err := p.text.EncodeText(ctx, text)
	if err != nil {
		return nil, err
	}
	return domain.NormalizeDim(vec, p.cfg.Width), nil
}

// EmbedImage decodes, optionally crops to the detected vehicle, resizes to
// the encoder resolution and encodes the image. With the color histogram
// enabled the 192-entry RGB histogram is appended before width
// normalization.
func (p *Provider) EmbedImage(ctx context.Context, data []byte, opts Options) ([]float32, error) {
	img, _, err := imaging.Decode(data)
	if err != nil {
		return nil, err
	}

	if opts.UseCarDetection && p.detector != nil {
		region, derr := p.detector.DetectBest(ctx, data)
		switch {
		case derr != nil:
			// Detector failure is non-fatal; fall back to the full frame.
			metrics.DetectionsTotal.WithLabelValues("error").Inc()
			p.logger.Warn("vehicle detection failed, using full image", zap.Error(derr))
		case region == nil:
			metrics.DetectionsTotal.WithLabelValues("no_vehicle").Inc()
		default:
			metrics.DetectionsTotal.WithLabelValues("cropped").Inc()
			img = imaging.Crop(img, *region, p.cfg.CropPadding)
		}
	}

	square := imaging.ResizeSquare(img)
	jpegBytes, err := imaging.EncodeJPEG(square)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEncoding, err)
	}

	vec, err := p.image.EncodeImage(ctx, jpegBytes)
	if err != nil {
		return nil, err
	}

	if opts.UseColorHistogram {
		vec = append(vec, imaging.Histogram(square)...)
	}
	return domain.NormalizeDim(vec, p.cfg.Width), nil
}

// EmbedEnhanced blends the image embedding with a text embedding of the
// joined tags. Untagged images get the plain image embedding.
func (p *Provider) EmbedEnhanced(ctx context.Context, data []byte, tags []string, opts Options) ([]float32, error) {
	imgVec, err := p.EmbedImage(ctx, data, opts)
	if err != nil {
		return nil, err
	}
	if len(tags) == 0 {
		return imgVec, nil
	}

	tagVec, err := p.EmbedText(ctx, strings.Join(tags, " "))
	if err != nil {
		return nil, err
	}
	blended := domain.Blend(imgVec, tagVec, p.cfg.ImageWeight, p.cfg.TagWeight)
	return domain.NormalizeDim(blended, p.cfg.Width), nil
}

// EmbedQuery encodes each query variation and combines them with the
// configured variation weights. A single variation passes through as-is.
func (p *Provider) EmbedQuery(ctx context.Context, variations []string) ([]float32, error) {
	if len(variations) == 0 {
		return nil, fmt.Errorf("%w: no variations", domain.ErrInvalidQuery)
	}

	vectors := make([][]float32, 0, len(variations))
	for _, v := range variations {
		vec, err := p.EmbedText(ctx, v)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, vec)
	}

	combined := domain.WeightedCombine(vectors, p.cfg.VariationWeights)
	return domain.NormalizeDim(combined, p.cfg.Width), nil
}
