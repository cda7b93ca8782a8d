package clip

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/carlens/internal/domain"
	"github.com/kailas-cloud/carlens/internal/metrics"
)

// ImageEncoder encodes images via the sidecar's base64 JSON endpoint.
type ImageEncoder struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// ImageConfig holds the image encoder settings.
type ImageConfig struct {
	BaseURL string
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewImageEncoder creates an image encoder client.
func NewImageEncoder(cfg *ImageConfig) *ImageEncoder {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &ImageEncoder{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  cfg.Logger,
	}
}

type imageEmbeddingRequest struct {
	Image string `json:"image"`
}

type imageEmbeddingResponse struct {
	Success   bool      `json:"success"`
	Embedding []float32 `json:"embedding"`
	Error     string    `json:"error"`
}

// EncodeImage implements domain.ImageEncoder. The bytes must be an
// encoded image (JPEG after preprocessing), sent base64 in JSON.
func (e *ImageEncoder) EncodeImage(ctx context.Context, imageBytes []byte) ([]float32, error) {
	body, err := json.Marshal(imageEmbeddingRequest{
		Image: base64.StdEncoding.EncodeToString(imageBytes),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal image request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/image-embedding", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build image request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := e.client.Do(req)
	duration := time.Since(start)

	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues("image", "clip", "error").Inc()
		return nil, fmt.Errorf("image embedding request: %w: %v", domain.ErrEncoding, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues("image", "clip", "error").Inc()
		return nil, fmt.Errorf("read image embedding response: %w", domain.ErrEncoding)
	}
	if resp.StatusCode != http.StatusOK {
		metrics.EmbeddingRequestsTotal.WithLabelValues("image", "clip", "error").Inc()
		return nil, fmt.Errorf("image embedding API error %d: %s: %w", resp.StatusCode, truncate(data, 256), domain.ErrEncoding)
	}

	var parsed imageEmbeddingResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues("image", "clip", "error").Inc()
		return nil, fmt.Errorf("decode image embedding response: %w", domain.ErrEncoding)
	}
	if !parsed.Success || len(parsed.Embedding) == 0 {
		metrics.EmbeddingRequestsTotal.WithLabelValues("image", "clip", "error").Inc()
		return nil, fmt.Errorf("image embedding failed: %s: %w", parsed.Error, domain.ErrEncoding)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues("image", "clip", "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues("image", "clip").Observe(duration.Seconds())

	return parsed.Embedding, nil
}

// HealthCheck pings the sidecar health endpoint.
func (e *ImageEncoder) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("sidecar health: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sidecar health status %d", resp.StatusCode)
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
