// Package detector provides the vehicle region detector client.
package detector

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
)

// Client calls the object detection sidecar and keeps the most confident
// vehicle box. Detection failures are reported as domain.ErrDetection;
// callers fall back to the full image.
type Client struct {
	baseURL       string
	minConfidence float64
	client        *http.Client
	logger        *zap.Logger
}

// Config holds the detector client settings.
type Config struct {
	BaseURL       string
	MinConfidence float64
	Timeout       time.Duration
	Logger        *zap.Logger
}

// New creates a detector client.
func New(cfg *Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 20 * time.Second
	}
	minConfidence := cfg.MinConfidence
	if minConfidence == 0 {
		minConfidence = 0.3
	}
	return &Client{
		baseURL:       cfg.BaseURL,
		minConfidence: minConfidence,
		client:        &http.Client{Timeout: timeout},
		logger:        cfg.Logger,
	}
}

type detectRequest struct {
	Image string `json:"image"`
}

type detection struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
	Box   struct {
		XMin float64 `json:"xmin"`
		YMin float64 `json:"ymin"`
		XMax float64 `json:"xmax"`
		YMax float64 `json:"ymax"`
	} `json:"box"`
}

type detectResponse struct {
	Success    bool        `json:"success"`
	Detections []detection `json:"detections"`
	Error      string      `json:"error"`
}

// vehicleLabels are the detector classes treated as vehicles.
var vehicleLabels = map[string]bool{
	"car": true, "motorcycle": true, "bus": true, "truck": true,
}

// DetectBest implements domain.RegionDetector. Returns nil with nil
// error when no vehicle clears the confidence floor.
func (c *Client) DetectBest(ctx context.Context, imageBytes []byte) (*domain.Region, error) {
	body, err := json.Marshal(detectRequest{
		Image: base64.StdEncoding.EncodeToString(imageBytes),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal detect request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/detect", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build detect request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detect request: %w: %v", domain.ErrDetection, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read detect response: %w", domain.ErrDetection)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("detect API error %d: %w", resp.StatusCode, domain.ErrDetection)
	}

	var parsed detectResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("decode detect response: %w", domain.ErrDetection)
	}
	if !parsed.Success {
		return nil, fmt.Errorf("detect failed: %s: %w", parsed.Error, domain.ErrDetection)
	}

	var best *domain.Region
	for _, d := range parsed.Detections {
		if !vehicleLabels[d.Label] || d.Score < c.minConfidence {
			continue
		}
		if best == nil || d.Score > best.Confidence {
			best = &domain.Region{
				XMin:       d.Box.XMin,
				YMin:       d.Box.YMin,
				XMax:       d.Box.XMax,
				YMax:       d.Box.YMax,
				Confidence: d.Score,
				Label:      d.Label,
			}
		}
	}
	return best, nil
}
