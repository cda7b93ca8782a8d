package sdk

import (
	"context"
	"errors"
	"net/http"
)

// HealthStatus represents the aggregated system health.
type HealthStatus struct {
	Status string            `json:"status"` // "ok" or "degraded"
	Checks map[string]string `json:"checks"` // component name to "ok"/"error"
}

// Stats holds index and job counters.
type Stats struct {
	Images  int `json:"images"`
	Vectors int `json:"vectors"`
	Jobs    struct {
		Pending   int `json:"pending"`
		Running   int `json:"running"`
		Completed int `json:"completed"`
		Cancelled int `json:"cancelled"`
		Failed    int `json:"failed"`
	} `json:"jobs"`
}

// Health checks the health of all service components. A degraded
// service still returns a status payload, not an error.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var hs HealthStatus
	err := c.doJSON(ctx, http.MethodGet, "/health", nil, &hs)
	if err != nil {
		var apiErr *APIError
		// 503 carries the same payload with a degraded status.
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusServiceUnavailable {
			return &HealthStatus{Status: "degraded"}, nil
		}
		return nil, err
	}
	return &hs, nil
}

// Stats fetches image, vector and job counters.
func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	var s Stats
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/stats", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
