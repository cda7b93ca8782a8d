// Package carlens re-exports the API client from pkg/sdk so callers can
// import the module root directly.
//
//	client := carlens.New("http://localhost:8080", carlens.WithAPIKey("secret"))
//	resp, _ := client.Search(ctx, carlens.SearchRequest{Query: "fast red bmw"})
package carlens

import (
	"net/http"
	"time"

	"github.com/kailas-cloud/carlens/pkg/sdk"
)

// Client is the carlens API client.
type Client = sdk.Client

// Option configures the client.
type Option = sdk.Option

// Request and response types.
type (
	SearchRequest  = sdk.SearchRequest
	SearchResponse = sdk.SearchResponse
	SearchResult   = sdk.SearchResult
	Intent         = sdk.Intent
	Analysis       = sdk.Analysis
	Image          = sdk.Image
	ImagePage      = sdk.ImagePage
	Job            = sdk.Job
	JobError       = sdk.JobError
	JobSkip        = sdk.JobSkip
	HealthStatus   = sdk.HealthStatus
	Stats          = sdk.Stats
	APIError       = sdk.APIError
)

// New creates a client for the carlens API at baseURL.
func New(baseURL string, opts ...Option) *Client { return sdk.New(baseURL, opts...) }

// WithAPIKey sets the Bearer token sent with every request.
func WithAPIKey(key string) Option { return sdk.WithAPIKey(key) }

// WithTimeout sets the per-request timeout on the default HTTP client.
func WithTimeout(d time.Duration) Option { return sdk.WithTimeout(d) }

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpc *http.Client) Option { return sdk.WithHTTPClient(httpc) }

// IsNotFound reports whether err is a 404 API error.
func IsNotFound(err error) bool { return sdk.IsNotFound(err) }

// IsConflict reports whether err is a 409 API error.
func IsConflict(err error) bool { return sdk.IsConflict(err) }

// IsUnauthorized reports whether err is a 401 API error.
func IsUnauthorized(err error) bool { return sdk.IsUnauthorized(err) }
