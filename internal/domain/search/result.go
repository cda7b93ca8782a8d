// Package search defines scored search results and the search response.
package search

import "github.com/kailas-cloud/carlens/internal/domain/query"

// SearchType records which retrieval path produced a candidate.
const (
	TypeSemantic    = "semantic"
	TypeTagFiltered = "semantic-tag-filtered"
	TypeHybrid      = "hybrid"
)

// Method values reported in the search response.
const (
	MethodNone         = "none"
	MethodSemanticOnly = "semantic-only"
	MethodHybrid       = "hybrid"
)

// Candidate is a raw vector index hit before scoring.
type Candidate struct {
	VectorID     string
	Distance     float64
	HasDistance  bool
	Vector       []float32
	Filename     string
	OriginalName string
	FilePath     string
	Tags         []string
	SearchType   string
	UploadedAt   int64 // unix millis, 0 when unknown
}

// ScoredResult is a candidate after scoring and re-ranking.
type ScoredResult struct {
	VectorID           string   `json:"id"`
	Filename           string   `json:"filename"`
	OriginalName       string   `json:"originalName"`
	FilePath           string   `json:"filePath"`
	Tags               []string `json:"tags"`
	Similarity         float64  `json:"similarity"`
	OriginalSimilarity float64  `json:"originalSimilarity"`
	Distance           float64  `json:"distance,omitempty"`
	HasDistance        bool     `json:"-"`
	SearchType         string   `json:"searchType"`
	UploadedAt         int64    `json:"uploadedAt,omitempty"`
}

// Response is the full search pipeline output.
type Response struct {
	Query         string         `json:"query"`
	EnhancedQuery string         `json:"enhancedQuery"`
	Intent        *query.Intent  `json:"intent,omitempty"`
	Results       []ScoredResult `json:"results"`
	TotalResults  int            `json:"totalResults"`
	TotalFound    int            `json:"totalFound"`
	MinSimilarity float64        `json:"minSimilarity"`
	SearchMethod  string         `json:"searchMethod"`
	Message       string         `json:"message,omitempty"`
}
