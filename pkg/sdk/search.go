package sdk

import (
	"context"
	"net/http"
	"net/url"
)

// SearchRequest holds search parameters. Only Query is required.
type SearchRequest struct {
	Query           string   `json:"query"`
	Limit           int      `json:"limit,omitempty"`
	MinSimilarity   *float64 `json:"minSimilarity,omitempty"`
	UseHybridSearch bool     `json:"useHybridSearch,omitempty"`
	SemanticWeight  float64  `json:"semanticWeight,omitempty"`
	KeywordWeight   float64  `json:"keywordWeight,omitempty"`
}

// Intent is the recognized automotive vocabulary of a query.
type Intent struct {
	Color       []string `json:"color,omitempty"`
	VehicleType []string `json:"vehicleType,omitempty"`
	Features    []string `json:"features,omitempty"`
	Brand       []string `json:"brand,omitempty"`
	Style       []string `json:"style,omitempty"`
	Performance []string `json:"performance,omitempty"`
}

// SearchResult is one scored hit.
type SearchResult struct {
	ID                 string   `json:"id"`
	Filename           string   `json:"filename"`
	OriginalName       string   `json:"originalName"`
	FilePath           string   `json:"filePath"`
	Tags               []string `json:"tags"`
	Similarity         float64  `json:"similarity"`
	OriginalSimilarity float64  `json:"originalSimilarity"`
	SearchType         string   `json:"searchType"`
}

// SearchResponse is the full search output.
type SearchResponse struct {
	Query         string         `json:"query"`
	EnhancedQuery string         `json:"enhancedQuery"`
	Intent        *Intent        `json:"intent,omitempty"`
	Results       []SearchResult `json:"results"`
	TotalResults  int            `json:"totalResults"`
	TotalFound    int            `json:"totalFound"`
	MinSimilarity float64        `json:"minSimilarity"`
	SearchMethod  string         `json:"searchMethod"`
	Message       string         `json:"message,omitempty"`
}

// Search runs a text query against the image index.
func (c *Client) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	var resp SearchResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/search", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Suggestions returns typeahead phrases for a partial query.
func (c *Client) Suggestions(ctx context.Context, partial string) ([]string, error) {
	var resp struct {
		Suggestions []string `json:"suggestions"`
	}
	path := "/api/v1/search/suggestions?q=" + url.QueryEscape(partial)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Suggestions, nil
}

// Analysis is the query breakdown without running a search.
type Analysis struct {
	Query         string   `json:"query"`
	Intent        Intent   `json:"intent"`
	EnhancedQuery string   `json:"enhancedQuery"`
	ExtractedTags []string `json:"extractedTags"`
	Suggestions   []string `json:"suggestions"`
}

// Analyze returns intent analysis and query expansion for a query.
func (c *Client) Analyze(ctx context.Context, query string) (*Analysis, error) {
	var resp Analysis
	req := struct {
		Query string `json:"query"`
	}{Query: query}
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/search/analyze", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
