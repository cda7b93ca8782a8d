// Package search runs the query pipeline: enhance, embed, retrieve,
// score, threshold.
package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/carlens/internal/domain"
	domsearch "github.com/kailas-cloud/carlens/internal/domain/search"
	"github.com/kailas-cloud/carlens/internal/metrics"
)

const emptyIndexMessage = "No images found in database. Please upload some images first."

// Config tunes the retrieval and scoring defaults.
type Config struct {
	MaxDistance     float64
	OverfetchFactor int
	DefaultLimit    int
	MinSimilarity   float64
	SemanticWeight  float64
	KeywordWeight   float64
}

// Options are the per-request search parameters. Zero values fall back
// to the service defaults.
type Options struct {
	Limit           int
	MinSimilarity   float64
	HasMinSim       bool
	UseHybridSearch bool
	SemanticWeight  float64
	KeywordWeight   float64
}

// Service executes image searches.
type Service struct {
	enhancer  Enhancer
	retriever Retriever
	cfg       Config
	logger    *zap.Logger
	now       func() time.Time
}

// New creates a search service.
func New(enhancer Enhancer, retriever Retriever, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		enhancer:  enhancer,
		retriever: retriever,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// Search runs the full pipeline for one query.
func (s *Service) Search(ctx context.Context, rawQuery string, opts Options) (*domsearch.Response, error) {
	start := s.now()
	method := domsearch.MethodSemanticOnly
	if opts.UseHybridSearch {
		method = domsearch.MethodHybrid
	}

	resp, err := s.search(ctx, rawQuery, opts, method)

	switch {
	case err != nil:
		metrics.SearchesTotal.WithLabelValues(method, "error").Inc()
	case resp.SearchMethod == domsearch.MethodNone:
		metrics.SearchesTotal.WithLabelValues(method, "empty_index").Inc()
	default:
		metrics.SearchesTotal.WithLabelValues(method, "ok").Inc()
		metrics.SearchResults.Observe(float64(resp.TotalResults))
	}
	metrics.SearchDuration.Observe(s.now().Sub(start).Seconds())
	return resp, err
}

func (s *Service) search(ctx context.Context, rawQuery string, opts Options, method string) (*domsearch.Response, error) {
	query := strings.TrimSpace(rawQuery)
	if query == "" {
		return nil, domain.ErrInvalidQuery
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	minSim := s.cfg.MinSimilarity
	if opts.HasMinSim {
		minSim = opts.MinSimilarity
	}
	semW := opts.SemanticWeight
	if semW <= 0 {
		semW = s.cfg.SemanticWeight
	}
	keyW := opts.KeywordWeight
	if keyW <= 0 {
		keyW = s.cfg.KeywordWeight
	}

	total, err := s.retriever.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count index: %w", err)
	}
	if total == 0 {
		return &domsearch.Response{
			Query:         query,
			Results:       []domsearch.ScoredResult{},
			MinSimilarity: minSim,
			SearchMethod:  domsearch.MethodNone,
			Message:       emptyIndexMessage,
		}, nil
	}

	qc, err := s.enhancer.Process(ctx, query, false)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("query enhanced",
		zap.String("query", query),
		zap.String("enhanced", qc.EnhancedQuery),
		zap.Strings("extracted_tags", qc.ExtractedTags),
		zap.Bool("color_histogram", qc.UsedColorHistogram))

	candidates, err := s.retrieve(ctx, qc.Embedding, limit, qc.Intent.Terms())
	if err != nil {
		return nil, err
	}

	if len(candidates) > 0 && allVectorsEmpty(candidates) {
		return nil, domain.ErrEmptyEmbeddings
	}

	scored := scoreCandidates(candidates, scoreOptions{
		queryTags:      qc.ExtractedTags,
		rawQuery:       query,
		hybrid:         opts.UseHybridSearch,
		semanticWeight: semW,
		keywordWeight:  keyW,
		now:            s.now(),
	})

	outcome := applyThreshold(scored, minSim, qc.ExtractedTags)
	totalFound := len(outcome.kept)
	kept := outcome.kept
	if len(kept) > limit {
		kept = kept[:limit]
	}

	return &domsearch.Response{
		Query:         query,
		EnhancedQuery: qc.EnhancedQuery,
		Intent:        &qc.Intent,
		Results:       kept,
		TotalResults:  len(kept),
		TotalFound:    totalFound,
		MinSimilarity: outcome.effective,
		SearchMethod:  method,
	}, nil
}

// retrieve over-fetches semantically and, when the query produced
// lexical terms, unions in a tag-filtered pass to blend lexical recall
// into vector recall.
func (s *Service) retrieve(ctx context.Context, vector []float32, limit int, terms []string) ([]domsearch.Candidate, error) {
	k := limit * s.cfg.OverfetchFactor
	if k < limit {
		k = limit
	}

	candidates, err := s.retriever.NearestNeighbors(ctx, vector, k, s.cfg.MaxDistance, nil)
	if err != nil {
		return nil, err
	}
	if len(terms) == 0 {
		return candidates, nil
	}

	tagged, err := s.retriever.NearestNeighbors(ctx, vector, k, s.cfg.MaxDistance, terms)
	if err != nil {
		// Lexical recall is additive; semantic results alone still serve.
		s.logger.Warn("tag-filtered retrieval failed", zap.Error(err))
		return candidates, nil
	}

	seen := make(map[string]int, len(candidates))
	for i, c := range candidates {
		seen[c.VectorID] = i
	}
	for _, c := range tagged {
		if i, ok := seen[c.VectorID]; ok {
			candidates[i].SearchType = domsearch.TypeTagFiltered
			continue
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

func allVectorsEmpty(candidates []domsearch.Candidate) bool {
	for _, c := range candidates {
		if !domain.IsZeroVector(c.Vector) {
			return false
		}
	}
	return true
}
