package search

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/carlens/internal/domain"
	"github.com/kailas-cloud/carlens/internal/domain/query"
	domsearch "github.com/kailas-cloud/carlens/internal/domain/search"
)

type mockEnhancer struct {
	ctx *query.Context
	err error
}

func (m *mockEnhancer) Process(_ context.Context, raw string, _ bool) (*query.Context, error) {
	if m.err != nil {
		return nil, m.err
	}
	qc := *m.ctx
	qc.RawQuery = raw
	return &qc, nil
}

type mockRetriever struct {
	count      int
	countErr   error
	candidates []domsearch.Candidate
	tagged     []domsearch.Candidate
	searchErr  error
	calls      []retrieveCall
}

type retrieveCall struct {
	k         int
	tagFilter []string
}

func (m *mockRetriever) NearestNeighbors(_ context.Context, _ []float32, k int, _ float64, tagFilter []string) ([]domsearch.Candidate, error) {
	m.calls = append(m.calls, retrieveCall{k: k, tagFilter: tagFilter})
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	if len(tagFilter) > 0 {
		return m.tagged, nil
	}
	return m.candidates, nil
}

func (m *mockRetriever) Count(_ context.Context) (int, error) {
	return m.count, m.countErr
}

func testConfig() Config {
	return Config{
		MaxDistance:     1.5,
		OverfetchFactor: 3,
		DefaultLimit:    10,
		MinSimilarity:   0.35,
		SemanticWeight:  0.7,
		KeywordWeight:   0.3,
	}
}

func plainContext() *query.Context {
	return &query.Context{
		EnhancedQuery: "enhanced",
		Variations:    []string{"enhanced"},
		Embedding:     []float32{0.1, 0.2},
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	s := New(&mockEnhancer{ctx: plainContext()}, &mockRetriever{count: 5}, testConfig(), zap.NewNop())

	_, err := s.Search(context.Background(), "   ", Options{})
	if !errors.Is(err, domain.ErrInvalidQuery) {
		t.Errorf("error = %v, want ErrInvalidQuery", err)
	}
}

func TestSearch_EmptyIndex(t *testing.T) {
	s := New(&mockEnhancer{ctx: plainContext()}, &mockRetriever{count: 0}, testConfig(), zap.NewNop())

	resp, err := s.Search(context.Background(), "red car", Options{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if resp.TotalResults != 0 || resp.TotalFound != 0 {
		t.Errorf("totals = %d/%d, want 0/0", resp.TotalResults, resp.TotalFound)
	}
	if resp.SearchMethod != domsearch.MethodNone {
		t.Errorf("method = %q, want %q", resp.SearchMethod, domsearch.MethodNone)
	}
	if resp.Message == "" {
		t.Error("empty index response carries no message")
	}
}

func TestSearch_EmptyEmbeddings(t *testing.T) {
	ret := &mockRetriever{
		count: 3,
		candidates: []domsearch.Candidate{
			{VectorID: "a", Vector: []float32{0, 0, 0}},
			{VectorID: "b", Vector: nil},
		},
	}
	s := New(&mockEnhancer{ctx: plainContext()}, ret, testConfig(), zap.NewNop())

	_, err := s.Search(context.Background(), "anything", Options{})
	if !errors.Is(err, domain.ErrEmptyEmbeddings) {
		t.Errorf("error = %v, want ErrEmptyEmbeddings", err)
	}
}

func TestSearch_NoRecognizedTokens(t *testing.T) {
	ret := &mockRetriever{
		count: 2,
		candidates: []domsearch.Candidate{
			{VectorID: "a", Distance: 0.1, HasDistance: true, Vector: []float32{1}, SearchType: domsearch.TypeSemantic},
			{VectorID: "b", Distance: 1.2, HasDistance: true, Vector: []float32{1}, SearchType: domsearch.TypeSemantic},
		},
	}
	s := New(&mockEnhancer{ctx: plainContext()}, ret, testConfig(), zap.NewNop())

	resp, err := s.Search(context.Background(), "sunset drive", Options{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(ret.calls) != 1 {
		t.Fatalf("retrieval calls = %d, want 1 (no tag filter pass)", len(ret.calls))
	}
	if ret.calls[0].k != 30 {
		t.Errorf("over-fetch k = %d, want 30", ret.calls[0].k)
	}
	// 0.9 passes the 0.35 floor, -0.2 does not.
	if resp.TotalResults != 1 || resp.Results[0].VectorID != "a" {
		t.Errorf("results = %+v", resp.Results)
	}
	if resp.SearchMethod != domsearch.MethodSemanticOnly {
		t.Errorf("method = %q", resp.SearchMethod)
	}
}

func TestSearch_TagFilterUnion(t *testing.T) {
	qc := plainContext()
	qc.Intent = query.Intent{Color: []string{"red"}}
	qc.ExtractedTags = []string{"red"}

	ret := &mockRetriever{
		count: 5,
		candidates: []domsearch.Candidate{
			{VectorID: "a", Distance: 0.05, HasDistance: true, Vector: []float32{1}, Tags: []string{"red"}, SearchType: domsearch.TypeSemantic},
		},
		tagged: []domsearch.Candidate{
			{VectorID: "a", Distance: 0.05, HasDistance: true, Vector: []float32{1}, Tags: []string{"red"}, SearchType: domsearch.TypeTagFiltered},
			{VectorID: "b", Distance: 0.1, HasDistance: true, Vector: []float32{1}, Tags: []string{"red", "suv"}, SearchType: domsearch.TypeTagFiltered},
		},
	}
	s := New(&mockEnhancer{ctx: qc}, ret, testConfig(), zap.NewNop())

	resp, err := s.Search(context.Background(), "red suv", Options{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(ret.calls) != 2 {
		t.Fatalf("retrieval calls = %d, want semantic + tag-filtered", len(ret.calls))
	}
	if resp.TotalFound != 2 {
		t.Errorf("totalFound = %d, want union of both passes", resp.TotalFound)
	}
	for _, r := range resp.Results {
		if r.SearchType != domsearch.TypeTagFiltered {
			t.Errorf("%s search type = %q, want tag-filtered after union", r.VectorID, r.SearchType)
		}
	}
}

func TestSearch_LimitTruncatesButReportsFound(t *testing.T) {
	candidates := make([]domsearch.Candidate, 5)
	for i := range candidates {
		candidates[i] = domsearch.Candidate{
			VectorID:    string(rune('a' + i)),
			Distance:    0.1,
			HasDistance: true,
			Vector:      []float32{1},
			SearchType:  domsearch.TypeSemantic,
		}
	}
	ret := &mockRetriever{count: 5, candidates: candidates}
	s := New(&mockEnhancer{ctx: plainContext()}, ret, testConfig(), zap.NewNop())

	resp, err := s.Search(context.Background(), "anything", Options{Limit: 2})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if resp.TotalResults != 2 {
		t.Errorf("totalResults = %d, want 2", resp.TotalResults)
	}
	if resp.TotalFound != 5 {
		t.Errorf("totalFound = %d, want 5 (pre-truncate)", resp.TotalFound)
	}
}

func TestSearch_HybridDefaultsWeightsIndependently(t *testing.T) {
	ret := &mockRetriever{
		count: 1,
		candidates: []domsearch.Candidate{
			{VectorID: "a", Filename: "roadster.jpg", Distance: 0.1, HasDistance: true, Vector: []float32{1}, SearchType: domsearch.TypeSemantic},
		},
	}
	s := New(&mockEnhancer{ctx: plainContext()}, ret, testConfig(), zap.NewNop())

	// Only the semantic weight is supplied; the keyword weight must fall
	// back to the config default (0.3), not to zero.
	resp, err := s.Search(context.Background(), "roadster", Options{
		UseHybridSearch: true,
		SemanticWeight:  0.6,
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("results = %d, want 1", len(resp.Results))
	}
	// 0.6*0.9 semantic + 0.3*1.0 keyword + 0.1 exact-match boost.
	got := resp.Results[0].Similarity
	if got < 0.93 || got > 0.95 {
		t.Errorf("similarity = %v, want ~0.94 with defaulted keyword weight", got)
	}
}

func TestSearch_RetrieverError(t *testing.T) {
	ret := &mockRetriever{count: 1, searchErr: errors.New("index down")}
	s := New(&mockEnhancer{ctx: plainContext()}, ret, testConfig(), zap.NewNop())

	_, err := s.Search(context.Background(), "anything", Options{})
	if err == nil {
		t.Fatal("Search() error = nil, want retrieval failure")
	}
}

func TestSearch_Deterministic(t *testing.T) {
	ret := &mockRetriever{
		count: 2,
		candidates: []domsearch.Candidate{
			{VectorID: "a", Distance: 0.1, HasDistance: true, Vector: []float32{1}, SearchType: domsearch.TypeSemantic},
			{VectorID: "b", Distance: 0.2, HasDistance: true, Vector: []float32{1}, SearchType: domsearch.TypeSemantic},
		},
	}
	s := New(&mockEnhancer{ctx: plainContext()}, ret, testConfig(), zap.NewNop())

	first, err := s.Search(context.Background(), "anything", Options{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	second, err := s.Search(context.Background(), "anything", Options{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(first.Results) != len(second.Results) {
		t.Fatalf("result counts differ: %d vs %d", len(first.Results), len(second.Results))
	}
	for i := range first.Results {
		if first.Results[i].VectorID != second.Results[i].VectorID ||
			first.Results[i].Similarity != second.Results[i].Similarity {
			t.Errorf("result %d differs between identical searches", i)
		}
	}
}
