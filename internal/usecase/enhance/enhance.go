// Package enhance analyzes raw search queries against the automotive
// vocabularies and expands them before embedding.
package enhance

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/carlens/internal/domain/query"
	"github.com/kailas-cloud/carlens/internal/domain/vocab"
)

// Service enhances queries and produces the per-search query context.
type Service struct {
	embed QueryEmbedder
}

// New creates an enhancement service.
func New(embed QueryEmbedder) *Service {
	return &Service{embed: embed}
}

// AnalyzeIntent scans the lowercase query against the six vocabularies
// using substring containment. Matches keep duplicates in scan order.
func (s *Service) AnalyzeIntent(raw string) query.Intent {
	lq := strings.ToLower(raw)
	return query.Intent{
		Color:       matchAll(lq, vocab.Colors),
		VehicleType: matchAll(lq, vocab.Types),
		Features:    matchAll(lq, vocab.Features),
		Brand:       matchAll(lq, vocab.Brands),
		Style:       matchAll(lq, vocab.Styles),
		Performance: matchAll(lq, vocab.Performance),
	}
}

// Enhance strips generic vehicle nouns, expands recognized tokens via the
// synonym ontology and appends recognized brands. Queries with no
// recognized tokens come back unchanged.
func (s *Service) Enhance(raw string) string {
	lq := strings.ToLower(raw)
	cleaned := stripGenericNouns(lq)

	var extras []string
	for _, e := range ontologyOrder {
		if strings.Contains(lq, e.token) {
			extras = append(extras, e.table[e.token]...)
		}
	}
	for _, brand := range vocab.OntologyBrands {
		if strings.Contains(lq, brand) {
			extras = append(extras, brand)
		}
	}

	if len(extras) == 0 {
		return raw
	}
	return strings.TrimSpace(cleaned + " " + strings.Join(extras, " "))
}

// Variations returns the cleaned query plus up to three color rephrasings
// when a color token is present, otherwise just the query itself.
func (s *Service) Variations(raw string) []string {
	lq := strings.ToLower(raw)

	var color string
	for _, c := range vocab.Colors {
		if strings.Contains(lq, c) {
			color = c
			break
		}
	}
	if color == "" {
		return []string{raw}
	}

	cleaned := stripGenericNouns(lq)
	if cleaned == "" {
		cleaned = lq
	}
	return []string{
		cleaned,
		fmt.Sprintf("dark %s colored", color),
		fmt.Sprintf("%s colored", color),
		fmt.Sprintf("%s paint", color),
	}
}

// ExtractTags returns the deduplicated vocabulary tokens found in the
// query, across all six categories.
func (s *Service) ExtractTags(raw string) []string {
	intent := s.AnalyzeIntent(raw)
	seen := make(map[string]bool)
	var out []string
	for _, group := range [][]string{
		intent.Color, intent.VehicleType, intent.Features,
		intent.Brand, intent.Style, intent.Performance,
	} {
		for _, t := range group {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	return out
}

// Process runs the full enhancement pipeline: intent analysis, query
// expansion, variation generation and variation embedding. The color
// histogram path is enabled when the query names a color, or when forced.
func (s *Service) Process(ctx context.Context, raw string, forceHistogram bool) (*query.Context, error) {
	intent := s.AnalyzeIntent(raw)
	variations := s.Variations(raw)

	vec, err := s.embed.EmbedQuery(ctx, variations)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	return &query.Context{
		RawQuery:           raw,
		EnhancedQuery:      s.Enhance(raw),
		Variations:         variations,
		Intent:             intent,
		ExtractedTags:      s.ExtractTags(raw),
		Embedding:          vec,
		UsedColorHistogram: forceHistogram || len(intent.Color) > 0,
	}, nil
}

// maxSuggestions caps the suggestion endpoint response.
const maxSuggestions = 5

// suggestionPhrases feed the typeahead endpoint.
var suggestionPhrases = []string{
	"red sports car", "blue suv", "black sedan", "white hatchback",
	"silver coupe", "luxury car", "electric vehicle", "family suv",
	"vintage convertible", "fast bmw", "toyota truck", "mercedes sedan",
	"honda hatchback", "tesla electric", "audi coupe", "sporty red coupe",
	"black truck", "green wagon", "yellow convertible", "classic car",
}

// Suggestions returns up to five phrases containing the partial query.
// An empty partial returns the head of the list.
func (s *Service) Suggestions(partial string) []string {
	lp := strings.ToLower(strings.TrimSpace(partial))
	out := make([]string, 0, maxSuggestions)
	for _, phrase := range suggestionPhrases {
		if lp == "" || strings.Contains(phrase, lp) {
			out = append(out, phrase)
			if len(out) == maxSuggestions {
				break
			}
		}
	}
	return out
}

// ontologyOrder fixes the synonym scan order so enhanced queries are
// deterministic for identical input.
var ontologyOrder = buildOntologyOrder()

type ontologyEntry struct {
	token string
	table map[string][]string
}

func buildOntologyOrder() []ontologyEntry {
	var out []ontologyEntry
	add := func(tokens []string, table map[string][]string) {
		for _, t := range tokens {
			if _, ok := table[t]; ok {
				out = append(out, ontologyEntry{token: t, table: table})
			}
		}
	}
	add(vocab.Colors, vocab.ColorSynonyms)
	add(append(append([]string{}, vocab.Types...), "car"), vocab.TypeSynonyms)
	add([]string{"luxury", "sporty", "electric", "cheap"}, vocab.AttributeSynonyms)
	return out
}

func matchAll(lq string, words []string) []string {
	var out []string
	for _, w := range words {
		if strings.Contains(lq, w) {
			out = append(out, w)
		}
	}
	return out
}

func stripGenericNouns(lq string) string {
	words := strings.Fields(lq)
	kept := words[:0]
	for _, w := range words {
		generic := false
		for _, n := range vocab.GenericNouns {
			if w == n {
				generic = true
				break
			}
		}
		if !generic {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}
