package search

import (
	"strings"

	"github.com/kailas-cloud/carlens/internal/domain/search"
	"github.com/kailas-cloud/carlens/internal/domain/vocab"
)

// thresholdOutcome reports the filtering pass.
type thresholdOutcome struct {
	kept []search.ScoredResult
	// effective is the threshold applied to tagged candidates.
	effective float64
}

// applyThreshold drops low-similarity results. Queries without recognized
// tokens use the caller's floor uniformly; recognized-token queries get a
// dynamic threshold derived from the best tagged candidate, stricter when
// a color query found no matching-color candidate at all.
func applyThreshold(results []search.ScoredResult, minSimilarity float64, queryTags []string) thresholdOutcome {
	if len(queryTags) == 0 {
		kept := make([]search.ScoredResult, 0, len(results))
		for _, r := range results {
			if r.Similarity >= minSimilarity {
				kept = append(kept, r)
			}
		}
		return thresholdOutcome{kept: kept, effective: minSimilarity}
	}

	maxSim := 0.0
	for _, r := range results {
		if len(r.Tags) > 0 && r.Similarity > maxSim {
			maxSim = r.Similarity
		}
	}

	queryColors := filterCategory(queryTags, vocab.IsColor)
	queryBrands := filterCategory(queryTags, vocab.IsBrand)

	var effective float64
	brandQuery := false
	switch {
	case len(queryColors) > 0 && hasMatchingColorCandidate(results, queryColors):
		effective = maxOf(0.8, maxSim*0.85)
	case len(queryColors) > 0:
		// No candidate carries the requested color; suppress rather
		// than show "best available".
		effective = maxOf(0.85, maxSim*0.95)
	case len(queryBrands) > 0:
		effective = maxOf(0.75, maxSim*0.9)
		brandQuery = true
	default:
		effective = maxOf(0.8, maxSim*0.85)
	}

	kept := make([]search.ScoredResult, 0, len(results))
	for _, r := range results {
		if len(r.Tags) == 0 && !brandQuery {
			// Untagged images answer to the plain floor, except for
			// brand queries where the dynamic threshold is uniform.
			if r.Similarity >= minSimilarity {
				kept = append(kept, r)
			}
			continue
		}
		if r.Similarity >= effective {
			kept = append(kept, r)
		}
	}
	return thresholdOutcome{kept: kept, effective: effective}
}

func hasMatchingColorCandidate(results []search.ScoredResult, queryColors []string) bool {
	for _, r := range results {
		for _, t := range r.Tags {
			lt := strings.ToLower(t)
			for _, qc := range queryColors {
				if lt == qc {
					return true
				}
			}
		}
	}
	return false
}

func maxOf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
