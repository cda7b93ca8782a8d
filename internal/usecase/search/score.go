package search

import (
	"sort"
	"strings"
	"time"

	"github.com/kailas-cloud/carlens/internal/domain/search"
	"github.com/kailas-cloud/carlens/internal/domain/vocab"
)

const (
	defaultBaseSimilarity = 0.9

	colorMismatchPenalty  = -0.15
	brandMismatchPenalty  = -0.25
	untaggedColorPenalty  = -0.10
	tagOverlapBonusWeight = 0.2
	exactTagBonus         = 0.03

	exactQueryBoost = 0.1
	recencyBoost    = 0.05
	recencyWindow   = 30 * 24 * time.Hour
)

// scoreOptions control the per-candidate scoring pass.
type scoreOptions struct {
	queryTags      []string
	rawQuery       string
	hybrid         bool
	semanticWeight float64
	keywordWeight  float64
	now            time.Time
}

// scoreCandidates converts retrieval distances into final similarities,
// applies the tag correction layer and optionally the hybrid keyword
// blend, then sorts descending. The sort is stable so ties keep
// retrieval order.
func scoreCandidates(candidates []search.Candidate, opts scoreOptions) []search.ScoredResult {
	results := make([]search.ScoredResult, 0, len(candidates))
	for _, c := range candidates {
		base := defaultBaseSimilarity
		if c.HasDistance {
			base = 1 - c.Distance
		}

		final := base
		if len(opts.queryTags) > 0 {
			final = base + tagAdjustment(opts.queryTags, c.Tags)
		}
		if opts.hybrid {
			final = opts.semanticWeight*base + opts.keywordWeight*keywordScore(opts.rawQuery, c)
			final += exactBoost(opts.rawQuery, c)
			final += recencyBonus(c.UploadedAt, opts.now)
		}
		final = clamp01(final)

		results = append(results, search.ScoredResult{
			VectorID:           c.VectorID,
			Filename:           c.Filename,
			OriginalName:       c.OriginalName,
			FilePath:           c.FilePath,
			Tags:               c.Tags,
			Similarity:         final,
			OriginalSimilarity: base,
			Distance:           c.Distance,
			HasDistance:        c.HasDistance,
			SearchType:         c.SearchType,
			UploadedAt:         c.UploadedAt,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	return results
}

// tagAdjustment is the deterministic correction layered on top of the
// fuzzy vector signal. Mismatch penalties are evaluated in order and the
// last applicable one wins; only penalty-free candidates earn the
// overlap bonus.
func tagAdjustment(queryTags, candidateTags []string) float64 {
	queryColors := filterCategory(queryTags, vocab.IsColor)
	queryBrands := filterCategory(queryTags, vocab.IsBrand)
	candColors := filterCategory(candidateTags, vocab.IsColor)
	candBrands := filterCategory(candidateTags, vocab.IsBrand)

	penalty := 0.0
	applied := false

	if len(queryColors) > 0 && len(candColors) > 0 && !intersects(queryColors, candColors) {
		penalty = colorMismatchPenalty
		applied = true
	}
	if len(queryBrands) > 0 && len(candBrands) > 0 && !intersects(queryBrands, candBrands) {
		penalty = brandMismatchPenalty
		applied = true
	}
	if !applied && len(queryColors) > 0 && len(candidateTags) == 0 {
		penalty = untaggedColorPenalty
		applied = true
	}
	if applied {
		return penalty
	}

	matching := 0
	exact := 0
	for _, qt := range queryTags {
		lq := strings.ToLower(qt)
		for _, ct := range candidateTags {
			lc := strings.ToLower(ct)
			if lq == lc {
				matching++
				exact++
				break
			}
			if strings.Contains(lc, lq) || strings.Contains(lq, lc) {
				matching++
				break
			}
		}
	}
	return float64(matching)/float64(len(queryTags))*tagOverlapBonusWeight + float64(exact)*exactTagBonus
}

// keywordScore is the fraction of significant query words found as
// substrings of the candidate's filename, original name or tags.
func keywordScore(rawQuery string, c search.Candidate) float64 {
	words := significantWords(rawQuery)
	if len(words) == 0 {
		return 0
	}
	haystack := strings.ToLower(c.Filename + " " + c.OriginalName + " " + strings.Join(c.Tags, " "))
	found := 0
	for _, w := range words {
		if strings.Contains(haystack, w) {
			found++
		}
	}
	return float64(found) / float64(len(words))
}

func exactBoost(rawQuery string, c search.Candidate) float64 {
	lq := strings.ToLower(strings.TrimSpace(rawQuery))
	if lq == "" {
		return 0
	}
	if strings.Contains(strings.ToLower(c.Filename), lq) || strings.Contains(strings.ToLower(c.OriginalName), lq) {
		return exactQueryBoost
	}
	return 0
}

func recencyBonus(uploadedAtMillis int64, now time.Time) float64 {
	if uploadedAtMillis <= 0 {
		return 0
	}
	uploaded := time.UnixMilli(uploadedAtMillis)
	if now.Sub(uploaded) < recencyWindow {
		return recencyBoost
	}
	return 0
}

func significantWords(rawQuery string) []string {
	var out []string
	for _, w := range strings.Fields(strings.ToLower(rawQuery)) {
		if len(w) > 2 && !vocab.IsStopword(w) {
			out = append(out, w)
		}
	}
	return out
}

func filterCategory(tags []string, match func(string) bool) []string {
	var out []string
	for _, t := range tags {
		if match(strings.ToLower(t)) {
			out = append(out, strings.ToLower(t))
		}
	}
	return out
}

func intersects(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
