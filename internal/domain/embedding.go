package domain

import "context"

// TextEncoder vectorizes text. Implementations wrap the CLIP sidecar.
type TextEncoder interface {
	EncodeText(ctx context.Context, text string) ([]float32, error)
}

// ImageEncoder vectorizes preprocessed RGB image bytes.
type ImageEncoder interface {
	EncodeImage(ctx context.Context, imageBytes []byte) ([]float32, error)
}

// HealthChecker verifies encoder availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Region is a detected vehicle bounding box with normalized [0,1] coordinates.
type Region struct {
	XMin       float64
	YMin       float64
	XMax       float64
	YMax       float64
	Confidence float64
	Label      string
}

// RegionDetector locates the most confident vehicle region in an image.
// A nil region with nil error means no vehicle was found.
type RegionDetector interface {
	DetectBest(ctx context.Context, imageBytes []byte) (*Region, error)
}

// NormalizeDim truncates or zero-pads v to exactly dim elements.
// Every vector passes through this before storage or comparison; mixing
// widths inside one index breaks similarity comparability.
func NormalizeDim(v []float32, dim int) []float32 {
	if dim <= 0 || len(v) == dim {
		return v
	}
	if len(v) > dim {
		return v[:dim]
	}
	out := make([]float32, dim)
	copy(out, v)
	return out
}

// Blend combines two equal-purpose vectors elementwise with the given
// weights. The shorter vector is treated as zero-padded.
func Blend(a, b []float32, wa, wb float64) []float32 {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	out := make([]float32, n)
	for i := range out {
		var av, bv float64
		if i < len(a) {
			av = float64(a[i])
		}
		if i < len(b) {
			bv = float64(b[i])
		}
		out[i] = float32(wa*av + wb*bv)
	}
	return out
}

// WeightedCombine sums vectors elementwise using per-vector weights.
// Weights beyond len(vectors) are ignored; missing weights default to 0.
// A single vector is returned as-is, unweighted.
func WeightedCombine(vectors [][]float32, weights []float64) []float32 {
	if len(vectors) == 0 {
		return nil
	}
	if len(vectors) == 1 {
		return vectors[0]
	}
	n := 0
	for _, v := range vectors {
		if len(v) > n {
			n = len(v)
		}
	}
	out := make([]float32, n)
	for vi, v := range vectors {
		if vi >= len(weights) {
			break
		}
		w := weights[vi]
		for i, f := range v {
			out[i] += float32(w * float64(f))
		}
	}
	return out
}

// IsZeroVector reports whether v is empty or all zeros.
func IsZeroVector(v []float32) bool {
	for _, f := range v {
		if f != 0 {
			return false
		}
	}
	return true
}
