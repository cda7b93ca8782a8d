package domain

import (
	"math"
	"testing"
)

func TestNormalizeDim_Pads(t *testing.T) {
	got := NormalizeDim([]float32{1, 2}, 4)

	if len(got) != 4 {
		t.Fatalf("len = %d, want 4", len(got))
	}
	if got[0] != 1 || got[1] != 2 || got[2] != 0 || got[3] != 0 {
		t.Errorf("got %v, want [1 2 0 0]", got)
	}
}

func TestNormalizeDim_Truncates(t *testing.T) {
	got := NormalizeDim([]float32{1, 2, 3, 4}, 2)

	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("got %v, want [1 2]", got)
	}
}

func TestNormalizeDim_ExactWidthUnchanged(t *testing.T) {
	v := []float32{1, 2, 3}
	got := NormalizeDim(v, 3)

	if &got[0] != &v[0] {
		t.Error("exact-width vector should be returned as-is")
	}
}

func TestNormalizeDim_NonPositiveDim(t *testing.T) {
	v := []float32{1, 2}
	if got := NormalizeDim(v, 0); len(got) != 2 {
		t.Errorf("dim 0: got %v, want input unchanged", got)
	}
}

func TestBlend(t *testing.T) {
	got := Blend([]float32{10, 0}, []float32{10, 10}, 0.7, 0.3)

	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if math.Abs(float64(got[0])-10) > 1e-6 || math.Abs(float64(got[1])-3) > 1e-6 {
		t.Errorf("got %v, want [10 3]", got)
	}
}

func TestBlend_UnequalLengths(t *testing.T) {
	got := Blend([]float32{2}, []float32{4, 8}, 0.5, 0.5)

	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if math.Abs(float64(got[0])-3) > 1e-6 || math.Abs(float64(got[1])-4) > 1e-6 {
		t.Errorf("got %v, want [3 4]", got)
	}
}

func TestWeightedCombine(t *testing.T) {
	got := WeightedCombine([][]float32{{1, 0}, {0, 1}}, []float64{0.4, 0.6})

	if math.Abs(float64(got[0])-0.4) > 1e-6 || math.Abs(float64(got[1])-0.6) > 1e-6 {
		t.Errorf("got %v, want [0.4 0.6]", got)
	}
}

func TestWeightedCombine_SingleVectorPassesThrough(t *testing.T) {
	v := []float32{1, 2}
	got := WeightedCombine([][]float32{v}, []float64{0.4})

	if &got[0] != &v[0] {
		t.Error("single vector should be returned unweighted")
	}
}

func TestWeightedCombine_Empty(t *testing.T) {
	if got := WeightedCombine(nil, nil); got != nil {
		t.Errorf("got %v, want nil", got)
	}
}

func TestWeightedCombine_MissingWeightsIgnored(t *testing.T) {
	got := WeightedCombine([][]float32{{1}, {1}, {1}}, []float64{1, 1})

	if math.Abs(float64(got[0])-2) > 1e-6 {
		t.Errorf("got %v, third vector without weight must not contribute", got)
	}
}

func TestIsZeroVector(t *testing.T) {
	if !IsZeroVector(nil) {
		t.Error("nil vector should be zero")
	}
	if !IsZeroVector([]float32{0, 0, 0}) {
		t.Error("all-zero vector should be zero")
	}
	if IsZeroVector([]float32{0, 0.001}) {
		t.Error("non-zero vector reported as zero")
	}
}
