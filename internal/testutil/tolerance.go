package testutil

import (
	"math"
	"testing"
)

// RequireSliceNearlyEqual fails t if got and want differ in length or if
// any element pair exceeds eps (absolute tolerance).
func RequireSliceNearlyEqual(t *testing.T, got, want []float64, eps float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range got {
		diff := math.Abs(got[i] - want[i])
		if diff > eps {
			t.Fatalf("index %d: got %v, want %v (diff %v > eps %v)", i, got[i], want[i], diff, eps)
		}
	}
}

// RequireFiniteTraces fails t if any sample of the frame-major traces is
// NaN or Inf.
func RequireFiniteTraces(t *testing.T, traces [][]float64) {
	t.Helper()
	for i, row := range traces {
		for ch, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("frame %d channel %d: non-finite value %v", i, ch, v)
			}
		}
	}
}
