package layout

import (
	"math"
	"testing"
)

func TestMode_BinnedCounts(t *testing.T) {
	if got := Mode([]float64{5, 5, 5, 10, 10}, 5); got != 5 {
		t.Fatalf("expected mode 5 got %v", got)
	}
	// values within half a bin of each other collapse into one bin
	if got := Mode([]float64{4, 5, 6}, 5); got != 5 {
		t.Fatalf("expected mode 5 got %v", got)
	}
	if got := Mode([]float64{944, 946, 880}, 5); got != 945 {
		t.Fatalf("expected mode 945 got %v", got)
	}
}

func TestMode_TieBreaksToSmallestBin(t *testing.T) {
	// two bins with equal counts must deterministically pick the smaller
	if got := Mode([]float64{5, 5, 10, 10}, 5); got != 5 {
		t.Fatalf("expected tie to resolve to 5 got %v", got)
	}
	if got := Mode([]float64{10, 10, 5, 5}, 5); got != 5 {
		t.Fatalf("expected tie to resolve to 5 regardless of order, got %v", got)
	}
}

func TestMode_Empty(t *testing.T) {
	if got := Mode(nil, 5); !math.IsNaN(got) {
		t.Fatalf("expected NaN for empty input got %v", got)
	}
}

func TestStdAround(t *testing.T) {
	if got := StdAround([]float64{5, 5, 5}, 5); got != 0 {
		t.Fatalf("expected std 0 got %v", got)
	}
	// population deviation about a reference that is not the mean
	got := StdAround([]float64{4, 6}, 5)
	if math.Abs(got-1) > 1e-12 {
		t.Fatalf("expected std 1 got %v", got)
	}
	got = StdAround([]float64{10, 10}, 8)
	if math.Abs(got-2) > 1e-12 {
		t.Fatalf("expected std 2 about shifted reference got %v", got)
	}
}

func TestStdAround_Empty(t *testing.T) {
	if got := StdAround(nil, 0); !math.IsNaN(got) {
		t.Fatalf("expected NaN for empty input got %v", got)
	}
}

func TestSpreadAroundMode_DropsFarSamples(t *testing.T) {
	// a stray edge 400px away must not inflate the spread
	values := []float64{100, 100, 100, 500}
	got := spreadAroundMode(values, 5, 100)
	if got != 0 {
		t.Fatalf("expected spread 0 after windowing got %v", got)
	}
	// sanity: without the window the stray sample dominates
	raw := StdAround(values, 100)
	if raw < 100 {
		t.Fatalf("expected raw spread to be large, got %v", raw)
	}
}

func TestSpreadAroundMode_KeepsNearSamples(t *testing.T) {
	values := []float64{100, 104, 96, 100}
	got := spreadAroundMode(values, 5, 100)
	want := StdAround(values, 100)
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("expected spread %v got %v", want, got)
	}
}
