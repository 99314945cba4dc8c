package layout

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFilterOutliers_RemovesSingleExtreme(t *testing.T) {
	p := DefaultParams()
	values := []float64{10, 12, 14, 16, 18, 20, 22, 24, 26, 500}
	got := FilterOutliers(values, p)
	want := []float64{10, 12, 14, 16, 18, 20, 22, 24, 26}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("filtered values mismatch (-want +got):\n%s", diff)
	}
}

func TestFilterOutliers_RemovalBudget(t *testing.T) {
	p := DefaultParams()

	// one outlier in ten is exactly the 10% budget, so filtering stands
	onTheLine := []float64{10, 12, 14, 16, 18, 20, 22, 24, 26, 500}
	if got := FilterOutliers(onTheLine, p); len(got) != 9 {
		t.Fatalf("expected 9 values at exactly the removal budget, got %d", len(got))
	}

	// two outliers in ten exceeds the budget and reverts the filter
	overTheLine := []float64{10, 12, 14, 16, 18, 20, 22, 24, 500, 600}
	got := FilterOutliers(overTheLine, p)
	if diff := cmp.Diff(overTheLine, got); diff != "" {
		t.Fatalf("expected original values back when over budget (-want +got):\n%s", diff)
	}
}

func TestFilterOutliers_SmallSampleUnchanged(t *testing.T) {
	p := DefaultParams()
	values := []float64{10, 12, 14, 16, 18, 20, 22, 24, 5000}
	got := FilterOutliers(values, p)
	if diff := cmp.Diff(values, got); diff != "" {
		t.Fatalf("expected <10 samples to pass through unchanged (-want +got):\n%s", diff)
	}
}

func TestFilterOutliers_PreservesOrder(t *testing.T) {
	p := DefaultParams()
	values := []float64{26, 10, 24, 12, 500, 22, 14, 20, 16, 18}
	got := FilterOutliers(values, p)
	want := []float64{26, 10, 24, 12, 22, 14, 20, 16, 18}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("expected input order preserved (-want +got):\n%s", diff)
	}
}
