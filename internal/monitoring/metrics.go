package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters for the layout update protocol. Registered on the default
// registry and served by the API's /metrics endpoint.
var (
	BoundsUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "layout_bounds_updates_total",
		Help: "Crop bound updates that changed the stored rectangle.",
	})

	BoundsNoops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "layout_bounds_noops_total",
		Help: "Crop bound updates that matched the stored rectangle and were skipped.",
	})

	FramesInvalidated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "layout_frames_invalidated_total",
		Help: "Cached cropped frames deleted by bound updates.",
	})

	ParamUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "layout_param_updates_total",
		Help: "Layout parameter updates persisted.",
	})

	LayoutResets = promauto.NewCounter(prometheus.CounterOpts{
		Name: "layout_resets_total",
		Help: "Full reset-and-reanalyze runs completed.",
	})

	PredictDispatchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "layout_predict_dispatch_failures_total",
		Help: "Fire-and-forget prediction recalculation requests that failed.",
	})

	AnalysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "layout_analysis_duration_seconds",
		Help:    "Wall time of one engine analysis pass.",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
	})
)
