package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "repost_messages_processed_total",
		Help: "Messages run through the processing pipeline",
	}, []string{"mode", "outcome"})

	RepostsDetected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "repost_reposts_detected_total",
		Help: "Earlier messages matched by a new message, by kind",
	}, []string{"kind"})

	Replies = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "repost_replies_total",
		Help: "Repost notices delivered",
	}, []string{"action"})

	ReconcilePasses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "repost_reconcile_passes_total",
		Help: "History reconciliation passes by outcome",
	}, []string{"outcome"})

	ReconcileFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "repost_reconcile_messages_fetched_total",
		Help: "Messages returned by history fetches",
	})

	ReconcileLoops = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "repost_reconcile_loops",
		Help: "Running per-server reconciliation loops",
	})

	SoftDeletes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "repost_soft_deletes_total",
		Help: "Messages soft deleted because they appear to be gone",
	}, []string{"reason"})

	MetadataWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "repost_metadata_writes_total",
		Help: "Metadata upserts written or suppressed by the cache",
	}, []string{"kind", "result"})

	ImageFetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "repost_image_fetch_duration_seconds",
		Help:    "Time to download an image",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
	}, []string{"source"})

	GatewayConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "repost_gateway_connected",
		Help: "1 while the Discord gateway session is connected",
	})
)
