package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FramesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eco",
		Name:      "frames_processed_total",
		Help:      "Total number of frames run through the detector",
	}, []string{"session_id"})

	ItemsDetected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eco",
		Name:      "items_detected_total",
		Help:      "Total recyclable items counted per category (post-filter)",
	}, []string{"category"})

	ScansConfirmed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "eco",
		Name:      "scans_confirmed_total",
		Help:      "Total confirmed scan sessions",
	})

	PointsAwarded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "eco",
		Name:      "points_awarded_total",
		Help:      "Total points credited through confirmed scans",
	})

	PointsRedeemed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "eco",
		Name:      "points_redeemed_total",
		Help:      "Total points spent on reward redemptions",
	})

	TierChanges = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "eco",
		Name:      "tier_changes_total",
		Help:      "Total user tier transitions recorded by the ledger",
	})

	InferenceDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "eco",
		Name:      "inference_duration_seconds",
		Help:      "Duration of detection pipeline stages",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	}, []string{"stage"})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "eco",
		Name:      "queue_depth",
		Help:      "Number of pending frame tasks in queue",
	})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "eco",
		Name:      "active_sessions",
		Help:      "Number of scan sessions currently capturing frames",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "eco",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "eco",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections",
	})
)
