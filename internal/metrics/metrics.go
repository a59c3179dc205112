// Package metrics holds the prometheus collectors of the recommender.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ranking modes used as label values
const (
	ModeByName       = "by_name"
	ModeByAttributes = "by_attributes"
)

var (
	// RecommendationRequests counts ranking calls.
	// Labels:
	//   - mode: "by_name", "by_attributes"
	//   - outcome: "success", "not_found", "not_ready", "error"
	RecommendationRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommender_requests_total",
			Help: "Total number of recommendation requests",
		},
		[]string{"mode", "outcome"},
	)

	// RankingDuration measures time spent ranking inside the core.
	RankingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommender_ranking_duration_seconds",
			Help:    "Duration of ranking operations in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
		[]string{"mode"},
	)

	// SnapshotReloads counts catalog reloads by outcome ("success", "failure").
	SnapshotReloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommender_snapshot_reloads_total",
			Help: "Total number of catalog snapshot rebuilds",
		},
		[]string{"outcome"},
	)

	// SnapshotBuildDuration measures load + fit + matrix construction.
	SnapshotBuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommender_snapshot_build_duration_seconds",
			Help:    "Duration of catalog snapshot builds in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		},
	)

	CatalogItems = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "recommender_catalog_items",
		Help: "Number of items in the published catalog snapshot",
	})

	VocabularySize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "recommender_vocabulary_size",
		Help: "Number of tokens in the published vocabulary",
	})
)

// ObserveRanking records one ranking call
func ObserveRanking(mode, outcome string, started time.Time) {
	RecommendationRequests.WithLabelValues(mode, outcome).Inc()
	if outcome == "success" {
		RankingDuration.WithLabelValues(mode).Observe(time.Since(started).Seconds())
	}
}

// ObserveSnapshot records a published snapshot
func ObserveSnapshot(items, vocabulary int, took time.Duration) {
	SnapshotReloads.WithLabelValues("success").Inc()
	SnapshotBuildDuration.Observe(took.Seconds())
	CatalogItems.Set(float64(items))
	VocabularySize.Set(float64(vocabulary))
}

// ObserveReloadFailure records a rebuild that left the previous snapshot in place
func ObserveReloadFailure() {
	SnapshotReloads.WithLabelValues("failure").Inc()
}
