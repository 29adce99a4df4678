package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	upstreamPagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_pages_total",
			Help: "Total number of upstream collection pages requested",
		},
		[]string{"collection", "status"},
	)

	upstreamFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_fetch_duration_seconds",
			Help:    "Duration of full collection fetches in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"collection"},
	)

	cacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_cache_lookups_total",
			Help: "Total number of feed cache lookups by result",
		},
		[]string{"feed", "result"},
	)

	feedTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_transitions_total",
			Help: "Total number of feed state transitions",
		},
		[]string{"feed", "state"},
	)
)
