// Package metrics registers the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ImageCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "talentkeeper",
		Name:      "image_cache_lookups_total",
		Help:      "Image cache lookups by result (hit, miss)",
	}, []string{"result"})

	ImageFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "talentkeeper",
		Name:      "image_fetches_total",
		Help:      "Remote image fetches by outcome (ok, error)",
	}, []string{"outcome"})

	ImageFetchesInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "talentkeeper",
		Name:      "image_fetches_in_flight",
		Help:      "Remote image fetches currently holding a permit",
	})

	ImageFetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "talentkeeper",
		Name:      "image_fetch_duration_seconds",
		Help:      "Duration of remote image fetches",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
	})

	RemoteCatalogFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "talentkeeper",
		Name:      "remote_catalog_fetches_total",
		Help:      "Remote catalog fetches by result (ok, snapshot, error)",
	}, []string{"result"})

	AccessChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "talentkeeper",
		Name:      "access_checks_total",
		Help:      "Remote catalog access checks by verdict (granted, denied, error)",
	}, []string{"verdict"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "talentkeeper",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)
