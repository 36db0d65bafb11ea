package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	NoticesScraped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collector_notices_scraped_total",
			Help: "Total number of notices scraped per platform",
		},
		[]string{"platform"},
	)

	NoticesSaved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collector_notices_saved_total",
			Help: "Total number of new notices saved per platform",
		},
		[]string{"platform"},
	)

	ScrapeFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collector_scrape_failures_total",
			Help: "Total number of scrape failures per platform",
		},
		[]string{"platform"},
	)

	NoticesAnalyzed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analyzer_notices_analyzed_total",
			Help: "Total number of notices scored",
		},
		[]string{"outcome"},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "pipeline_job_duration_seconds",
			Help: "Duration of pipeline jobs in seconds",
		},
		[]string{"job"},
	)

	MarketLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "market_lookups_total",
			Help: "Market baseline lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)

	GeocodeRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geocode_requests_total",
			Help: "Geocoding requests by result (cached, success, failed)",
		},
		[]string{"result"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "API requests by path and status",
		},
		[]string{"path", "status"},
	)
)
