package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// CheckResultUpdated labels a check that stored a new price.
	CheckResultUpdated = "updated"
	// CheckResultUnavailable labels a check whose page yielded no price.
	CheckResultUnavailable = "unavailable"
	// CheckResultError labels a check that failed to fetch or persist.
	CheckResultError = "error"
	// CheckResultSkipped labels a scheduled check skipped because another one held the lock.
	CheckResultSkipped = "skipped"
)

var (
	// ProductsCreated is a Prometheus counter for tracking the total number of products created.
	ProductsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "products_created_total",
		Help: "The total number of tracked products created",
	})

	// ProductsDeleted is a Prometheus counter for tracking the total number of products deleted.
	ProductsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "products_deleted_total",
		Help: "The total number of tracked products deleted",
	})

	// PriceChecks counts price checks by result.
	PriceChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "price_checks_total",
		Help: "The total number of product price checks by result",
	}, []string{"result"})

	// PriceDropAlerts counts price-drop events written to the outbox.
	PriceDropAlerts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "price_drop_alerts_total",
		Help: "The total number of price drop alerts raised",
	})

	// ScrapeDuration observes product page scrape latency by platform.
	ScrapeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "scrape_duration_seconds",
		Help:    "Duration of product page scrapes",
		Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"platform"})

	// HistoryCleanupDeleted counts price history rows removed by retention cleanup.
	HistoryCleanupDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "history_cleanup_deleted_total",
		Help: "The total number of price history entries removed by retention cleanup",
	})

	// AlertEmailsSent counts price alert e-mails by outcome.
	AlertEmailsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alert_emails_total",
		Help: "The total number of price alert e-mails by outcome",
	}, []string{"outcome"})
)
