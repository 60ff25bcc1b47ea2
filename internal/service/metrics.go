package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	checkoutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_checkouts_total",
		Help: "Checkout submissions by outcome.",
	}, []string{"outcome"})

	checkoutDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pos_checkout_duration_seconds",
		Help:    "Time spent in the sale transaction.",
		Buckets: prometheus.DefBuckets,
	})

	saleRevenue = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_sale_revenue_total",
		Help: "Revenue of completed sales by payment method.",
	}, []string{"payment_method"})

	stockRefreshAttempts = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pos_stock_refresh_attempts",
		Help:    "Reads needed before catalog stock matched a committed sale.",
		Buckets: []float64{1, 2, 3, 5, 8},
	})

	stockRefreshOutcome = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_stock_refresh_total",
		Help: "Post-sale stock confirmations by outcome.",
	}, []string{"outcome"})

	staleCatalogResponses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pos_catalog_stale_responses_total",
		Help: "Catalog responses discarded because a newer one was delivered.",
	})
)
