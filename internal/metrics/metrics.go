// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts requests by method, route template and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flavorshare_http_requests_total",
		Help: "Total HTTP requests by method, route and status",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "flavorshare_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
	}, []string{"method", "route"})

	RecipesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flavorshare_recipes_created_total",
		Help: "Recipes created",
	})

	RecipesDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flavorshare_recipes_deleted_total",
		Help: "Recipes deleted",
	})

	CommentsAdded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flavorshare_comments_added_total",
		Help: "Comments added",
	})

	// LikesTotal counts like and unlike operations by action.
	LikesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flavorshare_likes_total",
		Help: "Like operations by action",
	}, []string{"action"})

	// LoginsTotal counts login attempts by outcome ("success" or "failure").
	LoginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flavorshare_logins_total",
		Help: "Login attempts by outcome",
	}, []string{"outcome"})

	RateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flavorshare_rate_limited_total",
		Help: "Requests rejected by the rate limiter",
	})

	EventPublishFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flavorshare_event_publish_failures_total",
		Help: "Events that could not be published to the broker",
	})

	EventsSpooled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flavorshare_events_spooled_total",
		Help: "Events written to the local spool after a failed publish",
	})

	EventsReplayed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flavorshare_events_replayed_total",
		Help: "Spooled events delivered on retry",
	})

	ImagesUploaded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flavorshare_images_uploaded_total",
		Help: "Recipe images stored",
	})
)
