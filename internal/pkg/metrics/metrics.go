package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "presswire_http_requests_total",
			Help: "HTTP requests by route pattern and status code",
		},
		[]string{"route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "presswire_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2, 5, 10},
		},
		[]string{"route"},
	)

	RateLimitDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "presswire_ratelimit_decisions_total",
			Help: "Rate limiter outcomes by endpoint",
		},
		[]string{"endpoint", "outcome"},
	)

	VerificationCodesIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "presswire_verification_codes_issued_total",
			Help: "Verification codes issued",
		},
	)

	VerificationOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "presswire_verification_outcomes_total",
			Help: "Code submissions by outcome",
		},
		[]string{"outcome"},
	)

	GateDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "presswire_gate_decisions_total",
			Help: "Publish bearer resolutions by grant kind or failure",
		},
		[]string{"result"},
	)

	ReleasesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "presswire_releases_published_total",
			Help: "Releases published by grant kind",
		},
		[]string{"grant"},
	)

	ManagementActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "presswire_management_actions_total",
			Help: "Management operations by action and outcome",
		},
		[]string{"action", "outcome"},
	)

	GenerationFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "presswire_generation_fallbacks_total",
			Help: "Releases generated from the template because the LLM was unavailable",
		},
	)

	DispatchTasks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "presswire_dispatch_tasks_total",
			Help: "Background tasks by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	DispatchQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "presswire_dispatch_queue_depth",
			Help: "Tasks waiting in the dispatch queue",
		},
	)
)
