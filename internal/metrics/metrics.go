package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Membership metrics
var (
	// MembershipsCreatedTotal tracks memberships created by initial state
	MembershipsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memberships_created_total",
			Help: "Total number of memberships created by initial state",
		},
		[]string{"state"},
	)

	// MembershipsDeletedTotal tracks soft-deleted memberships
	MembershipsDeletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "memberships_deleted_total",
			Help: "Total number of memberships soft deleted",
		},
	)

	// MembershipActivationsTotal tracks pending to active transitions
	MembershipActivationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "membership_activations_total",
			Help: "Total number of memberships transitioned to active",
		},
	)

	// MembershipValidationFailures tracks create/update validation failures by field
	MembershipValidationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "membership_validation_failures_total",
			Help: "Total number of membership validation failures by field",
		},
		[]string{"field"},
	)
)

// Invitation dispatch metrics
var (
	// InvitationDispatchesTotal tracks dispatch outcomes
	// (sent, skipped_active, suppressed, failed)
	InvitationDispatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invitation_dispatches_total",
			Help: "Total number of invitation dispatches by outcome",
		},
		[]string{"outcome"},
	)

	// InvitationDispatchDuration tracks dispatch job duration
	InvitationDispatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "invitation_dispatch_duration_seconds",
			Help:    "Invitation dispatch job duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	// InviteEmailsSentTotal tracks invitation emails handed to SMTP
	InviteEmailsSentTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "invite_emails_sent_total",
			Help: "Total number of invitation emails sent",
		},
	)
)

// Authorization metrics
var (
	// AuthorizationDecisionsTotal tracks gate decisions by action and outcome
	AuthorizationDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authorization_decisions_total",
			Help: "Total number of authorization decisions by action and outcome",
		},
		[]string{"action", "outcome"},
	)
)

// HTTP metrics
var (
	// HTTPRequestsTotal tracks HTTP requests by method, path and status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration tracks HTTP request duration
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	// HTTPRequestsInFlight tracks requests currently being served
	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		},
	)

	// RateLimitRejectionsTotal tracks requests rejected by the rate limiter
	RateLimitRejectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rate_limit_rejections_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
	)
)
