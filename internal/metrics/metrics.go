package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	TransferOK              = "ok"
	TransferNotTransferable = "not_transferable"
	TransferEmailInUse      = "email_in_use"
	TransferInvalid         = "invalid"
	TransferError           = "error"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "confpass_http_requests_total",
		Help: "HTTP requests served, by method, route and status code",
	}, []string{"method", "route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "confpass_http_request_duration_seconds",
		Help:    "Latency of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	Transfers = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "confpass_ticket_transfers_total",
		Help: "Ticket transfer attempts, by outcome",
	}, []string{"outcome"})

	AttendeeUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "confpass_attendee_updates_total",
		Help: "Successful non-transfer attendee updates",
	})

	EventPublishFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "confpass_event_publish_failures_total",
		Help: "Transfer events that could not be published",
	})
)
