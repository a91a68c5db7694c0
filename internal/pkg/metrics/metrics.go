package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebhookEvents counts processed billing webhook deliveries by event kind
	// and outcome (ok, duplicate, failed).
	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "flagpost",
		Name:      "webhook_events_total",
		Help:      "Billing webhook deliveries processed.",
	}, []string{"kind", "outcome"})

	// PlacementsGenerated counts flag placements created by the generator.
	PlacementsGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "flagpost",
		Name:      "placements_generated_total",
		Help:      "Flag placements created.",
	})

	// NotificationsSent counts outbound notifications by channel and outcome.
	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "flagpost",
		Name:      "notifications_sent_total",
		Help:      "Notifications dispatched.",
	}, []string{"channel", "outcome"})
)
