package webhook

import "github.com/prometheus/client_golang/prometheus"

var webhookEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "billing",
	Subsystem: "webhook",
	Name:      "events_total",
	Help:      "Payment provider webhook deliveries by outcome.",
}, []string{"provider", "type", "outcome"})

func init() {
	prometheus.MustRegister(webhookEvents)
}

func observeEvent(provider, eventType, outcome string) {
	webhookEvents.WithLabelValues(provider, eventType, outcome).Inc()
}
