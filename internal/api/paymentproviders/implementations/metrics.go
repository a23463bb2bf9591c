package implementations

import (
	"time"

	"github.com/golangci/golangci-billing/internal/api/paymentproviders/paymentprovider"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

var providerCallDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "billing",
	Subsystem: "payment_provider",
	Name:      "call_duration_seconds",
	Help:      "Duration of payment provider calls including retries.",
	Buckets:   prometheus.DefBuckets,
}, []string{"provider", "method", "outcome"})

func init() {
	prometheus.MustRegister(providerCallDuration)
}

func callOutcome(err error) string {
	if err == nil {
		return "ok"
	}

	switch errors.Cause(err) {
	case paymentprovider.ErrNotFound:
		return "not_found"
	case paymentprovider.ErrInvalidRequest:
		return "invalid_request"
	case paymentprovider.ErrCardDeclined:
		return "card_declined"
	}

	return "error"
}

func observeProviderCall(provider, method string, startedAt time.Time, err error) {
	providerCallDuration.WithLabelValues(provider, method, callOutcome(err)).
		Observe(time.Since(startedAt).Seconds())
}
