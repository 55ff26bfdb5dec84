package platforms

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/white/campaign-manager/internal/models"
)

var (
	platformCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "platform_calls_total",
			Help: "Total number of ad platform operations",
		},
		[]string{"platform", "operation", "outcome"},
	)

	platformCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "platform_call_duration_seconds",
			Help:    "Duration of ad platform operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"platform", "operation"},
	)
)

func recordCall(p models.PlatformName, o op, d time.Duration, err error) {
	platformCalls.WithLabelValues(p.Key(), string(o), callOutcome(err)).Inc()
	platformCallDuration.WithLabelValues(p.Key(), string(o)).Observe(d.Seconds())
}

// callOutcome keeps failures that never reached the vendor, or that the vendor
// answered without an account to act on, apart from vendor errors.
func callOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrNotConnected):
		return "not_connected"
	case errors.Is(err, ErrNoAdAccount):
		return "no_ad_account"
	case errors.Is(err, ErrNotReady):
		return "not_ready"
	default:
		return "error"
	}
}
