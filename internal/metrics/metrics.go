package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Counts card checks by outcome.
	AccessDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cardlock_access_decisions_total",
			Help: "Total number of card checks by result and reason.",
		},
		[]string{"result", "reason"}, // result = "granted" | "denied"
	)

	AccessCheckDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cardlock_access_check_duration_seconds",
			Help:    "Duration of a card check including audit and publish.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
	)

	// Tracks NATS messages published by subject and result.
	NATSMessageCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cardlock_nats_messages_total",
			Help: "Total number of NATS messages published.",
		},
		[]string{"subject", "result"}, // result = "ok" | "error"
	)

	// Tracks cache hits and misses for the credential table.
	SecretsCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cardlock_secrets_cache_access_total",
			Help: "Number of cache hits/misses in the credential cache.",
		},
		[]string{"result"}, // hit | miss
	)

	// Number of entries in the active allow-list.
	AuthorizedCards = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cardlock_authorized_cards",
			Help: "Number of distinct card UIDs in the active allow-list.",
		},
	)

	// 1 while the service runs without a valid credential table.
	Degraded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cardlock_degraded",
			Help: "1 if the credential table failed validation and checks are disabled.",
		},
	)

	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cardlock_errors_total",
			Help: "Count of errors by component.",
		},
		[]string{"component", "reason"},
	)
)

// ObserveSince records the time elapsed since start on h.
func ObserveSince(h prometheus.Observer, start time.Time) {
	h.Observe(time.Since(start).Seconds())
}

// IncAccessDecision counts one card check as granted or denied with reason.
func IncAccessDecision(granted bool, reason string) {
	result := "denied"
	if granted {
		result = "granted"
	}
	AccessDecisions.WithLabelValues(result, reason).Inc()
}

// IncNATSMessage counts one publish on subject; result is "ok" or "error".
func IncNATSMessage(subject, result string) {
	NATSMessageCount.WithLabelValues(subject, result).Inc()
}

// IncCacheHit counts one credential cache lookup ("hit" or "miss").
func IncCacheHit(result string) {
	SecretsCacheHits.WithLabelValues(result).Inc()
}

// IncError counts one failure of component.
func IncError(component, reason string) {
	ErrorsTotal.WithLabelValues(component, reason).Inc()
}

// SetDegraded flips the cardlock_degraded gauge.
func SetDegraded(degraded bool) {
	if degraded {
		Degraded.Set(1)
		return
	}
	Degraded.Set(0)
}
