package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	webhookVerifiedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "coach_service",
		Subsystem: "webhook",
		Name:      "deliveries_verified_total",
		Help:      "Number of webhook deliveries that passed signature verification.",
	})
	webhookRejectedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "coach_service",
		Subsystem: "webhook",
		Name:      "deliveries_rejected_total",
		Help:      "Number of webhook deliveries rejected before dispatch, labeled by reason.",
	}, []string{"reason"})
	planGeneratedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "coach_service",
		Subsystem: "plangen",
		Name:      "plans_generated_total",
		Help:      "Number of plans generated and persisted successfully.",
	})
	planFailedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "coach_service",
		Subsystem: "plangen",
		Name:      "plans_failed_total",
		Help:      "Number of generation runs aborted by a stage failure.",
	})
	facetDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "coach_service",
		Subsystem: "plangen",
		Name:      "facet_completion_duration_seconds",
		Help:      "Wall-clock time of one LLM completion call, labeled by facet.",
		Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
	}, []string{"facet"})
	planPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "coach_service",
		Subsystem: "persistence",
		Name:      "last_plan_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent plan persisted to Postgres.",
	})
	userSyncGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "coach_service",
		Subsystem: "persistence",
		Name:      "last_user_synced_timestamp_seconds",
		Help:      "Unix timestamp of the most recent user sync write.",
	})
)

func init() {
	prometheus.MustRegister(
		webhookVerifiedCounter,
		webhookRejectedCounter,
		planGeneratedCounter,
		planFailedCounter,
		facetDuration,
		planPersistGauge,
		userSyncGauge,
	)
}

// RecordWebhookVerified counts a delivery that passed verification.
func RecordWebhookVerified() {
	webhookVerifiedCounter.Inc()
}

// RecordWebhookRejected counts a rejected delivery by reason.
func RecordWebhookRejected(reason string) {
	webhookRejectedCounter.WithLabelValues(reason).Inc()
}

// RecordPlanGenerated counts a successful generation run.
func RecordPlanGenerated() {
	planGeneratedCounter.Inc()
}

// RecordPlanFailed counts an aborted generation run.
func RecordPlanFailed() {
	planFailedCounter.Inc()
}

// ObserveFacetCompletion records the duration of one completion call.
func ObserveFacetCompletion(facet string, d time.Duration) {
	facetDuration.WithLabelValues(facet).Observe(d.Seconds())
}

// RecordPlanPersisted updates the plan persistence watermark gauge.
func RecordPlanPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	planPersistGauge.Set(float64(ts.Unix()))
}

// RecordUserSynced updates the user sync watermark gauge.
func RecordUserSynced(ts time.Time) {
	if ts.IsZero() {
		return
	}
	userSyncGauge.Set(float64(ts.Unix()))
}
