package consumer

import "github.com/prometheus/client_golang/prometheus"

var (
	processedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "coach_service",
		Subsystem: "consumer",
		Name:      "events_processed_total",
		Help:      "Number of events successfully handled and committed, labeled by event type.",
	}, []string{"event_type"})

	decodeErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "coach_service",
		Subsystem: "consumer",
		Name:      "decode_errors_total",
		Help:      "Number of malformed records skipped, labeled by topic.",
	}, []string{"topic"})

	handlerErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "coach_service",
		Subsystem: "consumer",
		Name:      "handler_errors_total",
		Help:      "Number of handler failures, labeled by event type.",
	}, []string{"event_type"})
)

func init() {
	prometheus.MustRegister(processedCounter, decodeErrorCounter, handlerErrorCounter)
}

func recordProcessed(msg Message) {
	processedCounter.WithLabelValues(msg.EventType).Inc()
}

func recordDecodeError(topic string) {
	decodeErrorCounter.WithLabelValues(topic).Inc()
}

func recordHandlerError(msg Message) {
	handlerErrorCounter.WithLabelValues(msg.EventType).Inc()
}
