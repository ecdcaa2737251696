package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DispatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sscs_dispatch_total",
		Help: "Callback dispatches by event type, phase and result",
	}, []string{"event", "phase", "result"})

	HandlerInvocationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sscs_handler_invocations_total",
		Help: "Handler invocations by handler name",
	}, []string{"handler"})

	HearingMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sscs_hearing_messages_total",
		Help: "Inbound hearing status messages by classifier decision",
	}, []string{"decision"})

	HearingSyncTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sscs_hearing_sync_total",
		Help: "Hearing synchronizer write outcomes",
	}, []string{"result"})

	HearingSyncAttempts = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sscs_hearing_sync_attempts",
		Help:    "Compare-and-swap attempts per applied hearing message",
		Buckets: []float64{1, 2, 3, 5, 8},
	})

	HearingRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sscs_hearing_requests_total",
		Help: "Outbound hearing requests by desired state and result",
	}, []string{"state", "result"})

	BusDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sscs_bus_dropped_total",
		Help: "In-memory bus message drops by topic and reason",
	}, []string{"topic", "reason"})
)

func IncDispatch(event, phase, result string) {
	DispatchTotal.WithLabelValues(event, phase, result).Inc()
}

func IncHandler(name string) {
	HandlerInvocationsTotal.WithLabelValues(name).Inc()
}

func IncHearingDecision(decision string) {
	HearingMessagesTotal.WithLabelValues(decision).Inc()
}

func ObserveHearingSync(result string, attempts int) {
	HearingSyncTotal.WithLabelValues(result).Inc()
	if attempts > 0 {
		HearingSyncAttempts.Observe(float64(attempts))
	}
}

func IncHearingRequest(state, result string) {
	HearingRequestsTotal.WithLabelValues(state, result).Inc()
}

// IncBusDrop фиксирует потерю сообщения шиной с указанной причиной.
func IncBusDrop(topic, reason string) {
	if topic == "" {
		topic = "unknown"
	}
	if reason == "" {
		reason = "unknown"
	}
	BusDroppedTotal.WithLabelValues(topic, reason).Inc()
}
