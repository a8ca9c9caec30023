package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	inboundEnvelopes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "meshctl",
			Subsystem: "session",
			Name:      "inbound_envelopes_total",
			Help:      "Inbound envelopes by payload variant.",
		},
		[]string{"variant"},
	)
	outboundEnvelopes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "meshctl",
			Subsystem: "session",
			Name:      "outbound_envelopes_total",
			Help:      "Outbound envelopes by payload variant.",
		},
		[]string{"variant"},
	)
	handshakes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "meshctl",
			Subsystem: "session",
			Name:      "handshakes_total",
			Help:      "Configuration handshake attempts by outcome.",
		},
		[]string{"outcome"},
	)
	sessionState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "meshctl",
			Subsystem: "session",
			Name:      "state",
			Help:      "Session state: 0 disconnected, 1 connected, 2 configuring, 3 ready.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(inboundEnvelopes, outboundEnvelopes, handshakes, sessionState)
	})
}

func RecordInboundEnvelope(variant string) {
	RegisterMetrics()
	inboundEnvelopes.WithLabelValues(variant).Inc()
}

func RecordOutboundEnvelope(variant string) {
	RegisterMetrics()
	outboundEnvelopes.WithLabelValues(variant).Inc()
}

func RecordHandshake(outcome string) {
	RegisterMetrics()
	handshakes.WithLabelValues(outcome).Inc()
}

func RecordSessionState(state int) {
	RegisterMetrics()
	sessionState.Set(float64(state))
}
