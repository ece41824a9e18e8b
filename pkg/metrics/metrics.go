// Package metrics holds the Prometheus collectors exported by the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "download_gate"

// redemption outcomes used as the result label
const (
	ResultRedeemed  = "redeemed"
	ResultMalformed = "malformed"
	ResultNotFound  = "not_found"
	ResultExhausted = "exhausted"
	ResultError     = "error"
)

// Metrics groups the collectors; a nil *Metrics is valid and records nothing
type Metrics struct {
	consumeMode    *prometheus.GaugeVec
	redemptions    *prometheus.CounterVec
	tokensCreated  prometheus.Counter
	signedURLFails prometheus.Counter
}

// New creates the collectors and registers them with r
func New(r prometheus.Registerer) *Metrics {
	m := &Metrics{
		consumeMode: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "consume_mode",
				Help:      "Gauge set to 1 for the active token consume mode (script or fallback).",
			},
			[]string{"mode"},
		),
		redemptions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "redemptions_total",
				Help:      "Redemption attempts by result.",
			},
			[]string{"result"},
		),
		tokensCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tokens_created_total",
				Help:      "Download tokens issued.",
			},
		),
		signedURLFails: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "signed_url_failures_total",
				Help:      "Redemptions that consumed a use but failed to obtain a signed URL.",
			},
		),
	}

	if r != nil {
		r.MustRegister(m.consumeMode, m.redemptions, m.tokensCreated, m.signedURLFails)
	}

	return m
}

// SetConsumeMode marks mode as the active consume mode
func (m *Metrics) SetConsumeMode(mode string) {
	if m == nil {
		return
	}
	m.consumeMode.Reset()
	m.consumeMode.WithLabelValues(mode).Set(1)
}

func (m *Metrics) ObserveRedemption(result string) {
	if m == nil {
		return
	}
	m.redemptions.WithLabelValues(result).Inc()
}

func (m *Metrics) TokenCreated() {
	if m == nil {
		return
	}
	m.tokensCreated.Inc()
}

func (m *Metrics) SignedURLFailed() {
	if m == nil {
		return
	}
	m.signedURLFails.Inc()
}
