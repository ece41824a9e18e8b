package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.SetConsumeMode("script")
	m.SetConsumeMode("fallback")
	m.ObserveRedemption(ResultRedeemed)
	m.ObserveRedemption(ResultRedeemed)
	m.ObserveRedemption(ResultExhausted)
	m.TokenCreated()
	m.SignedURLFailed()

	assert.Equal(t, float64(0), testutil.ToFloat64(m.consumeMode.WithLabelValues("script")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.consumeMode.WithLabelValues("fallback")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.redemptions.WithLabelValues(ResultRedeemed)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.redemptions.WithLabelValues(ResultExhausted)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.tokensCreated))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.signedURLFails))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.SetConsumeMode("script")
		m.ObserveRedemption(ResultError)
		m.TokenCreated()
		m.SignedURLFailed()
	})
}
