package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/escalateai/api/internal/generation"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RecordAttempt(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	m.RecordAttempt(generation.Attempt{Role: generation.RolePrimary, Model: "m1", Outcome: generation.OutcomeTransient, Duration: time.Second})
	m.RecordAttempt(generation.Attempt{Role: generation.RolePrimary, Model: "m1", Outcome: generation.OutcomeTransient, Duration: time.Second})
	m.RecordAttempt(generation.Attempt{Role: generation.RoleFallback, Model: "m2", Outcome: generation.OutcomeSuccess, Duration: 2 * time.Second})

	assert.InDelta(t, 2, testutil.ToFloat64(m.attempts.WithLabelValues("primary", "m1", "transient_failure")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(m.attempts.WithLabelValues("fallback", "m2", "success")), 1e-9)
	assert.Equal(t, 2, testutil.CollectAndCount(m.attemptDuration))
}

func TestNewMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMetrics(reg)
	require.NoError(t, err)

	_, err = NewMetrics(reg)
	assert.Error(t, err)
}

func TestInitTracer_WithoutEndpoint(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), "escalateai-test", "")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestEndpointOptions(t *testing.T) {
	assert.Len(t, endpointOptions("http://collector:4317"), 1)
	assert.Len(t, endpointOptions("collector:4317"), 2)
}
