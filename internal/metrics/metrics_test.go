package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestRegistryIsSingleton(t *testing.T) {
	first := Registry("botpanel_test")
	second := Registry("ignored")
	require.NotNil(t, first)
	assert.Same(t, first, second)
}

func TestIncError(t *testing.T) {
	m := NewUnregistered("t")
	m.IncError("sync")
	m.IncError("sync")
	assert.Equal(t, 2.0, counterValue(t, m.Errors.WithLabelValues("sync")))

	var nilMetrics *Metrics
	assert.NotPanics(t, func() { nilMetrics.IncError("sync") })
}
