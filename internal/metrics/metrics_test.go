package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)

	m.ExportedRows.WithLabelValues("facility").Add(10)
	m.ExportedRows.WithLabelValues("item").Add(3)
	m.Predictions.WithLabelValues("approval").Inc()
	m.RemindersFlagged.Inc()

	assert.Equal(t, 10.0, testutil.ToFloat64(m.ExportedRows.WithLabelValues("facility")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ExportedRows.WithLabelValues("item")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Predictions.WithLabelValues("approval")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RemindersFlagged))
}

func TestObserveTraining(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)

	m.ObserveTraining("approval", 0.85, 120, false)
	m.ObserveTraining("noshow", 0.5, 5, true)

	assert.Equal(t, 0.85, testutil.ToFloat64(m.ModelAccuracy.WithLabelValues("approval")))
	assert.Equal(t, 120.0, testutil.ToFloat64(m.ModelSamples.WithLabelValues("approval")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.BaselineModel.WithLabelValues("approval")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BaselineModel.WithLabelValues("noshow")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TrainingRuns.WithLabelValues("noshow")))

	// repeat runs accumulate the counter but replace the gauges
	m.ObserveTraining("noshow", 0.7, 40, false)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.TrainingRuns.WithLabelValues("noshow")))
	assert.Equal(t, 0.7, testutil.ToFloat64(m.ModelAccuracy.WithLabelValues("noshow")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.BaselineModel.WithLabelValues("noshow")))
}

func TestSeparateRegistriesDoNotCollide(t *testing.T) {
	a := NewWithRegistry(prometheus.NewRegistry())
	b := NewWithRegistry(prometheus.NewRegistry())
	require.NotNil(t, a)
	require.NotNil(t, b)

	a.PredictionErrors.Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(a.PredictionErrors))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.PredictionErrors))
}
