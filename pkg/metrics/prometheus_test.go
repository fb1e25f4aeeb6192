package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("flight_booking", reg)

	m.ReservationsCreated.Inc()
	m.SeatConflicts.Add(2)
	m.ErrorsCount.WithLabelValues("create_reservation").Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReservationsCreated))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SeatConflicts))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ErrorsCount.WithLabelValues("create_reservation")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNewMetrics_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewNopMetrics()
		NewNopMetrics()
	})
}
