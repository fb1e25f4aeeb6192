package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all prometheus metrics of the booking service
type Metrics struct {
	ReservationsCreated  prometheus.Counter
	ReservationsCanceled prometheus.Counter
	PackagesUpdated      prometheus.Counter
	SeatConflicts        prometheus.Counter
	CacheDriftCorrected  prometheus.Counter
	BookingDuration      prometheus.Histogram
	ErrorsCount          *prometheus.CounterVec
}

// NewMetrics registers the booking metrics on reg
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ReservationsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservations_created_total",
			Help:      "The total number of reservations created",
		}),
		ReservationsCanceled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservations_cancelled_total",
			Help:      "The total number of reservations cancelled",
		}),
		PackagesUpdated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "optional_packages_updated_total",
			Help:      "The total number of passenger optional package edits",
		}),
		SeatConflicts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "seat_conflicts_total",
			Help:      "The total number of rejected seat selections",
		}),
		CacheDriftCorrected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "seat_map_cache_drift_total",
			Help:      "The total number of cached seat maps that differed from reservations",
		}),
		BookingDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "booking_duration_seconds",
			Help:      "Time taken to create a reservation",
			Buckets:   prometheus.DefBuckets,
		}),
		ErrorsCount: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "The total number of errors",
		}, []string{"operation"}),
	}
}

// NewNopMetrics 不對外註冊，給測試與未開啟 metrics 的情境使用
func NewNopMetrics() *Metrics {
	return NewMetrics("nop", prometheus.NewRegistry())
}
