package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go-gin-flight-booking/internal/ledger"
	"go-gin-flight-booking/internal/model"
	"go-gin-flight-booking/internal/pricing"
	"go-gin-flight-booking/internal/queue"
	"go-gin-flight-booking/internal/repository"
	"go-gin-flight-booking/internal/service"
	"go-gin-flight-booking/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapCache 記憶體版座位快取；沒有 worker 消費事件，失效只能來自同步呼叫
type mapCache struct {
	mu            sync.Mutex
	seats         map[string][]string
	versions      map[string]int64
	invalidateErr error
}

func newMapCache() *mapCache {
	return &mapCache{
		seats:    make(map[string][]string),
		versions: make(map[string]int64),
	}
}

func (c *mapCache) Get(ctx context.Context, flightID string) ([]string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	seats, ok := c.seats[flightID]
	return seats, ok, nil
}

func (c *mapCache) Version(ctx context.Context, flightID string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.versions[flightID], nil
}

func (c *mapCache) Set(ctx context.Context, flightID string, version int64, seats []string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.versions[flightID] != version {
		return false, nil
	}
	c.seats[flightID] = append([]string{}, seats...)
	return true, nil
}

func (c *mapCache) Invalidate(ctx context.Context, flightID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.invalidateErr != nil {
		return c.invalidateErr
	}
	delete(c.seats, flightID)
	c.versions[flightID]++
	return nil
}

func setupCachedBooking(t *testing.T, cache *mapCache) (*bookingFixture, *metrics.Metrics) {
	t.Helper()

	store := repository.NewMemoryStore()
	flight := addFlight(t, store, "CCS-101", 10, true)
	m := metrics.NewMetrics("test", prometheus.NewRegistry())
	svc := service.NewBookingService(
		store,
		ledger.NewSeatLedger(store, cache),
		pricing.NewReservationPricer(pricing.DefaultPriceTable()),
		queue.NewMemoryEventQueue(64),
		m,
	)
	return &bookingFixture{store: store, flight: flight, metrics: m, svc: svc}, m
}

func occupied(t *testing.T, f *bookingFixture) []string {
	t.Helper()

	seatMap, err := f.svc.SeatMap(context.Background(), f.flight.ID)
	require.NoError(t, err)
	return seatMap.Occupied
}

func TestBookingService_SeatMapReadsOwnWrites(t *testing.T) {
	ctx := context.Background()
	cache := newMapCache()
	f, _ := setupCachedBooking(t, cache)

	// 預熱快取
	assert.Empty(t, occupied(t, f))
	_, hit, _ := cache.Get(ctx, f.flight.ID)
	require.True(t, hit)

	r := reserve(t, f, "1A")
	assert.Equal(t, []string{"1A"}, occupied(t, f))

	_, err := f.svc.UpdatePassengerPackage(ctx, r.ID, r.Passengers[0].ID, model.PackageInput{Seat: "2B"})
	require.NoError(t, err)
	assert.Equal(t, []string{"2B"}, occupied(t, f))

	_, err = f.svc.RemovePassengerPackage(ctx, r.ID, r.Passengers[0].ID)
	require.NoError(t, err)
	assert.Empty(t, occupied(t, f))

	_, err = f.svc.UpdatePassengerPackage(ctx, r.ID, r.Passengers[0].ID, model.PackageInput{Seat: "3C"})
	require.NoError(t, err)
	assert.Equal(t, []string{"3C"}, occupied(t, f))

	_, err = f.svc.CancelReservation(ctx, r.ID)
	require.NoError(t, err)
	assert.Empty(t, occupied(t, f))

	// 取消後立即可以重新訂同一座位
	reserve(t, f, "3C")
	assert.Equal(t, []string{"3C"}, occupied(t, f))
}

func TestBookingService_InvalidateFailureDoesNotFailBooking(t *testing.T) {
	cache := newMapCache()
	cache.invalidateErr = errors.New("redis unavailable")
	f, m := setupCachedBooking(t, cache)

	r := reserve(t, f, "1A")
	assert.Equal(t, []string{"1A"}, r.Seats())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ErrorsCount.WithLabelValues("invalidate_seat_map")))
}
