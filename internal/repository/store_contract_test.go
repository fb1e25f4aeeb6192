package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"go-gin-flight-booking/internal/model"
	apperrors "go-gin-flight-booking/pkg/app_errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStoreContract 所有 Store 實作都必須通過的行為
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("FindFlight", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		flight := createTestFlight(t, store, "BR198", 10)

		found, err := store.FindFlight(ctx, flight.ID)
		require.NoError(t, err)
		assert.Equal(t, "BR198", found.FlightNumber)
		assert.Equal(t, 10, found.SeatCapacity)

		_, err = store.FindFlight(ctx, uuid.New().String())
		assert.ErrorIs(t, err, apperrors.ErrFlightNotFound)
	})

	t.Run("SearchFlights", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		createTestFlight(t, store, "BR198", 10)

		day := time.Date(2030, 5, 1, 0, 0, 0, 0, time.UTC)
		flights, err := store.SearchFlights(ctx, model.FlightSearchParams{Origin: "taipei", Departure: &day})
		require.NoError(t, err)
		require.Len(t, flights, 1)
		assert.Equal(t, "BR198", flights[0].FlightNumber)

		other := day.AddDate(0, 0, 1)
		flights, err = store.SearchFlights(ctx, model.FlightSearchParams{Departure: &other})
		require.NoError(t, err)
		assert.Empty(t, flights)

		flights, err = store.SearchFlights(ctx, model.FlightSearchParams{Destination: "osaka"})
		require.NoError(t, err)
		assert.Empty(t, flights)
	})

	t.Run("InsertReservation rejects held seat", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		flight := createTestFlight(t, store, "BR198", 10)

		first, err := store.InsertReservation(ctx, newTestReservation(flight.ID, "1A"))
		require.NoError(t, err)
		assert.Equal(t, []string{"1A"}, first.Seats())

		_, err = store.InsertReservation(ctx, newTestReservation(flight.ID, "1A"))
		assert.ErrorIs(t, err, apperrors.ErrDuplicateSeat)

		active, err := store.ListActiveReservationsForFlight(ctx, flight.ID)
		require.NoError(t, err)
		assert.Len(t, active, 1)
	})

	t.Run("InsertReservation rejects same seat twice in one request", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		flight := createTestFlight(t, store, "BR198", 10)

		_, err := store.InsertReservation(ctx, newTestReservation(flight.ID, "2B", "2B"))
		assert.ErrorIs(t, err, apperrors.ErrDuplicateSeat)

		// 失敗的請求不能留下佔位
		_, err = store.InsertReservation(ctx, newTestReservation(flight.ID, "2B"))
		assert.NoError(t, err)
	})

	t.Run("InsertReservation unknown flight", func(t *testing.T) {
		store := newStore(t)
		_, err := store.InsertReservation(context.Background(), newTestReservation(uuid.New().String(), "1A"))
		assert.ErrorIs(t, err, apperrors.ErrFlightNotFound)
	})

	t.Run("Passengers without seat do not collide", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		flight := createTestFlight(t, store, "BR198", 10)

		_, err := store.InsertReservation(ctx, newTestReservation(flight.ID, "", ""))
		require.NoError(t, err)
		_, err = store.InsertReservation(ctx, newTestReservation(flight.ID, ""))
		require.NoError(t, err)
	})

	t.Run("CancelReservation frees seat", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		flight := createTestFlight(t, store, "BR198", 10)

		reservation, err := store.InsertReservation(ctx, newTestReservation(flight.ID, "1A"))
		require.NoError(t, err)

		cancelled, err := store.CancelReservation(ctx, reservation.ID)
		require.NoError(t, err)
		assert.Equal(t, model.ReservationStatusCancelled, cancelled.Status)
		assert.Equal(t, reservation.GrandTotal, cancelled.GrandTotal)

		active, err := store.ListActiveReservationsForFlight(ctx, flight.ID)
		require.NoError(t, err)
		assert.Empty(t, active)

		_, err = store.InsertReservation(ctx, newTestReservation(flight.ID, "1A"))
		assert.NoError(t, err)

		_, err = store.CancelReservation(ctx, reservation.ID)
		assert.ErrorIs(t, err, apperrors.ErrInvalidStatusTransition)

		_, err = store.CancelReservation(ctx, uuid.New().String())
		assert.ErrorIs(t, err, apperrors.ErrReservationNotFound)
	})

	t.Run("ConfirmReservation", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		flight := createTestFlight(t, store, "BR198", 10)

		reservation, err := store.InsertReservation(ctx, newTestReservation(flight.ID, "3C"))
		require.NoError(t, err)

		confirmed, err := store.ConfirmReservation(ctx, reservation.ID)
		require.NoError(t, err)
		assert.Equal(t, model.ReservationStatusConfirmed, confirmed.Status)

		_, err = store.ConfirmReservation(ctx, reservation.ID)
		assert.ErrorIs(t, err, apperrors.ErrInvalidStatusTransition)

		// 已確認的訂位仍佔用座位
		_, err = store.InsertReservation(ctx, newTestReservation(flight.ID, "3C"))
		assert.ErrorIs(t, err, apperrors.ErrDuplicateSeat)
	})

	t.Run("UpdatePassengerPackage moves seat", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		flight := createTestFlight(t, store, "BR198", 10)

		reservation, err := store.InsertReservation(ctx, newTestReservation(flight.ID, "1A"))
		require.NoError(t, err)
		other, err := store.InsertReservation(ctx, newTestReservation(flight.ID, "2B"))
		require.NoError(t, err)
		passengerID := reservation.Passengers[0].ID

		// 重選自己的座位
		pkg := reservation.Passengers[0].OptionalPackage
		pkg.Meal = model.MealKosher
		pkg.MealPrice = 70
		totals := model.Totals{BaseFareTotal: 1000, OptionalPackageTotal: 70, GrandTotal: 1070}
		updated, err := store.UpdatePassengerPackage(ctx, reservation.ID, passengerID, pkg, totals)
		require.NoError(t, err)
		assert.Equal(t, model.MealKosher, updated.Passengers[0].OptionalPackage.Meal)
		assert.Equal(t, 1070.0, updated.GrandTotal)

		// 別人的座位
		pkg.Seat = "2B"
		_, err = store.UpdatePassengerPackage(ctx, reservation.ID, passengerID, pkg, totals)
		assert.ErrorIs(t, err, apperrors.ErrDuplicateSeat)

		// 換到空位後舊座位釋放
		pkg.Seat = "5E"
		updated, err = store.UpdatePassengerPackage(ctx, reservation.ID, passengerID, pkg, totals)
		require.NoError(t, err)
		assert.Equal(t, []string{"5E"}, updated.Seats())

		_, err = store.InsertReservation(ctx, newTestReservation(flight.ID, "1A"))
		assert.NoError(t, err)

		_, err = store.UpdatePassengerPackage(ctx, reservation.ID, uuid.New().String(), pkg, totals)
		assert.ErrorIs(t, err, apperrors.ErrPassengerNotFound)

		_, err = store.CancelReservation(ctx, other.ID)
		require.NoError(t, err)
		_, err = store.UpdatePassengerPackage(ctx, other.ID, other.Passengers[0].ID, pkg, totals)
		assert.ErrorIs(t, err, apperrors.ErrInvalidStatusTransition)
	})

	t.Run("ListReservations", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		a := createTestFlight(t, store, "BR198", 10)
		b := createTestFlight(t, store, "CI100", 10)

		_, err := store.InsertReservation(ctx, newTestReservation(a.ID, "1A"))
		require.NoError(t, err)
		_, err = store.InsertReservation(ctx, newTestReservation(b.ID, "1A"))
		require.NoError(t, err)

		all, err := store.ListReservations(ctx, "")
		require.NoError(t, err)
		assert.Len(t, all, 2)

		onlyA, err := store.ListReservations(ctx, a.ID)
		require.NoError(t, err)
		require.Len(t, onlyA, 1)
		assert.Equal(t, a.ID, onlyA[0].FlightID)
	})

	t.Run("Concurrent inserts for one seat", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		flight := createTestFlight(t, store, "BR198", 10)

		const attempts = 10
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
			conflicts int
		)
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := store.InsertReservation(ctx, newTestReservation(flight.ID, "7G"))
				mu.Lock()
				defer mu.Unlock()
				if err == nil {
					successes++
				} else if assert.ErrorIs(t, err, apperrors.ErrDuplicateSeat) {
					conflicts++
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, successes)
		assert.Equal(t, attempts-1, conflicts)
	})
}

func createTestFlight(t *testing.T, store Store, number string, capacity int) *model.Flight {
	t.Helper()

	departure := time.Date(2030, 5, 1, 8, 30, 0, 0, time.UTC)
	flight, err := store.CreateFlight(context.Background(), &model.Flight{
		ID:            uuid.New().String(),
		FlightNumber:  number,
		Airline:       "Test Air",
		Origin:        "Taipei",
		Destination:   "Tokyo",
		DepartureTime: departure,
		ArrivalTime:   departure.Add(3 * time.Hour),
		AircraftType:  "A321",
		SeatCapacity:  capacity,
		BaseFare:      1000,
		IsAvailable:   true,
	})
	require.NoError(t, err)
	return flight
}

// newTestReservation 每個座位一位乘客，空字串代表未選座
func newTestReservation(flightID string, seats ...string) *model.Reservation {
	passengers := make([]model.Passenger, len(seats))
	for i, seat := range seats {
		pkg := model.DefaultOptionalPackage()
		pkg.Seat = seat
		passengers[i] = model.Passenger{
			ID:              uuid.New().String(),
			FullName:        fmt.Sprintf("Passenger %d", i+1),
			Email:           fmt.Sprintf("p%d@example.com", i+1),
			PassportNumber:  fmt.Sprintf("P%07d", i+1),
			OptionalPackage: pkg,
		}
	}

	fare := 1000.0
	total := fare * float64(len(seats))
	return &model.Reservation{
		ID:                uuid.New().String(),
		FlightID:          flightID,
		Passengers:        passengers,
		Status:            model.ReservationStatusPending,
		BaseFare:          fare,
		Totals:            model.Totals{BaseFareTotal: total, GrandTotal: total},
		PriceTableVersion: "test",
	}
}
