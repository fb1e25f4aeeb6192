package repository

import (
	"context"
	"testing"

	"go-gin-flight-booking/internal/model"
	apperrors "go-gin-flight-booking/pkg/app_errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store {
		return NewMemoryStore()
	})
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	flight := createTestFlight(t, store, "BR198", 10)

	reservation, err := store.InsertReservation(ctx, newTestReservation(flight.ID, "1A"))
	require.NoError(t, err)

	reservation.Passengers[0].OptionalPackage.Seat = "9Z"
	reservation.Status = model.ReservationStatusCancelled

	stored, err := store.FindReservation(ctx, reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, "1A", stored.Passengers[0].OptionalPackage.Seat)
	assert.Equal(t, model.ReservationStatusPending, stored.Status)
}

func TestMemoryStore_CreateFlightRequiresID(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.CreateFlight(context.Background(), &model.Flight{FlightNumber: "BR198"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestMemoryStore_SwapSeatWithinReservation(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	flight := createTestFlight(t, store, "BR198", 10)

	reservation, err := store.InsertReservation(ctx, newTestReservation(flight.ID, "1A", "1B"))
	require.NoError(t, err)

	// 同訂位的另一位乘客已持有 1B
	pkg := reservation.Passengers[0].OptionalPackage
	pkg.Seat = "1B"
	_, err = store.UpdatePassengerPackage(ctx, reservation.ID, reservation.Passengers[0].ID, pkg, reservation.Totals)
	assert.ErrorIs(t, err, apperrors.ErrDuplicateSeat)

	// 清除座位後即可被其他人選走
	pkg.Seat = ""
	_, err = store.UpdatePassengerPackage(ctx, reservation.ID, reservation.Passengers[0].ID, pkg, reservation.Totals)
	require.NoError(t, err)

	_, err = store.InsertReservation(ctx, newTestReservation(flight.ID, "1A"))
	assert.NoError(t, err)
}
