package mocks

import (
	"context"
	"go-gin-flight-booking/internal/model"
	"go-gin-flight-booking/internal/pricing"

	"github.com/stretchr/testify/mock"
)

type BookingServiceMock struct {
	mock.Mock
}

func NewBookingServiceMock() *BookingServiceMock {
	return &BookingServiceMock{}
}

func (m *BookingServiceMock) CreateReservation(ctx context.Context, req model.CreateReservationRequest) (*model.Reservation, error) {
	args := m.Called(ctx, req)
	return reservationOrNil(args)
}

func (m *BookingServiceMock) UpdatePassengerPackage(ctx context.Context, reservationID, passengerID string, in model.PackageInput) (*model.Reservation, error) {
	args := m.Called(ctx, reservationID, passengerID, in)
	return reservationOrNil(args)
}

func (m *BookingServiceMock) RemovePassengerPackage(ctx context.Context, reservationID, passengerID string) (*model.Reservation, error) {
	args := m.Called(ctx, reservationID, passengerID)
	return reservationOrNil(args)
}

func (m *BookingServiceMock) CancelReservation(ctx context.Context, id string) (*model.Reservation, error) {
	args := m.Called(ctx, id)
	return reservationOrNil(args)
}

func (m *BookingServiceMock) ConfirmReservation(ctx context.Context, id string) (*model.Reservation, error) {
	args := m.Called(ctx, id)
	return reservationOrNil(args)
}

func (m *BookingServiceMock) GetReservation(ctx context.Context, id string) (*model.Reservation, error) {
	args := m.Called(ctx, id)
	return reservationOrNil(args)
}

func (m *BookingServiceMock) ListReservations(ctx context.Context, flightID string) ([]*model.Reservation, error) {
	args := m.Called(ctx, flightID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Reservation), args.Error(1)
}

func (m *BookingServiceMock) SeatMap(ctx context.Context, flightID string) (*model.SeatMap, error) {
	args := m.Called(ctx, flightID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SeatMap), args.Error(1)
}

func (m *BookingServiceMock) Quote(ctx context.Context, req model.QuoteRequest) (*model.Quote, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Quote), args.Error(1)
}

func (m *BookingServiceMock) PriceTable() pricing.PriceTable {
	args := m.Called()
	return args.Get(0).(pricing.PriceTable)
}

func reservationOrNil(args mock.Arguments) (*model.Reservation, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Reservation), args.Error(1)
}
