package repository

import (
	"context"
	"go-gin-flight-booking/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
)

type FlightRepository interface {
	CreateFlight(ctx context.Context, flight *model.Flight) (*model.Flight, error)
	FindFlight(ctx context.Context, id string) (*model.Flight, error)
	ListFlights(ctx context.Context) ([]*model.Flight, error)
	SearchFlights(ctx context.Context, params model.FlightSearchParams) ([]*model.Flight, error)
}

// ReservationRepository 訂位持久層
//
// InsertReservation 與 UpdatePassengerPackage 必須在儲存層保證
// (flight_id, seat) 在有效訂位中唯一，違反時回傳 ErrDuplicateSeat。
type ReservationRepository interface {
	ListActiveReservationsForFlight(ctx context.Context, flightID string) ([]*model.Reservation, error)
	InsertReservation(ctx context.Context, reservation *model.Reservation) (*model.Reservation, error)
	UpdatePassengerPackage(ctx context.Context, reservationID, passengerID string, pkg model.OptionalPackage, totals model.Totals) (*model.Reservation, error)
	// CancelReservation 取消後座位立即釋放，金額保留
	CancelReservation(ctx context.Context, id string) (*model.Reservation, error)
	ConfirmReservation(ctx context.Context, id string) (*model.Reservation, error)
	FindReservation(ctx context.Context, id string) (*model.Reservation, error)
	// ListReservations flightID 為空字串時回傳全部
	ListReservations(ctx context.Context, flightID string) ([]*model.Reservation, error)
}

type Store interface {
	FlightRepository
	ReservationRepository
}

// PostgresStore 組合 pgx 版的航班與訂位 repository
type PostgresStore struct {
	FlightRepository
	ReservationRepository
}

func NewPostgresStore(pool *pgxpool.Pool) Store {
	return &PostgresStore{
		FlightRepository:      NewFlightRepository(pool),
		ReservationRepository: NewReservationRepository(pool),
	}
}

// matchesSearch 記憶體版的搜尋條件，起訖地不分大小寫的部分比對
func matchesSearch(f *model.Flight, params model.FlightSearchParams) bool {
	if params.Origin != "" && !containsFold(f.Origin, params.Origin) {
		return false
	}
	if params.Destination != "" && !containsFold(f.Destination, params.Destination) {
		return false
	}
	if params.Departure != nil {
		start, end := params.DepartureWindow()
		dep := f.DepartureTime.UTC()
		if dep.Before(start) || !dep.Before(end) {
			return false
		}
	}
	return true
}
