package repository

import (
	"context"
	"go-gin-flight-booking/internal/model"
	apperrors "go-gin-flight-booking/pkg/app_errors"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore 記憶體版 Store，用於單機執行與測試
// 所有寫入都在同一把鎖內完成 check-and-insert，效果等同資料庫的唯一索引
type MemoryStore struct {
	mu           sync.RWMutex
	flights      map[string]*model.Flight
	reservations map[string]*model.Reservation
	// 寫入順序，列表時由新到舊
	order []string
	// seats: flightID -> seat -> reservationID，只包含有效訂位
	seats map[string]map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		flights:      make(map[string]*model.Flight),
		reservations: make(map[string]*model.Reservation),
		seats:        make(map[string]map[string]string),
	}
}

func (s *MemoryStore) CreateFlight(ctx context.Context, flight *model.Flight) (*model.Flight, error) {
	if flight.ID == "" {
		return nil, apperrors.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.flights[flight.ID]; exists {
		return nil, apperrors.ErrInvalidInput
	}

	now := time.Now().UTC()
	f := *flight
	if f.CreatedAt.IsZero() {
		f.CreatedAt = now
	}
	f.UpdatedAt = now
	s.flights[f.ID] = &f

	out := f
	return &out, nil
}

func (s *MemoryStore) FindFlight(ctx context.Context, id string) (*model.Flight, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.flights[id]
	if !ok {
		return nil, apperrors.ErrFlightNotFound
	}
	out := *f
	return &out, nil
}

func (s *MemoryStore) ListFlights(ctx context.Context) ([]*model.Flight, error) {
	return s.SearchFlights(ctx, model.FlightSearchParams{})
}

func (s *MemoryStore) SearchFlights(ctx context.Context, params model.FlightSearchParams) ([]*model.Flight, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	flights := make([]*model.Flight, 0, len(s.flights))
	for _, f := range s.flights {
		if !matchesSearch(f, params) {
			continue
		}
		out := *f
		flights = append(flights, &out)
	}

	sort.Slice(flights, func(i, j int) bool {
		if flights[i].DepartureTime.Equal(flights[j].DepartureTime) {
			return flights[i].FlightNumber < flights[j].FlightNumber
		}
		return flights[i].DepartureTime.Before(flights[j].DepartureTime)
	})

	return flights, nil
}

func (s *MemoryStore) ListActiveReservationsForFlight(ctx context.Context, flightID string) ([]*model.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reservations := make([]*model.Reservation, 0)
	for _, id := range s.order {
		r := s.reservations[id]
		if r.FlightID == flightID && r.IsActive() {
			reservations = append(reservations, r.Clone())
		}
	}
	return reservations, nil
}

func (s *MemoryStore) InsertReservation(ctx context.Context, reservation *model.Reservation) (*model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.flights[reservation.FlightID]; !ok {
		return nil, apperrors.ErrFlightNotFound
	}
	if _, exists := s.reservations[reservation.ID]; exists {
		return nil, apperrors.ErrInvalidInput
	}

	held := s.seats[reservation.FlightID]
	requested := make(map[string]bool)
	for _, seat := range reservation.Seats() {
		if _, taken := held[seat]; taken || requested[seat] {
			return nil, apperrors.ErrDuplicateSeat
		}
		requested[seat] = true
	}

	now := time.Now().UTC()
	r := reservation.Clone()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	for i := range r.Passengers {
		if r.Passengers[i].CreatedAt.IsZero() {
			r.Passengers[i].CreatedAt = now
		}
		r.Passengers[i].UpdatedAt = now
	}

	s.reservations[r.ID] = r
	s.order = append(s.order, r.ID)
	if r.IsActive() {
		for seat := range requested {
			s.holdSeat(r.FlightID, seat, r.ID)
		}
	}

	return r.Clone(), nil
}

func (s *MemoryStore) UpdatePassengerPackage(ctx context.Context, reservationID, passengerID string, pkg model.OptionalPackage, totals model.Totals) (*model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reservations[reservationID]
	if !ok {
		return nil, apperrors.ErrReservationNotFound
	}
	if !r.IsActive() {
		return nil, apperrors.ErrInvalidStatusTransition
	}
	passenger, idx := r.FindPassenger(passengerID)
	if passenger == nil {
		return nil, apperrors.ErrPassengerNotFound
	}

	oldSeat := passenger.OptionalPackage.Seat
	newSeat := pkg.Seat
	if newSeat != "" && newSeat != oldSeat {
		if _, taken := s.seats[r.FlightID][newSeat]; taken {
			return nil, apperrors.ErrDuplicateSeat
		}
	}

	now := time.Now().UTC()
	if oldSeat != newSeat {
		if oldSeat != "" {
			s.releaseSeat(r.FlightID, oldSeat, r.ID)
		}
		if newSeat != "" {
			s.holdSeat(r.FlightID, newSeat, r.ID)
		}
	}

	pkg.BaggageItems = append([]model.BaggageItem(nil), pkg.BaggageItems...)
	r.Passengers[idx].OptionalPackage = pkg
	r.Passengers[idx].UpdatedAt = now
	r.Totals = totals
	r.UpdatedAt = now

	return r.Clone(), nil
}

func (s *MemoryStore) CancelReservation(ctx context.Context, id string) (*model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reservations[id]
	if !ok {
		return nil, apperrors.ErrReservationNotFound
	}
	if !r.Status.CanTransitionTo(model.ReservationStatusCancelled) {
		return nil, apperrors.ErrInvalidStatusTransition
	}

	for _, seat := range r.Seats() {
		s.releaseSeat(r.FlightID, seat, r.ID)
	}
	r.Status = model.ReservationStatusCancelled
	r.UpdatedAt = time.Now().UTC()

	return r.Clone(), nil
}

func (s *MemoryStore) ConfirmReservation(ctx context.Context, id string) (*model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reservations[id]
	if !ok {
		return nil, apperrors.ErrReservationNotFound
	}
	if !r.Status.CanTransitionTo(model.ReservationStatusConfirmed) {
		return nil, apperrors.ErrInvalidStatusTransition
	}

	r.Status = model.ReservationStatusConfirmed
	r.UpdatedAt = time.Now().UTC()

	return r.Clone(), nil
}

func (s *MemoryStore) FindReservation(ctx context.Context, id string) (*model.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reservations[id]
	if !ok {
		return nil, apperrors.ErrReservationNotFound
	}
	return r.Clone(), nil
}

func (s *MemoryStore) ListReservations(ctx context.Context, flightID string) ([]*model.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reservations := make([]*model.Reservation, 0)
	for i := len(s.order) - 1; i >= 0; i-- {
		r := s.reservations[s.order[i]]
		if flightID != "" && r.FlightID != flightID {
			continue
		}
		reservations = append(reservations, r.Clone())
	}
	return reservations, nil
}

// holdSeat / releaseSeat 呼叫端需持有寫鎖
func (s *MemoryStore) holdSeat(flightID, seat, reservationID string) {
	held, ok := s.seats[flightID]
	if !ok {
		held = make(map[string]string)
		s.seats[flightID] = held
	}
	held[seat] = reservationID
}

func (s *MemoryStore) releaseSeat(flightID, seat, reservationID string) {
	if s.seats[flightID][seat] == reservationID {
		delete(s.seats[flightID], seat)
	}
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
