package service

import (
	"context"
	"errors"
	"fmt"
	"go-gin-flight-booking/internal/ledger"
	"go-gin-flight-booking/internal/model"
	"go-gin-flight-booking/internal/pricing"
	"go-gin-flight-booking/internal/queue"
	"go-gin-flight-booking/internal/repository"
	apperrors "go-gin-flight-booking/pkg/app_errors"
	"go-gin-flight-booking/pkg/logger"
	"go-gin-flight-booking/pkg/metrics"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BookingService interface {
	// 建立訂位：航班檢查 → 座位檢查 → 計價 → 寫入
	CreateReservation(ctx context.Context, req model.CreateReservationRequest) (*model.Reservation, error)
	// 修改乘客加購項目（含換座位），金額整筆重算
	UpdatePassengerPackage(ctx context.Context, reservationID, passengerID string, in model.PackageInput) (*model.Reservation, error)
	// 清除乘客加購項目並釋放座位
	RemovePassengerPackage(ctx context.Context, reservationID, passengerID string) (*model.Reservation, error)
	CancelReservation(ctx context.Context, id string) (*model.Reservation, error)
	ConfirmReservation(ctx context.Context, id string) (*model.Reservation, error)
	GetReservation(ctx context.Context, id string) (*model.Reservation, error)
	ListReservations(ctx context.Context, flightID string) ([]*model.Reservation, error)
	SeatMap(ctx context.Context, flightID string) (*model.SeatMap, error)
	// 試算，不寫入
	Quote(ctx context.Context, req model.QuoteRequest) (*model.Quote, error)
	PriceTable() pricing.PriceTable
}

type BookingServiceImpl struct {
	store    repository.Store
	ledger   ledger.SeatLedger
	pricer   pricing.ReservationPricer
	events   queue.ReservationEventQueue
	metrics  *metrics.Metrics
	validate *validator.Validate
}

// NewBookingService events 可為 nil（不發送事件）
func NewBookingService(
	store repository.Store,
	seatLedger ledger.SeatLedger,
	pricer pricing.ReservationPricer,
	events queue.ReservationEventQueue,
	m *metrics.Metrics,
) BookingService {
	if m == nil {
		m = metrics.NewNopMetrics()
	}
	return &BookingServiceImpl{
		store:    store,
		ledger:   seatLedger,
		pricer:   pricer,
		events:   events,
		metrics:  m,
		validate: newValidator(),
	}
}

func (s *BookingServiceImpl) CreateReservation(ctx context.Context, req model.CreateReservationRequest) (*model.Reservation, error) {
	start := time.Now()
	defer func() {
		s.metrics.BookingDuration.Observe(time.Since(start).Seconds())
	}()

	inputs, err := s.validatePassengers(req.Passengers)
	if err != nil {
		return nil, err
	}

	// 1. 航班必須存在且可訂
	flight, err := s.store.FindFlight(ctx, req.FlightID)
	if err != nil {
		return nil, s.fail("find_flight", err)
	}
	if !flight.IsBookable() {
		return nil, apperrors.ErrFlightUnavailable
	}

	// 2. 座位檢查（只是快速路徑，真正的保證在儲存層）
	requested := make([]string, len(inputs))
	for i, in := range inputs {
		requested[i] = in.Package.Seat
	}
	seats, err := s.ledger.CheckSeats(ctx, flight, requested, "")
	if err != nil {
		return nil, s.fail("check_seats", err)
	}

	// 3. 計價
	now := time.Now().UTC()
	passengers := make([]model.Passenger, len(inputs))
	for i, in := range inputs {
		pkg := s.pricer.BuildPackage(in.Package)
		pkg.Seat = seats[i]
		passengers[i] = model.Passenger{
			ID:              uuid.New().String(),
			FullName:        in.FullName,
			Email:           in.Email,
			PassportNumber:  in.PassportNumber,
			OptionalPackage: pkg,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
	}

	reservation := &model.Reservation{
		ID:                uuid.New().String(),
		FlightID:          flight.ID,
		Passengers:        passengers,
		Status:            model.ReservationStatusPending,
		BaseFare:          flight.BaseFare,
		Totals:            s.pricer.ComputeTotals(flight.BaseFare, passengers),
		PriceTableVersion: s.pricer.Table().Version,
		Notes:             strings.TrimSpace(req.Notes),
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	// 4. 寫入；唯一索引擋下的併發請求轉成座位衝突
	created, err := s.store.InsertReservation(ctx, reservation)
	if err != nil {
		if errors.Is(err, apperrors.ErrDuplicateSeat) {
			return nil, s.fail("insert_reservation", s.seatConflict(ctx, flight.ID, seats, ""))
		}
		return nil, s.fail("insert_reservation", err)
	}

	s.invalidateSeatMap(ctx, created.FlightID)
	s.metrics.ReservationsCreated.Inc()
	s.publish(ctx, model.ReservationEventCreated, created)
	return created, nil
}

func (s *BookingServiceImpl) UpdatePassengerPackage(ctx context.Context, reservationID, passengerID string, in model.PackageInput) (*model.Reservation, error) {
	reservation, idx, err := s.findEditablePassenger(ctx, reservationID, passengerID)
	if err != nil {
		return nil, err
	}

	flight, err := s.store.FindFlight(ctx, reservation.FlightID)
	if err != nil {
		return nil, s.fail("find_flight", err)
	}

	// 排除自己的訂位，允許重選原本的座位
	seats, err := s.ledger.CheckSeats(ctx, flight, []string{in.Seat}, reservation.ID)
	if err != nil {
		return nil, s.fail("check_seats", err)
	}
	seat := seats[0]

	// 同一筆訂位的其他乘客也不能共用座位
	for i, other := range reservation.Passengers {
		if i != idx && seat != "" && other.OptionalPackage.Seat == seat {
			return nil, s.fail("check_seats", s.seatConflict(ctx, flight.ID, []string{seat}, ""))
		}
	}

	pkg := s.pricer.BuildPackage(in)
	pkg.Seat = seat
	return s.savePackage(ctx, reservation, idx, pkg, model.ReservationEventPackageUpdated)
}

func (s *BookingServiceImpl) RemovePassengerPackage(ctx context.Context, reservationID, passengerID string) (*model.Reservation, error) {
	reservation, idx, err := s.findEditablePassenger(ctx, reservationID, passengerID)
	if err != nil {
		return nil, err
	}

	pkg := s.pricer.Reprice(model.DefaultOptionalPackage())
	return s.savePackage(ctx, reservation, idx, pkg, model.ReservationEventPackageRemoved)
}

func (s *BookingServiceImpl) findEditablePassenger(ctx context.Context, reservationID, passengerID string) (*model.Reservation, int, error) {
	reservation, err := s.store.FindReservation(ctx, reservationID)
	if err != nil {
		return nil, -1, s.fail("find_reservation", err)
	}
	if !reservation.IsActive() {
		return nil, -1, apperrors.ErrInvalidStatusTransition
	}

	passenger, idx := reservation.FindPassenger(passengerID)
	if passenger == nil {
		return nil, -1, apperrors.ErrPassengerNotFound
	}
	return reservation, idx, nil
}

// savePackage 以訂位當下的票價整筆重算金額後寫入
func (s *BookingServiceImpl) savePackage(ctx context.Context, reservation *model.Reservation, idx int, pkg model.OptionalPackage, eventType model.ReservationEventType) (*model.Reservation, error) {
	passengers := reservation.Clone().Passengers
	passengers[idx].OptionalPackage = pkg
	totals := s.pricer.ComputeTotals(reservation.BaseFare, passengers)

	updated, err := s.store.UpdatePassengerPackage(ctx, reservation.ID, passengers[idx].ID, pkg, totals)
	if err != nil {
		if errors.Is(err, apperrors.ErrDuplicateSeat) {
			return nil, s.fail("update_package", s.seatConflict(ctx, reservation.FlightID, []string{pkg.Seat}, reservation.ID))
		}
		return nil, s.fail("update_package", err)
	}

	s.invalidateSeatMap(ctx, updated.FlightID)
	s.metrics.PackagesUpdated.Inc()
	s.publish(ctx, eventType, updated)
	return updated, nil
}

// CancelReservation 金額保留作為紀錄，座位由推導出的佔用表自動釋放
func (s *BookingServiceImpl) CancelReservation(ctx context.Context, id string) (*model.Reservation, error) {
	cancelled, err := s.store.CancelReservation(ctx, id)
	if err != nil {
		return nil, s.fail("cancel_reservation", err)
	}

	s.invalidateSeatMap(ctx, cancelled.FlightID)
	s.metrics.ReservationsCanceled.Inc()
	s.publish(ctx, model.ReservationEventCancelled, cancelled)
	return cancelled, nil
}

func (s *BookingServiceImpl) ConfirmReservation(ctx context.Context, id string) (*model.Reservation, error) {
	confirmed, err := s.store.ConfirmReservation(ctx, id)
	if err != nil {
		return nil, s.fail("confirm_reservation", err)
	}

	s.publish(ctx, model.ReservationEventConfirmed, confirmed)
	return confirmed, nil
}

func (s *BookingServiceImpl) GetReservation(ctx context.Context, id string) (*model.Reservation, error) {
	reservation, err := s.store.FindReservation(ctx, id)
	if err != nil {
		return nil, s.fail("find_reservation", err)
	}
	return reservation, nil
}

func (s *BookingServiceImpl) ListReservations(ctx context.Context, flightID string) ([]*model.Reservation, error) {
	reservations, err := s.store.ListReservations(ctx, strings.TrimSpace(flightID))
	if err != nil {
		return nil, s.fail("list_reservations", err)
	}
	return reservations, nil
}

func (s *BookingServiceImpl) SeatMap(ctx context.Context, flightID string) (*model.SeatMap, error) {
	flight, err := s.store.FindFlight(ctx, flightID)
	if err != nil {
		return nil, s.fail("find_flight", err)
	}

	occupied, err := s.ledger.OccupiedSeats(ctx, flight.ID)
	if err != nil {
		return nil, s.fail("occupied_seats", err)
	}

	available := flight.SeatCapacity - len(occupied)
	if available < 0 {
		available = 0
	}
	return &model.SeatMap{
		FlightID:  flight.ID,
		Capacity:  flight.SeatCapacity,
		Occupied:  occupied,
		Available: available,
	}, nil
}

func (s *BookingServiceImpl) Quote(ctx context.Context, req model.QuoteRequest) (*model.Quote, error) {
	if len(req.Packages) == 0 {
		return nil, apperrors.NewValidation("packages", "at least one passenger is required")
	}

	flight, err := s.store.FindFlight(ctx, req.FlightID)
	if err != nil {
		return nil, s.fail("find_flight", err)
	}
	if !flight.IsBookable() {
		return nil, apperrors.ErrFlightUnavailable
	}

	packages, totals := s.pricer.Quote(flight.BaseFare, req.Packages)
	return &model.Quote{
		FlightID:          flight.ID,
		BaseFare:          flight.BaseFare,
		Packages:          packages,
		PriceTableVersion: s.pricer.Table().Version,
		Totals:            totals,
	}, nil
}

func (s *BookingServiceImpl) PriceTable() pricing.PriceTable {
	return s.pricer.Table()
}

// seatConflict 儲存層擋下重複座位時，重新讀取佔用狀況讓呼叫端可以重選
func (s *BookingServiceImpl) seatConflict(ctx context.Context, flightID string, seats []string, excludeReservationID string) error {
	first := ""
	for _, seat := range seats {
		if seat == "" {
			continue
		}
		if first == "" {
			first = seat
		}
		if err := s.ledger.TryReserve(ctx, flightID, seat, excludeReservationID); err != nil {
			return err
		}
	}

	// 競爭的訂位已被取消，仍以衝突回報，交給呼叫端重試
	s.invalidateSeatMap(ctx, flightID)
	occupied, err := s.ledger.OccupiedSeats(ctx, flightID)
	if err != nil {
		occupied = nil
	}
	return apperrors.NewSeatConflict(first, occupied)
}

// fail 統一包裝儲存層錯誤並記錄指標
func (s *BookingServiceImpl) fail(op string, err error) error {
	err = apperrors.WrapStore(op, err)
	switch {
	case errors.Is(err, apperrors.ErrSeatConflict):
		s.metrics.SeatConflicts.Inc()
	case errors.Is(err, apperrors.ErrStoreFailure):
		s.metrics.ErrorsCount.WithLabelValues(op).Inc()
	}
	return err
}

// invalidateSeatMap 寫入已生效，快取失效失敗只記錄，其他實例靠事件與對帳修正
func (s *BookingServiceImpl) invalidateSeatMap(ctx context.Context, flightID string) {
	if err := s.ledger.Invalidate(ctx, flightID); err != nil {
		logger.WithComponent("service").Warn("invalidate seat map failed",
			zap.String("flight_id", flightID),
			zap.Error(err),
		)
		s.metrics.ErrorsCount.WithLabelValues("invalidate_seat_map").Inc()
	}
}

// publish 事件讓其他實例的快取失效，失敗不影響已寫入的訂位
func (s *BookingServiceImpl) publish(ctx context.Context, eventType model.ReservationEventType, reservation *model.Reservation) {
	if s.events == nil {
		return
	}

	event := model.NewReservationEvent(uuid.New().String(), eventType, reservation)
	if err := s.events.Publish(ctx, event); err != nil {
		logger.WithComponent("service").Warn("publish reservation event failed",
			zap.String("event_type", string(eventType)),
			zap.String("reservation_id", reservation.ID),
			zap.Error(err),
		)
		s.metrics.ErrorsCount.WithLabelValues("publish_event").Inc()
	}
}

// validatePassengers 身分欄位沒有安全的預設值，缺少時回傳 ValidationError
func (s *BookingServiceImpl) validatePassengers(inputs []model.PassengerInput) ([]model.PassengerInput, error) {
	if len(inputs) == 0 {
		return nil, apperrors.NewValidation("passengers", "at least one passenger is required")
	}

	out := make([]model.PassengerInput, len(inputs))
	for i, in := range inputs {
		in.FullName = strings.TrimSpace(in.FullName)
		in.Email = strings.ToLower(strings.TrimSpace(in.Email))
		in.PassportNumber = strings.ToUpper(strings.TrimSpace(in.PassportNumber))

		if err := s.validate.Struct(in); err != nil {
			return nil, toValidationError(fmt.Sprintf("passengers[%d]", i), err)
		}
		out[i] = in
	}
	return out, nil
}

func newValidator() *validator.Validate {
	v := validator.New()
	// 錯誤訊息使用 JSON 欄位名稱
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// toValidationError 只回報第一個不合法的欄位
func toValidationError(prefix string, err error) error {
	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
		fe := fieldErrors[0]
		field := fe.Field()
		if prefix != "" {
			field = prefix + "." + field
		}
		return apperrors.NewValidation(field, fe.Tag())
	}
	return apperrors.NewValidation(prefix, err.Error())
}
