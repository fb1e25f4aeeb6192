package ledger

import (
	"context"
	"go-gin-flight-booking/internal/model"
	apperrors "go-gin-flight-booking/pkg/app_errors"
	"go-gin-flight-booking/pkg/logger"
	"regexp"
	"sort"

	"go.uber.org/zap"
)

var seatPattern = regexp.MustCompile(`^[0-9]{1,3}[A-Z]$`)

// ReservationSource 座位佔用的唯一來源：有效訂位
type ReservationSource interface {
	ListActiveReservationsForFlight(ctx context.Context, flightID string) ([]*model.Reservation, error)
}

// OccupancyCache 可重建的座位快取，只用於讀取，不作為寫入判斷依據
type OccupancyCache interface {
	// Get 第二個回傳值為 false 代表快取未命中（與空座位表不同）
	Get(ctx context.Context, flightID string) ([]string, bool, error)
	// Version 每次失效加一；重建前先取得，避免把舊資料寫回
	Version(ctx context.Context, flightID string) (int64, error)
	// Set 只在版本未變時寫入，第一個回傳值代表是否寫入
	Set(ctx context.Context, flightID string, version int64, seats []string) (bool, error)
	Invalidate(ctx context.Context, flightID string) error
}

type SeatLedger interface {
	// 目前被有效訂位佔用的座位（已排序），可能來自快取
	OccupiedSeats(ctx context.Context, flightID string) ([]string, error)
	// 單一座位檢查，排除正在編輯的訂位；一律直接讀儲存層
	TryReserve(ctx context.Context, flightID, seat, excludeReservationID string) error
	// 多座位檢查，回傳正規化後的座位（與輸入一一對應）
	CheckSeats(ctx context.Context, flight *model.Flight, seats []string, excludeReservationID string) ([]string, error)
	// 以有效訂位重建快取，回傳快取原本是否與實際不一致
	Reconcile(ctx context.Context, flightID string) (bool, error)
	// 寫入成功後立即讓快取失效，之後的讀取一定看得到這次寫入
	Invalidate(ctx context.Context, flightID string) error
}

type SeatLedgerImpl struct {
	source ReservationSource
	cache  OccupancyCache
}

// NewSeatLedger cache 可為 nil
func NewSeatLedger(source ReservationSource, cache OccupancyCache) SeatLedger {
	return &SeatLedgerImpl{
		source: source,
		cache:  cache,
	}
}

// NormalizeSeat 去空白轉大寫後驗證格式；空字串代表未選座
func NormalizeSeat(label string) (string, error) {
	seat := model.NormalizeSeat(label)
	if seat == "" {
		return "", nil
	}
	if !seatPattern.MatchString(seat) {
		return "", apperrors.NewValidation("seat", "must look like 12A")
	}
	return seat, nil
}

func (l *SeatLedgerImpl) OccupiedSeats(ctx context.Context, flightID string) ([]string, error) {
	log := logger.WithComponent("ledger")

	version := int64(-1)
	if l.cache != nil {
		seats, hit, err := l.cache.Get(ctx, flightID)
		if err != nil {
			log.Warn("seat cache read failed, falling back to reservations",
				zap.String("flight_id", flightID),
				zap.Error(err),
			)
		} else if hit {
			return seats, nil
		} else if v, err := l.cache.Version(ctx, flightID); err == nil {
			version = v
		}
	}

	view, err := l.derive(ctx, flightID)
	if err != nil {
		return nil, err
	}
	seats := view.sorted()

	// 推導期間有寫入會推進版本，Set 會拒絕這份舊結果
	if version >= 0 {
		if _, err := l.cache.Set(ctx, flightID, version, seats); err != nil {
			log.Warn("seat cache write failed",
				zap.String("flight_id", flightID),
				zap.Error(err),
			)
		}
	}
	return seats, nil
}

func (l *SeatLedgerImpl) Invalidate(ctx context.Context, flightID string) error {
	if l.cache == nil {
		return nil
	}
	return l.cache.Invalidate(ctx, flightID)
}

func (l *SeatLedgerImpl) TryReserve(ctx context.Context, flightID, seat, excludeReservationID string) error {
	normalized, err := NormalizeSeat(seat)
	if err != nil {
		return err
	}
	if normalized == "" {
		return nil
	}

	view, err := l.derive(ctx, flightID)
	if err != nil {
		return err
	}
	if holder, taken := view.holders[normalized]; taken && holder != excludeReservationID {
		return apperrors.NewSeatConflict(normalized, view.sorted())
	}
	return nil
}

func (l *SeatLedgerImpl) CheckSeats(ctx context.Context, flight *model.Flight, seats []string, excludeReservationID string) ([]string, error) {
	normalized := make([]string, len(seats))
	for i, seat := range seats {
		n, err := NormalizeSeat(seat)
		if err != nil {
			return nil, err
		}
		normalized[i] = n
	}

	view, err := l.derive(ctx, flight.ID)
	if err != nil {
		return nil, err
	}

	// 新訂位才會增加人數
	if excludeReservationID == "" && view.passengers+len(seats) > flight.SeatCapacity {
		return nil, apperrors.ErrFlightUnavailable
	}

	requested := make(map[string]bool, len(normalized))
	for _, seat := range normalized {
		if seat == "" {
			continue
		}
		if requested[seat] {
			return nil, apperrors.NewSeatConflict(seat, view.sorted())
		}
		requested[seat] = true

		if holder, taken := view.holders[seat]; taken && holder != excludeReservationID {
			return nil, apperrors.NewSeatConflict(seat, view.sorted())
		}
	}

	return normalized, nil
}

func (l *SeatLedgerImpl) Reconcile(ctx context.Context, flightID string) (bool, error) {
	if l.cache == nil {
		return false, nil
	}

	version, err := l.cache.Version(ctx, flightID)
	if err != nil {
		return false, err
	}
	view, err := l.derive(ctx, flightID)
	if err != nil {
		return false, err
	}
	actual := view.sorted()

	cached, hit, err := l.cache.Get(ctx, flightID)
	if err != nil {
		return false, err
	}
	drifted := hit && !sameSeats(cached, actual)

	if !hit || drifted {
		stored, err := l.cache.Set(ctx, flightID, version, actual)
		if err != nil {
			return drifted, err
		}
		// 期間有寫入已讓快取失效，下次讀取會重建
		if !stored {
			return false, nil
		}
	}
	return drifted, nil
}

// occupancy 由有效訂位推導出的座位表
type occupancy struct {
	// seat -> reservationID
	holders    map[string]string
	passengers int
}

func (o occupancy) sorted() []string {
	seats := make([]string, 0, len(o.holders))
	for seat := range o.holders {
		seats = append(seats, seat)
	}
	sort.Strings(seats)
	return seats
}

func (l *SeatLedgerImpl) derive(ctx context.Context, flightID string) (occupancy, error) {
	reservations, err := l.source.ListActiveReservationsForFlight(ctx, flightID)
	if err != nil {
		return occupancy{}, apperrors.WrapStore("list active reservations", err)
	}

	view := occupancy{holders: make(map[string]string)}
	for _, r := range reservations {
		if !r.IsActive() {
			continue
		}
		view.passengers += len(r.Passengers)
		for _, seat := range r.Seats() {
			view.holders[model.NormalizeSeat(seat)] = r.ID
		}
	}
	return view, nil
}

func sameSeats(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	x := append([]string(nil), a...)
	y := append([]string(nil), b...)
	sort.Strings(x)
	sort.Strings(y)
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}
