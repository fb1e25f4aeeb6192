package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"go-gin-flight-booking/internal/model"
	apperrors "go-gin-flight-booking/pkg/app_errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	reservationColumns = `id, flight_id, status, base_fare, base_fare_total,
		optional_package_total, grand_total, price_table_version, notes,
		created_at, updated_at`

	passengerColumns = `id, reservation_id, full_name, email, passport_number,
		meal, meal_price, seat, seat_class, seat_price,
		baggage_count, baggage_price, baggage_items, notes,
		created_at, updated_at`

	activeSeatConstraint = "passengers_active_seat_key"

	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// querier pool 與 tx 共用的查詢介面
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type ReservationRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewReservationRepository(pool *pgxpool.Pool) ReservationRepository {
	return &ReservationRepositoryImpl{
		pool: pool,
	}
}

// InsertReservation 訂位與乘客在同一個 transaction 寫入
// 座位唯一性由 passengers_active_seat_key 部分唯一索引保證
func (r *ReservationRepositoryImpl) InsertReservation(ctx context.Context, reservation *model.Reservation) (*model.Reservation, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	query := `
		INSERT INTO reservations (
			id, flight_id, status, base_fare, base_fare_total,
			optional_package_total, grand_total, price_table_version, notes,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
	`
	_, err = tx.Exec(ctx, query,
		reservation.ID, reservation.FlightID, reservation.Status, reservation.BaseFare,
		reservation.BaseFareTotal, reservation.OptionalPackageTotal, reservation.GrandTotal,
		reservation.PriceTableVersion, reservation.Notes, now,
	)
	if err != nil {
		return nil, mapPgError(err)
	}

	active := reservation.IsActive()
	for i, p := range reservation.Passengers {
		if err := insertPassenger(ctx, tx, reservation, i, p, active, now); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return r.FindReservation(ctx, reservation.ID)
}

func insertPassenger(ctx context.Context, tx pgx.Tx, reservation *model.Reservation, position int, p model.Passenger, active bool, now time.Time) error {
	items, err := marshalBaggageItems(p.OptionalPackage.BaggageItems)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO passengers (
			id, reservation_id, flight_id, position, full_name, email, passport_number,
			meal, meal_price, seat, seat_class, seat_price,
			baggage_count, baggage_price, baggage_items, notes, active,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), $11, $12,
			$13, $14, $15, $16, $17, $18, $18)
	`
	pkg := p.OptionalPackage
	_, err = tx.Exec(ctx, query,
		p.ID, reservation.ID, reservation.FlightID, position, p.FullName, p.Email, p.PassportNumber,
		pkg.Meal, pkg.MealPrice, pkg.Seat, pkg.SeatClass, pkg.SeatPrice,
		pkg.BaggageCount, pkg.BaggagePrice, items, pkg.Notes, active, now,
	)
	if err != nil {
		return mapPgError(err)
	}
	return nil
}

func (r *ReservationRepositoryImpl) UpdatePassengerPackage(ctx context.Context, reservationID, passengerID string, pkg model.OptionalPackage, totals model.Totals) (*model.Reservation, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	status, err := lockReservationStatus(ctx, tx, reservationID)
	if err != nil {
		return nil, err
	}
	if !status.IsActive() {
		return nil, apperrors.ErrInvalidStatusTransition
	}

	items, err := marshalBaggageItems(pkg.BaggageItems)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	query := `
		UPDATE passengers
		SET meal = $1, meal_price = $2, seat = NULLIF($3, ''), seat_class = $4,
			seat_price = $5, baggage_count = $6, baggage_price = $7,
			baggage_items = $8, notes = $9, updated_at = $10
		WHERE id = $11 AND reservation_id = $12
	`
	result, err := tx.Exec(ctx, query,
		pkg.Meal, pkg.MealPrice, pkg.Seat, pkg.SeatClass,
		pkg.SeatPrice, pkg.BaggageCount, pkg.BaggagePrice,
		items, pkg.Notes, now, passengerID, reservationID,
	)
	if err != nil {
		return nil, mapPgError(err)
	}
	if result.RowsAffected() == 0 {
		return nil, apperrors.ErrPassengerNotFound
	}

	query = `
		UPDATE reservations
		SET base_fare_total = $1, optional_package_total = $2, grand_total = $3, updated_at = $4
		WHERE id = $5
	`
	if _, err := tx.Exec(ctx, query,
		totals.BaseFareTotal, totals.OptionalPackageTotal, totals.GrandTotal, now, reservationID,
	); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return r.FindReservation(ctx, reservationID)
}

// CancelReservation 狀態改為 cancelled，並在同一個 transaction 讓乘客座位失效
func (r *ReservationRepositoryImpl) CancelReservation(ctx context.Context, id string) (*model.Reservation, error) {
	return r.transition(ctx, id, model.ReservationStatusCancelled, func(tx pgx.Tx, now time.Time) error {
		_, err := tx.Exec(ctx, `UPDATE passengers SET active = FALSE, updated_at = $1 WHERE reservation_id = $2`, now, id)
		return err
	})
}

func (r *ReservationRepositoryImpl) ConfirmReservation(ctx context.Context, id string) (*model.Reservation, error) {
	return r.transition(ctx, id, model.ReservationStatusConfirmed, nil)
}

func (r *ReservationRepositoryImpl) transition(ctx context.Context, id string, target model.ReservationStatus, after func(tx pgx.Tx, now time.Time) error) (*model.Reservation, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	status, err := lockReservationStatus(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if !status.CanTransitionTo(target) {
		return nil, apperrors.ErrInvalidStatusTransition
	}

	now := time.Now().UTC()
	if _, err := tx.Exec(ctx, `UPDATE reservations SET status = $1, updated_at = $2 WHERE id = $3`, target, now, id); err != nil {
		return nil, err
	}
	if after != nil {
		if err := after(tx, now); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return r.FindReservation(ctx, id)
}

func (r *ReservationRepositoryImpl) FindReservation(ctx context.Context, id string) (*model.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`

	reservation, err := scanReservation(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrReservationNotFound
		}
		return nil, err
	}

	if err := attachPassengers(ctx, r.pool, []*model.Reservation{reservation}); err != nil {
		return nil, err
	}
	return reservation, nil
}

func (r *ReservationRepositoryImpl) ListReservations(ctx context.Context, flightID string) ([]*model.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations`
	args := []interface{}{}
	if flightID != "" {
		query += ` WHERE flight_id = $1`
		args = append(args, flightID)
	}
	query += ` ORDER BY created_at DESC`

	return r.queryReservations(ctx, query, args...)
}

func (r *ReservationRepositoryImpl) ListActiveReservationsForFlight(ctx context.Context, flightID string) ([]*model.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE flight_id = $1 AND status <> $2
		ORDER BY created_at
	`
	return r.queryReservations(ctx, query, flightID, model.ReservationStatusCancelled)
}

func (r *ReservationRepositoryImpl) queryReservations(ctx context.Context, query string, args ...interface{}) ([]*model.Reservation, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reservations := make([]*model.Reservation, 0)
	for rows.Next() {
		reservation, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, reservation)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := attachPassengers(ctx, r.pool, reservations); err != nil {
		return nil, err
	}
	return reservations, nil
}

func lockReservationStatus(ctx context.Context, tx pgx.Tx, id string) (model.ReservationStatus, error) {
	var status model.ReservationStatus
	err := tx.QueryRow(ctx, `SELECT status FROM reservations WHERE id = $1 FOR UPDATE`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperrors.ErrReservationNotFound
		}
		return "", err
	}
	return status, nil
}

// attachPassengers 一次查出所有訂位的乘客，依 position 排序
func attachPassengers(ctx context.Context, q querier, reservations []*model.Reservation) error {
	if len(reservations) == 0 {
		return nil
	}

	ids := make([]string, len(reservations))
	byID := make(map[string]*model.Reservation, len(reservations))
	for i, reservation := range reservations {
		ids[i] = reservation.ID
		byID[reservation.ID] = reservation
		reservation.Passengers = make([]model.Passenger, 0)
	}

	query := `
		SELECT ` + passengerColumns + `
		FROM passengers
		WHERE reservation_id = ANY($1)
		ORDER BY reservation_id, position
	`
	rows, err := q.Query(ctx, query, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			p             model.Passenger
			reservationID string
			seat          *string
			items         []byte
		)
		pkg := &p.OptionalPackage
		err := rows.Scan(
			&p.ID,
			&reservationID,
			&p.FullName,
			&p.Email,
			&p.PassportNumber,
			&pkg.Meal,
			&pkg.MealPrice,
			&seat,
			&pkg.SeatClass,
			&pkg.SeatPrice,
			&pkg.BaggageCount,
			&pkg.BaggagePrice,
			&items,
			&pkg.Notes,
			&p.CreatedAt,
			&p.UpdatedAt,
		)
		if err != nil {
			return err
		}
		if seat != nil {
			pkg.Seat = *seat
		}
		if err := unmarshalBaggageItems(items, &pkg.BaggageItems); err != nil {
			return err
		}

		if reservation, ok := byID[reservationID]; ok {
			reservation.Passengers = append(reservation.Passengers, p)
		}
	}

	return rows.Err()
}

func scanReservation(row pgx.Row) (*model.Reservation, error) {
	var reservation model.Reservation
	err := row.Scan(
		&reservation.ID,
		&reservation.FlightID,
		&reservation.Status,
		&reservation.BaseFare,
		&reservation.BaseFareTotal,
		&reservation.OptionalPackageTotal,
		&reservation.GrandTotal,
		&reservation.PriceTableVersion,
		&reservation.Notes,
		&reservation.CreatedAt,
		&reservation.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

func marshalBaggageItems(items []model.BaggageItem) ([]byte, error) {
	if items == nil {
		items = []model.BaggageItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("marshal baggage items: %w", err)
	}
	return data, nil
}

func unmarshalBaggageItems(data []byte, items *[]model.BaggageItem) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, items); err != nil {
		return fmt.Errorf("unmarshal baggage items: %w", err)
	}
	if len(*items) == 0 {
		*items = nil
	}
	return nil
}

// mapPgError 將違反約束的錯誤轉成領域錯誤
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == activeSeatConstraint:
			return apperrors.ErrDuplicateSeat
		case pgErr.Code == pgForeignKeyViolation:
			return apperrors.ErrFlightNotFound
		}
	}
	return err
}
