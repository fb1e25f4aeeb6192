package repository

import (
	"context"
	"errors"
	"fmt"
	"go-gin-flight-booking/internal/model"
	apperrors "go-gin-flight-booking/pkg/app_errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const flightColumns = `id, flight_number, airline, origin, destination,
		departure_time, arrival_time, aircraft_type, seat_capacity,
		base_fare, is_available, created_at, updated_at`

type FlightRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewFlightRepository(pool *pgxpool.Pool) FlightRepository {
	return &FlightRepositoryImpl{
		pool: pool,
	}
}

func (r *FlightRepositoryImpl) CreateFlight(ctx context.Context, flight *model.Flight) (*model.Flight, error) {
	query := `
		INSERT INTO flights (
			id, flight_number, airline, origin, destination,
			departure_time, arrival_time, aircraft_type, seat_capacity,
			base_fare, is_available)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + flightColumns

	row := r.pool.QueryRow(ctx, query,
		flight.ID, flight.FlightNumber, flight.Airline, flight.Origin, flight.Destination,
		flight.DepartureTime.UTC(), flight.ArrivalTime.UTC(), flight.AircraftType,
		flight.SeatCapacity, flight.BaseFare, flight.IsAvailable,
	)

	created, err := scanFlight(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create flight: %w", err)
	}
	return created, nil
}

func (r *FlightRepositoryImpl) FindFlight(ctx context.Context, id string) (*model.Flight, error) {
	query := `SELECT ` + flightColumns + ` FROM flights WHERE id = $1`

	flight, err := scanFlight(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrFlightNotFound
		}
		return nil, err
	}
	return flight, nil
}

func (r *FlightRepositoryImpl) ListFlights(ctx context.Context) ([]*model.Flight, error) {
	return r.SearchFlights(ctx, model.FlightSearchParams{})
}

func (r *FlightRepositoryImpl) SearchFlights(ctx context.Context, params model.FlightSearchParams) ([]*model.Flight, error) {
	conditions := []string{}
	args := []interface{}{}
	argPos := 1

	if params.Origin != "" {
		conditions = append(conditions, fmt.Sprintf("origin ILIKE $%d", argPos))
		args = append(args, "%"+escapeLike(params.Origin)+"%")
		argPos++
	}
	if params.Destination != "" {
		conditions = append(conditions, fmt.Sprintf("destination ILIKE $%d", argPos))
		args = append(args, "%"+escapeLike(params.Destination)+"%")
		argPos++
	}
	if params.Departure != nil {
		start, end := params.DepartureWindow()
		conditions = append(conditions, fmt.Sprintf("departure_time >= $%d AND departure_time < $%d", argPos, argPos+1))
		args = append(args, start, end)
	}

	query := `SELECT ` + flightColumns + ` FROM flights`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY departure_time, flight_number"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	flights := make([]*model.Flight, 0)
	for rows.Next() {
		flight, err := scanFlight(rows)
		if err != nil {
			return nil, err
		}
		flights = append(flights, flight)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return flights, nil
}

func scanFlight(row pgx.Row) (*model.Flight, error) {
	var flight model.Flight
	err := row.Scan(
		&flight.ID,
		&flight.FlightNumber,
		&flight.Airline,
		&flight.Origin,
		&flight.Destination,
		&flight.DepartureTime,
		&flight.ArrivalTime,
		&flight.AircraftType,
		&flight.SeatCapacity,
		&flight.BaseFare,
		&flight.IsAvailable,
		&flight.CreatedAt,
		&flight.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &flight, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
