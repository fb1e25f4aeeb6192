package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema 訂位相關資料表
// passengers_active_seat_key 保證同一航班的同一座位只會被一筆有效訂位持有
var schema = []string{
	`CREATE TABLE IF NOT EXISTS flights (
		id             TEXT PRIMARY KEY,
		flight_number  TEXT NOT NULL,
		airline        TEXT NOT NULL DEFAULT '',
		origin         TEXT NOT NULL,
		destination    TEXT NOT NULL,
		departure_time TIMESTAMPTZ NOT NULL,
		arrival_time   TIMESTAMPTZ NOT NULL,
		aircraft_type  TEXT NOT NULL DEFAULT '',
		seat_capacity  INTEGER NOT NULL CHECK (seat_capacity > 0),
		base_fare      DOUBLE PRECISION NOT NULL CHECK (base_fare >= 0),
		is_available   BOOLEAN NOT NULL DEFAULT TRUE,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS flights_route_idx ON flights (origin, destination, departure_time)`,
	`CREATE TABLE IF NOT EXISTS reservations (
		id                     TEXT PRIMARY KEY,
		flight_id              TEXT NOT NULL REFERENCES flights (id),
		status                 TEXT NOT NULL,
		base_fare              DOUBLE PRECISION NOT NULL DEFAULT 0,
		base_fare_total        DOUBLE PRECISION NOT NULL DEFAULT 0,
		optional_package_total DOUBLE PRECISION NOT NULL DEFAULT 0,
		grand_total            DOUBLE PRECISION NOT NULL DEFAULT 0,
		price_table_version    TEXT NOT NULL DEFAULT '',
		notes                  TEXT NOT NULL DEFAULT '',
		created_at             TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at             TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS reservations_flight_idx ON reservations (flight_id, status)`,
	`CREATE TABLE IF NOT EXISTS passengers (
		id              TEXT PRIMARY KEY,
		reservation_id  TEXT NOT NULL REFERENCES reservations (id) ON DELETE CASCADE,
		flight_id       TEXT NOT NULL,
		position        INTEGER NOT NULL,
		full_name       TEXT NOT NULL,
		email           TEXT NOT NULL,
		passport_number TEXT NOT NULL,
		meal            TEXT NOT NULL DEFAULT 'none',
		meal_price      DOUBLE PRECISION NOT NULL DEFAULT 0,
		seat            TEXT,
		seat_class      TEXT NOT NULL DEFAULT 'economy',
		seat_price      DOUBLE PRECISION NOT NULL DEFAULT 0,
		baggage_count   INTEGER NOT NULL DEFAULT 0,
		baggage_price   DOUBLE PRECISION NOT NULL DEFAULT 0,
		baggage_items   JSONB NOT NULL DEFAULT '[]',
		notes           TEXT NOT NULL DEFAULT '',
		active          BOOLEAN NOT NULL DEFAULT TRUE,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS passengers_active_seat_key
		ON passengers (flight_id, seat)
		WHERE active AND seat IS NOT NULL`,
	`CREATE INDEX IF NOT EXISTS passengers_reservation_idx ON passengers (reservation_id, position)`,
}

// Migrate 建立資料表與索引，可重複執行
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
