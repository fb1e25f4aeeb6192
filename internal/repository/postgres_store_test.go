package repository

import (
	"context"
	"testing"

	"go-gin-flight-booking/config"
	"go-gin-flight-booking/internal/database"

	"github.com/jackc/pgx/v5/pgxpool"
)

// openTestPool 測試 DB 不可用時略過，不讓單元測試依賴外部服務
func openTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	cfg := config.LoadTestConfig()
	pool, err := database.InitDatabase(&cfg.Database)
	if err != nil {
		t.Skipf("postgres not available: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := database.Migrate(context.Background(), pool); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return pool
}

func TestPostgresStore(t *testing.T) {
	pool := openTestPool(t)

	runStoreContract(t, func(t *testing.T) Store {
		// 清空所有測試資料，保留 schema
		_, err := pool.Exec(context.Background(), "TRUNCATE passengers, reservations, flights CASCADE")
		if err != nil {
			t.Fatalf("Failed to truncate tables: %v", err)
		}
		return NewPostgresStore(pool)
	})
}
