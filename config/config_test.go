package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("BAGGAGE_UNIT_PRICE", "")
	t.Setenv("REDIS_ENABLED", "")

	cfg := LoadConfig()

	assert.Equal(t, StoreDriverPostgres, cfg.Store)
	assert.Equal(t, 50.0, cfg.Pricing.MealStandard)
	assert.Equal(t, 30.0, cfg.Pricing.BaggageUnitPrice)
	assert.Equal(t, 5.0, cfg.Pricing.BaggagePricePerKg)
	assert.True(t, cfg.Redis.Enabled)
	assert.Same(t, cfg, AppConfig)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "mongo")
	t.Setenv("BAGGAGE_UNIT_PRICE", "45.5")
	t.Setenv("REDIS_ENABLED", "false")
	t.Setenv("SEAT_MAP_TTL_SECONDS", "10")
	t.Setenv("RECONCILER_INTERVAL_SECONDS", "not-a-number")

	cfg := LoadConfig()

	assert.Equal(t, StoreDriverMongo, cfg.Store)
	assert.Equal(t, 45.5, cfg.Pricing.BaggageUnitPrice)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 10*time.Second, cfg.Cache.SeatMapTTL)
	assert.Equal(t, 600*time.Second, cfg.Reconciler.Interval)
}

func TestLoadTestConfig(t *testing.T) {
	cfg := LoadTestConfig()

	assert.Equal(t, "5433", cfg.Database.Port)
	assert.Equal(t, "6380", cfg.Redis.Port)
	assert.Equal(t, StoreDriverMemory, cfg.Store)
	assert.Equal(t, "memory", cfg.Queue.Driver)
}
