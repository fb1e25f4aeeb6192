package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// StoreDriver 決定訂位資料的持久化方式
type StoreDriver string

const (
	StoreDriverPostgres StoreDriver = "postgres"
	StoreDriverMongo    StoreDriver = "mongo"
	StoreDriverMemory   StoreDriver = "memory"
)

type Config struct {
	Server     ServerConfig
	Store      StoreDriver
	Database   DatabaseConfig
	Redis      RedisConfig
	Mongo      MongoConfig
	Pricing    PricingConfig
	Cache      CacheConfig
	Queue      QueueConfig
	Reconciler ReconcilerConfig
}

type ServerConfig struct {
	Port              string
	LogLevel          string
	SeedSampleFlights bool
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

type MongoConfig struct {
	URI      string
	Database string
	User     string
	Password string
}

// PricingConfig 價目表；未設定時沿用預設價格
type PricingConfig struct {
	Version           string
	MealStandard      float64
	MealVegetarian    float64
	MealKosher        float64
	BaggageUnitPrice  float64
	BaggagePricePerKg float64
}

type CacheConfig struct {
	SeatMapTTL time.Duration
}

type QueueConfig struct {
	// memory 或 redis
	Driver     string
	BufferSize int
	ConsumerID string
}

type ReconcilerConfig struct {
	Enabled  bool
	Interval time.Duration
}

var AppConfig *Config

func LoadConfig() *Config {
	// .env 不存在時直接使用環境變數
	_ = godotenv.Load()

	AppConfig = &Config{
		Server:     GetServerConfig(),
		Store:      StoreDriver(getEnv("STORE_DRIVER", string(StoreDriverPostgres))),
		Database:   GetDatabaseConfig(),
		Redis:      GetRedisConfig(),
		Mongo:      GetMongoConfig(),
		Pricing:    GetPricingConfig(),
		Cache:      GetCacheConfig(),
		Queue:      GetQueueConfig(),
		Reconciler: GetReconcilerConfig(),
	}

	return AppConfig
}

func LoadTestConfig() *Config {
	testConfig := &DatabaseConfig{
		Host:     "localhost",
		Port:     "5433", // 測試 DB 用 5433 port
		User:     "postgres",
		Password: "postgres",
		DBName:   "test_db",
		SSLMode:  "disable",
	}

	testRedisConfig := RedisConfig{
		Enabled:  true,
		Host:     "localhost",
		Port:     "6380", // 測試 Redis 用 6380 port
		Password: "",
		DB:       1,
	}

	testMongoConfig := MongoConfig{
		URI:      "mongodb://localhost:27018", // 測試 Mongo 用 27018 port
		Database: "flight_booking_test",
	}

	return &Config{
		Server:   ServerConfig{Port: "8080", LogLevel: "debug"},
		Store:    StoreDriverMemory,
		Database: *testConfig,
		Redis:    testRedisConfig,
		Mongo:    testMongoConfig,
		Pricing:  GetPricingConfig(),
		Cache:    CacheConfig{SeatMapTTL: time.Minute},
		Queue:    QueueConfig{Driver: "memory", BufferSize: 16},
		Reconciler: ReconcilerConfig{
			Enabled:  false,
			Interval: time.Minute,
		},
	}
}

func GetServerConfig() ServerConfig {
	return ServerConfig{
		Port:              getEnv("PORT", "8080"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		SeedSampleFlights: getEnvAsBool("SEED_SAMPLE_FLIGHTS", false),
	}
}

func GetDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", "postgres"),
		DBName:   getEnv("DB_NAME", "postgres"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
	}
}

func GetRedisConfig() RedisConfig {
	db, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		panic(err)
	}

	return RedisConfig{
		Enabled:  getEnvAsBool("REDIS_ENABLED", true),
		Host:     getEnv("REDIS_HOST", "localhost"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       db,
	}
}

func GetMongoConfig() MongoConfig {
	return MongoConfig{
		URI:      getEnv("MONGODB_DSN", "mongodb://localhost:27017"),
		Database: getEnv("MONGO_DB", "flight_booking"),
		User:     getEnv("MONGO_USER", ""),
		Password: getEnv("MONGO_PASSWORD", ""),
	}
}

func GetPricingConfig() PricingConfig {
	return PricingConfig{
		Version:           getEnv("PRICE_TABLE_VERSION", "2024-01"),
		MealStandard:      getEnvAsFloat("MEAL_PRICE_STANDARD", 50),
		MealVegetarian:    getEnvAsFloat("MEAL_PRICE_VEGETARIAN", 60),
		MealKosher:        getEnvAsFloat("MEAL_PRICE_KOSHER", 70),
		BaggageUnitPrice:  getEnvAsFloat("BAGGAGE_UNIT_PRICE", 30),
		BaggagePricePerKg: getEnvAsFloat("BAGGAGE_PRICE_PER_KG", 5),
	}
}

func GetCacheConfig() CacheConfig {
	return CacheConfig{
		SeatMapTTL: time.Duration(getEnvAsInt("SEAT_MAP_TTL_SECONDS", 300)) * time.Second,
	}
}

func GetQueueConfig() QueueConfig {
	return QueueConfig{
		Driver:     getEnv("QUEUE_DRIVER", "redis"),
		BufferSize: getEnvAsInt("QUEUE_BUFFER_SIZE", 1024),
		ConsumerID: getEnv("QUEUE_CONSUMER_ID", ""),
	}
}

func GetReconcilerConfig() ReconcilerConfig {
	return ReconcilerConfig{
		Enabled:  getEnvAsBool("RECONCILER_ENABLED", true),
		Interval: time.Duration(getEnvAsInt("RECONCILER_INTERVAL_SECONDS", 600)) * time.Second,
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	if value, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}
