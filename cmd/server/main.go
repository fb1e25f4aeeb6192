package main

import (
	"context"
	"errors"
	"fmt"
	"go-gin-flight-booking/config"
	"go-gin-flight-booking/internal/cache"
	"go-gin-flight-booking/internal/database"
	"go-gin-flight-booking/internal/handler"
	"go-gin-flight-booking/internal/ledger"
	"go-gin-flight-booking/internal/pricing"
	"go-gin-flight-booking/internal/queue"
	"go-gin-flight-booking/internal/repository"
	"go-gin-flight-booking/internal/service"
	"go-gin-flight-booking/internal/worker"
	"go-gin-flight-booking/pkg/logger"
	"go-gin-flight-booking/pkg/metrics"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadConfig()

	if err := logger.SetLevel(cfg.Server.LogLevel); err != nil {
		logger.L.Warn("invalid LOG_LEVEL, keeping info", zap.String("level", cfg.Server.LogLevel))
	}
	defer logger.Sync()
	log := logger.WithComponent("server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize store", zap.String("driver", string(cfg.Store)), zap.Error(err))
	}
	defer closeStore()

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = database.InitRedis(&cfg.Redis)
		if err != nil {
			log.Fatal("Failed to initialize redis", zap.Error(err))
		}
		defer rdb.Close()
	}

	// 沒有 Redis 時不使用快取，座位表每次由有效訂位推導
	var occupancyCache ledger.OccupancyCache
	seatMapCache := cache.NewNopSeatMapCache()
	if rdb != nil {
		seatMapCache = cache.NewRedisSeatMapCache(rdb, cfg.Cache.SeatMapTTL)
		occupancyCache = seatMapCache
	}

	events, err := openQueue(ctx, cfg, rdb)
	if err != nil {
		log.Fatal("Failed to initialize event queue", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics("flight_booking", reg)

	seatLedger := ledger.NewSeatLedger(store, occupancyCache)
	pricer := pricing.NewReservationPricer(pricing.NewPriceTable(cfg.Pricing))
	bookingService := service.NewBookingService(store, seatLedger, pricer, events, m)
	flightService := service.NewFlightService(store)

	if cfg.Server.SeedSampleFlights {
		if _, err := flightService.SeedSampleFlights(ctx); err != nil {
			log.Error("Failed to seed sample flights", zap.Error(err))
		}
	}

	if err := worker.NewSeatMapWorker(seatMapCache, events).Start(ctx); err != nil {
		log.Fatal("Failed to start seat map worker", zap.Error(err))
	}

	if cfg.Reconciler.Enabled && occupancyCache != nil {
		reconciler := worker.NewSeatMapReconciler(store, seatLedger, m, cfg.Reconciler.Interval)
		if err := reconciler.Start(); err != nil {
			log.Fatal("Failed to start seat map reconciler", zap.Error(err))
		}
		defer func() {
			if err := reconciler.Stop(); err != nil {
				log.Warn("Failed to stop seat map reconciler", zap.Error(err))
			}
		}()
	}

	router := gin.Default()
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))
	handler.NewFlightHandler(flightService, bookingService).RegisterRoutes(router)
	handler.NewReservationHandler(bookingService).RegisterRoutes(router)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr), zap.String("store", string(cfg.Store)))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", zap.Error(err))
	}
}

// openStore 依 STORE_DRIVER 選擇訂位資料的持久化方式
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, func(), error) {
	switch cfg.Store {
	case config.StoreDriverPostgres:
		pool, err := database.InitDatabase(&cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		if err := database.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return repository.NewPostgresStore(pool), pool.Close, nil

	case config.StoreDriverMongo:
		client, db, err := database.InitMongo(&cfg.Mongo)
		if err != nil {
			return nil, nil, err
		}
		disconnect := func() {
			dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(dctx)
		}
		store, err := repository.NewMongoStore(ctx, db)
		if err != nil {
			disconnect()
			return nil, nil, err
		}
		return store, disconnect, nil

	case config.StoreDriverMemory:
		return repository.NewMemoryStore(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store)
}

// openQueue redis 需要 Redis 連線，否則退回記憶體隊列
func openQueue(ctx context.Context, cfg *config.Config, rdb *redis.Client) (queue.ReservationEventQueue, error) {
	if cfg.Queue.Driver == "redis" && rdb != nil {
		return queue.NewRedisStreamEventQueue(ctx, rdb, cfg.Queue.ConsumerID, nil)
	}
	return queue.NewMemoryEventQueue(cfg.Queue.BufferSize), nil
}
