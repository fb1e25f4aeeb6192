package worker

import (
	"context"
	"fmt"
	"go-gin-flight-booking/internal/ledger"
	"go-gin-flight-booking/internal/model"
	"go-gin-flight-booking/pkg/logger"
	"go-gin-flight-booking/pkg/metrics"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// FlightLister 對帳只需要航班清單
type FlightLister interface {
	ListFlights(ctx context.Context) ([]*model.Flight, error)
}

// SeatMapReconciler 定期以有效訂位重建座位快取，修正漏掉的失效事件
type SeatMapReconciler interface {
	Start() error
	Stop() error
	// RunOnce 回傳被修正的航班數
	RunOnce(ctx context.Context) (int, error)
}

type SeatMapReconcilerImpl struct {
	flights   FlightLister
	ledger    ledger.SeatLedger
	metrics   *metrics.Metrics
	interval  time.Duration
	scheduler gocron.Scheduler
}

func NewSeatMapReconciler(flights FlightLister, seatLedger ledger.SeatLedger, m *metrics.Metrics, interval time.Duration) SeatMapReconciler {
	return &SeatMapReconcilerImpl{
		flights:  flights,
		ledger:   seatLedger,
		metrics:  m,
		interval: interval,
	}
}

func (r *SeatMapReconcilerImpl) Start() error {
	if r.interval <= 0 {
		return fmt.Errorf("reconciler interval must be positive, got %s", r.interval)
	}

	s, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return err
	}

	_, err = s.NewJob(
		gocron.DurationJob(r.interval),
		gocron.NewTask(r.run),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return err
	}

	r.scheduler = s
	s.Start()
	logger.WithComponent("reconciler").Info("seat map reconciler started", zap.Duration("interval", r.interval))
	return nil
}

func (r *SeatMapReconcilerImpl) Stop() error {
	if r.scheduler == nil {
		return nil
	}
	return r.scheduler.Shutdown()
}

func (r *SeatMapReconcilerImpl) run() {
	ctx, cancel := context.WithTimeout(context.Background(), r.interval)
	defer cancel()

	if _, err := r.RunOnce(ctx); err != nil {
		logger.WithComponent("reconciler").Error("seat map reconcile failed", zap.Error(err))
	}
}

func (r *SeatMapReconcilerImpl) RunOnce(ctx context.Context) (int, error) {
	log := logger.WithComponent("reconciler")

	flights, err := r.flights.ListFlights(ctx)
	if err != nil {
		return 0, err
	}

	corrected := 0
	for _, flight := range flights {
		if !flight.IsBookable() {
			continue
		}

		drifted, err := r.ledger.Reconcile(ctx, flight.ID)
		if err != nil {
			// 單一航班失敗不影響其他航班
			log.Warn("reconcile flight failed", zap.String("flight_id", flight.ID), zap.Error(err))
			r.metrics.ErrorsCount.WithLabelValues("reconcile").Inc()
			continue
		}
		if drifted {
			corrected++
			r.metrics.CacheDriftCorrected.Inc()
			log.Warn("seat map cache drift corrected", zap.String("flight_id", flight.ID))
		}
	}

	log.Info("seat map reconcile finished",
		zap.Int("flights", len(flights)),
		zap.Int("corrected", corrected),
	)
	return corrected, nil
}
