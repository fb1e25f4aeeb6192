package worker

import (
	"context"
	"go-gin-flight-booking/internal/ledger"
	"go-gin-flight-booking/internal/queue"
	"go-gin-flight-booking/pkg/logger"

	"go.uber.org/zap"
)

type SeatMapWorker interface {
	// 訂閱訂位事件隊列，ctx 結束時停止
	Start(ctx context.Context) error
}

type SeatMapWorkerImpl struct {
	cache ledger.OccupancyCache
	queue queue.ReservationEventQueue
}

func NewSeatMapWorker(cache ledger.OccupancyCache, queue queue.ReservationEventQueue) SeatMapWorker {
	return &SeatMapWorkerImpl{
		cache: cache,
		queue: queue,
	}
}

func (w *SeatMapWorkerImpl) Start(ctx context.Context) error {
	msgs, err := w.queue.Subscribe(ctx)
	if err != nil {
		return err
	}

	log := logger.WithComponent("worker")
	go func() {
		for msg := range msgs {
			event := msg.Data
			// 座位表以有效訂位為準，這裡只讓快取失效，下次讀取時重建
			if err := w.cache.Invalidate(ctx, event.FlightID); err != nil {
				log.Warn("invalidate seat map failed, will retry",
					zap.String("event_id", event.ID),
					zap.String("flight_id", event.FlightID),
					zap.Error(err),
				)
				msg.Nack(true)
				continue
			}

			log.Debug("seat map invalidated",
				zap.String("event_id", event.ID),
				zap.String("event_type", string(event.Type)),
				zap.String("flight_id", event.FlightID),
			)
			msg.Ack()
		}
	}()
	return nil
}
