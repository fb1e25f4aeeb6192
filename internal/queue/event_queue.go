package queue

import (
	"context"
	"go-gin-flight-booking/internal/model"
)

type Delivery struct {
	Data *model.ReservationEvent
	Ack  func()
	Nack func(requeue bool)
}

type ReservationEventQueue interface {
	// 發送訂位事件
	Publish(ctx context.Context, event *model.ReservationEvent) error
	// 訂閱訂位事件，ctx 結束時關閉 channel
	Subscribe(ctx context.Context) (<-chan Delivery, error)
}

type MemoryEventQueueImpl struct {
	// 使用 Go channel 模擬 MQ 隊列
	ch chan *model.ReservationEvent
}

func NewMemoryEventQueue(bufferSize int) ReservationEventQueue {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &MemoryEventQueueImpl{
		ch: make(chan *model.ReservationEvent, bufferSize),
	}
}

// Publish 隊列滿時等待，直到 ctx 結束
func (q *MemoryEventQueueImpl) Publish(ctx context.Context, event *model.ReservationEvent) error {
	select {
	case q.ch <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryEventQueueImpl) Subscribe(ctx context.Context) (<-chan Delivery, error) {
	out := make(chan Delivery)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case event := <-q.ch:
				d := Delivery{
					Data: event,
					Ack:  func() {},
					Nack: func(requeue bool) {
						if !requeue {
							return
						}
						// 不阻塞消費迴圈；隊列已滿就丟棄，快取會由對帳工作修正
						select {
						case q.ch <- event:
						default:
						}
					},
				}

				select {
				case out <- d:
				case <-ctx.Done():
					// 已取出但沒送出的事件放回隊列
					d.Nack(true)
					return
				}
			}
		}
	}()

	return out, nil
}
