package model

import "time"

// ReservationEventType 訂位事件類型
type ReservationEventType string

const (
	ReservationEventCreated        ReservationEventType = "created"
	ReservationEventPackageUpdated ReservationEventType = "package_updated"
	ReservationEventPackageRemoved ReservationEventType = "package_removed"
	ReservationEventConfirmed      ReservationEventType = "confirmed"
	ReservationEventCancelled      ReservationEventType = "cancelled"
)

// ReservationEvent 訂位異動後發送到隊列，供座位快取失效使用
type ReservationEvent struct {
	ID            string               `json:"id"`
	Type          ReservationEventType `json:"type"`
	ReservationID string               `json:"reservation_id"`
	FlightID      string               `json:"flight_id"`
	Seats         []string             `json:"seats"`
	OccurredAt    time.Time            `json:"occurred_at"`
}

func NewReservationEvent(id string, eventType ReservationEventType, r *Reservation) *ReservationEvent {
	return &ReservationEvent{
		ID:            id,
		Type:          eventType,
		ReservationID: r.ID,
		FlightID:      r.FlightID,
		Seats:         r.Seats(),
		OccurredAt:    time.Now().UTC(),
	}
}
