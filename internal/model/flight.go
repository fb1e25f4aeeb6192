package model

import "time"

// Flight 航班模型
type Flight struct {
	ID            string    `json:"id" db:"id" bson:"_id"`
	FlightNumber  string    `json:"flight_number" db:"flight_number" bson:"flightNumber" validate:"required,max=16"`
	Airline       string    `json:"airline" db:"airline" bson:"airline" validate:"required"`
	Origin        string    `json:"origin" db:"origin" bson:"origin" validate:"required"`
	Destination   string    `json:"destination" db:"destination" bson:"destination" validate:"required,nefield=Origin"`
	DepartureTime time.Time `json:"departure_time" db:"departure_time" bson:"departureTime" validate:"required"`
	ArrivalTime   time.Time `json:"arrival_time" db:"arrival_time" bson:"arrivalTime" validate:"required,gtfield=DepartureTime"`
	AircraftType  string    `json:"aircraft_type" db:"aircraft_type" bson:"aircraftType" validate:"required"`
	SeatCapacity  int       `json:"seat_capacity" db:"seat_capacity" bson:"seatCapacity" validate:"gt=0"`
	BaseFare      float64   `json:"base_fare" db:"base_fare" bson:"baseFare" validate:"gte=0"`
	IsAvailable   bool      `json:"is_available" db:"is_available" bson:"isAvailable"`
	CreatedAt     time.Time `json:"created_at" db:"created_at" bson:"createdAt"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at" bson:"updatedAt"`
}

// IsBookable 檢查航班是否可訂位
func (f *Flight) IsBookable() bool {
	return f.IsAvailable && f.SeatCapacity > 0 && f.BaseFare >= 0
}

// FlightSearchParams 航班搜尋條件，空值代表不限
type FlightSearchParams struct {
	Origin      string
	Destination string
	Departure   *time.Time
}

func (p FlightSearchParams) IsEmpty() bool {
	return p.Origin == "" && p.Destination == "" && p.Departure == nil
}

// DepartureWindow 回傳出發日當天 [00:00, 隔天 00:00) 的區間
func (p FlightSearchParams) DepartureWindow() (time.Time, time.Time) {
	d := p.Departure.UTC()
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

// SeatMap 航班座位概況
type SeatMap struct {
	FlightID  string   `json:"flight_id"`
	Capacity  int      `json:"capacity"`
	Occupied  []string `json:"occupied"`
	Available int      `json:"available"`
}
