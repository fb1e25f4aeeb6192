package model

import "time"

// ReservationStatus 訂位狀態類型
type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "pending"
	ReservationStatusConfirmed ReservationStatus = "confirmed"
	ReservationStatusCancelled ReservationStatus = "cancelled"
)

// IsValid 驗證狀態是否有效
func (s ReservationStatus) IsValid() bool {
	switch s {
	case ReservationStatusPending, ReservationStatusConfirmed, ReservationStatusCancelled:
		return true
	}
	return false
}

// IsActive 取消以外的狀態都會佔用座位
func (s ReservationStatus) IsActive() bool {
	return s == ReservationStatusPending || s == ReservationStatusConfirmed
}

// CanTransitionTo 檢查是否可以轉換到目標狀態
func (s ReservationStatus) CanTransitionTo(target ReservationStatus) bool {
	if !target.IsValid() {
		return false
	}

	transitions := map[ReservationStatus][]ReservationStatus{
		ReservationStatusPending:   {ReservationStatusConfirmed, ReservationStatusCancelled},
		ReservationStatusConfirmed: {ReservationStatusCancelled},
		ReservationStatusCancelled: {}, // 終止狀態
	}

	allowed, ok := transitions[s]
	if !ok {
		return false
	}

	for _, status := range allowed {
		if status == target {
			return true
		}
	}
	return false
}

// Totals 訂位金額，GrandTotal = BaseFareTotal + OptionalPackageTotal
type Totals struct {
	BaseFareTotal        float64 `json:"base_fare_total" db:"base_fare_total" bson:"baseFareTotal"`
	OptionalPackageTotal float64 `json:"optional_package_total" db:"optional_package_total" bson:"optionalPackageTotal"`
	GrandTotal           float64 `json:"grand_total" db:"grand_total" bson:"grandTotal"`
}

// Passenger 乘客
type Passenger struct {
	ID              string          `json:"id" db:"id" bson:"id"`
	FullName        string          `json:"full_name" db:"full_name" bson:"fullName"`
	Email           string          `json:"email" db:"email" bson:"email"`
	PassportNumber  string          `json:"passport_number" db:"passport_number" bson:"passportNumber"`
	OptionalPackage OptionalPackage `json:"optional_package" db:"-" bson:"optionalPackage"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at" bson:"createdAt"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at" bson:"updatedAt"`
}

// Reservation 訂位模型
type Reservation struct {
	ID         string            `json:"id" db:"id" bson:"_id"`
	FlightID   string            `json:"flight_id" db:"flight_id" bson:"flightId"`
	Passengers []Passenger       `json:"passengers" db:"-" bson:"passengers"`
	Status     ReservationStatus `json:"status" db:"status" bson:"status"`
	// BaseFare 訂位當下的單人票價
	BaseFare          float64   `json:"base_fare" db:"base_fare" bson:"baseFare"`
	Totals            `bson:",inline"`
	PriceTableVersion string    `json:"price_table_version" db:"price_table_version" bson:"priceTableVersion"`
	Notes             string    `json:"notes" db:"notes" bson:"notes"`
	CreatedAt         time.Time `json:"created_at" db:"created_at" bson:"createdAt"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at" bson:"updatedAt"`
}

// IsActive 檢查訂位是否仍佔用座位
func (r *Reservation) IsActive() bool {
	return r.Status.IsActive()
}

// Seats 回傳所有乘客已選的座位（依乘客順序）
func (r *Reservation) Seats() []string {
	seats := make([]string, 0, len(r.Passengers))
	for _, p := range r.Passengers {
		if p.OptionalPackage.Seat != "" {
			seats = append(seats, p.OptionalPackage.Seat)
		}
	}
	return seats
}

// FindPassenger 依 ID 找乘客，找不到時 index 為 -1
func (r *Reservation) FindPassenger(passengerID string) (*Passenger, int) {
	for i := range r.Passengers {
		if r.Passengers[i].ID == passengerID {
			return &r.Passengers[i], i
		}
	}
	return nil, -1
}

// Clone 深拷貝，避免呼叫端修改到儲存層的資料
func (r *Reservation) Clone() *Reservation {
	c := *r
	c.Passengers = make([]Passenger, len(r.Passengers))
	for i, p := range r.Passengers {
		p.OptionalPackage.BaggageItems = append([]BaggageItem(nil), p.OptionalPackage.BaggageItems...)
		c.Passengers[i] = p
	}
	return &c
}

// PassengerInput 乘客輸入（已由傳輸層解析成基本型別）
type PassengerInput struct {
	FullName       string       `json:"full_name" validate:"required,max=120"`
	Email          string       `json:"email" validate:"required,email"`
	PassportNumber string       `json:"passport_number" validate:"required,max=32"`
	Package        PackageInput `json:"optional_package"`
}

// CreateReservationRequest 建立訂位請求
type CreateReservationRequest struct {
	FlightID   string           `json:"flight_id" binding:"required"`
	Passengers []PassengerInput `json:"passengers" binding:"required,min=1"`
	Notes      string           `json:"notes"`
}

// QuoteRequest 試算請求
type QuoteRequest struct {
	FlightID string         `json:"flight_id" binding:"required"`
	Packages []PackageInput `json:"packages" binding:"required,min=1"`
}

// Quote 試算結果
type Quote struct {
	FlightID          string            `json:"flight_id"`
	BaseFare          float64           `json:"base_fare"`
	Packages          []OptionalPackage `json:"packages"`
	PriceTableVersion string            `json:"price_table_version"`
	Totals
}
