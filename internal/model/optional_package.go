package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// MealType 餐點選項
type MealType string

const (
	MealNone       MealType = "none"
	MealStandard   MealType = "standard"
	MealVegetarian MealType = "vegetarian"
	MealKosher     MealType = "kosher"
)

func (m MealType) IsValid() bool {
	switch m {
	case MealNone, MealStandard, MealVegetarian, MealKosher:
		return true
	}
	return false
}

// ParseMeal 不認得的餐點一律視為 none（價格仍然是確定的 0）
func ParseMeal(s string) MealType {
	m := MealType(strings.ToLower(strings.TrimSpace(s)))
	if !m.IsValid() {
		return MealNone
	}
	return m
}

// SeatClass 艙等；目前不影響座位價格
type SeatClass string

const (
	SeatClassEconomy  SeatClass = "economy"
	SeatClassPremium  SeatClass = "premium"
	SeatClassBusiness SeatClass = "business"
	SeatClassFirst    SeatClass = "first"
)

func (c SeatClass) IsValid() bool {
	switch c {
	case SeatClassEconomy, SeatClassPremium, SeatClassBusiness, SeatClassFirst:
		return true
	}
	return false
}

func ParseSeatClass(s string) SeatClass {
	c := SeatClass(strings.ToLower(strings.TrimSpace(s)))
	if !c.IsValid() {
		return SeatClassEconomy
	}
	return c
}

// BaggageItem 逐件行李（依重量計價）
type BaggageItem struct {
	Weight float64 `json:"weight" bson:"weight"`
	Price  float64 `json:"price" bson:"price"`
}

// OptionalPackage 乘客加購項目；各項價格都是由選擇重新計算，不信任輸入
type OptionalPackage struct {
	Meal         MealType      `json:"meal" bson:"meal"`
	MealPrice    float64       `json:"meal_price" bson:"mealPrice"`
	Seat         string        `json:"seat,omitempty" bson:"seat,omitempty"`
	SeatClass    SeatClass     `json:"seat_class" bson:"seatClass"`
	SeatPrice    float64       `json:"seat_price" bson:"seatPrice"`
	BaggageCount int           `json:"baggage_count" bson:"baggageCount"`
	BaggagePrice float64       `json:"baggage_price" bson:"baggagePrice"`
	BaggageItems []BaggageItem `json:"baggage_items,omitempty" bson:"baggageItems,omitempty"`
	Notes        string        `json:"notes" bson:"notes"`
}

func DefaultOptionalPackage() OptionalPackage {
	return OptionalPackage{
		Meal:      MealNone,
		SeatClass: SeatClassEconomy,
	}
}

// Price 單一乘客加購總額
func (p OptionalPackage) Price() float64 {
	return p.MealPrice + p.BaggagePrice + p.SeatPrice
}

// PackageInput 加購項目輸入
type PackageInput struct {
	Meal           string     `json:"meal"`
	Seat           string     `json:"seat"`
	SeatClass      string     `json:"seat_class"`
	BaggageCount   Quantity   `json:"baggage_count"`
	BaggageWeights []Quantity `json:"baggage_weights"`
	Notes          string     `json:"notes"`
}

// Quantity 數量或重量；接受數字或數字字串，無法解析、負數、NaN、Inf 一律為 0
type Quantity float64

func (q *Quantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*q = 0
		return nil
	}

	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*q = 0
			return nil
		}
		raw = s
	}

	*q = ParseQuantity(raw)
	return nil
}

// ParseQuantity 解析表單或 query 字串
func ParseQuantity(s string) Quantity {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return Quantity(v).Sanitized()
}

// Sanitized 負數、NaN、Inf 轉為 0
func (q Quantity) Sanitized() Quantity {
	v := float64(q)
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return q
}

// Count 取整數件數（無條件捨去）
func (q Quantity) Count() int {
	v := math.Floor(float64(q.Sanitized()))
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(v)
}

func (q Quantity) Float64() float64 {
	return float64(q.Sanitized())
}

// NormalizeSeat 座位代號去空白並轉大寫，例如 " 1a " → "1A"
func NormalizeSeat(label string) string {
	return strings.ToUpper(strings.TrimSpace(label))
}
