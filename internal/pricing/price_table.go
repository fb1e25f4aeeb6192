package pricing

import (
	"go-gin-flight-booking/config"
	"go-gin-flight-booking/internal/model"
)

// PriceTable 版本化價目表，測試時可直接注入
type PriceTable struct {
	Version           string                     `json:"version"`
	Meals             map[model.MealType]float64 `json:"meals"`
	BaggageUnitPrice  float64                    `json:"baggage_unit_price"`
	BaggagePricePerKg float64                    `json:"baggage_price_per_kg"`
}

func DefaultPriceTable() PriceTable {
	return PriceTable{
		Version: "2024-01",
		Meals: map[model.MealType]float64{
			model.MealNone:       0,
			model.MealStandard:   50,
			model.MealVegetarian: 60,
			model.MealKosher:     70,
		},
		BaggageUnitPrice:  30,
		BaggagePricePerKg: 5,
	}
}

func NewPriceTable(cfg config.PricingConfig) PriceTable {
	return PriceTable{
		Version: cfg.Version,
		Meals: map[model.MealType]float64{
			model.MealNone:       0,
			model.MealStandard:   cfg.MealStandard,
			model.MealVegetarian: cfg.MealVegetarian,
			model.MealKosher:     cfg.MealKosher,
		},
		BaggageUnitPrice:  cfg.BaggageUnitPrice,
		BaggagePricePerKg: cfg.BaggagePricePerKg,
	}
}

// MealPrice 未列在價目表中的餐點價格為 0
func (t PriceTable) MealPrice(meal model.MealType) float64 {
	return nonNegative(t.Meals[meal])
}

// SeatPrice 艙等尚未定價，一律為 0
func (t PriceTable) SeatPrice(model.SeatClass) float64 {
	return 0
}

func (t PriceTable) BaggageCountPrice(count int) float64 {
	if count <= 0 {
		return 0
	}
	return roundMoney(float64(count) * nonNegative(t.BaggageUnitPrice))
}

func (t PriceTable) BaggageWeightPrice(weight float64) float64 {
	weight = float64(model.Quantity(weight).Sanitized())
	return roundMoney(weight * nonNegative(t.BaggagePricePerKg))
}
