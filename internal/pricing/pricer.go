package pricing

import (
	"math"

	"go-gin-flight-booking/internal/model"
)

type ReservationPricer interface {
	// 由輸入建立加購項目（正規化後重新計價）
	BuildPackage(in model.PackageInput) model.OptionalPackage
	// 依選擇重新計算加購項目的各項價格
	Reprice(pkg model.OptionalPackage) model.OptionalPackage
	// 完整重算訂位金額，不做增量修補
	ComputeTotals(baseFare float64, passengers []model.Passenger) model.Totals
	// 試算，不寫入任何資料
	Quote(baseFare float64, inputs []model.PackageInput) ([]model.OptionalPackage, model.Totals)
	Table() PriceTable
}

type ReservationPricerImpl struct {
	table PriceTable
}

func NewReservationPricer(table PriceTable) ReservationPricer {
	return &ReservationPricerImpl{table: table}
}

func (p *ReservationPricerImpl) Table() PriceTable {
	return p.table
}

func (p *ReservationPricerImpl) BuildPackage(in model.PackageInput) model.OptionalPackage {
	pkg := model.OptionalPackage{
		Meal:         model.ParseMeal(in.Meal),
		Seat:         model.NormalizeSeat(in.Seat),
		SeatClass:    model.ParseSeatClass(in.SeatClass),
		BaggageCount: in.BaggageCount.Count(),
		Notes:        in.Notes,
	}

	if len(in.BaggageWeights) > 0 {
		pkg.BaggageItems = make([]model.BaggageItem, 0, len(in.BaggageWeights))
		for _, w := range in.BaggageWeights {
			pkg.BaggageItems = append(pkg.BaggageItems, model.BaggageItem{Weight: w.Float64()})
		}
	}

	return p.Reprice(pkg)
}

func (p *ReservationPricerImpl) Reprice(pkg model.OptionalPackage) model.OptionalPackage {
	pkg.Meal = model.ParseMeal(string(pkg.Meal))
	pkg.SeatClass = model.ParseSeatClass(string(pkg.SeatClass))
	pkg.MealPrice = p.table.MealPrice(pkg.Meal)
	pkg.SeatPrice = p.table.SeatPrice(pkg.SeatClass)

	if len(pkg.BaggageItems) > 0 {
		// 逐件行李依重量計價，件數以實際件數為準
		items := make([]model.BaggageItem, len(pkg.BaggageItems))
		total := 0.0
		for i, item := range pkg.BaggageItems {
			weight := model.Quantity(item.Weight).Float64()
			price := p.table.BaggageWeightPrice(weight)
			items[i] = model.BaggageItem{Weight: weight, Price: price}
			total += price
		}
		pkg.BaggageItems = items
		pkg.BaggageCount = len(items)
		pkg.BaggagePrice = roundMoney(total)
		return pkg
	}

	if pkg.BaggageCount < 0 {
		pkg.BaggageCount = 0
	}
	pkg.BaggagePrice = p.table.BaggageCountPrice(pkg.BaggageCount)
	return pkg
}

func (p *ReservationPricerImpl) ComputeTotals(baseFare float64, passengers []model.Passenger) model.Totals {
	fare := nonNegative(baseFare)

	packageTotal := 0.0
	for _, passenger := range passengers {
		packageTotal += p.Reprice(passenger.OptionalPackage).Price()
	}

	baseFareTotal := roundMoney(fare * float64(len(passengers)))
	packageTotal = roundMoney(packageTotal)

	// 兩個小計已取到分，總額直接相加，不再取整
	return model.Totals{
		BaseFareTotal:        baseFareTotal,
		OptionalPackageTotal: packageTotal,
		GrandTotal:           baseFareTotal + packageTotal,
	}
}

func (p *ReservationPricerImpl) Quote(baseFare float64, inputs []model.PackageInput) ([]model.OptionalPackage, model.Totals) {
	packages := make([]model.OptionalPackage, len(inputs))
	passengers := make([]model.Passenger, len(inputs))
	for i, in := range inputs {
		packages[i] = p.BuildPackage(in)
		passengers[i] = model.Passenger{OptionalPackage: packages[i]}
	}
	return packages, p.ComputeTotals(baseFare, passengers)
}

func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

func nonNegative(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
