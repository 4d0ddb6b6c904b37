package commission

import (
	"github.com/shopspring/decimal"
)

// FlatRate charges a proportional commission on both legs: entry cost is
// quantity*price*(1+rate), exit proceeds are quantity*price*(1-rate).
type FlatRate struct {
	rate decimal.Decimal
}

// NewFlatRate creates a flat-rate commission model.
func NewFlatRate(rate float64) Model {
	return &FlatRate{rate: decimal.NewFromFloat(rate)}
}

// EntryCost implements Model.
func (f *FlatRate) EntryCost(quantity int64, price float64) float64 {
	cost, _ := decimal.NewFromInt(quantity).
		Mul(decimal.NewFromFloat(price)).
		Mul(decimal.NewFromInt(1).Add(f.rate)).
		Float64()

	return cost
}

// ExitProceeds implements Model.
func (f *FlatRate) ExitProceeds(quantity int64, price float64) float64 {
	proceeds, _ := decimal.NewFromInt(quantity).
		Mul(decimal.NewFromFloat(price)).
		Mul(decimal.NewFromInt(1).Sub(f.rate)).
		Float64()

	return proceeds
}

// Rate implements Model.
func (f *FlatRate) Rate() float64 {
	rate, _ := f.rate.Float64()

	return rate
}
