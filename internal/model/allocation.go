package model

import (
	"github.com/shopspring/decimal"
)

// AllocationTolerance is the accepted deviation of the fraction sum from 1.
var AllocationTolerance = decimal.RequireFromString("0.001")

// Allocation is one basket entry: an asset and its share of the daily spend.
type Allocation struct {
	Asset    string
	Fraction decimal.Decimal
}

// AllocationPlan is the ordered basket. Order is the purchase order.
type AllocationPlan struct {
	Entries []Allocation
}

// Sum returns the total of all fractions.
func (p *AllocationPlan) Sum() decimal.Decimal {
	sum := decimal.Zero
	for _, e := range p.Entries {
		sum = sum.Add(e.Fraction)
	}
	return sum
}

// Balanced reports whether the fractions sum to 1 within AllocationTolerance.
func (p *AllocationPlan) Balanced() bool {
	return p.Sum().Sub(decimal.NewFromInt(1)).Abs().LessThanOrEqual(AllocationTolerance)
}

// Budget is the primary-currency amount the whole basket needs for one run.
func (p *AllocationPlan) Budget(dailySpend decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, e := range p.Entries {
		total = total.Add(e.BuyAmount(dailySpend))
	}
	return total
}

// Assets lists the basket symbols in plan order.
func (p *AllocationPlan) Assets() []string {
	out := make([]string, len(p.Entries))
	for i, e := range p.Entries {
		out[i] = e.Asset
	}
	return out
}

// BuyAmount is the primary-currency amount spent on this entry.
func (a Allocation) BuyAmount(dailySpend decimal.Decimal) decimal.Decimal {
	return a.Fraction.Mul(dailySpend)
}

// StablecoinPreference is the ordered list of settlement currencies.
// The first entry is the primary currency; the rest are fallbacks in priority order.
type StablecoinPreference []string

// Primary returns the first-preference settlement currency.
func (s StablecoinPreference) Primary() string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}

// Fallbacks returns the alternate stablecoins, excluding the primary, in declared order.
func (s StablecoinPreference) Fallbacks() []string {
	if len(s) < 2 {
		return nil
	}
	primary := s[0]
	out := make([]string, 0, len(s)-1)
	for _, c := range s[1:] {
		if c != primary {
			out = append(out, c)
		}
	}
	return out
}
