package model

import "github.com/shopspring/decimal"

// Conversion is the result of a quote-and-confirm exchange of one currency for another.
// A zero ToAmount means the conversion was skipped or failed.
type Conversion struct {
	From       string
	To         string
	FromAmount decimal.Decimal
	ToAmount   decimal.Decimal
	QuoteID    string
}

// OK reports whether the conversion produced any output.
func (c Conversion) OK() bool { return c.ToAmount.IsPositive() }

// RedemptionRequest is a single earn-product order as submitted to the exchange.
type RedemptionRequest struct {
	Category    string
	OrderType   string // "Redeem" or "Stake"
	Coin        string
	Amount      decimal.Decimal
	ProductID   string
	OrderLinkID string
}

// StepKind names a funding side effect.
type StepKind string

const (
	StepRedeem  StepKind = "REDEEM"
	StepConvert StepKind = "CONVERT"
	StepSkip    StepKind = "SKIP"
)

// FundingStep describes one action the resolver attempted.
type FundingStep struct {
	Kind   StepKind
	Coin   string
	ToCoin string
	Amount decimal.Decimal
	Output decimal.Decimal
	OK     bool
	Note   string
}

// Resolution is the funding resolver's final decision.
type Resolution struct {
	Primary    string
	Required   decimal.Decimal
	Initial    decimal.Decimal
	Final      decimal.Decimal
	Sufficient bool
	// Cancelled is set when shutdown interrupted resolution after a side effect.
	// Final then holds the last balance read before the interruption.
	Cancelled bool
	Steps     []FundingStep
}

// Deficit is the shortfall left after the final balance read.
func (r *Resolution) Deficit() decimal.Decimal {
	return r.Required.Sub(r.Final)
}
