package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeRecord is one executed purchase as kept in the trade ledger.
type TradeRecord struct {
	Timestamp  time.Time
	Symbol     string
	Quantity   decimal.Decimal
	Price      decimal.Decimal
	TotalSpent decimal.Decimal
}

// PurchaseSummary collects what the purchase executor did in one run.
type PurchaseSummary struct {
	Trades        []TradeRecord
	Skipped       []string
	Failed        []string
	Spent         decimal.Decimal
	Staked        []string
	ManualActions []string
}

// Position aggregates every ledger record of one symbol.
type Position struct {
	Symbol   string
	Quantity decimal.Decimal
	Spent    decimal.Decimal
}

// PnL is a position valued at the current market price.
type PnL struct {
	Position
	Price decimal.Decimal
	Value decimal.Decimal
	PnL   decimal.Decimal
	Pct   decimal.Decimal
}
