// Package ledger keeps the append-only record of executed trades and derives
// profit-and-loss reports from it.
package ledger

import "DCAPilot/internal/model"

// Ledger is an append-only trade log.
type Ledger interface {
	Append(rec model.TradeRecord) error
	ReadAll() ([]model.TradeRecord, error)
}
