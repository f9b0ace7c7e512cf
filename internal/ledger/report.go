package ledger

import (
	"context"

	"github.com/shopspring/decimal"

	"DCAPilot/internal/exchange"
	"DCAPilot/internal/model"
)

// Summarize aggregates records per symbol, in order of first appearance.
func Summarize(records []model.TradeRecord) []model.Position {
	idx := make(map[string]int)
	var out []model.Position
	for _, r := range records {
		i, ok := idx[r.Symbol]
		if !ok {
			i = len(out)
			idx[r.Symbol] = i
			out = append(out, model.Position{Symbol: r.Symbol, Quantity: decimal.Zero, Spent: decimal.Zero})
		}
		out[i].Quantity = out[i].Quantity.Add(r.Quantity)
		out[i].Spent = out[i].Spent.Add(r.TotalSpent)
	}
	return out
}

// Valuate prices each position at the source's last price. Positions whose price
// cannot be fetched are returned in failed with their error.
func Valuate(ctx context.Context, positions []model.Position, prices exchange.PriceSource) (rows []model.PnL, failed map[string]error) {
	hundred := decimal.NewFromInt(100)
	for _, p := range positions {
		price, err := prices.LastPrice(ctx, p.Symbol)
		if err != nil {
			if failed == nil {
				failed = make(map[string]error)
			}
			failed[p.Symbol] = err
			continue
		}
		value := p.Quantity.Mul(price)
		pnl := value.Sub(p.Spent)
		pct := decimal.Zero
		if p.Spent.IsPositive() {
			pct = pnl.Div(p.Spent).Mul(hundred).Round(2)
		}
		rows = append(rows, model.PnL{Position: p, Price: price, Value: value, PnL: pnl, Pct: pct})
	}
	return rows, failed
}
