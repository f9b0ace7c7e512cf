// Package allocation turns the configured basket string into an AllocationPlan.
package allocation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"DCAPilot/internal/model"
)

// ErrEmpty is returned when the allocation string holds no pairs.
var ErrEmpty = errors.New("allocation is empty")

// Parse reads a comma-separated list of SYMBOL:fraction pairs, e.g. "ETH:0.6,SOL:0.4".
// Symbols are upper-cased and must be unique; each fraction must lie in (0, 1].
// Order is preserved. The fraction sum is not normalized; callers check Balanced().
func Parse(raw string) (*model.AllocationPlan, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrEmpty
	}

	plan := &model.AllocationPlan{}
	seen := make(map[string]bool)
	one := decimal.NewFromInt(1)

	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		symbol, frac, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, fmt.Errorf("allocation pair %q: expected SYMBOL:fraction", pair)
		}
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		if symbol == "" {
			return nil, fmt.Errorf("allocation pair %q: empty symbol", pair)
		}
		if seen[symbol] {
			return nil, fmt.Errorf("allocation pair %q: duplicate symbol %s", pair, symbol)
		}
		f, err := decimal.NewFromString(strings.TrimSpace(frac))
		if err != nil {
			return nil, fmt.Errorf("allocation pair %q: bad fraction: %w", pair, err)
		}
		if !f.IsPositive() || f.GreaterThan(one) {
			return nil, fmt.Errorf("allocation pair %q: fraction must be in (0, 1]", pair)
		}
		seen[symbol] = true
		plan.Entries = append(plan.Entries, model.Allocation{Asset: symbol, Fraction: f})
	}

	if len(plan.Entries) == 0 {
		return nil, ErrEmpty
	}
	return plan, nil
}

// Warning returns a human-readable note when the plan's fractions do not sum to 1,
// or an empty string when they do.
func Warning(plan *model.AllocationPlan) string {
	if plan.Balanced() {
		return ""
	}
	return fmt.Sprintf("allocation fractions sum to %s, not 1.0; using the plan as given", plan.Sum().String())
}
