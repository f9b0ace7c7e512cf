// Package purchase buys the allocation basket once funding has been secured.
package purchase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"DCAPilot/internal/fund"
	"DCAPilot/internal/ledger"
	"DCAPilot/internal/model"
	"DCAPilot/internal/notifier"
)

// Rule actions.
const (
	ActionStake  = "stake"
	ActionManual = "manual"
)

// Rule is a post-purchase action fired when an asset's wallet balance reaches MinBalance.
type Rule struct {
	Asset      string
	Action     string
	Category   string
	MinBalance decimal.Decimal
	Note       string
}

// Config controls what happens around the purchases.
type Config struct {
	Rules []Rule
	// RestakeSurplus stakes the primary balance left after purchases back into
	// SavingsCategory when it is at least RestakeMin.
	RestakeSurplus  bool
	RestakeMin      decimal.Decimal
	SavingsCategory string
}

// Executor converts the primary currency into each allocation asset.
type Executor struct {
	cfg      Config
	balances *fund.Balances
	savings  *fund.Savings
	conv     *fund.Converter
	ledger   ledger.Ledger
	notify   notifier.Notifier
	log      zerolog.Logger
	now      func() time.Time
}

// NewExecutor wires an executor.
func NewExecutor(cfg Config, b *fund.Balances, s *fund.Savings, c *fund.Converter, l ledger.Ledger, n notifier.Notifier, log zerolog.Logger) *Executor {
	return &Executor{
		cfg:      cfg,
		balances: b,
		savings:  s,
		conv:     c,
		ledger:   l,
		notify:   n,
		log:      log.With().Str("component", "purchase").Logger(),
		now:      time.Now,
	}
}

// Execute buys each entry of plan in order. available is the primary balance the
// resolver ended with; it is decremented by what each conversion actually spent and
// an entry is skipped when what is left does not cover it.
func (e *Executor) Execute(ctx context.Context, plan *model.AllocationPlan, dailySpend decimal.Decimal, primary string, available decimal.Decimal) model.PurchaseSummary {
	sum := model.PurchaseSummary{Spent: decimal.Zero}
	remaining := available

	for _, entry := range plan.Entries {
		buy := entry.BuyAmount(dailySpend)
		log := e.log.With().Str("asset", entry.Asset).Str("buy", buy.String()).Logger()

		if remaining.LessThan(buy) {
			log.Warn().Str("remaining", remaining.String()).Msg("not enough primary left, skipping asset")
			e.notify.Notify(fmt.Sprintf("⚠️ Skipping %s: %s %s left, %s needed",
				entry.Asset, remaining.StringFixed(2), primary, buy.StringFixed(2)))
			sum.Skipped = append(sum.Skipped, entry.Asset)
			continue
		}

		conv := e.conv.Convert(ctx, primary, entry.Asset, buy)
		if !conv.OK() {
			log.Warn().Msg("purchase conversion produced nothing")
			sum.Failed = append(sum.Failed, entry.Asset)
			continue
		}

		rec := model.TradeRecord{
			Timestamp:  e.now(),
			Symbol:     entry.Asset + primary,
			Quantity:   conv.ToAmount,
			Price:      conv.FromAmount.Div(conv.ToAmount).Round(8),
			TotalSpent: conv.FromAmount,
		}
		if err := e.ledger.Append(rec); err != nil {
			log.Error().Err(err).Msg("ledger append failed")
			e.notify.Notify(notifier.Failure("Recording "+rec.Symbol+" trade failed", err))
		}
		sum.Trades = append(sum.Trades, rec)
		sum.Spent = sum.Spent.Add(conv.FromAmount)
		remaining = remaining.Sub(conv.FromAmount)
		log.Info().Str("quantity", rec.Quantity.String()).Str("spent", rec.TotalSpent.String()).
			Str("remaining", remaining.String()).Msg("asset bought")

		e.afterPurchase(ctx, entry.Asset, &sum)
	}

	if e.cfg.RestakeSurplus {
		e.restake(ctx, primary, &sum)
	}
	return sum
}

// afterPurchase fires the first rule of asset whose threshold the wallet balance reaches.
func (e *Executor) afterPurchase(ctx context.Context, asset string, sum *model.PurchaseSummary) {
	var rules []Rule
	for _, r := range e.cfg.Rules {
		if strings.EqualFold(r.Asset, asset) {
			rules = append(rules, r)
		}
	}
	if len(rules) == 0 {
		return
	}

	bal := e.balances.Available(ctx, asset)
	for _, r := range rules {
		if bal.LessThan(r.MinBalance) {
			continue
		}
		switch r.Action {
		case ActionStake:
			if e.savings.Stake(ctx, r.Category, asset, bal) {
				sum.Staked = append(sum.Staked, fmt.Sprintf("%s %s → %s", e.savings.Round(asset, bal).String(), asset, r.Category))
			}
		case ActionManual:
			msg := fmt.Sprintf("🛠 NEED MANUALLY ADD %s %s", bal.String(), asset)
			if r.Note != "" {
				msg += " TO " + r.Note
			}
			e.log.Info().Str("asset", asset).Str("balance", bal.String()).Msg("manual action required")
			e.notify.Notify(notifier.Escape(msg))
			sum.ManualActions = append(sum.ManualActions, msg)
		default:
			e.log.Warn().Str("asset", asset).Str("action", r.Action).Msg("unknown post-purchase action")
		}
		return
	}
}

func (e *Executor) restake(ctx context.Context, primary string, sum *model.PurchaseSummary) {
	bal := e.balances.Available(ctx, primary)
	if !bal.IsPositive() || bal.LessThan(e.cfg.RestakeMin) {
		e.log.Debug().Str("balance", bal.String()).Msg("no surplus to restake")
		return
	}
	if e.savings.Stake(ctx, e.cfg.SavingsCategory, primary, bal) {
		sum.Staked = append(sum.Staked, fmt.Sprintf("%s %s → %s", e.savings.Round(primary, bal).String(), primary, e.cfg.SavingsCategory))
	}
}
