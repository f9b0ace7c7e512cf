package fund

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"DCAPilot/internal/model"
	"DCAPilot/internal/notifier"
)

// ResolverConfig holds the funding constants.
type ResolverConfig struct {
	// Buffer multiplies the deficit to cover conversion fees and slippage.
	Buffer decimal.Decimal
	// MinRedemption is the smallest redemption the exchange accepts.
	MinRedemption decimal.Decimal
	// Category is the savings product category redeemed from.
	Category        string
	PrimarySettle   time.Duration
	SecondarySettle time.Duration
}

// Resolver makes sure the primary currency balance covers a run's budget,
// redeeming and converting from savings when it does not. Every action is a real
// exchange side effect and is never undone.
type Resolver struct {
	cfg       ResolverConfig
	balances  *Balances
	savings   *Savings
	converter *Converter
	settler   Settler
	notify    notifier.Notifier
	log       zerolog.Logger
}

// NewResolver wires a resolver.
func NewResolver(cfg ResolverConfig, b *Balances, s *Savings, c *Converter, st Settler, n notifier.Notifier, log zerolog.Logger) *Resolver {
	return &Resolver{
		cfg:       cfg,
		balances:  b,
		savings:   s,
		converter: c,
		settler:   st,
		notify:    n,
		log:       log.With().Str("component", "resolver").Logger(),
	}
}

// RedemptionAmount computes max(deficit×buffer, min) capped at redeemable.
// It returns false when redeemable is below min, since no allowed amount exists.
func RedemptionAmount(deficit, redeemable, buffer, min decimal.Decimal) (decimal.Decimal, bool) {
	if redeemable.LessThan(min) {
		return decimal.Zero, false
	}
	want := decimal.Max(deficit.Mul(buffer), min)
	if want.GreaterThan(redeemable) {
		want = redeemable
	}
	return want, true
}

// Resolve decides whether budget units of the primary currency are available,
// topping the wallet up from savings first. The primary currency is prefs.Primary();
// fallback stablecoins are tried in the order given.
func (r *Resolver) Resolve(ctx context.Context, budget decimal.Decimal, prefs model.StablecoinPreference) model.Resolution {
	primary := prefs.Primary()
	res := model.Resolution{Primary: primary, Required: budget}

	bal := r.balances.Available(ctx, primary)
	res.Initial = bal
	deficit := budget.Sub(bal)
	r.log.Info().Str("primary", primary).Str("balance", bal.String()).Str("required", budget.String()).Msg("funding check")

	if !deficit.IsPositive() {
		res.Final = bal
		res.Sufficient = true
		return res
	}

	r.notify.Notify(fmt.Sprintf("⚠️ %s balance %s is below required %s, redeeming from %s.",
		primary, bal.StringFixed(2), budget.StringFixed(2), r.cfg.Category))

	res.Final = bal
	deficit = r.redeemPrimary(ctx, primary, bal, deficit, budget, &res)
	if r.interrupted(ctx, &res) {
		return res
	}

	if deficit.IsPositive() {
		for _, coin := range prefs.Fallbacks() {
			covered, remaining := r.tryFallback(ctx, coin, primary, deficit, budget, &res)
			if r.interrupted(ctx, &res) {
				return res
			}
			deficit = remaining
			if covered {
				break
			}
		}
	}

	res.Final = r.balances.Available(ctx, primary)
	res.Sufficient = res.Final.GreaterThanOrEqual(budget)
	r.log.Info().Str("primary", primary).Str("final", res.Final.String()).
		Bool("sufficient", res.Sufficient).Int("steps", len(res.Steps)).Msg("funding resolved")
	return res
}

func (r *Resolver) redeemPrimary(ctx context.Context, primary string, bal, deficit, budget decimal.Decimal, res *model.Resolution) decimal.Decimal {
	redeemable := r.balances.Redeemable(ctx, primary)
	amount, ok := r.plan(primary, deficit, redeemable, res)
	if !ok {
		return deficit
	}

	done := r.savings.Redeem(ctx, r.cfg.Category, primary, amount)
	res.Steps = append(res.Steps, model.FundingStep{Kind: model.StepRedeem, Coin: primary, Amount: amount, OK: done})
	if !done {
		return deficit
	}

	r.settler.Await(ctx, Settlement{Coin: primary, Baseline: bal, Wait: r.cfg.PrimarySettle})
	if ctx.Err() != nil {
		return deficit
	}
	res.Final = r.balances.Available(ctx, primary)
	return budget.Sub(res.Final)
}

// tryFallback redeems coin, converts its whole liquid balance to primary and
// reports whether the budget is now covered together with the new deficit.
func (r *Resolver) tryFallback(ctx context.Context, coin, primary string, deficit, budget decimal.Decimal, res *model.Resolution) (bool, decimal.Decimal) {
	redeemable := r.balances.Redeemable(ctx, coin)
	amount, ok := r.plan(coin, deficit, redeemable, res)
	if !ok {
		return false, deficit
	}

	before := r.balances.Available(ctx, coin)
	done := r.savings.Redeem(ctx, r.cfg.Category, coin, amount)
	res.Steps = append(res.Steps, model.FundingStep{Kind: model.StepRedeem, Coin: coin, Amount: amount, OK: done})
	if !done {
		return false, deficit
	}

	r.settler.Await(ctx, Settlement{Coin: coin, Baseline: before, Wait: r.cfg.SecondarySettle})
	if ctx.Err() != nil {
		return false, deficit
	}

	// Sweep the entire liquid balance, including anything idle from earlier runs.
	liquid := r.balances.Available(ctx, coin)
	conv := r.converter.Convert(ctx, coin, primary, liquid)
	res.Steps = append(res.Steps, model.FundingStep{
		Kind: model.StepConvert, Coin: coin, ToCoin: primary,
		Amount: liquid, Output: conv.ToAmount, OK: conv.OK(),
	})
	if !conv.OK() {
		return false, deficit
	}

	res.Final = r.balances.Available(ctx, primary)
	deficit = budget.Sub(res.Final)
	return !deficit.IsPositive(), deficit
}

// interrupted marks res cancelled when ctx is done. Exchange calls made with a
// dead context would fail and read as zero balances, so resolution stops here.
func (r *Resolver) interrupted(ctx context.Context, res *model.Resolution) bool {
	if ctx.Err() == nil {
		return false
	}
	res.Cancelled = true
	res.Sufficient = false
	r.log.Warn().Err(ctx.Err()).Str("primary", res.Primary).Int("steps", len(res.Steps)).
		Msg("funding interrupted by shutdown")
	return true
}

// plan applies the redemption clamp for coin, recording a skip step when no
// redemption can be submitted.
func (r *Resolver) plan(coin string, deficit, redeemable decimal.Decimal, res *model.Resolution) (decimal.Decimal, bool) {
	if !redeemable.IsPositive() {
		r.log.Info().Str("coin", coin).Msg("nothing redeemable")
		res.Steps = append(res.Steps, model.FundingStep{Kind: model.StepSkip, Coin: coin, Note: "nothing redeemable"})
		return decimal.Zero, false
	}
	amount, ok := RedemptionAmount(deficit, redeemable, r.cfg.Buffer, r.cfg.MinRedemption)
	if !ok {
		note := fmt.Sprintf("redeemable %s below minimum redemption %s", redeemable.String(), r.cfg.MinRedemption.String())
		r.log.Warn().Str("coin", coin).Msg(note)
		r.notify.Notify(fmt.Sprintf("⏭ Skipping %s: %s", coin, note))
		res.Steps = append(res.Steps, model.FundingStep{Kind: model.StepSkip, Coin: coin, Note: note})
		return decimal.Zero, false
	}
	return r.savings.Round(coin, amount), true
}
