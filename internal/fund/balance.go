// Package fund secures enough settlement currency for a DCA run: balance reads,
// savings redemptions, stablecoin conversions and the resolver that drives them.
package fund

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"DCAPilot/internal/exchange"
	"DCAPilot/internal/notifier"
)

// Balances reads wallet and savings balances. Reads are never cached and never fail:
// an exchange error is logged, notified and reported as zero.
type Balances struct {
	ex       exchange.Client
	notify   notifier.Notifier
	log      zerolog.Logger
	account  string
	category string
}

// NewBalances creates a balance oracle for the given wallet account type and savings category.
func NewBalances(ex exchange.Client, n notifier.Notifier, log zerolog.Logger, account, category string) *Balances {
	return &Balances{
		ex:       ex,
		notify:   n,
		log:      log.With().Str("component", "balances").Logger(),
		account:  account,
		category: category,
	}
}

// Available returns the spendable wallet balance of coin.
func (b *Balances) Available(ctx context.Context, coin string) decimal.Decimal {
	bal, err := b.ex.WalletBalance(ctx, coin, b.account)
	if err != nil {
		b.log.Error().Err(err).Str("coin", coin).Str("account", b.account).Msg("wallet balance query failed")
		b.notify.Notify(notifier.Failure(fmt.Sprintf("Error getting %s balance", coin), err))
		return decimal.Zero
	}
	b.log.Debug().Str("coin", coin).Str("balance", bal.String()).Msg("wallet balance")
	return bal
}

// Redeemable returns how much of coin sits in the savings product.
func (b *Balances) Redeemable(ctx context.Context, coin string) decimal.Decimal {
	amt, err := b.ex.EarnPosition(ctx, b.category, coin)
	if err != nil {
		b.log.Error().Err(err).Str("coin", coin).Str("category", b.category).Msg("savings position query failed")
		b.notify.Notify(notifier.Failure(fmt.Sprintf("Error getting %s %s position", b.category, coin), err))
		return decimal.Zero
	}
	b.log.Debug().Str("coin", coin).Str("redeemable", amt.String()).Msg("savings position")
	return amt
}
