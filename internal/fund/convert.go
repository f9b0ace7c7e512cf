package fund

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"DCAPilot/internal/exchange"
	"DCAPilot/internal/model"
	"DCAPilot/internal/notifier"
)

// Converter exchanges one currency for another with a quote that is confirmed immediately.
// There is no price check between quote and confirm.
type Converter struct {
	ex      exchange.Client
	notify  notifier.Notifier
	log     zerolog.Logger
	account string
	dust    decimal.Decimal
}

// NewConverter creates a converter using the given convert account type.
// Amounts below dust never reach the exchange.
func NewConverter(ex exchange.Client, n notifier.Notifier, log zerolog.Logger, account string, dust decimal.Decimal) *Converter {
	return &Converter{
		ex:      ex,
		notify:  n,
		log:     log.With().Str("component", "converter").Logger(),
		account: account,
		dust:    dust,
	}
}

// Convert spends amount of from to buy to. A skipped or failed conversion returns
// a Conversion with zero ToAmount.
func (c *Converter) Convert(ctx context.Context, from, to string, amount decimal.Decimal) model.Conversion {
	none := model.Conversion{From: from, To: to, FromAmount: decimal.Zero, ToAmount: decimal.Zero}
	if amount.LessThan(c.dust) {
		c.log.Info().Str("from", from).Str("to", to).Str("amount", amount.String()).Msg("below dust threshold, skipping conversion")
		c.notify.Notify(fmt.Sprintf("⏭ Skipping conversion of %s %s → %s: below dust threshold %s",
			amount.String(), from, to, c.dust.String()))
		return none
	}

	quote, err := c.ex.RequestQuote(ctx, exchange.QuoteRequest{From: from, To: to, AccountType: c.account, Amount: amount})
	if err != nil {
		c.log.Error().Err(err).Str("from", from).Str("to", to).Str("amount", amount.String()).Msg("quote request failed")
		c.notify.Notify(notifier.Failure(fmt.Sprintf("Quote %s %s → %s failed", amount.String(), from, to), err))
		return none
	}
	if err := c.ex.ConfirmQuote(ctx, quote.ID); err != nil {
		c.log.Error().Err(err).Str("quote_id", quote.ID).Msg("quote confirm failed")
		c.notify.Notify(notifier.Failure(fmt.Sprintf("Confirm quote %s %s → %s failed", amount.String(), from, to), err))
		return none
	}

	conv := model.Conversion{
		From:       from,
		To:         to,
		FromAmount: quote.FromAmount,
		ToAmount:   quote.ToAmount,
		QuoteID:    quote.ID,
	}
	c.log.Info().Str("quote_id", quote.ID).
		Str("from_amount", conv.FromAmount.String()).Str("from", from).
		Str("to_amount", conv.ToAmount.String()).Str("to", to).
		Msg("processed quote")
	c.notify.Notify(fmt.Sprintf("✅ Processed quote: %s %s → %s %s",
		conv.FromAmount.String(), from, conv.ToAmount.String(), to))
	return conv
}
