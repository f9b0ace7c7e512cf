package fund

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"DCAPilot/internal/exchange"
	"DCAPilot/internal/model"
	"DCAPilot/internal/notifier"
)

// DefaultPrecision is the number of decimals earn orders are rounded down to.
const DefaultPrecision int32 = 2

// Savings stakes into and redeems from earn products.
type Savings struct {
	ex        exchange.Client
	notify    notifier.Notifier
	log       zerolog.Logger
	account   string
	precision int32
	perCoin   map[string]int32
}

// NewSavings creates the executor. perCoin overrides the precision for specific coins.
func NewSavings(ex exchange.Client, n notifier.Notifier, log zerolog.Logger, account string, precision int32, perCoin map[string]int32) *Savings {
	return &Savings{
		ex:        ex,
		notify:    n,
		log:       log.With().Str("component", "savings").Logger(),
		account:   account,
		precision: precision,
		perCoin:   perCoin,
	}
}

// Round truncates amount to the coin's order precision.
func (s *Savings) Round(coin string, amount decimal.Decimal) decimal.Decimal {
	p := s.precision
	if v, ok := s.perCoin[strings.ToUpper(coin)]; ok {
		p = v
	}
	return amount.Truncate(p)
}

// Redeem moves amount of coin out of the category's earn product into the wallet.
func (s *Savings) Redeem(ctx context.Context, category, coin string, amount decimal.Decimal) bool {
	return s.submit(ctx, exchange.OrderRedeem, category, coin, amount)
}

// Stake moves amount of coin from the wallet into the category's earn product.
func (s *Savings) Stake(ctx context.Context, category, coin string, amount decimal.Decimal) bool {
	return s.submit(ctx, exchange.OrderStake, category, coin, amount)
}

func (s *Savings) submit(ctx context.Context, orderType, category, coin string, amount decimal.Decimal) bool {
	req := model.RedemptionRequest{
		Category:    category,
		OrderType:   orderType,
		Coin:        coin,
		Amount:      s.Round(coin, amount),
		OrderLinkID: uuid.NewString(),
	}
	log := s.log.With().Str("order_type", orderType).Str("category", category).
		Str("coin", coin).Str("amount", req.Amount.String()).Logger()

	if !req.Amount.IsPositive() {
		log.Warn().Str("requested", amount.String()).Msg("amount rounds to zero, not submitting")
		s.notify.Notify(notifier.Failure(fmt.Sprintf("%s %s %s: amount rounds to zero", orderType, amount.String(), coin), nil))
		return false
	}

	// Product ids are exchange-assigned and may change; look one up for every order.
	productID, err := s.ex.EarnProductID(ctx, category, coin)
	if err != nil {
		log.Error().Err(err).Msg("earn product lookup failed")
		s.notify.Notify(notifier.Failure(fmt.Sprintf("Error during %s of %s %s: product lookup", strings.ToLower(orderType), req.Amount.String(), coin), err))
		return false
	}
	req.ProductID = productID

	err = s.ex.PlaceEarnOrder(ctx, exchange.EarnOrder{
		Category:    req.Category,
		OrderType:   req.OrderType,
		AccountType: s.account,
		Amount:      req.Amount,
		Coin:        req.Coin,
		ProductID:   req.ProductID,
		OrderLinkID: req.OrderLinkID,
	})
	if err != nil {
		log.Error().Err(err).Str("order_link_id", req.OrderLinkID).Msg("earn order failed")
		s.notify.Notify(notifier.Failure(fmt.Sprintf("Error during %s of %s %s", strings.ToLower(orderType), req.Amount.String(), coin), err))
		return false
	}

	log.Info().Str("product_id", productID).Str("order_link_id", req.OrderLinkID).Msg("earn order placed")
	s.notify.Notify(fmt.Sprintf("✅ %s %s %s (%s) successfully.", orderType, req.Amount.String(), coin, category))
	return true
}
