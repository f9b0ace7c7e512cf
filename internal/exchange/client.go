// Package exchange holds the exchange collaborators the funding pipeline talks to.
package exchange

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrNoProduct is returned when no earn product exists for a category/coin pair.
var ErrNoProduct = errors.New("no earn product")

// Earn order types.
const (
	OrderRedeem = "Redeem"
	OrderStake  = "Stake"
)

// EarnOrder is a stake or redeem request against an earn product.
type EarnOrder struct {
	Category    string
	OrderType   string
	AccountType string
	Amount      decimal.Decimal
	Coin        string
	ProductID   string
	OrderLinkID string
}

// QuoteRequest asks for a conversion quote of Amount units of From into To.
type QuoteRequest struct {
	From        string
	To          string
	AccountType string
	Amount      decimal.Decimal
}

// Quote is a conversion quote that still has to be confirmed.
type Quote struct {
	ID         string
	From       string
	To         string
	FromAmount decimal.Decimal
	ToAmount   decimal.Decimal
}

// Client is the subset of the exchange trading/earn/convert API the bot consumes.
// Every call is a single synchronous request.
type Client interface {
	WalletBalance(ctx context.Context, coin, accountType string) (decimal.Decimal, error)
	EarnProductID(ctx context.Context, category, coin string) (string, error)
	PlaceEarnOrder(ctx context.Context, order EarnOrder) error
	EarnPosition(ctx context.Context, category, coin string) (decimal.Decimal, error)
	RequestQuote(ctx context.Context, req QuoteRequest) (Quote, error)
	ConfirmQuote(ctx context.Context, quoteID string) error
}

// PriceSource returns the last traded price of a spot symbol such as "ETHUSDT".
type PriceSource interface {
	LastPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
	Name() string
}

// APIError is a request the exchange answered with a non-zero return code.
type APIError struct {
	Code    int64
	Message string
	Path    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: retCode=%d retMsg=%s", e.Path, e.Code, e.Message)
}
