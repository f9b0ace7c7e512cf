// Package exchangetest provides an in-memory exchange for tests.
package exchangetest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"DCAPilot/internal/exchange"
)

// Call is one recorded client invocation.
type Call struct {
	Op   string
	Args string
}

// Fake is an exchange.Client that keeps balances in memory.
// Redemptions move funds from the earn position into the wallet immediately,
// stakes move them back, and confirmed quotes move From into To at Rates.
type Fake struct {
	mu sync.Mutex

	Wallet map[string]decimal.Decimal // coin -> wallet balance
	Earn   map[string]decimal.Decimal // "category/coin" -> earn position
	Rates  map[string]decimal.Decimal // "FROM/TO" -> units of TO per unit of FROM
	Prices map[string]decimal.Decimal // symbol -> last price

	// Fail makes the named operation return an error. A key may be an op name
	// ("RequestQuote") or op plus coin ("PlaceEarnOrder:USDC").
	Fail map[string]error
	// HoldRedemptions keeps redeemed funds out of the wallet until Settle is called.
	HoldRedemptions bool

	Calls   []Call
	Orders  []exchange.EarnOrder
	pending map[string]exchange.Quote
	held    map[string]decimal.Decimal
	seq     int
}

// New returns an empty fake exchange.
func New() *Fake {
	return &Fake{
		Wallet:  map[string]decimal.Decimal{},
		Earn:    map[string]decimal.Decimal{},
		Rates:   map[string]decimal.Decimal{},
		Prices:  map[string]decimal.Decimal{},
		Fail:    map[string]error{},
		pending: map[string]exchange.Quote{},
		held:    map[string]decimal.Decimal{},
	}
}

// D parses a decimal literal, panicking on bad input.
func D(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// SetWallet sets a wallet balance.
func (f *Fake) SetWallet(coin, amount string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Wallet[coin] = D(amount)
	return f
}

// SetEarn sets an earn position.
func (f *Fake) SetEarn(category, coin, amount string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Earn[category+"/"+coin] = D(amount)
	return f
}

// SetRate sets the conversion rate from one coin to another.
func (f *Fake) SetRate(from, to, rate string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Rates[from+"/"+to] = D(rate)
	return f
}

// Settle releases held redemptions into the wallet.
func (f *Fake) Settle() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for coin, amt := range f.held {
		f.Wallet[coin] = f.Wallet[coin].Add(amt)
	}
	f.held = map[string]decimal.Decimal{}
}

// Balance returns the current wallet balance of coin.
func (f *Fake) Balance(coin string) decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Wallet[coin]
}

// Count returns how many times op was called.
func (f *Fake) Count(op string) int {
	return len(f.CallsTo(op))
}

// CallsTo returns the recorded calls of op.
func (f *Fake) CallsTo(op string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Call
	for _, c := range f.Calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// TotalCalls returns the number of calls of any kind.
func (f *Fake) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}

func (f *Fake) record(op, coin string, args ...any) error {
	f.Calls = append(f.Calls, Call{Op: op, Args: strings.TrimSpace(fmt.Sprintln(args...))})
	if err, ok := f.Fail[op+":"+coin]; ok {
		return err
	}
	if err, ok := f.Fail[op]; ok {
		return err
	}
	return nil
}

func (f *Fake) WalletBalance(_ context.Context, coin, accountType string) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("WalletBalance", coin, coin, accountType); err != nil {
		return decimal.Zero, err
	}
	return f.Wallet[coin], nil
}

func (f *Fake) EarnProductID(_ context.Context, category, coin string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("EarnProductID", coin, category, coin); err != nil {
		return "", err
	}
	return coin + "-" + category, nil
}

func (f *Fake) PlaceEarnOrder(_ context.Context, order exchange.EarnOrder) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("PlaceEarnOrder", order.Coin, order.OrderType, order.Category, order.Coin, order.Amount.String()); err != nil {
		return err
	}
	key := order.Category + "/" + order.Coin
	switch order.OrderType {
	case exchange.OrderRedeem:
		if order.Amount.GreaterThan(f.Earn[key]) {
			return &exchange.APIError{Code: 180001, Message: "insufficient earn position", Path: "/v5/earn/place-order"}
		}
		f.Earn[key] = f.Earn[key].Sub(order.Amount)
		if f.HoldRedemptions {
			f.held[order.Coin] = f.held[order.Coin].Add(order.Amount)
		} else {
			f.Wallet[order.Coin] = f.Wallet[order.Coin].Add(order.Amount)
		}
	case exchange.OrderStake:
		if order.Amount.GreaterThan(f.Wallet[order.Coin]) {
			return &exchange.APIError{Code: 180002, Message: "insufficient balance", Path: "/v5/earn/place-order"}
		}
		f.Wallet[order.Coin] = f.Wallet[order.Coin].Sub(order.Amount)
		f.Earn[key] = f.Earn[key].Add(order.Amount)
	}
	f.Orders = append(f.Orders, order)
	return nil
}

func (f *Fake) EarnPosition(_ context.Context, category, coin string) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("EarnPosition", coin, category, coin); err != nil {
		return decimal.Zero, err
	}
	return f.Earn[category+"/"+coin], nil
}

func (f *Fake) RequestQuote(_ context.Context, req exchange.QuoteRequest) (exchange.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("RequestQuote", req.From, req.From, req.To, req.Amount.String()); err != nil {
		return exchange.Quote{}, err
	}
	rate, ok := f.Rates[req.From+"/"+req.To]
	if !ok {
		return exchange.Quote{}, &exchange.APIError{Code: 790000, Message: "pair not supported", Path: "/v5/asset/exchange/quote-apply"}
	}
	f.seq++
	q := exchange.Quote{
		ID:         fmt.Sprintf("quote-%d", f.seq),
		From:       req.From,
		To:         req.To,
		FromAmount: req.Amount,
		ToAmount:   req.Amount.Mul(rate),
	}
	f.pending[q.ID] = q
	return q, nil
}

func (f *Fake) ConfirmQuote(_ context.Context, quoteID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.pending[quoteID]
	coin := ""
	if ok {
		coin = q.From
	}
	if err := f.record("ConfirmQuote", coin, quoteID); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("unknown quote %s", quoteID)
	}
	delete(f.pending, quoteID)
	if q.FromAmount.GreaterThan(f.Wallet[q.From]) {
		return &exchange.APIError{Code: 790001, Message: "insufficient balance", Path: "/v5/asset/exchange/convert-execute"}
	}
	f.Wallet[q.From] = f.Wallet[q.From].Sub(q.FromAmount)
	f.Wallet[q.To] = f.Wallet[q.To].Add(q.ToAmount)
	return nil
}

func (f *Fake) LastPrice(_ context.Context, symbol string) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("LastPrice", symbol, symbol); err != nil {
		return decimal.Zero, err
	}
	p, ok := f.Prices[symbol]
	if !ok {
		return decimal.Zero, fmt.Errorf("no ticker for %s", symbol)
	}
	return p, nil
}

func (f *Fake) Name() string { return "fake" }
