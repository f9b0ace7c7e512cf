package exchange

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"
)

// BinancePrices is a PriceSource backed by Binance public spot tickers.
// It needs no credentials.
type BinancePrices struct {
	client *binance.Client
}

// NewBinancePrices builds the price source; baseURL overrides the SDK default when set.
func NewBinancePrices(baseURL, proxyURL string) (*BinancePrices, error) {
	client := binance.NewClient("", "")
	if v := strings.TrimSpace(baseURL); v != "" {
		client.BaseURL = v
	}
	httpClient := &http.Client{Timeout: 15 * time.Second}
	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy url: %w", err)
		}
		httpClient.Transport = &http.Transport{Proxy: http.ProxyURL(u)}
	}
	client.HTTPClient = httpClient
	return &BinancePrices{client: client}, nil
}

func (p *BinancePrices) Name() string { return "binance" }

// LastPrice returns the latest spot price of symbol, e.g. "ETHUSDT".
func (p *BinancePrices) LastPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	prices, err := p.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("binance price %s: %w", symbol, err)
	}
	for _, sp := range prices {
		if sp != nil && sp.Symbol == symbol {
			return parseAmount(sp.Price)
		}
	}
	return decimal.Zero, fmt.Errorf("binance price %s: symbol not listed", symbol)
}
