package exchange

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// DefaultBybitURL is the Bybit V5 mainnet REST endpoint.
const DefaultBybitURL = "https://api.bybit.com"

// Bybit implements Client and PriceSource against the Bybit V5 REST API.
type Bybit struct {
	APIKey     string
	APISecret  string
	BaseURL    string
	RecvWindow int
	Client     *http.Client

	now func() time.Time
}

// NewBybit creates a signed Bybit client with optional proxy support.
func NewBybit(apiKey, apiSecret, baseURL string, recvWindow int, proxyURL string) *Bybit {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if baseURL == "" {
		baseURL = DefaultBybitURL
	}
	if recvWindow <= 0 {
		recvWindow = 5000
	}
	return &Bybit{
		APIKey:     apiKey,
		APISecret:  apiSecret,
		BaseURL:    strings.TrimRight(baseURL, "/"),
		RecvWindow: recvWindow,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		now: time.Now,
	}
}

func (b *Bybit) Name() string { return "bybit" }

// WalletBalance returns the wallet balance of coin in the given account type.
// A coin the account has never held is reported as zero.
func (b *Bybit) WalletBalance(ctx context.Context, coin, accountType string) (decimal.Decimal, error) {
	q := url.Values{}
	q.Set("accountType", accountType)
	q.Set("coin", coin)
	res, err := b.get(ctx, "/v5/account/wallet-balance", q, true)
	if err != nil {
		return decimal.Zero, err
	}
	v := res.Get(fmt.Sprintf("result.list.0.coin.#(coin==%q).walletBalance", coin))
	return parseAmount(v.String())
}

// EarnProductID looks up the product id for a category/coin pair.
func (b *Bybit) EarnProductID(ctx context.Context, category, coin string) (string, error) {
	q := url.Values{}
	q.Set("category", category)
	q.Set("coin", coin)
	res, err := b.get(ctx, "/v5/earn/product", q, true)
	if err != nil {
		return "", err
	}
	id := res.Get("result.list.0.productId").String()
	if id == "" {
		return "", fmt.Errorf("%s %s: %w", category, coin, ErrNoProduct)
	}
	return id, nil
}

// PlaceEarnOrder submits a stake or redeem order.
func (b *Bybit) PlaceEarnOrder(ctx context.Context, order EarnOrder) error {
	body := map[string]string{
		"category":    order.Category,
		"orderType":   order.OrderType,
		"accountType": order.AccountType,
		"amount":      order.Amount.String(),
		"coin":        order.Coin,
		"productId":   order.ProductID,
		"orderLinkId": order.OrderLinkID,
	}
	_, err := b.post(ctx, "/v5/earn/place-order", body)
	return err
}

// EarnPosition returns the amount of coin currently held in the earn category.
func (b *Bybit) EarnPosition(ctx context.Context, category, coin string) (decimal.Decimal, error) {
	q := url.Values{}
	q.Set("category", category)
	q.Set("coin", coin)
	res, err := b.get(ctx, "/v5/earn/position", q, true)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, item := range res.Get("result.list").Array() {
		amt, err := parseAmount(item.Get("amount").String())
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(amt)
	}
	return total, nil
}

// RequestQuote applies for a convert quote, paying in the From coin.
func (b *Bybit) RequestQuote(ctx context.Context, req QuoteRequest) (Quote, error) {
	body := map[string]string{
		"fromCoin":      req.From,
		"toCoin":        req.To,
		"accountType":   req.AccountType,
		"requestCoin":   req.From,
		"requestAmount": req.Amount.String(),
	}
	res, err := b.post(ctx, "/v5/asset/exchange/quote-apply", body)
	if err != nil {
		return Quote{}, err
	}
	r := res.Get("result")
	q := Quote{
		ID:   r.Get("quoteTxId").String(),
		From: r.Get("fromCoin").String(),
		To:   r.Get("toCoin").String(),
	}
	if q.ID == "" {
		return Quote{}, fmt.Errorf("quote-apply: empty quoteTxId")
	}
	if q.FromAmount, err = parseAmount(r.Get("fromAmount").String()); err != nil {
		return Quote{}, err
	}
	if q.ToAmount, err = parseAmount(r.Get("toAmount").String()); err != nil {
		return Quote{}, err
	}
	return q, nil
}

// ConfirmQuote executes a previously applied quote.
func (b *Bybit) ConfirmQuote(ctx context.Context, quoteID string) error {
	res, err := b.post(ctx, "/v5/asset/exchange/convert-execute", map[string]string{"quoteTxId": quoteID})
	if err != nil {
		return err
	}
	if status := res.Get("result.exchangeStatus").String(); status == "failure" {
		return fmt.Errorf("convert-execute %s: exchange status %s", quoteID, status)
	}
	return nil
}

// LastPrice returns the last spot trade price of symbol.
func (b *Bybit) LastPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	q := url.Values{}
	q.Set("category", "spot")
	q.Set("symbol", symbol)
	res, err := b.get(ctx, "/v5/market/tickers", q, false)
	if err != nil {
		return decimal.Zero, err
	}
	price := res.Get("result.list.0.lastPrice").String()
	if price == "" {
		return decimal.Zero, fmt.Errorf("no ticker for %s", symbol)
	}
	return parseAmount(price)
}

func (b *Bybit) get(ctx context.Context, path string, q url.Values, signed bool) (gjson.Result, error) {
	query := q.Encode()
	endpoint := b.BaseURL + path
	if query != "" {
		endpoint += "?" + query
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return gjson.Result{}, err
	}
	if signed {
		b.sign(req, query)
	}
	return b.do(req, path)
}

func (b *Bybit) post(ctx context.Context, path string, payload map[string]string) (gjson.Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return gjson.Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	b.sign(req, string(body))
	return b.do(req, path)
}

// sign adds the V5 HMAC-SHA256 headers: sign(timestamp + key + recvWindow + payload).
func (b *Bybit) sign(req *http.Request, payload string) {
	ts := strconv.FormatInt(b.now().UnixMilli(), 10)
	recv := strconv.Itoa(b.RecvWindow)
	mac := hmac.New(sha256.New, []byte(b.APISecret))
	mac.Write([]byte(ts + b.APIKey + recv + payload))

	req.Header.Set("X-BAPI-API-KEY", b.APIKey)
	req.Header.Set("X-BAPI-TIMESTAMP", ts)
	req.Header.Set("X-BAPI-RECV-WINDOW", recv)
	req.Header.Set("X-BAPI-SIGN-TYPE", "2")
	req.Header.Set("X-BAPI-SIGN", hex.EncodeToString(mac.Sum(nil)))
}

func (b *Bybit) do(req *http.Request, path string) (gjson.Result, error) {
	resp, err := b.Client.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%s: %w", path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%s: read body: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return gjson.Result{}, fmt.Errorf("%s: status %d, body: %s", path, resp.StatusCode, string(body))
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("%s: invalid JSON response", path)
	}
	res := gjson.ParseBytes(body)
	if code := res.Get("retCode").Int(); code != 0 {
		return gjson.Result{}, &APIError{Code: code, Message: res.Get("retMsg").String(), Path: path}
	}
	return res, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return d, nil
}
