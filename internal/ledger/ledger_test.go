package ledger

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DCAPilot/internal/exchange/exchangetest"
	"DCAPilot/internal/model"
)

var d = exchangetest.D

func trade(ts time.Time, symbol, qty, price, spent string) model.TradeRecord {
	return model.TradeRecord{Timestamp: ts, Symbol: symbol, Quantity: d(qty), Price: d(price), TotalSpent: d(spent)}
}

func TestCSVLedger_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "trades.csv")
	l := NewCSVLedger(path)
	ts := time.Date(2025, 1, 2, 10, 0, 5, 0, time.Local)

	in := []model.TradeRecord{
		trade(ts, "ETHUSDT", "0.00312", "2500", "7.8"),
		trade(ts.Add(24*time.Hour), "SOLUSDT", "0.052", "100", "5.2"),
	}
	for _, r := range in {
		require.NoError(t, l.Append(r))
	}

	out, err := l.ReadAll()
	require.NoError(t, err)
	require.Len(t, out, len(in))
	for i := range in {
		assert.True(t, in[i].Timestamp.Equal(out[i].Timestamp))
		assert.Equal(t, in[i].Symbol, out[i].Symbol)
		assert.True(t, in[i].Quantity.Equal(out[i].Quantity))
		assert.True(t, in[i].Price.Equal(out[i].Price))
		assert.True(t, in[i].TotalSpent.Equal(out[i].TotalSpent))
	}
}

func TestCSVLedger_WritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.csv")
	l := NewCSVLedger(path)
	ts := time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)

	require.NoError(t, l.Append(trade(ts, "ETHUSDT", "1", "2", "2")))
	require.NoError(t, l.Append(trade(ts, "ETHUSDT", "1", "2", "2")))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "timestamp,symbol,quantity,price,total_spent", lines[0])
	assert.Equal(t, "2025-01-02T10:00:00Z,ETHUSDT,1,2,2", lines[1])
}

func TestCSVLedger_KeepsInstantAcrossZones(t *testing.T) {
	l := NewCSVLedger(filepath.Join(t.TempDir(), "trades.csv"))
	tokyo := time.FixedZone("JST", 9*60*60)
	in := []time.Time{
		time.Date(2025, 1, 2, 10, 0, 5, 0, time.UTC),
		time.Date(2025, 1, 2, 10, 0, 5, 0, tokyo),
	}
	for _, ts := range in {
		require.NoError(t, l.Append(trade(ts, "ETHUSDT", "1", "2", "2")))
	}

	out, err := l.ReadAll()
	require.NoError(t, err)
	require.Len(t, out, 2)
	for i := range in {
		assert.True(t, in[i].Equal(out[i].Timestamp), "got %s want %s", out[i].Timestamp, in[i])
	}
	_, offset := out[1].Timestamp.Zone()
	assert.Equal(t, 9*60*60, offset)
}

func TestCSVLedger_ReadsZonelessRowsAsLocal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.csv")
	require.NoError(t, os.WriteFile(path, []byte("timestamp,symbol,quantity,price,total_spent\n2025-01-02 10:00:00,ETHUSDT,1,2,2\n"), 0o644))

	recs, err := NewCSVLedger(path).ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.True(t, recs[0].Timestamp.Equal(time.Date(2025, 1, 2, 10, 0, 0, 0, time.Local)))
}

func TestCSVLedger_MissingFileIsEmpty(t *testing.T) {
	l := NewCSVLedger(filepath.Join(t.TempDir(), "absent.csv"))
	recs, err := l.ReadAll()
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestCSVLedger_RejectsCorruptRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.csv")
	require.NoError(t, os.WriteFile(path, []byte("timestamp,symbol,quantity,price,total_spent\n2025-01-02 10:00:00,ETHUSDT,abc,2,2\n"), 0o644))

	_, err := NewCSVLedger(path).ReadAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestSummarize(t *testing.T) {
	ts := time.Now()
	positions := Summarize([]model.TradeRecord{
		trade(ts, "SOLUSDT", "0.05", "100", "5"),
		trade(ts, "ETHUSDT", "0.003", "2500", "7.5"),
		trade(ts, "SOLUSDT", "0.04", "125", "5"),
	})

	require.Len(t, positions, 2)
	assert.Equal(t, "SOLUSDT", positions[0].Symbol)
	assert.Equal(t, "0.09", positions[0].Quantity.String())
	assert.Equal(t, "10", positions[0].Spent.String())
	assert.Equal(t, "ETHUSDT", positions[1].Symbol)
	assert.Empty(t, Summarize(nil))
}

func TestValuate(t *testing.T) {
	ex := exchangetest.New()
	ex.Prices["SOLUSDT"] = d("150")
	ex.Fail["LastPrice:ETHUSDT"] = errors.New("ticker down")

	rows, failed := Valuate(context.Background(), []model.Position{
		{Symbol: "SOLUSDT", Quantity: d("0.09"), Spent: d("10")},
		{Symbol: "ETHUSDT", Quantity: d("0.003"), Spent: d("7.5")},
	}, ex)

	require.Len(t, rows, 1)
	assert.Equal(t, "13.5", rows[0].Value.String())
	assert.Equal(t, "3.5", rows[0].PnL.String())
	assert.Equal(t, "35", rows[0].Pct.String())
	require.Contains(t, failed, "ETHUSDT")
	assert.EqualError(t, failed["ETHUSDT"], "ticker down")
}
