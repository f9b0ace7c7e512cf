package fund

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"DCAPilot/internal/exchange/exchangetest"
	"DCAPilot/internal/notifier/notifiertest"
)

const (
	testAccount  = "UNIFIED"
	testCategory = "FlexibleSaving"
)

var d = exchangetest.D

type recordingSettler struct {
	settlements []Settlement
}

func (r *recordingSettler) Await(_ context.Context, s Settlement) {
	r.settlements = append(r.settlements, s)
}

type harness struct {
	ex       *exchangetest.Fake
	notes    *notifiertest.Capture
	settler  *recordingSettler
	balances *Balances
	savings  *Savings
	conv     *Converter
	resolver *Resolver
}

func newHarness() *harness {
	h := &harness{
		ex:      exchangetest.New(),
		notes:   &notifiertest.Capture{},
		settler: &recordingSettler{},
	}
	log := zerolog.Nop()
	h.balances = NewBalances(h.ex, h.notes, log, testAccount, testCategory)
	h.savings = NewSavings(h.ex, h.notes, log, testAccount, DefaultPrecision, map[string]int32{"SOL": 4})
	h.conv = NewConverter(h.ex, h.notes, log, "eb_convert_uta", d("0.01"))
	h.resolver = NewResolver(ResolverConfig{
		Buffer:          d("1.015"),
		MinRedemption:   d("10"),
		Category:        testCategory,
		PrimarySettle:   7500 * time.Millisecond,
		SecondarySettle: 5 * time.Second,
	}, h.balances, h.savings, h.conv, h.settler, h.notes, log)
	return h
}

// touched reports whether any recorded call mentions coin.
func (h *harness) touched(coin string) bool {
	for _, c := range h.ex.Calls {
		if strings.Contains(c.Args, coin) {
			return true
		}
	}
	return false
}

func amounts(orders []decimal.Decimal) []string {
	out := make([]string, len(orders))
	for i, o := range orders {
		out[i] = o.String()
	}
	return out
}
