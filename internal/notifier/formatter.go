package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"DCAPilot/internal/model"
)

// Failure formats an error notification. Dynamic text is escaped for HTML parse mode.
func Failure(what string, err error) string {
	if err == nil {
		return "❌ " + html.EscapeString(what)
	}
	return fmt.Sprintf("❌ %s: %s", html.EscapeString(what), html.EscapeString(err.Error()))
}

// Escape makes arbitrary text safe for HTML parse mode.
func Escape(s string) string { return html.EscapeString(s) }

// FormatStart announces a run and the basket it is about to buy.
func FormatStart(plan *model.AllocationPlan, dailySpend, budget decimal.Decimal, primary string) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📈 <b>Daily DCA</b> | %s\n\n", time.Now().Format("2006-01-02")))
	for _, e := range plan.Entries {
		b.WriteString(fmt.Sprintf("  %s: %s × %s = %s %s\n",
			e.Asset, e.Fraction.String(), dailySpend.String(), e.BuyAmount(dailySpend).StringFixed(2), primary))
	}
	b.WriteString(fmt.Sprintf("Budget: %s %s", budget.StringFixed(2), primary))
	return b.String()
}

// FormatInsufficient reports a run aborted for lack of funds.
func FormatInsufficient(res *model.Resolution) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("⚠️ <b>Insufficient funds</b>: %s balance %s is below required %s (short %s). Skipping purchases.\n",
		res.Primary, res.Final.StringFixed(2), res.Required.StringFixed(2), res.Deficit().StringFixed(2)))
	if len(res.Steps) > 0 {
		b.WriteString("\nFunding attempts:\n")
		for _, s := range res.Steps {
			b.WriteString("  " + formatStep(s) + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatStep(s model.FundingStep) string {
	mark := "✅"
	if !s.OK {
		mark = "❌"
	}
	switch s.Kind {
	case model.StepConvert:
		return fmt.Sprintf("%s convert %s %s → %s %s", mark, s.Amount.String(), s.Coin, s.Output.String(), s.ToCoin)
	case model.StepRedeem:
		return fmt.Sprintf("%s redeem %s %s", mark, s.Amount.String(), s.Coin)
	default:
		return fmt.Sprintf("⏭ %s: %s", s.Coin, Escape(s.Note))
	}
}

// FormatSummary reports what the purchase executor did.
func FormatSummary(sum *model.PurchaseSummary, primary string) string {
	var b strings.Builder
	b.WriteString("✅ <b>Daily DCA completed</b>\n")
	for _, t := range sum.Trades {
		b.WriteString(fmt.Sprintf("  %s: %s @ ~%s for %s %s\n",
			t.Symbol, t.Quantity.String(), t.Price.StringFixed(4), t.TotalSpent.StringFixed(2), primary))
	}
	if len(sum.Skipped) > 0 {
		b.WriteString(fmt.Sprintf("  skipped: %s\n", strings.Join(sum.Skipped, ", ")))
	}
	if len(sum.Failed) > 0 {
		b.WriteString(fmt.Sprintf("  failed: %s\n", strings.Join(sum.Failed, ", ")))
	}
	if len(sum.Staked) > 0 {
		b.WriteString(fmt.Sprintf("  staked: %s\n", strings.Join(sum.Staked, ", ")))
	}
	b.WriteString(fmt.Sprintf("Spent: %s %s", sum.Spent.StringFixed(2), primary))
	return b.String()
}

// FormatPnL formats the per-symbol profit and loss report.
func FormatPnL(rows []model.PnL, quote string) string {
	if len(rows) == 0 {
		return "📊 No trades recorded yet."
	}
	var b strings.Builder
	b.WriteString("📊 <b>Total PnL</b>\n")
	for _, r := range rows {
		b.WriteString(fmt.Sprintf(" - %s: %s bought, spent %s %s, current value %s %s\n   PnL: %s %s (%s%%)\n",
			r.Symbol, r.Quantity.StringFixed(4), r.Spent.StringFixed(2), quote,
			r.Value.StringFixed(2), quote, r.PnL.StringFixed(2), quote, r.Pct.StringFixed(2)))
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatRunState formats the persisted run state for display.
func FormatRunState(state *model.RunState) string {
	var b strings.Builder
	b.WriteString("📦 <b>Run status</b>\n\n")
	if state.LastRunAt.IsZero() {
		b.WriteString("No run recorded yet.\n")
	} else {
		b.WriteString(fmt.Sprintf("Last run: %s (%s)\n", state.LastRunAt.Format("2006-01-02 15:04"), state.LastTrigger))
		b.WriteString(fmt.Sprintf("Outcome: %s (exit %d)\n", state.LastOutcome, state.LastExitCode))
		b.WriteString(fmt.Sprintf("Trades: %d | Spent: %s\n", state.LastTrades, state.LastSpent))
	}
	b.WriteString(fmt.Sprintf("Total runs: %d\n", state.TotalRuns))
	b.WriteString(fmt.Sprintf("Consecutive aborts: %d", state.ConsecutiveAborts))
	return b.String()
}
