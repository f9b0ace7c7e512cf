package recorder

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DCAPilot/internal/model"
)

func openTemp(t *testing.T) *SQLiteRecorder {
	t.Helper()
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "db", "history.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestSQLiteRecorder_RecordFunding(t *testing.T) {
	r := openTemp(t)

	require.NoError(t, r.RecordFunding("run-1", model.FundingStep{
		Kind: model.StepRedeem, Coin: "USDT", Amount: decimal.RequireFromString("71.05"), OK: true,
	}))
	require.NoError(t, r.RecordFunding("run-1", model.FundingStep{
		Kind: model.StepConvert, Coin: "USDC", ToCoin: "USDT",
		Amount: decimal.RequireFromString("30"), Output: decimal.RequireFromString("29.97"), OK: true,
	}))
	require.NoError(t, r.RecordFunding("run-2", model.FundingStep{Kind: model.StepSkip, Coin: "DAI", Note: "below minimum"}))

	var n int
	require.NoError(t, r.db.QueryRow(`SELECT COUNT(*) FROM funding_events WHERE run_id = ?`, "run-1").Scan(&n))
	assert.Equal(t, 2, n)

	var kind, amount, output string
	var ok bool
	require.NoError(t, r.db.QueryRow(`SELECT kind, amount, output, ok FROM funding_events WHERE to_coin = 'USDT'`).
		Scan(&kind, &amount, &output, &ok))
	assert.Equal(t, "CONVERT", kind)
	assert.Equal(t, "30", amount)
	assert.Equal(t, "29.97", output)
	assert.True(t, ok)
}

func TestSQLiteRecorder_RecordRun(t *testing.T) {
	r := openTemp(t)
	start := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

	require.NoError(t, r.RecordRun(&RunEvent{
		RunID: "run-1", StartedAt: start, FinishedAt: start.Add(20 * time.Second),
		Trigger: model.TriggerScheduled, Outcome: model.OutcomeAborted, ExitCode: 1,
		Primary: "USDT", Required: "100", Initial: "28.95", Final: "60", Spent: "0",
	}))

	var outcome, final string
	var code int
	var started int64
	require.NoError(t, r.db.QueryRow(`SELECT outcome, exit_code, final, started_at FROM runs WHERE run_id = 'run-1'`).
		Scan(&outcome, &code, &final, &started))
	assert.Equal(t, "ABORTED", outcome)
	assert.Equal(t, 1, code)
	assert.Equal(t, "60", final)
	assert.Equal(t, start.Unix(), started)

	assert.Error(t, r.RecordRun(&RunEvent{RunID: "run-1", StartedAt: start, FinishedAt: start}), "run ids are unique")
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NewNoopRecorder()
	assert.NoError(t, r.RecordFunding("x", model.FundingStep{}))
	assert.NoError(t, r.RecordRun(&RunEvent{}))
	assert.NoError(t, r.Close())
}
