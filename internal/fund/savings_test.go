package fund

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DCAPilot/internal/exchange"
)

func TestSavings_RoundsDownToPrecision(t *testing.T) {
	h := newHarness()
	assert.Equal(t, "71.05", h.savings.Round("USDT", d("71.0599")).String())
	assert.Equal(t, "0.1234", h.savings.Round("sol", d("0.123456")).String())
	assert.Equal(t, "10", h.savings.Round("USDT", d("10.001")).String())
}

func TestSavings_RedeemSubmitsRoundedOrder(t *testing.T) {
	h := newHarness()
	h.ex.SetEarn(testCategory, "USDT", "100")

	ok := h.savings.Redeem(context.Background(), testCategory, "USDT", d("71.0577"))

	require.True(t, ok)
	require.Len(t, h.ex.Orders, 1)
	o := h.ex.Orders[0]
	assert.Equal(t, "71.05", o.Amount.String())
	assert.Equal(t, exchange.OrderRedeem, o.OrderType)
	assert.Equal(t, testAccount, o.AccountType)
	assert.Equal(t, "USDT-FlexibleSaving", o.ProductID)
	_, err := uuid.Parse(o.OrderLinkID)
	assert.NoError(t, err)
	assert.Equal(t, "71.05", h.ex.Balance("USDT").String())
	assert.Equal(t, 1, h.notes.Count("Redeem 71.05 USDT"))
}

func TestSavings_LooksUpProductEveryTimeWithFreshTokens(t *testing.T) {
	h := newHarness()
	h.ex.SetEarn(testCategory, "USDT", "100")

	require.True(t, h.savings.Redeem(context.Background(), testCategory, "USDT", d("10")))
	require.True(t, h.savings.Redeem(context.Background(), testCategory, "USDT", d("10")))

	assert.Equal(t, 2, h.ex.Count("EarnProductID"))
	require.Len(t, h.ex.Orders, 2)
	assert.NotEqual(t, h.ex.Orders[0].OrderLinkID, h.ex.Orders[1].OrderLinkID)
}

func TestSavings_FailuresReturnFalse(t *testing.T) {
	h := newHarness()
	h.ex.SetWallet("SOL", "0.5")
	h.ex.Fail["EarnProductID:SOL"] = exchange.ErrNoProduct

	assert.False(t, h.savings.Stake(context.Background(), "OnChain", "SOL", d("0.5")))
	assert.Zero(t, h.ex.Count("PlaceEarnOrder"))
	assert.Equal(t, 1, h.notes.Count("product lookup"))

	h.ex.Fail["PlaceEarnOrder"] = errors.New("rejected")
	assert.False(t, h.savings.Redeem(context.Background(), testCategory, "USDT", d("20")))
	assert.Equal(t, 1, h.notes.Count("rejected"))
}

func TestSavings_ZeroAfterRoundingIsNotSubmitted(t *testing.T) {
	h := newHarness()
	assert.False(t, h.savings.Redeem(context.Background(), testCategory, "USDT", d("0.004")))
	assert.Zero(t, h.ex.TotalCalls())
}
