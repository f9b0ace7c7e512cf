package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"API_KEY", "API_SECRET", "TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID",
	"DAILY_USD", "ALLOCATION", "STABLECOIN", "STABLECOINS", "HTTPS_PROXY",
	"SQLITE_PATH", "LEDGER_PATH", "CRON_DAILY", "LOG_LEVEL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "UNIFIED", cfg.Exchange.AccountType)
	assert.Equal(t, "eb_convert_uta", cfg.Exchange.ConvertAccountType)
	assert.Equal(t, []string{"USDT", "USDC"}, cfg.DCA.Stablecoins)
	assert.Equal(t, "1.015", cfg.Funding.Buffer.String())
	assert.Equal(t, "10", cfg.Funding.MinRedemption.String())
	assert.Equal(t, "0.01", cfg.Funding.DustThreshold.String())
	assert.Equal(t, int32(2), *cfg.Funding.AmountPrecision)
	assert.Equal(t, "FlexibleSaving", cfg.Funding.SavingsCategory)
	assert.Equal(t, 7500*time.Millisecond, cfg.Funding.PrimarySettle)
	assert.Equal(t, 5*time.Second, cfg.Funding.SecondarySettle)
	assert.Equal(t, SettleFixed, cfg.Funding.SettleStrategy)
	assert.Equal(t, "0 0 10 * * *", cfg.Schedule.DailyCron)
	assert.Equal(t, "data/trades.csv", cfg.Ledger.Path)
	assert.True(t, cfg.ReportEnabled())
	assert.False(t, cfg.TelegramEnabled())
	require.Len(t, cfg.PostPurchase, 2)
	assert.Equal(t, "OnChain", cfg.PostPurchase[0].Category)
}

func TestLoad_YAML(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
exchange:
  api_key: k
  api_secret: s
dca:
  daily_spend: 13
  allocation: "ETH:0.6,SOL:0.4"
  stablecoins: [usdt, usdc, dai]
funding:
  buffer: 1.02
  amount_precision: 0
  primary_settle: 10s
  settle_strategy: poll
post_purchase: []
report:
  enabled: false
  price_source: binance
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "13", cfg.DCA.DailySpend.String())
	assert.Equal(t, []string{"USDT", "USDC", "DAI"}, cfg.DCA.Stablecoins)
	assert.Equal(t, "1.02", cfg.Funding.Buffer.String())
	assert.Equal(t, int32(0), *cfg.Funding.AmountPrecision)
	assert.Equal(t, 10*time.Second, cfg.Funding.PrimarySettle)
	assert.Equal(t, SettlePoll, cfg.Funding.SettleStrategy)
	assert.Empty(t, cfg.PostPurchase)
	assert.False(t, cfg.ReportEnabled())
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "dca:\n  stablecoins: [USDC, DAI]\n")
	t.Setenv("API_KEY", "env-key")
	t.Setenv("API_SECRET", "env-secret")
	t.Setenv("DAILY_USD", "25.5")
	t.Setenv("ALLOCATION", "BTC:1")
	t.Setenv("STABLECOIN", "dai")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "env-key", cfg.Exchange.APIKey)
	assert.Equal(t, "25.5", cfg.DCA.DailySpend.String())
	assert.Equal(t, "BTC:1", cfg.DCA.Allocation)
	assert.Equal(t, "DAI", cfg.Stablecoins().Primary())
	assert.Equal(t, []string{"USDC"}, cfg.Stablecoins().Fallbacks())
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)
	t.Setenv("DAILY_USD", "lots")
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "DAILY_USD")

	clearEnv(t)
	_, err = Load(writeConfig(t, "dca: [unclosed"))
	assert.ErrorContains(t, err, "parse config")
}

func TestValidate(t *testing.T) {
	valid := func(t *testing.T) *Config {
		clearEnv(t)
		cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		require.NoError(t, err)
		cfg.Exchange.APIKey = "k"
		cfg.Exchange.APISecret = "s"
		cfg.DCA.DailySpend = cfg.Funding.MinRedemption
		cfg.DCA.Allocation = "ETH:1"
		return cfg
	}

	require.NoError(t, valid(t).Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing secret", func(c *Config) { c.Exchange.APISecret = "" }, "api_secret"},
		{"half telegram", func(c *Config) { c.Telegram.BotToken = "tok" }, "telegram"},
		{"zero spend", func(c *Config) { c.DCA.DailySpend = c.DCA.DailySpend.Sub(c.DCA.DailySpend) }, "daily_spend"},
		{"no allocation", func(c *Config) { c.DCA.Allocation = " " }, "allocation"},
		{"duplicate stablecoin", func(c *Config) { c.DCA.Stablecoins = []string{"USDT", "USDT"} }, "twice"},
		{"buffer below one", func(c *Config) { c.Funding.Buffer = c.Funding.DustThreshold }, "buffer"},
		{"bad strategy", func(c *Config) { c.Funding.SettleStrategy = "wait" }, "settle_strategy"},
		{"bad action", func(c *Config) { c.PostPurchase[0].Action = "sell" }, "action"},
		{"stake without category", func(c *Config) { c.PostPurchase[0].Category = "" }, "category"},
		{"bad price source", func(c *Config) { c.Report.PriceSource = "kraken" }, "price_source"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid(t)
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}
