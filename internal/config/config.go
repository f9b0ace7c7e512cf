package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"DCAPilot/internal/model"
)

// Settlement strategies.
const (
	SettleFixed = "fixed"
	SettlePoll  = "poll"
)

// PostPurchaseRule is a configured action taken after an asset is bought.
type PostPurchaseRule struct {
	Asset      string          `yaml:"asset"`
	Action     string          `yaml:"action"` // "stake" or "manual"
	Category   string          `yaml:"category"`
	MinBalance decimal.Decimal `yaml:"min_balance"`
	Note       string          `yaml:"note"`
}

// Config holds all application configuration.
type Config struct {
	Exchange struct {
		APIKey             string `yaml:"api_key"`
		APISecret          string `yaml:"api_secret"`
		BaseURL            string `yaml:"base_url"`
		RecvWindow         int    `yaml:"recv_window"`
		AccountType        string `yaml:"account_type"`
		ConvertAccountType string `yaml:"convert_account_type"`
	} `yaml:"exchange"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	DCA struct {
		DailySpend  decimal.Decimal `yaml:"daily_spend"`
		Allocation  string          `yaml:"allocation"`
		Stablecoins []string        `yaml:"stablecoins"`
	} `yaml:"dca"`
	Funding struct {
		Buffer          decimal.Decimal  `yaml:"buffer"`
		MinRedemption   decimal.Decimal  `yaml:"min_redemption"`
		DustThreshold   decimal.Decimal  `yaml:"dust_threshold"`
		AmountPrecision *int32           `yaml:"amount_precision"`
		CoinPrecision   map[string]int32 `yaml:"coin_precision"`
		SavingsCategory string           `yaml:"savings_category"`
		PrimarySettle   time.Duration    `yaml:"primary_settle"`
		SecondarySettle time.Duration    `yaml:"secondary_settle"`
		SettleStrategy  string           `yaml:"settle_strategy"`
		PollInterval    time.Duration    `yaml:"poll_interval"`
		RestakeSurplus  bool             `yaml:"restake_surplus"`
		RestakeMin      decimal.Decimal  `yaml:"restake_min"`
	} `yaml:"funding"`
	PostPurchase []PostPurchaseRule `yaml:"post_purchase"`
	Ledger       struct {
		Path string `yaml:"path"`
	} `yaml:"ledger"`
	Report struct {
		Enabled        *bool  `yaml:"enabled"`
		PriceSource    string `yaml:"price_source"`
		BinanceBaseURL string `yaml:"binance_base_url"`
	} `yaml:"report"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	StateFile string `yaml:"state_file"`
	Schedule  struct {
		DailyCron string `yaml:"daily_cron"`
	} `yaml:"schedule"`
	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Load reads .env (if present) and the YAML file at path (if present), then
// applies environment variable overrides and defaults.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("API_KEY"); v != "" {
		c.Exchange.APIKey = v
	}
	if v := os.Getenv("API_SECRET"); v != "" {
		c.Exchange.APISecret = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("DAILY_USD"); v != "" {
		amt, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("DAILY_USD: %w", err)
		}
		c.DCA.DailySpend = amt
	}
	if v := os.Getenv("ALLOCATION"); v != "" {
		c.DCA.Allocation = v
	}
	if v := os.Getenv("STABLECOINS"); v != "" {
		c.DCA.Stablecoins = splitList(v)
	}
	// STABLECOIN picks the primary and keeps the remaining list as fallbacks.
	if v := strings.ToUpper(strings.TrimSpace(os.Getenv("STABLECOIN"))); v != "" {
		coins := []string{v}
		for _, s := range c.DCA.Stablecoins {
			if !strings.EqualFold(s, v) {
				coins = append(coins, s)
			}
		}
		c.DCA.Stablecoins = coins
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	if v := os.Getenv("LEDGER_PATH"); v != "" {
		c.Ledger.Path = v
	}
	if v := os.Getenv("CRON_DAILY"); v != "" {
		c.Schedule.DailyCron = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Exchange.AccountType == "" {
		c.Exchange.AccountType = "UNIFIED"
	}
	if c.Exchange.ConvertAccountType == "" {
		c.Exchange.ConvertAccountType = "eb_convert_uta"
	}
	if c.Exchange.RecvWindow == 0 {
		c.Exchange.RecvWindow = 5000
	}
	if len(c.DCA.Stablecoins) == 0 {
		c.DCA.Stablecoins = []string{"USDT", "USDC"}
	}
	for i, s := range c.DCA.Stablecoins {
		c.DCA.Stablecoins[i] = strings.ToUpper(strings.TrimSpace(s))
	}
	if c.Funding.Buffer.IsZero() {
		c.Funding.Buffer = decimal.RequireFromString("1.015")
	}
	if c.Funding.MinRedemption.IsZero() {
		c.Funding.MinRedemption = decimal.NewFromInt(10)
	}
	if c.Funding.DustThreshold.IsZero() {
		c.Funding.DustThreshold = decimal.RequireFromString("0.01")
	}
	if c.Funding.AmountPrecision == nil {
		p := int32(2)
		c.Funding.AmountPrecision = &p
	}
	if c.Funding.SavingsCategory == "" {
		c.Funding.SavingsCategory = "FlexibleSaving"
	}
	if c.Funding.PrimarySettle == 0 {
		c.Funding.PrimarySettle = 7500 * time.Millisecond
	}
	if c.Funding.SecondarySettle == 0 {
		c.Funding.SecondarySettle = 5 * time.Second
	}
	if c.Funding.SettleStrategy == "" {
		c.Funding.SettleStrategy = SettleFixed
	}
	if c.Funding.PollInterval == 0 {
		c.Funding.PollInterval = time.Second
	}
	if c.Funding.RestakeMin.IsZero() {
		c.Funding.RestakeMin = c.Funding.MinRedemption
	}
	if c.PostPurchase == nil {
		c.PostPurchase = []PostPurchaseRule{
			{Asset: "SOL", Action: "stake", Category: "OnChain", MinBalance: decimal.RequireFromString("0.1")},
			{Asset: "ETH", Action: "manual", MinBalance: decimal.RequireFromString("0.01"), Note: "mining liquidity"},
		}
	}
	if c.Ledger.Path == "" {
		c.Ledger.Path = "data/trades.csv"
	}
	if c.Report.Enabled == nil {
		on := true
		c.Report.Enabled = &on
	}
	if c.Report.PriceSource == "" {
		c.Report.PriceSource = "bybit"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/dcapilot.db"
	}
	if c.StateFile == "" {
		c.StateFile = "data/run_state.json"
	}
	if c.Schedule.DailyCron == "" {
		c.Schedule.DailyCron = "0 0 10 * * *"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks that all required fields are set and consistent. The allocation
// string is only checked for presence; its syntax is validated when a run parses it.
func (c *Config) Validate() error {
	if c.Exchange.APIKey == "" || c.Exchange.APISecret == "" {
		return fmt.Errorf("exchange.api_key and exchange.api_secret are required")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	if !c.DCA.DailySpend.IsPositive() {
		return fmt.Errorf("dca.daily_spend must be positive")
	}
	if strings.TrimSpace(c.DCA.Allocation) == "" {
		return fmt.Errorf("dca.allocation is required")
	}
	seen := make(map[string]bool)
	for _, s := range c.DCA.Stablecoins {
		if s == "" {
			return fmt.Errorf("dca.stablecoins contains an empty entry")
		}
		if seen[s] {
			return fmt.Errorf("dca.stablecoins lists %s twice", s)
		}
		seen[s] = true
	}
	if c.Funding.Buffer.LessThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("funding.buffer must be at least 1")
	}
	if c.Funding.MinRedemption.IsNegative() || c.Funding.DustThreshold.IsNegative() {
		return fmt.Errorf("funding.min_redemption and funding.dust_threshold must not be negative")
	}
	if p := *c.Funding.AmountPrecision; p < 0 || p > 18 {
		return fmt.Errorf("funding.amount_precision must be between 0 and 18")
	}
	switch c.Funding.SettleStrategy {
	case SettleFixed, SettlePoll:
	default:
		return fmt.Errorf("funding.settle_strategy must be %q or %q", SettleFixed, SettlePoll)
	}
	for i, r := range c.PostPurchase {
		if r.Asset == "" {
			return fmt.Errorf("post_purchase[%d].asset is required", i)
		}
		switch r.Action {
		case "stake":
			if r.Category == "" {
				return fmt.Errorf("post_purchase[%d].category is required for stake", i)
			}
		case "manual":
		default:
			return fmt.Errorf("post_purchase[%d].action must be stake or manual", i)
		}
	}
	switch c.Report.PriceSource {
	case "bybit", "binance":
	default:
		return fmt.Errorf("report.price_source must be bybit or binance")
	}
	return nil
}

// Stablecoins returns the settlement currency preference.
func (c *Config) Stablecoins() model.StablecoinPreference {
	return model.StablecoinPreference(c.DCA.Stablecoins)
}

// ReportEnabled reports whether the P&L report runs after a completed run.
func (c *Config) ReportEnabled() bool {
	return c.Report.Enabled == nil || *c.Report.Enabled
}

// TelegramEnabled reports whether Telegram credentials are configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
