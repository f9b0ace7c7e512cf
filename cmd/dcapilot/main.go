package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"DCAPilot/internal/config"
	"DCAPilot/internal/exchange"
	"DCAPilot/internal/fund"
	"DCAPilot/internal/ledger"
	"DCAPilot/internal/logger"
	"DCAPilot/internal/model"
	"DCAPilot/internal/notifier"
	"DCAPilot/internal/purchase"
	"DCAPilot/internal/recorder"
	"DCAPilot/internal/runner"
	"DCAPilot/internal/scheduler"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfgPath := flag.String("config", "configs/config.yaml", "path to the YAML config file")
	daemon := flag.Bool("daemon", false, "stay running and buy on the daily cron schedule")
	flag.Parse()
	if v := os.Getenv("CONFIG_PATH"); v != "" && !isFlagSet("config") {
		*cfgPath = v
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return int(runner.ExitConfigError)
	}
	log := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		return int(runner.ExitConfigError)
	}
	log.Info().Str("config", *cfgPath).Bool("daemon", *daemon).Msg("DCAPilot starting")

	// Notifier
	var sender notifier.Sender = notifier.LogSender{Log: log}
	var tn *notifier.Telegram
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		sender = tn
	} else {
		log.Warn().Msg("telegram not configured, notifications go to the log")
	}
	notify := notifier.NewBestEffort(sender, log)

	// Recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, log)
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	bybit := exchange.NewBybit(cfg.Exchange.APIKey, cfg.Exchange.APISecret,
		cfg.Exchange.BaseURL, cfg.Exchange.RecvWindow, cfg.Proxy)

	var prices exchange.PriceSource
	if cfg.ReportEnabled() {
		prices = bybit
		if cfg.Report.PriceSource == "binance" {
			bp, err := exchange.NewBinancePrices(cfg.Report.BinanceBaseURL, cfg.Proxy)
			if err != nil {
				log.Error().Err(err).Msg("init binance price source failed")
				return int(runner.ExitConfigError)
			}
			prices = bp
		}
		log.Info().Str("source", prices.Name()).Msg("P&L price source")
	}

	r := buildRunner(cfg, bybit, prices, rec, notify, log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if !*daemon {
		return int(r.Run(ctx, model.TriggerOnce))
	}

	sched := scheduler.NewScheduler(ctx, r, notify, log)
	if err := sched.RegisterDaily(cfg.Schedule.DailyCron); err != nil {
		log.Error().Err(err).Msg("register cron task failed")
		return int(runner.ExitConfigError)
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand, log)
		log.Info().Msg("telegram polling started")
	}

	if os.Getenv("RUN_ON_START") == "true" {
		log.Info().Msg("RUN_ON_START enabled, running now")
		sched.Trigger(model.TriggerStartup)
	}

	log.Info().Msg("DCAPilot is running. Press Ctrl+C to stop.")
	<-ctx.Done()
	log.Info().Msg("shutdown signal received, stopping")
	return int(runner.ExitCompleted)
}

func buildRunner(cfg *config.Config, ex *exchange.Bybit, prices exchange.PriceSource, rec recorder.Recorder, n notifier.Notifier, log zerolog.Logger) *runner.Runner {
	balances := fund.NewBalances(ex, n, log, cfg.Exchange.AccountType, cfg.Funding.SavingsCategory)
	savings := fund.NewSavings(ex, n, log, cfg.Exchange.AccountType, *cfg.Funding.AmountPrecision, cfg.Funding.CoinPrecision)
	converter := fund.NewConverter(ex, n, log, cfg.Exchange.ConvertAccountType, cfg.Funding.DustThreshold)

	var settler fund.Settler = fund.FixedSettler{Log: log}
	if cfg.Funding.SettleStrategy == config.SettlePoll {
		settler = fund.PollSettler{Balances: balances, Interval: cfg.Funding.PollInterval, Log: log}
	}

	resolver := fund.NewResolver(fund.ResolverConfig{
		Buffer:          cfg.Funding.Buffer,
		MinRedemption:   cfg.Funding.MinRedemption,
		Category:        cfg.Funding.SavingsCategory,
		PrimarySettle:   cfg.Funding.PrimarySettle,
		SecondarySettle: cfg.Funding.SecondarySettle,
	}, balances, savings, converter, settler, n, log)

	rules := make([]purchase.Rule, len(cfg.PostPurchase))
	for i, r := range cfg.PostPurchase {
		rules[i] = purchase.Rule{Asset: r.Asset, Action: r.Action, Category: r.Category, MinBalance: r.MinBalance, Note: r.Note}
	}
	trades := ledger.NewCSVLedger(cfg.Ledger.Path)
	executor := purchase.NewExecutor(purchase.Config{
		Rules:           rules,
		RestakeSurplus:  cfg.Funding.RestakeSurplus,
		RestakeMin:      cfg.Funding.RestakeMin,
		SavingsCategory: cfg.Funding.SavingsCategory,
	}, balances, savings, converter, trades, n, log)

	return runner.New(runner.Options{
		Allocation:  cfg.DCA.Allocation,
		DailySpend:  cfg.DCA.DailySpend,
		Stablecoins: cfg.Stablecoins(),
		Report:      cfg.ReportEnabled(),
		StateFile:   cfg.StateFile,
	}, runner.Deps{
		Resolver: resolver,
		Executor: executor,
		Ledger:   trades,
		Prices:   prices,
		Recorder: rec,
		Notifier: n,
	}, log)
}

func isFlagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
