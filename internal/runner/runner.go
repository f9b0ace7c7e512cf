// Package runner executes one DCA run end to end: parse the basket, secure
// funding, buy, report.
package runner

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"DCAPilot/internal/allocation"
	"DCAPilot/internal/exchange"
	"DCAPilot/internal/fund"
	"DCAPilot/internal/ledger"
	"DCAPilot/internal/model"
	"DCAPilot/internal/notifier"
	"DCAPilot/internal/purchase"
	"DCAPilot/internal/recorder"
)

// ExitCode is the process exit status of a run.
type ExitCode int

const (
	ExitCompleted   ExitCode = 0 // purchases attempted, possibly partially
	ExitAborted     ExitCode = 1 // insufficient funds, nothing bought
	ExitConfigError ExitCode = 2
)

// Options are the per-run inputs.
type Options struct {
	Allocation  string
	DailySpend  decimal.Decimal
	Stablecoins model.StablecoinPreference
	Report      bool
	StateFile   string
}

// Deps are the components a run drives.
type Deps struct {
	Resolver *fund.Resolver
	Executor *purchase.Executor
	Ledger   ledger.Ledger
	Prices   exchange.PriceSource
	Recorder recorder.Recorder
	Notifier notifier.Notifier
}

// Runner serializes runs within the process.
type Runner struct {
	opts Options
	deps Deps
	log  zerolog.Logger
	mu   sync.Mutex
	now  func() time.Time
}

// New creates a runner. A nil Recorder is replaced by a no-op one.
func New(opts Options, deps Deps, log zerolog.Logger) *Runner {
	if deps.Recorder == nil {
		deps.Recorder = recorder.NewNoopRecorder()
	}
	return &Runner{
		opts: opts,
		deps: deps,
		log:  log.With().Str("component", "runner").Logger(),
		now:  time.Now,
	}
}

// Run performs one DCA run and returns its exit code. A run started while another
// is in progress returns ExitAborted without touching the exchange.
func (r *Runner) Run(ctx context.Context, trigger model.TriggerType) ExitCode {
	if !r.mu.TryLock() {
		r.log.Warn().Str("trigger", string(trigger)).Msg("run already in progress")
		r.deps.Notifier.Notify("⏳ A DCA run is already in progress.")
		return ExitAborted
	}
	defer r.mu.Unlock()

	run := &runInfo{id: uuid.NewString(), trigger: trigger, started: r.now()}
	log := r.log.With().Str("run_id", run.id).Str("trigger", string(trigger)).Logger()

	plan, err := allocation.Parse(r.opts.Allocation)
	if err != nil {
		log.Error().Err(err).Str("allocation", r.opts.Allocation).Msg("invalid allocation")
		r.deps.Notifier.Notify(notifier.Failure("Invalid allocation", err))
		run.note = err.Error()
		return r.finish(run, model.OutcomeConfigError, ExitConfigError)
	}
	if w := allocation.Warning(plan); w != "" {
		log.Warn().Str("sum", plan.Sum().String()).Msg(w)
		r.deps.Notifier.Notify("⚠️ " + notifier.Escape(w))
	}

	primary := r.opts.Stablecoins.Primary()
	budget := plan.Budget(r.opts.DailySpend)
	log.Info().Strs("assets", plan.Assets()).Str("budget", budget.String()).Str("primary", primary).Msg("run started")
	run.primary = primary
	r.deps.Notifier.Notify(notifier.FormatStart(plan, r.opts.DailySpend, budget, primary))

	res := r.deps.Resolver.Resolve(ctx, budget, r.opts.Stablecoins)
	run.res = &res
	for _, step := range res.Steps {
		if err := r.deps.Recorder.RecordFunding(run.id, step); err != nil {
			log.Warn().Err(err).Msg("record funding step failed")
		}
	}

	if res.Cancelled {
		log.Warn().Int("steps", len(res.Steps)).Msg("shutdown during funding, no purchases made")
		r.deps.Notifier.Notify(fmt.Sprintf("⏹ DCA run interrupted by shutdown after %d funding step(s). Nothing was bought; redeemed funds stay in the wallet.", len(res.Steps)))
		run.note = "interrupted during funding"
		return r.finish(run, model.OutcomeCancelled, ExitAborted)
	}
	if !res.Sufficient {
		log.Warn().Str("final", res.Final.String()).Str("required", res.Required.String()).Msg("insufficient funds, aborting before purchases")
		r.deps.Notifier.Notify(notifier.FormatInsufficient(&res))
		return r.finish(run, model.OutcomeAborted, ExitAborted)
	}

	sum := r.deps.Executor.Execute(ctx, plan, r.opts.DailySpend, primary, res.Final)
	run.sum = &sum
	r.deps.Notifier.Notify(notifier.FormatSummary(&sum, primary))

	if r.opts.Report {
		r.deps.Notifier.Notify(r.Report(ctx))
	}
	return r.finish(run, model.OutcomeCompleted, ExitCompleted)
}

type runInfo struct {
	id      string
	trigger model.TriggerType
	started time.Time
	primary string
	res     *model.Resolution
	sum     *model.PurchaseSummary
	note    string
}

func (r *Runner) finish(run *runInfo, outcome model.RunOutcome, code ExitCode) ExitCode {
	evt := &recorder.RunEvent{
		RunID:      run.id,
		StartedAt:  run.started,
		FinishedAt: r.now(),
		Trigger:    run.trigger,
		Outcome:    outcome,
		ExitCode:   int(code),
		Primary:    run.primary,
		Spent:      "0",
		Note:       run.note,
	}
	if run.res != nil {
		evt.Required = run.res.Required.String()
		evt.Initial = run.res.Initial.String()
		evt.Final = run.res.Final.String()
	}
	if run.sum != nil {
		evt.Trades = len(run.sum.Trades)
		evt.Spent = run.sum.Spent.String()
	}
	if err := r.deps.Recorder.RecordRun(evt); err != nil {
		r.log.Warn().Err(err).Str("run_id", run.id).Msg("record run failed")
	}

	if r.opts.StateFile != "" {
		state, err := LoadState(r.opts.StateFile)
		if err != nil {
			r.log.Warn().Err(err).Msg("load run state failed, starting fresh")
			state = &model.RunState{}
		}
		applyRun(state, run.started, run.trigger, outcome, code, evt.Trades, evt.Spent)
		if err := SaveState(r.opts.StateFile, state); err != nil {
			r.log.Error().Err(err).Msg("save run state failed")
		}
	}

	r.log.Info().Str("run_id", run.id).Str("outcome", string(outcome)).Int("exit_code", int(code)).
		Dur("took", evt.FinishedAt.Sub(run.started)).Msg("run finished")
	return code
}

// Report builds the profit-and-loss message for every symbol in the ledger.
func (r *Runner) Report(ctx context.Context) string {
	records, err := r.deps.Ledger.ReadAll()
	if err != nil {
		r.log.Error().Err(err).Msg("read ledger failed")
		return notifier.Failure("Reading trade ledger failed", err)
	}
	if r.deps.Prices == nil {
		return notifier.FormatPnL(nil, r.opts.Stablecoins.Primary())
	}

	if len(records) == 0 {
		return notifier.FormatPnL(nil, r.opts.Stablecoins.Primary())
	}

	rows, failed := ledger.Valuate(ctx, ledger.Summarize(records), r.deps.Prices)
	msg := "📊 <b>Total PnL</b>"
	if len(rows) > 0 {
		msg = notifier.FormatPnL(rows, r.opts.Stablecoins.Primary())
	}
	symbols := make([]string, 0, len(failed))
	for symbol := range failed {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	for _, symbol := range symbols {
		err := failed[symbol]
		r.log.Warn().Err(err).Str("symbol", symbol).Str("source", r.deps.Prices.Name()).Msg("price lookup failed")
		msg += "\n" + notifier.Failure(fmt.Sprintf("No %s price for %s", r.deps.Prices.Name(), symbol), err)
	}
	return msg
}

// Status describes the last recorded run.
func (r *Runner) Status() string {
	if r.opts.StateFile == "" {
		return notifier.FormatRunState(&model.RunState{})
	}
	state, err := LoadState(r.opts.StateFile)
	if err != nil {
		return notifier.Failure("Reading run state failed", err)
	}
	return notifier.FormatRunState(state)
}
