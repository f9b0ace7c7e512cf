package fund

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Settlement describes what a settler waits for after a redemption: coin's wallet
// balance rising above Baseline, for at most Wait.
type Settlement struct {
	Coin     string
	Baseline decimal.Decimal
	Wait     time.Duration
}

// Settler blocks until a redemption can be assumed cleared. After Await returns,
// the next balance read is expected to reflect the redemption.
type Settler interface {
	Await(ctx context.Context, s Settlement)
}

// FixedSettler sleeps for the full Wait.
type FixedSettler struct {
	Log   zerolog.Logger
	Sleep func(ctx context.Context, d time.Duration)
}

func (f FixedSettler) Await(ctx context.Context, s Settlement) {
	f.Log.Info().Str("coin", s.Coin).Dur("wait", s.Wait).Msg("waiting for redemption to settle")
	sleep := f.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	sleep(ctx, s.Wait)
}

// PollSettler re-reads the balance every Interval until it exceeds the baseline
// or Wait has elapsed.
type PollSettler struct {
	Balances *Balances
	Interval time.Duration
	Log      zerolog.Logger
	Sleep    func(ctx context.Context, d time.Duration)
}

func (p PollSettler) Await(ctx context.Context, s Settlement) {
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	interval := p.Interval
	if interval <= 0 || interval > s.Wait {
		interval = s.Wait
	}
	for waited := time.Duration(0); waited < s.Wait; waited += interval {
		sleep(ctx, interval)
		if ctx.Err() != nil {
			return
		}
		if bal := p.Balances.Available(ctx, s.Coin); bal.GreaterThan(s.Baseline) {
			p.Log.Info().Str("coin", s.Coin).Str("balance", bal.String()).Dur("after", waited+interval).Msg("redemption settled")
			return
		}
	}
	p.Log.Warn().Str("coin", s.Coin).Dur("wait", s.Wait).Msg("redemption not visible after settle window")
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
