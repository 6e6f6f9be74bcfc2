// Package scan orchestrates one full scanner run: universe resolution,
// per-instrument flow and technical signals, ranking, and delivery.
package scan

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/nicholaslie90/stock-scanner/internal/flow"
	"github.com/nicholaslie90/stock-scanner/internal/metrics"
	"github.com/nicholaslie90/stock-scanner/internal/rank"
	"github.com/nicholaslie90/stock-scanner/internal/report"
	"github.com/nicholaslie90/stock-scanner/internal/technical"
)

// UniverseSource yields the ordered ticker list for the run.
type UniverseSource interface {
	Resolve(ctx context.Context) ([]string, error)
}

// FlowProvider combines snapshot fetching with the broker directory.
type FlowProvider interface {
	flow.Fetcher
	Brokers(ctx context.Context) (map[string]string, error)
}

// PriceProvider fetches trailing OHLCV history for one instrument.
type PriceProvider interface {
	History(ctx context.Context, symbol string, days int) ([]technical.Candle, error)
}

// Notifier delivers the rendered chunks.
type Notifier interface {
	Enabled() bool
	Send(ctx context.Context, chunks []string) error
}

// Runner executes the pipeline sequentially over the universe. The
// provider quota is small, so there is nothing to gain from parallelism
// and pacing would be at risk.
type Runner struct {
	universe  UniverseSource
	flows     FlowProvider
	prices    PriceProvider
	locator   *flow.Locator
	scorer    *flow.Scorer
	engine    *technical.Engine
	ranker    *rank.Ranker
	assembler *report.Assembler
	notifier  Notifier
	log       zerolog.Logger

	mode        technical.Mode
	historyDays int
}

// Params carries the collaborators and run settings for a Runner.
type Params struct {
	Universe    UniverseSource
	Flows       FlowProvider
	Prices      PriceProvider
	Locator     *flow.Locator
	Scorer      *flow.Scorer
	Engine      *technical.Engine
	Ranker      *rank.Ranker
	Assembler   *report.Assembler
	Notifier    Notifier
	Log         zerolog.Logger
	Mode        technical.Mode
	HistoryDays int
}

// NewRunner wires a runner from its collaborators.
func NewRunner(p Params) *Runner {
	mode := p.Mode
	if mode == "" {
		mode = technical.ModePositional
	}
	historyDays := p.HistoryDays
	if historyDays <= 0 {
		historyDays = 90
	}
	return &Runner{
		universe:    p.Universe,
		flows:       p.Flows,
		prices:      p.Prices,
		locator:     p.Locator,
		scorer:      p.Scorer,
		engine:      p.Engine,
		ranker:      p.Ranker,
		assembler:   p.Assembler,
		notifier:    p.Notifier,
		log:         p.Log,
		mode:        mode,
		historyDays: historyDays,
	}
}

// Run executes one scan as of startDate and delivers the report. Flow
// fetching stops for the rest of the run once the provider signals a
// rate limit; instruments already processed stay in the report and the
// remainder surface with technical context only.
func (r *Runner) Run(ctx context.Context, startDate time.Time) error {
	tickers, err := r.universe.Resolve(ctx)
	if err != nil {
		return err
	}
	r.log.Info().Int("instruments", len(tickers)).Str("date", startDate.Format("2006-01-02")).Msg("scan started")

	if names, err := r.flows.Brokers(ctx); err != nil {
		r.log.Warn().Err(err).Msg("broker directory unavailable, rendering bare codes")
	} else {
		r.assembler.SetBrokerNames(names)
	}

	var (
		signals     []flow.Signal
		contexts    []*technical.Context
		rateLimited bool
	)
	for _, symbol := range tickers {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if !rateLimited {
			snap, date, err := r.locator.Locate(ctx, symbol, startDate)
			switch {
			case flow.IsRateLimited(err):
				// One-shot for the whole run: no more flow calls.
				rateLimited = true
				r.log.Warn().Str("symbol", symbol).Msg("flow quota exhausted, technical-only from here")
			case err != nil:
				return err
			case snap != nil:
				metrics.SnapshotsLocated.WithLabelValues(symbol).Inc()
				sig := r.scorer.Score(*snap)
				signals = append(signals, sig)
				r.log.Debug().Str("symbol", symbol).Str("date", date.Format("2006-01-02")).Int("score", sig.Score).Msg("flow signal")
			default:
				r.log.Debug().Str("symbol", symbol).Msg("no valid snapshot within lookback budget")
			}
		}

		candles, err := r.prices.History(ctx, symbol, r.historyDays)
		if err != nil {
			r.log.Debug().Err(err).Str("symbol", symbol).Msg("price history unavailable")
			continue
		}
		tc, err := r.engine.Compute(symbol, candles, r.mode)
		if err != nil {
			r.log.Debug().Err(err).Str("symbol", symbol).Msg("technical context skipped")
			continue
		}
		contexts = append(contexts, tc)
	}

	results := r.ranker.Rank(signals, contexts)
	metrics.InstrumentsReported.Add(float64(len(results)))

	chunks := r.assembler.Render(startDate, results)
	if r.notifier != nil && r.notifier.Enabled() {
		if err := r.notifier.Send(ctx, chunks); err != nil {
			return err
		}
	} else {
		for _, chunk := range chunks {
			r.log.Info().Msg(chunk)
		}
	}

	r.log.Info().Int("results", len(results)).Int("chunks", len(chunks)).Bool("rate_limited", rateLimited).Msg("scan finished")
	return nil
}
