package flow

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// ErrRateLimited signals that the upstream provider rejected a call for
// quota reasons. The caller must suppress further flow fetches for the
// remainder of the run.
var ErrRateLimited = errors.New("flow provider rate limited")

// IsRateLimited reports whether err carries the provider quota signal.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// Fetcher retrieves the raw flow payload for one instrument and date.
type Fetcher interface {
	FlowSummary(ctx context.Context, symbol string, date time.Time) (Payload, error)
}

// Locator walks backward over trading days until it finds a valid
// snapshot or exhausts its lookback budget. Publication lag and holidays
// mean the most recent date is not guaranteed to have data.
type Locator struct {
	fetcher     Fetcher
	maxLookback int
	log         zerolog.Logger
}

// NewLocator builds a locator with a defaulted lookback budget of 7 days.
func NewLocator(fetcher Fetcher, maxLookbackDays int, log zerolog.Logger) *Locator {
	if maxLookbackDays <= 0 {
		maxLookbackDays = 7
	}
	return &Locator{fetcher: fetcher, maxLookback: maxLookbackDays, log: log}
}

// CandidateDate returns the attempt-th prior trading day at or before
// start. Weekends never consume an attempt.
func CandidateDate(start time.Time, attempt int) time.Time {
	d := start
	for isWeekend(d) {
		d = d.AddDate(0, 0, -1)
	}
	for i := 0; i < attempt; i++ {
		d = d.AddDate(0, 0, -1)
		for isWeekend(d) {
			d = d.AddDate(0, 0, -1)
		}
	}
	return d
}

// Locate fetches backward from start until a valid snapshot appears.
// It returns (nil, zero, nil) when the budget is exhausted, and
// ErrRateLimited immediately when the provider signals quota exhaustion.
// Any other fetch or parse failure counts as absent data for that date.
func (l *Locator) Locate(ctx context.Context, symbol string, start time.Time) (*Snapshot, time.Time, error) {
	for attempt := 0; attempt < l.maxLookback; attempt++ {
		date := CandidateDate(start, attempt)

		payload, err := l.fetcher.FlowSummary(ctx, symbol, date)
		if err != nil {
			if errors.Is(err, ErrRateLimited) || ctx.Err() != nil {
				return nil, time.Time{}, err
			}
			l.log.Debug().Err(err).Str("symbol", symbol).Str("date", date.Format("2006-01-02")).Msg("flow fetch failed, walking back")
			continue
		}

		snap := Normalize(payload)
		if !snap.Valid() {
			continue
		}
		snap.Symbol = symbol
		snap.Date = date
		return &snap, date, nil
	}
	return nil, time.Time{}, nil
}

func isWeekend(d time.Time) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
