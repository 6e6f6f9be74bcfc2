package scan

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/nicholaslie90/stock-scanner/internal/flow"
	"github.com/nicholaslie90/stock-scanner/internal/rank"
	"github.com/nicholaslie90/stock-scanner/internal/report"
	"github.com/nicholaslie90/stock-scanner/internal/technical"
)

type stubUniverse struct{ tickers []string }

func (s stubUniverse) Resolve(context.Context) ([]string, error) { return s.tickers, nil }

type stubFlows struct {
	payloads map[string]flow.Payload
	calls    map[string]int
	rate429  bool
}

func (s *stubFlows) FlowSummary(_ context.Context, symbol string, _ time.Time) (flow.Payload, error) {
	if s.calls == nil {
		s.calls = map[string]int{}
	}
	s.calls[symbol]++
	if s.rate429 {
		return flow.Payload{}, flow.ErrRateLimited
	}
	if p, ok := s.payloads[symbol]; ok {
		return p, nil
	}
	return flow.Payload{}, errors.New("not found")
}

func (s *stubFlows) Brokers(context.Context) (map[string]string, error) {
	return map[string]string{"AK": "UBS SEKURITAS INDONESIA", "YP": "PT MIRAE ASSET SEKURITAS INDONESIA"}, nil
}

type stubPrices struct{ candles map[string][]technical.Candle }

func (s stubPrices) History(_ context.Context, symbol string, _ int) ([]technical.Candle, error) {
	if c, ok := s.candles[symbol]; ok {
		return c, nil
	}
	return nil, errors.New("no history")
}

type captureNotifier struct {
	chunks  []string
	enabled bool
}

func (n *captureNotifier) Enabled() bool { return n.enabled }
func (n *captureNotifier) Send(_ context.Context, chunks []string) error {
	n.chunks = append(n.chunks, chunks...)
	return nil
}

func candlesRising(n int) []technical.Candle {
	out := make([]technical.Candle, n)
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := range out {
		price := 100 + float64(i)
		out[i] = technical.Candle{
			Date: base.AddDate(0, 0, i), Open: price, High: price + 3, Low: price - 2,
			Close: price + 1, Volume: 1000 + float64(i)*10,
		}
	}
	return out
}

func testRunner(flows *stubFlows, prices stubPrices, universe []string, notifier *captureNotifier) *Runner {
	classifier := flow.NewClassifier([]string{"AK"}, []string{"YP"})
	return NewRunner(Params{
		Universe:    stubUniverse{tickers: universe},
		Flows:       flows,
		Prices:      prices,
		Locator:     flow.NewLocator(flows, 3, zerolog.Nop()),
		Scorer:      flow.NewScorer(classifier, 3, 1e9, 5e9),
		Engine:      technical.NewEngine(5, 10, 5),
		Ranker:      rank.NewRanker(0),
		Assembler:   report.NewAssembler(4000, 10),
		Notifier:    notifier,
		Log:         zerolog.Nop(),
		Mode:        technical.ModeIntraday,
		HistoryDays: 30,
	})
}

func TestRunWhaleScenario(t *testing.T) {
	flows := &stubFlows{payloads: map[string]flow.Payload{
		"XYZ": {Summary: &flow.Summary{
			Buyers: []flow.SideEntry{
				{Participant: "AK", Value: 1.2e9, AvgPrice: 1000},
				{Participant: "BK", Value: 0.3e9, AvgPrice: 990},
			},
			Sellers: []flow.SideEntry{
				{Participant: "YP", Value: 0.9e9, AvgPrice: 1010},
			},
		}},
	}}
	prices := stubPrices{candles: map[string][]technical.Candle{"XYZ": candlesRising(10)}}
	notifier := &captureNotifier{enabled: true}

	runner := testRunner(flows, prices, []string{"XYZ"}, notifier)
	start := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
	if err := runner.Run(context.Background(), start); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(notifier.chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(notifier.chunks))
	}
	out := notifier.chunks[0]
	if !strings.Contains(out, "XYZ") {
		t.Fatalf("report missing instrument: %s", out)
	}
	if !strings.Contains(out, "+600M") {
		t.Fatalf("expected net money +600M in report: %s", out)
	}
	if !strings.Contains(out, "Whale Inflow") {
		t.Fatalf("expected retail absorption status: %s", out)
	}
	if !strings.Contains(out, "AK (UBS)") {
		t.Fatalf("expected broker directory display name: %s", out)
	}
}

func TestRunEmptyUniverseSendsNoSignalMessage(t *testing.T) {
	notifier := &captureNotifier{enabled: true}
	runner := testRunner(&stubFlows{}, stubPrices{}, nil, notifier)

	if err := runner.Run(context.Background(), time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notifier.chunks) != 1 || notifier.chunks[0] != report.NoSignalMessage {
		t.Fatalf("expected the single no-signal message, got %+v", notifier.chunks)
	}
}

func TestRunRateLimitSuppressesLaterInstruments(t *testing.T) {
	flows := &stubFlows{rate429: true}
	prices := stubPrices{candles: map[string][]technical.Candle{
		"AAAA": candlesRising(10),
		"BBBB": candlesRising(10),
	}}
	notifier := &captureNotifier{enabled: true}

	runner := testRunner(flows, prices, []string{"AAAA", "BBBB"}, notifier)
	if err := runner.Run(context.Background(), time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("rate limit must not abort the run: %v", err)
	}

	if flows.calls["AAAA"] != 1 {
		t.Fatalf("expected a single 429 call for AAAA, got %d", flows.calls["AAAA"])
	}
	if flows.calls["BBBB"] != 0 {
		t.Fatalf("flow calls for later instruments must be suppressed, got %d", flows.calls["BBBB"])
	}
	// Both instruments still surface with technical-only context.
	out := strings.Join(notifier.chunks, "")
	if !strings.Contains(out, "AAAA") || !strings.Contains(out, "BBBB") {
		t.Fatalf("technical-only instruments missing from report: %s", out)
	}
}

func TestRunLogsReportWhenNotifierDisabled(t *testing.T) {
	notifier := &captureNotifier{enabled: false}
	runner := testRunner(&stubFlows{}, stubPrices{}, nil, notifier)

	if err := runner.Run(context.Background(), time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notifier.chunks) != 0 {
		t.Fatalf("disabled notifier must not receive chunks")
	}
}
