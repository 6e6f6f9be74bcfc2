// Package technical derives price/volume context for an instrument from
// its trailing OHLCV series, independent of any broker-flow data.
package technical

import (
	"errors"
	"time"
)

// ErrInsufficientData rejects series too short or too degenerate to
// produce meaningful ratios.
var ErrInsufficientData = errors.New("insufficient price history")

// Mode selects the window length and which derived fields matter.
type Mode string

const (
	ModeIntraday   Mode = "intraday"
	ModePositional Mode = "positional"
)

// Candle is one OHLCV bar, daily granularity.
type Candle struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Context is the derived technical picture for one instrument.
type Context struct {
	Symbol         string
	Close          float64
	ChangePct      float64
	RelativeVolume float64
	RangePosition  float64 // position of close within the period range, clamped to [0,1]
	ReferencePrice float64 // volume-weighted typical price over the window
	Support        float64
	Resistance     float64
	PeriodLow      float64
	PeriodHigh     float64
	ValueTraded    float64 // close * volume of the final bar, liquidity estimate
	TrendUp        bool
}

// Engine computes technical context with configurable window lengths.
type Engine struct {
	intradayWindow   int
	positionalWindow int
	trendWindow      int
}

// NewEngine builds an engine with defaulted windows: 20 bars intraday,
// 60 bars positional, 20-bar trend average.
func NewEngine(intradayWindow, positionalWindow, trendWindow int) *Engine {
	if intradayWindow <= 0 {
		intradayWindow = 20
	}
	if positionalWindow <= 0 {
		positionalWindow = 60
	}
	if trendWindow <= 0 {
		trendWindow = 20
	}
	return &Engine{
		intradayWindow:   intradayWindow,
		positionalWindow: positionalWindow,
		trendWindow:      trendWindow,
	}
}

// Compute derives the context from candles (oldest first) for the given
// mode. Series shorter than the window, or with a zero open, zero volume
// or zero range final bar, are rejected with ErrInsufficientData.
func (e *Engine) Compute(symbol string, candles []Candle, mode Mode) (*Context, error) {
	window := e.positionalWindow
	if mode == ModeIntraday {
		window = e.intradayWindow
	}
	if len(candles) < window || window < 2 {
		return nil, ErrInsufficientData
	}
	candles = candles[len(candles)-window:]

	last := candles[len(candles)-1]
	if last.Open == 0 || last.Volume == 0 || last.High == last.Low {
		return nil, ErrInsufficientData
	}

	var volSum, vwapNum float64
	periodHigh, periodLow := candles[0].High, candles[0].Low
	for _, c := range candles {
		typical := (c.High + c.Low + c.Close) / 3
		vwapNum += typical * c.Volume
		volSum += c.Volume
		if c.High > periodHigh {
			periodHigh = c.High
		}
		if c.Low < periodLow {
			periodLow = c.Low
		}
	}
	if volSum == 0 {
		return nil, ErrInsufficientData
	}

	pivot := (last.High + last.Low + last.Close) / 3
	prev := candles[len(candles)-2]

	ctx := &Context{
		Symbol:         symbol,
		Close:          last.Close,
		ChangePct:      changePct(prev.Close, last.Close),
		RelativeVolume: relativeVolume(candles),
		RangePosition:  RangePosition(last.Close, periodLow, periodHigh),
		ReferencePrice: vwapNum / volSum,
		Support:        2*pivot - last.High,
		Resistance:     2*pivot - last.Low,
		PeriodLow:      periodLow,
		PeriodHigh:     periodHigh,
		ValueTraded:    last.Close * last.Volume,
	}

	trendWindow := e.trendWindow
	if trendWindow > len(candles) {
		trendWindow = len(candles)
	}
	var closeSum float64
	for _, c := range candles[len(candles)-trendWindow:] {
		closeSum += c.Close
	}
	ctx.TrendUp = last.Close > closeSum/float64(trendWindow)

	return ctx, nil
}

// RangePosition locates close within [low, high], clamped to [0,1].
// A zero range reports the midpoint rather than dividing by zero.
func RangePosition(close, low, high float64) float64 {
	if high == low {
		return 0.5
	}
	pos := (close - low) / (high - low)
	if pos < 0 {
		return 0
	}
	if pos > 1 {
		return 1
	}
	return pos
}

// relativeVolume compares the final bar's volume to the trailing mean,
// excluding the final bar. A zero trailing mean reports 0.
func relativeVolume(candles []Candle) float64 {
	trailing := candles[:len(candles)-1]
	var sum float64
	for _, c := range trailing {
		sum += c.Volume
	}
	mean := sum / float64(len(trailing))
	if mean == 0 {
		return 0
	}
	return candles[len(candles)-1].Volume / mean
}

func changePct(prevClose, close float64) float64 {
	if prevClose == 0 {
		return 0
	}
	return (close - prevClose) / prevClose * 100
}
