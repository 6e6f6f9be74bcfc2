package technical

import (
	"errors"
	"math"
	"testing"
	"time"
)

func series(n int, build func(i int) Candle) []Candle {
	candles := make([]Candle, n)
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		candles[i] = build(i)
		candles[i].Date = base.AddDate(0, 0, i)
	}
	return candles
}

func flatCandle(price, volume float64) Candle {
	return Candle{Open: price, High: price + 2, Low: price - 2, Close: price, Volume: volume}
}

func TestComputeRejectsShortSeries(t *testing.T) {
	eng := NewEngine(5, 10, 3)
	candles := series(3, func(int) Candle { return flatCandle(100, 1000) })

	if _, err := eng.Compute("BBRI", candles, ModeIntraday); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestComputeRejectsDegenerateFinalBar(t *testing.T) {
	eng := NewEngine(5, 10, 3)

	zeroVolume := series(5, func(int) Candle { return flatCandle(100, 1000) })
	zeroVolume[4].Volume = 0
	if _, err := eng.Compute("BBRI", zeroVolume, ModeIntraday); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("zero volume final bar must be rejected, got %v", err)
	}

	zeroRange := series(5, func(int) Candle { return flatCandle(100, 1000) })
	zeroRange[4].High = 100
	zeroRange[4].Low = 100
	if _, err := eng.Compute("BBRI", zeroRange, ModeIntraday); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("zero range final bar must be rejected, got %v", err)
	}

	zeroOpen := series(5, func(int) Candle { return flatCandle(100, 1000) })
	zeroOpen[4].Open = 0
	if _, err := eng.Compute("BBRI", zeroOpen, ModeIntraday); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("zero open final bar must be rejected, got %v", err)
	}
}

func TestComputePivotLevels(t *testing.T) {
	eng := NewEngine(5, 10, 3)
	candles := series(5, func(int) Candle { return flatCandle(100, 1000) })
	candles[4] = Candle{Open: 100, High: 110, Low: 95, Close: 105, Volume: 2000}

	ctx, err := eng.Compute("BBRI", candles, ModeIntraday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pivot := (110.0 + 95.0 + 105.0) / 3
	if math.Abs(ctx.Support-(2*pivot-110)) > 1e-9 {
		t.Fatalf("unexpected S1: %.4f", ctx.Support)
	}
	if math.Abs(ctx.Resistance-(2*pivot-95)) > 1e-9 {
		t.Fatalf("unexpected R1: %.4f", ctx.Resistance)
	}
}

func TestComputeRelativeVolume(t *testing.T) {
	eng := NewEngine(5, 10, 3)
	candles := series(5, func(int) Candle { return flatCandle(100, 1000) })
	candles[4].Volume = 3000

	ctx, err := eng.Compute("BBRI", candles, ModeIntraday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(ctx.RelativeVolume-3.0) > 1e-9 {
		t.Fatalf("expected rvol 3.0, got %.4f", ctx.RelativeVolume)
	}
}

func TestComputeReferencePrice(t *testing.T) {
	eng := NewEngine(2, 10, 2)
	candles := []Candle{
		{Open: 10, High: 12, Low: 8, Close: 10, Volume: 100},  // typical 10
		{Open: 10, High: 22, Low: 18, Close: 20, Volume: 300}, // typical 20
	}

	ctx, err := eng.Compute("BBRI", candles, ModeIntraday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := (10.0*100 + 20.0*300) / 400
	if math.Abs(ctx.ReferencePrice-want) > 1e-9 {
		t.Fatalf("expected vwap %.4f, got %.4f", want, ctx.ReferencePrice)
	}
}

func TestComputeTrendDirection(t *testing.T) {
	eng := NewEngine(5, 10, 5)
	rising := series(5, func(i int) Candle { return flatCandle(100+float64(i)*5, 1000) })
	ctx, err := eng.Compute("BBRI", rising, ModeIntraday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ctx.TrendUp {
		t.Fatalf("rising closes must classify as uptrend")
	}

	falling := series(5, func(i int) Candle { return flatCandle(120-float64(i)*5, 1000) })
	ctx, err = eng.Compute("BBRI", falling, ModeIntraday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ctx.TrendUp {
		t.Fatalf("falling closes must classify as downtrend")
	}
}

func TestRangePositionClamped(t *testing.T) {
	if got := RangePosition(100, 100, 100); got != 0.5 {
		t.Fatalf("flat range must report midpoint, got %.2f", got)
	}
	if got := RangePosition(50, 100, 200); got != 0 {
		t.Fatalf("close below range must clamp to 0, got %.2f", got)
	}
	if got := RangePosition(250, 100, 200); got != 1 {
		t.Fatalf("close above range must clamp to 1, got %.2f", got)
	}
	if got := RangePosition(150, 100, 200); got != 0.5 {
		t.Fatalf("midpoint close must report 0.5, got %.2f", got)
	}
}

func TestComputeModeSelectsWindow(t *testing.T) {
	eng := NewEngine(5, 30, 3)
	candles := series(10, func(int) Candle { return flatCandle(100, 1000) })

	if _, err := eng.Compute("BBRI", candles, ModeIntraday); err != nil {
		t.Fatalf("10 bars must satisfy the intraday window: %v", err)
	}
	if _, err := eng.Compute("BBRI", candles, ModePositional); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("10 bars must not satisfy the positional window, got %v", err)
	}
}
