// Package pattern reads chart structure off a bar sequence: the regression
// trend plus a few classic formations.
package pattern

import (
	"fmt"
	"math"
	"strings"

	"github.com/markcheno/go-talib"

	"aurora/internal/market"
)

const (
	BiasBullish  = "bullish"
	BiasBearish  = "bearish"
	BiasBalanced = "balanced"
)

type Result struct {
	PatternSummary string   `json:"pattern_summary"`
	TrendSummary   string   `json:"trend_summary"`
	Bias           string   `json:"bias"`
	Signals        []string `json:"signals"`
}

// Analyze needs at least two bars for a trend; formations need 20 to 40.
func Analyze(bars []market.Bar) Result {
	if len(bars) < 2 {
		return Result{PatternSummary: "not enough bars", TrendSummary: "no trend", Bias: BiasBalanced}
	}
	closes := make([]float64, len(bars))
	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
		highs[i] = b.High
		lows[i] = b.Low
	}
	slope, intercept := fitLine(closes)

	var signals []string
	for _, detect := range []func(highs, lows []float64) (string, bool){
		detectDoubleBottom,
		detectDoubleTop,
		detectTriangle,
		detectCompression,
	} {
		if desc, ok := detect(highs, lows); ok {
			signals = append(signals, desc)
		}
	}

	summary := "no notable formation"
	if len(signals) > 0 {
		summary = strings.Join(signals, "; ")
	}
	return Result{
		PatternSummary: summary,
		TrendSummary:   describeTrend(slope, intercept, closes),
		Bias:           classifySlope(slope, closes[len(closes)-1]),
		Signals:        signals,
	}
}

// fitLine regresses the whole series; talib reports the fit at the last bar.
func fitLine(series []float64) (slope, intercept float64) {
	n := len(series)
	slopes := talib.LinearRegSlope(series, n)
	intercepts := talib.LinearRegIntercept(series, n)
	return slopes[n-1], intercepts[n-1]
}

// classifySlope scales the per-bar slope by price so the cutoff holds for
// both penny stocks and index ETFs.
func classifySlope(slope, price float64) string {
	if price == 0 {
		return BiasBalanced
	}
	rel := slope / math.Abs(price)
	switch {
	case rel > 0.0001:
		return BiasBullish
	case rel < -0.0001:
		return BiasBearish
	default:
		return BiasBalanced
	}
}

func describeTrend(slope, intercept float64, closes []float64) string {
	last := closes[len(closes)-1]
	ref := intercept + slope*float64(len(closes)-1)
	angle := math.Atan(slope) * 180 / math.Pi
	offset := 0.0
	if ref != 0 {
		offset = (last - ref) / ref * 100
	}
	return fmt.Sprintf("regression slope=%.6f (%.2f°), close %.2f%% from fit", slope, angle, offset)
}

func detectDoubleBottom(_, lows []float64) (string, bool) {
	if len(lows) < 20 {
		return "", false
	}
	window := lows[len(lows)/2:]
	min1, idx1 := extremum(window, less)
	masked := maskAround(window, idx1, math.MaxFloat64)
	min2, idx2 := extremum(masked, less)
	if math.Abs(min1-min2)/math.Max(min1, 1) <= 0.004 && idx2 >= 3 {
		return fmt.Sprintf("double bottom, support near %.2f", (min1+min2)/2), true
	}
	return "", false
}

func detectDoubleTop(highs, _ []float64) (string, bool) {
	if len(highs) < 20 {
		return "", false
	}
	window := highs[len(highs)/2:]
	max1, idx1 := extremum(window, greater)
	masked := maskAround(window, idx1, -math.MaxFloat64)
	max2, idx2 := extremum(masked, greater)
	if math.Abs(max1-max2)/math.Max(max1, 1) <= 0.004 && idx2 >= 3 {
		return fmt.Sprintf("double top, resistance near %.2f", (max1+max2)/2), true
	}
	return "", false
}

func detectTriangle(highs, lows []float64) (string, bool) {
	if len(highs) < 30 {
		return "", false
	}
	half := len(highs) / 2
	firstHigh, lastHigh := seriesMax(highs[:half]), seriesMax(highs[half:])
	firstLow, lastLow := seriesMin(lows[:half]), seriesMin(lows[half:])
	if lastHigh < firstHigh && lastLow > firstLow {
		narrowing := (firstHigh - firstLow) - (lastHigh - lastLow)
		if narrowing/firstHigh > 0.05 {
			return "range converging, possible symmetrical triangle", true
		}
	}
	return "", false
}

func detectCompression(highs, lows []float64) (string, bool) {
	if len(highs) < 40 {
		return "", false
	}
	half := len(highs) / 2
	first := (seriesMax(highs[:half]) - seriesMin(lows[:half])) / seriesMax(highs[:half])
	second := (seriesMax(highs[half:]) - seriesMin(lows[half:])) / seriesMax(highs[half:])
	if second < first*0.65 {
		return "volatility contracting, watch for a breakout", true
	}
	return "", false
}

func less(a, b float64) bool    { return a < b }
func greater(a, b float64) bool { return a > b }

// extremum returns the first value that wins against every other under better.
func extremum(values []float64, better func(a, b float64) bool) (float64, int) {
	idx := -1
	var best float64
	for i, v := range values {
		if idx < 0 || better(v, best) {
			best, idx = v, i
		}
	}
	return best, idx
}

// maskAround copies values and overwrites the two bars either side of idx so
// the second extremum search skips the first one's neighbourhood.
func maskAround(values []float64, idx int, fill float64) []float64 {
	out := append([]float64(nil), values...)
	for i := idx - 2; i <= idx+2; i++ {
		if i >= 0 && i < len(out) {
			out[i] = fill
		}
	}
	return out
}

func seriesMax(values []float64) float64 {
	v, _ := extremum(values, greater)
	return v
}

func seriesMin(values []float64) float64 {
	v, _ := extremum(values, less)
	return v
}
