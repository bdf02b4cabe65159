package indicator

import (
	"math"

	"github.com/markcheno/go-talib"

	"aurora/internal/market"
)

// Settings holds indicator windows. Zero values fall back to the defaults.
type Settings struct {
	MAPeriods  []int   `json:"ma_periods,omitempty"`
	MACDFast   int     `json:"macd_fast,omitempty"`
	MACDSlow   int     `json:"macd_slow,omitempty"`
	MACDSignal int     `json:"macd_signal,omitempty"`
	BandPeriod int     `json:"band_period,omitempty"`
	BandDev    float64 `json:"band_dev,omitempty"`
}

// DefaultSettings: SMA 5/10/20/50, MACD 12/26/9, Bollinger 20 ±2σ.
func DefaultSettings() Settings {
	return Settings{
		MAPeriods:  []int{5, 10, 20, 50},
		MACDFast:   12,
		MACDSlow:   26,
		MACDSignal: 9,
		BandPeriod: 20,
		BandDev:    2,
	}
}

func (s Settings) withDefaults() Settings {
	def := DefaultSettings()
	if len(s.MAPeriods) == 0 {
		s.MAPeriods = def.MAPeriods
	}
	if s.MACDFast <= 0 {
		s.MACDFast = def.MACDFast
	}
	if s.MACDSlow <= 0 {
		s.MACDSlow = def.MACDSlow
	}
	if s.MACDSignal <= 0 {
		s.MACDSignal = def.MACDSignal
	}
	if s.MACDSlow < s.MACDFast {
		s.MACDFast, s.MACDSlow = s.MACDSlow, s.MACDFast
	}
	if s.BandPeriod <= 0 {
		s.BandPeriod = def.BandPeriod
	}
	if s.BandDev <= 0 {
		s.BandDev = def.BandDev
	}
	return s
}

// Analyzer computes per-bar indicator rows.
type Analyzer struct {
	settings Settings
}

func NewAnalyzer(settings Settings) *Analyzer {
	return &Analyzer{settings: settings.withDefaults()}
}

// Analyze never fails: series whose warm-up exceeds the input are NaN on every
// row, and an empty input yields an empty report.
func (a *Analyzer) Analyze(bars []market.Bar) Report {
	cfg := a.settings
	if cfg.MACDFast == 0 {
		cfg = cfg.withDefaults()
	}
	rep := Report{MAPeriods: append([]int(nil), cfg.MAPeriods...)}
	if len(bars) == 0 {
		return rep
	}
	closes := market.Closes(bars)

	mas := make([][]float64, len(cfg.MAPeriods))
	for i, p := range cfg.MAPeriods {
		mas[i] = sma(closes, p)
	}
	macd, signal, hist := macdSeries(closes, cfg.MACDFast, cfg.MACDSlow, cfg.MACDSignal)
	upper, middle, lower := bands(closes, cfg.BandPeriod, cfg.BandDev)

	rep.Rows = make([]Row, len(bars))
	for i, b := range bars {
		row := Row{Bar: b, MA: make([]float64, len(mas))}
		for j := range mas {
			row.MA[j] = Round(mas[j][i])
		}
		row.MACD = Round(macd[i])
		row.MACDSignal = Round(signal[i])
		row.MACDHist = Round(hist[i])
		row.UpperBand = Round(upper[i])
		row.MiddleBand = Round(middle[i])
		row.LowerBand = Round(lower[i])
		rep.Rows[i] = row
	}
	return rep
}

// Analyze runs the default analyzer.
func Analyze(bars []market.Bar) Report {
	return NewAnalyzer(DefaultSettings()).Analyze(bars)
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// maskWarmup overwrites the first lookback values (talib leaves zeros there).
func maskWarmup(series []float64, lookback int) []float64 {
	for i := 0; i < lookback && i < len(series); i++ {
		series[i] = math.NaN()
	}
	return series
}

func sma(closes []float64, period int) []float64 {
	if period <= 0 || len(closes) < period {
		return nanSeries(len(closes))
	}
	return maskWarmup(talib.Sma(closes, period), period-1)
}

// macdSeries follows TA-Lib's alignment: the fast EMA is seeded on the same
// bar the slow EMA first becomes valid, and all three outputs start at
// (slow-1)+(signal-1).
func macdSeries(closes []float64, fast, slow, signal int) (line, sig, hist []float64) {
	n := len(closes)
	line, sig, hist = nanSeries(n), nanSeries(n), nanSeries(n)
	lookback := (slow - 1) + (signal - 1)
	if n <= lookback {
		return
	}
	slowEMA := talib.Ema(closes, slow)
	offset := slow - fast
	fastEMA := talib.Ema(closes[offset:], fast)

	start := slow - 1
	raw := make([]float64, n-start)
	for i := start; i < n; i++ {
		raw[i-start] = fastEMA[i-offset] - slowEMA[i]
	}
	sigEMA := talib.Ema(raw, signal)
	for i := lookback; i < n; i++ {
		line[i] = raw[i-start]
		sig[i] = sigEMA[i-start]
		hist[i] = line[i] - sig[i]
	}
	return
}

func bands(closes []float64, period int, dev float64) (upper, middle, lower []float64) {
	n := len(closes)
	if period <= 0 || n < period {
		return nanSeries(n), nanSeries(n), nanSeries(n)
	}
	upper, middle, lower = talib.BBands(closes, period, dev, dev, talib.SMA)
	lookback := period - 1
	return maskWarmup(upper, lookback), maskWarmup(middle, lookback), maskWarmup(lower, lookback)
}
