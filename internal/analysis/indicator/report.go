package indicator

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"aurora/internal/market"
)

const dateLayout = "2006-01-02 15:04:05-07:00"

// Row is one bar plus its derived values. Missing values are NaN.
type Row struct {
	Bar        market.Bar
	MA         []float64
	MACD       float64
	MACDSignal float64
	MACDHist   float64
	UpperBand  float64
	MiddleBand float64
	LowerBand  float64
}

// Report is a flat table, one row per bar.
type Report struct {
	MAPeriods []int
	Rows      []Row
}

func (r Report) Empty() bool { return len(r.Rows) == 0 }

// Latest returns the newest row.
func (r Report) Latest() (Row, bool) {
	if len(r.Rows) == 0 {
		return Row{}, false
	}
	return r.Rows[len(r.Rows)-1], true
}

// Columns lists the table header.
func (r Report) Columns() []string {
	cols := []string{"date", "open", "high", "low", "close", "volume"}
	for _, p := range r.MAPeriods {
		cols = append(cols, fmt.Sprintf("MA%d", p))
	}
	return append(cols, "MACD", "MACD_signal", "MACD_hist", "upper_band", "middle_band", "lower_band")
}

// CSV renders the report for embedding in a decision request. An empty
// report renders as "".
func (r Report) CSV() string {
	if r.Empty() {
		return ""
	}
	var b strings.Builder
	b.WriteString(strings.Join(r.Columns(), ","))
	b.WriteByte('\n')
	for _, row := range r.Rows {
		cells := []string{
			formatDate(row.Bar),
			formatRaw(row.Bar.Open),
			formatRaw(row.Bar.High),
			formatRaw(row.Bar.Low),
			formatRaw(row.Bar.Close),
			formatRaw(row.Bar.Volume),
		}
		for _, v := range row.MA {
			cells = append(cells, formatDerived(v))
		}
		cells = append(cells,
			formatDerived(row.MACD),
			formatDerived(row.MACDSignal),
			formatDerived(row.MACDHist),
			formatDerived(row.UpperBand),
			formatDerived(row.MiddleBand),
			formatDerived(row.LowerBand),
		)
		b.WriteString(strings.Join(cells, ","))
		b.WriteByte('\n')
	}
	return b.String()
}

// Summary describes the newest row: close position against each average and
// the bands, plus MACD polarity.
func (r Report) Summary() map[string]string {
	row, ok := r.Latest()
	if !ok {
		return nil
	}
	price := row.Bar.Close
	out := make(map[string]string, len(row.MA)+2)
	for i, v := range row.MA {
		if i < len(r.MAPeriods) {
			out[fmt.Sprintf("MA%d", r.MAPeriods[i])] = relativeState(price, v)
		}
	}
	out["MACD"] = polarityState(row.MACDHist)
	switch {
	case math.IsNaN(row.UpperBand):
		out["bands"] = "unknown"
	case price > row.UpperBand:
		out["bands"] = "above"
	case price < row.LowerBand:
		out["bands"] = "below"
	default:
		out["bands"] = "inside"
	}
	return out
}

// Round applies the output precision policy: 0 stays 0, |v| < 1 keeps seven
// fractional digits, anything else keeps three. NaN and Inf pass through.
func Round(v float64) float64 {
	if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	places := int32(3)
	if math.Abs(v) < 1 {
		places = 7
	}
	out, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return out
}

func formatDate(b market.Bar) string {
	if b.Date.IsZero() {
		return b.Stamp
	}
	return b.Date.Format(dateLayout)
}

func formatRaw(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatDerived(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func relativeState(price, ref float64) string {
	if ref == 0 || math.IsNaN(ref) {
		return "unknown"
	}
	switch {
	case price > ref*1.002:
		return "above"
	case price < ref*0.998:
		return "below"
	default:
		return "touch"
	}
}

func polarityState(v float64) string {
	switch {
	case math.IsNaN(v):
		return "unknown"
	case v > 0:
		return "positive"
	case v < 0:
		return "negative"
	default:
		return "flat"
	}
}
