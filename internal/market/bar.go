package market

import (
	"fmt"
	"strings"
	"time"
)

// Bar is one OHLCV price bar as delivered by the gateway.
// Stamp keeps the gateway's original date text; bars are deduplicated on it.
type Bar struct {
	Stamp  string    `json:"date" parquet:"date"`
	Date   time.Time `json:"-" parquet:"-"`
	Open   float64   `json:"open" parquet:"open"`
	High   float64   `json:"high" parquet:"high"`
	Low    float64   `json:"low" parquet:"low"`
	Close  float64   `json:"close" parquet:"close"`
	Volume float64   `json:"volume" parquet:"volume"`
}

// SameDate reports whether two bars cover the same period.
func (b Bar) SameDate(o Bar) bool {
	if b.Stamp != "" || o.Stamp != "" {
		return b.Stamp == o.Stamp
	}
	return b.Date.Equal(o.Date)
}

const (
	intradayLayout = "20060102 15:04:05"
	dailyLayout    = "20060102"
)

// ParseBarDate parses gateway bar dates: "20240105 09:30:00 US/Eastern",
// "20240105 09:30:00" (UTC) or "20240105" (daily, UTC).
func ParseBarDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty bar date")
	}
	if len(raw) == len(dailyLayout) {
		return time.ParseInLocation(dailyLayout, raw, time.UTC)
	}
	loc := time.UTC
	stamp := raw
	if len(raw) > len(intradayLayout) {
		stamp = raw[:len(intradayLayout)]
		zone := strings.TrimSpace(raw[len(intradayLayout):])
		if zone != "" {
			l, err := time.LoadLocation(zone)
			if err != nil {
				return time.Time{}, fmt.Errorf("bar date zone %q: %w", zone, err)
			}
			loc = l
		}
	}
	t, err := time.ParseInLocation(intradayLayout, stamp, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("bar date %q: %w", raw, err)
	}
	return t, nil
}

// NewBar builds a bar from a raw gateway date. A date that fails to parse
// leaves Date zero; Stamp still identifies the bar.
func NewBar(stamp string, open, high, low, close, volume float64) (Bar, error) {
	b := Bar{Stamp: stamp, Open: open, High: high, Low: low, Close: close, Volume: volume}
	t, err := ParseBarDate(stamp)
	if err != nil {
		return b, err
	}
	b.Date = t
	return b, nil
}

// Closes extracts close prices in order.
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}
