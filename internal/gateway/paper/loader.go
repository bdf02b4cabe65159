package paper

import (
	"aurora/internal/gateway"
	"aurora/internal/market"
	"aurora/internal/store/export"
)

// FromDir replays slot files previously exported as CSV under dir.
func FromDir(dir string) BarLoader {
	return func(req gateway.HistoricalRequest) ([]market.Bar, error) {
		return export.ReadCSV(dir, req.ReqID)
	}
}

// FromMemory serves bars keyed by symbol and timeframe.
func FromMemory(bars map[string]map[market.Timeframe][]market.Bar) BarLoader {
	return func(req gateway.HistoricalRequest) ([]market.Bar, error) {
		_, tf, ok := req.ReqID.Split()
		if !ok {
			return nil, nil
		}
		return bars[req.Contract.Symbol][tf], nil
	}
}
