package gateway

import (
	"github.com/shopspring/decimal"

	"aurora/internal/market"
)

// Contract identifies a tradable instrument.
type Contract struct {
	Symbol   string `json:"symbol"`
	SecType  string `json:"sec_type"`
	Exchange string `json:"exchange"`
	Currency string `json:"currency"`
}

// StockContract is a US stock routed through SMART.
func StockContract(symbol string) Contract {
	return Contract{Symbol: symbol, SecType: "STK", Exchange: "SMART", Currency: "USD"}
}

type OrderSide string

const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"
)

type OrderType string

const (
	OrderTypeLimit  OrderType = "LMT"
	OrderTypeMarket OrderType = "MKT"
)

// OrderTicket is the order body of a place-order command. LimitPrice is
// ignored for market orders.
type OrderTicket struct {
	Side       OrderSide       `json:"side"`
	Type       OrderType       `json:"type"`
	Quantity   decimal.Decimal `json:"quantity"`
	LimitPrice decimal.Decimal `json:"limit_price"`
}

const (
	DefaultDuration   = "1 D"
	DefaultWhatToShow = "TRADES"
)

// HistoricalRequest asks for bars of one slot. ReqID is the slot id.
type HistoricalRequest struct {
	ReqID        market.SlotID `json:"req_id"`
	Contract     Contract      `json:"contract"`
	EndDateTime  string        `json:"end_date_time"`
	Duration     string        `json:"duration"`
	BarSize      string        `json:"bar_size"`
	WhatToShow   string        `json:"what_to_show"`
	UseRTH       bool          `json:"use_rth"`
	KeepUpToDate bool          `json:"keep_up_to_date"`
}

// NewHistoricalRequest builds the one-day, regular-hours trades request used
// for every slot.
func NewHistoricalRequest(symbol string, instrument int, tf market.Timeframe) HistoricalRequest {
	return HistoricalRequest{
		ReqID:      market.Slot(instrument, tf),
		Contract:   StockContract(symbol),
		Duration:   DefaultDuration,
		BarSize:    tf.BarSize(),
		WhatToShow: DefaultWhatToShow,
		UseRTH:     true,
	}
}
