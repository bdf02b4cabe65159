package ledger

import "github.com/shopspring/decimal"

// Order is a known open order. Optional fields stay nil until an order-status
// event fills them in.
type Order struct {
	OrderID      int64            `json:"order_id"`
	Symbol       string           `json:"symbol"`
	Quantity     decimal.Decimal  `json:"quantity"`
	Price        float64          `json:"price"`
	Type         string           `json:"type"`
	Status       *string          `json:"status,omitempty"`
	Filled       *decimal.Decimal `json:"filled,omitempty"`
	Remaining    *decimal.Decimal `json:"remaining,omitempty"`
	AvgFillPrice *float64         `json:"avg_fill_price,omitempty"`
}

// Position is the account's holding in one symbol.
type Position struct {
	Symbol        string          `json:"symbol"`
	Position      decimal.Decimal `json:"position"`
	AverageCost   float64         `json:"average_cost"`
	UnrealizedPnL *float64        `json:"unrealized_pnl,omitempty"`
	RealizedPnL   *float64        `json:"realized_pnl,omitempty"`
}

// StatusUpdate carries the mutable fields of an order-status event.
type StatusUpdate struct {
	Status       string
	Filled       decimal.Decimal
	Remaining    decimal.Decimal
	AvgFillPrice float64
}

// UpdateKind tells a plain position report from a portfolio valuation.
type UpdateKind int

const (
	// KindPosition sets quantity and average cost.
	KindPosition UpdateKind = iota
	// KindPortfolio carries PnL; quantity and cost only seed a new record.
	KindPortfolio
)

func (k UpdateKind) String() string {
	if k == KindPortfolio {
		return "portfolio"
	}
	return "position"
}

// PositionUpdate is one position or portfolio event.
type PositionUpdate struct {
	Kind          UpdateKind
	Symbol        string
	Quantity      decimal.Decimal
	AverageCost   float64
	UnrealizedPnL float64
	RealizedPnL   float64
}

func (o Order) clone() Order {
	if o.Status != nil {
		s := *o.Status
		o.Status = &s
	}
	if o.Filled != nil {
		f := *o.Filled
		o.Filled = &f
	}
	if o.Remaining != nil {
		r := *o.Remaining
		o.Remaining = &r
	}
	if o.AvgFillPrice != nil {
		p := *o.AvgFillPrice
		o.AvgFillPrice = &p
	}
	return o
}

func (p Position) clone() Position {
	if p.UnrealizedPnL != nil {
		u := *p.UnrealizedPnL
		p.UnrealizedPnL = &u
	}
	if p.RealizedPnL != nil {
		r := *p.RealizedPnL
		p.RealizedPnL = &r
	}
	return p
}
