package decision

import (
	"github.com/shopspring/decimal"

	"aurora/internal/ledger"
)

// Advise is the parsed advisory response. OrderID is only meaningful for
// ORDER_CANCEL.
type Advise struct {
	Action     Action          `json:"action"`
	OrderID    *int64          `json:"order_id"`
	Price      decimal.Decimal `json:"price"`
	Confidence int             `json:"confidence"`
	Reason     string          `json:"reason"`
}

// RequestConfig is echoed to the advisor on every request.
type RequestConfig struct {
	SellThreshold int `json:"sell_threshold"`
}

// DefaultSellThreshold is the loss level the advisor is told to sell at.
const DefaultSellThreshold = -100

// Request is the decision request sent to the advisor. It is built fresh per
// cycle and never persisted.
type Request struct {
	Orders    []ledger.Order   `json:"orders"`
	Position  *ledger.Position `json:"position"`
	OneMin    string           `json:"one_min"`
	FiveMin   string           `json:"five_min"`
	ThirtyMin string           `json:"thirty_min"`
	Config    RequestConfig    `json:"config"`
}
