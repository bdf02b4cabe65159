package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"aurora/internal/market"
)

// EventType names an inbound gateway callback on the wire.
type EventType string

const (
	EvtNextValidID       EventType = "next_valid_id"
	EvtManagedAccounts   EventType = "managed_accounts"
	EvtTickPrice         EventType = "tick_price"
	EvtOpenOrder         EventType = "open_order"
	EvtOrderStatus       EventType = "order_status"
	EvtPosition          EventType = "position"
	EvtPositionEnd       EventType = "position_end"
	EvtPortfolioUpdate   EventType = "portfolio_update"
	EvtHistoricalBar     EventType = "historical_bar"
	EvtHistoricalDataEnd EventType = "historical_data_end"
	EvtError             EventType = "error"
)

// EventTypes lists every inbound event type.
var EventTypes = []EventType{
	EvtNextValidID, EvtManagedAccounts, EvtTickPrice, EvtOpenOrder, EvtOrderStatus,
	EvtPosition, EvtPositionEnd, EvtPortfolioUpdate, EvtHistoricalBar, EvtHistoricalDataEnd, EvtError,
}

// Envelope is the JSON form of an inbound event.
type Envelope struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type NextValidIDEvent struct {
	OrderID int64 `json:"order_id"`
}

type ManagedAccountsEvent struct {
	Accounts string `json:"accounts"`
}

type TickPriceEvent struct {
	ReqID    int64   `json:"req_id"`
	TickType int     `json:"tick_type"`
	Price    float64 `json:"price"`
}

type OpenOrderEvent struct {
	OrderID    int64           `json:"order_id"`
	Symbol     string          `json:"symbol"`
	Quantity   decimal.Decimal `json:"quantity"`
	LimitPrice float64         `json:"limit_price"`
	OrderType  string          `json:"order_type"`
}

type OrderStatusEvent struct {
	OrderID      int64           `json:"order_id"`
	Status       string          `json:"status"`
	Filled       decimal.Decimal `json:"filled"`
	Remaining    decimal.Decimal `json:"remaining"`
	AvgFillPrice float64         `json:"avg_fill_price"`
}

type PositionEvent struct {
	Account  string          `json:"account"`
	Symbol   string          `json:"symbol"`
	Position decimal.Decimal `json:"position"`
	AvgCost  float64         `json:"avg_cost"`
}

type PortfolioEvent struct {
	Account       string          `json:"account"`
	Symbol        string          `json:"symbol"`
	Position      decimal.Decimal `json:"position"`
	MarketPrice   float64         `json:"market_price"`
	MarketValue   float64         `json:"market_value"`
	AverageCost   float64         `json:"average_cost"`
	UnrealizedPnL float64         `json:"unrealized_pnl"`
	RealizedPnL   float64         `json:"realized_pnl"`
}

// HistoricalBarEvent carries one bar for the slot named by ReqID. Date is the
// gateway's raw date string.
type HistoricalBarEvent struct {
	ReqID  market.SlotID `json:"req_id"`
	Date   string        `json:"date"`
	Open   float64       `json:"open"`
	High   float64       `json:"high"`
	Low    float64       `json:"low"`
	Close  float64       `json:"close"`
	Volume float64       `json:"volume"`
}

// Bar converts the event into a stored bar.
func (e HistoricalBarEvent) Bar() (market.Bar, error) {
	return market.NewBar(e.Date, e.Open, e.High, e.Low, e.Close, e.Volume)
}

type HistoricalEndEvent struct {
	ReqID market.SlotID `json:"req_id"`
	Start string        `json:"start"`
	End   string        `json:"end"`
}

type ErrorEvent struct {
	ReqID   int64  `json:"req_id"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// NewEnvelope encodes payload under the given type.
func NewEnvelope(t EventType, payload any) (Envelope, error) {
	env := Envelope{Type: t}
	if payload == nil {
		return env, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s: %w", t, err)
	}
	env.Payload = raw
	return env, nil
}

// Dispatch decodes env and invokes the matching EventSink method.
func Dispatch(ctx context.Context, sink EventSink, env Envelope) error {
	switch env.Type {
	case EvtNextValidID:
		var p NextValidIDEvent
		if err := decode(env, &p); err != nil {
			return err
		}
		sink.NextValidID(ctx, p.OrderID)
	case EvtManagedAccounts:
		var p ManagedAccountsEvent
		if err := decode(env, &p); err != nil {
			return err
		}
		sink.ManagedAccounts(ctx, p.Accounts)
	case EvtTickPrice:
		var p TickPriceEvent
		if err := decode(env, &p); err != nil {
			return err
		}
		sink.TickPrice(ctx, p)
	case EvtOpenOrder:
		var p OpenOrderEvent
		if err := decode(env, &p); err != nil {
			return err
		}
		sink.OpenOrder(ctx, p)
	case EvtOrderStatus:
		var p OrderStatusEvent
		if err := decode(env, &p); err != nil {
			return err
		}
		sink.OrderStatus(ctx, p)
	case EvtPosition:
		var p PositionEvent
		if err := decode(env, &p); err != nil {
			return err
		}
		sink.Position(ctx, p)
	case EvtPositionEnd:
		sink.PositionEnd(ctx)
	case EvtPortfolioUpdate:
		var p PortfolioEvent
		if err := decode(env, &p); err != nil {
			return err
		}
		sink.PortfolioUpdate(ctx, p)
	case EvtHistoricalBar:
		var p HistoricalBarEvent
		if err := decode(env, &p); err != nil {
			return err
		}
		sink.HistoricalBar(ctx, p)
	case EvtHistoricalDataEnd:
		var p HistoricalEndEvent
		if err := decode(env, &p); err != nil {
			return err
		}
		sink.HistoricalDataEnd(ctx, p)
	case EvtError:
		var p ErrorEvent
		if err := decode(env, &p); err != nil {
			return err
		}
		sink.Error(ctx, p)
	default:
		return fmt.Errorf("unknown gateway event type %q", env.Type)
	}
	return nil
}

func decode(env Envelope, dst any) error {
	if len(env.Payload) == 0 {
		return fmt.Errorf("%s: empty payload", env.Type)
	}
	if err := json.Unmarshal(env.Payload, dst); err != nil {
		return fmt.Errorf("decode %s: %w", env.Type, err)
	}
	return nil
}
