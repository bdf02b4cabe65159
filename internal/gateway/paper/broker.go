// Package paper is an in-process brokerage for paper runs and tests. Commands
// are answered with gateway events delivered from the broker's own goroutine,
// the way a real gateway's reader thread would.
package paper

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"aurora/internal/gateway"
	"aurora/internal/logger"
	"aurora/internal/market"
)

// BarLoader supplies bars for a historical request.
type BarLoader func(req gateway.HistoricalRequest) ([]market.Bar, error)

// Options configures a Broker.
type Options struct {
	Account     string
	NextOrderID int64
	Bars        BarLoader
}

type position struct {
	qty     decimal.Decimal
	avgCost float64
}

type order struct {
	id       int64
	contract gateway.Contract
	ticket   gateway.OrderTicket
	status   string
}

// Broker implements gateway.CommandSink and replies through an EventSink.
type Broker struct {
	opts Options

	mu        sync.Mutex
	sink      gateway.EventSink
	queue     []gateway.Envelope
	wake      chan struct{}
	orders    map[int64]*order
	positions map[string]*position
	lastClose map[string]float64
}

var _ gateway.CommandSink = (*Broker)(nil)

func New(opts Options) *Broker {
	if opts.Account == "" {
		opts.Account = "DU0000000"
	}
	if opts.NextOrderID <= 0 {
		opts.NextOrderID = 1
	}
	return &Broker{
		opts:      opts,
		wake:      make(chan struct{}, 1),
		orders:    make(map[int64]*order),
		positions: make(map[string]*position),
		lastClose: make(map[string]float64),
	}
}

// Attach sets the event sink replies are delivered to.
func (b *Broker) Attach(sink gateway.EventSink) {
	b.mu.Lock()
	b.sink = sink
	b.mu.Unlock()
}

// Seed opens a position before the session starts.
func (b *Broker) Seed(symbol string, qty decimal.Decimal, avgCost float64) {
	b.mu.Lock()
	b.positions[symbol] = &position{qty: qty, avgCost: avgCost}
	b.mu.Unlock()
}

// Connect queues the session handshake: next valid id and managed accounts.
func (b *Broker) Connect() {
	b.emit(gateway.EvtNextValidID, gateway.NextValidIDEvent{OrderID: b.opts.NextOrderID})
	b.emit(gateway.EvtManagedAccounts, gateway.ManagedAccountsEvent{Accounts: b.opts.Account})
}

// Run delivers queued events until ctx is done.
func (b *Broker) Run(ctx context.Context) error {
	for {
		for {
			env, sink, ok := b.next()
			if !ok {
				break
			}
			if sink == nil {
				continue
			}
			if err := gateway.Dispatch(ctx, sink, env); err != nil {
				logger.Warnf("paper broker: %v", err)
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-b.wake:
		}
	}
}

// Drain delivers every queued event, including ones queued while draining.
// Tests use it instead of Run.
func (b *Broker) Drain(ctx context.Context) {
	for {
		env, sink, ok := b.next()
		if !ok {
			return
		}
		if sink != nil {
			if err := gateway.Dispatch(ctx, sink, env); err != nil {
				logger.Warnf("paper broker: %v", err)
			}
		}
	}
}

func (b *Broker) next() (gateway.Envelope, gateway.EventSink, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.queue) == 0 {
		return gateway.Envelope{}, nil, false
	}
	env := b.queue[0]
	b.queue = b.queue[1:]
	return env, b.sink, true
}

func (b *Broker) emit(t gateway.EventType, payload any) {
	env, err := gateway.NewEnvelope(t, payload)
	if err != nil {
		logger.Warnf("paper broker: %v", err)
		return
	}
	b.mu.Lock()
	b.queue = append(b.queue, env)
	b.mu.Unlock()
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

func (b *Broker) RequestHistoricalData(_ context.Context, req gateway.HistoricalRequest) error {
	var bars []market.Bar
	if b.opts.Bars != nil {
		loaded, err := b.opts.Bars(req)
		if err != nil {
			b.emit(gateway.EvtError, gateway.ErrorEvent{ReqID: int64(req.ReqID), Code: 162, Message: err.Error()})
			return nil
		}
		bars = loaded
	}
	for _, bar := range bars {
		b.emit(gateway.EvtHistoricalBar, gateway.HistoricalBarEvent{
			ReqID: req.ReqID, Date: bar.Stamp,
			Open: bar.Open, High: bar.High, Low: bar.Low, Close: bar.Close, Volume: bar.Volume,
		})
	}
	if n := len(bars); n > 0 {
		b.mu.Lock()
		b.lastClose[req.Contract.Symbol] = bars[n-1].Close
		b.mu.Unlock()
	}
	start, end := "", ""
	if n := len(bars); n > 0 {
		start, end = bars[0].Stamp, bars[n-1].Stamp
	}
	b.emit(gateway.EvtHistoricalDataEnd, gateway.HistoricalEndEvent{ReqID: req.ReqID, Start: start, End: end})
	return nil
}

func (b *Broker) RequestAccountUpdates(_ context.Context, subscribe bool, account string) error {
	if !subscribe {
		return nil
	}
	for _, u := range b.portfolio(account) {
		b.emit(gateway.EvtPortfolioUpdate, u)
	}
	return nil
}

func (b *Broker) portfolio(account string) []gateway.PortfolioEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]gateway.PortfolioEvent, 0, len(b.positions))
	for _, sym := range b.symbolsLocked() {
		p := b.positions[sym]
		price := b.lastClose[sym]
		if price == 0 {
			price = p.avgCost
		}
		qty := p.qty.InexactFloat64()
		out = append(out, gateway.PortfolioEvent{
			Account:       account,
			Symbol:        sym,
			Position:      p.qty,
			MarketPrice:   price,
			MarketValue:   price * qty,
			AverageCost:   p.avgCost,
			UnrealizedPnL: (price - p.avgCost) * qty,
		})
	}
	return out
}

func (b *Broker) RequestAllOpenOrders(context.Context) error {
	b.mu.Lock()
	open := make([]*order, 0, len(b.orders))
	for _, o := range b.orders {
		if o.status == "Submitted" {
			open = append(open, o)
		}
	}
	b.mu.Unlock()
	sort.Slice(open, func(i, j int) bool { return open[i].id < open[j].id })
	for _, o := range open {
		b.emitOpenOrder(o)
	}
	return nil
}

func (b *Broker) RequestPositions(context.Context) error {
	b.mu.Lock()
	events := make([]gateway.PositionEvent, 0, len(b.positions))
	for _, sym := range b.symbolsLocked() {
		p := b.positions[sym]
		events = append(events, gateway.PositionEvent{Account: b.opts.Account, Symbol: sym, Position: p.qty, AvgCost: p.avgCost})
	}
	b.mu.Unlock()
	for _, e := range events {
		b.emit(gateway.EvtPosition, e)
	}
	b.emit(gateway.EvtPositionEnd, nil)
	return nil
}

// PlaceOrder acknowledges limit orders and fills market orders at the last
// known close.
func (b *Broker) PlaceOrder(_ context.Context, id int64, contract gateway.Contract, ticket gateway.OrderTicket) error {
	o := &order{id: id, contract: contract, ticket: ticket, status: "Submitted"}
	b.mu.Lock()
	b.orders[id] = o
	price, known := b.lastClose[contract.Symbol]
	b.mu.Unlock()

	b.emitOpenOrder(o)
	if ticket.Type != gateway.OrderTypeMarket || !known {
		b.emit(gateway.EvtOrderStatus, gateway.OrderStatusEvent{OrderID: id, Status: "Submitted", Remaining: ticket.Quantity})
		return nil
	}
	b.fill(o, price)
	b.emit(gateway.EvtOrderStatus, gateway.OrderStatusEvent{OrderID: id, Status: "Filled", Filled: ticket.Quantity, AvgFillPrice: price})
	return nil
}

func (b *Broker) fill(o *order, price float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o.status = "Filled"
	delta := o.ticket.Quantity
	if o.ticket.Side == gateway.SideSell {
		delta = delta.Neg()
	}
	p, ok := b.positions[o.contract.Symbol]
	if !ok {
		p = &position{}
		b.positions[o.contract.Symbol] = p
	}
	next := p.qty.Add(delta)
	if next.IsZero() {
		delete(b.positions, o.contract.Symbol)
		return
	}
	if delta.Sign() == next.Sign() {
		cost := p.qty.InexactFloat64()*p.avgCost + delta.InexactFloat64()*price
		p.avgCost = cost / next.InexactFloat64()
	}
	p.qty = next
}

func (b *Broker) CancelOrder(_ context.Context, id int64) error {
	b.mu.Lock()
	o, ok := b.orders[id]
	if ok {
		o.status = "Cancelled"
	}
	b.mu.Unlock()
	if !ok {
		b.emit(gateway.EvtError, gateway.ErrorEvent{ReqID: id, Code: 135, Message: "Can't find order with id"})
		return nil
	}
	b.emit(gateway.EvtOrderStatus, gateway.OrderStatusEvent{OrderID: id, Status: "Cancelled", Remaining: o.ticket.Quantity})
	return nil
}

func (b *Broker) emitOpenOrder(o *order) {
	price, _ := o.ticket.LimitPrice.Float64()
	b.emit(gateway.EvtOpenOrder, gateway.OpenOrderEvent{
		OrderID:    o.id,
		Symbol:     o.contract.Symbol,
		Quantity:   o.ticket.Quantity,
		LimitPrice: price,
		OrderType:  string(o.ticket.Type),
	})
}

func (b *Broker) symbolsLocked() []string {
	out := make([]string, 0, len(b.positions))
	for s := range b.positions {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
