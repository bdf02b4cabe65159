package ledger

import (
	"encoding/json"
	"sort"
	"sync"

	"aurora/internal/logger"
)

const (
	DefaultAlertThreshold       = -100.0
	DefaultAlertIntervalMinutes = 5
)

// Notifier is the slice of the notification gate the ledger needs.
type Notifier interface {
	Notify(text string) bool
	NotifyWithInterval(text string, minutes int) bool
}

// Options tunes the loss alert. A nil AlertThreshold means
// DefaultAlertThreshold; zero is a valid threshold.
type Options struct {
	AlertThreshold       *float64
	AlertIntervalMinutes int
}

// Ledger tracks open orders by id and positions by symbol. Mutation happens on
// the event loop; the lock only guards concurrent readers.
type Ledger struct {
	mu        sync.RWMutex
	orders    map[int64]*Order
	positions map[string]*Position

	notifier       Notifier
	alertThreshold float64
	alertInterval  int
}

func New(notifier Notifier, opts Options) *Ledger {
	threshold := DefaultAlertThreshold
	if opts.AlertThreshold != nil {
		threshold = *opts.AlertThreshold
	}
	if opts.AlertIntervalMinutes <= 0 {
		opts.AlertIntervalMinutes = DefaultAlertIntervalMinutes
	}
	return &Ledger{
		orders:         make(map[int64]*Order),
		positions:      make(map[string]*Position),
		notifier:       notifier,
		alertThreshold: threshold,
		alertInterval:  opts.AlertIntervalMinutes,
	}
}

// RecordOpenOrder inserts or overwrites the order under its id.
func (l *Ledger) RecordOpenOrder(o Order) {
	l.mu.Lock()
	cp := o.clone()
	l.orders[o.OrderID] = &cp
	l.mu.Unlock()
}

// ApplyStatus merges a status event into a known order and announces it.
// Unknown ids are ignored and reported as false.
func (l *Ledger) ApplyStatus(id int64, st StatusUpdate) bool {
	l.mu.Lock()
	o, ok := l.orders[id]
	if !ok {
		l.mu.Unlock()
		logger.Debugf("order status for unknown order %d ignored", id)
		return false
	}
	status, filled, remaining, avg := st.Status, st.Filled, st.Remaining, st.AvgFillPrice
	o.Status = &status
	o.Filled = &filled
	o.Remaining = &remaining
	o.AvgFillPrice = &avg
	snapshot := o.clone()
	l.mu.Unlock()

	l.notify("order status: " + dump(snapshot))
	return true
}

// RemoveOrder drops the order; absent ids are a no-op.
func (l *Ledger) RemoveOrder(id int64) {
	l.mu.Lock()
	delete(l.orders, id)
	l.mu.Unlock()
}

func (l *Ledger) Order(id int64) (Order, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	o, ok := l.orders[id]
	if !ok {
		return Order{}, false
	}
	return o.clone(), true
}

// Orders returns every known order sorted by id.
func (l *Ledger) Orders() []Order {
	return l.filterOrders(func(*Order) bool { return true })
}

// OrdersFor returns the symbol's orders sorted by id.
func (l *Ledger) OrdersFor(symbol string) []Order {
	return l.filterOrders(func(o *Order) bool { return o.Symbol == symbol })
}

func (l *Ledger) filterOrders(keep func(*Order) bool) []Order {
	l.mu.RLock()
	out := make([]Order, 0, len(l.orders))
	for _, o := range l.orders {
		if keep(o) {
			out = append(out, o.clone())
		}
	}
	l.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].OrderID < out[j].OrderID })
	return out
}

// UpsertPosition merges a position or portfolio event into the symbol's
// record, creating it when absent. Position events only touch quantity and
// average cost, so PnL from an earlier portfolio event survives. A portfolio event
// whose unrealized PnL falls below the alert threshold raises a throttled
// position alert.
func (l *Ledger) UpsertPosition(u PositionUpdate) {
	l.mu.Lock()
	var alert string
	switch u.Kind {
	case KindPortfolio:
		unrealized, realized := u.UnrealizedPnL, u.RealizedPnL
		p, ok := l.positions[u.Symbol]
		if !ok {
			p = &Position{Symbol: u.Symbol, Position: u.Quantity, AverageCost: u.AverageCost}
			l.positions[u.Symbol] = p
		}
		p.UnrealizedPnL = &unrealized
		p.RealizedPnL = &realized
		if unrealized < l.alertThreshold {
			alert = "position alert: " + dump(p.clone())
		}
	default:
		if p, ok := l.positions[u.Symbol]; ok {
			p.Position = u.Quantity
			p.AverageCost = u.AverageCost
		} else {
			l.positions[u.Symbol] = &Position{Symbol: u.Symbol, Position: u.Quantity, AverageCost: u.AverageCost}
		}
	}
	l.mu.Unlock()

	if alert != "" && l.notifier != nil {
		l.notifier.NotifyWithInterval(alert, l.alertInterval)
	}
}

// ClearPositions empties the position map ahead of a new snapshot round.
func (l *Ledger) ClearPositions() {
	l.mu.Lock()
	l.positions = make(map[string]*Position)
	l.mu.Unlock()
}

func (l *Ledger) Position(symbol string) (Position, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.positions[symbol]
	if !ok {
		return Position{}, false
	}
	return p.clone(), true
}

// Positions returns every position sorted by symbol.
func (l *Ledger) Positions() []Position {
	l.mu.RLock()
	out := make([]Position, 0, len(l.positions))
	for _, p := range l.positions {
		out = append(out, p.clone())
	}
	l.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Symbols lists symbols with a position, sorted.
func (l *Ledger) Symbols() []string {
	l.mu.RLock()
	out := make([]string, 0, len(l.positions))
	for s := range l.positions {
		out = append(out, s)
	}
	l.mu.RUnlock()
	sort.Strings(out)
	return out
}

func (l *Ledger) notify(text string) {
	if l.notifier == nil {
		return
	}
	l.notifier.Notify(text)
}

// Dump renders v as compact JSON for notifications.
func Dump(v any) string { return dump(v) }

func dump(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(raw)
}
