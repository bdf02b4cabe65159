// Package engine reacts to gateway callbacks: it feeds the bar store and the
// ledger, drives snapshot rounds and starts decision cycles.
package engine

import (
	"context"
	"strings"
	"sync"

	"aurora/internal/decision"
	"aurora/internal/gateway"
	"aurora/internal/ledger"
	"aurora/internal/logger"
	"aurora/internal/market"
	"aurora/internal/store"
)

// Cycler runs one decision cycle.
type Cycler interface {
	Run(ctx context.Context, symbol string) decision.Outcome
}

// Options tune session behavior.
type Options struct {
	Symbols []string
	// IncludeFlatSymbols also runs cycles for configured symbols without a
	// position at position-end.
	IncludeFlatSymbols bool
}

// Engine implements gateway.EventSink. It must be driven from a single
// goroutine; see the trader package.
type Engine struct {
	commands gateway.CommandSink
	bars     *store.BarStore
	ledger   *ledger.Ledger
	cycler   Cycler
	ids      *decision.IDAllocator
	opts     Options

	mu      sync.Mutex
	started bool
	account string
}

var _ gateway.EventSink = (*Engine)(nil)

func New(commands gateway.CommandSink, bars *store.BarStore, l *ledger.Ledger, cycler Cycler, ids *decision.IDAllocator, opts Options) *Engine {
	return &Engine{
		commands: commands,
		bars:     bars,
		ledger:   l,
		cycler:   cycler,
		ids:      ids,
		opts:     opts,
	}
}

// Started reports whether the session has begun.
func (e *Engine) Started() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.started
}

// Account is the managed account in use, empty before managed-accounts.
func (e *Engine) Account() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.account
}

func (e *Engine) NextValidID(ctx context.Context, id int64) {
	logger.Infof("setting nextValidOrderId: %d", id)
	if e.ids != nil {
		e.ids.Seed(id)
	}
	e.start(ctx)
}

func (e *Engine) start(ctx context.Context) {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return
	}
	e.started = true
	e.mu.Unlock()
	e.query(ctx)
}

// Refresh re-requests historical bars for every slot.
func (e *Engine) Refresh(ctx context.Context) {
	if !e.Started() {
		logger.Debugf("refresh skipped: session not started")
		return
	}
	e.query(ctx)
}

func (e *Engine) query(ctx context.Context) {
	for idx, symbol := range e.opts.Symbols {
		for _, tf := range market.Timeframes {
			req := gateway.NewHistoricalRequest(symbol, idx, tf)
			if err := e.commands.RequestHistoricalData(ctx, req); err != nil {
				logger.Errorf("request historical data slot=%d %s %s: %v", req.ReqID, symbol, tf, err)
			}
		}
	}
}

func (e *Engine) ManagedAccounts(ctx context.Context, accounts string) {
	account := strings.TrimSpace(strings.Split(accounts, ",")[0])
	e.mu.Lock()
	e.account = account
	e.mu.Unlock()
	if err := e.commands.RequestAccountUpdates(ctx, true, account); err != nil {
		logger.Errorf("subscribe account updates %s: %v", account, err)
	}
}

func (e *Engine) TickPrice(_ context.Context, evt gateway.TickPriceEvent) {
	logger.Infof("tick %d price %v", evt.TickType, evt.Price)
}

func (e *Engine) OpenOrder(_ context.Context, evt gateway.OpenOrderEvent) {
	e.ledger.RecordOpenOrder(ledger.Order{
		OrderID:  evt.OrderID,
		Symbol:   evt.Symbol,
		Quantity: evt.Quantity,
		Price:    evt.LimitPrice,
		Type:     evt.OrderType,
	})
}

func (e *Engine) OrderStatus(_ context.Context, evt gateway.OrderStatusEvent) {
	e.ledger.ApplyStatus(evt.OrderID, ledger.StatusUpdate{
		Status:       evt.Status,
		Filled:       evt.Filled,
		Remaining:    evt.Remaining,
		AvgFillPrice: evt.AvgFillPrice,
	})
}

func (e *Engine) Position(_ context.Context, evt gateway.PositionEvent) {
	e.ledger.UpsertPosition(ledger.PositionUpdate{
		Kind:        ledger.KindPosition,
		Symbol:      evt.Symbol,
		Quantity:    evt.Position,
		AverageCost: evt.AvgCost,
	})
}

func (e *Engine) PortfolioUpdate(_ context.Context, evt gateway.PortfolioEvent) {
	e.ledger.UpsertPosition(ledger.PositionUpdate{
		Kind:          ledger.KindPortfolio,
		Symbol:        evt.Symbol,
		Quantity:      evt.Position,
		AverageCost:   evt.AverageCost,
		UnrealizedPnL: evt.UnrealizedPnL,
		RealizedPnL:   evt.RealizedPnL,
	})
}

// PositionEnd closes the snapshot round: one decision cycle per symbol.
func (e *Engine) PositionEnd(ctx context.Context) {
	if e.cycler == nil {
		return
	}
	for _, symbol := range e.roundSymbols() {
		e.cycler.Run(ctx, symbol)
	}
}

func (e *Engine) roundSymbols() []string {
	symbols := e.ledger.Symbols()
	if !e.opts.IncludeFlatSymbols {
		return symbols
	}
	seen := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		seen[s] = struct{}{}
	}
	for _, s := range e.opts.Symbols {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			symbols = append(symbols, s)
		}
	}
	return symbols
}

func (e *Engine) HistoricalBar(_ context.Context, evt gateway.HistoricalBarEvent) {
	bar, err := evt.Bar()
	if err != nil {
		logger.Debugf("bar date %q kept unparsed: %v", evt.Date, err)
	}
	e.bars.Upsert(evt.ReqID, bar)
}

// HistoricalDataEnd flushes every slot and opens a new snapshot round.
func (e *Engine) HistoricalDataEnd(ctx context.Context, evt gateway.HistoricalEndEvent) {
	logger.Debugf("historical data end slot=%d %s..%s", evt.ReqID, evt.Start, evt.End)
	if err := e.bars.FlushAll(ctx); err != nil {
		logger.Errorf("flush bars: %v", err)
	}
	e.ledger.ClearPositions()
	if err := e.commands.RequestAllOpenOrders(ctx); err != nil {
		logger.Errorf("request open orders: %v", err)
	}
	if err := e.commands.RequestPositions(ctx); err != nil {
		logger.Errorf("request positions: %v", err)
	}
}

func (e *Engine) Error(_ context.Context, evt gateway.ErrorEvent) {
	logger.Errorf("gateway error id=%d code=%d msg=%s", evt.ReqID, evt.Code, evt.Message)
}

// Stop unsubscribes from account updates.
func (e *Engine) Stop(ctx context.Context) {
	e.mu.Lock()
	e.started = false
	account := e.account
	e.mu.Unlock()
	if err := e.commands.RequestAccountUpdates(ctx, false, account); err != nil {
		logger.Warnf("unsubscribe account updates: %v", err)
	}
	logger.Infof("stop the whole application")
}
