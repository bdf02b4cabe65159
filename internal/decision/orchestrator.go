package decision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"aurora/internal/analysis/indicator"
	"aurora/internal/gateway"
	"aurora/internal/ledger"
	"aurora/internal/logger"
	"aurora/internal/market"
)

const (
	DefaultConfidenceThreshold = 80
	DefaultOrderQuantity       = 100
)

// ErrNoAdvice wraps every failure that leaves a cycle without an advise.
var ErrNoAdvice = errors.New("no advice")

// State is the per-symbol cycle state.
type State int

const (
	StateIdle State = iota
	StateBuildingRequest
	StateAwaitingAdvice
	StateDispatching
)

func (s State) String() string {
	switch s {
	case StateBuildingRequest:
		return "BUILDING_REQUEST"
	case StateAwaitingAdvice:
		return "AWAITING_ADVICE"
	case StateDispatching:
		return "DISPATCHING"
	default:
		return "IDLE"
	}
}

// Advisor completes a chat exchange and returns the raw reply text.
type Advisor interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// Ledger is the read and remove surface the orchestrator needs.
type Ledger interface {
	OrdersFor(symbol string) []ledger.Order
	Order(id int64) (ledger.Order, bool)
	Position(symbol string) (ledger.Position, bool)
	RemoveOrder(id int64)
}

// BarSource reads a slot's bar sequence.
type BarSource interface {
	Get(slot market.SlotID) []market.Bar
}

// Analyzer turns bars into an indicator report.
type Analyzer interface {
	Analyze(bars []market.Bar) indicator.Report
}

type Notifier interface {
	Notify(text string) bool
}

// Journal records finished cycles.
type Journal interface {
	Record(ctx context.Context, o Outcome) error
}

// Config tunes gating and order sizing. Zero values take the defaults.
type Config struct {
	ConfidenceThreshold int
	OrderQuantity       decimal.Decimal
	SellThreshold       int
	Model               string
}

func (c Config) withDefaults() Config {
	if c.ConfidenceThreshold <= 0 {
		c.ConfidenceThreshold = DefaultConfidenceThreshold
	}
	if !c.OrderQuantity.IsPositive() {
		c.OrderQuantity = decimal.NewFromInt(DefaultOrderQuantity)
	}
	if c.SellThreshold == 0 {
		c.SellThreshold = DefaultSellThreshold
	}
	return c
}

// Outcome summarizes one cycle.
type Outcome struct {
	TraceID    string
	Symbol     string
	Advise     *Advise
	Dispatched bool
	// OrderID is the placed or cancelled order, 0 when nothing was sent.
	OrderID   int64
	Skipped   bool
	Err       error
	StartedAt time.Time
	Duration  time.Duration
}

// Deps bundles the orchestrator's collaborators.
type Deps struct {
	Ledger       Ledger
	Bars         BarSource
	Analyzer     Analyzer
	Advisor      Advisor
	Commands     gateway.CommandSink
	Notifier     Notifier
	Journal      Journal
	Conversation *Conversation
	IDs          *IDAllocator
}

// Orchestrator runs decision cycles: build a request, ask the advisor, gate
// and dispatch the advised action.
type Orchestrator struct {
	deps        Deps
	cfg         Config
	instruments map[string]int

	mu     sync.Mutex
	states map[string]State
}

// NewOrchestrator indexes symbols by their position in the instrument list;
// that index selects the symbol's bar slots.
func NewOrchestrator(deps Deps, symbols []string, cfg Config) *Orchestrator {
	if deps.Analyzer == nil {
		deps.Analyzer = indicator.NewAnalyzer(indicator.DefaultSettings())
	}
	if deps.Conversation == nil {
		deps.Conversation = NewConversation("", 0)
	}
	if deps.IDs == nil {
		deps.IDs = NewIDAllocator(DefaultFallbackOrderID)
	}
	instruments := make(map[string]int, len(symbols))
	for i, s := range symbols {
		if _, dup := instruments[s]; !dup {
			instruments[s] = i
		}
	}
	return &Orchestrator{
		deps:        deps,
		cfg:         cfg.withDefaults(),
		instruments: instruments,
		states:      make(map[string]State),
	}
}

// IDs exposes the allocator so the gateway's next valid id can seed it.
func (o *Orchestrator) IDs() *IDAllocator { return o.deps.IDs }

func (o *Orchestrator) State(symbol string) State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.states[symbol]
}

func (o *Orchestrator) setState(symbol string, s State) {
	o.mu.Lock()
	if s == StateIdle {
		delete(o.states, symbol)
	} else {
		o.states[symbol] = s
	}
	o.mu.Unlock()
}

func (o *Orchestrator) begin(symbol string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.states[symbol] != StateIdle {
		return false
	}
	o.states[symbol] = StateBuildingRequest
	return true
}

// Run executes one cycle for symbol. Failures are logged and reported in the
// outcome; a symbol already mid-cycle is skipped.
func (o *Orchestrator) Run(ctx context.Context, symbol string) (out Outcome) {
	out = Outcome{TraceID: uuid.NewString(), Symbol: symbol, StartedAt: time.Now()}
	if !o.begin(symbol) {
		logger.Warnf("decision cycle for %s skipped: still %s", symbol, o.State(symbol))
		out.Skipped = true
		return out
	}
	defer func() {
		o.setState(symbol, StateIdle)
		out.Duration = time.Since(out.StartedAt)
		o.record(ctx, out)
	}()

	req := o.BuildRequest(symbol)
	body, err := json.Marshal(req)
	if err != nil {
		out.Err = fmt.Errorf("%w: encode request: %v", ErrNoAdvice, err)
		logger.Errorf("decision %s: %v", symbol, out.Err)
		return out
	}
	logger.Infof("%s", body)

	o.setState(symbol, StateAwaitingAdvice)
	adv, err := o.ask(ctx, symbol, string(body))
	if err != nil {
		out.Err = err
		logger.Errorf("decision %s: %v", symbol, err)
		return out
	}
	out.Advise = &adv

	o.setState(symbol, StateDispatching)
	o.dispatch(ctx, symbol, adv, &out)
	return out
}

func (o *Orchestrator) ask(ctx context.Context, symbol, body string) (Advise, error) {
	conv := o.deps.Conversation
	msgs := conv.Begin(body)
	logger.LogLLMRequest(o.cfg.Model, symbol, body, len(msgs)-1)
	if o.deps.Advisor == nil {
		conv.Rollback()
		return Advise{}, fmt.Errorf("%w: advisor not configured", ErrNoAdvice)
	}
	reply, err := o.deps.Advisor.Complete(ctx, msgs)
	if err != nil {
		conv.Rollback()
		return Advise{}, fmt.Errorf("%w: %v", ErrNoAdvice, err)
	}
	logger.LogLLMResponse(o.cfg.Model, symbol, reply)
	adv, err := ParseAdvise(reply)
	if err != nil {
		conv.Rollback()
		return Advise{}, fmt.Errorf("%w: %w", ErrNoAdvice, err)
	}
	conv.Commit(reply)
	return adv, nil
}

// BuildRequest assembles the symbol's orders, position and the three
// timeframe reports. A symbol outside the instrument list gets empty reports.
func (o *Orchestrator) BuildRequest(symbol string) Request {
	req := Request{
		Orders: o.deps.Ledger.OrdersFor(symbol),
		Config: RequestConfig{SellThreshold: o.cfg.SellThreshold},
	}
	if req.Orders == nil {
		req.Orders = []ledger.Order{}
	}
	if pos, ok := o.deps.Ledger.Position(symbol); ok {
		req.Position = &pos
	}
	idx, ok := o.instruments[symbol]
	if !ok || o.deps.Bars == nil {
		return req
	}
	report := func(tf market.Timeframe) string {
		return o.deps.Analyzer.Analyze(o.deps.Bars.Get(market.Slot(idx, tf))).CSV()
	}
	req.OneMin = report(market.OneMinute)
	req.FiveMin = report(market.FiveMinutes)
	req.ThirtyMin = report(market.ThirtyMinutes)
	return req
}

func (o *Orchestrator) dispatch(ctx context.Context, symbol string, adv Advise, out *Outcome) {
	switch {
	case adv.Action == ActionHold:
		logger.Infof("Hold: %s", adv.Reason)
		return
	case adv.Action == ActionOrderCancel:
		o.cancel(ctx, adv, out)
	case adv.Action.PlacesOrder():
		if adv.Confidence < o.cfg.ConfidenceThreshold {
			logger.Infof("%s %s ignored: confidence %d below %d", symbol, adv.Action, adv.Confidence, o.cfg.ConfidenceThreshold)
			return
		}
		o.place(ctx, symbol, adv, out)
	default:
		logger.Warnf("%s: unrecognized action, nothing dispatched", symbol)
		return
	}
	if out.Dispatched {
		o.notify("place and order, action=" + ledger.Dump(adv))
	}
}

func (o *Orchestrator) cancel(ctx context.Context, adv Advise, out *Outcome) {
	if adv.OrderID == nil {
		logger.Warnf("ORDER_CANCEL without order_id ignored")
		return
	}
	id := *adv.OrderID
	order, ok := o.deps.Ledger.Order(id)
	if !ok {
		logger.Warnf("ORDER_CANCEL for unknown order %d ignored", id)
		return
	}
	if err := o.deps.Commands.CancelOrder(ctx, id); err != nil {
		out.Err = fmt.Errorf("cancel order %d: %w", id, err)
		logger.Errorf("%v", out.Err)
		return
	}
	logger.Infof("cancel order: %d", id)
	o.notify("cancel order: " + ledger.Dump(order))
	o.deps.Ledger.RemoveOrder(id)
	out.Dispatched = true
	out.OrderID = id
}

func (o *Orchestrator) place(ctx context.Context, symbol string, adv Advise, out *Outcome) {
	ticket := gateway.OrderTicket{Quantity: o.cfg.OrderQuantity}
	switch adv.Action {
	case ActionLimitBuy, ActionMarketBuy:
		ticket.Side = gateway.SideBuy
	default:
		ticket.Side = gateway.SideSell
	}
	if adv.Action == ActionLimitBuy || adv.Action == ActionLimitSell {
		ticket.Type = gateway.OrderTypeLimit
		ticket.LimitPrice = adv.Price
	} else {
		ticket.Type = gateway.OrderTypeMarket
	}
	id := o.deps.IDs.Next()
	if err := o.deps.Commands.PlaceOrder(ctx, id, gateway.StockContract(symbol), ticket); err != nil {
		out.Err = fmt.Errorf("place order %d: %w", id, err)
		logger.Errorf("%v", out.Err)
		return
	}
	logger.Infof("placed %s %s %s x%s id=%d", symbol, ticket.Side, ticket.Type, ticket.Quantity, id)
	out.Dispatched = true
	out.OrderID = id
}

func (o *Orchestrator) notify(text string) {
	if o.deps.Notifier != nil {
		o.deps.Notifier.Notify(text)
	}
}

func (o *Orchestrator) record(ctx context.Context, out Outcome) {
	if o.deps.Journal == nil {
		return
	}
	if err := o.deps.Journal.Record(ctx, out); err != nil {
		logger.Warnf("decision journal write failed: %v", err)
	}
}
