package engine

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"aurora/internal/decision"
	"aurora/internal/gateway"
	"aurora/internal/ledger"
	"aurora/internal/market"
	"aurora/internal/store"
)

type MockCommands struct {
	mock.Mock
}

func (m *MockCommands) RequestHistoricalData(ctx context.Context, req gateway.HistoricalRequest) error {
	return m.Called(ctx, req).Error(0)
}

func (m *MockCommands) RequestAccountUpdates(ctx context.Context, subscribe bool, account string) error {
	return m.Called(ctx, subscribe, account).Error(0)
}

func (m *MockCommands) RequestAllOpenOrders(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockCommands) RequestPositions(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockCommands) PlaceOrder(ctx context.Context, orderID int64, contract gateway.Contract, ticket gateway.OrderTicket) error {
	return m.Called(ctx, orderID, contract, ticket).Error(0)
}

func (m *MockCommands) CancelOrder(ctx context.Context, orderID int64) error {
	return m.Called(ctx, orderID).Error(0)
}

type recordingCycler struct {
	symbols []string
}

func (r *recordingCycler) Run(_ context.Context, symbol string) decision.Outcome {
	r.symbols = append(r.symbols, symbol)
	return decision.Outcome{Symbol: symbol}
}

type memoryExporter struct {
	exported map[market.SlotID]int
}

func (m *memoryExporter) Export(_ context.Context, slot market.SlotID, bars []market.Bar) error {
	if m.exported == nil {
		m.exported = make(map[market.SlotID]int)
	}
	m.exported[slot] = len(bars)
	return nil
}

type fixture struct {
	engine   *Engine
	commands *MockCommands
	cycler   *recordingCycler
	exporter *memoryExporter
	bars     *store.BarStore
	ledger   *ledger.Ledger
	ids      *decision.IDAllocator
}

func newFixture(opts Options) *fixture {
	f := &fixture{
		commands: &MockCommands{},
		cycler:   &recordingCycler{},
		exporter: &memoryExporter{},
		ledger:   ledger.New(nil, ledger.Options{}),
		ids:      decision.NewIDAllocator(0),
	}
	f.bars = store.NewBarStore(f.exporter)
	f.engine = New(f.commands, f.bars, f.ledger, f.cycler, f.ids, opts)
	return f
}

func TestEngine_NextValidIDStartsSessionOnce(t *testing.T) {
	f := newFixture(Options{Symbols: []string{"AAPL", "MSFT"}})
	ctx := context.Background()

	var slots []market.SlotID
	f.commands.On("RequestHistoricalData", ctx, mock.Anything).
		Run(func(args mock.Arguments) {
			slots = append(slots, args.Get(1).(gateway.HistoricalRequest).ReqID)
		}).
		Return(nil)

	f.engine.NextValidID(ctx, 10)
	f.engine.NextValidID(ctx, 20)

	assert.True(t, f.engine.Started())
	assert.Equal(t, []market.SlotID{1, 2, 3, 11, 12, 13}, slots)
	f.commands.AssertNumberOfCalls(t, "RequestHistoricalData", 6)
	assert.Equal(t, int64(20), f.ids.Next())
}

func TestEngine_RefreshRequiresSession(t *testing.T) {
	f := newFixture(Options{Symbols: []string{"AAPL"}})
	ctx := context.Background()
	f.commands.On("RequestHistoricalData", ctx, mock.Anything).Return(nil)

	f.engine.Refresh(ctx)
	f.commands.AssertNotCalled(t, "RequestHistoricalData", ctx, mock.Anything)

	f.engine.NextValidID(ctx, 1)
	f.engine.Refresh(ctx)
	f.commands.AssertNumberOfCalls(t, "RequestHistoricalData", 6)
}

func TestEngine_ManagedAccountsSubscribesFirst(t *testing.T) {
	f := newFixture(Options{})
	ctx := context.Background()
	f.commands.On("RequestAccountUpdates", ctx, true, "DU111").Return(nil).Once()

	f.engine.ManagedAccounts(ctx, "DU111, DU222")

	assert.Equal(t, "DU111", f.engine.Account())
	f.commands.AssertExpectations(t)
}

func TestEngine_HistoricalFlowOpensSnapshotRound(t *testing.T) {
	f := newFixture(Options{Symbols: []string{"AAPL"}})
	ctx := context.Background()
	f.commands.On("RequestAllOpenOrders", ctx).Return(nil).Once()
	f.commands.On("RequestPositions", ctx).Return(nil).Once()

	f.engine.HistoricalBar(ctx, gateway.HistoricalBarEvent{ReqID: 1, Date: "20240105 09:30:00", Close: 10})
	f.engine.HistoricalBar(ctx, gateway.HistoricalBarEvent{ReqID: 1, Date: "20240105 09:31:00", Close: 11})
	f.engine.HistoricalBar(ctx, gateway.HistoricalBarEvent{ReqID: 1, Date: "20240105 09:31:00", Close: 12})
	f.engine.Position(ctx, gateway.PositionEvent{Symbol: "OLD", Position: decimal.NewFromInt(1)})

	f.engine.HistoricalDataEnd(ctx, gateway.HistoricalEndEvent{ReqID: 1})

	bars := f.bars.Get(1)
	require.Len(t, bars, 2)
	assert.Equal(t, 12.0, bars[1].Close)
	assert.Equal(t, 2, f.exporter.exported[1])
	assert.Empty(t, f.ledger.Symbols())
	f.commands.AssertExpectations(t)
}

func TestEngine_PositionEndRunsCyclePerHeldSymbol(t *testing.T) {
	f := newFixture(Options{Symbols: []string{"AAPL", "TSLA"}})
	ctx := context.Background()

	f.engine.Position(ctx, gateway.PositionEvent{Symbol: "TSLA", Position: decimal.NewFromInt(5), AvgCost: 200})
	f.engine.PortfolioUpdate(ctx, gateway.PortfolioEvent{Symbol: "NVDA", Position: decimal.NewFromInt(1), UnrealizedPnL: 3})
	f.engine.PositionEnd(ctx)

	assert.Equal(t, []string{"NVDA", "TSLA"}, f.cycler.symbols)
}

func TestEngine_PositionEndIncludesFlatSymbols(t *testing.T) {
	f := newFixture(Options{Symbols: []string{"AAPL", "TSLA"}, IncludeFlatSymbols: true})
	ctx := context.Background()

	f.engine.Position(ctx, gateway.PositionEvent{Symbol: "TSLA", Position: decimal.NewFromInt(5)})
	f.engine.PositionEnd(ctx)

	assert.Equal(t, []string{"TSLA", "AAPL"}, f.cycler.symbols)
}

func TestEngine_OrderEventsFeedLedger(t *testing.T) {
	f := newFixture(Options{})
	ctx := context.Background()

	f.engine.OpenOrder(ctx, gateway.OpenOrderEvent{OrderID: 5, Symbol: "AAPL", Quantity: decimal.NewFromInt(100), LimitPrice: 187.5, OrderType: "LMT"})
	f.engine.OrderStatus(ctx, gateway.OrderStatusEvent{OrderID: 5, Status: "Submitted", Remaining: decimal.NewFromInt(100)})

	o, ok := f.ledger.Order(5)
	require.True(t, ok)
	assert.Equal(t, "AAPL", o.Symbol)
	require.NotNil(t, o.Status)
	assert.Equal(t, "Submitted", *o.Status)
}

func TestEngine_StopUnsubscribes(t *testing.T) {
	f := newFixture(Options{})
	ctx := context.Background()
	f.commands.On("RequestAccountUpdates", ctx, true, "DU1").Return(nil)
	f.commands.On("RequestAccountUpdates", ctx, false, "DU1").Return(nil).Once()

	f.engine.ManagedAccounts(ctx, "DU1")
	f.engine.Stop(ctx)

	assert.False(t, f.engine.Started())
	f.commands.AssertExpectations(t)
}
