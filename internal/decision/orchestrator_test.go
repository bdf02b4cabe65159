package decision

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"aurora/internal/gateway"
	"aurora/internal/ledger"
	"aurora/internal/market"
	"aurora/internal/store"
)

type MockAdvisor struct {
	mock.Mock
}

func (m *MockAdvisor) Complete(ctx context.Context, messages []Message) (string, error) {
	args := m.Called(ctx, messages)
	return args.String(0), args.Error(1)
}

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

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(text string) bool {
	return m.Called(text).Bool(0)
}

type memoryJournal struct {
	outcomes []Outcome
}

func (j *memoryJournal) Record(_ context.Context, o Outcome) error {
	j.outcomes = append(j.outcomes, o)
	return nil
}

type fixture struct {
	advisor  *MockAdvisor
	commands *MockCommands
	notifier *MockNotifier
	journal  *memoryJournal
	ledger   *ledger.Ledger
	bars     *store.BarStore
	conv     *Conversation
	orch     *Orchestrator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		advisor:  new(MockAdvisor),
		commands: new(MockCommands),
		notifier: new(MockNotifier),
		journal:  &memoryJournal{},
		ledger:   ledger.New(nil, ledger.Options{}),
		bars:     store.NewBarStore(nil),
		conv:     NewConversation("you are a trading assistant", 0),
	}
	ids := NewIDAllocator(0)
	ids.Seed(100)
	f.orch = NewOrchestrator(Deps{
		Ledger:       f.ledger,
		Bars:         f.bars,
		Advisor:      f.advisor,
		Commands:     f.commands,
		Notifier:     f.notifier,
		Journal:      f.journal,
		Conversation: f.conv,
		IDs:          ids,
	}, []string{"AAPL", "MSFT"}, Config{})
	return f
}

func (f *fixture) reply(json string) {
	f.advisor.On("Complete", mock.Anything, mock.Anything).Return(json, nil).Once()
}

func TestOrchestrator_ConfidenceBelowThresholdDispatchesNothing(t *testing.T) {
	f := newFixture(t)
	f.reply(`{"action":"LIMIT_BUY","price":187.5,"confidence":79,"reason":"weak"}`)

	out := f.orch.Run(context.Background(), "AAPL")

	require.NoError(t, out.Err)
	assert.False(t, out.Dispatched)
	f.commands.AssertNotCalled(t, "PlaceOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.notifier.AssertNotCalled(t, "Notify", mock.Anything)
}

func TestOrchestrator_ConfidenceAtThresholdPlacesOneLimitOrder(t *testing.T) {
	f := newFixture(t)
	f.reply(`{"action":"LIMIT_BUY","price":187.5,"confidence":80,"reason":"strong"}`)
	f.commands.On("PlaceOrder", mock.Anything, int64(100), gateway.StockContract("AAPL"), mock.MatchedBy(func(tk gateway.OrderTicket) bool {
		return tk.Side == gateway.SideBuy &&
			tk.Type == gateway.OrderTypeLimit &&
			tk.Quantity.Equal(decimal.NewFromInt(100)) &&
			tk.LimitPrice.Equal(decimal.RequireFromString("187.5"))
	})).Return(nil).Once()
	f.notifier.On("Notify", mock.MatchedBy(func(s string) bool {
		return strings.HasPrefix(s, "place and order, action=")
	})).Return(true).Once()

	out := f.orch.Run(context.Background(), "AAPL")

	require.NoError(t, out.Err)
	assert.True(t, out.Dispatched)
	assert.Equal(t, int64(100), out.OrderID)
	f.commands.AssertNumberOfCalls(t, "PlaceOrder", 1)
	f.commands.AssertExpectations(t)
	f.notifier.AssertExpectations(t)
}

func TestOrchestrator_MarketSell(t *testing.T) {
	f := newFixture(t)
	f.reply(`{"action":"MARKET_SELL","price":0,"confidence":95,"reason":"stop"}`)
	f.commands.On("PlaceOrder", mock.Anything, int64(100), gateway.StockContract("AAPL"), mock.MatchedBy(func(tk gateway.OrderTicket) bool {
		return tk.Side == gateway.SideSell && tk.Type == gateway.OrderTypeMarket
	})).Return(nil).Once()
	f.notifier.On("Notify", mock.Anything).Return(true).Once()

	out := f.orch.Run(context.Background(), "AAPL")
	assert.True(t, out.Dispatched)
	f.commands.AssertExpectations(t)
}

func TestOrchestrator_CancelUnknownOrderIsNoop(t *testing.T) {
	f := newFixture(t)
	f.ledger.RecordOpenOrder(ledger.Order{OrderID: 7, Symbol: "AAPL", Quantity: decimal.NewFromInt(100), Type: "LMT"})
	f.reply(`{"action":"ORDER_CANCEL","order_id":99,"price":0,"confidence":90,"reason":"stale"}`)

	out := f.orch.Run(context.Background(), "AAPL")

	require.NoError(t, out.Err)
	assert.False(t, out.Dispatched)
	assert.Len(t, f.ledger.Orders(), 1)
	f.commands.AssertNotCalled(t, "CancelOrder", mock.Anything, mock.Anything)
	f.notifier.AssertNotCalled(t, "Notify", mock.Anything)
}

func TestOrchestrator_CancelKnownOrder(t *testing.T) {
	f := newFixture(t)
	f.ledger.RecordOpenOrder(ledger.Order{OrderID: 7, Symbol: "AAPL", Quantity: decimal.NewFromInt(100), Type: "LMT"})
	f.reply(`{"action":"ORDER_CANCEL","order_id":7,"price":0,"confidence":10,"reason":"stale"}`)
	f.commands.On("CancelOrder", mock.Anything, int64(7)).Return(nil).Once()
	f.notifier.On("Notify", mock.MatchedBy(func(s string) bool {
		return strings.HasPrefix(s, "cancel order: ") && strings.Contains(s, `"order_id":7`)
	})).Return(true).Once()
	f.notifier.On("Notify", mock.MatchedBy(func(s string) bool {
		return strings.HasPrefix(s, "place and order, action=")
	})).Return(true).Once()

	out := f.orch.Run(context.Background(), "AAPL")

	assert.True(t, out.Dispatched)
	_, ok := f.ledger.Order(7)
	assert.False(t, ok)
	f.commands.AssertExpectations(t)
	f.notifier.AssertExpectations(t)
}

func TestOrchestrator_HoldDoesNothing(t *testing.T) {
	f := newFixture(t)
	f.reply(`{"action":"HOLD","confidence":100,"reason":"flat"}`)

	out := f.orch.Run(context.Background(), "AAPL")

	require.NotNil(t, out.Advise)
	assert.Equal(t, ActionHold, out.Advise.Action)
	assert.False(t, out.Dispatched)
	f.notifier.AssertNotCalled(t, "Notify", mock.Anything)
	assert.Equal(t, 2, f.conv.Len())
}

func TestOrchestrator_AdvisorFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	f.advisor.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("401 unauthorized")).Once()

	out := f.orch.Run(context.Background(), "AAPL")

	assert.ErrorIs(t, out.Err, ErrNoAdvice)
	assert.Nil(t, out.Advise)
	assert.Equal(t, 0, f.conv.Len())
	assert.Equal(t, StateIdle, f.orch.State("AAPL"))
	require.Len(t, f.journal.outcomes, 1)
	assert.Error(t, f.journal.outcomes[0].Err)
}

func TestOrchestrator_MalformedReplyIsNoDecision(t *testing.T) {
	f := newFixture(t)
	f.reply("I think you should buy.")

	out := f.orch.Run(context.Background(), "AAPL")

	assert.ErrorIs(t, out.Err, ErrMalformedAdvise)
	assert.False(t, out.Dispatched)
	assert.Equal(t, 0, f.conv.Len())
}

func TestOrchestrator_UnknownActionNotDispatched(t *testing.T) {
	f := newFixture(t)
	f.reply(`{"action":"YOLO","confidence":100}`)

	out := f.orch.Run(context.Background(), "AAPL")
	assert.False(t, out.Dispatched)
	f.commands.AssertNotCalled(t, "PlaceOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestOrchestrator_FallbackOrderIDBeforeSeed(t *testing.T) {
	f := newFixture(t)
	f.orch.deps.IDs = NewIDAllocator(0)
	f.reply(`{"action":"MARKET_BUY","confidence":90}`)
	f.commands.On("PlaceOrder", mock.Anything, int64(2), mock.Anything, mock.Anything).Return(nil).Once()
	f.notifier.On("Notify", mock.Anything).Return(true)

	out := f.orch.Run(context.Background(), "AAPL")
	assert.Equal(t, int64(2), out.OrderID)
}

func TestOrchestrator_PlaceOrderFailure(t *testing.T) {
	f := newFixture(t)
	f.reply(`{"action":"MARKET_BUY","confidence":90}`)
	f.commands.On("PlaceOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("not connected")).Once()

	out := f.orch.Run(context.Background(), "AAPL")
	assert.False(t, out.Dispatched)
	assert.Error(t, out.Err)
	f.notifier.AssertNotCalled(t, "Notify", mock.Anything)
}

func TestOrchestrator_BuildRequestUsesSymbolSlots(t *testing.T) {
	f := newFixture(t)
	start := time.Date(2024, 1, 5, 14, 30, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		d := start.Add(time.Duration(i) * time.Minute)
		f.bars.Upsert(market.Slot(1, market.OneMinute), market.Bar{Stamp: fmt.Sprint(i), Date: d, Close: 400})
		f.bars.Upsert(market.Slot(0, market.OneMinute), market.Bar{Stamp: fmt.Sprint(i), Date: d, Close: 180})
	}
	f.ledger.RecordOpenOrder(ledger.Order{OrderID: 1, Symbol: "MSFT", Type: "LMT"})
	f.ledger.RecordOpenOrder(ledger.Order{OrderID: 2, Symbol: "AAPL", Type: "LMT"})
	f.ledger.UpsertPosition(ledger.PositionUpdate{Kind: ledger.KindPosition, Symbol: "MSFT", Quantity: decimal.NewFromInt(10)})

	req := f.orch.BuildRequest("MSFT")
	require.Len(t, req.Orders, 1)
	assert.Equal(t, int64(1), req.Orders[0].OrderID)
	require.NotNil(t, req.Position)
	assert.Contains(t, req.OneMin, ",400,")
	assert.NotContains(t, req.OneMin, ",180,")
	assert.Equal(t, "", req.FiveMin)
	assert.Equal(t, -100, req.Config.SellThreshold)

	other := f.orch.BuildRequest("TSLA")
	assert.Empty(t, other.Orders)
	assert.NotNil(t, other.Orders)
	assert.Nil(t, other.Position)
	assert.Equal(t, "", other.OneMin)
}

type blockingAdvisor struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingAdvisor) Complete(ctx context.Context, _ []Message) (string, error) {
	close(b.entered)
	<-b.release
	return `{"action":"HOLD"}`, nil
}

func TestOrchestrator_OverlappingCycleSkipped(t *testing.T) {
	f := newFixture(t)
	adv := &blockingAdvisor{entered: make(chan struct{}), release: make(chan struct{})}
	f.orch.deps.Advisor = adv

	done := make(chan Outcome, 1)
	go func() { done <- f.orch.Run(context.Background(), "AAPL") }()
	<-adv.entered

	assert.Equal(t, StateAwaitingAdvice, f.orch.State("AAPL"))
	second := f.orch.Run(context.Background(), "AAPL")
	assert.True(t, second.Skipped)

	close(adv.release)
	first := <-done
	assert.False(t, first.Skipped)
	assert.Equal(t, StateIdle, f.orch.State("AAPL"))
}
