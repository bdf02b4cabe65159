package trader

import (
	"context"

	"aurora/internal/gateway"
	"aurora/internal/logger"
)

// Sink implements gateway.EventSink by posting each callback to the actor.
// Gateway implementations call it from their own goroutines; delivery is
// asynchronous.
type Sink struct {
	trader *Trader
}

var _ gateway.EventSink = (*Sink)(nil)

func NewSink(t *Trader) *Sink { return &Sink{trader: t} }

// Post enqueues an already-encoded gateway envelope.
func (s *Sink) Post(env gateway.Envelope) error {
	return s.trader.Send(FromGateway(env))
}

func (s *Sink) post(t gateway.EventType, payload any) {
	env, err := gateway.NewEnvelope(t, payload)
	if err != nil {
		logger.Errorf("Trader sink: %v", err)
		return
	}
	if err := s.Post(env); err != nil {
		logger.Warnf("Trader sink: drop %s: %v", t, err)
	}
}

func (s *Sink) NextValidID(_ context.Context, id int64) {
	s.post(gateway.EvtNextValidID, gateway.NextValidIDEvent{OrderID: id})
}

func (s *Sink) ManagedAccounts(_ context.Context, accounts string) {
	s.post(gateway.EvtManagedAccounts, gateway.ManagedAccountsEvent{Accounts: accounts})
}

func (s *Sink) TickPrice(_ context.Context, evt gateway.TickPriceEvent) {
	s.post(gateway.EvtTickPrice, evt)
}

func (s *Sink) OpenOrder(_ context.Context, evt gateway.OpenOrderEvent) {
	s.post(gateway.EvtOpenOrder, evt)
}

func (s *Sink) OrderStatus(_ context.Context, evt gateway.OrderStatusEvent) {
	s.post(gateway.EvtOrderStatus, evt)
}

func (s *Sink) Position(_ context.Context, evt gateway.PositionEvent) {
	s.post(gateway.EvtPosition, evt)
}

func (s *Sink) PositionEnd(_ context.Context) {
	s.post(gateway.EvtPositionEnd, struct{}{})
}

func (s *Sink) PortfolioUpdate(_ context.Context, evt gateway.PortfolioEvent) {
	s.post(gateway.EvtPortfolioUpdate, evt)
}

func (s *Sink) HistoricalBar(_ context.Context, evt gateway.HistoricalBarEvent) {
	s.post(gateway.EvtHistoricalBar, evt)
}

func (s *Sink) HistoricalDataEnd(_ context.Context, evt gateway.HistoricalEndEvent) {
	s.post(gateway.EvtHistoricalDataEnd, evt)
}

func (s *Sink) Error(_ context.Context, evt gateway.ErrorEvent) {
	s.post(gateway.EvtError, evt)
}
