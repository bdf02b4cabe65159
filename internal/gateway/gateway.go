// Package gateway describes the brokerage boundary as two capabilities: an
// EventSink that consumes inbound callbacks and a CommandSink that accepts
// outbound requests. Implementations are wired together by the caller.
package gateway

import "context"

// EventSink consumes gateway callbacks. Calls are expected to arrive serially.
type EventSink interface {
	NextValidID(ctx context.Context, id int64)
	ManagedAccounts(ctx context.Context, accounts string)
	TickPrice(ctx context.Context, evt TickPriceEvent)
	OpenOrder(ctx context.Context, evt OpenOrderEvent)
	OrderStatus(ctx context.Context, evt OrderStatusEvent)
	Position(ctx context.Context, evt PositionEvent)
	PositionEnd(ctx context.Context)
	PortfolioUpdate(ctx context.Context, evt PortfolioEvent)
	HistoricalBar(ctx context.Context, evt HistoricalBarEvent)
	HistoricalDataEnd(ctx context.Context, evt HistoricalEndEvent)
	Error(ctx context.Context, evt ErrorEvent)
}

// CommandSink accepts commands for the brokerage.
type CommandSink interface {
	RequestHistoricalData(ctx context.Context, req HistoricalRequest) error
	RequestAccountUpdates(ctx context.Context, subscribe bool, account string) error
	RequestAllOpenOrders(ctx context.Context) error
	RequestPositions(ctx context.Context) error
	PlaceOrder(ctx context.Context, orderID int64, contract Contract, ticket OrderTicket) error
	CancelOrder(ctx context.Context, orderID int64) error
}
