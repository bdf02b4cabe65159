package trader

import (
	"context"

	"aurora/internal/gateway"
)

// EventHandler handles one event type.
type EventHandler interface {
	Type() gateway.EventType

	// Handle processes the payload. The traceID is the envelope id.
	Handle(ctx *HandlerContext, payload []byte, traceID string) error
}

// HandlerContext gives handlers the actor's context and event sink without
// exposing the Trader itself.
type HandlerContext struct {
	ctx  context.Context
	sink gateway.EventSink
}

func NewHandlerContext(ctx context.Context, sink gateway.EventSink) *HandlerContext {
	return &HandlerContext{ctx: ctx, sink: sink}
}

func (c *HandlerContext) Context() context.Context { return c.ctx }

func (c *HandlerContext) Sink() gateway.EventSink { return c.sink }
