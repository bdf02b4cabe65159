package trader

import (
	"aurora/internal/gateway"
)

// GatewayEventHandler decodes a gateway payload and forwards it to the sink.
type GatewayEventHandler struct {
	eventType gateway.EventType
}

func NewGatewayEventHandler(t gateway.EventType) *GatewayEventHandler {
	return &GatewayEventHandler{eventType: t}
}

func (h *GatewayEventHandler) Type() gateway.EventType { return h.eventType }

func (h *GatewayEventHandler) Handle(ctx *HandlerContext, payload []byte, _ string) error {
	return gateway.Dispatch(ctx.Context(), ctx.Sink(), gateway.Envelope{Type: h.eventType, Payload: payload})
}
