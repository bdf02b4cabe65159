package trader

import (
	"aurora/internal/gateway"
	"aurora/internal/logger"
)

// HandlerRegistry maps event types to handlers.
type HandlerRegistry struct {
	handlers map[gateway.EventType]EventHandler
}

func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{
		handlers: make(map[gateway.EventType]EventHandler),
	}
}

// Register adds a handler, replacing any handler of the same type.
func (r *HandlerRegistry) Register(h EventHandler) {
	if h == nil {
		return
	}
	r.handlers[h.Type()] = h
}

func (r *HandlerRegistry) Get(t gateway.EventType) (EventHandler, bool) {
	h, ok := r.handlers[t]
	return h, ok
}

// RegisterDefaultHandlers registers a gateway handler for every inbound
// event type.
func (r *HandlerRegistry) RegisterDefaultHandlers() {
	for _, t := range gateway.EventTypes {
		r.Register(&GatewayEventHandler{eventType: t})
	}
	logger.Debugf("Trader: Registered %d event handlers", len(r.handlers))
}
