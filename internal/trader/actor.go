package trader

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"aurora/internal/gateway"
	"aurora/internal/logger"
)

const (
	defaultQueueSize = 256
	slowEventWarn    = 100 * time.Millisecond
)

// Trader is the event actor. Every gateway callback and every closure passed
// to Do runs on its single loop goroutine, so the engine, the bar store and
// the ledger are only ever mutated from one place.
type Trader struct {
	sink          gateway.EventSink
	store         EventStore
	eventRegistry *HandlerRegistry

	ctx    context.Context
	cancel context.CancelFunc

	msgCh    chan EventEnvelope
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	processed atomic.Uint64
	failed    atomic.Uint64
	running   atomic.Bool

	stateSnapshot    atomic.Value
	snapshotThrottle time.Duration
	lastSnapshot     time.Time
}

// NewTrader builds an actor delivering events to sink. store may be nil.
func NewTrader(sink gateway.EventSink, store EventStore) *Trader {
	eventReg := NewHandlerRegistry()
	eventReg.RegisterDefaultHandlers()

	ctx, cancel := context.WithCancel(context.Background())
	tr := &Trader{
		sink:             sink,
		store:            store,
		eventRegistry:    eventReg,
		ctx:              ctx,
		cancel:           cancel,
		msgCh:            make(chan EventEnvelope, defaultQueueSize),
		stopCh:           make(chan struct{}),
		snapshotThrottle: 50 * time.Millisecond,
	}
	tr.refreshSnapshot(true)
	return tr
}

// Registry exposes the handler registry for overrides.
func (t *Trader) Registry() *HandlerRegistry { return t.eventRegistry }

func (t *Trader) Start() {
	t.running.Store(true)
	t.wg.Add(1)
	go t.runLoop()
}

// Stop cancels in-flight handlers, drains the loop and closes the store.
func (t *Trader) Stop() {
	t.stopOnce.Do(func() {
		t.cancel()
		close(t.stopCh)
		t.wg.Wait()
		t.running.Store(false)
		t.refreshSnapshot(true)
		if t.store != nil {
			if err := t.store.Close(); err != nil {
				logger.Warnf("Trader: event store close failed: %v", err)
			}
		}
	})
}

func (t *Trader) Send(evt EventEnvelope) error {
	if evt.ID == "" {
		evt.ID = newEventID(string(evt.Type))
	}
	if evt.CreatedAt.IsZero() {
		evt.CreatedAt = time.Now()
	}
	select {
	case <-t.stopCh:
		return fmt.Errorf("trader is stopped")
	default:
	}
	select {
	case t.msgCh <- evt:
		return nil
	case <-t.stopCh:
		return fmt.Errorf("trader is stopped")
	}
}

// SendSync enqueues evt and waits for its handler to finish.
func (t *Trader) SendSync(ctx context.Context, evt EventEnvelope) error {
	if evt.ReplyCh == nil {
		evt.ReplyCh = make(chan error, 1)
	}

	if err := t.Send(evt); err != nil {
		return err
	}

	select {
	case err := <-evt.ReplyCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-t.stopCh:
		return fmt.Errorf("trader stopped during sync call")
	}
}

// Do runs fn on the actor goroutine and waits for it.
func (t *Trader) Do(ctx context.Context, fn func(ctx context.Context)) error {
	if fn == nil {
		return nil
	}
	return t.SendSync(ctx, EventEnvelope{Type: EvtCall, call: fn})
}

// Stats reports live counters plus the last event seen by the throttled
// snapshot.
func (t *Trader) Stats() Stats {
	var out Stats
	if val := t.stateSnapshot.Load(); val != nil {
		out = val.(Stats)
	}
	out.Processed = t.processed.Load()
	out.Failed = t.failed.Load()
	out.Running = t.running.Load()
	return out
}

func (t *Trader) refreshSnapshot(force bool) {
	if !force && t.snapshotThrottle > 0 && !t.lastSnapshot.IsZero() {
		if time.Since(t.lastSnapshot) < t.snapshotThrottle {
			return
		}
	}
	prev := t.Stats()
	t.stateSnapshot.Store(Stats{
		Processed: t.processed.Load(),
		Failed:    t.failed.Load(),
		LastType:  prev.LastType,
		LastAt:    prev.LastAt,
		Running:   t.running.Load(),
	})
	t.lastSnapshot = time.Now()
}

func (t *Trader) markHandled(evt EventEnvelope) {
	t.stateSnapshot.Store(Stats{
		Processed: t.processed.Load(),
		Failed:    t.failed.Load(),
		LastType:  evt.Type,
		LastAt:    time.Now(),
		Running:   t.running.Load(),
	})
	t.lastSnapshot = time.Now()
}

func (t *Trader) runLoop() {
	defer t.wg.Done()
	logger.Infof("Trader Actor started")

	for {
		select {
		case evt := <-t.msgCh:
			t.handleEvent(evt)
		case <-t.stopCh:
			logger.Infof("Trader Actor stopping")
			return
		}
	}
}

// handleEvent recovers handler panics, warns on slow handlers and always
// answers ReplyCh so SendSync callers never hang.
func (t *Trader) handleEvent(evt EventEnvelope) {
	var err error
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("Trader panic handling event %s: %v", evt.Type, r)
			debug.PrintStack()
			err = fmt.Errorf("panic: %v", r)
		}

		t.processed.Add(1)
		if err != nil {
			t.failed.Add(1)
		}
		if evt.ReplyCh != nil {
			evt.ReplyCh <- err
			close(evt.ReplyCh)
		}

		if dur := time.Since(start); dur > slowEventWarn {
			logger.Warnf("Slow event %s took %v", evt.Type, dur)
		}
		if err != nil || time.Since(t.lastSnapshot) >= t.snapshotThrottle {
			t.markHandled(evt)
		}
	}()

	if evt.Type == EvtCall {
		if evt.call != nil {
			evt.call(t.ctx)
		}
		return
	}

	if t.store != nil && shouldPersistEvent(evt.Type) {
		if perr := t.store.Append(evt); perr != nil {
			logger.Errorf("Failed to persist event %s: %v", evt.Type, perr)
		}
	}

	handler, ok := t.eventRegistry.Get(evt.Type)
	if !ok {
		logger.Warnf("No handler registered for event type: %s", evt.Type)
		err = fmt.Errorf("no handler for %s", evt.Type)
		return
	}

	err = handler.Handle(NewHandlerContext(t.ctx, t.sink), evt.Payload, evt.ID)
	if err != nil {
		logger.Errorf("Trader failed to handle %s: %v", evt.Type, err)
	}
}

// shouldPersistEvent skips the high-volume market data callbacks.
func shouldPersistEvent(t gateway.EventType) bool {
	switch t {
	case gateway.EvtTickPrice, gateway.EvtHistoricalBar, EvtCall:
		return false
	default:
		return true
	}
}

func newEventID(prefix string) string {
	if prefix == "" {
		prefix = "evt"
	}
	return prefix + "-" + uuid.NewString()
}
