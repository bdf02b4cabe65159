package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"aurora/internal/config"
	"aurora/internal/engine"
	"aurora/internal/ledger"
	"aurora/internal/logger"
	"aurora/internal/notifier"
	"aurora/internal/scheduler"
	"aurora/internal/store"
	"aurora/internal/store/gormstore"
	"aurora/internal/trader"
	livehttp "aurora/internal/transport/http/live"
)

const shutdownTimeout = 5 * time.Second

// App owns every long-lived component of a trading session.
type App struct {
	cfg      *config.Config
	engine   *engine.Engine
	trader   *trader.Trader
	link     *gatewayLink
	liveHTTP *livehttp.Server
	gate     *notifier.Gate
	ledger   *ledger.Ledger
	bars     *store.BarStore
	journal  *gormstore.GormStore
	refresh  time.Duration
	closers  []io.Closer
	Summary  *StartupSummary
}

// NewApp builds the application without starting it.
func NewApp(ctx context.Context, cfg *config.Config, opts ...AppBuilderOption) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	return buildAppWithWire(ctx, cfg, opts)
}

// Run starts the event loop and the gateway, then blocks until ctx is done or
// a component fails. The session is stopped before Run returns.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil || a.trader == nil || a.link == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.Summary != nil {
		a.Summary.Print(os.Stdout)
	}

	a.trader.Start()
	group, gctx := errgroup.WithContext(ctx)

	if a.link.Run != nil {
		group.Go(func() error {
			if err := a.link.Run(gctx); err != nil && gctx.Err() == nil {
				return fmt.Errorf("gateway %s: %w", a.link.Mode, err)
			}
			return nil
		})
	}
	if a.link.Connect != nil {
		a.link.Connect()
	}

	if a.refresh > 0 {
		group.Go(func() error {
			scheduler.Every(gctx, a.refresh, func(runCtx context.Context) {
				if err := a.trader.Do(runCtx, a.engine.Refresh); err != nil {
					logger.Warnf("scheduled refresh skipped: %v", err)
				}
			})
			return nil
		})
	}

	if a.liveHTTP != nil {
		group.Go(func() error {
			if err := a.liveHTTP.Start(gctx); err != nil {
				return fmt.Errorf("live http server error: %w", err)
			}
			return nil
		})
	}

	group.Go(func() error {
		<-gctx.Done()
		return nil
	})

	err := group.Wait()
	a.shutdown()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *App) shutdown() {
	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.trader.Do(stopCtx, a.engine.Stop); err != nil {
		logger.Warnf("engine stop: %v", err)
	}
	a.trader.Stop()
	if err := a.Close(); err != nil {
		logger.Warnf("close resources: %v", err)
	}
	logger.Infof("session stopped")
}

// Close releases the stores opened by Build. Run calls it on exit.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}

// ApplyConfig takes the hot-reloadable settings from a reloaded config.
func (a *App) ApplyConfig(cfg *config.Config) {
	if a == nil || cfg == nil {
		return
	}
	logger.SetLevel(cfg.App.LogLevel)
	if a.gate != nil {
		if err := a.gate.SetPeriod(cfg.Notification.Period); err != nil {
			logger.Warnf("notification period %q unusable, notifications disabled: %v", cfg.Notification.Period, err)
		}
	}
}

// Trader exposes the event loop (for tests and replay harnesses).
func (a *App) Trader() *trader.Trader {
	if a == nil {
		return nil
	}
	return a.trader
}

// Engine exposes the session engine. Only touch it through Trader().Do.
func (a *App) Engine() *engine.Engine {
	if a == nil {
		return nil
	}
	return a.engine
}
