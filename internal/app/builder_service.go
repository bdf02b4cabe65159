package app

import (
	"strings"

	"aurora/internal/analysis/indicator"
	"aurora/internal/config"
	"aurora/internal/ledger"
	"aurora/internal/logger"
	"aurora/internal/store"
	"aurora/internal/store/gormstore"
	"aurora/internal/trader"
	livehttp "aurora/internal/transport/http/live"
)

// eventStore picks where gateway events are journaled: a JSON lines file when
// storage.event_log_path is set, the decision database otherwise.
func (b *AppBuilder) eventStore(cfg config.StorageConfig, journal *gormstore.GormStore) (trader.EventStore, error) {
	if path := strings.TrimSpace(cfg.EventLogPath); path != "" {
		fs, err := trader.NewFileEventStore(path)
		if err != nil {
			return nil, err
		}
		logger.Infof("✓ event log at %s", path)
		return fs, nil
	}
	return trader.NewSQLiteEventStore(journal), nil
}

type liveHTTPDeps struct {
	ledger   *ledger.Ledger
	bars     *store.BarStore
	analyzer *indicator.Analyzer
	journal  *gormstore.GormStore
	history  trader.EventStore
	events   *trader.Sink
	stats    *trader.Trader
}

func buildLiveHTTPServer(cfg config.AppConfig, deps liveHTTPDeps) (*livehttp.Server, error) {
	addr := strings.TrimSpace(cfg.HTTPAddr)
	if addr == "" {
		logger.Infof("app.http_addr is empty; http server disabled")
		return nil, nil
	}
	return livehttp.NewServer(livehttp.ServerConfig{
		Addr:      addr,
		Ledger:    deps.ledger,
		Bars:      deps.bars,
		Analyzer:  deps.analyzer,
		Decisions: deps.journal,
		History:   deps.history,
		Events:    deps.events,
		Stats:     deps.stats,
	})
}
