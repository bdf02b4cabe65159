package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"aurora/internal/analysis/indicator"
	"aurora/internal/config"
	"aurora/internal/decision"
	"aurora/internal/engine"
	"aurora/internal/gateway/paper"
	"aurora/internal/ledger"
	"aurora/internal/logger"
	"aurora/internal/notifier"
	"aurora/internal/scheduler"
	"aurora/internal/store"
	"aurora/internal/store/export"
	"aurora/internal/store/gormstore"
	"aurora/internal/trader"
)

// AppBuilder assembles an App from config. The function fields are the seams
// tests use to swap external collaborators.
type AppBuilder struct {
	cfg *config.Config

	promptFn  func(path string) (string, error)
	senderFn  func(config.NotificationConfig) notifier.TextNotifier
	advisorFn func(config.ChatConfig, config.AdvisoryConfig) decision.Advisor
	gatewayFn func(*config.Config, paper.BarLoader) (*gatewayLink, error)

	barLoader paper.BarLoader
}

type AppBuilderOption func(*AppBuilder)

// WithAdvisor replaces the chat completion client.
func WithAdvisor(a decision.Advisor) AppBuilderOption {
	return func(b *AppBuilder) {
		b.advisorFn = func(config.ChatConfig, config.AdvisoryConfig) decision.Advisor { return a }
	}
}

// WithNotifier replaces the DingTalk transport behind the notification gate.
func WithNotifier(n notifier.TextNotifier) AppBuilderOption {
	return func(b *AppBuilder) {
		b.senderFn = func(config.NotificationConfig) notifier.TextNotifier { return n }
	}
}

// WithPrompt uses text as the system prompt instead of reading prompt_path.
func WithPrompt(text string) AppBuilderOption {
	return func(b *AppBuilder) {
		b.promptFn = func(string) (string, error) { return text, nil }
	}
}

// WithBarLoader makes the paper broker replay bars from l.
func WithBarLoader(l paper.BarLoader) AppBuilderOption {
	return func(b *AppBuilder) { b.barLoader = l }
}

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:       cfg,
		promptFn:  loadPrompt,
		senderFn:  newDingTalk,
		advisorFn: newAdvisor,
		gatewayFn: buildGateway,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func loadPrompt(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read system prompt: %w", err)
	}
	text := strings.TrimSpace(string(raw))
	if text == "" {
		logger.Warnf("system prompt %s is empty", path)
	}
	return text, nil
}

func newDingTalk(cfg config.NotificationConfig) notifier.TextNotifier {
	if strings.TrimSpace(cfg.BaseURL) != "" {
		return notifier.NewDingTalkWithBaseURL(cfg.BaseURL, cfg.Prefix, cfg.Token)
	}
	return notifier.NewDingTalk(cfg.Prefix, cfg.Token)
}

func (b *AppBuilder) Build(ctx context.Context) (app *App, err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg
	logger.SetLevel(cfg.App.LogLevel)

	symbols := cfg.Trade.SymbolList()
	if len(symbols) == 0 {
		logger.Warnf("trade.symbols is empty; only held positions will be analyzed")
	}
	logger.Infof("✓ loaded %d symbols: %v", len(symbols), symbols)

	refresh, _ := scheduler.ParseIntervalDuration(cfg.Trade.RefreshInterval)

	prompt, err := b.promptFn(cfg.Advisory.PromptPath)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, refresh: refresh}
	defer func() {
		if err != nil {
			if a.trader != nil {
				a.trader.Stop()
			}
			_ = a.Close()
		}
	}()

	a.gate = notifier.NewGate(b.senderFn(cfg.Notification), cfg.Notification.Period)
	a.ledger = ledger.New(a.gate, ledger.Options{
		AlertThreshold:       &cfg.Decision.AlertThreshold,
		AlertIntervalMinutes: cfg.App.NotifyIntervalMinutes,
	})

	exporter, err := export.New(cfg.Storage.BarFormat, cfg.Storage.BarDir)
	if err != nil {
		return nil, err
	}
	if c, ok := exporter.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}
	a.bars = store.NewBarStore(exporter)

	a.journal, err = gormstore.NewGormStore(cfg.Storage.DecisionLogPath)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.journal)

	a.link, err = b.gatewayFn(cfg, b.barLoader)
	if err != nil {
		return nil, err
	}
	if a.link.Webhook && strings.TrimSpace(cfg.App.HTTPAddr) == "" {
		return nil, fmt.Errorf("gateway %s delivers events over http; set app.http_addr", a.link.Mode)
	}

	analyzer := indicator.NewAnalyzer(indicator.DefaultSettings())
	ids := decision.NewIDAllocator(cfg.Decision.FallbackOrderID)
	orch := decision.NewOrchestrator(decision.Deps{
		Ledger:       a.ledger,
		Bars:         a.bars,
		Analyzer:     analyzer,
		Advisor:      b.advisorFn(cfg.Chat, cfg.Advisory),
		Commands:     a.link.Commands,
		Notifier:     a.gate,
		Journal:      a.journal,
		Conversation: decision.NewConversation(prompt, cfg.Advisory.HistoryWindow),
		IDs:          ids,
	}, symbols, decision.Config{
		ConfidenceThreshold: cfg.Decision.ConfidenceThreshold,
		OrderQuantity:       decimal.NewFromInt(cfg.Decision.OrderQuantity),
		SellThreshold:       cfg.Decision.SellThreshold,
		Model:               cfg.Chat.Model,
	})

	a.engine = engine.New(a.link.Commands, a.bars, a.ledger, orch, ids, engine.Options{
		Symbols:            symbols,
		IncludeFlatSymbols: cfg.Trade.IncludeFlatSymbols,
	})

	events, err := b.eventStore(cfg.Storage, a.journal)
	if err != nil {
		return nil, err
	}
	a.trader = trader.NewTrader(a.engine, events)
	sink := trader.NewSink(a.trader)
	if a.link.Attach != nil {
		a.link.Attach(sink)
	}

	a.liveHTTP, err = buildLiveHTTPServer(cfg.App, liveHTTPDeps{
		ledger:   a.ledger,
		bars:     a.bars,
		analyzer: analyzer,
		journal:  a.journal,
		history:  events,
		events:   sink,
		stats:    a.trader,
	})
	if err != nil {
		return nil, err
	}

	a.Summary = newStartupSummary(cfg, symbols, refresh)
	return a, nil
}
