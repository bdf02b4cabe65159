package app

import (
	"bytes"
	"context"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aurora/internal/config"
	"aurora/internal/decision"
	"aurora/internal/gateway/paper"
	"aurora/internal/market"
	"aurora/internal/notifier"
)

const paperConf = `[notification]
prefix = aurora
period = 0-24
token = test-token

[chat]
key = sk-test
model = test-model
url = http://127.0.0.1:1

[trade]
symbols = AAPL
include_flat_symbols = true

[gateway]
mode = paper
account = DU123

[storage]
bar_dir = bars
decision_log_path = data/decisions.db
`

type scriptedAdvisor struct {
	reply string
	calls atomic.Int32
}

func (s *scriptedAdvisor) Complete(_ context.Context, messages []decision.Message) (string, error) {
	s.calls.Add(1)
	return s.reply, nil
}

type textLog struct {
	mu    sync.Mutex
	texts []string
}

func (l *textLog) sender() notifier.TextNotifier {
	return notifier.Func(func(text string) error {
		l.mu.Lock()
		l.texts = append(l.texts, text)
		l.mu.Unlock()
		return nil
	})
}

func (l *textLog) contains(prefix string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, t := range l.texts {
		if strings.HasPrefix(t, prefix) {
			return true
		}
	}
	return false
}

func loadConf(t *testing.T, body string) *config.Config {
	t.Helper()
	t.Chdir(t.TempDir())
	require.NoError(t, os.WriteFile("app.conf", []byte(body), 0o644))
	cfg, err := config.Load("app.conf")
	require.NoError(t, err)
	return cfg
}

func memoryBars(t *testing.T, n int) paper.BarLoader {
	t.Helper()
	start := time.Date(2024, 1, 5, 14, 30, 0, 0, time.UTC)
	series := make([]market.Bar, 0, n)
	for i := 0; i < n; i++ {
		stamp := start.Add(time.Duration(i) * time.Minute).Format("20060102 15:04:05")
		px := 100 + float64(i%7)
		bar, err := market.NewBar(stamp, px, px+1, px-1, px, 1000)
		require.NoError(t, err)
		series = append(series, bar)
	}
	return paper.FromMemory(map[string]map[market.Timeframe][]market.Bar{
		"AAPL": {
			market.OneMinute:     series,
			market.FiveMinutes:   series,
			market.ThirtyMinutes: series,
		},
	})
}

func TestApp_PaperSessionPlacesAdvisedOrder(t *testing.T) {
	cfg := loadConf(t, paperConf)
	adv := &scriptedAdvisor{reply: `{"action":"LIMIT_BUY","price":101.5,"confidence":90,"reason":"breakout"}`}
	texts := &textLog{}

	a, err := NewApp(context.Background(), cfg,
		WithPrompt("you are a trading assistant"),
		WithAdvisor(adv),
		WithNotifier(texts.sender()),
		WithBarLoader(memoryBars(t, 60)),
	)
	require.NoError(t, err)
	a.Summary = nil

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	assert.Eventually(t, func() bool {
		return len(a.ledger.OrdersFor("AAPL")) > 0
	}, 5*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool {
		recs, err := a.journal.ListDecisions(context.Background(), "AAPL", 10)
		return err == nil && len(recs) > 0
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, 60, len(a.bars.Get(market.Slot(0, market.OneMinute))))
	assert.True(t, texts.contains("place and order, action="))
	assert.GreaterOrEqual(t, adv.calls.Load(), int32(1))
	_, err = os.Stat("bars/1.csv")
	assert.NoError(t, err)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
	assert.False(t, a.trader.Stats().Running)
}

func TestApp_HoldLeavesLedgerEmpty(t *testing.T) {
	cfg := loadConf(t, paperConf)
	adv := &scriptedAdvisor{reply: `{"action":"HOLD","confidence":95,"reason":"wait"}`}
	texts := &textLog{}

	a, err := NewApp(context.Background(), cfg,
		WithPrompt("p"),
		WithAdvisor(adv),
		WithNotifier(texts.sender()),
		WithBarLoader(memoryBars(t, 10)),
	)
	require.NoError(t, err)
	a.Summary = nil

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	assert.Eventually(t, func() bool { return adv.calls.Load() > 0 }, 5*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Empty(t, a.ledger.Orders())
	assert.False(t, texts.contains("place and order"))
}

func TestBuild_BridgeRequiresHTTPAddr(t *testing.T) {
	cfg := loadConf(t, paperConf)
	cfg.Gateway.Mode = config.GatewayBridge
	cfg.Gateway.BridgeURL = "http://127.0.0.1:7000"

	_, err := NewApp(context.Background(), cfg, WithPrompt("p"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "app.http_addr")
}

func TestBuild_MissingPromptFails(t *testing.T) {
	cfg := loadConf(t, paperConf)

	_, err := NewApp(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read system prompt")
}

func TestBuild_NilConfig(t *testing.T) {
	_, err := NewApp(context.Background(), nil)
	assert.Error(t, err)
}

func TestApp_ApplyConfigSwapsNotificationPeriod(t *testing.T) {
	cfg := loadConf(t, paperConf)
	a, err := NewApp(context.Background(), cfg, WithPrompt("p"), WithNotifier(notifier.Func(func(string) error { return nil })))
	require.NoError(t, err)
	t.Cleanup(func() {
		a.trader.Stop()
		_ = a.Close()
	})

	next := *cfg
	next.Notification.Period = "9-17"
	a.ApplyConfig(&next)

	start, end, enabled := a.gate.Period()
	assert.True(t, enabled)
	assert.Equal(t, 9, start)
	assert.Equal(t, 17, end)
}

func TestStartupSummary_Print(t *testing.T) {
	cfg := loadConf(t, strings.Replace(paperConf, "symbols = AAPL", "symbols = AAPL,MSFT", 1))
	s := newStartupSummary(cfg, cfg.Trade.SymbolList(), 5*time.Minute)

	var buf bytes.Buffer
	s.Print(&buf)
	out := buf.String()
	assert.Contains(t, out, "1m=1 5m=2 30m=3")
	assert.Contains(t, out, "1m=11 5m=12 30m=13")
	assert.Contains(t, out, "every 5m0s")
	assert.Contains(t, out, "mode:    paper")
	assert.Contains(t, out, "target:  bars")
}
