package config

import "strings"

// Config is the full application configuration. Sections mirror app.conf.
type Config struct {
	Notification NotificationConfig `toml:"notification"`
	Chat         ChatConfig         `toml:"chat"`
	Trade        TradeConfig        `toml:"trade"`
	Decision     DecisionConfig     `toml:"decision"`
	Advisory     AdvisoryConfig     `toml:"advisory"`
	Gateway      GatewayConfig      `toml:"gateway"`
	Storage      StorageConfig      `toml:"storage"`
	App          AppConfig          `toml:"app"`
}

type NotificationConfig struct {
	Prefix string `toml:"prefix"`
	// Period is "HH-HH" in UTC hours; blank disables notifications.
	Period string `toml:"period"`
	Token  string `toml:"token"`
	// BaseURL overrides the DingTalk endpoint.
	BaseURL string `toml:"base_url"`
}

type ChatConfig struct {
	Key   string `toml:"key"`
	Model string `toml:"model"`
	URL   string `toml:"url"`
}

type TradeConfig struct {
	// Symbols is the comma separated symbol list; its order fixes slot ids.
	Symbols            string `toml:"symbols"`
	RefreshInterval    string `toml:"refresh_interval"`
	IncludeFlatSymbols bool   `toml:"include_flat_symbols"`
}

type DecisionConfig struct {
	ConfidenceThreshold int     `toml:"confidence_threshold"`
	OrderQuantity       int64   `toml:"order_quantity"`
	FallbackOrderID     int64   `toml:"fallback_order_id"`
	AlertThreshold      float64 `toml:"alert_threshold"`
	SellThreshold       int     `toml:"sell_threshold"`
}

type AdvisoryConfig struct {
	PromptPath     string `toml:"prompt_path"`
	HistoryWindow  int    `toml:"history_window"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type GatewayConfig struct {
	Mode      string `toml:"mode"`
	BridgeURL string `toml:"bridge_url"`
	Account   string `toml:"account"`
	// PaperDataDir holds exported bar files the paper broker replays.
	// Blank falls back to storage.bar_dir.
	PaperDataDir string `toml:"paper_data_dir"`
}

type StorageConfig struct {
	BarDir          string `toml:"bar_dir"`
	BarFormat       string `toml:"bar_format"`
	DecisionLogPath string `toml:"decision_log_path"`
	// EventLogPath, when set, appends gateway events to a JSON lines file
	// instead of the journal database.
	EventLogPath string `toml:"event_log_path"`
}

type AppConfig struct {
	LogLevel              string `toml:"log_level"`
	LogPath               string `toml:"log_path"`
	LLMLogPath            string `toml:"llm_log_path"`
	HTTPAddr              string `toml:"http_addr"`
	NotifyIntervalMinutes int    `toml:"notify_interval_minutes"`
}

// SymbolList splits trade.symbols, dropping blanks.
func (t TradeConfig) SymbolList() []string {
	parts := strings.Split(t.Symbols, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	c.Notification.Token = mask(c.Notification.Token)
	c.Chat.Key = mask(c.Chat.Key)
	return c
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 6 {
		return "***"
	}
	return secret[:3] + "***" + secret[len(secret)-2:]
}
